package app

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	sessiondomain "queuebreaker/internal/modules/session/domain"
)

// Feed is a session observer that forwards events to a running program.
// Events published before Attach are dropped.
type Feed struct {
	program atomic.Pointer[tea.Program]
}

func NewFeed() *Feed {
	return &Feed{}
}

func (f *Feed) Attach(p *tea.Program) {
	f.program.Store(p)
}

func (f *Feed) Observe(event sessiondomain.Event) {
	if p := f.program.Load(); p != nil {
		p.Send(EventMsg{Event: event})
	}
}
