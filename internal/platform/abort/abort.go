// Package abort holds the operator stop flag shared between the session loop
// and whatever triggers it (signals, the stop file, the dashboard).
package abort

import (
	"sync"
	"sync/atomic"
)

// Signal is a set-once flag. Set may be called from any goroutine and any
// number of times; only the first call has an effect.
type Signal struct {
	once   sync.Once
	set    atomic.Bool
	done   chan struct{}
	reason atomic.Value
}

func New() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Set raises the flag and records who raised it first.
func (s *Signal) Set(reason string) {
	s.once.Do(func() {
		s.reason.Store(reason)
		s.set.Store(true)
		close(s.done)
	})
}

func (s *Signal) IsSet() bool {
	return s.set.Load()
}

// Done is closed once the flag is set.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Reason returns the source passed to the first Set call.
func (s *Signal) Reason() string {
	v, _ := s.reason.Load().(string)
	return v
}
