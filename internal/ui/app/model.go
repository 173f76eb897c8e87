package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	dialerdomain "queuebreaker/internal/modules/dialer/domain"
	sessiondomain "queuebreaker/internal/modules/session/domain"
	sessiondto "queuebreaker/internal/modules/session/dto"
	"queuebreaker/internal/ui/theme"
)

const recentRecords = 8

// ─── async messages ───────────────────────────────────────────────────────────

// EventMsg carries one loop event into the program.
type EventMsg struct{ Event sessiondomain.Event }

// DoneMsg is sent once the session has returned.
type DoneMsg struct {
	Out sessiondto.RunOutput
	Err error
}

type tickMsg time.Time

// ─── key bindings ─────────────────────────────────────────────────────────────

type keyMap struct {
	Abort key.Binding
	Help  key.Binding
	Quit  key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Abort: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "abort session")),
		Help:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:  key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "abort and quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Abort, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Abort, k.Quit}, {k.Help}}
}

// Info is the static part of the dashboard.
type Info struct {
	Policy      string
	PhoneNumber string
	MaxAttempts int
	Backend     string
}

// Model is the live session dashboard. It never touches the session state;
// everything it shows comes from EventMsg copies.
type Model struct {
	info    Info
	abort   func()
	keys    keyMap
	help    help.Model
	spinner spinner.Model

	width  int
	height int
	now    time.Time

	sessionID   string
	status      sessiondomain.Status
	attempts    int
	phase       dialerdomain.Phase
	nextOpening time.Time
	neverOpens  bool
	records     []dialerdomain.AttemptRecord
	cause       sessiondomain.StopCause

	aborting bool
	quitting bool
	done     bool
	out      sessiondto.RunOutput
	err      error
}

// NewModel builds the dashboard. abort is called for the x and q keys.
func NewModel(info Info, abort func()) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Hot
	return Model{
		info:    info,
		abort:   abort,
		keys:    defaultKeys(),
		help:    help.New(),
		spinner: sp,
		status:  sessiondomain.StatusIdle,
		now:     time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.done {
				return m, tea.Quit
			}
			m.quitting = true
			m.requestAbort()
			return m, nil
		case key.Matches(msg, m.keys.Abort):
			if !m.done {
				m.requestAbort()
			}
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EventMsg:
		m.apply(msg.Event)
		return m, nil

	case DoneMsg:
		m.done = true
		m.out = msg.Out
		m.err = msg.Err
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) requestAbort() {
	if m.aborting {
		return
	}
	m.aborting = true
	if m.abort != nil {
		m.abort()
	}
}

func (m *Model) apply(ev sessiondomain.Event) {
	if ev.SessionID != "" {
		m.sessionID = ev.SessionID
	}
	m.attempts = ev.Attempts
	if ev.Status != "" {
		m.status = ev.Status
	}
	if !ev.At.IsZero() {
		m.now = ev.At
	}
	switch ev.Kind {
	case sessiondomain.EventWaiting:
		m.nextOpening = ev.NextOpening
		m.neverOpens = ev.NextOpening.IsZero()
		m.phase = ""
	case sessiondomain.EventAttemptStarted:
		m.phase = dialerdomain.PhaseDialing
	case sessiondomain.EventAttemptPhase:
		m.phase = ev.Phase
	case sessiondomain.EventAttemptFinished:
		m.phase = ""
		m.records = append(m.records, ev.Record)
		if len(m.records) > recentRecords {
			m.records = m.records[len(m.records)-recentRecords:]
		}
	case sessiondomain.EventStopped:
		m.cause = ev.Cause
		m.phase = ""
	}
}

func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	paneWidth := width - 6
	if paneWidth < 40 {
		paneWidth = 40
	}

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		theme.Title.Render("QueueBreaker"),
		theme.Muted.Render("  "+m.info.Policy),
	)
	sections := []string{
		header,
		theme.PaneActive.Width(paneWidth).Render(m.statusView()),
		theme.Pane.Width(paneWidth).Render(m.recordsView()),
	}
	if m.done {
		sections = append(sections, m.resultView())
	}
	sections = append(sections, m.help.View(m.keys))
	return theme.App.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) statusView() string {
	var b strings.Builder
	status := string(m.status)
	switch {
	case m.status == sessiondomain.StatusAttempting:
		status = m.spinner.View() + " " + status
	case m.cause != sessiondomain.CauseNone:
		status += " (" + string(m.cause) + ")"
	}
	fmt.Fprintf(&b, "%s %s\n", theme.Muted.Render("status  "), status)
	if m.sessionID != "" {
		fmt.Fprintf(&b, "%s %s\n", theme.Muted.Render("session "), m.sessionID)
	}
	fmt.Fprintf(&b, "%s %s\n", theme.Muted.Render("number  "), m.info.PhoneNumber)
	fmt.Fprintf(&b, "%s %s\n", theme.Muted.Render("attempts"), m.attemptsLabel())
	if m.phase != "" {
		fmt.Fprintf(&b, "%s %s\n", theme.Muted.Render("phase   "), m.phase)
	}
	if m.status == sessiondomain.StatusWaitingForWindow {
		fmt.Fprintf(&b, "%s %s\n", theme.Muted.Render("window  "), m.windowLabel())
	}
	if m.aborting && !m.done {
		b.WriteString(theme.Hot.Render("abort requested, finishing current step"))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%s %s", theme.Muted.Render("backend "), m.info.Backend)
	return b.String()
}

func (m Model) attemptsLabel() string {
	if m.info.MaxAttempts > 0 {
		return fmt.Sprintf("%d / %d", m.attempts, m.info.MaxAttempts)
	}
	return fmt.Sprintf("%d (unlimited)", m.attempts)
}

func (m Model) windowLabel() string {
	if m.neverOpens {
		return theme.Bad.Render("never opens")
	}
	if m.nextOpening.IsZero() {
		return "-"
	}
	until := m.nextOpening.Sub(m.now).Truncate(time.Second)
	if until < 0 {
		until = 0
	}
	return fmt.Sprintf("opens %s (in %s)", m.nextOpening.Format("15:04"), until)
}

func (m Model) recordsView() string {
	if len(m.records) == 0 {
		return theme.Muted.Render("no attempts yet")
	}
	var b strings.Builder
	b.WriteString(theme.Title.Render(fmt.Sprintf("%-4s %-9s %-8s %-22s %s", "#", "time", "took", "termination", "outcome")))
	for _, rec := range m.records {
		line := fmt.Sprintf("%-4d %-9s %-8s %-22s %s",
			rec.Index,
			rec.StartedAt.Format("15:04:05"),
			fmt.Sprintf("%.1fs", rec.Duration.Seconds()),
			rec.Reason,
			rec.Outcome,
		)
		switch rec.Reason {
		case dialerdomain.ReasonCompleted:
			line = theme.Good.Render(line)
		default:
			line = theme.Bad.Render(line)
		}
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}

func (m Model) resultView() string {
	if m.err != nil {
		return theme.Bad.Render("session failed: " + m.err.Error())
	}
	summary := fmt.Sprintf("stopped: %s after %d attempts", m.out.Cause, m.out.Attempts)
	if m.out.ReportPath != "" {
		summary += "  report=" + m.out.ReportPath
	}
	if m.out.Cause == string(sessiondomain.CauseAborted) {
		return theme.Bad.Render(summary) + theme.Muted.Render("  press q to exit")
	}
	return theme.Title.Render(summary) + theme.Muted.Render("  press q to exit")
}
