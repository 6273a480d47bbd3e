package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/casweep/pkg/casweep/study"
	"github.com/jamesainslie/casweep/pkg/casweep/types"
)

const (
	defaultWidth = 60
	minBarWidth  = 10
)

// EventMsg wraps a study event delivered to the program.
type EventMsg study.Event

// DoneMsg is sent when the event channel is closed.
type DoneMsg struct{}

// ProgressModel shows a spinner, the running case and a bar of finished
// cases out of the study total.
type ProgressModel struct {
	events    <-chan study.Event
	spinner   spinner.Model
	total     int
	finished  int
	failed    int
	current   string
	last      time.Duration
	startTime time.Time
	width     int
	done      bool
}

// NewProgressModel creates a model that reads events until the channel closes.
func NewProgressModel(events <-chan study.Event, total int) ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = titleStyle

	return ProgressModel{
		events:    events,
		spinner:   s,
		total:     total,
		startTime: time.Now(),
		width:     defaultWidth,
	}
}

// waitForEvent reads the next event from the channel.
func waitForEvent(events <-chan study.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return DoneMsg{}
		}
		return EventMsg(e)
	}
}

// Init starts the spinner and the event reader.
func (m ProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

// Update handles messages for the progress model.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case EventMsg:
		m.apply(study.Event(msg))
		return m, waitForEvent(m.events)

	case DoneMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *ProgressModel) apply(e study.Event) {
	if e.Total > 0 {
		m.total = e.Total
	}
	switch e.Kind {
	case study.CaseStarted:
		m.current = e.Case
	case study.CaseFinished:
		m.finished++
		m.last = e.Duration
		if e.Status != types.StatusDone {
			m.failed++
		}
	}
}

// View renders the progress model.
func (m ProgressModel) View() string {
	var b strings.Builder

	if m.done {
		b.WriteString(successTextStyle.Render(fmt.Sprintf("  %d cases finished", m.finished)))
	} else {
		current := m.current
		if current == "" {
			current = "preparing"
		}
		b.WriteString(fmt.Sprintf("  %s Running %s", m.spinner.View(), caseStyle.Render(current)))
	}
	b.WriteString("\n")

	b.WriteString(m.renderBar())
	b.WriteString(" ")
	b.WriteString(fmt.Sprintf("%d/%d", m.finished, m.total))
	b.WriteString("\n")

	b.WriteString(m.renderStats())
	b.WriteString("\n")
	return b.String()
}

// renderBar renders the completion bar.
func (m ProgressModel) renderBar() string {
	barWidth := m.width - 16
	if barWidth < minBarWidth {
		barWidth = minBarWidth
	}

	filled := 0
	if m.total > 0 {
		filled = barWidth * m.finished / m.total
	}
	if filled > barWidth {
		filled = barWidth
	}

	return "  " +
		progressFillStyle.Render(strings.Repeat("█", filled)) +
		progressEmptyStyle.Render(strings.Repeat("░", barWidth-filled))
}

// renderStats renders elapsed time and failure count.
func (m ProgressModel) renderStats() string {
	parts := []string{
		mutedTextStyle.Render("elapsed " + humanize.FtoaWithDigits(time.Since(m.startTime).Seconds(), 1) + "s"),
	}
	if m.last > 0 {
		parts = append(parts, mutedTextStyle.Render("last case "+humanize.FtoaWithDigits(m.last.Seconds(), 1)+"s"))
	}
	if m.failed > 0 {
		parts = append(parts, errorTextStyle.Render(fmt.Sprintf("%d failed", m.failed)))
	}
	return "  " + strings.Join(parts, mutedTextStyle.Render(" · "))
}

// RunProgress shows the progress view on out until events is closed or
// ctx is done. It reads no input and leaves signal handling to the caller.
func RunProgress(ctx context.Context, events <-chan study.Event, total int, out io.Writer) error {
	p := tea.NewProgram(NewProgressModel(events, total),
		tea.WithContext(ctx),
		tea.WithInput(nil),
		tea.WithOutput(out),
		tea.WithoutSignalHandler(),
	)
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("progress view: %w", err)
	}
	return nil
}

