package tui

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jamesainslie/casweep/pkg/casweep/study"
	"github.com/jamesainslie/casweep/pkg/casweep/types"
)

func TestNewProgressModel(t *testing.T) {
	m := NewProgressModel(make(chan study.Event), 4)

	if m.total != 4 {
		t.Errorf("expected total 4, got %d", m.total)
	}
	if m.finished != 0 || m.failed != 0 {
		t.Errorf("expected no finished cases, got %d finished %d failed", m.finished, m.failed)
	}
	if m.done {
		t.Error("expected done to be false initially")
	}
}

func TestProgressModelEvents(t *testing.T) {
	events := make(chan study.Event, 1)
	var model tea.Model = NewProgressModel(events, 0)

	msgs := []study.Event{
		{Kind: study.CaseStarted, Index: 0, Total: 2, Case: "enrichment=3.0"},
		{Kind: study.CaseFinished, Index: 0, Total: 2, Case: "enrichment=3.0", Status: types.StatusDone, Duration: time.Second},
		{Kind: study.CaseStarted, Index: 1, Total: 2, Case: "enrichment=3.5"},
		{Kind: study.CaseFinished, Index: 1, Total: 2, Case: "enrichment=3.5", Status: types.StatusFailed},
	}
	for _, e := range msgs {
		var cmd tea.Cmd
		model, cmd = model.Update(EventMsg(e))
		if cmd == nil {
			t.Fatalf("expected a follow-up command after %s event", e.Kind)
		}
	}

	m := model.(ProgressModel)
	if m.total != 2 {
		t.Errorf("expected total 2, got %d", m.total)
	}
	if m.finished != 2 {
		t.Errorf("expected 2 finished, got %d", m.finished)
	}
	if m.failed != 1 {
		t.Errorf("expected 1 failed, got %d", m.failed)
	}
	if m.current != "enrichment=3.5" {
		t.Errorf("expected current case enrichment=3.5, got %s", m.current)
	}

	view := m.View()
	if !strings.Contains(view, "2/2") {
		t.Errorf("expected view to contain 2/2, got %q", view)
	}
	if !strings.Contains(view, "1 failed") {
		t.Errorf("expected view to mention the failure, got %q", view)
	}
}

func TestProgressModelDone(t *testing.T) {
	events := make(chan study.Event)
	close(events)

	m := NewProgressModel(events, 1)
	msg := waitForEvent(events)()
	if _, ok := msg.(DoneMsg); !ok {
		t.Fatalf("expected DoneMsg from closed channel, got %T", msg)
	}

	model, cmd := m.Update(msg)
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if !model.(ProgressModel).done {
		t.Error("expected done after DoneMsg")
	}
	if !strings.Contains(model.View(), "0 cases finished") {
		t.Errorf("unexpected final view %q", model.View())
	}
}

func TestProgressModelWindowSize(t *testing.T) {
	m := NewProgressModel(make(chan study.Event), 4)
	model, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	if model.(ProgressModel).width != 120 {
		t.Errorf("expected width 120, got %d", model.(ProgressModel).width)
	}

	narrow, _ := m.Update(tea.WindowSizeMsg{Width: 5, Height: 10})
	bar := narrow.(ProgressModel).renderBar()
	if strings.Count(bar, "░") != minBarWidth {
		t.Errorf("expected minimum bar width %d, got %q", minBarWidth, bar)
	}
}

func TestRunProgress(t *testing.T) {
	events := make(chan study.Event, 4)
	events <- study.Event{Kind: study.CaseStarted, Total: 1, Case: "case"}
	events <- study.Event{Kind: study.CaseFinished, Total: 1, Case: "case", Status: types.StatusDone}
	close(events)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	if err := RunProgress(ctx, events, 1, &out); err != nil {
		t.Fatalf("RunProgress() error = %v", err)
	}
	if ctx.Err() != nil {
		t.Fatal("RunProgress did not return when the channel closed")
	}
}
