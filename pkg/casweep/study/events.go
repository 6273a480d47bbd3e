package study

import (
	"time"

	"github.com/jamesainslie/casweep/pkg/casweep/types"
)

// EventKind identifies a study progress event.
type EventKind int

const (
	// CaseStarted is sent before a case directory is prepared.
	CaseStarted EventKind = iota
	// CaseFinished is sent after a case row is final.
	CaseFinished
)

func (k EventKind) String() string {
	switch k {
	case CaseStarted:
		return "started"
	case CaseFinished:
		return "finished"
	}
	return "unknown"
}

// Event reports progress of a running study.
type Event struct {
	Kind     EventKind
	Index    int
	Total    int
	Case     string
	Status   types.Status  // CaseFinished only
	Duration time.Duration // CaseFinished only
}

// Observer receives events on the goroutine running the study.
// It must not block for long.
type Observer func(Event)
