package dashboard

import (
	"fmt"
	"time"

	"github.com/lox/skycast/internal/history"
	"github.com/lox/skycast/internal/models"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseLoaded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	for _, candidate := range []Phase{PhaseIdle, PhaseLoading, PhaseLoaded, PhaseFailed} {
		if candidate.String() == string(b) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// State is what the view renders. Snapshot is the last good snapshot and
// survives failures; Error is set only in PhaseFailed.
type State struct {
	Phase     Phase            `json:"phase"`
	Snapshot  *models.Snapshot `json:"snapshot,omitempty"`
	Error     string           `json:"error,omitempty"`
	Query     string           `json:"query,omitempty"` // what is being resolved while loading
	History   []history.Entry  `json:"history"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

func (s State) clone() State {
	s.History = append([]history.Entry{}, s.History...)
	return s
}

// Loading reports whether a resolution is in flight.
func (s State) Loading() bool {
	return s.Phase == PhaseLoading
}
