// Package orchestrator drives a task through the planner/executor/verifier
// pipeline: idle -> planning -> executing <-> verifying -> completed | failed.
package orchestrator

import "nullclaw/internal/domain"

// Phase is a pipeline run's current state.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhasePlanning  Phase = "planning"
	PhaseExecuting Phase = "executing"
	PhaseVerifying Phase = "verifying"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
)

// IsTerminal reports whether a phase never transitions further.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// Transition applies a named pipeline event to the current phase and
// returns the resulting phase. It returns an error if the event is not
// valid from the current phase, including any attempt to transition out
// of a terminal phase.
func (p Phase) Transition(event string, arg int) (Phase, error) {
	if p.IsTerminal() {
		return p, domain.NewSubSystemError("orchestrator", "Phase.Transition", domain.ErrInvalidTransition,
			string(p)+" is terminal")
	}

	switch event {
	case "begin_planning":
		if p != PhaseIdle {
			return p, invalidTransition(p, event)
		}
		return PhasePlanning, nil

	case "plan_ready":
		if p != PhasePlanning {
			return p, invalidTransition(p, event)
		}
		if arg <= 0 {
			return PhaseCompleted, nil
		}
		return PhaseExecuting, nil

	case "begin_verifying":
		if p != PhaseExecuting {
			return p, invalidTransition(p, event)
		}
		return PhaseVerifying, nil

	case "step_passed":
		if p != PhaseVerifying {
			return p, invalidTransition(p, event)
		}
		if arg <= 0 { // remaining steps
			return PhaseCompleted, nil
		}
		return PhaseExecuting, nil

	case "step_retried":
		if p != PhaseVerifying {
			return p, invalidTransition(p, event)
		}
		return PhaseExecuting, nil

	case "fail":
		return PhaseFailed, nil

	default:
		return p, domain.NewSubSystemError("orchestrator", "Phase.Transition", domain.ErrInvalidTransition,
			"unknown event "+event)
	}
}

func invalidTransition(p Phase, event string) error {
	return domain.NewSubSystemError("orchestrator", "Phase.Transition", domain.ErrInvalidTransition,
		event+" is not valid from "+string(p))
}
