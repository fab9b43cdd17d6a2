package engine

import (
	"errors"
	"mycelium/internal/metrics"
	"mycelium/pkg/domain"
)

// Outcome is the result of one advance request.
type Outcome int

const (
	// OutcomeAdvanced means the stage moved forward and the transition was saved.
	OutcomeAdvanced Outcome = iota + 1
	// OutcomeConditionsNotMet means the parameters fall outside the next stage's requirement.
	OutcomeConditionsNotMet
	// OutcomeAlreadyMature means the cycle already reached its terminal stage.
	OutcomeAlreadyMature
	// OutcomeBusy means another advance was in flight.
	OutcomeBusy
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdvanced:
		return metrics.OutcomeAdvanced
	case OutcomeConditionsNotMet:
		return metrics.OutcomeConditionsNotMet
	case OutcomeAlreadyMature:
		return metrics.OutcomeAlreadyMature
	case OutcomeBusy:
		return metrics.OutcomeBusy
	default:
		return "unknown"
	}
}

// OutcomeOf maps an Advance error back to its outcome.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeAdvanced
	case errors.Is(err, domain.ErrGatingFailed):
		return OutcomeConditionsNotMet
	case errors.Is(err, domain.ErrAlreadyMature):
		return OutcomeAlreadyMature
	case errors.Is(err, domain.ErrBusy):
		return OutcomeBusy
	default:
		return 0
	}
}
