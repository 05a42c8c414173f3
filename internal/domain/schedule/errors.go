package schedule

import (
	"errors"
	"fmt"

	"github.com/okian/courtside/internal/domain/constraint"
)

// Sentinel errors.
var (
	ErrPrecondition   = errors.New("generation precondition failed")
	ErrInfeasible     = errors.New("no schedule satisfies the hard constraints")
	ErrRelaxExhausted = errors.New("rating tolerance relaxed to its maximum without a schedule")
)

// GenerationError is returned when the search gives up. Kind is ErrInfeasible
// or ErrRelaxExhausted and is what errors.Is matches.
type GenerationError struct {
	Kind       error
	Round      int
	Constraint constraint.Kind
	// EloDiffConfigured is the starting tolerance, EloDiffTried the last one
	// searched and EloDiffMax the configured ceiling.
	EloDiffConfigured float64
	EloDiffTried      float64
	EloDiffMax        float64
	RelaxIterations   int
	Attempts          int
}

func (e *GenerationError) Error() string {
	if errors.Is(e.Kind, ErrRelaxExhausted) {
		return fmt.Sprintf("%s: searched eloDiff %.4g through %.4g (max %.4g); round %d still blocked by %s",
			e.Kind, e.EloDiffConfigured, e.EloDiffTried, e.EloDiffMax, e.Round, e.Constraint)
	}
	return fmt.Sprintf("%s: round %d blocked by %s at eloDiff %.4g after %d attempts; relax a constraint toggle or reduce rounds",
		e.Kind, e.Round, e.Constraint, e.EloDiffTried, e.Attempts)
}

func (e *GenerationError) Unwrap() error { return e.Kind }
