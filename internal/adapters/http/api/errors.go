package api

import (
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/courtside/internal/app"
	"github.com/okian/courtside/internal/domain/rating"
	"github.com/okian/courtside/internal/domain/schedule"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
)

// Error tags a failure with the handler operation that saw it.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Kind != nil && e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind classifies err as kind.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrap tags err with op, keeping its own classification.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// classify maps an error to an HTTP status and a stable code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBackpressure), errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrInvalidScore):
		return http.StatusBadRequest, "invalid_score"
	case errors.Is(err, schedule.ErrPrecondition):
		return http.StatusBadRequest, "precondition"
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrInvalidInput), errors.Is(err, rating.ErrInvalidConfig):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, schedule.ErrInfeasible):
		return http.StatusUnprocessableEntity, "infeasible"
	case errors.Is(err, schedule.ErrRelaxExhausted):
		return http.StatusUnprocessableEntity, "relax_exhausted"
	case errors.Is(err, rating.ErrIncompleteResult):
		return http.StatusConflict, "incomplete_result"
	case errors.Is(err, service.ErrDuplicateParticipant):
		return http.StatusConflict, "duplicate_participant"
	case errors.Is(err, service.ErrEventCompleted):
		return http.StatusConflict, "event_completed"
	case errors.Is(err, service.ErrAlreadyGenerated):
		return http.StatusConflict, "already_generated"
	case errors.Is(err, service.ErrNotGenerated):
		return http.StatusConflict, "not_generated"
	case errors.Is(err, service.ErrDuplicateJob):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
