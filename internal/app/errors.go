package service

import (
	"errors"

	"github.com/okian/courtside/internal/adapters/repository"
)

// Sentinel errors returned by Service. Domain errors from the schedule and
// rating packages pass through unchanged.
var (
	ErrNotFound             = repository.ErrNotFound
	ErrNotStarted           = errors.New("service not started")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidScore         = errors.New("invalid score")
	ErrDuplicateParticipant = errors.New("participant would appear twice in the round")
	ErrEventCompleted       = errors.New("event already completed")
	ErrAlreadyGenerated     = errors.New("event already has a schedule")
	ErrNotGenerated         = errors.New("event has no schedule")
	ErrDuplicateJob         = errors.New("generation job already in flight")
	ErrBackpressure         = errors.New("generation queue is full")
)
