package rating

import "errors"

// Sentinel errors.
var (
	ErrIncompleteResult = errors.New("game has no result")
	ErrMissingRating    = errors.New("participant has no rating")
	ErrInvalidConfig    = errors.New("invalid rating configuration")
)
