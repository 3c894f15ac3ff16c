package analyses

import "errors"

var (
	ErrNotFound  = errors.New("analysis not found")
	ErrForbidden = errors.New("analysis belongs to another user")
	ErrClaimed   = errors.New("analysis already claimed")

	// ErrEmptyResult means the pipeline returned no result without raising
	// an error. Non-retryable: re-running would produce the same nothing.
	ErrEmptyResult = errors.New("pipeline returned empty result")
)
