package probe

import "errors"

var (
	ErrEmptyURI             = errors.New("probe uri cannot be empty")
	ErrInvalidTimestamp     = errors.New("probe timestamp must not be zero")
	ErrNoProbeData          = errors.New("no probe data available")
	ErrMissingReason        = errors.New("failed probe must carry a failure reason")
	ErrUnexpectedReason     = errors.New("reachable probe cannot carry a failure reason")
	ErrUnknownFailureReason = errors.New("unknown failure reason")
)
