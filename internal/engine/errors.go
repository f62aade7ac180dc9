package engine

import "errors"

// Caller errors. None of them change session state.
var (
	ErrInvalidTestType       = errors.New("invalid test type")
	ErrOutOfOrderSubmission  = errors.New("answer does not match the pending item")
	ErrSessionTerminal       = errors.New("session already completed or abandoned")
	ErrSessionNotStarted     = errors.New("session not started")
	ErrSessionAlreadyStarted = errors.New("session already started")
	ErrSessionInProgress     = errors.New("session still in progress")
	ErrSessionAbandoned      = errors.New("abandoned sessions have no result")
	ErrInvalidResponseTime   = errors.New("response time must not be negative")
	ErrUnknownItem           = errors.New("item not found in bank")
)

// IsCallerError reports whether err is one of the recoverable caller
// errors above.
func IsCallerError(err error) bool {
	for _, target := range []error{
		ErrInvalidTestType,
		ErrOutOfOrderSubmission,
		ErrSessionTerminal,
		ErrSessionNotStarted,
		ErrSessionAlreadyStarted,
		ErrSessionInProgress,
		ErrSessionAbandoned,
		ErrInvalidResponseTime,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
