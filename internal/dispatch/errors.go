package dispatch

import "errors"

// Error bodies surfaced verbatim to API callers with status 400. A caller
// must be able to tell "never reached the agent" from "reached but failed":
// ErrOffline and the validation errors mean no command ran; a DomainError
// means the agent ran it and reported failure.
var (
	ErrOffline      = errors.New("Unable to contact the agent")
	ErrEmptyCommand = errors.New("Command is required")
	ErrInvalidMode  = errors.New("Invalid mode")
	ErrInvalidField = errors.New("Custom field not found")
)

// DomainError carries agent-reported failure text (e.g. "process doesn't
// exist"). The command reached the agent; the agent said no.
type DomainError struct {
	Text string
}

func (e *DomainError) Error() string { return e.Text }
