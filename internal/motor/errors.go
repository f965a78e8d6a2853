package motor

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCommand  = errors.New("invalid command")
	ErrUnknownCommand  = errors.New("unknown command")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrShutDown        = errors.New("controller shut down")
	ErrHardware        = errors.New("hardware failure")
	ErrPinLayout       = errors.New("invalid pin layout")
)

// Error carries a caller-facing message together with one of the
// sentinel kinds above, so callers can switch with errors.Is.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func hardwareError(message string, err error) *Error {
	return &Error{Kind: ErrHardware, Message: message, Err: err}
}

func errShutDown() *Error {
	return newError(ErrShutDown, "Controller is shut down")
}

// Message returns the caller-facing message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
