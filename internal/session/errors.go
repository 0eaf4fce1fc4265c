package session

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineLoad means the engine rejected its dictionary or voice.
	ErrEngineLoad = errors.New("load failed")

	// ErrNoEngine means a synthesis reached the worker without a loaded
	// engine. Callers that respect State never trigger it.
	ErrNoEngine = errors.New("session: no engine loaded")

	ErrNotReady       = errors.New("session: not ready")
	ErrClosed         = errors.New("session: closed")
	ErrUnknownProfile = errors.New("session: unknown profile")
)

// InitializeFailedMessage is the summary shown for a failed initialization.
const InitializeFailedMessage = "Failed to initialize the synthesis engine"

// InitError is kept by the session after a failed initialization.
type InitError struct {
	Profile string
	Err     error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initialize %s: %v", e.Profile, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// ErrorDetail returns the underlying cause of err for display next to
// InitializeFailedMessage.
func ErrorDetail(err error) string {
	var ie *InitError
	if errors.As(err, &ie) && ie.Err != nil {
		return ie.Err.Error()
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
