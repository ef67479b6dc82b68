package frame

import (
	"errors"
	"fmt"

	lerrors "github.com/lime-engine/lime/internal/errors"
	"github.com/lime-engine/lime/pkg/script"
)

var (
	// ErrNoEngine is returned by New without a script engine.
	ErrNoEngine = errors.New("frame: script engine is required")

	// ErrNoRenderer is returned by New without a renderer.
	ErrNoRenderer = errors.New("frame: renderer is required")

	// ErrNoQueues is returned by New without network queues.
	ErrNoQueues = errors.New("frame: network queues are required")
)

// ScriptError reports a failed script call that ended the loop.
type ScriptError struct {
	// Handler names the failed function, e.g. "Lime.OnUpdate".
	Handler string

	// Message is the error the script raised.
	Message string

	// Trace is the script stack trace, if known.
	Trace string

	// Err is the coded error: L010 for handlers, L011 for deferred
	// callbacks.
	Err *lerrors.LimeError
}

func newScriptError(handler, code string, out script.CallOutcome) *ScriptError {
	cause := errors.New(out.Message())
	le := lerrors.New(code).Wrap(cause).WithLocationFromError(cause)
	return &ScriptError{
		Handler: handler,
		Message: out.Message(),
		Trace:   out.Trace(),
		Err:     le,
	}
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("%s: %s", e.Handler, e.Message)
}

func (e *ScriptError) Unwrap() error {
	if e.Err == nil {
		return nil
	}
	return e.Err
}
