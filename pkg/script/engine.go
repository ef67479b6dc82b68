package script

// Function is a handle to a script function.
type Function interface {
	// Valid reports whether the function can still be called.
	Valid() bool
}

// Engine is the script runtime the dispatcher drives. All methods must be
// called from the frame goroutine.
type Engine interface {
	// Lookup returns table.field when it is a function.
	Lookup(table, field string) (Function, bool)

	// Call invokes fn with args. Script errors and panics are reported in
	// the outcome.
	Call(fn Function, args ...any) CallOutcome

	// Close releases the runtime.
	Close()
}

// CallOutcome is the result of invoking a script function.
type CallOutcome struct {
	failed  bool
	message string
	trace   string
}

// Ok is the outcome of a call that returned normally.
func Ok() CallOutcome {
	return CallOutcome{}
}

// Failed is the outcome of a call that raised message.
func Failed(message string) CallOutcome {
	return CallOutcome{failed: true, message: message}
}

// WithTrace attaches a stack trace to a failed outcome.
func (o CallOutcome) WithTrace(trace string) CallOutcome {
	o.trace = trace
	return o
}

// OK reports whether the call returned normally.
func (o CallOutcome) OK() bool {
	return !o.failed
}

// Message returns the error raised by a failed call.
func (o CallOutcome) Message() string {
	return o.message
}

// Trace returns the stack trace of a failed call, if known.
func (o CallOutcome) Trace() string {
	return o.trace
}

// String returns "ok" or the failure message.
func (o CallOutcome) String() string {
	if o.failed {
		return "failed: " + o.message
	}
	return "ok"
}

// Releaser is implemented by call arguments that hold transport buffers.
// They are released after the call that received them returns.
type Releaser interface {
	Release()
}

func releaseArgs(args []any) {
	for _, a := range args {
		if r, ok := a.(Releaser); ok {
			r.Release()
		}
	}
}
