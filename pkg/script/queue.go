package script

// DeferredCallback is a function scheduled to run on a later frame.
type DeferredCallback struct {
	Fn   Function
	Args []any
}

// Queue is the deferred callback queue. It belongs to the frame goroutine
// and is not synchronized.
type Queue struct {
	items []DeferredCallback
}

// Push schedules fn(args...).
func (q *Queue) Push(fn Function, args ...any) {
	q.items = append(q.items, DeferredCallback{Fn: fn, Args: args})
}

// Len returns the number of scheduled callbacks.
func (q *Queue) Len() int {
	return len(q.items)
}

// DrainAndInvoke runs the callbacks queued so far in FIFO order and
// returns how many completed successfully. Callbacks with invalid handles
// are skipped and not counted. The first failure stops the drain: the
// callbacks after it are discarded and the failure is returned.
func (q *Queue) DrainAndInvoke(engine Engine) (int, CallOutcome) {
	batch := q.items
	q.items = nil

	ok := 0
	for i, cb := range batch {
		if cb.Fn == nil || !cb.Fn.Valid() {
			releaseArgs(cb.Args)
			continue
		}
		out := engine.Call(cb.Fn, cb.Args...)
		releaseArgs(cb.Args)
		if !out.OK() {
			for _, rest := range batch[i+1:] {
				releaseArgs(rest.Args)
			}
			return ok, out
		}
		ok++
	}
	return ok, Ok()
}

// Discard drops every scheduled callback without invoking it.
func (q *Queue) Discard() {
	for _, cb := range q.items {
		releaseArgs(cb.Args)
	}
	q.items = nil
}
