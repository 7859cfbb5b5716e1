package simloop

// Promisify schedules fn as a task and returns a promise for its outcome:
// fulfilled with the returned value, rejected with the returned error, or
// rejected with a [PanicError] if fn panics. The promise settles during the
// turn the task runs, so reactions drain in that same turn.
func (l *Loop) Promisify(label string, delay int64, fn func() (Result, error)) *Promise {
	if fn == nil {
		return l.Reject(ErrNilCallback)
	}
	p, resolve, reject := l.NewPromise()
	if _, err := l.ScheduleTask(label, delay, func() {
		defer func() {
			if r := recover(); r != nil {
				reject(PanicError{Value: r})
			}
		}()
		v, err := fn()
		if err != nil {
			reject(err)
			return
		}
		resolve(v)
	}); err != nil {
		reject(err)
	}
	return p
}
