package simloop

// Interval is a recurring task built from repeated one-shot scheduling: the
// loop has no native interval concept, so each execution re-schedules the
// next occurrence with the same delay.
type Interval struct {
	loop    *Loop
	handle  Handle
	stopped bool
}

// ScheduleInterval schedules fn to run on every turn the scheduler reaches
// delay, re-queueing itself after each execution until [Interval.Stop] is
// called. The callback receives the interval so it can stop itself.
func (l *Loop) ScheduleInterval(label string, delay int64, fn func(*Interval)) (*Interval, error) {
	if fn == nil {
		return nil, ErrNilCallback
	}
	iv := &Interval{loop: l}

	var tick func()
	tick = func() {
		if iv.stopped {
			return
		}
		fn(iv)
		if iv.stopped || l.state == StateDisposed {
			return
		}
		h, err := l.ScheduleTask(label, delay, tick)
		if err != nil {
			iv.stopped = true
			return
		}
		iv.handle = h
	}

	h, err := l.ScheduleTask(label, delay, tick)
	if err != nil {
		return nil, err
	}
	iv.handle = h
	return iv, nil
}

// Stop cancels the interval. Safe to call from within the interval's own
// callback, or repeatedly.
func (iv *Interval) Stop() {
	if iv.stopped {
		return
	}
	iv.stopped = true
	iv.handle.Cancel()
}

// Stopped reports whether the interval has been stopped.
func (iv *Interval) Stopped() bool {
	return iv.stopped
}
