package timer

import "time"

// Inactive is the expiry reported for timers that are not armed.
const Inactive int64 = -1

// Callback is run each time a timer fires.
type Callback func()

// Timer is a handle to a scheduler timer. Fields are guarded by the owning
// scheduler's lock.
type Timer struct {
	sched *Scheduler
	cb    Callback
	id    uint64

	expires int64
	seq     uint64
	epoch   uint64
	index   int
	dead    bool
}

// ID returns the timer's scheduler-unique identifier.
func (t *Timer) ID() uint64 {
	return t.id
}

// Mod arms the timer at expiresNs.
func (t *Timer) Mod(expiresNs int64) {
	t.sched.Modify(t, expiresNs)
}

// ModIn arms the timer d after the scheduler's current time.
func (t *Timer) ModIn(d time.Duration) {
	t.sched.ModifyIn(t, d)
}

// Del cancels the timer.
func (t *Timer) Del() {
	t.sched.Cancel(t)
}

// Pending reports whether the timer is armed.
func (t *Timer) Pending() bool {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	return t.index >= 0
}

// Expiry returns the armed expiry, or Inactive.
func (t *Timer) Expiry() int64 {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	return t.expires
}
