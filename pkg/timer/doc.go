// Package timer implements the virtual-time timer scheduler used by device
// models.
//
// Timers are created inactive and armed with an absolute expiry in
// virtual-time nanoseconds. Armed timers are kept in one set ordered by
// (expiry, arm sequence), which gives a total firing order even for equal
// expiries.
//
// A dispatch goroutine sleeps until the earliest expiry or until a timer is
// armed, then runs Update: due timers are removed from the set under the
// lock and their callbacks run after the lock is released, in order. A
// callback may therefore arm or cancel any timer, including its own.
//
// Without Start, Update can be driven directly, which together with a
// ManualClock gives fully deterministic stepping.
package timer
