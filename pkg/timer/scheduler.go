package timer

import (
	"container/heap"
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pearpc/devrt/pkg/trace"
)

// Scheduler errors.
var (
	ErrRunning    = errors.New("timer scheduler already running")
	ErrNotRunning = errors.New("timer scheduler not running")
)

// Config configures a Scheduler.
type Config struct {
	// Clock supplies virtual time. Defaults to a HostClock.
	Clock Clock

	// Logger receives debug logs for arm and fire. Defaults to slog.Default().
	Logger *slog.Logger

	// Trace receives timer events. Nil disables tracing.
	Trace trace.Logger
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{}
}

// Stats holds scheduler counters.
type Stats struct {
	Created  uint64
	Armed    uint64
	Fired    uint64
	Canceled uint64
	Active   int
}

// ArmedTimer is a snapshot entry of an armed timer.
type ArmedTimer struct {
	ID        uint64
	ExpiresNs int64
	Seq       uint64
}

// Scheduler owns the set of armed timers and the dispatch goroutine.
type Scheduler struct {
	mu      sync.Mutex
	active  timerHeap
	nextSeq uint64

	nextID atomic.Uint64
	wake   chan struct{}

	clock  Clock
	logger *slog.Logger
	trace  trace.Logger

	created  atomic.Uint64
	armed    atomic.Uint64
	fired    atomic.Uint64
	canceled atomic.Uint64

	runMu   sync.Mutex
	running bool
	exit    atomic.Bool
	stop    chan struct{}
	done    chan struct{}
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(cfg Config) *Scheduler {
	clock := cfg.Clock
	if clock == nil {
		clock = NewHostClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		wake:   make(chan struct{}, 1),
		clock:  clock,
		logger: logger,
		trace:  cfg.Trace,
	}
}

// Now returns the current virtual time in nanoseconds.
func (s *Scheduler) Now() int64 {
	return s.clock.NowNs()
}

// Clock returns the scheduler's clock.
func (s *Scheduler) Clock() Clock {
	return s.clock
}

// NewTimer creates an inactive timer running cb on each firing.
func (s *Scheduler) NewTimer(cb Callback) *Timer {
	if cb == nil {
		panic("timer: nil callback")
	}
	t := &Timer{
		sched:   s,
		cb:      cb,
		id:      s.nextID.Add(1),
		expires: Inactive,
		index:   -1,
	}
	s.created.Add(1)
	s.emit(trace.OpTimerCreate, t.id, Inactive, 0, 0)
	return t
}

// Modify arms t at expiresNs, replacing any previous expiry. Negative
// expiries are treated as zero. Arming a deleted timer, or one created by
// another scheduler, is ignored.
func (s *Scheduler) Modify(t *Timer, expiresNs int64) {
	if !s.owns(t) {
		return
	}
	if expiresNs < 0 {
		expiresNs = 0
	}

	s.mu.Lock()
	if t.dead {
		s.mu.Unlock()
		s.logger.Warn("timer_arm_deleted", "timer", t.id)
		return
	}
	if t.index >= 0 {
		heap.Remove(&s.active, t.index)
	}
	t.expires = expiresNs
	t.seq = s.nextSeq
	s.nextSeq++
	t.epoch++
	seq := t.seq
	heap.Push(&s.active, t)
	s.mu.Unlock()

	s.armed.Add(1)
	if s.logger.Enabled(context.Background(), slog.LevelDebug) {
		s.logger.Debug("timer_arm", "timer", t.id, "expires_ns", expiresNs, "in_ns", expiresNs-s.clock.NowNs())
	}
	s.emit(trace.OpTimerArm, t.id, expiresNs, seq, 0)
	s.signal()
}

// ModifyIn arms t d after the current time.
func (s *Scheduler) ModifyIn(t *Timer, d time.Duration) {
	s.Modify(t, s.clock.NowNs()+d.Nanoseconds())
}

// Cancel disarms t. Cancelling an inactive timer is a no-op.
func (s *Scheduler) Cancel(t *Timer) {
	if !s.owns(t) {
		return
	}
	if s.disarm(t, false) {
		s.emit(trace.OpTimerCancel, t.id, Inactive, 0, 0)
	}
}

// Delete disarms t and marks it dead; later arms are ignored.
func (s *Scheduler) Delete(t *Timer) {
	if !s.owns(t) {
		return
	}
	s.disarm(t, true)
	s.emit(trace.OpTimerDelete, t.id, Inactive, 0, 0)
}

// owns reports whether t was created by s. Timers of another scheduler are
// refused and logged.
func (s *Scheduler) owns(t *Timer) bool {
	if t.sched == s {
		return true
	}
	s.logger.Warn("timer_foreign", "timer", t.id)
	return false
}

func (s *Scheduler) disarm(t *Timer, kill bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kill {
		t.dead = true
	}
	t.epoch++
	if t.index < 0 {
		return false
	}
	heap.Remove(&s.active, t.index)
	t.expires = Inactive
	s.canceled.Add(1)
	return true
}

type firing struct {
	t       *Timer
	expires int64
	epoch   uint64
}

// Update fires every timer due at the current time and returns the number
// of callbacks run. Callbacks run without the scheduler lock held, in
// (expiry, sequence) order. A due timer that is re-armed, cancelled or
// deleted by an earlier callback in the same batch is skipped.
func (s *Scheduler) Update() int {
	var due []firing

	s.mu.Lock()
	now := s.clock.NowNs()
	for len(s.active) > 0 && s.active[0].expires <= now {
		t := heap.Pop(&s.active).(*Timer)
		due = append(due, firing{t: t, expires: t.expires, epoch: t.epoch})
		t.expires = Inactive
	}
	s.mu.Unlock()

	ran := 0
	for _, f := range due {
		s.mu.Lock()
		stale := f.t.epoch != f.epoch
		s.mu.Unlock()
		if stale {
			continue
		}

		late := now - f.expires
		s.fired.Add(1)
		s.logger.Debug("timer_fire", "timer", f.t.id, "late_ns", late)
		s.emit(trace.OpTimerFire, f.t.id, f.expires, 0, late)
		f.t.cb()
		ran++
	}
	return ran
}

// Start launches the dispatch goroutine. It stops when Stop is called or
// ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.aliveLocked() {
		return ErrRunning
	}
	s.running = true
	s.exit.Store(false)
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(ctx, s.stop, s.done)
	return nil
}

// Stop terminates the dispatch goroutine and waits for it to exit.
// Armed timers stay armed.
func (s *Scheduler) Stop() error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if !s.aliveLocked() {
		return ErrNotRunning
	}
	s.exit.Store(true)
	close(s.stop)
	s.signal()
	<-s.done
	s.running = false
	return nil
}

// Running reports whether the dispatch goroutine is running. It turns
// false once the context passed to Start is done and the goroutine exits.
func (s *Scheduler) Running() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.aliveLocked()
}

// aliveLocked clears running if the dispatch goroutine exited on its own.
// Must be called with runMu held.
func (s *Scheduler) aliveLocked() bool {
	if !s.running {
		return false
	}
	select {
	case <-s.done:
		s.running = false
		return false
	default:
		return true
	}
}

func (s *Scheduler) run(ctx context.Context, stop, done chan struct{}) {
	defer close(done)
	for !s.exit.Load() {
		if !s.waitForTimer(ctx, stop) {
			break
		}
		s.Update()
	}
	s.logger.Debug("timer_dispatch_exit")
}

// waitForTimer blocks until the earliest timer is due, a timer is armed, or
// the scheduler stops. It returns false on stop.
func (s *Scheduler) waitForTimer(ctx context.Context, stop <-chan struct{}) bool {
	if ctx.Err() != nil {
		return false
	}
	var timeout <-chan time.Time

	s.mu.Lock()
	if len(s.active) > 0 {
		wait := s.active[0].expires - s.clock.NowNs()
		if wait <= 0 {
			s.mu.Unlock()
			return true
		}
		tm := time.NewTimer(time.Duration(wait))
		defer tm.Stop()
		timeout = tm.C
	}
	s.mu.Unlock()

	select {
	case <-s.wake:
		return true
	case <-timeout:
		return true
	case <-stop:
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Stats returns a snapshot of the scheduler counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	active := len(s.active)
	s.mu.Unlock()
	return Stats{
		Created:  s.created.Load(),
		Armed:    s.armed.Load(),
		Fired:    s.fired.Load(),
		Canceled: s.canceled.Load(),
		Active:   active,
	}
}

// ArmedCount returns the number of armed timers.
func (s *Scheduler) ArmedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Armed returns the armed timers in firing order.
func (s *Scheduler) Armed() []ArmedTimer {
	s.mu.Lock()
	out := make([]ArmedTimer, len(s.active))
	for i, t := range s.active {
		out[i] = ArmedTimer{ID: t.id, ExpiresNs: t.expires, Seq: t.seq}
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b ArmedTimer) int {
		if a.ExpiresNs != b.ExpiresNs {
			if a.ExpiresNs < b.ExpiresNs {
				return -1
			}
			return 1
		}
		if a.Seq < b.Seq {
			return -1
		}
		if a.Seq > b.Seq {
			return 1
		}
		return 0
	})
	return out
}

func (s *Scheduler) emit(op trace.Op, id uint64, expires int64, seq uint64, late int64) {
	if s.trace == nil {
		return
	}
	trace.Emit(s.trace, trace.Event{
		VirtualNs: s.clock.NowNs(),
		Category:  trace.CategoryTimer,
		Op:        op,
		Timer: &trace.TimerEvent{
			TimerID:   id,
			ExpiresNs: expires,
			Seq:       seq,
			LateNs:    late,
		},
	})
}
