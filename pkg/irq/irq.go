// Package irq connects device models to the interrupt controller through
// numbered interrupt lines.
package irq

//go:generate mockery --name=Controller --output=mocks --outpkg=mocks

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/pearpc/devrt/pkg/trace"
)

// Controller is the interrupt controller collaborator.
type Controller interface {
	RaiseInterrupt(n int)
	CancelInterrupt(n int)
}

// Line is one numbered interrupt line of a device.
type Line struct {
	n     int
	ctrl  Controller
	trace trace.Logger
	level atomic.Bool
}

// NewLine returns line n routed to ctrl. tl may be nil.
func NewLine(ctrl Controller, n int, tl trace.Logger) *Line {
	return &Line{n: n, ctrl: ctrl, trace: tl}
}

// Number returns the line number.
func (l *Line) Number() int {
	return l.n
}

// Level returns the last level driven on the line.
func (l *Line) Level() bool {
	return l.level.Load()
}

// Raise asserts the line.
func (l *Line) Raise() {
	l.level.Store(true)
	l.ctrl.RaiseInterrupt(l.n)
	l.emit(trace.OpIRQRaise, true)
}

// Lower deasserts the line.
func (l *Line) Lower() {
	l.level.Store(false)
	l.ctrl.CancelInterrupt(l.n)
	l.emit(trace.OpIRQLower, false)
}

// Set raises or lowers the line.
func (l *Line) Set(level bool) {
	if level {
		l.Raise()
	} else {
		l.Lower()
	}
}

// Pulse raises and immediately lowers the line.
func (l *Line) Pulse() {
	l.Raise()
	l.Lower()
}

func (l *Line) emit(op trace.Op, level bool) {
	if l.trace == nil {
		return
	}
	trace.Emit(l.trace, trace.Event{
		Category: trace.CategoryIRQ,
		Op:       op,
		IRQ:      &trace.IRQEvent{Line: l.n, Level: level},
	})
}

// Recorder is an in-memory Controller that tracks line levels and raise
// counts. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	levels map[int]bool
	raises map[int]int
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		levels: make(map[int]bool),
		raises: make(map[int]int),
	}
}

// RaiseInterrupt marks line n asserted.
func (r *Recorder) RaiseInterrupt(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels[n] = true
	r.raises[n]++
}

// CancelInterrupt marks line n deasserted.
func (r *Recorder) CancelInterrupt(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels[n] = false
}

// Level reports whether line n is asserted.
func (r *Recorder) Level(n int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.levels[n]
}

// Raises returns how many times line n was raised.
func (r *Recorder) Raises(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.raises[n]
}

// Pending returns the asserted lines in ascending order.
func (r *Recorder) Pending() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var lines []int
	for n, up := range r.levels {
		if up {
			lines = append(lines, n)
		}
	}
	slices.Sort(lines)
	return lines
}

var _ Controller = (*Recorder)(nil)
