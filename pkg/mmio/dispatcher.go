// Package mmio routes guest physical memory accesses to the I/O regions
// installed by devices.
package mmio

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/pearpc/devrt/pkg/qdev"
	"github.com/pearpc/devrt/pkg/trace"
)

// Dispatcher errors.
var (
	ErrOverlap    = errors.New("mmio window overlaps an existing mapping")
	ErrEmpty      = errors.New("mmio window has zero size")
	ErrUnmapped   = errors.New("no device mapped at address")
	ErrNoRegion   = errors.New("device has no memory region")
	ErrWrapAround = errors.New("mmio window wraps the address space")
)

// Config configures a Dispatcher.
type Config struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Trace receives one event per access. Nil disables tracing.
	Trace trace.Logger
}

// Window is one mapped address range.
type Window struct {
	Base uint64
	Size uint64
	Dev  qdev.Device
}

// End returns the last address of the window.
func (w Window) End() uint64 {
	return w.Base + w.Size - 1
}

func (w Window) contains(addr uint64) bool {
	return addr >= w.Base && addr-w.Base < w.Size
}

// Dispatcher maps address windows to devices.
type Dispatcher struct {
	mu      sync.RWMutex
	windows []Window // sorted by Base

	logger *slog.Logger
	trace  trace.Logger
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger, trace: cfg.Trace}
}

// Map routes [base, base+size) to dev. The device must have an I/O region
// installed, normally by its realize hook.
func (d *Dispatcher) Map(base, size uint64, dev qdev.Device) error {
	if size == 0 {
		return fmt.Errorf("map 0x%x: %w", base, ErrEmpty)
	}
	if base+size-1 < base {
		return fmt.Errorf("map 0x%x+0x%x: %w", base, size, ErrWrapAround)
	}
	if dev.AsDevice().MemoryRegion() == nil {
		return fmt.Errorf("map %q at 0x%x: %w", dev.AsDevice().TypeName(), base, ErrNoRegion)
	}

	w := Window{Base: base, Size: size, Dev: dev}

	d.mu.Lock()
	defer d.mu.Unlock()
	i, _ := slices.BinarySearchFunc(d.windows, base, func(w Window, b uint64) int {
		return cmp.Compare(w.Base, b)
	})
	if i > 0 && d.windows[i-1].End() >= base {
		return fmt.Errorf("map 0x%x: %w (0x%x)", base, ErrOverlap, d.windows[i-1].Base)
	}
	if i < len(d.windows) && d.windows[i].Base <= w.End() {
		return fmt.Errorf("map 0x%x: %w (0x%x)", base, ErrOverlap, d.windows[i].Base)
	}
	d.windows = slices.Insert(d.windows, i, w)

	d.logger.Debug("mmio_map", "type", dev.AsDevice().TypeName(), "base", base, "size", size)
	return nil
}

// Lookup returns the window containing addr.
func (d *Dispatcher) Lookup(addr uint64) (Window, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i, found := slices.BinarySearchFunc(d.windows, addr, func(w Window, a uint64) int {
		return cmp.Compare(w.Base, a)
	})
	if found {
		return d.windows[i], true
	}
	if i > 0 && d.windows[i-1].contains(addr) {
		return d.windows[i-1], true
	}
	return Window{}, false
}

// Windows returns the mapped windows in address order.
func (d *Dispatcher) Windows() []Window {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.windows)
}

// Read performs a size-byte read at addr.
func (d *Dispatcher) Read(addr uint64, size uint) (uint64, error) {
	w, ok := d.Lookup(addr)
	if !ok {
		return 0, fmt.Errorf("read 0x%x: %w", addr, ErrUnmapped)
	}
	v, err := w.Dev.AsDevice().MemoryRead(addr-w.Base, size)
	d.emit(trace.OpMMIORead, w, addr, size, v, err)
	return v, err
}

// Write performs a size-byte write of v at addr.
func (d *Dispatcher) Write(addr uint64, size uint, v uint64) error {
	w, ok := d.Lookup(addr)
	if !ok {
		return fmt.Errorf("write 0x%x: %w", addr, ErrUnmapped)
	}
	err := w.Dev.AsDevice().MemoryWrite(addr-w.Base, v, size)
	d.emit(trace.OpMMIOWrite, w, addr, size, v, err)
	return err
}

func (d *Dispatcher) emit(op trace.Op, w Window, addr uint64, size uint, v uint64, err error) {
	if d.trace == nil {
		return
	}
	ds := w.Dev.AsDevice()
	trace.Emit(d.trace, trace.Event{
		Category: trace.CategoryDevice,
		Op:       op,
		TypeName: ds.TypeName(),
		ObjectID: ds.ID().String(),
		MMIO:     &trace.MMIOEvent{Addr: addr, Size: size, Value: v},
		Error:    trace.ErrorData(err, op.String()),
	})
}
