// Package input routes host keyboard and mouse events to device models.
package input

import (
	"log/slog"
	"sync"

	"github.com/pearpc/devrt/pkg/qdev"
	"github.com/pearpc/devrt/pkg/trace"
)

// EventKind is the kind of an input event.
type EventKind uint8

const (
	EventKey EventKind = iota
	EventBtn
	EventRel
	EventAbs
)

// Handler masks.
const (
	MaskKey uint32 = 1 << EventKey
	MaskBtn uint32 = 1 << EventBtn
	MaskRel uint32 = 1 << EventRel
	MaskAbs uint32 = 1 << EventAbs
)

// Mouse button bits passed to mouse handlers.
const (
	MouseLButton   = 0x01
	MouseRButton   = 0x02
	MouseMButton   = 0x04
	MouseWheelUp   = 0x08
	MouseWheelDown = 0x10
)

// KeyEvent is a key press or release.
type KeyEvent struct {
	Code QKeyCode
	Down bool
}

// Event is an input event delivered to device handlers.
type Event struct {
	Kind EventKind
	Key  KeyEvent
}

// Handler receives events for one device.
type Handler struct {
	Name  string
	Mask  uint32
	Event func(dev qdev.Device, evt Event)
	Sync  func(dev qdev.Device)
}

// HandlerState is a registered device handler.
type HandlerState struct {
	Dev     qdev.Device
	Handler *Handler
}

// MouseFunc receives relative mouse motion and the button bitmask.
type MouseFunc func(opaque any, dx, dy, dz, buttons int)

// MouseEntry is a registered mouse handler.
type MouseEntry struct {
	Name     string
	Absolute bool
	fn       MouseFunc
	opaque   any
}

// Config configures a Router.
type Config struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Trace receives one event per delivered key or mouse event.
	Trace trace.Logger
}

// Router fans host input out to registered handlers in registration order.
type Router struct {
	mu       sync.RWMutex
	handlers []*HandlerState
	mice     []*MouseEntry

	logger *slog.Logger
	trace  trace.Logger
}

// NewRouter returns a Router with no handlers.
func NewRouter(cfg Config) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{logger: logger, trace: cfg.Trace}
}

// RegisterHandler registers h for dev.
func (r *Router) RegisterHandler(dev qdev.Device, h *Handler) *HandlerState {
	s := &HandlerState{Dev: dev, Handler: h}
	r.mu.Lock()
	r.handlers = append(r.handlers, s)
	r.mu.Unlock()
	r.logger.Debug("input_handler_register", "name", h.Name, "mask", h.Mask)
	return s
}

// AddMouseHandler registers a mouse handler.
func (r *Router) AddMouseHandler(fn MouseFunc, opaque any, absolute bool, name string) *MouseEntry {
	e := &MouseEntry{Name: name, Absolute: absolute, fn: fn, opaque: opaque}
	r.mu.Lock()
	r.mice = append(r.mice, e)
	r.mu.Unlock()
	r.logger.Debug("input_mouse_register", "name", name, "absolute", absolute)
	return e
}

// Handlers returns the registered device handlers.
func (r *Router) Handlers() []*HandlerState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*HandlerState(nil), r.handlers...)
}

// MouseHandlers returns the registered mouse handlers.
func (r *Router) MouseHandlers() []*MouseEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*MouseEntry(nil), r.mice...)
}

// KeyEvent delivers a key event to every handler accepting key events and
// returns the number of handlers reached.
func (r *Router) KeyEvent(code QKeyCode, down bool) int {
	evt := Event{Kind: EventKey, Key: KeyEvent{Code: code, Down: down}}

	n := 0
	for _, s := range r.Handlers() {
		h := s.Handler
		if h.Mask&MaskKey == 0 || h.Event == nil {
			continue
		}
		h.Event(s.Dev, evt)
		if h.Sync != nil {
			h.Sync(s.Dev)
		}
		n++
	}

	trace.Emit(r.trace, trace.Event{
		Category: trace.CategoryInput,
		Op:       trace.OpKey,
		Input:    &trace.InputEvent{QCode: int(code), Down: down, Handlers: n},
	})
	return n
}

// MouseEvent delivers relative motion and button state to every mouse
// handler and returns the number of handlers reached.
func (r *Router) MouseEvent(dx, dy int, b1, b2, b3 bool) int {
	buttons := 0
	if b1 {
		buttons |= MouseLButton
	}
	if b2 {
		buttons |= MouseRButton
	}
	if b3 {
		buttons |= MouseMButton
	}

	mice := r.MouseHandlers()
	for _, m := range mice {
		m.fn(m.opaque, dx, dy, 0, buttons)
	}

	trace.Emit(r.trace, trace.Event{
		Category: trace.CategoryInput,
		Op:       trace.OpMouse,
		Input:    &trace.InputEvent{DX: dx, DY: dy, Buttons: buttons, Handlers: len(mice)},
	})
	return len(mice)
}
