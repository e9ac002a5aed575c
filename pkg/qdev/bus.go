package qdev

import (
	"fmt"
	"sync"

	"github.com/pearpc/devrt/pkg/qom"
	"github.com/pearpc/devrt/pkg/trace"
)

// BusClass is the class of every bus type.
type BusClass struct {
	qom.ObjectClass
}

// Bus is implemented by every bus instance.
type Bus interface {
	qom.Object
	AsBus() *BusState
}

// BusState is the base of every bus instance. Its child list is append-only
// and keeps insertion order.
type BusState struct {
	qom.Instance

	name string

	mu       sync.RWMutex
	children []Device
}

// ObjectKind tags embedding objects as buses.
func (b *BusState) ObjectKind() qom.Kind {
	return qom.KindBus
}

// AsBus returns the embedded BusState.
func (b *BusState) AsBus() *BusState {
	return b
}

// Name returns the bus name.
func (b *BusState) Name() string {
	return b.name
}

// Children returns a snapshot of the attached devices in insertion order.
func (b *BusState) Children() []Device {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Device(nil), b.children...)
}

// Len returns the number of attached devices.
func (b *BusState) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.children)
}

// ParentDevice returns the device the bus is embedded in, or nil.
func (b *BusState) ParentDevice() Device {
	dev, _ := AsDevice(b.Container())
	return dev
}

func (b *BusState) addChild(dev Device) {
	b.mu.Lock()
	b.children = append(b.children, dev)
	b.mu.Unlock()
}

// AsBus returns obj as a Bus if it carries the bus tag.
func AsBus(obj qom.Object) (Bus, bool) {
	if obj == nil || obj.ObjectInstance().Kind() != qom.KindBus {
		return nil, false
	}
	return qom.As[Bus](obj)
}

// Attach sets dev's parent bus and appends dev to the bus children. It must
// precede Realize.
func Attach(dev Device, bus Bus) error {
	ds := dev.AsDevice()
	bs := bus.AsBus()
	if !ds.parentBus.CompareAndSwap(nil, bs) {
		return fmt.Errorf("attach %q to %q: %w", ds.TypeName(), bs.TypeName(), ErrAlreadyAttached)
	}
	bs.addChild(dev)

	logger(ds).Debug("device_attach", "type", ds.TypeName(), "bus", bs.TypeName(), "bus_name", bs.name)
	trace.Emit(tracer(ds), trace.Event{
		Category: trace.CategoryDevice,
		Op:       trace.OpAttach,
		TypeName: ds.TypeName(),
		ObjectID: ds.ID().String(),
		Related:  bs.TypeName(),
	})
	return nil
}

// ResetBus resets every child of bus in insertion order.
func ResetBus(bus Bus) {
	for _, child := range bus.AsBus().Children() {
		ResetAll(child)
	}
}

// NewBus creates a standalone bus of typeName.
func NewBus(r *qom.Registry, typeName, name string) (Bus, error) {
	obj, err := r.Create(typeName)
	if err != nil {
		return nil, fmt.Errorf("create bus %q: %w", typeName, err)
	}
	bus, ok := AsBus(obj)
	if !ok {
		return nil, fmt.Errorf("create bus %q: %w", typeName, ErrCapabilityMismatch)
	}
	bus.AsBus().name = name
	return bus, nil
}

// BusInitInPlace initializes a bus embedded by value inside parent.
func BusInitInPlace(r *qom.Registry, bus Bus, typeName string, parent Device, name string) error {
	var container qom.Object
	if parent != nil {
		container = parent
	}
	if err := r.InitChild(container, bus, typeName); err != nil {
		return fmt.Errorf("init bus %q: %w", typeName, err)
	}
	bs := bus.AsBus()
	bs.name = name
	if parent != nil {
		ds := parent.AsDevice()
		ds.buses = append(ds.buses, bs)
	}
	return nil
}
