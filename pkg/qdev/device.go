package qdev

import (
	"log/slog"
	"sync/atomic"

	"github.com/pearpc/devrt/pkg/qom"
	"github.com/pearpc/devrt/pkg/trace"
)

// RealizeFunc finishes construction of a device.
type RealizeFunc func(dev Device) error

// ResetFunc returns a device to its power-on state.
type ResetFunc func(dev Device)

// DeviceClass is the class of every device type.
type DeviceClass struct {
	qom.ObjectClass

	Categories Category
	Realize    RealizeFunc
	Reset      ResetFunc

	// BusType names the bus type the device plugs into, if any.
	BusType string
	Desc    string
}

// AsDeviceClass returns the embedded DeviceClass.
func (dc *DeviceClass) AsDeviceClass() *DeviceClass {
	return dc
}

// SetCategory adds c to the class categories.
func (dc *DeviceClass) SetCategory(c Category) {
	dc.Categories |= c
}

// Class is implemented by every device class.
type Class interface {
	qom.Class
	AsDeviceClass() *DeviceClass
}

// SetParentRealize installs realize on dc and stores the inherited realize
// hook in parent so the new hook can chain to it.
func SetParentRealize(dc *DeviceClass, realize RealizeFunc, parent *RealizeFunc) {
	*parent = dc.Realize
	dc.Realize = realize
}

// Device is implemented by every device instance.
type Device interface {
	qom.Object
	AsDevice() *DeviceState
}

// DeviceState is the base of every device instance.
type DeviceState struct {
	qom.Instance

	parentBus atomic.Pointer[BusState]
	realized  atomic.Bool
	region    atomic.Pointer[MemoryRegion]
	buses     []*BusState
}

// ObjectKind tags embedding objects as devices.
func (d *DeviceState) ObjectKind() qom.Kind {
	return qom.KindDevice
}

// AsDevice returns the embedded DeviceState.
func (d *DeviceState) AsDevice() *DeviceState {
	return d
}

// DeviceClass returns the device's class, or nil if its class does not
// embed DeviceClass.
func (d *DeviceState) DeviceClass() *DeviceClass {
	if dc, ok := d.Class().(Class); ok {
		return dc.AsDeviceClass()
	}
	return nil
}

// ParentBus returns the bus the device is attached to, or nil.
func (d *DeviceState) ParentBus() *BusState {
	return d.parentBus.Load()
}

// ChildBuses returns the buses initialized in place inside the device.
func (d *DeviceState) ChildBuses() []*BusState {
	return append([]*BusState(nil), d.buses...)
}

// Realized reports whether Realize has been called.
func (d *DeviceState) Realized() bool {
	return d.realized.Load()
}

// Realize marks the device realized and runs the class realize hook. Only
// the first call has any effect; later calls return nil. A failing hook
// leaves the device realized.
func (d *DeviceState) Realize() error {
	if !d.realized.CompareAndSwap(false, true) {
		return nil
	}

	name := d.TypeName()
	logger(d).Debug("device_realize", "type", name, "id", d.ID())
	event := trace.Event{
		Category: trace.CategoryDevice,
		Op:       trace.OpRealize,
		TypeName: name,
		ObjectID: d.ID().String(),
	}

	dc := d.DeviceClass()
	if dc == nil || dc.Realize == nil {
		trace.Emit(tracer(d), event)
		return nil
	}
	if err := dc.Realize(d.self()); err != nil {
		event.Error = trace.ErrorData(err, "realize")
		trace.Emit(tracer(d), event)
		return &RealizeError{Type: name, Err: err}
	}
	trace.Emit(tracer(d), event)
	return nil
}

// Reset runs the class reset hook, if any. It may be called any number of
// times in either lifecycle state.
func (d *DeviceState) Reset() {
	dc := d.DeviceClass()
	if dc == nil || dc.Reset == nil {
		return
	}
	logger(d).Debug("device_reset", "type", d.TypeName(), "id", d.ID())
	trace.Emit(tracer(d), trace.Event{
		Category: trace.CategoryDevice,
		Op:       trace.OpReset,
		TypeName: d.TypeName(),
		ObjectID: d.ID().String(),
	})
	dc.Reset(d.self())
}

func (d *DeviceState) self() Device {
	if dev, ok := d.Self().(Device); ok {
		return dev
	}
	return d
}

// AsDevice returns obj as a Device if it carries the device tag.
func AsDevice(obj qom.Object) (Device, bool) {
	if obj == nil || obj.ObjectInstance().Kind() != qom.KindDevice {
		return nil, false
	}
	return qom.As[Device](obj)
}

// ResetAll resets every bus initialized inside dev, depth first, and then
// dev itself.
func ResetAll(dev Device) {
	ds := dev.AsDevice()
	for _, b := range ds.buses {
		for _, child := range b.Children() {
			ResetAll(child)
		}
	}
	ds.Reset()
}

func logger(obj qom.Object) *slog.Logger {
	if r := obj.ObjectInstance().Registry(); r != nil {
		return r.Logger()
	}
	return slog.Default()
}

func tracer(obj qom.Object) trace.Logger {
	if r := obj.ObjectInstance().Registry(); r != nil {
		return r.Trace()
	}
	return nil
}
