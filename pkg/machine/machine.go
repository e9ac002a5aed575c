package machine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pearpc/devrt/pkg/irq"
	"github.com/pearpc/devrt/pkg/mmio"
	"github.com/pearpc/devrt/pkg/qdev"
	"github.com/pearpc/devrt/pkg/qom"
	"github.com/pearpc/devrt/pkg/trace"
)

var (
	// ErrNoIRQ is returned when a description gives an irq to a device
	// that has no interrupt output.
	ErrNoIRQ = errors.New("device has no interrupt output")

	// ErrNoBus is returned when an embedded bus reference cannot be
	// resolved.
	ErrNoBus = errors.New("bus not found")

	// ErrNoController is returned when a description gives an irq but the
	// environment has no interrupt controller.
	ErrNoController = errors.New("no interrupt controller")

	// ErrNoMMIODispatcher is returned when a description maps a window but
	// the environment has no dispatcher.
	ErrNoMMIODispatcher = errors.New("no mmio dispatcher")
)

// IRQUser is implemented by devices with an interrupt output.
type IRQUser interface {
	SetIRQ(line *irq.Line)
}

// Env holds the collaborators Build wires devices to.
type Env struct {
	Registry *qom.Registry

	// IRQ receives interrupt line changes. Required when any device has
	// an irq.
	IRQ irq.Controller

	// MMIO receives the mmio windows. Required when any device has one.
	MMIO *mmio.Dispatcher

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Trace receives IRQ events. Nil disables tracing.
	Trace trace.Logger
}

// Entry is one built device.
type Entry struct {
	Spec   DeviceSpec
	Device qdev.Device
	IRQ    *irq.Line
}

// Machine is a built device tree.
type Machine struct {
	Name string

	buses   []qdev.Bus
	byBus   map[string]qdev.Bus
	entries []*Entry
	byID    map[string]*Entry
	logger  *slog.Logger
}

// Build creates the buses and devices of desc, wires their interrupt lines
// and mmio windows, and resets the tree.
//
// The registry's class pass runs before the first device is created, so
// no types can be registered once Build starts.
func Build(ctx context.Context, env Env, desc *Description) (*Machine, error) {
	if env.Registry == nil {
		return nil, errors.New("machine: nil registry")
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
	}

	env.Registry.Seal()

	m := &Machine{
		Name:   desc.Name,
		byBus:  make(map[string]qdev.Bus, len(desc.Buses)),
		byID:   make(map[string]*Entry, len(desc.Devices)),
		logger: logger,
	}

	for _, spec := range desc.Buses {
		bus, err := qdev.NewBus(env.Registry, spec.Type, spec.Name)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", spec.Line, err)
		}
		m.buses = append(m.buses, bus)
		m.byBus[spec.Name] = bus
	}

	for _, spec := range desc.Devices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry, err := m.buildDevice(env, spec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", spec.Line, spec.Type, err)
		}
		m.entries = append(m.entries, entry)
		if spec.ID != "" {
			m.byID[spec.ID] = entry
		}
		logger.Debug("machine_device", "type", spec.Type, "id", spec.ID, "bus", spec.Bus)
	}

	m.Reset()
	logger.Info("machine built", "name", m.Name, "buses", len(m.buses), "devices", len(m.entries))
	return m, nil
}

func (m *Machine) buildDevice(env Env, spec DeviceSpec) (*Entry, error) {
	var (
		dev qdev.Device
		err error
	)
	if spec.Bus == "" {
		dev, err = qdev.CreateRoot(env.Registry, spec.Type)
	} else {
		bus, berr := m.resolveBus(spec.Bus)
		if berr != nil {
			return nil, berr
		}
		dev, err = qdev.CreateDevice(env.Registry, bus, spec.Type)
	}
	if err != nil {
		return nil, err
	}

	entry := &Entry{Spec: spec, Device: dev}
	if spec.IRQ != nil {
		user, ok := qom.As[IRQUser](dev)
		if !ok {
			return nil, ErrNoIRQ
		}
		if env.IRQ == nil {
			return nil, fmt.Errorf("irq %d: %w", *spec.IRQ, ErrNoController)
		}
		entry.IRQ = irq.NewLine(env.IRQ, *spec.IRQ, env.Trace)
		user.SetIRQ(entry.IRQ)
	}
	if spec.MMIO != nil {
		if env.MMIO == nil {
			return nil, ErrNoMMIODispatcher
		}
		if err := env.MMIO.Map(spec.MMIO.Base, spec.MMIO.Size, dev); err != nil {
			return nil, err
		}
	}
	return entry, nil
}

func (m *Machine) resolveBus(ref string) (qdev.Bus, error) {
	ownerID, busName, embedded := SplitBusRef(ref)
	if !embedded {
		if bus, ok := m.byBus[ref]; ok {
			return bus, nil
		}
		return nil, fmt.Errorf("%w: %q", ErrNoBus, ref)
	}
	owner, ok := m.byID[ownerID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoBus, ref)
	}
	for _, b := range owner.Device.AsDevice().ChildBuses() {
		if b.Name() == busName {
			if bus, ok := qdev.AsBus(b); ok {
				return bus, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoBus, ref)
}

// Reset resets every standalone bus and every device on the system bus,
// each with its embedded buses.
func (m *Machine) Reset() {
	for _, bus := range m.buses {
		qdev.ResetBus(bus)
	}
	for _, e := range m.entries {
		if e.Device.AsDevice().ParentBus() == nil {
			qdev.ResetAll(e.Device)
		}
	}
}

// Entries returns the built devices in description order.
func (m *Machine) Entries() []*Entry {
	return append([]*Entry(nil), m.entries...)
}

// Device returns the device with the given id.
func (m *Machine) Device(id string) (qdev.Device, bool) {
	e, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	return e.Device, true
}

// Bus returns the standalone bus with the given name.
func (m *Machine) Bus(name string) (qdev.Bus, bool) {
	b, ok := m.byBus[name]
	return b, ok
}

// Buses returns the standalone buses in description order.
func (m *Machine) Buses() []qdev.Bus {
	return append([]qdev.Bus(nil), m.buses...)
}

// Roots returns the devices that sit on the system bus.
func (m *Machine) Roots() []qdev.Device {
	var roots []qdev.Device
	for _, e := range m.entries {
		if e.Device.AsDevice().ParentBus() == nil {
			roots = append(roots, e.Device)
		}
	}
	return roots
}
