package inspect

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/pearpc/devrt/pkg/machine"
	"github.com/pearpc/devrt/pkg/mmio"
	"github.com/pearpc/devrt/pkg/qdev"
	"github.com/pearpc/devrt/pkg/qom"
	"github.com/pearpc/devrt/pkg/timer"
)

// Inspector errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrNotADevice   = errors.New("path does not name a device")
	ErrNoScheduler  = errors.New("no timer scheduler")
	ErrNoDispatcher = errors.New("no mmio dispatcher")
)

// Config configures an Inspector. Registry and Machine are required.
type Config struct {
	Registry  *qom.Registry
	Machine   *machine.Machine
	Scheduler *timer.Scheduler
	MMIO      *mmio.Dispatcher
}

// Inspector provides read and register-level write access to a built
// machine.
type Inspector struct {
	registry  *qom.Registry
	machine   *machine.Machine
	scheduler *timer.Scheduler
	mmio      *mmio.Dispatcher

	labels map[qdev.Device]string
}

// NewInspector creates a new Inspector.
func NewInspector(cfg Config) *Inspector {
	i := &Inspector{
		registry:  cfg.Registry,
		machine:   cfg.Machine,
		scheduler: cfg.Scheduler,
		mmio:      cfg.MMIO,
		labels:    make(map[qdev.Device]string),
	}
	for _, e := range cfg.Machine.Entries() {
		if e.Spec.ID != "" {
			i.labels[e.Device] = e.Spec.ID
		}
	}
	return i
}

// Machine returns the inspected machine.
func (i *Inspector) Machine() *machine.Machine {
	return i.machine
}

// TypeNode is one type in the hierarchy.
type TypeNode struct {
	Name     string
	Abstract bool
	Children []*TypeNode
}

// MachineTree is the device tree of a machine.
type MachineTree struct {
	Name  string
	Buses []BusInfo
	Roots []DeviceInfo
}

// BusInfo describes a bus and its children.
type BusInfo struct {
	Name     string
	Type     string
	Children []DeviceInfo
}

// DeviceInfo describes a device.
type DeviceInfo struct {
	Type       string
	Label      string
	UUID       string
	Desc       string
	Realized   bool
	Categories qdev.Category
	Region     *RegionInfo
	Buses      []BusInfo
}

// RegionInfo describes a device's I/O region.
type RegionInfo struct {
	Name   string
	Size   uint64
	Base   uint64
	Mapped bool
}

// TimerInfo is a snapshot of the scheduler.
type TimerInfo struct {
	NowNs int64
	Stats timer.Stats
	Armed []timer.ArmedTimer
}

// InspectTypes returns the registered types as a forest, in registration
// order. Types whose parent is unknown are roots.
func (i *Inspector) InspectTypes() []*TypeNode {
	infos := i.registry.Types()
	nodes := make(map[string]*TypeNode, len(infos))
	for _, ti := range infos {
		nodes[ti.Name] = &TypeNode{Name: ti.Name, Abstract: ti.Abstract}
	}

	var roots []*TypeNode
	for _, ti := range infos {
		n := nodes[ti.Name]
		if parent, ok := nodes[ti.Parent]; ok && ti.HasParent() {
			parent.Children = append(parent.Children, n)
			continue
		}
		roots = append(roots, n)
	}
	return roots
}

// InspectMachine returns the device tree.
func (i *Inspector) InspectMachine() *MachineTree {
	tree := &MachineTree{Name: i.machine.Name}
	for _, bus := range i.machine.Buses() {
		tree.Buses = append(tree.Buses, i.inspectBus(bus.AsBus()))
	}
	for _, dev := range i.machine.Roots() {
		tree.Roots = append(tree.Roots, i.InspectDevice(dev))
	}
	return tree
}

// InspectDevice returns information about one device and the buses it
// embeds.
func (i *Inspector) InspectDevice(dev qdev.Device) DeviceInfo {
	ds := dev.AsDevice()
	info := DeviceInfo{
		Type:     ds.TypeName(),
		Label:    i.labels[dev],
		UUID:     ds.ID().String(),
		Realized: ds.Realized(),
	}
	if dc := ds.DeviceClass(); dc != nil {
		info.Desc = dc.Desc
		info.Categories = dc.Categories
	}
	if mr := ds.MemoryRegion(); mr != nil {
		info.Region = &RegionInfo{Name: mr.Name(), Size: mr.Size()}
		if i.mmio != nil {
			for _, w := range i.mmio.Windows() {
				if w.Dev.AsDevice() == ds {
					info.Region.Base = w.Base
					info.Region.Mapped = true
					break
				}
			}
		}
	}
	for _, b := range ds.ChildBuses() {
		info.Buses = append(info.Buses, i.inspectBus(b))
	}
	return info
}

func (i *Inspector) inspectBus(bs *qdev.BusState) BusInfo {
	info := BusInfo{Name: bs.Name(), Type: bs.TypeName()}
	for _, child := range bs.Children() {
		info.Children = append(info.Children, i.InspectDevice(child))
	}
	return info
}

// InspectTimers returns a snapshot of the scheduler.
func (i *Inspector) InspectTimers() (*TimerInfo, error) {
	if i.scheduler == nil {
		return nil, ErrNoScheduler
	}
	return &TimerInfo{
		NowNs: i.scheduler.Now(),
		Stats: i.scheduler.Stats(),
		Armed: i.scheduler.Armed(),
	}, nil
}

// InspectMMIO returns the mapped windows in address order.
func (i *Inspector) InspectMMIO() ([]mmio.Window, error) {
	if i.mmio == nil {
		return nil, ErrNoDispatcher
	}
	return i.mmio.Windows(), nil
}

// Target is what a path resolves to. Exactly one field is set.
type Target struct {
	Device qdev.Device
	Bus    qdev.Bus
}

// Resolve resolves p against the machine.
func (i *Inspector) Resolve(p *Path) (Target, error) {
	var cur Target
	first := p.Segments[0]
	if dev, ok := i.machine.Device(first); ok {
		cur.Device = dev
	} else if bus, ok := i.machine.Bus(first); ok {
		cur.Bus = bus
	} else {
		return Target{}, fmt.Errorf("%w: %q", ErrNotFound, first)
	}

	for _, seg := range p.Segments[1:] {
		if cur.Device != nil {
			bus, err := childBus(cur.Device, seg)
			if err != nil {
				return Target{}, err
			}
			cur = Target{Bus: bus}
			continue
		}
		dev, err := childDevice(cur.Bus, seg)
		if err != nil {
			return Target{}, err
		}
		cur = Target{Device: dev}
	}
	return cur, nil
}

// ResolveDevice resolves p and requires it to name a device.
func (i *Inspector) ResolveDevice(p *Path) (qdev.Device, error) {
	t, err := i.Resolve(p)
	if err != nil {
		return nil, err
	}
	if t.Device == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotADevice, p)
	}
	return t.Device, nil
}

func childBus(dev qdev.Device, name string) (qdev.Bus, error) {
	for _, b := range dev.AsDevice().ChildBuses() {
		if b.Name() != name {
			continue
		}
		if bus, ok := qdev.AsBus(b); ok {
			return bus, nil
		}
	}
	return nil, fmt.Errorf("%w: bus %q in %s", ErrNotFound, name, dev.AsDevice().TypeName())
}

func childDevice(bus qdev.Bus, seg string) (qdev.Device, error) {
	children := bus.AsBus().Children()
	if n, err := strconv.Atoi(seg); err == nil {
		if n < 0 || n >= len(children) {
			return nil, fmt.Errorf("%w: child %d of %s", ErrNotFound, n, bus.AsBus().Name())
		}
		return children[n], nil
	}
	for _, c := range children {
		if c.AsDevice().TypeName() == seg {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q on %s", ErrNotFound, seg, bus.AsBus().Name())
}

// ReadRegister reads size bytes at offset from the device at p.
func (i *Inspector) ReadRegister(p *Path, offset uint64, size uint) (uint64, error) {
	dev, err := i.ResolveDevice(p)
	if err != nil {
		return 0, err
	}
	return dev.AsDevice().MemoryRead(offset, size)
}

// WriteRegister writes size bytes of v at offset to the device at p.
func (i *Inspector) WriteRegister(p *Path, offset uint64, size uint, v uint64) error {
	dev, err := i.ResolveDevice(p)
	if err != nil {
		return err
	}
	return dev.AsDevice().MemoryWrite(offset, v, size)
}

// ResetDevice resets the device at p and every bus it embeds.
func (i *Inspector) ResetDevice(p *Path) error {
	dev, err := i.ResolveDevice(p)
	if err != nil {
		return err
	}
	qdev.ResetAll(dev)
	return nil
}
