package qdev

import (
	"fmt"

	"github.com/pearpc/devrt/pkg/qom"
)

// Endianness is the byte order of a memory region.
type Endianness uint8

const (
	NativeEndian Endianness = iota
	BigEndian
	LittleEndian
)

func (e Endianness) String() string {
	switch e {
	case BigEndian:
		return "big"
	case LittleEndian:
		return "little"
	default:
		return "native"
	}
}

// AccessConstraints bounds guest access sizes in bytes. Zero means
// unconstrained.
type AccessConstraints struct {
	Min uint
	Max uint
}

// MemoryRegionOps are the read/write callbacks of an I/O region. Addresses
// are relative to the region start and sizes are in bytes.
type MemoryRegionOps struct {
	Read       func(opaque any, addr uint64, size uint) uint64
	Write      func(opaque any, addr uint64, data uint64, size uint)
	Endianness Endianness
	Valid      AccessConstraints
}

// MemoryRegion is an I/O window installed on a device.
type MemoryRegion struct {
	owner  Device
	ops    *MemoryRegionOps
	opaque any
	name   string
	size   uint64
}

// Name returns the region name.
func (mr *MemoryRegion) Name() string { return mr.name }

// Size returns the region size in bytes.
func (mr *MemoryRegion) Size() uint64 { return mr.size }

// Owner returns the device owning the region.
func (mr *MemoryRegion) Owner() Device { return mr.owner }

// Ops returns the region callbacks.
func (mr *MemoryRegion) Ops() *MemoryRegionOps { return mr.ops }

func (mr *MemoryRegion) check(addr uint64, size uint) error {
	lo, hi := mr.ops.Valid.Min, mr.ops.Valid.Max
	if lo == 0 {
		lo = 1
	}
	if hi == 0 {
		hi = 8
	}
	if size < lo || size > hi {
		return fmt.Errorf("%s: size %d not in [%d,%d]: %w", mr.name, size, lo, hi, ErrAccessSize)
	}
	if addr >= mr.size || uint64(size) > mr.size-addr {
		return fmt.Errorf("%s: 0x%x+%d beyond 0x%x: %w", mr.name, addr, size, mr.size, ErrOutOfRange)
	}
	return nil
}

// InitIO creates an I/O region and installs it on owner, which must be a
// device. A later call replaces the previous region.
func InitIO(owner qom.Object, ops *MemoryRegionOps, opaque any, name string, size uint64) (*MemoryRegion, error) {
	dev, ok := AsDevice(owner)
	if !ok {
		return nil, fmt.Errorf("init io %q: %w", name, ErrCapabilityMismatch)
	}
	mr := &MemoryRegion{
		owner:  dev,
		ops:    ops,
		opaque: opaque,
		name:   name,
		size:   size,
	}
	dev.AsDevice().region.Store(mr)
	return mr, nil
}

// MemoryRegion returns the installed region, or nil.
func (d *DeviceState) MemoryRegion() *MemoryRegion {
	return d.region.Load()
}

// MemoryRead reads size bytes at addr from the device's region.
func (d *DeviceState) MemoryRead(addr uint64, size uint) (uint64, error) {
	mr := d.region.Load()
	if mr == nil || mr.ops == nil || mr.ops.Read == nil {
		return 0, fmt.Errorf("read %q: %w", d.TypeName(), ErrNoMMIO)
	}
	if err := mr.check(addr, size); err != nil {
		return 0, err
	}
	return mr.ops.Read(mr.opaque, addr, size), nil
}

// MemoryWrite writes size bytes of data at addr to the device's region.
func (d *DeviceState) MemoryWrite(addr uint64, data uint64, size uint) error {
	mr := d.region.Load()
	if mr == nil || mr.ops == nil || mr.ops.Write == nil {
		return fmt.Errorf("write %q: %w", d.TypeName(), ErrNoMMIO)
	}
	if err := mr.check(addr, size); err != nil {
		return err
	}
	mr.ops.Write(mr.opaque, addr, data, size)
	return nil
}
