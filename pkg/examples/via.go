package examples

import (
	"errors"
	"sync"

	"github.com/pearpc/devrt/pkg/irq"
	"github.com/pearpc/devrt/pkg/qdev"
	"github.com/pearpc/devrt/pkg/qom"
	"github.com/pearpc/devrt/pkg/timer"
)

// VIA register indices. Registers are spaced 0x200 bytes apart.
const (
	VIARegB    = 0
	VIARegA    = 1
	VIADirB    = 2
	VIADirA    = 3
	VIAT1CL    = 4
	VIAT1CH    = 5
	VIAT1LL    = 6
	VIAT1LH    = 7
	VIAT2CL    = 8
	VIAT2CH    = 9
	VIASR      = 10
	VIAACR     = 11
	VIAPCR     = 12
	VIAIFR     = 13
	VIAIER     = 14
	VIAANH     = 15
	viaRegSize = 0x200
)

// VIA interrupt flag bits.
const (
	VIAIntT2  = 0x20
	VIAIntT1  = 0x40
	VIAIntAny = 0x80
)

const (
	viaACRT1FreeRun = 0x40

	// VIARegionSize is the size of the VIA register window.
	VIARegionSize = 16 * viaRegSize
)

// ErrNoScheduler is returned when a timed device is realized without a
// scheduler in its environment.
var ErrNoScheduler = errors.New("examples: no timer scheduler")

// viaTicksToNs converts VIA clock ticks (4.7 MHz / 6) to nanoseconds.
func viaTicksToNs(ticks int64) int64 {
	return ticks * 60000 / 47
}

func viaNsToTicks(ns int64) int64 {
	return ns * 47 / 60000
}

// VIATimerClass is the class of via-timer.
type VIATimerClass struct {
	qdev.DeviceClass

	env *Env
}

// VIATimer models the two timers and interrupt logic of a 6522 VIA.
type VIATimer struct {
	qdev.DeviceState

	mu      sync.Mutex
	regs    [16]uint8
	t1Latch uint16
	t2Latch uint16
	t1Load  int64
	t1Next  int64
	t2Load  int64
	acr     uint8
	ifr     uint8
	ier     uint8

	sched *timer.Scheduler
	t1    *timer.Timer
	t2    *timer.Timer
	irq   *irq.Line

	// irqMu orders interrupt line updates. The level is sampled and
	// driven under it so the controller always ends at ifr&ier.
	irqMu sync.Mutex
}

// SetIRQ connects the interrupt output.
func (v *VIATimer) SetIRQ(line *irq.Line) {
	v.mu.Lock()
	v.irq = line
	v.mu.Unlock()
	v.updateIRQ()
}

// IRQ returns the connected interrupt line, or nil.
func (v *VIATimer) IRQ() *irq.Line {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.irq
}

// Flags returns the interrupt flag register.
func (v *VIATimer) Flags() uint8 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ifr
}

func (v *VIATimer) read(addr uint64) uint8 {
	v.mu.Lock()
	var val uint8
	switch reg := addr / viaRegSize; reg {
	case VIAT1CL:
		val = uint8(v.counter(v.t1Load, v.t1Latch, v.acr&viaACRT1FreeRun != 0))
		v.ifr &^= VIAIntT1
	case VIAT1CH:
		val = uint8(v.counter(v.t1Load, v.t1Latch, v.acr&viaACRT1FreeRun != 0) >> 8)
	case VIAT1LL:
		val = uint8(v.t1Latch)
	case VIAT1LH:
		val = uint8(v.t1Latch >> 8)
	case VIAT2CL:
		val = uint8(v.counter(v.t2Load, v.t2Latch, false))
		v.ifr &^= VIAIntT2
	case VIAT2CH:
		val = uint8(v.counter(v.t2Load, v.t2Latch, false) >> 8)
	case VIAACR:
		val = v.acr
	case VIAIFR:
		val = v.ifr
		if v.ifr&v.ier != 0 {
			val |= VIAIntAny
		}
	case VIAIER:
		val = v.ier | VIAIntAny
	default:
		val = v.regs[reg]
	}
	v.mu.Unlock()
	v.updateIRQ()
	return val
}

func (v *VIATimer) write(addr uint64, val uint8) {
	v.mu.Lock()
	switch reg := addr / viaRegSize; reg {
	case VIAT1CL, VIAT1LL:
		v.t1Latch = v.t1Latch&0xff00 | uint16(val)
	case VIAT1CH:
		v.t1Latch = v.t1Latch&0x00ff | uint16(val)<<8
		v.ifr &^= VIAIntT1
		v.t1Load = v.sched.Now()
		v.t1Next = v.t1Load + viaTicksToNs(int64(v.t1Latch)+1)
		v.t1.Mod(v.t1Next)
	case VIAT1LH:
		v.t1Latch = v.t1Latch&0x00ff | uint16(val)<<8
		v.ifr &^= VIAIntT1
	case VIAT2CL:
		v.t2Latch = v.t2Latch&0xff00 | uint16(val)
	case VIAT2CH:
		v.t2Latch = v.t2Latch&0x00ff | uint16(val)<<8
		v.ifr &^= VIAIntT2
		v.t2Load = v.sched.Now()
		v.t2.Mod(v.t2Load + viaTicksToNs(int64(v.t2Latch)+1))
	case VIAACR:
		v.acr = val
	case VIAIFR:
		v.ifr &^= val & 0x7f
	case VIAIER:
		if val&VIAIntAny != 0 {
			v.ier |= val & 0x7f
		} else {
			v.ier &^= val & 0x7f
		}
	default:
		v.regs[reg] = val
	}
	v.mu.Unlock()
	v.updateIRQ()
}

// counter returns the current value of a down counter loaded with latch
// at load. Must be called with v.mu held.
func (v *VIATimer) counter(load int64, latch uint16, freeRun bool) uint16 {
	elapsed := viaNsToTicks(v.sched.Now() - load)
	if freeRun {
		period := int64(latch) + 2
		return uint16(int64(latch) - elapsed%period)
	}
	return uint16(int64(latch) - elapsed)
}

func (v *VIATimer) t1Expired() {
	v.mu.Lock()
	v.ifr |= VIAIntT1
	if v.acr&viaACRT1FreeRun != 0 {
		v.t1Load = v.t1Next
		v.t1Next = v.t1Load + viaTicksToNs(int64(v.t1Latch)+2)
		v.t1.Mod(v.t1Next)
	}
	v.mu.Unlock()
	v.updateIRQ()
}

func (v *VIATimer) t2Expired() {
	v.mu.Lock()
	v.ifr |= VIAIntT2
	v.mu.Unlock()
	v.updateIRQ()
}

func (v *VIATimer) updateIRQ() {
	v.irqMu.Lock()
	defer v.irqMu.Unlock()

	v.mu.Lock()
	line := v.irq
	level := v.ifr&v.ier&0x7f != 0
	v.mu.Unlock()
	if line != nil && line.Level() != level {
		line.Set(level)
	}
}

func (v *VIATimer) reset() {
	v.mu.Lock()
	v.regs = [16]uint8{}
	v.t1Latch, v.t2Latch = 0xffff, 0xffff
	v.acr, v.ifr, v.ier = 0, 0, 0
	t1, t2 := v.t1, v.t2
	v.mu.Unlock()

	if t1 != nil {
		t1.Del()
	}
	if t2 != nil {
		t2.Del()
	}
	v.updateIRQ()
}

var viaOps = qdev.MemoryRegionOps{
	Read: func(opaque any, addr uint64, _ uint) uint64 {
		return uint64(opaque.(*VIATimer).read(addr))
	},
	Write: func(opaque any, addr uint64, data uint64, _ uint) {
		opaque.(*VIATimer).write(addr, uint8(data))
	},
	Endianness: qdev.BigEndian,
	Valid:      qdev.AccessConstraints{Min: 1, Max: 1},
}

func viaRealize(dev qdev.Device, env *Env) error {
	v, ok := qom.As[*VIATimer](dev)
	if !ok {
		return qdev.ErrCapabilityMismatch
	}
	if env == nil || env.Scheduler == nil {
		return ErrNoScheduler
	}
	if _, err := qdev.InitIO(v, &viaOps, v, "via", VIARegionSize); err != nil {
		return err
	}

	v.mu.Lock()
	v.sched = env.Scheduler
	v.t1 = env.Scheduler.NewTimer(v.t1Expired)
	v.t2 = env.Scheduler.NewTimer(v.t2Expired)
	v.mu.Unlock()
	return nil
}

func registerVIA(r *qom.Registry, env *Env) error {
	return qom.RegisterType[VIATimerClass, VIATimer](r, &qom.TypeInfo{
		Name:      TypeVIATimer,
		Parent:    qom.TypeSysBusDevice,
		ClassData: env,
		ClassInit: func(cls qom.Class, data any) {
			vc := cls.(*VIATimerClass)
			vc.env = envFromClassData(data)
			vc.Desc = "6522 VIA timers"
			vc.SetCategory(qdev.CategoryMisc)
			vc.Realize = func(dev qdev.Device) error {
				return viaRealize(dev, vc.env)
			}
			vc.Reset = func(dev qdev.Device) {
				if v, ok := qom.As[*VIATimer](dev); ok {
					v.reset()
				}
			}
		},
	})
}
