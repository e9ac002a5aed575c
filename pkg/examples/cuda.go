package examples

import (
	"fmt"
	"log/slog"

	"github.com/pearpc/devrt/pkg/irq"
	"github.com/pearpc/devrt/pkg/qdev"
	"github.com/pearpc/devrt/pkg/qom"
)

// CUDAClass is the class of the cuda controller.
type CUDAClass struct {
	qdev.DeviceClass

	env *Env
}

// CUDA is the power and ADB controller. It owns an ADB bus and a VIA, both
// embedded by value.
type CUDA struct {
	qdev.DeviceState

	ADB ADBBus
	VIA VIATimer

	initErr error
	logger  *slog.Logger
}

// Bus returns the ADB bus.
func (c *CUDA) Bus() *ADBBus {
	return &c.ADB
}

// SetIRQ connects the VIA interrupt output.
func (c *CUDA) SetIRQ(line *irq.Line) {
	c.VIA.SetIRQ(line)
}

func cudaInstanceInit(obj qom.Object) {
	c := obj.(*CUDA)
	r := c.Registry()
	if err := qdev.BusInitInPlace(r, &c.ADB, TypeADBBus, c, "adb.0"); err != nil {
		c.initErr = err
		return
	}
	if err := r.InitChild(c, &c.VIA, TypeVIATimer); err != nil {
		c.initErr = err
	}
}

var cudaOps = qdev.MemoryRegionOps{
	Read: func(opaque any, addr uint64, size uint) uint64 {
		c := opaque.(*CUDA)
		v, err := c.VIA.MemoryRead(addr, size)
		if err != nil {
			c.logger.Debug("cuda_via_read", "addr", addr, "size", size, "error", err)
		}
		return v
	},
	Write: func(opaque any, addr uint64, data uint64, size uint) {
		c := opaque.(*CUDA)
		if err := c.VIA.MemoryWrite(addr, data, size); err != nil {
			c.logger.Debug("cuda_via_write", "addr", addr, "size", size, "error", err)
		}
	},
	Endianness: qdev.BigEndian,
	Valid:      qdev.AccessConstraints{Min: 1, Max: 1},
}

func registerCUDA(r *qom.Registry, env *Env) error {
	return qom.RegisterType[CUDAClass, CUDA](r, &qom.TypeInfo{
		Name:         TypeCUDA,
		Parent:       qom.TypeSysBusDevice,
		InstanceInit: cudaInstanceInit,
		ClassData:    env,
		ClassInit: func(cls qom.Class, data any) {
			dc := cls.(*CUDAClass)
			dc.env = envFromClassData(data)
			dc.Desc = "CUDA power and ADB controller"
			dc.SetCategory(qdev.CategoryBridge | qdev.CategoryInput)
			dc.Realize = func(dev qdev.Device) error {
				c, ok := qom.As[*CUDA](dev)
				if !ok {
					return qdev.ErrCapabilityMismatch
				}
				if c.initErr != nil {
					return c.initErr
				}
				c.logger = dc.env.logger()
				if err := c.VIA.Realize(); err != nil {
					return fmt.Errorf("cuda via: %w", err)
				}
				_, err := qdev.InitIO(c, &cudaOps, c, "cuda", VIARegionSize)
				return err
			}
			dc.Reset = func(dev qdev.Device) {
				if c, ok := qom.As[*CUDA](dev); ok {
					c.VIA.Reset()
				}
			}
		},
	})
}
