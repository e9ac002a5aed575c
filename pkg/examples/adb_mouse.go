package examples

import (
	"sync"

	"github.com/pearpc/devrt/pkg/input"
	"github.com/pearpc/devrt/pkg/qdev"
	"github.com/pearpc/devrt/pkg/qom"
)

// ADBMouseClass is the class of adb-mouse.
type ADBMouseClass struct {
	ADBDeviceClass

	parentRealize qdev.RealizeFunc
	parentDevReq  DevReqFunc
}

// ADBMouse is a one-button relative pointer.
type ADBMouse struct {
	ADBDevice

	stateMu     sync.Mutex
	buttons     int
	lastButtons int
	dx, dy, dz  int
}

// Motion returns the motion not yet reported to the guest.
func (m *ADBMouse) Motion() (dx, dy int) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.dx, m.dy
}

func (m *ADBMouse) event(dx, dy, dz, buttons int) {
	m.stateMu.Lock()
	m.dx += dx
	m.dy += dy
	m.dz += dz
	m.buttons = buttons
	m.stateMu.Unlock()
}

func (m *ADBMouse) poll() []byte {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	if m.lastButtons == m.buttons && m.dx == 0 && m.dy == 0 {
		return nil
	}

	dx := min(max(m.dx, -63), 63)
	dy := min(max(m.dy, -63), 63)
	m.dx -= dx
	m.dy -= dy
	m.lastButtons = m.buttons

	bx := uint8(dx) & 0x7f
	by := uint8(dy) & 0x7f
	if m.buttons&input.MouseLButton == 0 {
		by |= 0x80
	}
	if m.buttons&input.MouseRButton == 0 {
		bx |= 0x80
	}
	return []byte{by, bx}
}

func (m *ADBMouse) clear() {
	m.stateMu.Lock()
	m.buttons, m.lastButtons = 0, 0
	m.dx, m.dy, m.dz = 0, 0, 0
	m.stateMu.Unlock()
}

func adbMouseEvent(opaque any, dx, dy, dz, buttons int) {
	if m, ok := opaque.(*ADBMouse); ok {
		m.event(dx, dy, dz, buttons)
	}
}

func adbMouseDevReq(dev ADBDev, req []byte) []byte {
	m, ok := qom.As[*ADBMouse](dev)
	if !ok {
		return nil
	}
	if req[0]&0x0f == ADBFlush {
		m.clear()
		return nil
	}

	cmd := req[0] & 0x0c
	reg := req[0] & 0x03
	switch {
	case cmd == ADBReadReg && reg == 0:
		return m.poll()
	case reg == 3:
		if mc, ok := qom.ClassAs[*ADBMouseClass](dev); ok && mc.parentDevReq != nil {
			return mc.parentDevReq(dev, req)
		}
	}
	return nil
}

func registerADBMouse(r *qom.Registry, env *Env) error {
	return qom.RegisterType[ADBMouseClass, ADBMouse](r, &qom.TypeInfo{
		Name:      TypeADBMouse,
		Parent:    TypeADBDevice,
		ClassData: env,
		ClassInit: func(cls qom.Class, data any) {
			mc := cls.(*ADBMouseClass)
			mc.Desc = "ADB mouse"
			mc.SetCategory(qdev.CategoryInput)

			mc.parentDevReq = mc.DevReq
			mc.DevReq = adbMouseDevReq

			qdev.SetParentRealize(&mc.DeviceClass, func(dev qdev.Device) error {
				if mc.parentRealize != nil {
					if err := mc.parentRealize(dev); err != nil {
						return err
					}
				}
				m, ok := qom.As[*ADBMouse](dev)
				if !ok {
					return qdev.ErrCapabilityMismatch
				}
				if env := envFromClassData(data); env != nil && env.Input != nil {
					env.Input.AddMouseHandler(adbMouseEvent, m, false, "QEMU ADB Mouse")
				}
				return nil
			}, &mc.parentRealize)

			mc.Reset = func(dev qdev.Device) {
				m, ok := qom.As[*ADBMouse](dev)
				if !ok {
					return
				}
				m.setIdentity(ADBDevIDRelPointer, 2)
				m.clear()
			}
		},
	})
}
