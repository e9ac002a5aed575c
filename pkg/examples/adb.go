package examples

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pearpc/devrt/pkg/qdev"
	"github.com/pearpc/devrt/pkg/qom"
)

// ADB command nibbles.
const (
	ADBBusReset = 0x00
	ADBFlush    = 0x01
	ADBWriteReg = 0x08
	ADBReadReg  = 0x0c
)

// ADB register 3 listen commands.
const (
	ADBCmdSelfTest          = 0xff
	ADBCmdChangeID          = 0xfe
	ADBCmdChangeIDAndAct    = 0xfd
	ADBCmdChangeIDAndEnable = 0x00
)

// Default ADB addresses.
const (
	ADBDevIDKeyboard    = 2
	ADBDevIDRelPointer  = 3
	adbMaxRequestLength = 16
)

var (
	// ErrADBNotPresent is returned when no device answers an address.
	ErrADBNotPresent = errors.New("adb: device not present")

	// ErrADBRequest is returned for malformed request packets.
	ErrADBRequest = errors.New("adb: malformed request")
)

// DevReqFunc answers one ADB request packet and returns the reply, which
// may be empty.
type DevReqFunc func(dev ADBDev, req []byte) []byte

// ADBDeviceClass is the class of every ADB device.
type ADBDeviceClass struct {
	qdev.DeviceClass

	DevReq DevReqFunc
	env    *Env
}

// AsADBDeviceClass returns the embedded ADBDeviceClass.
func (c *ADBDeviceClass) AsADBDeviceClass() *ADBDeviceClass {
	return c
}

type adbDeviceClass interface {
	qdev.Class
	AsADBDeviceClass() *ADBDeviceClass
}

// ADBDev is implemented by every ADB device instance.
type ADBDev interface {
	qdev.Device
	AsADBDevice() *ADBDevice
}

// ADBDevice is the base of every ADB device instance.
type ADBDevice struct {
	qdev.DeviceState

	mu      sync.Mutex
	devaddr uint8
	handler uint8
}

// AsADBDevice returns the embedded ADBDevice.
func (d *ADBDevice) AsADBDevice() *ADBDevice {
	return d
}

// Address returns the current bus address.
func (d *ADBDevice) Address() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.devaddr
}

// HandlerID returns the current handler ID.
func (d *ADBDevice) HandlerID() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handler
}

func (d *ADBDevice) setIdentity(addr, handler uint8) {
	d.mu.Lock()
	d.devaddr = addr
	d.handler = handler
	d.mu.Unlock()
}

// ADBDeviceClassOf returns the ADB class of dev.
func ADBDeviceClassOf(dev ADBDev) *ADBDeviceClass {
	if c, ok := dev.AsDevice().Class().(adbDeviceClass); ok {
		return c.AsADBDeviceClass()
	}
	return nil
}

// adbDefaultDevReq handles the register 3 identity commands shared by
// every ADB device.
func adbDefaultDevReq(dev ADBDev, req []byte) []byte {
	d := dev.AsADBDevice()
	cmd := req[0] & 0x0c
	reg := req[0] & 0x03

	if reg != 3 {
		return nil
	}

	switch cmd {
	case ADBWriteReg:
		if len(req) < 3 {
			return nil
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		switch req[2] {
		case ADBCmdSelfTest:
		case ADBCmdChangeID, ADBCmdChangeIDAndAct, ADBCmdChangeIDAndEnable:
			d.devaddr = req[1] & 0x0f
		default:
			d.devaddr = req[1] & 0x0f
			d.handler = req[2]
		}
		return nil
	case ADBReadReg:
		d.mu.Lock()
		defer d.mu.Unlock()
		return []byte{d.devaddr, d.handler}
	}
	return nil
}

// ADBBus is the Apple Desktop Bus.
type ADBBus struct {
	qdev.BusState
}

// Request routes an ADB packet to the device at the addressed slot and
// returns its reply. A bus reset command resets every device.
func (b *ADBBus) Request(req []byte) ([]byte, error) {
	if len(req) == 0 || len(req) > adbMaxRequestLength {
		return nil, fmt.Errorf("%w: length %d", ErrADBRequest, len(req))
	}
	if req[0]&0x0f == ADBBusReset {
		qdev.ResetBus(b)
		return nil, nil
	}

	addr := req[0] >> 4
	for _, child := range b.Children() {
		dev, ok := qom.As[ADBDev](child)
		if !ok || dev.AsADBDevice().Address() != addr {
			continue
		}
		cls := ADBDeviceClassOf(dev)
		if cls == nil || cls.DevReq == nil {
			return nil, nil
		}
		return cls.DevReq(dev, req), nil
	}
	return nil, fmt.Errorf("%w: address %d", ErrADBNotPresent, addr)
}

// Poll talks register 0 of every device whose address bit is set in mask
// and returns the first non-empty reply, prefixed with the command byte.
func (b *ADBBus) Poll(mask uint16) []byte {
	for _, child := range b.Children() {
		dev, ok := qom.As[ADBDev](child)
		if !ok {
			continue
		}
		addr := dev.AsADBDevice().Address()
		if mask&(1<<addr) == 0 {
			continue
		}
		cmd := ADBReadReg | addr<<4
		reply, err := b.Request([]byte{cmd})
		if err != nil || len(reply) == 0 {
			continue
		}
		return append([]byte{cmd}, reply...)
	}
	return nil
}

func registerADB(r *qom.Registry, env *Env) error {
	if err := qom.RegisterType[qdev.BusClass, ADBBus](r, &qom.TypeInfo{
		Name:   TypeADBBus,
		Parent: qom.TypeBus,
	}); err != nil {
		return err
	}
	if err := qom.RegisterAbstract[ADBDeviceClass](r, &qom.TypeInfo{
		Name:      TypeADBDevice,
		Parent:    qom.TypeDevice,
		Abstract:  true,
		ClassData: env,
		ClassInit: func(cls qom.Class, data any) {
			c := cls.(adbDeviceClass).AsADBDeviceClass()
			c.BusType = TypeADBBus
			c.DevReq = adbDefaultDevReq
			c.env = envFromClassData(data)
		},
	}); err != nil {
		return err
	}
	if err := registerADBKeyboard(r, env); err != nil {
		return err
	}
	return registerADBMouse(r, env)
}
