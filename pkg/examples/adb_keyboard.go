package examples

import (
	"sync"

	"github.com/pearpc/devrt/pkg/input"
	"github.com/pearpc/devrt/pkg/qdev"
	"github.com/pearpc/devrt/pkg/qom"
)

// adbNoKey marks a key the ADB keyboard does not have.
const adbNoKey = 0xff

const adbKeyboardFIFOSize = 16

// qcodeToADB maps key codes to ADB keyboard scan codes.
var qcodeToADB = map[input.QKeyCode]uint8{
	input.QKeyShift:        0x38,
	input.QKeyShiftR:       0x7b,
	input.QKeyAlt:          0x3a,
	input.QKeyAltR:         0x7c,
	input.QKeyCtrl:         0x36,
	input.QKeyCtrlR:        0x7d,
	input.QKeyMetaL:        0x37,
	input.QKeyMetaR:        0x37,
	input.QKeySpc:          0x31,
	input.QKeyEsc:          0x35,
	input.QKey1:            0x12,
	input.QKey2:            0x13,
	input.QKey3:            0x14,
	input.QKey4:            0x15,
	input.QKey5:            0x17,
	input.QKey6:            0x16,
	input.QKey7:            0x1a,
	input.QKey8:            0x1c,
	input.QKey9:            0x19,
	input.QKey0:            0x1d,
	input.QKeyMinus:        0x1b,
	input.QKeyEqual:        0x18,
	input.QKeyBackspace:    0x33,
	input.QKeyTab:          0x30,
	input.QKeyQ:            0x0c,
	input.QKeyW:            0x0d,
	input.QKeyE:            0x0e,
	input.QKeyR:            0x0f,
	input.QKeyT:            0x11,
	input.QKeyY:            0x10,
	input.QKeyU:            0x20,
	input.QKeyI:            0x22,
	input.QKeyO:            0x1f,
	input.QKeyP:            0x23,
	input.QKeyBracketLeft:  0x21,
	input.QKeyBracketRight: 0x1e,
	input.QKeyRet:          0x24,
	input.QKeyA:            0x00,
	input.QKeyS:            0x01,
	input.QKeyD:            0x02,
	input.QKeyF:            0x03,
	input.QKeyG:            0x05,
	input.QKeyH:            0x04,
	input.QKeyJ:            0x26,
	input.QKeyK:            0x28,
	input.QKeyL:            0x25,
	input.QKeySemicolon:    0x29,
	input.QKeyApostrophe:   0x27,
	input.QKeyGraveAccent:  0x32,
	input.QKeyBackslash:    0x2a,
	input.QKeyZ:            0x06,
	input.QKeyX:            0x07,
	input.QKeyC:            0x08,
	input.QKeyV:            0x09,
	input.QKeyB:            0x0b,
	input.QKeyN:            0x2d,
	input.QKeyM:            0x2e,
	input.QKeyComma:        0x2b,
	input.QKeyDot:          0x2f,
	input.QKeySlash:        0x2c,
	input.QKeyAsterisk:     0x43,
	input.QKeyCapsLock:     0x39,

	input.QKeyF1:         0x7a,
	input.QKeyF2:         0x78,
	input.QKeyF3:         0x63,
	input.QKeyF4:         0x76,
	input.QKeyF5:         0x60,
	input.QKeyF6:         0x61,
	input.QKeyF7:         0x62,
	input.QKeyF8:         0x64,
	input.QKeyF9:         0x65,
	input.QKeyF10:        0x6d,
	input.QKeyF11:        0x67,
	input.QKeyF12:        0x6f,
	input.QKeyPrint:      0x69,
	input.QKeySysrq:      0x69,
	input.QKeyScrollLock: 0x6b,
	input.QKeyPause:      0x71,

	input.QKeyNumLock:    0x47,
	input.QKeyKpEquals:   0x51,
	input.QKeyKpDivide:   0x4b,
	input.QKeyKpMultiply: 0x43,
	input.QKeyKpSubtract: 0x4e,
	input.QKeyKpAdd:      0x45,
	input.QKeyKpEnter:    0x4c,
	input.QKeyKpDecimal:  0x41,
	input.QKeyKp0:        0x52,
	input.QKeyKp1:        0x53,
	input.QKeyKp2:        0x54,
	input.QKeyKp3:        0x55,
	input.QKeyKp4:        0x56,
	input.QKeyKp5:        0x57,
	input.QKeyKp6:        0x58,
	input.QKeyKp7:        0x59,
	input.QKeyKp8:        0x5b,
	input.QKeyKp9:        0x5c,

	input.QKeyUp:    0x3e,
	input.QKeyDown:  0x3d,
	input.QKeyLeft:  0x3b,
	input.QKeyRight: 0x3c,

	input.QKeyHelp:   0x72,
	input.QKeyInsert: 0x72,
	input.QKeyDelete: 0x75,
	input.QKeyHome:   0x73,
	input.QKeyEnd:    0x77,
	input.QKeyPgup:   0x74,
	input.QKeyPgdn:   0x79,
}

// ADBKeyCode returns the ADB scan code of k, or 0xff if the keyboard has
// no such key.
func ADBKeyCode(k input.QKeyCode) uint8 {
	if code, ok := qcodeToADB[k]; ok {
		return code
	}
	return adbNoKey
}

// ADBKeyboardClass is the class of adb-keyboard.
type ADBKeyboardClass struct {
	ADBDeviceClass

	parentRealize qdev.RealizeFunc
	parentDevReq  DevReqFunc
}

// ADBKeyboard is an Apple extended keyboard.
type ADBKeyboard struct {
	ADBDevice

	fifoMu sync.Mutex
	data   [adbKeyboardFIFOSize]uint8
	rptr   int
	wptr   int
	count  int
}

// Pending returns the number of queued scan codes.
func (k *ADBKeyboard) Pending() int {
	k.fifoMu.Lock()
	defer k.fifoMu.Unlock()
	return k.count
}

func (k *ADBKeyboard) putKeycode(code uint8) {
	k.fifoMu.Lock()
	defer k.fifoMu.Unlock()
	if k.count >= len(k.data) {
		return
	}
	k.data[k.wptr] = code
	k.wptr = (k.wptr + 1) % len(k.data)
	k.count++
}

func (k *ADBKeyboard) poll() []byte {
	k.fifoMu.Lock()
	defer k.fifoMu.Unlock()
	if k.count == 0 {
		return nil
	}
	code := k.data[k.rptr]
	k.rptr = (k.rptr + 1) % len(k.data)
	k.count--
	return []byte{code, 0xff}
}

func (k *ADBKeyboard) flush() {
	k.fifoMu.Lock()
	k.rptr, k.wptr, k.count = 0, 0, 0
	k.fifoMu.Unlock()
}

func adbKeyboardEvent(dev qdev.Device, evt input.Event) {
	k, ok := qom.As[*ADBKeyboard](dev)
	if !ok || evt.Kind != input.EventKey {
		return
	}
	code := ADBKeyCode(evt.Key.Code)
	if code == adbNoKey {
		return
	}
	if !evt.Key.Down {
		code |= 0x80
	}
	k.putKeycode(code)
}

func adbKeyboardDevReq(dev ADBDev, req []byte) []byte {
	k, ok := qom.As[*ADBKeyboard](dev)
	if !ok {
		return nil
	}
	cmd := req[0] & 0x0c
	reg := req[0] & 0x03

	if req[0]&0x0f == ADBFlush {
		k.flush()
		return nil
	}

	switch {
	case cmd == ADBReadReg && reg == 0:
		return k.poll()
	case cmd == ADBReadReg && reg == 2:
		// LED and modifier state; nothing is tracked.
		return []byte{0x00, 0x07}
	case reg == 3:
		if kc, ok := qom.ClassAs[*ADBKeyboardClass](dev); ok && kc.parentDevReq != nil {
			return kc.parentDevReq(dev, req)
		}
	}
	return nil
}

func registerADBKeyboard(r *qom.Registry, env *Env) error {
	return qom.RegisterType[ADBKeyboardClass, ADBKeyboard](r, &qom.TypeInfo{
		Name:      TypeADBKeyboard,
		Parent:    TypeADBDevice,
		ClassData: env,
		ClassInit: func(cls qom.Class, data any) {
			kc := cls.(*ADBKeyboardClass)
			kc.Desc = "ADB keyboard"
			kc.SetCategory(qdev.CategoryInput)

			kc.parentDevReq = kc.DevReq
			kc.DevReq = adbKeyboardDevReq

			qdev.SetParentRealize(&kc.DeviceClass, func(dev qdev.Device) error {
				if kc.parentRealize != nil {
					if err := kc.parentRealize(dev); err != nil {
						return err
					}
				}
				if env := envFromClassData(data); env != nil && env.Input != nil {
					env.Input.RegisterHandler(dev, &input.Handler{
						Name:  "QEMU ADB Keyboard",
						Mask:  input.MaskKey,
						Event: adbKeyboardEvent,
					})
				}
				return nil
			}, &kc.parentRealize)

			kc.Reset = func(dev qdev.Device) {
				k, ok := qom.As[*ADBKeyboard](dev)
				if !ok {
					return
				}
				k.setIdentity(ADBDevIDKeyboard, 1)
				k.flush()
			}
		},
	})
}
