package trace

import (
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Event is a single runtime trace record.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp is the wall-clock time the event was recorded.
	Timestamp time.Time `cbor:"1,keyasint"`

	// VirtualNs is the emulated clock at the time of the event, if known.
	VirtualNs int64 `cbor:"2,keyasint,omitempty"`

	// Category classifies the subsystem that produced the event.
	Category Category `cbor:"3,keyasint"`

	// Op is the operation performed.
	Op Op `cbor:"4,keyasint"`

	// TypeName is the object type involved, if any.
	TypeName string `cbor:"5,keyasint,omitempty"`

	// ObjectID identifies the instance (UUID) involved, if any.
	ObjectID string `cbor:"6,keyasint,omitempty"`

	// Related names a second type: a parent type for registrations,
	// the bus type for attach and create events.
	Related string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (at most one of these is set).
	Timer *TimerEvent     `cbor:"8,keyasint,omitempty"`
	IRQ   *IRQEvent       `cbor:"9,keyasint,omitempty"`
	Input *InputEvent     `cbor:"10,keyasint,omitempty"`
	Error *ErrorEventData `cbor:"11,keyasint,omitempty"`
	MMIO  *MMIOEvent      `cbor:"12,keyasint,omitempty"`
}

// Category identifies the subsystem that produced an event.
type Category uint8

const (
	// CategoryType covers type registration and class initialization.
	CategoryType Category = 0
	// CategoryObject covers instance creation and initialization.
	CategoryObject Category = 1
	// CategoryDevice covers attach, realize and reset.
	CategoryDevice Category = 2
	// CategoryTimer covers timer creation, arming, cancellation and firing.
	CategoryTimer Category = 3
	// CategoryIRQ covers interrupt line changes.
	CategoryIRQ Category = 4
	// CategoryInput covers keyboard and mouse events.
	CategoryInput Category = 5
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryType:
		return "TYPE"
	case CategoryObject:
		return "OBJECT"
	case CategoryDevice:
		return "DEVICE"
	case CategoryTimer:
		return "TIMER"
	case CategoryIRQ:
		return "IRQ"
	case CategoryInput:
		return "INPUT"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory converts a category name (case-sensitive, as printed by
// String) back to a Category.
func ParseCategory(s string) (Category, bool) {
	for c := CategoryType; c <= CategoryInput; c++ {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// Op identifies the operation recorded by an event.
type Op uint8

const (
	OpRegister Op = iota
	OpClassInit
	OpCreate
	OpInitChild
	OpAttach
	OpRealize
	OpReset
	OpTimerCreate
	OpTimerArm
	OpTimerCancel
	OpTimerDelete
	OpTimerFire
	OpIRQRaise
	OpIRQLower
	OpKey
	OpMouse
	OpMMIORead
	OpMMIOWrite
)

var opNames = [...]string{
	OpRegister:    "REGISTER",
	OpClassInit:   "CLASS_INIT",
	OpCreate:      "CREATE",
	OpInitChild:   "INIT_CHILD",
	OpAttach:      "ATTACH",
	OpRealize:     "REALIZE",
	OpReset:       "RESET",
	OpTimerCreate: "TIMER_CREATE",
	OpTimerArm:    "TIMER_ARM",
	OpTimerCancel: "TIMER_CANCEL",
	OpTimerDelete: "TIMER_DELETE",
	OpTimerFire:   "TIMER_FIRE",
	OpIRQRaise:    "IRQ_RAISE",
	OpIRQLower:    "IRQ_LOWER",
	OpKey:         "KEY",
	OpMouse:       "MOUSE",
	OpMMIORead:    "MMIO_READ",
	OpMMIOWrite:   "MMIO_WRITE",
}

// String returns the operation name.
func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "UNKNOWN"
}

// TimerEvent carries timer details.
type TimerEvent struct {
	// TimerID is the scheduler-assigned timer number.
	TimerID uint64 `cbor:"1,keyasint"`

	// ExpiresNs is the absolute virtual-time expiry.
	ExpiresNs int64 `cbor:"2,keyasint,omitempty"`

	// Seq is the arming sequence number.
	Seq uint64 `cbor:"3,keyasint,omitempty"`

	// LateNs is how far past its expiry a timer fired.
	LateNs int64 `cbor:"4,keyasint,omitempty"`
}

// IRQEvent carries an interrupt line change.
type IRQEvent struct {
	Line  int  `cbor:"1,keyasint"`
	Level bool `cbor:"2,keyasint"`
}

// InputEvent carries a keyboard or mouse event.
type InputEvent struct {
	QCode   int  `cbor:"1,keyasint,omitempty"`
	Down    bool `cbor:"2,keyasint,omitempty"`
	DX      int  `cbor:"3,keyasint,omitempty"`
	DY      int  `cbor:"4,keyasint,omitempty"`
	Buttons int  `cbor:"5,keyasint,omitempty"`

	// Handlers is the number of handlers the event was delivered to.
	Handlers int `cbor:"6,keyasint"`
}

// MMIOEvent carries a memory-mapped I/O access.
type MMIOEvent struct {
	// Addr is the absolute guest physical address.
	Addr  uint64 `cbor:"1,keyasint"`
	Size  uint   `cbor:"2,keyasint"`
	Value uint64 `cbor:"3,keyasint"`
}

// ErrorEventData captures a failure reported by an operation.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"2,keyasint,omitempty"`
}

// ErrorData builds an ErrorEventData from err, or returns nil for a nil error.
func ErrorData(err error, context string) *ErrorEventData {
	if err == nil {
		return nil
	}
	return &ErrorEventData{Message: err.Error(), Context: context}
}

// Events are written with canonical map ordering and definite lengths so
// that identical events produce identical bytes.
var (
	encMode = mustMode[cbor.EncMode](cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode())
	decMode = mustMode[cbor.DecMode](cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}.DecMode())
)

func mustMode[M any](m M, err error) M {
	if err != nil {
		panic(fmt.Sprintf("trace: cbor mode: %v", err))
	}
	return m
}

// Marshal returns the CBOR encoding of e.
func Marshal(e Event) ([]byte, error) {
	return encMode.Marshal(e)
}

// Unmarshal decodes one CBOR-encoded event.
func Unmarshal(data []byte) (Event, error) {
	var e Event
	if err := decMode.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	return e, nil
}

func newStreamEncoder(w io.Writer) *cbor.Encoder { return encMode.NewEncoder(w) }

func newStreamDecoder(r io.Reader) *cbor.Decoder { return decMode.NewDecoder(r) }
