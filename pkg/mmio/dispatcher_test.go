package mmio

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pearpc/devrt/pkg/qdev"
	"github.com/pearpc/devrt/pkg/qom"
	"github.com/pearpc/devrt/pkg/trace"
)

type regDevice struct {
	qdev.DeviceState
	regs [16]byte
}

var regOps = &qdev.MemoryRegionOps{
	Read: func(opaque any, addr uint64, size uint) uint64 {
		return uint64(opaque.(*regDevice).regs[addr])
	},
	Write: func(opaque any, addr uint64, data uint64, size uint) {
		opaque.(*regDevice).regs[addr] = byte(data)
	},
	Valid: qdev.AccessConstraints{Min: 1, Max: 1},
}

func newRegistry(t *testing.T) *qom.Registry {
	t.Helper()
	r := qom.NewRegistry(qom.Config{Logger: slog.New(slog.DiscardHandler)})
	require.NoError(t, qom.RegisterType[qdev.DeviceClass, regDevice](r, &qom.TypeInfo{
		Name:   "reg-dev",
		Parent: qom.TypeSysBusDevice,
		ClassInit: func(cls qom.Class, _ any) {
			cls.(qdev.Class).AsDeviceClass().Realize = func(dev qdev.Device) error {
				_, err := qdev.InitIO(dev, regOps, dev, "regs", 16)
				return err
			}
		},
	}))
	require.NoError(t, qom.RegisterType[qdev.DeviceClass, regDevice](r, &qom.TypeInfo{
		Name:   "bare-dev",
		Parent: qom.TypeSysBusDevice,
	}))
	return r
}

func newDevice(t *testing.T, r *qom.Registry, typeName string) *regDevice {
	t.Helper()
	dev, err := qdev.CreateRoot(r, typeName)
	require.NoError(t, err)
	return dev.(*regDevice)
}

func TestMapAndAccess(t *testing.T) {
	r := newRegistry(t)
	d := NewDispatcher(Config{Logger: slog.New(slog.DiscardHandler)})

	a := newDevice(t, r, "reg-dev")
	b := newDevice(t, r, "reg-dev")
	require.NoError(t, d.Map(0x2000, 16, b))
	require.NoError(t, d.Map(0x1000, 16, a))

	require.NoError(t, d.Write(0x1003, 1, 0xab))
	require.NoError(t, d.Write(0x200f, 1, 0xcd))
	assert.Equal(t, byte(0xab), a.regs[3])
	assert.Equal(t, byte(0xcd), b.regs[15])

	v, err := d.Read(0x1003, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xab), v)

	ws := d.Windows()
	require.Len(t, ws, 2)
	assert.Equal(t, uint64(0x1000), ws[0].Base)
	assert.Equal(t, uint64(0x100f), ws[0].End())
}

func TestMapRejects(t *testing.T) {
	r := newRegistry(t)
	d := NewDispatcher(Config{Logger: slog.New(slog.DiscardHandler)})
	dev := newDevice(t, r, "reg-dev")
	require.NoError(t, d.Map(0x1000, 0x100, dev))

	tests := []struct {
		name string
		base uint64
		size uint64
		want error
	}{
		{"zero size", 0x5000, 0, ErrEmpty},
		{"same base", 0x1000, 0x10, ErrOverlap},
		{"inside", 0x1080, 0x10, ErrOverlap},
		{"straddles start", 0x0ff0, 0x20, ErrOverlap},
		{"straddles end", 0x10f0, 0x20, ErrOverlap},
		{"covers", 0x0f00, 0x1000, ErrOverlap},
		{"wraps", ^uint64(0) - 4, 0x10, ErrWrapAround},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, d.Map(tt.base, tt.size, dev), tt.want)
		})
	}

	assert.NoError(t, d.Map(0x1100, 0x10, dev), "adjacent window")
	assert.NoError(t, d.Map(0x0ff0, 0x10, dev), "adjacent below")

	bare := newDevice(t, r, "bare-dev")
	assert.ErrorIs(t, d.Map(0x9000, 0x10, bare), ErrNoRegion)
}

func TestLookup(t *testing.T) {
	r := newRegistry(t)
	d := NewDispatcher(Config{Logger: slog.New(slog.DiscardHandler)})
	dev := newDevice(t, r, "reg-dev")
	require.NoError(t, d.Map(0x1000, 0x10, dev))

	for _, addr := range []uint64{0x1000, 0x1008, 0x100f} {
		w, ok := d.Lookup(addr)
		assert.True(t, ok, "0x%x", addr)
		assert.Equal(t, uint64(0x1000), w.Base)
	}
	for _, addr := range []uint64{0, 0x0fff, 0x1010} {
		_, ok := d.Lookup(addr)
		assert.False(t, ok, "0x%x", addr)
	}

	_, err := d.Read(0x1010, 1)
	assert.ErrorIs(t, err, ErrUnmapped)
	assert.ErrorIs(t, d.Write(0x0, 1, 0), ErrUnmapped)
}

func TestAccessSizePropagates(t *testing.T) {
	r := newRegistry(t)
	d := NewDispatcher(Config{Logger: slog.New(slog.DiscardHandler)})
	dev := newDevice(t, r, "reg-dev")
	require.NoError(t, d.Map(0x1000, 0x10, dev))

	_, err := d.Read(0x1000, 4)
	assert.ErrorIs(t, err, qdev.ErrAccessSize)
}

type recordingTrace struct {
	mu     sync.Mutex
	events []trace.Event
}

func (r *recordingTrace) Log(e trace.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func TestDispatcherTrace(t *testing.T) {
	r := newRegistry(t)
	rec := &recordingTrace{}
	d := NewDispatcher(Config{Logger: slog.New(slog.DiscardHandler), Trace: rec})
	dev := newDevice(t, r, "reg-dev")
	require.NoError(t, d.Map(0x1000, 0x10, dev))

	require.NoError(t, d.Write(0x1002, 1, 7))
	_, err := d.Read(0x1002, 2)
	require.Error(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.events, 2)
	assert.Equal(t, trace.OpMMIOWrite, rec.events[0].Op)
	assert.Equal(t, &trace.MMIOEvent{Addr: 0x1002, Size: 1, Value: 7}, rec.events[0].MMIO)
	assert.Equal(t, "reg-dev", rec.events[0].TypeName)
	assert.Nil(t, rec.events[0].Error)
	assert.Equal(t, trace.OpMMIORead, rec.events[1].Op)
	require.NotNil(t, rec.events[1].Error)
	assert.Equal(t, "MMIO_READ", rec.events[1].Error.Context)
}
