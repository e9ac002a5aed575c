package machine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const g4YAML = `name: g4-test
trace: { file: run.trace }
buses:
  - name: adb
    type: adb-bus
devices:
  - type: via-timer
    id: via
    mmio: { base: 0xf3016000, size: 0x2000 }
    irq: 18
  - type: adb-keyboard
    bus: adb
  - type: adb-mouse
    bus: adb
`

func TestParse(t *testing.T) {
	desc, err := Parse([]byte(g4YAML))
	require.NoError(t, err)

	assert.Equal(t, "g4-test", desc.Name)
	assert.Equal(t, "run.trace", desc.Trace.File)

	require.Len(t, desc.Buses, 1)
	assert.Equal(t, BusSpec{Name: "adb", Type: "adb-bus", Line: 4}, desc.Buses[0])

	require.Len(t, desc.Devices, 3)
	via := desc.Devices[0]
	assert.Equal(t, "via-timer", via.Type)
	assert.Equal(t, "via", via.ID)
	assert.Equal(t, &MMIOSpec{Base: 0xf3016000, Size: 0x2000}, via.MMIO)
	require.NotNil(t, via.IRQ)
	assert.Equal(t, 18, *via.IRQ)
	assert.Equal(t, 7, via.Line)

	assert.Equal(t, "adb", desc.Devices[1].Bus)
	assert.Nil(t, desc.Devices[1].IRQ)
	assert.Equal(t, 11, desc.Devices[1].Line)
	assert.Equal(t, 13, desc.Devices[2].Line)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want []string
	}{
		{
			name: "duplicate id",
			yaml: "devices:\n  - type: a\n    id: x\n  - type: b\n    id: x\n",
			want: []string{`line 4: devices[1]: duplicate id "x"`},
		},
		{
			name: "unknown bus",
			yaml: "devices:\n  - type: a\n    bus: nope\n",
			want: []string{`line 2: devices[0]: unknown bus "nope"`},
		},
		{
			name: "embedded bus of later device",
			yaml: "devices:\n  - type: a\n    bus: c/adb.0\n  - type: cuda\n    id: c\n",
			want: []string{`refers to unknown or later device "c"`},
		},
		{
			name: "overlapping windows",
			yaml: "devices:\n  - type: a\n    mmio: {base: 0x1000, size: 0x100}\n  - type: b\n    mmio: {base: 0x10ff, size: 0x10}\n",
			want: []string{"line 4: devices[1]: mmio window 0x10ff+0x10 overlaps line 2"},
		},
		{
			name: "empty window",
			yaml: "devices:\n  - type: a\n    mmio: {base: 0x1000, size: 0}\n",
			want: []string{"empty mmio window"},
		},
		{
			name: "wrapping window",
			yaml: "devices:\n  - type: a\n    mmio: {base: 0xfffffffffffff000, size: 0x2000}\n",
			want: []string{"wraps the address space"},
		},
		{
			name: "negative irq",
			yaml: "devices:\n  - type: a\n    irq: -1\n",
			want: []string{"negative irq -1"},
		},
		{
			name: "bus problems",
			yaml: "buses:\n  - type: adb-bus\n  - name: a/b\n    type: adb-bus\n  - name: x\n  - name: x\n    type: t\n",
			want: []string{
				"line 2: buses[0]: missing name",
				`line 3: buses[1]: name "a/b" must not contain '/'`,
				"line 5: buses[2]: missing type",
				`line 6: buses[3]: duplicate bus "x"`,
			},
		},
		{
			name: "missing device type",
			yaml: "devices:\n  - id: v\n",
			want: []string{"line 2: devices[0]: missing type"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}

			var ve *ValidationError
			assert.True(t, errors.As(err, &ve))
		})
	}
}

func TestParseAdjacentWindows(t *testing.T) {
	_, err := Parse([]byte("devices:\n  - type: a\n    mmio: {base: 0x1000, size: 0x100}\n  - type: b\n    mmio: {base: 0x1100, size: 0x100}\n"))
	assert.NoError(t, err)
}

func TestParseSyntaxError(t *testing.T) {
	_, err := Parse([]byte("devices: [\n"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g4.yaml")
	require.NoError(t, os.WriteFile(path, []byte(g4YAML), 0o644))

	desc, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, desc.Devices, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSplitBusRef(t *testing.T) {
	id, bus, ok := SplitBusRef("cuda/adb.0")
	assert.True(t, ok)
	assert.Equal(t, "cuda", id)
	assert.Equal(t, "adb.0", bus)

	_, _, ok = SplitBusRef("adb")
	assert.False(t, ok)
}
