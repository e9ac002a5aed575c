package inspect

import (
	"strings"
	"testing"

	"github.com/pearpc/devrt/pkg/qdev"
	"github.com/pearpc/devrt/pkg/timer"
)

func TestFormatNs(t *testing.T) {
	tests := []struct {
		ns       int64
		expected string
	}{
		{0, "0ns"},
		{999, "999ns"},
		{21702, "21.702us"},
		{1_500_000, "1.500ms"},
		{2_000_000_000, "2.000s"},
		{-5_000, "-5.000us"},
	}
	for _, tt := range tests {
		if got := FormatNs(tt.ns); got != tt.expected {
			t.Errorf("FormatNs(%d) = %q, want %q", tt.ns, got, tt.expected)
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		v        uint64
		size     uint
		expected string
	}{
		{0xc0, 1, "0xc0"},
		{0x5, 1, "0x05"},
		{0x1234, 4, "0x00001234"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.v, tt.size); got != tt.expected {
			t.Errorf("FormatValue(%#x, %d) = %q, want %q", tt.v, tt.size, got, tt.expected)
		}
	}
}

func TestFormatRange(t *testing.T) {
	if got := FormatRange(0xf3016000, 0x2000); got != "0xf3016000-0xf3017fff" {
		t.Errorf("FormatRange = %q", got)
	}
}

func TestIndent(t *testing.T) {
	f := &Formatter{}
	if got := f.Indent(2, "x"); got != "    x" {
		t.Errorf("Indent with default width = %q", got)
	}
	f.IndentWidth = 3
	if got := f.Indent(1, "x"); got != "   x" {
		t.Errorf("Indent with width 3 = %q", got)
	}
}

func TestFormatTypes(t *testing.T) {
	f := NewFormatter()
	roots := []*TypeNode{
		{Name: "device", Children: []*TypeNode{
			{Name: "adb-device", Abstract: true, Children: []*TypeNode{
				{Name: "adb-keyboard"},
			}},
		}},
		{Name: "bus"},
	}
	expected := "device\n  adb-device (abstract)\n    adb-keyboard\nbus\n"
	if got := f.FormatTypes(roots); got != expected {
		t.Errorf("FormatTypes =\n%s\nwant\n%s", got, expected)
	}
	if got := f.FormatTypes(nil); got != "(no types)\n" {
		t.Errorf("FormatTypes(nil) = %q", got)
	}
}

func TestFormatMachine(t *testing.T) {
	f := NewFormatter()
	tree := &MachineTree{
		Name: "g4",
		Buses: []BusInfo{
			{Name: "adb", Type: "adb-bus", Children: []DeviceInfo{
				{Type: "adb-keyboard", Label: "kbd", Realized: true, Desc: "ADB keyboard", Categories: qdev.CategoryInput},
			}},
			{Name: "spare", Type: "adb-bus"},
		},
		Roots: []DeviceInfo{
			{Type: "via-timer", Label: "via", Realized: true,
				Region: &RegionInfo{Name: "via", Size: 0x2000, Base: 0xf3016000, Mapped: true}},
			{Type: "cuda", Region: &RegionInfo{Name: "cuda", Size: 0x2000}},
		},
	}
	out := f.FormatMachine(tree)

	for _, want := range []string{
		"machine g4\n",
		"  bus adb [adb-bus]\n",
		"    kbd: adb-keyboard\n",
		"      class: ADB keyboard [input]\n",
		"  bus spare [adb-bus]\n    (empty)\n",
		"  sysbus\n",
		"    via: via-timer\n",
		"      mmio via: 0xf3016000-0xf3017fff\n",
		"    cuda (unrealized)\n",
		"      mmio cuda: size 0x2000 (unmapped)\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatMachineShowIDs(t *testing.T) {
	f := NewFormatter()
	f.ShowIDs = true
	f.ShowClass = false
	out := f.FormatDevice(DeviceInfo{Type: "via-timer", UUID: "abc", Realized: true, Desc: "hidden"})
	if out != "via-timer abc\n" {
		t.Errorf("FormatDevice = %q", out)
	}
}

func TestFormatTimers(t *testing.T) {
	f := NewFormatter()
	out := f.FormatTimers(&TimerInfo{
		NowNs: 1000,
		Stats: timer.Stats{Created: 2, Armed: 3, Fired: 1, Active: 1},
		Armed: []timer.ArmedTimer{{ID: 2, ExpiresNs: 22702, Seq: 3}},
	})
	for _, want := range []string{
		"now 1.000us\n",
		"created 2, armed 3, fired 1, canceled 0, active 1\n",
		"  timer 2 at 22.702us (in 21.702us, seq 3)\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	empty := f.FormatTimers(&TimerInfo{})
	if !strings.Contains(empty, "(no armed timers)") {
		t.Errorf("empty output = %q", empty)
	}
}
