package inspect

import (
	"errors"
	"testing"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		input    string
		segments []string
	}{
		{"via", []string{"via"}},
		{"adb/0", []string{"adb", "0"}},
		{"  cuda/adb.0/adb-keyboard ", []string{"cuda", "adb.0", "adb-keyboard"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := ParsePath(tt.input)
			if err != nil {
				t.Fatalf("ParsePath(%q) failed: %v", tt.input, err)
			}
			if len(p.Segments) != len(tt.segments) {
				t.Fatalf("segments = %v, want %v", p.Segments, tt.segments)
			}
			for i := range tt.segments {
				if p.Segments[i] != tt.segments[i] {
					t.Errorf("segment %d = %q, want %q", i, p.Segments[i], tt.segments[i])
				}
			}
			if p.String() != p.Raw {
				t.Errorf("String() = %q, want %q", p.String(), p.Raw)
			}
		})
	}
}

func TestParsePathErrors(t *testing.T) {
	tests := []struct {
		input string
		want  error
	}{
		{"", ErrEmptyPath},
		{"   ", ErrEmptyPath},
		{"/via", ErrInvalidPath},
		{"adb/", ErrInvalidPath},
		{"cuda//0", ErrInvalidPath},
	}
	for _, tt := range tests {
		_, err := ParsePath(tt.input)
		if !errors.Is(err, tt.want) {
			t.Errorf("ParsePath(%q) error = %v, want %v", tt.input, err, tt.want)
		}
	}
}

func TestParseUint(t *testing.T) {
	tests := []struct {
		input string
		bits  int
		want  uint64
		err   bool
	}{
		{"0", 8, 0, false},
		{"255", 8, 255, false},
		{"256", 8, 0, true},
		{"0x1c00", 16, 0x1c00, false},
		{"0XFF", 8, 0xff, false},
		{"0xf3016000", 64, 0xf3016000, false},
		{"abc", 64, 0, true},
		{"-1", 64, 0, true},
	}
	for _, tt := range tests {
		got, err := ParseUint(tt.input, tt.bits)
		if tt.err {
			if !errors.Is(err, ErrInvalidNumber) {
				t.Errorf("ParseUint(%q) error = %v, want ErrInvalidNumber", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseUint(%q) failed: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseUint(%q) = %#x, want %#x", tt.input, got, tt.want)
		}
	}
}
