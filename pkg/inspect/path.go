// Package inspect provides inspection utilities for a built machine.
//
// The inspect package offers a unified interface for:
//   - Parsing device paths (e.g., "cuda/adb.0/adb-keyboard")
//   - Snapshotting the type hierarchy, device tree and timer queue
//   - Reading and writing device registers
//   - Formatting output for display
package inspect

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Path errors.
var (
	ErrEmptyPath     = errors.New("empty path")
	ErrInvalidPath   = errors.New("invalid path format")
	ErrInvalidNumber = errors.New("invalid numeric value")
)

// Path addresses a device or bus in a machine.
//
// The first segment is a device id or a standalone bus name. After a device
// comes the name of one of its embedded buses; after a bus comes a child
// index or a child type name.
type Path struct {
	Segments []string

	// Raw stores the original input string.
	Raw string
}

// ParsePath parses a path string into a Path.
//
// Supported formats:
//   - "via" - device by id
//   - "adb" - standalone bus
//   - "adb/0" or "adb/adb-keyboard" - child of a bus
//   - "cuda/adb.0/1" - child of a bus embedded in a device
func ParsePath(input string) (*Path, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyPath
	}
	if strings.HasPrefix(input, "/") || strings.HasSuffix(input, "/") || strings.Contains(input, "//") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, input)
	}
	return &Path{Segments: strings.Split(input, "/"), Raw: input}, nil
}

// String returns the path as a string.
func (p *Path) String() string {
	return strings.Join(p.Segments, "/")
}

// ParseUint parses a decimal or 0x-prefixed hex number of at most bits
// bits.
func ParseUint(s string, bits int) (uint64, error) {
	var (
		v   uint64
		err error
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err = strconv.ParseUint(s[2:], 16, bits)
	} else {
		v, err = strconv.ParseUint(s, 10, bits)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidNumber, s)
	}
	return v, nil
}
