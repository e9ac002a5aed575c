package qdev

import (
	"errors"
	"fmt"
)

// Device tree errors.
var (
	ErrDeviceNotFound     = errors.New("device type not found")
	ErrCapabilityMismatch = errors.New("object is not of the required kind")
	ErrAlreadyAttached    = errors.New("device already attached to a bus")
	ErrNoMMIO             = errors.New("device has no memory region")
	ErrAccessSize         = errors.New("invalid access size")
	ErrOutOfRange         = errors.New("access outside memory region")
)

// SysBusName is the bus name reported for devices created without a bus.
const SysBusName = "main-system-bus"

// NamedDeviceNotFoundError reports that a device type could not be created
// for a bus. It matches ErrDeviceNotFound with errors.Is and unwraps to the
// underlying cause.
type NamedDeviceNotFoundError struct {
	Type string
	Bus  string
	Err  error
}

func (e *NamedDeviceNotFoundError) Error() string {
	msg := fmt.Sprintf("unknown device %q for bus %q", e.Type, e.Bus)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NamedDeviceNotFoundError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrDeviceNotFound.
func (e *NamedDeviceNotFoundError) Is(target error) bool {
	return target == ErrDeviceNotFound
}

// RealizeError wraps a failure reported by a device's realize hook.
type RealizeError struct {
	Type string
	Err  error
}

func (e *RealizeError) Error() string {
	return fmt.Sprintf("realize %q: %v", e.Type, e.Err)
}

func (e *RealizeError) Unwrap() error {
	return e.Err
}
