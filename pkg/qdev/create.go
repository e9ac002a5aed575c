package qdev

import (
	"github.com/pearpc/devrt/pkg/qom"
)

// CreateDevice creates a device of typeName, attaches it to bus and realizes
// it.
//
// If the type cannot be created or is not a device, the error is a
// *NamedDeviceNotFoundError and bus is left unchanged. If realize fails the
// device is returned together with a *RealizeError; it stays attached.
func CreateDevice(r *qom.Registry, bus Bus, typeName string) (Device, error) {
	busName := bus.AsBus().TypeName()
	dev, err := newDevice(r, typeName, busName)
	if err != nil {
		return nil, err
	}
	if err := Attach(dev, bus); err != nil {
		return nil, err
	}
	if err := dev.AsDevice().Realize(); err != nil {
		return dev, err
	}
	return dev, nil
}

// CreateRoot creates and realizes a device that sits on no bus.
func CreateRoot(r *qom.Registry, typeName string) (Device, error) {
	dev, err := newDevice(r, typeName, SysBusName)
	if err != nil {
		return nil, err
	}
	if err := dev.AsDevice().Realize(); err != nil {
		return dev, err
	}
	return dev, nil
}

func newDevice(r *qom.Registry, typeName, busName string) (Device, error) {
	obj, err := r.Create(typeName)
	if err != nil {
		return nil, &NamedDeviceNotFoundError{Type: typeName, Bus: busName, Err: err}
	}
	dev, ok := AsDevice(obj)
	if !ok {
		return nil, &NamedDeviceNotFoundError{Type: typeName, Bus: busName, Err: ErrCapabilityMismatch}
	}
	return dev, nil
}
