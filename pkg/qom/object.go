package qom

import (
	"errors"

	"github.com/google/uuid"
)

// ErrAlreadyInitialized is returned when an instance is bound twice.
var ErrAlreadyInitialized = errors.New("object already initialized")

// Kind is the capability tag carried by every instance.
type Kind uint8

const (
	// KindGeneric is a plain object.
	KindGeneric Kind = iota
	// KindDevice is an object embedding a device state.
	KindDevice
	// KindBus is an object embedding a bus state.
	KindBus
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindGeneric:
		return "GENERIC"
	case KindDevice:
		return "DEVICE"
	case KindBus:
		return "BUS"
	default:
		return "UNKNOWN"
	}
}

// KindProvider is implemented by base states (device, bus) that tag the
// objects embedding them.
type KindProvider interface {
	ObjectKind() Kind
}

// Object is implemented by every instance. Concrete instance structs
// embed Instance (directly or through a device or bus state).
type Object interface {
	ObjectInstance() *Instance
}

// Instance is the root of every instance struct.
type Instance struct {
	class     Class
	self      Object
	container Object
	kind      Kind
	id        uuid.UUID
	owner     *Registry
}

// ObjectInstance returns the embedded Instance.
func (o *Instance) ObjectInstance() *Instance {
	return o
}

func (o *Instance) bind(self Object, cls Class, owner *Registry) error {
	if o.class != nil {
		return ErrAlreadyInitialized
	}
	o.class = cls
	o.self = self
	o.kind = KindGeneric
	if kp, ok := self.(KindProvider); ok {
		o.kind = kp.ObjectKind()
	}
	o.id = uuid.New()
	o.owner = owner
	return nil
}

// Registry returns the registry the instance was created from.
func (o *Instance) Registry() *Registry {
	return o.owner
}

// Initialized reports whether the instance has been bound to a class.
func (o *Instance) Initialized() bool {
	return o.class != nil
}

// Class returns the class singleton of the instance's type.
func (o *Instance) Class() Class {
	return o.class
}

// TypeInfo returns the descriptor of the instance's type.
func (o *Instance) TypeInfo() *TypeInfo {
	if o.class == nil {
		return nil
	}
	return o.class.Class().TypeInfo()
}

// TypeName returns the name of the instance's type.
func (o *Instance) TypeName() string {
	if o.class == nil {
		return ""
	}
	return o.class.Class().TypeName()
}

// Kind returns the capability tag.
func (o *Instance) Kind() Kind {
	return o.kind
}

// Self returns the outermost object embedding this instance.
func (o *Instance) Self() Object {
	return o.self
}

// ID returns the instance UUID.
func (o *Instance) ID() uuid.UUID {
	return o.id
}

// Container returns the object this instance is embedded in, if any.
// The reference is for navigation only.
func (o *Instance) Container() Object {
	return o.container
}

// SetContainer sets the container reference.
func (o *Instance) SetContainer(c Object) {
	o.container = c
}
