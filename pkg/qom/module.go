package qom

import "sync"

// Module is a set of types registered together.
type Module interface {
	Register(r *Registry) error
}

// ModuleFunc adapts a function to the Module interface.
type ModuleFunc func(r *Registry) error

// Register calls f(r).
func (f ModuleFunc) Register(r *Registry) error {
	return f(r)
}

// Builtin type names.
const (
	TypeDevice       = "device"
	TypeBus          = "bus"
	TypeSysBusDevice = "sys-bus-device"
)

func builtinTypes() []*TypeInfo {
	return []*TypeInfo{
		{Name: TypeDevice},
		{Name: TypeBus},
		{Name: TypeSysBusDevice, Parent: TypeDevice},
	}
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	return NewRegistry(DefaultConfig())
})

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry()
}
