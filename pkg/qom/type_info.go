package qom

// TypeInfo describes one registered type.
//
// A TypeInfo is retained by the registry after registration and must not be
// modified afterwards.
type TypeInfo struct {
	// Name is the unique type name.
	Name string

	// Parent is the parent type name, empty for a root type.
	Parent string

	// InstanceSize is a size hint carried for compatibility; it is not
	// used for allocation.
	InstanceSize uintptr

	InstanceInit     func(obj Object)
	InstancePostInit func(obj Object)

	// InstanceFinalize is stored but never invoked: objects live for the
	// whole process.
	InstanceFinalize func(obj Object)

	// Abstract types cannot be instantiated.
	Abstract bool

	// ClassSize is a size hint carried for compatibility.
	ClassSize uintptr

	ClassInit     func(cls Class, data any)
	ClassBaseInit func(cls Class, data any)

	// ClassFinalize is stored but never invoked.
	ClassFinalize func(cls Class, data any)

	// ClassData is passed to ClassInit and to ancestors' ClassBaseInit hooks.
	ClassData any
}

// HasParent reports whether the type names a parent.
func (ti *TypeInfo) HasParent() bool {
	return ti.Parent != ""
}
