package qom

// NewFactory returns a Factory allocating a zero I.
func NewFactory[I any, PI interface {
	*I
	Object
}]() Factory {
	return func() Object {
		var inst I
		return PI(&inst)
	}
}

// RegisterType registers info with a fresh zero class C and a factory
// allocating zero instances of I.
func RegisterType[C any, I any, PC interface {
	*C
	Class
}, PI interface {
	*I
	Object
}](r *Registry, info *TypeInfo) error {
	var cls C
	var factory Factory
	if !info.Abstract {
		factory = NewFactory[I, PI]()
	}
	return r.Register(info, PC(&cls), factory)
}

// RegisterAbstract registers an abstract type with a fresh zero class C.
func RegisterAbstract[C any, PC interface {
	*C
	Class
}](r *Registry, info *TypeInfo) error {
	var cls C
	return r.Register(info, PC(&cls), nil)
}

// As returns obj's outermost object as T.
func As[T any](obj Object) (T, bool) {
	if obj == nil {
		var zero T
		return zero, false
	}
	self := obj.ObjectInstance().Self()
	if self == nil {
		self = obj
	}
	t, ok := self.(T)
	return t, ok
}

// ClassAs returns the class of obj as T.
func ClassAs[T any](obj Object) (T, bool) {
	var zero T
	if obj == nil {
		return zero, false
	}
	cls := obj.ObjectInstance().Class()
	if cls == nil {
		return zero, false
	}
	t, ok := cls.(T)
	return t, ok
}
