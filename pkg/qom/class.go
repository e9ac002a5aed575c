package qom

// Class is implemented by every class singleton. Concrete class structs
// embed ObjectClass (directly or through a parent class struct).
type Class interface {
	Class() *ObjectClass
}

// ObjectClass is the root of every class struct.
type ObjectClass struct {
	info *TypeInfo
}

// Class returns the embedded ObjectClass.
func (c *ObjectClass) Class() *ObjectClass {
	return c
}

// TypeInfo returns the descriptor of the type this class belongs to.
func (c *ObjectClass) TypeInfo() *TypeInfo {
	return c.info
}

// TypeName returns the name of the type this class belongs to.
func (c *ObjectClass) TypeName() string {
	if c.info == nil {
		return ""
	}
	return c.info.Name
}
