// Package qom implements the device object model: a process-wide registry of
// named types, one class singleton per concrete type, and instances whose
// initialization follows the inheritance chain of their type.
//
// # Type Hierarchy
//
// Every type is described by a TypeInfo naming its parent. Types form a
// single-rooted tree per root:
//
//	device
//	├── sys-bus-device
//	│   └── via-timer
//	└── adb-device (abstract)
//	    ├── adb-keyboard
//	    └── adb-mouse
//	bus
//	└── adb-bus
//
// # Classes
//
// A class singleton is created zeroed when its type is registered and is
// populated by a single pass over the whole registry, run at most once, on
// the first FindClass or Create. For a type T with parent P the pass:
//
//  1. applies P's ClassInit to T's class (the inherited baseline)
//  2. runs the ClassBaseInit hook of every ancestor, nearest first
//  3. applies T's own ClassInit, which may override anything inherited
//
// Registration is closed once the pass has started.
//
// # Instances
//
// Create allocates a zero instance through the type's factory, binds it to
// the class singleton and runs InstanceInit for every type in the chain,
// root first, followed by InstancePostInit in the same order.
//
// Instances embed Instance, which carries the class, a Kind tag used for
// checked downcasts, a back-reference to the outermost object, an unowned
// container reference and a UUID used by tracing and inspection.
package qom
