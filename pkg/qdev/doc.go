// Package qdev builds the device/bus tree on top of the object model.
//
// A device is any object embedding DeviceState; its class embeds DeviceClass.
// A bus is any object embedding BusState. Devices are attached to at most one
// bus and realized exactly once:
//
//	Constructed ──Realize──▶ Realized
//	     ▲  │                  ▲  │
//	     └──┘ Reset            └──┘ Reset
//
// CreateDevice combines creation, attachment and realization. Nothing in the
// tree is ever detached or destroyed: devices and buses live for the whole
// process.
package qdev
