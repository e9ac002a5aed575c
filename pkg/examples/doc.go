// Package examples provides reference device modules built on the device
// runtime.
//
// The modules show:
//   - Bus and device type registration through qom.RegisterType
//   - An abstract device class whose class init installs a default hook
//   - Subclasses that override a class hook and chain realize with
//     qdev.SetParentRealize
//   - Buses and child objects embedded by value in a device
//   - Timed interrupts through the timer scheduler and an IRQ line
//
// Available devices:
//   - adb-bus, adb-keyboard, adb-mouse: Apple Desktop Bus with a keyboard
//     and a one-button mouse fed by the input router
//   - via-timer: the timers and interrupt logic of a 6522 VIA
//   - cuda: a controller owning an ADB bus and a VIA
package examples
