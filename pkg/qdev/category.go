package qdev

import "strings"

// Category is a bitset of device categories.
type Category uint16

const (
	CategoryBridge Category = 1 << iota
	CategoryUSB
	CategoryStorage
	CategoryNetwork
	CategoryInput
	CategoryDisplay
	CategorySound
	CategoryMisc
	CategoryCPU
)

var categoryNames = []struct {
	c    Category
	name string
}{
	{CategoryBridge, "bridge"},
	{CategoryUSB, "usb"},
	{CategoryStorage, "storage"},
	{CategoryNetwork, "network"},
	{CategoryInput, "input"},
	{CategoryDisplay, "display"},
	{CategorySound, "sound"},
	{CategoryMisc, "misc"},
	{CategoryCPU, "cpu"},
}

// Has reports whether every bit of c is set.
func (cs Category) Has(c Category) bool {
	return cs&c == c
}

// String returns the set categories joined by "|".
func (cs Category) String() string {
	if cs == 0 {
		return "none"
	}
	var parts []string
	for _, n := range categoryNames {
		if cs.Has(n.c) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}
