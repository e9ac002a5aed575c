package input

//go:generate go run ../../cmd/devrt-keygen -keys qkeycodes.yaml -output qkeycode_gen.go

import "strings"

// String returns the qemu name of the key code.
func (k QKeyCode) String() string {
	if k < 0 || k >= QKeyCodeMax {
		return "unknown"
	}
	return qkeyNames[k].qemu
}

// PearPCName returns the PearPC display name of the key code, falling back
// to the qemu name.
func (k QKeyCode) PearPCName() string {
	if k < 0 || k >= QKeyCodeMax {
		return "unknown"
	}
	if n := qkeyNames[k].pearpc; n != "" {
		return n
	}
	return qkeyNames[k].qemu
}

// Valid reports whether k is a known key code.
func (k QKeyCode) Valid() bool {
	return k >= 0 && k < QKeyCodeMax
}

// ParseQKeyCode looks up a key code by name, case-insensitively. With
// pearpcNames set, PearPC display names are accepted too. Unknown names
// yield QKeyUnmapped.
func ParseQKeyCode(s string, pearpcNames bool) QKeyCode {
	for i, n := range qkeyNames {
		if strings.EqualFold(s, n.qemu) {
			return QKeyCode(i)
		}
		if pearpcNames && n.pearpc != "" && strings.EqualFold(s, n.pearpc) {
			return QKeyCode(i)
		}
	}
	return QKeyUnmapped
}
