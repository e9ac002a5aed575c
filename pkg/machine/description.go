// Package machine describes a machine as YAML and builds its device tree.
package machine

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every description validation error.
var ErrInvalid = errors.New("invalid machine description")

// Description is a parsed machine description.
type Description struct {
	Name    string       `yaml:"name"`
	Trace   TraceSpec    `yaml:"trace"`
	Buses   []BusSpec    `yaml:"buses"`
	Devices []DeviceSpec `yaml:"devices"`
}

// TraceSpec configures the runtime trace log.
type TraceSpec struct {
	// File is the CBOR trace file. Empty disables file tracing.
	File string `yaml:"file"`
}

// BusSpec declares a standalone bus.
type BusSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`

	Line int `yaml:"-"`
}

// DeviceSpec declares a device.
//
// Bus names a declared bus, or a bus embedded in an earlier device written
// as "<device id>/<bus name>". Devices without a bus sit on the system bus.
type DeviceSpec struct {
	Type string    `yaml:"type"`
	ID   string    `yaml:"id"`
	Bus  string    `yaml:"bus"`
	MMIO *MMIOSpec `yaml:"mmio"`
	IRQ  *int      `yaml:"irq"`

	Line int `yaml:"-"`
}

// MMIOSpec places a device's I/O region in the address space.
type MMIOSpec struct {
	Base uint64 `yaml:"base"`
	Size uint64 `yaml:"size"`
}

// End returns the first address past the window.
func (m MMIOSpec) End() uint64 {
	return m.Base + m.Size
}

// SplitBusRef splits an embedded bus reference into device id and bus
// name. ok is false for plain bus names.
func SplitBusRef(ref string) (deviceID, busName string, ok bool) {
	return strings.Cut(ref, "/")
}

// ValidationError reports one problem in a description.
type ValidationError struct {
	Line    int
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

// Load reads and parses a description file.
func Load(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	desc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return desc, nil
}

// Parse parses and validates a description.
func Parse(data []byte) (*Description, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	var desc Description
	if err := root.Decode(&desc); err != nil {
		return nil, fmt.Errorf("YAML decode error: %w", err)
	}

	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		doc := root.Content[0]
		if doc.Kind == yaml.MappingNode {
			for i := 0; i < len(doc.Content)-1; i += 2 {
				key, value := doc.Content[i], doc.Content[i+1]
				if value.Kind != yaml.SequenceNode {
					continue
				}
				switch key.Value {
				case "buses":
					for j, item := range value.Content {
						if j < len(desc.Buses) {
							desc.Buses[j].Line = item.Line
						}
					}
				case "devices":
					for j, item := range value.Content {
						if j < len(desc.Devices) {
							desc.Devices[j].Line = item.Line
						}
					}
				}
			}
		}
	}

	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return &desc, nil
}

// Validate checks names, references and address windows. All problems are
// reported, joined.
func (d *Description) Validate() error {
	var errs []error
	add := func(line int, field, format string, args ...any) {
		errs = append(errs, &ValidationError{Line: line, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	buses := make(map[string]bool, len(d.Buses))
	for i, b := range d.Buses {
		field := fmt.Sprintf("buses[%d]", i)
		switch {
		case b.Name == "":
			add(b.Line, field, "missing name")
		case strings.Contains(b.Name, "/"):
			add(b.Line, field, "name %q must not contain '/'", b.Name)
		case buses[b.Name]:
			add(b.Line, field, "duplicate bus %q", b.Name)
		}
		if b.Type == "" {
			add(b.Line, field, "missing type")
		}
		buses[b.Name] = true
	}

	ids := make(map[string]bool, len(d.Devices))
	var windows []*DeviceSpec
	for i := range d.Devices {
		dev := &d.Devices[i]
		field := fmt.Sprintf("devices[%d]", i)
		if dev.Type == "" {
			add(dev.Line, field, "missing type")
		}

		if dev.Bus != "" {
			if owner, _, ok := SplitBusRef(dev.Bus); ok {
				if !ids[owner] {
					add(dev.Line, field, "bus %q refers to unknown or later device %q", dev.Bus, owner)
				}
			} else if !buses[dev.Bus] {
				add(dev.Line, field, "unknown bus %q", dev.Bus)
			}
		}

		if dev.IRQ != nil && *dev.IRQ < 0 {
			add(dev.Line, field, "negative irq %d", *dev.IRQ)
		}

		if m := dev.MMIO; m != nil {
			switch {
			case m.Size == 0:
				add(dev.Line, field, "empty mmio window")
			case m.End() < m.Base:
				add(dev.Line, field, "mmio window wraps the address space")
			default:
				for _, other := range windows {
					if m.Base < other.MMIO.End() && other.MMIO.Base < m.End() {
						add(dev.Line, field, "mmio window 0x%x+0x%x overlaps line %d", m.Base, m.Size, other.Line)
					}
				}
				windows = append(windows, dev)
			}
		}

		if dev.ID != "" {
			switch {
			case strings.Contains(dev.ID, "/"):
				add(dev.Line, field, "id %q must not contain '/'", dev.ID)
			case ids[dev.ID]:
				add(dev.Line, field, "duplicate id %q", dev.ID)
			}
			ids[dev.ID] = true
		}
	}

	return errors.Join(errs...)
}
