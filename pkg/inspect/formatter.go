package inspect

import (
	"fmt"
	"strings"

	"github.com/pearpc/devrt/pkg/mmio"
)

// Formatter formats inspection output.
type Formatter struct {
	// ShowIDs includes object UUIDs
	ShowIDs bool

	// ShowClass includes class descriptions and categories
	ShowClass bool

	// IndentWidth is the number of spaces per indent level
	IndentWidth int
}

// NewFormatter creates a new Formatter with default settings.
func NewFormatter() *Formatter {
	return &Formatter{
		ShowIDs:     false,
		ShowClass:   true,
		IndentWidth: 2,
	}
}

// Indent returns the content with indentation.
func (f *Formatter) Indent(depth int, content string) string {
	width := f.IndentWidth
	if width == 0 {
		width = 2
	}
	indent := strings.Repeat(" ", depth*width)
	return indent + content
}

// FormatTypes formats the type hierarchy.
func (f *Formatter) FormatTypes(roots []*TypeNode) string {
	if len(roots) == 0 {
		return "(no types)\n"
	}
	var sb strings.Builder
	var walk func(n *TypeNode, depth int)
	walk = func(n *TypeNode, depth int) {
		line := n.Name
		if n.Abstract {
			line += " (abstract)"
		}
		sb.WriteString(f.Indent(depth, line))
		sb.WriteString("\n")
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	for _, r := range roots {
		walk(r, 0)
	}
	return sb.String()
}

// FormatMachine formats the device tree.
func (f *Formatter) FormatMachine(tree *MachineTree) string {
	var sb strings.Builder
	name := tree.Name
	if name == "" {
		name = "(unnamed)"
	}
	sb.WriteString("machine " + name + "\n")
	for _, b := range tree.Buses {
		f.writeBus(&sb, b, 1)
	}
	if len(tree.Roots) > 0 {
		sb.WriteString(f.Indent(1, "sysbus\n"))
		for _, d := range tree.Roots {
			f.writeDevice(&sb, d, 2)
		}
	}
	return sb.String()
}

// FormatDevice formats one device and its embedded buses.
func (f *Formatter) FormatDevice(info DeviceInfo) string {
	var sb strings.Builder
	f.writeDevice(&sb, info, 0)
	return sb.String()
}

func (f *Formatter) writeBus(sb *strings.Builder, b BusInfo, depth int) {
	fmt.Fprintf(sb, "%s\n", f.Indent(depth, fmt.Sprintf("bus %s [%s]", b.Name, b.Type)))
	if len(b.Children) == 0 {
		sb.WriteString(f.Indent(depth+1, "(empty)\n"))
	}
	for _, d := range b.Children {
		f.writeDevice(sb, d, depth+1)
	}
}

func (f *Formatter) writeDevice(sb *strings.Builder, d DeviceInfo, depth int) {
	line := d.Type
	if d.Label != "" {
		line = d.Label + ": " + line
	}
	if !d.Realized {
		line += " (unrealized)"
	}
	if f.ShowIDs {
		line += " " + d.UUID
	}
	sb.WriteString(f.Indent(depth, line))
	sb.WriteString("\n")

	if f.ShowClass && d.Desc != "" {
		sb.WriteString(f.Indent(depth+1, fmt.Sprintf("class: %s [%s]\n", d.Desc, d.Categories)))
	}
	if r := d.Region; r != nil {
		if r.Mapped {
			sb.WriteString(f.Indent(depth+1, fmt.Sprintf("mmio %s: %s\n", r.Name, FormatRange(r.Base, r.Size))))
		} else {
			sb.WriteString(f.Indent(depth+1, fmt.Sprintf("mmio %s: size 0x%x (unmapped)\n", r.Name, r.Size)))
		}
	}
	for _, b := range d.Buses {
		f.writeBus(sb, b, depth+1)
	}
}

// FormatTimers formats a scheduler snapshot.
func (f *Formatter) FormatTimers(info *TimerInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "now %s\n", FormatNs(info.NowNs))
	fmt.Fprintf(&sb, "created %d, armed %d, fired %d, canceled %d, active %d\n",
		info.Stats.Created, info.Stats.Armed, info.Stats.Fired, info.Stats.Canceled, info.Stats.Active)
	if len(info.Armed) == 0 {
		sb.WriteString(f.Indent(1, "(no armed timers)\n"))
		return sb.String()
	}
	for _, a := range info.Armed {
		due := a.ExpiresNs - info.NowNs
		sb.WriteString(f.Indent(1, fmt.Sprintf("timer %d at %s (in %s, seq %d)\n",
			a.ID, FormatNs(a.ExpiresNs), FormatNs(due), a.Seq)))
	}
	return sb.String()
}

// FormatWindows formats mmio windows.
func (f *Formatter) FormatWindows(windows []mmio.Window) string {
	if len(windows) == 0 {
		return "(no mmio windows)\n"
	}
	var sb strings.Builder
	for _, w := range windows {
		fmt.Fprintf(&sb, "%s %s\n", FormatRange(w.Base, w.Size), w.Dev.AsDevice().TypeName())
	}
	return sb.String()
}

// FormatRange formats an address range as first-last address.
func FormatRange(base, size uint64) string {
	return fmt.Sprintf("0x%08x-0x%08x", base, base+size-1)
}

// FormatNs formats a virtual-time duration in nanoseconds.
func FormatNs(ns int64) string {
	switch abs := max(ns, -ns); {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.3fs", float64(ns)/1e9)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.3fms", float64(ns)/1e6)
	case abs >= 1_000:
		return fmt.Sprintf("%.3fus", float64(ns)/1e3)
	default:
		return fmt.Sprintf("%dns", ns)
	}
}

// FormatValue formats a register value as hex padded to size bytes.
func FormatValue(v uint64, size uint) string {
	return fmt.Sprintf("0x%0*x", int(size)*2, v)
}
