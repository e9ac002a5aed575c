// Package commands implements the devrt-trace CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pearpc/devrt/pkg/trace"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Category *trace.Category
	Op       *trace.Op
	TypeName string
}

func (f ViewFilter) traceFilter() trace.Filter {
	return trace.Filter{Category: f.Category, Op: f.Op, TypeName: f.TypeName}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event trace.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	fmt.Fprintf(w, "%s [vt:%s] %-6s %s", ts, formatVirtual(event.VirtualNs), event.Category, event.Op)
	if event.TypeName != "" {
		fmt.Fprintf(w, " %s", event.TypeName)
	}
	if event.ObjectID != "" {
		fmt.Fprintf(w, " [obj:%s]", shortenID(event.ObjectID))
	}
	fmt.Fprintln(w)

	if event.Related != "" {
		fmt.Fprintf(w, "  Related: %s\n", event.Related)
	}

	switch {
	case event.Timer != nil:
		formatTimerDetails(w, event.Timer)
	case event.IRQ != nil:
		fmt.Fprintf(w, "  Line: %d  Level: %t\n", event.IRQ.Line, event.IRQ.Level)
	case event.Input != nil:
		formatInputDetails(w, event.Op, event.Input)
	case event.MMIO != nil:
		fmt.Fprintf(w, "  Addr: 0x%08x  Size: %d  Value: 0x%x\n", event.MMIO.Addr, event.MMIO.Size, event.MMIO.Value)
	}
	if event.Error != nil {
		formatErrorDetails(w, event.Error)
	}
}

func shortenID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatVirtual(ns int64) string {
	return formatDuration(time.Duration(ns))
}

func formatTimerDetails(w io.Writer, t *trace.TimerEvent) {
	fmt.Fprintf(w, "  Timer: %d", t.TimerID)
	if t.ExpiresNs != 0 {
		fmt.Fprintf(w, "  Expires: %s", formatVirtual(t.ExpiresNs))
	}
	if t.Seq != 0 {
		fmt.Fprintf(w, "  Seq: %d", t.Seq)
	}
	if t.LateNs != 0 {
		fmt.Fprintf(w, "  Late: %s", formatVirtual(t.LateNs))
	}
	fmt.Fprintln(w)
}

func formatInputDetails(w io.Writer, op trace.Op, in *trace.InputEvent) {
	if op == trace.OpMouse {
		fmt.Fprintf(w, "  DX: %d  DY: %d  Buttons: 0x%02x  Handlers: %d\n", in.DX, in.DY, in.Buttons, in.Handlers)
		return
	}
	state := "up"
	if in.Down {
		state = "down"
	}
	fmt.Fprintf(w, "  QCode: %d (%s)  Handlers: %d\n", in.QCode, state, in.Handlers)
}

func formatErrorDetails(w io.Writer, e *trace.ErrorEventData) {
	fmt.Fprintf(w, "  Error: %s\n", e.Message)
	if e.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", e.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	case d < time.Millisecond:
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1e3)
	case d < time.Second:
		return fmt.Sprintf("%.3fms", float64(d.Nanoseconds())/1e6)
	default:
		return fmt.Sprintf("%.3fs", d.Seconds())
	}
}

// ParseCategoryFlag parses a category name as given on the command line.
func ParseCategoryFlag(s string) (trace.Category, error) {
	c, ok := trace.ParseCategory(strings.ToUpper(s))
	if !ok {
		return 0, fmt.Errorf("invalid category: %s (valid: type, object, device, timer, irq, input)", s)
	}
	return c, nil
}

// ParseOpFlag parses an operation name such as "timer_fire" or "REALIZE".
func ParseOpFlag(s string) (trace.Op, error) {
	name := strings.ToUpper(strings.ReplaceAll(s, "-", "_"))
	for op := trace.Op(0); op.String() != "UNKNOWN"; op++ {
		if op.String() == name {
			return op, nil
		}
	}
	return 0, fmt.Errorf("invalid op: %s", s)
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := trace.NewFilteredReader(path, filter.traceFilter())
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
}
