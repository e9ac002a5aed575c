package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/pearpc/devrt/pkg/trace"
)

// Stats holds aggregate statistics about a trace file.
type Stats struct {
	TotalEvents      int
	EventsByCategory map[trace.Category]int
	EventsByOp       map[trace.Op]int
	EventsByType     map[string]int
	Objects          map[string]struct{}
	IRQRaises        map[int]int
	MaxLateNs        int64
	Errors           int
	VirtualEnd       int64
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// CollectStats reads every event in the trace file at path.
func CollectStats(path string) (*Stats, error) {
	reader, err := trace.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByCategory: make(map[trace.Category]int),
		EventsByOp:       make(map[trace.Op]int),
		EventsByType:     make(map[string]int),
		Objects:          make(map[string]struct{}),
		IRQRaises:        make(map[int]int),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByCategory[event.Category]++
		stats.EventsByOp[event.Op]++
		if event.TypeName != "" {
			stats.EventsByType[event.TypeName]++
		}
		if event.ObjectID != "" {
			stats.Objects[event.ObjectID] = struct{}{}
		}

		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}
		stats.VirtualEnd = max(stats.VirtualEnd, event.VirtualNs)

		if event.Timer != nil && event.Op == trace.OpTimerFire {
			stats.MaxLateNs = max(stats.MaxLateNs, event.Timer.LateNs)
		}
		if event.IRQ != nil && event.Op == trace.OpIRQRaise {
			stats.IRQRaises[event.IRQ.Line]++
		}
		if event.Error != nil {
			stats.Errors++
		}
	}
	return stats, nil
}

// RunStats analyzes the trace file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Device Runtime Trace Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range:   %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Virtual Time: %s\n", formatVirtual(stats.VirtualEnd))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintf(w, "Objects:      %d\n", len(stats.Objects))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for c := trace.CategoryType; c <= trace.CategoryInput; c++ {
		if count := stats.EventsByCategory[c]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", c.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Op:")
	for op := trace.Op(0); op.String() != "UNKNOWN"; op++ {
		if count := stats.EventsByOp[op]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", op.String()+":", count)
		}
	}

	if len(stats.EventsByType) > 0 {
		types := make([]string, 0, len(stats.EventsByType))
		for name := range stats.EventsByType {
			types = append(types, name)
		}
		sort.Slice(types, func(i, j int) bool {
			if stats.EventsByType[types[i]] != stats.EventsByType[types[j]] {
				return stats.EventsByType[types[i]] > stats.EventsByType[types[j]]
			}
			return types[i] < types[j]
		})

		fmt.Fprintln(w)
		fmt.Fprintln(w, "Events by Type:")
		for _, name := range types {
			fmt.Fprintf(w, "  %-14s %d\n", name+":", stats.EventsByType[name])
		}
	}

	if len(stats.IRQRaises) > 0 {
		lines := make([]int, 0, len(stats.IRQRaises))
		for n := range stats.IRQRaises {
			lines = append(lines, n)
		}
		sort.Ints(lines)

		fmt.Fprintln(w)
		fmt.Fprintln(w, "IRQ Raises:")
		for _, n := range lines {
			fmt.Fprintf(w, "  line %-9d %d\n", n, stats.IRQRaises[n])
		}
	}

	if stats.MaxLateNs > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Max Timer Lateness: %s\n", formatVirtual(stats.MaxLateNs))
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
