// Command devrt-trace is a tool for viewing and analyzing device runtime
// trace files.
//
// Trace files are written by devrt-inspect when the machine description
// names a trace file, or by any program that wires a trace.FileLogger into
// the registry, scheduler and input router.
//
// Usage:
//
//	devrt-trace <command> [flags] <file.trace>
//
// Commands:
//
//	view     View trace file in human-readable format
//	export   Export trace file to JSON lines or CSV
//	stats    Show statistics about the trace file
//
// Examples:
//
//	# View all events
//	devrt-trace view run.trace
//
//	# View only timer firings
//	devrt-trace view -op timer_fire run.trace
//
//	# View everything the VIA did
//	devrt-trace view -type via-timer run.trace
//
//	# Export to CSV
//	devrt-trace export -format csv -o run.csv run.trace
//
//	# Show statistics
//	devrt-trace stats run.trace
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pearpc/devrt/cmd/devrt-trace/commands"
)

const usage = `devrt-trace - Device Runtime Trace Analyzer

Usage:
  devrt-trace <command> [flags] <file.trace>

Commands:
  view     View trace file in human-readable format
  export   Export trace file to JSON lines or CSV
  stats    Show statistics about the trace file

Use "devrt-trace <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `devrt-trace view - View trace file in human-readable format

Usage:
  devrt-trace view [flags] <file.trace>

Flags:
`)
		fs.PrintDefaults()
	}

	category := fs.String("category", "", "Filter by category (type, object, device, timer, irq, input)")
	op := fs.String("op", "", "Filter by operation (e.g. realize, timer_fire, key)")
	typeName := fs.String("type", "", "Filter by type name")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trace file path required")
		fs.Usage()
		os.Exit(1)
	}

	filter := commands.ViewFilter{TypeName: *typeName}

	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		filter.Category = &c
	}

	if *op != "" {
		o, err := commands.ParseOpFlag(*op)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		filter.Op = &o
	}

	if err := commands.RunView(fs.Arg(0), filter, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `devrt-trace export - Export trace file to JSON lines or CSV

Usage:
  devrt-trace export [flags] <file.trace>

Flags:
`)
		fs.PrintDefaults()
	}

	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trace file path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunExport(fs.Arg(0), *format, *output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `devrt-trace stats - Show statistics about the trace file

Usage:
  devrt-trace stats <file.trace>

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trace file path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunStats(fs.Arg(0), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
