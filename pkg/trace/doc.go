// Package trace provides a machine-readable event trace for the device runtime.
//
// The trace is separate from operational logging (slog). It records every
// type registration, object creation, device lifecycle step, timer operation,
// interrupt line change and input event as a structured Event, so that a run
// can be replayed and analyzed after the fact.
//
// # Basic Usage
//
// Components accept a Logger through their Config:
//
//	// For development: trace to console via slog
//	cfg.Trace = trace.NewSlogAdapter(slog.Default())
//
//	// For analysis: write to a binary trace file
//	cfg.Trace, _ = trace.NewFileLogger("/tmp/machine.trace")
//
//	// Both
//	cfg.Trace = trace.NewMultiLogger(
//	    trace.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # File Format
//
// Trace files are a stream of CBOR-encoded events. The devrt-trace tool
// provides viewing and statistics.
package trace
