// Command devrt-inspect builds a machine from a YAML description and opens
// an interactive shell over its device tree.
//
// Usage:
//
//	devrt-inspect [flags]
//
// Flags:
//
//	-machine string     Machine description file (required)
//	-clock string       Time source: manual, host (default "manual")
//	-trace string       Trace file (overrides trace.file in the description)
//	-exec string        Run ';'-separated commands and exit instead of prompting
//	-log-level string   Log level: debug, info, warn, error (default "info")
//	-log-format string  Log format: text, json (default "text")
//
// Examples:
//
//	# Explore a machine, stepping virtual time by hand
//	devrt-inspect -machine g4.yaml
//
//	# Let timers run against host time and record a trace
//	devrt-inspect -machine g4.yaml -clock host -trace run.trace
//
//	# Script a key press and read the result
//	devrt-inspect -machine g4.yaml -exec "key a; poll cuda/adb.0"
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/pearpc/devrt/cmd/devrt-inspect/interactive"
	"github.com/pearpc/devrt/pkg/examples"
	"github.com/pearpc/devrt/pkg/input"
	"github.com/pearpc/devrt/pkg/inspect"
	"github.com/pearpc/devrt/pkg/irq"
	"github.com/pearpc/devrt/pkg/machine"
	"github.com/pearpc/devrt/pkg/mmio"
	"github.com/pearpc/devrt/pkg/qom"
	"github.com/pearpc/devrt/pkg/timer"
	"github.com/pearpc/devrt/pkg/trace"
)

// Config holds the command-line configuration.
type Config struct {
	MachineFile string
	Clock       string
	TraceFile   string
	Exec        string
	LogLevel    string
	LogFormat   string
}

var config Config

func init() {
	flag.StringVar(&config.MachineFile, "machine", "", "Machine description file (required)")
	flag.StringVar(&config.Clock, "clock", "manual", "Time source: manual, host")
	flag.StringVar(&config.TraceFile, "trace", "", "Trace file (overrides trace.file in the description)")
	flag.StringVar(&config.Exec, "exec", "", "Run ';'-separated commands and exit instead of prompting")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&config.LogFormat, "log-format", "text", "Log format: text, json")
}

// logOutput lets log output move to the readline writer once the shell
// exists.
type logOutput struct {
	mu sync.Mutex
	w  io.Writer
}

func (o *logOutput) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.w.Write(p)
}

func (o *logOutput) set(w io.Writer) {
	o.mu.Lock()
	o.w = w
	o.mu.Unlock()
}

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	if err := validateConfig(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	out := &logOutput{w: os.Stderr}
	logger, err := newLogger(out, config.LogLevel, config.LogFormat)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	slog.SetDefault(logger)

	desc, err := machine.Load(config.MachineFile)
	if err != nil {
		log.Fatalf("Failed to load machine: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := build(ctx, desc, logger)
	if err != nil {
		log.Fatalf("Failed to build machine: %v", err)
	}
	defer rt.Close()

	log.Printf("Machine %q: %d device(s), clock %s", rt.machine.Name, len(rt.machine.Entries()), config.Clock)

	if config.Exec != "" {
		runScript(ctx, rt, os.Stdout)
		return
	}

	shell, err := interactive.New(rt.shellConfig())
	if err != nil {
		log.Fatalf("Failed to start shell: %v", err)
	}
	out.set(shell.Stdout())
	log.SetOutput(shell.Stdout())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	shell.Run(ctx, cancel)
}

func validateConfig() error {
	if config.MachineFile == "" {
		return errors.New("-machine is required")
	}
	switch config.Clock {
	case "manual", "host":
	default:
		return fmt.Errorf("clock must be manual or host, got %q", config.Clock)
	}
	return nil
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q (valid: text, json)", format)
}

// session holds everything built for one machine.
type session struct {
	registry  *qom.Registry
	scheduler *timer.Scheduler
	clock     *timer.ManualClock
	router    *input.Router
	irqs      *irq.Recorder
	mmio      *mmio.Dispatcher
	machine   *machine.Machine
	traceFile *trace.FileLogger
}

func build(ctx context.Context, desc *machine.Description, logger *slog.Logger) (*session, error) {
	rt := &session{irqs: irq.NewRecorder()}

	var tl trace.Logger = trace.NewSlogAdapter(logger)
	path := config.TraceFile
	if path == "" {
		path = desc.Trace.File
	}
	if path != "" {
		fl, err := trace.NewFileLogger(path)
		if err != nil {
			return nil, fmt.Errorf("open trace file: %w", err)
		}
		rt.traceFile = fl
		tl = trace.NewMultiLogger(fl, tl)
	}

	var clock timer.Clock = timer.NewHostClock()
	if config.Clock == "manual" {
		rt.clock = timer.NewManualClock(0)
		clock = rt.clock
	}

	rt.scheduler = timer.NewScheduler(timer.Config{Clock: clock, Logger: logger, Trace: tl})
	rt.router = input.NewRouter(input.Config{Logger: logger, Trace: tl})
	rt.mmio = mmio.NewDispatcher(mmio.Config{Logger: logger, Trace: tl})
	rt.registry = qom.NewRegistry(qom.Config{Logger: logger, Trace: tl})

	if err := rt.registry.Install(examples.Module{Env: &examples.Env{
		Scheduler: rt.scheduler,
		Input:     rt.router,
		Logger:    logger,
	}}); err != nil {
		rt.Close()
		return nil, err
	}

	m, err := machine.Build(ctx, machine.Env{
		Registry: rt.registry,
		IRQ:      rt.irqs,
		MMIO:     rt.mmio,
		Logger:   logger,
		Trace:    tl,
	}, desc)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.machine = m
	return rt, nil
}

func (rt *session) shellConfig() interactive.Config {
	return interactive.Config{
		Inspector: inspect.NewInspector(inspect.Config{
			Registry:  rt.registry,
			Machine:   rt.machine,
			Scheduler: rt.scheduler,
			MMIO:      rt.mmio,
		}),
		Router:    rt.router,
		Scheduler: rt.scheduler,
		IRQ:       rt.irqs,
		MMIO:      rt.mmio,
		Clock:     rt.clock,
	}
}

// Close stops timer dispatch and flushes the trace file.
func (rt *session) Close() {
	if rt.scheduler != nil && rt.scheduler.Running() {
		if err := rt.scheduler.Stop(); err != nil {
			log.Printf("Error stopping scheduler: %v", err)
		}
	}
	if rt.traceFile != nil {
		if n := rt.traceFile.Dropped(); n > 0 {
			log.Printf("Warning: %d trace event(s) dropped", n)
		}
		if err := rt.traceFile.Close(); err != nil {
			log.Printf("Error closing trace file: %v", err)
		}
	}
}

func runScript(ctx context.Context, rt *session, w io.Writer) {
	shell := interactive.NewScript(rt.shellConfig(), w)
	for _, line := range strings.Split(config.Exec, ";") {
		fmt.Fprintf(w, "devrt> %s\n", strings.TrimSpace(line))
		if !shell.Exec(ctx, line) {
			return
		}
	}
}
