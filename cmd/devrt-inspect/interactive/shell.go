// Package interactive provides the interactive command-line interface
// for devrt-inspect.
package interactive

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/pearpc/devrt/pkg/examples"
	"github.com/pearpc/devrt/pkg/input"
	"github.com/pearpc/devrt/pkg/inspect"
	"github.com/pearpc/devrt/pkg/irq"
	"github.com/pearpc/devrt/pkg/mmio"
	"github.com/pearpc/devrt/pkg/qom"
	"github.com/pearpc/devrt/pkg/timer"
)

// maxStepRounds bounds one step command when callbacks keep re-arming at
// the current time.
const maxStepRounds = 1 << 16

// Config wires the shell to a built machine.
type Config struct {
	Inspector *inspect.Inspector
	Router    *input.Router
	Scheduler *timer.Scheduler
	IRQ       *irq.Recorder
	MMIO      *mmio.Dispatcher

	// Clock is set when the scheduler runs on manual time. It enables
	// the step command; run and stop are used otherwise.
	Clock *timer.ManualClock
}

// Shell handles interactive mode for devrt-inspect.
type Shell struct {
	cfg       Config
	inspector *inspect.Inspector
	formatter *inspect.Formatter
	rl        *readline.Instance
	out       io.Writer
}

// New creates a new interactive shell reading from the terminal.
func New(cfg Config) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "devrt> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	s := newShell(cfg, rl.Stdout())
	s.rl = rl
	return s, nil
}

// NewScript creates a shell that writes to w and never prompts. Commands
// are fed to it with Exec.
func NewScript(cfg Config, w io.Writer) *Shell {
	return newShell(cfg, w)
}

func newShell(cfg Config, out io.Writer) *Shell {
	return &Shell{
		cfg:       cfg,
		inspector: cfg.Inspector,
		formatter: inspect.NewFormatter(),
		out:       out,
	}
}

func completer() *readline.PrefixCompleter {
	names := []string{
		"help", "types", "tree", "show", "timers", "mmio", "irq",
		"read", "write", "peek", "poke", "reset",
		"key", "mouse", "adb", "poll",
		"step", "run", "stop", "quit",
	}
	items := make([]readline.PrefixCompleterInterface, 0, len(names))
	for _, n := range names {
		items = append(items, readline.PcItem(n))
	}
	return readline.NewPrefixCompleter(items...)
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (s *Shell) Stdout() io.Writer {
	return s.out
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		if !s.Exec(ctx, line) {
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Exec runs one command line. It returns false when the shell should exit.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		s.printHelp()
	case "types", "t":
		fmt.Fprint(s.out, s.formatter.FormatTypes(s.inspector.InspectTypes()))
	case "tree":
		fmt.Fprint(s.out, s.formatter.FormatMachine(s.inspector.InspectMachine()))
	case "show", "i":
		err = s.cmdShow(args)
	case "timers":
		err = s.cmdTimers()
	case "mmio":
		err = s.cmdMMIO()
	case "irq":
		s.cmdIRQ()
	case "read", "r":
		err = s.cmdRead(args)
	case "write", "w":
		err = s.cmdWrite(args)
	case "peek":
		err = s.cmdPeek(args)
	case "poke":
		err = s.cmdPoke(args)
	case "reset":
		err = s.cmdReset(args)
	case "key", "k":
		err = s.cmdKey(args)
	case "mouse", "m":
		err = s.cmdMouse(args)
	case "adb":
		err = s.cmdADB(args)
	case "poll":
		err = s.cmdPoll(args)
	case "step":
		err = s.cmdStep(args)
	case "run":
		err = s.cmdRun(ctx)
	case "stop":
		err = s.cmdStop()
	case "quit", "exit", "q":
		return false
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
	return true
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
Device Runtime Commands:
  Inspection:
    types                      - Show the type hierarchy
    tree                       - Show the machine's device tree
    show <path>                - Show one device and its buses
    timers                     - Show armed timers and scheduler counters
    mmio                       - Show mapped mmio windows
    irq                        - Show interrupt lines currently raised

  Registers:
    read <path> <off> [size]   - Read a device register
    write <path> <off> <v> [size] - Write a device register
    peek <addr> [size]         - Read through the mmio dispatcher
    poke <addr> <v> [size]     - Write through the mmio dispatcher
    reset [path]               - Reset one device, or the whole machine

  Input:
    key <name> [down|up]       - Send a key (tap when no state is given)
    mouse <dx> <dy> [l][r][m]  - Send mouse motion with buttons held
    adb <bus> <hex bytes>      - Send a raw ADB request
    poll <bus> [mask]          - Poll ADB devices for pending data

  Time:
    step <duration>            - Advance manual time (e.g. 10ms)
    run                        - Dispatch timers against host time
    stop                       - Stop host time dispatch

  General:
    help                       - Show this help
    quit                       - Exit

  Path Format:
    <id>[/<bus>/<index|type>...] or <bus>/<index|type>...
    e.g. via, adb/0, cuda/adb.0/adb-mouse`)
}

func (s *Shell) parsePath(arg string) (*inspect.Path, error) {
	p, err := inspect.ParsePath(arg)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	return p, nil
}

func parseSize(args []string, i int) (uint, error) {
	if len(args) <= i {
		return 1, nil
	}
	n, err := inspect.ParseUint(args[i], 8)
	if err != nil {
		return 0, err
	}
	switch n {
	case 1, 2, 4, 8:
		return uint(n), nil
	}
	return 0, fmt.Errorf("invalid access size %d (valid: 1, 2, 4, 8)", n)
}

func (s *Shell) cmdShow(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: show <path>")
	}
	p, err := s.parsePath(args[0])
	if err != nil {
		return err
	}
	dev, err := s.inspector.ResolveDevice(p)
	if err != nil {
		return err
	}
	fmt.Fprint(s.out, s.formatter.FormatDevice(s.inspector.InspectDevice(dev)))
	return nil
}

func (s *Shell) cmdTimers() error {
	info, err := s.inspector.InspectTimers()
	if err != nil {
		return err
	}
	fmt.Fprint(s.out, s.formatter.FormatTimers(info))
	return nil
}

func (s *Shell) cmdMMIO() error {
	windows, err := s.inspector.InspectMMIO()
	if err != nil {
		return err
	}
	fmt.Fprint(s.out, s.formatter.FormatWindows(windows))
	return nil
}

func (s *Shell) cmdIRQ() {
	if s.cfg.IRQ == nil {
		fmt.Fprintln(s.out, "(no interrupt controller)")
		return
	}
	pending := s.cfg.IRQ.Pending()
	if len(pending) == 0 {
		fmt.Fprintln(s.out, "(no raised lines)")
		return
	}
	for _, n := range pending {
		fmt.Fprintf(s.out, "line %d raised (%d raises)\n", n, s.cfg.IRQ.Raises(n))
	}
}

func (s *Shell) cmdRead(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: read <path> <offset> [size]")
	}
	p, err := s.parsePath(args[0])
	if err != nil {
		return err
	}
	off, err := inspect.ParseUint(args[1], 64)
	if err != nil {
		return err
	}
	size, err := parseSize(args, 2)
	if err != nil {
		return err
	}
	v, err := s.inspector.ReadRegister(p, off, size)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s+0x%x = %s\n", p, off, inspect.FormatValue(v, size))
	return nil
}

func (s *Shell) cmdWrite(args []string) error {
	if len(args) < 3 {
		return errors.New("usage: write <path> <offset> <value> [size]")
	}
	p, err := s.parsePath(args[0])
	if err != nil {
		return err
	}
	off, err := inspect.ParseUint(args[1], 64)
	if err != nil {
		return err
	}
	size, err := parseSize(args, 3)
	if err != nil {
		return err
	}
	v, err := inspect.ParseUint(args[2], int(size)*8)
	if err != nil {
		return err
	}
	if err := s.inspector.WriteRegister(p, off, size, v); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s+0x%x <- %s\n", p, off, inspect.FormatValue(v, size))
	return nil
}

func (s *Shell) cmdPeek(args []string) error {
	if s.cfg.MMIO == nil {
		return inspect.ErrNoDispatcher
	}
	if len(args) < 1 {
		return errors.New("usage: peek <addr> [size]")
	}
	addr, err := inspect.ParseUint(args[0], 64)
	if err != nil {
		return err
	}
	size, err := parseSize(args, 1)
	if err != nil {
		return err
	}
	v, err := s.cfg.MMIO.Read(addr, size)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "0x%08x = %s\n", addr, inspect.FormatValue(v, size))
	return nil
}

func (s *Shell) cmdPoke(args []string) error {
	if s.cfg.MMIO == nil {
		return inspect.ErrNoDispatcher
	}
	if len(args) < 2 {
		return errors.New("usage: poke <addr> <value> [size]")
	}
	addr, err := inspect.ParseUint(args[0], 64)
	if err != nil {
		return err
	}
	size, err := parseSize(args, 2)
	if err != nil {
		return err
	}
	v, err := inspect.ParseUint(args[1], int(size)*8)
	if err != nil {
		return err
	}
	if err := s.cfg.MMIO.Write(addr, size, v); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "0x%08x <- %s\n", addr, inspect.FormatValue(v, size))
	return nil
}

func (s *Shell) cmdReset(args []string) error {
	if len(args) == 0 {
		s.inspector.Machine().Reset()
		fmt.Fprintln(s.out, "machine reset")
		return nil
	}
	p, err := s.parsePath(args[0])
	if err != nil {
		return err
	}
	if err := s.inspector.ResetDevice(p); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s reset\n", p)
	return nil
}

func (s *Shell) cmdKey(args []string) error {
	if s.cfg.Router == nil {
		return errors.New("no input router")
	}
	if len(args) < 1 {
		return errors.New("usage: key <name> [down|up]")
	}
	code := input.ParseQKeyCode(args[0], false)
	if code == input.QKeyUnmapped {
		code = input.ParseQKeyCode(args[0], true)
	}
	if code == input.QKeyUnmapped {
		return fmt.Errorf("unknown key %q", args[0])
	}

	state := "tap"
	if len(args) > 1 {
		state = strings.ToLower(args[1])
	}

	var n int
	switch state {
	case "down":
		n = s.cfg.Router.KeyEvent(code, true)
	case "up":
		n = s.cfg.Router.KeyEvent(code, false)
	case "tap":
		n = s.cfg.Router.KeyEvent(code, true)
		s.cfg.Router.KeyEvent(code, false)
	default:
		return fmt.Errorf("invalid key state %q (valid: down, up)", state)
	}
	fmt.Fprintf(s.out, "key %s delivered to %d handler(s)\n", code, n)
	return nil
}

func (s *Shell) cmdMouse(args []string) error {
	if s.cfg.Router == nil {
		return errors.New("no input router")
	}
	if len(args) < 2 {
		return errors.New("usage: mouse <dx> <dy> [l][r][m]")
	}
	var dx, dy int
	if _, err := fmt.Sscan(args[0], &dx); err != nil {
		return fmt.Errorf("invalid dx %q", args[0])
	}
	if _, err := fmt.Sscan(args[1], &dy); err != nil {
		return fmt.Errorf("invalid dy %q", args[1])
	}
	buttons := ""
	if len(args) > 2 {
		buttons = strings.ToLower(args[2])
	}
	n := s.cfg.Router.MouseEvent(dx, dy,
		strings.Contains(buttons, "l"),
		strings.Contains(buttons, "r"),
		strings.Contains(buttons, "m"))
	fmt.Fprintf(s.out, "mouse delivered to %d handler(s)\n", n)
	return nil
}

func (s *Shell) adbBus(arg string) (*examples.ADBBus, error) {
	p, err := s.parsePath(arg)
	if err != nil {
		return nil, err
	}
	t, err := s.inspector.Resolve(p)
	if err != nil {
		return nil, err
	}
	if t.Bus == nil {
		return nil, fmt.Errorf("%s is not a bus", p)
	}
	bus, ok := qom.As[*examples.ADBBus](t.Bus)
	if !ok {
		return nil, fmt.Errorf("%s is a %s, not an ADB bus", p, t.Bus.AsBus().TypeName())
	}
	return bus, nil
}

func (s *Shell) cmdADB(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: adb <bus> <hex bytes>")
	}
	bus, err := s.adbBus(args[0])
	if err != nil {
		return err
	}
	req, err := hex.DecodeString(strings.Join(args[1:], ""))
	if err != nil {
		return fmt.Errorf("invalid request bytes: %w", err)
	}
	reply, err := bus.Request(req)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "reply: [% x]\n", reply)
	return nil
}

func (s *Shell) cmdPoll(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: poll <bus> [mask]")
	}
	bus, err := s.adbBus(args[0])
	if err != nil {
		return err
	}
	mask := uint64(0xffff)
	if len(args) > 1 {
		if mask, err = inspect.ParseUint(args[1], 16); err != nil {
			return err
		}
	}
	reply := bus.Poll(uint16(mask))
	if len(reply) == 0 {
		fmt.Fprintln(s.out, "(no data)")
		return nil
	}
	fmt.Fprintf(s.out, "poll: [% x]\n", reply)
	return nil
}

func (s *Shell) cmdStep(args []string) error {
	if s.cfg.Clock == nil || s.cfg.Scheduler == nil {
		return errors.New("step needs manual time (start with -clock manual)")
	}
	if len(args) < 1 {
		return errors.New("usage: step <duration>")
	}
	d, err := time.ParseDuration(args[0])
	if err != nil {
		return err
	}
	if d < 0 {
		return errors.New("cannot step backwards")
	}

	fired := Step(s.cfg.Scheduler, s.cfg.Clock, d)
	fmt.Fprintf(s.out, "now %s, %d timer(s) fired\n", inspect.FormatNs(s.cfg.Clock.NowNs()), fired)
	return nil
}

// Step advances clock by d, firing every timer at its own expiry along the
// way, and returns the number of callbacks run.
func Step(sched *timer.Scheduler, clock *timer.ManualClock, d time.Duration) int {
	target := clock.NowNs() + d.Nanoseconds()
	fired := 0
	for range maxStepRounds {
		next, ok := nextExpiry(sched)
		if !ok || next > target {
			break
		}
		if next > clock.NowNs() {
			clock.Set(next)
		}
		fired += sched.Update()
	}
	clock.Set(target)
	return fired + sched.Update()
}

func nextExpiry(sched *timer.Scheduler) (int64, bool) {
	armed := sched.Armed()
	if len(armed) == 0 {
		return 0, false
	}
	next := armed[0].ExpiresNs
	for _, a := range armed[1:] {
		next = min(next, a.ExpiresNs)
	}
	return next, true
}

func (s *Shell) cmdRun(ctx context.Context) error {
	if s.cfg.Scheduler == nil {
		return inspect.ErrNoScheduler
	}
	if s.cfg.Clock != nil {
		return errors.New("run needs host time; use step with -clock manual")
	}
	if err := s.cfg.Scheduler.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "timer dispatch running")
	return nil
}

func (s *Shell) cmdStop() error {
	if s.cfg.Scheduler == nil {
		return inspect.ErrNoScheduler
	}
	if err := s.cfg.Scheduler.Stop(); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "timer dispatch stopped")
	return nil
}
