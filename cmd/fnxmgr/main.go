// Command fnxmgr manages a Foenix machine through its debug port: it loads
// and runs programs, reads memory, programs flash and relays the debug port
// over TCP.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/pweingar/FoenixMgr/config"
	"github.com/pweingar/FoenixMgr/debugport"
	"github.com/pweingar/FoenixMgr/manager"
	"github.com/pweingar/FoenixMgr/relay"
	"github.com/pweingar/FoenixMgr/transport"
)

// cliFlags holds the command line. Empty strings leave the configured
// value alone.
type cliFlags struct {
	configPath    string
	port          string
	transportKind string
	listPorts     bool
	labelFile     string
	count         string
	dump          string
	deref         string
	lookup        string
	revision      bool
	flashFile     string
	flashSector   string
	bulkFile      string
	erase         bool
	binaryFile    string
	copyFile      string
	address       string
	hexFile       string
	pgzFile       string
	pgxFile       string
	boot          string
	target        string
	tcpBridge     string
	stop          bool
	start         bool
	quiet         bool
	debug         bool
	yes           bool
	coalesce      bool
}

func parseFlags(args []string, stderr io.Writer) (*cliFlags, *flag.FlagSet, error) {
	f := &cliFlags{}
	fs := flag.NewFlagSet("fnxmgr", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&f.configPath, "config", "", "Read settings from this file instead of searching for "+config.FileName)
	fs.StringVar(&f.port, "port", "", "Serial port or HOST:PORT of the debug port")
	fs.StringVar(&f.transportKind, "transport", "", "How to reach the debug port: auto, serial or tcp")
	fs.BoolVar(&f.listPorts, "list-ports", false, "List available serial ports")
	fs.StringVar(&f.labelFile, "label-file", "", "Label file to use for --deref and --lookup")
	fs.StringVar(&f.count, "count", "10", "Number of bytes to read, in hex")
	fs.StringVar(&f.dump, "dump", "", "Read memory at ADDRESS and display it")
	fs.StringVar(&f.deref, "deref", "", "Display the memory pointed to by the pointer at LABEL")
	fs.StringVar(&f.lookup, "lookup", "", "Display the memory starting at LABEL")
	fs.BoolVar(&f.revision, "revision", false, "Display the revision code of the debug interface")
	fs.StringVar(&f.flashFile, "flash", "", "Reprogram the flash from this binary file")
	fs.StringVar(&f.flashSector, "flash-sector", "", "Program only this flash sector, in hex (with --flash)")
	fs.StringVar(&f.bulkFile, "flash-bulk", "", "Program flash sectors listed in this CSV file")
	fs.BoolVar(&f.erase, "erase", false, "Erase all of flash, alone or before --flash-bulk")
	fs.StringVar(&f.binaryFile, "binary", "", "Upload a binary file to RAM at --address")
	fs.StringVar(&f.copyFile, "copy", "", "Copy a file to the SD card")
	fs.StringVar(&f.address, "address", "", "Start address for --binary and --flash, in hex")
	fs.StringVar(&f.hexFile, "upload", "", "Upload an Intel HEX file")
	fs.StringVar(&f.pgzFile, "run-pgz", "", "Upload and run a PGZ file")
	fs.StringVar(&f.pgxFile, "run-pgx", "", "Upload and run a PGX file")
	fs.StringVar(&f.boot, "boot", "", "Set the boot source: ram or flash")
	fs.StringVar(&f.target, "target", "", "Target machine, for flash sector geometry")
	fs.StringVar(&f.tcpBridge, "tcp-bridge", "", "Listen on HOST:PORT and relay clients to the serial debug port")
	fs.BoolVar(&f.stop, "stop", false, "Stop the CPU")
	fs.BoolVar(&f.start, "start", false, "Restart the CPU after --stop")
	fs.BoolVar(&f.quiet, "quiet", false, "Only print warnings and errors")
	fs.BoolVar(&f.debug, "debug", false, "Log every frame")
	fs.BoolVar(&f.yes, "yes", false, "Answer yes to confirmation prompts")
	fs.BoolVar(&f.coalesce, "coalesce", false, "Merge program image blocks before sending them")

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	return f, fs, nil
}

func newLogger(w io.Writer, f *cliFlags) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case f.debug:
		level = slog.LevelDebug
	case f.quiet:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func loadConfig(f *cliFlags, logger *slog.Logger) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if f.configPath != "" {
		cfg, err = config.Load(f.configPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg, err = config.Load(config.DefaultPaths()...)
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) && cfgErr.Key == config.FileName {
			logger.Warn("no configuration file found, using defaults", "file", config.FileName)
			cfg, err = config.Default(), nil
		}
		if err != nil {
			return nil, err
		}
	}

	if f.port != "" {
		cfg.Port = f.port
	}
	if f.transportKind != "" {
		cfg.Transport = f.transportKind
	}
	if f.labelFile != "" {
		cfg.LabelFile = f.labelFile
	}
	if f.address != "" {
		addr, err := config.ParseAddress(f.address)
		if err != nil {
			return nil, errors.Wrap(err, "--address")
		}
		cfg.Address = addr
	}
	if f.target != "" {
		cfg.SetTarget(f.target)
	} else {
		cfg.SetTarget("unknown")
	}
	return cfg, nil
}

func isTerminal(v interface{}) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

var errUsage = errors.New("no operation selected")

// app is one invocation of the tool.
type app struct {
	f      *cliFlags
	cfg    *config.Config
	logger *slog.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	f, fs, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	logger := newLogger(stderr, f)

	if f.listPorts {
		if err := listPorts(stdout); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	cfg, err := loadConfig(f, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if cfg.Port == "" {
		fs.Usage()
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{f: f, cfg: cfg, logger: logger, stdin: stdin, stdout: stdout, stderr: stderr}
	if err := a.dispatch(ctx); err != nil {
		if errors.Is(err, errUsage) {
			fs.Usage()
			return 2
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) dispatch(ctx context.Context) error {
	f := a.f
	switch {
	case f.boot != "":
		src, err := debugport.ParseBootSource(f.boot)
		if err != nil {
			return err
		}
		a.say("Setting boot source to %s...\n", src)
		return a.withManager(ctx, func(m *manager.Manager) error {
			return m.SetBootSource(ctx, src)
		})

	case f.stop:
		a.say("Stopping the CPU...\n")
		return a.withManager(ctx, func(m *manager.Manager) error {
			return m.StopCPU(ctx)
		})

	case f.start:
		a.say("Starting the CPU...\n")
		return a.withManager(ctx, func(m *manager.Manager) error {
			return m.StartCPU(ctx)
		})

	case f.copyFile != "":
		data, err := os.ReadFile(f.copyFile)
		if err != nil {
			return errors.Wrap(err, "read copy file")
		}
		return a.withManager(ctx, func(m *manager.Manager) error {
			return m.CopyFile(ctx, f.copyFile, data)
		})

	case f.hexFile != "":
		r, err := os.Open(f.hexFile)
		if err != nil {
			return errors.Wrap(err, "open hex file")
		}
		defer r.Close()
		return a.withManager(ctx, func(m *manager.Manager) error {
			return m.UploadHex(ctx, r)
		})

	case f.pgzFile != "":
		image, err := os.ReadFile(f.pgzFile)
		if err != nil {
			return errors.Wrap(err, "read PGZ file")
		}
		return a.withManager(ctx, func(m *manager.Manager) error {
			return m.RunPGZ(ctx, image)
		})

	case f.pgxFile != "":
		image, err := os.ReadFile(f.pgxFile)
		if err != nil {
			return errors.Wrap(err, "read PGX file")
		}
		return a.withManager(ctx, func(m *manager.Manager) error {
			return m.RunPGX(ctx, image)
		})

	case f.deref != "" && a.cfg.LabelFile != "":
		addr, err := manager.LookupLabelFile(a.cfg.LabelFile, f.deref)
		if err != nil {
			return err
		}
		return a.withManager(ctx, func(m *manager.Manager) error {
			ptr, err := m.Dereference(ctx, addr)
			if err != nil {
				return err
			}
			return a.dumpMemory(ctx, m, ptr)
		})

	case f.lookup != "" && a.cfg.LabelFile != "":
		addr, err := manager.LookupLabelFile(a.cfg.LabelFile, f.lookup)
		if err != nil {
			return err
		}
		return a.withManager(ctx, func(m *manager.Manager) error {
			return a.dumpMemory(ctx, m, addr)
		})

	case f.dump != "":
		addr, err := config.ParseAddress(f.dump)
		if err != nil {
			return errors.Wrap(err, "--dump")
		}
		return a.withManager(ctx, func(m *manager.Manager) error {
			return a.dumpMemory(ctx, m, addr)
		})

	case f.revision:
		return a.withManager(ctx, func(m *manager.Manager) error {
			rev, err := m.Revision(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%X\n", rev)
			return nil
		})

	case f.binaryFile != "":
		r, err := os.Open(f.binaryFile)
		if err != nil {
			return errors.Wrap(err, "open binary file")
		}
		defer r.Close()
		return a.withManager(ctx, func(m *manager.Manager) error {
			_, err := m.UploadBinary(ctx, r, a.cfg.Address)
			return err
		})

	case f.flashFile != "" && f.flashSector != "":
		sector, err := strconv.ParseUint(strings.TrimPrefix(f.flashSector, "0x"), 16, 8)
		if err != nil {
			return errors.Wrapf(err, "--flash-sector %q", f.flashSector)
		}
		a.say("About to upload image to sector 0x%02X\n", sector)
		if ok, err := a.confirm("Are you sure you want to reprogram the flash sector? (y/n): "); !ok || err != nil {
			return err
		}
		r, err := os.Open(f.flashFile)
		if err != nil {
			return errors.Wrap(err, "open flash file")
		}
		defer r.Close()
		return a.withManager(ctx, func(m *manager.Manager) error {
			return m.ProgramFlashSector(ctx, r, int(sector))
		})

	case f.flashFile != "":
		a.say("About to upload image to address 0x%X\n", a.cfg.Address)
		if ok, err := a.confirm("Are you sure you want to reprogram the flash memory? (y/n): "); !ok || err != nil {
			return err
		}
		r, err := os.Open(f.flashFile)
		if err != nil {
			return errors.Wrap(err, "open flash file")
		}
		defer r.Close()
		return a.withManager(ctx, func(m *manager.Manager) error {
			return m.ProgramFlash(ctx, r, a.cfg.Address)
		})

	case f.tcpBridge != "":
		return a.runBridge(ctx)

	case f.bulkFile != "":
		r, err := os.Open(f.bulkFile)
		if err != nil {
			return errors.Wrap(err, "open bulk file")
		}
		entries, err := manager.ParseBulkCSV(r)
		r.Close()
		if err != nil {
			return err
		}
		open := func(name string) (io.ReadCloser, error) {
			return os.Open(name)
		}
		return a.withManager(ctx, func(m *manager.Manager) error {
			return m.ProgramFlashBulk(ctx, entries, f.erase, open)
		})

	case f.erase:
		if ok, err := a.confirm("Are you sure you want to erase the flash memory? (y/n): "); !ok || err != nil {
			return err
		}
		return a.withManager(ctx, func(m *manager.Manager) error {
			return m.EraseFlash(ctx)
		})
	}
	return errUsage
}

func (a *app) dumpMemory(ctx context.Context, m *manager.Manager, address uint32) error {
	count, err := strconv.ParseUint(a.f.count, 16, 32)
	if err != nil {
		return errors.Wrapf(err, "--count %q", a.f.count)
	}
	data, err := m.Dump(ctx, address, int(count))
	if err != nil {
		return err
	}
	if len(data) > 0 {
		display(a.stdout, address, data)
	}
	return nil
}

func (a *app) transportOptions() []transport.Option {
	return []transport.Option{
		transport.WithBaudRate(a.cfg.DataRate),
		transport.WithTimeout(a.cfg.Timeout),
	}
}

func (a *app) openTransport() (transport.Transport, error) {
	kind, err := transport.ParseKind(a.cfg.Transport)
	if err != nil {
		return nil, err
	}
	ep, err := transport.ParseEndpoint(kind, a.cfg.Port)
	if err != nil {
		return nil, err
	}
	return transport.New(ep, a.transportOptions()...)
}

func (a *app) withManager(ctx context.Context, fn func(m *manager.Manager) error) error {
	t, err := a.openTransport()
	if err != nil {
		return err
	}

	port := debugport.New(t,
		debugport.WithLogger(a.logger),
		debugport.WithResponseTimeout(a.cfg.Timeout),
	)
	if err := port.Open(ctx); err != nil {
		return err
	}
	defer port.Close()

	opts := []manager.Option{
		manager.WithLogger(a.logger),
		manager.WithCoalesce(a.f.coalesce),
	}
	if !a.f.quiet {
		opts = append(opts, manager.WithProgressCallback(progressPrinter(a.stderr, isTerminal(a.stderr))))
	}
	return fn(manager.New(port, a.cfg, opts...))
}

func (a *app) runBridge(ctx context.Context) error {
	listen, err := transport.ParseEndpoint(transport.KindTCP, a.f.tcpBridge)
	if err != nil {
		return errors.Wrap(err, "--tcp-bridge")
	}
	device, err := transport.ParseEndpoint(transport.KindSerial, a.cfg.Port)
	if err != nil {
		return err
	}

	srv := relay.New(func() (transport.Transport, error) {
		return transport.New(device, a.transportOptions()...)
	}, relay.WithLogger(a.logger))

	a.say("Relaying %s to %s\n", listen.Address(), device)
	return srv.ListenAndServe(ctx, listen.Address())
}

// confirm asks a yes/no question on the terminal. Without a terminal only
// --yes can answer it.
func (a *app) confirm(question string) (bool, error) {
	if a.f.yes {
		return true, nil
	}
	if !isTerminal(a.stdin) {
		return false, errors.New("confirmation needed but input is not a terminal; pass --yes")
	}

	fmt.Fprint(a.stdout, question)
	line, _ := bufio.NewReader(a.stdin).ReadString('\n')
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "y") {
		return true, nil
	}
	a.say("Cancelled.\n")
	return false, nil
}

func (a *app) say(format string, args ...interface{}) {
	if !a.f.quiet {
		fmt.Fprintf(a.stdout, format, args...)
	}
}

func listPorts(w io.Writer) error {
	ports, err := transport.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(w, "No serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintln(w, p.Name)
		if p.IsUSB {
			fmt.Fprintf(w, "   USB ID: %s:%s\n", p.VID, p.PID)
			fmt.Fprintf(w, "   Serial number: %s\n", p.SerialNumber)
		}
		if p.Product != "" {
			fmt.Fprintf(w, "   Product: %s\n", p.Product)
		}
		fmt.Fprintln(w)
	}
	return nil
}
