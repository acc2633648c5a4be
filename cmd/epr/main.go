// Command epr decodes, converts and inspects WS-Addressing endpoint
// references.
//
// Usage:
//
//	epr <command> [flags] <args>
//
// Commands:
//
//	decode    Decode an endpoint reference and print a summary
//	convert   Re-encode an endpoint reference in another dialect
//	equal     Compare two endpoint references
//	snapshot  Print or restore a CBOR snapshot
//	logs      View a protocol event log
//	shell     Interactive shell
//
// Examples:
//
//	# Summarize a reference, detecting its dialect
//	epr decode reply-to.xml
//
//	# Convert an August-2004 reference to WS-Addressing 1.0
//	epr convert --to 1.0 legacy.xml
//
//	# Record codec events while converting, then view failures
//	epr convert --protocol-log events.elog --to 2004/08 ref.xml
//	epr logs --failures events.elog
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/epr-protocol/epr-go/cmd/epr/commands"
	"github.com/epr-protocol/epr-go/cmd/epr/interactive"
	"github.com/epr-protocol/epr-go/pkg/config"
	"github.com/epr-protocol/epr-go/pkg/log"
)

const usage = `epr - WS-Addressing Endpoint Reference Tool

Usage:
  epr <command> [flags] <args>

Commands:
  decode    Decode an endpoint reference and print a summary
  convert   Re-encode an endpoint reference in another dialect
  equal     Compare two endpoint references
  snapshot  Print or restore a CBOR snapshot
  logs      View a protocol event log
  shell     Interactive shell

Use "epr <command> --help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "decode":
		err = runDecode(args)
	case "convert":
		err = runConvert(args)
	case "equal":
		err = runEqual(args)
	case "snapshot":
		err = runSnapshot(args)
	case "logs":
		err = runLogs(args)
	case "shell":
		err = runShell(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// commonFlags are accepted by every codec command.
type commonFlags struct {
	config      string
	protocolLog string
	verbose     bool
}

func (c *commonFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&c.config, "config", "", "YAML configuration file")
	fs.StringVar(&c.protocolLog, "protocol-log", "", "File path for codec event logging (CBOR format)")
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "Log codec events to stderr")
}

// setup loads the configuration and wires the codec loggers. The returned
// function closes them.
func (c *commonFlags) setup() (*commands.Env, func(), error) {
	cfg := config.Default()
	if c.config != "" {
		var err error
		if cfg, err = config.Load(c.config); err != nil {
			return nil, nil, err
		}
	}
	if c.protocolLog != "" {
		cfg.ProtocolLog = c.protocolLog
	}

	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var (
		loggers []log.Logger
		closers []func() error
	)
	if cfg.ProtocolLog != "" {
		fl, err := log.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create protocol logger: %w", err)
		}
		loggers = append(loggers, fl)
		closers = append(closers, fl.Close)
		slog.Debug("protocol logging enabled", "path", cfg.ProtocolLog)
	}
	if c.verbose {
		loggers = append(loggers, log.NewSlogAdapter(slog.Default()))
	}

	var logger log.Logger
	switch len(loggers) {
	case 0:
	case 1:
		logger = loggers[0]
	default:
		logger = log.NewMultiLogger(loggers...)
	}

	env, err := commands.NewEnv(cfg, logger)
	if err != nil {
		for _, closeFn := range closers {
			_ = closeFn()
		}
		return nil, nil, err
	}
	return env, func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				slog.Warn("closing protocol log", "error", err)
			}
		}
	}, nil
}

func newFlagSet(name, synopsis string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "epr %s - %s\n\nFlags:\n", name, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

func runDecode(args []string) error {
	fs := newFlagSet("decode", "Decode an endpoint reference (file or -)")
	var common commonFlags
	common.register(fs)
	dialect := fs.String("dialect", "", "Addressing dialect (1.0, 2004/08, none; default: detect)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("input file required")
	}

	env, done, err := common.setup()
	if err != nil {
		return err
	}
	defer done()
	return commands.RunDecode(env, fs.Arg(0), *dialect, os.Stdout)
}

func runConvert(args []string) error {
	fs := newFlagSet("convert", "Re-encode an endpoint reference in another dialect")
	var common commonFlags
	common.register(fs)
	from := fs.String("from", "", "Source dialect (default: detect)")
	to := fs.String("to", "", "Target dialect (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("input file required")
	}

	env, done, err := common.setup()
	if err != nil {
		return err
	}
	defer done()
	return commands.RunConvert(env, fs.Arg(0), *from, *to, os.Stdout)
}

func runEqual(args []string) error {
	fs := newFlagSet("equal", "Compare two endpoint references")
	var common commonFlags
	common.register(fs)
	dialect := fs.String("dialect", "", "Addressing dialect (default: detect)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		fs.Usage()
		return fmt.Errorf("two input files required")
	}

	env, done, err := common.setup()
	if err != nil {
		return err
	}
	defer done()
	eq, err := commands.RunEqual(env, fs.Arg(0), fs.Arg(1), *dialect, os.Stdout)
	if err != nil {
		return err
	}
	if !eq {
		done()
		os.Exit(2)
	}
	return nil
}

func runSnapshot(args []string) error {
	fs := newFlagSet("snapshot", "Print the CBOR snapshot of an endpoint reference as hex")
	var common commonFlags
	common.register(fs)
	dialect := fs.String("dialect", "", "Addressing dialect of the input (default: detect)")
	restore := fs.String("restore", "", "Read a hex snapshot instead and encode it in this dialect")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("input file required")
	}

	env, done, err := common.setup()
	if err != nil {
		return err
	}
	defer done()
	if *restore != "" {
		return commands.RunRestore(env, fs.Arg(0), *restore, os.Stdout)
	}
	return commands.RunSnapshot(env, fs.Arg(0), *dialect, os.Stdout)
}

func runLogs(args []string) error {
	fs := newFlagSet("logs", "View a protocol event log")
	operation := fs.String("operation", "", "Filter by operation (decode, encode, apply, build)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	dialect := fs.String("dialect", "", "Filter by dialect name")
	address := fs.String("address", "", "Filter by endpoint URI")
	failures := fs.Bool("failures", false, "Show only failed operations")
	stats := fs.Bool("stats", false, "Print a summary instead of events")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("log file path required")
	}

	filter := log.Filter{Dialect: *dialect, Address: *address, FailuresOnly: *failures}
	if *operation != "" {
		op, err := commands.ParseOperationFlag(*operation)
		if err != nil {
			return err
		}
		filter.Operation = &op
	}
	if *direction != "" {
		d, err := commands.ParseDirectionFlag(*direction)
		if err != nil {
			return err
		}
		filter.Direction = &d
	}
	return commands.RunLogs(fs.Arg(0), filter, *stats, os.Stdout)
}

func runShell(args []string) error {
	fs := newFlagSet("shell", "Interactive shell")
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	env, done, err := common.setup()
	if err != nil {
		return err
	}
	defer done()

	shell, err := interactive.New(env)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	shell.Run(ctx)
	return nil
}
