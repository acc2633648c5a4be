// Package interactive implements the epr shell.
package interactive

import (
	"context"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/epr-protocol/epr-go/cmd/epr/commands"
	"github.com/epr-protocol/epr-go/pkg/addressing"
	"github.com/epr-protocol/epr-go/pkg/epr"
	"github.com/epr-protocol/epr-go/pkg/message"
	"github.com/epr-protocol/epr-go/pkg/routing"
	"github.com/epr-protocol/epr-go/pkg/wire"
)

// Shell is an interactive session holding a current address.
type Shell struct {
	env *commands.Env
	rl  *readline.Instance

	dialect *addressing.Version
	current *epr.EndpointAddress

	// seen maps loaded endpoints to the file they were first loaded from.
	seen *routing.Table[string]
}

// New creates a shell reading from the terminal.
func New(env *commands.Env) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "epr> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	s, err := newShell(env)
	if err != nil {
		rl.Close()
		return nil, err
	}
	s.rl = rl
	return s, nil
}

func newShell(env *commands.Env) (*Shell, error) {
	seen, err := routing.New[string](env.Config.RouteCacheSize)
	if err != nil {
		return nil, err
	}
	return &Shell{env: env, dialect: env.Default, seen: seen}, nil
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context) {
	defer s.rl.Close()

	w := s.rl.Stdout()
	s.printHelp(w)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(w, "Exiting...")
			return
		}
		if s.Execute(w, line) {
			return
		}
	}
}

// Execute runs one command line and reports whether the shell should exit.
func (s *Shell) Execute(w io.Writer, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp(w)

	case "dialect", "d":
		s.cmdDialect(w, args)

	case "load", "l":
		s.cmdLoad(w, args)

	case "show", "s":
		s.cmdShow(w)

	case "encode", "e":
		s.cmdEncode(w, args)

	case "apply", "a":
		s.cmdApply(w, args)

	case "equal":
		s.cmdEqual(w, args)

	case "snapshot":
		s.cmdSnapshot(w)

	case "quit", "exit", "q":
		fmt.Fprintln(w, "Exiting...")
		return true

	default:
		fmt.Fprintf(w, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (s *Shell) printHelp(w io.Writer) {
	fmt.Fprintln(w, `
EPR Shell Commands:
  dialect [name]         - Show or set the working dialect (1.0, 2004/08, none)
  load <file> [dialect]  - Decode an endpoint reference and make it current
  show                   - Summarize the current address
  encode [dialect]       - Encode the current address
  apply [action]         - Show SOAP headers addressed to the current address
  equal <file>           - Compare the current address with another file
  snapshot               - Print the CBOR snapshot of the current address
  help                   - Show this help
  quit                   - Exit`)
}

func (s *Shell) requireCurrent(w io.Writer) bool {
	if s.current == nil {
		fmt.Fprintln(w, "No address loaded (use 'load <file>')")
		return false
	}
	return true
}

func (s *Shell) cmdDialect(w io.Writer, args []string) {
	if len(args) == 0 {
		fmt.Fprintf(w, "Dialect: %s\n", s.dialect)
		return
	}
	v, err := addressing.ParseVersion(args[0])
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	s.dialect = v
	fmt.Fprintf(w, "Dialect: %s\n", v)
}

func (s *Shell) cmdLoad(w io.Writer, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(w, "Usage: load <file> [dialect]")
		return
	}
	dialect := ""
	if len(args) > 1 {
		dialect = args[1]
	}
	a, v, err := s.env.Load(args[0], dialect)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	s.current, s.dialect = a, v

	prev, ok, err := s.seen.Get(a)
	switch {
	case err != nil:
		fmt.Fprintf(w, "Loaded %s (not comparable: %v)\n", a, err)
	case ok:
		fmt.Fprintf(w, "Loaded %s (same endpoint as %s)\n", a, prev)
	default:
		if err := s.seen.Put(a, args[0]); err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
		}
		fmt.Fprintf(w, "Loaded %s\n", a)
	}
}

func (s *Shell) cmdShow(w io.Writer) {
	if !s.requireCurrent(w) {
		return
	}
	commands.FormatAddress(w, s.dialect, s.current)
}

func (s *Shell) cmdEncode(w io.Writer, args []string) {
	if !s.requireCurrent(w) {
		return
	}
	v := s.dialect
	if len(args) > 0 {
		var err error
		if v, err = addressing.ParseVersion(args[0]); err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return
		}
	}
	out, err := s.env.Codec.EncodeBytes(v, s.current)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(out))
}

func (s *Shell) cmdApply(w io.Writer, args []string) {
	if !s.requireCurrent(w) {
		return
	}
	action := "urn:epr:shell"
	if len(args) > 0 {
		action = args[0]
	}
	h := message.NewHeaders(s.dialect, action)
	if err := s.env.Codec.ApplyTo(s.current, h); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}

	var b strings.Builder
	enc := xml.NewEncoder(&b)
	enc.Indent("", "  ")
	if err := h.Encode(enc); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(w, b.String())
	if h.Via != nil {
		fmt.Fprintf(w, "Via: %s\n", h.Via)
	}
}

func (s *Shell) cmdEqual(w io.Writer, args []string) {
	if !s.requireCurrent(w) {
		return
	}
	if len(args) == 0 {
		fmt.Fprintln(w, "Usage: equal <file>")
		return
	}
	other, _, err := s.env.Load(args[0], "")
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	eq, err := s.current.EndpointEquals(other)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	if eq {
		fmt.Fprintln(w, "equal")
	} else {
		fmt.Fprintln(w, "not equal")
	}
}

func (s *Shell) cmdSnapshot(w io.Writer) {
	if !s.requireCurrent(w) {
		return
	}
	data, err := wire.EncodeAddress(s.current)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(w, hex.EncodeToString(data))
}
