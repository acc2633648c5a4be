package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/epr-protocol/epr-go/pkg/log"
)

// ParseOperationFlag parses an operation name.
func ParseOperationFlag(s string) (log.Operation, error) {
	switch strings.ToLower(s) {
	case "decode":
		return log.OperationDecode, nil
	case "encode":
		return log.OperationEncode, nil
	case "apply":
		return log.OperationApply, nil
	case "build":
		return log.OperationBuild, nil
	default:
		return 0, fmt.Errorf("invalid operation: %s (use decode, encode, apply, build)", s)
	}
}

// ParseDirectionFlag parses a direction name.
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (use in, out)", s)
	}
}

// LogStats counts the events of a log file.
type LogStats struct {
	Total       int
	Failures    int
	ByOperation map[log.Operation]int
	ByDialect   map[string]int
	Start, End  time.Time
}

// RunLogs prints the events of the log file at path that match filter.
// With stats set it prints only a summary.
func RunLogs(path string, filter log.Filter, stats bool, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	s := &LogStats{
		ByOperation: make(map[log.Operation]int),
		ByDialect:   make(map[string]int),
	}
	for event, err := range reader.Events() {
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if stats {
			s.add(event)
			continue
		}
		formatEvent(w, event)
	}
	if stats {
		s.print(w)
	}
	return nil
}

func (s *LogStats) add(event log.Event) {
	s.Total++
	if event.Failed() {
		s.Failures++
	}
	s.ByOperation[event.Operation]++
	s.ByDialect[event.Dialect]++
	if s.Start.IsZero() || event.Timestamp.Before(s.Start) {
		s.Start = event.Timestamp
	}
	if event.Timestamp.After(s.End) {
		s.End = event.Timestamp
	}
}

func (s *LogStats) print(w io.Writer) {
	fmt.Fprintf(w, "Events:   %d\n", s.Total)
	fmt.Fprintf(w, "Failures: %d\n", s.Failures)
	if s.Total == 0 {
		return
	}
	fmt.Fprintf(w, "Range:    %s - %s\n", s.Start.UTC().Format(time.RFC3339), s.End.UTC().Format(time.RFC3339))
	fmt.Fprintln(w, "Operations:")
	for _, op := range []log.Operation{log.OperationDecode, log.OperationEncode, log.OperationApply, log.OperationBuild} {
		if n := s.ByOperation[op]; n > 0 {
			fmt.Fprintf(w, "  %-8s %d\n", op, n)
		}
	}
	fmt.Fprintln(w, "Dialects:")
	for _, d := range []string{"1.0", "2004/08", "none", ""} {
		if n := s.ByDialect[d]; n > 0 {
			if d == "" {
				d = "-"
			}
			fmt.Fprintf(w, "  %-8s %d\n", d, n)
		}
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	fmt.Fprintf(w, "%s %-3s %-6s %s %s\n", ts, event.Direction, event.Operation, dash(event.Dialect), dash(event.Address))

	if event.HeaderCount > 0 || event.IdentityKind != "" {
		fmt.Fprintf(w, "  headers=%d identity=%s\n", event.HeaderCount, dash(event.IdentityKind))
	}
	for _, s := range event.Sections {
		fmt.Fprintf(w, "  %-11s %d bytes blake3=%s\n", s.Kind, s.Size, s.FingerprintHex())
	}
	if event.Error != nil {
		fmt.Fprintf(w, "  error: [%s] %s\n", event.Error.Kind, event.Error.Message)
		if event.Error.Context != "" {
			fmt.Fprintf(w, "  context: %s\n", event.Error.Context)
		}
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
