package commands

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/epr-protocol/epr-go/pkg/addressing"
	"github.com/epr-protocol/epr-go/pkg/epr"
	"github.com/epr-protocol/epr-go/pkg/xmlbuf"
)

// RunDecode decodes the address at path and prints a summary.
func RunDecode(env *Env, path, dialect string, w io.Writer) error {
	a, v, err := env.Load(path, dialect)
	if err != nil {
		return err
	}
	FormatAddress(w, v, a)
	return nil
}

// FormatAddress writes a human-readable summary of a.
func FormatAddress(w io.Writer, v *addressing.Version, a *epr.EndpointAddress) {
	if v != nil {
		fmt.Fprintf(w, "Dialect:     %s\n", v)
	}
	fmt.Fprintf(w, "Address:     %s\n", a)
	switch {
	case a.IsAnonymous():
		fmt.Fprintln(w, "             (anonymous)")
	case a.IsNone():
		fmt.Fprintln(w, "             (none)")
	}

	headers := a.Headers()
	fmt.Fprintf(w, "Headers:     %d\n", headers.Len())
	for _, h := range headers.All() {
		fmt.Fprintf(w, "  [%s] {%s}%s = %q\n", h.Role(), h.Namespace(), h.Name(), h.Value())
	}

	if id := a.Identity(); id != nil {
		fmt.Fprintf(w, "Identity:    %s\n", id)
	}

	formatSection(w, "LegacyBlob:", a.LegacyBlob())
	formatSection(w, "Metadata:", a.Metadata())
	formatSection(w, "Extensions:", a.Extensions())
	fmt.Fprintf(w, "Hash:        %08x\n", a.Hash())
}

func formatSection(w io.Writer, label string, s xmlbuf.Section) {
	if s.IsZero() {
		return
	}
	fp := s.Fingerprint()
	fmt.Fprintf(w, "%-12s %d bytes, blake3 %s\n", label, s.Size(), hex.EncodeToString(fp[:8]))
	names, err := s.Elements()
	if err != nil {
		fmt.Fprintf(w, "  error: %v\n", err)
		return
	}
	for _, n := range names {
		if n.Space == "" {
			fmt.Fprintf(w, "  %s\n", n.Local)
			continue
		}
		fmt.Fprintf(w, "  {%s}%s\n", n.Space, n.Local)
	}
}
