package commands

import (
	"fmt"
	"io"

	"github.com/epr-protocol/epr-go/pkg/addressing"
)

// RunConvert re-encodes the address at path in dialect to.
func RunConvert(env *Env, path, from, to string, w io.Writer) error {
	if to == "" {
		return fmt.Errorf("target dialect required")
	}
	target, err := addressing.ParseVersion(to)
	if err != nil {
		return err
	}
	a, _, err := env.Load(path, from)
	if err != nil {
		return err
	}
	out, err := env.Codec.EncodeBytes(target, a)
	if err != nil {
		return fmt.Errorf("encoding as %s: %w", target, err)
	}
	if _, err := w.Write(out); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w)
	return err
}
