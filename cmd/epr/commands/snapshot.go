package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/epr-protocol/epr-go/pkg/addressing"
	"github.com/epr-protocol/epr-go/pkg/wire"
)

// RunSnapshot prints the CBOR snapshot of the address at path as hex.
func RunSnapshot(env *Env, path, dialect string, w io.Writer) error {
	a, _, err := env.Load(path, dialect)
	if err != nil {
		return err
	}
	data, err := wire.EncodeAddress(a)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, hex.EncodeToString(data))
	return err
}

// RunRestore reads a hex snapshot from path and encodes it in dialect to.
func RunRestore(env *Env, path, to string, w io.Writer) error {
	target, err := addressing.ParseVersion(to)
	if err != nil {
		return err
	}
	text, err := env.ReadInput(path)
	if err != nil {
		return err
	}
	data, err := hex.DecodeString(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid snapshot hex: %w", err)
	}
	a, err := wire.DecodeAddress(data, env.Config.XMLQuotas())
	if err != nil {
		return err
	}
	out, err := env.Codec.EncodeBytes(target, a)
	if err != nil {
		return err
	}
	if _, err := w.Write(out); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w)
	return err
}
