// Package commands implements the epr CLI commands.
package commands

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/epr-protocol/epr-go/pkg/addressing"
	"github.com/epr-protocol/epr-go/pkg/config"
	"github.com/epr-protocol/epr-go/pkg/epr"
	"github.com/epr-protocol/epr-go/pkg/log"
	"github.com/epr-protocol/epr-go/pkg/xmlbuf"
)

// Env carries what every command needs.
type Env struct {
	Config *config.Config
	Codec  *epr.Codec

	// Default is the dialect used when a document does not reveal its own.
	Default *addressing.Version

	// Stdin is read for the "-" path.
	Stdin io.Reader
}

// NewEnv builds an Env from cfg. logger may be nil.
func NewEnv(cfg *config.Config, logger log.Logger) (*Env, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	v, err := cfg.Dialect()
	if err != nil {
		return nil, err
	}
	return &Env{
		Config:  cfg,
		Codec:   epr.NewCodec(cfg.XMLQuotas(), logger),
		Default: v,
		Stdin:   os.Stdin,
	}, nil
}

// ReadInput reads path, or Stdin when path is "-".
func (e *Env) ReadInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(e.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// Dialect resolves a dialect flag. An empty name detects the dialect from
// data and falls back to the default.
func (e *Env) Dialect(name string, data []byte) (*addressing.Version, error) {
	if name != "" {
		return addressing.ParseVersion(name)
	}
	if v := DetectDialect(data); v != nil {
		return v, nil
	}
	return e.Default, nil
}

// Load decodes the address at path.
func (e *Env) Load(path, dialect string) (*epr.EndpointAddress, *addressing.Version, error) {
	data, err := e.ReadInput(path)
	if err != nil {
		return nil, nil, err
	}
	v, err := e.Dialect(dialect, data)
	if err != nil {
		return nil, nil, err
	}
	a, err := e.Codec.DecodeBytes(v, data)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding %s as %s: %w", path, v, err)
	}
	return a, v, nil
}

// DetectDialect returns the dialect named by the root element's namespace,
// or by its first child's when the root is foreign. It returns nil when
// neither is an addressing namespace.
func DetectDialect(data []byte) *addressing.Version {
	dec := xml.NewDecoder(bytes.NewReader(data))
	start, err := xmlbuf.FirstElement(dec)
	if err != nil {
		return nil
	}
	if v, err := addressing.VersionForNamespace(start.Name.Space); err == nil {
		return v
	}
	child, ok, err := xmlbuf.NextElement(dec)
	if err != nil || !ok {
		return nil
	}
	if v, err := addressing.VersionForNamespace(child.Name.Space); err == nil {
		return v
	}
	return nil
}
