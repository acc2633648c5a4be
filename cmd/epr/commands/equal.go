package commands

import (
	"fmt"
	"io"
)

// RunEqual compares the addresses at pathA and pathB and reports whether
// they address the same endpoint.
func RunEqual(env *Env, pathA, pathB, dialect string, w io.Writer) (bool, error) {
	a, _, err := env.Load(pathA, dialect)
	if err != nil {
		return false, err
	}
	b, _, err := env.Load(pathB, dialect)
	if err != nil {
		return false, err
	}
	eq, err := a.EndpointEquals(b)
	if err != nil {
		return false, err
	}
	if eq {
		fmt.Fprintf(w, "equal (hash %08x)\n", a.Hash())
	} else {
		fmt.Fprintln(w, "not equal")
	}
	return eq, nil
}
