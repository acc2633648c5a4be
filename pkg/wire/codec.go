package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// encMode writes snapshots deterministically: equal snapshots encode to
// equal bytes.
var encMode cbor.EncMode

// decMode reads snapshots strictly. A snapshot crosses a process boundary,
// so duplicate keys, unknown fields and indefinite lengths are rejected and
// the format version gates evolution instead.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCoreDeterministic,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsEmpty,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create snapshot encoder mode: %v", err))
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		IndefLength:       cbor.IndefLengthForbidden,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
		MaxArrayElements:  maxHeaders,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create snapshot decoder mode: %v", err))
	}
}

// maxHeaders bounds the arrays a snapshot may carry.
const maxHeaders = 4096

// Marshal encodes a snapshot value.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes a snapshot value.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
