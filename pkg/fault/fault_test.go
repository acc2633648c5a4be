package fault

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"malformed", Malformed("bad uri %q", "x"), KindMalformedInput},
		{"wrapped twice", fmt.Errorf("decode: %w", Incompatible("none")), KindDialectIncompatible},
		{"quota", fmt.Errorf("%w: 10 > 5", ErrQuotaExceeded), KindQuotaExceeded},
		{"comparison", ErrUnsupportedComparison, KindUnsupportedComparison},
		{"unrelated", io.EOF, KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMalformedMessage(t *testing.T) {
	err := Malformed("missing %s element", "Address")
	if !errors.Is(err, ErrMalformedInput) {
		t.Fatal("expected ErrMalformedInput")
	}
	if err.Error() != "malformed input: missing Address element" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestKindString(t *testing.T) {
	if KindMisplacedExtension.String() != "MISPLACED_EXTENSION" {
		t.Errorf("String() = %q", KindMisplacedExtension.String())
	}
	if Kind(200).String() != "OTHER" {
		t.Errorf("unknown kind String() = %q", Kind(200).String())
	}
}
