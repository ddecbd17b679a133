package scale

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated       = errors.New("unexpected end of input")
	ErrUnknownVariant  = errors.New("unknown variant")
	ErrNonCanonical    = errors.New("non-canonical compact encoding")
	ErrTrailingBytes   = errors.New("trailing bytes after value")
	ErrOverflow        = errors.New("value overflows target")
	ErrUnsupportedType = errors.New("unsupported type")
)

// Error is returned by every failed decode. Offset is the position in the
// input where the failing read started.
type Error struct {
	Op     string
	Offset int
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("scale: %s at offset %d: %v", e.Op, e.Offset, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UnknownVariant builds the error returned when an enum discriminant is not
// recognised by the type being decoded.
func UnknownVariant(typ string, index byte) error {
	return fmt.Errorf("%w %d for %s", ErrUnknownVariant, index, typ)
}
