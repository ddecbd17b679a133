package dispatch

import (
	"errors"
	"fmt"

	"github.com/0xPolygon/substrate-client/metadata"
	"github.com/0xPolygon/substrate-client/scale"
)

var (
	// ErrUnknownPalletOrVariant is returned when the registry has no error for a
	// module error's indices, or a caller's error type has no matching variant
	ErrUnknownPalletOrVariant = errors.New("unknown pallet or error variant")
	ErrMalformed              = errors.New("malformed dispatch error")
)

// ErrorKind is the broad category of a failed dispatch
type ErrorKind uint8

const (
	Other ErrorKind = iota
	CannotLookup
	BadOrigin
	Module
	ConsumerRemaining
	NoProviders
	TooManyConsumers
	Token
	Arithmetic
	Transactional
	Exhausted
	Corruption
	Unavailable
	RootNotAllowed
)

var kindNames = []string{
	"Other",
	"CannotLookup",
	"BadOrigin",
	"Module",
	"ConsumerRemaining",
	"NoProviders",
	"TooManyConsumers",
	"Token",
	"Arithmetic",
	"Transactional",
	"Exhausted",
	"Corruption",
	"Unavailable",
	"RootNotAllowed",
}

func (k ErrorKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return fmt.Sprintf("ErrorKind(%d)", k)
}

func kindByName(name string) (ErrorKind, bool) {
	for i, n := range kindNames {
		if n == name {
			return ErrorKind(i), true
		}
	}

	return 0, false
}

var (
	tokenErrors = []string{
		"FundsUnavailable", "OnlyProvider", "BelowMinimum", "CannotCreate", "UnknownAsset",
		"Frozen", "Unsupported", "CannotCreateHold", "NotExpendable", "Blocked",
	}
	arithmeticErrors    = []string{"Underflow", "Overflow", "DivisionByZero"}
	transactionalErrors = []string{"LimitReached", "NoLayer"}
)

// Error is the reason the runtime reports for a failed dispatch
type Error struct {
	Kind ErrorKind
	// Module is set for Module errors
	Module *ModuleError
	// Reason names the Token, Arithmetic or Transactional sub error
	Reason string
}

func (e *Error) Error() string {
	switch e.Kind {
	case Module:
		return e.Module.Error()
	case Token, Arithmetic, Transactional:
		return fmt.Sprintf("dispatch error: %s(%s)", e.Kind, e.Reason)
	default:
		return fmt.Sprintf("dispatch error: %s", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	if e.Module != nil {
		return e.Module
	}

	return nil
}

// ModuleError is a pallet specific failure, opaque until resolved against the
// metadata it was produced under
type ModuleError struct {
	PalletIndex uint8
	ErrorIndex  uint8
	// ErrorBytes are the raw error bytes, the first being ErrorIndex
	ErrorBytes [4]byte

	registry *metadata.Registry
}

func NewModuleError(reg *metadata.Registry, palletIndex uint8, errorBytes [4]byte) *ModuleError {
	return &ModuleError{
		PalletIndex: palletIndex,
		ErrorIndex:  errorBytes[0],
		ErrorBytes:  errorBytes,
		registry:    reg,
	}
}

// Details resolves the pallet and variant names of the error
func (m *ModuleError) Details() (*metadata.ErrorDescriptor, error) {
	if m.registry == nil {
		return nil, fmt.Errorf("%w: no metadata for pallet %d error %d", ErrUnknownPalletOrVariant, m.PalletIndex, m.ErrorIndex)
	}

	desc, ok := m.registry.ResolveError(m.PalletIndex, m.ErrorIndex)
	if !ok {
		return nil, fmt.Errorf("%w: pallet %d error %d", ErrUnknownPalletOrVariant, m.PalletIndex, m.ErrorIndex)
	}

	return desc, nil
}

func (m *ModuleError) Error() string {
	desc, err := m.Details()
	if err != nil {
		return fmt.Sprintf("module error: pallet %d error %d", m.PalletIndex, m.ErrorIndex)
	}

	if len(desc.Docs) > 0 {
		return fmt.Sprintf("module error: %s: %s", desc, desc.Docs[0])
	}

	return "module error: " + desc.String()
}

// Decode reads a SCALE encoded DispatchError. The registry's own DispatchError
// type is used when it has one, so older module error layouts decode as well.
func Decode(reg *metadata.Registry, data []byte) (*Error, error) {
	if reg != nil {
		if id, ok := reg.TypeByPath("sp_runtime", "DispatchError"); ok {
			v, rest, err := reg.DecodeAs(id, data)
			if err != nil {
				return nil, err
			}

			if len(rest) != 0 {
				return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(rest))
			}

			return FromValue(reg, v)
		}
	}

	return decodeRaw(reg, data)
}

func decodeRaw(reg *metadata.Registry, data []byte) (*Error, error) {
	d := scale.NewDecoder(data)

	kind, err := d.ReadByte()
	if err != nil {
		return nil, err
	}

	e := &Error{Kind: ErrorKind(kind)}

	var names []string

	switch e.Kind {
	case Module:
		index, err := d.ReadByte()
		if err != nil {
			return nil, err
		}

		var errBytes [4]byte
		if err := d.ReadInto(errBytes[:]); err != nil {
			return nil, err
		}

		e.Module = NewModuleError(reg, index, errBytes)
	case Token:
		names = tokenErrors
	case Arithmetic:
		names = arithmeticErrors
	case Transactional:
		names = transactionalErrors
	default:
		if int(kind) >= len(kindNames) {
			return nil, scale.UnknownVariant("DispatchError", kind)
		}
	}

	if names != nil {
		sub, err := d.ReadByte()
		if err != nil {
			return nil, err
		}

		if int(sub) >= len(names) {
			return nil, scale.UnknownVariant(e.Kind.String()+"Error", sub)
		}

		e.Reason = names[sub]
	}

	if d.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, d.Len())
	}

	return e, nil
}

// FromValue converts a DispatchError decoded through the registry, such as the
// dispatch_error field of System.ExtrinsicFailed
func FromValue(reg *metadata.Registry, v metadata.Value) (*Error, error) {
	if v.Kind != metadata.ValueVariant {
		return nil, fmt.Errorf("%w: expected variant, got %s", ErrMalformed, v)
	}

	kind, ok := kindByName(v.Variant)
	if !ok {
		return nil, fmt.Errorf("%w: unknown kind %s", ErrMalformed, v.Variant)
	}

	e := &Error{Kind: kind}

	switch kind {
	case Module:
		payload, ok := v.At(0)
		if !ok {
			return nil, fmt.Errorf("%w: module error without payload", ErrMalformed)
		}

		m, err := moduleFromValue(reg, payload)
		if err != nil {
			return nil, err
		}

		e.Module = m
	case Token, Arithmetic, Transactional:
		sub, ok := v.At(0)
		if !ok || sub.Kind != metadata.ValueVariant {
			return nil, fmt.Errorf("%w: %s error without reason", ErrMalformed, kind)
		}

		e.Reason = sub.Variant
	}

	return e, nil
}

// moduleFromValue accepts both { index: u8, error: [u8; 4] } and the older
// { index: u8, error: u8 } layout
func moduleFromValue(reg *metadata.Registry, v metadata.Value) (*ModuleError, error) {
	index, ok := v.Field("index")
	if !ok {
		index, ok = v.At(0)
	}

	errField, ok2 := v.Field("error")
	if !ok2 {
		errField, ok2 = v.At(1)
	}

	if !ok || !ok2 {
		return nil, fmt.Errorf("%w: module error %s", ErrMalformed, v)
	}

	palletIndex, ok := index.Uint64()
	if !ok || palletIndex > 0xff {
		return nil, fmt.Errorf("%w: pallet index %s", ErrMalformed, index)
	}

	var errBytes [4]byte

	if raw, ok := errField.Bytes(); ok && len(raw) == 4 {
		copy(errBytes[:], raw)
	} else if n, ok := errField.Uint64(); ok && n <= 0xff {
		errBytes[0] = byte(n)
	} else {
		return nil, fmt.Errorf("%w: error index %s", ErrMalformed, errField)
	}

	return NewModuleError(reg, uint8(palletIndex), errBytes), nil
}
