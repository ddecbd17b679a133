package dispatch

import (
	"errors"
	"fmt"
)

// RootErrorDecoder is implemented by caller defined error types that cover the
// errors of one or more pallets. DecodeRootError returns ErrUnknownPalletOrVariant
// when the pallet and error names match none of its variants.
type RootErrorDecoder interface {
	DecodeRootError(pallet, name string, data []byte) error
}

// AsRootError resolves a module error through the registry and decodes it into E
// by pallet and error name. The data passed on are the error bytes following the
// error index.
func AsRootError[E any, PE interface {
	*E
	RootErrorDecoder
}](m *ModuleError) (E, error) {
	var out E

	if m == nil {
		return out, fmt.Errorf("%w: not a module error", ErrUnknownPalletOrVariant)
	}

	desc, err := m.Details()
	if err != nil {
		return out, err
	}

	if err := PE(&out).DecodeRootError(desc.PalletName, desc.ErrorName, m.ErrorBytes[1:]); err != nil {
		if errors.Is(err, ErrUnknownPalletOrVariant) {
			return out, err
		}

		return out, fmt.Errorf("decode %s: %w", desc, err)
	}

	return out, nil
}

// AsModuleError returns the module error carried by err, if any
func AsModuleError(err error) (*ModuleError, bool) {
	var m *ModuleError
	if errors.As(err, &m) {
		return m, true
	}

	return nil, false
}
