package txpool

import (
	"fmt"

	"github.com/0xPolygon/substrate-client/scale"
)

type ValidityKind uint8

const (
	Valid ValidityKind = iota
	Invalid
	Unknown
)

func (k ValidityKind) String() string {
	switch k {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	case Unknown:
		return "unknown"
	default:
		return fmt.Sprintf("ValidityKind(%d)", k)
	}
}

// InvalidReason says why the runtime will never accept a transaction
type InvalidReason uint8

const (
	InvalidCall InvalidReason = iota
	InvalidPayment
	InvalidFuture
	InvalidStale
	InvalidBadProof
	InvalidAncientBirthBlock
	InvalidExhaustsResources
	InvalidCustom
	InvalidBadMandatory
	InvalidMandatoryValidation
	InvalidBadSigner
)

var invalidReasonNames = []string{
	"Call",
	"Payment",
	"Future",
	"Stale",
	"BadProof",
	"AncientBirthBlock",
	"ExhaustsResources",
	"Custom",
	"BadMandatory",
	"MandatoryValidation",
	"BadSigner",
}

func (r InvalidReason) String() string {
	if int(r) < len(invalidReasonNames) {
		return invalidReasonNames[r]
	}

	return fmt.Sprintf("InvalidReason(%d)", r)
}

// UnknownReason says why validity could not be determined
type UnknownReason uint8

const (
	UnknownCannotLookup UnknownReason = iota
	UnknownNoUnsignedValidator
	UnknownCustom
)

func (r UnknownReason) String() string {
	switch r {
	case UnknownCannotLookup:
		return "CannotLookup"
	case UnknownNoUnsignedValidator:
		return "NoUnsignedValidator"
	case UnknownCustom:
		return "Custom"
	default:
		return fmt.Sprintf("UnknownReason(%d)", r)
	}
}

// ValidTransaction is the pool metadata of a valid transaction
type ValidTransaction struct {
	Priority  uint64
	Requires  [][]byte
	Provides  [][]byte
	Longevity uint64
	Propagate bool
}

// ValidationResult is the runtime's verdict on a transaction. Invalidity is a
// result, not an error.
type ValidationResult struct {
	Kind ValidityKind
	// Transaction is set when Kind is Valid
	Transaction *ValidTransaction
	// InvalidReason is set when Kind is Invalid
	InvalidReason InvalidReason
	// UnknownReason is set when Kind is Unknown
	UnknownReason UnknownReason
	// Custom is the runtime defined code of a custom reason
	Custom uint8
}

func (v *ValidationResult) IsValid() bool {
	return v.Kind == Valid
}

func (v *ValidationResult) String() string {
	switch v.Kind {
	case Valid:
		return "Valid"
	case Invalid:
		if v.InvalidReason == InvalidCustom {
			return fmt.Sprintf("Invalid(Custom(%d))", v.Custom)
		}

		return fmt.Sprintf("Invalid(%s)", v.InvalidReason)
	case Unknown:
		if v.UnknownReason == UnknownCustom {
			return fmt.Sprintf("Unknown(Custom(%d))", v.Custom)
		}

		return fmt.Sprintf("Unknown(%s)", v.UnknownReason)
	default:
		return v.Kind.String()
	}
}

// DecodeScale reads a Result<ValidTransaction, TransactionValidityError>
func (v *ValidationResult) DecodeScale(d *scale.Decoder) error {
	*v = ValidationResult{}

	ok, err := d.ReadByte()
	if err != nil {
		return err
	}

	switch ok {
	case 0:
		v.Kind = Valid
		v.Transaction = new(ValidTransaction)

		return d.Decode(v.Transaction)
	case 1:
	default:
		return scale.UnknownVariant("TransactionValidity", ok)
	}

	kind, err := d.ReadByte()
	if err != nil {
		return err
	}

	reason, err := d.ReadByte()
	if err != nil {
		return err
	}

	switch kind {
	case 0:
		if int(reason) >= len(invalidReasonNames) {
			return scale.UnknownVariant("InvalidTransaction", reason)
		}

		v.Kind = Invalid
		v.InvalidReason = InvalidReason(reason)

		if v.InvalidReason == InvalidCustom {
			v.Custom, err = d.ReadByte()
		}

		return err
	case 1:
		if UnknownReason(reason) > UnknownCustom {
			return scale.UnknownVariant("UnknownTransaction", reason)
		}

		v.Kind = Unknown
		v.UnknownReason = UnknownReason(reason)

		if v.UnknownReason == UnknownCustom {
			v.Custom, err = d.ReadByte()
		}

		return err
	default:
		return scale.UnknownVariant("TransactionValidityError", kind)
	}
}

// EncodeScale is the inverse of DecodeScale
func (v ValidationResult) EncodeScale(e *scale.Encoder) error {
	switch v.Kind {
	case Valid:
		e.PushByte(0)

		tx := v.Transaction
		if tx == nil {
			tx = &ValidTransaction{}
		}

		return e.Encode(tx)
	case Invalid:
		e.PushByte(1)
		e.PushByte(0)
		e.PushByte(byte(v.InvalidReason))

		if v.InvalidReason == InvalidCustom {
			e.PushByte(v.Custom)
		}
	case Unknown:
		e.PushByte(1)
		e.PushByte(1)
		e.PushByte(byte(v.UnknownReason))

		if v.UnknownReason == UnknownCustom {
			e.PushByte(v.Custom)
		}
	default:
		return fmt.Errorf("unknown validity kind %d", v.Kind)
	}

	return nil
}
