package metadata

import (
	"fmt"
	"math/big"
	"strings"
)

type ValueKind byte

const (
	ValueBool ValueKind = iota
	ValueChar
	ValueString
	ValueNumber
	ValueComposite
	ValueVariant
	ValueBits
)

// Value is a decoded instance of a registry type whose shape is only known at runtime
type Value struct {
	Kind ValueKind
	// TypeID is the registry type the value was decoded as, zero for values built by hand
	TypeID uint32

	Bool bool
	Char rune
	Str  string
	Num  *big.Int
	Bits []bool

	// Variant name and index, for ValueVariant
	Variant      string
	VariantIndex uint8

	// Fields of a composite, tuple, sequence or array, or the payload of a variant.
	// Unnamed fields have an empty name.
	Fields []NamedValue
}

type NamedValue struct {
	Name  string
	Value Value
}

func BoolValue(b bool) Value {
	return Value{Kind: ValueBool, Bool: b}
}

func StringValue(s string) Value {
	return Value{Kind: ValueString, Str: s}
}

func NumberValue(n *big.Int) Value {
	return Value{Kind: ValueNumber, Num: n}
}

func UintValue(n uint64) Value {
	return NumberValue(new(big.Int).SetUint64(n))
}

// NamedComposite builds a composite from named fields
func NamedComposite(fields ...NamedValue) Value {
	return Value{Kind: ValueComposite, Fields: fields}
}

// UnnamedComposite builds a tuple, sequence or array value
func UnnamedComposite(values ...Value) Value {
	fields := make([]NamedValue, len(values))
	for i, v := range values {
		fields[i] = NamedValue{Value: v}
	}

	return Value{Kind: ValueComposite, Fields: fields}
}

// BytesValue builds a sequence or array of u8 values
func BytesValue(b []byte) Value {
	values := make([]Value, len(b))
	for i, x := range b {
		values[i] = UintValue(uint64(x))
	}

	return UnnamedComposite(values...)
}

func VariantValue(name string, fields ...NamedValue) Value {
	return Value{Kind: ValueVariant, Variant: name, Fields: fields}
}

// Field returns the named field of a composite or variant
func (v Value) Field(name string) (Value, bool) {
	for _, f := range v.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}

	return Value{}, false
}

// At returns the i-th field regardless of naming
func (v Value) At(i int) (Value, bool) {
	if i < 0 || i >= len(v.Fields) {
		return Value{}, false
	}

	return v.Fields[i].Value, true
}

// Unwrap descends through single field composites, the way newtype wrappers such as
// AccountId32 or Perbill are laid out
func (v Value) Unwrap() Value {
	for v.Kind == ValueComposite && len(v.Fields) == 1 {
		v = v.Fields[0].Value
	}

	return v
}

// Uint64 returns the value as an unsigned integer if it is one
func (v Value) Uint64() (uint64, bool) {
	v = v.Unwrap()
	if v.Kind != ValueNumber || v.Num == nil || !v.Num.IsUint64() {
		return 0, false
	}

	return v.Num.Uint64(), true
}

// Bytes returns the value as a byte slice if it is a composite of u8 numbers
func (v Value) Bytes() ([]byte, bool) {
	if v.Kind == ValueComposite && len(v.Fields) == 1 && v.Fields[0].Value.Kind == ValueComposite {
		return v.Fields[0].Value.Bytes()
	}

	if v.Kind != ValueComposite {
		return nil, false
	}

	out := make([]byte, len(v.Fields))

	for i, f := range v.Fields {
		if f.Value.Kind != ValueNumber || f.Value.Num == nil || !f.Value.Num.IsUint64() || f.Value.Num.Uint64() > 0xff {
			return nil, false
		}

		out[i] = byte(f.Value.Num.Uint64())
	}

	return out, true
}

func (v Value) String() string {
	var sb strings.Builder

	v.write(&sb)

	return sb.String()
}

func (v Value) write(sb *strings.Builder) {
	switch v.Kind {
	case ValueBool:
		fmt.Fprintf(sb, "%t", v.Bool)
	case ValueChar:
		fmt.Fprintf(sb, "%q", v.Char)
	case ValueString:
		fmt.Fprintf(sb, "%q", v.Str)
	case ValueNumber:
		if v.Num == nil {
			sb.WriteString("0")
		} else {
			sb.WriteString(v.Num.String())
		}
	case ValueBits:
		sb.WriteString("bits(")

		for _, b := range v.Bits {
			if b {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}

		sb.WriteByte(')')
	case ValueVariant:
		sb.WriteString(v.Variant)

		if len(v.Fields) > 0 {
			writeFields(sb, v.Fields)
		}
	default:
		if b, ok := v.Bytes(); ok && len(b) > 0 {
			fmt.Fprintf(sb, "0x%x", b)

			return
		}

		writeFields(sb, v.Fields)
	}
}

func writeFields(sb *strings.Builder, fields []NamedValue) {
	named := len(fields) > 0 && fields[0].Name != ""

	if named {
		sb.WriteString(" { ")
	} else {
		sb.WriteString("(")
	}

	for i, f := range fields {
		if i > 0 {
			sb.WriteString(", ")
		}

		if f.Name != "" {
			sb.WriteString(f.Name)
			sb.WriteString(": ")
		}

		f.Value.write(sb)
	}

	if named {
		sb.WriteString(" }")
	} else {
		sb.WriteString(")")
	}
}
