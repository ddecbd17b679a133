package metadata

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/0xPolygon/substrate-client/scale"
)

// maxDepth bounds recursion through nested types
const maxDepth = 256

var (
	ErrTypeMismatch = errors.New("value does not match type")
	ErrTooDeep      = errors.New("type nesting too deep")
)

// DecodeAs decodes one value of the given type from the front of data and
// returns it with the unread remainder
func (r *Registry) DecodeAs(typeID uint32, data []byte) (Value, []byte, error) {
	d := scale.NewDecoder(data)

	v, err := r.DecodeValue(typeID, d)
	if err != nil {
		return Value{}, nil, err
	}

	return v, d.Remaining(), nil
}

// DecodeValue decodes one value of the given type from d
func (r *Registry) DecodeValue(typeID uint32, d *scale.Decoder) (Value, error) {
	return r.decode(typeID, d, 0)
}

func (r *Registry) decode(id uint32, d *scale.Decoder, depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, ErrTooDeep
	}

	t, err := r.mustType(id)
	if err != nil {
		return Value{}, err
	}

	def := t.Def

	switch def.Kind {
	case DefComposite:
		fields := make([]NamedValue, len(def.Fields))

		for i, f := range def.Fields {
			v, err := r.decode(f.Type, d, depth+1)
			if err != nil {
				return Value{}, fmt.Errorf("%s.%s: %w", t.Name(), f.FieldName(), err)
			}

			fields[i] = NamedValue{Name: f.FieldName(), Value: v}
		}

		return Value{Kind: ValueComposite, TypeID: id, Fields: fields}, nil

	case DefVariant:
		start := d.Offset()

		index, err := d.ReadByte()
		if err != nil {
			return Value{}, err
		}

		variant, ok := r.variantByIndex(id, index)
		if !ok {
			return Value{}, &scale.Error{Op: "decode " + t.Name(), Offset: start, Err: scale.UnknownVariant(t.Name(), index)}
		}

		fields := make([]NamedValue, len(variant.Fields))

		for i, f := range variant.Fields {
			v, err := r.decode(f.Type, d, depth+1)
			if err != nil {
				return Value{}, fmt.Errorf("%s::%s: %w", t.Name(), variant.Name, err)
			}

			fields[i] = NamedValue{Name: f.FieldName(), Value: v}
		}

		return Value{
			Kind:         ValueVariant,
			TypeID:       id,
			Variant:      variant.Name,
			VariantIndex: variant.Index,
			Fields:       fields,
		}, nil

	case DefSequence:
		n, err := d.DecodeLength()
		if err != nil {
			return Value{}, err
		}

		return r.decodeElems(id, def.Elem, n, d, depth)

	case DefArray:
		return r.decodeElems(id, def.Elem, int(def.Len), d, depth)

	case DefTuple:
		fields := make([]NamedValue, len(def.Tuple))

		for i, elem := range def.Tuple {
			v, err := r.decode(elem, d, depth+1)
			if err != nil {
				return Value{}, err
			}

			fields[i] = NamedValue{Value: v}
		}

		return Value{Kind: ValueComposite, TypeID: id, Fields: fields}, nil

	case DefPrimitive:
		v, err := decodePrimitive(def.Primitive, d)
		v.TypeID = id

		return v, err

	case DefCompact:
		return r.decodeCompact(def.Elem, d, depth+1)

	case DefBitSequence:
		return r.decodeBits(id, def, d)

	default:
		return Value{}, fmt.Errorf("%w: type %d has kind %d", ErrTypeMismatch, id, def.Kind)
	}
}

func (r *Registry) decodeElems(id, elem uint32, n int, d *scale.Decoder, depth int) (Value, error) {
	fields := make([]NamedValue, n)

	for i := 0; i < n; i++ {
		v, err := r.decode(elem, d, depth+1)
		if err != nil {
			return Value{}, fmt.Errorf("element %d: %w", i, err)
		}

		fields[i] = NamedValue{Value: v}
	}

	return Value{Kind: ValueComposite, TypeID: id, Fields: fields}, nil
}

// decodeCompact reads a compact integer into the shape of the wrapped type,
// which is a primitive or a chain of single field composites around one
func (r *Registry) decodeCompact(id uint32, d *scale.Decoder, depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, ErrTooDeep
	}

	t, err := r.mustType(id)
	if err != nil {
		return Value{}, err
	}

	switch {
	case t.Def.Kind == DefPrimitive:
		n, err := d.DecodeCompactBig()
		if err != nil {
			return Value{}, err
		}

		return Value{Kind: ValueNumber, TypeID: id, Num: n}, nil

	case t.Def.Kind == DefComposite && len(t.Def.Fields) == 1:
		inner, err := r.decodeCompact(t.Def.Fields[0].Type, d, depth+1)
		if err != nil {
			return Value{}, err
		}

		return Value{
			Kind:   ValueComposite,
			TypeID: id,
			Fields: []NamedValue{{Name: t.Def.Fields[0].FieldName(), Value: inner}},
		}, nil

	case t.Def.Kind == DefTuple && len(t.Def.Tuple) == 1:
		inner, err := r.decodeCompact(t.Def.Tuple[0], d, depth+1)
		if err != nil {
			return Value{}, err
		}

		return Value{Kind: ValueComposite, TypeID: id, Fields: []NamedValue{{Value: inner}}}, nil

	case r.IsEmptyType(id):
		return Value{Kind: ValueComposite, TypeID: id}, nil

	default:
		return Value{}, fmt.Errorf("%w: compact of type %d", ErrTypeMismatch, id)
	}
}

func decodePrimitive(p Primitive, d *scale.Decoder) (Value, error) {
	switch p {
	case PrimBool:
		b, err := d.DecodeBool()

		return BoolValue(b), err
	case PrimChar:
		c, err := d.DecodeUint32()

		return Value{Kind: ValueChar, Char: rune(c)}, err
	case PrimStr:
		s, err := d.DecodeString()

		return StringValue(s), err
	}

	size := p.byteSize()
	if size == 0 {
		return Value{}, fmt.Errorf("%w: primitive %d", ErrTypeMismatch, p)
	}

	n, err := d.DecodeFixedUint(size)
	if err != nil {
		return Value{}, err
	}

	if p.signed() && n.Bit(8*size-1) == 1 {
		// two's complement
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(8*size)))
	}

	return NumberValue(n), nil
}

type bitOrder byte

const (
	lsb0 bitOrder = iota
	msb0
)

func (r *Registry) bitLayout(def TypeDef) (int, bitOrder, error) {
	store, err := r.mustType(def.BitStore)
	if err != nil {
		return 0, 0, err
	}

	if store.Def.Kind != DefPrimitive {
		return 0, 0, fmt.Errorf("%w: bit store type %d", ErrTypeMismatch, def.BitStore)
	}

	size := store.Def.Primitive.byteSize()
	if size == 0 || size > 8 || store.Def.Primitive.signed() {
		return 0, 0, fmt.Errorf("%w: bit store primitive %d", ErrTypeMismatch, store.Def.Primitive)
	}

	order, err := r.mustType(def.BitOrder)
	if err != nil {
		return 0, 0, err
	}

	switch order.Name() {
	case "Lsb0":
		return size, lsb0, nil
	case "Msb0":
		return size, msb0, nil
	default:
		return 0, 0, fmt.Errorf("%w: bit order %q", ErrTypeMismatch, order.Name())
	}
}

func (r *Registry) decodeBits(id uint32, def TypeDef, d *scale.Decoder) (Value, error) {
	size, order, err := r.bitLayout(def)
	if err != nil {
		return Value{}, err
	}

	start := d.Offset()

	count, err := d.DecodeCompact()
	if err != nil {
		return Value{}, err
	}

	storeBits := 8 * size
	if count > uint64(d.Len())*8 {
		return Value{}, &scale.Error{Op: "decode bit sequence", Offset: start, Err: scale.ErrTruncated}
	}

	nbits := int(count)
	words := (nbits + storeBits - 1) / storeBits

	raw, err := d.Read(words * size)
	if err != nil {
		return Value{}, err
	}

	bits := make([]bool, nbits)

	for i := range bits {
		word := raw[(i/storeBits)*size : (i/storeBits+1)*size]

		var w uint64
		for j := size - 1; j >= 0; j-- {
			w = w<<8 | uint64(word[j])
		}

		pos := i % storeBits
		if order == msb0 {
			pos = storeBits - 1 - pos
		}

		bits[i] = w>>uint(pos)&1 == 1
	}

	return Value{Kind: ValueBits, TypeID: id, Bits: bits}, nil
}

// EncodeAs encodes v as the given type
func (r *Registry) EncodeAs(typeID uint32, v Value) ([]byte, error) {
	e := scale.AcquireEncoder()
	defer scale.ReleaseEncoder(e)

	if err := r.EncodeValue(e, typeID, v); err != nil {
		return nil, err
	}

	if err := e.Err(); err != nil {
		return nil, err
	}

	return e.CopyBytes(), nil
}

// EncodeValue appends the encoding of v as the given type to e
func (r *Registry) EncodeValue(e *scale.Encoder, typeID uint32, v Value) error {
	return r.encode(e, typeID, v, 0)
}

func (r *Registry) encode(e *scale.Encoder, id uint32, v Value, depth int) error {
	if depth > maxDepth {
		return ErrTooDeep
	}

	t, err := r.mustType(id)
	if err != nil {
		return err
	}

	def := t.Def

	switch def.Kind {
	case DefComposite:
		if len(def.Fields) == 0 {
			return nil
		}

		// a bare value stands in for a single field wrapper
		if len(def.Fields) == 1 && (v.Kind != ValueComposite || len(v.Fields) != 1) {
			return r.encode(e, def.Fields[0].Type, v, depth+1)
		}

		if v.Kind != ValueComposite {
			return mismatch(t, v)
		}

		return r.encodeFields(e, t.Name(), def.Fields, v.Fields, depth)

	case DefVariant:
		if v.Kind != ValueVariant {
			return mismatch(t, v)
		}

		variant, ok := r.variantByName(id, v.Variant)
		if !ok {
			return fmt.Errorf("%w: %s has no variant %s", ErrTypeMismatch, t.Name(), v.Variant)
		}

		e.PushByte(variant.Index)

		return r.encodeFields(e, t.Name()+"::"+variant.Name, variant.Fields, v.Fields, depth)

	case DefSequence:
		if v.Kind != ValueComposite {
			return mismatch(t, v)
		}

		e.EncodeCompact(uint64(len(v.Fields)))

		return r.encodeElems(e, def.Elem, v, depth)

	case DefArray:
		if v.Kind != ValueComposite || len(v.Fields) != int(def.Len) {
			return fmt.Errorf("%w: array of %d needs %d elements", ErrTypeMismatch, def.Len, len(v.Fields))
		}

		return r.encodeElems(e, def.Elem, v, depth)

	case DefTuple:
		if v.Kind != ValueComposite || len(v.Fields) != len(def.Tuple) {
			return mismatch(t, v)
		}

		for i, elem := range def.Tuple {
			if err := r.encode(e, elem, v.Fields[i].Value, depth+1); err != nil {
				return err
			}
		}

		return nil

	case DefPrimitive:
		return encodePrimitive(e, def.Primitive, v)

	case DefCompact:
		n, ok := compactNumber(v)
		if !ok {
			if r.IsEmptyType(def.Elem) {
				return nil
			}

			return mismatch(t, v)
		}

		return e.EncodeCompactBig(n)

	case DefBitSequence:
		return r.encodeBits(e, def, v)

	default:
		return mismatch(t, v)
	}
}

func (r *Registry) encodeFields(e *scale.Encoder, name string, fields []Field, values []NamedValue, depth int) error {
	if len(values) != len(fields) {
		return fmt.Errorf("%w: %s has %d fields, got %d", ErrTypeMismatch, name, len(fields), len(values))
	}

	for i, f := range fields {
		fv := values[i].Value

		// named values may come in any order
		if fname := f.FieldName(); fname != "" && values[i].Name != "" && values[i].Name != fname {
			named, ok := Value{Fields: values}.Field(fname)
			if !ok {
				return fmt.Errorf("%w: %s is missing field %s", ErrTypeMismatch, name, fname)
			}

			fv = named
		}

		if err := r.encode(e, f.Type, fv, depth+1); err != nil {
			return fmt.Errorf("%s.%s: %w", name, f.FieldName(), err)
		}
	}

	return nil
}

func (r *Registry) encodeElems(e *scale.Encoder, elem uint32, v Value, depth int) error {
	for i, f := range v.Fields {
		if err := r.encode(e, elem, f.Value, depth+1); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}

	return nil
}

func compactNumber(v Value) (*big.Int, bool) {
	v = v.Unwrap()
	if v.Kind != ValueNumber {
		return nil, false
	}

	if v.Num == nil {
		return new(big.Int), true
	}

	return v.Num, true
}

func encodePrimitive(e *scale.Encoder, p Primitive, v Value) error {
	v = v.Unwrap()

	switch p {
	case PrimBool:
		if v.Kind != ValueBool {
			return fmt.Errorf("%w: expected bool", ErrTypeMismatch)
		}

		e.EncodeBool(v.Bool)

		return nil
	case PrimChar:
		if v.Kind != ValueChar {
			return fmt.Errorf("%w: expected char", ErrTypeMismatch)
		}

		e.EncodeUint32(uint32(v.Char))

		return nil
	case PrimStr:
		if v.Kind != ValueString {
			return fmt.Errorf("%w: expected string", ErrTypeMismatch)
		}

		e.EncodeString(v.Str)

		return nil
	}

	if v.Kind != ValueNumber {
		return fmt.Errorf("%w: expected number", ErrTypeMismatch)
	}

	n := v.Num
	if n == nil {
		n = new(big.Int)
	}

	size := p.byteSize()
	bitSize := uint(8 * size)

	if p.signed() {
		limit := new(big.Int).Lsh(big.NewInt(1), bitSize-1)
		if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
			return fmt.Errorf("%w: %s out of range", scale.ErrOverflow, n)
		}

		if n.Sign() < 0 {
			n = new(big.Int).Add(n, new(big.Int).Lsh(big.NewInt(1), bitSize))
		}
	} else if n.Sign() < 0 || n.BitLen() > int(bitSize) {
		return fmt.Errorf("%w: %s out of range", scale.ErrOverflow, n)
	}

	return e.EncodeFixedUint(n, size)
}

func (r *Registry) encodeBits(e *scale.Encoder, def TypeDef, v Value) error {
	if v.Kind != ValueBits {
		return fmt.Errorf("%w: expected bits", ErrTypeMismatch)
	}

	size, order, err := r.bitLayout(def)
	if err != nil {
		return err
	}

	storeBits := 8 * size
	words := (len(v.Bits) + storeBits - 1) / storeBits
	out := make([]byte, words*size)

	for i, bit := range v.Bits {
		if !bit {
			continue
		}

		pos := i % storeBits
		if order == msb0 {
			pos = storeBits - 1 - pos
		}

		out[(i/storeBits)*size+pos/8] |= 1 << uint(pos%8)
	}

	e.EncodeCompact(uint64(len(v.Bits)))
	e.Write(out)

	return nil
}

func mismatch(t *Type, v Value) error {
	return fmt.Errorf("%w: cannot encode value of kind %d as %s (kind %d)", ErrTypeMismatch, v.Kind, t.Name(), t.Def.Kind)
}
