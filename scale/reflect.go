package scale

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"
)

var (
	bigIntType      = reflect.TypeOf((*big.Int)(nil))
	marshalerType   = reflect.TypeOf((*Marshaler)(nil)).Elem()
	unmarshalerType = reflect.TypeOf((*Unmarshaler)(nil)).Elem()
)

const (
	tagName    = "scale"
	tagCompact = "compact"
	tagSkip    = "-"
)

// reflectValueOf dereferences a top level pointer (only nested pointers are
// Options) and makes the value addressable so pointer receiver Marshalers are found.
func reflectValueOf(v interface{}) reflect.Value {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr && !val.IsNil() && val.Type() != bigIntType {
		return val.Elem()
	}

	if val.IsValid() && !val.CanAddr() {
		tmp := reflect.New(val.Type()).Elem()
		tmp.Set(val)

		return tmp
	}

	return val
}

type fieldOpts struct {
	skip    bool
	compact bool
}

func parseTag(tag string) fieldOpts {
	var opts fieldOpts

	for _, part := range strings.Split(tag, ",") {
		switch strings.TrimSpace(part) {
		case tagSkip:
			opts.skip = true
		case tagCompact:
			opts.compact = true
		}
	}

	return opts
}

func encodeValue(e *Encoder, val reflect.Value, compact bool) error {
	if !val.IsValid() {
		return fmt.Errorf("%w: nil value", ErrUnsupportedType)
	}

	typ := val.Type()

	if typ.Kind() != reflect.Ptr && typ.Implements(marshalerType) {
		m, _ := val.Interface().(Marshaler)

		return m.EncodeScale(e)
	}

	if val.CanAddr() && reflect.PtrTo(typ).Implements(marshalerType) {
		m, _ := val.Addr().Interface().(Marshaler)

		return m.EncodeScale(e)
	}

	if typ == bigIntType {
		n, _ := val.Interface().(*big.Int)
		if compact {
			return e.EncodeCompactBig(n)
		}

		return e.EncodeU128(n)
	}

	switch typ.Kind() {
	case reflect.Bool:
		e.EncodeBool(val.Bool())

	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		encodeUint(e, val.Uint(), typ.Size(), compact)

	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// two's complement, little endian
		encodeUint(e, uint64(val.Int()), typ.Size(), false)

	case reflect.String:
		e.EncodeString(val.String())

	case reflect.Array:
		if typ.Elem().Kind() == reflect.Uint8 && !compact {
			for i := 0; i < val.Len(); i++ {
				e.PushByte(byte(val.Index(i).Uint()))
			}

			return nil
		}

		for i := 0; i < val.Len(); i++ {
			if err := encodeValue(e, val.Index(i), compact); err != nil {
				return err
			}
		}

	case reflect.Slice:
		if typ.Elem().Kind() == reflect.Uint8 && !compact {
			e.EncodeBytes(val.Bytes())

			return nil
		}

		e.EncodeCompact(uint64(val.Len()))

		for i := 0; i < val.Len(); i++ {
			if err := encodeValue(e, val.Index(i), compact); err != nil {
				return err
			}
		}

	case reflect.Struct:
		for i := 0; i < typ.NumField(); i++ {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}

			opts := parseTag(field.Tag.Get(tagName))
			if opts.skip {
				continue
			}

			if err := encodeValue(e, val.Field(i), opts.compact); err != nil {
				return fmt.Errorf("field %s.%s: %w", typ.Name(), field.Name, err)
			}
		}

	case reflect.Ptr:
		// pointers are Option<T>
		if val.IsNil() {
			e.PushByte(0)

			return nil
		}

		e.PushByte(1)

		return encodeValue(e, val.Elem(), compact)

	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, typ)
	}

	return nil
}

func encodeUint(e *Encoder, v uint64, size uintptr, compact bool) {
	if compact {
		e.EncodeCompact(v)

		return
	}

	switch size {
	case 1:
		e.EncodeUint8(uint8(v))
	case 2:
		e.EncodeUint16(uint16(v))
	case 4:
		e.EncodeUint32(uint32(v))
	default:
		e.EncodeUint64(v)
	}
}

func decodeInto(d *Decoder, v interface{}) error {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%w: decode target must be a non-nil pointer, got %T", ErrUnsupportedType, v)
	}

	return decodeValue(d, val.Elem(), false)
}

func decodeValue(d *Decoder, val reflect.Value, compact bool) error {
	typ := val.Type()

	if reflect.PtrTo(typ).Implements(unmarshalerType) {
		u, _ := val.Addr().Interface().(Unmarshaler)

		return u.DecodeScale(d)
	}

	if typ == bigIntType {
		var (
			n   *big.Int
			err error
		)

		if compact {
			n, err = d.DecodeCompactBig()
		} else {
			n, err = d.DecodeU128()
		}

		if err != nil {
			return err
		}

		val.Set(reflect.ValueOf(n))

		return nil
	}

	switch typ.Kind() {
	case reflect.Bool:
		b, err := d.DecodeBool()
		if err != nil {
			return err
		}

		val.SetBool(b)

	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := decodeUint(d, typ.Size(), compact)
		if err != nil {
			return err
		}

		val.SetUint(n)

	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := decodeUint(d, typ.Size(), false)
		if err != nil {
			return err
		}

		shift := 64 - 8*typ.Size()
		val.SetInt(int64(n<<shift) >> shift)

	case reflect.String:
		s, err := d.DecodeString()
		if err != nil {
			return err
		}

		val.SetString(s)

	case reflect.Array:
		if typ.Elem().Kind() == reflect.Uint8 && !compact {
			b, err := d.Read(val.Len())
			if err != nil {
				return err
			}

			reflect.Copy(val, reflect.ValueOf(b))

			return nil
		}

		for i := 0; i < val.Len(); i++ {
			if err := decodeValue(d, val.Index(i), compact); err != nil {
				return err
			}
		}

	case reflect.Slice:
		if typ.Elem().Kind() == reflect.Uint8 && !compact {
			b, err := d.DecodeBytes()
			if err != nil {
				return err
			}

			val.SetBytes(b)

			return nil
		}

		n, err := d.DecodeLength()
		if err != nil {
			return err
		}

		slice := reflect.MakeSlice(typ, n, n)
		for i := 0; i < n; i++ {
			if err := decodeValue(d, slice.Index(i), compact); err != nil {
				return err
			}
		}

		val.Set(slice)

	case reflect.Struct:
		for i := 0; i < typ.NumField(); i++ {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}

			opts := parseTag(field.Tag.Get(tagName))
			if opts.skip {
				continue
			}

			if err := decodeValue(d, val.Field(i), opts.compact); err != nil {
				return fmt.Errorf("field %s.%s: %w", typ.Name(), field.Name, err)
			}
		}

	case reflect.Ptr:
		present, err := d.DecodeOption()
		if err != nil {
			return err
		}

		if !present {
			val.Set(reflect.Zero(typ))

			return nil
		}

		elem := reflect.New(typ.Elem())
		if err := decodeValue(d, elem.Elem(), compact); err != nil {
			return err
		}

		val.Set(elem)

	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, typ)
	}

	return nil
}

func decodeUint(d *Decoder, size uintptr, compact bool) (uint64, error) {
	if compact {
		start := d.Offset()

		n, err := d.DecodeCompact()
		if err != nil {
			return 0, err
		}

		if size < 8 && n>>(8*size) != 0 {
			return 0, d.fail("decode compact", start, ErrOverflow)
		}

		return n, nil
	}

	switch size {
	case 1:
		n, err := d.DecodeUint8()

		return uint64(n), err
	case 2:
		n, err := d.DecodeUint16()

		return uint64(n), err
	case 4:
		n, err := d.DecodeUint32()

		return uint64(n), err
	default:
		return d.DecodeUint64()
	}
}
