package scale

import (
	"bytes"
	"fmt"
	"math/big"
	"sync"

	gsrpc "github.com/centrifuge/go-substrate-rpc-client/v4/scale"
)

// Marshaler is implemented by types with a hand written encoding, typically
// enums whose wire form is a one-byte discriminant followed by the variant payload.
type Marshaler interface {
	EncodeScale(e *Encoder) error
}

// Encoder accumulates the encoding of consecutive values. Primitive values are
// written by the gsrpc codec. The first codec error sticks and is reported by Err.
type Encoder struct {
	buf bytes.Buffer
	err error
}

var encPool = sync.Pool{
	New: func() interface{} {
		return new(Encoder)
	},
}

// AcquireEncoder returns an empty encoder from the pool
func AcquireEncoder() *Encoder {
	enc, _ := encPool.Get().(*Encoder)

	return enc
}

// ReleaseEncoder resets the encoder and gives it back to the pool
func ReleaseEncoder(enc *Encoder) {
	enc.Reset()
	encPool.Put(enc)
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

// Marshal returns the encoding of v
func Marshal(v interface{}) ([]byte, error) {
	enc := AcquireEncoder()
	defer ReleaseEncoder(enc)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	if err := enc.Err(); err != nil {
		return nil, err
	}

	return enc.CopyBytes(), nil
}

// MustMarshal is Marshal for values that are known to be encodable
func MustMarshal(v interface{}) []byte {
	b, err := Marshal(v)
	if err != nil {
		panic(fmt.Errorf("could not encode %T: %w", v, err))
	}

	return b
}

func (e *Encoder) codec() *gsrpc.Encoder {
	return gsrpc.NewEncoder(&e.buf)
}

func (e *Encoder) record(err error) {
	if err != nil && e.err == nil {
		e.err = err
	}
}

// Err returns the first error hit by a write
func (e *Encoder) Err() error {
	return e.err
}

func (e *Encoder) Reset() {
	e.buf.Reset()
	e.err = nil
}

func (e *Encoder) Size() int {
	return e.buf.Len()
}

// Bytes returns the encoder buffer. It is only valid until the next write.
func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

func (e *Encoder) CopyBytes() []byte {
	buf := make([]byte, e.buf.Len())
	copy(buf, e.buf.Bytes())

	return buf
}

// Write appends raw bytes without a length prefix
func (e *Encoder) Write(b []byte) {
	e.record(e.codec().Write(b))
}

func (e *Encoder) PushByte(b byte) {
	e.record(e.codec().PushByte(b))
}

func (e *Encoder) EncodeBool(b bool) {
	e.record(e.codec().Encode(b))
}

func (e *Encoder) EncodeUint8(v uint8) {
	e.record(e.codec().Encode(v))
}

func (e *Encoder) EncodeUint16(v uint16) {
	e.record(e.codec().Encode(v))
}

func (e *Encoder) EncodeUint32(v uint32) {
	e.record(e.codec().Encode(v))
}

func (e *Encoder) EncodeUint64(v uint64) {
	e.record(e.codec().Encode(v))
}

// EncodeU128 writes v as a 16 byte little endian integer.
// A nil value encodes as zero.
func (e *Encoder) EncodeU128(v *big.Int) error {
	return e.EncodeFixedUint(v, 16)
}

// EncodeU256 writes v as a 32 byte little endian integer
func (e *Encoder) EncodeU256(v *big.Int) error {
	return e.EncodeFixedUint(v, 32)
}

// EncodeFixedUint writes v as a little endian unsigned integer of size bytes.
// A nil value encodes as zero.
func (e *Encoder) EncodeFixedUint(v *big.Int, size int) error {
	if v == nil {
		v = new(big.Int)
	}

	if v.Sign() < 0 || v.BitLen() > size*8 {
		return fmt.Errorf("%w: %s does not fit in %d bytes", ErrOverflow, v, size)
	}

	switch size {
	case 1:
		e.EncodeUint8(uint8(v.Uint64()))
	case 2:
		e.EncodeUint16(uint16(v.Uint64()))
	case 4:
		e.EncodeUint32(uint32(v.Uint64()))
	case 8:
		e.EncodeUint64(v.Uint64())
	default:
		out := make([]byte, size)
		v.FillBytes(out)
		reverse(out)

		return e.codec().Write(out)
	}

	return nil
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

// EncodeBytes writes b prefixed by its compact length
func (e *Encoder) EncodeBytes(b []byte) {
	e.EncodeCompact(uint64(len(b)))
	e.Write(b)
}

func (e *Encoder) EncodeString(s string) {
	e.EncodeBytes([]byte(s))
}

// EncodeOption writes the Option discriminant and, when present, the value
func (e *Encoder) EncodeOption(present bool, v interface{}) error {
	if !present {
		e.PushByte(0)

		return nil
	}

	e.PushByte(1)

	return e.Encode(v)
}

// Encode appends the encoding of v, walking it by reflection
func (e *Encoder) Encode(v interface{}) error {
	if m, ok := v.(Marshaler); ok {
		return m.EncodeScale(e)
	}

	return encodeValue(e, reflectValueOf(v), false)
}
