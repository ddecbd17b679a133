package scale

import (
	"bytes"
	"math/big"

	gsrpc "github.com/centrifuge/go-substrate-rpc-client/v4/scale"
)

// Unmarshaler is implemented by pointer types with a hand written decoding
type Unmarshaler interface {
	DecodeScale(d *Decoder) error
}

// Decoder reads consecutive values from an input buffer. It tracks the
// offset and bounds every read, handing the bytes of each primitive to the gsrpc codec.
type Decoder struct {
	data []byte
	off  int
}

func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Unmarshal decodes data into v, failing if any input is left over
func Unmarshal(data []byte, v interface{}) error {
	d := NewDecoder(data)

	if err := d.Decode(v); err != nil {
		return err
	}

	if d.Len() != 0 {
		return d.fail("unmarshal", d.off, ErrTrailingBytes)
	}

	return nil
}

// UnmarshalPrefix decodes a value from the start of data and returns the
// bytes that follow it
func UnmarshalPrefix(data []byte, v interface{}) ([]byte, error) {
	d := NewDecoder(data)

	if err := d.Decode(v); err != nil {
		return nil, err
	}

	return d.Remaining(), nil
}

// Len is the number of unread bytes
func (d *Decoder) Len() int {
	return len(d.data) - d.off
}

// Offset is the number of bytes consumed so far
func (d *Decoder) Offset() int {
	return d.off
}

// Remaining returns the unread input. The slice aliases the decoder input.
func (d *Decoder) Remaining() []byte {
	return d.data[d.off:]
}

func (d *Decoder) fail(op string, offset int, err error) error {
	return &Error{Op: op, Offset: offset, Err: err}
}

// next hands the following n bytes to a codec decoder and moves past them
func (d *Decoder) next(op string, n int) (*gsrpc.Decoder, error) {
	if n < 0 || d.Len() < n {
		return nil, d.fail(op, d.off, ErrTruncated)
	}

	dec := gsrpc.NewDecoder(bytes.NewReader(d.data[d.off : d.off+n]))
	d.off += n

	return dec, nil
}

// decodeFixed decodes a fixed width primitive into target
func (d *Decoder) decodeFixed(op string, size int, target interface{}) error {
	start := d.off

	dec, err := d.next(op, size)
	if err != nil {
		return err
	}

	if err := dec.Decode(target); err != nil {
		return d.fail(op, start, err)
	}

	return nil
}

func (d *Decoder) ReadByte() (byte, error) {
	start := d.off

	dec, err := d.next("read byte", 1)
	if err != nil {
		return 0, err
	}

	b, err := dec.ReadOneByte()
	if err != nil {
		return 0, d.fail("read byte", start, err)
	}

	return b, nil
}

// Read consumes n bytes. The returned slice aliases the decoder input.
func (d *Decoder) Read(n int) ([]byte, error) {
	if n < 0 || d.Len() < n {
		return nil, d.fail("read", d.off, ErrTruncated)
	}

	b := d.data[d.off : d.off+n]
	d.off += n

	return b, nil
}

// ReadInto fills dst from the input
func (d *Decoder) ReadInto(dst []byte) error {
	start := d.off

	dec, err := d.next("read", len(dst))
	if err != nil {
		return err
	}

	if err := dec.Read(dst); err != nil {
		return d.fail("read", start, err)
	}

	return nil
}

// DecodeBool accepts only 0 and 1
func (d *Decoder) DecodeBool() (bool, error) {
	start := d.off

	b, err := d.ReadByte()
	if err != nil {
		return false, err
	}

	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, d.fail("decode bool", start, UnknownVariant("bool", b))
	}
}

func (d *Decoder) DecodeUint8() (uint8, error) {
	var v uint8
	err := d.decodeFixed("decode u8", 1, &v)

	return v, err
}

func (d *Decoder) DecodeUint16() (uint16, error) {
	var v uint16
	err := d.decodeFixed("decode u16", 2, &v)

	return v, err
}

func (d *Decoder) DecodeUint32() (uint32, error) {
	var v uint32
	err := d.decodeFixed("decode u32", 4, &v)

	return v, err
}

func (d *Decoder) DecodeUint64() (uint64, error) {
	var v uint64
	err := d.decodeFixed("decode u64", 8, &v)

	return v, err
}

// DecodeU128 reads a 16 byte little endian unsigned integer
func (d *Decoder) DecodeU128() (*big.Int, error) {
	return d.DecodeFixedUint(16)
}

// DecodeU256 reads a 32 byte little endian unsigned integer
func (d *Decoder) DecodeU256() (*big.Int, error) {
	return d.DecodeFixedUint(32)
}

// DecodeFixedUint reads a little endian unsigned integer of size bytes
func (d *Decoder) DecodeFixedUint(size int) (*big.Int, error) {
	var (
		n   uint64
		err error
	)

	switch size {
	case 1:
		var v uint8
		v, err = d.DecodeUint8()
		n = uint64(v)
	case 2:
		var v uint16
		v, err = d.DecodeUint16()
		n = uint64(v)
	case 4:
		var v uint32
		v, err = d.DecodeUint32()
		n = uint64(v)
	case 8:
		n, err = d.DecodeUint64()
	default:
		return d.decodeWide(size)
	}

	if err != nil {
		return nil, err
	}

	return new(big.Int).SetUint64(n), nil
}

func (d *Decoder) decodeWide(size int) (*big.Int, error) {
	b := make([]byte, size)
	if err := d.ReadInto(b); err != nil {
		return nil, err
	}

	reverse(b)

	return new(big.Int).SetBytes(b), nil
}

// DecodeLength reads a compact collection length and checks it against the
// unread input, so a corrupt prefix cannot trigger a huge allocation.
func (d *Decoder) DecodeLength() (int, error) {
	start := d.off

	n, err := d.DecodeCompact()
	if err != nil {
		return 0, err
	}

	if n > uint64(d.Len()) {
		return 0, d.fail("decode length", start, ErrTruncated)
	}

	return int(n), nil
}

// DecodeBytes reads a length prefixed byte sequence into a fresh slice
func (d *Decoder) DecodeBytes() ([]byte, error) {
	n, err := d.DecodeLength()
	if err != nil {
		return nil, err
	}

	out := make([]byte, n)
	if err := d.ReadInto(out); err != nil {
		return nil, err
	}

	return out, nil
}

func (d *Decoder) DecodeString() (string, error) {
	b, err := d.DecodeBytes()
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// DecodeOption reads an Option discriminant, returning whether a value follows
func (d *Decoder) DecodeOption() (bool, error) {
	start := d.off

	b, err := d.ReadByte()
	if err != nil {
		return false, err
	}

	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, d.fail("decode option", start, UnknownVariant("Option", b))
	}
}

// Decode reads a value into the pointer v, walking it by reflection
func (d *Decoder) Decode(v interface{}) error {
	if u, ok := v.(Unmarshaler); ok {
		return u.DecodeScale(d)
	}

	return decodeInto(d, v)
}
