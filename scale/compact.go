package scale

import (
	"fmt"
	"math/big"
)

const (
	compactSingleMax = 1<<6 - 1
	compactTwoMax    = 1<<14 - 1
	compactFourMax   = 1<<30 - 1

	// big integer mode carries at most 4 + 63 bytes
	compactMaxBigBytes = 67
)

// EncodeCompact writes v with the variable length prefix encoding:
// the two low bits of the first byte select single, two, four byte or big integer mode.
func (e *Encoder) EncodeCompact(v uint64) {
	e.record(e.codec().EncodeUintCompact(*new(big.Int).SetUint64(v)))
}

// EncodeCompactBig is EncodeCompact for values beyond 64 bits (u128 balances)
func (e *Encoder) EncodeCompactBig(v *big.Int) error {
	if v == nil {
		e.PushByte(0)

		return nil
	}

	if v.Sign() < 0 {
		return fmt.Errorf("%w: negative compact %s", ErrOverflow, v)
	}

	if len(v.Bytes()) > compactMaxBigBytes {
		return fmt.Errorf("%w: compact %s", ErrOverflow, v)
	}

	return e.codec().EncodeUintCompact(*v)
}

// CompactLen returns the number of bytes EncodeCompact writes for v
func CompactLen(v uint64) int {
	switch {
	case v <= compactSingleMax:
		return 1
	case v <= compactTwoMax:
		return 2
	case v <= compactFourMax:
		return 4
	default:
		n := 8
		for n > 4 && v>>(8*(n-1)) == 0 {
			n--
		}

		return n + 1
	}
}

func compactLenBig(v *big.Int) int {
	if v.IsUint64() {
		return CompactLen(v.Uint64())
	}

	return len(v.Bytes()) + 1
}

// compactSize is the encoded length announced by the first byte
func compactSize(first byte) int {
	switch first & 0b11 {
	case 0b00:
		return 1
	case 0b01:
		return 2
	case 0b10:
		return 4
	default:
		return int(first>>2) + 5
	}
}

// DecodeCompact reads a compact integer that fits in 64 bits
func (d *Decoder) DecodeCompact() (uint64, error) {
	start := d.off

	v, err := d.DecodeCompactBig()
	if err != nil {
		return 0, err
	}

	if !v.IsUint64() {
		return 0, d.fail("decode compact", start, ErrOverflow)
	}

	return v.Uint64(), nil
}

// DecodeCompactBig reads a compact integer of arbitrary size, rejecting
// encodings that are not the shortest possible form.
func (d *Decoder) DecodeCompactBig() (*big.Int, error) {
	start := d.off

	if d.Len() == 0 {
		return nil, d.fail("decode compact", start, ErrTruncated)
	}

	size := compactSize(d.data[d.off])

	dec, err := d.next("decode compact", size)
	if err != nil {
		return nil, err
	}

	v, err := dec.DecodeUintCompact()
	if err != nil {
		return nil, d.fail("decode compact", start, err)
	}

	if compactLenBig(v) != size {
		return nil, d.fail("decode compact", start, ErrNonCanonical)
	}

	return v, nil
}
