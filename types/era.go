package types

import (
	"fmt"
	"math/bits"

	"github.com/0xPolygon/substrate-client/scale"
)

const (
	minEraPeriod = 4
	maxEraPeriod = 1 << 16
)

// Era is the validity window of a transaction. The zero value is immortal.
type Era struct {
	IsMortal bool
	Period   uint64
	Phase    uint64
}

var ImmortalEra = Era{}

// NewMortalEra creates an era valid for about period blocks starting at current.
// The period is rounded up to a power of two and clamped to [4, 65536].
func NewMortalEra(current, period uint64) Era {
	if period < minEraPeriod {
		period = minEraPeriod
	}

	if period > maxEraPeriod {
		period = maxEraPeriod
	}

	if period&(period-1) != 0 {
		period = 1 << bits.Len64(period)
		if period > maxEraPeriod {
			period = maxEraPeriod
		}
	}

	phase := current % period
	quantize := quantizeFactor(period)
	phase = phase / quantize * quantize

	return Era{IsMortal: true, Period: period, Phase: phase}
}

func quantizeFactor(period uint64) uint64 {
	if q := period >> 12; q > 1 {
		return q
	}

	return 1
}

// Birth is the first block number from which the era is valid, given the current block
func (e Era) Birth(current uint64) uint64 {
	if !e.IsMortal {
		return 0
	}

	base := current
	if base < e.Phase {
		base = e.Phase
	}

	return (base-e.Phase)/e.Period*e.Period + e.Phase
}

// Death is the first block number at which the era is no longer valid
func (e Era) Death(current uint64) uint64 {
	if !e.IsMortal {
		return ^uint64(0)
	}

	return e.Birth(current) + e.Period
}

func (e Era) String() string {
	if !e.IsMortal {
		return "immortal"
	}

	return fmt.Sprintf("mortal(period=%d, phase=%d)", e.Period, e.Phase)
}

func (e Era) EncodeScale(enc *scale.Encoder) error {
	if !e.IsMortal {
		enc.PushByte(0)

		return nil
	}

	low := uint64(bits.TrailingZeros64(e.Period)) - 1
	if low < 1 {
		low = 1
	}

	if low > 15 {
		low = 15
	}

	encoded := low | (e.Phase/quantizeFactor(e.Period))<<4
	enc.EncodeUint16(uint16(encoded))

	return nil
}

func (e *Era) DecodeScale(d *scale.Decoder) error {
	first, err := d.ReadByte()
	if err != nil {
		return err
	}

	if first == 0 {
		*e = ImmortalEra

		return nil
	}

	second, err := d.ReadByte()
	if err != nil {
		return err
	}

	encoded := uint64(first) | uint64(second)<<8
	period := uint64(2) << (encoded % (1 << 4))
	phase := (encoded >> 4) * quantizeFactor(period)

	if period < minEraPeriod || phase >= period {
		return fmt.Errorf("invalid mortal era period %d phase %d", period, phase)
	}

	*e = Era{IsMortal: true, Period: period, Phase: phase}

	return nil
}
