package hex

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDecodeUint64 verifies that uint64 values
// are properly decoded from hex
func TestDecodeUint64(t *testing.T) {
	t.Parallel()

	uint64Array := []uint64{
		0,
		1,
		11,
		67312,
		80604,
		^uint64(0), // max uint64
	}

	toHexArr := func(nums []uint64) []string {
		numbers := make([]string, len(nums))

		for index, num := range nums {
			numbers[index] = fmt.Sprintf("0x%x", num)
		}

		return numbers
	}

	for index, value := range toHexArr(uint64Array) {
		decodedValue, err := DecodeUint64(value)
		assert.NoError(t, err)

		assert.Equal(t, uint64Array[index], decodedValue)
		assert.Equal(t, value, EncodeUint64(decodedValue))
	}

	_, err := DecodeUint64("0x")
	assert.ErrorIs(t, err, ErrEmptyNumber)
}

func TestDecodeHexStrict(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input    string
		expected []byte
		err      error
	}{
		{"0x", []byte{}, nil},
		{"0x00ff", []byte{0, 0xff}, nil},
		{"00ff", nil, ErrMissingPrefix},
		{"0x0ff", nil, ErrOddLength},
		{"0xzz", nil, ErrSyntax},
	}

	for _, c := range cases {
		buf, err := DecodeHexStrict(c.input)
		if c.err != nil {
			assert.ErrorIs(t, err, c.err, c.input)

			continue
		}

		require.NoError(t, err)
		assert.Equal(t, c.expected, buf)
	}
}

func TestBig(t *testing.T) {
	t.Parallel()

	n, err := DecodeHexToBig("0x2bdbb64bc09000")
	require.NoError(t, err)
	assert.Equal(t, "12345000000000000", n.String())

	_, err = DecodeHexToBig("0x")
	assert.ErrorIs(t, err, ErrEmptyNumber)

	_, err = DecodeHexToBig("0xnope")
	assert.ErrorIs(t, err, ErrSyntax)
}
