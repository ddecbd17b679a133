package scale

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	gsrpc "github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()

	b, err := hex.DecodeString(s)
	require.NoError(t, err)

	return b
}

func TestCompact_Vectors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		value    uint64
		expected string
	}{
		{0, "00"},
		{1, "04"},
		{42, "a8"},
		{63, "fc"},
		{64, "0101"},
		{16383, "fdff"},
		{16384, "02000100"},
		{1<<30 - 1, "feffffff"},
		{1 << 30, "0300000040"},
		{1<<32 - 1, "03ffffffff"},
		{1 << 32, "070000000001"},
		{12345000000000000, "0f0090c04bb6db2b"},
		{^uint64(0), "13ffffffffffffffff"},
	}

	for _, c := range cases {
		c := c

		t.Run(c.expected, func(t *testing.T) {
			t.Parallel()

			enc := NewEncoder()
			enc.EncodeCompact(c.value)
			assert.Equal(t, c.expected, hex.EncodeToString(enc.Bytes()))
			assert.Equal(t, len(enc.Bytes()), CompactLen(c.value))

			dec := NewDecoder(enc.Bytes())
			v, err := dec.DecodeCompact()
			require.NoError(t, err)
			assert.Equal(t, c.value, v)
			assert.Zero(t, dec.Len())
		})
	}
}

func TestCompact_BigInt(t *testing.T) {
	t.Parallel()

	maxU128 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

	enc := NewEncoder()
	require.NoError(t, enc.EncodeCompactBig(maxU128))
	assert.Equal(t, "33ffffffffffffffffffffffffffffffff", hex.EncodeToString(enc.Bytes()))

	v, err := NewDecoder(enc.Bytes()).DecodeCompactBig()
	require.NoError(t, err)
	assert.Equal(t, 0, maxU128.Cmp(v))

	_, err = NewDecoder(enc.Bytes()).DecodeCompact()
	assert.ErrorIs(t, err, ErrOverflow)

	assert.ErrorIs(t, NewEncoder().EncodeCompactBig(big.NewInt(-1)), ErrOverflow)
}

func TestCompact_RejectsNonCanonical(t *testing.T) {
	t.Parallel()

	for _, input := range []string{
		"0100",       // 0 in two byte mode
		"02000000",   // 0 in four byte mode
		"0300000000", // 0 in big integer mode
		"070000000000",
	} {
		_, err := NewDecoder(mustHex(t, input)).DecodeCompact()
		assert.ErrorIs(t, err, ErrNonCanonical, input)
	}
}

func TestDecoder_Truncated(t *testing.T) {
	t.Parallel()

	var target struct {
		A uint32
		B []byte
	}

	err := Unmarshal(mustHex(t, "0100"), &target)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTruncated)

	var scaleErr *Error
	require.True(t, errors.As(err, &scaleErr))
	assert.Equal(t, 0, scaleErr.Offset)

	// length prefix larger than the input
	err = Unmarshal(mustHex(t, "01000000"+"10aabb"), &target)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestUnmarshal_TrailingBytes(t *testing.T) {
	t.Parallel()

	var v uint16

	assert.ErrorIs(t, Unmarshal([]byte{1, 0, 0}, &v), ErrTrailingBytes)

	rest, err := UnmarshalPrefix([]byte{1, 0, 0xff}, &v)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), v)
	assert.Equal(t, []byte{0xff}, rest)
}

type testEnum struct {
	IsA bool
	AsA uint32
	IsB bool
	AsB []byte
}

func (t testEnum) EncodeScale(e *Encoder) error {
	switch {
	case t.IsA:
		e.PushByte(0)
		e.EncodeUint32(t.AsA)
	case t.IsB:
		e.PushByte(1)
		e.EncodeBytes(t.AsB)
	default:
		e.PushByte(2)
	}

	return nil
}

func (t *testEnum) DecodeScale(d *Decoder) error {
	b, err := d.ReadByte()
	if err != nil {
		return err
	}

	*t = testEnum{}

	switch b {
	case 0:
		t.IsA = true
		t.AsA, err = d.DecodeUint32()
	case 1:
		t.IsB = true
		t.AsB, err = d.DecodeBytes()
	case 2:
	default:
		return UnknownVariant("testEnum", b)
	}

	return err
}

type composite struct {
	Flag    bool
	Small   uint8
	Signed  int16
	Count   uint32 `scale:"compact"`
	Balance *big.Int
	Tip     *big.Int `scale:"compact"`
	Name    string
	Hash    [4]byte
	Items   []uint16
	Indices []uint32 `scale:"compact"`
	Maybe   *uint32
	Nothing *uint32
	Enum    testEnum
	Enums   []testEnum
	skipped int
	Ignored int `scale:"-"`
}

func TestReflection_RoundTrip(t *testing.T) {
	t.Parallel()

	seven := uint32(7)
	in := composite{
		Flag:    true,
		Small:   0xab,
		Signed:  -2,
		Count:   300,
		Balance: big.NewInt(1_000_000_000_000),
		Tip:     big.NewInt(5),
		Name:    "Balances",
		Hash:    [4]byte{1, 2, 3, 4},
		Items:   []uint16{1, 2},
		Indices: []uint32{1, 64},
		Maybe:   &seven,
		Enum:    testEnum{IsB: true, AsB: []byte{9}},
		Enums:   []testEnum{{IsA: true, AsA: 1}, {}},
	}

	raw, err := Marshal(in)
	require.NoError(t, err)

	expected := "01" + "ab" + "feff" + "b104" +
		"0010a5d4e80000000000000000000000" + "14" +
		"2042616c616e636573" + "01020304" +
		"0801000200" + "08040101" +
		"0107000000" + "00" +
		"010409" + "08000100000002"
	assert.Equal(t, expected, hex.EncodeToString(raw))

	var out composite
	require.NoError(t, Unmarshal(raw, &out))

	in.skipped = 0
	assert.Equal(t, in, out)

	// marshaling through a pointer is identical
	raw2, err := Marshal(&in)
	require.NoError(t, err)
	assert.Equal(t, raw, raw2)
}

func TestDecoder_UnknownVariant(t *testing.T) {
	t.Parallel()

	var e testEnum

	err := Unmarshal([]byte{7}, &e)
	assert.ErrorIs(t, err, ErrUnknownVariant)

	var b bool

	assert.ErrorIs(t, Unmarshal([]byte{2}, &b), ErrUnknownVariant)
}

func TestU128_Overflow(t *testing.T) {
	t.Parallel()

	tooBig := new(big.Int).Lsh(big.NewInt(1), 128)
	assert.ErrorIs(t, NewEncoder().EncodeU128(tooBig), ErrOverflow)

	enc := NewEncoder()
	require.NoError(t, enc.EncodeU128(nil))
	assert.Len(t, enc.Bytes(), 16)
}

func TestCompact_FieldOverflow(t *testing.T) {
	t.Parallel()

	var v struct {
		N uint8 `scale:"compact"`
	}

	enc := NewEncoder()
	enc.EncodeCompact(300)

	assert.ErrorIs(t, Unmarshal(enc.Bytes(), &v), ErrOverflow)
}

func TestMarshal_MatchesGsrpc(t *testing.T) {
	t.Parallel()

	type plain struct {
		Flag  bool
		Small uint8
		Word  uint32
		Big   uint64
		Data  []byte
		Name  string
		Hash  [4]byte
	}

	in := plain{
		Flag:  true,
		Small: 7,
		Word:  70000,
		Big:   1 << 40,
		Data:  bytes.Repeat([]byte{0xaa}, 70),
		Name:  "System",
		Hash:  [4]byte{1, 2, 3, 4},
	}

	var buf bytes.Buffer
	require.NoError(t, gsrpc.NewEncoder(&buf).Encode(in))

	raw, err := Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), raw)

	var out plain
	require.NoError(t, gsrpc.NewDecoder(bytes.NewReader(raw)).Decode(&out))
	assert.Equal(t, in, out)
}

func TestFixedUint(t *testing.T) {
	t.Parallel()

	for _, size := range []int{1, 2, 4, 8, 16, 32} {
		v := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(8*size)), big.NewInt(2))

		enc := NewEncoder()
		require.NoError(t, enc.EncodeFixedUint(v, size))
		require.Len(t, enc.Bytes(), size)
		assert.Equal(t, byte(0xfe), enc.Bytes()[0])

		out, err := NewDecoder(enc.Bytes()).DecodeFixedUint(size)
		require.NoError(t, err)
		assert.Equal(t, 0, v.Cmp(out), size)

		assert.ErrorIs(t, NewEncoder().EncodeFixedUint(new(big.Int).Lsh(big.NewInt(1), uint(8*size)), size), ErrOverflow)
	}

	_, err := NewDecoder([]byte{1, 2, 3}).DecodeFixedUint(4)
	assert.ErrorIs(t, err, ErrTruncated)
}
