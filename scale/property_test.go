package scale

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestProperty_CompactRoundTrip(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Uint64().Draw(t, "v")

		enc := NewEncoder()
		enc.EncodeCompact(v)

		if got := len(enc.Bytes()); got != CompactLen(v) {
			t.Fatalf("length %d, expected %d", got, CompactLen(v))
		}

		out, err := NewDecoder(enc.Bytes()).DecodeCompact()
		if err != nil {
			t.Fatalf("decode: %v", err)
		}

		if out != v {
			t.Fatalf("decoded %d, expected %d", out, v)
		}
	})
}

func TestProperty_CompactBigMatchesUint64(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Uint64().Draw(t, "v")

		small := NewEncoder()
		small.EncodeCompact(v)

		large := NewEncoder()
		require.NoError(t, large.EncodeCompactBig(new(big.Int).SetUint64(v)))
		require.Equal(t, small.Bytes(), large.Bytes())
	})
}

func TestProperty_BytesRoundTrip(t *testing.T) {
	t.Parallel()

	type record struct {
		Data  []byte
		Label string
		Nonce uint32 `scale:"compact"`
		Opt   *uint64
	}

	rapid.Check(t, func(t *rapid.T) {
		in := record{
			Data:  rapid.SliceOf(rapid.Byte()).Draw(t, "data"),
			Label: rapid.String().Draw(t, "label"),
			Nonce: rapid.Uint32().Draw(t, "nonce"),
		}

		if rapid.Bool().Draw(t, "hasOpt") {
			v := rapid.Uint64().Draw(t, "opt")
			in.Opt = &v
		}

		raw, err := Marshal(in)
		require.NoError(t, err)

		var out record
		require.NoError(t, Unmarshal(raw, &out))

		// nil and empty slices share an encoding
		if len(in.Data) == 0 {
			in.Data, out.Data = nil, nil
		}

		require.Equal(t, in, out)
	})
}
