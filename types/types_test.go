package types

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/0xPolygon/substrate-client/helper/hex"
	"github.com/0xPolygon/substrate-client/scale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = AccountID(hex.MustDecodeHex("0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"))

func TestAccountID_SS58(t *testing.T) {
	t.Parallel()

	cases := []struct {
		prefix  uint16
		address string
	}{
		{42, "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"},
		{0, "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5"},
		{255, "yGHXkYLYqxijLKKfd9Q2CB9shRVu8rPNBS53wvwGTutYg4zTg"},
	}

	for _, c := range cases {
		addr, err := alice.SS58(c.prefix)
		require.NoError(t, err)
		assert.Equal(t, c.address, addr)

		id, prefix, err := DecodeSS58(c.address)
		require.NoError(t, err)
		assert.Equal(t, alice, id)
		assert.Equal(t, c.prefix, prefix)
	}

	// flip the last character to break the checksum
	_, _, err := DecodeSS58("5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQZ")
	assert.Error(t, err)
}

func TestAccountID_Text(t *testing.T) {
	t.Parallel()

	var fromHex, fromSS58 AccountID

	require.NoError(t, fromHex.UnmarshalText([]byte(alice.Hex())))
	require.NoError(t, fromSS58.UnmarshalText([]byte(alice.String())))
	assert.Equal(t, alice, fromHex)
	assert.Equal(t, alice, fromSS58)
}

func TestHash_JSON(t *testing.T) {
	t.Parallel()

	h := BytesToHash([]byte{1, 2, 3})

	raw, err := json.Marshal(h)
	require.NoError(t, err)

	var out Hash
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, h, out)

	assert.Error(t, json.Unmarshal([]byte(`"0x0102"`), &out))
}

func TestMultiAddress_Encoding(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		addr     MultiAddress
		expected string
	}{
		{"id", NewMultiAddressFromAccountID(alice), "00" + alice.Hex()[2:]},
		{"index", MultiAddress{Kind: MultiAddressIndex, Index: 64}, "010101"},
		{"raw", MultiAddress{Kind: MultiAddressRaw, Raw: []byte{0xaa}}, "0204aa"},
		{"address20", MultiAddress{Kind: MultiAddress20, Address20: [20]byte{1}}, "04" + "01" + strings.Repeat("00", 19)},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			raw, err := scale.Marshal(c.addr)
			require.NoError(t, err)
			assert.Equal(t, c.expected, hex.EncodeToString(raw))

			var out MultiAddress
			require.NoError(t, scale.Unmarshal(raw, &out))
			assert.Equal(t, c.addr, out)
		})
	}

	var out MultiAddress
	assert.ErrorIs(t, scale.Unmarshal([]byte{9}, &out), scale.ErrUnknownVariant)

	// nothing is written for a kind that has no encoding
	e := scale.NewEncoder()
	assert.Error(t, MultiAddress{Kind: 9}.EncodeScale(e))
	assert.Zero(t, e.Size())
}

func TestMultiSignature_Length(t *testing.T) {
	t.Parallel()

	_, err := NewMultiSignature(SignatureEcdsa, make([]byte, 64))
	assert.Error(t, err)

	sig, err := NewMultiSignature(SignatureEcdsa, make([]byte, 65))
	require.NoError(t, err)

	raw, err := scale.Marshal(sig)
	require.NoError(t, err)
	assert.Len(t, raw, 66)
	assert.Equal(t, byte(2), raw[0])

	var out MultiSignature
	require.NoError(t, scale.Unmarshal(raw, &out))
	assert.Equal(t, sig, out)
}

func TestMultiSignature_EncodeRejectsBadLength(t *testing.T) {
	t.Parallel()

	e := scale.NewEncoder()
	assert.Error(t, MultiSignature{Kind: SignatureEd25519, Sig: make([]byte, 63)}.EncodeScale(e))
	assert.Error(t, MultiSignature{Kind: 7, Sig: make([]byte, 64)}.EncodeScale(e))
	assert.Zero(t, e.Size())
}

func TestEra(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		current uint64
		period  uint64
		era     Era
		encoded string
		birth   uint64
	}{
		{"period 64", 42, 64, Era{true, 64, 42}, "a502", 42},
		{"rounded period", 1000, 100, Era{true, 128, 104}, "8606", 1000},
		{"clamped low", 7, 1, Era{true, 4, 3}, "3100", 7},
		{"quantized", 100000, 1 << 16, Era{true, 1 << 16, 34464}, "af86", 100000},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			era := NewMortalEra(c.current, c.period)
			assert.Equal(t, c.era, era)
			assert.Equal(t, c.birth, era.Birth(c.current))

			raw, err := scale.Marshal(era)
			require.NoError(t, err)
			assert.Equal(t, c.encoded, hex.EncodeToString(raw))

			var out Era
			require.NoError(t, scale.Unmarshal(raw, &out))
			assert.Equal(t, era, out)
		})
	}

	raw, err := scale.Marshal(ImmortalEra)
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, raw)
}

func TestRuntimeVersion_JSON(t *testing.T) {
	t.Parallel()

	input := `{"specName":"node","implName":"substrate-node","authoringVersion":10,` +
		`"specVersion":268,"implVersion":0,"apis":[["0xdf6acb689907609b",4]],` +
		`"transactionVersion":2,"stateVersion":1}`

	var rv RuntimeVersion
	require.NoError(t, json.Unmarshal([]byte(input), &rv))
	assert.Equal(t, uint32(268), rv.SpecVersion)
	assert.Equal(t, uint32(2), rv.TransactionVersion)
	require.Len(t, rv.APIs, 1)
	assert.Equal(t, uint32(4), rv.APIs[0].Version)
	assert.Equal(t, "0xdf6acb689907609b", rv.APIs[0].ID.String())
}

func TestStorageChangeSet_JSON(t *testing.T) {
	t.Parallel()

	input := `{"block":"0x` + alice.Hex()[2:] + `","changes":[["0x01","0x02"],["0x03",null]]}`

	var set StorageChangeSet
	require.NoError(t, json.Unmarshal([]byte(input), &set))
	require.Len(t, set.Changes, 2)
	assert.Equal(t, HexBytes{2}, *set.Changes[0].Value)
	assert.Nil(t, set.Changes[1].Value)
}

func TestExtrinsicHash(t *testing.T) {
	t.Parallel()

	// blake2b-256 of the empty input
	assert.Equal(t,
		"0x0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8",
		ExtrinsicHash(nil).String(),
	)
}
