package metadata_test

import (
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/substrate-client/crypto"
	"github.com/0xPolygon/substrate-client/metadata"
	"github.com/0xPolygon/substrate-client/metadata/metadatatest"
	"github.com/0xPolygon/substrate-client/scale"
)

func TestPrefixed_RoundTrip(t *testing.T) {
	t.Parallel()

	raw := metadatatest.Encoded()
	require.Equal(t, "6d657461", hex.EncodeToString(raw[:4]))
	require.Equal(t, metadata.V14, raw[4])

	md, err := metadata.DecodePrefixed(raw)
	require.NoError(t, err)

	again, err := metadata.EncodePrefixed(md)
	require.NoError(t, err)
	assert.Equal(t, raw, again)

	assert.Len(t, md.Pallets, 5)
	assert.Equal(t, uint8(4), md.Extrinsic.Version)
	assert.Len(t, md.Extrinsic.SignedExtensions, 8)
}

func TestPrefixed_Rejects(t *testing.T) {
	t.Parallel()

	raw := metadatatest.Encoded()

	badMagic := append([]byte{}, raw...)
	badMagic[0] = 0

	_, err := metadata.DecodePrefixed(badMagic)
	assert.ErrorIs(t, err, metadata.ErrBadMagic)

	oldVersion := append([]byte{}, raw...)
	oldVersion[4] = 13

	_, err = metadata.DecodePrefixed(oldVersion)
	assert.ErrorIs(t, err, metadata.ErrUnsupportedVersion)

	_, err = metadata.DecodePrefixed(raw[:len(raw)-1])
	assert.ErrorIs(t, err, scale.ErrTruncated)

	_, err = metadata.DecodePrefixed(append(append([]byte{}, raw...), 0))
	assert.ErrorIs(t, err, scale.ErrTrailingBytes)
}

func TestRegistry_Lookups(t *testing.T) {
	t.Parallel()

	reg := metadatatest.Registry()

	p, ok := reg.PalletByName("Assets")
	require.True(t, ok)
	assert.Equal(t, metadatatest.AssetsIndex, p.Index)

	p, ok = reg.PalletByIndex(metadatatest.BalancesIndex)
	require.True(t, ok)
	assert.Equal(t, "Balances", p.Name)

	_, ok = reg.PalletByName("Staking")
	assert.False(t, ok)

	id, ok := reg.TypeByPath("sp_runtime", "DispatchError")
	require.True(t, ok)
	assert.Equal(t, metadatatest.IDs.DispatchError, id)

	call, err := reg.ResolveCall("Balances", "transfer")
	require.NoError(t, err)
	assert.Equal(t, metadatatest.BalancesTransferIndex, call.CallIndex)
	assert.Len(t, call.Fields, 2)

	_, err = reg.ResolveCall("Balances", "burn")
	assert.ErrorIs(t, err, metadata.ErrUnknownCall)

	_, err = reg.ResolveCall("TransactionPayment", "anything")
	assert.ErrorIs(t, err, metadata.ErrUnknownCall)

	_, err = reg.ResolveCall("Staking", "bond")
	assert.ErrorIs(t, err, metadata.ErrUnknownPallet)

	entry, err := reg.StorageEntry("System", "Account")
	require.NoError(t, err)
	assert.Equal(t, "System", entry.Prefix)
	assert.Equal(t, []crypto.Hasher{crypto.Blake2_128Concat}, entry.StorageHashers())

	_, err = reg.StorageEntry("System", "Nope")
	assert.ErrorIs(t, err, metadata.ErrUnknownStorage)

	_, err = reg.Variants(metadatatest.IDs.AccountInfo)
	assert.ErrorIs(t, err, metadata.ErrNotVariant)
}

func TestRegistry_PalletsWithPrefix(t *testing.T) {
	t.Parallel()

	reg := metadatatest.Registry()

	names := func(ps []*metadata.Pallet) []string {
		out := make([]string, len(ps))
		for i, p := range ps {
			out[i] = p.Name
		}

		return out
	}

	assert.Equal(t, []string{"Assets"}, names(reg.PalletsWithPrefix("As")))
	assert.Equal(t, []string{"Preimage"}, names(reg.PalletsWithPrefix("Pre")))
	assert.Len(t, reg.PalletsWithPrefix(""), 5)
	assert.Empty(t, reg.PalletsWithPrefix("Z"))
}

func TestRegistry_ResolveError(t *testing.T) {
	t.Parallel()

	reg := metadatatest.Registry()

	cases := []struct {
		name        string
		pallet, idx uint8
		expected    string
		found       bool
	}{
		{"assets unknown", metadatatest.AssetsIndex, metadatatest.AssetsUnknownErrorIndex, "Assets.Unknown", true},
		{"balances low", metadatatest.BalancesIndex, 2, "Balances.InsufficientBalance", true},
		{"missing variant", metadatatest.AssetsIndex, 200, "", false},
		{"pallet without errors", metadatatest.TransactionPaymentIndex, 0, "", false},
		{"missing pallet", 99, 0, "", false},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			desc, ok := reg.ResolveError(c.pallet, c.idx)
			require.Equal(t, c.found, ok)

			if ok {
				assert.Equal(t, c.expected, desc.String())
			}
		})
	}
}

func TestRegistry_IsEmptyType(t *testing.T) {
	t.Parallel()

	reg := metadatatest.Registry()

	assert.True(t, reg.IsEmptyType(metadatatest.IDs.Empty))
	assert.False(t, reg.IsEmptyType(metadatatest.IDs.U8))
	assert.False(t, reg.IsEmptyType(metadatatest.IDs.AccountID))
	assert.False(t, reg.IsEmptyType(metadatatest.IDs.DispatchError))

	for _, ext := range reg.SignedExtensions() {
		switch ext.Identifier {
		case "CheckNonZeroSender", "CheckSpecVersion", "CheckTxVersion", "CheckGenesis", "CheckWeight":
			assert.True(t, reg.IsEmptyType(ext.Type), ext.Identifier)
		default:
			assert.False(t, reg.IsEmptyType(ext.Type), ext.Identifier)
		}
	}
}

func TestRegistry_Constant(t *testing.T) {
	t.Parallel()

	reg := metadatatest.Registry()

	v, err := reg.Constant("System", "SS58Prefix")
	require.NoError(t, err)

	prefix, ok := v.Uint64()
	require.True(t, ok)
	assert.Equal(t, uint64(42), prefix)

	v, err = reg.Constant("Balances", "ExistentialDeposit")
	require.NoError(t, err)
	assert.Equal(t, "500", v.Num.String())

	_, err = reg.Constant("Balances", "Missing")
	assert.Error(t, err)
}

func alice() []byte {
	b, _ := hex.DecodeString("d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d")

	return b
}

func TestCodec_AccountInfo(t *testing.T) {
	t.Parallel()

	reg := metadatatest.Registry()

	info := metadata.NamedComposite(
		metadata.NamedValue{Name: "nonce", Value: metadata.UintValue(3)},
		metadata.NamedValue{Name: "consumers", Value: metadata.UintValue(0)},
		metadata.NamedValue{Name: "providers", Value: metadata.UintValue(1)},
		metadata.NamedValue{Name: "sufficients", Value: metadata.UintValue(0)},
		metadata.NamedValue{Name: "data", Value: metadata.NamedComposite(
			// out of order on purpose
			metadata.NamedValue{Name: "reserved", Value: metadata.UintValue(0)},
			metadata.NamedValue{Name: "free", Value: metadata.UintValue(1_000_000)},
			metadata.NamedValue{Name: "frozen", Value: metadata.UintValue(0)},
			metadata.NamedValue{Name: "flags", Value: metadata.UintValue(0)},
		)},
	)

	raw, err := reg.EncodeAs(metadatatest.IDs.AccountInfo, info)
	require.NoError(t, err)
	require.Len(t, raw, 16+64)
	assert.Equal(t, byte(3), raw[0])
	assert.Equal(t, []byte{0x40, 0x42, 0x0f}, raw[16:19])

	v, rest, err := reg.DecodeAs(metadatatest.IDs.AccountInfo, raw)
	require.NoError(t, err)
	assert.Empty(t, rest)

	data, ok := v.Field("data")
	require.True(t, ok)

	free, ok := data.Field("free")
	require.True(t, ok)

	n, ok := free.Uint64()
	require.True(t, ok)
	assert.Equal(t, uint64(1_000_000), n)

	again, err := reg.EncodeAs(metadatatest.IDs.AccountInfo, v)
	require.NoError(t, err)
	assert.Equal(t, raw, again)
}

func TestCodec_CallArguments(t *testing.T) {
	t.Parallel()

	reg := metadatatest.Registry()

	call := metadata.VariantValue("Balances", metadata.NamedValue{Value: metadata.VariantValue("transfer",
		metadata.NamedValue{Name: "dest", Value: metadata.VariantValue("Id",
			metadata.NamedValue{Value: metadata.BytesValue(alice())})},
		metadata.NamedValue{Name: "value", Value: metadata.UintValue(12345)},
	)})

	raw, err := reg.EncodeAs(metadatatest.IDs.RuntimeCall, call)
	require.NoError(t, err)
	assert.Equal(t,
		"060700d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27de5c0",
		hex.EncodeToString(raw),
	)

	v, _, err := reg.DecodeAs(metadatatest.IDs.RuntimeCall, raw)
	require.NoError(t, err)
	assert.Equal(t, "Balances", v.Variant)

	inner, ok := v.At(0)
	require.True(t, ok)
	assert.Equal(t, "transfer", inner.Variant)

	dest, ok := inner.Field("dest")
	require.True(t, ok)

	id, ok := dest.At(0)
	require.True(t, ok)

	b, ok := id.Bytes()
	require.True(t, ok)
	assert.Equal(t, alice(), b)
}

func TestCodec_UnknownVariant(t *testing.T) {
	t.Parallel()

	reg := metadatatest.Registry()

	_, _, err := reg.DecodeAs(metadatatest.IDs.DispatchError, []byte{99})
	require.ErrorIs(t, err, scale.ErrUnknownVariant)

	var serr *scale.Error
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, 0, serr.Offset)
}

func TestCodec_ModuleError(t *testing.T) {
	t.Parallel()

	reg := metadatatest.Registry()

	v, rest, err := reg.DecodeAs(metadatatest.IDs.DispatchError, []byte{3, 34, 3, 0, 0, 0, 0xff})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff}, rest)
	assert.Equal(t, "Module", v.Variant)

	module, _ := v.At(0)
	index, _ := module.Field("index")

	n, ok := index.Uint64()
	require.True(t, ok)
	assert.Equal(t, uint64(34), n)
}

func TestCodec_Overflow(t *testing.T) {
	t.Parallel()

	reg := metadatatest.Registry()

	_, err := reg.EncodeAs(metadatatest.IDs.U8, metadata.UintValue(256))
	assert.ErrorIs(t, err, scale.ErrOverflow)

	_, err = reg.EncodeAs(metadatatest.IDs.U128, metadata.NumberValue(big.NewInt(-1)))
	assert.ErrorIs(t, err, scale.ErrOverflow)

	_, err = reg.EncodeAs(metadatatest.IDs.Bool, metadata.UintValue(1))
	assert.ErrorIs(t, err, metadata.ErrTypeMismatch)

	_, err = reg.EncodeAs(metadatatest.IDs.MultiAddress, metadata.VariantValue("Bogus"))
	assert.ErrorIs(t, err, metadata.ErrTypeMismatch)
}

// bitRegistry holds BitVec<u8, Lsb0>, BitVec<u16, Msb0> and a signed integer
func bitRegistry(t *testing.T) (*metadata.Registry, uint32, uint32, uint32) {
	t.Helper()

	md := &metadata.Metadata{Types: []metadata.PortableType{
		{ID: 0, Type: metadata.Type{Def: metadata.TypeDef{Kind: metadata.DefPrimitive, Primitive: metadata.PrimU8}}},
		{ID: 1, Type: metadata.Type{Def: metadata.TypeDef{Kind: metadata.DefPrimitive, Primitive: metadata.PrimU16}}},
		{ID: 2, Type: metadata.Type{Path: []string{"bitvec", "order", "Lsb0"}, Def: metadata.TypeDef{Kind: metadata.DefComposite}}},
		{ID: 3, Type: metadata.Type{Path: []string{"bitvec", "order", "Msb0"}, Def: metadata.TypeDef{Kind: metadata.DefComposite}}},
		{ID: 4, Type: metadata.Type{Def: metadata.TypeDef{Kind: metadata.DefBitSequence, BitStore: 0, BitOrder: 2}}},
		{ID: 5, Type: metadata.Type{Def: metadata.TypeDef{Kind: metadata.DefBitSequence, BitStore: 1, BitOrder: 3}}},
		{ID: 6, Type: metadata.Type{Def: metadata.TypeDef{Kind: metadata.DefPrimitive, Primitive: metadata.PrimI16}}},
	}}

	reg, err := metadata.NewRegistry(md)
	require.NoError(t, err)

	return reg, 4, 5, 6
}

func TestCodec_Bits(t *testing.T) {
	t.Parallel()

	reg, lsb, msb, _ := bitRegistry(t)
	bits := []bool{true, false, true, true, false, false, false, false, true}

	cases := []struct {
		name     string
		id       uint32
		expected string
	}{
		{"u8 lsb0", lsb, "240d01"},
		{"u16 msb0", msb, "2480b0"},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			raw, err := reg.EncodeAs(c.id, metadata.Value{Kind: metadata.ValueBits, Bits: bits})
			require.NoError(t, err)
			assert.Equal(t, c.expected, hex.EncodeToString(raw))

			v, rest, err := reg.DecodeAs(c.id, raw)
			require.NoError(t, err)
			assert.Empty(t, rest)
			assert.Equal(t, bits, v.Bits)
		})
	}

	_, _, err := reg.DecodeAs(lsb, []byte{0x24, 0x0d})
	assert.ErrorIs(t, err, scale.ErrTruncated)
}

func TestCodec_Signed(t *testing.T) {
	t.Parallel()

	reg, _, _, i16 := bitRegistry(t)

	raw, err := reg.EncodeAs(i16, metadata.NumberValue(big.NewInt(-2)))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xfe, 0xff}, raw)

	v, _, err := reg.DecodeAs(i16, raw)
	require.NoError(t, err)
	assert.Equal(t, int64(-2), v.Num.Int64())

	_, err = reg.EncodeAs(i16, metadata.NumberValue(big.NewInt(32768)))
	assert.ErrorIs(t, err, scale.ErrOverflow)
}
