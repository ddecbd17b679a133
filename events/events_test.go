package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/substrate-client/backend"
	"github.com/0xPolygon/substrate-client/dispatch"
	"github.com/0xPolygon/substrate-client/metadata"
	"github.com/0xPolygon/substrate-client/metadata/metadatatest"
	"github.com/0xPolygon/substrate-client/types"
)

var alice = types.AccountID{
	0xd4, 0x35, 0x93, 0xc7, 0x15, 0xfd, 0xd3, 0x1c, 0x61, 0x14, 0x1a, 0xbd, 0x04, 0xa9, 0x9f, 0xd6,
	0x82, 0x2c, 0x85, 0x58, 0x85, 0x4c, 0xcd, 0xe3, 0x9a, 0x56, 0x84, 0xe7, 0xa5, 0x6d, 0xa2, 0x7d,
}

func withdraw(index uint32, amount uint64) metadatatest.EventRecord {
	return metadatatest.EventRecord{
		ExtrinsicIndex: index,
		Pallet:         "Balances",
		Variant:        "Withdraw",
		Fields: []metadata.NamedValue{
			{Name: "who", Value: metadata.BytesValue(alice[:])},
			{Name: "amount", Value: metadata.UintValue(amount)},
		},
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	reg := metadatatest.Registry()
	raw := metadatatest.EncodeEvents(reg,
		metadatatest.Success(0),
		withdraw(1, 125),
		metadatatest.ModuleFailure(1, metadatatest.AssetsIndex, metadatatest.AssetsUnknownErrorIndex),
	)

	evs, err := Decode(reg, types.ZeroHash, raw)
	require.NoError(t, err)
	require.Len(t, evs.Records, 3)

	w := evs.Records[1]
	assert.Equal(t, 1, w.Index)
	assert.Equal(t, Phase{Kind: ApplyExtrinsic, ExtrinsicIndex: 1}, w.Phase)
	assert.True(t, w.Is("Balances", "Withdraw"))
	assert.Equal(t, uint8(metadatatest.BalancesIndex), w.PalletIndex)
	assert.Equal(t, uint8(8), w.VariantIndex)

	amount, ok := w.Field("amount")
	require.True(t, ok)

	n, ok := amount.Uint64()
	require.True(t, ok)
	assert.Equal(t, uint64(125), n)

	who, ok := w.Field("who")
	require.True(t, ok)

	whoBytes, ok := who.Bytes()
	require.True(t, ok)
	assert.Equal(t, alice[:], whoBytes)

	assert.True(t, evs.Has("System", "ExtrinsicFailed"))
	assert.Len(t, evs.Find("System", "ExtrinsicSuccess"), 1)
	assert.False(t, evs.Has("Assets", "Frozen"))
}

func TestDecode_Empty(t *testing.T) {
	t.Parallel()

	reg := metadatatest.Registry()

	for _, raw := range [][]byte{nil, {0x00}} {
		evs, err := Decode(reg, types.ZeroHash, raw)
		require.NoError(t, err)
		assert.Empty(t, evs.Records)
	}

	_, err := Decode(reg, types.ZeroHash, []byte{0x04, 0x00})
	assert.Error(t, err)
}

func TestExtrinsicEvents_DispatchError(t *testing.T) {
	t.Parallel()

	reg := metadatatest.Registry()
	raw := metadatatest.EncodeEvents(reg,
		metadatatest.Success(0),
		withdraw(1, 125),
		metadatatest.ModuleFailure(1, metadatatest.AssetsIndex, metadatatest.AssetsUnknownErrorIndex),
		withdraw(2, 1),
	)

	evs, err := Decode(reg, types.ZeroHash, raw)
	require.NoError(t, err)

	ok := evs.ForExtrinsic(0, types.ZeroHash)
	assert.Len(t, ok.Events, 1)
	assert.NoError(t, ok.DispatchError())

	failed := evs.ForExtrinsic(1, types.ZeroHash)
	require.Len(t, failed.Events, 2)
	assert.NotNil(t, failed.FindFirst("Balances", "Withdraw"))

	err = failed.DispatchError()

	var dispatchErr *dispatch.Error

	require.ErrorAs(t, err, &dispatchErr)
	require.Equal(t, dispatch.Module, dispatchErr.Kind)

	details, err := dispatchErr.Module.Details()
	require.NoError(t, err)
	assert.Equal(t, "Assets", details.PalletName)
	assert.Equal(t, "Unknown", details.ErrorName)

	none := evs.ForExtrinsic(2, types.ZeroHash)
	assert.ErrorIs(t, none.DispatchError(), ErrNoOutcome)
}

func TestFetchForExtrinsic(t *testing.T) {
	t.Parallel()

	reg := metadatatest.Registry()
	mock := backend.NewMockBackend(reg.Metadata(), types.RuntimeVersion{})

	tx := []byte{0x0c, 0x04, 0x00, 0x00}
	block := mock.AddBlock([]byte{0x08, 0x04, 0x01}, tx)

	mock.SetStorage(StorageKey(), metadatatest.EncodeEvents(reg,
		metadatatest.Success(0),
		metadatatest.Success(1),
	))

	ctx := context.Background()

	x, err := FetchForExtrinsic(ctx, mock, reg, block.Hash, types.ExtrinsicHash(tx))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), x.ExtrinsicIndex)
	assert.Equal(t, block.Hash, x.Block)
	assert.NoError(t, x.DispatchError())

	_, err = FetchForExtrinsic(ctx, mock, reg, block.Hash, types.ExtrinsicHash([]byte{0xff}))
	assert.ErrorIs(t, err, ErrExtrinsicNotInBlock)
}
