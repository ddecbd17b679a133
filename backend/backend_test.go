package backend

import (
	"context"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/substrate-client/helper/hex"
	"github.com/0xPolygon/substrate-client/helper/tests"
	"github.com/0xPolygon/substrate-client/jsonrpc"
	"github.com/0xPolygon/substrate-client/metadata/metadatatest"
	"github.com/0xPolygon/substrate-client/types"
)

func hashOf(b byte) types.Hash {
	var h types.Hash
	h[0] = b

	return h
}

func newRPCBackend(t *testing.T, node *tests.MockNode) *RPCBackend {
	t.Helper()

	client, err := jsonrpc.Dial(context.Background(), node.URL())
	require.NoError(t, err)

	b := NewRPCBackend(client, nil)

	t.Cleanup(func() {
		_ = b.Close()
	})

	return b
}

func TestRPCBackend_BlockRefs(t *testing.T) {
	t.Parallel()

	node := tests.NewMockNode(t)
	node.HandleResult("chain_getFinalizedHead", hashOf(1).String())
	node.HandleResult("chain_getBlockHash", hashOf(2).String())
	node.Handle("chain_getHeader", func(params []jsoniter.RawMessage) (interface{}, error) {
		number := "0x10"
		if string(params[0]) == `"`+hashOf(2).String()+`"` {
			number = "0x12"
		}

		return map[string]interface{}{
			"parentHash":     types.ZeroHash.String(),
			"number":         number,
			"stateRoot":      types.ZeroHash.String(),
			"extrinsicsRoot": types.ZeroHash.String(),
			"digest":         map[string]interface{}{"logs": []string{}},
		}, nil
	})

	b := newRPCBackend(t, node)
	ctx := context.Background()

	finalized, err := b.LatestFinalizedBlockRef(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.BlockRef{Hash: hashOf(1), Number: 16}, finalized)

	best, err := b.LatestBestBlockRef(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.BlockRef{Hash: hashOf(2), Number: 18}, best)
}

func TestRPCBackend_StorageValues(t *testing.T) {
	t.Parallel()

	node := tests.NewMockNode(t)
	node.Handle("state_queryStorageAt", func(params []jsoniter.RawMessage) (interface{}, error) {
		// changes come back in an order unrelated to the query
		return []interface{}{
			map[string]interface{}{
				"block":   hashOf(1).String(),
				"changes": [][]interface{}{{"0x02", "0xbb"}, {"0x03", nil}, {"0x01", "0xaa"}},
			},
		}, nil
	})

	b := newRPCBackend(t, node)

	out, err := b.StorageValues(context.Background(), [][]byte{{0x01}, {0x02}, {0x03}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []StorageResult{
		{Key: []byte{0x01}, Value: []byte{0xaa}},
		{Key: []byte{0x02}, Value: []byte{0xbb}},
		{Key: []byte{0x03}},
	}, out)

	out, err = b.StorageValues(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 1, node.Calls("state_queryStorageAt"))
}

func TestRPCBackend_Metadata(t *testing.T) {
	t.Parallel()

	node := tests.NewMockNode(t)
	node.HandleResult("state_getMetadata", hex.EncodeToHex(metadatatest.Encoded()))

	b := newRPCBackend(t, node)

	md, err := b.Metadata(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, len(metadatatest.New().Pallets), len(md.Pallets))
}

func TestCallDecoding(t *testing.T) {
	t.Parallel()

	mock := NewMockBackend(metadatatest.New(), types.RuntimeVersion{SpecVersion: 1})
	mock.HandleCall("Core_version_number", func([]byte, *types.Hash) ([]byte, error) {
		return []byte{0x2a, 0x00, 0x00, 0x00}, nil
	})
	mock.HandleCall("Core_truncated", func([]byte, *types.Hash) ([]byte, error) {
		return []byte{0x2a}, nil
	})

	n, err := CallDecoding[uint32](context.Background(), mock, "Core_version_number", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), n)

	_, err = CallDecoding[uint32](context.Background(), mock, "Core_truncated", nil, nil)
	assert.ErrorContains(t, err, "decode Core_truncated result")

	_, err = CallDecoding[uint32](context.Background(), mock, "Core_missing", nil, nil)

	var obj *jsonrpc.ErrorObject

	assert.ErrorAs(t, err, &obj)
}

func TestMockBackend_StorageKeysPaged(t *testing.T) {
	t.Parallel()

	mock := NewMockBackend(nil, types.RuntimeVersion{})
	for i := byte(0); i < 5; i++ {
		mock.SetStorage([]byte{0xaa, i}, []byte{i})
	}

	mock.SetStorage([]byte{0xbb, 0x00}, []byte{0xff})

	ctx := context.Background()

	page, err := mock.StorageKeysPaged(ctx, []byte{0xaa}, 3, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{0xaa, 0}, {0xaa, 1}, {0xaa, 2}}, page)

	page, err = mock.StorageKeysPaged(ctx, []byte{0xaa}, 3, page[2], nil)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{0xaa, 3}, {0xaa, 4}}, page)
}

func TestMockBackend_Blocks(t *testing.T) {
	t.Parallel()

	mock := NewMockBackend(nil, types.RuntimeVersion{})
	ctx := context.Background()

	genesis, err := mock.GenesisHash(ctx)
	require.NoError(t, err)

	ref := mock.AddBlock([]byte{0x01})
	assert.Equal(t, uint64(1), ref.Number)

	header, err := mock.BlockHeader(ctx, ref.Hash)
	require.NoError(t, err)
	assert.Equal(t, genesis, header.ParentHash)

	best, err := mock.LatestBestBlockRef(ctx)
	require.NoError(t, err)
	assert.Equal(t, ref, best)

	finalized, err := mock.LatestFinalizedBlockRef(ctx)
	require.NoError(t, err)
	assert.Equal(t, genesis, finalized.Hash)

	_, err = mock.BlockHash(ctx, 5)
	assert.ErrorIs(t, err, jsonrpc.ErrNotFound)
}
