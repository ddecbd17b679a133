package client

import (
	"context"
	"math/big"
	"strings"
	"sync/atomic"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/substrate-client/crypto"
	"github.com/0xPolygon/substrate-client/extrinsic"
	"github.com/0xPolygon/substrate-client/helper/hex"
	"github.com/0xPolygon/substrate-client/helper/tests"
	"github.com/0xPolygon/substrate-client/metadata"
	"github.com/0xPolygon/substrate-client/metadata/metadatatest"
	"github.com/0xPolygon/substrate-client/txpool"
	"github.com/0xPolygon/substrate-client/types"
)

var (
	genesisHash   = types.Hash{0x91, 0xb1}
	bestHash      = types.Hash{0xbe}
	finalizedHash = types.Hash{0xf1}
)

func header(number string) map[string]interface{} {
	return map[string]interface{}{
		"parentHash":     types.ZeroHash.String(),
		"number":         number,
		"stateRoot":      types.ZeroHash.String(),
		"extrinsicsRoot": types.ZeroHash.String(),
		"digest":         map[string]interface{}{"logs": []string{}},
	}
}

func unquote(raw jsoniter.RawMessage) string {
	return strings.Trim(string(raw), `"`)
}

// newNode serves a development chain in which every account is broke
func newNode(t *testing.T) (*tests.MockNode, *int32) {
	t.Helper()

	specVersion := int32(metadatatest.SpecVersion)

	node := tests.NewMockNode(t)
	node.Handle("chain_getBlockHash", func(params []jsoniter.RawMessage) (interface{}, error) {
		if len(params) > 0 && string(params[0]) == "0" {
			return genesisHash.String(), nil
		}

		return bestHash.String(), nil
	})
	node.HandleResult("chain_getFinalizedHead", finalizedHash.String())
	node.Handle("chain_getHeader", func(params []jsoniter.RawMessage) (interface{}, error) {
		if unquote(params[0]) == finalizedHash.String() {
			return header("0x0f"), nil
		}

		return header("0x10"), nil
	})
	node.Handle("state_getRuntimeVersion", func([]jsoniter.RawMessage) (interface{}, error) {
		return map[string]interface{}{
			"specName":           "kitchensink",
			"specVersion":        atomic.LoadInt32(&specVersion),
			"transactionVersion": metadatatest.TransactionVersion,
			"apis":               []interface{}{},
		}, nil
	})
	node.HandleResult("state_getMetadata", hex.EncodeToHex(metadatatest.Encoded()))
	node.HandleResult("system_accountNextIndex", 5)
	node.Handle("author_submitExtrinsic", func(params []jsoniter.RawMessage) (interface{}, error) {
		raw, err := hex.DecodeHex(unquote(params[0]))
		if err != nil {
			return nil, err
		}

		return types.BytesToHash(crypto.Blake2b256(raw)).String(), nil
	})
	node.Handle("state_call", func(params []jsoniter.RawMessage) (interface{}, error) {
		switch unquote(params[0]) {
		case "TaggedTransactionQueue_validate_transaction":
			// Err(Invalid(Payment))
			return "0x010001", nil
		default:
			return nil, &tests.RPCError{Code: -32000, Message: "Client error: Execution failed"}
		}
	})
	node.HandleSubscription("author_submitAndWatchExtrinsic", "author_extrinsicUpdate", "author_unwatchExtrinsic",
		func(_ []jsoniter.RawMessage, sink *tests.SubscriptionSink) error {
			for _, u := range []interface{}{
				"ready",
				map[string]string{"inBlock": bestHash.String()},
				map[string]string{"finalized": bestHash.String()},
			} {
				if err := sink.Notify(u); err != nil {
					return err
				}
			}

			return nil
		})

	return node, &specVersion
}

func newClient(t *testing.T, node *tests.MockNode) *Client {
	t.Helper()

	config := DefaultConfig()
	config.URL = node.URL()

	c, err := New(context.Background(), config)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = c.Close()
	})

	return c
}

func transfer(t *testing.T, tx *TxClient, to types.AccountID) extrinsic.Call {
	t.Helper()

	call, err := tx.Call("Balances", "transfer_keep_alive",
		metadata.NamedValue{Name: "dest", Value: metadata.VariantValue("Id", metadata.NamedValue{Value: metadata.BytesValue(to.Bytes())})},
		metadata.NamedValue{Name: "value", Value: metadata.NumberValue(big.NewInt(1_000_000_000_000))},
	)
	require.NoError(t, err)

	return call
}

func TestClient_Bootstrap(t *testing.T) {
	t.Parallel()

	node, _ := newNode(t)
	c := newClient(t, node)

	genesis, err := c.GenesisHash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, genesisHash, genesis)
	assert.Equal(t, metadatatest.SpecVersion, c.Runtime().SpecVersion)
	assert.NotNil(t, c.Registry())

	// cached, no further round trips
	_, err = c.GenesisHash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, node.Calls("state_getMetadata"))
}

func TestClient_SubmitHashMatchesNode(t *testing.T) {
	t.Parallel()

	node, _ := newNode(t)
	c := newClient(t, node)

	alice, err := crypto.NewEd25519KeyFromSeed(tests.AliceSeed)
	require.NoError(t, err)

	tx := c.Tx()

	ext, err := tx.CreateSigned(context.Background(), transfer(t, tx, tests.GenerateEd25519Key(t).AccountID()), alice, nil)
	require.NoError(t, err)

	hash, err := ext.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ext.Hash(), hash)

	// nonce and mortality came from the node
	assert.Equal(t, 1, node.Calls("system_accountNextIndex"))
	assert.Equal(t, 1, node.Calls("chain_getFinalizedHead"))
}

func TestClient_ValidateBrokeAccount(t *testing.T) {
	t.Parallel()

	node, _ := newNode(t)
	c := newClient(t, node)

	tx := c.Tx()
	broke := tests.GenerateEd25519Key(t)

	ext, err := tx.CreateSigned(context.Background(), transfer(t, tx, tests.GenerateEd25519Key(t).AccountID()), broke,
		new(extrinsic.Params).WithNonce(0))
	require.NoError(t, err)

	result, err := ext.Validate(context.Background())
	require.NoError(t, err)

	assert.False(t, result.IsValid())
	assert.Equal(t, txpool.Invalid, result.Kind)
	assert.Equal(t, txpool.InvalidPayment, result.InvalidReason)
	assert.Equal(t, 0, node.Calls("system_accountNextIndex"))
}

func TestClient_SubmitAndWatch(t *testing.T) {
	t.Parallel()

	node, _ := newNode(t)
	c := newClient(t, node)

	tx := c.Tx()

	ext, err := tx.CreateSigned(context.Background(), transfer(t, tx, tests.GenerateEd25519Key(t).AccountID()),
		tests.GenerateECDSAKey(t), new(extrinsic.Params).WithNonce(0).WithImmortal())
	require.NoError(t, err)

	progress, err := ext.SubmitAndWatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ext.Hash(), progress.Hash())

	inBlock, err := progress.WaitForFinalized(context.Background())
	require.NoError(t, err)
	assert.Equal(t, bestHash, inBlock.Block)
	assert.Equal(t, ext.Hash(), inBlock.ExtrinsicHash)
}

func TestClient_PartialFeeEstimateFails(t *testing.T) {
	t.Parallel()

	node, _ := newNode(t)
	c := newClient(t, node)

	tx := c.Tx()

	ext, err := tx.CreateUnsigned(transfer(t, tx, tests.GenerateEd25519Key(t).AccountID()))
	require.NoError(t, err)

	_, err = ext.PartialFeeEstimate(context.Background())
	assert.ErrorContains(t, err, "Execution failed")
}

func TestClient_UpdateRuntime(t *testing.T) {
	t.Parallel()

	node, specVersion := newNode(t)
	c := newClient(t, node)

	upgraded, err := c.UpdateRuntime(context.Background())
	require.NoError(t, err)
	assert.False(t, upgraded)

	atomic.AddInt32(specVersion, 1)

	upgraded, err = c.UpdateRuntime(context.Background())
	require.NoError(t, err)
	assert.True(t, upgraded)
	assert.Equal(t, metadatatest.SpecVersion+1, c.Runtime().SpecVersion)
	assert.Equal(t, 2, node.Calls("state_getMetadata"))

	// downgrading to a cached version needs no metadata
	atomic.AddInt32(specVersion, -1)

	upgraded, err = c.UpdateRuntime(context.Background())
	require.NoError(t, err)
	assert.True(t, upgraded)
	assert.Equal(t, 2, node.Calls("state_getMetadata"))
}

func TestClient_Close(t *testing.T) {
	t.Parallel()

	node, _ := newNode(t)

	config := DefaultConfig()
	config.URL = node.URL()

	c, err := New(context.Background(), config)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Close(), ErrClosed)
}

func TestParseTipPolicy(t *testing.T) {
	t.Parallel()

	p, err := ParseTipPolicy("included")
	require.NoError(t, err)
	assert.Equal(t, "included", p.String())

	p, err = ParseTipPolicy("")
	require.NoError(t, err)
	assert.Equal(t, "excluded", p.String())

	_, err = ParseTipPolicy("sometimes")
	assert.Error(t, err)
}
