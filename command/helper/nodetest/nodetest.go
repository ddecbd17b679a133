// Package nodetest serves an in-process development chain over websocket
// JSON-RPC for the command tests.
package nodetest

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	jsoniter "github.com/json-iterator/go"

	"github.com/0xPolygon/substrate-client/crypto"
	"github.com/0xPolygon/substrate-client/events"
	"github.com/0xPolygon/substrate-client/helper/hex"
	"github.com/0xPolygon/substrate-client/helper/tests"
	"github.com/0xPolygon/substrate-client/metadata"
	"github.com/0xPolygon/substrate-client/metadata/metadatatest"
	"github.com/0xPolygon/substrate-client/types"
)

var (
	GenesisHash   = types.Hash{0x91, 0xb1}
	BestHash      = types.Hash{0xbe}
	FinalizedHash = types.Hash{0xf1}
)

// Chain is a single block development chain. Everything submitted lands in BestHash.
type Chain struct {
	Node     *tests.MockNode
	Registry *metadata.Registry

	lock       sync.Mutex
	storage    map[string][]byte
	extrinsics []types.HexBytes
	calls      map[string][]byte
}

func header(number string) map[string]interface{} {
	return map[string]interface{}{
		"parentHash":     types.ZeroHash.String(),
		"number":         number,
		"stateRoot":      types.ZeroHash.String(),
		"extrinsicsRoot": types.ZeroHash.String(),
		"digest":         map[string]interface{}{"logs": []string{}},
	}
}

func str(raw jsoniter.RawMessage) string {
	var s string
	if err := jsoniter.Unmarshal(raw, &s); err != nil {
		return strings.Trim(string(raw), `"`)
	}

	return s
}

func New(t *testing.T) *Chain {
	t.Helper()

	c := &Chain{
		Node:     tests.NewMockNode(t),
		Registry: metadatatest.Registry(),
		storage:  map[string][]byte{},
		calls:    map[string][]byte{},
	}

	node := c.Node

	node.Handle("chain_getBlockHash", func(params []jsoniter.RawMessage) (interface{}, error) {
		if len(params) > 0 && string(params[0]) == "0" {
			return GenesisHash.String(), nil
		}

		return BestHash.String(), nil
	})
	node.HandleResult("chain_getFinalizedHead", FinalizedHash.String())
	node.Handle("chain_getHeader", func(params []jsoniter.RawMessage) (interface{}, error) {
		if len(params) > 0 && str(params[0]) == FinalizedHash.String() {
			return header("0x0f"), nil
		}

		return header("0x10"), nil
	})
	node.HandleResult("state_getRuntimeVersion", map[string]interface{}{
		"specName":           "kitchensink",
		"specVersion":        metadatatest.SpecVersion,
		"transactionVersion": metadatatest.TransactionVersion,
		"apis":               []interface{}{},
	})
	node.HandleResult("state_getMetadata", hex.EncodeToHex(metadatatest.Encoded()))
	node.HandleResult("system_accountNextIndex", 0)

	node.Handle("author_submitExtrinsic", func(params []jsoniter.RawMessage) (interface{}, error) {
		return c.include(str(params[0]))
	})
	node.HandleSubscription("author_submitAndWatchExtrinsic", "author_extrinsicUpdate", "author_unwatchExtrinsic",
		func(params []jsoniter.RawMessage, sink *tests.SubscriptionSink) error {
			if _, err := c.include(str(params[0])); err != nil {
				return err
			}

			for _, u := range []interface{}{
				"ready",
				map[string]string{"inBlock": BestHash.String()},
				map[string]string{"finalized": BestHash.String()},
			} {
				if err := sink.Notify(u); err != nil {
					return err
				}
			}

			return nil
		})

	node.Handle("chain_getBlock", func([]jsoniter.RawMessage) (interface{}, error) {
		c.lock.Lock()
		defer c.lock.Unlock()

		return map[string]interface{}{
			"block": map[string]interface{}{
				"header":     header("0x10"),
				"extrinsics": append([]types.HexBytes{}, c.extrinsics...),
			},
		}, nil
	})
	node.Handle("state_getStorage", func(params []jsoniter.RawMessage) (interface{}, error) {
		key, err := hex.DecodeHex(str(params[0]))
		if err != nil {
			return nil, err
		}

		c.lock.Lock()
		defer c.lock.Unlock()

		if v, ok := c.storage[string(key)]; ok {
			return types.HexBytes(v), nil
		}

		return nil, nil
	})
	node.Handle("state_getKeysPaged", c.keysPaged)
	node.Handle("state_queryStorageAt", c.queryStorageAt)
	node.Handle("state_call", func(params []jsoniter.RawMessage) (interface{}, error) {
		method := str(params[0])

		c.lock.Lock()
		defer c.lock.Unlock()

		if out, ok := c.calls[method]; ok {
			return types.HexBytes(out), nil
		}

		return nil, &tests.RPCError{Code: -32000, Message: "Client error: Execution failed: " + method}
	})

	return c
}

func (c *Chain) URL() string {
	return c.Node.URL()
}

// include adds the extrinsic to the best block and records a successful dispatch
// for every extrinsic of the block
func (c *Chain) include(raw string) (string, error) {
	ext, err := hex.DecodeHex(raw)
	if err != nil {
		return "", err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	c.extrinsics = append(c.extrinsics, ext)

	if _, ok := c.storage[string(events.StorageKey())]; !ok {
		records := make([]metadatatest.EventRecord, len(c.extrinsics))
		for i := range c.extrinsics {
			records[i] = metadatatest.Success(uint32(i))
		}

		c.storage[string(events.StorageKey())] = metadatatest.EncodeEvents(c.Registry, records...)
	}

	return types.BytesToHash(crypto.Blake2b256(ext)).String(), nil
}

// SetEvents overrides the System.Events value of the best block
func (c *Chain) SetEvents(records ...metadatatest.EventRecord) {
	c.SetStorage(events.StorageKey(), metadatatest.EncodeEvents(c.Registry, records...))
}

func (c *Chain) SetStorage(key, value []byte) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.storage[string(key)] = value
}

// SetCall fixes the SCALE encoded result of a runtime API function
func (c *Chain) SetCall(method string, result []byte) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.calls[method] = result
}

func (c *Chain) sortedKeys(prefix []byte) [][]byte {
	var keys [][]byte

	for k := range c.storage {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, []byte(k))
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i], keys[j]) < 0
	})

	return keys
}

func (c *Chain) keysPaged(params []jsoniter.RawMessage) (interface{}, error) {
	if len(params) < 2 {
		return nil, fmt.Errorf("expected prefix and count, got %d params", len(params))
	}

	prefix, err := hex.DecodeHex(str(params[0]))
	if err != nil {
		return nil, err
	}

	var count int
	if err := jsoniter.Unmarshal(params[1], &count); err != nil {
		return nil, err
	}

	var start []byte

	if len(params) > 2 && string(params[2]) != "null" {
		if start, err = hex.DecodeHex(str(params[2])); err != nil {
			return nil, err
		}
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	out := []types.HexBytes{}

	for _, k := range c.sortedKeys(prefix) {
		if start != nil && bytes.Compare(k, start) <= 0 {
			continue
		}

		if len(out) == count {
			break
		}

		out = append(out, k)
	}

	return out, nil
}

func (c *Chain) queryStorageAt(params []jsoniter.RawMessage) (interface{}, error) {
	var keys []string
	if err := jsoniter.Unmarshal(params[0], &keys); err != nil {
		return nil, err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	changes := make([][]interface{}, 0, len(keys))

	for _, k := range keys {
		key, err := hex.DecodeHex(k)
		if err != nil {
			return nil, err
		}

		if v, ok := c.storage[string(key)]; ok {
			changes = append(changes, []interface{}{k, types.HexBytes(v)})
		} else {
			changes = append(changes, []interface{}{k, nil})
		}
	}

	return []interface{}{map[string]interface{}{"block": BestHash.String(), "changes": changes}}, nil
}
