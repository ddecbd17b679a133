package jsonrpc

import (
	"context"
	"fmt"
	"strings"

	"github.com/0xPolygon/substrate-client/helper/hex"
	"github.com/0xPolygon/substrate-client/types"
)

// Client is a typed wrapper around the node's RPC methods
type Client struct {
	transport Transport
}

// NewClient creates a new Client over an established transport
func NewClient(transport Transport) *Client {
	return &Client{transport: transport}
}

// Dial connects over websocket for ws:// and wss:// urls and over HTTP otherwise
func Dial(ctx context.Context, url string, opts ...WSOption) (*Client, error) {
	if strings.HasPrefix(url, "ws://") || strings.HasPrefix(url, "wss://") {
		t, err := DialWS(ctx, url, opts...)
		if err != nil {
			return nil, err
		}

		return NewClient(t), nil
	}

	t, err := NewHTTPTransport(url)
	if err != nil {
		return nil, err
	}

	return NewClient(t), nil
}

func (c *Client) Transport() Transport {
	return c.transport
}

func (c *Client) Close() error {
	return c.transport.Close()
}

// Call issues an arbitrary method
func (c *Client) Call(ctx context.Context, method string, out interface{}, params ...interface{}) error {
	return c.transport.Call(ctx, method, out, params...)
}

func hashParam(at *types.Hash) interface{} {
	if at == nil {
		return nil
	}

	return at.String()
}

func bytesParam(b []byte) interface{} {
	if b == nil {
		return nil
	}

	return hex.EncodeToHex(b)
}

// ChainGetBlockHash returns the hash of a block by number, or of the best block when number is nil
func (c *Client) ChainGetBlockHash(ctx context.Context, number *uint64) (types.Hash, error) {
	var param interface{}
	if number != nil {
		param = *number
	}

	var hash *types.Hash
	if err := c.transport.Call(ctx, "chain_getBlockHash", &hash, param); err != nil {
		return types.Hash{}, err
	}

	if hash == nil {
		return types.Hash{}, fmt.Errorf("block %v: %w", param, ErrNotFound)
	}

	return *hash, nil
}

// ChainGetFinalizedHead returns the hash of the latest finalized block
func (c *Client) ChainGetFinalizedHead(ctx context.Context) (types.Hash, error) {
	var hash types.Hash
	err := c.transport.Call(ctx, "chain_getFinalizedHead", &hash)

	return hash, err
}

// ChainGetHeader returns a block header, of the best block when at is nil
func (c *Client) ChainGetHeader(ctx context.Context, at *types.Hash) (*types.Header, error) {
	var header *types.Header
	if err := c.transport.Call(ctx, "chain_getHeader", &header, hashParam(at)); err != nil {
		return nil, err
	}

	if header == nil {
		return nil, fmt.Errorf("header %v: %w", at, ErrNotFound)
	}

	return header, nil
}

// ChainGetBlock returns a block with its extrinsics
func (c *Client) ChainGetBlock(ctx context.Context, at *types.Hash) (*types.SignedBlock, error) {
	var block *types.SignedBlock
	if err := c.transport.Call(ctx, "chain_getBlock", &block, hashParam(at)); err != nil {
		return nil, err
	}

	if block == nil {
		return nil, fmt.Errorf("block %v: %w", at, ErrNotFound)
	}

	return block, nil
}

func (c *Client) StateGetRuntimeVersion(ctx context.Context, at *types.Hash) (*types.RuntimeVersion, error) {
	var rv types.RuntimeVersion
	if err := c.transport.Call(ctx, "state_getRuntimeVersion", &rv, hashParam(at)); err != nil {
		return nil, err
	}

	return &rv, nil
}

// StateGetMetadata returns the prefixed runtime metadata bytes
func (c *Client) StateGetMetadata(ctx context.Context, at *types.Hash) ([]byte, error) {
	var raw types.HexBytes
	err := c.transport.Call(ctx, "state_getMetadata", &raw, hashParam(at))

	return raw, err
}

// StateCall executes a runtime API function against the state of a block
func (c *Client) StateCall(ctx context.Context, method string, data []byte, at *types.Hash) ([]byte, error) {
	if data == nil {
		data = []byte{}
	}

	var raw types.HexBytes
	err := c.transport.Call(ctx, "state_call", &raw, method, hex.EncodeToHex(data), hashParam(at))

	return raw, err
}

// StateGetStorage returns a raw storage value, nil when the key is not set
func (c *Client) StateGetStorage(ctx context.Context, key []byte, at *types.Hash) ([]byte, error) {
	var raw *types.HexBytes
	if err := c.transport.Call(ctx, "state_getStorage", &raw, hex.EncodeToHex(key), hashParam(at)); err != nil {
		return nil, err
	}

	if raw == nil {
		return nil, nil
	}

	return *raw, nil
}

// StateGetKeysPaged returns up to count keys with the prefix, starting after startKey
func (c *Client) StateGetKeysPaged(
	ctx context.Context,
	prefix []byte,
	count uint32,
	startKey []byte,
	at *types.Hash,
) ([]types.HexBytes, error) {
	var keys []types.HexBytes
	err := c.transport.Call(ctx, "state_getKeysPaged", &keys,
		hex.EncodeToHex(prefix), count, bytesParam(startKey), hashParam(at))

	return keys, err
}

// StateQueryStorageAt returns the values of keys at a block
func (c *Client) StateQueryStorageAt(
	ctx context.Context,
	keys []types.HexBytes,
	at *types.Hash,
) ([]types.StorageChangeSet, error) {
	encoded := make([]string, len(keys))
	for i, k := range keys {
		encoded[i] = hex.EncodeToHex(k)
	}

	var sets []types.StorageChangeSet
	err := c.transport.Call(ctx, "state_queryStorageAt", &sets, encoded, hashParam(at))

	return sets, err
}

// SystemAccountNextIndex returns the next nonce of an account, counting pool transactions
func (c *Client) SystemAccountNextIndex(ctx context.Context, account types.AccountID) (uint64, error) {
	var nonce uint64
	err := c.transport.Call(ctx, "system_accountNextIndex", &nonce, account.String())

	return nonce, err
}

func (c *Client) SystemChain(ctx context.Context) (string, error) {
	var name string
	err := c.transport.Call(ctx, "system_chain", &name)

	return name, err
}

// AuthorSubmitExtrinsic broadcasts an encoded extrinsic and returns its hash
func (c *Client) AuthorSubmitExtrinsic(ctx context.Context, ext []byte) (types.Hash, error) {
	var hash types.Hash
	err := c.transport.Call(ctx, "author_submitExtrinsic", &hash, hex.EncodeToHex(ext))

	return hash, err
}

// AuthorSubmitAndWatchExtrinsic broadcasts an extrinsic and subscribes to its status
func (c *Client) AuthorSubmitAndWatchExtrinsic(ctx context.Context, ext []byte) (*Subscription, error) {
	ps, ok := c.transport.(PubSubTransport)
	if !ok {
		return nil, ErrSubscriptionsDisabled
	}

	return ps.Subscribe(ctx, "author_submitAndWatchExtrinsic", "author_unwatchExtrinsic", hex.EncodeToHex(ext))
}
