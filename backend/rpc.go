package backend

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/0xPolygon/substrate-client/jsonrpc"
	"github.com/0xPolygon/substrate-client/metadata"
	"github.com/0xPolygon/substrate-client/types"
)

var _ Backend = (*RPCBackend)(nil)

// RPCBackend implements Backend with the legacy node RPC methods
type RPCBackend struct {
	client *jsonrpc.Client
	logger hclog.Logger
}

func NewRPCBackend(client *jsonrpc.Client, logger hclog.Logger) *RPCBackend {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &RPCBackend{
		client: client,
		logger: logger.Named("backend"),
	}
}

// Client returns the underlying RPC client
func (b *RPCBackend) Client() *jsonrpc.Client {
	return b.client
}

func (b *RPCBackend) SubmitTransaction(ctx context.Context, tx []byte) (types.Hash, error) {
	hash, err := b.client.AuthorSubmitExtrinsic(ctx, tx)
	if err != nil {
		return types.Hash{}, err
	}

	b.logger.Debug("submitted transaction", "hash", hash, "size", len(tx))

	return hash, nil
}

func (b *RPCBackend) SubmitAndWatchTransaction(ctx context.Context, tx []byte) (StatusStream, error) {
	sub, err := b.client.AuthorSubmitAndWatchExtrinsic(ctx, tx)
	if err != nil {
		return nil, err
	}

	b.logger.Debug("watching transaction", "subscription", sub.ID, "size", len(tx))

	return sub, nil
}

func (b *RPCBackend) Call(ctx context.Context, method string, args []byte, at *types.Hash) ([]byte, error) {
	return b.client.StateCall(ctx, method, args, at)
}

func (b *RPCBackend) StorageKeysPaged(
	ctx context.Context,
	prefix []byte,
	count uint32,
	startKey []byte,
	at *types.Hash,
) ([][]byte, error) {
	keys, err := b.client.StateGetKeysPaged(ctx, prefix, count, startKey, at)
	if err != nil {
		return nil, err
	}

	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = k
	}

	return out, nil
}

func (b *RPCBackend) StorageValues(ctx context.Context, keys [][]byte, at *types.Hash) ([]StorageResult, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	query := make([]types.HexBytes, len(keys))
	for i, k := range keys {
		query[i] = k
	}

	sets, err := b.client.StateQueryStorageAt(ctx, query, at)
	if err != nil {
		return nil, err
	}

	values := make(map[string][]byte, len(keys))

	for _, set := range sets {
		for _, change := range set.Changes {
			if change.Value != nil {
				values[string(change.Key)] = *change.Value
			}
		}
	}

	out := make([]StorageResult, len(keys))
	for i, k := range keys {
		out[i] = StorageResult{Key: k, Value: values[string(k)]}
	}

	return out, nil
}

func (b *RPCBackend) blockRef(ctx context.Context, hash types.Hash) (types.BlockRef, error) {
	header, err := b.client.ChainGetHeader(ctx, &hash)
	if err != nil {
		return types.BlockRef{}, err
	}

	return types.BlockRef{Hash: hash, Number: uint64(header.Number)}, nil
}

func (b *RPCBackend) LatestBestBlockRef(ctx context.Context) (types.BlockRef, error) {
	hash, err := b.client.ChainGetBlockHash(ctx, nil)
	if err != nil {
		return types.BlockRef{}, err
	}

	return b.blockRef(ctx, hash)
}

func (b *RPCBackend) LatestFinalizedBlockRef(ctx context.Context) (types.BlockRef, error) {
	hash, err := b.client.ChainGetFinalizedHead(ctx)
	if err != nil {
		return types.BlockRef{}, err
	}

	return b.blockRef(ctx, hash)
}

func (b *RPCBackend) BlockHeader(ctx context.Context, hash types.Hash) (*types.Header, error) {
	return b.client.ChainGetHeader(ctx, &hash)
}

func (b *RPCBackend) BlockExtrinsics(ctx context.Context, hash types.Hash) ([][]byte, error) {
	block, err := b.client.ChainGetBlock(ctx, &hash)
	if err != nil {
		return nil, err
	}

	out := make([][]byte, len(block.Block.Extrinsics))
	for i, ext := range block.Block.Extrinsics {
		out[i] = ext
	}

	return out, nil
}

func (b *RPCBackend) BlockHash(ctx context.Context, number uint64) (types.Hash, error) {
	return b.client.ChainGetBlockHash(ctx, &number)
}

func (b *RPCBackend) GenesisHash(ctx context.Context) (types.Hash, error) {
	return b.BlockHash(ctx, 0)
}

func (b *RPCBackend) RuntimeVersion(ctx context.Context, at *types.Hash) (*types.RuntimeVersion, error) {
	return b.client.StateGetRuntimeVersion(ctx, at)
}

func (b *RPCBackend) Metadata(ctx context.Context, at *types.Hash) (*metadata.Metadata, error) {
	raw, err := b.client.StateGetMetadata(ctx, at)
	if err != nil {
		return nil, err
	}

	md, err := metadata.DecodePrefixed(raw)
	if err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}

	b.logger.Debug("metadata fetched", "size", len(raw), "pallets", len(md.Pallets))

	return md, nil
}

func (b *RPCBackend) AccountNextIndex(ctx context.Context, account types.AccountID) (uint64, error) {
	return b.client.SystemAccountNextIndex(ctx, account)
}

func (b *RPCBackend) Close() error {
	return b.client.Close()
}
