package backend

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/0xPolygon/substrate-client/metadata"
	"github.com/0xPolygon/substrate-client/scale"
	"github.com/0xPolygon/substrate-client/types"
)

// Backend is the public interface for node access.
// Each transport must implement this interface in order to be used by the client
type Backend interface {
	// SubmitTransaction broadcasts an encoded extrinsic and returns the hash the node reports
	SubmitTransaction(ctx context.Context, tx []byte) (types.Hash, error)

	// SubmitAndWatchTransaction broadcasts an encoded extrinsic and streams its raw status updates
	SubmitAndWatchTransaction(ctx context.Context, tx []byte) (StatusStream, error)

	// Call executes a runtime API function and returns its SCALE encoded result
	Call(ctx context.Context, method string, args []byte, at *types.Hash) ([]byte, error)

	// StorageKeysPaged returns up to count keys under prefix, strictly after startKey when it is set
	StorageKeysPaged(ctx context.Context, prefix []byte, count uint32, startKey []byte, at *types.Hash) ([][]byte, error)

	// StorageValues fetches the values of keys, in key order
	StorageValues(ctx context.Context, keys [][]byte, at *types.Hash) ([]StorageResult, error)

	// LatestBestBlockRef returns the head of the best chain
	LatestBestBlockRef(ctx context.Context) (types.BlockRef, error)

	// LatestFinalizedBlockRef returns the latest finalized block
	LatestFinalizedBlockRef(ctx context.Context) (types.BlockRef, error)

	BlockHeader(ctx context.Context, hash types.Hash) (*types.Header, error)

	// BlockExtrinsics returns the encoded extrinsics of a block, in block order
	BlockExtrinsics(ctx context.Context, hash types.Hash) ([][]byte, error)

	BlockHash(ctx context.Context, number uint64) (types.Hash, error)

	GenesisHash(ctx context.Context) (types.Hash, error)

	// RuntimeVersion returns the runtime version at a block, the best block when at is nil
	RuntimeVersion(ctx context.Context, at *types.Hash) (*types.RuntimeVersion, error)

	// Metadata fetches and decodes the runtime metadata
	Metadata(ctx context.Context, at *types.Hash) (*metadata.Metadata, error)

	// AccountNextIndex returns the next nonce of an account, counting transactions in the pool
	AccountNextIndex(ctx context.Context, account types.AccountID) (uint64, error)

	// Close closes the connection
	Close() error
}

// StatusStream yields the raw status notifications of a watched transaction
type StatusStream interface {
	Next(ctx context.Context) (jsoniter.RawMessage, error)
	Close() error
}

// StorageResult is one storage key and its value, nil when the key is not set
type StorageResult struct {
	Key   []byte
	Value []byte
}

// CallDecoding executes a runtime API function and decodes its result into T
func CallDecoding[T any](ctx context.Context, b Backend, method string, args []byte, at *types.Hash) (T, error) {
	var out T

	raw, err := b.Call(ctx, method, args, at)
	if err != nil {
		return out, err
	}

	if err := scale.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode %s result: %w", method, err)
	}

	return out, nil
}
