package txrelayer

import (
	"context"
	"errors"
	"fmt"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"

	"github.com/0xPolygon/substrate-client/backend"
	"github.com/0xPolygon/substrate-client/jsonrpc"
	"github.com/0xPolygon/substrate-client/metadata"
	"github.com/0xPolygon/substrate-client/types"
)

const DefaultAddr = "ws://127.0.0.1:9944"

var (
	ErrTxDropped       = errors.New("transaction dropped from the pool")
	ErrTxInvalid       = errors.New("transaction invalid")
	ErrTxUsurped       = errors.New("transaction usurped")
	ErrFinalityTimeout = errors.New("finality timeout")
)

// StreamFaultError is returned when the status subscription breaks or reports an
// impossible sequence. It says nothing about the transaction itself.
type StreamFaultError struct {
	Hash types.Hash
	Err  error
}

func (e *StreamFaultError) Error() string {
	return fmt.Sprintf("status stream of %s failed: %v", e.Hash, e.Err)
}

func (e *StreamFaultError) Unwrap() error {
	return e.Err
}

type RelayerOption func(*TxRelayer)

// WithAddr sets the node endpoint dialed when no backend is given
func WithAddr(addr string) RelayerOption {
	return func(t *TxRelayer) {
		t.addr = addr
	}
}

func WithBackend(b backend.Backend) RelayerOption {
	return func(t *TxRelayer) {
		t.backend = b
	}
}

// WithRegistry sets the metadata used to decode events. It is fetched from the
// node otherwise.
func WithRegistry(reg *metadata.Registry) RelayerOption {
	return func(t *TxRelayer) {
		t.registry = reg
	}
}

func WithLogger(logger hclog.Logger) RelayerOption {
	return func(t *TxRelayer) {
		t.logger = logger
	}
}

// TxRelayer broadcasts extrinsics and follows them to finality
type TxRelayer struct {
	addr     string
	backend  backend.Backend
	registry *metadata.Registry
	logger   hclog.Logger
}

func NewTxRelayer(opts ...RelayerOption) (*TxRelayer, error) {
	t := &TxRelayer{
		addr:   DefaultAddr,
		logger: hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}

	t.logger = t.logger.Named("txrelayer")

	ctx := context.Background()

	if t.backend == nil {
		client, err := jsonrpc.Dial(ctx, t.addr)
		if err != nil {
			return nil, err
		}

		t.backend = backend.NewRPCBackend(client, t.logger)
	}

	if t.registry == nil {
		md, err := t.backend.Metadata(ctx, nil)
		if err != nil {
			return nil, err
		}

		reg, err := metadata.NewRegistry(md)
		if err != nil {
			return nil, err
		}

		t.registry = reg
	}

	return t, nil
}

func (t *TxRelayer) Backend() backend.Backend {
	return t.backend
}

func (t *TxRelayer) Registry() *metadata.Registry {
	return t.registry
}

// Submit broadcasts an encoded extrinsic without watching it and returns the
// hash the node reports
func (t *TxRelayer) Submit(ctx context.Context, tx []byte) (types.Hash, error) {
	hash, err := t.backend.SubmitTransaction(ctx, tx)
	if err != nil {
		return types.Hash{}, err
	}

	metrics.IncrCounter([]string{"txrelayer", "submitted"}, 1)

	if local := types.ExtrinsicHash(tx); local != hash {
		t.logger.Warn("node reported a different extrinsic hash", "local", local, "node", hash)
	}

	return hash, nil
}

// SubmitAndWatch broadcasts an encoded extrinsic once and returns its progress.
// Reading the progress never broadcasts again.
func (t *TxRelayer) SubmitAndWatch(ctx context.Context, tx []byte) (*TxProgress, error) {
	stream, err := t.backend.SubmitAndWatchTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}

	metrics.IncrCounter([]string{"txrelayer", "submitted"}, 1)

	hash := types.ExtrinsicHash(tx)

	t.logger.Debug("watching transaction", "hash", hash)

	return &TxProgress{
		hash:    hash,
		stream:  stream,
		machine: newStatusMachine(),
		relayer: t,
	}, nil
}
