package txrelayer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/armon/go-metrics"

	"github.com/0xPolygon/substrate-client/backend"
	"github.com/0xPolygon/substrate-client/events"
	"github.com/0xPolygon/substrate-client/jsonrpc"
	"github.com/0xPolygon/substrate-client/txpool"
	"github.com/0xPolygon/substrate-client/types"
)

// TxProgress is the status stream of one submitted extrinsic. Statuses are read
// lazily and in arrival order. Next returns io.EOF after the terminal status.
type TxProgress struct {
	hash    types.Hash
	stream  backend.StatusStream
	machine *statusMachine
	relayer *TxRelayer

	lock   sync.Mutex
	closed bool
}

// Hash is the blake2b-256 hash of the submitted extrinsic
func (p *TxProgress) Hash() types.Hash {
	return p.hash
}

func (p *TxProgress) fault(err error) error {
	metrics.IncrCounter([]string{"txrelayer", "stream_faults"}, 1)

	p.relayer.logger.Warn("status stream fault", "hash", p.hash, "err", err)

	_ = p.Close()

	return &StreamFaultError{Hash: p.hash, Err: err}
}

// Next returns the next status. Failures of the subscription itself and
// impossible status sequences are reported as *StreamFaultError.
func (p *TxProgress) Next(ctx context.Context) (*txpool.TxStatus, error) {
	if p.isClosed() || p.machine.done() {
		return nil, io.EOF
	}

	raw, err := p.stream.Next(ctx)
	if err != nil {
		// Close called while Next was waiting ends the stream cleanly
		if p.isClosed() {
			return nil, io.EOF
		}

		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return nil, err
		}

		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}

		return nil, p.fault(err)
	}

	var status txpool.TxStatus
	if err := status.UnmarshalJSON(raw); err != nil {
		return nil, p.fault(err)
	}

	if err := p.machine.advance(status); err != nil {
		return nil, p.fault(err)
	}

	metrics.IncrCounterWithLabels([]string{"txrelayer", "statuses"}, 1, []metrics.Label{
		{Name: "kind", Value: status.Kind.String()},
	})

	p.relayer.logger.Debug("transaction status", "hash", p.hash, "status", status.String())

	if status.IsTerminal() {
		_ = p.Close()
	}

	return &status, nil
}

func (p *TxProgress) isClosed() bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.closed
}

// Close releases the subscription. The transaction stays in the pool.
func (p *TxProgress) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true

	err := p.stream.Close()
	if errors.Is(err, jsonrpc.ErrClosed) || errors.Is(err, jsonrpc.ErrNodeCommunication) {
		// the connection is gone and the subscription with it
		return nil
	}

	return err
}

// TxInBlock is an extrinsic included in a block
type TxInBlock struct {
	Block         types.Hash
	ExtrinsicHash types.Hash

	relayer *TxRelayer
}

// FetchEvents returns the events the extrinsic emitted in the block
func (b *TxInBlock) FetchEvents(ctx context.Context) (*events.ExtrinsicEvents, error) {
	return events.FetchForExtrinsic(ctx, b.relayer.backend, b.relayer.registry, b.Block, b.ExtrinsicHash)
}

// WaitForSuccess fetches the events and fails with the decoded *dispatch.Error
// when the runtime reports the extrinsic failed
func (b *TxInBlock) WaitForSuccess(ctx context.Context) (*events.ExtrinsicEvents, error) {
	evs, err := b.FetchEvents(ctx)
	if err != nil {
		return nil, err
	}

	if err := evs.DispatchError(); err != nil {
		return nil, err
	}

	return evs, nil
}

// TerminalError maps a terminal status other than Finalized to its error
func TerminalError(s *txpool.TxStatus) error {
	switch s.Kind {
	case txpool.StatusDropped:
		return ErrTxDropped
	case txpool.StatusInvalid:
		return ErrTxInvalid
	case txpool.StatusUsurped:
		return fmt.Errorf("%w by %s", ErrTxUsurped, s.Usurper)
	case txpool.StatusFinalityTimeout:
		return fmt.Errorf("%w: block %s", ErrFinalityTimeout, s.Block)
	default:
		return nil
	}
}

func (p *TxProgress) waitFor(ctx context.Context, kind txpool.StatusKind) (*TxInBlock, error) {
	defer p.Close()

	for {
		status, err := p.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, &StreamFaultError{Hash: p.hash, Err: fmt.Errorf("stream ended before %s", kind)}
			}

			return nil, err
		}

		if status.Kind == kind || status.Kind == txpool.StatusFinalized {
			return &TxInBlock{Block: status.Block, ExtrinsicHash: p.hash, relayer: p.relayer}, nil
		}

		if err := TerminalError(status); err != nil {
			return nil, err
		}
	}
}

// WaitForInBlock waits for the first block including the extrinsic. The block
// may still be retracted.
func (p *TxProgress) WaitForInBlock(ctx context.Context) (*TxInBlock, error) {
	return p.waitFor(ctx, txpool.StatusInBlock)
}

// WaitForFinalized waits until a block including the extrinsic is finalized
func (p *TxProgress) WaitForFinalized(ctx context.Context) (*TxInBlock, error) {
	return p.waitFor(ctx, txpool.StatusFinalized)
}

// WaitForFinalizedSuccess waits for finality and checks the dispatch outcome.
// A failed dispatch is returned as the decoded *dispatch.Error.
func (p *TxProgress) WaitForFinalizedSuccess(ctx context.Context) (*events.ExtrinsicEvents, error) {
	inBlock, err := p.WaitForFinalized(ctx)
	if err != nil {
		return nil, err
	}

	return inBlock.WaitForSuccess(ctx)
}
