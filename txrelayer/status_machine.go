package txrelayer

import (
	"errors"
	"fmt"

	"github.com/0xPolygon/substrate-client/txpool"
	"github.com/0xPolygon/substrate-client/types"
)

var (
	ErrStatusOutOfOrder        = errors.New("transaction status out of order")
	ErrDuplicateStatus         = errors.New("duplicate transaction status")
	ErrFinalizedWithoutInBlock = errors.New("finalized block was never reported in block")
	ErrStatusAfterTerminal     = errors.New("transaction status after terminal status")
)

// statusMachine checks the status sequence of one submission. Pool stages only
// move forward until a retraction puts the transaction back into the pool, and a
// block can only finalize after the transaction was reported in it.
type statusMachine struct {
	last     *txpool.TxStatus
	poolRank int
	inBlock  map[types.Hash]bool
	terminal *txpool.TxStatus
}

func newStatusMachine() *statusMachine {
	return &statusMachine{
		poolRank: -1,
		inBlock:  map[types.Hash]bool{},
	}
}

func poolRank(k txpool.StatusKind) int {
	switch k {
	case txpool.StatusFuture:
		return 0
	case txpool.StatusReady:
		return 1
	case txpool.StatusBroadcast:
		return 2
	default:
		return -1
	}
}

// advance accepts the next status or reports why it cannot follow the previous ones
func (m *statusMachine) advance(s txpool.TxStatus) error {
	if m.terminal != nil {
		return fmt.Errorf("%w: %s after %s", ErrStatusAfterTerminal, s, m.terminal)
	}

	if m.last != nil && sameStatus(*m.last, s) {
		return fmt.Errorf("%w: %s", ErrDuplicateStatus, s)
	}

	switch s.Kind {
	case txpool.StatusFuture, txpool.StatusReady, txpool.StatusBroadcast:
		rank := poolRank(s.Kind)
		if len(m.inBlock) > 0 || rank < m.poolRank {
			return fmt.Errorf("%w: %s after %s", ErrStatusOutOfOrder, s, m.last)
		}

		m.poolRank = rank
	case txpool.StatusInBlock:
		if m.inBlock[s.Block] {
			return fmt.Errorf("%w: %s", ErrDuplicateStatus, s)
		}

		m.inBlock[s.Block] = true
	case txpool.StatusRetracted:
		if !m.inBlock[s.Block] {
			return fmt.Errorf("%w: %s without in block", ErrStatusOutOfOrder, s)
		}

		delete(m.inBlock, s.Block)

		// back in the pool
		m.poolRank = -1
	case txpool.StatusFinalized, txpool.StatusFinalityTimeout:
		if !m.inBlock[s.Block] {
			return fmt.Errorf("%w: %s", ErrFinalizedWithoutInBlock, s)
		}
	case txpool.StatusUsurped, txpool.StatusDropped, txpool.StatusInvalid:
	default:
		return fmt.Errorf("%w: %s", txpool.ErrUnknownStatus, s)
	}

	status := s
	m.last = &status

	if s.IsTerminal() {
		m.terminal = &status
	}

	return nil
}

func (m *statusMachine) done() bool {
	return m.terminal != nil
}

func sameStatus(a, b txpool.TxStatus) bool {
	if a.Kind != b.Kind || a.Block != b.Block || a.Usurper != b.Usurper || len(a.Peers) != len(b.Peers) {
		return false
	}

	for i := range a.Peers {
		if a.Peers[i] != b.Peers[i] {
			return false
		}
	}

	return true
}
