package txrelayer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/0xPolygon/substrate-client/txpool"
	"github.com/0xPolygon/substrate-client/types"
)

var (
	blockA = types.Hash{0xaa}
	blockB = types.Hash{0xbb}
)

func st(kind txpool.StatusKind) txpool.TxStatus {
	return txpool.TxStatus{Kind: kind}
}

func at(kind txpool.StatusKind, block types.Hash) txpool.TxStatus {
	return txpool.TxStatus{Kind: kind, Block: block}
}

func TestStatusMachine(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		statuses []txpool.TxStatus
		// err is expected on the last status, nil when the whole sequence is accepted
		err error
	}{
		{
			name: "happy path",
			statuses: []txpool.TxStatus{
				st(txpool.StatusFuture), st(txpool.StatusReady), {Kind: txpool.StatusBroadcast, Peers: []string{"a"}},
				at(txpool.StatusInBlock, blockA), at(txpool.StatusFinalized, blockA),
			},
		},
		{
			name: "retracted and included again",
			statuses: []txpool.TxStatus{
				st(txpool.StatusReady), at(txpool.StatusInBlock, blockA), at(txpool.StatusRetracted, blockA),
				st(txpool.StatusReady), at(txpool.StatusInBlock, blockB), at(txpool.StatusFinalized, blockB),
			},
		},
		{
			name:     "dropped from pool",
			statuses: []txpool.TxStatus{st(txpool.StatusReady), st(txpool.StatusDropped)},
		},
		{
			name:     "invalid right away",
			statuses: []txpool.TxStatus{st(txpool.StatusInvalid)},
		},
		{
			name:     "finalized without in block",
			statuses: []txpool.TxStatus{st(txpool.StatusReady), at(txpool.StatusFinalized, blockA)},
			err:      ErrFinalizedWithoutInBlock,
		},
		{
			name: "finalized a different block",
			statuses: []txpool.TxStatus{
				st(txpool.StatusReady), at(txpool.StatusInBlock, blockA), at(txpool.StatusFinalized, blockB),
			},
			err: ErrFinalizedWithoutInBlock,
		},
		{
			name: "finalized a retracted block",
			statuses: []txpool.TxStatus{
				at(txpool.StatusInBlock, blockA), at(txpool.StatusRetracted, blockA), at(txpool.StatusFinalized, blockA),
			},
			err: ErrFinalizedWithoutInBlock,
		},
		{
			name:     "duplicate",
			statuses: []txpool.TxStatus{st(txpool.StatusReady), st(txpool.StatusReady)},
			err:      ErrDuplicateStatus,
		},
		{
			name:     "pool stage backwards",
			statuses: []txpool.TxStatus{st(txpool.StatusReady), st(txpool.StatusFuture)},
			err:      ErrStatusOutOfOrder,
		},
		{
			name:     "ready while in block",
			statuses: []txpool.TxStatus{at(txpool.StatusInBlock, blockA), st(txpool.StatusReady)},
			err:      ErrStatusOutOfOrder,
		},
		{
			name:     "retracted unknown block",
			statuses: []txpool.TxStatus{at(txpool.StatusInBlock, blockA), at(txpool.StatusRetracted, blockB)},
			err:      ErrStatusOutOfOrder,
		},
		{
			name: "second terminal",
			statuses: []txpool.TxStatus{
				at(txpool.StatusInBlock, blockA), at(txpool.StatusFinalized, blockA), st(txpool.StatusDropped),
			},
			err: ErrStatusAfterTerminal,
		},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			m := newStatusMachine()

			for i, s := range c.statuses {
				err := m.advance(s)

				if i == len(c.statuses)-1 && c.err != nil {
					assert.ErrorIs(t, err, c.err)

					return
				}

				require.NoError(t, err, "status %d %s", i, s)
			}

			assert.True(t, m.done())
		})
	}
}

// Whatever the node sends, the accepted prefix never finalizes a block before
// it was reported in block and never holds two terminal statuses.
func TestStatusMachine_Property(t *testing.T) {
	t.Parallel()

	blocks := []types.Hash{blockA, blockB}

	rapid.Check(t, func(t *rapid.T) {
		m := newStatusMachine()
		seenInBlock := map[types.Hash]bool{}
		terminals := 0

		n := rapid.IntRange(1, 20).Draw(t, "n")

		for i := 0; i < n; i++ {
			kind := txpool.StatusKind(rapid.IntRange(0, int(txpool.StatusInvalid)).Draw(t, "kind"))
			block := blocks[rapid.IntRange(0, 1).Draw(t, "block")]

			s := txpool.TxStatus{Kind: kind}

			switch kind {
			case txpool.StatusInBlock, txpool.StatusRetracted, txpool.StatusFinalized, txpool.StatusFinalityTimeout:
				s.Block = block
			}

			if err := m.advance(s); err != nil {
				continue
			}

			switch kind {
			case txpool.StatusInBlock:
				seenInBlock[block] = true
			case txpool.StatusFinalized:
				if !seenInBlock[block] {
					t.Fatalf("finalized %s without in block", block)
				}
			}

			if s.IsTerminal() {
				terminals++
			}
		}

		if terminals > 1 {
			t.Fatalf("%d terminal statuses accepted", terminals)
		}
	})
}
