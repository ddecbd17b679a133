package txpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/substrate-client/types"
)

func TestTxStatus_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	hash := types.StringToHash("0x2b7a2f9ccf0bde9e1e9e5bd8de1c8b7f0f2d39c64c9fc2c5b4d8b1a0a1b2c3d4")

	cases := []struct {
		name     string
		input    string
		expected TxStatus
		terminal bool
	}{
		{"future", `"future"`, TxStatus{Kind: StatusFuture}, false},
		{"ready", `"ready"`, TxStatus{Kind: StatusReady}, false},
		{"broadcast", `{"broadcast":["peer-a","peer-b"]}`, TxStatus{Kind: StatusBroadcast, Peers: []string{"peer-a", "peer-b"}}, false},
		{"in block", `{"inBlock":"` + hash.String() + `"}`, TxStatus{Kind: StatusInBlock, Block: hash}, false},
		{"retracted", `{"retracted":"` + hash.String() + `"}`, TxStatus{Kind: StatusRetracted, Block: hash}, false},
		{"finality timeout", `{"finalityTimeout":"` + hash.String() + `"}`, TxStatus{Kind: StatusFinalityTimeout, Block: hash}, true},
		{"finalized", `{"finalized":"` + hash.String() + `"}`, TxStatus{Kind: StatusFinalized, Block: hash}, true},
		{"usurped", `{"usurped":"` + hash.String() + `"}`, TxStatus{Kind: StatusUsurped, Usurper: hash}, true},
		{"dropped", `"dropped"`, TxStatus{Kind: StatusDropped}, true},
		{"invalid", `"invalid"`, TxStatus{Kind: StatusInvalid}, true},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			var status TxStatus
			require.NoError(t, json.Unmarshal([]byte(c.input), &status))
			assert.Equal(t, c.expected, status)
			assert.Equal(t, c.terminal, status.IsTerminal())

			encoded, err := json.Marshal(status)
			require.NoError(t, err)
			assert.JSONEq(t, c.input, string(encoded))
		})
	}
}

func TestTxStatus_UnmarshalJSONErrors(t *testing.T) {
	t.Parallel()

	for _, input := range []string{`"pending"`, `{"included":"0x00"}`, `{}`, `{"inBlock":"0x00","ready":null}`, `42`} {
		var status TxStatus

		err := json.Unmarshal([]byte(input), &status)
		assert.ErrorIs(t, err, ErrUnknownStatus, input)
	}
}
