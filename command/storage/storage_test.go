package storage

import (
	"bytes"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/substrate-client/command/helper"
	"github.com/0xPolygon/substrate-client/command/helper/nodetest"
	"github.com/0xPolygon/substrate-client/crypto"
	"github.com/0xPolygon/substrate-client/helper/hex"
	"github.com/0xPolygon/substrate-client/scale"
	chainstorage "github.com/0xPolygon/substrate-client/storage"
	"github.com/0xPolygon/substrate-client/types"
)

// the commands share package level params, so these tests run sequentially

const numAccounts = 13

func accountKey(i int) []byte {
	var id types.AccountID
	id[0] = byte(i + 1)

	return append(chainstorage.NewAddress("System", "Account").RootBytes(), crypto.Blake2_128Concat.Hash(id[:])...)
}

// accountInfo is frame_system::AccountInfo with the nonce set and zero balances
func accountInfo(nonce uint32) []byte {
	enc := scale.NewEncoder()
	enc.EncodeUint32(nonce)
	enc.Write(make([]byte, 76))

	return enc.CopyBytes()
}

func newChain(t *testing.T) *nodetest.Chain {
	t.Helper()

	chain := nodetest.New(t)

	for i := 0; i < numAccounts; i++ {
		chain.SetStorage(accountKey(i), accountInfo(uint32(i)))
	}

	chain.SetStorage(chainstorage.NewAddress("System", "Number").RootBytes(), []byte{7, 0, 0, 0})

	return chain
}

func run(t *testing.T, chain *nodetest.Chain, args ...string) (string, string, error) {
	t.Helper()

	root := &cobra.Command{Use: "substrate-client"}
	helper.RegisterJSONOutputFlag(root)
	helper.RegisterClientFlags(root)
	root.AddCommand(GetCommand())

	var out, errOut bytes.Buffer

	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--addr", chain.URL(), "--json", "--log-level", "off"))

	err := root.Execute()

	return strings.TrimSpace(out.String()), errOut.String(), err
}

func TestKeys(t *testing.T) {
	chain := newChain(t)

	cases := []struct {
		name     string
		args     []string
		expected int
	}{
		{"entry", []string{"--pallet", "System", "--entry", "Account"}, numAccounts},
		{"limit", []string{"--pallet", "System", "--entry", "Account", "--limit", "5"}, 5},
		{"no limit", []string{"--pallet", "System", "--entry", "Account", "--limit", "0"}, numAccounts},
		{"raw prefix", []string{"--prefix", hex.EncodeToHex(crypto.Twox128Hash([]byte("System")))}, numAccounts + 1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out, errOut, err := run(t, chain, append([]string{"storage", "keys"}, c.args...)...)
			require.NoError(t, err)
			require.Empty(t, errOut)

			var result KeysResult
			require.NoError(t, jsoniter.UnmarshalFromString(out, &result))

			assert.Len(t, result.Keys, c.expected)
			assert.Equal(t, nodetest.BestHash.String(), result.At)
		})
	}
}

func TestKeys_NoTarget(t *testing.T) {
	chain := newChain(t)

	_, _, err := run(t, chain, "storage", "keys", "--pallet", "System")
	require.ErrorIs(t, err, errNoTarget)
}

func TestEntries(t *testing.T) {
	chain := newChain(t)

	// a value too short to decode is reported without ending the listing
	chain.SetStorage(accountKey(numAccounts), []byte{1})

	out, errOut, err := run(t, chain, "storage", "entries", "--pallet", "System", "--entry", "Account")
	require.NoError(t, err)
	require.Empty(t, errOut)

	var result EntriesResult
	require.NoError(t, jsoniter.UnmarshalFromString(out, &result))

	require.Len(t, result.Entries, numAccounts+1)

	failed := 0

	for _, e := range result.Entries {
		if e.Error != "" {
			failed++

			continue
		}

		assert.NotEmpty(t, e.Value)
		assert.Len(t, e.Keys, 1)
	}

	assert.Equal(t, 1, failed)
}

func TestEntries_NotMap(t *testing.T) {
	chain := newChain(t)

	out, errOut, err := run(t, chain, "storage", "entries", "--pallet", "System", "--entry", "Number")
	require.NoError(t, err)

	assert.Empty(t, out)
	assert.Contains(t, errOut, "not a map")
}

func TestGet(t *testing.T) {
	chain := newChain(t)

	out, _, err := run(t, chain, "storage", "get", "--pallet", "System", "--entry", "Number")
	require.NoError(t, err)

	var result ValueResult
	require.NoError(t, jsoniter.UnmarshalFromString(out, &result))

	assert.True(t, result.Found)
	assert.Equal(t, "7", result.Value)
	assert.Equal(t, "System.Number", result.Address)
}

func TestEntriesResult_GetOutput(t *testing.T) {
	out := (&EntriesResult{
		Address: "System.Account",
		At:      "0xbe",
		Entries: []EntryResult{
			{Key: "0x01", Value: "{nonce: 1}"},
			{Key: "0x02", Error: "2 trailing bytes"},
		},
	}).GetOutput()

	assert.Contains(t, out, "[System.Account AT 0xbe]")
	assert.Contains(t, out, "error: 2 trailing bytes")
	assert.Contains(t, out, "Total: 2, unreadable: 1")
}
