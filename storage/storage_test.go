package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/substrate-client/backend"
	"github.com/0xPolygon/substrate-client/crypto"
	"github.com/0xPolygon/substrate-client/helper/hex"
	"github.com/0xPolygon/substrate-client/metadata"
	"github.com/0xPolygon/substrate-client/metadata/metadatatest"
	"github.com/0xPolygon/substrate-client/scale"
	"github.com/0xPolygon/substrate-client/types"
)

const numAccounts = 13

func account(i int) types.AccountID {
	var id types.AccountID
	id[0] = byte(i + 1)
	id[31] = 0xee

	return id
}

func accountValue(id types.AccountID) metadata.Value {
	return metadata.UnnamedComposite(metadata.BytesValue(id[:]))
}

// accountInfo encodes frame_system::AccountInfo with the nonce set and zero balances
func accountInfo(nonce uint32) []byte {
	enc := scale.NewEncoder()
	enc.EncodeUint32(nonce)
	enc.Write(make([]byte, 76))

	return enc.CopyBytes()
}

func accountKey(id types.AccountID) []byte {
	return append(NewAddress("System", "Account").RootBytes(), crypto.Blake2_128Concat.Hash(id[:])...)
}

type fixture struct {
	mock    *backend.MockBackend
	storage *Storage
	reg     *metadata.Registry
}

func newFixture(t *testing.T, pageSize uint32) *fixture {
	t.Helper()

	reg := metadatatest.Registry()
	mock := backend.NewMockBackend(reg.Metadata(), types.RuntimeVersion{})

	for i := 0; i < numAccounts; i++ {
		mock.SetStorage(accountKey(account(i)), accountInfo(uint32(i)))
	}

	// neighbours under other prefixes
	mock.SetStorage(NewAddress("System", "Number").RootBytes(), []byte{7, 0, 0, 0})
	mock.SetStorage(NewAddress("Balances", "TotalIssuance").RootBytes(), make([]byte, 16))

	s, err := AtLatest(context.Background(), mock, reg, WithPageSize(pageSize))
	require.NoError(t, err)

	return &fixture{mock: mock, storage: s, reg: reg}
}

func TestAddress_RootBytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"0x26aa394eea5630e07c48ae0c9558cef7b99d880ec681799c0cf30e8886371da9",
		hex.EncodeToHex(NewAddress("System", "Account").RootBytes()),
	)
	assert.Equal(t,
		"0x26aa394eea5630e07c48ae0c9558cef780d41e5e16056765bc8461851072c9d7",
		hex.EncodeToHex(NewAddress("System", "Events").RootBytes()),
	)
}

func TestAddress_Bytes(t *testing.T) {
	t.Parallel()

	reg := metadatatest.Registry()
	id := account(3)

	key, err := NewAddress("System", "Account", accountValue(id)).Bytes(reg)
	require.NoError(t, err)
	assert.Equal(t, accountKey(id), key)

	root, err := NewAddress("System", "Account").Bytes(reg)
	require.NoError(t, err)
	assert.Len(t, root, 32)

	// double map addressed by its first key only
	partial, err := NewAddress("Assets", "Account", metadata.UintValue(1)).Bytes(reg)
	require.NoError(t, err)
	assert.Len(t, partial, 32+16+4)

	_, err = NewAddress("System", "Number", metadata.UintValue(1)).Bytes(reg)
	assert.ErrorIs(t, err, ErrTooManyKeys)

	_, err = NewAddress("System", "Nope").Bytes(reg)
	assert.ErrorIs(t, err, metadata.ErrUnknownStorage)
}

func TestKeyIterator(t *testing.T) {
	t.Parallel()

	cases := []struct {
		pageSize uint32
		requests int
	}{
		{5, 3},
		{13, 2},
		{100, 1},
	}

	for _, c := range cases {
		c := c

		t.Run(fmt.Sprintf("page size %d", c.pageSize), func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, c.pageSize)
			it := f.storage.IterRawKeys(NewAddress("System", "Account").RootBytes())

			var keys [][]byte

			for {
				key, err := it.Next(context.Background())
				if errors.Is(err, io.EOF) {
					break
				}

				require.NoError(t, err)

				keys = append(keys, key)
			}

			assert.Len(t, keys, numAccounts)
			assert.Equal(t, c.requests, f.mock.Count("StorageKeysPaged"))

			// exhausted iterators stay exhausted
			_, err := it.Next(context.Background())
			assert.ErrorIs(t, err, io.EOF)
			assert.Equal(t, c.requests, f.mock.Count("StorageKeysPaged"))
		})
	}
}

func TestKeyIterator_RetriesFailedPage(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 5)
	it := f.storage.IterRawKeys(NewAddress("System", "Account").RootBytes())

	for i := 0; i < 5; i++ {
		_, err := it.Next(context.Background())
		require.NoError(t, err)
	}

	errConn := errors.New("connection reset")
	f.mock.SetError(errConn)

	_, err := it.Next(context.Background())
	require.ErrorIs(t, err, errConn)

	f.mock.SetError(nil)

	count := 5

	for {
		_, err := it.Next(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}

		require.NoError(t, err)

		count++
	}

	assert.Equal(t, numAccounts, count)
}

func TestEntryIterator(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 4)

	it, err := f.storage.Iter(NewAddress("System", "Account"))
	require.NoError(t, err)

	seen := map[types.AccountID]uint64{}

	for {
		entry, err := it.Next(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}

		require.NoError(t, err)
		require.Len(t, entry.Keys, 1)

		raw, ok := entry.Keys[0].Bytes()
		require.True(t, ok)

		id, err := types.NewAccountID(raw)
		require.NoError(t, err)

		nonce, ok := entry.Value.Unwrap().Fields[0].Value.Uint64()
		require.True(t, ok)

		seen[id] = nonce
	}

	require.Len(t, seen, numAccounts)

	for i := 0; i < numAccounts; i++ {
		assert.Equal(t, uint64(i), seen[account(i)])
	}
}

func TestEntryIterator_BadEntryDoesNotStop(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 5)
	f.mock.SetStorage(accountKey(account(6)), []byte{1, 2, 3})

	it, err := f.storage.Iter(NewAddress("System", "Account"))
	require.NoError(t, err)

	var ok, failed int

	for {
		_, err := it.Next(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}

		var entryErr *EntryError
		if errors.As(err, &entryErr) {
			assert.Equal(t, accountKey(account(6)), entryErr.Key)

			failed++

			continue
		}

		require.NoError(t, err)

		ok++
	}

	assert.Equal(t, numAccounts-1, ok)
	assert.Equal(t, 1, failed)
}

func TestStorage_Iter_NotMap(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 5)

	_, err := f.storage.Iter(NewAddress("System", "Number"))
	assert.ErrorIs(t, err, ErrNotMap)
}

func TestStorage_Fetch(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 5)

	v, found, err := f.storage.Fetch(context.Background(), NewAddress("System", "Account", accountValue(account(9))))
	require.NoError(t, err)
	require.True(t, found)

	nonce, ok := v.Fields[0].Value.Uint64()
	require.True(t, ok)
	assert.Equal(t, uint64(9), nonce)

	// unset entries with a default decode the default
	v, found, err = f.storage.Fetch(context.Background(), NewAddress("System", "Account", accountValue(account(99))))
	require.NoError(t, err)
	require.True(t, found)

	nonce, _ = v.Fields[0].Value.Uint64()
	assert.Equal(t, uint64(0), nonce)

	// unset optional entries are absent
	_, found, err = f.storage.Fetch(context.Background(), NewAddress("Assets", "Asset", metadata.UintValue(1)))
	require.NoError(t, err)
	assert.False(t, found)

	number, found, err := f.storage.Fetch(context.Background(), NewAddress("System", "Number"))
	require.NoError(t, err)
	require.True(t, found)

	n, _ := number.Uint64()
	assert.Equal(t, uint64(7), n)
}
