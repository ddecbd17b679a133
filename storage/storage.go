// Package storage reads runtime storage through a Backend: single entries and
// paged iteration over the keys and values under a prefix.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"

	"github.com/0xPolygon/substrate-client/backend"
	"github.com/0xPolygon/substrate-client/metadata"
	"github.com/0xPolygon/substrate-client/types"
)

// DefaultPageSize is the number of keys requested per state_getKeysPaged call
const DefaultPageSize uint32 = 32

var ErrNotMap = errors.New("storage entry is not a map")

type Option func(*Storage)

func WithPageSize(size uint32) Option {
	return func(s *Storage) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

func WithLogger(logger hclog.Logger) Option {
	return func(s *Storage) {
		s.logger = logger
	}
}

// Storage reads storage at one block
type Storage struct {
	backend  backend.Backend
	registry *metadata.Registry
	at       types.Hash
	pageSize uint32
	logger   hclog.Logger
}

func New(b backend.Backend, reg *metadata.Registry, at types.Hash, opts ...Option) *Storage {
	s := &Storage{
		backend:  b,
		registry: reg,
		at:       at,
		pageSize: DefaultPageSize,
		logger:   hclog.NewNullLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.Named("storage")

	return s
}

// AtLatest reads storage at the current best block
func AtLatest(ctx context.Context, b backend.Backend, reg *metadata.Registry, opts ...Option) (*Storage, error) {
	best, err := b.LatestBestBlockRef(ctx)
	if err != nil {
		return nil, err
	}

	return New(b, reg, best.Hash, opts...), nil
}

// At is the block storage is read at
func (s *Storage) At() types.Hash {
	return s.at
}

// FetchRaw returns the value under key, nil when it is not set
func (s *Storage) FetchRaw(ctx context.Context, key []byte) ([]byte, error) {
	res, err := s.backend.StorageValues(ctx, [][]byte{key}, &s.at)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, nil
	}

	return res[0].Value, nil
}

// Fetch decodes the value of a fully keyed address. Unset optional entries
// report false, unset entries with a default decode the default.
func (s *Storage) Fetch(ctx context.Context, addr *Address) (metadata.Value, bool, error) {
	desc, err := s.registry.StorageEntry(addr.Pallet, addr.Entry)
	if err != nil {
		return metadata.Value{}, false, err
	}

	key, err := addr.Bytes(s.registry)
	if err != nil {
		return metadata.Value{}, false, err
	}

	raw, err := s.FetchRaw(ctx, key)
	if err != nil {
		return metadata.Value{}, false, err
	}

	if raw == nil {
		if desc.Entry.Modifier == metadata.ModifierOptional {
			return metadata.Value{}, false, nil
		}

		raw = desc.Entry.Default
	}

	v, _, err := s.registry.DecodeAs(desc.Entry.Type.Value, raw)
	if err != nil {
		return metadata.Value{}, false, fmt.Errorf("decode %s: %w", addr, err)
	}

	return v, true, nil
}

// IterRawKeys lists every key starting with prefix, one page at a time
func (s *Storage) IterRawKeys(prefix []byte) *KeyIterator {
	return &KeyIterator{
		storage: s,
		prefix:  append([]byte(nil), prefix...),
	}
}

// Iter walks the entries of a map under the address, decoding each value with
// the entry's value type
func (s *Storage) Iter(addr *Address) (*EntryIterator, error) {
	desc, err := s.registry.StorageEntry(addr.Pallet, addr.Entry)
	if err != nil {
		return nil, err
	}

	if !desc.Entry.Type.IsMap {
		return nil, fmt.Errorf("%w: %s", ErrNotMap, addr)
	}

	prefix, err := addr.Bytes(s.registry)
	if err != nil {
		return nil, err
	}

	return &EntryIterator{
		keys:  s.IterRawKeys(prefix),
		entry: desc.Entry,
		addr:  addr,
	}, nil
}

// KeyIterator pages through keys with state_getKeysPaged. Next returns io.EOF
// after the last key. A failed page request is returned and retried by the
// next call, so an error does not end the iteration.
type KeyIterator struct {
	storage *Storage
	prefix  []byte

	page    [][]byte
	lastKey []byte
	done    bool
}

func (it *KeyIterator) fetch(ctx context.Context) error {
	s := it.storage

	keys, err := s.backend.StorageKeysPaged(ctx, it.prefix, s.pageSize, it.lastKey, &s.at)
	if err != nil {
		return err
	}

	metrics.IncrCounter([]string{"storage", "pages"}, 1)

	s.logger.Trace("fetched key page", "prefix", types.HexBytes(it.prefix), "keys", len(keys))

	// a short page is the last one
	if uint32(len(keys)) < s.pageSize {
		it.done = true
	}

	if len(keys) > 0 {
		it.lastKey = keys[len(keys)-1]
	}

	it.page = keys

	return nil
}

func (it *KeyIterator) Next(ctx context.Context) ([]byte, error) {
	for len(it.page) == 0 {
		if it.done {
			return nil, io.EOF
		}

		if err := it.fetch(ctx); err != nil {
			return nil, err
		}
	}

	key := it.page[0]
	it.page = it.page[1:]

	return key, nil
}

// Entry is one decoded key/value pair of a map
type Entry struct {
	Key []byte
	// Keys are the key components that could be recovered from Key
	Keys  []metadata.Value
	Value metadata.Value
}

// EntryError is a single entry that could not be read. Iteration continues
// past it.
type EntryError struct {
	Key []byte
	Err error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("storage entry %s: %v", types.HexBytes(e.Key), e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// EntryIterator pages keys like KeyIterator and fetches the values of each page
// with state_queryStorageAt
type EntryIterator struct {
	keys  *KeyIterator
	entry *metadata.StorageEntry
	addr  *Address

	pending []backend.StorageResult
}

func (it *EntryIterator) fill(ctx context.Context) error {
	first, err := it.keys.Next(ctx)
	if err != nil {
		return err
	}

	// the rest of the current page
	batch := append([][]byte{first}, it.keys.page...)
	it.keys.page = nil

	res, err := it.keys.storage.backend.StorageValues(ctx, batch, &it.keys.storage.at)
	if err != nil {
		// hand the keys back so the next call retries them
		it.keys.page = batch

		return err
	}

	it.pending = res

	return nil
}

// Next returns the next entry. Decode failures are reported as *EntryError for
// that entry only; io.EOF ends the iteration.
func (it *EntryIterator) Next(ctx context.Context) (*Entry, error) {
	if len(it.pending) == 0 {
		if err := it.fill(ctx); err != nil {
			return nil, err
		}
	}

	res := it.pending[0]
	it.pending = it.pending[1:]

	reg := it.keys.storage.registry

	if res.Value == nil {
		// removed between listing and reading
		return nil, &EntryError{Key: res.Key, Err: fmt.Errorf("%s: value not found", it.addr)}
	}

	value, rest, err := reg.DecodeAs(it.entry.Type.Value, res.Value)
	if err != nil {
		return nil, &EntryError{Key: res.Key, Err: err}
	}

	if len(rest) != 0 {
		return nil, &EntryError{Key: res.Key, Err: fmt.Errorf("%d trailing bytes", len(rest))}
	}

	keys, err := decodeKeys(reg, it.entry, res.Key)
	if err != nil {
		return nil, &EntryError{Key: res.Key, Err: err}
	}

	return &Entry{Key: res.Key, Keys: keys, Value: value}, nil
}
