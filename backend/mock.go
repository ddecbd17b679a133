package backend

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/crypto/blake2b"

	"github.com/0xPolygon/substrate-client/jsonrpc"
	"github.com/0xPolygon/substrate-client/metadata"
	"github.com/0xPolygon/substrate-client/types"
)

/* MOCK */

var _ Backend = (*MockBackend)(nil)

// CallFunc answers a runtime API call on the mock backend
type CallFunc func(args []byte, at *types.Hash) ([]byte, error)

// WatchFunc scripts the status updates of a watched transaction
type WatchFunc func(tx []byte) (*MockStream, error)

type MockBlock struct {
	Hash       types.Hash
	Header     types.Header
	Extrinsics [][]byte
}

// MockBackend is an in-memory chain. Blocks are appended with AddBlock and the
// storage is a flat key/value map.
type MockBackend struct {
	lock sync.Mutex

	version   types.RuntimeVersion
	meta      *metadata.Metadata
	nonces    map[types.AccountID]uint64
	storage   map[string][]byte
	blocks    []*MockBlock
	finalized uint64
	calls     map[string]CallFunc
	watch     WatchFunc
	err       error
	counts    map[string]int
	submitted [][]byte
}

// NewMockBackend creates a chain holding only a genesis block
func NewMockBackend(meta *metadata.Metadata, version types.RuntimeVersion) *MockBackend {
	m := &MockBackend{
		version: version,
		meta:    meta,
		nonces:  map[types.AccountID]uint64{},
		storage: map[string][]byte{},
		calls:   map[string]CallFunc{},
		counts:  map[string]int{},
	}

	m.AddBlock()

	return m
}

// AddBlock appends a block with the extrinsics on top of the best block and returns its ref
func (m *MockBackend) AddBlock(extrinsics ...[]byte) types.BlockRef {
	m.lock.Lock()
	defer m.lock.Unlock()

	number := uint64(len(m.blocks))

	var parent types.Hash
	if number > 0 {
		parent = m.blocks[number-1].Hash
	}

	header := types.Header{ParentHash: parent, Number: types.BlockNumber(number)}
	hash := types.Hash(blake2b.Sum256(append(parent.Bytes(), byte(number), byte(number>>8))))

	m.blocks = append(m.blocks, &MockBlock{Hash: hash, Header: header, Extrinsics: extrinsics})

	return types.BlockRef{Hash: hash, Number: number}
}

// Finalize marks the block with the number as finalized
func (m *MockBackend) Finalize(number uint64) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.finalized = number
}

func (m *MockBackend) SetNonce(account types.AccountID, nonce uint64) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.nonces[account] = nonce
}

func (m *MockBackend) SetStorage(key, value []byte) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.storage[string(key)] = value
}

// HandleCall registers the answer to a runtime API function
func (m *MockBackend) HandleCall(method string, fn CallFunc) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.calls[method] = fn
}

// HandleWatch scripts SubmitAndWatchTransaction
func (m *MockBackend) HandleWatch(fn WatchFunc) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.watch = fn
}

// SetError makes every request fail with err, nil restores normal operation
func (m *MockBackend) SetError(err error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.err = err
}

// Count is the number of requests made to a Backend method
func (m *MockBackend) Count(method string) int {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.counts[method]
}

// Submitted returns the transactions broadcast so far
func (m *MockBackend) Submitted() [][]byte {
	m.lock.Lock()
	defer m.lock.Unlock()

	return append([][]byte(nil), m.submitted...)
}

// enter counts a request and returns the injected error. The lock is held on return.
func (m *MockBackend) enter(method string) error {
	m.lock.Lock()
	m.counts[method]++

	return m.err
}

func (m *MockBackend) block(hash types.Hash) (*MockBlock, error) {
	for _, b := range m.blocks {
		if b.Hash == hash {
			return b, nil
		}
	}

	return nil, fmt.Errorf("block %s: %w", hash, jsonrpc.ErrNotFound)
}

func (m *MockBackend) SubmitTransaction(_ context.Context, tx []byte) (types.Hash, error) {
	err := m.enter("SubmitTransaction")
	defer m.lock.Unlock()

	if err != nil {
		return types.Hash{}, err
	}

	m.submitted = append(m.submitted, tx)

	return types.ExtrinsicHash(tx), nil
}

func (m *MockBackend) SubmitAndWatchTransaction(_ context.Context, tx []byte) (StatusStream, error) {
	err := m.enter("SubmitAndWatchTransaction")
	watch := m.watch

	if err == nil {
		m.submitted = append(m.submitted, tx)
	}

	m.lock.Unlock()

	if err != nil {
		return nil, err
	}

	if watch == nil {
		return nil, jsonrpc.ErrSubscriptionsDisabled
	}

	return watch(tx)
}

func (m *MockBackend) Call(_ context.Context, method string, args []byte, at *types.Hash) ([]byte, error) {
	err := m.enter("Call")
	fn, ok := m.calls[method]
	m.lock.Unlock()

	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, &jsonrpc.ErrorObject{Code: -32000, Message: "Method not found: " + method}
	}

	return fn(args, at)
}

func (m *MockBackend) StorageKeysPaged(
	_ context.Context,
	prefix []byte,
	count uint32,
	startKey []byte,
	_ *types.Hash,
) ([][]byte, error) {
	err := m.enter("StorageKeysPaged")
	defer m.lock.Unlock()

	if err != nil {
		return nil, err
	}

	var keys [][]byte

	for k := range m.storage {
		key := []byte(k)
		if bytes.HasPrefix(key, prefix) && (startKey == nil || bytes.Compare(key, startKey) > 0) {
			keys = append(keys, key)
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i], keys[j]) < 0
	})

	if uint32(len(keys)) > count {
		keys = keys[:count]
	}

	return keys, nil
}

func (m *MockBackend) StorageValues(_ context.Context, keys [][]byte, _ *types.Hash) ([]StorageResult, error) {
	err := m.enter("StorageValues")
	defer m.lock.Unlock()

	if err != nil {
		return nil, err
	}

	out := make([]StorageResult, len(keys))
	for i, k := range keys {
		out[i] = StorageResult{Key: k, Value: m.storage[string(k)]}
	}

	return out, nil
}

func (m *MockBackend) LatestBestBlockRef(context.Context) (types.BlockRef, error) {
	err := m.enter("LatestBestBlockRef")
	defer m.lock.Unlock()

	if err != nil {
		return types.BlockRef{}, err
	}

	best := m.blocks[len(m.blocks)-1]

	return types.BlockRef{Hash: best.Hash, Number: uint64(best.Header.Number)}, nil
}

func (m *MockBackend) LatestFinalizedBlockRef(context.Context) (types.BlockRef, error) {
	err := m.enter("LatestFinalizedBlockRef")
	defer m.lock.Unlock()

	if err != nil {
		return types.BlockRef{}, err
	}

	b := m.blocks[m.finalized]

	return types.BlockRef{Hash: b.Hash, Number: m.finalized}, nil
}

func (m *MockBackend) BlockHeader(_ context.Context, hash types.Hash) (*types.Header, error) {
	err := m.enter("BlockHeader")
	defer m.lock.Unlock()

	if err != nil {
		return nil, err
	}

	b, err := m.block(hash)
	if err != nil {
		return nil, err
	}

	header := b.Header

	return &header, nil
}

func (m *MockBackend) BlockExtrinsics(_ context.Context, hash types.Hash) ([][]byte, error) {
	err := m.enter("BlockExtrinsics")
	defer m.lock.Unlock()

	if err != nil {
		return nil, err
	}

	b, err := m.block(hash)
	if err != nil {
		return nil, err
	}

	return b.Extrinsics, nil
}

func (m *MockBackend) BlockHash(_ context.Context, number uint64) (types.Hash, error) {
	err := m.enter("BlockHash")
	defer m.lock.Unlock()

	if err != nil {
		return types.Hash{}, err
	}

	if number >= uint64(len(m.blocks)) {
		return types.Hash{}, fmt.Errorf("block %d: %w", number, jsonrpc.ErrNotFound)
	}

	return m.blocks[number].Hash, nil
}

func (m *MockBackend) GenesisHash(context.Context) (types.Hash, error) {
	err := m.enter("GenesisHash")
	defer m.lock.Unlock()

	if err != nil {
		return types.Hash{}, err
	}

	return m.blocks[0].Hash, nil
}

func (m *MockBackend) RuntimeVersion(context.Context, *types.Hash) (*types.RuntimeVersion, error) {
	err := m.enter("RuntimeVersion")
	defer m.lock.Unlock()

	if err != nil {
		return nil, err
	}

	v := m.version

	return &v, nil
}

func (m *MockBackend) Metadata(context.Context, *types.Hash) (*metadata.Metadata, error) {
	err := m.enter("Metadata")
	defer m.lock.Unlock()

	if err != nil {
		return nil, err
	}

	return m.meta, nil
}

func (m *MockBackend) AccountNextIndex(_ context.Context, account types.AccountID) (uint64, error) {
	err := m.enter("AccountNextIndex")
	defer m.lock.Unlock()

	if err != nil {
		return 0, err
	}

	return m.nonces[account], nil
}

func (m *MockBackend) Close() error {
	return nil
}

// MockStream replays scripted status updates. Once they are consumed it returns
// End, or blocks until the context is done or the stream is closed when End is nil.
type MockStream struct {
	lock   sync.Mutex
	items  []jsoniter.RawMessage
	End    error
	closed bool
	doneCh chan struct{}
}

// NewMockStream builds a stream from JSON encodable updates
func NewMockStream(updates ...interface{}) (*MockStream, error) {
	s := &MockStream{doneCh: make(chan struct{})}

	for _, u := range updates {
		raw, err := jsoniter.Marshal(u)
		if err != nil {
			return nil, err
		}

		s.items = append(s.items, raw)
	}

	return s, nil
}

func (s *MockStream) Next(ctx context.Context) (jsoniter.RawMessage, error) {
	s.lock.Lock()

	if s.closed {
		s.lock.Unlock()

		return nil, jsonrpc.ErrSubscriptionClosed
	}

	if len(s.items) > 0 {
		item := s.items[0]
		s.items = s.items[1:]
		s.lock.Unlock()

		return item, nil
	}

	end := s.End
	s.lock.Unlock()

	if end != nil {
		return nil, end
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.doneCh:
		return nil, jsonrpc.ErrSubscriptionClosed
	}
}

func (s *MockStream) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if !s.closed {
		s.closed = true
		close(s.doneCh)
	}

	return nil
}

// Closed reports whether the consumer released the stream
func (s *MockStream) Closed() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.closed
}
