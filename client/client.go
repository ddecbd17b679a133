// Package client ties the backend, metadata, extrinsic builder, validator,
// watcher, fee estimator and storage reader into one online client.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/errgroup"

	"github.com/0xPolygon/substrate-client/backend"
	"github.com/0xPolygon/substrate-client/extrinsic"
	"github.com/0xPolygon/substrate-client/jsonrpc"
	"github.com/0xPolygon/substrate-client/metadata"
	"github.com/0xPolygon/substrate-client/storage"
	"github.com/0xPolygon/substrate-client/types"
)

var ErrClosed = errors.New("client is closed")

type Option func(*Client)

// WithBackend uses b instead of dialing Config.URL
func WithBackend(b backend.Backend) Option {
	return func(c *Client) {
		c.backend = b
	}
}

func WithLogger(logger hclog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client is connected to one node and tracks its runtime version. Metadata is
// fetched once per runtime version and kept in an LRU cache.
type Client struct {
	config  *Config
	backend backend.Backend
	logger  hclog.Logger

	genesis types.Hash

	lock     sync.RWMutex
	runtime  *types.RuntimeVersion
	registry *metadata.Registry
	closed   bool

	registries *lru.Cache
}

var _ extrinsic.ChainState = (*Client)(nil)

// New connects and fetches the genesis hash, runtime version and metadata
// concurrently
func New(ctx context.Context, config *Config, opts ...Option) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	c := &Client{
		config: config,
		logger: hclog.NewNullLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.Named("client")

	size := config.RegistryCacheSize
	if size <= 0 {
		size = DefaultRegistryCacheSize
	}

	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}

	c.registries = cache

	if c.backend == nil {
		rpc, err := jsonrpc.Dial(ctx, config.URL,
			jsonrpc.WithWSLogger(c.logger),
			jsonrpc.WithMaxRequestSize(config.MaxRequestSize),
			jsonrpc.WithDialRetries(config.DialRetries),
		)
		if err != nil {
			return nil, fmt.Errorf("connect to %s: %w", config.URL, err)
		}

		c.backend = backend.NewRPCBackend(rpc, c.logger)
	}

	if err := c.bootstrap(ctx); err != nil {
		_ = c.backend.Close()

		return nil, err
	}

	c.logger.Info("connected",
		"spec", c.runtime.SpecName, "spec_version", c.runtime.SpecVersion, "genesis", c.genesis)

	return c, nil
}

func (c *Client) bootstrap(ctx context.Context) error {
	var (
		genesis types.Hash
		runtime *types.RuntimeVersion
		md      *metadata.Metadata
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		genesis, err = c.backend.GenesisHash(gctx)

		return err
	})

	g.Go(func() (err error) {
		runtime, err = c.backend.RuntimeVersion(gctx, nil)

		return err
	})

	g.Go(func() (err error) {
		md, err = c.backend.Metadata(gctx, nil)

		return err
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	reg, err := metadata.NewRegistry(md)
	if err != nil {
		return err
	}

	c.genesis = genesis
	c.runtime = runtime
	c.registry = reg
	c.registries.Add(runtime.SpecVersion, reg)

	return nil
}

// UpdateRuntime refreshes the runtime version and swaps the registry when the
// spec version changed. It reports whether an upgrade happened.
func (c *Client) UpdateRuntime(ctx context.Context) (bool, error) {
	runtime, err := c.backend.RuntimeVersion(ctx, nil)
	if err != nil {
		return false, err
	}

	c.lock.RLock()
	current := c.runtime.SpecVersion
	c.lock.RUnlock()

	if runtime.SpecVersion == current {
		return false, nil
	}

	reg, err := c.registryFor(ctx, runtime.SpecVersion)
	if err != nil {
		return false, err
	}

	c.lock.Lock()
	c.runtime = runtime
	c.registry = reg
	c.lock.Unlock()

	metrics.IncrCounter([]string{"client", "runtime_upgrades"}, 1)

	c.logger.Info("runtime upgraded", "from", current, "to", runtime.SpecVersion)

	return true, nil
}

func (c *Client) registryFor(ctx context.Context, specVersion uint32) (*metadata.Registry, error) {
	if v, ok := c.registries.Get(specVersion); ok {
		if reg, ok := v.(*metadata.Registry); ok {
			return reg, nil
		}
	}

	md, err := c.backend.Metadata(ctx, nil)
	if err != nil {
		return nil, err
	}

	reg, err := metadata.NewRegistry(md)
	if err != nil {
		return nil, err
	}

	c.registries.Add(specVersion, reg)

	return reg, nil
}

func (c *Client) Backend() backend.Backend {
	return c.backend
}

// Registry is the metadata of the current runtime
func (c *Client) Registry() *metadata.Registry {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.registry
}

func (c *Client) Runtime() types.RuntimeVersion {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return *c.runtime
}

func (c *Client) Config() *Config {
	return c.config
}

func (c *Client) Logger() hclog.Logger {
	return c.logger
}

// ChainState for the extrinsic builder. The genesis hash and runtime version
// come from the bootstrap instead of a round trip.

func (c *Client) AccountNextIndex(ctx context.Context, account types.AccountID) (uint64, error) {
	return c.backend.AccountNextIndex(ctx, account)
}

func (c *Client) GenesisHash(context.Context) (types.Hash, error) {
	return c.genesis, nil
}

func (c *Client) RuntimeVersion(ctx context.Context, at *types.Hash) (*types.RuntimeVersion, error) {
	if at != nil {
		return c.backend.RuntimeVersion(ctx, at)
	}

	rv := c.Runtime()

	return &rv, nil
}

func (c *Client) LatestFinalizedBlockRef(ctx context.Context) (types.BlockRef, error) {
	return c.backend.LatestFinalizedBlockRef(ctx)
}

func (c *Client) BlockHash(ctx context.Context, number uint64) (types.Hash, error) {
	return c.backend.BlockHash(ctx, number)
}

// Tx builds and submits extrinsics against the current metadata
func (c *Client) Tx() *TxClient {
	return newTxClient(c)
}

// StorageAt reads storage at a block
func (c *Client) StorageAt(at types.Hash) *storage.Storage {
	return storage.New(c.backend, c.Registry(), at,
		storage.WithPageSize(c.config.PageSize), storage.WithLogger(c.logger))
}

// StorageAtLatest reads storage at the best block
func (c *Client) StorageAtLatest(ctx context.Context) (*storage.Storage, error) {
	return storage.AtLatest(ctx, c.backend, c.Registry(),
		storage.WithPageSize(c.config.PageSize), storage.WithLogger(c.logger))
}

func (c *Client) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return ErrClosed
	}

	c.closed = true

	return c.backend.Close()
}
