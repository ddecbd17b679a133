package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xPolygon/substrate-client/command/helper"
	chainstorage "github.com/0xPolygon/substrate-client/storage"
	"github.com/0xPolygon/substrate-client/types"
)

const (
	palletFlag  = "pallet"
	entryFlag   = "entry"
	prefixFlag  = "prefix"
	limitFlag   = "limit"
	atFlag      = "at"
	timeoutFlag = "timeout"
)

const (
	defaultLimit   = 100
	defaultTimeout = time.Minute
)

var errNoTarget = errors.New("either --pallet and --entry or --prefix is required")

type storageParams struct {
	pallet    string
	entry     string
	prefixRaw string
	atRaw     string
	limit     uint64
	timeout   time.Duration

	prefix []byte
	at     *types.Hash
}

func (p *storageParams) setFlags(cmd *cobra.Command, withPrefix bool) {
	cmd.Flags().StringVar(
		&p.pallet,
		palletFlag,
		"",
		"the pallet owning the storage entry",
	)

	cmd.Flags().StringVar(
		&p.entry,
		entryFlag,
		"",
		"the storage entry name",
	)

	if withPrefix {
		cmd.Flags().StringVar(
			&p.prefixRaw,
			prefixFlag,
			"",
			"a hex encoded raw key prefix, instead of --pallet and --entry",
		)

		cmd.Flags().Uint64Var(
			&p.limit,
			limitFlag,
			defaultLimit,
			"the maximum number of items to print, 0 for all",
		)
	}

	cmd.Flags().StringVar(
		&p.atRaw,
		atFlag,
		"",
		"the block hash to read at (default best block)",
	)

	cmd.Flags().DurationVar(
		&p.timeout,
		timeoutFlag,
		defaultTimeout,
		"the time limit of the whole command",
	)
}

func (p *storageParams) init() error {
	p.prefix, p.at = nil, nil

	if p.prefixRaw != "" {
		prefix, err := helper.DecodeHexArg(prefixFlag, p.prefixRaw)
		if err != nil {
			return err
		}

		p.prefix = prefix
	} else if p.pallet == "" || p.entry == "" {
		return errNoTarget
	}

	if p.atRaw != "" {
		var h types.Hash
		if err := h.UnmarshalText([]byte(p.atRaw)); err != nil {
			return fmt.Errorf("invalid %s: %w", atFlag, err)
		}

		p.at = &h
	}

	return nil
}

func (p *storageParams) address() *chainstorage.Address {
	return chainstorage.NewAddress(p.pallet, p.entry)
}

func (p *storageParams) context() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if p.timeout <= 0 {
		return ctx, stop
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)

	return ctx, func() {
		cancel()
		stop()
	}
}

// open returns a storage view at the requested block or the best block
func (p *storageParams) open(ctx context.Context, session *helper.Session) (*chainstorage.Storage, error) {
	if p.at != nil {
		return session.Client.StorageAt(*p.at), nil
	}

	return session.Client.StorageAtLatest(ctx)
}

// reached reports whether n items exhaust the limit
func (p *storageParams) reached(n int) bool {
	return p.limit > 0 && uint64(n) >= p.limit
}
