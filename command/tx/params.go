package tx

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xPolygon/substrate-client/command/helper"
	"github.com/0xPolygon/substrate-client/helper/hex"
	"github.com/0xPolygon/substrate-client/types"
)

const (
	txFlag      = "tx"
	tipFlag     = "tip"
	atFlag      = "at"
	watchFlag   = "watch"
	waitForFlag = "wait-for"
	timeoutFlag = "timeout"
)

const (
	waitForInBlock   = "in-block"
	waitForFinalized = "finalized"

	defaultTimeout = 2 * time.Minute
)

// txParams are the flags shared by every tx subcommand
type txParams struct {
	txRaw   string
	timeout time.Duration

	encoded []byte
}

func (p *txParams) setFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&p.txRaw,
		txFlag,
		"",
		"the hex encoded extrinsic, length prefix included",
	)

	cmd.Flags().DurationVar(
		&p.timeout,
		timeoutFlag,
		defaultTimeout,
		"the time limit of the whole command",
	)

	_ = cmd.MarkFlagRequired(txFlag)
}

func (p *txParams) init() (err error) {
	p.encoded, err = helper.DecodeHexArg(txFlag, p.txRaw)

	return
}

// context is cancelled on interrupt or when the timeout elapses
func (p *txParams) context() (context.Context, context.CancelFunc) {
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

func parseTip(raw string) (*big.Int, error) {
	if raw == "" {
		return new(big.Int), nil
	}

	// balances are decimal unless 0x prefixed
	if hex.Has0xPrefix(raw) {
		tip, err := hex.DecodeHexToBig(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", tipFlag, err)
		}

		return tip, nil
	}

	tip, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s %q", tipFlag, raw)
	}

	if tip.Sign() < 0 {
		return nil, fmt.Errorf("%s must not be negative", tipFlag)
	}

	return tip, nil
}

func parseBlock(raw string) (*types.Hash, error) {
	if raw == "" {
		return nil, nil
	}

	var h types.Hash
	if err := h.UnmarshalText([]byte(raw)); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", atFlag, err)
	}

	return &h, nil
}
