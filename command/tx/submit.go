package tx

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/0xPolygon/substrate-client/client"
	"github.com/0xPolygon/substrate-client/command"
	"github.com/0xPolygon/substrate-client/command/helper"
	"github.com/0xPolygon/substrate-client/events"
	"github.com/0xPolygon/substrate-client/txpool"
	"github.com/0xPolygon/substrate-client/txrelayer"
)

type submitParams struct {
	txParams

	watch   bool
	waitFor string
}

var sParams = &submitParams{}

func getSubmitCommand() *cobra.Command {
	submitCmd := &cobra.Command{
		Use:     "submit",
		Short:   "Submits an encoded extrinsic and optionally follows it until it is included",
		PreRunE: runSubmitPreRun,
		Run:     runSubmitCommand,
	}

	sParams.setFlags(submitCmd)

	submitCmd.Flags().BoolVar(
		&sParams.watch,
		watchFlag,
		false,
		"follow the transaction status and report the dispatch outcome",
	)

	submitCmd.Flags().StringVar(
		&sParams.waitFor,
		waitForFlag,
		waitForFinalized,
		fmt.Sprintf("the status to wait for when watching, %s or %s", waitForInBlock, waitForFinalized),
	)

	return submitCmd
}

func runSubmitPreRun(_ *cobra.Command, _ []string) error {
	if err := sParams.init(); err != nil {
		return err
	}

	switch sParams.waitFor {
	case waitForInBlock, waitForFinalized:
		return nil
	default:
		return fmt.Errorf("invalid %s %q", waitForFlag, sParams.waitFor)
	}
}

func runSubmitCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	ctx, cancel := sParams.context()
	defer cancel()

	session, err := helper.Connect(ctx, cmd)
	if err != nil {
		outputter.SetError(err)

		return
	}

	defer session.Close()

	ext := session.Client.Tx().FromEncoded(sParams.encoded, nil)

	if !sParams.watch {
		hash, err := ext.Submit(ctx)
		if err != nil {
			outputter.SetError(err)

			return
		}

		outputter.SetCommandResult(&SubmitResult{Hash: hash.String()})

		return
	}

	progress, err := ext.SubmitAndWatch(ctx)
	if err != nil {
		outputter.SetError(err)

		return
	}

	defer progress.Close()

	result, err := followProgress(ctx, session.Client, progress, targetStatus(sParams.waitFor), func(s *txpool.TxStatus) {
		printer := command.InitializeOutputter(cmd)
		printer.SetCommandResult(&StatusResult{Hash: progress.Hash().String(), Status: s.String()})
		printer.WriteOutput()
	})
	if err != nil {
		outputter.SetError(err)

		return
	}

	outputter.SetCommandResult(result)
}

func targetStatus(waitFor string) txpool.StatusKind {
	if waitFor == waitForInBlock {
		return txpool.StatusInBlock
	}

	return txpool.StatusFinalized
}

// followProgress reads statuses until target is reached, then checks the dispatch
// outcome from the block events
func followProgress(
	ctx context.Context,
	c *client.Client,
	progress *txrelayer.TxProgress,
	target txpool.StatusKind,
	onStatus func(*txpool.TxStatus),
) (*SubmitResult, error) {
	for {
		status, err := progress.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("status stream of %s ended before %s", progress.Hash(), target)
		}

		if err != nil {
			return nil, err
		}

		onStatus(status)

		if status.Kind == target || status.Kind == txpool.StatusFinalized {
			return inclusionResult(ctx, c, progress, status)
		}

		if err := txrelayer.TerminalError(status); err != nil {
			return nil, err
		}
	}
}

func inclusionResult(
	ctx context.Context,
	c *client.Client,
	progress *txrelayer.TxProgress,
	status *txpool.TxStatus,
) (*SubmitResult, error) {
	evs, err := events.FetchForExtrinsic(ctx, c.Backend(), c.Registry(), status.Block, progress.Hash())
	if err != nil {
		return nil, err
	}

	if err := evs.DispatchError(); err != nil {
		return nil, err
	}

	index := evs.ExtrinsicIndex
	result := &SubmitResult{
		Hash:           progress.Hash().String(),
		Block:          status.Block.String(),
		ExtrinsicIndex: &index,
	}

	for _, ev := range evs.Events {
		result.Events = append(result.Events, ev.String())
	}

	return result, nil
}
