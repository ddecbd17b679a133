package storage

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/0xPolygon/substrate-client/command"
	"github.com/0xPolygon/substrate-client/command/helper"
	chainstorage "github.com/0xPolygon/substrate-client/storage"
	"github.com/0xPolygon/substrate-client/types"
)

var eParams = &storageParams{}

func getEntriesCommand() *cobra.Command {
	entriesCmd := &cobra.Command{
		Use:     "entries",
		Short:   "Lists the decoded entries of a storage map",
		PreRunE: runEntriesPreRun,
		Run:     runEntriesCommand,
	}

	eParams.setFlags(entriesCmd, true)

	_ = entriesCmd.MarkFlagRequired(palletFlag)
	_ = entriesCmd.MarkFlagRequired(entryFlag)

	return entriesCmd
}

func runEntriesPreRun(_ *cobra.Command, _ []string) error {
	return eParams.init()
}

func runEntriesCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	ctx, cancel := eParams.context()
	defer cancel()

	session, err := helper.Connect(ctx, cmd)
	if err != nil {
		outputter.SetError(err)

		return
	}

	defer session.Close()

	view, err := eParams.open(ctx, session)
	if err != nil {
		outputter.SetError(err)

		return
	}

	addr := eParams.address()

	it, err := view.Iter(addr)
	if err != nil {
		outputter.SetError(err)

		return
	}

	result := &EntriesResult{Address: addr.String(), At: view.At().String(), Entries: []EntryResult{}}

	for !eParams.reached(len(result.Entries)) {
		entry, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}

		var entryErr *chainstorage.EntryError
		if errors.As(err, &entryErr) {
			result.Entries = append(result.Entries, EntryResult{
				Key:   types.HexBytes(entryErr.Key).String(),
				Error: entryErr.Err.Error(),
			})

			continue
		}

		if err != nil {
			outputter.SetError(err)

			return
		}

		result.Entries = append(result.Entries, newEntryResult(entry))
	}

	outputter.SetCommandResult(result)
}

func newEntryResult(e *chainstorage.Entry) EntryResult {
	res := EntryResult{
		Key:   types.HexBytes(e.Key).String(),
		Value: e.Value.String(),
	}

	for _, k := range e.Keys {
		res.Keys = append(res.Keys, k.String())
	}

	return res
}
