package storage

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/0xPolygon/substrate-client/command"
	"github.com/0xPolygon/substrate-client/command/helper"
	"github.com/0xPolygon/substrate-client/types"
)

var kParams = &storageParams{}

func getKeysCommand() *cobra.Command {
	keysCmd := &cobra.Command{
		Use:     "keys",
		Short:   "Lists the raw keys of a storage entry or under a raw prefix",
		PreRunE: runKeysPreRun,
		Run:     runKeysCommand,
	}

	kParams.setFlags(keysCmd, true)

	return keysCmd
}

func runKeysPreRun(_ *cobra.Command, _ []string) error {
	return kParams.init()
}

func runKeysCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	ctx, cancel := kParams.context()
	defer cancel()

	session, err := helper.Connect(ctx, cmd)
	if err != nil {
		outputter.SetError(err)

		return
	}

	defer session.Close()

	view, err := kParams.open(ctx, session)
	if err != nil {
		outputter.SetError(err)

		return
	}

	prefix := kParams.prefix
	if prefix == nil {
		if prefix, err = kParams.address().Bytes(session.Client.Registry()); err != nil {
			outputter.SetError(err)

			return
		}
	}

	it := view.IterRawKeys(prefix)
	result := &KeysResult{At: view.At().String(), Keys: []string{}}

	for !kParams.reached(len(result.Keys)) {
		key, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			outputter.SetError(err)

			return
		}

		result.Keys = append(result.Keys, types.HexBytes(key).String())
	}

	outputter.SetCommandResult(result)
}
