package storage

import (
	"github.com/spf13/cobra"

	"github.com/0xPolygon/substrate-client/command"
	"github.com/0xPolygon/substrate-client/command/helper"
)

var gParams = &storageParams{}

func getGetCommand() *cobra.Command {
	getCmd := &cobra.Command{
		Use:     "get",
		Short:   "Reads and decodes a plain storage value",
		PreRunE: runGetPreRun,
		Run:     runGetCommand,
	}

	gParams.setFlags(getCmd, false)

	_ = getCmd.MarkFlagRequired(palletFlag)
	_ = getCmd.MarkFlagRequired(entryFlag)

	return getCmd
}

func runGetPreRun(_ *cobra.Command, _ []string) error {
	return gParams.init()
}

func runGetCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	ctx, cancel := gParams.context()
	defer cancel()

	session, err := helper.Connect(ctx, cmd)
	if err != nil {
		outputter.SetError(err)

		return
	}

	defer session.Close()

	view, err := gParams.open(ctx, session)
	if err != nil {
		outputter.SetError(err)

		return
	}

	addr := gParams.address()

	value, found, err := view.Fetch(ctx, addr)
	if err != nil {
		outputter.SetError(err)

		return
	}

	result := &ValueResult{
		Address: addr.String(),
		At:      view.At().String(),
		Found:   found,
	}

	if found {
		result.Value = value.String()
	}

	outputter.SetCommandResult(result)
}
