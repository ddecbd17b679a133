package metadata

import (
	"github.com/spf13/cobra"

	"github.com/0xPolygon/substrate-client/command"
	"github.com/0xPolygon/substrate-client/command/helper"
)

const prefixFlag = "prefix"

var palletPrefix string

func getPalletsCommand() *cobra.Command {
	palletsCmd := &cobra.Command{
		Use:   "pallets",
		Short: "Lists the pallets of the current runtime",
		Run:   runPalletsCommand,
	}

	palletsCmd.Flags().StringVar(
		&palletPrefix,
		prefixFlag,
		"",
		"only list pallets whose name starts with the prefix",
	)

	return palletsCmd
}

func runPalletsCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	ctx, cancel := commandContext()
	defer cancel()

	session, err := helper.Connect(ctx, cmd)
	if err != nil {
		outputter.SetError(err)

		return
	}

	defer session.Close()

	runtime := session.Client.Runtime()
	result := &PalletsResult{
		SpecName:    runtime.SpecName,
		SpecVersion: runtime.SpecVersion,
		Pallets:     []PalletResult{},
	}

	for _, p := range session.Client.Registry().PalletsWithPrefix(palletPrefix) {
		pr := PalletResult{
			Name:    p.Name,
			Index:   p.Index,
			Calls:   p.Calls != nil,
			Events:  p.Event != nil,
			Errors:  p.Error != nil,
		}

		if p.Storage != nil {
			pr.Storage = len(p.Storage.Entries)
		}

		result.Pallets = append(result.Pallets, pr)
	}

	outputter.SetCommandResult(result)
}
