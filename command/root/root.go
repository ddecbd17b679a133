package root

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/0xPolygon/substrate-client/command/helper"
	"github.com/0xPolygon/substrate-client/command/metadata"
	"github.com/0xPolygon/substrate-client/command/storage"
	"github.com/0xPolygon/substrate-client/command/tx"
	"github.com/0xPolygon/substrate-client/command/version"
)

type RootCommand struct {
	baseCmd *cobra.Command
}

func NewRootCommand() *RootCommand {
	rootCommand := &RootCommand{
		baseCmd: &cobra.Command{
			Use:   "substrate-client",
			Short: "substrate-client builds, validates, prices and submits extrinsics to Substrate based chains",
		},
	}

	helper.RegisterJSONOutputFlag(rootCommand.baseCmd)
	helper.RegisterClientFlags(rootCommand.baseCmd)

	rootCommand.registerSubCommands()

	return rootCommand
}

func (rc *RootCommand) registerSubCommands() {
	rc.baseCmd.AddCommand(
		version.GetCommand(),
		tx.GetCommand(),
		storage.GetCommand(),
		metadata.GetCommand(),
	)
}

func (rc *RootCommand) Execute() {
	if err := rc.baseCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)

		os.Exit(1)
	}
}
