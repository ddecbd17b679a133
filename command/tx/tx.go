package tx

import (
	"github.com/spf13/cobra"
)

func GetCommand() *cobra.Command {
	txCmd := &cobra.Command{
		Use:   "tx",
		Short: "Top level command for validating, pricing and submitting encoded extrinsics. Only accepts subcommands.",
	}

	registerSubcommands(txCmd)

	return txCmd
}

func registerSubcommands(baseCmd *cobra.Command) {
	// tx submit
	baseCmd.AddCommand(getSubmitCommand())

	// tx validate
	baseCmd.AddCommand(getValidateCommand())

	// tx fee
	baseCmd.AddCommand(getFeeCommand())
}
