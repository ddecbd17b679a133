package storage

import (
	"github.com/spf13/cobra"
)

func GetCommand() *cobra.Command {
	storageCmd := &cobra.Command{
		Use:   "storage",
		Short: "Top level command for reading runtime storage. Only accepts subcommands.",
	}

	registerSubcommands(storageCmd)

	return storageCmd
}

func registerSubcommands(baseCmd *cobra.Command) {
	// storage get
	baseCmd.AddCommand(getGetCommand())

	// storage keys
	baseCmd.AddCommand(getKeysCommand())

	// storage entries
	baseCmd.AddCommand(getEntriesCommand())
}
