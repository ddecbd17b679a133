package metadata

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const (
	timeoutFlag    = "timeout"
	defaultTimeout = time.Minute
)

var timeout time.Duration

func GetCommand() *cobra.Command {
	metadataCmd := &cobra.Command{
		Use:   "metadata",
		Short: "Top level command for inspecting the runtime metadata of the node. Only accepts subcommands.",
	}

	metadataCmd.PersistentFlags().DurationVar(
		&timeout,
		timeoutFlag,
		defaultTimeout,
		"the time limit of the whole command",
	)

	registerSubcommands(metadataCmd)

	return metadataCmd
}

func registerSubcommands(baseCmd *cobra.Command) {
	// metadata pallets
	baseCmd.AddCommand(getPalletsCommand())

	// metadata error
	baseCmd.AddCommand(getErrorCommand())
}

func commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)

	return ctx, func() {
		cancel()
		stop()
	}
}
