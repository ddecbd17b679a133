package tx

import (
	"math/big"

	"github.com/spf13/cobra"

	"github.com/0xPolygon/substrate-client/command"
	"github.com/0xPolygon/substrate-client/command/helper"
)

type feeParams struct {
	txParams

	tipRaw string
	tip    *big.Int
}

var fParams = &feeParams{}

func getFeeCommand() *cobra.Command {
	feeCmd := &cobra.Command{
		Use:     "fee",
		Short:   "Estimates the fee of an encoded extrinsic with both payment runtime APIs",
		PreRunE: runFeePreRun,
		Run:     runFeeCommand,
	}

	fParams.setFlags(feeCmd)

	feeCmd.Flags().StringVar(
		&fParams.tipRaw,
		tipFlag,
		"",
		"the tip the extrinsic pays, added to the partial fee when the tip policy is included",
	)

	return feeCmd
}

func runFeePreRun(_ *cobra.Command, _ []string) (err error) {
	if err = fParams.init(); err != nil {
		return
	}

	fParams.tip, err = parseTip(fParams.tipRaw)

	return
}

func runFeeCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	ctx, cancel := fParams.context()
	defer cancel()

	session, err := helper.Connect(ctx, cmd)
	if err != nil {
		outputter.SetError(err)

		return
	}

	defer session.Close()

	ext := session.Client.Tx().FromEncoded(fParams.encoded, fParams.tip)

	comparison, err := ext.CompareFees(ctx)
	if err != nil {
		outputter.SetError(err)

		return
	}

	outputter.SetCommandResult(&FeeResult{
		Hash:         ext.Hash().String(),
		At:           comparison.At.String(),
		TipPolicy:    session.Client.Config().TipPolicy.String(),
		PartialFee:   comparison.PartialFee.String(),
		InclusionFee: comparison.InclusionFee.String(),
		Diff:         comparison.Diff().String(),
	})
}
