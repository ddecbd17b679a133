package tx

import (
	"github.com/spf13/cobra"

	"github.com/0xPolygon/substrate-client/command"
	"github.com/0xPolygon/substrate-client/command/helper"
	"github.com/0xPolygon/substrate-client/txpool"
	"github.com/0xPolygon/substrate-client/types"
)

type validateParams struct {
	txParams

	atRaw string
	at    *types.Hash
}

var vParams = &validateParams{}

func getValidateCommand() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:     "validate",
		Short:   "Dry runs an encoded extrinsic against the transaction pool rules of the runtime",
		PreRunE: runValidatePreRun,
		Run:     runValidateCommand,
	}

	vParams.setFlags(validateCmd)

	validateCmd.Flags().StringVar(
		&vParams.atRaw,
		atFlag,
		"",
		"the block hash to validate at (default best block)",
	)

	return validateCmd
}

func runValidatePreRun(_ *cobra.Command, _ []string) (err error) {
	if err = vParams.init(); err != nil {
		return
	}

	vParams.at, err = parseBlock(vParams.atRaw)

	return
}

func runValidateCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	ctx, cancel := vParams.context()
	defer cancel()

	session, err := helper.Connect(ctx, cmd)
	if err != nil {
		outputter.SetError(err)

		return
	}

	defer session.Close()

	ext := session.Client.Tx().FromEncoded(vParams.encoded, nil)

	var result *txpool.ValidationResult
	if vParams.at != nil {
		result, err = ext.ValidateAt(ctx, *vParams.at)
	} else {
		result, err = ext.Validate(ctx)
	}

	if err != nil {
		outputter.SetError(err)

		return
	}

	outputter.SetCommandResult(newValidateResult(ext.Hash(), result))
}

func newValidateResult(hash types.Hash, v *txpool.ValidationResult) *ValidateResult {
	res := &ValidateResult{
		Hash:     hash.String(),
		Validity: v.String(),
	}

	if v.Transaction != nil {
		res.Priority = v.Transaction.Priority
		res.Longevity = v.Transaction.Longevity
		res.Requires = len(v.Transaction.Requires)
		res.Provides = len(v.Transaction.Provides)
		res.Propagate = v.Transaction.Propagate
	}

	return res
}
