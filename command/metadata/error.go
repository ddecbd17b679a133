package metadata

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xPolygon/substrate-client/command"
	"github.com/0xPolygon/substrate-client/command/helper"
	"github.com/0xPolygon/substrate-client/dispatch"
	"github.com/0xPolygon/substrate-client/metadata"
)

const (
	palletIndexFlag = "pallet-index"
	errorIndexFlag  = "error-index"
	rawFlag         = "raw"
)

var errNoError = errors.New("either --raw or --pallet-index and --error-index is required")

type errorParams struct {
	palletIndex uint8
	errorIndex  uint8
	rawHex      string

	raw []byte
}

var errParams = &errorParams{}

func getErrorCommand() *cobra.Command {
	errorCmd := &cobra.Command{
		Use:     "error",
		Short:   "Resolves a dispatch error against the runtime metadata",
		PreRunE: runErrorPreRun,
		Run:     runErrorCommand,
	}

	errorCmd.Flags().Uint8Var(
		&errParams.palletIndex,
		palletIndexFlag,
		0,
		"the index of the pallet that raised the module error",
	)

	errorCmd.Flags().Uint8Var(
		&errParams.errorIndex,
		errorIndexFlag,
		0,
		"the index of the error variant in the pallet",
	)

	errorCmd.Flags().StringVar(
		&errParams.rawHex,
		rawFlag,
		"",
		"a hex encoded DispatchError, instead of the indices",
	)

	errorCmd.MarkFlagsMutuallyExclusive(rawFlag, palletIndexFlag)
	errorCmd.MarkFlagsMutuallyExclusive(rawFlag, errorIndexFlag)
	errorCmd.MarkFlagsRequiredTogether(palletIndexFlag, errorIndexFlag)

	return errorCmd
}

func runErrorPreRun(cmd *cobra.Command, _ []string) error {
	errParams.raw = nil

	if errParams.rawHex != "" {
		raw, err := helper.DecodeHexArg(rawFlag, errParams.rawHex)
		if err != nil {
			return err
		}

		errParams.raw = raw

		return nil
	}

	if !cmd.Flags().Changed(palletIndexFlag) {
		return errNoError
	}

	return nil
}

func runErrorCommand(cmd *cobra.Command, _ []string) {
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

	result, err := resolveError(session.Client.Registry(), errParams)
	if err != nil {
		outputter.SetError(err)

		return
	}

	outputter.SetCommandResult(result)
}

func resolveError(reg *metadata.Registry, p *errorParams) (*ErrorResult, error) {
	var dispatchErr *dispatch.Error

	if p.raw != nil {
		decoded, err := dispatch.Decode(reg, p.raw)
		if err != nil {
			return nil, err
		}

		dispatchErr = decoded
	} else {
		dispatchErr = &dispatch.Error{
			Kind:   dispatch.Module,
			Module: dispatch.NewModuleError(reg, p.palletIndex, [4]byte{p.errorIndex}),
		}
	}

	result := &ErrorResult{
		Kind:    dispatchErr.Kind.String(),
		Reason:  dispatchErr.Reason,
		Message: dispatchErr.Error(),
	}

	if dispatchErr.Module == nil {
		return result, nil
	}

	desc, err := dispatchErr.Module.Details()
	if err != nil {
		return nil, fmt.Errorf("resolve module error: %w", err)
	}

	result.Pallet = desc.PalletName
	result.PalletIndex = &desc.PalletIndex
	result.Error = desc.ErrorName
	result.ErrorIndex = &desc.ErrorIndex
	result.Docs = desc.Docs

	return result, nil
}
