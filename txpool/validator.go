package txpool

import (
	"context"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"

	"github.com/0xPolygon/substrate-client/backend"
	"github.com/0xPolygon/substrate-client/types"
)

const validateTransactionMethod = "TaggedTransactionQueue_validate_transaction"

// TransactionSource tells the runtime where a transaction came from
type TransactionSource uint8

const (
	SourceInBlock TransactionSource = iota
	SourceLocal
	SourceExternal
)

// Validator dry runs transactions against block state
type Validator struct {
	backend backend.Backend
	logger  hclog.Logger
}

func NewValidator(b backend.Backend, logger hclog.Logger) *Validator {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &Validator{
		backend: b,
		logger:  logger.Named("validator"),
	}
}

// Validate asks the runtime whether tx would currently be accepted by the pool
// at the block, the best block when at is nil. A valid result is advisory: state
// can change before the transaction is included.
func (v *Validator) Validate(ctx context.Context, tx []byte, at *types.Hash) (*ValidationResult, error) {
	if at == nil {
		best, err := v.backend.LatestBestBlockRef(ctx)
		if err != nil {
			return nil, err
		}

		at = &best.Hash
	}

	args := make([]byte, 0, 1+len(tx)+types.HashLength)
	args = append(args, byte(SourceExternal))
	args = append(args, tx...)
	args = append(args, at.Bytes()...)

	result, err := backend.CallDecoding[ValidationResult](ctx, v.backend, validateTransactionMethod, args, at)
	if err != nil {
		return nil, err
	}

	metrics.IncrCounterWithLabels([]string{"txpool", "validations"}, 1, []metrics.Label{
		{Name: "result", Value: result.Kind.String()},
	})

	v.logger.Debug("transaction validated", "at", at, "result", result.String())

	return &result, nil
}
