// Package txpayment estimates what a signed extrinsic costs to include.
//
// Two runtime entry points are queried independently:
//   - TransactionPaymentApi_query_info returns the partial fee computed by the runtime
//   - TransactionPaymentApi_query_fee_details returns the fee components, which
//     are summed locally
//
// Neither path calls into the other, so a disagreement between them points at a
// genuine encoding or protocol difference.
package txpayment

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/0xPolygon/substrate-client/backend"
	"github.com/0xPolygon/substrate-client/scale"
	"github.com/0xPolygon/substrate-client/types"
)

const (
	queryInfoMethod       = "TransactionPaymentApi_query_info"
	queryFeeDetailsMethod = "TransactionPaymentApi_query_fee_details"
)

var ErrNegativeTip = errors.New("tip must not be negative")

// TipPolicy decides whether the tip counts towards an estimate
type TipPolicy uint8

const (
	// TipExcluded estimates only the inclusion fee. The tip is paid on top.
	TipExcluded TipPolicy = iota
	// TipIncluded adds the tip on both paths: the caller supplied tip to the
	// partial fee and the tip reported in the fee details to their sum
	TipIncluded
)

func (p TipPolicy) String() string {
	if p == TipIncluded {
		return "included"
	}

	return "excluded"
}

// DispatchClass of a call as reported by the runtime
type DispatchClass uint8

const (
	ClassNormal DispatchClass = iota
	ClassOperational
	ClassMandatory
)

// Weight is the two dimensional weight of a call
type Weight struct {
	RefTime   uint64 `scale:"compact"`
	ProofSize uint64 `scale:"compact"`
}

// RuntimeDispatchInfo is the result of TransactionPaymentApi_query_info
type RuntimeDispatchInfo struct {
	Weight     Weight
	Class      DispatchClass
	PartialFee *big.Int
}

// InclusionFee are the fee components charged for including a transaction
type InclusionFee struct {
	BaseFee           *big.Int
	LenFee            *big.Int
	AdjustedWeightFee *big.Int
}

// Total is base_fee + len_fee + adjusted_weight_fee
func (f *InclusionFee) Total() *big.Int {
	total := new(big.Int)

	for _, v := range []*big.Int{f.BaseFee, f.LenFee, f.AdjustedWeightFee} {
		if v != nil {
			total.Add(total, v)
		}
	}

	return total
}

// FeeDetails is the result of TransactionPaymentApi_query_fee_details. A nil
// InclusionFee means the transaction pays no fee.
type FeeDetails struct {
	InclusionFee *InclusionFee
	Tip          *big.Int
}

// Config of the Estimator
type Config struct {
	TipPolicy TipPolicy
}

func DefaultConfig() *Config {
	return &Config{TipPolicy: TipExcluded}
}

// Estimator queries the transaction payment runtime API
type Estimator struct {
	backend backend.Backend
	policy  TipPolicy
	logger  hclog.Logger
}

func NewEstimator(config *Config, b backend.Backend, logger hclog.Logger) *Estimator {
	if config == nil {
		config = DefaultConfig()
	}

	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &Estimator{
		backend: b,
		policy:  config.TipPolicy,
		logger:  logger.Named("txpayment"),
	}
}

// TipPolicy returns the configured policy
func (e *Estimator) TipPolicy() TipPolicy {
	return e.policy
}

// withLength appends the little endian u32 length of tx, the argument layout
// both runtime entry points expect
func withLength(tx []byte) []byte {
	enc := scale.NewEncoder()
	enc.Write(tx)
	enc.EncodeUint32(uint32(len(tx)))

	return enc.CopyBytes()
}

func (e *Estimator) resolveAt(ctx context.Context, at *types.Hash) (*types.Hash, error) {
	if at != nil {
		return at, nil
	}

	best, err := e.backend.LatestBestBlockRef(ctx)
	if err != nil {
		return nil, err
	}

	return &best.Hash, nil
}

// QueryInfo returns the weight, class and partial fee of tx at the block,
// the best block when at is nil
func (e *Estimator) QueryInfo(ctx context.Context, tx []byte, at *types.Hash) (*RuntimeDispatchInfo, error) {
	at, err := e.resolveAt(ctx, at)
	if err != nil {
		return nil, err
	}

	info, err := backend.CallDecoding[RuntimeDispatchInfo](ctx, e.backend, queryInfoMethod, withLength(tx), at)
	if err != nil {
		return nil, err
	}

	if info.PartialFee == nil {
		info.PartialFee = new(big.Int)
	}

	return &info, nil
}

// QueryFeeDetails returns the fee components of tx at the block, the best block
// when at is nil
func (e *Estimator) QueryFeeDetails(ctx context.Context, tx []byte, at *types.Hash) (*FeeDetails, error) {
	at, err := e.resolveAt(ctx, at)
	if err != nil {
		return nil, err
	}

	details, err := backend.CallDecoding[FeeDetails](ctx, e.backend, queryFeeDetailsMethod, withLength(tx), at)
	if err != nil {
		return nil, err
	}

	if details.Tip == nil {
		details.Tip = new(big.Int)
	}

	return &details, nil
}

// PartialFeeEstimate is the runtime computed partial fee. With TipIncluded the
// tip the extrinsic was signed with is added; a nil tip counts as zero.
func (e *Estimator) PartialFeeEstimate(ctx context.Context, tx []byte, tip *big.Int, at *types.Hash) (*big.Int, error) {
	if tip != nil && tip.Sign() < 0 {
		return nil, ErrNegativeTip
	}

	info, err := e.QueryInfo(ctx, tx, at)
	if err != nil {
		return nil, err
	}

	fee := new(big.Int).Set(info.PartialFee)
	if e.policy == TipIncluded && tip != nil {
		fee.Add(fee, tip)
	}

	metrics.IncrCounterWithLabels([]string{"txpayment", "estimates"}, 1, []metrics.Label{
		{Name: "path", Value: "query_info"},
	})

	e.logger.Debug("partial fee estimated", "fee", fee, "weight", info.Weight.RefTime, "tip", e.policy)

	return fee, nil
}

// InclusionFeeEstimate sums base, length and adjusted weight fee. With TipIncluded
// the tip reported in the fee details is added. Fee exempt transactions cost zero.
func (e *Estimator) InclusionFeeEstimate(ctx context.Context, tx []byte, at *types.Hash) (*big.Int, error) {
	details, err := e.QueryFeeDetails(ctx, tx, at)
	if err != nil {
		return nil, err
	}

	fee := new(big.Int)
	if details.InclusionFee != nil {
		fee = details.InclusionFee.Total()
	}

	if e.policy == TipIncluded {
		fee.Add(fee, details.Tip)
	}

	metrics.IncrCounterWithLabels([]string{"txpayment", "estimates"}, 1, []metrics.Label{
		{Name: "path", Value: "query_fee_details"},
	})

	e.logger.Debug("inclusion fee estimated", "fee", fee, "exempt", details.InclusionFee == nil, "tip", e.policy)

	return fee, nil
}

// Comparison holds the results of both estimation paths for the same block
type Comparison struct {
	At           types.Hash
	PartialFee   *big.Int
	InclusionFee *big.Int
}

// Diff is |PartialFee - InclusionFee|
func (c *Comparison) Diff() *big.Int {
	d := new(big.Int).Sub(c.PartialFee, c.InclusionFee)

	return d.Abs(d)
}

// Agrees reports whether the paths differ by at most percent of the larger one
func (c *Comparison) Agrees(percent uint64) bool {
	larger := c.PartialFee
	if c.InclusionFee.Cmp(larger) > 0 {
		larger = c.InclusionFee
	}

	// diff * 100 <= larger * percent
	lhs := new(big.Int).Mul(c.Diff(), big.NewInt(100))
	rhs := new(big.Int).Mul(larger, new(big.Int).SetUint64(percent))

	return lhs.Cmp(rhs) <= 0
}

func (c *Comparison) String() string {
	return fmt.Sprintf("partial=%s inclusion=%s diff=%s", c.PartialFee, c.InclusionFee, c.Diff())
}

// Compare runs both paths concurrently against the same block
func (e *Estimator) Compare(ctx context.Context, tx []byte, tip *big.Int, at *types.Hash) (*Comparison, error) {
	at, err := e.resolveAt(ctx, at)
	if err != nil {
		return nil, err
	}

	c := &Comparison{At: *at}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fee, err := e.PartialFeeEstimate(gctx, tx, tip, at)
		if err != nil {
			return fmt.Errorf("partial fee: %w", err)
		}

		c.PartialFee = fee

		return nil
	})

	g.Go(func() error {
		fee, err := e.InclusionFeeEstimate(gctx, tx, at)
		if err != nil {
			return fmt.Errorf("inclusion fee: %w", err)
		}

		c.InclusionFee = fee

		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return c, nil
}
