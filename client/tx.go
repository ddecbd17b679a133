package client

import (
	"context"
	"math/big"

	"github.com/0xPolygon/substrate-client/extrinsic"
	"github.com/0xPolygon/substrate-client/metadata"
	"github.com/0xPolygon/substrate-client/txpayment"
	"github.com/0xPolygon/substrate-client/txpool"
	"github.com/0xPolygon/substrate-client/txrelayer"
	"github.com/0xPolygon/substrate-client/types"
)

// TxClient creates extrinsics with the metadata current when it was obtained
type TxClient struct {
	client    *Client
	builder   *extrinsic.Builder
	validator *txpool.Validator
	relayer   *txrelayer.TxRelayer
	estimator *txpayment.Estimator
}

func newTxClient(c *Client) *TxClient {
	reg := c.Registry()

	// backend and registry are supplied, so construction cannot fail
	relayer, _ := txrelayer.NewTxRelayer(
		txrelayer.WithBackend(c.backend),
		txrelayer.WithRegistry(reg),
		txrelayer.WithLogger(c.logger),
	)

	return &TxClient{
		client:    c,
		builder:   extrinsic.NewBuilder(reg, extrinsic.WithChainState(c), extrinsic.WithLogger(c.logger)),
		validator: txpool.NewValidator(c.backend, c.logger),
		relayer:   relayer,
		estimator: txpayment.NewEstimator(&txpayment.Config{TipPolicy: c.config.TipPolicy}, c.backend, c.logger),
	}
}

func (t *TxClient) Registry() *metadata.Registry {
	return t.builder.Registry()
}

// Call resolves a call by pallet and call name and encodes its arguments
func (t *TxClient) Call(pallet, call string, args ...metadata.NamedValue) (extrinsic.Call, error) {
	return extrinsic.NewDynamicCall(t.builder.Registry(), pallet, call, args...)
}

// params copies the caller's params and applies the configured mortality
func (t *TxClient) params(params *extrinsic.Params) *extrinsic.Params {
	var p extrinsic.Params
	if params != nil {
		p = *params
	}

	if p.MortalPeriod == 0 && !p.Immortal {
		p.MortalPeriod = t.client.config.MortalPeriod
	}

	return &p
}

// CreatePartialSigned resolves the signed extensions for account, leaving
// the signature to the caller
func (t *TxClient) CreatePartialSigned(
	ctx context.Context,
	call extrinsic.Call,
	account types.AccountID,
	params *extrinsic.Params,
) (*extrinsic.Partial, error) {
	return t.builder.CreatePartialSigned(ctx, call, account, t.params(params))
}

// CreateSigned builds and signs an extrinsic
func (t *TxClient) CreateSigned(
	ctx context.Context,
	call extrinsic.Call,
	signer extrinsic.Signer,
	params *extrinsic.Params,
) (*SubmittableExtrinsic, error) {
	params = t.params(params)

	signed, err := t.builder.CreateSigned(ctx, call, signer, params)
	if err != nil {
		return nil, err
	}

	return t.submittable(signed, params.Tip), nil
}

// CreateUnsigned wraps a call for broadcast without a signature
func (t *TxClient) CreateUnsigned(call extrinsic.Call) (*SubmittableExtrinsic, error) {
	unsigned, err := t.builder.CreateUnsigned(call)
	if err != nil {
		return nil, err
	}

	return t.submittable(unsigned, nil), nil
}

// FromEncoded wraps an already encoded extrinsic
func (t *TxClient) FromEncoded(encoded []byte, tip *big.Int) *SubmittableExtrinsic {
	return &SubmittableExtrinsic{
		encoded: append([]byte(nil), encoded...),
		hash:    types.ExtrinsicHash(encoded),
		tip:     tip,
		tx:      t,
	}
}

func (t *TxClient) submittable(ext extrinsic.Extrinsic, tip *big.Int) *SubmittableExtrinsic {
	return &SubmittableExtrinsic{
		encoded: ext.Encoded(),
		hash:    ext.Hash(),
		tip:     tip,
		tx:      t,
	}
}

// SubmittableExtrinsic is an encoded extrinsic ready to validate, price or submit
type SubmittableExtrinsic struct {
	encoded []byte
	hash    types.Hash
	tip     *big.Int
	tx      *TxClient
}

// Encoded is the length prefixed wire form
func (s *SubmittableExtrinsic) Encoded() []byte {
	return s.encoded
}

// Hash is the blake2b-256 hash of the encoded extrinsic, equal to the hash the
// node reports on submission
func (s *SubmittableExtrinsic) Hash() types.Hash {
	return s.hash
}

// Validate dry runs the extrinsic at the best block
func (s *SubmittableExtrinsic) Validate(ctx context.Context) (*txpool.ValidationResult, error) {
	return s.tx.validator.Validate(ctx, s.encoded, nil)
}

// ValidateAt dry runs the extrinsic at a block
func (s *SubmittableExtrinsic) ValidateAt(ctx context.Context, at types.Hash) (*txpool.ValidationResult, error) {
	return s.tx.validator.Validate(ctx, s.encoded, &at)
}

// Submit broadcasts without watching and returns the node reported hash
func (s *SubmittableExtrinsic) Submit(ctx context.Context) (types.Hash, error) {
	return s.tx.relayer.Submit(ctx, s.encoded)
}

// SubmitAndWatch broadcasts and follows the extrinsic's status
func (s *SubmittableExtrinsic) SubmitAndWatch(ctx context.Context) (*txrelayer.TxProgress, error) {
	return s.tx.relayer.SubmitAndWatch(ctx, s.encoded)
}

// PartialFeeEstimate queries TransactionPaymentApi_query_info at the best block
func (s *SubmittableExtrinsic) PartialFeeEstimate(ctx context.Context) (*big.Int, error) {
	return s.tx.estimator.PartialFeeEstimate(ctx, s.encoded, s.tip, nil)
}

// InclusionFeeEstimate sums the fee details at the best block
func (s *SubmittableExtrinsic) InclusionFeeEstimate(ctx context.Context) (*big.Int, error) {
	return s.tx.estimator.InclusionFeeEstimate(ctx, s.encoded, nil)
}

// CompareFees runs both fee paths against the same block
func (s *SubmittableExtrinsic) CompareFees(ctx context.Context) (*txpayment.Comparison, error) {
	return s.tx.estimator.Compare(ctx, s.encoded, s.tip, nil)
}
