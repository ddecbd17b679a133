package extrinsic

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/0xPolygon/substrate-client/metadata"
	"github.com/0xPolygon/substrate-client/scale"
	"github.com/0xPolygon/substrate-client/types"
)

// Signed extension identifiers understood by the builder
const (
	CheckNonZeroSender       = "CheckNonZeroSender"
	CheckSpecVersion         = "CheckSpecVersion"
	CheckTxVersion           = "CheckTxVersion"
	CheckGenesis             = "CheckGenesis"
	CheckMortality           = "CheckMortality"
	CheckEra                 = "CheckEra"
	CheckNonce               = "CheckNonce"
	CheckWeight              = "CheckWeight"
	ChargeTransactionPayment = "ChargeTransactionPayment"
	ChargeAssetTxPayment     = "ChargeAssetTxPayment"
	CheckMetadataHash        = "CheckMetadataHash"
)

// DefaultMortalPeriod is the validity window used when Params leaves mortality unset
const DefaultMortalPeriod uint64 = 64

var (
	ErrUnsupportedExtension = errors.New("unsupported signed extension")
	ErrNoChainState         = errors.New("value not supplied and no chain state to fetch it from")
)

// ExtensionResolutionError reports a signed extension whose value could not be determined
type ExtensionResolutionError struct {
	Extension string
	Err       error
}

func (e *ExtensionResolutionError) Error() string {
	return fmt.Sprintf("resolve signed extension %s: %v", e.Extension, e.Err)
}

func (e *ExtensionResolutionError) Unwrap() error {
	return e.Err
}

// ChainState supplies the extension values a caller did not override
type ChainState interface {
	AccountNextIndex(ctx context.Context, account types.AccountID) (uint64, error)
	GenesisHash(ctx context.Context) (types.Hash, error)
	RuntimeVersion(ctx context.Context, at *types.Hash) (*types.RuntimeVersion, error)
	LatestFinalizedBlockRef(ctx context.Context) (types.BlockRef, error)
	BlockHash(ctx context.Context, number uint64) (types.Hash, error)
}

// Params overrides signed extension values. Nil fields are resolved from chain state.
type Params struct {
	Nonce *uint64
	Tip   *big.Int
	// TipAssetID pays the fee in an asset, for chains with ChargeAssetTxPayment
	TipAssetID *uint32

	SpecVersion        *uint32
	TransactionVersion *uint32
	GenesisHash        *types.Hash

	// Immortal disables mortality. Otherwise the transaction is valid for
	// MortalPeriod blocks (DefaultMortalPeriod when zero) counted from Checkpoint,
	// which defaults to the latest finalized block.
	Immortal     bool
	MortalPeriod uint64
	Checkpoint   *types.BlockRef
}

func (p *Params) WithNonce(nonce uint64) *Params {
	p.Nonce = &nonce

	return p
}

func (p *Params) WithTip(tip *big.Int) *Params {
	p.Tip = tip

	return p
}

func (p *Params) WithImmortal() *Params {
	p.Immortal = true

	return p
}

func (p *Params) WithMortality(period uint64, checkpoint types.BlockRef) *Params {
	p.MortalPeriod = period
	p.Checkpoint = &checkpoint

	return p
}

// ExtensionValue is the resolved data of one signed extension. Extra is sent
// with the extrinsic; Additional is only signed.
type ExtensionValue struct {
	Identifier string
	Extra      []byte
	Additional []byte
}

// Extensions are resolved values in metadata order
type Extensions []ExtensionValue

// Extra concatenates the transmitted part of every extension
func (x Extensions) Extra() []byte {
	var out []byte
	for _, v := range x {
		out = append(out, v.Extra...)
	}

	return out
}

// Additional concatenates the signed only part of every extension
func (x Extensions) Additional() []byte {
	var out []byte
	for _, v := range x {
		out = append(out, v.Additional...)
	}

	return out
}

func (x Extensions) Get(identifier string) (ExtensionValue, bool) {
	for _, v := range x {
		if v.Identifier == identifier {
			return v, true
		}
	}

	return ExtensionValue{}, false
}

// resolver fills extension values lazily so chain state is only queried for
// values the metadata actually asks for
type resolver struct {
	ctx     context.Context
	state   ChainState
	account types.AccountID
	params  *Params

	runtime *types.RuntimeVersion
	genesis *types.Hash
}

func (r *resolver) runtimeVersion() (*types.RuntimeVersion, error) {
	if r.runtime != nil {
		return r.runtime, nil
	}

	if r.state == nil {
		return nil, ErrNoChainState
	}

	rv, err := r.state.RuntimeVersion(r.ctx, nil)
	if err != nil {
		return nil, err
	}

	r.runtime = rv

	return rv, nil
}

func (r *resolver) specVersion() (uint32, error) {
	if r.params.SpecVersion != nil {
		return *r.params.SpecVersion, nil
	}

	rv, err := r.runtimeVersion()
	if err != nil {
		return 0, err
	}

	return rv.SpecVersion, nil
}

func (r *resolver) transactionVersion() (uint32, error) {
	if r.params.TransactionVersion != nil {
		return *r.params.TransactionVersion, nil
	}

	rv, err := r.runtimeVersion()
	if err != nil {
		return 0, err
	}

	return rv.TransactionVersion, nil
}

func (r *resolver) genesisHash() (types.Hash, error) {
	if r.params.GenesisHash != nil {
		return *r.params.GenesisHash, nil
	}

	if r.genesis != nil {
		return *r.genesis, nil
	}

	if r.state == nil {
		return types.Hash{}, ErrNoChainState
	}

	h, err := r.state.GenesisHash(r.ctx)
	if err != nil {
		return types.Hash{}, err
	}

	r.genesis = &h

	return h, nil
}

func (r *resolver) nonce() (uint64, error) {
	if r.params.Nonce != nil {
		return *r.params.Nonce, nil
	}

	if r.state == nil {
		return 0, ErrNoChainState
	}

	return r.state.AccountNextIndex(r.ctx, r.account)
}

// mortality returns the era and the hash of its birth block
func (r *resolver) mortality() (types.Era, types.Hash, error) {
	if r.params.Immortal {
		genesis, err := r.genesisHash()

		return types.ImmortalEra, genesis, err
	}

	period := r.params.MortalPeriod
	if period == 0 {
		period = DefaultMortalPeriod
	}

	var checkpoint types.BlockRef

	if r.params.Checkpoint != nil {
		checkpoint = *r.params.Checkpoint
	} else {
		if r.state == nil {
			return types.Era{}, types.Hash{}, ErrNoChainState
		}

		ref, err := r.state.LatestFinalizedBlockRef(r.ctx)
		if err != nil {
			return types.Era{}, types.Hash{}, err
		}

		checkpoint = ref
	}

	era := types.NewMortalEra(checkpoint.Number, period)

	// a quantized phase can place the birth block before the checkpoint
	birth := era.Birth(checkpoint.Number)
	if birth == checkpoint.Number {
		return era, checkpoint.Hash, nil
	}

	if r.state == nil {
		return types.Era{}, types.Hash{}, ErrNoChainState
	}

	hash, err := r.state.BlockHash(r.ctx, birth)

	return era, hash, err
}

func (r *resolver) tip() *big.Int {
	if r.params.Tip == nil {
		return new(big.Int)
	}

	return r.params.Tip
}

// resolve computes one extension's value
func (r *resolver) resolve(reg *metadata.Registry, ext metadata.SignedExtension) (ExtensionValue, error) {
	extra := scale.NewEncoder()
	additional := scale.NewEncoder()

	switch ext.Identifier {
	case CheckNonZeroSender, CheckWeight:
		// checked by the runtime, nothing to encode

	case CheckSpecVersion:
		v, err := r.specVersion()
		if err != nil {
			return ExtensionValue{}, err
		}

		additional.EncodeUint32(v)

	case CheckTxVersion:
		v, err := r.transactionVersion()
		if err != nil {
			return ExtensionValue{}, err
		}

		additional.EncodeUint32(v)

	case CheckGenesis:
		h, err := r.genesisHash()
		if err != nil {
			return ExtensionValue{}, err
		}

		additional.Write(h.Bytes())

	case CheckMortality, CheckEra:
		era, birth, err := r.mortality()
		if err != nil {
			return ExtensionValue{}, err
		}

		if err := era.EncodeScale(extra); err != nil {
			return ExtensionValue{}, err
		}

		additional.Write(birth.Bytes())

	case CheckNonce:
		n, err := r.nonce()
		if err != nil {
			return ExtensionValue{}, err
		}

		extra.EncodeCompact(n)

	case ChargeTransactionPayment:
		if err := extra.EncodeCompactBig(r.tip()); err != nil {
			return ExtensionValue{}, err
		}

	case ChargeAssetTxPayment:
		if err := extra.EncodeCompactBig(r.tip()); err != nil {
			return ExtensionValue{}, err
		}

		if r.params.TipAssetID == nil {
			extra.PushByte(0)
		} else {
			extra.PushByte(1)
			extra.EncodeUint32(*r.params.TipAssetID)
		}

	case CheckMetadataHash:
		// mode disabled, no metadata hash
		extra.PushByte(0)
		additional.PushByte(0)

	default:
		if !reg.IsEmptyType(ext.Type) || !reg.IsEmptyType(ext.AdditionalSigned) {
			return ExtensionValue{}, ErrUnsupportedExtension
		}
	}

	return ExtensionValue{
		Identifier: ext.Identifier,
		Extra:      extra.CopyBytes(),
		Additional: additional.CopyBytes(),
	}, nil
}
