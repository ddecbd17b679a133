package extrinsic

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/crypto/blake2b"

	"github.com/0xPolygon/substrate-client/metadata"
	"github.com/0xPolygon/substrate-client/scale"
	"github.com/0xPolygon/substrate-client/types"
)

const (
	// Version is the extrinsic format version
	Version byte = 4

	signedBit byte = 0x80

	// signer payloads longer than this are signed over their blake2b-256 hash
	maxPayloadLength = 256
)

var (
	ErrUnsupportedVersion = errors.New("unsupported extrinsic version")
	ErrUnknownCall        = errors.New("call is not in the metadata")
	ErrLengthMismatch     = errors.New("extrinsic length prefix does not match its body")
	ErrInvalidSignature   = errors.New("invalid extrinsic signature")
)

// Signer produces signatures for an account. Key material stays behind it.
type Signer interface {
	AccountID() types.AccountID
	Address() types.MultiAddress
	Sign(payload []byte) (types.MultiSignature, error)
}

// Extrinsic is the common view of an unsigned or signed extrinsic
type Extrinsic interface {
	// Encoded returns the length prefixed wire form
	Encoded() []byte
	Hash() types.Hash
	IsSigned() bool
}

var (
	_ Extrinsic = (*Unsigned)(nil)
	_ Extrinsic = (*Signed)(nil)
)

// Unsigned is a bare call, broadcast as is
type Unsigned struct {
	Call Call
}

func (u *Unsigned) Encoded() []byte {
	body := make([]byte, 0, 3+len(u.Call.Args))
	body = append(body, Version)
	body = append(body, u.Call.Encoded()...)

	return lengthPrefixed(body)
}

func (u *Unsigned) Hash() types.Hash {
	return types.ExtrinsicHash(u.Encoded())
}

func (u *Unsigned) IsSigned() bool {
	return false
}

// Partial holds everything needed to sign: the call, the resolved extensions
// and the payload a signer must sign
type Partial struct {
	Call       Call
	Account    types.AccountID
	Extensions Extensions

	payload []byte
}

// SignerPayload is call ‖ extra ‖ additional, or its blake2b-256 hash when longer
// than 256 bytes
func (p *Partial) SignerPayload() []byte {
	return p.payload
}

// SignWithAddressAndSignature attaches a signature produced elsewhere. The
// address and signature must encode, so a truncated signature or an unknown
// address kind is rejected here.
func (p *Partial) SignWithAddressAndSignature(address types.MultiAddress, sig types.MultiSignature) (*Signed, error) {
	s := &Signed{
		Call:      p.Call,
		Address:   address,
		Signature: sig,
		Extra:     p.Extensions.Extra(),
	}

	if _, err := s.Encode(); err != nil {
		return nil, err
	}

	return s, nil
}

func signerPayload(call Call, exts Extensions) []byte {
	payload := call.Encoded()
	payload = append(payload, exts.Extra()...)
	payload = append(payload, exts.Additional()...)

	if len(payload) > maxPayloadLength {
		sum := blake2b.Sum256(payload)

		return sum[:]
	}

	return payload
}

// Signed is a complete signed extrinsic. Its encoding depends only on its fields.
type Signed struct {
	Call      Call
	Address   types.MultiAddress
	Signature types.MultiSignature
	// Extra is the concatenated transmitted extension data
	Extra []byte
}

// Encode returns the length prefixed wire form, failing on an address or
// signature that has no valid encoding
func (s *Signed) Encode() ([]byte, error) {
	e := scale.AcquireEncoder()
	defer scale.ReleaseEncoder(e)

	e.PushByte(Version | signedBit)

	if err := s.Address.EncodeScale(e); err != nil {
		return nil, fmt.Errorf("%w: address: %v", ErrInvalidSignature, err)
	}

	if err := s.Signature.EncodeScale(e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	e.Write(s.Extra)
	e.Write(s.Call.Encoded())

	if err := e.Err(); err != nil {
		return nil, err
	}

	return lengthPrefixed(e.Bytes()), nil
}

// Encoded is Encode for extrinsics from CreateSigned, SignWithAddressAndSignature
// or Decode, which always encode. It returns nil for a hand built Signed that does not.
func (s *Signed) Encoded() []byte {
	b, err := s.Encode()
	if err != nil {
		return nil
	}

	return b
}

func (s *Signed) Hash() types.Hash {
	return types.ExtrinsicHash(s.Encoded())
}

func (s *Signed) IsSigned() bool {
	return true
}

func lengthPrefixed(body []byte) []byte {
	e := scale.NewEncoder()
	e.EncodeBytes(body)

	return e.Bytes()
}

type BuilderOption func(*Builder)

func WithLogger(logger hclog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

func WithChainState(state ChainState) BuilderOption {
	return func(b *Builder) {
		b.state = state
	}
}

// Builder assembles extrinsics for one metadata snapshot
type Builder struct {
	registry *metadata.Registry
	state    ChainState
	logger   hclog.Logger
}

func NewBuilder(registry *metadata.Registry, opts ...BuilderOption) *Builder {
	b := &Builder{
		registry: registry,
		logger:   hclog.NewNullLogger(),
	}

	for _, opt := range opts {
		opt(b)
	}

	b.logger = b.logger.Named("extrinsic")

	return b
}

func (b *Builder) Registry() *metadata.Registry {
	return b.registry
}

func (b *Builder) checkCall(call Call) error {
	p, ok := b.registry.PalletByIndex(call.PalletIndex)
	if !ok || p.Calls == nil {
		return fmt.Errorf("%w: pallet %d", ErrUnknownCall, call.PalletIndex)
	}

	variants, err := b.registry.Variants(p.Calls.Type)
	if err != nil {
		return err
	}

	for _, v := range variants {
		if v.Index == call.CallIndex {
			return nil
		}
	}

	return fmt.Errorf("%w: %s call %d", ErrUnknownCall, p.Name, call.CallIndex)
}

// CreateUnsigned wraps a call into an unsigned extrinsic
func (b *Builder) CreateUnsigned(call Call) (*Unsigned, error) {
	if err := b.checkCall(call); err != nil {
		return nil, err
	}

	return &Unsigned{Call: call}, nil
}

// CreatePartialSigned resolves every signed extension the metadata lists, in
// metadata order, and computes the signer payload
func (b *Builder) CreatePartialSigned(
	ctx context.Context,
	call Call,
	account types.AccountID,
	params *Params,
) (*Partial, error) {
	if err := b.checkCall(call); err != nil {
		return nil, err
	}

	if params == nil {
		params = &Params{}
	}

	r := &resolver{ctx: ctx, state: b.state, account: account, params: params}
	exts := b.registry.SignedExtensions()
	values := make(Extensions, 0, len(exts))

	for _, ext := range exts {
		v, err := r.resolve(b.registry, ext)
		if err != nil {
			return nil, &ExtensionResolutionError{Extension: ext.Identifier, Err: err}
		}

		values = append(values, v)
	}

	partial := &Partial{
		Call:       call,
		Account:    account,
		Extensions: values,
		payload:    signerPayload(call, values),
	}

	b.logger.Debug("partial extrinsic created", "account", account, "call", call, "payload", len(partial.payload))

	return partial, nil
}

// CreateSigned builds the partial extrinsic for the signer's account and signs it
func (b *Builder) CreateSigned(ctx context.Context, call Call, signer Signer, params *Params) (*Signed, error) {
	partial, err := b.CreatePartialSigned(ctx, call, signer.AccountID(), params)
	if err != nil {
		return nil, err
	}

	sig, err := signer.Sign(partial.SignerPayload())
	if err != nil {
		return nil, fmt.Errorf("sign extrinsic: %w", err)
	}

	return partial.SignWithAddressAndSignature(signer.Address(), sig)
}

// Decode parses a length prefixed extrinsic. The registry splits the signed
// extension data, whose layout only the metadata knows.
func Decode(reg *metadata.Registry, data []byte) (Extrinsic, error) {
	d := scale.NewDecoder(data)

	n, err := d.DecodeLength()
	if err != nil {
		return nil, err
	}

	if n != d.Len() {
		return nil, &scale.Error{Op: "decode extrinsic", Offset: 0, Err: ErrLengthMismatch}
	}

	versionOffset := d.Offset()

	version, err := d.ReadByte()
	if err != nil {
		return nil, err
	}

	if version&^signedBit != Version {
		return nil, &scale.Error{Op: "decode extrinsic", Offset: versionOffset, Err: ErrUnsupportedVersion}
	}

	if version&signedBit == 0 {
		call, err := decodeCall(d.Remaining())
		if err != nil {
			return nil, err
		}

		return &Unsigned{Call: call}, nil
	}

	s := &Signed{}

	if err := s.Address.DecodeScale(d); err != nil {
		return nil, fmt.Errorf("decode signer address: %w", err)
	}

	if err := s.Signature.DecodeScale(d); err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}

	start := d.Offset()

	for _, ext := range reg.SignedExtensions() {
		if _, err := reg.DecodeValue(ext.Type, d); err != nil {
			return nil, fmt.Errorf("decode signed extension %s: %w", ext.Identifier, err)
		}
	}

	s.Extra = append([]byte{}, data[start:d.Offset()]...)

	if s.Call, err = decodeCall(d.Remaining()); err != nil {
		return nil, err
	}

	return s, nil
}
