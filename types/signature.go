package types

import (
	"fmt"

	"github.com/0xPolygon/substrate-client/scale"
)

type SignatureKind byte

const (
	SignatureEd25519 SignatureKind = iota
	SignatureSr25519
	SignatureEcdsa
)

const (
	// Ed25519 and Sr25519 signatures
	SignatureLength = 64
	// recoverable secp256k1 signature, [R || S || V]
	EcdsaSignatureLength = 65
)

// MultiSignature is a signature tagged with the scheme that produced it
type MultiSignature struct {
	Kind SignatureKind
	Sig  []byte
}

func NewMultiSignature(kind SignatureKind, sig []byte) (MultiSignature, error) {
	ms := MultiSignature{Kind: kind, Sig: sig}

	if len(sig) != kind.length() {
		return ms, fmt.Errorf("%s signature must be %d bytes, got %d", kind, kind.length(), len(sig))
	}

	return ms, nil
}

func (k SignatureKind) length() int {
	if k == SignatureEcdsa {
		return EcdsaSignatureLength
	}

	return SignatureLength
}

func (k SignatureKind) String() string {
	switch k {
	case SignatureEd25519:
		return "ed25519"
	case SignatureSr25519:
		return "sr25519"
	case SignatureEcdsa:
		return "ecdsa"
	default:
		return fmt.Sprintf("signature(%d)", byte(k))
	}
}

func (s MultiSignature) EncodeScale(e *scale.Encoder) error {
	if s.Kind > SignatureEcdsa {
		return fmt.Errorf("unknown signature kind %d", s.Kind)
	}

	if len(s.Sig) != s.Kind.length() {
		return fmt.Errorf("%s signature must be %d bytes, got %d", s.Kind, s.Kind.length(), len(s.Sig))
	}

	e.PushByte(byte(s.Kind))
	e.Write(s.Sig)

	return nil
}

func (s *MultiSignature) DecodeScale(d *scale.Decoder) error {
	kind, err := d.ReadByte()
	if err != nil {
		return err
	}

	if SignatureKind(kind) > SignatureEcdsa {
		return scale.UnknownVariant("MultiSignature", kind)
	}

	s.Kind = SignatureKind(kind)
	s.Sig = make([]byte, s.Kind.length())

	return d.ReadInto(s.Sig)
}
