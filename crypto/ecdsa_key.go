package crypto

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/0xPolygon/substrate-client/types"
)

var _ Key = (*ECDSAKey)(nil)

// Key is a signing keypair usable as an extrinsic signer
type Key interface {
	AccountID() types.AccountID
	Address() types.MultiAddress
	Sign(payload []byte) (types.MultiSignature, error)
}

// ECDSAKey signs with secp256k1. The account id is the blake2b-256 hash of the
// compressed public key and payloads are signed over their blake2b-256 hash.
type ECDSAKey struct {
	priv       *ecdsa.PrivateKey
	compressed []byte
	account    types.AccountID
}

// NewECDSAKey returns new instance of ECDSAKey
func NewECDSAKey(priv *ecdsa.PrivateKey) (*ECDSAKey, error) {
	compressed, err := CompressedPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, err
	}

	account, err := types.NewAccountID(Blake2b256(compressed))
	if err != nil {
		return nil, err
	}

	return &ECDSAKey{
		priv:       priv,
		compressed: compressed,
		account:    account,
	}, nil
}

// GenerateECDSAKey generates an ECDSA private key and wraps it into ECDSA key
func GenerateECDSAKey() (*ECDSAKey, error) {
	privKey, err := GenerateECDSAPrivateKey()
	if err != nil {
		return nil, err
	}

	return NewECDSAKey(privKey)
}

// NewECDSAKeyFromRawPrivECDSA parses a raw 32 byte secret
func NewECDSAKeyFromRawPrivECDSA(rawPrivKey []byte) (*ECDSAKey, error) {
	priv, err := ParseECDSAPrivateKey(rawPrivKey)
	if err != nil {
		return nil, err
	}

	return NewECDSAKey(priv)
}

func (k *ECDSAKey) Sign(payload []byte) (types.MultiSignature, error) {
	sig, err := Sign(k.priv, Blake2b256(payload))
	if err != nil {
		return types.MultiSignature{}, fmt.Errorf("ecdsa sign: %w", err)
	}

	return types.NewMultiSignature(types.SignatureEcdsa, sig)
}

func (k *ECDSAKey) AccountID() types.AccountID {
	return k.account
}

func (k *ECDSAKey) Address() types.MultiAddress {
	return types.NewMultiAddressFromAccountID(k.account)
}

// PublicKey returns the 33 byte compressed public key
func (k *ECDSAKey) PublicKey() []byte {
	return k.compressed
}

// MarshallPrivateKey returns 256-bit big-endian binary-encoded representation of the private key
// padded to a length of 32 bytes.
func (k *ECDSAKey) MarshallPrivateKey() ([]byte, error) {
	return MarshalECDSAPrivateKey(k.priv)
}

func (k *ECDSAKey) String() string {
	return k.account.String()
}
