package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	btc_ecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/0xPolygon/substrate-client/helper/hex"
)

var (
	errHashOfInvalidLength = errors.New("message hash of invalid length")
	errInvalidSignature    = errors.New("invalid signature")
	errInvalidPrivateKey   = errors.New("invalid private key")
)

type KeyType string

const (
	KeyECDSA   KeyType = "ecdsa"
	KeyEd25519 KeyType = "ed25519"
)

const (
	// ECDSASignatureLength indicates the byte length required to carry a signature with recovery id.
	// (64 bytes ECDSA signature + 1 byte recovery id)
	ECDSASignatureLength = 64 + 1

	// recoveryID is the offset btcec adds to the compact signature header
	recoveryID = byte(27)

	// recoveryIDOffset points to the byte offset within the signature that contains the recovery id.
	recoveryIDOffset = 64

	messageHashLength = 32
)

func ParseECDSAPrivateKey(buf []byte) (*ecdsa.PrivateKey, error) {
	if len(buf) != 32 {
		return nil, fmt.Errorf("invalid key length (%dB), should be 32B", len(buf))
	}

	prv, _ := btcec.PrivKeyFromBytes(buf)

	return prv.ToECDSA(), nil
}

// MarshalECDSAPrivateKey serializes the private key's D value to a []byte
func MarshalECDSAPrivateKey(priv *ecdsa.PrivateKey) ([]byte, error) {
	btcPriv, err := convertToBtcPrivKey(priv)
	if err != nil {
		return nil, err
	}

	defer btcPriv.Zero()

	return btcPriv.Serialize(), nil
}

// GenerateECDSAPrivateKey generates a new key based on the secp256k1 elliptic curve.
func GenerateECDSAPrivateKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(btcec.S256(), rand.Reader)
}

// CompressedPublicKey returns the 33 byte SEC1 compressed form of a secp256k1 public key
func CompressedPublicKey(pub *ecdsa.PublicKey) ([]byte, error) {
	var x, y btcec.FieldVal

	if overflow := x.SetByteSlice(pub.X.Bytes()); overflow {
		return nil, errors.New("public key x overflows field")
	}

	if overflow := y.SetByteSlice(pub.Y.Bytes()); overflow {
		return nil, errors.New("public key y overflows field")
	}

	return btcec.NewPublicKey(&x, &y).SerializeCompressed(), nil
}

// RecoverPubKey verifies the compact signature "signature" of "hash" for the secp256k1 curve.
func RecoverPubKey(signature, hash []byte) (*ecdsa.PublicKey, error) {
	if len(hash) != messageHashLength {
		return nil, errHashOfInvalidLength
	}

	signatureSize := len(signature)
	if signatureSize != ECDSASignatureLength {
		return nil, errInvalidSignature
	}

	// Convert to btcec input format with 'recovery id' v at the beginning.
	btcsig := make([]byte, signatureSize)
	btcsig[0] = signature[signatureSize-1] + recoveryID
	copy(btcsig[1:], signature)

	pub, _, err := btc_ecdsa.RecoverCompact(btcsig, hash)
	if err != nil {
		return nil, err
	}

	return pub.ToECDSA(), nil
}

// Sign produces an ECDSA signature of the data in hash with the given
// private key on the secp256k1 curve.
//
// The produced signature is in the [R || S || V] format where V is 0 or 1.
func Sign(priv *ecdsa.PrivateKey, hash []byte) ([]byte, error) {
	if len(hash) != messageHashLength {
		return nil, fmt.Errorf("hash is required to be exactly %d bytes (%d)", messageHashLength, len(hash))
	}

	if priv.Curve != btcec.S256() {
		return nil, errors.New("private key curve is not secp256k1")
	}

	// convert from ecdsa.PrivateKey to btcec.PrivateKey
	btcPrivKey, err := convertToBtcPrivKey(priv)
	if err != nil {
		return nil, err
	}

	defer btcPrivKey.Zero()

	sig, err := btc_ecdsa.SignCompact(btcPrivKey, hash, false)
	if err != nil {
		return nil, err
	}

	// move the recovery id to the end
	v := sig[0] - recoveryID
	copy(sig, sig[1:])
	sig[recoveryIDOffset] = v

	return sig, nil
}

// BytesToECDSAPrivateKey reads a hex encoded private key, with or without the 0x prefix
func BytesToECDSAPrivateKey(input []byte) (*ecdsa.PrivateKey, error) {
	decoded, err := hex.DecodeHex(string(input))
	if err != nil {
		return nil, err
	}

	return ParseECDSAPrivateKey(decoded)
}

// convertToBtcPrivKey converts provided ECDSA private key to btc private key format
// used by btcec library
func convertToBtcPrivKey(priv *ecdsa.PrivateKey) (*btcec.PrivateKey, error) {
	var btcPriv btcec.PrivateKey

	overflow := btcPriv.Key.SetByteSlice(priv.D.Bytes())
	if overflow || btcPriv.Key.IsZero() {
		return nil, errInvalidPrivateKey
	}

	return &btcPriv, nil
}
