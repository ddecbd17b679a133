package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/0xPolygon/substrate-client/types"
)

var _ Key = (*Ed25519Key)(nil)

// Ed25519Key signs with ed25519. The account id is the public key itself.
type Ed25519Key struct {
	priv    ed25519.PrivateKey
	account types.AccountID
}

// NewEd25519KeyFromSeed builds a key from a 32 byte secret seed
func NewEd25519KeyFromSeed(seed []byte) (*Ed25519Key, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid seed length (%dB), should be %dB", len(seed), ed25519.SeedSize)
	}

	priv := ed25519.NewKeyFromSeed(seed)

	account, err := types.NewAccountID(priv.Public().(ed25519.PublicKey)) //nolint:forcetypeassert
	if err != nil {
		return nil, err
	}

	return &Ed25519Key{priv: priv, account: account}, nil
}

func GenerateEd25519Key() (*Ed25519Key, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}

	return NewEd25519KeyFromSeed(seed)
}

func (k *Ed25519Key) Sign(payload []byte) (types.MultiSignature, error) {
	return types.NewMultiSignature(types.SignatureEd25519, ed25519.Sign(k.priv, payload))
}

func (k *Ed25519Key) AccountID() types.AccountID {
	return k.account
}

func (k *Ed25519Key) Address() types.MultiAddress {
	return types.NewMultiAddressFromAccountID(k.account)
}

// Verify checks a signature produced by this key
func (k *Ed25519Key) Verify(payload []byte, sig types.MultiSignature) bool {
	if sig.Kind != types.SignatureEd25519 {
		return false
	}

	return ed25519.Verify(k.account[:], payload, sig.Sig)
}

func (k *Ed25519Key) String() string {
	return k.account.String()
}
