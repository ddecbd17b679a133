package tests

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/substrate-client/crypto"
)

// AliceSeed is the well known dev account secret
var AliceSeed = bytes.Repeat([]byte{1}, 32)

// GenerateECDSAKey returns a fresh secp256k1 signer
func GenerateECDSAKey(t *testing.T) *crypto.ECDSAKey {
	t.Helper()

	key, err := crypto.GenerateECDSAKey()
	require.NoError(t, err)

	return key
}

// GenerateEd25519Key returns a fresh ed25519 signer
func GenerateEd25519Key(t *testing.T) *crypto.Ed25519Key {
	t.Helper()

	key, err := crypto.GenerateEd25519Key()
	require.NoError(t, err)

	return key
}
