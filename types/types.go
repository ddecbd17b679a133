package types

import (
	"fmt"
	"strings"

	"github.com/0xPolygon/substrate-client/helper/hex"
)

const (
	HashLength      = 32
	AccountIDLength = 32
)

var ZeroHash = Hash{}

// Hash is a 32 byte block, extrinsic or storage hash
type Hash [HashLength]byte

func BytesToHash(b []byte) Hash {
	var h Hash

	size := len(b)
	if size > HashLength {
		size = HashLength
	}

	copy(h[HashLength-size:], b[len(b)-size:])

	return h
}

// StringToHash parses a 0x prefixed hash, returning the zero hash on malformed input
func StringToHash(str string) Hash {
	var h Hash

	_ = h.UnmarshalText([]byte(str))

	return h
}

func (h Hash) Bytes() []byte {
	return h[:]
}

func (h Hash) String() string {
	return hex.EncodeToHex(h[:])
}

func (h Hash) IsZero() bool {
	return h == ZeroHash
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText parses a hash in hex syntax. Exactly 32 bytes are required.
func (h *Hash) UnmarshalText(input []byte) error {
	buf, err := hex.DecodeHexStrict(string(input))
	if err != nil {
		return err
	}

	if len(buf) != HashLength {
		return fmt.Errorf("incorrect hash length %d", len(buf))
	}

	copy(h[:], buf)

	return nil
}

// HexBytes is a byte slice that travels over JSON-RPC as a 0x prefixed string
type HexBytes []byte

func (h HexBytes) String() string {
	return hex.EncodeToHex(h)
}

func (h HexBytes) Bytes() []byte {
	return h[:]
}

func (h HexBytes) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *HexBytes) UnmarshalText(input []byte) error {
	buf, err := hex.DecodeHexStrict(strings.TrimSpace(string(input)))
	if err != nil {
		return err
	}

	*h = buf

	return nil
}
