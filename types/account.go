package types

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/0xPolygon/substrate-client/helper/hex"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// DefaultSS58Prefix is the generic Substrate network prefix
const DefaultSS58Prefix uint16 = 42

var (
	ErrInvalidSS58       = errors.New("invalid ss58 address")
	ErrSS58Checksum      = errors.New("ss58 checksum mismatch")
	ErrUnsupportedPrefix = errors.New("unsupported ss58 prefix")
)

var ss58Pre = []byte("SS58PRE")

const ss58ChecksumLength = 2

// AccountID is the 32 byte public key identifying an account
type AccountID [AccountIDLength]byte

func NewAccountID(b []byte) (AccountID, error) {
	var a AccountID

	if len(b) != AccountIDLength {
		return a, fmt.Errorf("account id must be %d bytes, got %d", AccountIDLength, len(b))
	}

	copy(a[:], b)

	return a, nil
}

func (a AccountID) Bytes() []byte {
	return a[:]
}

func (a AccountID) Hex() string {
	return hex.EncodeToHex(a[:])
}

// String returns the address in SS58 form for the default network
func (a AccountID) String() string {
	addr, _ := a.SS58(DefaultSS58Prefix)

	return addr
}

func (a AccountID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText accepts either an SS58 address or a 0x prefixed public key
func (a *AccountID) UnmarshalText(input []byte) error {
	if hex.Has0xPrefix(string(input)) {
		buf, err := hex.DecodeHexStrict(string(input))
		if err != nil {
			return err
		}

		id, err := NewAccountID(buf)
		if err != nil {
			return err
		}

		*a = id

		return nil
	}

	id, _, err := DecodeSS58(string(input))
	if err != nil {
		return err
	}

	*a = id

	return nil
}

// SS58 encodes the account for the given network prefix
func (a AccountID) SS58(prefix uint16) (string, error) {
	prefixBytes, err := ss58PrefixBytes(prefix)
	if err != nil {
		return "", err
	}

	body := make([]byte, 0, len(prefixBytes)+AccountIDLength+ss58ChecksumLength)
	body = append(body, prefixBytes...)
	body = append(body, a[:]...)
	body = append(body, ss58Checksum(body)[:ss58ChecksumLength]...)

	return base58.Encode(body), nil
}

// DecodeSS58 parses an SS58 address, returning the account and its network prefix
func DecodeSS58(addr string) (AccountID, uint16, error) {
	var id AccountID

	raw, err := base58.Decode(addr)
	if err != nil {
		return id, 0, fmt.Errorf("%w: %v", ErrInvalidSS58, err)
	}

	if len(raw) == 0 {
		return id, 0, ErrInvalidSS58
	}

	var (
		prefix    uint16
		prefixLen int
	)

	switch {
	case raw[0] < 64:
		prefix, prefixLen = uint16(raw[0]), 1
	case raw[0] < 128:
		if len(raw) < 2 {
			return id, 0, ErrInvalidSS58
		}

		lower := (raw[0] << 2) | (raw[1] >> 6)
		upper := raw[1] & 0b0011_1111
		prefix, prefixLen = uint16(lower)|uint16(upper)<<8, 2
	default:
		return id, 0, fmt.Errorf("%w: first byte %d", ErrUnsupportedPrefix, raw[0])
	}

	if len(raw) != prefixLen+AccountIDLength+ss58ChecksumLength {
		return id, 0, fmt.Errorf("%w: length %d", ErrInvalidSS58, len(raw))
	}

	body := raw[:prefixLen+AccountIDLength]
	if !bytes.Equal(ss58Checksum(body)[:ss58ChecksumLength], raw[len(body):]) {
		return id, 0, ErrSS58Checksum
	}

	copy(id[:], body[prefixLen:])

	return id, prefix, nil
}

func ss58PrefixBytes(prefix uint16) ([]byte, error) {
	switch {
	case prefix < 64:
		return []byte{byte(prefix)}, nil
	case prefix < 16384:
		first := byte((prefix&0b0000_0000_1111_1100)>>2) | 0b0100_0000
		second := byte(prefix>>8) | byte(prefix&0b0000_0000_0000_0011)<<6

		return []byte{first, second}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedPrefix, prefix)
	}
}

func ss58Checksum(body []byte) []byte {
	h, _ := blake2b.New512(nil)
	h.Write(ss58Pre)
	h.Write(body)

	return h.Sum(nil)
}
