package hex

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

var (
	ErrMissingPrefix = errors.New("hex string without 0x prefix")
	ErrOddLength     = errors.New("hex string of odd length")
	ErrEmptyNumber   = errors.New("hex string \"0x\"")
	ErrSyntax        = errors.New("invalid hex string")
)

// EncodeToHex generates a hex string based on the byte representation, with the '0x' prefix
func EncodeToHex(str []byte) string {
	return "0x" + hex.EncodeToString(str)
}

// EncodeToString is a wrapper method for hex.EncodeToString
func EncodeToString(str []byte) string {
	return hex.EncodeToString(str)
}

// DecodeString returns the byte representation of the hexadecimal string
func DecodeString(str string) ([]byte, error) {
	return hex.DecodeString(str)
}

// DecodeHex converts a hex string to a byte array. The 0x prefix is optional.
func DecodeHex(str string) ([]byte, error) {
	str = strings.TrimPrefix(str, "0x")

	return hex.DecodeString(str)
}

// DecodeHexStrict is DecodeHex for node supplied values, which always carry the prefix
func DecodeHexStrict(str string) ([]byte, error) {
	if !Has0xPrefix(str) {
		return nil, ErrMissingPrefix
	}

	str = str[2:]
	if len(str)%2 != 0 {
		return nil, ErrOddLength
	}

	buf, err := hex.DecodeString(str)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}

	return buf, nil
}

// MustDecodeHex type-checks and converts a hex string to a byte array
func MustDecodeHex(str string) []byte {
	buf, err := DecodeHex(str)
	if err != nil {
		panic(fmt.Errorf("could not decode hex: %w", err))
	}

	return buf
}

func Has0xPrefix(str string) bool {
	return len(str) >= 2 && str[0] == '0' && (str[1] == 'x' || str[1] == 'X')
}

// EncodeUint64 encodes a number as a hex string with 0x prefix.
func EncodeUint64(i uint64) string {
	enc := make([]byte, 2, 10)
	copy(enc, "0x")

	return string(strconv.AppendUint(enc, i, 16))
}

// DecodeUint64 decodes a hex string with 0x prefix to uint64
func DecodeUint64(hexStr string) (uint64, error) {
	// remove 0x suffix if found in the input string
	cleaned := strings.TrimPrefix(hexStr, "0x")
	if cleaned == "" {
		return 0, ErrEmptyNumber
	}

	return strconv.ParseUint(cleaned, 16, 64)
}

// DecodeHexToBig converts a hex number, with or without the 0x prefix, to a big.Int value
func DecodeHexToBig(hexNum string) (*big.Int, error) {
	cleaned := strings.TrimPrefix(hexNum, "0x")
	if cleaned == "" {
		return nil, ErrEmptyNumber
	}

	n, ok := new(big.Int).SetString(cleaned, 16)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSyntax, hexNum)
	}

	return n, nil
}
