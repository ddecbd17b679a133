package crypto

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
)

// Hasher is a storage key hasher, numbered as in the runtime metadata
type Hasher byte

const (
	Blake2_128 Hasher = iota
	Blake2_256
	Blake2_128Concat
	Twox128
	Twox256
	Twox64Concat
	Identity
)

var hasherNames = map[Hasher]string{
	Blake2_128:       "Blake2_128",
	Blake2_256:       "Blake2_256",
	Blake2_128Concat: "Blake2_128Concat",
	Twox128:          "Twox128",
	Twox256:          "Twox256",
	Twox64Concat:     "Twox64Concat",
	Identity:         "Identity",
}

func (h Hasher) String() string {
	if name, ok := hasherNames[h]; ok {
		return name
	}

	return fmt.Sprintf("Hasher(%d)", byte(h))
}

func (h Hasher) Valid() bool {
	return h <= Identity
}

// Hash applies the hasher to an encoded key
func (h Hasher) Hash(data []byte) []byte {
	switch h {
	case Blake2_128:
		return Blake2b128(data)
	case Blake2_256:
		sum := blake2b.Sum256(data)

		return sum[:]
	case Blake2_128Concat:
		return append(Blake2b128(data), data...)
	case Twox128:
		return Twox(data, 2)
	case Twox256:
		return Twox(data, 4)
	case Twox64Concat:
		return append(Twox(data, 1), data...)
	default:
		out := make([]byte, len(data))
		copy(out, data)

		return out
	}
}

// HashedLen returns how many bytes of a hashed key precede the original key,
// and whether the original key follows at all
func (h Hasher) HashedLen() (int, bool) {
	switch h {
	case Blake2_128:
		return 16, false
	case Blake2_256, Twox256:
		return 32, false
	case Blake2_128Concat, Twox128:
		return 16, h == Blake2_128Concat
	case Twox64Concat:
		return 8, true
	default:
		return 0, true
	}
}

func Blake2b128(data []byte) []byte {
	h, _ := blake2b.New(16, nil)
	h.Write(data)

	return h.Sum(nil)
}

func Blake2b256(data []byte) []byte {
	sum := blake2b.Sum256(data)

	return sum[:]
}

// Twox concatenates rounds little endian xxhash64 digests seeded 0..rounds-1
func Twox(data []byte, rounds int) []byte {
	out := make([]byte, 0, 8*rounds)

	for seed := 0; seed < rounds; seed++ {
		d := xxhash.NewWithSeed(uint64(seed))
		d.Write(data)

		out = binary.LittleEndian.AppendUint64(out, d.Sum64())
	}

	return out
}

func Twox128Hash(data []byte) []byte {
	return Twox(data, 2)
}
