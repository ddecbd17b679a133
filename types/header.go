package types

import (
	"github.com/0xPolygon/substrate-client/helper/hex"
	"golang.org/x/crypto/blake2b"
)

// BlockNumber is a block height that marshals as a 0x prefixed hex quantity
type BlockNumber uint64

func (b BlockNumber) String() string {
	return hex.EncodeUint64(uint64(b))
}

func (b BlockNumber) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *BlockNumber) UnmarshalText(input []byte) error {
	n, err := hex.DecodeUint64(string(input))
	if err != nil {
		return err
	}

	*b = BlockNumber(n)

	return nil
}

type Digest struct {
	Logs []HexBytes `json:"logs"`
}

// Header is a block header as returned by chain_getHeader
type Header struct {
	ParentHash     Hash        `json:"parentHash"`
	Number         BlockNumber `json:"number"`
	StateRoot      Hash        `json:"stateRoot"`
	ExtrinsicsRoot Hash        `json:"extrinsicsRoot"`
	Digest         Digest      `json:"digest"`
}

// Block is a block body as returned by chain_getBlock
type Block struct {
	Header     Header     `json:"header"`
	Extrinsics []HexBytes `json:"extrinsics"`
}

type SignedBlock struct {
	Block Block `json:"block"`
}

// BlockRef identifies a block by hash and height
type BlockRef struct {
	Hash   Hash
	Number uint64
}

func (b BlockRef) String() string {
	return b.Hash.String()
}

// ExtrinsicHash returns the blake2b-256 hash of an encoded extrinsic,
// which is the identifier the node reports for it
func ExtrinsicHash(encoded []byte) Hash {
	return Hash(blake2b.Sum256(encoded))
}
