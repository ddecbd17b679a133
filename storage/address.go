package storage

import (
	"errors"
	"fmt"

	"github.com/0xPolygon/substrate-client/crypto"
	"github.com/0xPolygon/substrate-client/metadata"
)

var (
	ErrTooManyKeys = errors.New("more keys than the storage entry has hashers")
	ErrKeyMismatch = errors.New("storage key does not match the entry")
)

// Address names a storage entry and, for maps, a prefix of its keys. With no
// keys it addresses the whole entry.
type Address struct {
	Pallet string
	Entry  string
	Keys   []metadata.Value
}

func NewAddress(pallet, entry string, keys ...metadata.Value) *Address {
	return &Address{Pallet: pallet, Entry: entry, Keys: keys}
}

func (a *Address) String() string {
	return fmt.Sprintf("%s.%s", a.Pallet, a.Entry)
}

// RootBytes is twox128(pallet) ‖ twox128(entry), the prefix shared by every
// key of the entry
func (a *Address) RootBytes() []byte {
	return rootBytes(a.Pallet, a.Entry)
}

func rootBytes(prefix, entry string) []byte {
	out := make([]byte, 0, 32)
	out = append(out, crypto.Twox128Hash([]byte(prefix))...)

	return append(out, crypto.Twox128Hash([]byte(entry))...)
}

// keyTypes returns the type of each hashed key component of a map entry
func keyTypes(reg *metadata.Registry, entry *metadata.StorageEntry) ([]uint32, error) {
	hashers := entry.Type.Hashers
	if len(hashers) <= 1 {
		return []uint32{entry.Type.Key}, nil
	}

	t, ok := reg.Type(entry.Type.Key)
	if !ok {
		return nil, fmt.Errorf("%w: %d", metadata.ErrUnknownType, entry.Type.Key)
	}

	if t.Def.Kind != metadata.DefTuple || len(t.Def.Tuple) != len(hashers) {
		return nil, fmt.Errorf("%w: %d hashers for key type %d", ErrKeyMismatch, len(hashers), entry.Type.Key)
	}

	return t.Def.Tuple, nil
}

// Bytes is the storage key of the address: the root followed by each key,
// SCALE encoded as the entry's key type and hashed with its hasher
func (a *Address) Bytes(reg *metadata.Registry) ([]byte, error) {
	desc, err := reg.StorageEntry(a.Pallet, a.Entry)
	if err != nil {
		return nil, err
	}

	key := rootBytes(desc.Prefix, desc.Entry.Name)

	if len(a.Keys) == 0 {
		return key, nil
	}

	if !desc.Entry.Type.IsMap || len(a.Keys) > len(desc.Entry.Type.Hashers) {
		return nil, fmt.Errorf("%w: %s has %d", ErrTooManyKeys, a, len(desc.Entry.Type.Hashers))
	}

	types, err := keyTypes(reg, desc.Entry)
	if err != nil {
		return nil, err
	}

	for i, k := range a.Keys {
		encoded, err := reg.EncodeAs(types[i], k)
		if err != nil {
			return nil, fmt.Errorf("encode key %d of %s: %w", i, a, err)
		}

		key = append(key, desc.Entry.Type.Hashers[i].Hash(encoded)...)
	}

	return key, nil
}

// decodeKeys recovers the key values of a full storage key. Components behind
// non concat hashers cannot be recovered and are left out.
func decodeKeys(reg *metadata.Registry, entry *metadata.StorageEntry, key []byte) ([]metadata.Value, error) {
	if !entry.Type.IsMap {
		return nil, nil
	}

	if len(key) < 32 {
		return nil, fmt.Errorf("%w: key shorter than its root", ErrKeyMismatch)
	}

	types, err := keyTypes(reg, entry)
	if err != nil {
		return nil, err
	}

	rest := key[32:]

	var out []metadata.Value

	for i, h := range entry.Type.Hashers {
		skip, concat := h.HashedLen()
		if len(rest) < skip {
			return nil, fmt.Errorf("%w: truncated %s component %d", ErrKeyMismatch, h, i)
		}

		rest = rest[skip:]

		if !concat {
			// nothing after an opaque hash can be located
			return out, nil
		}

		v, remaining, err := reg.DecodeAs(types[i], rest)
		if err != nil {
			return nil, fmt.Errorf("decode key component %d: %w", i, err)
		}

		out = append(out, v)
		rest = remaining
	}

	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrKeyMismatch, len(rest))
	}

	return out, nil
}
