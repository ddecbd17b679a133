package metadata

import (
	"errors"
	"fmt"
	"strings"

	iradix "github.com/hashicorp/go-immutable-radix"

	"github.com/0xPolygon/substrate-client/crypto"
)

var (
	ErrUnknownType    = errors.New("unknown type id")
	ErrUnknownPallet  = errors.New("unknown pallet")
	ErrUnknownCall    = errors.New("unknown call")
	ErrUnknownStorage = errors.New("unknown storage entry")
	ErrDuplicateType  = errors.New("duplicate type id")
	ErrNotVariant     = errors.New("type is not a variant")
)

// ErrorDescriptor is a pallet error variant resolved from its indices
type ErrorDescriptor struct {
	PalletName  string
	PalletIndex uint8
	ErrorName   string
	ErrorIndex  uint8
	Fields      []Field
	Docs        []string
}

func (e *ErrorDescriptor) String() string {
	return e.PalletName + "." + e.ErrorName
}

// CallDescriptor locates a dispatchable call
type CallDescriptor struct {
	PalletName  string
	PalletIndex uint8
	CallName    string
	CallIndex   uint8
	Fields      []Field
}

// StorageDescriptor locates a storage entry and its pallet prefix
type StorageDescriptor struct {
	PalletName string
	Prefix     string
	Entry      *StorageEntry
}

// Registry indexes one metadata snapshot. It is never mutated after NewRegistry
// returns, so it can be shared between goroutines without locking.
type Registry struct {
	md      *Metadata
	types   map[uint32]*Type
	pallets map[uint8]*Pallet
	names   *iradix.Tree
	paths   map[string]uint32
	empty   map[uint32]bool
}

func NewRegistry(md *Metadata) (*Registry, error) {
	r := &Registry{
		md:      md,
		types:   make(map[uint32]*Type, len(md.Types)),
		pallets: make(map[uint8]*Pallet, len(md.Pallets)),
		paths:   make(map[string]uint32),
		empty:   make(map[uint32]bool, len(md.Types)),
	}

	for i := range md.Types {
		pt := &md.Types[i]
		if _, ok := r.types[pt.ID]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateType, pt.ID)
		}

		r.types[pt.ID] = &pt.Type

		if len(pt.Type.Path) > 0 {
			key := strings.Join(pt.Type.Path, "::")
			if _, ok := r.paths[key]; !ok {
				r.paths[key] = pt.ID
			}
		}
	}

	txn := iradix.New().Txn()

	for i := range md.Pallets {
		p := &md.Pallets[i]
		r.pallets[p.Index] = p
		txn.Insert([]byte(p.Name), p)
	}

	r.names = txn.Commit()

	for id := range r.types {
		r.isEmpty(id, map[uint32]bool{})
	}

	return r, nil
}

func (r *Registry) Metadata() *Metadata {
	return r.md
}

func (r *Registry) Type(id uint32) (*Type, bool) {
	t, ok := r.types[id]

	return t, ok
}

func (r *Registry) mustType(id uint32) (*Type, error) {
	t, ok := r.types[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, id)
	}

	return t, nil
}

// TypeByPath finds a type by its full path, e.g. "sp_runtime", "DispatchError"
func (r *Registry) TypeByPath(path ...string) (uint32, bool) {
	id, ok := r.paths[strings.Join(path, "::")]

	return id, ok
}

func (r *Registry) PalletByName(name string) (*Pallet, bool) {
	v, ok := r.names.Get([]byte(name))
	if !ok {
		return nil, false
	}

	p, _ := v.(*Pallet)

	return p, true
}

func (r *Registry) PalletByIndex(index uint8) (*Pallet, bool) {
	p, ok := r.pallets[index]

	return p, ok
}

// PalletsWithPrefix returns the pallets whose name starts with prefix, in name order
func (r *Registry) PalletsWithPrefix(prefix string) []*Pallet {
	var out []*Pallet

	r.names.Root().WalkPrefix([]byte(prefix), func(_ []byte, v interface{}) bool {
		if p, ok := v.(*Pallet); ok {
			out = append(out, p)
		}

		return false
	})

	return out
}

func (r *Registry) SignedExtensions() []SignedExtension {
	return r.md.Extrinsic.SignedExtensions
}

// ResolveError maps a module error to its pallet variant. Unknown pallets or
// indices report false.
func (r *Registry) ResolveError(palletIndex, errorIndex uint8) (*ErrorDescriptor, bool) {
	p, ok := r.pallets[palletIndex]
	if !ok || p.Error == nil {
		return nil, false
	}

	v, ok := r.variantByIndex(p.Error.Type, errorIndex)
	if !ok {
		return nil, false
	}

	return &ErrorDescriptor{
		PalletName:  p.Name,
		PalletIndex: p.Index,
		ErrorName:   v.Name,
		ErrorIndex:  v.Index,
		Fields:      v.Fields,
		Docs:        v.Docs,
	}, true
}

// ResolveCall finds a call by pallet and call name
func (r *Registry) ResolveCall(pallet, call string) (*CallDescriptor, error) {
	p, ok := r.PalletByName(pallet)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPallet, pallet)
	}

	if p.Calls == nil {
		return nil, fmt.Errorf("%w: pallet %s has no calls", ErrUnknownCall, pallet)
	}

	v, ok := r.variantByName(p.Calls.Type, call)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownCall, pallet, call)
	}

	return &CallDescriptor{
		PalletName:  p.Name,
		PalletIndex: p.Index,
		CallName:    v.Name,
		CallIndex:   v.Index,
		Fields:      v.Fields,
	}, nil
}

func (r *Registry) StorageEntry(pallet, entry string) (*StorageDescriptor, error) {
	p, ok := r.PalletByName(pallet)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPallet, pallet)
	}

	if p.Storage != nil {
		for i := range p.Storage.Entries {
			if p.Storage.Entries[i].Name == entry {
				return &StorageDescriptor{
					PalletName: p.Name,
					Prefix:     p.Storage.Prefix,
					Entry:      &p.Storage.Entries[i],
				}, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %s.%s", ErrUnknownStorage, pallet, entry)
}

// Constant returns the decoded value of a pallet constant
func (r *Registry) Constant(pallet, name string) (Value, error) {
	p, ok := r.PalletByName(pallet)
	if !ok {
		return Value{}, fmt.Errorf("%w: %s", ErrUnknownPallet, pallet)
	}

	for _, c := range p.Constants {
		if c.Name == name {
			v, _, err := r.DecodeAs(c.Type, c.Value)

			return v, err
		}
	}

	return Value{}, fmt.Errorf("unknown constant %s.%s", pallet, name)
}

// Variants returns the variants of a variant type
func (r *Registry) Variants(id uint32) ([]Variant, error) {
	t, err := r.mustType(id)
	if err != nil {
		return nil, err
	}

	if t.Def.Kind != DefVariant {
		return nil, fmt.Errorf("%w: %d", ErrNotVariant, id)
	}

	return t.Def.Variants, nil
}

func (r *Registry) variantByIndex(id uint32, index uint8) (*Variant, bool) {
	t, ok := r.types[id]
	if !ok || t.Def.Kind != DefVariant {
		return nil, false
	}

	for i := range t.Def.Variants {
		if t.Def.Variants[i].Index == index {
			return &t.Def.Variants[i], true
		}
	}

	return nil, false
}

func (r *Registry) variantByName(id uint32, name string) (*Variant, bool) {
	t, ok := r.types[id]
	if !ok || t.Def.Kind != DefVariant {
		return nil, false
	}

	for i := range t.Def.Variants {
		if t.Def.Variants[i].Name == name {
			return &t.Def.Variants[i], true
		}
	}

	return nil, false
}

// IsEmptyType reports whether values of the type encode to zero bytes
func (r *Registry) IsEmptyType(id uint32) bool {
	return r.empty[id]
}

// isEmpty fills the emptiness cache. Types still being visited count as non empty,
// which keeps recursive types finite.
func (r *Registry) isEmpty(id uint32, visiting map[uint32]bool) bool {
	if empty, ok := r.empty[id]; ok {
		return empty
	}

	t, ok := r.types[id]
	if !ok || visiting[id] {
		return false
	}

	visiting[id] = true
	defer delete(visiting, id)

	var empty bool

	switch t.Def.Kind {
	case DefComposite:
		empty = true

		for _, f := range t.Def.Fields {
			if !r.isEmpty(f.Type, visiting) {
				empty = false

				break
			}
		}
	case DefTuple:
		empty = true

		for _, elem := range t.Def.Tuple {
			if !r.isEmpty(elem, visiting) {
				empty = false

				break
			}
		}
	case DefArray:
		empty = t.Def.Len == 0 || r.isEmpty(t.Def.Elem, visiting)
	}

	r.empty[id] = empty

	return empty
}

// StorageHashers returns the hashers of a map entry, one per key component
func (s *StorageDescriptor) StorageHashers() []crypto.Hasher {
	return s.Entry.Type.Hashers
}
