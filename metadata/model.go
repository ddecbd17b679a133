package metadata

import (
	"errors"
	"fmt"

	"github.com/0xPolygon/substrate-client/crypto"
	"github.com/0xPolygon/substrate-client/scale"
)

const (
	// "meta" little endian
	MagicNumber uint32 = 0x6174656d
	// V14 is the only layout decoded
	V14 uint8 = 14
)

var (
	ErrBadMagic           = errors.New("metadata magic number mismatch")
	ErrUnsupportedVersion = errors.New("unsupported metadata version")
)

// Metadata is the runtime's self description
type Metadata struct {
	Types     []PortableType
	Pallets   []Pallet
	Extrinsic ExtrinsicMetadata
	Runtime   uint32 `scale:"compact"`
}

// Prefixed wraps metadata with the magic number and version byte the node returns
type Prefixed struct {
	Magic    uint32
	Version  uint8
	Metadata Metadata
}

// DecodePrefixed parses the bytes returned by state_getMetadata
func DecodePrefixed(data []byte) (*Metadata, error) {
	d := scale.NewDecoder(data)

	magic, err := d.DecodeUint32()
	if err != nil {
		return nil, err
	}

	if magic != MagicNumber {
		return nil, fmt.Errorf("%w: 0x%08x", ErrBadMagic, magic)
	}

	version, err := d.DecodeUint8()
	if err != nil {
		return nil, err
	}

	if version != V14 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	md := new(Metadata)
	if err := scale.Unmarshal(d.Remaining(), md); err != nil {
		return nil, fmt.Errorf("decode metadata v%d: %w", version, err)
	}

	return md, nil
}

// EncodePrefixed is the inverse of DecodePrefixed
func EncodePrefixed(md *Metadata) ([]byte, error) {
	return scale.Marshal(Prefixed{Magic: MagicNumber, Version: V14, Metadata: *md})
}

type PortableType struct {
	ID   uint32 `scale:"compact"`
	Type Type
}

type Type struct {
	Path   []string
	Params []TypeParameter
	Def    TypeDef
	Docs   []string
}

// Name returns the last path segment, empty for anonymous types
func (t *Type) Name() string {
	if len(t.Path) == 0 {
		return ""
	}

	return t.Path[len(t.Path)-1]
}

type TypeParameter struct {
	Name string
	Type *Compact32
}

// Compact32 is a compact encoded u32, used for type references inside options
type Compact32 struct {
	Value uint32 `scale:"compact"`
}

type Field struct {
	Name     *string
	Type     uint32 `scale:"compact"`
	TypeName *string
	Docs     []string
}

// FieldName returns the name of a named field or an empty string
func (f Field) FieldName() string {
	if f.Name == nil {
		return ""
	}

	return *f.Name
}

type Variant struct {
	Name   string
	Fields []Field
	Index  uint8
	Docs   []string
}

type DefKind byte

const (
	DefComposite DefKind = iota
	DefVariant
	DefSequence
	DefArray
	DefTuple
	DefPrimitive
	DefCompact
	DefBitSequence
)

type Primitive byte

const (
	PrimBool Primitive = iota
	PrimChar
	PrimStr
	PrimU8
	PrimU16
	PrimU32
	PrimU64
	PrimU128
	PrimU256
	PrimI8
	PrimI16
	PrimI32
	PrimI64
	PrimI128
	PrimI256
)

// byteSize is the encoded width of fixed size numeric primitives
func (p Primitive) byteSize() int {
	switch p {
	case PrimU8, PrimI8:
		return 1
	case PrimU16, PrimI16:
		return 2
	case PrimU32, PrimI32, PrimChar:
		return 4
	case PrimU64, PrimI64:
		return 8
	case PrimU128, PrimI128:
		return 16
	case PrimU256, PrimI256:
		return 32
	default:
		return 0
	}
}

func (p Primitive) signed() bool {
	return p >= PrimI8
}

// TypeDef is the shape of a type. Only the fields matching Kind are set.
type TypeDef struct {
	Kind      DefKind
	Fields    []Field   // composite
	Variants  []Variant // variant
	Elem      uint32    // sequence, array, compact
	Len       uint32    // array
	Tuple     []uint32  // tuple
	Primitive Primitive
	BitStore  uint32
	BitOrder  uint32
}

func (t TypeDef) EncodeScale(e *scale.Encoder) error {
	e.PushByte(byte(t.Kind))

	switch t.Kind {
	case DefComposite:
		return e.Encode(t.Fields)
	case DefVariant:
		return e.Encode(t.Variants)
	case DefSequence, DefCompact:
		e.EncodeCompact(uint64(t.Elem))
	case DefArray:
		e.EncodeUint32(t.Len)
		e.EncodeCompact(uint64(t.Elem))
	case DefTuple:
		e.EncodeCompact(uint64(len(t.Tuple)))

		for _, id := range t.Tuple {
			e.EncodeCompact(uint64(id))
		}
	case DefPrimitive:
		e.PushByte(byte(t.Primitive))
	case DefBitSequence:
		e.EncodeCompact(uint64(t.BitStore))
		e.EncodeCompact(uint64(t.BitOrder))
	default:
		return fmt.Errorf("unknown type def kind %d", t.Kind)
	}

	return nil
}

func (t *TypeDef) DecodeScale(d *scale.Decoder) error {
	kind, err := d.ReadByte()
	if err != nil {
		return err
	}

	*t = TypeDef{Kind: DefKind(kind)}

	switch t.Kind {
	case DefComposite:
		return d.Decode(&t.Fields)
	case DefVariant:
		return d.Decode(&t.Variants)
	case DefSequence, DefCompact:
		t.Elem, err = decodeTypeID(d)

		return err
	case DefArray:
		if t.Len, err = d.DecodeUint32(); err != nil {
			return err
		}

		t.Elem, err = decodeTypeID(d)

		return err
	case DefTuple:
		n, err := d.DecodeLength()
		if err != nil {
			return err
		}

		t.Tuple = make([]uint32, n)
		for i := range t.Tuple {
			if t.Tuple[i], err = decodeTypeID(d); err != nil {
				return err
			}
		}

		return nil
	case DefPrimitive:
		p, err := d.ReadByte()
		if err != nil {
			return err
		}

		if Primitive(p) > PrimI256 {
			return scale.UnknownVariant("Primitive", p)
		}

		t.Primitive = Primitive(p)

		return nil
	case DefBitSequence:
		if t.BitStore, err = decodeTypeID(d); err != nil {
			return err
		}

		t.BitOrder, err = decodeTypeID(d)

		return err
	default:
		return scale.UnknownVariant("TypeDef", kind)
	}
}

func decodeTypeID(d *scale.Decoder) (uint32, error) {
	n, err := d.DecodeCompact()
	if err != nil {
		return 0, err
	}

	if n > 1<<32-1 {
		return 0, scale.ErrOverflow
	}

	return uint32(n), nil
}

type Pallet struct {
	Name      string
	Storage   *PalletStorage
	Calls     *TypeRef
	Event     *TypeRef
	Constants []Constant
	Error     *TypeRef
	Index     uint8
}

// TypeRef points at a type in the registry
type TypeRef struct {
	Type uint32 `scale:"compact"`
}

type Constant struct {
	Name  string
	Type  uint32 `scale:"compact"`
	Value []byte
	Docs  []string
}

type PalletStorage struct {
	Prefix  string
	Entries []StorageEntry
}

type StorageModifier byte

const (
	ModifierOptional StorageModifier = iota
	ModifierDefault
)

type StorageEntry struct {
	Name     string
	Modifier StorageModifier
	Type     StorageEntryType
	Default  []byte
	Docs     []string
}

// StorageEntryType is either a plain value or a map keyed by hashed keys
type StorageEntryType struct {
	IsMap   bool
	Hashers []crypto.Hasher
	Key     uint32
	Value   uint32
}

func (s StorageEntryType) EncodeScale(e *scale.Encoder) error {
	if !s.IsMap {
		e.PushByte(0)
		e.EncodeCompact(uint64(s.Value))

		return nil
	}

	e.PushByte(1)
	e.EncodeCompact(uint64(len(s.Hashers)))

	for _, h := range s.Hashers {
		e.PushByte(byte(h))
	}

	e.EncodeCompact(uint64(s.Key))
	e.EncodeCompact(uint64(s.Value))

	return nil
}

func (s *StorageEntryType) DecodeScale(d *scale.Decoder) error {
	kind, err := d.ReadByte()
	if err != nil {
		return err
	}

	*s = StorageEntryType{}

	switch kind {
	case 0:
		s.Value, err = decodeTypeID(d)

		return err
	case 1:
		s.IsMap = true

		raw, err := d.DecodeBytes()
		if err != nil {
			return err
		}

		s.Hashers = make([]crypto.Hasher, len(raw))
		for i, b := range raw {
			if !crypto.Hasher(b).Valid() {
				return scale.UnknownVariant("StorageHasher", b)
			}

			s.Hashers[i] = crypto.Hasher(b)
		}

		if s.Key, err = decodeTypeID(d); err != nil {
			return err
		}

		s.Value, err = decodeTypeID(d)

		return err
	default:
		return scale.UnknownVariant("StorageEntryType", kind)
	}
}

type ExtrinsicMetadata struct {
	Type             uint32 `scale:"compact"`
	Version          uint8
	SignedExtensions []SignedExtension
}

type SignedExtension struct {
	Identifier       string
	Type             uint32 `scale:"compact"`
	AdditionalSigned uint32 `scale:"compact"`
}
