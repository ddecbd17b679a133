package types

import (
	"fmt"

	"github.com/0xPolygon/substrate-client/scale"
)

type MultiAddressKind byte

const (
	MultiAddressID MultiAddressKind = iota
	MultiAddressIndex
	MultiAddressRaw
	MultiAddress32
	MultiAddress20
)

// MultiAddress is the runtime address format used as the extrinsic signer
type MultiAddress struct {
	Kind      MultiAddressKind
	ID        AccountID
	Index     uint32
	Raw       []byte
	Address32 [32]byte
	Address20 [20]byte
}

func NewMultiAddressFromAccountID(id AccountID) MultiAddress {
	return MultiAddress{Kind: MultiAddressID, ID: id}
}

func (m MultiAddress) EncodeScale(e *scale.Encoder) error {
	if m.Kind > MultiAddress20 {
		return fmt.Errorf("unknown multi address kind %d", m.Kind)
	}

	e.PushByte(byte(m.Kind))

	switch m.Kind {
	case MultiAddressID:
		e.Write(m.ID[:])
	case MultiAddressIndex:
		e.EncodeCompact(uint64(m.Index))
	case MultiAddressRaw:
		e.EncodeBytes(m.Raw)
	case MultiAddress32:
		e.Write(m.Address32[:])
	case MultiAddress20:
		e.Write(m.Address20[:])
	default:
		return fmt.Errorf("unknown multi address kind %d", m.Kind)
	}

	return nil
}

func (m *MultiAddress) DecodeScale(d *scale.Decoder) error {
	kind, err := d.ReadByte()
	if err != nil {
		return err
	}

	*m = MultiAddress{Kind: MultiAddressKind(kind)}

	switch m.Kind {
	case MultiAddressID:
		return d.ReadInto(m.ID[:])
	case MultiAddressIndex:
		idx, err := d.DecodeCompact()
		if err != nil {
			return err
		}

		if idx > 1<<32-1 {
			return scale.ErrOverflow
		}

		m.Index = uint32(idx)

		return nil
	case MultiAddressRaw:
		m.Raw, err = d.DecodeBytes()

		return err
	case MultiAddress32:
		return d.ReadInto(m.Address32[:])
	case MultiAddress20:
		return d.ReadInto(m.Address20[:])
	default:
		return scale.UnknownVariant("MultiAddress", kind)
	}
}

func (m MultiAddress) String() string {
	switch m.Kind {
	case MultiAddressID:
		return m.ID.String()
	case MultiAddressIndex:
		return fmt.Sprintf("index(%d)", m.Index)
	case MultiAddressRaw:
		return HexBytes(m.Raw).String()
	case MultiAddress32:
		return HexBytes(m.Address32[:]).String()
	default:
		return HexBytes(m.Address20[:]).String()
	}
}
