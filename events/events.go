package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/0xPolygon/substrate-client/backend"
	"github.com/0xPolygon/substrate-client/crypto"
	"github.com/0xPolygon/substrate-client/dispatch"
	"github.com/0xPolygon/substrate-client/metadata"
	"github.com/0xPolygon/substrate-client/types"
)

var (
	ErrExtrinsicNotInBlock = errors.New("extrinsic not found in block")
	// ErrNoOutcome is returned when neither ExtrinsicSuccess nor ExtrinsicFailed
	// was recorded for an extrinsic
	ErrNoOutcome = errors.New("no dispatch outcome recorded")
	ErrMalformed = errors.New("malformed event record")
)

type PhaseKind uint8

const (
	ApplyExtrinsic PhaseKind = iota
	Finalization
	Initialization
)

// Phase is the stage of block execution an event was emitted in
type Phase struct {
	Kind PhaseKind
	// ExtrinsicIndex is set for ApplyExtrinsic
	ExtrinsicIndex uint32
}

// Event is one decoded event record
type Event struct {
	Index        int
	Phase        Phase
	PalletName   string
	PalletIndex  uint8
	VariantName  string
	VariantIndex uint8
	// Fields holds the event's fields, named when the runtime names them
	Fields metadata.Value
	Topics []types.Hash
}

func (e *Event) Is(pallet, variant string) bool {
	return e.PalletName == pallet && e.VariantName == variant
}

// Field returns a named event field
func (e *Event) Field(name string) (metadata.Value, bool) {
	return e.Fields.Field(name)
}

func (e *Event) String() string {
	return e.PalletName + "." + e.VariantName + e.Fields.String()
}

// Events are the events a block recorded
type Events struct {
	Block   types.Hash
	Records []*Event

	registry *metadata.Registry
}

// StorageKey is the key of System.Events
func StorageKey() []byte {
	return append(crypto.Twox128Hash([]byte("System")), crypto.Twox128Hash([]byte("Events"))...)
}

// Decode decodes the value of System.Events
func Decode(reg *metadata.Registry, block types.Hash, data []byte) (*Events, error) {
	entry, err := reg.StorageEntry("System", "Events")
	if err != nil {
		return nil, err
	}

	evs := &Events{Block: block, registry: reg}

	if len(data) == 0 {
		return evs, nil
	}

	v, rest, err := reg.DecodeAs(entry.Entry.Type.Value, data)
	if err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	if len(rest) != 0 {
		return nil, fmt.Errorf("decode events: %d trailing bytes", len(rest))
	}

	evs.Records = make([]*Event, 0, len(v.Fields))

	for i, f := range v.Fields {
		ev, err := decodeRecord(f.Value)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}

		ev.Index = i
		evs.Records = append(evs.Records, ev)
	}

	return evs, nil
}

func decodeRecord(rec metadata.Value) (*Event, error) {
	phaseVal, ok := rec.Field("phase")
	if !ok || phaseVal.Kind != metadata.ValueVariant {
		return nil, fmt.Errorf("%w: phase", ErrMalformed)
	}

	ev := &Event{}

	switch phaseVal.Variant {
	case "ApplyExtrinsic":
		idx, ok := phaseVal.At(0)
		if !ok {
			return nil, fmt.Errorf("%w: phase index", ErrMalformed)
		}

		n, ok := idx.Uint64()
		if !ok {
			return nil, fmt.Errorf("%w: phase index", ErrMalformed)
		}

		ev.Phase = Phase{Kind: ApplyExtrinsic, ExtrinsicIndex: uint32(n)}
	case "Finalization":
		ev.Phase = Phase{Kind: Finalization}
	case "Initialization":
		ev.Phase = Phase{Kind: Initialization}
	default:
		return nil, fmt.Errorf("%w: phase %s", ErrMalformed, phaseVal.Variant)
	}

	outer, ok := rec.Field("event")
	if !ok || outer.Kind != metadata.ValueVariant {
		return nil, fmt.Errorf("%w: event", ErrMalformed)
	}

	inner, ok := outer.At(0)
	if !ok || inner.Kind != metadata.ValueVariant {
		return nil, fmt.Errorf("%w: %s event", ErrMalformed, outer.Variant)
	}

	ev.PalletName = outer.Variant
	ev.PalletIndex = outer.VariantIndex
	ev.VariantName = inner.Variant
	ev.VariantIndex = inner.VariantIndex
	ev.Fields = metadata.Value{Kind: metadata.ValueComposite, TypeID: inner.TypeID, Fields: inner.Fields}

	if topics, ok := rec.Field("topics"); ok {
		for _, t := range topics.Fields {
			raw, ok := t.Value.Bytes()
			if !ok || len(raw) != types.HashLength {
				return nil, fmt.Errorf("%w: topic", ErrMalformed)
			}

			ev.Topics = append(ev.Topics, types.BytesToHash(raw))
		}
	}

	return ev, nil
}

// Fetch reads and decodes the events of a block
func Fetch(ctx context.Context, b backend.Backend, reg *metadata.Registry, block types.Hash) (*Events, error) {
	key := StorageKey()

	values, err := b.StorageValues(ctx, [][]byte{key}, &block)
	if err != nil {
		return nil, err
	}

	var raw []byte
	if len(values) == 1 {
		raw = values[0].Value
	}

	return Decode(reg, block, raw)
}

// Find returns the events of the pallet and variant in emission order
func (e *Events) Find(pallet, variant string) []*Event {
	return find(e.Records, pallet, variant)
}

func (e *Events) Has(pallet, variant string) bool {
	return len(e.Find(pallet, variant)) > 0
}

// ForExtrinsic returns the events emitted while applying the extrinsic at index
func (e *Events) ForExtrinsic(index uint32, hash types.Hash) *ExtrinsicEvents {
	out := &ExtrinsicEvents{
		Block:          e.Block,
		ExtrinsicIndex: index,
		ExtrinsicHash:  hash,
		registry:       e.registry,
	}

	for _, ev := range e.Records {
		if ev.Phase.Kind == ApplyExtrinsic && ev.Phase.ExtrinsicIndex == index {
			out.Events = append(out.Events, ev)
		}
	}

	return out
}

func find(records []*Event, pallet, variant string) []*Event {
	var out []*Event

	for _, ev := range records {
		if ev.Is(pallet, variant) {
			out = append(out, ev)
		}
	}

	return out
}

// ExtrinsicEvents are the events of one extrinsic in a block
type ExtrinsicEvents struct {
	Block          types.Hash
	ExtrinsicIndex uint32
	ExtrinsicHash  types.Hash
	Events         []*Event

	registry *metadata.Registry
}

func (x *ExtrinsicEvents) Find(pallet, variant string) []*Event {
	return find(x.Events, pallet, variant)
}

// FindFirst returns the first event of the pallet and variant, or nil
func (x *ExtrinsicEvents) FindFirst(pallet, variant string) *Event {
	if found := x.Find(pallet, variant); len(found) > 0 {
		return found[0]
	}

	return nil
}

func (x *ExtrinsicEvents) Has(pallet, variant string) bool {
	return x.FindFirst(pallet, variant) != nil
}

// DispatchError returns the decoded *dispatch.Error when the extrinsic failed,
// nil when it succeeded and ErrNoOutcome when no outcome was recorded
func (x *ExtrinsicEvents) DispatchError() error {
	for _, ev := range x.Events {
		if ev.PalletName != "System" {
			continue
		}

		switch ev.VariantName {
		case "ExtrinsicSuccess":
			return nil
		case "ExtrinsicFailed":
			raw, ok := ev.Field("dispatch_error")
			if !ok {
				raw, ok = ev.Fields.At(0)
			}

			if !ok {
				return fmt.Errorf("%w: ExtrinsicFailed without dispatch error", ErrMalformed)
			}

			dispatchErr, err := dispatch.FromValue(x.registry, raw)
			if err != nil {
				return err
			}

			return dispatchErr
		}
	}

	return fmt.Errorf("%w: extrinsic %d in block %s", ErrNoOutcome, x.ExtrinsicIndex, x.Block)
}

// FetchForExtrinsic locates an extrinsic in a block by hash and returns its events
func FetchForExtrinsic(
	ctx context.Context,
	b backend.Backend,
	reg *metadata.Registry,
	block, extrinsic types.Hash,
) (*ExtrinsicEvents, error) {
	exts, err := b.BlockExtrinsics(ctx, block)
	if err != nil {
		return nil, err
	}

	index := -1

	for i, ext := range exts {
		if types.ExtrinsicHash(ext) == extrinsic {
			index = i

			break
		}
	}

	if index < 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrExtrinsicNotInBlock, extrinsic, block)
	}

	evs, err := Fetch(ctx, b, reg, block)
	if err != nil {
		return nil, err
	}

	return evs.ForExtrinsic(uint32(index), extrinsic), nil
}
