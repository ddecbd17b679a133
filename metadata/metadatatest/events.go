package metadatatest

import (
	"github.com/0xPolygon/substrate-client/metadata"
)

// EventRecord describes one System.Events entry emitted while applying an extrinsic
type EventRecord struct {
	ExtrinsicIndex uint32
	Pallet         string
	Variant        string
	Fields         []metadata.NamedValue
}

// DispatchInfo is a plain Normal class, fee paying dispatch info
func DispatchInfo() metadata.Value {
	return metadata.NamedComposite(
		metadata.NamedValue{Name: "weight", Value: metadata.NamedComposite(
			metadata.NamedValue{Name: "ref_time", Value: metadata.UintValue(1000)},
			metadata.NamedValue{Name: "proof_size", Value: metadata.UintValue(0)},
		)},
		metadata.NamedValue{Name: "class", Value: metadata.VariantValue("Normal")},
		metadata.NamedValue{Name: "pays_fee", Value: metadata.VariantValue("Yes")},
	)
}

// Success is System.ExtrinsicSuccess for the extrinsic at index
func Success(index uint32) EventRecord {
	return EventRecord{
		ExtrinsicIndex: index,
		Pallet:         "System",
		Variant:        "ExtrinsicSuccess",
		Fields:         []metadata.NamedValue{{Name: "dispatch_info", Value: DispatchInfo()}},
	}
}

// ModuleFailure is System.ExtrinsicFailed with a module error
func ModuleFailure(index uint32, palletIndex, errorIndex uint8) EventRecord {
	moduleErr := metadata.NamedComposite(
		metadata.NamedValue{Name: "index", Value: metadata.UintValue(uint64(palletIndex))},
		metadata.NamedValue{Name: "error", Value: metadata.BytesValue([]byte{errorIndex, 0, 0, 0})},
	)

	return EventRecord{
		ExtrinsicIndex: index,
		Pallet:         "System",
		Variant:        "ExtrinsicFailed",
		Fields: []metadata.NamedValue{
			{Name: "dispatch_error", Value: metadata.VariantValue("Module", metadata.NamedValue{Value: moduleErr})},
			{Name: "dispatch_info", Value: DispatchInfo()},
		},
	}
}

// EncodeEvents encodes records as the value of System.Events
func EncodeEvents(reg *metadata.Registry, records ...EventRecord) []byte {
	values := make([]metadata.Value, len(records))

	for i, r := range records {
		values[i] = metadata.NamedComposite(
			metadata.NamedValue{Name: "phase", Value: metadata.VariantValue("ApplyExtrinsic",
				metadata.NamedValue{Value: metadata.UintValue(uint64(r.ExtrinsicIndex))})},
			metadata.NamedValue{Name: "event", Value: metadata.VariantValue(r.Pallet,
				metadata.NamedValue{Value: metadata.VariantValue(r.Variant, r.Fields...)})},
			metadata.NamedValue{Name: "topics", Value: metadata.UnnamedComposite()},
		)
	}

	raw, err := reg.EncodeAs(IDs.EventRecords, metadata.UnnamedComposite(values...))
	if err != nil {
		panic(err)
	}

	return raw
}
