// Package metadatatest provides a small but realistic runtime metadata snapshot
// for tests: System, Balances, TransactionPayment, Preimage and Assets pallets.
package metadatatest

import (
	"fmt"

	"github.com/0xPolygon/substrate-client/crypto"
	"github.com/0xPolygon/substrate-client/metadata"
)

const (
	SystemIndex             uint8 = 0
	BalancesIndex           uint8 = 6
	TransactionPaymentIndex uint8 = 11
	PreimageIndex           uint8 = 28
	AssetsIndex             uint8 = 34

	BalancesTransferIndex   uint8 = 7
	PreimageNoteIndex       uint8 = 0
	AssetsFreezeIndex       uint8 = 11
	AssetsUnknownErrorIndex uint8 = 3

	SpecVersion        uint32 = 268
	TransactionVersion uint32 = 2
)

// TypeIDs are the registry ids of the types tests commonly need
type TypeIDs struct {
	U8, U16, U32, U64, U128, Bool, Str uint32

	AccountID     uint32
	H256          uint32
	Bytes         uint32
	MultiAddress  uint32
	DispatchError uint32
	DispatchInfo  uint32
	AccountInfo   uint32
	EventRecords  uint32
	RuntimeEvent  uint32
	RuntimeCall   uint32
	Era           uint32
	Empty         uint32
}

// IDs are the same for every metadata New returns
var IDs = func() TypeIDs {
	_, ids := build()

	return ids
}()

type builder struct {
	types []metadata.PortableType
}

func (b *builder) add(path []string, def metadata.TypeDef) uint32 {
	id := uint32(len(b.types))
	b.types = append(b.types, metadata.PortableType{ID: id, Type: metadata.Type{Path: path, Def: def}})

	return id
}

func (b *builder) prim(p metadata.Primitive) uint32 {
	return b.add(nil, metadata.TypeDef{Kind: metadata.DefPrimitive, Primitive: p})
}

func (b *builder) composite(path []string, fields ...metadata.Field) uint32 {
	return b.add(path, metadata.TypeDef{Kind: metadata.DefComposite, Fields: fields})
}

func (b *builder) variant(path []string, variants ...metadata.Variant) uint32 {
	return b.add(path, metadata.TypeDef{Kind: metadata.DefVariant, Variants: variants})
}

func (b *builder) seq(elem uint32) uint32 {
	return b.add(nil, metadata.TypeDef{Kind: metadata.DefSequence, Elem: elem})
}

func (b *builder) array(n, elem uint32) uint32 {
	return b.add(nil, metadata.TypeDef{Kind: metadata.DefArray, Len: n, Elem: elem})
}

func (b *builder) compact(elem uint32) uint32 {
	return b.add(nil, metadata.TypeDef{Kind: metadata.DefCompact, Elem: elem})
}

func (b *builder) tuple(elems ...uint32) uint32 {
	return b.add(nil, metadata.TypeDef{Kind: metadata.DefTuple, Tuple: elems})
}

func field(name string, ty uint32) metadata.Field {
	n := name

	return metadata.Field{Name: &n, Type: ty}
}

func unnamed(ty uint32) metadata.Field {
	return metadata.Field{Type: ty}
}

func variant(name string, index uint8, fields ...metadata.Field) metadata.Variant {
	return metadata.Variant{Name: name, Index: index, Fields: fields}
}

// unit builds fieldless variants numbered from zero
func unit(names ...string) []metadata.Variant {
	out := make([]metadata.Variant, len(names))
	for i, name := range names {
		out[i] = variant(name, uint8(i))
	}

	return out
}

func path(p ...string) []string {
	return p
}

// New returns a fresh copy of the fixture metadata
func New() *metadata.Metadata {
	md, _ := build()

	return md
}

func build() (*metadata.Metadata, TypeIDs) {
	b := &builder{}
	ids := TypeIDs{}

	ids.U8 = b.prim(metadata.PrimU8)
	ids.U16 = b.prim(metadata.PrimU16)
	ids.U32 = b.prim(metadata.PrimU32)
	ids.U64 = b.prim(metadata.PrimU64)
	ids.U128 = b.prim(metadata.PrimU128)
	ids.Bool = b.prim(metadata.PrimBool)
	ids.Str = b.prim(metadata.PrimStr)
	ids.Empty = b.tuple()

	array32 := b.array(32, ids.U8)
	array20 := b.array(20, ids.U8)
	array4 := b.array(4, ids.U8)
	ids.Bytes = b.seq(ids.U8)
	ids.AccountID = b.composite(path("sp_core", "crypto", "AccountId32"), unnamed(array32))
	ids.H256 = b.composite(path("primitive_types", "H256"), unnamed(array32))
	compactU32 := b.compact(ids.U32)
	compactU64 := b.compact(ids.U64)
	compactU128 := b.compact(ids.U128)

	ids.MultiAddress = b.variant(path("sp_runtime", "multiaddress", "MultiAddress"),
		variant("Id", 0, unnamed(ids.AccountID)),
		variant("Index", 1, unnamed(compactU32)),
		variant("Raw", 2, unnamed(ids.Bytes)),
		variant("Address32", 3, unnamed(array32)),
		variant("Address20", 4, unnamed(array20)),
	)

	weight := b.composite(path("sp_weights", "weight_v2", "Weight"),
		field("ref_time", compactU64),
		field("proof_size", compactU64),
	)
	dispatchClass := b.variant(path("frame_support", "dispatch", "DispatchClass"),
		unit("Normal", "Operational", "Mandatory")...)
	pays := b.variant(path("frame_support", "dispatch", "Pays"), unit("Yes", "No")...)
	ids.DispatchInfo = b.composite(path("frame_support", "dispatch", "DispatchInfo"),
		field("weight", weight),
		field("class", dispatchClass),
		field("pays_fee", pays),
	)

	moduleError := b.composite(path("sp_runtime", "ModuleError"),
		field("index", ids.U8),
		field("error", array4),
	)
	tokenError := b.variant(path("sp_runtime", "TokenError"), unit(
		"FundsUnavailable", "OnlyProvider", "BelowMinimum", "CannotCreate", "UnknownAsset",
		"Frozen", "Unsupported", "CannotCreateHold", "NotExpendable", "Blocked")...)
	arithmeticError := b.variant(path("sp_arithmetic", "ArithmeticError"),
		unit("Underflow", "Overflow", "DivisionByZero")...)
	transactionalError := b.variant(path("sp_runtime", "TransactionalError"),
		unit("LimitReached", "NoLayer")...)
	ids.DispatchError = b.variant(path("sp_runtime", "DispatchError"),
		variant("Other", 0),
		variant("CannotLookup", 1),
		variant("BadOrigin", 2),
		variant("Module", 3, unnamed(moduleError)),
		variant("ConsumerRemaining", 4),
		variant("NoProviders", 5),
		variant("TooManyConsumers", 6),
		variant("Token", 7, unnamed(tokenError)),
		variant("Arithmetic", 8, unnamed(arithmeticError)),
		variant("Transactional", 9, unnamed(transactionalError)),
		variant("Exhausted", 10),
		variant("Corruption", 11),
		variant("Unavailable", 12),
		variant("RootNotAllowed", 13),
	)

	accountData := b.composite(path("pallet_balances", "types", "AccountData"),
		field("free", ids.U128),
		field("reserved", ids.U128),
		field("frozen", ids.U128),
		field("flags", ids.U128),
	)
	ids.AccountInfo = b.composite(path("frame_system", "AccountInfo"),
		field("nonce", ids.U32),
		field("consumers", ids.U32),
		field("providers", ids.U32),
		field("sufficients", ids.U32),
		field("data", accountData),
	)

	systemEvent := b.variant(path("frame_system", "pallet", "Event"),
		variant("ExtrinsicSuccess", 0, field("dispatch_info", ids.DispatchInfo)),
		variant("ExtrinsicFailed", 1, field("dispatch_error", ids.DispatchError), field("dispatch_info", ids.DispatchInfo)),
		variant("CodeUpdated", 2),
		variant("NewAccount", 3, field("account", ids.AccountID)),
		variant("KilledAccount", 4, field("account", ids.AccountID)),
		variant("Remarked", 5, field("sender", ids.AccountID), field("hash", ids.H256)),
	)
	balancesEvent := b.variant(path("pallet_balances", "pallet", "Event"),
		variant("Endowed", 0, field("account", ids.AccountID), field("free_balance", ids.U128)),
		variant("DustLost", 1, field("account", ids.AccountID), field("amount", ids.U128)),
		variant("Transfer", 2, field("from", ids.AccountID), field("to", ids.AccountID), field("amount", ids.U128)),
		variant("Deposit", 7, field("who", ids.AccountID), field("amount", ids.U128)),
		variant("Withdraw", 8, field("who", ids.AccountID), field("amount", ids.U128)),
	)
	paymentEvent := b.variant(path("pallet_transaction_payment", "pallet", "Event"),
		variant("TransactionFeePaid", 0,
			field("who", ids.AccountID), field("actual_fee", ids.U128), field("tip", ids.U128)),
	)
	preimageEvent := b.variant(path("pallet_preimage", "pallet", "Event"),
		variant("Noted", 0, field("hash", ids.H256)),
		variant("Requested", 1, field("hash", ids.H256)),
		variant("Cleared", 2, field("hash", ids.H256)),
	)
	assetsEvent := b.variant(path("pallet_assets", "pallet", "Event"),
		variant("Created", 0, field("asset_id", ids.U32), field("creator", ids.AccountID), field("owner", ids.AccountID)),
		variant("Issued", 1, field("asset_id", ids.U32), field("owner", ids.AccountID), field("amount", ids.U128)),
		variant("Transferred", 2,
			field("asset_id", ids.U32), field("from", ids.AccountID), field("to", ids.AccountID), field("amount", ids.U128)),
		variant("Frozen", 9, field("asset_id", ids.U32), field("who", ids.AccountID)),
	)
	ids.RuntimeEvent = b.variant(path("kitchensink_runtime", "RuntimeEvent"),
		variant("System", SystemIndex, unnamed(systemEvent)),
		variant("Balances", BalancesIndex, unnamed(balancesEvent)),
		variant("TransactionPayment", TransactionPaymentIndex, unnamed(paymentEvent)),
		variant("Preimage", PreimageIndex, unnamed(preimageEvent)),
		variant("Assets", AssetsIndex, unnamed(assetsEvent)),
	)

	phase := b.variant(path("frame_system", "Phase"),
		variant("ApplyExtrinsic", 0, unnamed(ids.U32)),
		variant("Finalization", 1),
		variant("Initialization", 2),
	)
	eventRecord := b.composite(path("frame_system", "EventRecord"),
		field("phase", phase),
		field("event", ids.RuntimeEvent),
		field("topics", b.seq(ids.H256)),
	)
	ids.EventRecords = b.seq(eventRecord)

	systemCall := b.variant(path("frame_system", "pallet", "Call"),
		variant("remark", 0, field("remark", ids.Bytes)),
		variant("remark_with_event", 7, field("remark", ids.Bytes)),
	)
	balancesCall := b.variant(path("pallet_balances", "pallet", "Call"),
		variant("transfer_allow_death", 0, field("dest", ids.MultiAddress), field("value", compactU128)),
		variant("transfer_keep_alive", 3, field("dest", ids.MultiAddress), field("value", compactU128)),
		variant("transfer_all", 4, field("dest", ids.MultiAddress), field("keep_alive", ids.Bool)),
		variant("transfer", BalancesTransferIndex, field("dest", ids.MultiAddress), field("value", compactU128)),
	)
	preimageCall := b.variant(path("pallet_preimage", "pallet", "Call"),
		variant("note_preimage", PreimageNoteIndex, field("bytes", ids.Bytes)),
		variant("unnote_preimage", 1, field("hash", ids.H256)),
	)
	assetsCall := b.variant(path("pallet_assets", "pallet", "Call"),
		variant("create", 0, field("id", compactU32), field("admin", ids.MultiAddress), field("min_balance", ids.U128)),
		variant("mint", 6, field("id", compactU32), field("beneficiary", ids.MultiAddress), field("amount", compactU128)),
		variant("transfer", 8, field("id", compactU32), field("target", ids.MultiAddress), field("amount", compactU128)),
		variant("freeze", AssetsFreezeIndex, field("id", compactU32), field("who", ids.MultiAddress)),
	)
	ids.RuntimeCall = b.variant(path("kitchensink_runtime", "RuntimeCall"),
		variant("System", SystemIndex, unnamed(systemCall)),
		variant("Balances", BalancesIndex, unnamed(balancesCall)),
		variant("Preimage", PreimageIndex, unnamed(preimageCall)),
		variant("Assets", AssetsIndex, unnamed(assetsCall)),
	)

	systemError := b.variant(path("frame_system", "pallet", "Error"), unit(
		"InvalidSpecName", "SpecVersionNeedsToIncrease", "FailedToExtractRuntimeVersion",
		"NonDefaultComposite", "NonZeroRefCount", "CallFiltered")...)
	balancesError := b.variant(path("pallet_balances", "pallet", "Error"), unit(
		"VestingBalance", "LiquidityRestrictions", "InsufficientBalance", "ExistentialDeposit",
		"Expendability", "ExistingVestingSchedule", "DeadAccount", "TooManyReserves")...)
	preimageError := b.variant(path("pallet_preimage", "pallet", "Error"), unit(
		"TooBig", "AlreadyNoted", "NotAuthorized", "NotNoted", "Requested", "NotRequested")...)
	assetsError := b.variant(path("pallet_assets", "pallet", "Error"), unit(
		"BalanceLow", "NoAccount", "NoPermission", "Unknown", "Frozen", "InUse",
		"BadWitness", "MinBalanceZero", "UnavailableConsumer", "BadMetadata")...)

	assetDetails := b.composite(path("pallet_assets", "types", "AssetDetails"),
		field("owner", ids.AccountID),
		field("supply", ids.U128),
		field("min_balance", ids.U128),
		field("is_sufficient", ids.Bool),
	)
	assetAccount := b.composite(path("pallet_assets", "types", "AssetAccount"),
		field("balance", ids.U128),
		field("is_frozen", ids.Bool),
	)
	assetAccountKey := b.tuple(ids.U32, ids.AccountID)

	// Mortal<N> carries the second byte of the two byte mortal encoding
	eraVariants := []metadata.Variant{variant("Immortal", 0)}
	for i := 1; i < 256; i++ {
		eraVariants = append(eraVariants, variant(fmt.Sprintf("Mortal%d", i), uint8(i), unnamed(ids.U8)))
	}

	ids.Era = b.variant(path("sp_runtime", "generic", "era", "Era"), eraVariants...)
	checkNonZeroSender := b.composite(path("frame_system", "extensions", "check_non_zero_sender", "CheckNonZeroSender"))
	checkSpecVersion := b.composite(path("frame_system", "extensions", "check_spec_version", "CheckSpecVersion"))
	checkTxVersion := b.composite(path("frame_system", "extensions", "check_tx_version", "CheckTxVersion"))
	checkGenesis := b.composite(path("frame_system", "extensions", "check_genesis", "CheckGenesis"))
	checkMortality := b.composite(path("frame_system", "extensions", "check_mortality", "CheckMortality"),
		unnamed(ids.Era))
	checkNonce := b.composite(path("frame_system", "extensions", "check_nonce", "CheckNonce"),
		unnamed(compactU32))
	checkWeight := b.composite(path("frame_system", "extensions", "check_weight", "CheckWeight"))
	chargeTxPayment := b.composite(path("pallet_transaction_payment", "ChargeTransactionPayment"),
		unnamed(compactU128))
	uncheckedExtrinsic := b.composite(
		path("sp_runtime", "generic", "unchecked_extrinsic", "UncheckedExtrinsic"), unnamed(ids.Bytes))
	runtime := b.composite(path("kitchensink_runtime", "Runtime"))

	md := &metadata.Metadata{
		Types: b.types,
		Pallets: []metadata.Pallet{
			{
				Name: "System",
				Storage: &metadata.PalletStorage{
					Prefix: "System",
					Entries: []metadata.StorageEntry{
						mapEntry("Account", []crypto.Hasher{crypto.Blake2_128Concat}, ids.AccountID, ids.AccountInfo,
							make([]byte, 80)),
						plainEntry("Number", ids.U32, make([]byte, 4)),
						mapEntry("BlockHash", []crypto.Hasher{crypto.Twox64Concat}, ids.U32, ids.H256, make([]byte, 32)),
						plainEntry("Events", ids.EventRecords, []byte{0}),
					},
				},
				Calls:     &metadata.TypeRef{Type: systemCall},
				Event:     &metadata.TypeRef{Type: systemEvent},
				Constants: []metadata.Constant{{Name: "SS58Prefix", Type: ids.U16, Value: []byte{42, 0}}},
				Error:     &metadata.TypeRef{Type: systemError},
				Index:     SystemIndex,
			},
			{
				Name: "Balances",
				Storage: &metadata.PalletStorage{
					Prefix:  "Balances",
					Entries: []metadata.StorageEntry{plainEntry("TotalIssuance", ids.U128, make([]byte, 16))},
				},
				Calls: &metadata.TypeRef{Type: balancesCall},
				Event: &metadata.TypeRef{Type: balancesEvent},
				Constants: []metadata.Constant{{
					Name:  "ExistentialDeposit",
					Type:  ids.U128,
					Value: []byte{0xf4, 0x01, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
				}},
				Error: &metadata.TypeRef{Type: balancesError},
				Index: BalancesIndex,
			},
			{
				Name:      "TransactionPayment",
				Event:     &metadata.TypeRef{Type: paymentEvent},
				Constants: []metadata.Constant{{Name: "OperationalFeeMultiplier", Type: ids.U8, Value: []byte{5}}},
				Index:     TransactionPaymentIndex,
			},
			{
				Name:  "Preimage",
				Calls: &metadata.TypeRef{Type: preimageCall},
				Event: &metadata.TypeRef{Type: preimageEvent},
				Error: &metadata.TypeRef{Type: preimageError},
				Index: PreimageIndex,
			},
			{
				Name: "Assets",
				Storage: &metadata.PalletStorage{
					Prefix: "Assets",
					Entries: []metadata.StorageEntry{
						optionalMapEntry("Asset", []crypto.Hasher{crypto.Blake2_128Concat}, ids.U32, assetDetails),
						optionalMapEntry("Account",
							[]crypto.Hasher{crypto.Blake2_128Concat, crypto.Blake2_128Concat}, assetAccountKey, assetAccount),
					},
				},
				Calls: &metadata.TypeRef{Type: assetsCall},
				Event: &metadata.TypeRef{Type: assetsEvent},
				Error: &metadata.TypeRef{Type: assetsError},
				Index: AssetsIndex,
			},
		},
		Extrinsic: metadata.ExtrinsicMetadata{
			Type:    uncheckedExtrinsic,
			Version: 4,
			SignedExtensions: []metadata.SignedExtension{
				{Identifier: "CheckNonZeroSender", Type: checkNonZeroSender, AdditionalSigned: ids.Empty},
				{Identifier: "CheckSpecVersion", Type: checkSpecVersion, AdditionalSigned: ids.U32},
				{Identifier: "CheckTxVersion", Type: checkTxVersion, AdditionalSigned: ids.U32},
				{Identifier: "CheckGenesis", Type: checkGenesis, AdditionalSigned: ids.H256},
				{Identifier: "CheckMortality", Type: checkMortality, AdditionalSigned: ids.H256},
				{Identifier: "CheckNonce", Type: checkNonce, AdditionalSigned: ids.Empty},
				{Identifier: "CheckWeight", Type: checkWeight, AdditionalSigned: ids.Empty},
				{Identifier: "ChargeTransactionPayment", Type: chargeTxPayment, AdditionalSigned: ids.Empty},
			},
		},
		Runtime: runtime,
	}

	return md, ids
}

func plainEntry(name string, value uint32, def []byte) metadata.StorageEntry {
	return metadata.StorageEntry{
		Name:     name,
		Modifier: metadata.ModifierDefault,
		Type:     metadata.StorageEntryType{Value: value},
		Default:  def,
	}
}

func mapEntry(name string, hashers []crypto.Hasher, key, value uint32, def []byte) metadata.StorageEntry {
	return metadata.StorageEntry{
		Name:     name,
		Modifier: metadata.ModifierDefault,
		Type:     metadata.StorageEntryType{IsMap: true, Hashers: hashers, Key: key, Value: value},
		Default:  def,
	}
}

func optionalMapEntry(name string, hashers []crypto.Hasher, key, value uint32) metadata.StorageEntry {
	return metadata.StorageEntry{
		Name:     name,
		Modifier: metadata.ModifierOptional,
		Type:     metadata.StorageEntryType{IsMap: true, Hashers: hashers, Key: key, Value: value},
		Default:  []byte{0},
	}
}

// Registry returns a registry over a fresh fixture
func Registry() *metadata.Registry {
	reg, err := metadata.NewRegistry(New())
	if err != nil {
		panic(err)
	}

	return reg
}

// Encoded returns the fixture as state_getMetadata would return it
func Encoded() []byte {
	raw, err := metadata.EncodePrefixed(New())
	if err != nil {
		panic(err)
	}

	return raw
}
