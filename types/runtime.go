package types

import (
	"encoding/json"
	"fmt"
)

// RuntimeVersion is the result of state_getRuntimeVersion
type RuntimeVersion struct {
	SpecName           string       `json:"specName"`
	ImplName           string       `json:"implName"`
	AuthoringVersion   uint32       `json:"authoringVersion"`
	SpecVersion        uint32       `json:"specVersion"`
	ImplVersion        uint32       `json:"implVersion"`
	APIs               []RuntimeAPI `json:"apis"`
	TransactionVersion uint32       `json:"transactionVersion"`
	StateVersion       uint8        `json:"stateVersion"`
}

// RuntimeAPI is an (api id, version) pair, serialized as a two element array
type RuntimeAPI struct {
	ID      HexBytes
	Version uint32
}

func (r RuntimeAPI) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{r.ID, r.Version})
}

func (r *RuntimeAPI) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}

	if len(pair) != 2 {
		return fmt.Errorf("runtime api entry must have 2 elements, got %d", len(pair))
	}

	if err := json.Unmarshal(pair[0], &r.ID); err != nil {
		return err
	}

	return json.Unmarshal(pair[1], &r.Version)
}

// StorageChangeSet is one block of results from state_queryStorageAt
type StorageChangeSet struct {
	Block   Hash            `json:"block"`
	Changes []StorageChange `json:"changes"`
}

// StorageChange is a key and its value at the queried block, a nil value
// meaning the key is not set
type StorageChange struct {
	Key   HexBytes
	Value *HexBytes
}

func (s StorageChange) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{s.Key, s.Value})
}

func (s *StorageChange) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}

	if len(pair) != 2 {
		return fmt.Errorf("storage change must have 2 elements, got %d", len(pair))
	}

	if err := json.Unmarshal(pair[0], &s.Key); err != nil {
		return err
	}

	s.Value = nil

	if string(pair[1]) == "null" {
		return nil
	}

	var value HexBytes
	if err := json.Unmarshal(pair[1], &value); err != nil {
		return err
	}

	s.Value = &value

	return nil
}
