package txpool

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/0xPolygon/substrate-client/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrUnknownStatus = errors.New("unknown transaction status")

// StatusKind is the stage of a watched transaction, in the order the pool reports them
type StatusKind uint8

const (
	StatusFuture StatusKind = iota
	StatusReady
	StatusBroadcast
	StatusInBlock
	StatusRetracted
	StatusFinalityTimeout
	StatusFinalized
	StatusUsurped
	StatusDropped
	StatusInvalid
)

var statusNames = map[StatusKind]string{
	StatusFuture:          "future",
	StatusReady:           "ready",
	StatusBroadcast:       "broadcast",
	StatusInBlock:         "inBlock",
	StatusRetracted:       "retracted",
	StatusFinalityTimeout: "finalityTimeout",
	StatusFinalized:       "finalized",
	StatusUsurped:         "usurped",
	StatusDropped:         "dropped",
	StatusInvalid:         "invalid",
}

func (k StatusKind) String() string {
	if name, ok := statusNames[k]; ok {
		return name
	}

	return fmt.Sprintf("StatusKind(%d)", k)
}

// TxStatus is one update of the pool's view of a transaction
type TxStatus struct {
	Kind StatusKind
	// Block is set for InBlock, Retracted, FinalityTimeout and Finalized
	Block types.Hash
	// Peers is set for Broadcast
	Peers []string
	// Usurper is the hash of the replacing transaction for Usurped
	Usurper types.Hash
}

// IsTerminal reports whether the pool stops reporting after this status
func (s TxStatus) IsTerminal() bool {
	switch s.Kind {
	case StatusFinalized, StatusFinalityTimeout, StatusUsurped, StatusDropped, StatusInvalid:
		return true
	default:
		return false
	}
}

func (s TxStatus) String() string {
	switch s.Kind {
	case StatusInBlock, StatusRetracted, StatusFinalityTimeout, StatusFinalized:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Block)
	case StatusUsurped:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Usurper)
	default:
		return s.Kind.String()
	}
}

func (s TxStatus) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case StatusFuture, StatusReady, StatusDropped, StatusInvalid:
		return json.Marshal(s.Kind.String())
	case StatusBroadcast:
		peers := s.Peers
		if peers == nil {
			peers = []string{}
		}

		return json.Marshal(map[string]interface{}{s.Kind.String(): peers})
	case StatusUsurped:
		return json.Marshal(map[string]interface{}{s.Kind.String(): s.Usurper})
	case StatusInBlock, StatusRetracted, StatusFinalityTimeout, StatusFinalized:
		return json.Marshal(map[string]interface{}{s.Kind.String(): s.Block})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStatus, s.Kind)
	}
}

// UnmarshalJSON accepts the node encoding: a bare string for stages without
// data, a single key object otherwise
func (s *TxStatus) UnmarshalJSON(data []byte) error {
	*s = TxStatus{}

	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		switch name {
		case "future":
			s.Kind = StatusFuture
		case "ready":
			s.Kind = StatusReady
		case "dropped":
			s.Kind = StatusDropped
		case "invalid":
			s.Kind = StatusInvalid
		default:
			return fmt.Errorf("%w: %q", ErrUnknownStatus, name)
		}

		return nil
	}

	var obj map[string]jsoniter.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownStatus, string(data))
	}

	if len(obj) != 1 {
		return fmt.Errorf("%w: %s", ErrUnknownStatus, string(data))
	}

	for key, raw := range obj {
		switch key {
		case "broadcast":
			s.Kind = StatusBroadcast

			return json.Unmarshal(raw, &s.Peers)
		case "usurped":
			s.Kind = StatusUsurped

			return json.Unmarshal(raw, &s.Usurper)
		case "inBlock":
			s.Kind = StatusInBlock
		case "retracted":
			s.Kind = StatusRetracted
		case "finalityTimeout":
			s.Kind = StatusFinalityTimeout
		case "finalized":
			s.Kind = StatusFinalized
		default:
			return fmt.Errorf("%w: %q", ErrUnknownStatus, key)
		}

		return json.Unmarshal(raw, &s.Block)
	}

	return nil
}
