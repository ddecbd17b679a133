package client

import (
	"fmt"

	"github.com/0xPolygon/substrate-client/jsonrpc"
	"github.com/0xPolygon/substrate-client/storage"
	"github.com/0xPolygon/substrate-client/txpayment"
	"github.com/0xPolygon/substrate-client/txrelayer"
)

const (
	// DefaultRegistryCacheSize is the number of runtime versions whose metadata is kept
	DefaultRegistryCacheSize = 4

	// DefaultDialRetries is the number of websocket dial attempts after the first
	DefaultDialRetries uint64 = 3
)

// Config holds the client settings
type Config struct {
	// URL of the node, ws(s):// for subscriptions or http(s)://
	URL string
	// MaxRequestSize limits outgoing websocket messages, zero for no limit
	MaxRequestSize int
	DialRetries    uint64

	RegistryCacheSize int
	PageSize          uint32
	TipPolicy         txpayment.TipPolicy
	// MortalPeriod is the validity window of signed extrinsics, zero for the builder default
	MortalPeriod uint64
}

func DefaultConfig() *Config {
	return &Config{
		URL:               txrelayer.DefaultAddr,
		MaxRequestSize:    jsonrpc.DefaultMaxRequestSize,
		DialRetries:       DefaultDialRetries,
		RegistryCacheSize: DefaultRegistryCacheSize,
		PageSize:          storage.DefaultPageSize,
		TipPolicy:         txpayment.TipExcluded,
	}
}

// ParseTipPolicy maps "excluded" or "included" to a TipPolicy
func ParseTipPolicy(s string) (txpayment.TipPolicy, error) {
	switch s {
	case "", txpayment.TipExcluded.String():
		return txpayment.TipExcluded, nil
	case txpayment.TipIncluded.String():
		return txpayment.TipIncluded, nil
	default:
		return 0, fmt.Errorf("unknown tip policy %q, expected excluded or included", s)
	}
}
