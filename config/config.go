package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl"
	"gopkg.in/yaml.v3"

	"github.com/0xPolygon/substrate-client/client"
	"github.com/0xPolygon/substrate-client/jsonrpc"
	"github.com/0xPolygon/substrate-client/storage"
	"github.com/0xPolygon/substrate-client/txrelayer"
)

// Config defines the client configuration params
type Config struct {
	NodeAddr          string     `json:"node_addr" yaml:"node_addr" hcl:"node_addr"`
	LogLevel          string     `json:"log_level" yaml:"log_level" hcl:"log_level"`
	JSONLogFormat     bool       `json:"json_log_format" yaml:"json_log_format" hcl:"json_log_format"`
	Telemetry         *Telemetry `json:"telemetry" yaml:"telemetry" hcl:"telemetry"`
	MaxRequestSize    int        `json:"max_request_size" yaml:"max_request_size" hcl:"max_request_size"`
	DialRetries       uint64     `json:"dial_retries" yaml:"dial_retries" hcl:"dial_retries"`
	RegistryCacheSize int        `json:"registry_cache_size" yaml:"registry_cache_size" hcl:"registry_cache_size"`

	PageSize     uint32 `json:"page_size" yaml:"page_size" hcl:"page_size"`
	TipPolicy    string `json:"tip_policy" yaml:"tip_policy" hcl:"tip_policy"`
	MortalPeriod uint64 `json:"mortal_period" yaml:"mortal_period" hcl:"mortal_period"`
}

// Telemetry holds the config details for metric services.
type Telemetry struct {
	PrometheusAddr string `json:"prometheus_addr" yaml:"prometheus_addr" hcl:"prometheus_addr"`
}

// DefaultConfig returns the default client configuration
func DefaultConfig() *Config {
	return &Config{
		NodeAddr:          txrelayer.DefaultAddr,
		LogLevel:          "INFO",
		Telemetry:         &Telemetry{},
		MaxRequestSize:    jsonrpc.DefaultMaxRequestSize,
		DialRetries:       client.DefaultDialRetries,
		RegistryCacheSize: client.DefaultRegistryCacheSize,
		PageSize:          storage.DefaultPageSize,
		TipPolicy:         "excluded",
	}
}

// ReadConfigFile reads the config file from the specified path, builds a Config object
// and returns it.
//
// Supported file types: .json, .hcl, .yaml, .yml
func ReadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var unmarshalFunc func([]byte, interface{}) error

	switch {
	case strings.HasSuffix(path, ".hcl"):
		unmarshalFunc = hcl.Unmarshal
	case strings.HasSuffix(path, ".json"):
		unmarshalFunc = json.Unmarshal
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		unmarshalFunc = yaml.Unmarshal
	default:
		return nil, fmt.Errorf("suffix of %s is neither hcl, json, yaml nor yml", path)
	}

	config := DefaultConfig()

	if err := unmarshalFunc(data, config); err != nil {
		return nil, err
	}

	if config.Telemetry == nil {
		config.Telemetry = &Telemetry{}
	}

	return config, nil
}

// ClientConfig converts the file settings into the client settings
func (c *Config) ClientConfig() (*client.Config, error) {
	policy, err := client.ParseTipPolicy(c.TipPolicy)
	if err != nil {
		return nil, err
	}

	if c.NodeAddr == "" {
		return nil, fmt.Errorf("node address is empty")
	}

	cc := client.DefaultConfig()
	cc.URL = c.NodeAddr
	cc.MaxRequestSize = c.MaxRequestSize
	cc.DialRetries = c.DialRetries
	cc.TipPolicy = policy
	cc.MortalPeriod = c.MortalPeriod

	if c.RegistryCacheSize > 0 {
		cc.RegistryCacheSize = c.RegistryCacheSize
	}

	if c.PageSize > 0 {
		cc.PageSize = c.PageSize
	}

	return cc, nil
}
