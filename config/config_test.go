package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/substrate-client/client"
	"github.com/0xPolygon/substrate-client/txpayment"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	return path
}

func TestReadConfigFile(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		file    string
		content string
	}{
		{
			"json",
			"client.json",
			`{"node_addr": "ws://node:9944", "tip_policy": "included", "page_size": 8, "telemetry": {"prometheus_addr": "127.0.0.1:5001"}}`,
		},
		{
			"yaml",
			"client.yaml",
			"node_addr: ws://node:9944\ntip_policy: included\npage_size: 8\ntelemetry:\n  prometheus_addr: 127.0.0.1:5001\n",
		},
		{
			"yml",
			"client.yml",
			"node_addr: ws://node:9944\ntip_policy: included\npage_size: 8\ntelemetry:\n  prometheus_addr: 127.0.0.1:5001\n",
		},
		{
			"hcl",
			"client.hcl",
			"node_addr = \"ws://node:9944\"\ntip_policy = \"included\"\npage_size = 8\ntelemetry {\n  prometheus_addr = \"127.0.0.1:5001\"\n}\n",
		},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			config, err := ReadConfigFile(writeFile(t, c.file, c.content))
			require.NoError(t, err)

			assert.Equal(t, "ws://node:9944", config.NodeAddr)
			assert.Equal(t, "included", config.TipPolicy)
			assert.Equal(t, uint32(8), config.PageSize)
			assert.Equal(t, "127.0.0.1:5001", config.Telemetry.PrometheusAddr)

			// untouched values keep their defaults
			assert.Equal(t, "INFO", config.LogLevel)
			assert.Equal(t, client.DefaultDialRetries, config.DialRetries)
		})
	}
}

func TestReadConfigFile_Errors(t *testing.T) {
	t.Parallel()

	_, err := ReadConfigFile(writeFile(t, "client.toml", "node_addr = 1"))
	require.ErrorContains(t, err, "neither hcl, json, yaml nor yml")

	_, err = ReadConfigFile(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = ReadConfigFile(writeFile(t, "broken.json", "{"))
	require.Error(t, err)
}

func TestConfig_ClientConfig(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()
	config.NodeAddr = "http://127.0.0.1:9933"
	config.TipPolicy = "included"
	config.MortalPeriod = 128
	config.PageSize = 0

	cc, err := config.ClientConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9933", cc.URL)
	assert.Equal(t, txpayment.TipIncluded, cc.TipPolicy)
	assert.Equal(t, uint64(128), cc.MortalPeriod)
	assert.Equal(t, client.DefaultConfig().PageSize, cc.PageSize)

	config.TipPolicy = "sometimes"
	_, err = config.ClientConfig()
	require.ErrorContains(t, err, "unknown tip policy")

	config.TipPolicy = ""
	config.NodeAddr = ""
	_, err = config.ClientConfig()
	require.Error(t, err)
}
