package helper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/armon/go-metrics"
	"github.com/armon/go-metrics/prometheus"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"

	"github.com/0xPolygon/substrate-client/client"
	"github.com/0xPolygon/substrate-client/command"
	"github.com/0xPolygon/substrate-client/config"
	"github.com/0xPolygon/substrate-client/helper/hex"
)

// RegisterJSONOutputFlag registers the --json output setting for all child commands
func RegisterJSONOutputFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool(
		command.JSONOutputFlag,
		false,
		"get all outputs in json format (default false)",
	)
}

// RegisterClientFlags registers the node connection settings for all child commands
func RegisterClientFlags(cmd *cobra.Command) {
	defaults := config.DefaultConfig()

	cmd.PersistentFlags().String(
		command.NodeAddrFlag,
		defaults.NodeAddr,
		"the websocket or http address of the node",
	)

	cmd.PersistentFlags().String(
		command.ConfigFlag,
		"",
		"the path to a client config file (json, hcl or yaml)",
	)

	cmd.PersistentFlags().String(
		command.LogLevelFlag,
		defaults.LogLevel,
		"the log level for console output",
	)

	cmd.PersistentFlags().String(
		command.MetricsAddrFlag,
		"",
		"the address to serve prometheus metrics on, disabled when empty",
	)
}

func flagValue(cmd *cobra.Command, name string) (string, bool) {
	flag := cmd.Flag(name)
	if flag == nil {
		return "", false
	}

	return flag.Value.String(), flag.Changed
}

// LoadConfig reads the config file when one is given. Flags set on the command
// line override the file.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	conf := config.DefaultConfig()

	if path, _ := flagValue(cmd, command.ConfigFlag); path != "" {
		fileConf, err := config.ReadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}

		conf = fileConf
	}

	if addr, changed := flagValue(cmd, command.NodeAddrFlag); changed || conf.NodeAddr == "" {
		conf.NodeAddr = addr
	}

	if level, changed := flagValue(cmd, command.LogLevelFlag); changed {
		conf.LogLevel = level
	}

	if addr, changed := flagValue(cmd, command.MetricsAddrFlag); changed {
		conf.Telemetry.PrometheusAddr = addr
	}

	return conf, nil
}

// NewLogger builds the root logger. Logs go to stderr so command output stays parseable.
func NewLogger(conf *config.Config) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:       command.DefaultLoggerName,
		Level:      hclog.LevelFromString(conf.LogLevel),
		JSONFormat: conf.JSONLogFormat,
		Output:     os.Stderr,
	})
}

// SetupTelemetry routes go-metrics to a prometheus registry served on addr
func SetupTelemetry(addr string, logger hclog.Logger) (*http.Server, error) {
	registry := prom.NewRegistry()

	promSink, err := prometheus.NewPrometheusSinkFrom(prometheus.PrometheusOpts{
		Name:       "substrate_client_prometheus_sink",
		Expiration: 0,
		Registerer: registry,
	})
	if err != nil {
		return nil, err
	}

	metricsConf := metrics.DefaultConfig("substrate_client")
	metricsConf.EnableHostname = false

	if _, err := metrics.NewGlobal(metricsConf, promSink); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              listener.Addr().String(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("prometheus server started", "addr", listener.Addr().String())

		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("prometheus server failed", "err", err)
		}
	}()

	return srv, nil
}

// Session is a connected client plus what the command set up around it
type Session struct {
	Client *client.Client
	Logger hclog.Logger

	metricsServer *http.Server
}

// Connect loads the settings of cmd and connects to the node
func Connect(ctx context.Context, cmd *cobra.Command) (*Session, error) {
	conf, err := LoadConfig(cmd)
	if err != nil {
		return nil, err
	}

	clientConf, err := conf.ClientConfig()
	if err != nil {
		return nil, err
	}

	s := &Session{Logger: NewLogger(conf)}

	if addr := conf.Telemetry.PrometheusAddr; addr != "" {
		if s.metricsServer, err = SetupTelemetry(addr, s.Logger); err != nil {
			return nil, fmt.Errorf("metrics server: %w", err)
		}
	}

	s.Client, err = client.New(ctx, clientConf, client.WithLogger(s.Logger))
	if err != nil {
		_ = s.Close()

		return nil, err
	}

	return s, nil
}

func (s *Session) Close() error {
	var result *multierror.Error

	if s.Client != nil {
		if err := s.Client.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if s.metricsServer != nil {
		if err := s.metricsServer.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

// DecodeHexArg decodes a 0x prefixed (or bare) hex argument
func DecodeHexArg(name, raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%s is empty", name)
	}

	b, err := hex.DecodeHex(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}

	return b, nil
}

// OUTPUT FORMATTING //

// FormatList formats a list, using a specific blank value replacement
func FormatList(in []string) string {
	columnConf := columnize.DefaultConfig()
	columnConf.Empty = "<none>"

	return columnize.Format(in, columnConf)
}

// FormatKV formats key value pairs:
//
// Key = Value
//
// Key = <none>
func FormatKV(in []string) string {
	columnConf := columnize.DefaultConfig()
	columnConf.Empty = "<none>"
	columnConf.Glue = " = "

	return columnize.Format(in, columnConf)
}
