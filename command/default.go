package command

const (
	JSONOutputFlag  = "json"
	NodeAddrFlag    = "addr"
	ConfigFlag      = "config"
	LogLevelFlag    = "log-level"
	MetricsAddrFlag = "metrics-addr"
)

// DefaultLoggerName is the name of the CLI root logger
const DefaultLoggerName = "substrate-client"
