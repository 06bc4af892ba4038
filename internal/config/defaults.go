package config

const (
	defaultLogDir          = "~/.local/share/seiir/logs"
	defaultLedgerPath      = "~/.local/share/seiir/ledger.db"
	defaultScalingWorkers  = 30
	defaultOutputsWorkers  = 30
	defaultMeasuresWorkers = 3
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:     defaultLogDir,
			LedgerPath: defaultLedgerPath,
		},
		Workers: Workers{
			Scaling:  defaultScalingWorkers,
			Outputs:  defaultOutputsWorkers,
			Measures: defaultMeasuresWorkers,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
