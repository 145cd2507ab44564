package config

const (
	defaultArchiveDir           = "~/.local/share/airchart/archive"
	defaultDataDir              = "~/.local/share/airchart/data"
	defaultLogDir               = "~/.local/share/airchart/logs"
	defaultReachWeight          = 0.25
	defaultInterval             = "weekly"
	defaultAnchorRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ArchiveDir: defaultArchiveDir,
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
		},
		Scoring: Scoring{
			ReachWeight: defaultReachWeight,
			Interval:    defaultInterval,
		},
		Anchor: Anchor{
			Enabled:        false,
			RequestTimeout: defaultAnchorRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
