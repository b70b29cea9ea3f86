package config

import "time"

// Default values for configuration fields.
const (
	// Rules defaults
	DefaultRulesSource   = "file"
	DefaultRulesPath     = "./rules.yaml"
	DefaultRulesDebounce = 100 * time.Millisecond
	DefaultGitBranch     = "main"
	DefaultGitPath       = "rules.yaml"
	DefaultGitLocalPath  = "data/rules-repo"
	DefaultGitTimeout    = 30 * time.Second
	DefaultGitAuthType   = "none"

	// Engine defaults
	DefaultEngineWorkers = 0

	// Archive defaults
	DefaultArchiveEnabled       = false
	DefaultArchiveDriver        = "sqlite"
	DefaultArchivePath          = "data/reports.db"
	DefaultArchiveMaxOpenConns  = 4
	DefaultArchiveBusyTimeout   = 5 * time.Second
	DefaultArchiveRetentionDays = 180
	DefaultArchivePruneSchedule = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "text"
	DefaultLoggingRedactSecrets = true
	DefaultMetricsEnabled       = true
	DefaultMetricsNamespace     = "compliance"
	DefaultMetricsListenAddress = "127.0.0.1:9090"
	DefaultMetricsPath          = "/metrics"
)

// Default returns a configuration with every field at its default value.
// Files are decoded on top of it, so boolean defaults that are true survive
// when a file does not mention them.
func Default() *Config {
	cfg := &Config{
		Archive: ArchiveConfig{
			Enabled:       DefaultArchiveEnabled,
			RetentionDays: DefaultArchiveRetentionDays,
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{RedactSecrets: DefaultLoggingRedactSecrets},
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets defaults for any fields that have zero values.
// It is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Rules defaults
	if cfg.Rules.Source == "" {
		cfg.Rules.Source = DefaultRulesSource
	}
	if cfg.Rules.Path == "" {
		cfg.Rules.Path = DefaultRulesPath
	}
	if cfg.Rules.Debounce == 0 {
		cfg.Rules.Debounce = DefaultRulesDebounce
	}
	if cfg.Rules.Git.Branch == "" {
		cfg.Rules.Git.Branch = DefaultGitBranch
	}
	if cfg.Rules.Git.Path == "" {
		cfg.Rules.Git.Path = DefaultGitPath
	}
	if cfg.Rules.Git.LocalPath == "" {
		cfg.Rules.Git.LocalPath = DefaultGitLocalPath
	}
	if cfg.Rules.Git.Timeout == 0 {
		cfg.Rules.Git.Timeout = DefaultGitTimeout
	}
	if cfg.Rules.Git.Auth.Type == "" {
		cfg.Rules.Git.Auth.Type = DefaultGitAuthType
	}

	// Archive defaults
	if cfg.Archive.Driver == "" {
		cfg.Archive.Driver = DefaultArchiveDriver
	}
	if cfg.Archive.Path == "" {
		cfg.Archive.Path = DefaultArchivePath
	}
	if cfg.Archive.MaxOpenConns == 0 {
		cfg.Archive.MaxOpenConns = DefaultArchiveMaxOpenConns
	}
	if cfg.Archive.BusyTimeout == 0 {
		cfg.Archive.BusyTimeout = DefaultArchiveBusyTimeout
	}
	if cfg.Archive.PruneSchedule == "" {
		cfg.Archive.PruneSchedule = DefaultArchivePruneSchedule
	}
	// RetentionDays keeps 0 as "forever"; the default is applied by
	// Default() so an explicit 0 in a file is honored.

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}
