package config

import "time"

// Config is the root configuration structure for the compliance service.
type Config struct {
	// Rules selects where the rule set comes from and whether it is
	// reloaded on change.
	Rules RulesConfig `yaml:"rules"`

	// Engine contains evaluation settings.
	Engine EngineConfig `yaml:"engine"`

	// Archive contains configuration for persisting evaluation reports.
	Archive ArchiveConfig `yaml:"archive"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// RulesConfig contains configuration for the rule source.
type RulesConfig struct {
	// Source selects the rule source.
	// Options: "file", "git", "defaults"
	// Default: "file"
	Source string `yaml:"source"`

	// Path is the rule file for the "file" source. YAML unless the
	// extension is .json.
	// Default: "./rules.yaml"
	Path string `yaml:"path"`

	// Watch reloads the rule file when it changes (watch command only).
	// Default: false
	Watch bool `yaml:"watch"`

	// Debounce is the quiet period after a file change before reloading.
	// Default: 100ms
	Debounce time.Duration `yaml:"debounce"`

	// Git configures the "git" source.
	Git GitConfig `yaml:"git"`
}

// GitConfig contains configuration for loading rules from a Git repository.
type GitConfig struct {
	// Repository is the clone URL (https:// or git@).
	Repository string `yaml:"repository"`

	// Branch to check out.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path of the rule file inside the repository.
	// Default: "rules.yaml"
	Path string `yaml:"path"`

	// LocalPath is the working copy location.
	// Default: "data/rules-repo"
	LocalPath string `yaml:"local_path"`

	// Timeout bounds clone and pull operations.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// Auth contains repository credentials.
	Auth GitAuthConfig `yaml:"auth"`
}

// GitAuthConfig contains Git authentication settings.
type GitAuthConfig struct {
	// Type selects the authentication method.
	// Options: "none", "token", "ssh"
	// Default: "none"
	Type string `yaml:"type"`

	// Token is the personal access token for "token" auth.
	Token string `yaml:"token"`

	// SSHKeyPath is the private key for "ssh" auth.
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHKeyPassphrase decrypts SSHKeyPath when set.
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// EngineConfig contains evaluation settings.
type EngineConfig struct {
	// Workers bounds concurrent document evaluation within a project.
	// Zero uses the number of CPUs.
	// Default: 0
	Workers int `yaml:"workers"`
}

// ArchiveConfig contains configuration for the report archive.
type ArchiveConfig struct {
	// Enabled stores every report produced by the CLI.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Driver selects the storage backend.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo), "memory"
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// Path is the database file.
	// Default: "data/reports.db"
	Path string `yaml:"path"`

	// MaxOpenConns limits open database connections.
	// Default: 4
	MaxOpenConns int `yaml:"max_open_conns"`

	// BusyTimeout is how long a writer waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// RetentionDays deletes reports older than this many days.
	// Zero keeps reports forever.
	// Default: 180
	RetentionDays int `yaml:"retention_days"`

	// MaxRecords caps the number of stored reports; the oldest are pruned
	// first. Zero means unlimited.
	MaxRecords int64 `yaml:"max_records"`

	// PruneSchedule is the cron expression for retention runs.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains configuration for structured logging.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks credentials and personal identifiers in log
	// fields.
	// Default: true
	RedactSecrets bool `yaml:"redact_secrets"`

	// RedactPatterns adds custom redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	// Name identifies the pattern.
	Name string `yaml:"name"`

	// Pattern is a Go regular expression.
	Pattern string `yaml:"pattern"`

	// Replacement substitutes each match.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled exposes the metrics endpoint (watch command only).
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace prefixes every metric name.
	// Default: "compliance"
	Namespace string `yaml:"namespace"`

	// ListenAddress is the address of the metrics and health server.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// Path is the metrics endpoint path.
	// Default: "/metrics"
	Path string `yaml:"path"`
}
