// Package config provides configuration management for the compliance
// service.
//
// Configuration is read from a YAML file, decoded over the built-in
// defaults, optionally overridden from the environment and validated as a
// whole.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("compliance.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("compliance.yaml")
//
// An empty path skips the file and starts from Default().
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention COMPLIANCE_SECTION_FIELD:
//
//   - COMPLIANCE_RULES_PATH overrides rules.path
//   - COMPLIANCE_RULES_GIT_AUTH_TOKEN overrides rules.git.auth.token
//   - COMPLIANCE_ARCHIVE_DRIVER overrides archive.driver
//   - COMPLIANCE_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Example Configuration
//
//	rules:
//	  source: file
//	  path: ./rules.yaml
//	  watch: true
//	engine:
//	  workers: 8
//	archive:
//	  enabled: true
//	  driver: sqlite
//	  path: data/reports.db
//	  retention_days: 365
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
//	  metrics:
//	    listen_address: 0.0.0.0:9090
//
// # Singleton Pattern
//
// Commands load the configuration once with Initialize and read it with
// GetConfig. Library code receives explicit values instead.
package config
