// Package telemetry groups the observability packages of the compliance
// service.
//
//   - logging: slog construction, context fields and secret redaction
//   - metrics: Prometheus collector attached to the engine as its observer
//   - health: liveness and readiness endpoints of the watch command
//
// Commands build a logger from the telemetry.logging section and pass it
// down; every component tags its records with a "component" attribute:
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	eng, err := engine.New(store, nil, logger)
//	eng.WithObserver(collector)
package telemetry
