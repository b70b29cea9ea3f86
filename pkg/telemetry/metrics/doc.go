// Package metrics exposes Prometheus metrics for rule evaluation.
//
// Collector implements engine.Observer; attach it with
// Engine.WithObserver and serve Handler on the configured metrics path:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	eng.WithObserver(collector)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// Rule and project identifiers are label values taken from user data, so
// each is capped by a CardinalityLimiter; values past the cap are reported
// as "other".
package metrics
