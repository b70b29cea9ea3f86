package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"mercator-hq/compliance/pkg/archive"
	"mercator-hq/compliance/pkg/config"
	"mercator-hq/compliance/pkg/engine"
	"mercator-hq/compliance/pkg/rules"
	rulesgit "mercator-hq/compliance/pkg/rules/git"
	"mercator-hq/compliance/pkg/telemetry/logging"
	"mercator-hq/compliance/pkg/telemetry/metrics"
)

// app holds the components shared by the commands.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *rules.Store
	engine    *engine.Engine
	collector *metrics.Collector
	git       *rulesgit.Source

	// storage is nil unless the archive is enabled.
	storage archive.Storage
}

// newApp loads the configuration selected by the global flags and builds
// the shared components.
func newApp(ctx context.Context) (*app, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := config.GetConfig()
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if rulesPath != "" {
		cfg.Rules.Source = "file"
		cfg.Rules.Path = rulesPath
	}

	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return buildApp(ctx, cfg, logger)
}

// buildApp wires the store, engine, metrics collector and archive from cfg.
// A rule source that cannot be read leaves the default rules installed and
// is logged, not returned.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:       cfg,
		logger:    logger,
		store:     rules.NewStore(logger),
		collector: metrics.NewCollector(&cfg.Telemetry.Metrics, nil),
	}

	if cfg.Rules.Source == "git" {
		src, err := rulesgit.NewSource(cfg.Rules.Git, logger)
		if err != nil {
			return nil, err
		}
		a.git = src
	}
	a.loadRules(ctx)

	eng, err := engine.New(a.store, engine.DefaultConfig().WithWorkers(cfg.Engine.Workers), logger)
	if err != nil {
		return nil, err
	}
	a.engine = eng.WithObserver(a.collector)

	if cfg.Archive.Enabled {
		storage, err := archive.Open(cfg.Archive, logger)
		if err != nil {
			return nil, err
		}
		a.storage = storage
	}
	return a, nil
}

// loadRules (re)loads the rule set from the configured source.
func (a *app) loadRules(ctx context.Context) {
	var err error
	switch a.cfg.Rules.Source {
	case "git":
		_, err = a.git.Load(ctx, a.store)
	case "defaults":
		a.store.LoadDefaults()
	default:
		err = a.store.Load(a.cfg.Rules.Path)
	}
	if err != nil {
		a.logger.Warn("using fallback rule set", "source", a.cfg.Rules.Source, "error", err)
	}
	a.collector.RecordReload(a.store.Statistics(), err)
}

// archiveDocument stores report when the archive is enabled. Failures are
// logged; an evaluation is never lost because it could not be archived.
func (a *app) archiveDocument(ctx context.Context, report *engine.DocumentReport) {
	if a.storage == nil {
		return
	}
	record, err := archive.NewDocumentRecord(report, time.Now())
	a.storeRecord(ctx, record, err)
}

// archiveProject stores report when the archive is enabled.
func (a *app) archiveProject(ctx context.Context, report *engine.ProjectReport) {
	if a.storage == nil {
		return
	}
	record, err := archive.NewProjectRecord(report, time.Now())
	a.storeRecord(ctx, record, err)
}

func (a *app) storeRecord(ctx context.Context, record *archive.Record, err error) {
	if err == nil {
		err = a.storage.Store(ctx, record)
	}
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to archive report", "error", err)
		return
	}
	a.logger.DebugContext(ctx, "report archived", "record_id", record.ID, "kind", record.Kind)
}

// requireArchive returns the archive storage or an error when it is
// disabled.
func (a *app) requireArchive() (archive.Storage, error) {
	if a.storage == nil {
		return nil, errors.New("report archive is disabled (set archive.enabled in the config file)")
	}
	return a.storage, nil
}

// Close releases the archive storage.
func (a *app) Close() error {
	if a.storage == nil {
		return nil
	}
	return a.storage.Close()
}
