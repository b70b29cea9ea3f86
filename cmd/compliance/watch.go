package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/compliance/pkg/archive"
	"mercator-hq/compliance/pkg/cli"
	"mercator-hq/compliance/pkg/rules"
	"mercator-hq/compliance/pkg/telemetry/health"
)

var watchFlags struct {
	output      string
	listen      string
	reloadRules bool
	gitPoll     time.Duration
}

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Re-evaluate a project whenever its documents or rules change",
	Long: `Evaluate the project in DIR, then keep running and re-evaluate it when a
document changes or, with rules.watch or --reload-rules, when the rule file
changes. Reports are printed and archived on every run.

While running, the metrics, health and readiness endpoints are served on
telemetry.metrics.listen_address and, with the archive enabled, old reports
are pruned on archive.prune_schedule.`,
	Example: `  compliance watch ./P-2024-017 --reload-rules
  compliance watch ./P-2024-017 --listen :9090 --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.StringVarP(&watchFlags.output, "output", "o", "text", "output format (text, json, csv)")
	f.StringVar(&watchFlags.listen, "listen", "", "metrics and health address (default: telemetry.metrics.listen_address)")
	f.BoolVar(&watchFlags.reloadRules, "reload-rules", false, "reload the rule file when it changes, file source only (default: rules.watch)")
	f.DurationVar(&watchFlags.gitPoll, "git-poll", 0, "pull the rule repository at this interval (git source only)")
	f.StringSliceVar(&projectFlags.include, "include", []string{"**/*.txt"}, "glob of document files relative to DIR (repeatable)")
	f.StringVar(&projectFlags.id, "id", "", "project ID (default: directory name)")
	f.StringVar(&projectFlags.name, "name", "", "project name (default: project ID)")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if cmd.Flags().Changed("reload-rules") {
		a.cfg.Rules.Watch = watchFlags.reloadRules
	}
	if watchFlags.listen != "" {
		a.cfg.Telemetry.Metrics.ListenAddress = watchFlags.listen
	}
	format, err := cli.ParseOutputFormat(watchFlags.output)
	if err != nil {
		return err
	}

	pw := &projectWatcher{
		app:       a,
		dir:       args[0],
		out:       cmd.OutOrStdout(),
		formatter: cli.NewFormatter(format, noColor),
	}
	return pw.run(ctx)
}

// projectWatcher re-evaluates one project directory. Evaluations and rule
// reloads are serialized so reports are printed whole and in order.
type projectWatcher struct {
	app       *app
	dir       string
	out       io.Writer
	formatter cli.Formatter

	mu sync.Mutex
}

// evaluate runs one project evaluation and prints the report.
func (pw *projectWatcher) evaluate(ctx context.Context) error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	report, err := evaluateDir(ctx, pw.app, pw.dir, cli.NopProgress{})
	if err != nil {
		return err
	}
	return pw.formatter.FormatTo(pw.out, report)
}

// reload reloads the rule set and re-evaluates when its version changed.
func (pw *projectWatcher) reload(ctx context.Context) error {
	pw.mu.Lock()
	before := pw.app.store.Snapshot().Version()
	pw.app.loadRules(ctx)
	after := pw.app.store.Snapshot().Version()
	pw.mu.Unlock()

	if after == before {
		return nil
	}
	pw.app.logger.InfoContext(ctx, "rule set changed, re-evaluating", "version", after)
	return pw.evaluate(ctx)
}

func (pw *projectWatcher) run(ctx context.Context) error {
	a := pw.app
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if addr := a.cfg.Telemetry.Metrics.ListenAddress; addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           newServeMux(a),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			a.logger.Info("serving metrics and health", "address", addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if a.storage != nil {
		pruner := archive.NewPruner(a.storage, archive.RetentionFromConfig(a.cfg.Archive), a.logger)
		scheduler := archive.NewScheduler(pruner, a.logger)
		if err := scheduler.Start(gctx); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	if err := pw.evaluate(gctx); err != nil {
		return err
	}

	var watchers []*rules.FileWatcher
	defer func() {
		for _, w := range watchers {
			_ = w.Stop()
		}
	}()

	docWatcher, err := rules.NewFileWatcher(&rules.WatcherConfig{
		Path:             pw.dir,
		DebounceInterval: a.cfg.Rules.Debounce,
		SkipHidden:       true,
	}, a.logger)
	if err != nil {
		return err
	}
	watchers = append(watchers, docWatcher)
	g.Go(func() error {
		return docWatcher.Watch(gctx, func() error { return pw.evaluate(gctx) })
	})

	if path := a.cfg.Rules.Path; a.cfg.Rules.Watch && a.cfg.Rules.Source == "file" {
		if _, err := os.Stat(path); err != nil {
			a.logger.Warn("rule file not watched", "path", path, "error", err)
		} else {
			ruleWatcher, err := rules.NewFileWatcher(&rules.WatcherConfig{
				Path:             path,
				DebounceInterval: a.cfg.Rules.Debounce,
				Extensions:       rules.DefaultWatcherConfig().Extensions,
				SkipHidden:       true,
			}, a.logger)
			if err != nil {
				return err
			}
			watchers = append(watchers, ruleWatcher)
			g.Go(func() error {
				return ruleWatcher.Watch(gctx, func() error { return pw.reload(gctx) })
			})
		}
	}

	if a.git != nil && watchFlags.gitPoll > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(watchFlags.gitPoll)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if err := pw.reload(gctx); err != nil {
						a.logger.Error("re-evaluation after rule pull failed", "error", err)
					}
				}
			}
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newServeMux serves the metrics and health endpoints of the watch command.
func newServeMux(a *app) *http.ServeMux {
	checker := health.New(2 * time.Second)
	checker.Register("rules", health.RuleSetCheck(a.store))
	if a.storage != nil {
		checker.Register("archive", health.ArchiveCheck(a.storage))
	}

	mux := http.NewServeMux()
	if m := a.cfg.Telemetry.Metrics; m.Enabled {
		mux.Handle(m.Path, a.collector.Handler())
	}
	health.Register(mux, checker, Version, GitCommit, BuildDate)
	return mux
}
