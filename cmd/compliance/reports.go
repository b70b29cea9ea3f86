package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/compliance/pkg/archive"
	"mercator-hq/compliance/pkg/cli"
	"mercator-hq/compliance/pkg/rules"
)

var reportsFlags struct {
	output      string
	kind        string
	subject     string
	level       string
	since       string
	limit       int
	offset      int
	oldestFirst bool
	olderThan   int
}

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Browse and prune archived reports",
	Long: `Browse and prune the reports archived by check, project and watch.

The archive must be enabled in the config file (archive.enabled: true).`,
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived reports, newest first",
	Example: `  compliance reports list --kind project --limit 10
  compliance reports list --subject P-2024-017 --since 168h
  compliance reports list --level critical --since 2026-01-01 --output csv`,
	Args: cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, w io.Writer, _ []string) error {
		return listReports(ctx, a, w)
	}),
}

var reportsGetCmd = &cobra.Command{
	Use:   "get RECORD_ID",
	Short: "Print an archived report",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, w io.Writer, args []string) error {
		return getReport(ctx, a, w, args[0])
	}),
}

var reportsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete archived reports beyond the retention limits",
	Long: `Delete archived reports older than --older-than days, or, without the
flag, apply archive.retention_days and archive.max_records from the config.`,
	Args: cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, w io.Writer, _ []string) error {
		return pruneReports(ctx, a, w)
	}),
}

func init() {
	reportsCmd.PersistentFlags().StringVarP(&reportsFlags.output, "output", "o", "text", "output format (text, json, csv)")

	f := reportsListCmd.Flags()
	f.StringVar(&reportsFlags.kind, "kind", "", "only document or project reports")
	f.StringVar(&reportsFlags.subject, "subject", "", "only reports of this document or project ID")
	f.StringVar(&reportsFlags.level, "level", "", "only reports with this overall level")
	f.StringVar(&reportsFlags.since, "since", "", "only reports recorded after a date (2006-01-02) or within a duration (72h)")
	f.IntVar(&reportsFlags.limit, "limit", 50, "maximum number of reports (0 for all)")
	f.IntVar(&reportsFlags.offset, "offset", 0, "skip this many reports")
	f.BoolVar(&reportsFlags.oldestFirst, "oldest-first", false, "list oldest reports first")

	reportsPruneCmd.Flags().IntVar(&reportsFlags.olderThan, "older-than", 0, "delete reports older than this many days")

	reportsCmd.AddCommand(reportsListCmd, reportsGetCmd, reportsPruneCmd)
	rootCmd.AddCommand(reportsCmd)
}

// buildReportQuery turns the list flags into an archive query.
func buildReportQuery(now time.Time) (*archive.Query, error) {
	q := &archive.Query{
		SubjectID:   reportsFlags.subject,
		Limit:       reportsFlags.limit,
		Offset:      reportsFlags.offset,
		OldestFirst: reportsFlags.oldestFirst,
	}
	if reportsFlags.limit < 0 || reportsFlags.offset < 0 {
		return nil, cli.NewConfigError("limit", "--limit and --offset must not be negative")
	}

	switch k := archive.Kind(strings.ToLower(reportsFlags.kind)); k {
	case "", archive.KindDocument, archive.KindProject:
		q.Kind = k
	default:
		return nil, cli.NewConfigError("kind", fmt.Sprintf("unknown kind %q (want document or project)", reportsFlags.kind))
	}

	if reportsFlags.level != "" {
		l := rules.Level(strings.ToLower(reportsFlags.level))
		if !l.Valid() {
			return nil, cli.NewConfigError("level", fmt.Sprintf("unknown level %q", reportsFlags.level))
		}
		q.Level = l
	}

	if reportsFlags.since != "" {
		since, err := parseSince(reportsFlags.since, now)
		if err != nil {
			return nil, err
		}
		q.After = &since
	}
	return q, nil
}

// parseSince accepts a date, an RFC 3339 timestamp or a duration back from
// now.
func parseSince(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			d = -d
		}
		return now.Add(-d), nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, cli.NewConfigError("since", fmt.Sprintf("cannot parse %q as a date or duration", s))
}

func listReports(ctx context.Context, a *app, w io.Writer) error {
	storage, err := a.requireArchive()
	if err != nil {
		return err
	}
	q, err := buildReportQuery(time.Now())
	if err != nil {
		return err
	}

	records, err := storage.List(ctx, q)
	if err != nil {
		return err
	}
	return writeOutput(w, reportsFlags.output, records)
}

// getReport prints the report stored in a record, formatted like the
// output of the command that produced it.
func getReport(ctx context.Context, a *app, w io.Writer, id string) error {
	storage, err := a.requireArchive()
	if err != nil {
		return err
	}
	record, err := storage.Get(ctx, id)
	if err != nil {
		return err
	}

	var report any
	switch record.Kind {
	case archive.KindProject:
		report, err = record.ProjectReport()
	default:
		report, err = record.DocumentReport()
	}
	if err != nil {
		return err
	}
	return writeOutput(w, reportsFlags.output, report)
}

func pruneReports(ctx context.Context, a *app, w io.Writer) error {
	storage, err := a.requireArchive()
	if err != nil {
		return err
	}
	if reportsFlags.olderThan < 0 {
		return cli.NewConfigError("older-than", "--older-than must not be negative")
	}

	pruner := archive.NewPruner(storage, archive.RetentionFromConfig(a.cfg.Archive), a.logger)

	var deleted int64
	if reportsFlags.olderThan > 0 {
		cutoff := time.Now().AddDate(0, 0, -reportsFlags.olderThan)
		deleted, err = pruner.PruneOlderThan(ctx, cutoff)
	} else {
		deleted, err = pruner.Prune(ctx)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Pruned %d reports\n", deleted)
	return nil
}
