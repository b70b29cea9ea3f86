package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"mercator-hq/compliance/pkg/cli"
	"mercator-hq/compliance/pkg/engine"
	"mercator-hq/compliance/pkg/telemetry/logging"
)

var projectFlags struct {
	output   string
	id       string
	name     string
	include  []string
	progress bool
	failOn   string
}

var projectCmd = &cobra.Command{
	Use:   "project DIR",
	Short: "Evaluate every document of a project directory",
	Long: `Evaluate all document text files below DIR as one project and print the
aggregated project report.

Every document is scored against the same rule set version, also when the
rule file changes during the run.`,
	Example: `  compliance project ./P-2024-017
  compliance project ./P-2024-017 --include "contracts/**/*.txt" --include "*.md"
  compliance project ./P-2024-017 --name "Road maintenance 2024" --fail-on violation`,
	Args: cobra.ExactArgs(1),
	RunE: runProject,
}

func init() {
	projectCmd.Flags().StringVarP(&projectFlags.output, "output", "o", "text", "output format (text, json, csv)")
	projectCmd.Flags().StringVar(&projectFlags.id, "id", "", "project ID (default: directory name)")
	projectCmd.Flags().StringVar(&projectFlags.name, "name", "", "project name (default: project ID)")
	projectCmd.Flags().StringSliceVar(&projectFlags.include, "include", []string{"**/*.txt"}, "glob of document files relative to DIR (repeatable)")
	projectCmd.Flags().BoolVar(&projectFlags.progress, "progress", false, "show a progress bar while reading documents")
	projectCmd.Flags().StringVar(&projectFlags.failOn, "fail-on", "none", "exit with code 3 when the project is at or beyond this level")

	rootCmd.AddCommand(projectCmd)
}

func runProject(cmd *cobra.Command, args []string) error {
	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return evaluateProject(ctx, a, cmd.OutOrStdout(), args[0])
}

// projectIdentity returns the project ID and name for dir.
func projectIdentity(dir, id, name string) (string, string) {
	if id == "" {
		if abs, err := filepath.Abs(dir); err == nil {
			id = filepath.Base(abs)
		} else {
			id = filepath.Base(dir)
		}
	}
	if name == "" {
		name = id
	}
	return id, name
}

func evaluateProject(ctx context.Context, a *app, w io.Writer, dir string) error {
	format, err := cli.ParseOutputFormat(projectFlags.output)
	if err != nil {
		return err
	}
	threshold, err := cli.ParseFailOn(projectFlags.failOn)
	if err != nil {
		return err
	}

	var progress cli.ProgressReporter = cli.NopProgress{}
	if projectFlags.progress {
		progress = cli.NewProgressReporter(nil, "documents")
	}

	report, err := evaluateDir(ctx, a, dir, progress)
	if err != nil {
		return cli.NewCommandError("project", err)
	}

	if err := cli.NewFormatter(format, noColor).FormatTo(w, report); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return cli.CheckThreshold(fmt.Sprintf("project %s", report.ProjectID), report.OverallCompliance, threshold)
}

// evaluateDir reads, evaluates and archives dir with the project flags in
// place. The watch command calls it on every change.
func evaluateDir(ctx context.Context, a *app, dir string, progress cli.ProgressReporter) (*engine.ProjectReport, error) {
	docs, err := readProject(dir, projectFlags.include, progress)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		a.logger.Warn("no documents matched", "dir", dir, "include", projectFlags.include)
	}

	id, name := projectIdentity(dir, projectFlags.id, projectFlags.name)
	ctx = logging.WithProjectID(logging.WithRunID(ctx, uuid.NewString()), id)

	report := a.engine.EvaluateProject(ctx, id, name, docs)
	a.archiveProject(ctx, report)
	return report, nil
}
