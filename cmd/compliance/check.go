package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"mercator-hq/compliance/pkg/cli"
	"mercator-hq/compliance/pkg/engine"
	"mercator-hq/compliance/pkg/telemetry/logging"
)

var checkFlags struct {
	output  string
	id      string
	docType string
	meta    map[string]string
	failOn  string
}

var checkCmd = &cobra.Command{
	Use:   "check FILE...",
	Short: "Evaluate documents against the rule set",
	Long: `Evaluate the extracted text of one or more documents and print one
report per document.

Document metadata comes from the file (filename, size), an optional
FILE.meta.yaml sidecar and --meta, later sources overriding earlier ones.`,
	Example: `  compliance check contract.txt
  compliance check tender.txt --type tender --meta project_code=P-2024-017
  compliance check *.txt --output csv --fail-on violation`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkFlags.output, "output", "o", "text", "output format (text, json, csv)")
	checkCmd.Flags().StringVar(&checkFlags.id, "id", "", "document ID (single file only; default: filename without extension)")
	checkCmd.Flags().StringVar(&checkFlags.docType, "type", "", "document type, such as contract or tender")
	checkCmd.Flags().StringToStringVar(&checkFlags.meta, "meta", nil, "extra metadata as key=value pairs")
	checkCmd.Flags().StringVar(&checkFlags.failOn, "fail-on", "none", "exit with code 3 when a document is at or beyond this level")

	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return checkDocuments(ctx, a, cmd.OutOrStdout(), args)
}

// checkDocuments evaluates each file, prints the reports and applies the
// --fail-on threshold.
func checkDocuments(ctx context.Context, a *app, w io.Writer, paths []string) error {
	format, err := cli.ParseOutputFormat(checkFlags.output)
	if err != nil {
		return err
	}
	threshold, err := cli.ParseFailOn(checkFlags.failOn)
	if err != nil {
		return err
	}
	if checkFlags.id != "" && len(paths) > 1 {
		return cli.NewConfigError("id", "--id needs exactly one file")
	}

	overrides := make(map[string]string, len(checkFlags.meta)+1)
	for k, v := range checkFlags.meta {
		overrides[k] = v
	}
	if checkFlags.docType != "" {
		overrides[engine.MetaDocumentType] = checkFlags.docType
	}

	ctx = logging.WithRunID(ctx, uuid.NewString())
	reports := make([]*engine.DocumentReport, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, err := readDocument(path, checkFlags.id, overrides)
		if err != nil {
			return cli.NewCommandError("check", err)
		}

		report := a.engine.EvaluateDocument(logging.WithDocumentID(ctx, doc.ID()), doc)
		a.archiveDocument(ctx, report)
		reports = append(reports, report)
	}

	var out any = reports
	if len(reports) == 1 {
		out = reports[0]
	}
	if err := cli.NewFormatter(format, noColor).FormatTo(w, out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	var errs []error
	for _, r := range reports {
		errs = append(errs, cli.CheckThreshold(fmt.Sprintf("document %s", r.DocumentID), r.OverallCompliance, threshold))
	}
	return errors.Join(errs...)
}
