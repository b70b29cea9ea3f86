package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/compliance/pkg/cli"
	"mercator-hq/compliance/pkg/rules"
)

var rulesFlags struct {
	output   string
	category string
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect, export and validate rule sets",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the active rules",
	Example: `  compliance rules list
  compliance rules list --category legal --output csv`,
	Args: cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, w io.Writer, _ []string) error {
		return listRules(a, w)
	}),
}

var rulesShowCmd = &cobra.Command{
	Use:   "show RULE_ID",
	Short: "Show one rule",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, w io.Writer, args []string) error {
		return showRule(a, w, args[0])
	}),
}

var rulesStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show rule counts per category",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, w io.Writer, _ []string) error {
		return writeOutput(w, rulesFlags.output, a.store.Statistics())
	}),
}

var rulesExportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Write the active rule set to a rule file",
	Long: `Write the active rule set to FILE. A .json extension writes JSON,
anything else YAML. Exporting with no rule file configured writes the
built-in defaults, a starting point for a custom rule file.`,
	Example: `  compliance rules export rules.yaml
  compliance --rules old.json rules export new.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, w io.Writer, args []string) error {
		if err := a.store.Save(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(w, "Exported %d rules to %s\n", a.store.Snapshot().Len(), args[0])
		return nil
	}),
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Check a rule file without loading it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateRuleFile(cmd.OutOrStdout(), args[0])
	},
}

func init() {
	rulesCmd.PersistentFlags().StringVarP(&rulesFlags.output, "output", "o", "text", "output format (text, json, csv)")
	rulesListCmd.Flags().StringVar(&rulesFlags.category, "category", "", "only list rules of this category")

	rulesCmd.AddCommand(rulesListCmd, rulesShowCmd, rulesStatsCmd, rulesExportCmd, rulesValidateCmd)
	rootCmd.AddCommand(rulesCmd)
}

// withApp adapts a function needing the shared components to a cobra RunE.
func withApp(fn func(ctx context.Context, a *app, w io.Writer, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := cli.SignalContext(cmd.Context())
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		return fn(ctx, a, cmd.OutOrStdout(), args)
	}
}

func writeOutput(w io.Writer, output string, data any) error {
	format, err := cli.ParseOutputFormat(output)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format, noColor).FormatTo(w, data)
}

func listRules(a *app, w io.Writer) error {
	list := a.store.Rules()
	if rulesFlags.category != "" {
		c := rules.Category(strings.ToLower(rulesFlags.category))
		if !c.Valid() {
			return cli.NewConfigError("category", fmt.Sprintf("unknown category %q (want one of %v)", rulesFlags.category, rules.Categories()))
		}
		list = a.store.ByCategory(c)
	}
	return writeOutput(w, rulesFlags.output, list)
}

func showRule(a *app, w io.Writer, id string) error {
	r, err := a.store.Get(id)
	if err != nil {
		return fmt.Errorf("%w: %s", err, id)
	}
	if rulesFlags.output == string(cli.FormatJSON) {
		return writeOutput(w, rulesFlags.output, r)
	}
	return writeOutput(w, rulesFlags.output, []*rules.Rule{r})
}

// validateRuleFile decodes and validates path and reports every invalid
// record at once.
func validateRuleFile(w io.Writer, path string) error {
	f, err := rules.ReadFile(path)
	if err != nil {
		return err
	}
	list, err := f.ToRules()
	if err != nil {
		return fmt.Errorf("%s is invalid: %w", path, err)
	}
	fmt.Fprintf(w, "%s: %d rules, schema version %s\n", path, len(list), f.SchemaVersion)
	return nil
}
