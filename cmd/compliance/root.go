package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/compliance/pkg/cli"
)

var (
	// Global flags
	cfgFile   string
	rulesPath string
	verbose   bool
	noColor   bool
)

var rootCmd = &cobra.Command{
	Use:   "compliance",
	Short: "Compliance rule engine for procurement documents",
	Long: `Compliance evaluates the extracted text of procurement documents against
a set of compliance rules (approval keywords, forbidden terms, mandatory
fields, naming and date formats) and reports a 0-100 score and a level
(compliant, warning, violation, critical) per document and per project.

Rules come from a YAML or JSON rule file, a Git repository, or the
built-in defaults.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return cli.ExitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: built-in defaults)")
	rootCmd.PersistentFlags().StringVarP(&rulesPath, "rules", "r", "", "rule file (overrides rules.source and rules.path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}
