/*
Package cli provides the output formatting and error conventions shared by
the compliance command.

Output Formatting:

Reports, rule lists, rule statistics and archive listings can be written as
text (colored by compliance level), JSON or CSV:

	format, err := cli.ParseOutputFormat(flagOutput)
	if err != nil {
		return err
	}
	if err := cli.NewFormatter(format, noColor).FormatTo(os.Stdout, report); err != nil {
		return err
	}

Exit Codes:

Commands return errors; main maps them with ExitCode. A *ThresholdError
(report at or beyond --fail-on) exits with ExitThreshold so CI jobs can
gate on compliance, and a *ConfigError exits with ExitUsage.

Progress Reporting:

	progress := cli.NewProgressReporter(os.Stderr, "files")
	progress.Start(int64(len(paths)))
	for range paths {
		progress.Increment()
	}
	progress.Finish()

Signal Handling:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
*/
package cli
