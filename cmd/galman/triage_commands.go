package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"galman/internal/importer"
	"galman/internal/review"
	"galman/internal/triage"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "import -s SOURCE",
		Short: "Copy new files from a directory into the airlock without reviewing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if source == "" {
				return fmt.Errorf("import source is required (-s)")
			}
			return runTriage(cmd, ctx, source, true)
		},
	}
	cmd.Flags().StringVarP(&source, "source", "s", "", "Directory to import from")
	return cmd
}

func newReviewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "Review the files waiting in the airlock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTriage(cmd, ctx, "", false)
		},
	}
}

func newViewCommand(ctx *commandContext) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Play the gallery as a shuffled slideshow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.sessionLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			runCtx, cancel := signalContext(cmd)
			defer cancel()
			return triage.View(runCtx, cfg, triage.ViewOptions{Interval: interval, Logger: logger})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "Time each file is shown (default from config)")
	return cmd
}

func runTriage(cmd *cobra.Command, ctx *commandContext, source string, importOnly bool) error {
	cfg, logger, err := ctx.sessionLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	runCtx, cancel := signalContext(cmd)
	defer cancel()

	report, err := triage.Run(runCtx, cfg, triage.Options{
		Source:     source,
		ImportOnly: importOnly,
		Logger:     logger,
	})
	out := cmd.OutOrStdout()
	printReport(out, report)
	if err != nil {
		return err
	}
	if ctx.logPath != "" {
		fmt.Fprintf(out, "Log: %s\n", ctx.logPath)
	}
	return nil
}

func printReport(out io.Writer, report triage.Report) {
	if report.Import != nil {
		printImport(out, report.Import)
		if report.Interrupted {
			fmt.Fprintln(out, "Import interrupted; run again to pick up the rest")
		}
	}
	if report.Review != nil {
		printReview(out, report.Review)
	}
}

func printImport(out io.Writer, result *importer.Result) {
	fmt.Fprintf(out, "Imported %d new %s (%s); %d already decided, %d duplicates, %d ignored, %d failed\n",
		result.Imported,
		plural(result.Imported, "file", "files"),
		humanize.IBytes(uint64(result.ImportedBytes)),
		result.Known,
		result.Duplicates,
		result.Ignored,
		len(result.Failed),
	)
	for _, failure := range result.Failed {
		fmt.Fprintf(out, "  failed: %s: %v\n", failure.Path, failure.Err)
	}
}

func printReview(out io.Writer, summary *review.Summary) {
	if summary.Total == 0 {
		fmt.Fprintln(out, "Airlock is empty; nothing to review")
		return
	}
	fmt.Fprintf(out, "Review %s: %d accepted, %d rejected, %d failed, %d remaining (of %d)\n",
		summary.Outcome,
		summary.Accepted,
		summary.Rejected+summary.AlreadyRejected,
		len(summary.Failed),
		summary.Remaining,
		summary.Total,
	)
	for _, failure := range summary.Failed {
		fmt.Fprintf(out, "  %s failed: %s: %v\n", failure.Verdict, failure.Path, failure.Err)
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
