package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var (
		configFlag     string
		logLevelFlag   string
		collectionFlag string
		sourceFlag     string
	)

	ctx := newCommandContext(&configFlag, &logLevelFlag, &collectionFlag)

	rootCmd := &cobra.Command{
		Use:   "galman [-c collection] [-s source]",
		Short: "Triage media files into a gallery",
		Long: "galman imports new media into a collection's airlock and presents each file in mpv\n" +
			"for a keep or reject decision. Decided files are never shown again.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTriage(cmd, ctx, sourceFlag, false)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override the configured log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&collectionFlag, "collection", "c", "", "Collection root directory")
	rootCmd.Flags().StringVarP(&sourceFlag, "source", "s", "", "Import new files from this directory before reviewing")

	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newReviewCommand(ctx))
	rootCmd.AddCommand(newViewCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
