package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"galman/internal/collection"
	"galman/internal/config"
	"galman/internal/faults"
	"galman/internal/logging"
	"galman/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show collection partitions and readiness checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireCollection(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return renderStatus(cmd.Context(), out, cfg, shouldColorize(out))
		},
	}
}

func renderStatus(ctx context.Context, out io.Writer, cfg *config.Config, colorize bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	layout := collection.NewLayout(cfg.Collection.Path, collection.NamesFromConfig(cfg))

	for _, line := range renderSectionHeader("Checks", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, result := range preflight.RunAll(ctx, cfg) {
		kind := statusOK
		if !result.Passed {
			kind = statusError
			if result.Name == preflight.NameFreeSpace {
				kind = statusWarn
			}
		}
		fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}

	state, err := preflight.InspectSession(layout.LockPath())
	sessionKind := statusInfo
	sessionDetail := state.Detail()
	if err != nil {
		sessionKind, sessionDetail = statusWarn, err.Error()
	}
	fmt.Fprintln(out, renderStatusLine("Session", sessionKind, sessionDetail, colorize))
	fmt.Fprintln(out)

	stats, decisionsKnown, err := collectStats(ctx, cfg, layout, state.Active)
	if err != nil {
		return err
	}

	for _, line := range renderSectionHeader("Collection "+layout.Root, colorize) {
		fmt.Fprintln(out, line)
	}
	rows := [][]string{
		partitionRow("Airlock (pending)", stats.Airlock, true),
		partitionRow("Gallery", stats.Gallery, true),
		partitionRow("Accepted (recorded)", stats.Accepted, decisionsKnown),
		partitionRow("Rejected (recorded)", stats.Rejected, decisionsKnown),
	}
	fmt.Fprintln(out, renderTable([]string{"Partition", "Files", "Size"}, rows, []columnAlignment{alignLeft, alignRight, alignRight}))
	if !decisionsKnown {
		fmt.Fprintln(out, "Decision counts unavailable while a review session holds the collection.")
	}
	return nil
}

// collectStats opens the collection when no session holds it; otherwise only
// the directories are counted.
func collectStats(ctx context.Context, cfg *config.Config, layout collection.Layout, busy bool) (collection.Stats, bool, error) {
	var stats collection.Stats
	if !busy {
		store, err := collection.Open(ctx, cfg.Collection.Path, collection.Options{
			Names:  collection.NamesFromConfig(cfg),
			Logger: logging.NewNop(),
		})
		if err == nil {
			defer store.Close()
			stats, err = store.Stats(ctx)
			return stats, err == nil, err
		}
		if !errors.Is(err, faults.ErrCollectionBusy) {
			return stats, false, err
		}
	}
	var err error
	stats.Airlock, stats.Gallery, err = layout.CountFiles(ctx)
	return stats, false, err
}

func partitionRow(label string, part collection.PartitionStats, known bool) []string {
	if !known {
		return []string{label, "-", "-"}
	}
	return []string{label, strconv.FormatInt(part.Files, 10), humanize.IBytes(uint64(part.Bytes))}
}
