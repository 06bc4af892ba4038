package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"seiir/internal/logging"
	"seiir/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var runID string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log output",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
			match := logs.MatchRun(runID)
			out := cmd.OutOrStdout()

			result, err := logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: -1, Limit: lines, Match: match})
			if err != nil {
				return err
			}
			for _, line := range result.Lines {
				fmt.Fprintln(out, line)
			}

			offset := result.Offset
			for follow {
				next, err := logs.Tail(cmd.Context(), path, logs.TailOptions{
					Offset: offset,
					Match:  match,
					Follow: true,
					Wait:   time.Second,
				})
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
				for _, line := range next.Lines {
					fmt.Fprintln(out, line)
				}
				offset = next.Offset
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVar(&runID, "run", "", "Only show lines from this ledger run id")
	return cmd
}
