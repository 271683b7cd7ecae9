package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/offerwatch/offerwatch/pkg/store"
)

func newStatusCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent worker runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.StatePath)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.RecentRuns(context.Background(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded yet")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Started", "Status", "Duration", "Checked", "Alerted", "Skipped", "Errors"})
			for _, run := range runs {
				duration := "-"
				if !run.CompletedAt.IsZero() {
					duration = run.CompletedAt.Sub(run.StartedAt).Round(100 * time.Millisecond).String()
				}
				t.AppendRow(table.Row{
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					run.Status,
					duration,
					run.Checked,
					run.Alerted,
					run.SkippedEnded,
					run.Errors,
				})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to show")
	return cmd
}
