package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/offerwatch/offerwatch/pkg/config"
	"github.com/offerwatch/offerwatch/pkg/watchlist"
)

// watchlistOptions maps config to watchlist loader options.
func watchlistOptions(cfg *config.Config) watchlist.Options {
	return watchlist.Options{
		Dir:        cfg.WatchDir,
		TargetFile: cfg.TargetFile,
		Include:    cfg.Include,
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the parsed watchlist entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			entries, parseErrs, err := watchlist.Load(watchlistOptions(cfg))
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Product", "Offer ID", "Min price", "Source"})
			for _, e := range entries {
				t.AppendRow(table.Row{
					e.Product,
					e.OfferID,
					fmt.Sprintf("%.2f zł", e.MinPrice),
					fmt.Sprintf("%s:%d", e.File, e.Line),
				})
			}
			t.Render()

			fmt.Fprintf(cmd.OutOrStdout(), "%d entries\n", len(entries))
			for _, perr := range parseErrs {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", perr)
			}
			return nil
		},
	}
}
