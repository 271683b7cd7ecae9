package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/offerwatch/offerwatch/pkg/scrape"
)

// defaultConfigTree is the nested shape written by `offerwatch init`.
// Secrets are left empty on purpose: set them via OFFERWATCH_SMTP__USERNAME
// and OFFERWATCH_SMTP__PASSWORD instead of the file.
func defaultConfigTree() map[string]interface{} {
	return map[string]interface{}{
		"watch_dir":      ".",
		"include":        "*.txt",
		"state_path":     "offerwatch.db",
		"fetcher":        "browser",
		"headless":       true,
		"install_driver": false,
		"offer_url":      scrape.DefaultOfferURLTemplate,
		"interval":       "15m",
		"heartbeat":      "60s",
		"batch_size":     25,
		"concurrency":    1,
		"max_per_run":    0,
		"base_delay":     "800ms",
		"jitter":         "800ms",
		"backoff_start":  "5s",
		"backoff_max":    "15m",
		"recheck_ended":  "72h",
		"alerts_enabled": true,
		"smtp": map[string]interface{}{
			"host":      "smtp.gmail.com",
			"port":      587,
			"username":  "",
			"password":  "",
			"from":      "",
			"from_name": "Offer Watch",
			"to":        []string{},
		},
	}
}

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default offerwatch.yaml to the working directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			const path = "offerwatch.yaml"
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
			}

			data, err := yaml.Marshal(defaultConfigTree())
			if err != nil {
				return fmt.Errorf("failed to render config: %w", err)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}
