package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cass-sched/cass/pkg/decision"
)

func decideCmd() *cobra.Command {
	var mode, filter string

	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Pick a region from current carbon data without dispatching",
		Long: `Fetch carbon intensity for every catalog region and print the region the
scheduler would pick. Nothing is dispatched or logged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutputFormat(); err != nil {
				return err
			}
			if remote() {
				return fmt.Errorf("decide runs locally; use 'cass tick' against a server")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if mode != "" {
				m, err := decision.ParseMode(mode)
				if err != nil {
					return err
				}
				cfg.Mode = string(m)
			}
			if filter != "" {
				cfg.CandidateFilter = filter
			}

			ctx := context.Background()
			c, err := buildLocal(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer c.Close()

			d, err := c.Engine.Decide(ctx)
			if err != nil {
				return fmt.Errorf("failed to decide: %w", err)
			}

			if outputFormat == "json" {
				return outputJSON(d)
			}
			printDecision(d)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Selection mode (single, multi); overrides the config")
	cmd.Flags().StringVar(&filter, "filter", "", "CEL candidate filter, e.g. 'candidate.latency_ms < 200'")

	return cmd
}
