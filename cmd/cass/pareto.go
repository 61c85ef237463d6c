package main

import (
	"context"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/cass-sched/cass/pkg/api"
	"github.com/cass-sched/cass/pkg/scoring"
)

func paretoCmd() *cobra.Command {
	var x, y string

	cmd := &cobra.Command{
		Use:   "pareto",
		Short: "Show the Pareto frontier between two objectives",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutputFormat(); err != nil {
				return err
			}
			ox, err := scoring.ParseObjective(x)
			if err != nil {
				return err
			}
			oy, err := scoring.ParseObjective(y)
			if err != nil {
				return err
			}

			ctx := context.Background()
			var resp api.ParetoResponse
			if remote() {
				q := url.Values{"x": {ox.String()}, "y": {oy.String()}}
				if err := newClient().do(ctx, "GET", "/api/v1/pareto", q, &resp); err != nil {
					return err
				}
			} else {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				c, err := buildLocal(ctx, cfg, true)
				if err != nil {
					return err
				}
				defer c.Close()
				cands, _, err := c.Engine.Candidates(ctx)
				if err != nil {
					return err
				}
				resp = api.Pareto(cands, ox, oy)
			}

			if outputFormat == "json" {
				return outputJSON(resp)
			}
			printPareto(resp)
			return nil
		},
	}

	cmd.Flags().StringVar(&x, "x", "carbon", "First objective (carbon, latency, cost)")
	cmd.Flags().StringVar(&y, "y", "latency", "Second objective (carbon, latency, cost)")

	return cmd
}
