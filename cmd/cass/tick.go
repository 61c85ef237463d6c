package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cass-sched/cass/pkg/scheduler"
)

func tickCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one scheduling tick: decide, dispatch and record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutputFormat(); err != nil {
				return err
			}

			ctx := context.Background()
			var res scheduler.TickResult
			var tickErr error
			if remote() {
				if dryRun {
					return fmt.Errorf("--dry-run is only supported locally")
				}
				tickErr = newClient().do(ctx, "POST", "/api/v1/tick", nil, &res)
			} else {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				c, err := buildLocal(ctx, cfg, dryRun)
				if err != nil {
					return err
				}
				defer c.Close()

				r, err := c.Scheduler.Tick(ctx)
				if r != nil {
					res = *r
				}
				tickErr = err
			}

			if outputFormat == "json" {
				if err := outputJSON(res); err != nil {
					return err
				}
			} else {
				printTick(&res)
			}
			return tickErr
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Decide and record without dispatching")

	return cmd
}
