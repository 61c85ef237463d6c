package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cass-sched/cass/pkg/api"
)

func regionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regions",
		Short: "List catalog regions with their current carbon intensity",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutputFormat(); err != nil {
				return err
			}

			ctx := context.Background()
			var resp *api.RegionsResponse
			if remote() {
				resp = &api.RegionsResponse{}
				if err := newClient().do(ctx, "GET", "/api/v1/regions", nil, resp); err != nil {
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
				resp, err = api.Regions(ctx, c.Engine)
				if err != nil {
					return err
				}
			}

			if outputFormat == "json" {
				return outputJSON(resp)
			}
			printRegions(resp)
			return nil
		},
	}

	return cmd
}
