package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/cass-sched/cass/pkg/api"
	"github.com/cass-sched/cass/pkg/decisionlog"
)

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent decisions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutputFormat(); err != nil {
				return err
			}
			if limit < 1 {
				return fmt.Errorf("--limit must be positive")
			}

			ctx := context.Background()
			var records []decisionlog.Record
			if remote() {
				var resp api.DecisionsResponse
				q := url.Values{"limit": {strconv.Itoa(limit)}}
				if err := newClient().do(ctx, "GET", "/api/v1/decisions", q, &resp); err != nil {
					return err
				}
				records = resp.Decisions
			} else {
				log, err := openLog(ctx)
				if err != nil {
					return err
				}
				defer log.Close()
				records, err = log.Recent(ctx, limit)
				if err != nil {
					return err
				}
			}

			if outputFormat == "json" {
				return outputJSON(records)
			}
			if len(records) == 0 {
				fmt.Println("No decisions recorded")
				return nil
			}
			printHistory(records)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of decisions to show")

	return cmd
}

func statsCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize recent decisions and carbon savings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutputFormat(); err != nil {
				return err
			}
			if days < 1 {
				return fmt.Errorf("--days must be positive")
			}

			ctx := context.Background()
			var resp *api.StatsResponse
			if remote() {
				resp = &api.StatsResponse{}
				q := url.Values{"days": {strconv.Itoa(days)}}
				if err := newClient().do(ctx, "GET", "/api/v1/stats", q, resp); err != nil {
					return err
				}
			} else {
				log, err := openLog(ctx)
				if err != nil {
					return err
				}
				defer log.Close()
				resp, err = api.Stats(ctx, log, time.Now(), days)
				if err != nil {
					return err
				}
			}

			if outputFormat == "json" {
				return outputJSON(resp)
			}
			printStats(resp)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Number of days to summarize")

	return cmd
}

// openLog opens the configured decision log. Only a shared backend such as
// Redis has history outside a running scheduler.
func openLog(ctx context.Context) (decisionlog.Log, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	dl := cfg.DecisionLog
	if dl.Backend != "redis" {
		return nil, fmt.Errorf("the %s decision log lives inside the scheduler; pass --server or configure decision_log.backend: redis", dl.Backend)
	}
	var password string
	if dl.RedisPasswordEnv != "" {
		password = os.Getenv(dl.RedisPasswordEnv)
	}
	return decisionlog.NewRedisLog(ctx, decisionlog.RedisConfig{
		Addr:       dl.RedisAddr,
		Password:   password,
		DB:         dl.RedisDB,
		Key:        dl.Key,
		MaxEntries: dl.MaxEntries,
	})
}
