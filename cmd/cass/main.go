package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath   string
	serverAddr   string
	authToken    string
	outputFormat string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cass",
		Short: "Carbon-aware region scheduler CLI",
		Long: `cass picks the region with the lowest carbon footprint (optionally balanced
against latency and cost) and dispatches work there.

Commands run locally from --config unless --server points at a running
scheduler, in which case they query its API.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CASS_CONFIG"), "Path to configuration file (env: CASS_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", os.Getenv("CASS_SERVER"), "Scheduler API address, e.g. http://localhost:8080 (env: CASS_SERVER)")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("CASS_AUTH_TOKEN"), "API bearer token (env: CASS_AUTH_TOKEN)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, json)")

	rootCmd.AddCommand(decideCmd())
	rootCmd.AddCommand(paretoCmd())
	rootCmd.AddCommand(tickCmd())
	rootCmd.AddCommand(regionsCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func checkOutputFormat() error {
	switch outputFormat {
	case "table", "json":
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}
