package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/codelynx/kronoa/internal/kronometrics"
)

var metricsAddr string

var metricsCmd = &cobra.Command{
	Use:   "serve-metrics",
	Short: "Serve Prometheus metrics for the lease, stage, and GC counters",
	Long: `serve-metrics starts a standalone /metrics endpoint. It is only
useful alongside a long-running caller that keeps issuing stage/
deploy/gc calls against the same process — kronoa's own subcommands
each exit after one operation, so this is meant to be run next to a
library embedder, not a one-shot CLI invocation.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		http.Handle("/metrics", kronometrics.Handler())
		fmt.Printf("metrics endpoint: http://%s/metrics\n", metricsAddr)
		return http.ListenAndServe(metricsAddr, nil)
	},
}

func init() {
	metricsCmd.Flags().StringVar(&metricsAddr, "addr", "127.0.0.1:9090", "address to serve /metrics on")
	rootCmd.AddCommand(metricsCmd)
}
