package main

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/i474232898/solar-fits-dashboard/internal/config"
	"github.com/i474232898/solar-fits-dashboard/internal/upstream"
)

var rootCmd = &cobra.Command{
	Use:   "solar-dashboard",
	Short: "Browse solar FITS observations by year",
	Long: "solar-dashboard serves a browser dashboard over a FITS data service: it lists years and files, " +
		"fetches per-file statistics and images on demand, and aggregates trends per year.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().String("upstream", "", "base URL of the FITS data service (overrides UPSTREAM_BASE_URL)")
	rootCmd.AddCommand(serveCmd, inspectCmd)
}

// loadConfig reads the environment and applies persistent flag overrides.
func loadConfig(cmd *cobra.Command) (*config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if u, _ := cmd.Flags().GetString("upstream"); u != "" {
		cfg.UpstreamBaseURL = u
	}
	return cfg, nil
}

func newUpstreamClient(cfg *config.AppConfig) *upstream.Client {
	// Shared HTTP client for outbound data-service calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	return upstream.NewClient(cfg.UpstreamBaseURL, httpClient, cfg.UpstreamMaxRetries)
}
