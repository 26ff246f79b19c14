package commands

import (
	"fmt"
	"os"

	"portfolio/internal/config"
	"portfolio/internal/logging"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "portfolioctl",
	Short: "Operate the portfolio site from the terminal",
	Long: `portfolioctl manages a portfolio deployment.

Commands:
  migrate      - Create or update the database schema
  import-feed  - Import blog posts from an RSS/Atom feed
  tail         - Follow the live guestbook`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		logging.Init(logging.Config{Level: level, Pretty: true, ServiceName: "portfolioctl"})
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
