package commands

import (
	"portfolio/cmd/portfolioctl/output"
	"portfolio/internal/db"

	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Apply the schema for every model and seed the default tags.

Uses the same DB_DRIVER / DATABASE_URL / DB_FILE_PATH settings as the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		conn, err := db.Open(cfg.Database)
		if err != nil {
			return err
		}
		if err := db.Migrate(conn); err != nil {
			return err
		}

		output.Success("schema is up to date (%s)", cfg.Database.Driver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
