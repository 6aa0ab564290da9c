package cmd

import (
	"fmt"

	"github.com/apex/log"
	"github.com/spf13/cobra"
	"photo-studio-backend/internal/database"
	"photo-studio-backend/internal/logging"
)

var (
	migrateDatabaseURL string
	migrateDryRun      bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations.",
	RunE: func(cmd *cobra.Command, args []string) error {
		level := envOr("", "LOG_LEVEL")
		if level == "" {
			level = "info"
		}
		if err := logging.Setup(cmd.ErrOrStderr(), level, "text"); err != nil {
			return err
		}

		dbURL := envOr(migrateDatabaseURL, "DATABASE_URL")
		if dbURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}

		migrator, err := database.NewMigrator(dbURL)
		if err != nil {
			return err
		}
		defer migrator.Close()

		if migrateDryRun {
			pending, err := migrator.Pending(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range pending {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		}

		if err := migrator.Run(cmd.Context()); err != nil {
			return err
		}
		log.Info("migrations completed successfully")
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateDatabaseURL, "database-url", "", "PostgreSQL connection string (default $DATABASE_URL)")
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "list pending migrations without applying them")
}
