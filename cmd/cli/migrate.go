package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/axellelanca/shortlinks/cmd"
	"github.com/axellelanca/shortlinks/internal/repository"
)

// MigrateCmd represents the 'migrate' command
// This command handles database schema creation and updates
var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Executes database migrations to create or update the links table.",
	Long: `This command connects to the configured SQLite database and runs the GORM
automatic migration for the links table. The memory and redis drivers have no
schema, so the command does nothing for them.`,
	Args: cobra.NoArgs,
	RunE: func(c *cobra.Command, args []string) error {
		if cmd.Cfg.Database.Driver != "sqlite" {
			fmt.Fprintf(c.OutOrStdout(), "Nothing to migrate for driver %q.\n", cmd.Cfg.Database.Driver)
			return nil
		}

		// OpenSQLite already migrates; running it again reports schema errors explicitly.
		repo, err := repository.OpenSQLite(cmd.Cfg.Database.Name)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer repo.Close()

		if err := repo.Migrate(); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}

		fmt.Fprintln(c.OutOrStdout(), "Database migrations executed successfully.")
		return nil
	},
}

func init() {
	cmd.RootCmd.AddCommand(MigrateCmd)
}
