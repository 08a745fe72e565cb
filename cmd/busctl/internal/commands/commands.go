// Package commands holds the busctl sub-commands.
package commands

import (
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"campus_bus/internal/config"
	"campus_bus/internal/logger"
)

// Register adds every sub-command to root.
func Register(root *cobra.Command) {
	root.AddCommand(
		newMigrateCmd(),
		newCreateAccountCmd(),
		newSeedCmd(),
		newMarkOverdueCmd(),
		newCheckDriverCmd(),
	)
}

// openDB loads settings, configures logging and opens the database.
func openDB() (*gorm.DB, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Setup(logger.Options{File: settings.LogFile, Level: settings.LogLevel, Stdout: true})
	return config.OpenDB(settings)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update every table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			if err := config.Migrate(db); err != nil {
				return err
			}
			cmd.Println("Migration complete.")
			return nil
		},
	}
}
