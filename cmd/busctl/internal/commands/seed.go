package commands

import (
	"os"

	"github.com/spf13/cobra"

	"campus_bus/internal/config"
	"campus_bus/internal/seed"
)

func newSeedCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "seed FILE",
		Short: "Load routes, stops, schedules and accounts from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fh, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer fh.Close()

			f, err := seed.Parse(fh)
			if err != nil {
				return err
			}
			db, err := openDB()
			if err != nil {
				return err
			}
			if migrate {
				if err := config.Migrate(db); err != nil {
					return err
				}
			}
			res, err := seed.Apply(cmd.Context(), db, f)
			if err != nil {
				return err
			}
			cmd.Printf("Seeded %d routes, %d stops, %d schedules, %d accounts (%d existing skipped).\n",
				res.Routes, res.Stops, res.Schedules, res.Accounts, res.SkippedAccounts)
			return nil
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "migrate the schema first")
	return cmd
}
