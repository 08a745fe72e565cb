package commands

import (
	"time"

	"github.com/spf13/cobra"

	"campus_bus/internal/fees"
)

func newMarkOverdueCmd() *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "mark-overdue",
		Short: "Mark pending fees past their due date as overdue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			today := time.Now()
			if asOf != "" {
				d, err := fees.ParseDate(asOf)
				if err != nil {
					return err
				}
				today = d
			}
			db, err := openDB()
			if err != nil {
				return err
			}
			n, err := fees.SweepOverdue(cmd.Context(), db, today)
			if err != nil {
				return err
			}
			cmd.Printf("%d fee records marked overdue.\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "treat this YYYY-MM-DD date as today")
	return cmd
}
