package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"campus_bus/internal/accounts"
	"campus_bus/internal/models"
)

func newCreateAccountCmd() *cobra.Command {
	var (
		in    accounts.NewAccount
		route string
	)
	cmd := &cobra.Command{
		Use:   "create-account",
		Short: "Create an account with its role and profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if route != "" {
				var r models.Route
				if err := db.WithContext(ctx).Where("name = ?", route).First(&r).Error; err != nil {
					return fmt.Errorf("route %q: %w", route, err)
				}
				in.RouteID = &r.ID
			}
			user, err := accounts.Create(ctx, db, in)
			if err != nil {
				return err
			}
			cmd.Printf("Created %s account %q (id %d).\n", user.Role, user.Username, user.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Username, "username", "", "login name")
	f.StringVar(&in.Password, "password", "", "password")
	f.StringVar(&in.Role, "role", "student", "student, driver or admin")
	f.StringVar(&in.Name, "name", "", "display name")
	f.StringVar(&in.Email, "email", "", "email address")
	f.BoolVar(&in.IsSuperuser, "superuser", false, "grant superuser")
	f.StringVar(&in.Phone, "phone", "", "phone number")
	f.StringVar(&in.HallTicket, "hall-ticket", "", "student hall ticket (defaults to username)")
	f.StringVar(&in.LicenseNumber, "license", "", "driver licence number")
	f.StringVar(&route, "route", "", "route name to assign")
	f.BoolVar(&in.IsVerified, "verified", false, "mark the profile verified")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newCheckDriverCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "check-driver USERNAME",
		Short: "Verify that a driver account can log in and push locations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			report, err := accounts.CheckDriver(cmd.Context(), db, args[0], password)
			if err != nil {
				return err
			}
			for _, c := range report.Checks {
				mark := "ok  "
				if !c.OK {
					mark = "FAIL"
				}
				cmd.Printf("[%s] %-15s %s\n", mark, c.Name, c.Detail)
			}
			if !report.Ready() {
				return fmt.Errorf("driver %q is not ready", args[0])
			}
			cmd.Println("Driver login should land on /driver-tracker/.")
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "also check this password")
	return cmd
}
