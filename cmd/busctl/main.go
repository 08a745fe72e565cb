// Command busctl runs administrative tasks against the campus bus database.
package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"campus_bus/cmd/busctl/internal/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "busctl",
		Short:         "Campus bus administration tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	commands.Register(rootCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logrus.Errorf("Error: %v", err)
		os.Exit(1)
	}
}
