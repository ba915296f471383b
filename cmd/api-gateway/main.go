package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// @title SIMS Enrollment API
// @version 1.0.0
// @description Section scheduling, enrollment assignment and grade evaluation.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "api-gateway",
		Short:         "Enrollment and timetable coordination service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand(), newCatalogCommand(), newTokenCommand())
	return root
}
