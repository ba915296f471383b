package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sims-enrollment-api/internal/service"
	"github.com/noah-isme/sims-enrollment-api/pkg/config"
	"github.com/noah-isme/sims-enrollment-api/pkg/timetable"
)

func newCatalogCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the day and period tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			catalog := service.BuildCatalog(cfg.Academic)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(catalog)
			}
			return printCatalog(cmd.OutOrStdout(), catalog)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func printCatalog(out io.Writer, catalog *service.Catalog) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tDAY\tABBR")
	for _, d := range catalog.Days {
		fmt.Fprintf(w, "%d\t%s\t%s\n", d.Code, d.Name, d.Abbreviation)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "PERIOD\tSTART\tEND\tSESSION")
	for _, p := range catalog.Periods {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.Number, p.Start, p.End, timetable.Session(p.Number))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "current period\t%s %s\n", catalog.CurrentSemester, catalog.CurrentAcademicYear)
	return w.Flush()
}
