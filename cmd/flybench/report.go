package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/torosent/flybench/internal/output"
	"github.com/torosent/flybench/internal/store"
)

func newReportCommand() *cobra.Command {
	var (
		format   string
		sortKey  string
		desc     bool
		htmlPath string
		quiet    bool
	)
	cmd := &cobra.Command{
		Use:   "report FILE",
		Short: "Summarize every run in a results file",
		Example: `  flybench report benchmark_results.json
  flybench report benchmark_results.json --sort metrics.requests_per_second --desc
  flybench report benchmark_results.json --format markdown --html report.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			file, err := store.ReadFile(args[0])
			if err != nil {
				return err
			}
			if n := file.Skipped(); n > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %d result entries could not be decoded and are not shown\n", n)
			}
			if !quiet {
				opts := output.SummaryOptions{Format: f, SortKey: sortKey, Descending: desc}
				if err := output.PrintSummaryTable(cmd.OutOrStdout(), file, opts); err != nil {
					return err
				}
			}
			if htmlPath != "" {
				if err := writeHTMLReport(htmlPath, file); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "HTML report written to %s\n", htmlPath)
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&format, "format", "f", string(output.FormatTable), "Output format: table, json, yaml or markdown")
	flags.StringVar(&sortKey, "sort", "", "Sort runs by a JSON path, e.g. metrics.p95_response_time_ms")
	flags.BoolVar(&desc, "desc", false, "Sort in descending order")
	flags.StringVar(&htmlPath, "html", "", "Also write an HTML chart report to this path")
	flags.BoolVarP(&quiet, "quiet", "q", false, "Skip the text summary")
	return cmd
}
