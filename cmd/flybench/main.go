// Command flybench benchmarks an image transformation service and keeps a
// history of labelled runs for comparison.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/torosent/flybench/internal/config"
)

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError lists configuration problems one per line.
func printError(w io.Writer, err error) {
	var verr config.ValidationError
	if errors.As(err, &verr) && len(verr.Issues()) > 0 {
		fmt.Fprintln(w, "Error: invalid configuration:")
		for _, issue := range verr.Issues() {
			fmt.Fprintf(w, "  - %s\n", issue)
		}
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "flybench",
		Short:         "Load test an image service and compare configurations",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.AddCommand(newRunCommand(), newReportCommand(), newLocateCommand())
	return root
}

func newLogger(w io.Writer, level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{
		DisableColors:    true,
		FullTimestamp:    true,
		QuoteEmptyFields: true,
	})
	return log, nil
}
