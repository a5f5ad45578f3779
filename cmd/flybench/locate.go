package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/torosent/flybench/internal/config"
)

func newLocateCommand() *cobra.Command {
	cfg := config.Default()
	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Print the base URL a run would target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			if err != nil {
				return err
			}
			baseURL, err := resolveBaseURL(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), baseURL)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&cfg.BaseURL, "url", "", "Base URL of the image service")
	flags.StringVar(&cfg.ContainerName, "container-name", "", "Docker container running the image service")
	flags.IntVar(&cfg.Port, "port", config.DefaultPort, "Local port used when the container cannot be inspected")
	flags.IntVar(&cfg.ContainerPort, "container-port", config.DefaultContainerPort, "Container port whose host binding is used")
	flags.StringVar(&cfg.LogLevel, "log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	return cmd
}
