package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect hyper configuration",
		Long: `Inspect hyper configuration.

Configuration is read from ./hyper.toml (or --config) and HYPER_*
environment variables, e.g. HYPER_ADDR or HYPER_S3_BUCKET.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.cfg.Redacted().TOML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file in use",
		Run: func(cmd *cobra.Command, args []string) {
			if a.cfgPath == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "(defaults, no file)")
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.cfgPath)
		},
	})

	return cmd
}
