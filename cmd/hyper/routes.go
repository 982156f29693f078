package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pthm/hyper/lib/generator"
)

func newRoutesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Discover //hyper:route directives and generate registration code",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list [packages]",
		Short: "List discovered routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			routes, err := generator.New(generator.Options{Out: cmd.ErrOrStderr()}).Discover(patterns(args)...)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "METHOD\tPATTERN\tNAME\tHANDLER\tSOURCE")
			for _, ri := range routes {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", ri.Method, ri.Pattern, ri.Name, ri.Handler(), ri.Position())
			}
			return tw.Flush()
		},
	})

	var dryRun bool
	gen := &cobra.Command{
		Use:   "generate [packages]",
		Short: "Write " + generator.GeneratedFile + " into every package with routes",
		Example: `  hyper routes generate ./...
  hyper routes generate --dry-run ./handlers`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.logger.Debug("generating routes", "patterns", patterns(args), "dry_run", dryRun)
			return generator.New(generator.Options{DryRun: dryRun, Out: cmd.OutOrStdout()}).Generate(patterns(args)...)
		},
	}
	gen.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be generated without writing files")
	cmd.AddCommand(gen)

	cmd.AddCommand(&cobra.Command{
		Use:   "clean [packages]",
		Short: "Remove generated route files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return generator.New(generator.Options{Out: cmd.OutOrStdout()}).Clean(patterns(args)...)
		},
	})

	return cmd
}
