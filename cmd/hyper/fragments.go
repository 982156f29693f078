package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/pthm/hyper/internal/config"
	"github.com/pthm/hyper/lib/fragment"
)

func newFragmentsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fragments",
		Short: "Inspect and render view fragments",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list <view>",
		Short: "List the fragments of a view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := viewSource(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			body, err := src.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			spans, err := parser(a.cfg).Spans(body)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, sp := range spans {
				fmt.Fprintf(out, "%s%s\t%d-%d\n", strings.Repeat("  ", sp.Depth), sp.Name, sp.Start, sp.End)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "extract <view> <fragment>",
		Short: "Print the raw source of a fragment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := viewSource(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			body, err := src.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			frag, err := parser(a.cfg).Extract(body, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), frag)
			return nil
		},
	})

	var data string
	render := &cobra.Command{
		Use:   "render <view> [fragment]",
		Short: "Render a view, or one of its fragments, with JSON data",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var v any
			if data != "" {
				if err := json.Unmarshal([]byte(data), &v); err != nil {
					return fmt.Errorf("--data: %w", err)
				}
			}
			src, err := viewSource(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			r := fragment.NewRenderer(src,
				fragment.WithParser(parser(a.cfg)),
				fragment.WithLogger(a.logger),
			)
			name := ""
			if len(args) == 2 {
				name = args[1]
			}
			return r.Render(cmd.Context(), cmd.OutOrStdout(), args[0], name, v)
		},
	}
	render.Flags().StringVar(&data, "data", "", "template data as JSON")
	cmd.AddCommand(render)

	return cmd
}

func parser(cfg *config.Config) *fragment.Parser {
	return fragment.NewParser(cfg.Fragments.Open, cfg.Fragments.Close)
}

// viewSource reads views from S3 when a bucket is configured and from
// ViewsDir otherwise.
func viewSource(ctx context.Context, cfg *config.Config) (fragment.Source, error) {
	if cfg.S3.Bucket == "" {
		return fragment.DirSource(cfg.ViewsDir), nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if awsCfg.Region == "" {
		awsCfg.Region = "us-east-1"
	}
	return &fragment.S3Source{
		Client: s3.NewFromConfig(awsCfg),
		Bucket: cfg.S3.Bucket,
		Prefix: cfg.S3.Prefix,
	}, nil
}
