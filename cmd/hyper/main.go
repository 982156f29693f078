package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/pthm/hyper/internal/config"
)

// Version is set via -ldflags.
var Version = "dev"

// app carries state shared by every command.
type app struct {
	cfgFile string
	cfg     *config.Config
	cfgPath string
	logger  *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(&app{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "hyper",
		Short: "Server-driven UI over Datastar",
		Long: `hyper - server-driven UI over Datastar

Views are html/template files with @fragment("name") ... @endfragment
regions. Handlers are plain net/http functions annotated with
//hyper:route directives.

Examples:
  hyper fragments list contacts/index     List the fragments of a view
  hyper fragments render contacts/index list --data '{"Contacts":[]}'
  hyper routes generate ./...             Generate RegisterRoutes functions
  hyper serve                             Serve views over Datastar SSE`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := config.Load(config.LoadOptions{ConfigFilePath: a.cfgFile})
			if err != nil {
				return err
			}
			a.cfg, a.cfgPath = cfg, path
			a.logger = newLogger(cmd.ErrOrStderr(), cfg.Log)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./hyper.toml)")

	root.AddCommand(newFragmentsCommand(a))
	root.AddCommand(newRoutesCommand(a))
	root.AddCommand(newServeCommand(a))
	root.AddCommand(newConfigCommand(a))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hyper version %s\n", Version)
		},
	})
	return root
}

// newLogger returns a slog logger backed by charmbracelet/log.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	opts := log.Options{
		Level:           level,
		Prefix:          "hyper",
		ReportTimestamp: true,
	}
	if strings.EqualFold(cfg.Format, "json") {
		opts.Formatter = log.JSONFormatter
	}
	return slog.New(log.NewWithOptions(w, opts))
}

// patterns defaults package patterns to ./...
func patterns(args []string) []string {
	if len(args) == 0 {
		return []string{"./..."}
	}
	return args
}
