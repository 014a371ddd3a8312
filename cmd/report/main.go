package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/healthreport/internal/app"
	"github.com/hamed0406/healthreport/internal/config"
	"github.com/hamed0406/healthreport/internal/logging"
	"github.com/hamed0406/healthreport/internal/metrics"
	"github.com/hamed0406/healthreport/internal/report"
)

// errAborted marks failures RunE has already reported on stderr.
var errAborted = errors.New("report aborted")

type flags struct {
	only   []string
	asJSON bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&cfg).ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errAborted) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "report",
		Short:         "Print the service health report",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if err := run(cmd.Context(), *cfg, f, logger, cmd.OutOrStdout()); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%v: %v\n", errAborted, err)
				return fmt.Errorf("%w: %w", errAborted, err)
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&cfg.StoreDriver, "store", cfg.StoreDriver, "record store: memory, postgres or sqlite")
	fl.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "Postgres DSN")
	fl.StringVar(&cfg.SQLitePath, "sqlite", cfg.SQLitePath, "SQLite database file")
	fl.StringVar(&cfg.Fixtures, "fixtures", cfg.Fixtures, "JSON fixtures for the memory store")
	fl.StringSliceVar(&cfg.Services, "services", cfg.Services, "services for the per-service sections")
	fl.DurationVar(&cfg.AvgWindow, "avg-window", cfg.AvgWindow, "trailing window for average response time")
	fl.BoolVar(&cfg.EnsureSchema, "ensure-schema", cfg.EnsureSchema, "create SQL tables and indexes if missing")
	fl.StringSliceVar(&f.only, "only", nil, fmt.Sprintf("sections to run %v", report.Keys()))
	fl.BoolVar(&f.asJSON, "json", false, "print the aggregate snapshot as JSON")
	return cmd
}

// run owns the store for one report run and closes it on every path.
func run(ctx context.Context, cfg config.Config, f flags, logger *zap.Logger, out io.Writer) (err error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.QueryTimeout)
	defer cancel()

	store, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("report_aborted", zap.String("stage", "open_store"), zap.Error(err))
		return err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	rep := report.New(metrics.New(store, logger), logger, report.Options{
		Services:    cfg.Services,
		AvgWindow:   cfg.AvgWindow,
		MinServices: cfg.MinServices,
	})
	if f.asJSON {
		return rep.WriteJSON(ctx, out)
	}
	return rep.Run(ctx, out, f.only...)
}
