package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rickgao/coingecko-data/internal/app"
	"github.com/rickgao/coingecko-data/internal/config"
	"github.com/rickgao/coingecko-data/internal/jobs"
	"github.com/rickgao/coingecko-data/internal/version"
)

var (
	configPath string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:           "ingester",
	Short:         "CoinGecko exchange and token ingester",
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/ingester.local.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "start",
			Short: "Run the scheduler and status server until interrupted",
			Args:  cobra.NoArgs,
			RunE:  runStart,
		},
		&cobra.Command{
			Use:       "run-once <job>",
			Short:     "Execute one job immediately and exit",
			Args:      cobra.ExactArgs(1),
			ValidArgs: jobs.Names,
			RunE:      runOnce,
		},
		&cobra.Command{
			Use:   "check-api",
			Short: "Probe the API and print rate limit usage",
			Args:  cobra.NoArgs,
			RunE:  runCheckAPI,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create the store schema",
			Args:  cobra.NoArgs,
			RunE:  runMigrate,
		},
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads the environment and config, installs the logger and wires the app.
func setup(ctx context.Context) (*config.IngesterConfig, *app.App, *slog.Logger, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, nil, nil, err
	}
	slog.SetDefault(logger)

	logger.Info("starting ingester",
		"version", version.Version,
		"commit", version.Commit,
		"config", configPath,
		"store", cfg.Store.Driver,
	)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, a, logger, nil
}

func newLogger(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts)), nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			if logger != nil {
				logger.Info("received shutdown signal", "signal", sig)
			}
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func runStart(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(slog.Default())
	defer cancel()

	cfg, a, logger, err := setup(ctx)
	if err != nil {
		return err
	}

	if !a.ValidateAPIConnection(ctx) {
		logger.Warn("api unreachable at startup, jobs will retry on schedule")
	}

	statusServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           a.Handler(cfg.Metrics.Path),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("starting status server", "port", cfg.Metrics.Port)
		if err := statusServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("status server error", "error", err)
		}
	}()

	a.Start()
	logger.Info("ingester running",
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	<-ctx.Done()
	logger.Info("shutting down, waiting for in-flight jobs (interrupt again to force exit)")

	// The status server stays up while jobs drain.
	drainErr := drain(a)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := statusServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("status server shutdown", "error", err)
	}
	if drainErr != nil {
		return drainErr
	}

	logger.Info("ingester stopped")
	return nil
}

// stopper is the part of app.App that shutdown needs.
type stopper interface {
	Stop(ctx context.Context) error
	Close()
}

// drain stops the triggers and waits with no deadline for every in-flight
// run. The store and cache are closed only once that wait succeeds.
func drain(s stopper) error {
	if err := s.Stop(context.Background()); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	s.Close()
	return nil
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(nil)
	defer cancel()

	_, a, logger, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	name := args[0]
	if err := a.ExecuteJob(ctx, name); err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}

	if js, ok := a.Job(name); ok {
		logger.Info("job finished",
			"job", name,
			"state", js.State,
			"items", js.LastItems,
			"requests", js.LastRequests,
			"duration", js.LastDuration,
			"error", js.LastError,
		)
	}
	return nil
}

func runCheckAPI(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(nil)
	defer cancel()

	_, a, _, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ok := a.ValidateAPIConnection(ctx)
	rl := a.RateLimitStats()
	fmt.Fprintf(cmd.OutOrStdout(), "api reachable: %t\nrate limit: %d/%d used in %s window\n",
		ok, rl.RequestsInWindow, rl.MaxRequests, rl.Window)
	if !ok {
		return errors.New("api unreachable")
	}
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(nil)
	defer cancel()

	_, a, logger, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info("migration complete")
	return nil
}
