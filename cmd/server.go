package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/0xc0d3d00d/klinechart/internal/api"
	"github.com/0xc0d3d00d/klinechart/internal/chart"
	"github.com/0xc0d3d00d/klinechart/internal/config"
	"github.com/0xc0d3d00d/klinechart/internal/kline"
	"github.com/0xc0d3d00d/klinechart/internal/marketdata"
	"github.com/0xc0d3d00d/klinechart/internal/metrics"
	"github.com/0xc0d3d00d/klinechart/internal/server"
	"github.com/lmittmann/tint"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/plot/vg"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	setLogger(slog.LevelInfo)

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		slog.ErrorContext(ctx, "command failed", "error", err)
		cancel()
		os.Exit(1)
	}
}

// set global logger with custom options
func setLogger(level slog.Level) {
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.DateTime,
		}),
	))
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "klinechart",
		Short:        "Serve candlestick charts with technical indicators as PNG",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), configPath)
		},
	}

	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = config.DefaultPath
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultPath, "YAML config file, ignored when missing")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), configPath)
		},
	})
	root.AddCommand(renderCmd(&configPath))
	return root
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(afero.NewOsFs(), path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	level, _ := cfg.SlogLevel()
	setLogger(level)
	return cfg, nil
}

func runServer(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	m, err := metrics.New()
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}
	defer m.Shutdown(context.Background())

	svc, err := newService(cfg, m)
	if err != nil {
		return err
	}

	handler := api.NewHandler(svc)
	srv := server.New(ctx, cfg.Addr,
		server.WithRoutes(handler.Register),
		server.WithMetricsHandler(m.Handler()),
		server.WithMiddleware(func(next http.Handler) http.Handler {
			return api.Middleware(next, m)
		}),
	)

	g, gCtx := errgroup.WithContext(ctx)
	// Start HTTP server
	g.Go(func() error {
		slog.InfoContext(ctx, "starting server",
			"listen_address", cfg.Addr,
			"provider", cfg.Provider,
		)
		if err := runHttpServer(gCtx, cfg.Addr, srv); err != nil {
			slog.ErrorContext(ctx, "failed to start server", "error", err)
			return err
		}
		return nil
	})

	// Handle graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		slog.Info("shutting down server gracefully")

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func runHttpServer(ctx context.Context, listenAddress string, srv *server.Server) error {
	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return err
	}

	err = srv.Serve(lis)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

// newService wires the configured provider into the chart pipeline. m may be
// nil, in which case nothing is recorded.
func newService(cfg *config.Config, m *metrics.Metrics) (*kline.Service, error) {
	interval, err := cfg.ParsedInterval()
	if err != nil {
		return nil, err
	}
	provider, err := newProvider(cfg, m)
	if err != nil {
		return nil, err
	}

	renderer := chart.NewRenderer(chart.Options{
		Width:  vg.Length(cfg.Chart.WidthIn) * vg.Inch,
		Height: vg.Length(cfg.Chart.HeightIn) * vg.Inch,
		DPI:    cfg.Chart.DPI,
	})
	opts := []kline.Option{
		kline.WithRenderer(renderer),
		kline.WithLookback(cfg.LookbackDays),
		kline.WithInterval(interval),
	}
	if m != nil {
		opts = append(opts, kline.WithRecorder(m))
	}
	return kline.New(provider, opts...), nil
}

func newProvider(cfg *config.Config, m *metrics.Metrics) (marketdata.Provider, error) {
	var p marketdata.Provider
	switch cfg.Provider {
	case config.ProviderYahoo:
		p = marketdata.NewYahoo(cfg.YahooBaseURL, cfg.ProxyURL, cfg.FetchTimeout)
	case config.ProviderFile:
		p = marketdata.NewFile(afero.NewOsFs(), cfg.DataDir)
	case config.ProviderMock:
		p = &marketdata.Mock{}
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	opts := []marketdata.RetryOption{
		marketdata.WithMaxAttempts(cfg.Retry.MaxAttempts),
		marketdata.WithBackoff(cfg.Retry.BaseDelay, cfg.Retry.MaxDelay),
	}
	if m != nil {
		opts = append(opts, marketdata.WithRetryHook(m.RecordRetry))
	}
	return marketdata.NewRetrying(p, opts...), nil
}
