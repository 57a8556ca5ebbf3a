package main

import (
	"context"
	"errors"
	"fmt"
	nhttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"go-currency-converter/config"
	"go-currency-converter/exchange"
	"go-currency-converter/http"
	"go-currency-converter/rates"
)

func main() {
	w := log.NewSyncWriter(os.Stderr)
	logger := log.NewLogfmtLogger(w)
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	cfg, err := config.Load()
	if err != nil {
		level.Error(logger).Log("msg", "loading config", "err", err)
		os.Exit(1)
	}
	logger = level.NewFilter(logger, levelOption(cfg.Log.Level))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		level.Error(logger).Log("msg", "server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.App, logger log.Logger) error {
	meterProvider, err := newMeterProvider(ctx, cfg.Metrics)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			level.Warn(logger).Log("msg", "metrics shutdown", "err", err)
		}
	}()

	ratesService := rates.NewService(cfg.Rates.BaseURL, cfg.Rates.Timeout())
	ratesService = rates.NewLoggingService(log.With(logger, "component", "rates"), ratesService)

	exchangeService := exchange.NewService(ratesService)
	exchangeService = exchange.NewLoggingService(log.With(logger, "component", "exchange"), exchangeService)
	exchangeService, err = exchange.NewInstrumentingService(meterProvider.Meter("go-currency-converter/exchange"), exchangeService)
	if err != nil {
		return fmt.Errorf("instrumenting: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	handler := http.NewServer(exchangeService, log.With(logger, "component", "http"),
		http.WithAllowedOrigins(cfg.CORS.AllowedOrigins...),
		http.WithRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		http.WithTrustedProxies(cfg.HTTP.TrustedProxies...),
	)

	server := newHTTPServer(cfg.HTTP, handler)

	errc := make(chan error, 1)
	go func() {
		level.Info(logger).Log("msg", "listening", "addr", cfg.HTTP.Addr, "rates_url", cfg.Rates.BaseURL, "rates_timeout", cfg.Rates.Timeout())
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, nhttp.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	level.Info(logger).Log("msg", "shutting down", "timeout", cfg.HTTP.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newHTTPServer(cfg config.HTTP, handler nhttp.Handler) *nhttp.Server {
	return &nhttp.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// levelOption maps a configured level name to a go-kit level filter
func levelOption(name string) level.Option {
	switch name {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}
