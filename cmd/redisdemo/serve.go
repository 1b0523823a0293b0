package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"github.com/mirkobrombin/go-redisdemo/v1/api"
	"github.com/mirkobrombin/go-redisdemo/v1/config"
	"github.com/mirkobrombin/go-redisdemo/v1/logging"
)

func newServeCommand(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}
}

// setupTracing installs a stdout exporter when tracing is enabled. The
// returned func flushes pending spans.
func setupTracing(enabled bool, w io.Writer) (func(context.Context) error, error) {
	if !enabled {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func serve(ctx context.Context, cfg *config.Config, traceOut io.Writer) error {
	shutdownTracing, err := setupTracing(cfg.Tracing.Enabled, traceOut)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	rdb, err := openRedis(ctx, cfg.Redis.URL)
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg.Database)
	if err != nil {
		_ = rdb.Close()
		return err
	}
	app, err := api.New(cfg, rdb, db)
	if err != nil {
		_ = rdb.Close()
		_ = closeDatabase(db)
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logging.Error().Err(err).Msg("close app")
		}
	}()
	if err := app.Migrate(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Shutdown waits for idle connections, which a watch never becomes.
	srv.RegisterOnShutdown(app.CloseStreams)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Info().Str("addr", cfg.Server.Addr).Str("lock_backend", cfg.Lock.Backend).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logging.Info().Msg("shutting down")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
