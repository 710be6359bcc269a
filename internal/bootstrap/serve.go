package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	platformerrors "bizdash-go/internal/platform/errors"
	platformlogging "bizdash-go/internal/platform/logging"
	httptransport "bizdash-go/internal/transport/http"
	"bizdash-go/internal/transport/ws"
)

const shutdownTimeout = 15 * time.Second

// Run opens the app and serves until SIGINT/SIGTERM or ctx ends.
func Run(ctx context.Context, opts Options) error {
	app, err := Open(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(context.Background()); cerr != nil {
			app.Logger.Warn("[bootstrap] shutdown incomplete: %v", cerr)
		}
	}()
	return Serve(ctx, app)
}

// Serve runs the session monitor and the edge server, whichever are
// enabled, until a signal arrives or one of them fails.
func Serve(ctx context.Context, app *App) error {
	cfg := app.Config
	if !cfg.Edge.Enabled && !cfg.Monitor.Enabled {
		return platformerrors.New(platformerrors.KindBootstrap, "serve", "neither the edge server nor the monitor is enabled")
	}

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if _, err := app.Auth.Bootstrap(groupCtx); err != nil {
		app.Logger.Info("[auth] starting without a session: %v", err)
	}

	if cfg.Monitor.Enabled {
		group.Go(func() error {
			return app.Auth.Monitor(groupCtx, cfg.Monitor.Interval)
		})
	}

	if cfg.Edge.Enabled {
		if _, err := startHTTPServer(app, group, groupCtx); err != nil {
			cancel()
			return err
		}
	}

	return waitForShutdown(signalCtx, groupCtx, cancel, app.Logger, group)
}

func startHTTPServer(app *App, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	cfg := app.Config.Edge

	hub := ws.NewHub(app.Logger)
	if err := ws.Bridge(app.Events, hub); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "ws:bridge", "failed to subscribe event stream", err)
	}

	router, err := httptransport.Build(httptransport.Options{
		Logger:       app.Logger,
		Guard:        app.Guard,
		Resolver:     app.Resolver,
		Sessions:     app.Auth,
		StaticRoot:   cfg.StaticDir,
		AllowOrigins: cfg.AllowOrigins,
		Debug:        cfg.Debug,
		EventStream:  ws.Handler(groupCtx, hub, ws.HandlerConfig{AllowOrigins: cfg.AllowOrigins}),
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "http:build-router", "failed to build router", err)
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		app.Logger.Info("[http] edge server listening on %s", cfg.Addr)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				app.Logger.Error("[http] shutdown failed: %v", err)
			} else {
				app.Logger.Info("[http] edge server stopped")
			}
		}()

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error("[http] listen failed: %v", err)
			return platformerrors.Wrap(platformerrors.KindTransport, "http:listen", "edge server failed", err)
		}
		return nil
	})

	return server, nil
}

// waitForShutdown returns once a signal arrives or a service fails, after
// every service has stopped or the shutdown timeout elapsed.
func waitForShutdown(
	signalCtx context.Context,
	groupCtx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	select {
	case <-signalCtx.Done():
		logger.Info("[bootstrap] shutting down: %v", context.Cause(signalCtx))
	case <-groupCtx.Done():
		logger.Warn("[bootstrap] a service stopped, shutting down")
	}

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("[bootstrap] shutdown finished with error: %v", err)
			return err
		}
		logger.Info("[bootstrap] all services stopped")
		return nil
	case <-time.After(shutdownTimeout):
		logger.Error("[bootstrap] shutdown timed out")
		return platformerrors.New(platformerrors.KindBootstrap, "shutdown", "timed out waiting for services")
	}
}
