// Package server initializes and runs the gateway: it opens the storage
// backends, builds the auth resource, and serves it over HTTP next to a gRPC
// health endpoint until the process is signalled to stop.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrijs2005/passgate/internal/logging"
	"github.com/dmitrijs2005/passgate/internal/server/auth"
	"github.com/dmitrijs2005/passgate/internal/server/config"
	"github.com/dmitrijs2005/passgate/internal/server/httpserver"
	"github.com/dmitrijs2005/passgate/internal/server/metrics"
	"github.com/dmitrijs2005/passgate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/passgate/internal/server/resource"
	"github.com/dmitrijs2005/passgate/internal/server/services"

	gs "github.com/dmitrijs2005/passgate/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	backends *repomanager.Backends
	resource *resource.Resource
	registry *prometheus.Registry
}

// openBackends is a seam for tests.
var openBackends = repomanager.Open

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	hasher, err := auth.NewHasher(c.PasswordHash)
	if err != nil {
		return nil, err
	}

	b, err := openBackends(ctx, c, repomanager.NewPostgresRepositoryManager())
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	accounts := services.NewAccountService(b.Directory, hasher, c.SaltLen)
	identities := services.NewIdentityService(b.Directory, logger.With("module", "identity"))

	res := resource.New(c, resource.Deps{
		Accounts:   accounts,
		Identities: identities,
		Sessions:   b.Sessions,
		Logger:     logger,
		Metrics:    metrics.NewAuthMetrics(registry),
	})

	return &App{config: c, logger: logger, backends: b, resource: res, registry: registry}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	router := httpserver.NewRouter(app.resource.MountPath(), app.resource, app.backends, app.registry)
	s := httpserver.NewServer(app.config.HTTPAddr, router, app.logger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.backends)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "mount", app.resource.MountPath(), "strategies", app.resource.Strategies())

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.GRPCAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	if err := app.backends.Close(); err != nil {
		app.logger.Error(context.Background(), "error closing backends", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}
