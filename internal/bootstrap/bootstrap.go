// Package bootstrap wires configuration, storage, the session core and the
// edge server into a running process.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"

	"bizdash-go/internal/domain/auth"
	"bizdash-go/internal/domain/eventbus"
	"bizdash-go/internal/domain/guard"
	"bizdash-go/internal/domain/orchestrator"
	"bizdash-go/internal/domain/resolver"
	"bizdash-go/internal/domain/session"
	"bizdash-go/internal/domain/session/store"
	platformconfig "bizdash-go/internal/platform/config"
	platformerrors "bizdash-go/internal/platform/errors"
	platformlogging "bizdash-go/internal/platform/logging"
	platformobservability "bizdash-go/internal/platform/observability"
	platformstorage "bizdash-go/internal/platform/storage"
)

// Options controls how Open builds the process state.
type Options struct {
	// ConfigPath pins the YAML file; empty searches the default locations.
	ConfigPath string
	NoDotEnv   bool
	// Config skips loading entirely. Used by tests.
	Config *platformconfig.Config
	// LogWriter sends console logs to w instead of stdout.
	LogWriter io.Writer
	// HTTPClient is shared by the auth client and the orchestrator.
	HTTPClient *http.Client
}

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	opts                  Options
	config                *platformconfig.Config
	configPath            string
	logger                *platformlogging.Logger
	observabilityShutdown platformobservability.ShutdownFunc
	sqliteDB              *gorm.DB
	pgPool                *pgxpool.Pool
	store                 *session.Store
	bus                   *eventbus.AsyncEventBus
	latch                 *eventbus.RedirectLatch
	resolver              *resolver.Resolver
	authManager           *auth.Manager
	orchestrator          *orchestrator.Orchestrator
	guard                 *guard.Guard
}

func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "storage:open-database",
			Title:     "Open session database",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   openDatabaseStep,
		},
		{
			ID:        "session:init-store",
			Title:     "Initialise credential store",
			DependsOn: []string{"storage:open-database"},
			Kind:      platformerrors.KindSession,
			Execute:   initSessionStoreStep,
		},
		{
			ID:        "events:init-bus",
			Title:     "Start event bus",
			DependsOn: []string{"logging:init-provider"},
			Execute:   initEventBusStep,
		},
		{
			ID:        "domains:init-resolver",
			Title:     "Build domain resolver",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindConfig,
			Execute:   initResolverStep,
		},
		{
			ID:        "auth:init-manager",
			Title:     "Initialise token lifecycle manager",
			DependsOn: []string{"observability:setup-hooks", "session:init-store", "events:init-bus", "domains:init-resolver"},
			Kind:      platformerrors.KindSession,
			Execute:   initAuthStep,
		},
		{
			ID:        "orchestrator:init",
			Title:     "Initialise request orchestrator",
			DependsOn: []string{"auth:init-manager"},
			Execute:   initOrchestratorStep,
		},
		{
			ID:        "guard:init",
			Title:     "Build access guard",
			DependsOn: []string{"config:load"},
			Execute:   initGuardStep,
		},
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

func logBootstrapGraph(steps []initStep, logger *platformlogging.Logger) {
	if logger == nil {
		return
	}
	for _, step := range steps {
		logger.Debug("[bootstrap] %s (%s)", step.Title, step.ID)
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	if state.opts.Config != nil {
		if err := state.opts.Config.Validate(); err != nil {
			return err
		}
		state.config = state.opts.Config
		return nil
	}

	result, err := platformconfig.NewLoader().
		WithDotEnv(!state.opts.NoDotEnv).
		WithPath(state.opts.ConfigPath).
		Load()
	if err != nil {
		return err
	}
	state.config = result.Config
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	cfg := state.config.Log
	if state.opts.LogWriter != nil {
		state.logger = platformlogging.NewWriter(state.opts.LogWriter, cfg.Level)
	} else {
		logger, err := platformlogging.New(platformlogging.Config{
			Level:    cfg.Level,
			Dir:      cfg.Dir,
			Filename: cfg.File,
			NoColor:  cfg.NoColor,
		})
		if err != nil {
			return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
		}
		state.logger = logger
	}

	source := state.configPath
	if source == "" {
		source = "defaults"
	}
	state.logger.Debug("[bootstrap] logging ready [%s] %s", cfg.Level, source)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	cfg := platformobservability.Config{
		Enabled: strings.EqualFold(state.config.Log.Level, "debug"),
	}
	shutdown, err := platformobservability.Setup(ctx, cfg, state.logger.Slog())
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup-hooks", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown
	return nil
}

// openDatabaseStep opens the SQL handle the configured driver needs, if any.
func openDatabaseStep(ctx context.Context, state *appState) error {
	cfg := state.config.Session
	switch cfg.Driver {
	case store.DriverSQLite:
		db, err := platformstorage.OpenSQLite(ctx, cfg.SQLite.DSN)
		if err != nil {
			return err
		}
		state.sqliteDB = db
	case store.DriverPostgres:
		pool, err := platformstorage.OpenPostgres(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
		if err != nil {
			return err
		}
		state.pgPool = pool
	}
	return nil
}

func initSessionStoreStep(ctx context.Context, state *appState) error {
	cfg := state.config.Session
	storeCfg := store.Config{
		Driver:    cfg.Driver,
		TTL:       cfg.TTL,
		Namespace: cfg.Namespace,
	}
	switch cfg.Driver {
	case store.DriverMemory:
		storeCfg.Memory = &store.MemoryConfig{GCInterval: cfg.Memory.Cleanup}
	case store.DriverSQLite:
		storeCfg.SQLite = &store.SQLiteConfig{DSN: cfg.SQLite.DSN}
	case store.DriverPostgres:
		storeCfg.Postgres = &store.PostgresConfig{DSN: cfg.Postgres.DSN, MaxConns: cfg.Postgres.MaxConns}
	case store.DriverRedis:
		storeCfg.Redis = &store.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}
	}

	deps := store.Dependencies{SQLiteDB: state.sqliteDB}
	if state.pgPool != nil {
		deps.Postgres = state.pgPool
	}
	backend, err := store.New(storeCfg, deps)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindSession, "session:init-store", "failed to create session backend", err)
	}
	// the postgres backend owns the pool from here on
	state.pgPool = nil

	state.store = session.New(backend, cfg.Namespace, state.logger)
	if state.store.Init(ctx) {
		state.logger.Debug("[store] restored session from %s backend", cfg.Driver)
	}
	return nil
}

func initEventBusStep(_ context.Context, state *appState) error {
	bus := eventbus.NewAsyncEventBus(0, state.logger)
	if err := eventbus.LogEvents(bus, state.logger); err != nil {
		return err
	}
	bus.Start()
	state.bus = bus
	state.latch = eventbus.Latched(eventbus.BusNavigator{Bus: bus})
	return nil
}

func initResolverStep(_ context.Context, state *appState) error {
	d := state.config.Domains
	hosts := make(map[string]resolver.Endpoints, len(d.Hosts))
	for host, ep := range d.Hosts {
		hosts[host] = resolver.Endpoints{APIBase: ep.APIBase, AuthBase: ep.AuthBase}
	}
	state.resolver = resolver.New(resolver.Config{
		Primary:     d.Primary,
		Development: resolver.Endpoints{APIBase: d.Development.APIBase, AuthBase: d.Development.AuthBase},
		Hosts:       hosts,
	})
	return nil
}

func initAuthStep(_ context.Context, state *appState) error {
	cfg := state.config
	client := auth.NewClient(httpClient(state), state.resolver, auth.ClientConfig{
		Host:        cfg.Domains.DefaultHost,
		LoginPath:   cfg.Auth.LoginPath,
		LogoutPath:  cfg.Auth.LogoutPath,
		UserPath:    cfg.Auth.UserPath,
		RefreshPath: cfg.Auth.RefreshPath,
		Timeout:     cfg.Auth.Timeout,
	})

	manager, err := auth.NewManager(auth.Options{
		API:            client,
		Store:          state.store,
		Logger:         state.logger,
		Events:         state.bus,
		Latch:          state.latch,
		RefreshTimeout: cfg.Auth.RefreshTimeout,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindSession, "auth:init-manager", "failed to create auth manager", err)
	}
	state.authManager = manager
	return nil
}

func initOrchestratorStep(_ context.Context, state *appState) error {
	cfg := state.config.Orchestrator
	orch, err := orchestrator.New(orchestrator.Options{
		HTTP:      httpClient(state),
		Resolver:  state.resolver,
		Tokens:    state.authManager,
		Notifier:  eventbus.BusNotifier{Bus: state.bus},
		Navigator: state.latch,
		Logger:    state.logger,
		Config: orchestrator.Config{
			GraphQLPath: cfg.GraphQLPath,
			DefaultHost: state.config.Domains.DefaultHost,
			MaxRetries:  cfg.MaxRetries,
			Policy: orchestrator.Policy{
				BaseDelay:       cfg.BaseDelay,
				MaxDelay:        cfg.MaxDelay,
				Factor:          cfg.BackoffFactor,
				RateLimitFactor: cfg.RateLimitFactor,
			},
			Timeouts: orchestrator.Timeouts{
				Query:      cfg.Timeouts.Query,
				Mutation:   cfg.Timeouts.Mutation,
				Background: cfg.Timeouts.Background,
			},
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             cfg.Burst,
		},
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "orchestrator:init", "failed to create orchestrator", err)
	}
	state.orchestrator = orch
	return nil
}

func initGuardStep(_ context.Context, state *appState) error {
	a := state.config.Access
	state.guard = guard.New(guard.Config{
		PublicRoutes: a.PublicRoutes,
		CommonRoutes: a.CommonRoutes,
		WildcardRole: a.WildcardRole,
		Roles:        a.Roles,
		DomainPages:  a.DomainPages,
		LoginRoute:   a.LoginRoute,
		DeniedRoute:  a.DeniedRoute,
	})
	return nil
}

func httpClient(state *appState) *http.Client {
	if state.opts.HTTPClient != nil {
		return state.opts.HTTPClient
	}
	return &http.Client{Transport: http.DefaultTransport}
}

// release tears down whatever the init steps managed to build, in reverse.
func (s *appState) release(ctx context.Context) error {
	var errs []error
	if s.bus != nil {
		s.bus.Stop()
	}
	if s.store != nil {
		if err := s.store.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close session store: %w", err))
		}
	}
	if s.pgPool != nil {
		s.pgPool.Close()
	}
	if s.sqliteDB != nil {
		if err := platformstorage.CloseSQLite(s.sqliteDB); err != nil {
			errs = append(errs, fmt.Errorf("close sqlite: %w", err))
		}
	}
	if s.observabilityShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := s.observabilityShutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("observability shutdown: %w", err))
		}
		cancel()
	}
	if s.logger != nil {
		if err := s.logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close logger: %w", err))
		}
	}
	return errors.Join(errs...)
}
