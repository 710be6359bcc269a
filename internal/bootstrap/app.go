package bootstrap

import (
	"context"

	"bizdash-go/internal/domain/auth"
	"bizdash-go/internal/domain/eventbus"
	"bizdash-go/internal/domain/guard"
	"bizdash-go/internal/domain/orchestrator"
	"bizdash-go/internal/domain/resolver"
	"bizdash-go/internal/domain/session"
	platformconfig "bizdash-go/internal/platform/config"
	platformlogging "bizdash-go/internal/platform/logging"
)

// App is the wired session core. The CLI drives it directly; Serve runs
// its long-lived parts.
type App struct {
	Config       *platformconfig.Config
	ConfigPath   string
	Logger       *platformlogging.Logger
	Resolver     *resolver.Resolver
	Store        *session.Store
	Auth         *auth.Manager
	Orchestrator *orchestrator.Orchestrator
	Guard        *guard.Guard
	Events       *eventbus.AsyncEventBus

	state *appState
}

// Open runs the init graph. On failure everything built so far is released.
func Open(ctx context.Context, opts Options) (*App, error) {
	state := &appState{opts: opts}
	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		_ = state.release(context.WithoutCancel(ctx))
		return nil, err
	}
	logBootstrapGraph(steps, state.logger)

	return &App{
		Config:       state.config,
		ConfigPath:   state.configPath,
		Logger:       state.logger,
		Resolver:     state.resolver,
		Store:        state.store,
		Auth:         state.authManager,
		Orchestrator: state.orchestrator,
		Guard:        state.guard,
		Events:       state.bus,
		state:        state,
	}, nil
}

// Close drains pending events and releases storage, observability and the
// log file.
func (a *App) Close(ctx context.Context) error {
	if a == nil || a.state == nil {
		return nil
	}
	return a.state.release(ctx)
}
