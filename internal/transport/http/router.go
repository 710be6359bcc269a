// Package httptransport is the edge server that hosts the built dashboard.
// It applies the access guard to page navigations and exposes health,
// metrics and a few read-only session endpoints for the SPA.
package httptransport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"

	"bizdash-go/internal/domain/guard"
	"bizdash-go/internal/domain/resolver"
	"bizdash-go/internal/domain/session"
	"bizdash-go/internal/platform/observability"
)

// Sessions is the read side of the token lifecycle manager. Requests are
// attributed to the session only when they present its token.
type Sessions interface {
	Authenticated() bool
	Token(ctx context.Context) string
	Profile(ctx context.Context) *session.UserProfile
}

// Options configures the HTTP router builder.
type Options struct {
	Logger       session.Logger
	Guard        *guard.Guard
	Resolver     *resolver.Resolver
	Sessions     Sessions
	StaticRoot   string
	AllowOrigins []string
	Debug        bool
	// EventStream, when set, is mounted at /ws/events for requests that
	// carry the session credential.
	EventStream gin.HandlerFunc
}

// Router bundles together the gin engine and common route groups.
type Router struct {
	Engine *gin.Engine
	API    *gin.RouterGroup
}

// Build constructs a gin engine pre-configured with logging, recovery,
// CORS, metrics and the guard middleware.
func Build(opts Options) (*Router, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("http router requires a logger")
	}
	if opts.Guard == nil {
		return nil, fmt.Errorf("http router requires a guard")
	}
	if opts.Resolver == nil {
		return nil, fmt.Errorf("http router requires a resolver")
	}

	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(loggingMiddleware(opts.Logger))
	engine.Use(observabilityMiddleware())

	origins := opts.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
		corsCfg.AllowCredentials = true
	}
	engine.Use(cors.New(corsCfg))

	h := &handlers{
		guard:    opts.Guard,
		resolver: opts.Resolver,
		sessions: opts.Sessions,
	}

	engine.GET("/healthz", h.health)
	engine.GET("/metrics", gin.WrapH(observability.Handler()))

	api := engine.Group("/api")
	api.GET("/access/check", h.accessCheck)
	api.GET("/endpoints", h.endpoints)
	api.GET("/session", h.session)

	if opts.EventStream != nil {
		engine.GET("/ws/events", h.requireSession, opts.EventStream)
	}

	engine.Use(guardMiddleware(opts.Guard, h.role, opts.Logger))
	staticRoot := opts.StaticRoot
	if staticRoot == "" {
		staticRoot = "./web"
	}
	engine.Use(static.Serve("/", static.LocalFile(staticRoot, false)))

	engine.NoRoute(func(c *gin.Context) {
		if isAPIPath(c.Request.URL.Path) {
			RespondError(c, http.StatusNotFound, "api not found", gin.H{})
			return
		}
		// client-side routes fall back to the SPA entry point
		c.File(staticRoot + "/index.html")
	})

	return &Router{Engine: engine, API: api}, nil
}
