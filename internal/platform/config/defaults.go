package config

import "time"

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
			Dir:   "data/logs",
			File:  "bizdash.log",
		},
		Domains: DomainsConfig{
			Primary: "admin.bizdash.io",
			Development: EndpointConfig{
				APIBase:  "http://localhost:8000",
				AuthBase: "http://localhost:8000/api/auth",
			},
			Hosts: map[string]EndpointConfig{
				"admin.bizdash.io": {
					APIBase:  "https://api.bizdash.io",
					AuthBase: "https://api.bizdash.io/api/auth",
				},
			},
			DefaultHost: "admin.bizdash.io",
		},
		Auth: AuthConfig{
			LoginPath:      "/login",
			LogoutPath:     "/logout",
			UserPath:       "/user",
			RefreshPath:    "/refresh",
			Timeout:        15 * time.Second,
			RefreshTimeout: 10 * time.Second,
		},
		Session: SessionConfig{
			Driver:    "sqlite",
			Namespace: "bizdash",
			SQLite: SQLiteStore{
				DSN: "data/session.db",
			},
			Memory: MemoryStore{
				Cleanup: 5 * time.Minute,
			},
		},
		Orchestrator: OrchestratorConfig{
			GraphQLPath:     "/graphql",
			MaxRetries:      3,
			BaseDelay:       500 * time.Millisecond,
			MaxDelay:        10 * time.Second,
			BackoffFactor:   2,
			RateLimitFactor: 4,
			Timeouts: TimeoutConfig{
				Query:      15 * time.Second,
				Mutation:   30 * time.Second,
				Background: 10 * time.Second,
			},
		},
		Access: AccessConfig{
			PublicRoutes: []string{"/login", "/forgot-password", "/reset-password"},
			CommonRoutes: []string{"/", "/dashboard", "/profile", "/notifications"},
			WildcardRole: "admin",
			Roles: map[string][]string{
				"manager":    {"/projects", "/contracts", "/orders", "/counterparties"},
				"accountant": {"/finances", "/contracts", "/counterparties"},
				"operator":   {"/orders"},
			},
			LoginRoute:  "/login",
			DeniedRoute: "/dashboard",
		},
		Edge: EdgeConfig{
			Enabled:      false,
			Addr:         ":8080",
			StaticDir:    "./web",
			AllowOrigins: []string{"*"},
		},
		Monitor: MonitorConfig{
			Enabled:  true,
			Interval: 5 * time.Minute,
		},
	}
}
