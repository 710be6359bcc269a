package config

import (
	"time"
)

type Config struct {
	Log          LogConfig          `yaml:"log"`
	Domains      DomainsConfig      `yaml:"domains"`
	Auth         AuthConfig         `yaml:"auth"`
	Session      SessionConfig      `yaml:"session"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Access       AccessConfig       `yaml:"access"`
	Edge         EdgeConfig         `yaml:"edge"`
	Monitor      MonitorConfig      `yaml:"monitor"`
}

type LogConfig struct {
	Level   string `yaml:"log_level"`
	Dir     string `yaml:"log_dir"`
	File    string `yaml:"log_file"`
	NoColor bool   `yaml:"no_color"`
}

// DomainsConfig maps public hostnames to backend endpoints.
type DomainsConfig struct {
	// Primary names the entry in Hosts used when nothing else matches.
	Primary     string                    `yaml:"primary"`
	Development EndpointConfig            `yaml:"development"`
	Hosts       map[string]EndpointConfig `yaml:"hosts"`
	// DefaultHost is the tenant hostname used by headless callers (CLI,
	// monitor) that have no request to resolve from.
	DefaultHost string `yaml:"default_host"`
}

type EndpointConfig struct {
	APIBase  string `yaml:"api_base"`
	AuthBase string `yaml:"auth_base"`
}

type AuthConfig struct {
	LoginPath      string        `yaml:"login_path"`
	LogoutPath     string        `yaml:"logout_path"`
	UserPath       string        `yaml:"user_path"`
	RefreshPath    string        `yaml:"refresh_path"`
	Timeout        time.Duration `yaml:"timeout"`
	RefreshTimeout time.Duration `yaml:"refresh_timeout"`
}

type SessionConfig struct {
	Driver    string        `yaml:"driver"`
	Namespace string        `yaml:"namespace"`
	TTL       time.Duration `yaml:"ttl"`
	Redis     RedisStore    `yaml:"redis,omitempty"`
	SQLite    SQLiteStore   `yaml:"sqlite,omitempty"`
	Postgres  PostgresStore `yaml:"postgres,omitempty"`
	Memory    MemoryStore   `yaml:"memory,omitempty"`
}

type RedisStore struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type SQLiteStore struct {
	DSN string `yaml:"dsn,omitempty"`
}

type PostgresStore struct {
	DSN      string `yaml:"dsn,omitempty"`
	MaxConns int32  `yaml:"max_conns,omitempty"`
}

type MemoryStore struct {
	Cleanup time.Duration `yaml:"cleanup"`
}

type OrchestratorConfig struct {
	GraphQLPath     string        `yaml:"graphql_path"`
	MaxRetries      int           `yaml:"max_retries"`
	BaseDelay       time.Duration `yaml:"base_delay"`
	MaxDelay        time.Duration `yaml:"max_delay"`
	BackoffFactor   float64       `yaml:"backoff_factor"`
	RateLimitFactor float64       `yaml:"rate_limit_factor"`
	Timeouts        TimeoutConfig `yaml:"timeouts"`
	// RequestsPerSecond enables a client-side limiter when > 0.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// TimeoutConfig holds the per-attempt deadline of each call class.
type TimeoutConfig struct {
	Query      time.Duration `yaml:"query"`
	Mutation   time.Duration `yaml:"mutation"`
	Background time.Duration `yaml:"background"`
}

type AccessConfig struct {
	PublicRoutes []string            `yaml:"public_routes"`
	CommonRoutes []string            `yaml:"common_routes"`
	WildcardRole string              `yaml:"wildcard_role"`
	Roles        map[string][]string `yaml:"roles"`
	DomainPages  map[string][]string `yaml:"domain_pages"`
	LoginRoute   string              `yaml:"login_route"`
	DeniedRoute  string              `yaml:"denied_route"`
}

// EdgeConfig configures the HTTP server that hosts the built dashboard.
type EdgeConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Addr         string   `yaml:"addr"`
	StaticDir    string   `yaml:"static_dir"`
	AllowOrigins []string `yaml:"allow_origins"`
	Debug        bool     `yaml:"debug"`
}

type MonitorConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}
