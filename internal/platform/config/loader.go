package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	platformerrors "bizdash-go/internal/platform/errors"
)

// EnvConfigPath names the variable that points at the YAML file.
const EnvConfigPath = "BIZDASH_CONFIG"

var defaultSearchPaths = []string{"bizdash.yaml", "config/bizdash.yaml", ".bizdash.yaml"}

// Loader reads defaults, then the YAML file, then environment overrides.
type Loader struct {
	useDotEnv bool
	path      string
	search    []string
}

// NewLoader creates a loader that honours .env files and the default search paths.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		search:    defaultSearchPaths,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath pins the YAML file; a missing pinned file is an error.
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// Result captures the loaded configuration and its origin path. Path is
// empty when only defaults and environment were used.
type Result struct {
	Config *Config
	Path   string
}

func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		// A missing .env is normal outside development.
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	path, err := l.locate()
	if err != nil {
		return nil, err
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindConfig, "config.read", "read "+path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindConfig, "config.parse", "parse "+path, err)
		}
	}

	applyEnv(cfg)
	normalise(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Result{Config: cfg, Path: path}, nil
}

func (l *Loader) locate() (string, error) {
	pinned := l.path
	if pinned == "" {
		pinned = os.Getenv(EnvConfigPath)
	}
	if pinned != "" {
		if _, err := os.Stat(pinned); err != nil {
			return "", platformerrors.Wrap(platformerrors.KindConfig, "config.locate", "config file "+pinned, err)
		}
		return pinned, nil
	}
	for _, candidate := range l.search {
		_, err := os.Stat(candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", platformerrors.Wrap(platformerrors.KindConfig, "config.locate", "stat "+candidate, err)
		}
	}
	return "", nil
}

func applyEnv(cfg *Config) {
	cfg.Log.Level = getEnv("BIZDASH_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Dir = getEnv("BIZDASH_LOG_DIR", cfg.Log.Dir)
	cfg.Domains.DefaultHost = getEnv("BIZDASH_DEFAULT_HOST", cfg.Domains.DefaultHost)
	cfg.Session.Driver = getEnv("BIZDASH_SESSION_DRIVER", cfg.Session.Driver)
	cfg.Session.Redis.Addr = getEnv("BIZDASH_REDIS_ADDR", cfg.Session.Redis.Addr)
	cfg.Session.Redis.Password = getEnv("BIZDASH_REDIS_PASSWORD", cfg.Session.Redis.Password)
	cfg.Session.SQLite.DSN = getEnv("BIZDASH_SQLITE_DSN", cfg.Session.SQLite.DSN)
	cfg.Session.Postgres.DSN = getEnv("BIZDASH_POSTGRES_DSN", cfg.Session.Postgres.DSN)
	cfg.Orchestrator.MaxRetries = getEnvAsInt("BIZDASH_MAX_RETRIES", cfg.Orchestrator.MaxRetries)
	cfg.Edge.Addr = getEnv("BIZDASH_EDGE_ADDR", cfg.Edge.Addr)
	cfg.Edge.StaticDir = getEnv("BIZDASH_STATIC_DIR", cfg.Edge.StaticDir)
}

func normalise(cfg *Config) {
	cfg.Domains.Primary = strings.ToLower(strings.TrimSpace(cfg.Domains.Primary))
	cfg.Domains.DefaultHost = strings.ToLower(strings.TrimSpace(cfg.Domains.DefaultHost))
	if len(cfg.Domains.Hosts) > 0 {
		hosts := make(map[string]EndpointConfig, len(cfg.Domains.Hosts))
		for host, ep := range cfg.Domains.Hosts {
			hosts[strings.ToLower(strings.TrimSpace(host))] = ep
		}
		cfg.Domains.Hosts = hosts
	}
	cfg.Session.Driver = strings.ToLower(strings.TrimSpace(cfg.Session.Driver))
	if cfg.Session.Driver == "" {
		cfg.Session.Driver = "memory"
	}
}

func getEnv(key string, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid value for %s, using default %d\n", key, defaultVal)
		return defaultVal
	}
	return val
}
