package config

import (
	"fmt"
	"net/url"
	"strings"

	platformerrors "bizdash-go/internal/platform/errors"
)

var knownDrivers = map[string]struct{}{
	"none": {}, "memory": {}, "redis": {}, "sqlite": {}, "postgres": {},
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Domains.Primary == "" {
		problems = append(problems, "domains.primary is required")
	} else if _, ok := c.Domains.Hosts[strings.ToLower(c.Domains.Primary)]; !ok {
		problems = append(problems, fmt.Sprintf("domains.primary %q has no entry in domains.hosts", c.Domains.Primary))
	}
	for host, ep := range c.Domains.Hosts {
		problems = append(problems, checkEndpoint("domains.hosts."+host, ep)...)
	}
	problems = append(problems, checkEndpoint("domains.development", c.Domains.Development)...)

	if _, ok := knownDrivers[c.Session.Driver]; !ok {
		problems = append(problems, fmt.Sprintf("session.driver %q is not supported", c.Session.Driver))
	}
	switch c.Session.Driver {
	case "redis":
		if c.Session.Redis.Addr == "" {
			problems = append(problems, "session.redis.addr is required for the redis driver")
		}
	case "sqlite":
		if c.Session.SQLite.DSN == "" {
			problems = append(problems, "session.sqlite.dsn is required for the sqlite driver")
		}
	case "postgres":
		if c.Session.Postgres.DSN == "" {
			problems = append(problems, "session.postgres.dsn is required for the postgres driver")
		}
	}

	o := c.Orchestrator
	if o.MaxRetries < 0 {
		problems = append(problems, "orchestrator.max_retries must not be negative")
	}
	switch {
	case o.BaseDelay <= 0:
		problems = append(problems, "orchestrator.base_delay must be positive")
	case o.MaxDelay <= 0:
		problems = append(problems, "orchestrator.max_delay must be positive")
	case o.MaxDelay < o.BaseDelay:
		problems = append(problems, "orchestrator.max_delay must not be below base_delay")
	}
	if o.BackoffFactor < 1 {
		problems = append(problems, "orchestrator.backoff_factor must be >= 1")
	}
	if o.Timeouts.Query <= 0 || o.Timeouts.Mutation <= 0 || o.Timeouts.Background <= 0 {
		problems = append(problems, "orchestrator.timeouts must all be positive")
	}
	if c.Auth.Timeout <= 0 || c.Auth.RefreshTimeout <= 0 {
		problems = append(problems, "auth timeouts must be positive")
	}
	if c.Monitor.Enabled && c.Monitor.Interval <= 0 {
		problems = append(problems, "monitor.interval must be positive when the monitor is enabled")
	}

	if len(problems) == 0 {
		return nil
	}
	return platformerrors.New(platformerrors.KindConfig, "config.validate", strings.Join(problems, "; "))
}

func checkEndpoint(name string, ep EndpointConfig) []string {
	var out []string
	for field, raw := range map[string]string{"api_base": ep.APIBase, "auth_base": ep.AuthBase} {
		u, err := url.Parse(raw)
		if raw == "" || err != nil || u.Scheme == "" || u.Host == "" {
			out = append(out, fmt.Sprintf("%s.%s must be an absolute URL", name, field))
		}
	}
	return out
}
