// Package resolver maps the hostname a request arrived on to the backend
// endpoints of that tenant.
package resolver

import (
	"net"
	"net/http"
	"sort"
	"strings"
)

// Endpoints are the backend bases for one tenant.
type Endpoints struct {
	APIBase  string `json:"api_base"`
	AuthBase string `json:"auth_base"`
}

// Config is the static hostname table.
type Config struct {
	// Primary is the key in Hosts used as the production fallback.
	Primary     string
	Development Endpoints
	Hosts       map[string]Endpoints
}

// Resolver is immutable after New and safe for concurrent use.
type Resolver struct {
	primary     Endpoints
	development Endpoints
	exact       map[string]Endpoints
	// domains sorted longest first so the most specific suffix wins.
	domains []string
}

func New(cfg Config) *Resolver {
	r := &Resolver{
		development: cfg.Development,
		exact:       make(map[string]Endpoints, len(cfg.Hosts)),
	}
	for host, ep := range cfg.Hosts {
		h := Normalize(host)
		if h == "" {
			continue
		}
		r.exact[h] = ep
		r.domains = append(r.domains, h)
	}
	sort.Slice(r.domains, func(i, j int) bool {
		if len(r.domains[i]) != len(r.domains[j]) {
			return len(r.domains[i]) > len(r.domains[j])
		}
		return r.domains[i] < r.domains[j]
	})

	if ep, ok := r.exact[Normalize(cfg.Primary)]; ok {
		r.primary = ep
	} else if len(r.domains) > 0 {
		r.primary = r.exact[r.domains[len(r.domains)-1]]
	} else {
		r.primary = cfg.Development
	}
	return r
}

// Resolve returns the endpoints for host. It never fails: unknown or
// malformed input yields the primary production entry.
func (r *Resolver) Resolve(host string) Endpoints {
	h := Normalize(host)
	if h == "" {
		return r.primary
	}
	if ep, ok := r.exact[h]; ok {
		return ep
	}
	for _, d := range r.domains {
		if strings.HasSuffix(h, "."+d) {
			return r.exact[d]
		}
	}
	if IsLocal(h) {
		return r.development
	}
	// Preview deployments embed the production domain, e.g.
	// admin.bizdash.io.preview.example.net.
	for _, d := range r.domains {
		if strings.HasPrefix(h, d+".") || strings.Contains(h, "."+d+".") {
			return r.exact[d]
		}
	}
	return r.primary
}

// ResolveRequest resolves the Host header of req, preferring
// X-Forwarded-Host when a proxy set one.
func (r *Resolver) ResolveRequest(req *http.Request) Endpoints {
	if req == nil {
		return r.primary
	}
	if fwd := req.Header.Get("X-Forwarded-Host"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return r.Resolve(fwd)
	}
	return r.Resolve(req.Host)
}

// Primary returns the production fallback entry.
func (r *Resolver) Primary() Endpoints {
	return r.primary
}

// Normalize lower-cases host and strips scheme, userinfo, path, port and a
// trailing dot. It returns "" when nothing host-like remains.
func Normalize(host string) string {
	h := strings.TrimSpace(strings.ToLower(host))
	if i := strings.Index(h, "://"); i >= 0 {
		h = h[i+3:]
	}
	if i := strings.IndexAny(h, "/?#"); i >= 0 {
		h = h[:i]
	}
	if i := strings.LastIndexByte(h, '@'); i >= 0 {
		h = h[i+1:]
	}
	if strings.HasPrefix(h, "[") {
		if i := strings.IndexByte(h, ']'); i > 0 {
			h = h[1:i]
		}
	} else if hostOnly, _, err := net.SplitHostPort(h); err == nil {
		h = hostOnly
	}
	h = strings.TrimSuffix(h, ".")
	if strings.ContainsAny(h, " \t") {
		return ""
	}
	return h
}

// IsLocal reports whether a normalised host points at the developer machine.
func IsLocal(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1", "0.0.0.0":
		return true
	}
	return strings.HasSuffix(host, ".localhost")
}
