// Package guard decides whether a dashboard navigation is permitted, on
// the role axis and on the domain axis. It is a UX layer only; the backend
// authorises every call on its own.
package guard

import (
	"net/url"
	"path"
	"sort"
	"strings"

	"bizdash-go/internal/domain/resolver"
	"bizdash-go/internal/platform/observability"
)

const (
	ReasonPublic        = "public"
	ReasonAllowed       = "allowed"
	ReasonLoginRequired = "login_required"
	ReasonRoleDenied    = "role_denied"
	ReasonDomainDenied  = "domain_denied"
)

type Config struct {
	PublicRoutes []string
	CommonRoutes []string
	// WildcardRole may open every route.
	WildcardRole string
	Roles        map[string][]string
	// DomainPages restricts listed hosts to their page prefixes. A key of
	// the form "*.example.com" covers every subdomain.
	DomainPages map[string][]string
	LoginRoute  string
	DeniedRoute string
}

// Decision is the outcome of Check.
type Decision struct {
	Allowed  bool   `json:"allowed"`
	Reason   string `json:"reason"`
	Redirect string `json:"redirect,omitempty"`
}

type domainRule struct {
	host     string
	wildcard bool
	pages    []string
}

// Guard is immutable after New and safe for concurrent use.
type Guard struct {
	public      []string
	common      []string
	wildcard    string
	roles       map[string][]string
	domains     []domainRule
	loginRoute  string
	deniedRoute string
}

func New(cfg Config) *Guard {
	g := &Guard{
		public:      normalizeAll(cfg.PublicRoutes),
		common:      normalizeAll(cfg.CommonRoutes),
		wildcard:    strings.ToLower(strings.TrimSpace(cfg.WildcardRole)),
		roles:       make(map[string][]string, len(cfg.Roles)),
		loginRoute:  cfg.LoginRoute,
		deniedRoute: cfg.DeniedRoute,
	}
	if g.loginRoute == "" {
		g.loginRoute = "/login"
	}
	if g.deniedRoute == "" {
		g.deniedRoute = "/"
	}
	for role, routes := range cfg.Roles {
		g.roles[strings.ToLower(strings.TrimSpace(role))] = normalizeAll(routes)
	}
	for host, pages := range cfg.DomainPages {
		rule := domainRule{pages: normalizeAll(pages)}
		host = strings.ToLower(strings.TrimSpace(host))
		if strings.HasPrefix(host, "*.") {
			rule.wildcard = true
			host = strings.TrimPrefix(host, "*.")
		}
		rule.host = resolver.Normalize(host)
		g.domains = append(g.domains, rule)
	}
	// exact rules first, then the most specific wildcard
	sort.Slice(g.domains, func(i, j int) bool {
		a, b := g.domains[i], g.domains[j]
		if a.wildcard != b.wildcard {
			return !a.wildcard
		}
		if len(a.host) != len(b.host) {
			return len(a.host) > len(b.host)
		}
		return a.host < b.host
	})
	return g
}

// IsRouteAllowed reports whether role may open p. An empty role only
// reaches public routes.
func (g *Guard) IsRouteAllowed(role, p string) bool {
	p = NormalizePath(p)
	if matchesAny(g.public, p) {
		return true
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return false
	}
	if g.wildcard != "" && role == g.wildcard {
		return true
	}
	if matchesAny(g.common, p) {
		return true
	}
	for _, prefix := range g.roles[role] {
		if prefix == "*" || matches(prefix, p) {
			return true
		}
	}
	return false
}

// IsDomainAllowed reports whether host exposes p. Hosts without a
// domain_pages entry expose everything.
func (g *Guard) IsDomainAllowed(host, p string) bool {
	p = NormalizePath(p)
	if matchesAny(g.public, p) {
		return true
	}
	rule, ok := g.ruleFor(host)
	if !ok {
		return true
	}
	for _, prefix := range rule.pages {
		if prefix == "*" || matches(prefix, p) {
			return true
		}
	}
	return false
}

// Check combines both axes. The domain axis is evaluated first so a
// restricted host never leaks the existence of other pages.
func (g *Guard) Check(host, role, p string) Decision {
	d := g.check(host, role, p)
	observability.RecordGuardDecision(d.Allowed, d.Reason)
	return d
}

func (g *Guard) check(host, role, p string) Decision {
	p = NormalizePath(p)
	if matchesAny(g.public, p) {
		return Decision{Allowed: true, Reason: ReasonPublic}
	}
	if !g.IsDomainAllowed(host, p) {
		return Decision{Reason: ReasonDomainDenied, Redirect: g.deniedRoute}
	}
	if strings.TrimSpace(role) == "" {
		return Decision{Reason: ReasonLoginRequired, Redirect: g.LoginRedirect(p)}
	}
	if !g.IsRouteAllowed(role, p) {
		return Decision{Reason: ReasonRoleDenied, Redirect: g.deniedRoute}
	}
	return Decision{Allowed: true, Reason: ReasonAllowed}
}

// LoginRedirect returns the login route carrying returnPath.
func (g *Guard) LoginRedirect(returnPath string) string {
	if returnPath == "" || returnPath == "/" || returnPath == g.loginRoute {
		return g.loginRoute
	}
	return g.loginRoute + "?redirect=" + url.QueryEscape(returnPath)
}

func (g *Guard) ruleFor(host string) (domainRule, bool) {
	h := resolver.Normalize(host)
	if h == "" {
		return domainRule{}, false
	}
	for _, r := range g.domains {
		if r.wildcard {
			if strings.HasSuffix(h, "."+r.host) {
				return r, true
			}
			continue
		}
		if h == r.host {
			return r, true
		}
	}
	return domainRule{}, false
}

// NormalizePath strips query and fragment, cleans the path and trims the
// trailing slash. The result always starts with "/".
func NormalizePath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func normalizeAll(routes []string) []string {
	out := make([]string, 0, len(routes))
	for _, r := range routes {
		if strings.TrimSpace(r) == "*" {
			out = append(out, "*")
			continue
		}
		out = append(out, NormalizePath(r))
	}
	return out
}

// matches is a segment-boundary prefix test. "/" only matches itself.
func matches(prefix, p string) bool {
	if prefix == "/" {
		return p == "/"
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

func matchesAny(prefixes []string, p string) bool {
	for _, prefix := range prefixes {
		if matches(prefix, p) {
			return true
		}
	}
	return false
}
