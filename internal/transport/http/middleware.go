package httptransport

import (
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"bizdash-go/internal/domain/guard"
	"bizdash-go/internal/domain/session"
	"bizdash-go/internal/platform/observability"
)

type roleFunc func(c *gin.Context) string

func loggingMiddleware(logger session.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info(
			"[http] %s %s -> %d (%s)",
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start),
		)
	}
}

func observabilityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		reqCtx, spanEnd := observability.StartSpan(c.Request.Context(), "http.server", route)
		c.Request = c.Request.WithContext(reqCtx)

		c.Next()

		var spanErr error
		status := c.Writer.Status()
		if len(c.Errors) > 0 {
			spanErr = c.Errors.Last().Err
		} else if status >= http.StatusInternalServerError {
			spanErr = fmt.Errorf("status %d", status)
		}
		spanEnd(spanErr)
		observability.RecordHTTPRequest(c.Request.Method, status)
	}
}

// guardMiddleware applies the access guard to page navigations. API calls,
// health, metrics and static assets pass through.
func guardMiddleware(g *guard.Guard, role roleFunc, logger session.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isNavigation(c.Request) {
			c.Next()
			return
		}

		p := c.Request.URL.Path
		d := g.Check(c.Request.Host, role(c), p)
		if d.Allowed {
			c.Next()
			return
		}
		logger.Debug("[guard] %s%s denied (%s), redirecting to %s", c.Request.Host, p, d.Reason, d.Redirect)
		if d.Redirect == "" || guard.NormalizePath(d.Redirect) == guard.NormalizePath(p) {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Redirect(http.StatusFound, d.Redirect)
		c.Abort()
	}
}

func isNavigation(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	p := r.URL.Path
	if isAPIPath(p) || p == "/healthz" || p == "/metrics" {
		return false
	}
	// assets carry an extension, pages do not
	return path.Ext(p) == ""
}

func isAPIPath(p string) bool {
	return p == "/api" || strings.HasPrefix(p, "/api/")
}
