package httptransport

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bizdash-go/internal/domain/guard"
	"bizdash-go/internal/domain/resolver"
)

type handlers struct {
	guard    *guard.Guard
	resolver *resolver.Resolver
	sessions Sessions
}

// SessionCookie carries the access token for browser requests that cannot
// set an Authorization header, such as websocket upgrades.
const SessionCookie = "bizdash_session"

func presentedToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	if v, err := c.Cookie(SessionCookie); err == nil {
		return v
	}
	return ""
}

// owner reports whether the request carries the credential of the session
// held by this process. Everyone else is anonymous.
func (h *handlers) owner(c *gin.Context) bool {
	if h.sessions == nil || !h.sessions.Authenticated() {
		return false
	}
	presented := presentedToken(c)
	current := h.sessions.Token(c.Request.Context())
	if presented == "" || current == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(current)) == 1
}

// role is the role of the signed-in user when the request carries that
// user's credential, otherwise "".
func (h *handlers) role(c *gin.Context) string {
	if !h.owner(c) {
		return ""
	}
	if p := h.sessions.Profile(c.Request.Context()); p != nil {
		return p.Role
	}
	return ""
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// accessCheck answers GET /api/access/check?path=&role=. Without a role
// parameter the caller's own role is used.
func (h *handlers) accessCheck(c *gin.Context) {
	p := c.Query("path")
	if p == "" {
		RespondError(c, http.StatusBadRequest, "path is required", gin.H{})
		return
	}
	role, ok := c.GetQuery("role")
	if !ok {
		role = h.role(c)
	}
	RespondSuccess(c, http.StatusOK, h.guard.Check(c.Request.Host, role, p), "")
}

func (h *handlers) endpoints(c *gin.Context) {
	RespondSuccess(c, http.StatusOK, h.resolver.ResolveRequest(c.Request), "")
}

func (h *handlers) session(c *gin.Context) {
	if !h.owner(c) {
		RespondSuccess(c, http.StatusOK, gin.H{"authenticated": false}, "")
		return
	}
	RespondSuccess(c, http.StatusOK, gin.H{
		"authenticated": true,
		"user":          h.sessions.Profile(c.Request.Context()),
	}, "")
}

// requireSession rejects requests that do not carry the session credential.
func (h *handlers) requireSession(c *gin.Context) {
	if !h.owner(c) {
		RespondError(c, http.StatusUnauthorized, "unauthenticated", gin.H{})
		c.Abort()
		return
	}
	c.Next()
}
