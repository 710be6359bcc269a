package auth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"bizdash-go/internal/domain/failure"
	"bizdash-go/internal/domain/resolver"
	"bizdash-go/internal/domain/session"
)

const maxResponseBody = 1 << 20

// API is the auth REST backend as seen by the Manager. Every error it
// returns is a *failure.Error.
type API interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	Logout(ctx context.Context, cred session.Credential) error
	User(ctx context.Context, cred session.Credential) (*session.UserProfile, error)
	Refresh(ctx context.Context, cred session.Credential) (*TokenResponse, error)
}

// LoginResponse is a successful POST /login.
type LoginResponse struct {
	TokenResponse
	User session.UserProfile
}

// ClientConfig names the auth endpoints relative to the resolved auth base.
type ClientConfig struct {
	Host        string
	LoginPath   string
	LogoutPath  string
	UserPath    string
	RefreshPath string
	Timeout     time.Duration
}

// Client talks to the auth REST service of the tenant Host resolves to.
type Client struct {
	http     *http.Client
	resolver *resolver.Resolver
	cfg      ClientConfig
}

func NewClient(httpClient *http.Client, res *resolver.Resolver, cfg ClientConfig) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.LogoutPath == "" {
		cfg.LogoutPath = "/logout"
	}
	if cfg.UserPath == "" {
		cfg.UserPath = "/user"
	}
	if cfg.RefreshPath == "" {
		cfg.RefreshPath = "/refresh"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{http: httpClient, resolver: res, cfg: cfg}
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	body := map[string]string{"email": email, "password": password}
	root, err := c.do(ctx, "auth.login", http.MethodPost, c.cfg.LoginPath, "", body)
	if err != nil {
		return nil, err
	}
	tok, ok := parseToken(root)
	if !ok {
		return nil, failure.New("auth.login", failure.KindUnknown, fmt.Errorf("login response without token"))
	}
	return &LoginResponse{TokenResponse: tok, User: parseUser(root)}, nil
}

func (c *Client) Logout(ctx context.Context, cred session.Credential) error {
	_, err := c.do(ctx, "auth.logout", http.MethodPost, c.cfg.LogoutPath, cred.AuthorizationHeader(), nil)
	return err
}

func (c *Client) User(ctx context.Context, cred session.Credential) (*session.UserProfile, error) {
	root, err := c.do(ctx, "auth.user", http.MethodGet, c.cfg.UserPath, cred.AuthorizationHeader(), nil)
	if err != nil {
		return nil, err
	}
	profile := parseUser(root)
	if profile.ID == "" && profile.Email == "" {
		return nil, failure.New("auth.user", failure.KindUnknown, fmt.Errorf("user response without identity"))
	}
	return &profile, nil
}

func (c *Client) Refresh(ctx context.Context, cred session.Credential) (*TokenResponse, error) {
	root, err := c.do(ctx, "auth.refresh", http.MethodPost, c.cfg.RefreshPath, cred.AuthorizationHeader(), nil)
	if err != nil {
		return nil, err
	}
	tok, ok := parseToken(root)
	if !ok {
		return nil, failure.New("auth.refresh", failure.KindUnknown, fmt.Errorf("refresh response without token"))
	}
	return &tok, nil
}

func (c *Client) endpoint(path string) string {
	base := c.resolver.Resolve(c.cfg.Host).AuthBase
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// do sends one request; authorization is the full header value or "".
func (c *Client) do(ctx context.Context, op, method, path, authorization string, body any) (gjson.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := sonic.Marshal(body)
		if err != nil {
			return gjson.Result{}, failure.New(op, failure.KindUnknown, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return gjson.Result{}, failure.New(op, failure.KindUnknown, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, failure.Wrap(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return gjson.Result{}, failure.Wrap(op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return gjson.Result{}, failure.Wrap(op, failure.FromResponse(resp, data))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return gjson.Result{}, nil
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, failure.New(op, failure.KindUnknown, fmt.Errorf("invalid json response"))
	}
	return gjson.ParseBytes(data), nil
}

func parseToken(root gjson.Result) (TokenResponse, bool) {
	token := root.Get("token").String()
	if token == "" {
		token = root.Get("access_token").String()
	}
	if token == "" {
		return TokenResponse{}, false
	}
	tok := TokenResponse{
		Token:     token,
		TokenType: root.Get("token_type").String(),
	}
	if secs := root.Get("expires_in").Int(); secs > 0 {
		tok.ExpiresIn = time.Duration(secs) * time.Second
	}
	return tok, true
}

// parseUser accepts {"user": {...}} or a bare user object. Numeric ids are
// kept as their decimal text.
func parseUser(root gjson.Result) session.UserProfile {
	u := root.Get("user")
	if !u.IsObject() {
		u = root
	}
	role := u.Get("role")
	if role.IsObject() {
		role = role.Get("name")
	}
	verified := u.Get("email_verified").Bool()
	if at := u.Get("email_verified_at"); at.Exists() && at.Type != gjson.Null {
		verified = true
	}
	return session.UserProfile{
		ID:            u.Get("id").String(),
		Name:          u.Get("name").String(),
		Email:         u.Get("email").String(),
		Role:          role.String(),
		Status:        u.Get("status").String(),
		EmailVerified: verified,
	}
}
