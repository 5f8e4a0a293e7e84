// Package fortigate implements the collector contract against the FortiOS
// REST API.
//
// Session state (cookies, CSRF token, API token) lives in an explicit Session
// owned by one Client. Nothing is shared process-wide.
package fortigate

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultPort is the FortiOS HTTPS admin port
	DefaultPort = 443
	// DefaultTimeout bounds a single fetch
	DefaultTimeout = 15 * time.Second

	csrfCookie = "ccsrftoken"
	csrfHeader = "X-CSRFToken"
)

// ErrLoginFailed is returned when username/password login is rejected
var ErrLoginFailed = errors.New("fortigate login failed")

// Config describes how to reach one FortiGate
type Config struct {
	// Host is a hostname or IP. A value with an http:// or https:// scheme is
	// used as the base URL verbatim.
	Host      string
	Port      int
	Username  string
	Password  string
	APIToken  string
	VerifySSL bool
	Timeout   time.Duration
}

// Session holds the authentication state of one client against one FortiGate
type Session struct {
	cfg     Config
	baseURL *url.URL
	http    *http.Client
	logger  *zap.Logger

	mu        sync.Mutex
	csrfToken string
	loggedIn  bool
}

// NewSession creates an unauthenticated session
func NewSession(cfg Config, logger *zap.Logger) (*Session, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("fortigate host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	base, err := baseURL(cfg)
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: !cfg.VerifySSL} //nolint:gosec // self-signed appliance certificates

	return &Session{
		cfg:     cfg,
		baseURL: base,
		http:    &http.Client{Transport: transport, Jar: jar},
		logger:  logger,
	}, nil
}

func baseURL(cfg Config) (*url.URL, error) {
	raw := cfg.Host
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid fortigate host %q: %w", cfg.Host, err)
	}
	return u, nil
}

// Host returns the management address without scheme or port
func (s *Session) Host() string {
	return s.baseURL.Hostname()
}

// usesToken reports whether requests authenticate with an API token
func (s *Session) usesToken() bool {
	return s.cfg.APIToken != ""
}

// Login authenticates the session. Token sessions need no login.
func (s *Session) Login(ctx context.Context) error {
	if s.usesToken() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loggedIn {
		return nil
	}

	loginURL := s.resolve("/login")

	// The login page sets the CSRF cookie
	resp, err := s.send(ctx, http.MethodGet, loginURL, nil, "")
	if err != nil {
		return fmt.Errorf("load login page: %w", err)
	}
	drain(resp)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: login page returned %d", ErrLoginFailed, resp.StatusCode)
	}
	s.csrfToken = s.cookie(csrfCookie)

	form := url.Values{
		"username":  {s.cfg.Username},
		"secretkey": {s.cfg.Password},
		"redir":     {"/"},
	}
	resp, err = s.send(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return fmt.Errorf("submit login: %w", err)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK || !strings.Contains(strings.ToLower(string(body)), "logout") {
		return fmt.Errorf("%w: status %d", ErrLoginFailed, resp.StatusCode)
	}
	if token := s.cookie(csrfCookie); token != "" {
		s.csrfToken = token
	}

	s.loggedIn = true
	s.logger.Info("Logged in to FortiGate", zap.String("host", s.Host()))
	return nil
}

// Logout ends a cookie session. It is a no-op for token sessions.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usesToken() || !s.loggedIn {
		return nil
	}

	resp, err := s.send(ctx, http.MethodGet, s.resolve("/logout"), nil, "")
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	drain(resp)

	s.loggedIn = false
	s.csrfToken = ""
	s.logger.Info("Logged out from FortiGate", zap.String("host", s.Host()))
	return nil
}

// Get performs an authenticated GET against an API path
func (s *Session) Get(ctx context.Context, path string) (*http.Response, error) {
	return s.send(ctx, http.MethodGet, s.resolve(path), nil, "")
}

func (s *Session) send(ctx context.Context, method, target string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if s.usesToken() {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIToken)
	} else if s.csrfToken != "" {
		req.Header.Set(csrfHeader, s.csrfToken)
	}
	return s.http.Do(req)
}

func (s *Session) resolve(path string) string {
	return s.baseURL.ResolveReference(&url.URL{Path: path}).String()
}

func (s *Session) cookie(name string) string {
	for _, c := range s.http.Jar.Cookies(s.baseURL) {
		if c.Name == name {
			return strings.Trim(c.Value, `"`)
		}
	}
	return ""
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
}
