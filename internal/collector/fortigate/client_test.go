package fortigate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topolab/internal/collector"
)

// fakeFortiGate is a minimal FortiOS API with both login and token auth
type fakeFortiGate struct {
	token     string
	password  string
	logins    atomic.Int32
	logouts   atomic.Int32
	responses map[string]string
}

func (f *fakeFortiGate) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: csrfCookie, Value: "csrf-123", Path: "/"})
		fmt.Fprint(w, "<html>login</html>")
	})
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("secretkey") != f.password {
			fmt.Fprint(w, "<html>bad credentials</html>")
			return
		}
		if r.Header.Get(csrfHeader) != "csrf-123" {
			http.Error(w, "missing csrf", http.StatusForbidden)
			return
		}
		f.logins.Add(1)
		http.SetCookie(w, &http.Cookie{Name: "APSCOOKIE", Value: "session", Path: "/"})
		fmt.Fprint(w, `<html><a href="/logout">Logout</a></html>`)
	})
	mux.HandleFunc("GET /logout", func(w http.ResponseWriter, r *http.Request) {
		f.logouts.Add(1)
	})
	mux.HandleFunc("GET /api/v2/", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		body, ok := f.responses[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	})
	return mux
}

func (f *fakeFortiGate) authorized(r *http.Request) bool {
	if f.token != "" {
		return r.Header.Get("Authorization") == "Bearer "+f.token
	}
	c, err := r.Cookie("APSCOOKIE")
	return err == nil && c.Value == "session"
}

func defaultResponses() map[string]string {
	return map[string]string{
		pathSystemStatus:    `{"hostname": "fw-lab", "serial": "FG61E3X16800123", "version": "v6.4.5"}`,
		pathSystemGlobal:    `{"results": {"hostname": "fw-lab"}}`,
		pathInterfaces:      `{"results": [{"name": "port1", "status": "up", "speed": "1000full"}, {"name": "port2", "status": "down"}]}`,
		pathManagedSwitches: `{"results": []}`,
		pathManagedAPs:      `{"status": "success"}`,
		pathUserDevices:     `{"results": [{"mac": "aa:bb:cc:dd:ee:ff", "hostname": "laptop"}]}`,
	}
}

func newTestClient(t *testing.T, fake *fakeFortiGate, cfg Config) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	cfg.Host = srv.URL
	session, err := NewSession(cfg, nil)
	require.NoError(t, err)
	return NewClient(session, nil)
}

func TestClientWithAPIToken(t *testing.T) {
	fake := &fakeFortiGate{token: "secret-token", responses: defaultResponses()}
	client := newTestClient(t, fake, Config{APIToken: "secret-token"})
	ctx := context.Background()

	status, err := client.SystemStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fw-lab", status.String("hostname", ""))

	ifaces, err := client.Interfaces(ctx)
	require.NoError(t, err)
	require.Len(t, ifaces, 2)
	assert.Equal(t, "port1", ifaces[0].String("name", ""))

	switches, err := client.ManagedSwitches(ctx)
	require.NoError(t, err)
	assert.Empty(t, switches)

	aps, err := client.AccessPoints(ctx)
	require.NoError(t, err, "a body without results is an empty list")
	assert.Empty(t, aps)

	devices, err := client.UserDevices(ctx)
	require.NoError(t, err)
	assert.Equal(t, "laptop", devices[0].String("hostname", ""))

	assert.Equal(t, int32(0), fake.logins.Load(), "token sessions never log in")
	assert.Equal(t, "127.0.0.1", client.Host())
}

func TestClientWithLogin(t *testing.T) {
	fake := &fakeFortiGate{password: "hunter2", responses: defaultResponses()}
	client := newTestClient(t, fake, Config{Username: "admin", Password: "hunter2"})
	ctx := context.Background()

	require.NoError(t, client.TestConnection(ctx))

	info, err := client.SystemInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fw-lab", info.Record("results").String("hostname", ""))
	assert.Equal(t, int32(1), fake.logins.Load(), "login happens once per session")

	require.NoError(t, client.Close(ctx))
	assert.Equal(t, int32(1), fake.logouts.Load())
}

func TestClientLoginRejected(t *testing.T) {
	fake := &fakeFortiGate{password: "hunter2", responses: defaultResponses()}
	client := newTestClient(t, fake, Config{Username: "admin", Password: "wrong"})

	_, err := client.Interfaces(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.Equal(t, collector.FailureAuth, collector.KindOf(err))
}

func TestClientFailureKinds(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		override map[string]string
		fetch    func(c *Client) error
		want     collector.FailureKind
	}{
		{
			name:  "wrong token is an auth failure",
			token: "other",
			fetch: func(c *Client) error { _, err := c.SystemStatus(context.Background()); return err },
			want:  collector.FailureAuth,
		},
		{
			name:     "invalid json is malformed",
			token:    "t",
			override: map[string]string{pathSystemStatus: `{not json`},
			fetch:    func(c *Client) error { _, err := c.SystemStatus(context.Background()); return err },
			want:     collector.FailureMalformed,
		},
		{
			name:     "results of the wrong type are malformed",
			token:    "t",
			override: map[string]string{pathManagedSwitches: `{"results": {"name": "sw"}}`},
			fetch:    func(c *Client) error { _, err := c.ManagedSwitches(context.Background()); return err },
			want:     collector.FailureMalformed,
		},
		{
			name:     "non-object result entries are malformed",
			token:    "t",
			override: map[string]string{pathUserDevices: `{"results": ["aa:bb"]}`},
			fetch:    func(c *Client) error { _, err := c.UserDevices(context.Background()); return err },
			want:     collector.FailureMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responses := defaultResponses()
			for k, v := range tt.override {
				responses[k] = v
			}
			fake := &fakeFortiGate{token: "t", responses: responses}
			client := newTestClient(t, fake, Config{APIToken: tt.token})

			err := tt.fetch(client)
			require.Error(t, err)
			var fe *collector.FetchError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.want, fe.Kind)
		})
	}
}

func TestClientNotFoundIsNetworkFailure(t *testing.T) {
	responses := defaultResponses()
	delete(responses, pathManagedAPs)
	fake := &fakeFortiGate{token: "t", responses: responses}
	client := newTestClient(t, fake, Config{APIToken: "t"})

	_, err := client.AccessPoints(context.Background())
	assert.Equal(t, collector.FailureNetwork, collector.KindOf(err))
}

func TestClientFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	session, err := NewSession(Config{Host: srv.URL, APIToken: "t", Timeout: 50 * time.Millisecond}, nil)
	require.NoError(t, err)
	client := NewClient(session, nil)

	start := time.Now()
	_, err = client.SystemStatus(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewSession(t *testing.T) {
	_, err := NewSession(Config{}, nil)
	assert.Error(t, err)

	s, err := NewSession(Config{Host: "192.168.0.254", Port: 10443}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://192.168.0.254:10443", s.baseURL.String())
	assert.Equal(t, "192.168.0.254", s.Host())
	assert.Equal(t, DefaultTimeout, s.cfg.Timeout)

	s, err = NewSession(Config{Host: "fw.example.net"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://fw.example.net:443", s.baseURL.String())
}
