package fortigate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"topolab/internal/collector"
)

// FortiOS API paths, one per collector source
const (
	pathSystemStatus    = "/api/v2/monitor/system/status"
	pathSystemGlobal    = "/api/v2/cmdb/system/global"
	pathInterfaces      = "/api/v2/cmdb/system/interface"
	pathManagedSwitches = "/api/v2/cmdb/switch-controller/managed-switch"
	pathManagedAPs      = "/api/v2/cmdb/wifi/wifi-ap-managed"
	pathUserDevices     = "/api/v2/monitor/user/device"
)

// Client implements collector.Collector against one FortiGate
type Client struct {
	session *Session
	logger  *zap.Logger
}

var _ collector.Collector = (*Client)(nil)

// NewClient creates a collector bound to session
func NewClient(session *Session, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{session: session, logger: logger}
}

// Host returns the management address of the FortiGate
func (c *Client) Host() string {
	return c.session.Host()
}

// TestConnection logs in and reads the system status
func (c *Client) TestConnection(ctx context.Context) error {
	if err := c.session.Login(ctx); err != nil {
		return err
	}
	if _, err := c.SystemStatus(ctx); err != nil {
		return err
	}
	c.logger.Info("Connected to FortiGate", zap.String("host", c.Host()))
	return nil
}

// Close ends the session
func (c *Client) Close(ctx context.Context) error {
	return c.session.Logout(ctx)
}

// SystemStatus implements collector.Collector
func (c *Client) SystemStatus(ctx context.Context) (collector.Record, error) {
	return c.fetchRecord(ctx, collector.SourceSystemStatus, pathSystemStatus)
}

// SystemInfo implements collector.Collector
func (c *Client) SystemInfo(ctx context.Context) (collector.Record, error) {
	return c.fetchRecord(ctx, collector.SourceSystemInfo, pathSystemGlobal)
}

// Interfaces implements collector.Collector
func (c *Client) Interfaces(ctx context.Context) ([]collector.Record, error) {
	return c.fetchResults(ctx, collector.SourceInterfaces, pathInterfaces)
}

// ManagedSwitches implements collector.Collector
func (c *Client) ManagedSwitches(ctx context.Context) ([]collector.Record, error) {
	return c.fetchResults(ctx, collector.SourceSwitches, pathManagedSwitches)
}

// AccessPoints implements collector.Collector
func (c *Client) AccessPoints(ctx context.Context) ([]collector.Record, error) {
	return c.fetchResults(ctx, collector.SourceAccessPoints, pathManagedAPs)
}

// UserDevices implements collector.Collector
func (c *Client) UserDevices(ctx context.Context) ([]collector.Record, error) {
	return c.fetchResults(ctx, collector.SourceUserDevices, pathUserDevices)
}

// fetchResults reads a list endpoint. A body without "results" is an empty
// list; a "results" value that is not a list is malformed.
func (c *Client) fetchResults(ctx context.Context, source collector.Source, path string) ([]collector.Record, error) {
	body, err := c.fetchRecord(ctx, source, path)
	if err != nil {
		return nil, err
	}

	raw, ok := body["results"]
	if !ok || raw == nil {
		return []collector.Record{}, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, collector.NewFetchError(source, collector.FailureMalformed,
			fmt.Errorf("results is %T, want a list", raw))
	}

	records := make([]collector.Record, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, collector.NewFetchError(source, collector.FailureMalformed,
				fmt.Errorf("results[%d] is %T, want an object", i, item))
		}
		records = append(records, collector.Record(m))
	}
	return records, nil
}

func (c *Client) fetchRecord(ctx context.Context, source collector.Source, path string) (collector.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, c.session.cfg.Timeout)
	defer cancel()

	if err := c.session.Login(ctx); err != nil {
		kind := collector.FailureNetwork
		if errors.Is(err, ErrLoginFailed) {
			kind = collector.FailureAuth
		}
		return nil, collector.NewFetchError(source, kind, err)
	}

	resp, err := c.session.Get(ctx, path)
	if err != nil {
		return nil, collector.NewFetchError(source, collector.FailureNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, collector.NewFetchError(source, collector.FailureAuth,
			fmt.Errorf("%s returned %d", path, resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, collector.NewFetchError(source, collector.FailureNetwork,
			fmt.Errorf("%s returned %d", path, resp.StatusCode))
	}

	var body map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, 32<<20)).Decode(&body); err != nil {
		return nil, collector.NewFetchError(source, collector.FailureMalformed,
			fmt.Errorf("decode %s: %w", path, err))
	}

	c.logger.Debug("Fetched FortiGate source", zap.String("source", string(source)), zap.String("path", path))
	return collector.Record(body), nil
}
