// Package preflight checks that the firewall management API is reachable
// before a collector is pointed at it.
//
// The probe runs nmap against the management host and reports the state of
// the API port and any extra ports requested. It is optional: a missing nmap
// binary is reported as ErrNmapUnavailable and never blocks a build.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
	"go.uber.org/zap"
)

// ErrNmapUnavailable is returned when the nmap binary cannot be run
var ErrNmapUnavailable = errors.New("nmap binary not found in PATH")

// PortStatus is the observed state of one port
type PortStatus struct {
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
	State    string `json:"state"`
	Service  string `json:"service,omitempty"`
	Banner   string `json:"banner,omitempty"`
}

// Open reports whether the port accepted connections
func (p PortStatus) Open() bool {
	return p.State == "open"
}

// Result is the outcome of one probe
type Result struct {
	Target   string        `json:"target"`
	Address  string        `json:"address,omitempty"`
	Hostname string        `json:"hostname,omitempty"`
	HostUp   bool          `json:"host_up"`
	APIPort  int           `json:"api_port"`
	Ports    []PortStatus  `json:"ports"`
	Warnings []string      `json:"warnings,omitempty"`
	Took     time.Duration `json:"took"`
}

// Reachable reports whether the management API port is open
func (r *Result) Reachable() bool {
	for _, p := range r.Ports {
		if p.Port == r.APIPort && p.Open() {
			return true
		}
	}
	return false
}

// Prober runs nmap reachability probes
type Prober struct {
	timeout           time.Duration
	extraPorts        string
	serviceDetection  bool
	skipHostDiscovery bool
	logger            *zap.Logger
}

// NewProber creates a prober. By default it skips host discovery, since
// firewalls commonly drop ICMP, and detects the service on each port.
func NewProber(opts ...Option) *Prober {
	p := &Prober{
		timeout:           30 * time.Second,
		serviceDetection:  true,
		skipHostDiscovery: true,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Available checks that nmap can run
func Available(ctx context.Context) bool {
	scanner, err := nmap.NewScanner(
		ctx,
		nmap.WithTargets("localhost"),
		nmap.WithListScan(),
	)
	if err != nil {
		return false
	}
	_, _, err = scanner.Run()
	return err == nil
}

// Probe scans host for the API port and any configured extra ports. host may
// be a bare name, an address or a URL.
func (p *Prober) Probe(ctx context.Context, host string, apiPort int) (*Result, error) {
	target, err := targetHost(host)
	if err != nil {
		return nil, err
	}
	ports, err := p.portList(apiPort)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if !Available(ctx) {
		return nil, ErrNmapUnavailable
	}

	opts := []nmap.Option{
		nmap.WithTargets(target),
		nmap.WithPorts(ports),
	}
	if p.serviceDetection {
		opts = append(opts, nmap.WithServiceInfo())
	}
	if p.skipHostDiscovery {
		opts = append(opts, nmap.WithSkipHostDiscovery())
	}

	scanner, err := nmap.NewScanner(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	p.logger.Info("Probing management host", zap.String("target", target), zap.String("ports", ports))
	start := time.Now()
	run, warnings, err := scanner.Run()
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	result := p.processResults(target, apiPort, run)
	if warnings != nil && len(*warnings) > 0 {
		result.Warnings = *warnings
		p.logger.Warn("Nmap reported warnings", zap.Strings("warnings", *warnings))
	}
	result.Took = time.Since(start)

	p.logger.Info("Probe complete",
		zap.String("target", target),
		zap.Bool("reachable", result.Reachable()),
		zap.Duration("took", result.Took))
	return result, nil
}

func (p *Prober) portList(apiPort int) (string, error) {
	if apiPort < 1 || apiPort > 65535 {
		return "", fmt.Errorf("invalid API port: %d", apiPort)
	}
	ports := strconv.Itoa(apiPort)
	if p.extraPorts != "" {
		ports += "," + p.extraPorts
	}
	return parsePorts(ports)
}

// processResults converts nmap output for one target into a Result
func (p *Prober) processResults(target string, apiPort int, run *nmap.Run) *Result {
	result := &Result{Target: target, APIPort: apiPort, Ports: []PortStatus{}}
	if run == nil || len(run.Hosts) == 0 {
		return result
	}

	host := run.Hosts[0]
	result.HostUp = host.Status.State == "up"
	for _, addr := range host.Addresses {
		if addr.AddrType == "ipv4" || result.Address == "" && addr.AddrType == "ipv6" {
			result.Address = addr.Addr
		}
	}
	if len(host.Hostnames) > 0 {
		result.Hostname = host.Hostnames[0].Name
	}

	for _, port := range host.Ports {
		status := PortStatus{
			Port:     int(port.ID),
			Protocol: port.Protocol,
			State:    port.State.State,
			Service:  port.Service.Name,
		}
		if port.Service.Product != "" {
			status.Banner = strings.TrimSpace(port.Service.Product + " " + port.Service.Version)
		}
		result.Ports = append(result.Ports, status)
	}
	return result
}

// targetHost strips any scheme, path and port from host
func targetHost(host string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", errors.New("no management host configured")
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	u, err := url.Parse(host)
	if err != nil {
		return "", fmt.Errorf("invalid management host: %w", err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("invalid management host %q", host)
	}
	return u.Hostname(), nil
}

// parsePorts validates an nmap port list.
// Supported: "80,443,8080" or "1-1000" or "22,80-443,8080"
func parsePorts(portRange string) (string, error) {
	parts := strings.Split(portRange, ",")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if strings.Contains(part, "-") {
			rangeParts := strings.Split(part, "-")
			if len(rangeParts) != 2 {
				return "", fmt.Errorf("invalid port range: %s", part)
			}
			start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
			if err != nil || start < 1 || start > 65535 {
				return "", fmt.Errorf("invalid port number: %s", rangeParts[0])
			}
			end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
			if err != nil || end < 1 || end > 65535 || end < start {
				return "", fmt.Errorf("invalid port number: %s", rangeParts[1])
			}
		} else {
			port, err := strconv.Atoi(part)
			if err != nil || port < 1 || port > 65535 {
				return "", fmt.Errorf("invalid port number: %s", part)
			}
		}
	}
	return strings.ReplaceAll(portRange, " ", ""), nil
}
