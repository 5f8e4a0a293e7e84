package topology

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"topolab/internal/collector"
	"topolab/internal/domain"
)

// Builder turns one collector's inventories into a TopologyGraph. A Builder
// holds no per-build state and is safe for concurrent Build calls.
type Builder struct {
	collector  collector.Collector
	logger     *zap.Logger
	now        func() time.Time
	firewallIP string
}

// Option configures a Builder
type Option func(*Builder)

// WithLogger sets the logger used for degraded-fetch warnings and build summaries
func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithClock sets the clock stamped into Metadata.LastUpdated
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithFirewallIP sets the management address recorded on the firewall device
func WithFirewallIP(ip string) Option {
	return func(b *Builder) {
		b.firewallIP = ip
	}
}

// NewBuilder binds a builder to a collector
func NewBuilder(c collector.Collector, opts ...Option) *Builder {
	b := &Builder{
		collector: c,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build runs one build. Collector failures degrade the affected category and
// never surface here; the only errors are cancellation of ctx and
// domain.ErrBuildInconsistency.
func (b *Builder) Build(ctx context.Context) (*domain.TopologyGraph, error) {
	start := time.Now()

	inv, err := b.fetch(ctx)
	if err != nil {
		return nil, err
	}

	asm := newAssembler()
	asm.addRoot(b.firewall(inv.status, inv.info))

	up := upInterfaces(inv.interfaces)
	for i, rec := range up {
		asm.attach(interfaceDevice(i, rec), rec.Number("speed", 0))
	}
	for i, rec := range capped(inv.switches, MaxSwitches) {
		asm.attach(switchDevice(i, rec), switchCapacity)
	}
	for i, rec := range capped(inv.accessPoints, MaxAccessPoints) {
		asm.attach(accessPointDevice(i, rec), rec.LookupNumber(0, "radio_1", "max_bandwidth"))
	}
	for i, rec := range capped(inv.endpoints, MaxEndpoints) {
		asm.attach(endpointDevice(i, rec), endpointCapacity)
	}

	// The graph is only handed out if the whole build finished in time.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	graph := asm.finish(domain.Metadata{
		LastUpdated: b.now().UTC().Format(time.RFC3339),
		DeviceCounts: domain.DeviceCounts{
			Firewall:    1,
			Interface:   len(up),
			Switch:      len(inv.switches),
			AccessPoint: len(inv.accessPoints),
			Endpoint:    len(inv.endpoints),
		},
		Degraded: inv.degraded,
	})

	if err := graph.Validate(); err != nil {
		b.logger.Error("Built topology failed validation", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrBuildInconsistency, err)
	}

	b.logger.Info("Built topology",
		zap.Int("devices", len(graph.Devices)),
		zap.Int("connections", len(graph.Connections)),
		zap.Any("degraded", graph.Metadata.Degraded),
		zap.Duration("took", time.Since(start)))
	return graph, nil
}

func (b *Builder) firewall(status, info collector.Record) *domain.Device {
	d := domain.NewDevice(domain.FirewallID, domain.CategoryFirewall,
		nestedString(status, "hostname", "FortiGate"), domain.Origin)
	d.SetAttribute("model", platform(info))
	d.SetAttribute("serial", nestedString(status, "serial", "Unknown"))
	d.SetAttribute("version", nestedString(status, "version", "Unknown"))
	d.SetAttribute("ip", b.firewallIP)
	d.SetAttribute("status", status.String("status", "unknown"))
	d.SetAttribute("cpu_usage", status.Number("cpu_usage", 0))
	d.SetAttribute("memory_usage", status.Number("mem_usage", 0))
	d.SetAttribute("uptime", status.Number("uptime", 0))
	return d
}

func upInterfaces(all []collector.Record) []collector.Record {
	var up []collector.Record
	for _, rec := range all {
		if rec.String("status", "") == "up" {
			up = append(up, rec)
		}
	}
	return up
}

func interfaceDevice(i int, rec collector.Record) *domain.Device {
	key := rec.String("name", "unknown")
	d := domain.NewDevice(domain.DeviceID("interface", key), domain.CategoryInterface,
		rec.String("name", fallbackName(domain.CategoryInterface, i)), interfacePosition(i))
	d.SetAttribute("ip", rec.String("ip", ""))
	d.SetAttribute("subnet", rec.String("subnet", ""))
	d.SetAttribute("mac", rec.String("macaddr", ""))
	d.SetAttribute("mtu", rec.Number("mtu", 1500))
	d.SetAttribute("speed", rec.Value("speed", "auto"))
	d.SetAttribute("status", rec.String("status", "down"))
	return d
}

func switchDevice(i int, rec collector.Record) *domain.Device {
	key := rec.String("name", "switch_"+strconv.Itoa(i))
	d := domain.NewDevice(domain.DeviceID("switch", key), domain.CategorySwitch,
		rec.String("name", fallbackName(domain.CategorySwitch, i)), switchPosition(i))
	d.SetAttribute("model", rec.String("model", "Unknown"))
	d.SetAttribute("serial", rec.String("serial", "Unknown"))
	d.SetAttribute("ip", rec.String("ip", ""))
	d.SetAttribute("status", rec.String("status", "unknown"))
	d.SetAttribute("ports", rec.Number("num_ports", 0))
	d.SetAttribute("firmware", rec.String("sw_version", "Unknown"))
	return d
}

func accessPointDevice(i int, rec collector.Record) *domain.Device {
	key := rec.String("name", "ap_"+strconv.Itoa(i))
	d := domain.NewDevice(domain.DeviceID("ap", key), domain.CategoryAccessPoint,
		rec.String("name", fallbackName(domain.CategoryAccessPoint, i)), accessPointPosition(i))
	d.SetAttribute("model", rec.String("model", "Unknown"))
	d.SetAttribute("serial", rec.String("serial", "Unknown"))
	d.SetAttribute("ip", rec.String("ip", ""))
	d.SetAttribute("status", rec.String("status", "unknown"))
	d.SetAttribute("wifi_clients", rec.Number("wifi_clients", 0))
	d.SetAttribute("radio_1", domain.CloneValue(rec.Value("radio_1", map[string]any{})))
	d.SetAttribute("radio_2", domain.CloneValue(rec.Value("radio_2", map[string]any{})))
	return d
}

func endpointDevice(i int, rec collector.Record) *domain.Device {
	mac := rec.String("mac", "")
	id := "device_" + strconv.Itoa(i)
	if mac != "" {
		id = domain.DeviceID("device", mac)
	}
	d := domain.NewDevice(id, domain.CategoryEndpoint,
		rec.String("hostname", fallbackName(domain.CategoryEndpoint, i)), endpointPosition(i))
	d.SetAttribute("ip", rec.String("ip", ""))
	d.SetAttribute("mac", mac)
	d.SetAttribute("os", rec.String("os_type", "Unknown"))
	d.SetAttribute("user", rec.String("user", ""))
	d.SetAttribute("last_seen", rec.String("last_seen", ""))
	d.SetAttribute("device_type", rec.String("devtype", "Unknown"))
	return d
}

func fallbackName(category domain.Category, i int) string {
	return category.Label() + " " + strconv.Itoa(i)
}

// nestedString looks key up at the top level of rec, then under "results"
func nestedString(rec collector.Record, key, def string) string {
	if v := rec.String(key, ""); v != "" {
		return v
	}
	return rec.Record("results").String(key, def)
}

// platform reads the firewall model from system info, which FortiOS returns
// either flat, under a "results" object or as the first "results" element
func platform(info collector.Record) string {
	if v := nestedString(info, "platform_str", ""); v != "" {
		return v
	}
	if results := info.Records("results"); len(results) > 0 {
		return results[0].String("platform_str", "Unknown")
	}
	return "Unknown"
}
