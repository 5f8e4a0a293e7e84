package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"topolab/internal/domain"
)

// ErrSimulatedFailure is returned by a Fixture for every source listed in Fail
var ErrSimulatedFailure = errors.New("simulated collector failure")

// Inventory is a recorded set of raw collector results
type Inventory struct {
	SystemStatus Record   `yaml:"system_status"`
	SystemInfo   Record   `yaml:"system_info"`
	Interfaces   []Record `yaml:"interfaces"`
	Switches     []Record `yaml:"switches"`
	AccessPoints []Record `yaml:"access_points"`
	UserDevices  []Record `yaml:"user_devices"`

	// Fail lists sources that report a CollectorFailure
	Fail []Source `yaml:"fail,omitempty"`
}

// Fixture is a Collector over a recorded Inventory. Files are read as YAML,
// and since YAML is a superset of JSON, recorded API responses load unchanged.
type Fixture struct {
	mu  sync.RWMutex
	inv Inventory
}

// NewFixture creates a Collector serving inv
func NewFixture(inv Inventory) *Fixture {
	return &Fixture{inv: inv}
}

// LoadFixture reads a fixture file
func LoadFixture(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()

	return ParseFixture(f)
}

// ParseFixture decodes a fixture document
func ParseFixture(r io.Reader) (*Fixture, error) {
	var inv Inventory
	if err := yaml.NewDecoder(r).Decode(&inv); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return NewFixture(inv.plain()), nil
}

// plain rewrites every record into the shape the FortiGate client decodes
// from JSON. yaml.v3 decodes nested mappings as Record and whole numbers as
// int; after plain, nested values are map[string]any, []any and float64.
func (inv Inventory) plain() Inventory {
	inv.SystemStatus = plainRecord(inv.SystemStatus)
	inv.SystemInfo = plainRecord(inv.SystemInfo)
	inv.Interfaces = plainRecords(inv.Interfaces)
	inv.Switches = plainRecords(inv.Switches)
	inv.AccessPoints = plainRecords(inv.AccessPoints)
	inv.UserDevices = plainRecords(inv.UserDevices)
	return inv
}

func plainRecord(r Record) Record {
	if r == nil {
		return nil
	}
	m, _ := domain.PlainValue(r).(map[string]any)
	return Record(m)
}

func plainRecords(rs []Record) []Record {
	if rs == nil {
		return nil
	}
	out := make([]Record, len(rs))
	for i, r := range rs {
		out[i] = plainRecord(r)
	}
	return out
}

// Replace swaps the served inventory. Fetches already running keep the
// records they started with.
func (f *Fixture) Replace(inv Inventory) {
	f.mu.Lock()
	f.inv = inv
	f.mu.Unlock()
}

// Reload re-reads the fixture file at path. On error the current inventory
// is kept.
func (f *Fixture) Reload(path string) error {
	next, err := LoadFixture(path)
	if err != nil {
		return err
	}
	f.Replace(next.snapshot())
	return nil
}

func (f *Fixture) snapshot() Inventory {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.inv
}

// check returns the inventory to serve, or the failure configured for source
func (f *Fixture) check(ctx context.Context, source Source) (Inventory, error) {
	if err := ctx.Err(); err != nil {
		return Inventory{}, NewFetchError(source, FailureNetwork, err)
	}
	inv := f.snapshot()
	if slices.Contains(inv.Fail, source) {
		return Inventory{}, NewFetchError(source, FailureNetwork, ErrSimulatedFailure)
	}
	return inv, nil
}

// SystemStatus implements Collector
func (f *Fixture) SystemStatus(ctx context.Context) (Record, error) {
	inv, err := f.check(ctx, SourceSystemStatus)
	if err != nil {
		return nil, err
	}
	return inv.SystemStatus, nil
}

// SystemInfo implements Collector
func (f *Fixture) SystemInfo(ctx context.Context) (Record, error) {
	inv, err := f.check(ctx, SourceSystemInfo)
	if err != nil {
		return nil, err
	}
	return inv.SystemInfo, nil
}

// Interfaces implements Collector
func (f *Fixture) Interfaces(ctx context.Context) ([]Record, error) {
	inv, err := f.check(ctx, SourceInterfaces)
	if err != nil {
		return nil, err
	}
	return inv.Interfaces, nil
}

// ManagedSwitches implements Collector
func (f *Fixture) ManagedSwitches(ctx context.Context) ([]Record, error) {
	inv, err := f.check(ctx, SourceSwitches)
	if err != nil {
		return nil, err
	}
	return inv.Switches, nil
}

// AccessPoints implements Collector
func (f *Fixture) AccessPoints(ctx context.Context) ([]Record, error) {
	inv, err := f.check(ctx, SourceAccessPoints)
	if err != nil {
		return nil, err
	}
	return inv.AccessPoints, nil
}

// UserDevices implements Collector
func (f *Fixture) UserDevices(ctx context.Context) ([]Record, error) {
	inv, err := f.check(ctx, SourceUserDevices)
	if err != nil {
		return nil, err
	}
	return inv.UserDevices, nil
}
