// Package collector defines the contract between the topology builder and the
// sources of raw device inventories.
//
// A Collector exposes one fetch per inventory source. Every fetch is
// idempotent, may fail on its own, and reports failure through a *FetchError
// rather than a default value. Callers decide how to degrade.
package collector

import "context"

// Source names one collector fetch
type Source string

const (
	SourceSystemStatus Source = "system_status"
	SourceSystemInfo   Source = "system_info"
	SourceInterfaces   Source = "interfaces"
	SourceSwitches     Source = "switches"
	SourceAccessPoints Source = "access_points"
	SourceUserDevices  Source = "user_devices"
)

// Sources returns every fetch in the order the builder consumes them
func Sources() []Source {
	return []Source{
		SourceSystemStatus,
		SourceSystemInfo,
		SourceInterfaces,
		SourceSwitches,
		SourceAccessPoints,
		SourceUserDevices,
	}
}

// Collector supplies raw device records per category. System status and
// system info together describe the firewall; the four list fetches describe
// one category each.
type Collector interface {
	SystemStatus(ctx context.Context) (Record, error)
	SystemInfo(ctx context.Context) (Record, error)
	Interfaces(ctx context.Context) ([]Record, error)
	ManagedSwitches(ctx context.Context) ([]Record, error)
	AccessPoints(ctx context.Context) ([]Record, error)
	UserDevices(ctx context.Context) ([]Record, error)
}
