package domain

import "fmt"

// FirewallID is the fixed id of the root device of every build
const FirewallID = "fortigate_main"

// DeviceCounts holds per-category device counts taken from raw collector
// results, before any per-category cap is applied
type DeviceCounts struct {
	Firewall    int `json:"firewall" yaml:"firewall"`
	Interface   int `json:"interface" yaml:"interface"`
	Switch      int `json:"switch" yaml:"switch"`
	AccessPoint int `json:"access_point" yaml:"access_point"`
	Endpoint    int `json:"endpoint" yaml:"endpoint"`
}

// Get returns the count for one category
func (c DeviceCounts) Get(category Category) int {
	switch category {
	case CategoryFirewall:
		return c.Firewall
	case CategoryInterface:
		return c.Interface
	case CategorySwitch:
		return c.Switch
	case CategoryAccessPoint:
		return c.AccessPoint
	case CategoryEndpoint:
		return c.Endpoint
	}
	return 0
}

// Total sums all categories
func (c DeviceCounts) Total() int {
	return c.Firewall + c.Interface + c.Switch + c.AccessPoint + c.Endpoint
}

// Metadata summarizes one build
type Metadata struct {
	// LastUpdated is the ISO-8601 build time, set by the builder
	LastUpdated  string       `json:"lastUpdated" yaml:"lastUpdated"`
	DeviceCounts DeviceCounts `json:"deviceCounts" yaml:"deviceCounts"`

	// Degraded lists categories whose collector fetch failed during the build
	Degraded []Category `json:"degraded,omitempty" yaml:"degraded,omitempty"`
}

// IsDegraded reports whether the fetch for category failed during the build
func (m Metadata) IsDegraded(category Category) bool {
	for _, c := range m.Degraded {
		if c == category {
			return true
		}
	}
	return false
}

// TopologyGraph is the root aggregate of one build
type TopologyGraph struct {
	Devices     []Device     `json:"devices" yaml:"devices"`
	Connections []Connection `json:"connections" yaml:"connections"`
	Metadata    Metadata     `json:"metadata" yaml:"metadata"`
}

// Root returns the firewall device, which a well-formed graph holds at index 0
func (g *TopologyGraph) Root() (Device, bool) {
	if g == nil || len(g.Devices) == 0 || !g.Devices[0].IsRoot() {
		return Device{}, false
	}
	return g.Devices[0], true
}

// Device looks up a device by id
func (g *TopologyGraph) Device(id string) (Device, bool) {
	if g == nil {
		return Device{}, false
	}
	for _, d := range g.Devices {
		if d.ID == id {
			return d, true
		}
	}
	return Device{}, false
}

// CountByCategory counts the devices actually included in the graph
func (g *TopologyGraph) CountByCategory(category Category) int {
	if g == nil {
		return 0
	}
	n := 0
	for _, d := range g.Devices {
		if d.Category == category {
			n++
		}
	}
	return n
}

// Validate checks the star-topology invariants: one firewall at index 0,
// unique ids, known categories, and every other device the target of exactly
// one connection sourced at the firewall.
func (g *TopologyGraph) Validate() error {
	if g == nil {
		return fmt.Errorf("%w: nil graph", ErrMalformedGraph)
	}
	root, ok := g.Root()
	if !ok {
		return fmt.Errorf("%w: first device is not a firewall", ErrMalformedGraph)
	}

	ids := make(map[string]Category, len(g.Devices))
	for i, d := range g.Devices {
		if d.ID == "" {
			return fmt.Errorf("%w: device %d has empty id", ErrMalformedGraph, i)
		}
		if !d.Category.Valid() {
			return fmt.Errorf("%w: device %s has unknown category %q", ErrMalformedGraph, d.ID, d.Category)
		}
		if i > 0 && d.IsRoot() {
			return fmt.Errorf("%w: second firewall %s", ErrMalformedGraph, d.ID)
		}
		if _, dup := ids[d.ID]; dup {
			return fmt.Errorf("%w: duplicate device id %s", ErrMalformedGraph, d.ID)
		}
		if i > 0 && d.LinkedTo != root.ID {
			return fmt.Errorf("%w: device %s linked to %q, want %q", ErrMalformedGraph, d.ID, d.LinkedTo, root.ID)
		}
		ids[d.ID] = d.Category
	}

	inbound := make(map[string]int, len(g.Devices))
	for _, c := range g.Connections {
		if c.Source != root.ID {
			return fmt.Errorf("%w: connection %s->%s does not start at the firewall", ErrMalformedGraph, c.Source, c.Target)
		}
		category, ok := ids[c.Target]
		if !ok {
			return fmt.Errorf("%w: connection target %s is not a device", ErrMalformedGraph, c.Target)
		}
		if c.Target == root.ID {
			return fmt.Errorf("%w: firewall connected to itself", ErrMalformedGraph)
		}
		if c.Kind != KindFor(category) {
			return fmt.Errorf("%w: connection to %s has kind %q, want %q", ErrMalformedGraph, c.Target, c.Kind, KindFor(category))
		}
		if c.Capacity < 0 {
			return fmt.Errorf("%w: connection to %s has negative capacity", ErrMalformedGraph, c.Target)
		}
		inbound[c.Target]++
	}

	for _, d := range g.Devices[1:] {
		if inbound[d.ID] != 1 {
			return fmt.Errorf("%w: device %s has %d connections, want 1", ErrMalformedGraph, d.ID, inbound[d.ID])
		}
	}
	return nil
}
