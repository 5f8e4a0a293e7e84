package domain

import "time"

// Build is one persisted build: the graph and the visualization document
// exported from it
type Build struct {
	ID            string                `json:"id" yaml:"id"`
	BuiltAt       time.Time             `json:"builtAt" yaml:"builtAt"`
	Graph         *TopologyGraph        `json:"graph" yaml:"graph"`
	Visualization VisualizationDocument `json:"visualization" yaml:"visualization"`
}

// Summary returns the listing form of the build
func (b *Build) Summary() BuildSummary {
	s := BuildSummary{ID: b.ID, BuiltAt: b.BuiltAt}
	if b.Graph != nil {
		s.DeviceCount = len(b.Graph.Devices)
		s.ConnectionCount = len(b.Graph.Connections)
		s.DeviceCounts = b.Graph.Metadata.DeviceCounts
		s.Degraded = b.Graph.Metadata.Degraded
	}
	return s
}

// BuildSummary describes a build without its documents
type BuildSummary struct {
	ID              string       `json:"id" yaml:"id"`
	BuiltAt         time.Time    `json:"builtAt" yaml:"builtAt"`
	DeviceCount     int          `json:"deviceCount" yaml:"deviceCount"`
	ConnectionCount int          `json:"connectionCount" yaml:"connectionCount"`
	DeviceCounts    DeviceCounts `json:"deviceCounts" yaml:"deviceCounts"`
	Degraded        []Category   `json:"degraded,omitempty" yaml:"degraded,omitempty"`
}
