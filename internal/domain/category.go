package domain

import "slices"

// Category is the closed set of device kinds a build can produce
type Category string

const (
	CategoryFirewall    Category = "firewall"
	CategoryInterface   Category = "interface"
	CategorySwitch      Category = "switch"
	CategoryAccessPoint Category = "access_point"
	CategoryEndpoint    Category = "endpoint"
)

// Categories returns every category in discovery order
func Categories() []Category {
	return []Category{
		CategoryFirewall,
		CategoryInterface,
		CategorySwitch,
		CategoryAccessPoint,
		CategoryEndpoint,
	}
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	return slices.Contains(Categories(), c)
}

// Label is the human prefix used for synthesized device names ("Switch 3")
func (c Category) Label() string {
	switch c {
	case CategoryFirewall:
		return "FortiGate"
	case CategoryInterface:
		return "Interface"
	case CategorySwitch:
		return "Switch"
	case CategoryAccessPoint:
		return "AP"
	case CategoryEndpoint:
		return "Device"
	}
	return "Unknown"
}

// ConnectionKind describes how a device attaches to the firewall
type ConnectionKind string

const (
	ConnectionKindNetwork  ConnectionKind = "network"
	ConnectionKindWifi     ConnectionKind = "wifi"
	ConnectionKindEndpoint ConnectionKind = "endpoint"
)

// KindFor returns the connection kind used to attach a device of category c.
// The firewall has no attachment and yields an empty kind.
func KindFor(c Category) ConnectionKind {
	switch c {
	case CategoryInterface, CategorySwitch:
		return ConnectionKindNetwork
	case CategoryAccessPoint:
		return ConnectionKindWifi
	case CategoryEndpoint:
		return ConnectionKindEndpoint
	}
	return ""
}
