package domain

// Device represents a node in the topology
type Device struct {
	ID         string         `json:"id" yaml:"id"`
	Name       string         `json:"name" yaml:"name"`
	Category   Category       `json:"category" yaml:"category"`
	Position   Position       `json:"position" yaml:"position"`
	Attributes map[string]any `json:"attributes" yaml:"attributes"`

	// LinkedTo is the id of the device this one attaches to. Empty for the root.
	LinkedTo string `json:"linkedTo,omitempty" yaml:"linkedTo,omitempty"`
}

// NewDevice creates a device with an initialized attribute bag
func NewDevice(id string, category Category, name string, pos Position) *Device {
	return &Device{
		ID:         id,
		Name:       name,
		Category:   category,
		Position:   pos,
		Attributes: make(map[string]any),
	}
}

// SetAttribute sets an attribute value
func (d *Device) SetAttribute(key string, value any) {
	if d.Attributes == nil {
		d.Attributes = make(map[string]any)
	}
	d.Attributes[key] = value
}

// Attribute gets an attribute value
func (d Device) Attribute(key string) (any, bool) {
	if d.Attributes == nil {
		return nil, false
	}
	val, ok := d.Attributes[key]
	return val, ok
}

// AttributeString gets an attribute as a string, "" when absent or not a string
func (d Device) AttributeString(key string) string {
	val, ok := d.Attribute(key)
	if !ok {
		return ""
	}
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}

// IsRoot reports whether the device is the firewall at the center of the star
func (d Device) IsRoot() bool {
	return d.Category == CategoryFirewall
}
