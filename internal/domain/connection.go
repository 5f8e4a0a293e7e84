package domain

// Connection is a directed edge between two devices of the same build
type Connection struct {
	Source string         `json:"source" yaml:"source"`
	Target string         `json:"target" yaml:"target"`
	Kind   ConnectionKind `json:"kind" yaml:"kind"`

	// Capacity is a bandwidth hint, 0 when unknown
	Capacity float64 `json:"capacity" yaml:"capacity"`
}

// NewConnection creates a connection, clamping negative capacity to 0
func NewConnection(source, target string, kind ConnectionKind, capacity float64) Connection {
	if capacity < 0 {
		capacity = 0
	}
	return Connection{
		Source:   source,
		Target:   target,
		Kind:     kind,
		Capacity: capacity,
	}
}
