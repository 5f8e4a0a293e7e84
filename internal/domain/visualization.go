package domain

// VisualizationFormatVersion distinguishes the visualization document from
// the native graph shape
const VisualizationFormatVersion = "2.0"

// VisualizationDocument is the reshaped graph consumed by the 3D front end
type VisualizationDocument struct {
	FormatVersion string             `json:"formatVersion" yaml:"formatVersion"`
	Models        []Model            `json:"models" yaml:"models"`
	Connections   []VisualConnection `json:"connections" yaml:"connections"`
	Metadata      Metadata           `json:"metadata" yaml:"metadata"`
}

// Model is one device in presentation form
type Model struct {
	// Name is the device id
	Name        string          `json:"name" yaml:"name"`
	DisplayName string          `json:"displayName" yaml:"displayName"`
	Category    Category        `json:"category" yaml:"category"`
	Position    Position        `json:"position" yaml:"position"`
	Tags        []string        `json:"tags" yaml:"tags"`
	Attributes  map[string]any  `json:"attributes" yaml:"attributes"`
	Properties  ModelProperties `json:"properties" yaml:"properties"`
}

// ModelProperties is the narrowed projection shown in the client inspector
type ModelProperties struct {
	IP     string `json:"ip" yaml:"ip"`
	Model  string `json:"model" yaml:"model"`
	Serial string `json:"serial" yaml:"serial"`
}

// VisualConnection is one edge in presentation form
type VisualConnection struct {
	Source   string         `json:"source" yaml:"source"`
	Target   string         `json:"target" yaml:"target"`
	Kind     ConnectionKind `json:"kind" yaml:"kind"`
	Capacity float64        `json:"capacity" yaml:"capacity"`
}
