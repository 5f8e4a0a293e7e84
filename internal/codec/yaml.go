package codec

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"topolab/internal/domain"
)

// YAMLCodec handles YAML documents. Field names match the JSON form.
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// ContentType returns the media type of encoded documents
func (c *YAMLCodec) ContentType() string {
	return "application/yaml"
}

// Decode parses one YAML document into v. Attribute bags of graphs and
// documents come back in JSON form, so whole numbers are float64 as they
// were before encoding.
func (c *YAMLCodec) Decode(r io.Reader, v any) error {
	if err := yaml.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	switch t := v.(type) {
	case *domain.TopologyGraph:
		t.PlainAttributes()
	case *domain.VisualizationDocument:
		t.PlainAttributes()
	case *domain.Build:
		if t.Graph != nil {
			t.Graph.PlainAttributes()
		}
		t.Visualization.PlainAttributes()
	}
	return nil
}

// Encode writes v as YAML with two-space indentation
func (c *YAMLCodec) Encode(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return nil
}
