package topology

import (
	"fmt"

	"topolab/internal/domain"
)

// ExportForVisualization reshapes a graph into the document consumed by the
// 3D front end. It performs no I/O and shares no mutable state with g, so
// exporting the same graph twice yields equal documents.
func ExportForVisualization(g *domain.TopologyGraph) (domain.VisualizationDocument, error) {
	if err := g.Validate(); err != nil {
		return domain.VisualizationDocument{}, fmt.Errorf("export for visualization: %w", err)
	}

	doc := domain.VisualizationDocument{
		FormatVersion: domain.VisualizationFormatVersion,
		Models:        make([]domain.Model, 0, len(g.Devices)),
		Connections:   make([]domain.VisualConnection, 0, len(g.Connections)),
		Metadata:      g.Metadata.Clone(),
	}

	for _, d := range g.Devices {
		doc.Models = append(doc.Models, domain.Model{
			Name:        d.ID,
			DisplayName: d.Name,
			Category:    d.Category,
			Position:    d.Position,
			Tags:        []string{string(d.Category)},
			Attributes:  domain.CloneAttributes(d.Attributes),
			Properties: domain.ModelProperties{
				IP:     d.AttributeString("ip"),
				Model:  d.AttributeString("model"),
				Serial: d.AttributeString("serial"),
			},
		})
	}

	for _, c := range g.Connections {
		doc.Connections = append(doc.Connections, domain.VisualConnection{
			Source:   c.Source,
			Target:   c.Target,
			Kind:     c.Kind,
			Capacity: c.Capacity,
		})
	}
	return doc, nil
}
