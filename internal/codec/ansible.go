package codec

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"topolab/internal/domain"
)

// AnsibleExporter writes a graph as an Ansible inventory, one child group
// per device category
type AnsibleExporter struct{}

// NewAnsibleExporter creates a new Ansible inventory exporter
func NewAnsibleExporter() *AnsibleExporter {
	return &AnsibleExporter{}
}

// Format returns the exporter format identifier
func (e *AnsibleExporter) Format() string {
	return "ansible-inventory"
}

// ContentType returns the media type of exported inventories
func (e *AnsibleExporter) ContentType() string {
	return "application/yaml"
}

type ansibleInventory struct {
	All ansibleGroup `yaml:"all"`
}

type ansibleGroup struct {
	Children map[string]ansibleGroupDef `yaml:"children,omitempty"`
	Vars     map[string]any             `yaml:"vars,omitempty"`
}

type ansibleGroupDef struct {
	Hosts map[string]ansibleHost `yaml:"hosts,omitempty"`
}

type ansibleHost struct {
	AnsibleHost string         `yaml:"ansible_host,omitempty"`
	Vars        map[string]any `yaml:",inline"`
}

// groupName maps a category to its inventory group
func groupName(c domain.Category) string {
	switch c {
	case domain.CategorySwitch:
		return "switches"
	case domain.CategoryAccessPoint:
		return "access_points"
	}
	return string(c) + "s"
}

// ExportGraph writes g as an inventory. Devices without an IP are listed
// without ansible_host.
func (e *AnsibleExporter) ExportGraph(w io.Writer, g *domain.TopologyGraph) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("export ansible inventory: %w", err)
	}

	inv := ansibleInventory{
		All: ansibleGroup{
			Children: make(map[string]ansibleGroupDef),
			Vars: map[string]any{
				"topology_root":         domain.FirewallID,
				"topology_last_updated": g.Metadata.LastUpdated,
			},
		},
	}

	for _, d := range g.Devices {
		group := groupName(d.Category)
		def, ok := inv.All.Children[group]
		if !ok {
			def = ansibleGroupDef{Hosts: make(map[string]ansibleHost)}
			inv.All.Children[group] = def
		}

		host := ansibleHost{
			AnsibleHost: d.AttributeString("ip"),
			Vars:        make(map[string]any, len(d.Attributes)+2),
		}
		host.Vars["display_name"] = d.Name
		if d.LinkedTo != "" {
			host.Vars["linked_to"] = d.LinkedTo
		}
		for key, value := range d.Attributes {
			if key == "ip" || key == "ansible_host" {
				continue
			}
			host.Vars[key] = domain.CloneValue(value)
		}
		def.Hosts[d.ID] = host
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&inv); err != nil {
		return fmt.Errorf("failed to encode Ansible inventory: %w", err)
	}
	return nil
}
