package topology

import (
	"fmt"

	"topolab/internal/domain"
)

// assembler is the append-only graph under construction for one build. It is
// never shared and never exposed before finish.
type assembler struct {
	root        string
	devices     []domain.Device
	connections []domain.Connection
	seen        map[string]struct{}
	index       map[domain.Category]int
}

func newAssembler() *assembler {
	return &assembler{
		seen:  make(map[string]struct{}),
		index: make(map[domain.Category]int),
	}
}

func (a *assembler) addRoot(d *domain.Device) {
	a.root = d.ID
	a.seen[d.ID] = struct{}{}
	a.devices = append(a.devices, *d)
}

// attach admits d and its single connection from the root in one step
func (a *assembler) attach(d *domain.Device, capacity float64) {
	i := a.index[d.Category]
	a.index[d.Category] = i + 1

	d.ID = a.unique(d.ID, i)
	d.LinkedTo = a.root
	a.seen[d.ID] = struct{}{}
	a.devices = append(a.devices, *d)
	a.connections = append(a.connections,
		domain.NewConnection(a.root, d.ID, domain.KindFor(d.Category), capacity))
}

// unique disambiguates a colliding id with the device's inclusion index,
// then with a counter if that is taken as well
func (a *assembler) unique(id string, i int) string {
	if _, taken := a.seen[id]; !taken {
		return id
	}
	candidate := fmt.Sprintf("%s_%d", id, i)
	for n := 2; ; n++ {
		if _, taken := a.seen[candidate]; !taken {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d_%d", id, i, n)
	}
}

func (a *assembler) finish(meta domain.Metadata) *domain.TopologyGraph {
	if a.devices == nil {
		a.devices = []domain.Device{}
	}
	if a.connections == nil {
		a.connections = []domain.Connection{}
	}
	return &domain.TopologyGraph{
		Devices:     a.devices,
		Connections: a.connections,
		Metadata:    meta,
	}
}
