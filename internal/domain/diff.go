package domain

import (
	"bytes"
	"encoding/json"
)

// GraphDiff lists device ids that differ between two builds
type GraphDiff struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	Changed []string `json:"changed"`
}

// Empty reports whether the two builds hold the same devices
func (d GraphDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Diff compares the devices of two builds. A nil prev counts every device as
// added. Devices are compared by their canonical JSON form, so a graph that
// went through a JSON round-trip compares equal to the original.
// Ids keep the discovery order of the graph they come from.
func Diff(prev, next *TopologyGraph) GraphDiff {
	diff := GraphDiff{
		Added:   []string{},
		Removed: []string{},
		Changed: []string{},
	}

	before := make(map[string]Device)
	if prev != nil {
		for _, d := range prev.Devices {
			before[d.ID] = d
		}
	}

	seen := make(map[string]bool)
	if next != nil {
		for _, d := range next.Devices {
			seen[d.ID] = true
			old, ok := before[d.ID]
			if !ok {
				diff.Added = append(diff.Added, d.ID)
				continue
			}
			if !sameDevice(old, d) {
				diff.Changed = append(diff.Changed, d.ID)
			}
		}
	}

	if prev != nil {
		for _, d := range prev.Devices {
			if !seen[d.ID] {
				diff.Removed = append(diff.Removed, d.ID)
			}
		}
	}
	return diff
}

func sameDevice(a, b Device) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}
