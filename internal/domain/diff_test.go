package domain

import (
	"reflect"
	"testing"
)

func TestDiff(t *testing.T) {
	t.Run("nil previous build adds everything", func(t *testing.T) {
		next := starGraph()
		diff := Diff(nil, next)

		want := []string{FirewallID, "switch_core", "ap_lobby"}
		if !reflect.DeepEqual(diff.Added, want) {
			t.Errorf("expected added %v, got %v", want, diff.Added)
		}
		if len(diff.Removed) != 0 || len(diff.Changed) != 0 {
			t.Errorf("expected no removals or changes, got %+v", diff)
		}
	})

	t.Run("identical builds are empty", func(t *testing.T) {
		if diff := Diff(starGraph(), starGraph()); !diff.Empty() {
			t.Errorf("expected empty diff, got %+v", diff)
		}
	})

	t.Run("int and float attributes compare equal", func(t *testing.T) {
		prev, next := starGraph(), starGraph()
		prev.Devices[1].SetAttribute("ports", 24)
		next.Devices[1].SetAttribute("ports", float64(24))

		if diff := Diff(prev, next); !diff.Empty() {
			t.Errorf("expected empty diff, got %+v", diff)
		}
	})

	t.Run("added removed and changed", func(t *testing.T) {
		prev, next := starGraph(), starGraph()
		next.Devices = next.Devices[:2]
		next.Devices[1].Name = "core-renamed"
		ep := NewDevice("device_aa", CategoryEndpoint, "laptop", NewPosition(5, 0, 0))
		next.Devices = append(next.Devices, *ep)

		diff := Diff(prev, next)
		if !reflect.DeepEqual(diff.Added, []string{"device_aa"}) {
			t.Errorf("unexpected added %v", diff.Added)
		}
		if !reflect.DeepEqual(diff.Removed, []string{"ap_lobby"}) {
			t.Errorf("unexpected removed %v", diff.Removed)
		}
		if !reflect.DeepEqual(diff.Changed, []string{"switch_core"}) {
			t.Errorf("unexpected changed %v", diff.Changed)
		}
	})
}
