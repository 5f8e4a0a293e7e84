package topology

import "topolab/internal/domain"

// Per-category caps on devices included in the graph. Metadata counts are
// taken before capping.
const (
	MaxSwitches     = 10
	MaxAccessPoints = 20
	MaxEndpoints    = 50
)

// Fixed connection capacities
const (
	switchCapacity   = 1000
	endpointCapacity = 100
)

// Layout columns, one per category. Interfaces share a single point.

func interfacePosition(int) domain.Position {
	return domain.NewPosition(2, 0, 0)
}

func switchPosition(i int) domain.Position {
	return domain.NewPosition(-3, 0, 2*float64(i))
}

func accessPointPosition(i int) domain.Position {
	return domain.NewPosition(3, 0, 1.5*float64(i))
}

func endpointPosition(i int) domain.Position {
	return domain.NewPosition(5, 0, 0.5*float64(i))
}

func capped[T any](items []T, limit int) []T {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
