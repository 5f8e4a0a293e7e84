package domain

// Position is a presentational 3D coordinate. It never takes part in graph logic.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// NewPosition creates a position from its three coordinates
func NewPosition(x, y, z float64) Position {
	return Position{X: x, Y: y, Z: z}
}

// Origin is where the firewall sits
var Origin = Position{}
