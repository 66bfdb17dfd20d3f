package l1points

// Point is one LiDAR return in a height-normalised frame: Z is metres above
// ground. InBuffer marks returns in the tile's overlap margin rather than its
// core region.
type Point struct {
	X, Y, Z  float64
	InBuffer bool
}

// Tile is an independent unit of work: the points of one core rectangle plus
// the buffer margin around it. Tiles are read-only once built.
type Tile struct {
	ID     string // Source name (file stem or caller-assigned label)
	Points []Point
}
