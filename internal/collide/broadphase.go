package collide

import "github.com/go-gl/mathgl/mgl32"

// Spatial hash broad phase: dynamic bodies are bucketed into uniform cells
// and only bodies in the same or neighboring cells reach the narrow phase.

type cellKey struct {
	X, Y, Z int
}

type grid struct {
	cellSize float32
	cells    map[cellKey][]*Body
}

func newGrid(cellSize float32) *grid {
	if cellSize <= 0 {
		cellSize = 5
	}
	return &grid{cellSize: cellSize, cells: make(map[cellKey][]*Body)}
}

func (g *grid) keyFor(pos mgl32.Vec3) cellKey {
	return cellKey{
		X: int(pos.X() / g.cellSize),
		Y: int(pos.Y() / g.cellSize),
		Z: int(pos.Z() / g.cellSize),
	}
}

func (g *grid) rebuild(bodies []*Body) {
	for k := range g.cells {
		delete(g.cells, k)
	}
	for _, b := range bodies {
		key := g.keyFor(b.Position)
		g.cells[key] = append(g.cells[key], b)
	}
}

// neighbors returns bodies in the 3x3x3 block of cells around b.
func (g *grid) neighbors(b *Body) []*Body {
	center := g.keyFor(b.Position)
	var out []*Body
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				key := cellKey{center.X + dx, center.Y + dy, center.Z + dz}
				out = append(out, g.cells[key]...)
			}
		}
	}
	return out
}
