package routing

import (
	"github.com/orthodraw/orthodraw/backend-go/internal/geometry"
)

// Control-point collision pass: intermediate control points that land inside
// a node's (inflated) bounding box are pushed out along the shortest axis so
// connectors do not visually cross node bodies. Resolving one collision can
// create another against a different node, so the pass repeats up to an
// iteration cap. Points still colliding after the cap are left at their
// best-effort position: overlap is a visual concern, never an error.

// CollisionConfig tunes the collision pass. Both fields are caller
// configurable; zero values are replaced with the defaults.
type CollisionConfig struct {
	// Clearance inflates every node box before testing, in diagram units.
	Clearance float64
	// MaxIterations caps the displace-and-recheck loop per control point.
	MaxIterations int
}

// DefaultCollisionConfig returns the standard clearance and iteration cap.
func DefaultCollisionConfig() CollisionConfig {
	return CollisionConfig{Clearance: 50, MaxIterations: 10}
}

func (c CollisionConfig) withDefaults() CollisionConfig {
	d := DefaultCollisionConfig()
	if c.Clearance <= 0 {
		c.Clearance = d.Clearance
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	return c
}

// displaceOut moves a point to the nearest edge of the inflated rect it sits
// inside, along whichever axis is cheapest.
func displaceOut(p geometry.Point, r geometry.Rect) geometry.Point {
	toLeft := p.X - r.X
	toRight := r.X + r.Width - p.X
	toTop := p.Y - r.Y
	toBottom := r.Y + r.Height - p.Y

	minDist := toLeft
	out := geometry.Point{X: r.X, Y: p.Y}
	if toRight < minDist {
		minDist = toRight
		out = geometry.Point{X: r.X + r.Width, Y: p.Y}
	}
	if toTop < minDist {
		minDist = toTop
		out = geometry.Point{X: p.X, Y: r.Y}
	}
	if toBottom < minDist {
		out = geometry.Point{X: p.X, Y: r.Y + r.Height}
	}
	return out
}

// ResolveCollisions displaces a path's intermediate control points away from
// every node box inflated by the clearance. The first and last points are
// anchored to handles and never move. It runs on every edge, including ones
// whose control points are still the engine defaults, and always returns a
// new slice.
func ResolveCollisions(controlPoints []geometry.Point, nodes []NodeInfo, cfg CollisionConfig) []geometry.Point {
	cfg = cfg.withDefaults()

	out := make([]geometry.Point, len(controlPoints))
	copy(out, controlPoints)
	if len(out) <= 2 {
		return out
	}

	for i := 1; i < len(out)-1; i++ {
		p := out[i]
		for iter := 0; iter < cfg.MaxIterations; iter++ {
			moved := false
			for _, node := range nodes {
				box := node.Bounds.Inflate(cfg.Clearance)
				if box.ContainsStrict(p) {
					p = displaceOut(p, box)
					moved = true
					break
				}
			}
			if !moved {
				break
			}
		}
		out[i] = p
	}
	return out
}
