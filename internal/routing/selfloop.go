package routing

import (
	"github.com/orthodraw/orthodraw/backend-go/internal/geometry"
)

// Self-loop geometry: a connector whose source and target sit on the same
// node is drawn as a rectangular loop bulging outward from the node. The
// corner placement depends on the (source side, target side) pair; users
// rely on each of the 16 combinations having a visually distinct shape, so
// every entry is spelled out in the table below.

// DefaultLoopExtension is the loop bulge distance when no node size is known.
const DefaultLoopExtension = 60.0

// loopExtension derives the bulge distance from the node size.
func loopExtension(bounds geometry.Rect) float64 {
	if bounds.IsEmpty() {
		return DefaultLoopExtension
	}
	return clamp((bounds.Width+bounds.Height)/2*1.1, 60, 250)
}

// loopFrame is the working geometry handed to each case builder.
type loopFrame struct {
	src, dst               geometry.Point
	top, right, bottom, left float64 // node edges
	ext                    float64
}

// selfLoopCorners maps every (source side, target side) pair to its corner
// builder. Builders return only the intermediate corners; the endpoints are
// added around them. Same-side pairs bulge straight out on that side,
// adjacent-side pairs bulge diagonally via one outer corner, and opposite-
// side pairs wrap around the node through the midline.
var selfLoopCorners = map[[2]Side]func(f loopFrame) []geometry.Point{
	// Same side.
	{SideTop, SideTop}: func(f loopFrame) []geometry.Point {
		y := f.top - f.ext
		return []geometry.Point{{X: f.src.X, Y: y}, {X: f.dst.X, Y: y}}
	},
	{SideBottom, SideBottom}: func(f loopFrame) []geometry.Point {
		y := f.bottom + f.ext
		return []geometry.Point{{X: f.src.X, Y: y}, {X: f.dst.X, Y: y}}
	},
	{SideLeft, SideLeft}: func(f loopFrame) []geometry.Point {
		x := f.left - f.ext
		return []geometry.Point{{X: x, Y: f.src.Y}, {X: x, Y: f.dst.Y}}
	},
	{SideRight, SideRight}: func(f loopFrame) []geometry.Point {
		x := f.right + f.ext
		return []geometry.Point{{X: x, Y: f.src.Y}, {X: x, Y: f.dst.Y}}
	},

	// Adjacent sides: one outer corner beyond the shared node corner.
	{SideTop, SideRight}: func(f loopFrame) []geometry.Point {
		return []geometry.Point{
			{X: f.src.X, Y: f.top - f.ext},
			{X: f.right + f.ext, Y: f.top - f.ext},
			{X: f.right + f.ext, Y: f.dst.Y},
		}
	},
	{SideTop, SideLeft}: func(f loopFrame) []geometry.Point {
		return []geometry.Point{
			{X: f.src.X, Y: f.top - f.ext},
			{X: f.left - f.ext, Y: f.top - f.ext},
			{X: f.left - f.ext, Y: f.dst.Y},
		}
	},
	{SideBottom, SideRight}: func(f loopFrame) []geometry.Point {
		return []geometry.Point{
			{X: f.src.X, Y: f.bottom + f.ext},
			{X: f.right + f.ext, Y: f.bottom + f.ext},
			{X: f.right + f.ext, Y: f.dst.Y},
		}
	},
	{SideBottom, SideLeft}: func(f loopFrame) []geometry.Point {
		return []geometry.Point{
			{X: f.src.X, Y: f.bottom + f.ext},
			{X: f.left - f.ext, Y: f.bottom + f.ext},
			{X: f.left - f.ext, Y: f.dst.Y},
		}
	},
	{SideRight, SideTop}: func(f loopFrame) []geometry.Point {
		return []geometry.Point{
			{X: f.right + f.ext, Y: f.src.Y},
			{X: f.right + f.ext, Y: f.top - f.ext},
			{X: f.dst.X, Y: f.top - f.ext},
		}
	},
	{SideRight, SideBottom}: func(f loopFrame) []geometry.Point {
		return []geometry.Point{
			{X: f.right + f.ext, Y: f.src.Y},
			{X: f.right + f.ext, Y: f.bottom + f.ext},
			{X: f.dst.X, Y: f.bottom + f.ext},
		}
	},
	{SideLeft, SideTop}: func(f loopFrame) []geometry.Point {
		return []geometry.Point{
			{X: f.left - f.ext, Y: f.src.Y},
			{X: f.left - f.ext, Y: f.top - f.ext},
			{X: f.dst.X, Y: f.top - f.ext},
		}
	},
	{SideLeft, SideBottom}: func(f loopFrame) []geometry.Point {
		return []geometry.Point{
			{X: f.left - f.ext, Y: f.src.Y},
			{X: f.left - f.ext, Y: f.bottom + f.ext},
			{X: f.dst.X, Y: f.bottom + f.ext},
		}
	},

	// Opposite sides: wrap around the node. Top->bottom goes around the
	// right, bottom->top around the left (and likewise for left/right), so
	// the two orientations of the same pair read differently on screen.
	{SideTop, SideBottom}: func(f loopFrame) []geometry.Point {
		return []geometry.Point{
			{X: f.src.X, Y: f.top - f.ext},
			{X: f.right + f.ext, Y: f.top - f.ext},
			{X: f.right + f.ext, Y: f.bottom + f.ext},
			{X: f.dst.X, Y: f.bottom + f.ext},
		}
	},
	{SideBottom, SideTop}: func(f loopFrame) []geometry.Point {
		return []geometry.Point{
			{X: f.src.X, Y: f.bottom + f.ext},
			{X: f.left - f.ext, Y: f.bottom + f.ext},
			{X: f.left - f.ext, Y: f.top - f.ext},
			{X: f.dst.X, Y: f.top - f.ext},
		}
	},
	{SideLeft, SideRight}: func(f loopFrame) []geometry.Point {
		return []geometry.Point{
			{X: f.left - f.ext, Y: f.src.Y},
			{X: f.left - f.ext, Y: f.bottom + f.ext},
			{X: f.right + f.ext, Y: f.bottom + f.ext},
			{X: f.right + f.ext, Y: f.dst.Y},
		}
	},
	{SideRight, SideLeft}: func(f loopFrame) []geometry.Point {
		return []geometry.Point{
			{X: f.right + f.ext, Y: f.src.Y},
			{X: f.right + f.ext, Y: f.top - f.ext},
			{X: f.left - f.ext, Y: f.top - f.ext},
			{X: f.left - f.ext, Y: f.dst.Y},
		}
	},
}

// SelfLoopPath builds the rectangular loop for a connector whose handles sit
// on the same node. When the bounds are unknown the frame degrades to the box
// spanned by the two handle positions, which still produces a visible loop.
func SelfLoopPath(source, target HandleInfo, bounds geometry.Rect) Path {
	src, dst := sanitizePair(source.Position, target.Position)

	if bounds.IsEmpty() {
		bounds = geometry.Rect{
			X:      min(src.X, dst.X),
			Y:      min(src.Y, dst.Y),
			Width:  max(src.X, dst.X) - min(src.X, dst.X),
			Height: max(src.Y, dst.Y) - min(src.Y, dst.Y),
		}
	}

	f := loopFrame{
		src:    src,
		dst:    dst,
		top:    bounds.Y,
		right:  bounds.X + bounds.Width,
		bottom: bounds.Y + bounds.Height,
		left:   bounds.X,
		ext:    loopExtension(bounds),
	}

	build, ok := selfLoopCorners[[2]Side{source.Side, target.Side}]
	if !ok {
		// Unknown side pair: fall back to a plain canonical path.
		return GeneratePath(src, dst, RouteHorizontalFirst)
	}

	points := append([]geometry.Point{src}, build(f)...)
	points = append(points, dst)
	path := pathFromPoints(points, RouteSelfLoop)
	return path
}
