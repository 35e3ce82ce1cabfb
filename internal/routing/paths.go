package routing

import (
	"math"

	"github.com/orthodraw/orthodraw/backend-go/internal/geometry"
)

const (
	// AlignmentTolerance snaps near-equal coordinates so a user's almost
	// pixel-perfect drag does not introduce a spurious micro-bend. Applied
	// everywhere a path is (re)computed so repeated computation of the same
	// logical edge is stable.
	AlignmentTolerance = 6.0

	// segmentEpsilon is the length below which a computed segment is dropped
	// rather than emitted as a zero-length segment.
	segmentEpsilon = 0.1

	// DefaultApproachOffset is the perpendicular exit/approach distance used
	// when the node size is unknown.
	DefaultApproachOffset = 30.0
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// sanitizePair neutralizes non-finite coordinates before they can propagate
// into lengths, metrics or the cache. A bad coordinate is replaced by the
// matching coordinate of the other endpoint; if both are bad it becomes zero.
func sanitizePair(start, end geometry.Point) (geometry.Point, geometry.Point) {
	if start.IsFinite() && end.IsFinite() {
		return start, end
	}
	fix := func(a, b float64) (float64, float64) {
		aBad := math.IsNaN(a) || math.IsInf(a, 0)
		bBad := math.IsNaN(b) || math.IsInf(b, 0)
		switch {
		case aBad && bBad:
			return 0, 0
		case aBad:
			return b, b
		case bBad:
			return a, a
		default:
			return a, b
		}
	}
	start.X, end.X = fix(start.X, end.X)
	start.Y, end.Y = fix(start.Y, end.Y)
	return start, end
}

// alignEndpoints snaps the endpoints together on any axis where they differ
// by no more than the alignment tolerance, averaging the two coordinates.
func alignEndpoints(start, end geometry.Point) (geometry.Point, geometry.Point) {
	if dy := math.Abs(end.Y - start.Y); dy > 0 && dy <= AlignmentTolerance {
		mid := (start.Y + end.Y) / 2
		start.Y, end.Y = mid, mid
	}
	if dx := math.Abs(end.X - start.X); dx > 0 && dx <= AlignmentTolerance {
		mid := (start.X + end.X) / 2
		start.X, end.X = mid, mid
	}
	return start, end
}

// pathFromPoints assembles a path from an ordered corner sequence, dropping
// segments shorter than the epsilon. The control point list is rebuilt from
// the segments that survive.
func pathFromPoints(points []geometry.Point, rt RoutingType) Path {
	path := Path{RoutingType: rt, Efficiency: 1}
	if len(points) == 0 {
		return path
	}

	controls := []geometry.Point{points[0]}
	for i := 1; i < len(points); i++ {
		prev := controls[len(controls)-1]
		next := points[i]
		seg, err := geometry.NewPathSegment(prev, next)
		if err != nil {
			// A diagonal step is a generator bug; bridge it with an
			// intermediate corner so the output stays orthogonal.
			corner := geometry.Point{X: next.X, Y: prev.Y}
			if s, cerr := geometry.NewPathSegment(prev, corner); cerr == nil && s.Length >= segmentEpsilon {
				path.Segments = append(path.Segments, s)
				path.TotalLength += s.Length
				controls = append(controls, corner)
			}
			prev = controls[len(controls)-1]
			seg, err = geometry.NewPathSegment(prev, next)
			if err != nil {
				continue
			}
		}
		if seg.Length < segmentEpsilon {
			continue
		}
		path.Segments = append(path.Segments, seg)
		path.TotalLength += seg.Length
		controls = append(controls, next)
	}

	path.ControlPoints = controls
	if len(controls) > 1 {
		path.Efficiency = geometry.Efficiency(controls[0], controls[len(controls)-1])
	}
	return path
}

// BuildPath assembles a path from an already-routed corner sequence, for
// callers that persist control points and need segments and totals back.
func BuildPath(points []geometry.Point, rt RoutingType) Path {
	return pathFromPoints(points, rt)
}

// GeneratePath produces the canonical 1-or-2 segment orthogonal path between
// two points for the requested ordering. Coincident points yield a path with
// no segments and a single control point; points sharing an axis collapse to
// a single segment regardless of the requested order.
func GeneratePath(start, end geometry.Point, order RoutingType) Path {
	start, end = sanitizePair(start, end)
	start, end = alignEndpoints(start, end)

	if start.Equals(end) {
		return Path{
			RoutingType:   order,
			Efficiency:    1,
			ControlPoints: []geometry.Point{start},
		}
	}

	if start.X == end.X || start.Y == end.Y {
		return pathFromPoints([]geometry.Point{start, end}, order)
	}

	corner := geometry.Point{X: end.X, Y: start.Y}
	if order == RouteVerticalFirst {
		corner = geometry.Point{X: start.X, Y: end.Y}
	}
	return pathFromPoints([]geometry.Point{start, corner, end}, order)
}

// approachOffset derives the perpendicular exit/approach distance from a
// node's size, falling back to the default when no size is known.
func approachOffset(bounds *geometry.Rect) float64 {
	if bounds == nil || bounds.IsEmpty() {
		return DefaultApproachOffset
	}
	return clamp((bounds.Width+bounds.Height)/2*0.2, 20, 80)
}

// alignApproach snaps the exit and approach points together on an axis where
// they nearly agree, so an almost-aligned pair does not leave a micro-jog in
// the assembled path. Each point may only move along its own side's normal;
// that keeps the stub segments perpendicular to their sides. When both can
// move they meet in the middle, otherwise the movable one snaps to the fixed
// one.
func alignApproach(exit, approach geometry.Point, sourceSide, targetSide Side) (geometry.Point, geometry.Point) {
	snx, _ := sourceSide.Normal()
	tnx, _ := targetSide.Normal()
	exitMovesX := snx != 0
	approachMovesX := tnx != 0

	if dx := math.Abs(approach.X - exit.X); dx > 0 && dx <= AlignmentTolerance {
		switch {
		case exitMovesX && approachMovesX:
			mid := (exit.X + approach.X) / 2
			exit.X, approach.X = mid, mid
		case exitMovesX:
			exit.X = approach.X
		case approachMovesX:
			approach.X = exit.X
		}
	}
	if dy := math.Abs(approach.Y - exit.Y); dy > 0 && dy <= AlignmentTolerance {
		switch {
		case !exitMovesX && !approachMovesX:
			mid := (exit.Y + approach.Y) / 2
			exit.Y, approach.Y = mid, mid
		case !exitMovesX:
			exit.Y = approach.Y
		case !approachMovesX:
			approach.Y = exit.Y
		}
	}
	return exit, approach
}

// PerpendicularPath routes between two handles so that the outgoing and
// incoming segments meet each handle at a right angle to its side. The path
// runs source -> exit point -> (corner if needed) -> approach point -> target,
// with exit/approach offsets derived from the node sizes.
func PerpendicularPath(source, target HandleInfo, sourceBounds, targetBounds *geometry.Rect, order RoutingType) Path {
	src, dst := sanitizePair(source.Position, target.Position)

	snx, sny := source.Side.Normal()
	tnx, tny := target.Side.Normal()
	exitOff := approachOffset(sourceBounds)
	approachOff := approachOffset(targetBounds)

	exit := geometry.Point{X: src.X + snx*exitOff, Y: src.Y + sny*exitOff}
	approach := geometry.Point{X: dst.X + tnx*approachOff, Y: dst.Y + tny*approachOff}
	exit, approach = alignApproach(exit, approach, source.Side, target.Side)

	points := []geometry.Point{src, exit}
	if exit.X != approach.X && exit.Y != approach.Y {
		corner := geometry.Point{X: approach.X, Y: exit.Y}
		if order == RouteVerticalFirst {
			corner = geometry.Point{X: exit.X, Y: approach.Y}
		}
		points = append(points, corner)
	}
	points = append(points, approach, dst)

	return pathFromPoints(points, order)
}
