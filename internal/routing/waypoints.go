package routing

import (
	"math"

	"github.com/orthodraw/orthodraw/backend-go/internal/geometry"
)

// The waypoint manager keeps an interactively edited path orthogonal and
// attached to its endpoints. It operates on the ordered list of intermediate
// control points of a rendered edge (endpoints excluded) plus the fixed
// source and target positions. Segment i runs from full[i] to full[i+1]
// where full = source + controlPoints + target.

// ConnectionImpact describes what dragging a segment would do to the path's
// attachment at its endpoints.
type ConnectionImpact struct {
	WouldDisconnect bool     `json:"wouldDisconnect"`
	AffectedHandles []string `json:"affectedHandles"` // "source" and/or "target"
}

// PreservationResult is the outcome of a preservation pass. When no insertion
// is needed NewControlPoints is the input slice unchanged, so callers doing
// reference-based diffing see an identity result.
type PreservationResult struct {
	RequiresInsertion bool             `json:"requiresInsertion"`
	InsertedWaypoints []geometry.Point `json:"insertedWaypoints"`
	NewControlPoints  []geometry.Point `json:"newControlPoints"`
}

// fullPath stitches the fixed endpoints around the intermediate points.
func fullPath(controlPoints []geometry.Point, source, target geometry.Point) []geometry.Point {
	full := make([]geometry.Point, 0, len(controlPoints)+2)
	full = append(full, source)
	full = append(full, controlPoints...)
	full = append(full, target)
	return full
}

// segmentDirection classifies the segment between two consecutive path
// points. Points on a valid orthogonal path differ on one axis only; if both
// differ the dominant axis wins.
func segmentDirection(a, b geometry.Point) geometry.Direction {
	if math.Abs(b.Y-a.Y) > math.Abs(b.X-a.X) {
		return geometry.Vertical
	}
	return geometry.Horizontal
}

// dragDelta is the perpendicular displacement a new midpoint asks of a
// segment. The component parallel to the segment is ignored; dragging a
// segment only ever moves it sideways.
func dragDelta(a, b, newMidpoint geometry.Point) float64 {
	if segmentDirection(a, b) == geometry.Horizontal {
		return newMidpoint.Y - a.Y
	}
	return newMidpoint.X - a.X
}

// AnalyzeConnectionImpact determines whether dragging the midpoint of the
// segment at segmentIndex would detach the path from either endpoint. Only
// the first and last segments are glued to handles; interior segments can
// move freely because their perpendicular neighbors simply stretch.
func AnalyzeConnectionImpact(segmentIndex int, newMidpoint geometry.Point, controlPoints []geometry.Point, source, target geometry.Point) ConnectionImpact {
	full := fullPath(controlPoints, source, target)
	if segmentIndex < 0 || segmentIndex >= len(full)-1 {
		return ConnectionImpact{}
	}

	delta := dragDelta(full[segmentIndex], full[segmentIndex+1], newMidpoint)
	if math.Abs(delta) < segmentEpsilon {
		return ConnectionImpact{}
	}

	var affected []string
	if segmentIndex == 0 {
		affected = append(affected, "source")
	}
	if segmentIndex == len(full)-2 {
		affected = append(affected, "target")
	}
	return ConnectionImpact{
		WouldDisconnect: len(affected) > 0,
		AffectedHandles: affected,
	}
}

// InsertPreservationWaypoints applies a segment drag and, when the drag would
// detach an endpoint, synthesizes bridge waypoints so every consecutive pair
// of points stays exactly horizontally or vertically aligned while honoring
// the requested midpoint. When no insertion is needed the input control point
// slice is returned untouched.
func InsertPreservationWaypoints(segmentIndex int, newMidpoint geometry.Point, controlPoints []geometry.Point, source, target geometry.Point) PreservationResult {
	impact := AnalyzeConnectionImpact(segmentIndex, newMidpoint, controlPoints, source, target)
	if !impact.WouldDisconnect {
		return PreservationResult{NewControlPoints: controlPoints}
	}

	full := fullPath(controlPoints, source, target)
	horizontal := segmentDirection(full[segmentIndex], full[segmentIndex+1]) == geometry.Horizontal

	// Move the dragged segment sideways onto the requested line.
	moved := make([]geometry.Point, len(full))
	copy(moved, full)
	if horizontal {
		moved[segmentIndex].Y = newMidpoint.Y
		moved[segmentIndex+1].Y = newMidpoint.Y
	} else {
		moved[segmentIndex].X = newMidpoint.X
		moved[segmentIndex+1].X = newMidpoint.X
	}

	var inserted []geometry.Point
	// The endpoints themselves never move; bridge each detached end with a
	// waypoint that restores a perpendicular run back to the handle.
	out := make([]geometry.Point, 0, len(moved)+2)
	for i, p := range moved {
		if i == 0 {
			out = append(out, source)
			if segmentIndex == 0 {
				bridge := geometry.Point{X: source.X, Y: newMidpoint.Y}
				if !horizontal {
					bridge = geometry.Point{X: newMidpoint.X, Y: source.Y}
				}
				inserted = append(inserted, bridge)
				out = append(out, bridge)
			}
			continue
		}
		if i == len(moved)-1 {
			if segmentIndex == len(full)-2 {
				bridge := geometry.Point{X: target.X, Y: newMidpoint.Y}
				if !horizontal {
					bridge = geometry.Point{X: newMidpoint.X, Y: target.Y}
				}
				inserted = append(inserted, bridge)
				out = append(out, bridge)
			}
			out = append(out, target)
			continue
		}
		out = append(out, p)
	}

	return PreservationResult{
		RequiresInsertion: true,
		InsertedWaypoints: inserted,
		NewControlPoints:  out[1 : len(out)-1],
	}
}

// CanMergeWaypoints reports whether b is collinear with a and c within the
// tolerance, measured as the perpendicular distance of b from the line a-c.
func CanMergeWaypoints(a, b, c geometry.Point, tolerance float64) bool {
	acx := c.X - a.X
	acy := c.Y - a.Y
	norm := math.Hypot(acx, acy)
	if norm == 0 {
		return geometry.Euclidean(a, b) <= tolerance
	}
	cross := acx*(b.Y-a.Y) - acy*(b.X-a.X)
	return math.Abs(cross)/norm <= tolerance
}

// SimplifyWaypoints removes every waypoint that is collinear with its
// neighbors within the tolerance. The first and last points always survive,
// as does any point representing a genuine direction change.
func SimplifyWaypoints(points []geometry.Point, tolerance float64) []geometry.Point {
	if len(points) < 3 {
		return points
	}

	out := []geometry.Point{points[0]}
	for i := 1; i < len(points)-1; i++ {
		prev := out[len(out)-1]
		if CanMergeWaypoints(prev, points[i], points[i+1], tolerance) {
			continue
		}
		out = append(out, points[i])
	}
	return append(out, points[len(points)-1])
}

// CleanupWaypoints simplifies an edited path against its fixed endpoints,
// keeping the persisted intermediate point list minimal after a drag or
// insertion without ever removing a point a turn depends on. Uses the same
// tolerance that path generation snaps with.
func CleanupWaypoints(controlPoints []geometry.Point, source, target geometry.Point) []geometry.Point {
	full := fullPath(controlPoints, source, target)
	simplified := SimplifyWaypoints(full, AlignmentTolerance)
	if len(simplified) <= 2 {
		return nil
	}
	return simplified[1 : len(simplified)-1]
}
