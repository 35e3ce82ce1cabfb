package routing

import (
	"math"
	"testing"

	"github.com/orthodraw/orthodraw/backend-go/internal/geometry"
)

func TestGeneratePathDegenerate(t *testing.T) {
	p := geometry.Point{X: 42, Y: 17}
	for _, order := range []RoutingType{RouteHorizontalFirst, RouteVerticalFirst} {
		path := GeneratePath(p, p, order)
		if len(path.Segments) != 0 {
			t.Errorf("%s: coincident endpoints produced %d segments", order, len(path.Segments))
		}
		if len(path.ControlPoints) != 1 || !path.ControlPoints[0].Equals(p) {
			t.Errorf("%s: want single-point control list [%v], got %v", order, p, path.ControlPoints)
		}
		if path.TotalLength != 0 || path.Efficiency != 1 {
			t.Errorf("%s: want zero length and efficiency 1, got %g/%g", order, path.TotalLength, path.Efficiency)
		}
	}
}

func TestGeneratePathSingleAxisCollapse(t *testing.T) {
	// A pure horizontal move collapses to one segment no matter which
	// ordering the caller asked for.
	for _, order := range []RoutingType{RouteHorizontalFirst, RouteVerticalFirst} {
		path := GeneratePath(geometry.Point{X: 0, Y: 20}, geometry.Point{X: 75, Y: 20}, order)
		if len(path.Segments) != 1 {
			t.Fatalf("%s: got %d segments, want 1", order, len(path.Segments))
		}
		seg := path.Segments[0]
		if seg.Direction != geometry.Horizontal || seg.Length != 75 {
			t.Errorf("%s: got %s segment of length %g, want horizontal 75", order, seg.Direction, seg.Length)
		}
	}

	path := GeneratePath(geometry.Point{X: 10, Y: 0}, geometry.Point{X: 10, Y: 90}, RouteHorizontalFirst)
	if len(path.Segments) != 1 || path.Segments[0].Direction != geometry.Vertical {
		t.Errorf("vertical collapse failed: %+v", path.Segments)
	}
}

func TestGeneratePathCorners(t *testing.T) {
	start := geometry.Point{X: 0, Y: 0}
	end := geometry.Point{X: 50, Y: 80}

	h := GeneratePath(start, end, RouteHorizontalFirst)
	if len(h.Segments) != 2 {
		t.Fatalf("horizontal-first: got %d segments, want 2", len(h.Segments))
	}
	wantCorner := geometry.Point{X: 50, Y: 0}
	if !h.ControlPoints[1].Equals(wantCorner) {
		t.Errorf("horizontal-first corner = %v, want %v", h.ControlPoints[1], wantCorner)
	}

	v := GeneratePath(start, end, RouteVerticalFirst)
	wantCorner = geometry.Point{X: 0, Y: 80}
	if !v.ControlPoints[1].Equals(wantCorner) {
		t.Errorf("vertical-first corner = %v, want %v", v.ControlPoints[1], wantCorner)
	}

	// Both L paths have length equal to the Manhattan distance.
	want := geometry.Manhattan(start, end)
	if h.TotalLength != want || v.TotalLength != want {
		t.Errorf("lengths %g/%g, want %g", h.TotalLength, v.TotalLength, want)
	}
}

func TestGeneratePathAlignmentTolerance(t *testing.T) {
	// A 4-unit vertical residue within the tolerance snaps away instead of
	// producing a micro-bend.
	path := GeneratePath(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 10, Y: 4}, RouteHorizontalFirst)
	if len(path.Segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(path.Segments))
	}
	seg := path.Segments[0]
	if seg.Direction != geometry.Horizontal || seg.Length != 10 {
		t.Errorf("got %s segment of length %g, want horizontal 10", seg.Direction, seg.Length)
	}
	// Both endpoints snap to the average Y.
	if seg.Start.Y != 2 || seg.End.Y != 2 {
		t.Errorf("snapped ys = %g/%g, want 2/2", seg.Start.Y, seg.End.Y)
	}

	// Just over the tolerance keeps the bend.
	path = GeneratePath(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 10, Y: 7}, RouteHorizontalFirst)
	if len(path.Segments) != 2 {
		t.Errorf("7-unit residue should keep the L, got %d segments", len(path.Segments))
	}
}

func TestGeneratePathStableUnderRecomputation(t *testing.T) {
	// Tolerance snapping is applied consistently, so recomputing the same
	// logical edge yields identical geometry.
	start := geometry.Point{X: 3, Y: 101}
	end := geometry.Point{X: 140, Y: 98}
	first := GeneratePath(start, end, RouteHorizontalFirst)
	second := GeneratePath(start, end, RouteHorizontalFirst)
	if len(first.ControlPoints) != len(second.ControlPoints) {
		t.Fatalf("control point counts differ: %d vs %d", len(first.ControlPoints), len(second.ControlPoints))
	}
	for i := range first.ControlPoints {
		if !first.ControlPoints[i].Equals(second.ControlPoints[i]) {
			t.Errorf("control point %d differs: %v vs %v", i, first.ControlPoints[i], second.ControlPoints[i])
		}
	}
}

func TestGeneratePathNonFiniteInput(t *testing.T) {
	bad := geometry.Point{X: math.NaN(), Y: 10}
	good := geometry.Point{X: 50, Y: 40}
	path := GeneratePath(bad, good, RouteHorizontalFirst)

	if math.IsNaN(path.TotalLength) || math.IsInf(path.TotalLength, 0) {
		t.Errorf("total length is not finite: %g", path.TotalLength)
	}
	for i, cp := range path.ControlPoints {
		if !cp.IsFinite() {
			t.Errorf("control point %d is not finite: %v", i, cp)
		}
	}

	inf := geometry.Point{X: 0, Y: math.Inf(1)}
	path = GeneratePath(inf, good, RouteVerticalFirst)
	if math.IsNaN(path.Efficiency) || math.IsInf(path.Efficiency, 0) {
		t.Errorf("efficiency is not finite: %g", path.Efficiency)
	}
}

func TestPerpendicularPathStraight(t *testing.T) {
	bounds := geometry.Rect{X: 0, Y: 0, Width: 100, Height: 60}
	targetBounds := geometry.Rect{X: 200, Y: 0, Width: 100, Height: 60}
	source := HandleInfo{ID: "a:right", NodeID: "a", Position: geometry.Point{X: 100, Y: 30}, Side: SideRight, Role: RoleSource}
	target := HandleInfo{ID: "b:left", NodeID: "b", Position: geometry.Point{X: 200, Y: 30}, Side: SideLeft, Role: RoleTarget}

	path := PerpendicularPath(source, target, &bounds, &targetBounds, RouteHorizontalFirst)

	if path.TotalLength != 100 {
		t.Errorf("total length = %g, want 100", path.TotalLength)
	}
	first := path.Segments[0]
	last := path.Segments[len(path.Segments)-1]
	if first.Direction != geometry.Horizontal {
		t.Errorf("exit segment is %s, want horizontal for a right-side handle", first.Direction)
	}
	if last.Direction != geometry.Horizontal {
		t.Errorf("entry segment is %s, want horizontal for a left-side handle", last.Direction)
	}
	if !path.ControlPoints[0].Equals(source.Position) || !path.ControlPoints[len(path.ControlPoints)-1].Equals(target.Position) {
		t.Error("path endpoints do not match handle positions")
	}
}

func TestPerpendicularPathWithCorner(t *testing.T) {
	bounds := geometry.Rect{X: 0, Y: 0, Width: 100, Height: 60}
	targetBounds := geometry.Rect{X: 200, Y: 100, Width: 100, Height: 60}
	source := HandleInfo{ID: "a:right", NodeID: "a", Position: geometry.Point{X: 100, Y: 30}, Side: SideRight, Role: RoleSource}
	target := HandleInfo{ID: "b:top", NodeID: "b", Position: geometry.Point{X: 250, Y: 100}, Side: SideTop, Role: RoleTarget}

	path := PerpendicularPath(source, target, &bounds, &targetBounds, RouteHorizontalFirst)

	first := path.Segments[0]
	last := path.Segments[len(path.Segments)-1]
	if first.Direction != geometry.Horizontal {
		t.Errorf("exit segment is %s, want horizontal", first.Direction)
	}
	if last.Direction != geometry.Vertical {
		t.Errorf("entry segment is %s, want vertical for a top-side handle", last.Direction)
	}

	// Every segment is axis-aligned and at least the epsilon long.
	for i, seg := range path.Segments {
		if seg.Length < 0.1 {
			t.Errorf("segment %d has sub-epsilon length %g", i, seg.Length)
		}
	}
}

func TestPerpendicularPathDefaultOffset(t *testing.T) {
	// Without node sizes the exit/approach points sit the default 30 units
	// off the handles.
	source := HandleInfo{ID: "a:bottom", NodeID: "a", Position: geometry.Point{X: 50, Y: 60}, Side: SideBottom, Role: RoleSource}
	target := HandleInfo{ID: "b:top", NodeID: "b", Position: geometry.Point{X: 50, Y: 300}, Side: SideTop, Role: RoleTarget}

	path := PerpendicularPath(source, target, nil, nil, RouteVerticalFirst)
	if len(path.Segments) == 0 {
		t.Fatal("no segments generated")
	}
	if got := path.Segments[0].Length; got != 30 {
		t.Errorf("exit segment length = %g, want default offset 30", got)
	}
}

func TestPerpendicularPathSnapsNearAlignedApproach(t *testing.T) {
	// The approach point sits 4 units below the exit line. It snaps onto the
	// line instead of leaving a micro-jog before the corner.
	source := HandleInfo{ID: "a:right", NodeID: "a", Position: geometry.Point{X: 100, Y: 40}, Side: SideRight, Role: RoleSource}
	target := HandleInfo{ID: "b:top", NodeID: "b", Position: geometry.Point{X: 200, Y: 74}, Side: SideTop, Role: RoleTarget}

	path := PerpendicularPath(source, target, nil, nil, RouteVerticalFirst)

	for i, seg := range path.Segments {
		if seg.Length <= AlignmentTolerance {
			t.Errorf("segment %d has near-degenerate length %g", i, seg.Length)
		}
	}
	for i := 1; i < len(path.ControlPoints); i++ {
		prev, cur := path.ControlPoints[i-1], path.ControlPoints[i]
		if prev.X != cur.X && prev.Y != cur.Y {
			t.Errorf("diagonal step between %v and %v", prev, cur)
		}
	}
	// Handle endpoints never move under the snap.
	if !path.ControlPoints[0].Equals(source.Position) || !path.ControlPoints[len(path.ControlPoints)-1].Equals(target.Position) {
		t.Error("path endpoints do not match handle positions")
	}
	// Only the final descent into the target runs vertically.
	if last := path.Segments[len(path.Segments)-1]; last.Direction != geometry.Vertical || last.Length != 34 {
		t.Errorf("entry segment = %s length %g, want vertical 34", last.Direction, last.Length)
	}
}

func TestPerpendicularPathSnapAveragesWhenBothMovable(t *testing.T) {
	// Two right-side stubs landing 2 units apart in X meet at the averaged
	// column so the connecting run is a single straight vertical.
	source := HandleInfo{ID: "a:right", NodeID: "a", Position: geometry.Point{X: 100, Y: 40}, Side: SideRight, Role: RoleSource}
	target := HandleInfo{ID: "b:right", NodeID: "b", Position: geometry.Point{X: 102, Y: 200}, Side: SideRight, Role: RoleTarget}

	path := PerpendicularPath(source, target, nil, nil, RouteHorizontalFirst)

	var sawColumn bool
	for _, cp := range path.ControlPoints {
		if cp.X == 131 {
			sawColumn = true
		}
	}
	if !sawColumn {
		t.Errorf("no control point on the averaged column x=131: %v", path.ControlPoints)
	}
	for i, seg := range path.Segments {
		if seg.Length <= AlignmentTolerance {
			t.Errorf("segment %d has near-degenerate length %g", i, seg.Length)
		}
	}
}

func TestApproachOffsetClamping(t *testing.T) {
	tests := []struct {
		name   string
		bounds *geometry.Rect
		want   float64
	}{
		{"nil bounds", nil, 30},
		{"small node clamps to 20", &geometry.Rect{Width: 40, Height: 40}, 20},
		{"mid node scales", &geometry.Rect{Width: 200, Height: 200}, 40},
		{"large node clamps to 80", &geometry.Rect{Width: 600, Height: 600}, 80},
	}
	for _, tt := range tests {
		if got := approachOffset(tt.bounds); got != tt.want {
			t.Errorf("%s: approachOffset = %g, want %g", tt.name, got, tt.want)
		}
	}
}
