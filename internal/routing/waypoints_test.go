package routing

import (
	"testing"

	"github.com/orthodraw/orthodraw/backend-go/internal/geometry"
)

func TestCanMergeWaypoints(t *testing.T) {
	tests := []struct {
		name      string
		a, b, c   geometry.Point
		tolerance float64
		want      bool
	}{
		{"exactly collinear", geometry.Point{X: 0, Y: 0}, geometry.Point{X: 50, Y: 0}, geometry.Point{X: 100, Y: 0}, 5, true},
		{"within tolerance", geometry.Point{X: 0, Y: 0}, geometry.Point{X: 50, Y: 3}, geometry.Point{X: 100, Y: 0}, 5, true},
		{"outside tolerance", geometry.Point{X: 0, Y: 0}, geometry.Point{X: 50, Y: 10}, geometry.Point{X: 100, Y: 0}, 5, false},
		{"genuine corner", geometry.Point{X: 0, Y: 0}, geometry.Point{X: 100, Y: 0}, geometry.Point{X: 100, Y: 100}, 5, false},
		{"degenerate a==c near b", geometry.Point{X: 10, Y: 10}, geometry.Point{X: 12, Y: 10}, geometry.Point{X: 10, Y: 10}, 5, true},
		{"degenerate a==c far b", geometry.Point{X: 10, Y: 10}, geometry.Point{X: 40, Y: 10}, geometry.Point{X: 10, Y: 10}, 5, false},
	}
	for _, tt := range tests {
		if got := CanMergeWaypoints(tt.a, tt.b, tt.c, tt.tolerance); got != tt.want {
			t.Errorf("%s: CanMergeWaypoints = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSimplifyWaypointsCollinearRun(t *testing.T) {
	points := []geometry.Point{
		{X: 150, Y: 100},
		{X: 200, Y: 100},
		{X: 250, Y: 100},
		{X: 250, Y: 150},
	}
	got := SimplifyWaypoints(points, 5)

	want := []geometry.Point{
		{X: 150, Y: 100},
		{X: 250, Y: 100},
		{X: 250, Y: 150},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d points %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if !got[i].Equals(want[i]) {
			t.Errorf("point %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSimplifyWaypointsPreservesEndpointsAndTurns(t *testing.T) {
	// A staircase has no removable points.
	points := []geometry.Point{
		{X: 0, Y: 0},
		{X: 50, Y: 0},
		{X: 50, Y: 50},
		{X: 100, Y: 50},
		{X: 100, Y: 100},
	}
	got := SimplifyWaypoints(points, 5)
	if len(got) != len(points) {
		t.Errorf("staircase lost points: got %d, want %d", len(got), len(points))
	}

	short := []geometry.Point{{X: 0, Y: 0}, {X: 10, Y: 10}}
	if got := SimplifyWaypoints(short, 5); len(got) != 2 {
		t.Errorf("two-point list should be untouched, got %v", got)
	}
}

func TestAnalyzeConnectionImpact(t *testing.T) {
	source := geometry.Point{X: 0, Y: 0}
	target := geometry.Point{X: 100, Y: 50}
	cps := []geometry.Point{{X: 50, Y: 0}, {X: 50, Y: 50}}

	// Interior vertical segment dragged sideways: neighbors stretch, no
	// disconnection.
	impact := AnalyzeConnectionImpact(1, geometry.Point{X: 70, Y: 25}, cps, source, target)
	if impact.WouldDisconnect {
		t.Error("interior segment drag should not disconnect")
	}

	// First segment dragged off the source handle.
	impact = AnalyzeConnectionImpact(0, geometry.Point{X: 25, Y: 30}, cps, source, target)
	if !impact.WouldDisconnect {
		t.Fatal("dragging the first segment off the source should disconnect")
	}
	if len(impact.AffectedHandles) != 1 || impact.AffectedHandles[0] != "source" {
		t.Errorf("affected handles = %v, want [source]", impact.AffectedHandles)
	}

	// Last segment dragged off the target handle.
	impact = AnalyzeConnectionImpact(2, geometry.Point{X: 75, Y: 80}, cps, source, target)
	if !impact.WouldDisconnect || len(impact.AffectedHandles) != 1 || impact.AffectedHandles[0] != "target" {
		t.Errorf("want target disconnection, got %+v", impact)
	}

	// A drag that keeps the segment on its line is a no-op.
	impact = AnalyzeConnectionImpact(0, geometry.Point{X: 25, Y: 0}, cps, source, target)
	if impact.WouldDisconnect {
		t.Error("drag along the segment's own line should not disconnect")
	}

	// Out-of-range indexes are ignored, not panics.
	impact = AnalyzeConnectionImpact(99, geometry.Point{X: 0, Y: 0}, cps, source, target)
	if impact.WouldDisconnect {
		t.Error("out-of-range segment index should report no impact")
	}
}

func TestInsertPreservationWaypointsNoOpIdentity(t *testing.T) {
	source := geometry.Point{X: 0, Y: 0}
	target := geometry.Point{X: 100, Y: 50}
	cps := []geometry.Point{{X: 50, Y: 0}, {X: 50, Y: 50}}

	res := InsertPreservationWaypoints(1, geometry.Point{X: 70, Y: 25}, cps, source, target)
	if res.RequiresInsertion {
		t.Fatal("interior drag must not require insertion")
	}
	if len(res.InsertedWaypoints) != 0 {
		t.Errorf("no-op inserted waypoints: %v", res.InsertedWaypoints)
	}
	// Identity: callers diff by reference.
	if &res.NewControlPoints[0] != &cps[0] {
		t.Error("no-op result must return the input slice unchanged")
	}
}

func TestInsertPreservationWaypointsBridgesSource(t *testing.T) {
	source := geometry.Point{X: 0, Y: 0}
	target := geometry.Point{X: 100, Y: 50}
	cps := []geometry.Point{{X: 50, Y: 0}, {X: 50, Y: 50}}

	res := InsertPreservationWaypoints(0, geometry.Point{X: 25, Y: 30}, cps, source, target)
	if !res.RequiresInsertion {
		t.Fatal("dragging the first segment must require insertion")
	}
	if len(res.InsertedWaypoints) != 1 || !res.InsertedWaypoints[0].Equals(geometry.Point{X: 0, Y: 30}) {
		t.Errorf("inserted = %v, want [(0,30)]", res.InsertedWaypoints)
	}

	assertOrthogonalChain(t, res.NewControlPoints, source, target)

	// The dragged segment honors the requested midpoint line.
	if res.NewControlPoints[0].Y != 30 || res.NewControlPoints[1].Y != 30 {
		t.Errorf("dragged segment not on y=30: %v", res.NewControlPoints)
	}
}

func TestInsertPreservationWaypointsBridgesBothEnds(t *testing.T) {
	// Dragging the only segment of a straight connector detaches both ends.
	source := geometry.Point{X: 0, Y: 0}
	target := geometry.Point{X: 100, Y: 0}

	res := InsertPreservationWaypoints(0, geometry.Point{X: 50, Y: 40}, nil, source, target)
	if !res.RequiresInsertion {
		t.Fatal("single-segment drag must require insertion")
	}
	if len(res.InsertedWaypoints) != 2 {
		t.Fatalf("inserted %d waypoints, want 2", len(res.InsertedWaypoints))
	}

	want := []geometry.Point{{X: 0, Y: 40}, {X: 100, Y: 40}}
	for i, w := range want {
		if !res.NewControlPoints[i].Equals(w) {
			t.Errorf("control point %d = %v, want %v", i, res.NewControlPoints[i], w)
		}
	}
	assertOrthogonalChain(t, res.NewControlPoints, source, target)
}

func TestInsertPreservationWaypointsVerticalDrag(t *testing.T) {
	// Vertical first segment glued to a bottom handle, dragged sideways.
	source := geometry.Point{X: 50, Y: 60}
	target := geometry.Point{X: 200, Y: 200}
	cps := []geometry.Point{{X: 50, Y: 200}}

	res := InsertPreservationWaypoints(0, geometry.Point{X: 90, Y: 130}, cps, source, target)
	if !res.RequiresInsertion {
		t.Fatal("vertical drag off the source must require insertion")
	}
	if len(res.InsertedWaypoints) != 1 || !res.InsertedWaypoints[0].Equals(geometry.Point{X: 90, Y: 60}) {
		t.Errorf("inserted = %v, want [(90,60)]", res.InsertedWaypoints)
	}
	assertOrthogonalChain(t, res.NewControlPoints, source, target)
}

func TestCleanupWaypoints(t *testing.T) {
	source := geometry.Point{X: 0, Y: 0}
	target := geometry.Point{X: 100, Y: 50}

	// The middle waypoint is collinear with the source-side run.
	cps := []geometry.Point{{X: 30, Y: 0}, {X: 60, Y: 0}, {X: 100, Y: 0}}
	got := CleanupWaypoints(cps, source, target)

	want := []geometry.Point{{X: 100, Y: 0}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if !got[0].Equals(want[0]) {
		t.Errorf("kept waypoint = %v, want %v", got[0], want[0])
	}

	// Already-minimal paths come back empty when every waypoint is
	// collinear with the endpoints.
	got = CleanupWaypoints([]geometry.Point{{X: 50, Y: 0}}, source, geometry.Point{X: 100, Y: 0})
	if len(got) != 0 {
		t.Errorf("straight-line cleanup kept %v", got)
	}
}

// assertOrthogonalChain verifies every consecutive pair in the full path is
// exactly horizontally or vertically aligned.
func assertOrthogonalChain(t *testing.T, cps []geometry.Point, source, target geometry.Point) {
	t.Helper()
	full := fullPath(cps, source, target)
	for i := 0; i < len(full)-1; i++ {
		a, b := full[i], full[i+1]
		if a.X != b.X && a.Y != b.Y {
			t.Errorf("segment %d from %v to %v is diagonal", i, a, b)
		}
	}
}
