package routing

import (
	"fmt"
	"testing"

	"github.com/orthodraw/orthodraw/backend-go/internal/geometry"
)

var loopSides = []Side{SideTop, SideRight, SideBottom, SideLeft}

// loopHandle places a handle on a node side at parameter t (0..1 along the
// side), the way the document layer lays out its fixed handles.
func loopHandle(nodeID string, bounds geometry.Rect, side Side, t float64, role HandleRole) HandleInfo {
	var pos geometry.Point
	switch side {
	case SideTop:
		pos = geometry.Point{X: bounds.X + bounds.Width*t, Y: bounds.Y}
	case SideBottom:
		pos = geometry.Point{X: bounds.X + bounds.Width*t, Y: bounds.Y + bounds.Height}
	case SideLeft:
		pos = geometry.Point{X: bounds.X, Y: bounds.Y + bounds.Height*t}
	case SideRight:
		pos = geometry.Point{X: bounds.X + bounds.Width, Y: bounds.Y + bounds.Height*t}
	}
	return HandleInfo{
		ID:       fmt.Sprintf("%s:%s:%s", nodeID, side, role),
		NodeID:   nodeID,
		Position: pos,
		Side:     side,
		Role:     role,
	}
}

func TestSelfLoopAllSidePairs(t *testing.T) {
	bounds := geometry.Rect{X: 0, Y: 0, Width: 100, Height: 60}
	shapes := make(map[string][2]Side)

	for _, srcSide := range loopSides {
		for _, tgtSide := range loopSides {
			name := fmt.Sprintf("%s->%s", srcSide, tgtSide)
			src := loopHandle("n1", bounds, srcSide, 2.0/3.0, RoleSource)
			tgt := loopHandle("n1", bounds, tgtSide, 1.0/3.0, RoleTarget)

			path := SelfLoopPath(src, tgt, bounds)

			if path.RoutingType != RouteSelfLoop {
				t.Errorf("%s: routing type = %s, want self-loop", name, path.RoutingType)
			}
			if len(path.Segments) < 3 {
				t.Errorf("%s: only %d segments, a loop needs at least 3", name, len(path.Segments))
				continue
			}

			cps := path.ControlPoints
			if !cps[0].Equals(src.Position) || !cps[len(cps)-1].Equals(tgt.Position) {
				t.Errorf("%s: endpoints %v..%v do not match handles %v..%v",
					name, cps[0], cps[len(cps)-1], src.Position, tgt.Position)
			}

			// Exit and entry must be perpendicular to their sides.
			if got := path.Segments[0].Direction; got != srcSide.EntryDirection() {
				t.Errorf("%s: exit segment is %s, want %s", name, got, srcSide.EntryDirection())
			}
			if got := path.Segments[len(path.Segments)-1].Direction; got != tgtSide.EntryDirection() {
				t.Errorf("%s: entry segment is %s, want %s", name, got, tgtSide.EntryDirection())
			}

			// No intermediate corner may sit inside the node body: the loop
			// bulges outward.
			for _, cp := range cps[1 : len(cps)-1] {
				if bounds.ContainsStrict(cp) {
					t.Errorf("%s: corner %v is inside the node", name, cp)
				}
			}

			// Each (source side, target side) combination must keep its own
			// distinct shape.
			sig := fmt.Sprintf("%v", cps[1:len(cps)-1])
			if prev, dup := shapes[sig]; dup {
				t.Errorf("%s: corner geometry identical to %s->%s", name, prev[0], prev[1])
			}
			shapes[sig] = [2]Side{srcSide, tgtSide}
		}
	}

	if len(shapes) != 16 {
		t.Errorf("got %d distinct loop shapes, want 16", len(shapes))
	}
}

func TestSelfLoopExtensionScalesWithNode(t *testing.T) {
	small := geometry.Rect{X: 0, Y: 0, Width: 40, Height: 30}
	large := geometry.Rect{X: 0, Y: 0, Width: 400, Height: 300}

	// avg*1.1 clamped to [60, 250].
	if got := loopExtension(small); got != 60 {
		t.Errorf("small node extension = %g, want clamp floor 60", got)
	}
	if got := loopExtension(large); got != 250 {
		t.Errorf("large node extension = %g, want clamp ceiling 250", got)
	}
	mid := geometry.Rect{X: 0, Y: 0, Width: 100, Height: 100}
	if got := loopExtension(mid); got != 110 {
		t.Errorf("mid node extension = %g, want 110", got)
	}
}

func TestSelfLoopTopTopGeometry(t *testing.T) {
	bounds := geometry.Rect{X: 0, Y: 0, Width: 100, Height: 60}
	src := loopHandle("n1", bounds, SideTop, 2.0/3.0, RoleSource)
	tgt := loopHandle("n1", bounds, SideTop, 1.0/3.0, RoleTarget)

	path := SelfLoopPath(src, tgt, bounds)

	ext := loopExtension(bounds)
	wantY := bounds.Y - ext
	if len(path.ControlPoints) != 4 {
		t.Fatalf("got %d control points, want 4", len(path.ControlPoints))
	}
	for _, i := range []int{1, 2} {
		if path.ControlPoints[i].Y != wantY {
			t.Errorf("corner %d sits at y=%g, want %g", i, path.ControlPoints[i].Y, wantY)
		}
	}
}
