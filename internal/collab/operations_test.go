package collab

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/orthodraw/orthodraw/backend-go/internal/document"
	"github.com/orthodraw/orthodraw/backend-go/internal/geometry"
	"github.com/orthodraw/orthodraw/backend-go/internal/routing"
)

const testCanvas = "canvas_1"

func newTestState(t *testing.T) *DocumentState {
	t.Helper()
	doc := document.NewEmptyDocument("proj_test", "Test", testCanvas)
	canvas := doc.Canvases[testCanvas]
	for _, n := range []document.Node{
		{ID: "node_a", Type: document.NodeTypeRect, Bounds: geometry.Rect{X: 0, Y: 0, Width: 100, Height: 60}, Visible: true},
		{ID: "node_b", Type: document.NodeTypeRect, Bounds: geometry.Rect{X: 300, Y: 0, Width: 100, Height: 60}, Visible: true},
	} {
		doc.Nodes[n.ID] = n
		canvas.Nodes = append(canvas.Nodes, n.ID)
	}
	doc.Canvases[testCanvas] = canvas
	return NewDocumentState(doc)
}

func createConnector(t *testing.T, ds *DocumentState, id, sourceID, targetID string) []RouteUpdate {
	t.Helper()
	connJSON, _ := json.Marshal(document.Connector{ID: id, SourceID: sourceID, TargetID: targetID})
	_, routes, err := ds.ApplyOperation(Operation{
		ID:        "op_" + id,
		Type:      OpConnectorCreate,
		CanvasID:  testCanvas,
		Connector: connJSON,
	})
	if err != nil {
		t.Fatalf("connector.create: %v", err)
	}
	return routes
}

func assertOrthogonal(t *testing.T, u RouteUpdate) {
	t.Helper()
	full := append([]geometry.Point{u.SourceHandle.Position}, u.ControlPoints...)
	full = append(full, u.TargetHandle.Position)
	for i := 1; i < len(full); i++ {
		dx := math.Abs(full[i].X - full[i-1].X)
		dy := math.Abs(full[i].Y - full[i-1].Y)
		if dx > 1e-9 && dy > 1e-9 {
			t.Errorf("diagonal step %v -> %v", full[i-1], full[i])
		}
	}
}

func TestConnectorCreateRoutesServerSide(t *testing.T) {
	ds := newTestState(t)
	routes := createConnector(t, ds, "conn_1", "node_a", "node_b")

	if len(routes) != 1 {
		t.Fatalf("expected 1 route update, got %d", len(routes))
	}
	u := routes[0]
	if u.SourceHandle == nil || u.TargetHandle == nil {
		t.Fatal("route update missing handles")
	}
	if u.SourceHandle.Side != routing.SideRight || u.TargetHandle.Side != routing.SideLeft {
		t.Errorf("expected right -> left, got %s -> %s", u.SourceHandle.Side, u.TargetHandle.Side)
	}
	if u.Metrics == nil {
		t.Fatal("route update missing metrics")
	}
	if want := "node_a:right -> node_b:left"; u.Metrics.HandleCombination != want {
		t.Errorf("handle combination %q, want %q", u.Metrics.HandleCombination, want)
	}
	assertOrthogonal(t, u)

	// The persisted connector carries the same route.
	conn := ds.GetDocument().Connectors["conn_1"]
	if conn.SourceHandle == nil || conn.Metrics == nil {
		t.Error("connector did not persist its route")
	}
}

func TestNodeMoveReroutesAttachedConnectors(t *testing.T) {
	ds := newTestState(t)
	createConnector(t, ds, "conn_1", "node_a", "node_b")

	pos := geometry.Point{X: 0, Y: 400}
	_, routes, err := ds.ApplyOperation(Operation{
		Type:     OpNodeMove,
		NodeID:   "node_a",
		Position: &pos,
	})
	if err != nil {
		t.Fatalf("node.move: %v", err)
	}
	if len(routes) != 1 || routes[0].ConnectorID != "conn_1" {
		t.Fatalf("expected conn_1 rerouted, got %+v", routes)
	}
	assertOrthogonal(t, routes[0])

	if got := ds.GetDocument().Nodes["node_a"].Bounds; got.X != 0 || got.Y != 400 {
		t.Errorf("node not moved: %+v", got)
	}
}

func TestNodeMoveResolvesCollisionsOnUnattachedConnectors(t *testing.T) {
	ds := newTestState(t)
	createConnector(t, ds, "conn_1", "node_a", "node_b")

	// A bystander node created far away, then dropped onto conn_1's route.
	nodeJSON := []byte(`{"id":"node_c","type":"rect","bounds":{"x":600,"y":300,"width":60,"height":120},"visible":true}`)
	if _, _, err := ds.ApplyOperation(Operation{Type: OpNodeCreate, CanvasID: testCanvas, Node: nodeJSON}); err != nil {
		t.Fatalf("node.create: %v", err)
	}

	pos := geometry.Point{X: 250, Y: -20}
	_, routes, err := ds.ApplyOperation(Operation{Type: OpNodeMove, NodeID: "node_c", Position: &pos})
	if err != nil {
		t.Fatalf("node.move: %v", err)
	}
	if len(routes) != 1 || routes[0].ConnectorID != "conn_1" {
		t.Fatalf("expected conn_1 pushed aside by the moved node, got %+v", routes)
	}
	u := routes[0]
	assertOrthogonal(t, u)

	clearance := ds.GetDocument().Nodes["node_c"].Bounds.Inflate(routing.DefaultCollisionConfig().Clearance)
	for _, cp := range u.ControlPoints {
		if clearance.ContainsStrict(cp) {
			t.Errorf("control point %v still inside the moved node's clearance box %+v", cp, clearance)
		}
	}
	want := []geometry.Point{{X: 120, Y: 40}, {X: 200, Y: 40}, {X: 200, Y: 20}}
	if fmt.Sprint(u.ControlPoints) != fmt.Sprint(want) {
		t.Errorf("control points = %v, want %v", u.ControlPoints, want)
	}

	// The persisted connector carries the resolved route too.
	conn := ds.GetDocument().Connectors["conn_1"]
	if fmt.Sprint(conn.ControlPoints) != fmt.Sprint(want) {
		t.Errorf("persisted control points = %v, want %v", conn.ControlPoints, want)
	}
}

func TestNodeCreateDefaultsVisibility(t *testing.T) {
	ds := newTestState(t)

	// A payload without a visible field yields a visible node.
	raw := []byte(`{"id":"node_x","type":"rect","bounds":{"x":500,"y":0,"width":80,"height":40}}`)
	if _, _, err := ds.ApplyOperation(Operation{Type: OpNodeCreate, CanvasID: testCanvas, Node: raw}); err != nil {
		t.Fatalf("node.create: %v", err)
	}
	if !ds.GetDocument().Nodes["node_x"].Visible {
		t.Error("node created without a visible field should be visible")
	}

	// An explicit false sticks.
	raw = []byte(`{"id":"node_y","type":"rect","bounds":{"x":500,"y":100,"width":80,"height":40},"visible":false}`)
	if _, _, err := ds.ApplyOperation(Operation{Type: OpNodeCreate, CanvasID: testCanvas, Node: raw}); err != nil {
		t.Fatalf("node.create: %v", err)
	}
	if ds.GetDocument().Nodes["node_y"].Visible {
		t.Error("explicitly hidden node should stay hidden")
	}
}

func TestNodeMoveLockedFails(t *testing.T) {
	ds := newTestState(t)
	locked := true
	if _, _, err := ds.ApplyOperation(Operation{Type: OpNodeLocked, NodeID: "node_a", Locked: &locked}); err != nil {
		t.Fatalf("node.locked: %v", err)
	}

	pos := geometry.Point{X: 50, Y: 50}
	if _, _, err := ds.ApplyOperation(Operation{Type: OpNodeMove, NodeID: "node_a", Position: &pos}); err == nil {
		t.Fatal("expected move of locked node to fail")
	}
}

func TestSelfLoopConnector(t *testing.T) {
	ds := newTestState(t)
	routes := createConnector(t, ds, "conn_loop", "node_a", "node_a")

	if len(routes) != 1 {
		t.Fatalf("expected 1 route update, got %d", len(routes))
	}
	u := routes[0]
	if u.RoutingType != routing.RouteSelfLoop {
		t.Errorf("routing type %s, want %s", u.RoutingType, routing.RouteSelfLoop)
	}
	if len(u.ControlPoints) < 2 {
		t.Errorf("self loop should have interior corners, got %v", u.ControlPoints)
	}
	assertOrthogonal(t, u)
}

func TestNodeDeleteCascadesConnectors(t *testing.T) {
	ds := newTestState(t)
	createConnector(t, ds, "conn_1", "node_a", "node_b")

	if _, _, err := ds.ApplyOperation(Operation{Type: OpNodeDelete, NodeID: "node_b"}); err != nil {
		t.Fatalf("node.delete: %v", err)
	}

	doc := ds.GetDocument()
	if _, ok := doc.Nodes["node_b"]; ok {
		t.Error("node_b still present")
	}
	if _, ok := doc.Connectors["conn_1"]; ok {
		t.Error("conn_1 should have been deleted with its target")
	}
	canvas := doc.Canvases[testCanvas]
	for _, id := range canvas.Connectors {
		if id == "conn_1" {
			t.Error("canvas still references conn_1")
		}
	}
}

func TestConnectorDragOutOfRangeIsNoop(t *testing.T) {
	ds := newTestState(t)
	createConnector(t, ds, "conn_1", "node_a", "node_b")
	before := ds.GetDocument().Connectors["conn_1"].ControlPoints

	idx := 99
	mid := geometry.Point{X: 200, Y: 500}
	_, routes, err := ds.ApplyOperation(Operation{
		Type:         OpConnectorDrag,
		ConnectorID:  "conn_1",
		SegmentIndex: &idx,
		Midpoint:     &mid,
	})
	if err != nil {
		t.Fatalf("connector.drag: %v", err)
	}
	if len(routes) != 1 {
		t.Fatalf("expected 1 route update, got %d", len(routes))
	}
	after := ds.GetDocument().Connectors["conn_1"].ControlPoints
	if fmt.Sprint(before) != fmt.Sprint(after) {
		t.Errorf("out-of-range drag changed route: %v -> %v", before, after)
	}
}

func TestConnectorDragPreservesEndpoints(t *testing.T) {
	ds := newTestState(t)
	routes := createConnector(t, ds, "conn_1", "node_a", "node_b")
	u := routes[0]
	srcPos := u.SourceHandle.Position
	tgtPos := u.TargetHandle.Position

	// Drag an interior segment well away from the route.
	idx := 1
	mid := geometry.Point{X: 200, Y: 300}
	_, dragRoutes, err := ds.ApplyOperation(Operation{
		Type:         OpConnectorDrag,
		ConnectorID:  "conn_1",
		SegmentIndex: &idx,
		Midpoint:     &mid,
	})
	if err != nil {
		t.Fatalf("connector.drag: %v", err)
	}
	d := dragRoutes[0]
	if d.SourceHandle.Position != srcPos || d.TargetHandle.Position != tgtPos {
		t.Error("drag moved the connector endpoints")
	}
	assertOrthogonal(t, d)
}

func TestUnknownOperationType(t *testing.T) {
	ds := newTestState(t)
	if _, _, err := ds.ApplyOperation(Operation{Type: "object.teleport"}); err == nil {
		t.Fatal("expected error for unknown operation type")
	}
}

func TestServerSeqIncrements(t *testing.T) {
	ds := newTestState(t)
	name := "Renamed"
	seq1, _, err := ds.ApplyOperation(Operation{Type: OpProjectRename, Name: name})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	seq2, _, err := ds.ApplyOperation(Operation{Type: OpProjectRename, Name: name + " again"})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if seq1 != 1 || seq2 != 2 {
		t.Errorf("expected seq 1 then 2, got %d then %d", seq1, seq2)
	}
	if ds.GetDocument().Project.Name != "Renamed again" {
		t.Errorf("project name not applied: %s", ds.GetDocument().Project.Name)
	}
}

func TestLayoutArrangeReroutesCanvas(t *testing.T) {
	ds := newTestState(t)
	createConnector(t, ds, "conn_1", "node_a", "node_b")

	_, routes, err := ds.ApplyOperation(Operation{Type: OpLayoutArrange, CanvasID: testCanvas})
	if err != nil {
		t.Fatalf("layout.arrange: %v", err)
	}
	if len(routes) != 1 || routes[0].ConnectorID != "conn_1" {
		t.Fatalf("expected conn_1 rerouted after arrange, got %+v", routes)
	}
	assertOrthogonal(t, routes[0])

	a := ds.GetDocument().Nodes["node_a"].Bounds
	b := ds.GetDocument().Nodes["node_b"].Bounds
	if a.X >= b.X {
		t.Errorf("arrange should place source left of target: a.X=%v b.X=%v", a.X, b.X)
	}
}
