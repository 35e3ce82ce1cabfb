package layout

import (
	"testing"

	"github.com/orthodraw/orthodraw/backend-go/internal/document"
	"github.com/orthodraw/orthodraw/backend-go/internal/geometry"
)

func testDoc(connect [][2]string, nodes ...string) *document.Document {
	doc := document.NewEmptyDocument("proj_test", "Test", "canvas_1")
	canvas := doc.Canvases["canvas_1"]
	for i, id := range nodes {
		doc.Nodes[id] = document.Node{
			ID:      id,
			Type:    document.NodeTypeRect,
			Bounds:  geometry.Rect{X: float64(500 - i), Y: float64(100 * i), Width: 120, Height: 60},
			Visible: true,
		}
		canvas.Nodes = append(canvas.Nodes, id)
	}
	for i, pair := range connect {
		id := "conn_" + string(rune('a'+i))
		doc.Connectors[id] = document.Connector{ID: id, SourceID: pair[0], TargetID: pair[1]}
		canvas.Connectors = append(canvas.Connectors, id)
	}
	doc.Canvases["canvas_1"] = canvas
	return doc
}

func TestArrangeChainFlowsLeftToRight(t *testing.T) {
	doc := testDoc([][2]string{{"node_a", "node_b"}, {"node_b", "node_c"}},
		"node_a", "node_b", "node_c")

	moved, err := Arrange(doc, "canvas_1")
	if err != nil {
		t.Fatalf("arrange: %v", err)
	}
	if len(moved) != 3 {
		t.Fatalf("expected 3 moved nodes, got %d", len(moved))
	}

	ax := doc.Nodes["node_a"].Bounds.X
	bx := doc.Nodes["node_b"].Bounds.X
	cx := doc.Nodes["node_c"].Bounds.X
	if !(ax < bx && bx < cx) {
		t.Errorf("chain not layered left to right: a=%v b=%v c=%v", ax, bx, cx)
	}
}

func TestArrangeSharedLayerKeepsVerticalOrder(t *testing.T) {
	// Both b and c hang off a; they share a layer and must not overlap.
	doc := testDoc([][2]string{{"node_a", "node_b"}, {"node_a", "node_c"}},
		"node_a", "node_b", "node_c")

	if _, err := Arrange(doc, "canvas_1"); err != nil {
		t.Fatalf("arrange: %v", err)
	}

	b := doc.Nodes["node_b"].Bounds
	c := doc.Nodes["node_c"].Bounds
	if b.X != c.X {
		t.Errorf("siblings should share a column: b.X=%v c.X=%v", b.X, c.X)
	}
	// node_b started above node_c, so it stays above.
	if b.Y >= c.Y {
		t.Errorf("vertical order not preserved: b.Y=%v c.Y=%v", b.Y, c.Y)
	}
	if c.Y < b.Y+b.Height {
		t.Errorf("siblings overlap: b=%+v c=%+v", b, c)
	}
}

func TestArrangeCycleTerminates(t *testing.T) {
	doc := testDoc([][2]string{{"node_a", "node_b"}, {"node_b", "node_a"}},
		"node_a", "node_b")

	moved, err := Arrange(doc, "canvas_1")
	if err != nil {
		t.Fatalf("arrange: %v", err)
	}
	if len(moved) != 2 {
		t.Fatalf("expected both nodes placed, got %d", len(moved))
	}
}

func TestArrangeUnknownCanvas(t *testing.T) {
	doc := document.NewEmptyDocument("proj_test", "Test", "canvas_1")
	if _, err := Arrange(doc, "canvas_missing"); err == nil {
		t.Fatal("expected error for unknown canvas")
	}
}
