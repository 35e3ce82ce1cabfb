// Package layout arranges diagram nodes into left-to-right layers following
// the connector flow, so that routed connectors run mostly forward.
package layout

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/orthodraw/orthodraw/backend-go/internal/document"
)

const (
	marginX = 80.0
	marginY = 80.0
	gapX    = 120.0
	gapY    = 60.0
)

// Arrange repositions every node on the canvas into layered columns: sources
// on the left, sinks on the right, cycles broken arbitrarily. Relative
// vertical order inside a layer follows the nodes' previous positions.
// It returns the IDs of the nodes that were moved.
func Arrange(doc *document.Document, canvasID string) ([]string, error) {
	canvas, ok := doc.Canvases[canvasID]
	if !ok {
		return nil, fmt.Errorf("canvas not found: %s", canvasID)
	}
	if len(canvas.Nodes) == 0 {
		return nil, nil
	}

	// Stable integer ids for the graph.
	nodeIDs := append([]string(nil), canvas.Nodes...)
	sort.Strings(nodeIDs)
	index := make(map[string]int64, len(nodeIDs))
	for i, id := range nodeIDs {
		index[id] = int64(i)
	}

	g := simple.NewDirectedGraph()
	for _, id := range nodeIDs {
		g.AddNode(simple.Node(index[id]))
	}
	for _, connID := range canvas.Connectors {
		c, ok := doc.Connectors[connID]
		if !ok || c.SourceID == c.TargetID {
			continue
		}
		from, okF := index[c.SourceID]
		to, okT := index[c.TargetID]
		if !okF || !okT {
			continue
		}
		if !g.HasEdgeFromTo(from, to) {
			g.SetEdge(g.NewEdge(simple.Node(from), simple.Node(to)))
		}
	}

	// On cycles SortStabilized reports an error and leaves nil entries for
	// the cyclic components; the rest of the order is still usable and the
	// stranded nodes are layered afterwards.
	order, _ := topo.SortStabilized(g, nil)

	layer := make(map[int64]int, len(nodeIDs))
	placed := make(map[int64]bool, len(nodeIDs))
	assign := func(n graph.Node) {
		id := n.ID()
		l := 0
		preds := g.To(id)
		for preds.Next() {
			p := preds.Node().ID()
			if placed[p] && layer[p]+1 > l {
				l = layer[p] + 1
			}
		}
		layer[id] = l
		placed[id] = true
	}
	for _, n := range order {
		if n != nil {
			assign(n)
		}
	}
	// Nodes stranded in cycles get layered in id order after the rest.
	for _, id := range nodeIDs {
		if !placed[index[id]] {
			assign(simple.Node(index[id]))
		}
	}

	// Group into layers, keeping previous vertical order within each.
	byLayer := make(map[int][]string)
	maxLayer := 0
	for _, id := range nodeIDs {
		l := layer[index[id]]
		byLayer[l] = append(byLayer[l], id)
		if l > maxLayer {
			maxLayer = l
		}
	}

	x := marginX
	moved := make([]string, 0, len(nodeIDs))
	for l := 0; l <= maxLayer; l++ {
		ids := byLayer[l]
		sort.SliceStable(ids, func(i, j int) bool {
			a, b := doc.Nodes[ids[i]], doc.Nodes[ids[j]]
			if a.Bounds.Y != b.Bounds.Y {
				return a.Bounds.Y < b.Bounds.Y
			}
			return ids[i] < ids[j]
		})

		colWidth := 0.0
		y := marginY
		for _, id := range ids {
			n := doc.Nodes[id]
			n.Bounds.X = x
			n.Bounds.Y = y
			doc.Nodes[id] = n
			moved = append(moved, id)

			y += n.Bounds.Height + gapY
			if n.Bounds.Width > colWidth {
				colWidth = n.Bounds.Width
			}
		}
		x += colWidth + gapX
	}

	return moved, nil
}
