// Package export renders diagram documents to SVG and PNG.
package export

import (
	"fmt"

	"github.com/orthodraw/orthodraw/backend-go/internal/document"
	"github.com/orthodraw/orthodraw/backend-go/internal/geometry"
	"github.com/orthodraw/orthodraw/backend-go/internal/routing"
)

// connectorPath is a connector resolved to a drawable corner sequence,
// endpoints included.
type connectorPath struct {
	conn   document.Connector
	points []geometry.Point
}

// resolvePaths produces the final geometry for every connector on a canvas.
// Persisted routes are used as-is; connectors without one are routed fresh.
func resolvePaths(doc *document.Document, canvas document.Canvas, router *routing.Engine) ([]connectorPath, error) {
	paths := make([]connectorPath, 0, len(canvas.Connectors))
	for _, id := range canvas.Connectors {
		conn, ok := doc.Connectors[id]
		if !ok {
			continue
		}

		if conn.SourceHandle != nil && conn.TargetHandle != nil {
			full := make([]geometry.Point, 0, len(conn.ControlPoints)+2)
			full = append(full, conn.SourceHandle.Position)
			full = append(full, conn.ControlPoints...)
			full = append(full, conn.TargetHandle.Position)
			paths = append(paths, connectorPath{conn: conn, points: full})
			continue
		}

		points, err := routeConnector(doc, conn, router)
		if err != nil {
			return nil, err
		}
		paths = append(paths, connectorPath{conn: conn, points: points})
	}
	return paths, nil
}

func routeConnector(doc *document.Document, conn document.Connector, router *routing.Engine) ([]geometry.Point, error) {
	src, ok := doc.Nodes[conn.SourceID]
	if !ok {
		return nil, fmt.Errorf("connector %s source not found: %s", conn.ID, conn.SourceID)
	}
	tgt, ok := doc.Nodes[conn.TargetID]
	if !ok {
		return nil, fmt.Errorf("connector %s target not found: %s", conn.ID, conn.TargetID)
	}

	combo, err := routing.FindOptimalHandles(src.RoutingInfo(), tgt.RoutingInfo())
	if err != nil {
		return nil, fmt.Errorf("route connector %s: %w", conn.ID, err)
	}

	srcBounds := src.Bounds
	tgtBounds := tgt.Bounds
	path := router.CalculatePath(combo.SourceHandle, combo.TargetHandle, &routing.PathOptions{
		PerpendicularApproach: true,
		SourceBounds:          &srcBounds,
		TargetBounds:          &tgtBounds,
	})
	return path.ControlPoints, nil
}

// labelAnchor picks the midpoint of the longest segment for connector labels.
func labelAnchor(points []geometry.Point) geometry.Point {
	if len(points) == 0 {
		return geometry.Point{}
	}
	if len(points) == 1 {
		return points[0]
	}
	best := 0
	bestLen := 0.0
	for i := 1; i < len(points); i++ {
		l := geometry.Manhattan(points[i-1], points[i])
		if l > bestLen {
			bestLen = l
			best = i
		}
	}
	return points[best-1].Midpoint(points[best])
}
