// Package routing is the orthogonal edge-routing core of the editor. Given
// two nodes with fixed connection handles it picks the best handle pair,
// generates the axis-aligned path between them, and keeps interactively
// edited paths orthogonal and attached to their endpoints.
package routing

import (
	"fmt"

	"github.com/orthodraw/orthodraw/backend-go/internal/geometry"
)

// Side identifies which edge of a node a handle sits on.
type Side string

const (
	SideTop    Side = "top"
	SideRight  Side = "right"
	SideBottom Side = "bottom"
	SideLeft   Side = "left"
)

// rank is the fixed total order used as the final sort key during handle
// selection: top < right < bottom < left.
func (s Side) rank() int {
	switch s {
	case SideTop:
		return 0
	case SideRight:
		return 1
	case SideBottom:
		return 2
	case SideLeft:
		return 3
	default:
		return 4
	}
}

// Normal returns the outward unit normal of the side.
func (s Side) Normal() (dx, dy float64) {
	switch s {
	case SideTop:
		return 0, -1
	case SideRight:
		return 1, 0
	case SideBottom:
		return 0, 1
	case SideLeft:
		return -1, 0
	default:
		return 0, 1
	}
}

// EntryDirection returns the axis a path must travel along to meet a handle
// on this side at a right angle: left/right handles are entered horizontally,
// top/bottom handles vertically.
func (s Side) EntryDirection() geometry.Direction {
	if s == SideLeft || s == SideRight {
		return geometry.Horizontal
	}
	return geometry.Vertical
}

// HandleRole is the role a handle plays in a connection.
type HandleRole string

const (
	RoleSource HandleRole = "source"
	RoleTarget HandleRole = "target"
)

// HandleInfo is a fixed, pre-computed connection point on a node's boundary.
// The core only consumes these; handle geometry is owned by the layer that
// owns node bounds.
type HandleInfo struct {
	ID       string         `json:"id"`
	NodeID   string         `json:"nodeId"`
	Position geometry.Point `json:"position"`
	Side     Side           `json:"side"`
	Role     HandleRole     `json:"type"`
}

// NodeInfo is a read-only snapshot of a node passed into handle selection.
type NodeInfo struct {
	ID      string        `json:"id"`
	Bounds  geometry.Rect `json:"bounds"`
	Handles []HandleInfo  `json:"handles"`
}

// RoutingType names which axis a path turns on first.
type RoutingType string

const (
	RouteHorizontalFirst RoutingType = "horizontal-first"
	RouteVerticalFirst   RoutingType = "vertical-first"
	RouteSelfLoop        RoutingType = "self-loop"
)

// Path is a fully generated orthogonal path. ControlPoints is the ordered
// corner sequence including both endpoints: len(Segments)+1 points, except
// the degenerate case where source and target coincide, which yields a
// single point so a zero-length edge still renders a marker.
type Path struct {
	Segments      []geometry.PathSegment `json:"segments"`
	TotalLength   float64                `json:"totalLength"`
	RoutingType   RoutingType            `json:"routingType"`
	Efficiency    float64                `json:"efficiency"`
	ControlPoints []geometry.Point       `json:"controlPoints"`
}

// HandleCombination is a scored candidate produced during handle selection.
// PathLength equals ManhattanDistance whenever the routing is a plain
// two-segment L with no perpendicular-approach padding.
type HandleCombination struct {
	SourceHandle      HandleInfo  `json:"sourceHandle"`
	TargetHandle      HandleInfo  `json:"targetHandle"`
	ManhattanDistance float64     `json:"manhattanDistance"`
	PathLength        float64     `json:"pathLength"`
	Efficiency        float64     `json:"efficiency"`
	RoutingType       RoutingType `json:"routingType"`
}

// Metrics is the serializable routing summary attached to a rendered
// connector for diagnostics and persistence.
type Metrics struct {
	PathLength        float64     `json:"pathLength"`
	SegmentCount      int         `json:"segmentCount"`
	RoutingType       RoutingType `json:"routingType"`
	Efficiency        float64     `json:"efficiency"`
	HandleCombination string      `json:"handleCombination"`
}

// CalculateRoutingMetrics derives the metrics record for a generated path.
func CalculateRoutingMetrics(path *Path, source, target HandleInfo) Metrics {
	return Metrics{
		PathLength:        path.TotalLength,
		SegmentCount:      len(path.Segments),
		RoutingType:       path.RoutingType,
		Efficiency:        path.Efficiency,
		HandleCombination: fmt.Sprintf("%s:%s -> %s:%s", source.NodeID, source.Side, target.NodeID, target.Side),
	}
}
