package document

import (
	"encoding/json"
	"fmt"

	"github.com/orthodraw/orthodraw/backend-go/internal/geometry"
	"github.com/orthodraw/orthodraw/backend-go/internal/routing"
)

// Document is the full persisted state of a diagram project. Nodes and
// connectors are stored flat and referenced by ID from their canvas.
type Document struct {
	Project    Project              `json:"project"`
	Canvases   map[string]Canvas    `json:"canvases"`
	Nodes      map[string]Node      `json:"nodes"`
	Connectors map[string]Connector `json:"connectors"`
	Assets     map[string]Asset     `json:"assets"`
}

type Project struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Version   int      `json:"version"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
	Canvases  []string `json:"canvases"`
}

type Canvas struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	Background string   `json:"background"`
	GridSize   int      `json:"gridSize"`
	Nodes      []string `json:"nodes"`
	Connectors []string `json:"connectors"`
}

type NodeType string

const (
	NodeTypeRect    NodeType = "rect"
	NodeTypeEllipse NodeType = "ellipse"
	NodeTypeDiamond NodeType = "diamond"
	NodeTypeText    NodeType = "text"
)

type Style struct {
	Fill        string  `json:"fill"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
	Opacity     float64 `json:"opacity"`
}

type Node struct {
	ID      string          `json:"id"`
	Type    NodeType        `json:"type"`
	Bounds  geometry.Rect   `json:"bounds"`
	Label   string          `json:"label"`
	Style   Style           `json:"style"`
	Visible bool            `json:"visible"`
	Locked  bool            `json:"locked"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Connector joins two nodes. The routing fields are a persisted cache of the
// last computed route; any or all of them may be absent, in which case the
// route is recomputed from the node geometry on demand.
type Connector struct {
	ID       string `json:"id"`
	SourceID string `json:"sourceId"`
	TargetID string `json:"targetId"`
	Label    string `json:"label,omitempty"`
	Style    Style  `json:"style"`

	SourceHandle  *routing.HandleInfo `json:"sourceHandle,omitempty"`
	TargetHandle  *routing.HandleInfo `json:"targetHandle,omitempty"`
	ControlPoints []geometry.Point    `json:"controlPoints,omitempty"`
	RoutingType   routing.RoutingType `json:"routingType,omitempty"`
	Metrics       *routing.Metrics    `json:"metrics,omitempty"`
}

type Asset struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Name string          `json:"name"`
	URL  string          `json:"url"`
	Meta json.RawMessage `json:"meta,omitempty"`
}

// Handle placement along each side, as a fraction of the side's length.
// Source and target handles are offset from each other so that a
// connector from a node to itself never collapses to a point.
const (
	sourceHandleT = 2.0 / 3.0
	targetHandleT = 1.0 / 3.0
)

var sides = [4]routing.Side{routing.SideTop, routing.SideRight, routing.SideBottom, routing.SideLeft}

// HandleID names the fixed handle for a node side and role.
func HandleID(nodeID string, side routing.Side, role routing.HandleRole) string {
	return fmt.Sprintf("%s:%s:%s", nodeID, side, role)
}

// HandlePosition returns the point at parameter t (0..1) along a node side,
// measured left to right for horizontal sides and top to bottom for
// vertical ones.
func HandlePosition(bounds geometry.Rect, side routing.Side, t float64) geometry.Point {
	switch side {
	case routing.SideTop:
		return geometry.Point{X: bounds.X + bounds.Width*t, Y: bounds.Y}
	case routing.SideBottom:
		return geometry.Point{X: bounds.X + bounds.Width*t, Y: bounds.Y + bounds.Height}
	case routing.SideLeft:
		return geometry.Point{X: bounds.X, Y: bounds.Y + bounds.Height*t}
	default:
		return geometry.Point{X: bounds.X + bounds.Width, Y: bounds.Y + bounds.Height*t}
	}
}

// Handles returns the eight fixed connection handles of a node, one source
// and one target handle per side.
func (n Node) Handles() []routing.HandleInfo {
	handles := make([]routing.HandleInfo, 0, 8)
	for _, side := range sides {
		handles = append(handles,
			routing.HandleInfo{
				ID:       HandleID(n.ID, side, routing.RoleSource),
				NodeID:   n.ID,
				Position: HandlePosition(n.Bounds, side, sourceHandleT),
				Side:     side,
				Role:     routing.RoleSource,
			},
			routing.HandleInfo{
				ID:       HandleID(n.ID, side, routing.RoleTarget),
				NodeID:   n.ID,
				Position: HandlePosition(n.Bounds, side, targetHandleT),
				Side:     side,
				Role:     routing.RoleTarget,
			},
		)
	}
	return handles
}

// RoutingInfo converts a node into the shape the routing engine consumes.
func (n Node) RoutingInfo() routing.NodeInfo {
	return routing.NodeInfo{
		ID:      n.ID,
		Bounds:  n.Bounds,
		Handles: n.Handles(),
	}
}

// NewEmptyDocument creates a document with a single blank canvas.
// Timestamps are left empty for the caller to fill in.
func NewEmptyDocument(projectID, projectName, canvasID string) *Document {
	return &Document{
		Project: Project{
			ID:       projectID,
			Name:     projectName,
			Version:  1,
			Canvases: []string{canvasID},
		},
		Canvases: map[string]Canvas{
			canvasID: {
				ID:         canvasID,
				Name:       "Canvas 1",
				Width:      1920,
				Height:     1080,
				Background: "#fafafa",
				GridSize:   20,
				Nodes:      []string{},
				Connectors: []string{},
			},
		},
		Nodes:      map[string]Node{},
		Connectors: map[string]Connector{},
		Assets:     map[string]Asset{},
	}
}
