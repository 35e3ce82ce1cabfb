package document

import (
	"time"

	"github.com/orthodraw/orthodraw/backend-go/internal/geometry"
	"github.com/orthodraw/orthodraw/backend-go/internal/typeid"
)

// NewSampleDocument builds a small flowchart used by the playground and by
// fresh WASM sessions: a start node, a decision, and two outcomes.
func NewSampleDocument(projectID string) *Document {
	now := time.Now().UTC().Format(time.RFC3339)

	canvasID := typeid.NewCanvasID()
	startID := typeid.NewNodeID()
	decisionID := typeid.NewNodeID()
	yesID := typeid.NewNodeID()
	noID := typeid.NewNodeID()

	connStartDecision := typeid.NewConnectorID()
	connDecisionYes := typeid.NewConnectorID()
	connDecisionNo := typeid.NewConnectorID()

	nodeStyle := Style{Fill: "#e8f0fe", Stroke: "#1a73e8", StrokeWidth: 2, Opacity: 1}
	edgeStyle := Style{Stroke: "#5f6368", StrokeWidth: 2, Opacity: 1}

	return &Document{
		Project: Project{
			ID:        projectID,
			Name:      "Untitled",
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
			Canvases:  []string{canvasID},
		},
		Canvases: map[string]Canvas{
			canvasID: {
				ID:         canvasID,
				Name:       "Canvas 1",
				Width:      1920,
				Height:     1080,
				Background: "#fafafa",
				GridSize:   20,
				Nodes:      []string{startID, decisionID, yesID, noID},
				Connectors: []string{connStartDecision, connDecisionYes, connDecisionNo},
			},
		},
		Nodes: map[string]Node{
			startID: {
				ID:      startID,
				Type:    NodeTypeEllipse,
				Bounds:  geometry.Rect{X: 120, Y: 120, Width: 160, Height: 80},
				Label:   "Start",
				Style:   nodeStyle,
				Visible: true,
			},
			decisionID: {
				ID:      decisionID,
				Type:    NodeTypeDiamond,
				Bounds:  geometry.Rect{X: 420, Y: 100, Width: 180, Height: 120},
				Label:   "Valid?",
				Style:   nodeStyle,
				Visible: true,
			},
			yesID: {
				ID:      yesID,
				Type:    NodeTypeRect,
				Bounds:  geometry.Rect{X: 760, Y: 60, Width: 160, Height: 80},
				Label:   "Accept",
				Style:   nodeStyle,
				Visible: true,
			},
			noID: {
				ID:      noID,
				Type:    NodeTypeRect,
				Bounds:  geometry.Rect{X: 760, Y: 260, Width: 160, Height: 80},
				Label:   "Reject",
				Style:   nodeStyle,
				Visible: true,
			},
		},
		Connectors: map[string]Connector{
			connStartDecision: {
				ID:       connStartDecision,
				SourceID: startID,
				TargetID: decisionID,
				Style:    edgeStyle,
			},
			connDecisionYes: {
				ID:       connDecisionYes,
				SourceID: decisionID,
				TargetID: yesID,
				Label:    "yes",
				Style:    edgeStyle,
			},
			connDecisionNo: {
				ID:       connDecisionNo,
				SourceID: decisionID,
				TargetID: noID,
				Label:    "no",
				Style:    edgeStyle,
			},
		},
		Assets: map[string]Asset{},
	}
}
