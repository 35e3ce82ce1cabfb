package collab

import (
	"encoding/json"

	"github.com/orthodraw/orthodraw/backend-go/internal/geometry"
	"github.com/orthodraw/orthodraw/backend-go/internal/routing"
)

type Message struct {
	Type      string          `json:"type"`
	ProjectID string          `json:"projectId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type PresencePayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"`
	Selection   []string   `json:"selection,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Document sync
	TypeDocSync = "doc.sync"

	// Operation message types
	TypeOpSubmit    = "op.submit"
	TypeOpAck       = "op.ack"
	TypeOpNack      = "op.nack"
	TypeOpBroadcast = "op.broadcast"
)

// --- Operation Types ---

const (
	OpNodeCreate     = "node.create"
	OpNodeDelete     = "node.delete"
	OpNodeMove       = "node.move"
	OpNodeResize     = "node.resize"
	OpNodeStyle      = "node.style"
	OpNodeLabel      = "node.label"
	OpNodeVisibility = "node.visibility"
	OpNodeLocked     = "node.locked"

	OpConnectorCreate = "connector.create"
	OpConnectorDelete = "connector.delete"
	OpConnectorDrag   = "connector.drag"
	OpConnectorReset  = "connector.reset"

	OpCanvasUpdate  = "canvas.update"
	OpProjectRename = "project.rename"
	OpLayoutArrange = "layout.arrange"
)

// Operation represents a single document mutation. Only the fields that
// the operation type uses are populated.
type Operation struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	ClientSeq int64  `json:"clientSeq"`

	NodeID      string `json:"nodeId,omitempty"`
	ConnectorID string `json:"connectorId,omitempty"`
	CanvasID    string `json:"canvasId,omitempty"`

	// For node.create / connector.create
	Node      json.RawMessage `json:"node,omitempty"`
	Connector json.RawMessage `json:"connector,omitempty"`

	// For node.move / node.resize
	Position *geometry.Point `json:"position,omitempty"`
	Bounds   *geometry.Rect  `json:"bounds,omitempty"`

	// For node.style / canvas.update
	Style   json.RawMessage `json:"style,omitempty"`
	Changes json.RawMessage `json:"changes,omitempty"`

	// For node.label
	Label *string `json:"label,omitempty"`

	// For connector.drag: the index of the dragged segment along the full
	// path (endpoints included) and the dragged midpoint position.
	SegmentIndex *int            `json:"segmentIndex,omitempty"`
	Midpoint     *geometry.Point `json:"midpoint,omitempty"`

	// For node.visibility / node.locked
	Visible *bool `json:"visible,omitempty"`
	Locked  *bool `json:"locked,omitempty"`

	// For project.rename
	Name string `json:"name,omitempty"`
}

// RouteUpdate carries a recomputed connector route to clients. The server
// owns routing, so every operation that moves geometry is answered with the
// routes it invalidated.
type RouteUpdate struct {
	ConnectorID   string              `json:"connectorId"`
	SourceHandle  *routing.HandleInfo `json:"sourceHandle,omitempty"`
	TargetHandle  *routing.HandleInfo `json:"targetHandle,omitempty"`
	ControlPoints []geometry.Point    `json:"controlPoints"`
	RoutingType   routing.RoutingType `json:"routingType"`
	Metrics       *routing.Metrics    `json:"metrics,omitempty"`
}

// OperationSubmitPayload is the payload for op.submit messages
type OperationSubmitPayload struct {
	Operation Operation `json:"operation"`
}

// OperationAckPayload is the payload for op.ack messages
type OperationAckPayload struct {
	OperationID     string        `json:"operationId"`
	ServerSeq       int64         `json:"serverSeq"`
	ServerTimestamp int64         `json:"serverTimestamp"`
	Routes          []RouteUpdate `json:"routes,omitempty"`
}

// OperationNackPayload is the payload for op.nack messages
type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}

// OperationBroadcastPayload is the payload for op.broadcast messages
type OperationBroadcastPayload struct {
	Operation Operation     `json:"operation"`
	UserID    string        `json:"userId"`
	ServerSeq int64         `json:"serverSeq"`
	Routes    []RouteUpdate `json:"routes,omitempty"`
}

// DocSyncPayload carries the full document to a newly joined client.
type DocSyncPayload struct {
	Document json.RawMessage `json:"document"`
	Seq      int64           `json:"seq"`
}
