package collab

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/orthodraw/orthodraw/backend-go/internal/document"
	"github.com/orthodraw/orthodraw/backend-go/internal/geometry"
	"github.com/orthodraw/orthodraw/backend-go/internal/layout"
	"github.com/orthodraw/orthodraw/backend-go/internal/routing"
)

// DocumentState holds the authoritative document for a room along with the
// routing engine that owns its connector geometry.
type DocumentState struct {
	mu        sync.RWMutex
	doc       *document.Document
	router    *routing.Engine
	serverSeq int64
	opLog     []Operation
}

// NewDocumentState wraps an initial document with a fresh routing engine.
func NewDocumentState(doc *document.Document) *DocumentState {
	return NewDocumentStateWithCacheSize(doc, 0)
}

// NewDocumentStateWithCacheSize bounds the routing cache of the wrapped
// engine. A size of zero or less uses the engine default.
func NewDocumentStateWithCacheSize(doc *document.Document, cacheSize int) *DocumentState {
	router := routing.NewEngine()
	if cacheSize > 0 {
		router = routing.NewEngineWithCacheSize(cacheSize)
	}
	return &DocumentState{
		doc:    doc,
		router: router,
		opLog:  make([]Operation, 0),
	}
}

// GetDocument returns the current document. Callers must not mutate it.
func (ds *DocumentState) GetDocument() *document.Document {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.doc
}

// Snapshot marshals the current document together with the sequence number
// it corresponds to.
func (ds *DocumentState) Snapshot() ([]byte, int64, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	data, err := json.Marshal(ds.doc)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal document: %w", err)
	}
	return data, ds.serverSeq, nil
}

// ApplyOperation applies an operation, reroutes whatever connector geometry
// it invalidated, and returns the new server sequence plus the recomputed
// routes.
func (ds *DocumentState) ApplyOperation(op Operation) (int64, []RouteUpdate, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	routes, err := ds.applyOperationLocked(op)
	if err != nil {
		return 0, nil, err
	}

	ds.serverSeq++
	ds.opLog = append(ds.opLog, op)
	ds.doc.Project.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	return ds.serverSeq, routes, nil
}

func (ds *DocumentState) applyOperationLocked(op Operation) ([]RouteUpdate, error) {
	switch op.Type {
	case OpNodeCreate:
		return ds.applyNodeCreate(op)
	case OpNodeDelete:
		return ds.applyNodeDelete(op)
	case OpNodeMove:
		return ds.applyNodeMove(op)
	case OpNodeResize:
		return ds.applyNodeResize(op)
	case OpNodeStyle:
		return nil, ds.applyNodeStyle(op)
	case OpNodeLabel:
		return nil, ds.applyNodeLabel(op)
	case OpNodeVisibility:
		return nil, ds.applyNodeFlag(op)
	case OpNodeLocked:
		return nil, ds.applyNodeFlag(op)
	case OpConnectorCreate:
		return ds.applyConnectorCreate(op)
	case OpConnectorDelete:
		return nil, ds.applyConnectorDelete(op)
	case OpConnectorDrag:
		return ds.applyConnectorDrag(op)
	case OpConnectorReset:
		return ds.applyConnectorReset(op)
	case OpCanvasUpdate:
		return nil, ds.applyCanvasUpdate(op)
	case OpProjectRename:
		ds.doc.Project.Name = op.Name
		return nil, nil
	case OpLayoutArrange:
		return ds.applyLayoutArrange(op)
	default:
		return nil, fmt.Errorf("unknown operation type: %s", op.Type)
	}
}

// --- Routing integration ---

// obstaclesFor collects visible nodes a connector route must stay clear of.
// The connector's own endpoints sit on the source and target nodes, so those
// two are not obstacles for it.
func (ds *DocumentState) obstaclesFor(conn document.Connector) []routing.NodeInfo {
	ids := make([]string, 0, len(ds.doc.Nodes))
	for id := range ds.doc.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	obstacles := make([]routing.NodeInfo, 0, len(ids))
	for _, id := range ids {
		n := ds.doc.Nodes[id]
		if !n.Visible || id == conn.SourceID || id == conn.TargetID {
			continue
		}
		obstacles = append(obstacles, routing.NodeInfo{ID: n.ID, Bounds: n.Bounds})
	}
	return obstacles
}

// rerouteConnector recomputes a connector route from scratch: optimal handle
// pair, perpendicular-approach path, then a collision pass against the other
// nodes. The result is written back into the document and returned.
func (ds *DocumentState) rerouteConnector(connID string) (*RouteUpdate, error) {
	conn, ok := ds.doc.Connectors[connID]
	if !ok {
		return nil, fmt.Errorf("connector not found: %s", connID)
	}
	src, ok := ds.doc.Nodes[conn.SourceID]
	if !ok {
		return nil, fmt.Errorf("connector %s source not found: %s", connID, conn.SourceID)
	}
	tgt, ok := ds.doc.Nodes[conn.TargetID]
	if !ok {
		return nil, fmt.Errorf("connector %s target not found: %s", connID, conn.TargetID)
	}

	combo, err := routing.FindOptimalHandles(src.RoutingInfo(), tgt.RoutingInfo())
	if err != nil {
		return nil, fmt.Errorf("select handles for %s: %w", connID, err)
	}

	srcBounds := src.Bounds
	tgtBounds := tgt.Bounds
	path := ds.router.CalculatePath(combo.SourceHandle, combo.TargetHandle, &routing.PathOptions{
		PerpendicularApproach: true,
		SourceBounds:          &srcBounds,
		TargetBounds:          &tgtBounds,
	})

	points := routing.ResolveCollisions(path.ControlPoints, ds.obstaclesFor(conn), routing.DefaultCollisionConfig())
	routed := routing.BuildPath(points, path.RoutingType)

	metrics := routing.CalculateRoutingMetrics(&routed, combo.SourceHandle, combo.TargetHandle)

	srcHandle := combo.SourceHandle
	tgtHandle := combo.TargetHandle
	conn.SourceHandle = &srcHandle
	conn.TargetHandle = &tgtHandle
	conn.ControlPoints = interiorPoints(routed.ControlPoints)
	conn.RoutingType = routed.RoutingType
	conn.Metrics = &metrics
	ds.doc.Connectors[connID] = conn

	return &RouteUpdate{
		ConnectorID:   connID,
		SourceHandle:  conn.SourceHandle,
		TargetHandle:  conn.TargetHandle,
		ControlPoints: conn.ControlPoints,
		RoutingType:   conn.RoutingType,
		Metrics:       conn.Metrics,
	}, nil
}

// rerouteTouching reroutes every connector attached to a node, in a stable
// order so concurrent clients observe identical results.
func (ds *DocumentState) rerouteTouching(nodeID string) ([]RouteUpdate, error) {
	ids := make([]string, 0, len(ds.doc.Connectors))
	for id, c := range ds.doc.Connectors {
		if c.SourceID == nodeID || c.TargetID == nodeID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var updates []RouteUpdate
	for _, id := range ids {
		u, err := ds.rerouteConnector(id)
		if err != nil {
			return nil, err
		}
		updates = append(updates, *u)
	}
	return updates, nil
}

// resolveStaleCollisions re-runs the collision pass over every routed
// connector, after node geometry changed somewhere on the document. The
// rerouted connectors in skip are already clean. Only connectors whose
// control points actually move produce an update.
func (ds *DocumentState) resolveStaleCollisions(skip map[string]bool) []RouteUpdate {
	ids := make([]string, 0, len(ds.doc.Connectors))
	for id := range ds.doc.Connectors {
		if !skip[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var updates []RouteUpdate
	for _, id := range ids {
		conn := ds.doc.Connectors[id]
		if conn.SourceHandle == nil || conn.TargetHandle == nil {
			continue
		}

		full := append([]geometry.Point{conn.SourceHandle.Position}, conn.ControlPoints...)
		full = append(full, conn.TargetHandle.Position)
		resolved := routing.ResolveCollisions(full, ds.obstaclesFor(conn), routing.DefaultCollisionConfig())
		if pointsEqual(resolved, full) {
			continue
		}

		routed := routing.BuildPath(resolved, conn.RoutingType)
		metrics := routing.CalculateRoutingMetrics(&routed, *conn.SourceHandle, *conn.TargetHandle)
		conn.ControlPoints = interiorPoints(routed.ControlPoints)
		conn.Metrics = &metrics
		ds.doc.Connectors[id] = conn

		updates = append(updates, RouteUpdate{
			ConnectorID:   id,
			SourceHandle:  conn.SourceHandle,
			TargetHandle:  conn.TargetHandle,
			ControlPoints: conn.ControlPoints,
			RoutingType:   conn.RoutingType,
			Metrics:       conn.Metrics,
		})
	}
	return updates
}

func pointsEqual(a, b []geometry.Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equals(b[i]) {
			return false
		}
	}
	return true
}

// interiorPoints strips the endpoints off a full corner sequence, leaving
// the persistable waypoints.
func interiorPoints(points []geometry.Point) []geometry.Point {
	if len(points) <= 2 {
		return nil
	}
	interior := make([]geometry.Point, len(points)-2)
	copy(interior, points[1:len(points)-1])
	return interior
}

// --- Node operations ---

func (ds *DocumentState) applyNodeCreate(op Operation) ([]RouteUpdate, error) {
	var n document.Node
	if err := json.Unmarshal(op.Node, &n); err != nil {
		return nil, fmt.Errorf("invalid node: %w", err)
	}
	if n.ID == "" {
		return nil, fmt.Errorf("node id is required")
	}

	// Visibility defaults to on; only an explicit false hides the node.
	var vis struct {
		Visible *bool `json:"visible"`
	}
	if err := json.Unmarshal(op.Node, &vis); err == nil && vis.Visible == nil {
		n.Visible = true
	}
	if _, exists := ds.doc.Nodes[n.ID]; exists {
		return nil, fmt.Errorf("node already exists: %s", n.ID)
	}

	canvas, ok := ds.doc.Canvases[op.CanvasID]
	if !ok {
		return nil, fmt.Errorf("canvas not found: %s", op.CanvasID)
	}

	ds.doc.Nodes[n.ID] = n
	canvas.Nodes = append(canvas.Nodes, n.ID)
	ds.doc.Canvases[op.CanvasID] = canvas
	return nil, nil
}

func (ds *DocumentState) applyNodeDelete(op Operation) ([]RouteUpdate, error) {
	if _, ok := ds.doc.Nodes[op.NodeID]; !ok {
		return nil, fmt.Errorf("node not found: %s", op.NodeID)
	}

	// Connectors attached to the node go with it.
	var orphaned []string
	for id, c := range ds.doc.Connectors {
		if c.SourceID == op.NodeID || c.TargetID == op.NodeID {
			orphaned = append(orphaned, id)
		}
	}
	for _, id := range orphaned {
		delete(ds.doc.Connectors, id)
	}
	delete(ds.doc.Nodes, op.NodeID)

	for cid, canvas := range ds.doc.Canvases {
		canvas.Nodes = removeID(canvas.Nodes, op.NodeID)
		for _, id := range orphaned {
			canvas.Connectors = removeID(canvas.Connectors, id)
		}
		ds.doc.Canvases[cid] = canvas
	}
	return nil, nil
}

func (ds *DocumentState) applyNodeMove(op Operation) ([]RouteUpdate, error) {
	n, ok := ds.doc.Nodes[op.NodeID]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", op.NodeID)
	}
	if n.Locked {
		return nil, fmt.Errorf("node is locked: %s", op.NodeID)
	}
	if op.Position == nil {
		return nil, fmt.Errorf("node.move requires a position")
	}

	n.Bounds.X = op.Position.X
	n.Bounds.Y = op.Position.Y
	ds.doc.Nodes[op.NodeID] = n

	return ds.rerouteAfterNodeChange(op.NodeID)
}

// rerouteAfterNodeChange reroutes the connectors attached to a changed node
/// and then resolves collisions on every other routed connector: the node may
// have landed on paths it is not part of.
func (ds *DocumentState) rerouteAfterNodeChange(nodeID string) ([]RouteUpdate, error) {
	updates, err := ds.rerouteTouching(nodeID)
	if err != nil {
		return nil, err
	}
	skip := make(map[string]bool, len(updates))
	for _, u := range updates {
		skip[u.ConnectorID] = true
	}
	return append(updates, ds.resolveStaleCollisions(skip)...), nil
}

func (ds *DocumentState) applyNodeResize(op Operation) ([]RouteUpdate, error) {
	n, ok := ds.doc.Nodes[op.NodeID]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", op.NodeID)
	}
	if n.Locked {
		return nil, fmt.Errorf("node is locked: %s", op.NodeID)
	}
	if op.Bounds == nil {
		return nil, fmt.Errorf("node.resize requires bounds")
	}
	if op.Bounds.Width <= 0 || op.Bounds.Height <= 0 {
		return nil, fmt.Errorf("node bounds must have positive size")
	}

	n.Bounds = *op.Bounds
	ds.doc.Nodes[op.NodeID] = n

	return ds.rerouteAfterNodeChange(op.NodeID)
}

func (ds *DocumentState) applyNodeStyle(op Operation) error {
	n, ok := ds.doc.Nodes[op.NodeID]
	if !ok {
		return fmt.Errorf("node not found: %s", op.NodeID)
	}

	var changes map[string]interface{}
	if err := json.Unmarshal(op.Style, &changes); err != nil {
		return fmt.Errorf("invalid style: %w", err)
	}

	if v, ok := changes["fill"].(string); ok {
		n.Style.Fill = v
	}
	if v, ok := changes["stroke"].(string); ok {
		n.Style.Stroke = v
	}
	if v, ok := changes["strokeWidth"].(float64); ok {
		n.Style.StrokeWidth = v
	}
	if v, ok := changes["opacity"].(float64); ok {
		n.Style.Opacity = v
	}

	ds.doc.Nodes[op.NodeID] = n
	return nil
}

func (ds *DocumentState) applyNodeLabel(op Operation) error {
	n, ok := ds.doc.Nodes[op.NodeID]
	if !ok {
		return fmt.Errorf("node not found: %s", op.NodeID)
	}
	if op.Label == nil {
		return fmt.Errorf("node.label requires a label")
	}
	n.Label = *op.Label
	ds.doc.Nodes[op.NodeID] = n
	return nil
}

func (ds *DocumentState) applyNodeFlag(op Operation) error {
	n, ok := ds.doc.Nodes[op.NodeID]
	if !ok {
		return fmt.Errorf("node not found: %s", op.NodeID)
	}
	if op.Visible != nil {
		n.Visible = *op.Visible
	}
	if op.Locked != nil {
		n.Locked = *op.Locked
	}
	ds.doc.Nodes[op.NodeID] = n
	return nil
}

// --- Connector operations ---

func (ds *DocumentState) applyConnectorCreate(op Operation) ([]RouteUpdate, error) {
	var c document.Connector
	if err := json.Unmarshal(op.Connector, &c); err != nil {
		return nil, fmt.Errorf("invalid connector: %w", err)
	}
	if c.ID == "" {
		return nil, fmt.Errorf("connector id is required")
	}
	if _, exists := ds.doc.Connectors[c.ID]; exists {
		return nil, fmt.Errorf("connector already exists: %s", c.ID)
	}
	if _, ok := ds.doc.Nodes[c.SourceID]; !ok {
		return nil, fmt.Errorf("source node not found: %s", c.SourceID)
	}
	if _, ok := ds.doc.Nodes[c.TargetID]; !ok {
		return nil, fmt.Errorf("target node not found: %s", c.TargetID)
	}

	canvas, ok := ds.doc.Canvases[op.CanvasID]
	if !ok {
		return nil, fmt.Errorf("canvas not found: %s", op.CanvasID)
	}

	// Client-supplied routes are ignored; the server routes every new
	// connector itself.
	c.SourceHandle = nil
	c.TargetHandle = nil
	c.ControlPoints = nil
	c.Metrics = nil

	ds.doc.Connectors[c.ID] = c
	canvas.Connectors = append(canvas.Connectors, c.ID)
	ds.doc.Canvases[op.CanvasID] = canvas

	u, err := ds.rerouteConnector(c.ID)
	if err != nil {
		return nil, err
	}
	return []RouteUpdate{*u}, nil
}

func (ds *DocumentState) applyConnectorDelete(op Operation) error {
	if _, ok := ds.doc.Connectors[op.ConnectorID]; !ok {
		return fmt.Errorf("connector not found: %s", op.ConnectorID)
	}
	delete(ds.doc.Connectors, op.ConnectorID)
	for cid, canvas := range ds.doc.Canvases {
		canvas.Connectors = removeID(canvas.Connectors, op.ConnectorID)
		ds.doc.Canvases[cid] = canvas
	}
	return nil
}

func (ds *DocumentState) applyConnectorDrag(op Operation) ([]RouteUpdate, error) {
	conn, ok := ds.doc.Connectors[op.ConnectorID]
	if !ok {
		return nil, fmt.Errorf("connector not found: %s", op.ConnectorID)
	}
	if op.SegmentIndex == nil || op.Midpoint == nil {
		return nil, fmt.Errorf("connector.drag requires segmentIndex and midpoint")
	}

	// A connector that has never been routed has nothing to drag yet.
	if conn.SourceHandle == nil || conn.TargetHandle == nil {
		if _, err := ds.rerouteConnector(op.ConnectorID); err != nil {
			return nil, err
		}
		conn = ds.doc.Connectors[op.ConnectorID]
	}

	src := conn.SourceHandle.Position
	tgt := conn.TargetHandle.Position
	idx := *op.SegmentIndex
	mid := *op.Midpoint

	var interior []geometry.Point
	impact := routing.AnalyzeConnectionImpact(idx, mid, conn.ControlPoints, src, tgt)
	if impact.WouldDisconnect {
		// Endpoint segments stay glued to their handles; bridge waypoints
		// absorb the drag instead.
		result := routing.InsertPreservationWaypoints(idx, mid, conn.ControlPoints, src, tgt)
		interior = result.NewControlPoints
	} else {
		full := append([]geometry.Point{src}, conn.ControlPoints...)
		full = append(full, tgt)
		moved, changed := dragSegment(full, idx, mid)
		if !changed {
			return []RouteUpdate{{
				ConnectorID:   op.ConnectorID,
				SourceHandle:  conn.SourceHandle,
				TargetHandle:  conn.TargetHandle,
				ControlPoints: conn.ControlPoints,
				RoutingType:   conn.RoutingType,
				Metrics:       conn.Metrics,
			}}, nil
		}
		interior = interiorPoints(moved)
	}

	// Rebuild the path so collinear leftovers merge and any corner the drag
	// created gets a proper segment.
	full := append([]geometry.Point{src}, interior...)
	full = append(full, tgt)
	routed := routing.BuildPath(full, conn.RoutingType)
	cleaned := routing.CleanupWaypoints(interiorPoints(routed.ControlPoints), src, tgt)

	full = append(append([]geometry.Point{src}, cleaned...), tgt)
	routed = routing.BuildPath(full, conn.RoutingType)
	metrics := routing.CalculateRoutingMetrics(&routed, *conn.SourceHandle, *conn.TargetHandle)

	conn.ControlPoints = cleaned
	conn.Metrics = &metrics
	ds.doc.Connectors[op.ConnectorID] = conn

	return []RouteUpdate{{
		ConnectorID:   op.ConnectorID,
		SourceHandle:  conn.SourceHandle,
		TargetHandle:  conn.TargetHandle,
		ControlPoints: conn.ControlPoints,
		RoutingType:   conn.RoutingType,
		Metrics:       conn.Metrics,
	}}, nil
}

// dragSegment slides an interior segment perpendicular to its direction so
// its midpoint lands on the requested point. Out-of-range indices and
// sub-pixel drags leave the path untouched.
func dragSegment(full []geometry.Point, idx int, mid geometry.Point) ([]geometry.Point, bool) {
	if idx <= 0 || idx >= len(full)-2 {
		return full, false
	}
	a, b := full[idx], full[idx+1]
	horizontal := math.Abs(b.X-a.X) >= math.Abs(b.Y-a.Y)

	out := make([]geometry.Point, len(full))
	copy(out, full)
	if horizontal {
		if math.Abs(mid.Y-a.Y) < 0.1 {
			return full, false
		}
		out[idx].Y, out[idx+1].Y = mid.Y, mid.Y
	} else {
		if math.Abs(mid.X-a.X) < 0.1 {
			return full, false
		}
		out[idx].X, out[idx+1].X = mid.X, mid.X
	}
	return out, true
}

func (ds *DocumentState) applyConnectorReset(op Operation) ([]RouteUpdate, error) {
	conn, ok := ds.doc.Connectors[op.ConnectorID]
	if !ok {
		return nil, fmt.Errorf("connector not found: %s", op.ConnectorID)
	}

	conn.SourceHandle = nil
	conn.TargetHandle = nil
	conn.ControlPoints = nil
	conn.Metrics = nil
	ds.doc.Connectors[op.ConnectorID] = conn

	u, err := ds.rerouteConnector(op.ConnectorID)
	if err != nil {
		return nil, err
	}
	return []RouteUpdate{*u}, nil
}

// --- Canvas and project operations ---

func (ds *DocumentState) applyCanvasUpdate(op Operation) error {
	canvas, ok := ds.doc.Canvases[op.CanvasID]
	if !ok {
		return fmt.Errorf("canvas not found: %s", op.CanvasID)
	}

	var changes map[string]interface{}
	if err := json.Unmarshal(op.Changes, &changes); err != nil {
		return fmt.Errorf("invalid canvas changes: %w", err)
	}

	if v, ok := changes["name"].(string); ok {
		canvas.Name = v
	}
	if v, ok := changes["width"].(float64); ok {
		canvas.Width = int(v)
	}
	if v, ok := changes["height"].(float64); ok {
		canvas.Height = int(v)
	}
	if v, ok := changes["background"].(string); ok {
		canvas.Background = v
	}
	if v, ok := changes["gridSize"].(float64); ok {
		canvas.GridSize = int(v)
	}

	ds.doc.Canvases[op.CanvasID] = canvas
	return nil
}

func (ds *DocumentState) applyLayoutArrange(op Operation) ([]RouteUpdate, error) {
	if _, ok := ds.doc.Canvases[op.CanvasID]; !ok {
		return nil, fmt.Errorf("canvas not found: %s", op.CanvasID)
	}

	if _, err := layout.Arrange(ds.doc, op.CanvasID); err != nil {
		return nil, fmt.Errorf("arrange canvas: %w", err)
	}

	// Every connector on the canvas may have moved.
	canvas := ds.doc.Canvases[op.CanvasID]
	ids := append([]string(nil), canvas.Connectors...)
	sort.Strings(ids)

	var updates []RouteUpdate
	for _, id := range ids {
		u, err := ds.rerouteConnector(id)
		if err != nil {
			return nil, err
		}
		updates = append(updates, *u)
	}
	return updates, nil
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// GetServerTimestamp returns the current server timestamp
func GetServerTimestamp() int64 {
	return time.Now().UnixMilli()
}
