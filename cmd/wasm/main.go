//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/orthodraw/orthodraw/backend-go/internal/document"
	"github.com/orthodraw/orthodraw/backend-go/internal/geometry"
	"github.com/orthodraw/orthodraw/backend-go/internal/routing"
)

var (
	router *routing.Engine
	doc    *document.Document
)

func main() {
	router = routing.NewEngine()

	api := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	api.Set("loadDocument", js.FuncOf(loadDocument))
	api.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	api.Set("clearRouteCache", js.FuncOf(clearRouteCache))

	// --- Queries (frontend ← backend) ---
	api.Set("getDocument", js.FuncOf(getDocument))
	api.Set("calculatePath", js.FuncOf(calculatePath))
	api.Set("routeConnector", js.FuncOf(routeConnector))
	api.Set("findOptimalHandles", js.FuncOf(findOptimalHandles))
	api.Set("findOptimalHandlesForPosition", js.FuncOf(findOptimalHandlesForPosition))
	api.Set("analyzeConnectionImpact", js.FuncOf(analyzeConnectionImpact))
	api.Set("insertPreservationWaypoints", js.FuncOf(insertPreservationWaypoints))
	api.Set("simplifyWaypoints", js.FuncOf(simplifyWaypoints))
	api.Set("cleanupWaypoints", js.FuncOf(cleanupWaypoints))
	api.Set("resolveCollisions", js.FuncOf(resolveCollisions))
	api.Set("cacheStats", js.FuncOf(cacheStats))

	// Register on global scope
	js.Global().Set("orthodrawEngine", api)

	// Signal that WASM is ready
	js.Global().Set("orthodrawWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func errResult(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": msg})
}

func jsonResult(v interface{}) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return errResult(err.Error())
	}
	return js.ValueOf(string(data))
}

// --- Command Handlers ---

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errResult("missing document JSON")
	}

	var d document.Document
	if err := json.Unmarshal([]byte(args[0].String()), &d); err != nil {
		return errResult(err.Error())
	}
	doc = &d
	router.ClearCache()

	return js.ValueOf(map[string]interface{}{"ok": true})
}

func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	projectID := "proj_sample"
	if len(args) > 0 && args[0].Type() == js.TypeString {
		projectID = args[0].String()
	}

	doc = document.NewSampleDocument(projectID)
	router.ClearCache()
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func clearRouteCache(this js.Value, args []js.Value) interface{} {
	router.ClearCache()
	return nil
}

// --- Query Handlers ---

func getDocument(this js.Value, args []js.Value) interface{} {
	if doc == nil {
		return errResult("no document loaded")
	}
	return jsonResult(doc)
}

// calculatePath(sourceHandleJSON, targetHandleJSON[, optionsJSON])
func calculatePath(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errResult("missing handles")
	}

	var source, target routing.HandleInfo
	if err := json.Unmarshal([]byte(args[0].String()), &source); err != nil {
		return errResult("invalid source handle: " + err.Error())
	}
	if err := json.Unmarshal([]byte(args[1].String()), &target); err != nil {
		return errResult("invalid target handle: " + err.Error())
	}

	var opts *routing.PathOptions
	if len(args) > 2 && args[2].Type() == js.TypeString {
		opts = &routing.PathOptions{}
		if err := json.Unmarshal([]byte(args[2].String()), opts); err != nil {
			return errResult("invalid options: " + err.Error())
		}
	}

	return jsonResult(router.CalculatePath(source, target, opts))
}

// routeConnector(connectorID) routes a connector of the loaded document.
func routeConnector(this js.Value, args []js.Value) interface{} {
	if doc == nil {
		return errResult("no document loaded")
	}
	if len(args) < 1 {
		return errResult("missing connector id")
	}

	conn, ok := doc.Connectors[args[0].String()]
	if !ok {
		return errResult("connector not found")
	}
	src, ok := doc.Nodes[conn.SourceID]
	if !ok {
		return errResult("source node not found")
	}
	tgt, ok := doc.Nodes[conn.TargetID]
	if !ok {
		return errResult("target node not found")
	}

	combo, err := routing.FindOptimalHandles(src.RoutingInfo(), tgt.RoutingInfo())
	if err != nil {
		return errResult(err.Error())
	}

	srcBounds := src.Bounds
	tgtBounds := tgt.Bounds
	path := router.CalculatePath(combo.SourceHandle, combo.TargetHandle, &routing.PathOptions{
		PerpendicularApproach: true,
		SourceBounds:          &srcBounds,
		TargetBounds:          &tgtBounds,
	})

	metrics := routing.CalculateRoutingMetrics(path, combo.SourceHandle, combo.TargetHandle)
	return jsonResult(map[string]interface{}{
		"sourceHandle": combo.SourceHandle,
		"targetHandle": combo.TargetHandle,
		"path":         path,
		"metrics":      metrics,
	})
}

// findOptimalHandles(sourceNodeID, targetNodeID)
func findOptimalHandles(this js.Value, args []js.Value) interface{} {
	if doc == nil {
		return errResult("no document loaded")
	}
	if len(args) < 2 {
		return errResult("missing node ids")
	}

	src, ok := doc.Nodes[args[0].String()]
	if !ok {
		return errResult("source node not found")
	}
	tgt, ok := doc.Nodes[args[1].String()]
	if !ok {
		return errResult("target node not found")
	}

	combo, err := routing.FindOptimalHandles(src.RoutingInfo(), tgt.RoutingInfo())
	if err != nil {
		return errResult(err.Error())
	}
	return jsonResult(combo)
}

// findOptimalHandlesForPosition(nodeID, x, y)
func findOptimalHandlesForPosition(this js.Value, args []js.Value) interface{} {
	if doc == nil {
		return errResult("no document loaded")
	}
	if len(args) < 3 {
		return errResult("missing node id or position")
	}

	n, ok := doc.Nodes[args[0].String()]
	if !ok {
		return errResult("node not found")
	}

	p := geometry.Point{X: args[1].Float(), Y: args[2].Float()}
	handle := routing.FindOptimalHandlesForPosition(n.RoutingInfo(), p)
	if handle == nil {
		return js.ValueOf(nil)
	}
	return jsonResult(handle)
}

type dragArgs struct {
	SegmentIndex  int              `json:"segmentIndex"`
	Midpoint      geometry.Point   `json:"midpoint"`
	ControlPoints []geometry.Point `json:"controlPoints"`
	Source        geometry.Point   `json:"source"`
	Target        geometry.Point   `json:"target"`
}

func parseDragArgs(args []js.Value) (*dragArgs, interface{}) {
	if len(args) < 1 {
		return nil, errResult("missing drag arguments")
	}
	var d dragArgs
	if err := json.Unmarshal([]byte(args[0].String()), &d); err != nil {
		return nil, errResult("invalid drag arguments: " + err.Error())
	}
	return &d, nil
}

func analyzeConnectionImpact(this js.Value, args []js.Value) interface{} {
	d, errv := parseDragArgs(args)
	if errv != nil {
		return errv
	}
	return jsonResult(routing.AnalyzeConnectionImpact(d.SegmentIndex, d.Midpoint, d.ControlPoints, d.Source, d.Target))
}

func insertPreservationWaypoints(this js.Value, args []js.Value) interface{} {
	d, errv := parseDragArgs(args)
	if errv != nil {
		return errv
	}
	return jsonResult(routing.InsertPreservationWaypoints(d.SegmentIndex, d.Midpoint, d.ControlPoints, d.Source, d.Target))
}

// simplifyWaypoints(pointsJSON, tolerance)
func simplifyWaypoints(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errResult("missing points or tolerance")
	}
	var points []geometry.Point
	if err := json.Unmarshal([]byte(args[0].String()), &points); err != nil {
		return errResult("invalid points: " + err.Error())
	}
	return jsonResult(routing.SimplifyWaypoints(points, args[1].Float()))
}

func cleanupWaypoints(this js.Value, args []js.Value) interface{} {
	d, errv := parseDragArgs(args)
	if errv != nil {
		return errv
	}
	return jsonResult(routing.CleanupWaypoints(d.ControlPoints, d.Source, d.Target))
}

// resolveCollisions(pointsJSON, nodesJSON)
func resolveCollisions(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errResult("missing points or nodes")
	}
	var points []geometry.Point
	if err := json.Unmarshal([]byte(args[0].String()), &points); err != nil {
		return errResult("invalid points: " + err.Error())
	}
	var nodes []routing.NodeInfo
	if err := json.Unmarshal([]byte(args[1].String()), &nodes); err != nil {
		return errResult("invalid nodes: " + err.Error())
	}
	return jsonResult(routing.ResolveCollisions(points, nodes, routing.DefaultCollisionConfig()))
}

func cacheStats(this js.Value, args []js.Value) interface{} {
	hits, misses, size := router.CacheStats()
	return js.ValueOf(map[string]interface{}{
		"hits":   hits,
		"misses": misses,
		"size":   size,
	})
}
