package routing

import (
	"errors"
	"math"
	"sort"

	"github.com/orthodraw/orthodraw/backend-go/internal/geometry"
)

// ErrNoValidHandles is returned when handle selection is asked to connect
// two nodes and at least one of them exposes no handle of the required role.
// The caller must skip the connector or fall back to a straight line.
var ErrNoValidHandles = errors.New("no valid handle combination")

// handlesByRole filters a node's handles to those playing the given role.
func handlesByRole(node NodeInfo, role HandleRole) []HandleInfo {
	var out []HandleInfo
	for _, h := range node.Handles {
		if h.Role == role {
			out = append(out, h)
		}
	}
	return out
}

// preferredRoutingFor picks the routing order a handle pair naturally wants:
// horizontal-first when the pair is wider than tall, vertical-first when
// taller than wide. Exact ties are decided by handle orientation: two
// left/right handles prefer horizontal, two top/bottom handles vertical,
// and mixed orientations default to horizontal.
func preferredRoutingFor(source, target HandleInfo) RoutingType {
	dx := math.Abs(target.Position.X - source.Position.X)
	dy := math.Abs(target.Position.Y - source.Position.Y)
	switch {
	case dx > dy:
		return RouteHorizontalFirst
	case dy > dx:
		return RouteVerticalFirst
	}

	if source.Side.EntryDirection() == geometry.Vertical && target.Side.EntryDirection() == geometry.Vertical {
		return RouteVerticalFirst
	}
	return RouteHorizontalFirst
}

// scoreCombination builds the scored candidate for a handle pair.
func scoreCombination(source, target HandleInfo) HandleCombination {
	dist := geometry.Manhattan(source.Position, target.Position)
	return HandleCombination{
		SourceHandle:      source,
		TargetHandle:      target,
		ManhattanDistance: dist,
		PathLength:        dist,
		Efficiency:        geometry.Efficiency(source.Position, target.Position),
		RoutingType:       preferredRoutingFor(source, target),
	}
}

// lessCombination orders candidates ascending by Manhattan distance, then
// efficiency, then routing-type preference (horizontal-first wins), then the
// fixed side order applied to the source side and finally the target side.
func lessCombination(a, b HandleCombination) bool {
	if a.ManhattanDistance != b.ManhattanDistance {
		return a.ManhattanDistance < b.ManhattanDistance
	}
	if a.Efficiency != b.Efficiency {
		return a.Efficiency < b.Efficiency
	}
	if a.RoutingType != b.RoutingType {
		return a.RoutingType == RouteHorizontalFirst
	}
	if a.SourceHandle.Side != b.SourceHandle.Side {
		return a.SourceHandle.Side.rank() < b.SourceHandle.Side.rank()
	}
	return a.TargetHandle.Side.rank() < b.TargetHandle.Side.rank()
}

// FindOptimalHandles enumerates every (source handle, target handle) pair
// between the two nodes, scores them, and returns the best candidate under
// the deterministic ordering. It fails with ErrNoValidHandles when either
// node has no handle of the required role.
func FindOptimalHandles(sourceNode, targetNode NodeInfo) (HandleCombination, error) {
	sources := handlesByRole(sourceNode, RoleSource)
	targets := handlesByRole(targetNode, RoleTarget)
	if len(sources) == 0 || len(targets) == 0 {
		return HandleCombination{}, ErrNoValidHandles
	}

	combos := make([]HandleCombination, 0, len(sources)*len(targets))
	for _, s := range sources {
		for _, t := range targets {
			combos = append(combos, scoreCombination(s, t))
		}
	}

	sort.SliceStable(combos, func(i, j int) bool {
		return lessCombination(combos[i], combos[j])
	})
	return combos[0], nil
}

// FindOptimalHandlesForPosition picks the source handle closest to a free
// floating point, used for live connector previews while the user drags.
// It returns nil, never an error, when the node has no source handles.
func FindOptimalHandlesForPosition(sourceNode NodeInfo, targetPosition geometry.Point) *HandleInfo {
	sources := handlesByRole(sourceNode, RoleSource)
	if len(sources) == 0 {
		return nil
	}

	best := sources[0]
	bestDist := geometry.Manhattan(best.Position, targetPosition)
	for _, h := range sources[1:] {
		d := geometry.Manhattan(h.Position, targetPosition)
		if d < bestDist || (d == bestDist && h.Side.rank() < best.Side.rank()) {
			best = h
			bestDist = d
		}
	}
	return &best
}
