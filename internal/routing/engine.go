package routing

import (
	"fmt"
	"sync"

	"github.com/orthodraw/orthodraw/backend-go/internal/geometry"
)

// preferredRoutingSlack is the relative length penalty a preferred routing is
// allowed to carry before the engine falls back to the shorter alternative.
const preferredRoutingSlack = 0.2

// DefaultCacheSize bounds the engine's memoization cache. The key includes
// handle positions, so a moved handle writes a fresh entry and the stale one
// is eventually evicted rather than accumulating forever.
const DefaultCacheSize = 1024

// PathOptions tunes a single routing query. All fields are optional.
type PathOptions struct {
	// PreferredRouting keeps the given order as long as it is at most 20%
	// longer than the alternative.
	PreferredRouting RoutingType
	// PerpendicularApproach forces the exit and entry segments to meet the
	// handles at a right angle to their sides, padding the path with
	// exit/approach points derived from the node sizes.
	PerpendicularApproach bool
	// SourceBounds and TargetBounds supply node sizes for the perpendicular
	// offsets and the self-loop extension.
	SourceBounds *geometry.Rect
	TargetBounds *geometry.Rect
}

func (o *PathOptions) cacheKey() string {
	if o == nil {
		return ""
	}
	key := fmt.Sprintf("%s|%t", o.PreferredRouting, o.PerpendicularApproach)
	if o.SourceBounds != nil {
		key += fmt.Sprintf("|sb%g,%g,%g,%g", o.SourceBounds.X, o.SourceBounds.Y, o.SourceBounds.Width, o.SourceBounds.Height)
	}
	if o.TargetBounds != nil {
		key += fmt.Sprintf("|tb%g,%g,%g,%g", o.TargetBounds.X, o.TargetBounds.Y, o.TargetBounds.Width, o.TargetBounds.Height)
	}
	return key
}

// Engine orchestrates the path generators: it produces the final path for a
// chosen handle pair, applies the tie-break/preference policy, and memoizes
// results so repeated queries with identical inputs return the same object
// (reference-stable, which the UI layer uses for change detection).
//
// Engines are plain constructed instances owned by whoever needs one; there
// is no package-level singleton.
type Engine struct {
	mu      sync.Mutex
	cache   map[string]*Path
	maxSize int
	hits    int64
	misses  int64
}

// NewEngine creates a routing engine with the default cache bound.
func NewEngine() *Engine {
	return NewEngineWithCacheSize(DefaultCacheSize)
}

// NewEngineWithCacheSize creates a routing engine with a custom cache bound.
// A non-positive size disables eviction.
func NewEngineWithCacheSize(maxSize int) *Engine {
	return &Engine{
		cache:   make(map[string]*Path),
		maxSize: maxSize,
	}
}

// ComparePaths picks the winner between the two canonical routings: the
// shorter total length wins, and an exact tie goes to horizontal-first.
func ComparePaths(horizontal, vertical Path) Path {
	if vertical.TotalLength < horizontal.TotalLength {
		return vertical
	}
	return horizontal
}

// selectPath applies the preference policy on top of the default comparator:
// a preferred routing is kept while its relative length penalty stays within
// the slack, otherwise the plain comparison decides.
func selectPath(horizontal, vertical Path, preferred RoutingType) Path {
	var pref, alt Path
	switch preferred {
	case RouteHorizontalFirst:
		pref, alt = horizontal, vertical
	case RouteVerticalFirst:
		pref, alt = vertical, horizontal
	default:
		return ComparePaths(horizontal, vertical)
	}

	if alt.TotalLength > 0 {
		relative := (pref.TotalLength - alt.TotalLength) / alt.TotalLength
		if relative <= preferredRoutingSlack {
			return pref
		}
	}
	return ComparePaths(horizontal, vertical)
}

// CalculatePath routes a connector between two handles. Self-referential
// connectors (both handles on the same node) become rectangular loops;
// otherwise both canonical orderings are generated and the selection policy
// picks one. Results are memoized by handle identity, side, position and
// options.
func (e *Engine) CalculatePath(source, target HandleInfo, opts *PathOptions) *Path {
	key := routeKey(source, target, opts)

	e.mu.Lock()
	if cached, ok := e.cache[key]; ok {
		e.hits++
		e.mu.Unlock()
		return cached
	}
	e.misses++
	e.mu.Unlock()

	path := e.computePath(source, target, opts)

	e.mu.Lock()
	if len(e.cache) >= e.maxSize && e.maxSize > 0 {
		// Evict an arbitrary entry to stay bounded. Stale entries for moved
		// handles age out this way without a dedicated invalidation pass.
		for k := range e.cache {
			delete(e.cache, k)
			break
		}
	}
	e.cache[key] = path
	e.mu.Unlock()

	return path
}

func (e *Engine) computePath(source, target HandleInfo, opts *PathOptions) *Path {
	var srcBounds, tgtBounds *geometry.Rect
	preferred := RoutingType("")
	perpendicular := false
	if opts != nil {
		srcBounds = opts.SourceBounds
		tgtBounds = opts.TargetBounds
		preferred = opts.PreferredRouting
		perpendicular = opts.PerpendicularApproach
	}

	if source.NodeID != "" && source.NodeID == target.NodeID {
		bounds := geometry.Rect{}
		if srcBounds != nil {
			bounds = *srcBounds
		}
		path := SelfLoopPath(source, target, bounds)
		return &path
	}

	var horizontal, vertical Path
	if perpendicular {
		horizontal = PerpendicularPath(source, target, srcBounds, tgtBounds, RouteHorizontalFirst)
		vertical = PerpendicularPath(source, target, srcBounds, tgtBounds, RouteVerticalFirst)
	} else {
		horizontal = GeneratePath(source.Position, target.Position, RouteHorizontalFirst)
		vertical = GeneratePath(source.Position, target.Position, RouteVerticalFirst)
	}

	path := selectPath(horizontal, vertical, preferred)
	return &path
}

// ClearCache drops every memoized path. Subsequent queries recompute and
// return equal but distinct objects.
func (e *Engine) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]*Path)
	e.hits = 0
	e.misses = 0
}

// CacheStats reports hit/miss counters and the current entry count.
func (e *Engine) CacheStats() (hits, misses int64, size int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hits, e.misses, len(e.cache)
}

// routeKey builds the memoization key from handle identity, side, position
// and the serialized options.
func routeKey(source, target HandleInfo, opts *PathOptions) string {
	return fmt.Sprintf("%s:%s:%g,%g|%s:%s:%g,%g|%s",
		source.ID, source.Side, source.Position.X, source.Position.Y,
		target.ID, target.Side, target.Position.X, target.Position.Y,
		opts.cacheKey())
}
