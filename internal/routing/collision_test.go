package routing

import (
	"testing"

	"github.com/orthodraw/orthodraw/backend-go/internal/geometry"
)

func TestResolveCollisionsDisplacesOut(t *testing.T) {
	nodes := []NodeInfo{{ID: "n", Bounds: geometry.Rect{X: 30, Y: 30, Width: 40, Height: 40}}}
	cps := []geometry.Point{{X: 0, Y: 0}, {X: 50, Y: 50}, {X: 100, Y: 0}}

	got := ResolveCollisions(cps, nodes, CollisionConfig{Clearance: 10, MaxIterations: 10})

	// The midpoint sits dead center of the inflated box (20,20,60,60); all
	// four exits tie and the left edge wins by evaluation order.
	want := geometry.Point{X: 20, Y: 50}
	if !got[1].Equals(want) {
		t.Errorf("displaced point = %v, want %v", got[1], want)
	}

	// Endpoints are anchored to handles and never move.
	if !got[0].Equals(cps[0]) || !got[2].Equals(cps[2]) {
		t.Errorf("endpoints moved: %v", got)
	}

	// The input slice is untouched.
	if !cps[1].Equals(geometry.Point{X: 50, Y: 50}) {
		t.Error("ResolveCollisions mutated its input")
	}
}

func TestResolveCollisionsClearPointsUntouched(t *testing.T) {
	nodes := []NodeInfo{{ID: "n", Bounds: geometry.Rect{X: 300, Y: 300, Width: 50, Height: 50}}}
	cps := []geometry.Point{{X: 0, Y: 0}, {X: 50, Y: 50}, {X: 100, Y: 0}}

	got := ResolveCollisions(cps, nodes, DefaultCollisionConfig())
	for i := range cps {
		if !got[i].Equals(cps[i]) {
			t.Errorf("point %d moved from %v to %v without a collision", i, cps[i], got[i])
		}
	}
}

func TestResolveCollisionsChainsAcrossNodes(t *testing.T) {
	// Pushing the point out of the first box lands it inside the second;
	// the pass keeps going until it is clear of both.
	nodes := []NodeInfo{
		{ID: "a", Bounds: geometry.Rect{X: 0, Y: 0, Width: 60, Height: 200}},
		{ID: "b", Bounds: geometry.Rect{X: 70, Y: 0, Width: 60, Height: 200}},
	}
	cps := []geometry.Point{{X: -50, Y: 100}, {X: 55, Y: 100}, {X: 300, Y: 100}}

	got := ResolveCollisions(cps, nodes, CollisionConfig{Clearance: 5, MaxIterations: 10})

	p := got[1]
	for _, n := range nodes {
		if n.Bounds.Inflate(5).ContainsStrict(p) {
			t.Errorf("point %v still inside inflated bounds of %s", p, n.ID)
		}
	}
}

func TestResolveCollisionsIterationCapIsSoft(t *testing.T) {
	// Two overlapping inflated boxes can ping-pong a point between them.
	// The pass must terminate at the cap and report best effort, not fail.
	nodes := []NodeInfo{
		{ID: "a", Bounds: geometry.Rect{X: 0, Y: 0, Width: 100, Height: 100}},
		{ID: "b", Bounds: geometry.Rect{X: 80, Y: 0, Width: 100, Height: 100}},
	}
	cps := []geometry.Point{{X: -50, Y: 50}, {X: 90, Y: 50}, {X: 300, Y: 50}}

	got := ResolveCollisions(cps, nodes, CollisionConfig{Clearance: 10, MaxIterations: 3})
	if len(got) != 3 {
		t.Fatalf("got %d points, want 3", len(got))
	}
	if !got[1].IsFinite() {
		t.Errorf("best-effort point is not finite: %v", got[1])
	}
}

func TestCollisionConfigDefaults(t *testing.T) {
	cfg := CollisionConfig{}.withDefaults()
	if cfg.Clearance != 50 || cfg.MaxIterations != 10 {
		t.Errorf("defaults = %+v, want clearance 50, iterations 10", cfg)
	}

	// Caller overrides survive.
	cfg = CollisionConfig{Clearance: 15, MaxIterations: 4}.withDefaults()
	if cfg.Clearance != 15 || cfg.MaxIterations != 4 {
		t.Errorf("overrides lost: %+v", cfg)
	}
}
