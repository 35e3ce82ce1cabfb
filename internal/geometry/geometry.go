// Package geometry contains the primitive value types shared by the routing
// core: points, axis-aligned segments, rectangles and the distance helpers
// built on them. Everything here is a plain value with no dependencies.
package geometry

import (
	"fmt"
	"math"
)

// Point is a 2D coordinate in diagram space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Equals reports whether two points coincide exactly.
func (p Point) Equals(q Point) bool {
	return p.X == q.X && p.Y == q.Y
}

// IsFinite reports whether both coordinates are finite numbers.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Midpoint returns the point halfway between p and q.
func (p Point) Midpoint(q Point) Point {
	return Point{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2}
}

// Direction is the axis a path segment runs along.
type Direction string

const (
	Horizontal Direction = "horizontal"
	Vertical   Direction = "vertical"
)

// PathSegment is an axis-aligned run between two points. Start and End differ
// in exactly one coordinate; Length is the absolute delta on that axis.
type PathSegment struct {
	Start     Point     `json:"start"`
	End       Point     `json:"end"`
	Direction Direction `json:"direction"`
	Length    float64   `json:"length"`
}

// NewPathSegment builds a segment between two axis-aligned points.
// It returns an error if the points differ on both axes, which indicates a
// programming error upstream rather than a recoverable condition.
func NewPathSegment(start, end Point) (PathSegment, error) {
	dx := end.X - start.X
	dy := end.Y - start.Y
	if dx != 0 && dy != 0 {
		return PathSegment{}, fmt.Errorf("segment from (%g,%g) to (%g,%g) is not axis-aligned", start.X, start.Y, end.X, end.Y)
	}

	seg := PathSegment{Start: start, End: end}
	if dy != 0 {
		seg.Direction = Vertical
		seg.Length = math.Abs(dy)
	} else {
		// A zero-length segment is reported as horizontal.
		seg.Direction = Horizontal
		seg.Length = math.Abs(dx)
	}
	return seg, nil
}

// Rect is an axis-aligned bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains checks if a point is inside the rect, borders included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// ContainsStrict checks if a point is strictly inside the rect.
func (r Rect) ContainsStrict(p Point) bool {
	return p.X > r.X && p.X < r.X+r.Width &&
		p.Y > r.Y && p.Y < r.Y+r.Height
}

// Inflate returns the rect grown by d on every side.
func (r Rect) Inflate(d float64) Rect {
	return Rect{
		X:      r.X - d,
		Y:      r.Y - d,
		Width:  r.Width + 2*d,
		Height: r.Height + 2*d,
	}
}

// Center returns the center point of the rect.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Manhattan returns the Manhattan distance between two points, the natural
// lower bound on any orthogonal path between them.
func Manhattan(p, q Point) float64 {
	return math.Abs(q.X-p.X) + math.Abs(q.Y-p.Y)
}

// Euclidean returns the straight-line distance between two points.
func Euclidean(p, q Point) float64 {
	dx := q.X - p.X
	dy := q.Y - p.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Efficiency returns the Manhattan/Euclidean ratio for a point pair.
// It is 1 for coincident points (avoiding a zero division) and for pairs that
// share an axis; it grows toward sqrt(2) as the pair approaches a diagonal.
// Lower is better.
func Efficiency(p, q Point) float64 {
	euclid := Euclidean(p, q)
	if euclid == 0 {
		return 1
	}
	return Manhattan(p, q) / euclid
}
