package core

import "math"

// Bounds2 represents a 2D axis-aligned bounding box
type Bounds2 struct {
	Min Vec2 // Minimum corner
	Max Vec2 // Maximum corner
}

// NewBounds2 creates a new Bounds2 from min and max points
func NewBounds2(min, max Vec2) Bounds2 {
	return Bounds2{Min: min, Max: max}
}

// NewBounds2FromPoints creates a Bounds2 that bounds all given points
func NewBounds2FromPoints(points ...Vec2) Bounds2 {
	if len(points) == 0 {
		return Bounds2{}
	}

	min := points[0]
	max := points[0]

	for _, point := range points[1:] {
		min.X = math.Min(min.X, point.X)
		min.Y = math.Min(min.Y, point.Y)

		max.X = math.Max(max.X, point.X)
		max.Y = math.Max(max.Y, point.Y)
	}

	return Bounds2{Min: min, Max: max}
}

// UnionPoint returns a Bounds2 extended to contain the given point
func (b Bounds2) UnionPoint(point Vec2) Bounds2 {
	return Bounds2{
		Min: Vec2{X: math.Min(b.Min.X, point.X), Y: math.Min(b.Min.Y, point.Y)},
		Max: Vec2{X: math.Max(b.Max.X, point.X), Y: math.Max(b.Max.Y, point.Y)},
	}
}

// Union returns a Bounds2 that bounds both this Bounds2 and another
func (b Bounds2) Union(other Bounds2) Bounds2 {
	return Bounds2{
		Min: Vec2{X: math.Min(b.Min.X, other.Min.X), Y: math.Min(b.Min.Y, other.Min.Y)},
		Max: Vec2{X: math.Max(b.Max.X, other.Max.X), Y: math.Max(b.Max.Y, other.Max.Y)},
	}
}

// Center returns the center point of the Bounds2
func (b Bounds2) Center() Vec2 {
	return b.Min.Add(b.Max).Multiply(0.5)
}

// Size returns the extent of the Bounds2 along each axis
func (b Bounds2) Size() Vec2 {
	return b.Max.Subtract(b.Min)
}

// Area returns the area enclosed by the Bounds2
func (b Bounds2) Area() float64 {
	size := b.Size()
	return size.X * size.Y
}

// Lerp maps a point in [0,1]² to the corresponding point inside the bounds
func (b Bounds2) Lerp(u Vec2) Vec2 {
	return Vec2{
		X: b.Min.X + u.X*(b.Max.X-b.Min.X),
		Y: b.Min.Y + u.Y*(b.Max.Y-b.Min.Y),
	}
}

// IsValid returns true if this is a valid Bounds2 (min <= max for both axes)
func (b Bounds2) IsValid() bool {
	return b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y
}

// Expand returns a Bounds2 expanded by the given amount in all directions
func (b Bounds2) Expand(amount float64) Bounds2 {
	expansion := NewVec2(amount, amount)
	return Bounds2{
		Min: b.Min.Subtract(expansion),
		Max: b.Max.Add(expansion),
	}
}
