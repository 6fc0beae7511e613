package lens

import (
	"math"

	"github.com/skitaoka/LensSim/pkg/core"
)

// Kind discriminates the two element variants in a lens barrel
type Kind int

const (
	// KindLens is a refractive spherical surface
	KindLens Kind = iota
	// KindAperture is a flat aperture stop
	KindAperture
)

// Element is a single optical element: a refractive spherical surface or a
// flat aperture stop. CurvatureRadius and IOR are only meaningful for
// KindLens; an aperture stop is always surrounded by air.
type Element struct {
	Index           int     // Position in the stack, defines traversal order
	Kind            Kind    // Variant tag
	ApertureRadius  float64 // Radial clear-aperture limit in meters
	Thickness       float64 // Axial distance to the next element toward the sensor
	CurvatureRadius float64 // Signed sphere radius in meters, never zero for KindLens
	IOR             float64 // Refractive index of the medium following the surface on the sensor side
	Z               float64 // Axial coordinate, assigned once at stack build
}

// NewLens creates a refractive spherical surface element
func NewLens(index int, apertureRadius, thickness, curvatureRadius, ior float64) Element {
	return Element{
		Index:           index,
		Kind:            KindLens,
		ApertureRadius:  apertureRadius,
		Thickness:       thickness,
		CurvatureRadius: curvatureRadius,
		IOR:             ior,
	}
}

// NewAperture creates a flat aperture stop element
func NewAperture(index int, apertureRadius, thickness float64) Element {
	return Element{
		Index:          index,
		Kind:           KindAperture,
		ApertureRadius: apertureRadius,
		Thickness:      thickness,
		IOR:            1.0,
	}
}

// Hit is a surface intersection result. The normal is unit length and
// oriented against the incoming ray direction.
type Hit struct {
	Point  core.Vec3
	Normal core.Vec3
}

// Intersect tests the ray against this element's surface, bounded by the
// clear aperture. A miss or an out-of-aperture hit returns false.
func (e *Element) Intersect(ray core.Ray) (Hit, bool) {
	switch e.Kind {
	case KindAperture:
		return e.intersectDisk(ray)
	default:
		return e.intersectSphere(ray)
	}
}

// intersectDisk intersects the ray with the flat disk at the element's
// axial position
func (e *Element) intersectDisk(ray core.Ray) (Hit, bool) {
	if math.Abs(ray.Direction.Z) < 1e-12 {
		return Hit{}, false // Ray travels in the stop's plane
	}

	t := (e.Z - ray.Origin.Z) / ray.Direction.Z
	if t < 0 {
		return Hit{}, false
	}

	point := ray.At(t)
	if point.X*point.X+point.Y*point.Y > e.ApertureRadius*e.ApertureRadius {
		return Hit{}, false
	}

	normal := core.NewVec3(0, 0, -1)
	if ray.Direction.Z < 0 {
		normal = core.NewVec3(0, 0, 1)
	}

	return Hit{Point: point, Normal: normal}, true
}

// intersectSphere intersects the ray with the spherical surface of the
// element's curvature. The sphere passes through the element's vertex at Z
// with its center displaced by the signed curvature radius.
func (e *Element) intersectSphere(ray core.Ray) (Hit, bool) {
	center := core.NewVec3(0, 0, e.Z+e.CurvatureRadius)

	// Quadratic equation coefficients: at² + bt + c = 0
	oc := ray.Origin.Subtract(center)
	a := ray.Direction.Dot(ray.Direction)
	halfB := oc.Dot(ray.Direction)
	c := oc.Dot(oc) - e.CurvatureRadius*e.CurvatureRadius

	discriminant := halfB*halfB - a*c
	if discriminant < 0 {
		return Hit{}, false
	}
	sqrtD := math.Sqrt(discriminant)

	// The lens surface is the sphere hemisphere facing the ray's travel:
	// which of the two roots that is depends on the travel direction and
	// the sign of the curvature.
	var t float64
	if (ray.Direction.Z > 0) != (e.CurvatureRadius < 0) {
		t = (-halfB - sqrtD) / a
	} else {
		t = (-halfB + sqrtD) / a
	}
	if t < 0 {
		return Hit{}, false
	}

	point := ray.At(t)
	if point.X*point.X+point.Y*point.Y > e.ApertureRadius*e.ApertureRadius {
		return Hit{}, false
	}

	// Orient the normal against the incoming ray
	normal := point.Subtract(center).Normalize()
	if normal.Dot(ray.Direction) > 0 {
		normal = normal.Negate()
	}

	return Hit{Point: point, Normal: normal}, true
}
