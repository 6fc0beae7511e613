package lens

import (
	"fmt"
	"math"
	"sort"

	"github.com/skitaoka/LensSim/pkg/core"
	"github.com/skitaoka/LensSim/pkg/film"
)

// paraxialHeight is the launch height of the near-axis rays used to derive
// cardinal points (1mm in system units).
const paraxialHeight = 0.001

// System is an ordered stack of optical elements forming a lens barrel,
// positioned along the optical axis with the sensor plane at z=0 and the
// stack at z<0. Rays with a positive z direction travel toward the sensor.
//
// The stack, its cardinal data and its exit pupil table are immutable after
// construction; Focus rebuilds all of them together. Raytrace, SampleRay
// and the accessors only read that state and are safe to call concurrently
// as long as no Focus is in flight and each caller supplies its own sampler.
type System struct {
	elements []Element
	film     *film.Film

	objectFocalZ      float64
	objectPrincipalZ  float64
	objectFocalLength float64
	imageFocalZ       float64
	imagePrincipalZ   float64
	imageFocalLength  float64

	exitPupilBounds []core.Bounds2
}

// NewSystem builds a lens system from a set of elements and the sensor it
// images onto. Elements are sorted by index; indices must be unique and
// contiguous from 0. Cardinal points and the exit pupil table are computed
// before the system is returned, so a non-nil System is always fully usable.
func NewSystem(elements []Element, f *film.Film) (*System, error) {
	if len(elements) == 0 {
		return nil, fmt.Errorf("lens: element list is empty")
	}
	if f == nil {
		return nil, fmt.Errorf("lens: film is required")
	}

	// The system owns its own copy of the element list
	owned := make([]Element, len(elements))
	copy(owned, elements)
	sort.Slice(owned, func(i, j int) bool { return owned[i].Index < owned[j].Index })

	for i := range owned {
		e := &owned[i]
		if e.Index != i {
			return nil, fmt.Errorf("lens: element indices must be unique and contiguous from 0, got %d at position %d", e.Index, i)
		}
		if e.ApertureRadius <= 0 {
			return nil, fmt.Errorf("lens: element %d has non-positive aperture radius %g", e.Index, e.ApertureRadius)
		}
		if e.Kind == KindLens {
			if e.CurvatureRadius == 0 {
				return nil, fmt.Errorf("lens: element %d has zero curvature; zero curvature identifies an aperture stop", e.Index)
			}
			if e.IOR < 1 {
				return nil, fmt.Errorf("lens: element %d has refractive index %g < 1", e.Index, e.IOR)
			}
		}
	}

	sys := &System{elements: owned, film: f}
	sys.assignAxialPositions()

	if err := sys.computeCardinalPoints(); err != nil {
		return nil, err
	}
	sys.buildExitPupilBounds()

	return sys, nil
}

// assignAxialPositions accumulates element thicknesses from the sensor side
// backward, anchoring the stack so the rearmost element's thickness is its
// distance to the sensor plane at z=0.
func (sys *System) assignAxialPositions() {
	length := 0.0
	for i := len(sys.elements) - 1; i >= 0; i-- {
		length += sys.elements[i].Thickness
		sys.elements[i].Z = -length
	}
}

// Raytrace traces a ray through the stack surface by surface and reports
// the exit ray. It returns false when the ray is vignetted by an aperture,
// misses a surface's clear aperture, or undergoes total internal
// reflection; these are expected outcomes, not errors.
//
// The reflection flag selects the planned Fresnel-weighted
// reflection/refraction branch, which needs the sampler; that branch is an
// open extension and the tracer currently always refracts.
func (sys *System) Raytrace(rayIn core.Ray, reflection bool, sampler core.Sampler) (core.Ray, bool) {
	_ = reflection
	_ = sampler

	ray := rayIn
	ior := 1.0

	index := -1
	if ray.Direction.Z <= 0 {
		index = len(sys.elements)
	}

	for {
		if ray.Direction.Z > 0 {
			index++
		} else {
			index--
		}
		if index < 0 || index >= len(sys.elements) {
			break // The ray has exited the system
		}
		element := &sys.elements[index]

		switch element.Kind {
		case KindAperture:
			hit, ok := element.Intersect(ray)
			if !ok {
				return core.Ray{}, false
			}
			ray = core.NewRay(hit.Point, ray.Direction)
			ior = 1.0

		case KindLens:
			// The medium beyond this surface: each element's IOR is the
			// index of the medium on its sensor side, so traveling toward
			// the sensor it is the surface's own IOR, and traveling toward
			// the object it belongs to the previous element.
			nextIOR := 1.0
			nextIndex := index
			if ray.Direction.Z <= 0 {
				nextIndex = index - 1
			}
			if nextIndex >= 0 && sys.elements[nextIndex].Kind == KindLens {
				nextIOR = sys.elements[nextIndex].IOR
			}

			hit, ok := element.Intersect(ray)
			if !ok {
				return core.Ray{}, false
			}

			direction, ok := Refract(ray.Direction.Negate(), hit.Normal, ior, nextIOR)
			if !ok {
				return core.Ray{}, false // Total internal reflection
			}

			ray = core.NewRay(hit.Point, direction)
			ior = nextIOR
		}
	}

	return ray, true
}

// computeCardinalPoints derives the focal and principal points of both
// sides of the system from two paraxial traces, launched parallel to the
// axis at a small height from 1m outside each end.
func (sys *System) computeCardinalPoints() error {
	// Trace from the object side to derive the image-side cardinal points
	rayIn := core.NewRay(
		core.NewVec3(0, paraxialHeight, sys.elements[0].Z-1.0),
		core.NewVec3(0, 0, 1),
	)
	rayOut, ok := sys.Raytrace(rayIn, false, nil)
	if !ok {
		return fmt.Errorf("lens: paraxial ray from the object side is blocked, cardinal points are unresolved")
	}
	focalZ, principalZ, err := cardinalFromRay(rayOut)
	if err != nil {
		return err
	}
	sys.imageFocalZ = focalZ
	sys.imagePrincipalZ = principalZ
	sys.imageFocalLength = focalZ - principalZ

	// Trace from the sensor plane to derive the object-side cardinal points
	rayIn = core.NewRay(
		core.NewVec3(0, paraxialHeight, 0),
		core.NewVec3(0, 0, -1),
	)
	rayOut, ok = sys.Raytrace(rayIn, false, nil)
	if !ok {
		return fmt.Errorf("lens: paraxial ray from the image side is blocked, cardinal points are unresolved")
	}
	focalZ, principalZ, err = cardinalFromRay(rayOut)
	if err != nil {
		return err
	}
	sys.objectFocalZ = focalZ
	sys.objectPrincipalZ = principalZ
	sys.objectFocalLength = focalZ - principalZ

	return nil
}

// cardinalFromRay solves the exit ray, treated as a line, for the axial
// positions where its height crosses zero (focal point) and where it
// re-crosses the launch height (principal point).
func cardinalFromRay(rayOut core.Ray) (focalZ, principalZ float64, err error) {
	if math.Abs(rayOut.Direction.Y) < 1e-12 {
		return 0, 0, fmt.Errorf("lens: system is afocal, cardinal points are unresolved")
	}

	t := -rayOut.Origin.Y / rayOut.Direction.Y
	focalZ = rayOut.At(t).Z

	t = -(rayOut.Origin.Y - paraxialHeight) / rayOut.Direction.Y
	principalZ = rayOut.At(t).Z

	return focalZ, principalZ, nil
}

// Focus shifts the stack along the axis so an object plane at the given
// axial coordinate (negative z, in front of the lens) images sharply onto
// the sensor, using the thick-lens equation on the current cardinal data.
// On success the z positions, cardinal data and exit pupil table have all
// been rebuilt; on error the system is unchanged.
func (sys *System) Focus(focusZ float64) error {
	if focusZ >= sys.elements[0].Z {
		return fmt.Errorf("lens: focus plane z=%g is not in front of the lens (front vertex z=%g)", focusZ, sys.elements[0].Z)
	}

	// Solve for the stack shift delta that satisfies the Gaussian imaging
	// equation with the image formed at z=0. Shifting every element by
	// -delta moves both principal planes by -delta, which yields a
	// quadratic in delta; the minus root is the one that stays finite as
	// the focus plane recedes to infinity.
	pi := sys.imagePrincipalZ
	f := sys.imageFocalLength
	m := focusZ - sys.objectPrincipalZ

	c := (m-pi)*(m-pi) + 4*(pi*m+f*m+f*pi)
	if c <= 0 || math.IsNaN(c) {
		return fmt.Errorf("lens: cannot focus at z=%g, no real lens shift exists", focusZ)
	}
	delta := 0.5 * (pi - m - math.Sqrt(c))
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return fmt.Errorf("lens: cannot focus at z=%g, lens shift is not finite", focusZ)
	}

	rear := len(sys.elements) - 1
	if sys.elements[rear].Thickness+delta <= 0 {
		return fmt.Errorf("lens: cannot focus at z=%g, rear element would cross the sensor plane", focusZ)
	}

	// Rebuild into a copy so the caller never observes a stack with stale
	// cardinal or exit pupil data if the refocused geometry is invalid
	next := &System{
		elements: make([]Element, len(sys.elements)),
		film:     sys.film,
	}
	copy(next.elements, sys.elements)
	next.elements[rear].Thickness += delta
	next.assignAxialPositions()

	if err := next.computeCardinalPoints(); err != nil {
		return fmt.Errorf("lens: refocus at z=%g failed: %w", focusZ, err)
	}
	next.buildExitPupilBounds()

	*sys = *next
	return nil
}

// Elements returns a copy of the element stack in index order
func (sys *System) Elements() []Element {
	elements := make([]Element, len(sys.elements))
	copy(elements, sys.elements)
	return elements
}

// Film returns the sensor plane the system images onto
func (sys *System) Film() *film.Film {
	return sys.film
}

// ObjectFocalZ returns the axial coordinate of the object-side focal point
func (sys *System) ObjectFocalZ() float64 { return sys.objectFocalZ }

// ObjectPrincipalZ returns the axial coordinate of the object-side principal point
func (sys *System) ObjectPrincipalZ() float64 { return sys.objectPrincipalZ }

// ObjectFocalLength returns the signed object-side focal length
func (sys *System) ObjectFocalLength() float64 { return sys.objectFocalLength }

// ImageFocalZ returns the axial coordinate of the image-side focal point
func (sys *System) ImageFocalZ() float64 { return sys.imageFocalZ }

// ImagePrincipalZ returns the axial coordinate of the image-side principal point
func (sys *System) ImagePrincipalZ() float64 { return sys.imagePrincipalZ }

// ImageFocalLength returns the signed image-side focal length
func (sys *System) ImageFocalLength() float64 { return sys.imageFocalLength }
