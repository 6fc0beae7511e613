package lens

import (
	"math"
	"testing"

	"github.com/skitaoka/LensSim/pkg/core"
	"github.com/skitaoka/LensSim/pkg/film"
)

// biconvexSinglet is the documented test lens: a symmetric biconvex
// singlet with 50mm curvature radii, 5mm center thickness, n=1.5, 10mm
// clear aperture radius, rear vertex 48mm in front of the sensor. The
// lensmaker's equation puts its focal length at 50.847mm.
func biconvexSinglet() []Element {
	return []Element{
		NewLens(0, 0.01, 0.005, 0.05, 1.5),
		NewLens(1, 0.01, 0.048, -0.05, 1.0),
	}
}

const singletFocalLength = 0.050847457627118644

func testFilm(t *testing.T) *film.Film {
	t.Helper()
	f, err := film.NewFilm(64, 64, 0.036, 0.024)
	if err != nil {
		t.Fatalf("NewFilm failed: %v", err)
	}
	return f
}

func newTestSystem(t *testing.T, elements []Element) *System {
	t.Helper()
	sys, err := NewSystem(elements, testFilm(t))
	if err != nil {
		t.Fatalf("NewSystem failed: %v", err)
	}
	return sys
}

func TestNewSystem_Validation(t *testing.T) {
	tests := []struct {
		name     string
		elements []Element
	}{
		{"empty element list", nil},
		{"non-contiguous indices", []Element{
			NewLens(0, 0.01, 0.005, 0.05, 1.5),
			NewLens(2, 0.01, 0.048, -0.05, 1.0),
		}},
		{"duplicate indices", []Element{
			NewLens(0, 0.01, 0.005, 0.05, 1.5),
			NewLens(0, 0.01, 0.048, -0.05, 1.0),
		}},
		{"zero curvature lens", []Element{
			NewLens(0, 0.01, 0.005, 0, 1.5),
			NewLens(1, 0.01, 0.048, -0.05, 1.0),
		}},
		{"refractive index below 1", []Element{
			NewLens(0, 0.01, 0.005, 0.05, 0.5),
			NewLens(1, 0.01, 0.048, -0.05, 1.0),
		}},
		{"non-positive aperture radius", []Element{
			NewLens(0, 0, 0.005, 0.05, 1.5),
			NewLens(1, 0.01, 0.048, -0.05, 1.0),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSystem(tt.elements, testFilm(t)); err == nil {
				t.Error("Expected construction error, got none")
			}
		})
	}
}

func TestNewSystem_AxialPositions(t *testing.T) {
	sys := newTestSystem(t, biconvexSinglet())
	elements := sys.Elements()

	// Thickness accumulates from the sensor side backward
	if math.Abs(elements[0].Z-(-0.053)) > 1e-12 {
		t.Errorf("Expected front vertex at z=-0.053, got %v", elements[0].Z)
	}
	if math.Abs(elements[1].Z-(-0.048)) > 1e-12 {
		t.Errorf("Expected rear vertex at z=-0.048, got %v", elements[1].Z)
	}
}

func TestRaytrace_PurePropagation(t *testing.T) {
	// A lone aperture stop only translates rays along the axis. Such a
	// stack has no cardinal points, so it is assembled directly.
	sys := &System{elements: []Element{NewAperture(0, 0.01, 0.01)}}
	sys.assignAxialPositions()

	rayIn := core.NewRay(core.NewVec3(0, 0.005, -1), core.NewVec3(0, 0, 1))
	rayOut, ok := sys.Raytrace(rayIn, false, nil)
	if !ok {
		t.Fatal("Expected the ray to pass the open stop")
	}

	const tolerance = 1e-12
	if rayOut.Direction.Subtract(rayIn.Direction).Length() > tolerance {
		t.Errorf("Expected unchanged direction, got %v", rayOut.Direction)
	}
	if math.Abs(rayOut.Origin.Y-0.005) > tolerance || math.Abs(rayOut.Origin.X) > tolerance {
		t.Errorf("Expected unchanged radial offset, got origin %v", rayOut.Origin)
	}
	if math.Abs(rayOut.Origin.Z-(-0.01)) > tolerance {
		t.Errorf("Expected origin translated to the stop plane z=-0.01, got %v", rayOut.Origin.Z)
	}
}

func TestRaytrace_OnAxisZeroBend(t *testing.T) {
	sys := newTestSystem(t, biconvexSinglet())

	rayIn := core.NewRay(core.NewVec3(0, 0, -1), core.NewVec3(0, 0, 1))
	rayOut, ok := sys.Raytrace(rayIn, false, nil)
	if !ok {
		t.Fatal("Expected the axial ray to pass")
	}

	// Normal and incidence are colinear on axis, so nothing bends
	const tolerance = 1e-12
	if rayOut.Direction.Subtract(core.NewVec3(0, 0, 1)).Length() > tolerance {
		t.Errorf("Expected on-axis direction (0,0,1), got %v", rayOut.Direction)
	}
	if math.Abs(rayOut.Origin.X) > tolerance || math.Abs(rayOut.Origin.Y) > tolerance {
		t.Errorf("Expected on-axis origin, got %v", rayOut.Origin)
	}
}

func TestRaytrace_RoundTrip(t *testing.T) {
	sys := newTestSystem(t, biconvexSinglet())

	origin := core.NewVec3(0, 0.002, -0.2)
	target := core.NewVec3(0, 0.004, -0.053)
	direction := target.Subtract(origin).Normalize()

	forward, ok := sys.Raytrace(core.NewRay(origin, direction), false, nil)
	if !ok {
		t.Fatal("Expected the forward trace to pass")
	}

	backward, ok := sys.Raytrace(core.NewRay(forward.Origin, forward.Direction.Negate()), false, nil)
	if !ok {
		t.Fatal("Expected the backward trace to pass")
	}

	// The returned ray must be colinear with the reversed input
	dot := backward.Direction.Normalize().Dot(direction.Negate())
	if math.Abs(dot-1) > 1e-9 {
		t.Errorf("Expected reversed direction (dot=1), got dot=%v", dot)
	}
}

func TestRaytrace_ApertureBlocks(t *testing.T) {
	// The documented singlet behind a 5mm aperture stop
	elements := []Element{
		NewAperture(0, 0.005, 0),
		NewLens(1, 0.01, 0.005, 0.05, 1.5),
		NewLens(2, 0.01, 0.048, -0.05, 1.0),
	}
	sys := newTestSystem(t, elements)

	blocked := core.NewRay(core.NewVec3(0, 0.006, -1), core.NewVec3(0, 0, 1))
	if _, ok := sys.Raytrace(blocked, false, nil); ok {
		t.Error("Expected a ray outside the stop radius to be blocked")
	}

	passed := core.NewRay(core.NewVec3(0, 0.004, -1), core.NewVec3(0, 0, 1))
	if _, ok := sys.Raytrace(passed, false, nil); !ok {
		t.Error("Expected a ray inside the stop radius to pass")
	}
}

func TestRaytrace_TotalInternalReflection(t *testing.T) {
	// A steeply curved high-power biconvex: marginal rays hit the exit
	// surface beyond the critical angle
	elements := []Element{
		NewLens(0, 0.0135, 0.008, 0.015, 1.5),
		NewLens(1, 0.0135, 0.05, -0.015, 1.0),
	}
	sys := newTestSystem(t, elements)

	marginal := core.NewRay(core.NewVec3(0, 0.009, -0.2), core.NewVec3(0, 0, 1))
	if _, ok := sys.Raytrace(marginal, false, nil); ok {
		t.Error("Expected total internal reflection to fail the trace")
	}

	inner := core.NewRay(core.NewVec3(0, 0.005, -0.2), core.NewVec3(0, 0, 1))
	if _, ok := sys.Raytrace(inner, false, nil); !ok {
		t.Error("Expected a less marginal ray to pass")
	}
}

func TestSystem_CardinalPoints(t *testing.T) {
	sys := newTestSystem(t, biconvexSinglet())

	// Paraxial focal length vs the lensmaker's equation, within 1%
	if relErr := math.Abs(sys.ImageFocalLength()-singletFocalLength) / singletFocalLength; relErr > 0.01 {
		t.Errorf("Image focal length %v deviates %.2f%% from %v",
			sys.ImageFocalLength(), 100*relErr, singletFocalLength)
	}

	// A symmetric lens has symmetric focal lengths of opposite sign
	if math.Abs(sys.ObjectFocalLength()+sys.ImageFocalLength()) > 1e-9 {
		t.Errorf("Expected object focal length %v to mirror image focal length %v",
			sys.ObjectFocalLength(), sys.ImageFocalLength())
	}

	// The image-side focal point sits just behind the sensor for this
	// rear gap, the principal point inside the lens
	if math.Abs(sys.ImageFocalZ()-0.0011213) > 1e-6 {
		t.Errorf("Expected image focal z near 0.0011213, got %v", sys.ImageFocalZ())
	}
	if math.Abs(sys.ImagePrincipalZ()-(-0.0496970)) > 1e-6 {
		t.Errorf("Expected image principal z near -0.0496970, got %v", sys.ImagePrincipalZ())
	}
}

func TestNewSystem_CardinalFailures(t *testing.T) {
	t.Run("paraxial ray blocked by a tiny stop", func(t *testing.T) {
		elements := []Element{
			NewAperture(0, 0.0005, 0),
			NewLens(1, 0.01, 0.005, 0.05, 1.5),
			NewLens(2, 0.01, 0.048, -0.05, 1.0),
		}
		if _, err := NewSystem(elements, testFilm(t)); err == nil {
			t.Error("Expected construction to fail when the paraxial ray is blocked")
		}
	})

	t.Run("afocal stack", func(t *testing.T) {
		// ior 1 on both sides never bends the paraxial ray
		elements := []Element{
			NewLens(0, 0.01, 0.05, 0.05, 1.0),
		}
		if _, err := NewSystem(elements, testFilm(t)); err == nil {
			t.Error("Expected construction to fail for an afocal stack")
		}
	})
}

func TestSystem_Focus(t *testing.T) {
	sys := newTestSystem(t, biconvexSinglet())

	if err := sys.Focus(-1.0); err != nil {
		t.Fatalf("Focus failed: %v", err)
	}

	// Thick-lens solve for a 1m object plane shifts the stack 4.0104mm
	// away from the sensor
	rear := sys.Elements()[1]
	if math.Abs(rear.Thickness-0.052010421) > 1e-8 {
		t.Errorf("Expected rear thickness 0.052010421, got %v", rear.Thickness)
	}

	// A paraxial ray from the focused object point crosses the axis at
	// the sensor plane
	origin := core.NewVec3(0, 0, -1.0)
	target := core.NewVec3(0, 0.002, sys.Elements()[0].Z)
	rayOut, ok := sys.Raytrace(core.NewRay(origin, target.Subtract(origin).Normalize()), false, nil)
	if !ok {
		t.Fatal("Expected the focused trace to pass")
	}
	tCross := -rayOut.Origin.Y / rayOut.Direction.Y
	if crossZ := rayOut.At(tCross).Z; math.Abs(crossZ) > 5e-4 {
		t.Errorf("Expected the object point to image near z=0, crossed at z=%v", crossZ)
	}
}

func TestSystem_FocusRecomputesCardinalData(t *testing.T) {
	sys := newTestSystem(t, biconvexSinglet())
	focalZBefore := sys.ImageFocalZ()
	focalLengthBefore := sys.ImageFocalLength()

	if err := sys.Focus(-1.0); err != nil {
		t.Fatalf("Focus failed: %v", err)
	}

	// The focal length is invariant under an axial shift; the focal
	// point moves with the stack
	if math.Abs(sys.ImageFocalLength()-focalLengthBefore) > 1e-9 {
		t.Errorf("Focal length changed across refocus: %v -> %v", focalLengthBefore, sys.ImageFocalLength())
	}
	shift := sys.Elements()[1].Thickness - 0.048
	if math.Abs((focalZBefore-sys.ImageFocalZ())-shift) > 1e-9 {
		t.Errorf("Expected focal point shifted by %v, moved %v", shift, focalZBefore-sys.ImageFocalZ())
	}
}

func TestSystem_FocusInfeasible(t *testing.T) {
	sys := newTestSystem(t, biconvexSinglet())
	rearBefore := sys.Elements()[1].Thickness

	// Closer than the minimum conjugate distance (4f) cannot be imaged
	if err := sys.Focus(-0.12); err == nil {
		t.Error("Expected focus at z=-0.12 to fail")
	}

	// Not in front of the lens at all
	if err := sys.Focus(0.5); err == nil {
		t.Error("Expected focus behind the sensor to fail")
	}

	// A failed focus leaves the stack untouched
	if got := sys.Elements()[1].Thickness; got != rearBefore {
		t.Errorf("Failed focus mutated rear thickness: %v -> %v", rearBefore, got)
	}
}
