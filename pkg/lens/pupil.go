package lens

import (
	"math"
	"runtime"
	"sync"

	"github.com/skitaoka/LensSim/pkg/core"
)

const (
	// exitPupilBoundCount is the number of sensor radii the exit pupil
	// table is sampled at
	exitPupilBoundCount = 64
	// exitPupilGridSize is the per-axis resolution of the candidate grid
	// cast over the rear element when bounding one table entry
	exitPupilGridSize = 32
)

// exitPupilBound bounds, in the plane of the rearmost element, the points
// reachable by non-vignetted rays from the sensor point at radial distance
// r. Candidates are cast on a uniform grid over the rear element's
// footprint square and every survivor extends the bound.
func (sys *System) exitPupilBound(r float64) core.Bounds2 {
	rear := &sys.elements[len(sys.elements)-1]
	a := rear.ApertureRadius
	footprint := core.NewBounds2(core.NewVec2(-a, -a), core.NewVec2(a, a))

	origin := core.NewVec3(r, 0, 0)

	var bounds core.Bounds2
	found := false
	for iy := 0; iy < exitPupilGridSize; iy++ {
		for ix := 0; ix < exitPupilGridSize; ix++ {
			p := footprint.Lerp(core.NewVec2(
				(float64(ix)+0.5)/exitPupilGridSize,
				(float64(iy)+0.5)/exitPupilGridSize,
			))
			target := core.NewVec3(p.X, p.Y, rear.Z)
			ray := core.NewRay(origin, target.Subtract(origin).Normalize())

			if _, ok := sys.Raytrace(ray, false, nil); !ok {
				continue
			}
			if !found {
				bounds = core.NewBounds2(p, p)
				found = true
			} else {
				bounds = bounds.UnionPoint(p)
			}
		}
	}

	// Fallback when nothing gets through: the rear element's own footprint
	// keeps sampling well-defined at the cost of efficiency
	if !found {
		return footprint
	}

	// Cover the regions between grid candidates
	return bounds.Expand(2 * a / exitPupilGridSize)
}

// buildExitPupilBounds fills the exit pupil table, one bound per sensor
// radius from the axis out to the sensor corner. The entries are
// independent, so they are computed in parallel; the table is immutable
// once this returns.
func (sys *System) buildExitPupilBounds() {
	rMax := 0.5 * sys.film.Diagonal()
	bounds := make([]core.Bounds2, exitPupilBoundCount)

	workers := runtime.NumCPU()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			for i := start; i < exitPupilBoundCount; i += workers {
				r := rMax * (float64(i) + 0.5) / exitPupilBoundCount
				bounds[i] = sys.exitPupilBound(r)
			}
		}(w)
	}
	wg.Wait()

	sys.exitPupilBounds = bounds
}

// boundForRadius looks up the nearest exit pupil table entry for a sensor
// point at radial distance r from the axis
func (sys *System) boundForRadius(r float64) core.Bounds2 {
	rMax := 0.5 * sys.film.Diagonal()
	i := int(r / rMax * exitPupilBoundCount)
	if i >= exitPupilBoundCount {
		i = exitPupilBoundCount - 1
	}
	return sys.exitPupilBounds[i]
}

// SampleRay generates a camera ray from the sensor point at normalized
// coordinates u,v in [-1,1], importance-sampled through the exit pupil:
// the precomputed bound for the point's radius is rotated into its
// azimuthal position and a rear-element point is drawn uniformly inside
// it. The returned pdf is the uniform area density over that bound,
// 1/area. Returns false when the candidate ray does not make it through
// the stack; the caller must treat such samples as zero contribution.
//
// lambda is the wavelength in meters, accepted for future chromatic
// dispersion support; it does not currently alter index lookups. The
// reflection flag is forwarded to Raytrace.
func (sys *System) SampleRay(u, v, lambda float64, sampler core.Sampler, reflection bool) (core.Ray, float64, bool) {
	_ = lambda

	p := sys.film.PhysicalPosition(u, v)
	r := p.Length()
	theta := math.Atan2(p.Y, p.X)

	// The table is built along one axis; rotational symmetry puts its
	// entry into the right orientation for this sensor point
	bound := sys.boundForRadius(r)
	rearPoint := bound.Lerp(sampler.Get2D()).Rotate(theta)

	rear := &sys.elements[len(sys.elements)-1]
	origin := core.NewVec3(p.X, p.Y, 0)
	target := core.NewVec3(rearPoint.X, rearPoint.Y, rear.Z)
	ray := core.NewRay(origin, target.Subtract(origin).Normalize())

	rayOut, ok := sys.Raytrace(ray, reflection, sampler)
	if !ok {
		return core.Ray{}, 0, false
	}

	// Rotation preserves area, so the rotated bound has the same density
	pdf := 1.0 / bound.Area()
	return rayOut, pdf, true
}

// Vignetting estimates the fraction of exit-pupil samples from the sensor
// point at u,v that traverse the whole stack, using n trial rays
func (sys *System) Vignetting(u, v float64, n int, sampler core.Sampler) float64 {
	if n <= 0 {
		return 0
	}
	hits := 0
	for i := 0; i < n; i++ {
		if _, _, ok := sys.SampleRay(u, v, 550e-9, sampler, false); ok {
			hits++
		}
	}
	return float64(hits) / float64(n)
}
