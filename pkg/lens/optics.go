package lens

import (
	"math"

	"github.com/skitaoka/LensSim/pkg/core"
)

// Reflect returns the mirror reflection of wi about the unit normal n.
// wi points away from the surface, against the incident ray.
func Reflect(wi, n core.Vec3) core.Vec3 {
	return n.Multiply(2 * wi.Dot(n)).Subtract(wi)
}

// Refract computes the transmitted direction through an interface from a
// medium of index ior1 into a medium of index ior2 using Snell's law in
// vector form. wi points away from the surface, on the same side as the
// unit normal n. Returns false on total internal reflection.
func Refract(wi, n core.Vec3, ior1, ior2 float64) (core.Vec3, bool) {
	eta := ior1 / ior2
	cosThetaI := wi.Dot(n)
	sin2ThetaI := math.Max(0, 1-cosThetaI*cosThetaI)
	sin2ThetaT := eta * eta * sin2ThetaI
	if sin2ThetaT >= 1 {
		return core.Vec3{}, false
	}
	cosThetaT := math.Sqrt(1 - sin2ThetaT)

	wt := wi.Negate().Multiply(eta).Add(n.Multiply(eta*cosThetaI - cosThetaT))
	return wt, true
}

// SchlickFresnel approximates the Fresnel reflectance at an interface
// between media of index ior1 and ior2, for an outgoing direction wo on
// the same side as the unit normal n. Used by the planned stochastic
// reflection branch of the tracer.
func SchlickFresnel(wo, n core.Vec3, ior1, ior2 float64) float64 {
	f0 := (ior1 - ior2) / (ior1 + ior2)
	f0 *= f0
	return f0 + (1-f0)*math.Pow(1-wo.Dot(n), 5)
}
