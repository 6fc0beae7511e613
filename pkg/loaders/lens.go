package loaders

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/skitaoka/LensSim/pkg/lens"
)

// LensElementConfig is one element descriptor in a lens description file.
// Lengths are in millimeters, matching published lens patent tables; a
// curvature radius of exactly 0 identifies an aperture stop.
type LensElementConfig struct {
	Index            int     `json:"index"`
	CurvatureRadius  float64 `json:"curvature_radius"`
	Thickness        float64 `json:"thickness"`
	IOR              float64 `json:"eta"`
	ApertureDiameter float64 `json:"aperture_diameter"`
}

// ParseLens parses a JSON lens description: a keyed collection of element
// descriptors. Units are converted from millimeters to meters and the
// aperture diameter is halved to an aperture radius. All failures are
// returned to the caller; the element order is fixed later by the stack's
// index sort.
func ParseLens(reader io.Reader) ([]lens.Element, error) {
	var configs map[string]LensElementConfig
	if err := json.NewDecoder(reader).Decode(&configs); err != nil {
		return nil, fmt.Errorf("error parsing lens description: %v", err)
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("lens description contains no elements")
	}

	elements := make([]lens.Element, 0, len(configs))
	for _, cfg := range configs {
		apertureRadius := 0.5 * cfg.ApertureDiameter * 1e-3
		thickness := cfg.Thickness * 1e-3

		if cfg.CurvatureRadius == 0 {
			elements = append(elements, lens.NewAperture(cfg.Index, apertureRadius, thickness))
		} else {
			elements = append(elements, lens.NewLens(cfg.Index, apertureRadius, thickness, cfg.CurvatureRadius*1e-3, cfg.IOR))
		}
	}

	return elements, nil
}

// LoadLens reads and parses a lens description file
func LoadLens(path string) ([]lens.Element, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open lens description: %v", err)
	}
	defer file.Close()

	elements, err := ParseLens(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %v", path, err)
	}
	return elements, nil
}
