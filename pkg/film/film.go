package film

import (
	"fmt"
	"math"

	"github.com/skitaoka/LensSim/pkg/core"
)

// Film represents the sensor plane the lens system images onto.
// The sensor sits on the optical axis at z=0, centered on the axis,
// with physical dimensions in meters.
type Film struct {
	Width        int     // Horizontal resolution in pixels
	Height       int     // Vertical resolution in pixels
	SensorWidth  float64 // Physical sensor width in meters
	SensorHeight float64 // Physical sensor height in meters
}

// NewFilm creates a film with the given resolution and physical size
func NewFilm(width, height int, sensorWidth, sensorHeight float64) (*Film, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("film resolution must be positive, got %dx%d", width, height)
	}
	if sensorWidth <= 0 || sensorHeight <= 0 {
		return nil, fmt.Errorf("film sensor size must be positive, got %gx%g", sensorWidth, sensorHeight)
	}
	return &Film{
		Width:        width,
		Height:       height,
		SensorWidth:  sensorWidth,
		SensorHeight: sensorHeight,
	}, nil
}

// Diagonal returns the physical diagonal length of the sensor in meters
func (f *Film) Diagonal() float64 {
	return math.Sqrt(f.SensorWidth*f.SensorWidth + f.SensorHeight*f.SensorHeight)
}

// PhysicalPosition maps normalized sensor coordinates u,v in [-1,1]
// to a physical point on the sensor plane. (0,0) is the optical axis.
func (f *Film) PhysicalPosition(u, v float64) core.Vec2 {
	return core.NewVec2(0.5*u*f.SensorWidth, 0.5*v*f.SensorHeight)
}

// PixelPosition returns the normalized coordinates of the center of pixel (i, j)
func (f *Film) PixelPosition(i, j int) (u, v float64) {
	u = 2.0*(float64(i)+0.5)/float64(f.Width) - 1.0
	v = 2.0*(float64(j)+0.5)/float64(f.Height) - 1.0
	return u, v
}
