package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/skitaoka/LensSim/pkg/core"
	"github.com/skitaoka/LensSim/pkg/film"
	"github.com/skitaoka/LensSim/pkg/lens"
	"github.com/skitaoka/LensSim/pkg/loaders"
)

// DefaultLogger implements core.Logger by writing to stdout
type DefaultLogger struct{}

func (dl *DefaultLogger) Printf(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

func main() {
	// Parse command line flags
	lensPath := flag.String("lens", "", "Path to a lens description JSON file")
	focusDist := flag.Float64("focus", 0, "Object distance to focus at, in meters (0 = keep the described spacing)")
	size := flag.Int("size", 256, "Vignetting map size in pixels")
	samples := flag.Int("samples", 64, "Exit pupil samples per map pixel")
	seed := flag.Int64("seed", 1, "Random seed for exit pupil sampling")
	help := flag.Bool("help", false, "Show help information")
	flag.Parse()

	// Show help if requested
	if *help || *lensPath == "" {
		fmt.Println("Lens System Simulator")
		fmt.Println("Usage: lenssim -lens <description.json> [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		fmt.Println()
		fmt.Println("Prints the cardinal data of the lens and saves a vignetting map")
		fmt.Println("to output/vignetting_<timestamp>.png")
		return
	}

	// Load the lens description and build the system against a full-frame sensor
	elements, err := loaders.LoadLens(*lensPath)
	if err != nil {
		fmt.Printf("Error loading lens: %v\n", err)
		return
	}

	sensor, err := film.NewFilm(*size, *size, 0.036, 0.024)
	if err != nil {
		fmt.Printf("Error creating film: %v\n", err)
		return
	}

	fmt.Printf("Building lens system from %s (%d elements)...\n", *lensPath, len(elements))
	system, err := lens.NewSystem(elements, sensor)
	if err != nil {
		fmt.Printf("Error building lens system: %v\n", err)
		return
	}

	if *focusDist > 0 {
		if err := system.Focus(-*focusDist); err != nil {
			fmt.Printf("Error focusing: %v\n", err)
			return
		}
		fmt.Printf("Focused at %.3g m\n", *focusDist)
	}

	printCardinalData(system)

	// Render the vignetting map
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(*seed)))

	startTime := time.Now()
	img := renderVignettingMap(system, *samples, sampler, &DefaultLogger{})
	fmt.Printf("Vignetting map rendered in %v\n", time.Since(startTime))

	outputDir := "output"
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Printf("Error creating output directory: %v\n", err)
		return
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(outputDir, fmt.Sprintf("vignetting_%s.png", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		fmt.Printf("Error creating file: %v\n", err)
		return
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		fmt.Printf("Error saving PNG: %v\n", err)
		return
	}

	fmt.Printf("Vignetting map saved as %s\n", filename)
}

func printCardinalData(system *lens.System) {
	fmt.Println("Cardinal data:")
	fmt.Printf("  object focal z:      %12.6g m\n", system.ObjectFocalZ())
	fmt.Printf("  object principal z:  %12.6g m\n", system.ObjectPrincipalZ())
	fmt.Printf("  object focal length: %12.6g m\n", system.ObjectFocalLength())
	fmt.Printf("  image focal z:       %12.6g m\n", system.ImageFocalZ())
	fmt.Printf("  image principal z:   %12.6g m\n", system.ImagePrincipalZ())
	fmt.Printf("  image focal length:  %12.6g m\n", system.ImageFocalLength())
}

// renderVignettingMap rasterizes the fraction of exit pupil samples that
// traverse the stack, per sensor pixel, as a grayscale image
func renderVignettingMap(system *lens.System, samples int, sampler core.Sampler, logger core.Logger) *image.Gray {
	sensor := system.Film()
	img := image.NewGray(image.Rect(0, 0, sensor.Width, sensor.Height))

	for j := 0; j < sensor.Height; j++ {
		for i := 0; i < sensor.Width; i++ {
			u, v := sensor.PixelPosition(i, j)
			fraction := system.Vignetting(u, v, samples, sampler)
			img.SetGray(i, j, color.Gray{Y: uint8(fraction*255.0 + 0.5)})
		}
		if (j+1)%64 == 0 || j == sensor.Height-1 {
			logger.Printf("Rendered %d/%d rows\n", j+1, sensor.Height)
		}
	}

	return img
}
