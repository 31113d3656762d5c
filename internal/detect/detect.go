// Package detect turns raw oriented-bounding-box model output into
// component detections.
//
// The models emit a flat tensor of shape [1][4+classes+1][n]: box centre
// and size channels first, then one score channel per class, then the box
// rotation angle. This package decodes that layout, applies confidence
// filtering and non-maximum suppression, and remaps detections found in
// image tiles back onto the whole image.
package detect

import (
	"fmt"
	"math"
	"sort"

	"pcb-inspector/pkg/geometry"
)

// Config describes a model's output layout and the filtering thresholds.
type Config struct {
	TargetWidth         int     // Model input width in pixels
	TargetHeight        int     // Model input height in pixels
	ClassCount          int     // Number of class score channels
	ConfidenceThreshold float64 // Minimum class score, exclusive
	IoUThreshold        float64 // Same-class suppression threshold
}

// WholeImageConfig is the layout of the large-component model, which runs
// on the full board image.
func WholeImageConfig() Config {
	return Config{
		TargetWidth:         960,
		TargetHeight:        960,
		ClassCount:          2,
		ConfidenceThreshold: 0.2,
		IoUThreshold:        0.5,
	}
}

// TileConfig is the layout of the small-component model, which runs on
// image tiles.
func TileConfig() Config {
	return Config{
		TargetWidth:         640,
		TargetHeight:        640,
		ClassCount:          2,
		ConfidenceThreshold: 0.2,
		IoUThreshold:        0.5,
	}
}

// Detection is a decoded model prediction. The box is in top-left form
// with all coordinates normalised to the model input dimensions, so a
// detection can be applied to the source image at any resolution.
type Detection struct {
	Box        geometry.Rect
	Class      int
	Confidence float64
}

// Area returns the normalised area of the detection box.
func (d Detection) Area() float64 {
	return d.Box.Area()
}

// ParseOBB decodes a flat output tensor using the given layout and
// returns the surviving detections after confidence filtering and
// non-maximum suppression.
//
// Boxes predicted at close to a quarter-turn rotation have their width
// and height swapped, which approximates the rotation well enough for
// axis-aligned cropping.
func ParseOBB(data []float32, cfg Config) ([]Detection, error) {
	if cfg.ClassCount < 1 {
		return nil, fmt.Errorf("class count must be positive, got %d", cfg.ClassCount)
	}
	channels := 4 + cfg.ClassCount + 1
	if len(data)%channels != 0 {
		return nil, fmt.Errorf("tensor length %d is not divisible by %d channels", len(data), channels)
	}
	rows := len(data) / channels

	at := func(channel, row int) float64 {
		return float64(data[channel*rows+row])
	}

	var detections []Detection
	for r := 0; r < rows; r++ {
		class := 0
		score := 0.0
		for c := 0; c < cfg.ClassCount; c++ {
			if s := at(4+c, r); s > score {
				class = c
				score = s
			}
		}
		if score <= cfg.ConfidenceThreshold {
			continue
		}

		theta := at(4+cfg.ClassCount, r)
		rotated := math.Abs(theta-math.Pi/2) < 0.5

		x := at(0, r) / float64(cfg.TargetWidth)
		y := at(1, r) / float64(cfg.TargetHeight)
		w := at(2, r) / float64(cfg.TargetWidth)
		h := at(3, r) / float64(cfg.TargetHeight)
		if rotated {
			w, h = h, w
		}

		detections = append(detections, Detection{
			Box:        geometry.NewRect(x-w/2, y-h/2, w, h),
			Class:      class,
			Confidence: score,
		})
	}

	return NonMaxSuppression(detections, cfg.IoUThreshold), nil
}

// NonMaxSuppression removes detections that overlap an earlier detection
// of the same class with IoU at or above the threshold. Detections of
// different classes never suppress each other. The input order decides
// precedence, so callers sort by whatever priority they want first.
func NonMaxSuppression(detections []Detection, iouThreshold float64) []Detection {
	remaining := make([]Detection, len(detections))
	copy(remaining, detections)

	var kept []Detection
	for len(remaining) > 0 {
		current := remaining[0]
		remaining = remaining[1:]
		kept = append(kept, current)

		survivors := remaining[:0]
		for _, d := range remaining {
			if d.Class == current.Class && current.Box.IoU(d.Box) >= iouThreshold {
				continue
			}
			survivors = append(survivors, d)
		}
		remaining = survivors
	}
	return kept
}

// SortByArea orders detections largest first, in place.
func SortByArea(detections []Detection) {
	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Area() > detections[j].Area()
	})
}

// RemapToGlobal converts a detection made on one tile of a grid×grid
// split back into whole-image coordinates.
func RemapToGlobal(d Detection, grid, col, row int) Detection {
	scale := 1 / float64(grid)
	d.Box = geometry.NewRect(
		float64(col)*scale+d.Box.X*scale,
		float64(row)*scale+d.Box.Y*scale,
		d.Box.Width*scale,
		d.Box.Height*scale,
	)
	return d
}
