// Package inspect runs the component detection pipeline: model inference
// over the board image, decoding into typed components, and sub-image
// preparation for the ICs found.
package inspect

import (
	"fmt"
	"image"
	"strconv"

	"github.com/sirupsen/logrus"

	"pcb-inspector/internal/component"
	"pcb-inspector/internal/detect"
	"pcb-inspector/internal/imageops"
	"pcb-inspector/internal/inference"
	"pcb-inspector/pkg/geometry"
)

var log = logrus.New()

// Detector identifies components on board images. The large engine runs
// on the whole image and finds large parts; the small engine runs on
// image tiles and picks up the parts too small to resolve at full-board
// scale.
type Detector struct {
	large inference.Engine
	small inference.Engine
}

// NewDetector creates a detector over the two inference engines. Either
// engine may be nil when the corresponding mode is not used.
func NewDetector(large, small inference.Engine) *Detector {
	return &Detector{large: large, small: small}
}

// IdentifyComponents runs the large-component model over the whole image.
// Components are returned largest first, with ICs additionally cropped
// out and rotated upright for text extraction. Types listed in ignore
// are dropped; ignoring ICs empties the IC list.
func (d *Detector) IdentifyComponents(img image.Image, orientation component.Orientation, ignore []component.Type) ([]component.Info, []component.ICInfo, error) {
	cfg := detect.WholeImageConfig()
	detections, err := d.runModel(d.large, img, cfg)
	if err != nil {
		return nil, nil, err
	}
	detect.SortByArea(detections)

	comps, ics := buildComponents(detections, img, orientation, component.LargeModelClasses(), true)
	comps, ics = filterComponents(comps, ics, ignore)
	return comps, ics, nil
}

// IdentifyComponentsWindowed sections the image into windows x windows
// tiles and runs the small-component model on each one. A tile whose
// inference fails is skipped. Detections are remapped to whole-image
// coordinates, concatenated in row-major tile order and renamed so the
// per-type numbering is consistent across tiles.
func (d *Detector) IdentifyComponentsWindowed(img image.Image, orientation component.Orientation, windows int, ignore []component.Type) ([]component.Info, []component.ICInfo, error) {
	upright := imageops.Rotate(img, orientation.RotationRadians())
	tiles := imageops.Section(upright, windows)
	if tiles == nil {
		return nil, nil, fmt.Errorf("cannot section image into %d windows", windows)
	}

	cfg := detect.TileConfig()
	var comps []component.Info
	var ics []component.ICInfo
	for row := 0; row < windows; row++ {
		for col := 0; col < windows; col++ {
			detections, err := d.runModel(d.small, tiles[row][col], cfg)
			if err != nil {
				log.WithError(err).WithFields(logrus.Fields{
					"row": row,
					"col": col,
				}).Warn("Skipping failed tile")
				continue
			}

			// The tiles were cut from the upright image, so no
			// per-detection orientation fix is needed here.
			tileComps, tileICs := buildComponents(detections, tiles[row][col], component.OrientationUp, component.SmallModelClasses(), false)
			for i := range tileComps {
				tileComps[i].ImageInfo = remapTileInfo(tileComps[i].ImageInfo, windows, col, row)
			}
			for i := range tileICs {
				tileICs[i].BaseInfo.ImageInfo = remapTileInfo(tileICs[i].BaseInfo.ImageInfo, windows, col, row)
			}
			comps = append(comps, tileComps...)
			ics = append(ics, tileICs...)
		}
	}

	comps, ics = filterComponents(comps, ics, ignore)
	component.AssignNames(comps)
	return comps, ics, nil
}

// TypedBox pairs a component type with its detection box in centre form,
// for overlaying on a live view frame.
type TypedBox struct {
	Type component.Type
	Box  geometry.Rect
}

// IdentifySimple runs the large-component model with minimal processing
// for per-frame use. Failures yield an empty result rather than an
// error since the next frame follows immediately.
func (d *Detector) IdentifySimple(img image.Image) []TypedBox {
	cfg := detect.WholeImageConfig()
	detections, err := d.runModel(d.large, img, cfg)
	if err != nil {
		log.WithError(err).Debug("Frame detection failed")
		return nil
	}

	classes := component.LargeModelClasses()
	boxes := make([]TypedBox, len(detections))
	for i, det := range detections {
		boxes[i] = TypedBox{
			Type: classes.TypeOf(det.Class),
			Box: geometry.NewRect(
				det.Box.X+det.Box.Width/2,
				det.Box.Y+det.Box.Height/2,
				det.Box.Width,
				det.Box.Height,
			),
		}
	}
	return boxes
}

func (d *Detector) runModel(engine inference.Engine, img image.Image, cfg detect.Config) ([]detect.Detection, error) {
	if engine == nil {
		return nil, fmt.Errorf("no inference engine configured")
	}
	input := inference.ImageToTensor(img, cfg.TargetWidth, cfg.TargetHeight)
	output, err := engine.Invoke(input)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	detections, err := detect.ParseOBB(output, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing model output: %w", err)
	}
	return detections, nil
}

// buildComponents converts decoded detections into typed components,
// numbering each type in detection order. ICs get their sub-image cut
// from the base image and rotated upright.
func buildComponents(detections []detect.Detection, baseImage image.Image, orientation component.Orientation, classes component.Classifier, fixOrientation bool) ([]component.Info, []component.ICInfo) {
	var comps []component.Info
	var ics []component.ICInfo
	counts := make(map[component.Type]int)

	for _, det := range detections {
		box := det.Box
		if fixOrientation {
			box = orientation.Remap(box)
		}
		t := classes.TypeOf(det.Class)
		counts[t]++

		info := component.NewInfo(t, component.ImageInfo{
			Location: geometry.Point2D{X: box.X, Y: box.Y},
			Size:     geometry.Size{Width: box.Width, Height: box.Height},
		}, t.ShortCode()+" "+strconv.Itoa(counts[t]))

		if t == component.TypeIC {
			ics = append(ics, cropIC(info, baseImage, det, orientation))
		}
		comps = append(comps, info)
	}
	return comps, ics
}

// cropIC cuts the IC package out of the base image using the raw
// detection box and rotates it upright for reading.
func cropIC(base component.Info, baseImage image.Image, det detect.Detection, orientation component.Orientation) component.ICInfo {
	ic := component.NewICInfo(base)
	sub := imageops.CropNormalized(baseImage, det.Box)
	if sub != nil {
		ic.BaseInfo.ImageInfo.SubImage = imageops.Rotate(sub, orientation.RotationRadians())
	}
	return ic
}

func remapTileInfo(info component.ImageInfo, grid, col, row int) component.ImageInfo {
	scale := 1 / float64(grid)
	info.Location.X = float64(col)*scale + info.Location.X*scale
	info.Location.Y = float64(row)*scale + info.Location.Y*scale
	info.Size.Width *= scale
	info.Size.Height *= scale
	return info
}

func filterComponents(comps []component.Info, ics []component.ICInfo, ignore []component.Type) ([]component.Info, []component.ICInfo) {
	if len(ignore) == 0 {
		return comps, ics
	}
	ignored := make(map[component.Type]bool, len(ignore))
	for _, t := range ignore {
		ignored[t] = true
	}

	kept := comps[:0]
	for _, c := range comps {
		if !ignored[c.Type] {
			kept = append(kept, c)
		}
	}
	if ignored[component.TypeIC] {
		ics = nil
	}
	return kept, ics
}
