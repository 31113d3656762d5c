// Package ocr extracts the text printed on IC packages.
package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"pcb-inspector/pkg/geometry"
)

var log = logrus.New()

// PackageChars is the character set expected on IC packages. Lowercase
// is excluded to reduce confusion (0/O, 1/I, etc.)
const PackageChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ-/"

// TextResult holds the text read from a component image, along with the
// rotation that would bring the text upright.
type TextResult struct {
	Lines    []string
	Rotation float64 // Radians
}

// Engine performs text extraction using Tesseract.
type Engine struct {
	client *gosseract.Client
}

// NewEngine creates a Tesseract-backed extraction engine.
func NewEngine() (*Engine, error) {
	client := gosseract.NewClient()

	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	// Disable dictionary-based word correction, part numbers are not
	// English words and must not be "fixed".
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")
	_ = client.SetVariable("language_model_penalty_non_dict_word", "0")
	_ = client.SetVariable("language_model_penalty_non_freq_dict_word", "0")

	return &Engine{client: client}, nil
}

// Close releases the Tesseract client.
func (e *Engine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// ExtractText reads the text lines off a component image and estimates
// the text orientation from the recognised line boxes.
func (e *Engine) ExtractText(img image.Image) (TextResult, error) {
	mat, err := toMat(img)
	if err != nil {
		return TextResult{}, err
	}
	defer mat.Close()

	processed := preprocess(mat)
	defer processed.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, processed)
	if err != nil {
		return TextResult{}, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	if err := e.client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		return TextResult{}, fmt.Errorf("failed to set PSM: %w", err)
	}
	if err := e.client.SetWhitelist(PackageChars); err != nil {
		return TextResult{}, fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return TextResult{}, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return TextResult{}, fmt.Errorf("text extraction failed: %w", err)
	}

	var lines []string
	var rects []geometry.RectInt
	for _, box := range boxes {
		text := strings.ToUpper(strings.TrimSpace(box.Word))
		if text == "" {
			continue
		}
		lines = append(lines, strings.Join(strings.Fields(text), " "))
		rects = append(rects, geometry.RectInt{
			X:      box.Box.Min.X,
			Y:      box.Box.Min.Y,
			Width:  box.Box.Dx(),
			Height: box.Box.Dy(),
		})
	}

	log.WithField("lines", len(lines)).Debug("Extracted text from component image")

	return TextResult{
		Lines:    lines,
		Rotation: DetermineRotation(rects),
	}, nil
}

// DetermineRotation votes on the text direction from the shapes of the
// recognised line boxes. Lines wider than tall vote for horizontal text,
// taller than wide for vertical. A single box is not enough evidence.
func DetermineRotation(boxes []geometry.RectInt) float64 {
	if len(boxes) < 2 {
		return 0
	}
	horizontal := 0
	vertical := 0
	for _, b := range boxes {
		if b.Height > b.Width {
			vertical++
		} else {
			horizontal++
		}
	}
	if horizontal >= vertical {
		return 0
	}
	return math.Pi / 2
}

// toMat converts a Go image into an OpenCV matrix.
func toMat(img image.Image) (gocv.Mat, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to encode image: %w", err)
	}
	mat, err := gocv.IMDecode(buf.Bytes(), gocv.IMReadColor)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to decode image: %w", err)
	}
	if mat.Empty() {
		return gocv.Mat{}, fmt.Errorf("empty image")
	}
	return mat, nil
}

// preprocess prepares a component image for text extraction: upscale
// small crops, boost local contrast, binarise, and normalise to dark
// text on a light background.
func preprocess(region gocv.Mat) gocv.Mat {
	h, w := region.Rows(), region.Cols()

	var scaled gocv.Mat
	if minDim := min(h, w); minDim < 150 {
		scale := 150.0 / float64(minDim)
		scaled = gocv.NewMat()
		gocv.Resize(region, &scaled, image.Point{}, scale, scale, gocv.InterpolationCubic)
	} else {
		scaled = region.Clone()
	}

	gray := gocv.NewMat()
	gocv.CvtColor(scaled, &gray, gocv.ColorBGRToGray)
	scaled.Close()

	clahe := gocv.NewCLAHEWithParams(2.0, image.Point{X: 8, Y: 8})
	defer clahe.Close()

	enhanced := gocv.NewMat()
	clahe.Apply(gray, &enhanced)
	gray.Close()

	binary := gocv.NewMat()
	gocv.Threshold(enhanced, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	enhanced.Close()

	// IC markings are usually light on dark; Tesseract wants the
	// opposite.
	whiteCount := gocv.CountNonZero(binary)
	totalPixels := binary.Rows() * binary.Cols()
	if float64(whiteCount)/float64(totalPixels) > 0.5 {
		gocv.BitwiseNot(binary, &binary)
	}

	result := gocv.NewMat()
	gocv.CvtColor(binary, &result, gocv.ColorGrayToBGR)
	binary.Close()

	return result
}
