// Package imageops prepares board and component images for model
// inference and text extraction.
package imageops

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/stat"

	"pcb-inspector/pkg/geometry"
)

// Grayscale converts an image to 8-bit grayscale.
func Grayscale(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}
	return gray
}

// Section splits an image into an n×n grid of tiles, returned row-major.
// Tile dimensions are the integer division of the image dimensions, so
// remainder pixels at the right and bottom edges are dropped.
func Section(img image.Image, n int) [][]image.Image {
	if n <= 0 {
		return nil
	}
	bounds := img.Bounds()
	strideX := bounds.Dx() / n
	strideY := bounds.Dy() / n

	tiles := make([][]image.Image, n)
	for row := 0; row < n; row++ {
		tiles[row] = make([]image.Image, n)
		for col := 0; col < n; col++ {
			r := image.Rect(
				bounds.Min.X+col*strideX,
				bounds.Min.Y+row*strideY,
				bounds.Min.X+(col+1)*strideX,
				bounds.Min.Y+(row+1)*strideY,
			)
			tiles[row][col] = imaging.Crop(img, r)
		}
	}
	return tiles
}

// CropNormalized cuts the region described by a normalised rectangle out
// of an image.
func CropNormalized(img image.Image, r geometry.Rect) image.Image {
	bounds := img.Bounds()
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	rect := image.Rect(
		bounds.Min.X+int(r.X*w),
		bounds.Min.Y+int(r.Y*h),
		bounds.Min.X+int((r.X+r.Width)*w),
		bounds.Min.Y+int((r.Y+r.Height)*h),
	)
	return imaging.Crop(img, rect)
}

// Rotate turns an image counter-clockwise by the given angle.
func Rotate(img image.Image, radians float64) image.Image {
	degrees := radians / math.Pi * 180
	return imaging.Rotate(img, degrees, color.Black)
}

// Resize scales an image to the given dimensions.
func Resize(img image.Image, width, height int) image.Image {
	return imaging.Resize(img, width, height, imaging.Lanczos)
}

// MeanAdaptiveThreshold binarises a grayscale image against the local
// mean of a window around each pixel. Pixels darker than the local mean
// minus the constant become black, everything else white. When the image
// is mostly dark it is inverted first, so printed text always ends up
// dark on light.
func MeanAdaptiveThreshold(gray *image.Gray, window, constant int) *image.Gray {
	if window%2 == 0 {
		window++
	}
	if averageValue(gray) < 128 {
		gray = Invert(gray)
	}

	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	means := localMeans(gray, window)

	out := image.NewGray(bounds)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := int(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			if v < means[y*w+x]-constant {
				out.SetGray(bounds.Min.X+x, bounds.Min.Y+y, color.Gray{Y: 0})
			} else {
				out.SetGray(bounds.Min.X+x, bounds.Min.Y+y, color.Gray{Y: 255})
			}
		}
	}
	return out
}

// BinariseForText runs the preprocessing used before OCR: a light blur
// to suppress sensor noise, then adaptive thresholding with a window
// derived from the image size.
func BinariseForText(img image.Image) *image.Gray {
	blurred := imaging.Blur(img, 1)
	gray := Grayscale(blurred)
	bounds := gray.Bounds()
	window := max(bounds.Dx(), bounds.Dy()) / 7
	if window < 3 {
		window = 3
	}
	return MeanAdaptiveThreshold(gray, window, 5)
}

// Invert flips every pixel of a grayscale image.
func Invert(gray *image.Gray) *image.Gray {
	bounds := gray.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			out.SetGray(x, y, color.Gray{Y: 255 - gray.GrayAt(x, y).Y})
		}
	}
	return out
}

// Blurriness levels, sharpest first.
const (
	BlurSharp = iota
	BlurModerate
	BlurHeavy
)

// BlurinessLevel estimates how blurred an image is from the spread of
// its Laplacian response. Returns BlurSharp, BlurModerate or BlurHeavy.
func BlurinessLevel(img image.Image) int {
	gray := Grayscale(img)
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 3 || h < 3 {
		return BlurHeavy
	}

	// 3x3 Laplacian over the image interior, on values scaled to [0,1].
	at := func(x, y int) float64 {
		return float64(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y) / 255
	}
	responses := make([]float64, 0, (w-2)*(h-2))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			v := 8*at(x, y) -
				at(x-1, y-1) - at(x, y-1) - at(x+1, y-1) -
				at(x-1, y) - at(x+1, y) -
				at(x-1, y+1) - at(x, y+1) - at(x+1, y+1)
			responses = append(responses, v)
		}
	}

	std := math.Sqrt(stat.Variance(responses, nil))
	switch {
	case std > 0.1:
		return BlurSharp
	case std > 0.05:
		return BlurModerate
	default:
		return BlurHeavy
	}
}

// averageValue returns the mean pixel value of a grayscale image.
func averageValue(gray *image.Gray) int {
	bounds := gray.Bounds()
	count := bounds.Dx() * bounds.Dy()
	if count == 0 {
		return 0
	}
	sum := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			sum += int(gray.GrayAt(x, y).Y)
		}
	}
	return sum / count
}

// localMeans computes the mean pixel value of a window centred on each
// pixel, using a summed-area table. Windows are clamped at the edges.
func localMeans(gray *image.Gray, window int) []int {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	radius := window / 2

	// integral[y][x] holds the sum of the rectangle [0,x) × [0,y).
	integral := make([]int, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		rowSum := 0
		for x := 0; x < w; x++ {
			rowSum += int(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			integral[(y+1)*(w+1)+x+1] = integral[y*(w+1)+x+1] + rowSum
		}
	}

	means := make([]int, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			x0 := max(0, x-radius)
			y0 := max(0, y-radius)
			x1 := min(w, x+radius+1)
			y1 := min(h, y+radius+1)
			sum := integral[y1*(w+1)+x1] - integral[y0*(w+1)+x1] -
				integral[y1*(w+1)+x0] + integral[y0*(w+1)+x0]
			means[y*w+x] = sum / ((x1 - x0) * (y1 - y0))
		}
	}
	return means
}
