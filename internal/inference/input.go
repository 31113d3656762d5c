package inference

import (
	"image"

	"pcb-inspector/internal/imageops"
)

// ImageToTensor resizes an image to the model input dimensions and lays
// it out as an RGB float tensor with values in [0, 1], channel-last.
func ImageToTensor(img image.Image, width, height int) []float32 {
	resized := imageops.Resize(img, width, height)
	bounds := resized.Bounds()

	tensor := make([]float32, 0, width*height*3)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			tensor = append(tensor,
				float32(r)/65535,
				float32(g)/65535,
				float32(b)/65535,
			)
		}
	}
	return tensor
}
