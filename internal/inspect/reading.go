package inspect

import (
	"fmt"
	"image"

	"pcb-inspector/internal/imageops"
	"pcb-inspector/internal/ocr"
)

// TextReader extracts text lines from an image.
type TextReader interface {
	ExtractText(img image.Image) (ocr.TextResult, error)
}

// ReadPackage produces two readings of an IC package: one from the image
// as captured and one from a binarised copy that isolates the printed
// markings. The two readings disagree often enough that downstream
// identification arbitrates between them. A failed binarised pass is
// reported as an empty reading since the plain one may still be usable.
func ReadPackage(reader TextReader, img image.Image) (raw, binarised []string, err error) {
	raw, err = readLevelled(reader, img)
	if err != nil {
		return nil, nil, fmt.Errorf("reading package text: %w", err)
	}

	binarised, err = readLevelled(reader, imageops.BinariseForText(img))
	if err != nil {
		log.WithError(err).Warn("Binarised reading failed")
		binarised = nil
	}
	return raw, binarised, nil
}

// readLevelled extracts text and, when the lines come back rotated,
// levels the image and reads it again.
func readLevelled(reader TextReader, img image.Image) ([]string, error) {
	result, err := reader.ExtractText(img)
	if err != nil {
		return nil, err
	}
	if result.Rotation == 0 {
		return result.Lines, nil
	}

	levelled, err := reader.ExtractText(imageops.Rotate(img, result.Rotation))
	if err != nil {
		return nil, err
	}
	return levelled.Lines, nil
}
