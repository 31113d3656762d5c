package inspect

import (
	"errors"
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pcb-inspector/internal/ocr"
)

type fakeReader struct {
	results []ocr.TextResult
	errs    []error
	calls   int
}

func (f *fakeReader) ExtractText(_ image.Image) (ocr.TextResult, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return ocr.TextResult{}, f.errs[i]
	}
	return f.results[i], nil
}

func TestReadPackage(t *testing.T) {
	reader := &fakeReader{results: []ocr.TextResult{
		{Lines: []string{"BROADCOM", "BCM2837B0"}},
		{Lines: []string{"BCM2837B0", "2451"}},
	}}

	raw, binarised, err := ReadPackage(reader, testImage(64))
	require.NoError(t, err)
	assert.Equal(t, []string{"BROADCOM", "BCM2837B0"}, raw)
	assert.Equal(t, []string{"BCM2837B0", "2451"}, binarised)
	assert.Equal(t, 2, reader.calls)
}

func TestReadPackageLevelsRotatedText(t *testing.T) {
	reader := &fakeReader{results: []ocr.TextResult{
		{Lines: []string{"8C"}, Rotation: math.Pi / 2},
		{Lines: []string{"BCM2837B0"}},
		{Lines: []string{"2451"}},
	}}

	raw, binarised, err := ReadPackage(reader, testImage(64))
	require.NoError(t, err)
	assert.Equal(t, []string{"BCM2837B0"}, raw, "re-read after levelling")
	assert.Equal(t, []string{"2451"}, binarised)
	assert.Equal(t, 3, reader.calls)
}

func TestReadPackageError(t *testing.T) {
	reader := &fakeReader{errs: []error{errors.New("tesseract not available")}}

	_, _, err := ReadPackage(reader, testImage(64))
	assert.Error(t, err)
}

func TestReadPackageBinarisedFailureTolerated(t *testing.T) {
	reader := &fakeReader{
		results: []ocr.TextResult{{Lines: []string{"NE556N"}}, {}},
		errs:    []error{nil, errors.New("boom")},
	}

	raw, binarised, err := ReadPackage(reader, testImage(64))
	require.NoError(t, err)
	assert.Equal(t, []string{"NE556N"}, raw)
	assert.Nil(t, binarised)
}
