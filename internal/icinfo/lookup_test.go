package icinfo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pcb-inspector/internal/component"
	"pcb-inspector/internal/partsapi"
)

type fakeLookup struct {
	records map[string]*partsapi.PartRecord
	errs    map[string]error
	calls   []string
}

func (f *fakeLookup) Search(_ context.Context, code string) (*partsapi.PartRecord, error) {
	f.calls = append(f.calls, code)
	if err := f.errs[code]; err != nil {
		return nil, err
	}
	return f.records[code], nil
}

func TestResolveSingleNoText(t *testing.T) {
	lookup := &fakeLookup{}
	r := testResolver(lookup)

	result := r.ResolveSingle(context.Background(), nil)

	assert.Equal(t, component.StateNoText, result.State)
	assert.Nil(t, result.Details)
	assert.False(t, result.IsError)
	assert.Empty(t, lookup.calls)
}

func TestResolveSingleLoaded(t *testing.T) {
	lookup := &fakeLookup{records: map[string]*partsapi.PartRecord{
		"BCM2837B0": {
			Manufacturer: "Broadcom Limited",
			Name:         "BCM2837B0",
			PartNumber:   "BCM2837B0",
			Category:     "Microprocessors",
		},
	}}
	r := testResolver(lookup)

	result := r.ResolveSingle(context.Background(), []string{"BROADCOM", "BCM2837B0", "2451"})

	assert.Equal(t, component.StateLoaded, result.State)
	require.NotNil(t, result.Details)
	manufacturerName, _ := result.Details.Get("Manufacturer")
	assert.Equal(t, "Broadcom Limited", manufacturerName)
	partNumber, _ := result.Details.Get("Part Number")
	assert.Equal(t, "BCM2837B0", partNumber)
	date, ok := result.Details.Get("Potential Manufacture Date")
	assert.True(t, ok)
	assert.Equal(t, "51st week of 2024", date)

	// The first hit ends the search.
	assert.Equal(t, []string{"BCM2837B0"}, lookup.calls)
}

func TestResolveSingleNoResults(t *testing.T) {
	lookup := &fakeLookup{}
	r := testResolver(lookup)

	result := r.ResolveSingle(context.Background(), []string{"BROADCOM", "BCM2837B0", "2451"})

	assert.Equal(t, component.StateNotAvailable, result.State)
	assert.False(t, result.IsError)
	require.NotNil(t, result.Details)

	manufacturerName, _ := result.Details.Get("Manufacturer")
	assert.Equal(t, "Broadcom", manufacturerName)
	code, _ := result.Details.Get("Most Likely Code")
	assert.Equal(t, "BCM2837B0", code)
	line1, _ := result.Details.Get("Line 1")
	assert.Equal(t, "2451", line1)

	// Too many misread-prone characters in the code for a wildcard retry.
	assert.Equal(t, []string{"BCM2837B0", "2451"}, lookup.calls)
}

func TestResolveSingleLookupError(t *testing.T) {
	lookup := &fakeLookup{errs: map[string]error{
		"BCM2837B0": errors.New("network down"),
	}}
	r := testResolver(lookup)

	result := r.ResolveSingle(context.Background(), []string{"BROADCOM", "BCM2837B0", "2451"})

	assert.Equal(t, component.StateUnloaded, result.State)
	assert.True(t, result.IsError)
	require.NotNil(t, result.Details)

	// The failed lookup stops the remaining candidates.
	assert.Equal(t, []string{"BCM2837B0"}, lookup.calls)
}

func TestResolveSingleMismatchedResultSkipped(t *testing.T) {
	lookup := &fakeLookup{records: map[string]*partsapi.PartRecord{
		"BCM2837B0": {PartNumber: "TPS65217", Manufacturer: "Texas Instruments"},
	}}
	r := testResolver(lookup)

	result := r.ResolveSingle(context.Background(), []string{"BROADCOM", "BCM2837B0", "2451"})

	assert.Equal(t, component.StateNotAvailable, result.State)
	code, _ := result.Details.Get("Most Likely Code")
	assert.Equal(t, "BCM2837B0", code)
}

func TestResolveSingleWildcardRetry(t *testing.T) {
	lookup := &fakeLookup{records: map[string]*partsapi.PartRecord{
		"*NE??6N*": {
			Manufacturer: "Texas Instruments",
			PartNumber:   "NE556N",
			Name:         "NE556N",
		},
	}}
	r := testResolver(lookup)

	result := r.ResolveSingle(context.Background(), []string{"TEXAS INSTRUMENTS", "NE556N"})

	assert.Equal(t, component.StateLoaded, result.State)
	partNumber, _ := result.Details.Get("Part Number")
	assert.Equal(t, "NE556N", partNumber)
	assert.Equal(t, []string{"NE556N", "*NE??6N*"}, lookup.calls)
}

func TestResolveSingleWildcardManufacturerMismatch(t *testing.T) {
	lookup := &fakeLookup{records: map[string]*partsapi.PartRecord{
		"*NE??6N*": {
			Manufacturer: "Analog Devices",
			PartNumber:   "NE556N",
		},
	}}
	r := testResolver(lookup)

	result := r.ResolveSingle(context.Background(), []string{"TEXAS INSTRUMENTS", "NE556N"})

	assert.Equal(t, component.StateNotAvailable, result.State)
	manufacturerName, _ := result.Details.Get("Manufacturer")
	assert.Equal(t, "Texas Instruments", manufacturerName)
}

func TestResolveSingleWildcardGates(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"too short", "NE55A"},
		{"starts with digit", "556NEA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := &fakeLookup{}
			r := testResolver(lookup)

			result := r.ResolveSingle(context.Background(), []string{tt.line})

			assert.Equal(t, component.StateNotAvailable, result.State)
			assert.Equal(t, []string{tt.line}, lookup.calls, "no wildcard search expected")
		})
	}
}

func TestResolveSingleNilLookup(t *testing.T) {
	r := testResolver(nil)

	result := r.ResolveSingle(context.Background(), []string{"BROADCOM", "BCM2837B0"})

	assert.Equal(t, component.StateNotAvailable, result.State)
	require.NotNil(t, result.Details)
}
