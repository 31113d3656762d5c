package icinfo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pcb-inspector/internal/manufacturer"
)

func testResolver(lookup PartsLookup) *Resolver {
	db := manufacturer.New(
		[]string{"Broadcom", "Texas Instruments", "Nexperia"},
		map[string][]string{
			"Broadcom":          {"BCM"},
			"Texas Instruments": {"SN", "TMS", "TLC", "NE"},
		},
	)
	r := NewResolver(db, lookup)
	r.now = func() time.Time {
		return time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	}
	return r
}

func TestDetermineDetailsEmpty(t *testing.T) {
	r := testResolver(nil)

	assert.True(t, r.DetermineDetails(nil).IsEmpty())
	assert.True(t, r.DetermineDetails([]string{"IC", "A1"}).IsEmpty(), "short lines are noise")
}

func TestDetermineDetailsManufacturerLine(t *testing.T) {
	r := testResolver(nil)

	details := r.DetermineDetails([]string{"BROADCOM", "2451", "BCM2837B0"})

	require.Equal(t, Single{Name: "Broadcom"}, details.Manufacturer)
	assert.Equal(t, "BCM2837B0", details.MostLikelyCode, "the prefixed line outranks earlier lines")
	assert.Equal(t, []string{"2451"}, details.OtherLines)
	require.Len(t, details.Dates, 1)
	assert.Equal(t, 2024, details.Dates[0].Year)
	assert.Equal(t, 51, details.Dates[0].Week)
}

func TestDetermineDetailsLineOrdering(t *testing.T) {
	r := testResolver(nil)

	details := r.DetermineDetails([]string{"12345", "ABCDE", "AB123"})

	assert.Nil(t, details.Manufacturer)
	assert.Equal(t, "AB123", details.MostLikelyCode, "letter-led lines with digits come first")
	assert.Equal(t, []string{"ABCDE", "12345"}, details.OtherLines)
}

func TestDetermineDetailsDigitLinesLongestFirst(t *testing.T) {
	r := testResolver(nil)

	details := r.DetermineDetails([]string{"9876", "123456"})

	assert.Equal(t, "123456", details.MostLikelyCode)
	assert.Equal(t, []string{"9876"}, details.OtherLines)
}

func TestDetermineDetailsInfersManufacturerFromCode(t *testing.T) {
	r := testResolver(nil)

	details := r.DetermineDetails([]string{"4812", "BCM2837B0"})

	assert.Equal(t, Candidates{Names: []string{"Broadcom"}}, details.Manufacturer)
	assert.Equal(t, "BCM2837B0", details.MostLikelyCode)
	assert.Equal(t, []string{"4812"}, details.OtherLines)
}

func TestDetermineDetailsCleansLines(t *testing.T) {
	r := testResolver(nil)

	details := r.DetermineDetails([]string{"BCM-2837*"})

	assert.Equal(t, "BCM2837", details.MostLikelyCode)
}

func TestDetermineDetailsDatesIgnoreLikelyCode(t *testing.T) {
	r := testResolver(nil)

	// The likely code itself is not scanned for date codes.
	details := r.DetermineDetails([]string{"2451"})

	assert.Equal(t, "2451", details.MostLikelyCode)
	assert.Empty(t, details.Dates)
}
