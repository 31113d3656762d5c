package strdist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"identical", "BCM2837", "BCM2837", 0},
		{"single substitution", "AB12C", "AB13C", 1},
		{"case insensitive", "bcm2837", "BCM2837", 0},
		{"replaced run", "ATMEGA328", "ATMEGA168", 2},
		{"trailing addition", "BCM2837", "BCM2837B0", 2},
		{"completely different", "STM32", "NE555", 5},
		{"empty against text", "", "ABC", 3},
		{"both empty", "", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Distance(tt.a, tt.b, false))
		})
	}
}

func TestDistanceSymmetry(t *testing.T) {
	pairs := [][2]string{
		{"BCM2837", "BCM2838"},
		{"AB12C", "12"},
		{"ATMEGA328", "ATMEGA168P"},
	}
	for _, p := range pairs {
		assert.Equal(t, Distance(p[0], p[1], false), Distance(p[1], p[0], false),
			"distance should be symmetric for %q / %q", p[0], p[1])
	}
}

func TestDistanceSimilar(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"identical", "BCM2837", "BCM2837", 0},
		{"B for 8", "B123", "8123", 1},
		{"O for 0", "LM3O8", "LM308", 1},
		{"S for 5", "NE5S0", "NE550", 1},
		{"several confusions", "8CM2B37", "BCM2837", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Distance(tt.a, tt.b, true))
		})
	}
}

func TestDistanceSimilarRejectsUnrelated(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"Z is not B", "B123", "Z123"},
		{"plain typo", "STM32", "STM42"},
		{"no confusable partner in longer run", "ABC", "AXYC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, Inf, Distance(tt.a, tt.b, true))
		})
	}
}

func TestContainedDistance(t *testing.T) {
	tests := []struct {
		name            string
		larger, smaller string
		want            int
	}{
		{"exact substring", "AB12C", "12", 0},
		{"one mismatch", "AB13C", "12", 1},
		{"split match", "AB182C", "12", Inf},
		{"prefix match", "BCM2837B0", "BCM2837", 0},
		{"case insensitive", "bcm2837b0", "BCM2837", 0},
		{"wildcard never mismatches", "BCM2837B0", "BCM28?7", 0},
		{"wildcard with real mismatch", "BCM2937B0", "BCM28?7", 1},
		// Fully changed masks still align, so every position counts
		// as a mismatch rather than rejecting outright.
		{"nothing in common", "NE555", "XYZQ", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainedDistance(tt.larger, tt.smaller))
		})
	}
}
