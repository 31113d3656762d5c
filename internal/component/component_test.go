package component

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pcb-inspector/pkg/geometry"
)

func TestNewInfoAssignsID(t *testing.T) {
	a := NewInfo(TypeIC, ImageInfo{}, "IC 1")
	b := NewInfo(TypeIC, ImageInfo{}, "IC 2")
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestImageInfoPixelRect(t *testing.T) {
	info := ImageInfo{
		Location: geometry.NewPoint2D(0.25, 0.5),
		Size:     geometry.NewSize(0.5, 0.25),
	}
	r := info.PixelRect(1000, 800)
	assert.Equal(t, geometry.RectInt{X: 250, Y: 400, Width: 500, Height: 200}, r)
}

func TestICInfoWebStates(t *testing.T) {
	base := NewInfo(TypeIC, ImageInfo{}, "IC 1")
	ic := NewICInfo(base)
	assert.Equal(t, StateUnloaded, ic.State)

	// Web info is only valid once a lookup has come back empty.
	require.Error(t, ic.SetWebInfo("https://example.com/part"))

	ic.State = StateNotAvailable
	require.NoError(t, ic.SetWebInfo("https://example.com/part"))
	assert.Equal(t, StateWebLoaded, ic.State)
	assert.Equal(t, "https://example.com/part", ic.InfoURL)

	require.NoError(t, ic.ClearWebInfo())
	assert.Equal(t, StateNotAvailable, ic.State)
	assert.Empty(t, ic.InfoURL)

	require.Error(t, ic.ClearWebInfo())
}

func TestOrientationRotationRadians(t *testing.T) {
	assert.Equal(t, 0.0, OrientationUp.RotationRadians())
	assert.Equal(t, -math.Pi/2, OrientationLeft.RotationRadians())
	assert.Equal(t, math.Pi/2, OrientationRight.RotationRadians())
	assert.Equal(t, math.Pi, OrientationDown.RotationRadians())
}

func TestOrientationRemap(t *testing.T) {
	box := geometry.NewRect(0.1, 0.2, 0.4, 0.2)

	t.Run("up is identity", func(t *testing.T) {
		assert.Equal(t, box, OrientationUp.Remap(box))
	})

	t.Run("down mirrors both axes", func(t *testing.T) {
		got := OrientationDown.Remap(box)
		assert.InDelta(t, 0.5, got.X, 1e-9)
		assert.InDelta(t, 0.6, got.Y, 1e-9)
		assert.InDelta(t, 0.4, got.Width, 1e-9)
		assert.InDelta(t, 0.2, got.Height, 1e-9)
	})

	t.Run("left swaps axes", func(t *testing.T) {
		got := OrientationLeft.Remap(box)
		assert.InDelta(t, 0.2, got.X, 1e-9)
		assert.InDelta(t, 0.5, got.Y, 1e-9)
		assert.InDelta(t, 0.2, got.Width, 1e-9)
		assert.InDelta(t, 0.4, got.Height, 1e-9)
	})

	t.Run("remap preserves area", func(t *testing.T) {
		for _, o := range []Orientation{OrientationUp, OrientationLeft, OrientationRight, OrientationDown} {
			got := o.Remap(box)
			assert.InDelta(t, box.Area(), got.Area(), 1e-9, "orientation %s", o)
		}
	})
}

func TestClassifier(t *testing.T) {
	large := LargeModelClasses()
	assert.Equal(t, TypeCapacitor, large.TypeOf(0))
	assert.Equal(t, TypeIC, large.TypeOf(1))
	assert.Equal(t, TypeOther, large.TypeOf(9))

	small := SmallModelClasses()
	assert.Equal(t, TypeResistor, small.TypeOf(1))
}

func TestAssignNames(t *testing.T) {
	infos := []Info{
		{Type: TypeCapacitor, InternalName: "CAP 1"},
		{Type: TypeIC, InternalName: "IC 1"},
		{Type: TypeCapacitor, InternalName: "CAP 1"},
		{Type: TypeResistor, InternalName: "RES 1"},
		{Type: TypeCapacitor, InternalName: "CAP 2"},
	}
	AssignNames(infos)
	assert.Equal(t, "CAP 1", infos[0].InternalName)
	assert.Equal(t, "IC 1", infos[1].InternalName)
	assert.Equal(t, "CAP 2", infos[2].InternalName)
	assert.Equal(t, "RES 1", infos[3].InternalName)
	assert.Equal(t, "CAP 3", infos[4].InternalName)
}
