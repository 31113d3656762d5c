// Package component defines the board components recognised by the
// detection models and the identification state carried for ICs.
package component

import (
	"fmt"
	"image"
	"math"

	"github.com/google/uuid"

	"pcb-inspector/pkg/geometry"
	"pcb-inspector/pkg/orderedmap"
)

// Type classifies a detected component.
type Type string

const (
	TypeIC        Type = "ic"
	TypeCapacitor Type = "cap"
	TypeResistor  Type = "res"
	TypeOther     Type = "other"
)

// AllTypes lists every component type in naming order.
func AllTypes() []Type {
	return []Type{TypeIC, TypeCapacitor, TypeResistor, TypeOther}
}

// ShortCode returns the label used when naming components, e.g. "IC 3".
func (t Type) ShortCode() string {
	switch t {
	case TypeIC:
		return "IC"
	case TypeCapacitor:
		return "CAP"
	case TypeResistor:
		return "RES"
	default:
		return "OTHER"
	}
}

// ImageInfo locates a component on the source image. Location is the
// top-left corner and Size the extent, both normalised to the image
// dimensions. SubImage holds the cropped component image when one has
// been extracted.
type ImageInfo struct {
	Location geometry.Point2D `json:"location"`
	Size     geometry.Size    `json:"size"`
	SubImage image.Image      `json:"-"`
}

// Bounds returns the component box in normalised coordinates.
func (i ImageInfo) Bounds() geometry.Rect {
	return geometry.NewRect(i.Location.X, i.Location.Y, i.Size.Width, i.Size.Height)
}

// PixelRect converts the normalised box to pixel coordinates for an
// image of the given dimensions.
func (i ImageInfo) PixelRect(width, height int) geometry.RectInt {
	return geometry.RectInt{
		X:      int(i.Location.X * float64(width)),
		Y:      int(i.Location.Y * float64(height)),
		Width:  int(i.Size.Width * float64(width)),
		Height: int(i.Size.Height * float64(height)),
	}
}

// Info is a detected component.
type Info struct {
	ID           string    `json:"id"`
	Type         Type      `json:"type"`
	ImageInfo    ImageInfo `json:"image_info"`
	InternalName string    `json:"internal_name"` // e.g. "IC 1", "CAP 3"
}

// NewInfo creates a component with a fresh identifier.
func NewInfo(t Type, imageInfo ImageInfo, name string) Info {
	return Info{
		ID:           uuid.NewString(),
		Type:         t,
		ImageInfo:    imageInfo,
		InternalName: name,
	}
}

// InfoState tracks how far IC identification has progressed.
type InfoState string

const (
	StateUnloaded     InfoState = "unloaded"      // No extraction attempted yet
	StateLoaded       InfoState = "loaded"        // Details found
	StateNotAvailable InfoState = "not_available" // Lookup ran but found nothing
	StateWebLoaded    InfoState = "web_loaded"    // User picked a web result
	StateNoText       InfoState = "no_text"       // Nothing readable on the package
)

// ICInfo carries the identification details of an IC component.
type ICInfo struct {
	BaseInfo    Info            `json:"base_info"`
	Description *orderedmap.Map `json:"description"` // Attribute name to value
	RawText     []string        `json:"raw_text,omitempty"`
	State       InfoState       `json:"state"`
	Note        string          `json:"note,omitempty"`
	InfoURL     string          `json:"info_url,omitempty"`
}

// NewICInfo wraps a detected component in an empty identification record.
func NewICInfo(base Info) ICInfo {
	return ICInfo{
		BaseInfo:    base,
		Description: orderedmap.New(),
		State:       StateUnloaded,
	}
}

// SetWebInfo records a user-chosen web page as the information source.
// Only an IC without automatic details can take one.
func (ic *ICInfo) SetWebInfo(url string) error {
	if ic.State != StateNotAvailable {
		return fmt.Errorf("cannot set web info in state %q", ic.State)
	}
	ic.InfoURL = url
	ic.State = StateWebLoaded
	return nil
}

// ClearWebInfo removes a previously chosen web page.
func (ic *ICInfo) ClearWebInfo() error {
	if ic.State != StateWebLoaded {
		return fmt.Errorf("cannot clear web info in state %q", ic.State)
	}
	ic.InfoURL = ""
	ic.State = StateNotAvailable
	return nil
}

// Orientation describes how the source image was rotated when captured.
type Orientation string

const (
	OrientationUp    Orientation = "up"
	OrientationLeft  Orientation = "left"
	OrientationRight Orientation = "right"
	OrientationDown  Orientation = "down"
)

// RotationRadians returns the rotation needed to upright an image
// captured in this orientation.
func (o Orientation) RotationRadians() float64 {
	switch o {
	case OrientationLeft:
		return -math.Pi / 2
	case OrientationRight:
		return math.Pi / 2
	case OrientationDown:
		return math.Pi
	default:
		return 0
	}
}

// Remap transforms a normalised detection box from sensor coordinates to
// display coordinates for this orientation.
func (o Orientation) Remap(r geometry.Rect) geometry.Rect {
	cx := r.X + r.Width/2
	cy := r.Y + r.Height/2
	switch o {
	case OrientationLeft:
		return geometry.NewRect(cy-r.Height/2, 1-cx-r.Width/2, r.Height, r.Width)
	case OrientationRight:
		return geometry.NewRect(1-cy-r.Height/2, cx-r.Width/2, r.Height, r.Width)
	case OrientationDown:
		return geometry.NewRect(1-cx-r.Width/2, 1-cy-r.Height/2, r.Width, r.Height)
	default:
		return r
	}
}

// Classifier maps model class indices to component types.
type Classifier map[int]Type

// LargeModelClasses is the class mapping of the whole-image model.
func LargeModelClasses() Classifier {
	return Classifier{0: TypeCapacitor, 1: TypeIC}
}

// SmallModelClasses is the class mapping of the tile model.
func SmallModelClasses() Classifier {
	return Classifier{0: TypeCapacitor, 1: TypeResistor}
}

// TypeOf resolves a class index, defaulting to TypeOther.
func (c Classifier) TypeOf(class int) Type {
	if t, ok := c[class]; ok {
		return t
	}
	return TypeOther
}

// AssignNames renames components sequentially per type, in place.
// Components detected across image tiles arrive with per-tile numbering,
// so a global pass is needed to make names unique.
func AssignNames(infos []Info) {
	for _, t := range AllTypes() {
		count := 1
		for i := range infos {
			if infos[i].Type == t {
				infos[i].InternalName = fmt.Sprintf("%s %d", t.ShortCode(), count)
				count++
			}
		}
	}
}
