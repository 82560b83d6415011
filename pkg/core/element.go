// Package core defines the unified element model shared by all extractors.
package core

// ElementType identifies which extraction source produced an element.
type ElementType string

// ElementType values
const (
	ElementStructural ElementType = "structural" // accessibility-tree node
	ElementVisual     ElementType = "visual"     // vision-service detection
)

// Source tags for element provenance.
const (
	SourceXMLExtractor = "xml_extractor"
	SourceOmniparser   = "omniparser"
)

// NormBounds is a normalized rectangle [x1, y1, x2, y2] in screen-fraction
// units. Both extractors emit bounds in this form so elements from different
// sources can be compared regardless of device resolution.
type NormBounds [4]float64

// Center returns the normalized centroid of the rectangle.
func (b NormBounds) Center() (float64, float64) {
	return (b[0] + b[2]) / 2, (b[1] + b[3]) / 2
}

// Valid reports whether all coordinates lie within [0, 1].
func (b NormBounds) Valid() bool {
	for _, v := range b {
		if v < 0 || v > 1 {
			return false
		}
	}
	return true
}

// ScreenSize records the device resolution at capture time.
type ScreenSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Metadata holds auxiliary per-element attributes. Known fields are typed;
// anything source-specific beyond them goes into Extra.
type Metadata struct {
	Path              string            `json:"path,omitempty"`
	RawBounds         string            `json:"raw_bounds,omitempty"`
	ContentDesc       string            `json:"content_desc,omitempty"`
	Enabled           bool              `json:"enabled,omitempty"`
	Focusable         bool              `json:"focusable,omitempty"`
	Scrollable        bool              `json:"scrollable,omitempty"`
	Checkable         bool              `json:"checkable,omitempty"`
	Checked           bool              `json:"checked,omitempty"`
	Selected          bool              `json:"selected,omitempty"`
	ChildrenCount     int               `json:"children_count,omitempty"`
	InferredClickable bool              `json:"inferred_clickable,omitempty"`
	ScreenSize        ScreenSize        `json:"screen_size,omitempty"`
	Extra             map[string]string `json:"extra,omitempty"`
}

// UnifiedElement is the canonical representation of one on-screen control,
// regardless of whether it came from the accessibility tree or the vision
// service.
type UnifiedElement struct {
	UUID        string      `json:"uuid"`
	ElementType ElementType `json:"element_type"`
	Name        string      `json:"name"`
	Text        string      `json:"text"`
	Package     string      `json:"package"`
	ResourceID  string      `json:"resource_id"`
	ClassName   string      `json:"class_name"`
	Clickable   bool        `json:"clickable"`
	Bounds      NormBounds  `json:"bounds"`
	CenterX     float64     `json:"center_x"`
	CenterY     float64     `json:"center_y"`
	Confidence  float64     `json:"confidence"`
	Source      string      `json:"source"`
	Metadata    Metadata    `json:"metadata"`
}

// ScreenCoordinates converts the normalized centroid to device pixels.
// biasFraction, when non-zero, shifts the y coordinate upward by that
// fraction of the screen height; media tiles commonly report their caption
// area as the hit target, so a small upward shift lands on the real control.
func (e *UnifiedElement) ScreenCoordinates(width, height int, biasFraction float64) (int, int) {
	x := int(e.CenterX * float64(width))
	y := int(e.CenterY * float64(height))
	if biasFraction > 0 {
		y -= int(float64(height) * biasFraction)
		if y < 0 {
			y = 0
		}
	}
	return x, y
}

// ContentDesc returns the element's content description, if any.
func (e *UnifiedElement) ContentDesc() string {
	return e.Metadata.ContentDesc
}
