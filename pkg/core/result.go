package core

// Status tags every result returned across the package boundary.
type Status string

// Status values
const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusWarning Status = "warning"
)

// Statistics summarizes an extraction snapshot.
type Statistics struct {
	StructuralElements int `json:"structural_elements"`
	VisualElements     int `json:"visual_elements"`
	ClickableElements  int `json:"clickable_elements"`
	TextElements       int `json:"text_elements"`
}

// ExtractionResult is the JSON-serializable unified extraction payload
// produced for callers.
type ExtractionResult struct {
	Status         Status           `json:"status"`
	Message        string           `json:"message,omitempty"`
	TotalCount     int              `json:"total_count"`
	Elements       []UnifiedElement `json:"elements"`
	ExtractionMode ExtractionMode   `json:"extraction_mode"`
	PlaybackState  PlaybackState    `json:"playback_state,omitempty"`
	Statistics     *Statistics      `json:"statistics,omitempty"`
	AdDetection    *AdDetection     `json:"ad_detection,omitempty"`
	AdRemoval      *AdRemoval       `json:"ad_removal,omitempty"`
}

// Summarize fills the statistics block from the element list.
func (r *ExtractionResult) Summarize() {
	stats := Statistics{}
	for i := range r.Elements {
		e := &r.Elements[i]
		switch e.ElementType {
		case ElementStructural:
			stats.StructuralElements++
		case ElementVisual:
			stats.VisualElements++
		}
		if e.Clickable {
			stats.ClickableElements++
		}
		if e.Text != "" {
			stats.TextElements++
		}
	}
	r.TotalCount = len(r.Elements)
	r.Statistics = &stats
}

// Coordinates is a pixel position on the device screen.
type Coordinates struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// TapResult reports the outcome of a tap-by-uuid or tap-by-text operation.
type TapResult struct {
	Status      Status          `json:"status"`
	Message     string          `json:"message"`
	Query       string          `json:"query,omitempty"`
	Element     *UnifiedElement `json:"element,omitempty"`
	Coordinates *Coordinates    `json:"coordinates,omitempty"`
	BiasApplied bool            `json:"bias_applied"`
}

// AdDetection is the confidence-scored result of one advertisement scan.
// Computed fresh from each snapshot, never stored.
type AdDetection struct {
	Confidence   int              `json:"confidence"`
	CloseElement *UnifiedElement  `json:"close_element,omitempty"`
	AdElements   []UnifiedElement `json:"ad_elements"`
	Reasoning    string           `json:"reasoning"`
}

// DismissAttempt records one iteration of the ad-dismissal loop.
type DismissAttempt struct {
	Attempt    int    `json:"attempt"`
	Confidence int    `json:"confidence"`
	Reasoning  string `json:"reasoning"`
	Action     string `json:"action"`
}

// AdRemoval summarizes an auto-dismissal pass. Warning is set when the final
// snapshot still scores at or above the warning threshold; it never blocks
// the surrounding extraction.
type AdRemoval struct {
	AdsClosed int              `json:"ads_closed"`
	Attempts  []DismissAttempt `json:"attempts"`
	Warning   string           `json:"warning,omitempty"`
}

// ModeInfo describes the scheduler's current decision inputs.
type ModeInfo struct {
	Status          Status         `json:"status"`
	CurrentMode     ExtractionMode `json:"current_mode"`
	PlaybackState   PlaybackState  `json:"playback_state"`
	VisionAvailable bool           `json:"vision_available"`
	ScreenSize      ScreenSize     `json:"screen_size"`
}
