package core

import "fmt"

// ExtractionMode selects which extractor the scheduler runs.
type ExtractionMode string

// ExtractionMode values
const (
	ModeAuto           ExtractionMode = "auto"            // resolved at call time
	ModeStructuralOnly ExtractionMode = "structural_only" // accessibility tree only
	ModeVisualOnly     ExtractionMode = "visual_only"     // vision service only
	ModeHybrid         ExtractionMode = "hybrid"          // both, visual ranked first
)

// ParseMode validates a mode string.
func ParseMode(s string) (ExtractionMode, error) {
	switch ExtractionMode(s) {
	case ModeAuto, ModeStructuralOnly, ModeVisualOnly, ModeHybrid:
		return ExtractionMode(s), nil
	}
	return "", fmt.Errorf("unknown extraction mode %q", s)
}

// PlaybackState is the media-playback signal used to resolve ModeAuto.
type PlaybackState string

// PlaybackState values
const (
	PlaybackUnknown PlaybackState = "unknown"
	PlaybackPlaying PlaybackState = "playing"
	PlaybackStopped PlaybackState = "stopped"
)
