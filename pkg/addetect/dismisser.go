package addetect

import (
	"fmt"
	"time"

	"github.com/devicelab-dev/screenlens/pkg/config"
	"github.com/devicelab-dev/screenlens/pkg/core"
	"github.com/devicelab-dev/screenlens/pkg/logger"
)

// Screen supplies the fresh snapshots and the tap primitive the dismissal
// loop needs between attempts.
type Screen interface {
	// Refresh returns a new structural snapshot after a dismissal tap.
	Refresh() ([]core.UnifiedElement, error)

	// Size returns the resolution for denormalizing the close centroid.
	Size() core.ScreenSize

	// Tap issues a tap at device pixel coordinates.
	Tap(x, y int) error
}

// Dismisser runs the bounded detect-tap-settle loop. It never blocks its
// caller indefinitely and never fails the surrounding extraction; the worst
// outcome is a warning annotation.
type Dismisser struct {
	cfg      config.Ads
	detector *Detector
	screen   Screen
	sleep    func()
}

// NewDismisser creates a dismisser around the given screen.
func NewDismisser(cfg config.Ads, screen Screen) *Dismisser {
	return &Dismisser{
		cfg:      cfg,
		detector: New(cfg),
		screen:   screen,
		sleep:    func() { time.Sleep(config.Seconds(cfg.SettleDelaySeconds)) },
	}
}

// Detector exposes the underlying scorer for detection-only callers.
func (d *Dismisser) Detector() *Detector {
	return d.detector
}

// AutoClose attempts to dismiss overlay ads in the snapshot, re-scoring a
// fresh snapshot after each tap. Returns the removal record together with
// the last snapshot so the caller can reuse it without re-extracting.
func (d *Dismisser) AutoClose(elements []core.UnifiedElement) (*core.AdRemoval, []core.UnifiedElement) {
	removal := &core.AdRemoval{Attempts: []core.DismissAttempt{}}
	current := elements

	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		detection := d.detector.Detect(current)
		record := core.DismissAttempt{
			Attempt:    attempt,
			Confidence: detection.Confidence,
			Reasoning:  detection.Reasoning,
		}

		if detection.Confidence < d.cfg.AutoThreshold {
			record.Action = "skipped - confidence below threshold"
			removal.Attempts = append(removal.Attempts, record)
			break
		}
		if detection.CloseElement == nil {
			record.Action = "stopped - no close element found"
			removal.Attempts = append(removal.Attempts, record)
			break
		}

		x, y := d.closeCoordinates(detection.CloseElement)
		if err := d.screen.Tap(x, y); err != nil {
			logger.Warn("addetect: tap at (%d,%d) failed: %v", x, y, err)
			record.Action = fmt.Sprintf("tap failed: %v", err)
			removal.Attempts = append(removal.Attempts, record)
			break
		}

		removal.AdsClosed++
		record.Action = fmt.Sprintf("closed ad at (%d,%d)", x, y)
		removal.Attempts = append(removal.Attempts, record)
		logger.Info("addetect: closed ad at (%d,%d), confidence %d", x, y, detection.Confidence)

		d.sleep()

		fresh, err := d.screen.Refresh()
		if err != nil {
			logger.Warn("addetect: refresh after dismissal failed: %v", err)
			break
		}
		current = fresh
	}

	final := d.detector.Detect(current)
	if final.Confidence >= d.cfg.WarningThreshold {
		removal.Warning = "possible unremoved ads detected, verify the screen before continuing"
		logger.Warn("addetect: final confidence %d still above warning threshold", final.Confidence)
	}

	return removal, current
}

// closeCoordinates denormalizes the close centroid against the resolution
// captured with the element itself, falling back to the screen's current
// size and then the reference frame.
func (d *Dismisser) closeCoordinates(e *core.UnifiedElement) (int, int) {
	size := e.Metadata.ScreenSize
	if size.Width <= 0 || size.Height <= 0 {
		size = d.screen.Size()
	}
	if size.Width <= 0 || size.Height <= 0 {
		size = core.ScreenSize{Width: d.cfg.ReferenceWidth, Height: d.cfg.ReferenceHeight}
	}
	return e.ScreenCoordinates(size.Width, size.Height, 0)
}
