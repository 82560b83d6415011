// Package scheduler picks the extraction strategy and presents one
// consistent element schema to callers no matter which source produced it.
package scheduler

import (
	"strings"
	"sync"
	"time"

	"github.com/devicelab-dev/screenlens/pkg/core"
	"github.com/devicelab-dev/screenlens/pkg/extractor/structural"
	"github.com/devicelab-dev/screenlens/pkg/extractor/visual"
	"github.com/devicelab-dev/screenlens/pkg/logger"
	"github.com/devicelab-dev/screenlens/pkg/playback"
)

type cacheEntry struct {
	elements []core.UnifiedElement
	at       time.Time
}

// Scheduler owns both extractors, the playback detector, and the unified
// result cache. Construct one per device; it carries no global state.
type Scheduler struct {
	gateway    core.Gateway
	structural *structural.Extractor
	visual     *visual.Extractor
	detector   *playback.Detector
	unifiedTTL time.Duration

	mu           sync.Mutex
	defaultMode  core.ExtractionMode
	lastResolved core.ExtractionMode
	cache        map[core.ExtractionMode]cacheEntry
}

// New creates a scheduler. The default mode is auto until a caller overrides
// it.
func New(gateway core.Gateway, s *structural.Extractor, v *visual.Extractor, d *playback.Detector, unifiedTTL time.Duration) *Scheduler {
	return &Scheduler{
		gateway:     gateway,
		structural:  s,
		visual:      v,
		detector:    d,
		unifiedTTL:  unifiedTTL,
		defaultMode: core.ModeAuto,
		cache:       make(map[core.ExtractionMode]cacheEntry),
	}
}

// SetMode overrides the default extraction mode. The override persists until
// changed again.
func (s *Scheduler) SetMode(mode core.ExtractionMode) {
	s.mu.Lock()
	s.defaultMode = mode
	s.mu.Unlock()
	logger.Info("scheduler: default mode set to %s", mode)
}

// Mode returns the current default extraction mode.
func (s *Scheduler) Mode() core.ExtractionMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaultMode
}

// ResolveAuto decides which extractor auto mode should trust right now.
func (s *Scheduler) ResolveAuto() core.ExtractionMode {
	if !core.Ready(s.gateway.ConnectionStatus()) {
		logger.Warn("scheduler: device not ready, forcing structural mode")
		return core.ModeStructuralOnly
	}

	state := s.detector.Detect()
	if state == core.PlaybackPlaying {
		if s.visual.Healthy() {
			logger.Info("scheduler: media playing, selecting visual mode")
			return core.ModeVisualOnly
		}
		logger.Warn("scheduler: media playing but vision service unavailable, degrading to structural mode")
		return core.ModeStructuralOnly
	}

	// The tree is authoritative and cheap whenever vision has no advantage
	return core.ModeStructuralOnly
}

// ExtractUnified extracts elements using the given mode (ModeAuto resolves
// via the playback heuristic) and returns the resolved mode alongside them.
// Visual failures degrade once to structural; only a structural failure is
// terminal, surfacing an empty result with the error.
func (s *Scheduler) ExtractUnified(mode core.ExtractionMode, useCache bool) ([]core.UnifiedElement, core.ExtractionMode, error) {
	if mode == "" || mode == core.ModeAuto {
		if m := s.Mode(); m != core.ModeAuto {
			mode = m
		} else {
			mode = s.ResolveAuto()
		}
	}

	if useCache {
		s.mu.Lock()
		if entry, ok := s.cache[mode]; ok && time.Since(entry.at) < s.unifiedTTL {
			s.lastResolved = mode
			s.mu.Unlock()
			logger.Debug("scheduler: serving cached %s result", mode)
			return entry.elements, mode, nil
		}
		s.mu.Unlock()
	}

	elements, err := s.extract(mode, useCache)
	if err != nil && mode != core.ModeStructuralOnly {
		logger.Warn("scheduler: %s extraction failed (%v), degrading to structural mode", mode, err)
		mode = core.ModeStructuralOnly
		elements, err = s.extract(mode, useCache)
	}
	if err != nil {
		return nil, mode, err
	}

	s.mu.Lock()
	s.cache[mode] = cacheEntry{elements: elements, at: time.Now()}
	s.lastResolved = mode
	s.mu.Unlock()

	logger.Info("scheduler: %s mode yielded %d elements", mode, len(elements))
	return elements, mode, nil
}

func (s *Scheduler) extract(mode core.ExtractionMode, useCache bool) ([]core.UnifiedElement, error) {
	switch mode {
	case core.ModeVisualOnly:
		return s.visual.Extract(useCache)
	case core.ModeHybrid:
		// Visual first: vision sees the front-most layer, so overlays rank
		// ahead of the tree's occluded nodes.
		visualElems, err := s.visual.Extract(useCache)
		if err != nil {
			return nil, err
		}
		structuralElems, err := s.structural.Extract(useCache)
		if err != nil {
			return nil, err
		}
		merged := make([]core.UnifiedElement, 0, len(visualElems)+len(structuralElems))
		merged = append(merged, visualElems...)
		merged = append(merged, structuralElems...)
		return merged, nil
	default:
		return s.structural.Extract(useCache)
	}
}

// InvalidateCache drops all cached results, forcing the next extraction to
// hit the device.
func (s *Scheduler) InvalidateCache() {
	s.mu.Lock()
	s.cache = make(map[core.ExtractionMode]cacheEntry)
	s.mu.Unlock()
	s.structural.Invalidate()
	s.visual.Invalidate()
}

// ScreenSize returns the resolution captured by the extractor that produced
// the most recent snapshot, so coordinates stay consistent with the
// extraction that produced them. Both extractors track the screen
// independently; a visual-only session never runs the structural extractor.
func (s *Scheduler) ScreenSize() core.ScreenSize {
	s.mu.Lock()
	mode := s.lastResolved
	s.mu.Unlock()
	if mode == core.ModeVisualOnly {
		return s.visual.LastScreenSize()
	}
	return s.structural.LastScreenSize()
}

// PlaybackState reports the detector's current (possibly cached) state.
func (s *Scheduler) PlaybackState() core.PlaybackState {
	return s.detector.Detect()
}

// Elements builds the JSON-serializable extraction result for callers,
// optionally filtered by package substring.
func (s *Scheduler) Elements(mode core.ExtractionMode, useCache bool, filterPackage string) *core.ExtractionResult {
	elements, resolved, err := s.ExtractUnified(mode, useCache)
	if err != nil {
		return &core.ExtractionResult{
			Status:         core.StatusError,
			Message:        err.Error(),
			Elements:       []core.UnifiedElement{},
			ExtractionMode: resolved,
			PlaybackState:  s.PlaybackState(),
		}
	}

	if filterPackage != "" {
		filtered := make([]core.UnifiedElement, 0, len(elements))
		for _, e := range elements {
			if strings.Contains(e.Package, filterPackage) {
				filtered = append(filtered, e)
			}
		}
		elements = filtered
	}

	result := &core.ExtractionResult{
		Status:         core.StatusSuccess,
		Elements:       elements,
		ExtractionMode: resolved,
		PlaybackState:  s.PlaybackState(),
	}
	result.Summarize()
	return result
}

// Info reports the scheduler's current decision inputs.
func (s *Scheduler) Info() *core.ModeInfo {
	return &core.ModeInfo{
		Status:          core.StatusSuccess,
		CurrentMode:     s.Mode(),
		PlaybackState:   s.PlaybackState(),
		VisionAvailable: s.visual.Healthy(),
		ScreenSize:      s.ScreenSize(),
	}
}
