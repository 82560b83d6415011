// Package interact resolves tap targets against extraction snapshots and
// drives the gesture primitives.
package interact

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/devicelab-dev/screenlens/pkg/config"
	"github.com/devicelab-dev/screenlens/pkg/core"
	"github.com/devicelab-dev/screenlens/pkg/logger"
	"github.com/devicelab-dev/screenlens/pkg/scheduler"
)

// Manager taps elements by UUID or free-text query. It keeps its own view of
// the last snapshot so coordinates stay consistent with the extraction that
// produced them, re-extracting only when the snapshot goes stale.
type Manager struct {
	scheduler *scheduler.Scheduler
	gateway   core.Gateway
	cfg       config.Interaction

	mu         sync.Mutex
	snapshot   []core.UnifiedElement
	snapshotAt time.Time
	screen     core.ScreenSize
}

// New creates a manager over the given scheduler and gateway.
func New(sched *scheduler.Scheduler, gateway core.Gateway, cfg config.Interaction) *Manager {
	return &Manager{
		scheduler: sched,
		gateway:   gateway,
		cfg:       cfg,
	}
}

// Tap resolves the target as a UUID first and, failing that, as a text
// query with partial matching. Resolution failures come back as error
// results, never as Go errors.
func (m *Manager) Tap(target string, bias bool) *core.TapResult {
	elements, err := m.currentSnapshot(false)
	if err != nil {
		return errorResult(target, fmt.Sprintf("extraction failed: %v", err))
	}

	for i := range elements {
		if elements[i].UUID == target {
			return m.tapElement(&elements[i], target, bias, "")
		}
	}
	return m.tapByQuery(elements, target, true, bias)
}

// TapByUUID taps the element with the exact UUID.
func (m *Manager) TapByUUID(uuid string, bias bool) *core.TapResult {
	elements, err := m.currentSnapshot(false)
	if err != nil {
		return errorResult(uuid, fmt.Sprintf("extraction failed: %v", err))
	}
	for i := range elements {
		if elements[i].UUID == uuid {
			return m.tapElement(&elements[i], uuid, bias, "")
		}
	}
	return errorResult(uuid, fmt.Sprintf("no element with uuid %q", uuid))
}

// TapByText taps the first clickable element whose text or name matches the
// query, falling back to the first match overall with a warning.
func (m *Manager) TapByText(query string, partial, bias bool) *core.TapResult {
	elements, err := m.currentSnapshot(false)
	if err != nil {
		return errorResult(query, fmt.Sprintf("extraction failed: %v", err))
	}
	return m.tapByQuery(elements, query, partial, bias)
}

func (m *Manager) tapByQuery(elements []core.UnifiedElement, query string, partial, bias bool) *core.TapResult {
	matches := scheduler.FilterByText(elements, query, partial)
	if len(matches) == 0 {
		return errorResult(query, fmt.Sprintf("no element matches %q", query))
	}

	for i := range matches {
		if matches[i].Clickable {
			return m.tapElement(&matches[i], query, bias, "")
		}
	}

	logger.Warn("interact: no clickable match for %q, using first match", query)
	return m.tapElement(&matches[0], query, bias, "no clickable match, tapped first match")
}

// Refresh drops the held snapshot so the next resolution re-extracts.
func (m *Manager) Refresh() {
	m.mu.Lock()
	m.snapshot = nil
	m.mu.Unlock()
}

// currentSnapshot returns the held snapshot, re-extracting when absent,
// stale, or forced.
func (m *Manager) currentSnapshot(force bool) ([]core.UnifiedElement, error) {
	m.mu.Lock()
	stale := m.snapshot == nil || time.Since(m.snapshotAt) > config.Seconds(m.cfg.StaleAfterSeconds)
	if !force && !stale {
		elements := m.snapshot
		m.mu.Unlock()
		return elements, nil
	}
	m.mu.Unlock()

	elements, _, err := m.scheduler.ExtractUnified(core.ModeAuto, true)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.snapshot = elements
	m.snapshotAt = time.Now()
	m.screen = m.scheduler.ScreenSize()
	m.mu.Unlock()
	return elements, nil
}

func (m *Manager) tapElement(e *core.UnifiedElement, query string, bias bool, warning string) *core.TapResult {
	// The element's own capture resolution wins: the snapshot may have come
	// from either extractor, each tracking the screen independently.
	screen := e.Metadata.ScreenSize
	if screen.Width <= 0 || screen.Height <= 0 {
		m.mu.Lock()
		screen = m.screen
		m.mu.Unlock()
	}
	if screen.Width <= 0 || screen.Height <= 0 {
		screen = core.ScreenSize{Width: 1080, Height: 1920}
	}

	fraction := 0.0
	if bias {
		fraction = m.cfg.BiasFraction
	}
	x, y := e.ScreenCoordinates(screen.Width, screen.Height, fraction)

	if err := m.gateway.Tap(x, y); err != nil {
		logger.Error("interact: tap %s at (%d,%d) failed: %v", e.UUID, x, y, err)
		return &core.TapResult{
			Status:  core.StatusError,
			Message: fmt.Sprintf("tap failed: %v", err),
			Query:   query,
			Element: e,
		}
	}

	logger.Info("interact: tapped %s at (%d,%d), bias=%v", e.UUID, x, y, bias)
	status := core.StatusSuccess
	message := fmt.Sprintf("tapped element %s", e.UUID)
	if warning != "" {
		status = core.StatusWarning
		message = fmt.Sprintf("tapped element %s (%s)", e.UUID, warning)
	}
	return &core.TapResult{
		Status:      status,
		Message:     message,
		Query:       query,
		Element:     e,
		Coordinates: &core.Coordinates{X: x, Y: y},
		BiasApplied: bias,
	}
}

func errorResult(query, message string) *core.TapResult {
	return &core.TapResult{
		Status:  core.StatusError,
		Message: message,
		Query:   query,
	}
}

// ShouldBias reports whether the content names media that usually needs the
// upward tap bias: tiles whose caption sits below the real hit target.
func ShouldBias(content string) bool {
	lower := strings.ToLower(content)
	for _, kw := range mediaKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// mediaKeywords flag program/video content in English and Chinese.
var mediaKeywords = []string{
	"program", "video", "show", "episode", "movie", "tv", "play", "stream", "channel",
	"节目", "视频", "四宫格视频", "电视剧", "电影", "综艺", "直播", "播放",
}
