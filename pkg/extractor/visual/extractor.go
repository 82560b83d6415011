package visual

import (
	"encoding/base64"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devicelab-dev/screenlens/pkg/core"
	"github.com/devicelab-dev/screenlens/pkg/logger"
)

// Options controls detection-to-element mapping.
type Options struct {
	// UsePaddleOCR is forwarded to the service; nil leaves the choice to the
	// server.
	UsePaddleOCR *bool

	// AssumeInteractive treats every detection as tappable regardless of the
	// service's interactivity flag.
	AssumeInteractive bool
}

// Extractor captures a screenshot, submits it for analysis, and maps the
// detections into unified elements.
type Extractor struct {
	gateway core.Gateway
	client  *Client
	opts    Options
	ttl     time.Duration

	mu         sync.Mutex
	cached     []core.UnifiedElement
	cachedAt   time.Time
	lastScreen core.ScreenSize
}

// New creates a visual extractor with the given cache TTL.
func New(gateway core.Gateway, client *Client, opts Options, ttl time.Duration) *Extractor {
	return &Extractor{
		gateway:    gateway,
		client:     client,
		opts:       opts,
		ttl:        ttl,
		lastScreen: core.ScreenSize{Width: 1080, Height: 1920},
	}
}

// Healthy re-probes the vision service. Never cached.
func (x *Extractor) Healthy() bool {
	return x.client.HealthCheck()
}

// Extract returns one unified element per vision detection. Transport and
// service failures come back as errors with empty element lists; the
// scheduler owns the structural fallback.
func (x *Extractor) Extract(useCache bool) ([]core.UnifiedElement, error) {
	if useCache {
		x.mu.Lock()
		if x.cached != nil && time.Since(x.cachedAt) < x.ttl {
			elements := x.cached
			x.mu.Unlock()
			logger.Debug("visual: serving %d cached elements", len(elements))
			return elements, nil
		}
		x.mu.Unlock()
	}

	if !x.client.HealthCheck() {
		return nil, core.ErrVisionUnavailable
	}

	png, err := x.gateway.Screenshot()
	if err != nil {
		logger.Error("visual: screenshot failed: %v", err)
		return nil, core.ErrVisionUnavailable.WithMessage("screenshot capture failed").WithCause(err)
	}

	parsed, err := x.client.Parse(base64.StdEncoding.EncodeToString(png), x.opts.UsePaddleOCR)
	if err != nil {
		return nil, core.ErrVisionUnavailable.WithCause(err)
	}

	screen := x.screenSize()

	elements := make([]core.UnifiedElement, 0, len(parsed.ParsedContentList))
	for _, det := range parsed.ParsedContentList {
		elements = append(elements, x.unify(det, screen))
	}

	x.mu.Lock()
	x.cached = elements
	x.cachedAt = time.Now()
	x.mu.Unlock()

	logger.Info("visual: extracted %d elements (service latency %.2fs)", len(elements), parsed.Latency)
	return elements, nil
}

// LastScreenSize returns the resolution captured by the most recent
// extraction.
func (x *Extractor) LastScreenSize() core.ScreenSize {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.lastScreen
}

// Invalidate drops the cached snapshot.
func (x *Extractor) Invalidate() {
	x.mu.Lock()
	x.cached = nil
	x.mu.Unlock()
}

func (x *Extractor) unify(det Detection, screen core.ScreenSize) core.UnifiedElement {
	id := det.UUID
	if id == "" {
		id = uuid.NewString()
	}

	className := det.Type
	if className == "" {
		className = "visual_element"
	}

	clickable := det.Interactivity
	if x.opts.AssumeInteractive {
		clickable = true
	}

	confidence := 1.0
	if det.Confidence != nil {
		confidence = *det.Confidence
	}

	bounds := core.NormBounds{
		clamp01(det.Bbox[0]),
		clamp01(det.Bbox[1]),
		clamp01(det.Bbox[2]),
		clamp01(det.Bbox[3]),
	}
	cx, cy := bounds.Center()

	return core.UnifiedElement{
		UUID:        id,
		ElementType: core.ElementVisual,
		Name:        det.Content,
		Text:        det.Content,
		ClassName:   className,
		Clickable:   clickable,
		Bounds:      bounds,
		CenterX:     cx,
		CenterY:     cy,
		Confidence:  confidence,
		Source:      core.SourceOmniparser,
		Metadata: core.Metadata{
			ScreenSize: screen,
			Extra: map[string]string{
				"detector_type":   det.Type,
				"detector_source": det.Source,
			},
		},
	}
}

func (x *Extractor) screenSize() core.ScreenSize {
	w, h, err := x.gateway.ScreenSize()
	x.mu.Lock()
	defer x.mu.Unlock()
	if err != nil || w <= 0 || h <= 0 {
		return x.lastScreen
	}
	x.lastScreen = core.ScreenSize{Width: w, Height: h}
	return x.lastScreen
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
