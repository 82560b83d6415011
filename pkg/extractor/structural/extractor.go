// Package structural derives unified elements from the device's
// accessibility-tree dump.
package structural

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/devicelab-dev/screenlens/pkg/core"
	"github.com/devicelab-dev/screenlens/pkg/logger"
)

// dumpPathRe matches the file path reported by uiautomator dump. The
// "hierchary" typo is verbatim framework output.
var dumpPathRe = regexp.MustCompile(`dumped to: (\S+\.xml)`)

// fallbackScreen is used when the device refuses to report its resolution.
var fallbackScreen = core.ScreenSize{Width: 1080, Height: 1920}

// Extractor dumps and parses the accessibility tree into unified elements.
type Extractor struct {
	gateway core.Gateway
	ttl     time.Duration

	mu         sync.Mutex
	cached     []core.UnifiedElement
	cachedAt   time.Time
	lastScreen core.ScreenSize
}

// New creates a structural extractor with the given cache TTL.
func New(gateway core.Gateway, ttl time.Duration) *Extractor {
	return &Extractor{
		gateway:    gateway,
		ttl:        ttl,
		lastScreen: fallbackScreen,
	}
}

// Extract returns one unified element per tree node. Per-element problems
// (unparsable bounds) are tolerated; only a failed dump or a wholly
// unparsable document yields an error, and then the element list is empty.
func (x *Extractor) Extract(useCache bool) ([]core.UnifiedElement, error) {
	if useCache {
		x.mu.Lock()
		if x.cached != nil && time.Since(x.cachedAt) < x.ttl {
			elements := x.cached
			x.mu.Unlock()
			logger.Debug("structural: serving %d cached elements", len(elements))
			return elements, nil
		}
		x.mu.Unlock()
	}

	xmlData, err := x.fetchDump()
	if err != nil {
		logger.Error("structural: dump failed: %v", err)
		return nil, core.ErrDumpFailed.WithCause(err)
	}

	screen := x.screenSize()

	elements, err := ParseHierarchy(xmlData, screen)
	if err != nil {
		logger.Error("structural: parse failed: %v", err)
		return nil, core.ErrParseFailed.WithCause(err)
	}

	Enrich(elements)

	x.mu.Lock()
	x.cached = elements
	x.cachedAt = time.Now()
	x.mu.Unlock()

	logger.Info("structural: extracted %d elements", len(elements))
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

// fetchDump triggers a device-side dump and retrieves the document.
func (x *Extractor) fetchDump() (string, error) {
	out, err := x.gateway.Shell("uiautomator dump")
	if err != nil {
		return "", fmt.Errorf("uiautomator dump: %w", err)
	}

	m := dumpPathRe.FindStringSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("dump output did not name a file: %q", strings.TrimSpace(out))
	}

	xmlData, err := x.gateway.Shell("cat " + m[1])
	if err != nil {
		return "", fmt.Errorf("read dump file: %w", err)
	}
	if strings.TrimSpace(xmlData) == "" {
		return "", fmt.Errorf("dump file %s is empty", m[1])
	}
	return xmlData, nil
}

func (x *Extractor) screenSize() core.ScreenSize {
	w, h, err := x.gateway.ScreenSize()
	x.mu.Lock()
	defer x.mu.Unlock()
	if err != nil || w <= 0 || h <= 0 {
		logger.Warn("structural: screen size unavailable, using %dx%d", x.lastScreen.Width, x.lastScreen.Height)
		return x.lastScreen
	}
	x.lastScreen = core.ScreenSize{Width: w, Height: h}
	return x.lastScreen
}
