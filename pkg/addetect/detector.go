// Package addetect scores screens for overlay advertisements and drives the
// automatic dismissal loop. Detection is a rule-additive confidence score,
// not a classifier, so every verdict carries the trail of rules that fired.
package addetect

import (
	"fmt"
	"math"
	"strings"

	"github.com/devicelab-dev/screenlens/pkg/config"
	"github.com/devicelab-dev/screenlens/pkg/core"
)

// Keyword sets scanned against resource-id, name, text, and class name.
// "mivad"/"mivclose" cover the localized ad SDK seen on TV devices.
var (
	adKeywords    = []string{"ad", "advertisement", "banner", "mivad"}
	closeKeywords = []string{"close", "dismiss", "cancel", "mivclose", "×", "✕"}
)

// Detector scores element snapshots. Stateless; safe for concurrent use.
type Detector struct {
	cfg config.Ads
}

// New creates a detector with the given thresholds.
func New(cfg config.Ads) *Detector {
	return &Detector{cfg: cfg}
}

// Detect scores one snapshot. Rules, each clamped so the total stays within
// [0, 100]:
//   - fewer than 10 elements on screen: +20
//   - ad keyword in any scanned field: +30 per element, first keyword wins
//   - close keyword in any scanned field: +25, element recorded as the
//     close candidate; +15 more when that element is clickable
//   - an ad element within the proximity radius of the close candidate: +10
func (d *Detector) Detect(elements []core.UnifiedElement) *core.AdDetection {
	confidence := 0
	var reasons []string
	var adElements []core.UnifiedElement
	var closeElement *core.UnifiedElement

	if len(elements) < 10 {
		confidence += 20
		reasons = append(reasons, fmt.Sprintf("few elements (%d<10)", len(elements)))
	}

	for i := range elements {
		e := &elements[i]
		fields := scanFields(e)

		if kw := matchKeyword(fields, adKeywords); kw != "" {
			adElements = append(adElements, *e)
			confidence = clamp(confidence + 30)
			reasons = append(reasons, fmt.Sprintf("found ad keyword %q", kw))
		}

		if kw := matchKeyword(fields, closeKeywords); kw != "" {
			closeElement = e
			confidence = clamp(confidence + 25)
			reasons = append(reasons, fmt.Sprintf("found close keyword %q", kw))
			if e.Clickable {
				confidence = clamp(confidence + 15)
				reasons = append(reasons, "close element is clickable")
			}
		}
	}

	if closeElement != nil {
		for i := range adElements {
			if d.distance(&adElements[i], closeElement) < d.cfg.ProximityPx {
				confidence = clamp(confidence + 10)
				reasons = append(reasons, "ad and close elements are proximate")
				break
			}
		}
	}

	reasoning := "no ad indicators found"
	if len(reasons) > 0 {
		reasoning = strings.Join(reasons, "; ")
	}
	if adElements == nil {
		adElements = []core.UnifiedElement{}
	}

	return &core.AdDetection{
		Confidence:   confidence,
		CloseElement: closeElement,
		AdElements:   adElements,
		Reasoning:    reasoning,
	}
}

// distance measures centroid separation in reference-frame pixels.
func (d *Detector) distance(a, b *core.UnifiedElement) float64 {
	w := float64(d.cfg.ReferenceWidth)
	h := float64(d.cfg.ReferenceHeight)
	dx := (a.CenterX - b.CenterX) * w
	dy := (a.CenterY - b.CenterY) * h
	return math.Sqrt(dx*dx + dy*dy)
}

func scanFields(e *core.UnifiedElement) []string {
	return []string{
		strings.ToLower(e.ResourceID),
		strings.ToLower(e.Name),
		strings.ToLower(e.Text),
		strings.ToLower(e.ClassName),
	}
}

// matchKeyword returns the first keyword present in any field.
func matchKeyword(fields, keywords []string) string {
	for _, kw := range keywords {
		for _, f := range fields {
			if strings.Contains(f, kw) {
				return kw
			}
		}
	}
	return ""
}

func clamp(v int) int {
	if v > 100 {
		return 100
	}
	return v
}
