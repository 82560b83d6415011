// Package config handles configuration for screenlens.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable. Defaults preserve the behavior observed on
// real devices; see the per-field notes before changing them.
type Config struct {
	Vision      Vision      `yaml:"vision"`
	Cache       Cache       `yaml:"cache"`
	Ads         Ads         `yaml:"ads"`
	Playback    Playback    `yaml:"playback"`
	Interaction Interaction `yaml:"interaction"`
}

// Vision configures the remote screen-analysis service.
type Vision struct {
	ServerURL string `yaml:"server_url"`

	// ParseTimeoutSeconds bounds one analysis round trip. Image upload plus
	// model inference routinely takes tens of seconds.
	ParseTimeoutSeconds  float64 `yaml:"parse_timeout_seconds"`
	HealthTimeoutSeconds float64 `yaml:"health_timeout_seconds"`

	// UsePaddleOCR asks the service to run OCR over all text regions; nil
	// leaves the choice to the server.
	UsePaddleOCR *bool `yaml:"use_paddleocr"`

	// AssumeInteractive treats every detection as tappable regardless of the
	// service's own interactivity flag. The upstream behavior this preserves
	// looks like a workaround for under-reporting, so it is a policy knob
	// instead of a hard-coded assumption.
	AssumeInteractive bool `yaml:"assume_interactive"`
}

// Cache bounds how long extraction results stay valid. Entries are
// in-memory only and never survive a restart.
type Cache struct {
	ExtractorTTLSeconds float64 `yaml:"extractor_ttl_seconds"`
	UnifiedTTLSeconds   float64 `yaml:"unified_ttl_seconds"`
	PlaybackTTLSeconds  float64 `yaml:"playback_ttl_seconds"`
}

// Ads configures overlay detection and automatic dismissal.
type Ads struct {
	// AutoThreshold is the minimum confidence before the dismisser taps
	// anything. Below it the loop stops and records why.
	AutoThreshold int `yaml:"auto_threshold"`

	// WarningThreshold flags results that may still contain an ad after the
	// loop ends.
	WarningThreshold int `yaml:"warning_threshold"`

	MaxAttempts int `yaml:"max_attempts"`

	// ProximityPx is the maximum centroid distance, in reference-frame
	// pixels, for an ad element and close button to count as one overlay.
	ProximityPx float64 `yaml:"proximity_px"`

	// SettleDelaySeconds is the wait after tapping a close button before
	// re-extracting; overlays animate out slowly on TV hardware.
	SettleDelaySeconds float64 `yaml:"settle_delay_seconds"`

	// Reference frame for denormalizing fractional centroids when measuring
	// proximity.
	ReferenceWidth  int `yaml:"reference_width"`
	ReferenceHeight int `yaml:"reference_height"`
}

// Playback configures the media-playback detector.
type Playback struct {
	// ConfirmProbe names the probe re-run when exactly one signal fired:
	// audio_flinger, wake_locks, media_session, or audio_focus.
	ConfirmProbe string `yaml:"confirm_probe"`

	ConfirmDelaySeconds float64 `yaml:"confirm_delay_seconds"`
}

// Interaction configures tap resolution and bias correction.
type Interaction struct {
	// BiasFraction is the upward shift, as a fraction of screen height,
	// applied when tapping media tiles whose caption sits below the real
	// hit target.
	BiasFraction float64 `yaml:"bias_fraction"`

	// StaleAfterSeconds forces a re-extraction before resolving a target
	// when the last snapshot is older than this.
	StaleAfterSeconds float64 `yaml:"stale_after_seconds"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		Vision: Vision{
			ServerURL:            "http://127.0.0.1:9333",
			ParseTimeoutSeconds:  90,
			HealthTimeoutSeconds: 10,
			AssumeInteractive:    true,
		},
		Cache: Cache{
			ExtractorTTLSeconds: 5,
			UnifiedTTLSeconds:   3,
			PlaybackTTLSeconds:  2,
		},
		Ads: Ads{
			AutoThreshold:      90,
			WarningThreshold:   70,
			MaxAttempts:        3,
			ProximityPx:        500,
			SettleDelaySeconds: 1.5,
			ReferenceWidth:     1080,
			ReferenceHeight:    1920,
		},
		Playback: Playback{
			ConfirmProbe:        "audio_flinger",
			ConfirmDelaySeconds: 0.5,
		},
		Interaction: Interaction{
			BiasFraction:      0.02,
			StaleAfterSeconds: 3,
		},
	}
}

// Load reads a config file, overlaying it onto the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir looks for screenlens.yaml or screenlens.yml in the directory,
// returning defaults when neither exists.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range []string{"screenlens.yaml", "screenlens.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Default(), nil
}

// Seconds converts a fractional-seconds field to a Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
