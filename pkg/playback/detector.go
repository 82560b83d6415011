// Package playback decides whether the device is actively playing media.
// The signal steers extractor selection: tree dumps of a playing surface are
// stale or empty, so the scheduler switches to the visual pipeline.
package playback

import (
	"strings"
	"sync"
	"time"

	"github.com/devicelab-dev/screenlens/pkg/core"
	"github.com/devicelab-dev/screenlens/pkg/logger"
)

// Probe names accepted for the confirmation pass.
const (
	ProbeAudioFlinger = "audio_flinger"
	ProbeWakeLocks    = "wake_locks"
	ProbeMediaSession = "media_session"
	ProbeAudioFocus   = "audio_focus"
)

// Detector runs four independent heuristics against device diagnostic
// output. Each alone misfires (an input-only wake lock is routine when
// nothing plays), so playing requires at least two corroborating signals.
type Detector struct {
	gateway      core.Gateway
	ttl          time.Duration
	confirmProbe string
	confirmDelay time.Duration

	mu       sync.Mutex
	cached   core.PlaybackState
	cachedAt time.Time
}

// New creates a detector. confirmProbe names the probe re-run when exactly
// one signal fired; unknown names fall back to the audio-flinger probe.
func New(gateway core.Gateway, ttl time.Duration, confirmProbe string, confirmDelay time.Duration) *Detector {
	return &Detector{
		gateway:      gateway,
		ttl:          ttl,
		confirmProbe: confirmProbe,
		confirmDelay: confirmDelay,
	}
}

// Detect returns the current playback state, cached for the configured
// interval. Probe failures count as negative signals, never as errors.
func (d *Detector) Detect() core.PlaybackState {
	d.mu.Lock()
	if d.cached != "" && time.Since(d.cachedAt) < d.ttl {
		state := d.cached
		d.mu.Unlock()
		return state
	}
	d.mu.Unlock()

	state := d.detect()

	d.mu.Lock()
	d.cached = state
	d.cachedAt = time.Now()
	d.mu.Unlock()
	return state
}

// Invalidate drops the cached state.
func (d *Detector) Invalidate() {
	d.mu.Lock()
	d.cached = ""
	d.mu.Unlock()
}

func (d *Detector) detect() core.PlaybackState {
	probes := []struct {
		name string
		fn   func() (bool, error)
	}{
		{ProbeAudioFlinger, d.checkAudioFlinger},
		{ProbeWakeLocks, d.checkWakeLocks},
		{ProbeMediaSession, d.checkMediaSession},
		{ProbeAudioFocus, d.checkAudioFocus},
	}

	active := 0
	failures := 0
	for _, p := range probes {
		ok, err := p.fn()
		if err != nil {
			logger.Warn("playback: probe %s failed: %v", p.name, err)
			failures++
			continue
		}
		if ok {
			active++
		}
	}

	if failures == len(probes) {
		logger.Warn("playback: all probes failed, state unknown")
		return core.PlaybackUnknown
	}

	switch {
	case active >= 2:
		logger.Info("playback: playing (%d/4 signals)", active)
		return core.PlaybackPlaying
	case active == 1:
		// A lone signal is noise more often than playback; wait briefly and
		// let one configured probe settle the call.
		time.Sleep(d.confirmDelay)
		ok, err := d.probeByName(d.confirmProbe)()
		if err != nil || !ok {
			logger.Info("playback: single signal not confirmed, stopped")
			return core.PlaybackStopped
		}
		logger.Info("playback: single signal confirmed by %s, playing", d.confirmProbe)
		return core.PlaybackPlaying
	default:
		logger.Debug("playback: no signals, stopped")
		return core.PlaybackStopped
	}
}

func (d *Detector) probeByName(name string) func() (bool, error) {
	switch name {
	case ProbeWakeLocks:
		return d.checkWakeLocks
	case ProbeMediaSession:
		return d.checkMediaSession
	case ProbeAudioFocus:
		return d.checkAudioFocus
	default:
		return d.checkAudioFlinger
	}
}

// checkAudioFlinger counts active audio streams. One "Standby: no" entry is
// just AudioIn (microphone or system capture); two or more means an output
// stream is live as well.
func (d *Detector) checkAudioFlinger() (bool, error) {
	out, err := d.gateway.Shell("dumpsys media.audio_flinger")
	if err != nil {
		return false, err
	}
	count := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "Standby: no") {
			count++
		}
	}
	return count >= 2, nil
}

// checkWakeLocks looks for an audio *output* wake lock. Input-only locks
// (AudioIn) are held even when nothing plays.
func (d *Detector) checkWakeLocks() (bool, error) {
	out, err := d.gateway.Shell("dumpsys power")
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(strings.ToLower(line), "wake") || !strings.Contains(line, "Audio") {
			continue
		}
		if strings.Contains(line, "AudioOut") || strings.Contains(line, "AudioMix") {
			return true, nil
		}
	}
	return false, nil
}

// checkMediaSession looks for an active media session; state=3 is
// PlaybackState.STATE_PLAYING.
func (d *Detector) checkMediaSession() (bool, error) {
	out, err := d.gateway.Shell("dumpsys media_session")
	if err != nil {
		return false, err
	}
	return strings.Contains(out, "PLAYING") || strings.Contains(out, "state=3"), nil
}

// checkAudioFocus looks for a granted audio focus.
func (d *Detector) checkAudioFocus() (bool, error) {
	out, err := d.gateway.Shell("dumpsys audio")
	if err != nil {
		return false, err
	}
	return strings.Contains(out, "AUDIOFOCUS_GAIN"), nil
}
