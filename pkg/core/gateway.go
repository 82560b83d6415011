package core

import "strings"

// Gateway executes primitive commands against the device. The production
// implementation shells out to ADB (pkg/device); tests use fakes.
//
// Shell returns the command output; a non-nil error carries the diagnostic
// text for transport or exit failures. None of the methods panic.
type Gateway interface {
	// Shell runs a device shell command and returns its output.
	Shell(cmd string) (string, error)

	// ConnectionStatus describes device reachability. The status contains
	// the substring "ready" iff a device is reachable.
	ConnectionStatus() string

	// Screenshot captures the current screen as PNG bytes.
	Screenshot() ([]byte, error)

	// ScreenSize returns the device resolution in pixels.
	ScreenSize() (width, height int, err error)

	// Tap issues a tap at pixel coordinates.
	Tap(x, y int) error

	// Swipe issues a swipe gesture over durationMs milliseconds.
	Swipe(x1, y1, x2, y2, durationMs int) error
}

// Ready reports whether a connection status string indicates a reachable
// device.
func Ready(status string) bool {
	return strings.Contains(status, "ready")
}
