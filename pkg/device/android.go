// Package device provides the ADB-backed command gateway.
package device

import (
	"bytes"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// AndroidDevice executes primitive commands on an Android device via ADB.
// It implements core.Gateway.
type AndroidDevice struct {
	serial  string
	adbPath string
}

// DeviceInfo contains basic device information.
type DeviceInfo struct {
	Serial     string
	Model      string
	SDK        string
	Brand      string
	IsEmulator bool
}

var screenSizeRe = regexp.MustCompile(`(\d+)x(\d+)`)

// New creates an AndroidDevice for the given serial.
// If serial is empty, it auto-detects the connected device.
func New(serial string) (*AndroidDevice, error) {
	adbPath, err := findADB()
	if err != nil {
		return nil, err
	}

	// Auto-detect serial if not provided
	if serial == "" {
		serial, err = detectDeviceSerial(adbPath)
		if err != nil {
			return nil, fmt.Errorf("no device specified and auto-detect failed: %w", err)
		}
	}

	d := &AndroidDevice{
		serial:  serial,
		adbPath: adbPath,
	}

	if err := d.waitForDevice(5 * time.Second); err != nil {
		return nil, fmt.Errorf("device not found: %w", err)
	}

	return d, nil
}

// detectDeviceSerial finds the first connected device serial.
func detectDeviceSerial(adbPath string) (string, error) {
	cmd := exec.Command(adbPath, "devices")
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}

	lines := strings.Split(string(out), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) >= 2 && parts[1] == "device" {
			return parts[0], nil
		}
	}
	return "", fmt.Errorf("no connected devices found")
}

// Serial returns the device serial number.
func (d *AndroidDevice) Serial() string {
	return d.serial
}

// Shell executes a shell command on the device.
func (d *AndroidDevice) Shell(cmd string) (string, error) {
	return d.adb("shell", cmd)
}

// ConnectionStatus describes device reachability. Contains "ready" iff the
// device answers get-state with "device".
func (d *AndroidDevice) ConnectionStatus() string {
	out, err := d.adb("get-state")
	if err != nil {
		return fmt.Sprintf("device unreachable: %v", err)
	}
	if strings.TrimSpace(out) == "device" {
		return fmt.Sprintf("device %s ready", d.serial)
	}
	return fmt.Sprintf("device %s not ready: %s", d.serial, strings.TrimSpace(out))
}

// Screenshot captures the current screen as PNG bytes.
func (d *AndroidDevice) Screenshot() ([]byte, error) {
	return d.execOut("screencap", "-p")
}

// ScreenSize returns the device resolution reported by wm size.
func (d *AndroidDevice) ScreenSize() (int, int, error) {
	out, err := d.Shell("wm size")
	if err != nil {
		return 0, 0, err
	}
	return parseScreenSize(out)
}

// parseScreenSize extracts WxH from wm size output. When an override size is
// present it appears last, which is the effective resolution.
func parseScreenSize(out string) (int, int, error) {
	matches := screenSizeRe.FindAllStringSubmatch(out, -1)
	if len(matches) == 0 {
		return 0, 0, fmt.Errorf("unexpected wm size output: %q", strings.TrimSpace(out))
	}
	m := matches[len(matches)-1]
	var w, h int
	fmt.Sscanf(m[1], "%d", &w)
	fmt.Sscanf(m[2], "%d", &h)
	return w, h, nil
}

// Tap issues a tap at pixel coordinates.
func (d *AndroidDevice) Tap(x, y int) error {
	_, err := d.Shell(fmt.Sprintf("input tap %d %d", x, y))
	return err
}

// Swipe issues a swipe gesture over durationMs milliseconds.
func (d *AndroidDevice) Swipe(x1, y1, x2, y2, durationMs int) error {
	_, err := d.Shell(fmt.Sprintf("input swipe %d %d %d %d %d", x1, y1, x2, y2, durationMs))
	return err
}

// Info returns device information.
func (d *AndroidDevice) Info() (DeviceInfo, error) {
	info := DeviceInfo{Serial: d.serial}

	if model, err := d.Shell("getprop ro.product.model"); err == nil {
		info.Model = strings.TrimSpace(model)
	}
	if sdk, err := d.Shell("getprop ro.build.version.sdk"); err == nil {
		info.SDK = strings.TrimSpace(sdk)
	}
	if brand, err := d.Shell("getprop ro.product.brand"); err == nil {
		info.Brand = strings.TrimSpace(brand)
	}

	// Check if emulator
	chars, _ := d.Shell("getprop ro.kernel.qemu")
	info.IsEmulator = strings.TrimSpace(chars) == "1"

	return info, nil
}

// CurrentFocus returns the currently focused window line from dumpsys, used
// for diagnostics.
func (d *AndroidDevice) CurrentFocus() (string, error) {
	out, err := d.Shell("dumpsys window | grep mCurrentFocus")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// adb executes an ADB command.
func (d *AndroidDevice) adb(args ...string) (string, error) {
	cmdArgs := make([]string, 0, len(args)+2)
	if d.serial != "" {
		cmdArgs = append(cmdArgs, "-s", d.serial)
	}
	cmdArgs = append(cmdArgs, args...)

	cmd := exec.Command(d.adbPath, cmdArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		errMsg := stderr.String()
		if errMsg == "" {
			errMsg = stdout.String()
		}
		return "", fmt.Errorf("adb %s: %w: %s", strings.Join(args, " "), err, errMsg)
	}

	return stdout.String(), nil
}

// execOut runs a device command via exec-out and returns the raw bytes.
// Used for binary payloads such as screenshots, where shell transport would
// mangle line endings.
func (d *AndroidDevice) execOut(args ...string) ([]byte, error) {
	cmdArgs := make([]string, 0, len(args)+3)
	if d.serial != "" {
		cmdArgs = append(cmdArgs, "-s", d.serial)
	}
	cmdArgs = append(cmdArgs, "exec-out")
	cmdArgs = append(cmdArgs, args...)

	cmd := exec.Command(d.adbPath, cmdArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("adb exec-out %s: %w: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// waitForDevice waits for the device to be available.
func (d *AndroidDevice) waitForDevice(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if d.isConnected() {
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for device %s", d.serial)
}

// isConnected checks if the device is connected.
func (d *AndroidDevice) isConnected() bool {
	out, err := d.adb("get-state")
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) == "device"
}

// findADB locates the ADB binary.
func findADB() (string, error) {
	if path, err := exec.LookPath("adb"); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("adb not found in PATH; ensure Android SDK is installed")
}
