package scheduler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/devicelab-dev/screenlens/pkg/core"
	"github.com/devicelab-dev/screenlens/pkg/extractor/structural"
	"github.com/devicelab-dev/screenlens/pkg/extractor/visual"
	"github.com/devicelab-dev/screenlens/pkg/playback"
)

const dumpXML = `<?xml version='1.0' encoding='UTF-8'?>
<hierarchy rotation="0">
  <node index="0" text="" resource-id="" class="android.widget.FrameLayout" package="com.example.app" content-desc="" clickable="false" enabled="true" bounds="[0,0][1080,1920]">
    <node index="0" text="Play" resource-id="com.example.app:id/play" class="android.widget.Button" package="com.example.app" content-desc="Play button" clickable="true" enabled="true" bounds="[400,900][680,1020]"/>
    <node index="1" text="Settings" resource-id="com.example.app:id/settings" class="android.widget.TextView" package="com.example.app" content-desc="" clickable="false" enabled="true" bounds="[0,1800][540,1920]"/>
  </node>
</hierarchy>`

const flingerPlaying = `  Output thread 0x1 type 2:
  Standby: no
  Output thread 0x2 type 0:
  Standby: no`

const flingerIdle = `  Output thread 0x1 type 2:
  Standby: yes`

const powerOutLock = `  Wake Locks: size=1
  PARTIAL_WAKE_LOCK 'AudioOut_1D' ON_AFTER_RELEASE (uid=1041)`

const sessionPlaying = `  state=PlaybackState {state=3, position=1000}
  active sessions: PLAYING`

const focusGain = `  audio focus stack:
  source: AUDIOFOCUS_GAIN -- pack: com.example.app`

// fakeGateway scripts shell output per command substring and counts calls.
type fakeGateway struct {
	status      string
	width       int
	height      int
	responses   map[string]string
	errs        map[string]error
	calls       map[string]int
	screenshots int
	taps        []core.Coordinates
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		status: "device emulator-5554 ready",
		width:  1080,
		height: 1920,
		responses: map[string]string{
			"uiautomator dump": "UI hierchary dumped to: /sdcard/window_dump.xml",
			"cat /sdcard/window_dump.xml": dumpXML,
			"dumpsys media.audio_flinger": flingerIdle,
			"dumpsys power":               "  Wake Locks: size=0",
			"dumpsys media_session":       "  state=PlaybackState {state=1}",
			"dumpsys audio":               "  audio focus stack: empty",
		},
		errs:  map[string]error{},
		calls: map[string]int{},
	}
}

func (g *fakeGateway) playing() *fakeGateway {
	g.responses["dumpsys media.audio_flinger"] = flingerPlaying
	g.responses["dumpsys power"] = powerOutLock
	g.responses["dumpsys media_session"] = sessionPlaying
	g.responses["dumpsys audio"] = focusGain
	return g
}

func (g *fakeGateway) Shell(cmd string) (string, error) {
	for key, out := range g.responses {
		if strings.HasPrefix(cmd, key) || strings.Contains(cmd, key) {
			g.calls[key]++
			if err := g.errs[key]; err != nil {
				return "", err
			}
			return out, nil
		}
	}
	return "", fmt.Errorf("unexpected shell command: %s", cmd)
}

func (g *fakeGateway) ConnectionStatus() string { return g.status }

func (g *fakeGateway) Screenshot() ([]byte, error) {
	g.screenshots++
	return []byte("\x89PNG fake"), nil
}

func (g *fakeGateway) ScreenSize() (int, int, error) { return g.width, g.height, nil }

func (g *fakeGateway) Tap(x, y int) error {
	g.taps = append(g.taps, core.Coordinates{X: x, Y: y})
	return nil
}

func (g *fakeGateway) Swipe(x1, y1, x2, y2, durationMs int) error { return nil }

// visionServer is an httptest stand-in for the analysis service.
type visionServer struct {
	*httptest.Server
	parseCalls int
	healthy    bool
	parseFails bool
}

func newVisionServer(t *testing.T) *visionServer {
	t.Helper()
	vs := &visionServer{healthy: true}
	vs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/probe/":
			if !vs.healthy {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		case "/parse/":
			vs.parseCalls++
			if vs.parseFails {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"parsed_content_list":[
				{"uuid":"v-1","type":"icon","bbox":[0.1,0.2,0.3,0.4],"interactivity":true,"content":"play arrow","source":"box_ocr_content_ocr"},
				{"uuid":"v-2","type":"text","bbox":[0.4,0.5,0.6,0.7],"interactivity":false,"content":"Up next","source":"box_ocr_content_ocr"}
			],"latency":0.42}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(vs.Close)
	return vs
}

func newScheduler(t *testing.T, gw *fakeGateway, vs *visionServer) *Scheduler {
	t.Helper()
	s := structural.New(gw, 5*time.Second)
	client := visual.NewClient(vs.URL, 5*time.Second, time.Second)
	v := visual.New(gw, client, visual.Options{AssumeInteractive: true}, 5*time.Second)
	d := playback.New(gw, 2*time.Second, playback.ProbeAudioFlinger, time.Millisecond)
	return New(gw, s, v, d, 3*time.Second)
}

func TestResolveAutoIdleDevice(t *testing.T) {
	sched := newScheduler(t, newFakeGateway(), newVisionServer(t))
	if mode := sched.ResolveAuto(); mode != core.ModeStructuralOnly {
		t.Fatalf("expected structural_only while idle, got %s", mode)
	}
}

func TestResolveAutoPlayingPrefersVisual(t *testing.T) {
	sched := newScheduler(t, newFakeGateway().playing(), newVisionServer(t))
	if mode := sched.ResolveAuto(); mode != core.ModeVisualOnly {
		t.Fatalf("expected visual_only during playback, got %s", mode)
	}
}

func TestResolveAutoPlayingVisionDown(t *testing.T) {
	vs := newVisionServer(t)
	vs.healthy = false
	sched := newScheduler(t, newFakeGateway().playing(), vs)
	if mode := sched.ResolveAuto(); mode != core.ModeStructuralOnly {
		t.Fatalf("expected structural_only with vision down, got %s", mode)
	}
}

func TestResolveAutoDeviceNotReady(t *testing.T) {
	gw := newFakeGateway().playing()
	gw.status = "device emulator-5554 offline"
	sched := newScheduler(t, gw, newVisionServer(t))
	if mode := sched.ResolveAuto(); mode != core.ModeStructuralOnly {
		t.Fatalf("expected structural_only when device is not ready, got %s", mode)
	}
}

func TestExtractUnifiedStructural(t *testing.T) {
	sched := newScheduler(t, newFakeGateway(), newVisionServer(t))

	elements, mode, err := sched.ExtractUnified(core.ModeAuto, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mode != core.ModeStructuralOnly {
		t.Fatalf("expected structural_only, got %s", mode)
	}
	if len(elements) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(elements))
	}
	for _, e := range elements {
		if e.ElementType != core.ElementStructural {
			t.Fatalf("element %s has type %s", e.UUID, e.ElementType)
		}
	}
}

func TestExtractUnifiedVisualDuringPlayback(t *testing.T) {
	vs := newVisionServer(t)
	sched := newScheduler(t, newFakeGateway().playing(), vs)

	elements, mode, err := sched.ExtractUnified(core.ModeAuto, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mode != core.ModeVisualOnly {
		t.Fatalf("expected visual_only, got %s", mode)
	}
	if len(elements) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(elements))
	}
	if elements[0].Source != core.SourceOmniparser {
		t.Fatalf("expected omniparser source, got %s", elements[0].Source)
	}
}

func TestScreenSizeFollowsVisualCapture(t *testing.T) {
	gw := newFakeGateway().playing()
	gw.width = 1440
	gw.height = 2560
	sched := newScheduler(t, gw, newVisionServer(t))

	elements, mode, err := sched.ExtractUnified(core.ModeAuto, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mode != core.ModeVisualOnly {
		t.Fatalf("expected visual_only, got %s", mode)
	}
	for _, e := range elements {
		if e.Metadata.ScreenSize.Width != 1440 || e.Metadata.ScreenSize.Height != 2560 {
			t.Fatalf("element %s captured at %dx%d, want 1440x2560",
				e.UUID, e.Metadata.ScreenSize.Width, e.Metadata.ScreenSize.Height)
		}
	}
	if size := sched.ScreenSize(); size.Width != 1440 || size.Height != 2560 {
		t.Fatalf("scheduler reports %dx%d, want 1440x2560", size.Width, size.Height)
	}
}

func TestExtractUnifiedHybridOrder(t *testing.T) {
	sched := newScheduler(t, newFakeGateway(), newVisionServer(t))

	elements, mode, err := sched.ExtractUnified(core.ModeHybrid, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mode != core.ModeHybrid {
		t.Fatalf("expected hybrid, got %s", mode)
	}
	if len(elements) != 5 {
		t.Fatalf("expected 5 merged elements, got %d", len(elements))
	}
	if elements[0].ElementType != core.ElementVisual {
		t.Fatal("expected visual elements first in hybrid order")
	}
	if elements[len(elements)-1].ElementType != core.ElementStructural {
		t.Fatal("expected structural elements last in hybrid order")
	}
}

func TestVisualFailureDegradesToStructural(t *testing.T) {
	vs := newVisionServer(t)
	vs.parseFails = true
	sched := newScheduler(t, newFakeGateway(), vs)

	elements, mode, err := sched.ExtractUnified(core.ModeVisualOnly, false)
	if err != nil {
		t.Fatalf("expected degraded result, got error: %v", err)
	}
	if mode != core.ModeStructuralOnly {
		t.Fatalf("expected structural_only after degrade, got %s", mode)
	}
	if len(elements) != 3 {
		t.Fatalf("expected 3 structural elements, got %d", len(elements))
	}
}

func TestVisionUnreachableNeverSurfacesVisualError(t *testing.T) {
	vs := newVisionServer(t)
	vs.healthy = false
	sched := newScheduler(t, newFakeGateway().playing(), vs)

	// Force visual despite the dead service; the scheduler must fall back.
	elements, mode, err := sched.ExtractUnified(core.ModeVisualOnly, false)
	if err != nil {
		t.Fatalf("visual-source error leaked: %v", err)
	}
	if mode != core.ModeStructuralOnly {
		t.Fatalf("expected structural_only, got %s", mode)
	}
	if len(elements) == 0 {
		t.Fatal("expected structural elements from the fallback")
	}
}

func TestStructuralFailureIsTerminal(t *testing.T) {
	gw := newFakeGateway()
	gw.errs["uiautomator dump"] = fmt.Errorf("shell error")
	sched := newScheduler(t, gw, newVisionServer(t))

	elements, mode, err := sched.ExtractUnified(core.ModeStructuralOnly, false)
	if err == nil {
		t.Fatal("expected error from failed dump")
	}
	if mode != core.ModeStructuralOnly {
		t.Fatalf("expected structural_only, got %s", mode)
	}
	if len(elements) != 0 {
		t.Fatalf("expected no elements, got %d", len(elements))
	}

	result := sched.Elements(core.ModeStructuralOnly, false, "")
	if result.Status != core.StatusError {
		t.Fatalf("expected error status, got %s", result.Status)
	}
	if result.Message == "" {
		t.Fatal("expected an error message")
	}
	if len(result.Elements) != 0 {
		t.Fatal("expected empty element list in error result")
	}
}

func TestUnifiedCacheServesRepeatCall(t *testing.T) {
	gw := newFakeGateway()
	sched := newScheduler(t, gw, newVisionServer(t))

	first, mode1, err := sched.ExtractUnified(core.ModeStructuralOnly, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dumps := gw.calls["uiautomator dump"]

	second, mode2, err := sched.ExtractUnified(core.ModeStructuralOnly, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.calls["uiautomator dump"] != dumps {
		t.Fatal("cached call reached the device")
	}
	if mode1 != mode2 {
		t.Fatalf("mode changed between cached calls: %s vs %s", mode1, mode2)
	}
	if len(first) != len(second) {
		t.Fatalf("cached list differs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].UUID != second[i].UUID {
			t.Fatalf("element %d differs between cached calls", i)
		}
	}
}

func TestCacheIsModeKeyed(t *testing.T) {
	vs := newVisionServer(t)
	sched := newScheduler(t, newFakeGateway(), vs)

	if _, _, err := sched.ExtractUnified(core.ModeStructuralOnly, true); err != nil {
		t.Fatalf("structural: %v", err)
	}
	visualElems, _, err := sched.ExtractUnified(core.ModeVisualOnly, true)
	if err != nil {
		t.Fatalf("visual: %v", err)
	}
	if vs.parseCalls != 1 {
		t.Fatalf("expected one parse call, got %d", vs.parseCalls)
	}
	if len(visualElems) != 2 {
		t.Fatalf("structural cache leaked into visual mode: %d elements", len(visualElems))
	}
}

func TestInvalidateCacheForcesExtraction(t *testing.T) {
	gw := newFakeGateway()
	sched := newScheduler(t, gw, newVisionServer(t))

	if _, _, err := sched.ExtractUnified(core.ModeStructuralOnly, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sched.InvalidateCache()
	if _, _, err := sched.ExtractUnified(core.ModeStructuralOnly, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.calls["uiautomator dump"] != 2 {
		t.Fatalf("expected 2 dumps after invalidation, got %d", gw.calls["uiautomator dump"])
	}
}

func TestSetModePersists(t *testing.T) {
	sched := newScheduler(t, newFakeGateway().playing(), newVisionServer(t))

	sched.SetMode(core.ModeStructuralOnly)
	_, mode, err := sched.ExtractUnified(core.ModeAuto, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mode != core.ModeStructuralOnly {
		t.Fatalf("override ignored: got %s", mode)
	}
	if sched.Mode() != core.ModeStructuralOnly {
		t.Fatal("override did not persist")
	}
}

func TestElementsPackageFilter(t *testing.T) {
	sched := newScheduler(t, newFakeGateway(), newVisionServer(t))

	result := sched.Elements(core.ModeStructuralOnly, false, "com.example.app")
	if result.Status != core.StatusSuccess {
		t.Fatalf("unexpected status %s: %s", result.Status, result.Message)
	}
	if result.TotalCount != 3 {
		t.Fatalf("expected 3 elements for matching package, got %d", result.TotalCount)
	}

	result = sched.Elements(core.ModeStructuralOnly, false, "com.other")
	if result.TotalCount != 0 {
		t.Fatalf("expected 0 elements for foreign package, got %d", result.TotalCount)
	}
}

func TestElementsStatistics(t *testing.T) {
	sched := newScheduler(t, newFakeGateway(), newVisionServer(t))

	result := sched.Elements(core.ModeStructuralOnly, false, "")
	if result.Statistics == nil {
		t.Fatal("expected statistics block")
	}
	if result.Statistics.StructuralElements != 3 {
		t.Fatalf("expected 3 structural elements, got %d", result.Statistics.StructuralElements)
	}
	if result.Statistics.ClickableElements != 1 {
		t.Fatalf("expected 1 clickable element, got %d", result.Statistics.ClickableElements)
	}
	if result.PlaybackState != core.PlaybackStopped {
		t.Fatalf("expected stopped playback, got %s", result.PlaybackState)
	}
}

func TestInfo(t *testing.T) {
	sched := newScheduler(t, newFakeGateway(), newVisionServer(t))

	if _, _, err := sched.ExtractUnified(core.ModeStructuralOnly, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info := sched.Info()
	if info.CurrentMode != core.ModeAuto {
		t.Fatalf("expected auto default, got %s", info.CurrentMode)
	}
	if !info.VisionAvailable {
		t.Fatal("expected vision available")
	}
	if info.ScreenSize.Width != 1080 || info.ScreenSize.Height != 1920 {
		t.Fatalf("unexpected screen size %+v", info.ScreenSize)
	}
}
