package structural

import (
	"strings"
	"testing"

	"github.com/devicelab-dev/screenlens/pkg/core"
)

const sampleHierarchy = `<?xml version="1.0" encoding="UTF-8"?>
<hierarchy rotation="0">
  <node index="0" text="" resource-id="" class="android.widget.FrameLayout" package="com.app" bounds="[0,0][1080,1920]" clickable="false" enabled="true">
    <node index="0" text="Login" resource-id="com.app:id/login_btn" class="android.widget.Button" package="com.app" bounds="[100,200][300,280]" clickable="true" enabled="true"/>
    <node index="1" text="" resource-id="" content-desc="Settings" class="android.widget.ImageButton" package="com.app" bounds="[900,200][1000,280]" clickable="false" enabled="true"/>
    <node index="2" text="" resource-id="com.app:id/list" class="android.widget.ScrollView" package="com.app" bounds="[0,400][1080,1800]" clickable="false" scrollable="true" enabled="true">
      <node index="0" text="Row one" resource-id="" class="android.widget.TextView" package="com.app" bounds="[50,420][500,460]" clickable="false" enabled="true"/>
    </node>
  </node>
</hierarchy>`

var testScreen = core.ScreenSize{Width: 1080, Height: 1920}

func TestParseHierarchy(t *testing.T) {
	elements, err := ParseHierarchy(sampleHierarchy, testScreen)
	if err != nil {
		t.Fatalf("ParseHierarchy failed: %v", err)
	}

	if len(elements) != 5 {
		t.Fatalf("expected 5 elements, got %d", len(elements))
	}

	var login *core.UnifiedElement
	for i := range elements {
		if elements[i].Text == "Login" {
			login = &elements[i]
			break
		}
	}
	if login == nil {
		t.Fatal("Login button not found")
	}

	if login.ElementType != core.ElementStructural {
		t.Errorf("element_type = %q", login.ElementType)
	}
	if login.Name != "com.app:id/login_btn" {
		t.Errorf("name = %q, want resource-id", login.Name)
	}
	if !login.Clickable {
		t.Error("expected Login to be clickable")
	}
	if login.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", login.Confidence)
	}
	if login.Source != core.SourceXMLExtractor {
		t.Errorf("source = %q", login.Source)
	}

	// bounds [100,200][300,280] on 1080x1920
	wantCX := (100.0/1080 + 300.0/1080) / 2
	if diff := login.CenterX - wantCX; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("center_x = %v, want %v", login.CenterX, wantCX)
	}
	if !login.Bounds.Valid() {
		t.Errorf("bounds out of range: %v", login.Bounds)
	}
}

func TestParseHierarchyUUIDsUnique(t *testing.T) {
	elements, err := ParseHierarchy(sampleHierarchy, testScreen)
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	for _, e := range elements {
		if seen[e.UUID] {
			t.Errorf("duplicate uuid %q", e.UUID)
		}
		seen[e.UUID] = true
		if !strings.HasPrefix(e.UUID, "structural_") {
			t.Errorf("uuid %q lacks structural_ prefix", e.UUID)
		}
	}
}

func TestParseHierarchyBadBoundsSkipsElement(t *testing.T) {
	xml := `<hierarchy>
  <node class="android.widget.FrameLayout" bounds="garbage">
    <node text="Child" class="android.widget.TextView" bounds="[0,0][100,100]" clickable="true"/>
  </node>
</hierarchy>`
	elements, err := ParseHierarchy(xml, testScreen)
	if err != nil {
		t.Fatalf("ParseHierarchy failed: %v", err)
	}
	// The parent is dropped, the child survives
	if len(elements) != 1 {
		t.Fatalf("expected 1 element, got %d", len(elements))
	}
	if elements[0].Text != "Child" {
		t.Errorf("unexpected element: %+v", elements[0])
	}
}

func TestParseHierarchyInvalidXML(t *testing.T) {
	if _, err := ParseHierarchy("not xml", testScreen); err == nil {
		t.Error("expected error for invalid XML")
	}
	if _, err := ParseHierarchy("<root></root>", testScreen); err == nil {
		t.Error("expected error when no hierarchy element exists")
	}
}

func TestParseBounds(t *testing.T) {
	tests := []struct {
		input string
		want  [4]int
		ok    bool
	}{
		{"[0,0][100,200]", [4]int{0, 0, 100, 200}, true},
		{"[54,34][592,75]", [4]int{54, 34, 592, 75}, true},
		{"invalid", [4]int{}, false},
		{"[0,0]", [4]int{}, false},
		{"", [4]int{}, false},
	}

	for _, tt := range tests {
		x1, y1, x2, y2, ok := parseBounds(tt.input)
		if ok != tt.ok {
			t.Errorf("parseBounds(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			continue
		}
		got := [4]int{x1, y1, x2, y2}
		if ok && got != tt.want {
			t.Errorf("parseBounds(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestCenterIsMidpointForValidBounds(t *testing.T) {
	// For any valid bounds string the normalized center must be the
	// rectangle midpoint and lie within [0,1].
	cases := []string{"[0,0][1080,1920]", "[54,34][592,75]", "[500,1000][600,1100]"}
	for _, raw := range cases {
		x1, y1, x2, y2, ok := parseBounds(raw)
		if !ok {
			t.Fatalf("fixture bounds %q did not parse", raw)
		}
		xml := `<hierarchy><node class="X" bounds="` + raw + `"/></hierarchy>`
		elements, err := ParseHierarchy(xml, testScreen)
		if err != nil || len(elements) != 1 {
			t.Fatalf("parse %q: err=%v n=%d", raw, err, len(elements))
		}
		e := elements[0]
		wantX := (float64(x1) + float64(x2)) / 2 / 1080
		wantY := (float64(y1) + float64(y2)) / 2 / 1920
		if !almost(e.CenterX, wantX) || !almost(e.CenterY, wantY) {
			t.Errorf("%q center = (%v,%v), want (%v,%v)", raw, e.CenterX, e.CenterY, wantX, wantY)
		}
		if e.CenterX < 0 || e.CenterX > 1 || e.CenterY < 0 || e.CenterY > 1 {
			t.Errorf("%q center out of range", raw)
		}
	}
}

func almost(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
