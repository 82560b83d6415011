package scheduler

import (
	"testing"

	"github.com/devicelab-dev/screenlens/pkg/core"
)

func sampleElements() []core.UnifiedElement {
	return []core.UnifiedElement{
		{UUID: "s1", Name: "Play Button", Text: "Play", Clickable: true},
		{UUID: "s2", Name: "settings", Text: "Settings"},
		{UUID: "s3", Name: "volume", Text: "播放列表"},
	}
}

func TestFilterByTextPartial(t *testing.T) {
	matches := FilterByText(sampleElements(), "play", true)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].UUID != "s1" {
		t.Fatalf("expected s1, got %s", matches[0].UUID)
	}
}

func TestFilterByTextExact(t *testing.T) {
	matches := FilterByText(sampleElements(), "play", false)
	if len(matches) != 1 || matches[0].UUID != "s1" {
		t.Fatalf("case-insensitive exact match on text failed: %v", matches)
	}

	if got := FilterByText(sampleElements(), "pla", false); len(got) != 0 {
		t.Fatalf("exact match must not do substrings, got %d", len(got))
	}
}

func TestFilterByTextUnicode(t *testing.T) {
	matches := FilterByText(sampleElements(), "播放", true)
	if len(matches) != 1 || matches[0].UUID != "s3" {
		t.Fatalf("expected CJK substring match on s3, got %v", matches)
	}
}

func TestFindByTextAgainstDevice(t *testing.T) {
	sched := newScheduler(t, newFakeGateway(), newVisionServer(t))

	matches, err := sched.FindByText("settings", true, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Text != "Settings" {
		t.Fatalf("wrong element: %q", matches[0].Text)
	}
}

func TestFindByResourceID(t *testing.T) {
	sched := newScheduler(t, newFakeGateway(), newVisionServer(t))

	matches, err := sched.FindByResourceID("id/play", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if !matches[0].Clickable {
		t.Fatal("expected the play button")
	}
}

func TestFindByContentDesc(t *testing.T) {
	sched := newScheduler(t, newFakeGateway(), newVisionServer(t))

	matches, err := sched.FindByContentDesc("play button", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
}

func TestFindByClassName(t *testing.T) {
	sched := newScheduler(t, newFakeGateway(), newVisionServer(t))

	matches, err := sched.FindByClassName("Button", "", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 Button, got %d", len(matches))
	}

	matches, err = sched.FindByClassName("Button", "com.other", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("package narrowing failed, got %d", len(matches))
	}
}

func TestFindClickable(t *testing.T) {
	sched := newScheduler(t, newFakeGateway(), newVisionServer(t))

	matches, err := sched.FindClickable(false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 clickable element, got %d", len(matches))
	}
}
