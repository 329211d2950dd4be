package chimp

import (
	"strings"
	"testing"
)

func TestTemplate_Build_SubstitutesSlots(t *testing.T) {
	tpl := &Template{
		ID:      7,
		Content: "<h1>*|TITLE|*</h1><p>*|BODY|*</p><footer>*|FOOTER|*</footer>",
	}

	built, err := tpl.Build(map[string]string{
		"title":  "Hello",
		"body":   "News of the week",
		"footer": "bye",
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := "<h1>Hello</h1><p>News of the week</p><footer>bye</footer>"
	if built != want {
		t.Errorf("expected %q, got %q", want, built)
	}
}

func TestTemplate_Build_RepeatedSlot(t *testing.T) {
	tpl := &Template{Content: "*|NAME|* and *|NAME|* again"}

	built, err := tpl.Build(map[string]string{"name": "Joe"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if built != "Joe and Joe again" {
		t.Errorf("expected both occurrences replaced, got %q", built)
	}
}

func TestTemplate_Build_UnknownSlotErrors(t *testing.T) {
	tpl := &Template{ID: 3, Content: "<p>*|BODY|*</p>"}

	_, err := tpl.Build(map[string]string{"sidebar": "x"})
	if err == nil {
		t.Fatal("expected error for value without a matching slot")
	}
	if !strings.Contains(err.Error(), "sidebar") {
		t.Errorf("expected error to name the offending key, got %v", err)
	}
}

func TestTemplate_Build_LeavesUnfilledSlots(t *testing.T) {
	tpl := &Template{Content: "<p>*|BODY|*</p><footer>*|FOOTER|*</footer>"}

	built, err := tpl.Build(map[string]string{"body": "hi"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !strings.Contains(built, "*|FOOTER|*") {
		t.Errorf("expected unfilled slot to remain, got %q", built)
	}
}

func TestTemplate_Build_NoValues(t *testing.T) {
	tpl := &Template{Content: "static content"}

	built, err := tpl.Build(nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if built != "static content" {
		t.Errorf("expected content unchanged, got %q", built)
	}
}
