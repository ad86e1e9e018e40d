package ui

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"pyrust/internal/pipeline"
)

func TestApplyEvent(t *testing.T) {
	ch := make(chan pipeline.Event)
	m := NewProgressModel("transpiling", []string{"a.py", "b.py"}, ch).(*progressModel)

	m.applyEvent(pipeline.Event{File: "a.py", Stage: pipeline.StageGenerate, Status: pipeline.StatusWorking})
	if got := m.items[0].status; got != "generating" {
		t.Fatalf("status = %q, want generating", got)
	}
	m.applyEvent(pipeline.Event{File: "b.py", Stage: pipeline.StageWrite, Status: pipeline.StatusDone})
	want := (pipeline.StageGenerate.Progress() + 1) / 2
	if got := m.percent(); got != want {
		t.Errorf("percent = %v, want %v", got, want)
	}
	m.applyEvent(pipeline.Event{File: "unknown.py", Status: pipeline.StatusError})
	m.applyEvent(pipeline.Event{Stage: pipeline.StageParse, Status: pipeline.StatusWorking})
	if m.stageLabel != "parsing" {
		t.Errorf("stage label = %q", m.stageLabel)
	}
	view := m.View()
	if !strings.Contains(view, "a.py") || !strings.Contains(view, "done") {
		t.Errorf("view lacks file rows:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short.py", 20, "short.py"},
		{"abcdef", 3, "abc"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
	long := truncate("a/very/long/path/to/module.py", 12)
	if runewidth.StringWidth(long) > 12 || !strings.HasSuffix(long, "...") {
		t.Errorf("truncate long path = %q", long)
	}
}
