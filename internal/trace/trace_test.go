package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestStartSpanNesting(t *testing.T) {
	ring := NewRingTracer(16, LevelFunction)
	ctx := WithTracer(context.Background(), ring)

	ctx, root := StartSpan(ctx, ScopeDriver, "transpile")
	stageCtx, stage := StartSpan(ctx, ScopeStage, "typeflow")
	_, fn := StartSpan(stageCtx, ScopeFunction, "add")
	_, node := StartSpan(stageCtx, ScopeNode, "expr")
	node.End("")
	fn.End("")
	stage.End("")
	root.End("")

	events := ring.Snapshot()
	if len(events) != 6 {
		t.Fatalf("expected 6 events (node scope filtered), got %d", len(events))
	}
	if events[2].Name != "add" || events[2].Depth != 2 {
		t.Fatalf("unexpected function event %+v", events[2])
	}
	if events[2].ParentID != events[1].SpanID {
		t.Fatalf("function span parent = %d, want %d", events[2].ParentID, events[1].SpanID)
	}
}

func TestStreamText(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelStage, FormatText)
	sp := Begin(tr, ScopeStage, "borrow", nil)
	sp.WithExtra("functions", "3").End("ok")
	out := buf.String()
	if !strings.Contains(out, "-> borrow") || !strings.Contains(out, "<- borrow (ok) {functions=3}") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestNopContext(t *testing.T) {
	ctx, sp := StartSpan(context.Background(), ScopeDriver, "x")
	if sp.End("") != 0 {
		t.Fatal("nop span must report zero duration")
	}
	if FromContext(ctx) != Nop {
		t.Fatal("expected Nop tracer")
	}
}

func TestParseLevel(t *testing.T) {
	if l, err := ParseLevel("function"); err != nil || l != LevelFunction {
		t.Fatalf("ParseLevel = %v, %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error")
	}
}
