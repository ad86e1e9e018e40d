package observ

import (
	"errors"
	"strings"
	"testing"
)

func TestTimerMeasureAndMerge(t *testing.T) {
	a := NewTimer()
	if err := a.Measure("parse", func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	b := NewTimer()
	_ = b.Measure("parse", func() error { return nil })
	_ = b.Measure("codegen", func() error { return errors.New("boom") })

	a.Merge(b)
	r := a.Report()
	if len(r.Stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(r.Stages))
	}
	if r.Stages[1].Name != "codegen" || r.Stages[1].Note != "failed" {
		t.Fatalf("unexpected stage %+v", r.Stages[1])
	}
	if !strings.Contains(a.Summary(), "total") {
		t.Fatal("summary missing total line")
	}
}

func TestNilTimer(t *testing.T) {
	var tm *Timer
	tm.End(tm.Begin("x"), "")
	if len(tm.Report().Stages) != 0 {
		t.Fatal("nil timer must report nothing")
	}
}
