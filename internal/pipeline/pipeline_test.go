package pipeline

import (
	"testing"
	"time"

	"pyrust/internal/observ"
)

func TestTimings(t *testing.T) {
	var tm Timings
	if tm.Has(StageParse) || tm.Sum() != 0 {
		t.Fatal("zero Timings is not empty")
	}
	tm.Set(StageParse, 2*time.Millisecond)
	tm.Set(StageGenerate, 3*time.Millisecond)
	if !tm.Has(StageParse) || tm.Duration(StageGenerate) != 3*time.Millisecond {
		t.Fatalf("unexpected timings %+v", tm)
	}
	if got := tm.Sum(); got != 5*time.Millisecond {
		t.Errorf("Sum() = %v", got)
	}
	if got := tm.Sum(StageParse, StageVerify); got != 2*time.Millisecond {
		t.Errorf("Sum(parse, verify) = %v", got)
	}
}

func TestStageProgress(t *testing.T) {
	prev := -1.0
	for _, s := range Stages {
		p := s.Progress()
		if p <= prev || p >= 1 {
			t.Fatalf("%s progress %v not increasing within [0,1)", s, p)
		}
		prev = p
	}
}

func TestChannelSink(t *testing.T) {
	ch := make(chan Event, 1)
	Emit(ChannelSink{Ch: ch}, Event{File: "a.py", Stage: StageParse, Status: StatusWorking})
	ev := <-ch
	if ev.File != "a.py" || ev.Status.Final() {
		t.Fatalf("unexpected event %+v", ev)
	}
	Emit(nil, Event{})
	ChannelSink{}.OnEvent(Event{})
}

func TestFromReport(t *testing.T) {
	r := observ.Report{Stages: []observ.StageReport{
		{Name: "parse", DurationMS: 1.5},
		{Name: "generate", DurationMS: 2},
		{Name: "generate", DurationMS: 1},
		{Name: "cargo", DurationMS: 9},
	}}
	tm := FromReport(r)
	if got := tm.Duration(StageParse); got != 1500*time.Microsecond {
		t.Errorf("parse = %v", got)
	}
	if got := tm.Duration(StageGenerate); got != 3*time.Millisecond {
		t.Errorf("generate = %v", got)
	}
	if tm.Has(StageVerify) || tm.Sum() != 4500*time.Microsecond {
		t.Errorf("unexpected stages, sum = %v", tm.Sum())
	}
}
