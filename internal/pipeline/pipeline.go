// Package pipeline describes the stages of a transpilation and the
// progress events the driver emits while running them.
package pipeline

import (
	"time"

	"pyrust/internal/observ"
)

// Stage is one phase of the per-file pipeline.
type Stage string

const (
	StageParse    Stage = "parse"
	StageLower    Stage = "lower"
	StageAnalyze  Stage = "analyze"
	StageOptimize Stage = "optimize"
	StageGenerate Stage = "generate"
	StageVerify   Stage = "verify"
	StageWrite    Stage = "write"
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageParse, StageLower, StageAnalyze, StageOptimize, StageGenerate, StageVerify, StageWrite}

// Progress is the fraction of a file's work finished once stage starts.
func (s Stage) Progress() float64 {
	for i, st := range Stages {
		if st == s {
			return float64(i) / float64(len(Stages))
		}
	}
	return 0
}

// Status captures progress state within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusCached  Status = "cached"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Final reports statuses after which a file sees no further events.
func (s Status) Final() bool {
	return s == StatusDone || s == StatusError || s == StatusCached
}

// Event reports progress for a file, or for the whole batch when File is
// empty.
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. Implementations must be safe for
// concurrent use.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// Emit sends evt to sink when there is one.
func Emit(sink ProgressSink, evt Event) {
	if sink != nil {
		sink.OnEvent(evt)
	}
}

// Timings holds stage durations.
type Timings struct {
	stages map[Stage]time.Duration
}

// Set stores a duration for the given stage.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
	t.stages[stage] = dur
}

// Has reports whether a duration for stage is recorded.
func (t Timings) Has(stage Stage) bool {
	_, ok := t.stages[stage]
	return ok
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	return t.stages[stage]
}

// Sum returns the sum of durations across the provided stages, or across
// every stage when none are given.
func (t Timings) Sum(stages ...Stage) time.Duration {
	if len(stages) == 0 {
		stages = Stages
	}
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}

// FromReport collects the durations of a timer report whose stage names
// are pipeline stages. Other entries are ignored.
func FromReport(r observ.Report) Timings {
	var t Timings
	known := make(map[Stage]bool, len(Stages))
	for _, s := range Stages {
		known[s] = true
	}
	for _, s := range r.Stages {
		st := Stage(s.Name)
		if known[st] {
			t.Set(st, t.Duration(st)+time.Duration(s.DurationMS*float64(time.Millisecond)))
		}
	}
	return t
}
