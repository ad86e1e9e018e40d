package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Stage records the duration of one pipeline stage.
type Stage struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer tracks stage durations for one transpilation. Safe for concurrent use.
type Timer struct {
	mu     sync.Mutex
	stages []Stage
}

func NewTimer() *Timer { return &Timer{stages: make([]Stage, 0, 10)} }

// Begin starts a stage and returns its index.
func (t *Timer) Begin(name string) int {
	if t == nil {
		return -1
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stages = append(t.stages, Stage{Name: name, Start: time.Now()})
	return len(t.stages) - 1
}

// End finishes the stage at idx.
func (t *Timer) End(idx int, note string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.stages) {
		return
	}
	s := &t.stages[idx]
	s.Dur = time.Since(s.Start)
	s.Note = note
}

// Measure runs fn as a named stage.
func (t *Timer) Measure(name string, fn func() error) error {
	idx := t.Begin(name)
	err := fn()
	note := ""
	if err != nil {
		note = "failed"
	}
	t.End(idx, note)
	return err
}

// StageReport is the serializable form of a Stage.
type StageReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report aggregates all stages.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Stages  []StageReport `json:"stages"`
}

func (t *Timer) Report() Report {
	if t == nil {
		return Report{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	r := Report{Stages: make([]StageReport, len(t.stages))}
	var total time.Duration
	for i, s := range t.stages {
		total += s.Dur
		r.Stages[i] = StageReport{Name: s.Name, DurationMS: ms(s.Dur), Note: s.Note}
	}
	r.TotalMS = ms(total)
	return r
}

// Merge sums durations of other into t by stage name, used for batch runs.
func (t *Timer) Merge(other *Timer) {
	if t == nil || other == nil {
		return
	}
	other.mu.Lock()
	incoming := append([]Stage(nil), other.stages...)
	other.mu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, in := range incoming {
		found := false
		for i := range t.stages {
			if t.stages[i].Name == in.Name {
				t.stages[i].Dur += in.Dur
				found = true
				break
			}
		}
		if !found {
			t.stages = append(t.stages, in)
		}
	}
}

// Summary renders a human-readable table.
func (t *Timer) Summary() string {
	r := t.Report()
	var b strings.Builder
	b.WriteString("timings:\n")
	for _, s := range r.Stages {
		fmt.Fprintf(&b, "  %-20s %7.2f ms", s.Name, s.DurationMS)
		if s.Note != "" {
			b.WriteString("  // " + s.Note)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "  %-20s %7.2f ms\n", "total", r.TotalMS)
	return b.String()
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
