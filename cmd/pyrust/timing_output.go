package main

import (
	"fmt"
	"io"
	"time"

	"pyrust/internal/observ"
	"pyrust/internal/pipeline"
)

var timingLabels = []struct {
	stages []pipeline.Stage
	label  string
}{
	{[]pipeline.Stage{pipeline.StageParse}, "parsed"},
	{[]pipeline.Stage{pipeline.StageLower, pipeline.StageAnalyze}, "analyzed"},
	{[]pipeline.Stage{pipeline.StageOptimize}, "optimized"},
	{[]pipeline.Stage{pipeline.StageGenerate, pipeline.StageVerify}, "generated"},
}

func printStageTimings(out io.Writer, report observ.Report) {
	if out == nil {
		return
	}
	timings := pipeline.FromReport(report)
	for _, row := range timingLabels {
		has := false
		for _, s := range row.stages {
			has = has || timings.Has(s)
		}
		if has {
			fmt.Fprintf(out, "%s %.1f ms\n", row.label, toMillis(timings.Sum(row.stages...)))
		}
	}
	fmt.Fprintf(out, "total %.1f ms\n", report.TotalMS)
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
