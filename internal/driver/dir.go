package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"pyrust/internal/config"
	"pyrust/internal/diag"
	"pyrust/internal/observ"
	"pyrust/internal/pipeline"
	"pyrust/internal/source"
	"pyrust/internal/trace"
)

// DirOptions configures TranspileDir.
type DirOptions struct {
	Config config.Config
	// Jobs bounds the files processed at once; GOMAXPROCS when <= 0.
	Jobs int
	// OutDir receives one .rs file per source, mirroring the input tree.
	// Nothing is written when empty.
	OutDir string
	Cache  *DiskCache
	Sink   pipeline.ProgressSink
	// MaxDiagnostics bounds parse errors kept per file; 0 means unlimited.
	MaxDiagnostics int
}

// DirResult is the outcome for one file of a directory run. Exactly one
// of Source and Diag is set.
type DirResult struct {
	Path   string // as found under the input directory
	Rel    string // relative to the input directory
	FileID source.FileID
	Source *GeneratedSource
	Diag   *diag.Diagnostic
	Cached bool
	// Output is the written .rs path, empty when nothing was written.
	Output string
}

// DirReport aggregates a directory run.
type DirReport struct {
	FileSet *source.FileSet
	Results []DirResult
	Timer   *observ.Timer
}

// Failed counts the files that did not transpile.
func (r *DirReport) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Diag != nil {
			n++
		}
	}
	return n
}

// ListPythonFiles returns every *.py file under dir in sorted order,
// skipping hidden directories and __pycache__.
func ListPythonFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != dir && (strings.HasPrefix(name, ".") || name == "__pycache__") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".py") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// TranspileDir transpiles every Python file under dir. Files run in
// parallel and independently: a failing file is reported in its result
// and does not stop the others. The returned error is reserved for
// failures of the run itself, such as an unreadable directory or
// cancellation.
func TranspileDir(ctx context.Context, dir string, opts DirOptions) (*DirReport, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	files, err := ListPythonFiles(dir)
	if err != nil {
		return nil, err
	}
	report := &DirReport{FileSet: source.NewFileSet(), Timer: observ.NewTimer()}
	if len(files) == 0 {
		return report, nil
	}

	ctx, span := trace.StartSpan(ctx, trace.ScopeDriver, "transpile-dir")
	defer span.End(fmt.Sprintf("%d files", len(files)))

	// The FileSet is not safe for concurrent writes: load everything first.
	report.Results = make([]DirResult, len(files))
	loadErrors := make(map[int]error)
	for i, path := range files {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		report.Results[i] = DirResult{Path: path, Rel: filepath.ToSlash(rel)}
		id, err := report.FileSet.Load(path)
		if err != nil {
			loadErrors[i] = err
			continue
		}
		report.Results[i].FileID = id
		pipeline.Emit(opts.Sink, pipeline.Event{File: report.Results[i].Rel, Status: pipeline.StatusQueued})
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	timers := make([]*observ.Timer, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := &report.Results[i]
			if err, bad := loadErrors[i]; bad {
				d := diag.NewError(diag.DriverIO, source.Span{}, err.Error())
				res.Diag = &d
				pipeline.Emit(opts.Sink, pipeline.Event{File: res.Rel, Status: pipeline.StatusError, Err: err})
				return nil
			}
			timers[i] = observ.NewTimer()
			one(gctx, report.FileSet, res, opts, timers[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	for _, t := range timers {
		report.Timer.Merge(t)
	}
	return report, nil
}

// one runs the pipeline for a single loaded file and writes its output.
func one(ctx context.Context, fset *source.FileSet, res *DirResult, opts DirOptions, timer *observ.Timer) {
	start := time.Now()
	file := fset.Get(res.FileID)
	fail := func(d *diag.Diagnostic) {
		res.Diag = d
		pipeline.Emit(opts.Sink, pipeline.Event{
			File: res.Rel, Status: pipeline.StatusError, Err: errors.New(d.String()), Elapsed: time.Since(start),
		})
	}

	key := CacheKey(file.Content, opts.Config)
	var payload DiskPayload
	if hit, err := opts.Cache.Get(key, &payload); err == nil && hit {
		res.Source = fromPayload(&payload, res.FileID)
		res.Cached = true
	} else {
		pipeline.Emit(opts.Sink, pipeline.Event{File: res.Rel, Stage: pipeline.StageParse, Status: pipeline.StatusWorking})
		idx := timer.Begin(string(pipeline.StageParse))
		parsed := parseLoaded(fset, res.FileID, opts.MaxDiagnostics)
		timer.End(idx, "")
		if d := parsed.FirstError(); d != nil {
			fail(d)
			return
		}
		out, d := TranspileWithOptions(ctx, parsed.Module, opts.Config, Options{Sink: opts.Sink, Label: res.Rel, Timer: timer})
		if d != nil {
			res.Diag = d
			return
		}
		res.Source = out
		// A cache write failure only costs a later rebuild.
		_ = opts.Cache.Put(key, toPayload(out))
	}

	if opts.OutDir != "" {
		pipeline.Emit(opts.Sink, pipeline.Event{File: res.Rel, Stage: pipeline.StageWrite, Status: pipeline.StatusWorking})
		path, err := WriteOutput(opts.OutDir, res.Rel, res.Source.Code)
		if err != nil {
			d := diag.NewError(diag.DriverIO, source.Span{File: res.FileID}, err.Error())
			fail(&d)
			return
		}
		res.Output = path
	}
	status := pipeline.StatusDone
	if res.Cached {
		status = pipeline.StatusCached
	}
	pipeline.Emit(opts.Sink, pipeline.Event{File: res.Rel, Status: status, Elapsed: time.Since(start)})
}

// OutputName maps a relative Python path to its Rust file name.
func OutputName(rel string) string {
	return strings.TrimSuffix(filepath.FromSlash(rel), ".py") + ".rs"
}

// WriteOutput writes code for the source at rel under outDir and returns
// the written path.
func WriteOutput(outDir, rel, code string) (string, error) {
	path := filepath.Join(outDir, OutputName(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
