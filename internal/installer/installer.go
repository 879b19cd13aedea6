package installer

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/x31337/extsync/internal/archive"
	"github.com/x31337/extsync/internal/manifest"
	"github.com/x31337/extsync/internal/plan"
	"github.com/x31337/extsync/internal/registry"
)

// Options configure a run.
type Options struct {
	// TargetDir receives one "<identifier>-<version>" directory per package.
	TargetDir string
	// Workers is the pool size. Values <= 1 run every unit inline.
	Workers int
	Archive archive.Options
	Logger  *log.Logger
	// RunID tags log lines and the run report. Generated when empty.
	RunID string
	// OnUnit is called once per finished unit. Calls are serialized.
	OnUnit func(UnitResult)
}

// UnitResult is the outcome of one install or update.
type UnitResult struct {
	Identifier string
	Version    string
	Previous   string
	Action     plan.Action
	Path       string
	Location   string
	Worker     int
	Duration   time.Duration
	Extracted  *archive.Extracted
	Err        error
}

// Failed reports whether the unit did not complete.
func (u UnitResult) Failed() bool { return u.Err != nil }

// Result summarizes a run.
type Result struct {
	RunID      string
	Started    time.Time
	Finished   time.Time
	Installed  int
	Updated    int
	Skipped    int
	Failed     int
	Cancelled  bool
	Persisted  bool
	BackupPath string
	Units      []UnitResult
	Skips      []plan.Item
}

// Failures returns the units that failed, in plan order.
func (r *Result) Failures() []UnitResult {
	var out []UnitResult
	for _, u := range r.Units {
		if u.Failed() {
			out = append(out, u)
		}
	}
	return out
}

// Execute installs every install and update item of p into opts.TargetDir.
// Workers extract packages and never touch the registry; once all of them
// finish, successful units are upserted in plan order and the registry is
// persisted once. A failed unit does not stop its siblings. Unit failures
// are reported through the result; the returned error covers invalid options
// and registry persistence.
func Execute(ctx context.Context, p *plan.Plan, store *registry.Store, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	for _, r := range []string{opts.Archive.EngineRange, opts.Archive.EngineOverride} {
		if r == "" {
			continue
		}
		if err := manifest.ValidateEngineRange(r); err != nil {
			return nil, err
		}
	}

	target, err := filepath.Abs(opts.TargetDir)
	if err != nil {
		return nil, fmt.Errorf("resolving target directory: %w", err)
	}

	res := &Result{RunID: runID, Started: time.Now(), Skips: p.ToSkip, Skipped: len(p.ToSkip)}
	units := p.Work()
	results := make([]UnitResult, len(units))

	var mu sync.Mutex
	report := func(u UnitResult) {
		if opts.OnUnit == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		opts.OnUnit(u)
	}

	runChunk := func(worker int, start, end int) {
		wlog := logger.With("run", runID, "worker", worker)
		for i := start; i < end; i++ {
			if err := ctx.Err(); err != nil {
				results[i] = notRun(units[i], worker, err)
				continue
			}
			results[i] = runUnit(ctx, units[i], target, worker, opts.Archive, wlog)
			report(results[i])
		}
	}

	workers := opts.Workers
	if workers > len(units) {
		workers = len(units)
	}
	if workers <= 1 {
		runChunk(0, 0, len(units))
	} else {
		var g errgroup.Group
		for w, c := range Partition(len(units), workers) {
			g.Go(func() error {
				runChunk(w, c.Start, c.End)
				return nil
			})
		}
		_ = g.Wait()
	}

	merge(res, units, results, store)
	res.Cancelled = ctx.Err() != nil
	res.Finished = time.Now()

	if store.Dirty() {
		if err := store.Persist(); err != nil {
			return res, fmt.Errorf("persisting registry: %w", err)
		}
		res.Persisted = true
		res.BackupPath = store.BackupPath()
	}

	logger.Info("sync finished",
		"run", runID,
		"installed", res.Installed,
		"updated", res.Updated,
		"skipped", res.Skipped,
		"failed", res.Failed,
	)
	return res, nil
}

func runUnit(ctx context.Context, u plan.Unit, target string, worker int, aopts archive.Options, logger *log.Logger) UnitResult {
	ref := u.Package.Ref
	out := UnitResult{
		Identifier: ref.Identifier,
		Version:    ref.Version,
		Previous:   u.InstalledVersion(),
		Action:     u.Action,
		Path:       u.Package.Path,
		Worker:     worker,
	}

	dir, err := archive.TargetDir(target, ref.DirName())
	if err != nil {
		out.Err = &archive.ExtractionError{Path: u.Package.Path, Op: archive.OpStage, Err: err}
		logger.Error("unit failed", "id", ref.Identifier, "version", ref.Version, "err", out.Err)
		return out
	}
	out.Location = dir

	start := time.Now()
	extracted, err := archive.Extract(ctx, u.Package.Path, dir, ref.Identity(), aopts)
	out.Duration = time.Since(start)
	out.Extracted = extracted
	out.Err = err

	if err != nil {
		logger.Error("unit failed", "id", ref.Identifier, "version", ref.Version, "err", err)
		return out
	}
	if extracted.EnginePatched {
		logger.Debug("engine range patched", "id", ref.Identifier, "from", extracted.PreviousEngine, "to", aopts.EngineOverride)
	}
	logger.Info(pastTense(u.Action), "id", ref.Identifier, "version", ref.Version, "took", out.Duration.Round(time.Millisecond))
	return out
}

func pastTense(a plan.Action) string {
	if a == plan.ActionUpdate {
		return "updated"
	}
	return "installed"
}

func notRun(u plan.Unit, worker int, err error) UnitResult {
	return UnitResult{
		Identifier: u.Package.Ref.Identifier,
		Version:    u.Package.Ref.Version,
		Previous:   u.InstalledVersion(),
		Action:     u.Action,
		Path:       u.Package.Path,
		Worker:     worker,
		Err:        fmt.Errorf("not started: %w", err),
	}
}

// merge is the single owner of registry mutation for a run.
func merge(res *Result, units []plan.Unit, results []UnitResult, store *registry.Store) {
	res.Units = results
	for i, r := range results {
		if r.Failed() {
			res.Failed++
			continue
		}
		u := units[i]
		store.Upsert(registry.NewEntry(u.Package.Ref, r.Location).InheritOpaque(u.Installed))
		switch r.Action {
		case plan.ActionUpdate:
			res.Updated++
		default:
			res.Installed++
		}
	}
}

// Chunk is a half-open range of unit indexes owned by one worker.
type Chunk struct {
	Start, End int
}

// Partition splits n units into contiguous chunks for workers. The first
// n%workers chunks take one extra unit.
func Partition(n, workers int) []Chunk {
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	if n == 0 {
		return nil
	}

	size, rem := n/workers, n%workers
	chunks := make([]Chunk, workers)
	for w := range workers {
		start := w*size + min(w, rem)
		end := start + size
		if w < rem {
			end++
		}
		chunks[w] = Chunk{Start: start, End: end}
	}
	return chunks
}
