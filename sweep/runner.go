package sweep

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pthm-cable/contagion/persistence"
	"github.com/pthm-cable/contagion/sim"
	"github.com/pthm-cable/contagion/telemetry"
)

// Store receives finished runs. *persistence.DB implements it.
type Store interface {
	SaveRun(persistence.RunRecord) error
	SaveSummaries(runKey string, sums []telemetry.TickSummary) error
}

// Options configures a Runner.
type Options struct {
	OutputDir string // root for per-run directories; empty disables file output
	Output    telemetry.OutputOptions
	Snapshot  bool // write an end-of-run snapshot into the run directory
	Strict    bool // skip rows with rejected values instead of running them
	LogEvery  int  // log a tick summary every N ticks; 0 disables
}

// Result describes one row's run.
type Result struct {
	Index   int
	Key     string
	Seed    int64
	Params  sim.Params
	Dir     string
	Skipped bool
	Final   telemetry.TickSummary
	Elapsed time.Duration
}

// Runner executes sweep rows one after another.
type Runner struct {
	opts  Options
	city  sim.Options
	store Store

	// current carries accepted values from row to row; a rejected field
	// keeps whatever the previous row (or the defaults) set.
	current sim.Params
}

// NewRunner creates a runner. Row i runs with seed city.Seed+i.
// store may be nil.
func NewRunner(city sim.Options, defaults sim.Params, opts Options, store Store) *Runner {
	return &Runner{opts: opts, city: city, store: store, current: defaults}
}

// Run executes every row in order. Only cancellation stops the sweep early;
// per-row problems are logged.
func (r *Runner) Run(ctx context.Context, rows []Row) ([]Result, error) {
	start := time.Now()
	results := make([]Result, 0, len(rows))
	skipped := 0

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := r.RunRow(ctx, i, row)
		if res.Skipped {
			skipped++
		}
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}

	slog.Info("sweep complete",
		"rows", humanize.Comma(int64(len(rows))),
		"skipped", skipped,
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
	return results, nil
}

// RunRow applies one row and runs it to completion.
func (r *Runner) RunRow(ctx context.Context, index int, row Row) (Result, error) {
	res := Result{Index: index, Seed: r.city.Seed + int64(index)}

	params := r.current
	if err := row.Apply(&params); err != nil {
		if r.opts.Strict {
			slog.Warn("skipping sweep row", "row", index, "error", err)
			res.Skipped = true
			res.Params = params
			return res, nil
		}
		slog.Warn("sweep row has rejected values, keeping previous", "row", index, "error", err)
	}
	r.current = params
	res.Params = params
	res.Key = RunKey(params, res.Seed)

	opts := r.city
	opts.Seed = res.Seed
	city, err := sim.NewCity(opts, params)
	if err != nil {
		slog.Error("cannot build city", "row", index, "error", err)
		res.Skipped = true
		return res, nil
	}

	out := r.openOutput(&res)
	collector := telemetry.NewCollector(out, r.opts.LogEvery)
	perf := telemetry.NewPerfCollector(50)
	city.AddObserver(collector)
	city.AddObserver(perf)

	slog.Info("starting run",
		"row", index,
		"key", res.Key,
		"seed", res.Seed,
		"patients", humanize.Comma(int64(params.NumPatients)),
		"steps", opts.Steps,
	)

	perf.Begin()
	runErr := city.Run(ctx)
	res.Elapsed = perf.Stats().Elapsed
	res.Final, _ = collector.Last()
	if runErr != nil {
		return res, runErr
	}

	if r.opts.Snapshot && res.Dir != "" {
		if _, err := telemetry.SaveSnapshot(telemetry.NewSnapshot(city, res.Key), res.Dir); err != nil {
			slog.Error("writing snapshot", "key", res.Key, "error", err)
		}
	}
	r.save(res, opts.Steps, collector.Summaries())

	st := perf.Stats()
	slog.Info("run complete",
		"row", index,
		"key", res.Key,
		"infected", res.Final.Infected,
		"vaccinated", res.Final.Vaccinated,
		"draws", humanize.Comma(city.Draws()),
		"ticks_per_sec", st.TicksPerSecond,
		"output", r.outputSize(res.Dir),
	)
	return res, nil
}

// openOutput creates the run directory. Failures are logged and the run
// continues without file output.
func (r *Runner) openOutput(res *Result) *telemetry.OutputManager {
	if r.opts.OutputDir == "" {
		return nil
	}
	dir := filepath.Join(r.opts.OutputDir, res.Key)
	out, err := telemetry.NewOutputManager(dir, r.opts.Output)
	if err != nil {
		slog.Error("opening run output", "dir", dir, "error", err)
		return nil
	}
	res.Dir = dir

	manifest := telemetry.RunManifest{
		RunKey:    res.Key,
		Seed:      res.Seed,
		Steps:     r.city.Steps,
		Canonical: res.Params.String(),
		Params:    res.Params.Config(),
	}
	if err := out.WriteManifest(manifest); err != nil {
		slog.Error("writing manifest", "dir", dir, "error", err)
	}
	return out
}

func (r *Runner) save(res Result, steps int, sums []telemetry.TickSummary) {
	if r.store == nil {
		return
	}
	rec := persistence.RunRecord{
		RunKey:     res.Key,
		RowIndex:   res.Index,
		Seed:       res.Seed,
		Steps:      steps,
		Params:     res.Params.String(),
		Infected:   res.Final.Infected,
		Vaccinated: res.Final.Vaccinated,
		Edges:      res.Final.Edges,
		ElapsedMS:  res.Elapsed.Milliseconds(),
		FinishedAt: time.Now().Unix(),
	}
	if err := r.store.SaveRun(rec); err != nil {
		slog.Error("storing run", "key", res.Key, "error", err)
	}
	if err := r.store.SaveSummaries(res.Key, sums); err != nil {
		slog.Error("storing summaries", "key", res.Key, "error", err)
	}
}

// outputSize returns the total size of the run directory in human form.
func (r *Runner) outputSize(dir string) string {
	if dir == "" {
		return "none"
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "unknown"
	}
	var total uint64
	for _, e := range entries {
		if info, err := e.Info(); err == nil {
			total += uint64(info.Size())
		}
	}
	return humanize.Bytes(total)
}
