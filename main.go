package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/contagion/config"
	"github.com/pthm-cable/contagion/persistence"
	"github.com/pthm-cable/contagion/sim"
	"github.com/pthm-cable/contagion/sweep"
	"github.com/pthm-cable/contagion/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	paramsPath := flag.String("params", "", "Parameter sweep CSV (empty = use config)")
	single := flag.Bool("single", false, "Run the configured parameters once instead of a sweep")
	outputDir := flag.String("output-dir", "", "Root directory for per-run output (empty = use config)")
	seed := flag.Int64("seed", 0, "Base RNG seed (0 = config, then time-based)")
	steps := flag.Int("steps", 0, "Ticks per run (0 = use config)")
	dbPath := flag.String("db", "", "SQLite database for run records (empty = use config)")
	compress := flag.Bool("compress", false, "zstd-compress per-agent state files")
	strict := flag.Bool("strict", false, "Skip sweep rows with out-of-range values")
	logEvery := flag.Int("log-every", 0, "Log a population summary every N ticks (0 = off)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// CLI overrides
	if *paramsPath != "" {
		cfg.Sweep.Path = *paramsPath
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *steps > 0 {
		cfg.Run.Steps = *steps
	}
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}
	if *compress {
		cfg.Output.Compress = true
	}
	if *strict {
		cfg.Sweep.Strict = true
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = cfg.Run.Seed
	}
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}
	cfg.Run.Seed = rngSeed

	defaults := sim.ParamsFromConfig(cfg.Params)

	var rows []sweep.Row
	if *single {
		rows = []sweep.Row{sweep.RowFromParams(defaults)}
	} else {
		var err error
		rows, err = sweep.Load(cfg.Sweep.Path)
		if err != nil {
			slog.Error("failed to load sweep", "path", cfg.Sweep.Path, "error", err)
			os.Exit(1)
		}
	}

	var store sweep.Store
	if cfg.Store.Path != "" {
		db, err := persistence.Open(cfg.Store.Path)
		if err != nil {
			slog.Error("failed to open database", "path", cfg.Store.Path, "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store = db
	}

	runner := sweep.NewRunner(sim.OptionsFromConfig(cfg), defaults, sweep.Options{
		OutputDir: cfg.Output.Dir,
		Output: telemetry.OutputOptions{
			State:    cfg.Output.State,
			Compress: cfg.Output.Compress,
		},
		Snapshot: cfg.Output.Snapshot,
		Strict:   cfg.Sweep.Strict,
		LogEvery: *logEvery,
	}, store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting sweep",
		"rows", len(rows),
		"seed", rngSeed,
		"steps", cfg.Run.Steps,
		"output_dir", cfg.Output.Dir,
		"strict", cfg.Sweep.Strict,
	)

	if _, err := runner.Run(ctx, rows); err != nil {
		slog.Warn("sweep interrupted", "error", err)
	}
}
