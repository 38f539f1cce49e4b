// Package main writes parameter sweep files: the cartesian product of the
// given axes over the configured defaults.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/pthm-cable/contagion/config"
	"github.com/pthm-cable/contagion/sim"
	"github.com/pthm-cable/contagion/sweep"
)

// axisFlags collects repeated -vary values.
type axisFlags []string

func (a *axisFlags) String() string     { return strings.Join(*a, " ") }
func (a *axisFlags) Set(v string) error { *a = append(*a, v); return nil }

func main() {
	var vary axisFlags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	outputPath := flag.String("output", "", "Sweep CSV to write (empty = stdout)")
	repeat := flag.Int("repeat", 1, "Write every grid point this many times")
	flag.Var(&vary, "vary", "Parameter axis as name=v1,v2,... (repeatable)")
	flag.Parse()

	if *repeat < 1 {
		log.Fatal("--repeat must be at least 1")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	base := sim.ParamsFromConfig(cfg.Params)
	if err := base.Validate(); err != nil {
		log.Fatalf("config params invalid: %v", err)
	}

	axes := make([]sweep.Axis, 0, len(vary))
	for _, v := range vary {
		ax, err := sweep.ParseAxis(v)
		if err != nil {
			log.Fatalf("bad --vary: %v", err)
		}
		axes = append(axes, ax)
	}

	grid, err := sweep.Grid(base, axes)
	if err != nil {
		log.Fatalf("building grid: %v", err)
	}
	rows := make([]sweep.Row, 0, len(grid)*(*repeat))
	for _, row := range grid {
		for i := 0; i < *repeat; i++ {
			rows = append(rows, row)
		}
	}

	out := os.Stdout
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			log.Fatalf("failed to create output: %v", err)
		}
		defer f.Close()
		out = f
	}

	if err := sweep.Write(out, rows); err != nil {
		log.Fatalf("writing sweep: %v", err)
	}
	if *outputPath != "" {
		fmt.Fprintf(os.Stderr, "Wrote %d rows (%d grid points x %d) to %s\n", len(rows), len(grid), *repeat, *outputPath)
	}
}
