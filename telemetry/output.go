package telemetry

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/contagion/config"
	"github.com/pthm-cable/contagion/sim"
)

// Output file names inside a run directory.
const (
	ParamsFile          = "params.yaml"
	StateFile           = "state.csv"
	CompressedStateFile = "state.csv.zst"
	SummaryFile         = "summary.csv"
)

// StateRow is one agent's observable state at one tick.
type StateRow struct {
	Step                   int     `csv:"step"`
	Agent                  string  `csv:"agent"`
	Sex                    bool    `csv:"sex"`
	Vaccine                bool    `csv:"vaccine"`
	Infection              bool    `csv:"infection"`
	Degree                 int     `csv:"degree"`
	ContagionDistance      float64 `csv:"contagionDist"`
	InfectiousnessDistance float64 `csv:"infectiousnessDist"`
	IndirectInterference   float64 `csv:"indInterference"`
}

// StateRows converts the patients' current state into rows.
func StateRows(step int, patients []*sim.Patient) []StateRow {
	rows := make([]StateRow, len(patients))
	for i, p := range patients {
		rows[i] = StateRow{
			Step:                   step,
			Agent:                  p.Name,
			Sex:                    p.Sex,
			Vaccine:                p.Vaccinated,
			Infection:              p.Infected,
			Degree:                 p.Degree,
			ContagionDistance:      p.ContagionDistance,
			InfectiousnessDistance: p.InfectiousnessDistance,
			IndirectInterference:   p.IndirectInterference,
		}
	}
	return rows
}

// RunManifest is written to params.yaml at the start of each run.
type RunManifest struct {
	RunKey    string              `yaml:"run_key"`
	Seed      int64               `yaml:"seed"`
	Steps     int                 `yaml:"steps"`
	Canonical string              `yaml:"canonical"`
	Params    config.ParamsConfig `yaml:"params"`
}

// OutputOptions selects which per-run files are written.
type OutputOptions struct {
	State    bool // per-agent rows every tick
	Compress bool // zstd-compress the state file
}

// OutputManager writes one run's output directory.
type OutputManager struct {
	dir  string
	opts OutputOptions

	stateFile   *os.File
	stateEnc    *zstd.Encoder
	state       io.Writer
	summaryFile *os.File

	stateHeaderWritten   bool
	summaryHeaderWritten bool
}

// NewOutputManager creates dir and opens the run's output files.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string, opts OutputOptions) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir, opts: opts}

	f, err := os.Create(filepath.Join(dir, SummaryFile))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", SummaryFile, err)
	}
	om.summaryFile = f

	if opts.State {
		name := StateFile
		if opts.Compress {
			name = CompressedStateFile
		}
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			om.summaryFile.Close()
			return nil, fmt.Errorf("creating %s: %w", name, err)
		}
		om.stateFile = f
		om.state = f

		if opts.Compress {
			enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
			if err != nil {
				f.Close()
				om.summaryFile.Close()
				return nil, fmt.Errorf("creating zstd encoder: %w", err)
			}
			om.stateEnc = enc
			om.state = enc
		}
	}

	return om, nil
}

// WriteManifest saves the run's parameters as YAML.
func (om *OutputManager) WriteManifest(m RunManifest) error {
	if om == nil {
		return nil
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(om.dir, ParamsFile), data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", ParamsFile, err)
	}
	return nil
}

// WriteStates appends one tick of per-agent rows to the state file.
func (om *OutputManager) WriteStates(rows []StateRow) error {
	if om == nil || om.state == nil || len(rows) == 0 {
		return nil
	}

	if !om.stateHeaderWritten {
		if err := gocsv.Marshal(rows, om.state); err != nil {
			return fmt.Errorf("writing state: %w", err)
		}
		om.stateHeaderWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(rows, om.state); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	return nil
}

// WriteSummary appends a tick summary to summary.csv.
func (om *OutputManager) WriteSummary(s TickSummary) error {
	if om == nil {
		return nil
	}

	records := []TickSummary{s}
	if !om.summaryHeaderWritten {
		if err := gocsv.Marshal(records, om.summaryFile); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
		om.summaryHeaderWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, om.summaryFile); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var errs []error
	if om.stateEnc != nil {
		errs = append(errs, om.stateEnc.Close())
		om.stateEnc = nil
	}
	if om.stateFile != nil {
		errs = append(errs, om.stateFile.Close())
		om.stateFile = nil
	}
	om.state = nil
	if om.summaryFile != nil {
		errs = append(errs, om.summaryFile.Close())
		om.summaryFile = nil
	}
	return errors.Join(errs...)
}

// ReadStates loads a state file written by an OutputManager, decompressing
// it when the name ends in .zst.
func ReadStates(path string) ([]StateRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening state: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if filepath.Ext(path) == ".zst" {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	var rows []StateRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parsing state: %w", err)
	}
	return rows, nil
}

// ReadSummaries loads summary.csv.
func ReadSummaries(path string) ([]TickSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening summary: %w", err)
	}
	defer f.Close()

	var rows []TickSummary
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parsing summary: %w", err)
	}
	return rows, nil
}
