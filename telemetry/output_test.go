package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/contagion/config"
)

func TestNilOutputManager(t *testing.T) {
	om, err := NewOutputManager("", OutputOptions{State: true})
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v; want nil, nil", om, err)
	}
	if err := om.WriteStates([]StateRow{{Step: 1}}); err != nil {
		t.Error(err)
	}
	if err := om.WriteSummary(TickSummary{}); err != nil {
		t.Error(err)
	}
	if err := om.WriteManifest(RunManifest{}); err != nil {
		t.Error(err)
	}
	if om.Dir() != "" {
		t.Error("nil manager has a directory")
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}

func TestOutputStateFiles(t *testing.T) {
	tests := []struct {
		name     string
		compress bool
		file     string
	}{
		{"plain", false, StateFile},
		{"zstd", true, CompressedStateFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "run")
			om, err := NewOutputManager(dir, OutputOptions{State: true, Compress: tt.compress})
			if err != nil {
				t.Fatalf("NewOutputManager: %v", err)
			}

			col := NewCollector(om, 0)
			c := runCity(t, 3, col)

			rows, err := ReadStates(filepath.Join(dir, tt.file))
			if err != nil {
				t.Fatalf("ReadStates: %v", err)
			}
			if len(rows) != 3*12 {
				t.Fatalf("rows = %d, want 36", len(rows))
			}
			if rows[0].Step != 0 || rows[0].Agent != "Patient_0" {
				t.Errorf("first row = %+v", rows[0])
			}
			last := rows[len(rows)-1]
			p := c.Patients()[11]
			if last.Step != 2 || last.Agent != p.Name || last.Degree != p.Degree || last.Infection != p.Infected {
				t.Errorf("last row = %+v, patient = %+v", last, *p)
			}

			sums, err := ReadSummaries(filepath.Join(dir, SummaryFile))
			if err != nil {
				t.Fatalf("ReadSummaries: %v", err)
			}
			if len(sums) != 3 || sums[2].Step != 2 {
				t.Errorf("summaries = %+v", sums)
			}
		})
	}
}

func TestStateHeaderColumns(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir, OutputOptions{State: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := om.WriteStates([]StateRow{{Step: 0, Agent: "Patient_0"}}); err != nil {
		t.Fatal(err)
	}
	if err := om.WriteStates([]StateRow{{Step: 1, Agent: "Patient_0", Infection: true}}); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, StateFile))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	want := "step,agent,sex,vaccine,infection,degree,contagionDist,infectiousnessDist,indInterference"
	if lines[0] != want {
		t.Errorf("header = %q, want %q", lines[0], want)
	}
	if len(lines) != 3 {
		t.Errorf("lines = %d, want header plus 2 rows", len(lines))
	}
}

func TestStateDisabled(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir, OutputOptions{})
	if err != nil {
		t.Fatal(err)
	}
	runCity(t, 2, NewCollector(om, 0))

	if _, err := os.Stat(filepath.Join(dir, StateFile)); !os.IsNotExist(err) {
		t.Errorf("state file written with state disabled: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, SummaryFile)); err != nil {
		t.Errorf("summary missing: %v", err)
	}
}

func TestWriteManifest(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir, OutputOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer om.Close()

	m := RunManifest{
		RunKey:    "abc",
		Seed:      9,
		Steps:     200,
		Canonical: "numPatients=3",
		Params:    config.Default().Params,
	}
	if err := om.WriteManifest(m); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ParamsFile))
	if err != nil {
		t.Fatal(err)
	}
	var got RunManifest
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.RunKey != "abc" || got.Seed != 9 || got.Params.NumPatients != 1000 {
		t.Errorf("manifest = %+v", got)
	}
}
