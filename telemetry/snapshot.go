package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pthm-cable/contagion/sim"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the end state of a run for inspection.
type Snapshot struct {
	Version int    `json:"version"`
	RunKey  string `json:"run_key,omitempty"`
	Seed    int64  `json:"seed"`

	WorldWidth  float64 `json:"world_width"`
	WorldHeight float64 `json:"world_height"`

	// Bounding box of the patients, which may drift past the nominal world.
	ExtentMin [2]float64 `json:"extent_min"`
	ExtentMax [2]float64 `json:"extent_max"`

	Tick   int    `json:"tick"`
	Params string `json:"params"`

	Patients []PatientState `json:"patients"`
	Edges    []EdgeState    `json:"edges"`
}

// PatientState holds one patient's complete state.
type PatientState struct {
	ID   int64   `json:"id"`
	Name string  `json:"name"`
	Sex  bool    `json:"sex"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`

	Infected   bool `json:"infected"`
	Vaccinated bool `json:"vaccinated"`
	Degree     int  `json:"degree"`

	ContagionDistance      float64 `json:"contagion_distance"`
	InfectiousnessDistance float64 `json:"infectiousness_distance"`
	IndirectInterference   float64 `json:"indirect_interference"`
}

// EdgeState is one contact.
type EdgeState struct {
	A      int64   `json:"a"`
	B      int64   `json:"b"`
	Weight float64 `json:"weight"`
}

// NewSnapshot captures the city's current state.
func NewSnapshot(c *sim.City, runKey string) *Snapshot {
	opts := c.Options()
	snap := &Snapshot{
		Version:     SnapshotVersion,
		RunKey:      runKey,
		Seed:        opts.Seed,
		WorldWidth:  opts.Width,
		WorldHeight: opts.Height,
		Tick:        c.Tick(),
		Params:      c.Params().String(),
	}

	field := c.Field()
	lo, hi := field.Extent()
	snap.ExtentMin = [2]float64{lo.X, lo.Y}
	snap.ExtentMax = [2]float64{hi.X, hi.Y}

	for _, p := range c.Patients() {
		pos := field.Location(p.ID)
		snap.Patients = append(snap.Patients, PatientState{
			ID:                     p.ID,
			Name:                   p.Name,
			Sex:                    p.Sex,
			X:                      pos.X,
			Y:                      pos.Y,
			Infected:               p.Infected,
			Vaccinated:             p.Vaccinated,
			Degree:                 p.Degree,
			ContagionDistance:      p.ContagionDistance,
			InfectiousnessDistance: p.InfectiousnessDistance,
			IndirectInterference:   p.IndirectInterference,
		})
	}
	for _, e := range c.Network().Edges() {
		snap.Edges = append(snap.Edges, EdgeState{A: e.A, B: e.B, Weight: e.Weight})
	}
	return snap
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("snapshot_%d.json", snapshot.Tick))

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}
	return &snapshot, nil
}
