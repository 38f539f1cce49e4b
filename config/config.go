// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World   WorldConfig   `yaml:"world"`
	Network NetworkConfig `yaml:"network"`
	Forces  ForcesConfig  `yaml:"forces"`
	Run     RunConfig     `yaml:"run"`
	Params  ParamsConfig  `yaml:"params"`
	Sweep   SweepConfig   `yaml:"sweep"`
	Output  OutputConfig  `yaml:"output"`
	Store   StoreConfig   `yaml:"store"`
}

// WorldConfig holds the spatial field dimensions and initial placement.
type WorldConfig struct {
	Width         float64 `yaml:"width"`
	Height        float64 `yaml:"height"`
	InitialSpread float64 `yaml:"initial_spread"` // uniform jitter width around the centre
}

// NetworkConfig holds contact network settings that are not swept.
type NetworkConfig struct {
	SeedOnFirstTick bool `yaml:"seed_on_first_tick"`
}

// ForcesConfig holds movement settings that are not swept.
type ForcesConfig struct {
	Center float64 `yaml:"center"` // centre-pull coefficient
}

// RunConfig holds run length and seeding.
type RunConfig struct {
	Steps int   `yaml:"steps"`
	Seed  int64 `yaml:"seed"`
}

// ParamsConfig holds the default value of every swept parameter.
// Sweep rows replace these per run.
type ParamsConfig struct {
	NumPatients           int     `yaml:"num_patients"`
	ProbInfected          float64 `yaml:"prob_infected"`
	ProbVaccine           float64 `yaml:"prob_vaccine"`
	Lambda                float64 `yaml:"lambda"`
	Contagion             float64 `yaml:"contagion"`
	Infectiousness        float64 `yaml:"infectiousness"`
	SexOnInfection        float64 `yaml:"sex_on_infection"`
	SexOnVaccine          float64 `yaml:"sex_on_vaccine"`
	VaccineOnInfection    float64 `yaml:"vaccine_on_infection"`
	PromiscuityPopulation float64 `yaml:"promiscuity_population"`
	MaxPartnerForce       float64 `yaml:"max_partner_force"`
	RandomForce           float64 `yaml:"random_force"`
	PartnerForce          float64 `yaml:"partner_force"`
}

// SweepConfig holds parameter sweep input settings.
type SweepConfig struct {
	Path   string `yaml:"path"`
	Strict bool   `yaml:"strict"` // skip rows with rejected values instead of running them
}

// OutputConfig holds per-run output settings.
type OutputConfig struct {
	Dir      string `yaml:"dir"`
	Compress bool   `yaml:"compress"`
	State    bool   `yaml:"state"`
	Snapshot bool   `yaml:"snapshot"`
}

// StoreConfig holds the run database location.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks the settings that have no sensible fallback.
// Swept parameters are validated per run by the sim package.
func (c *Config) validate() error {
	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("world size must be positive, got %gx%g", c.World.Width, c.World.Height)
	}
	if c.World.InitialSpread < 0 {
		return fmt.Errorf("world.initial_spread must not be negative, got %g", c.World.InitialSpread)
	}
	if c.Run.Steps < 0 {
		return fmt.Errorf("run.steps must not be negative, got %d", c.Run.Steps)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
