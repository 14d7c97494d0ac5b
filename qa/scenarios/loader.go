package scenarios

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/caltech-netlab/gym-acnportal/config"
)

type StationDef struct {
	ID    string    `yaml:"id"`
	Type  string    `yaml:"type"`
	Min   float64   `yaml:"min"`
	Max   float64   `yaml:"max"`
	Rates []float64 `yaml:"rates,omitempty"`
}

func (s StationDef) ToConfig() config.StationConfig {
	return config.StationConfig{ID: s.ID, Type: s.Type, Min: s.Min, Max: s.Max, Rates: s.Rates}
}

type SessionDef struct {
	Station   string  `yaml:"station"`
	Arrival   int     `yaml:"arrival"`
	Departure int     `yaml:"departure"`
	Energy    float64 `yaml:"energy"`
}

func (s SessionDef) ToConfig() config.SessionConfig {
	return config.SessionConfig{StationID: s.Station, Arrival: s.Arrival, Departure: s.Departure, Energy: s.Energy}
}

type Expected struct {
	Steps           int     `yaml:"steps"`
	Iterations      int     `yaml:"iterations"`
	InfeasibleSteps int     `yaml:"infeasible_steps"`
	Stalled         bool    `yaml:"stalled"`
	EnergyKWh       float64 `yaml:"energy_kwh"`
}

type Scenario struct {
	Name             string       `yaml:"name"`
	Description      string       `yaml:"description,omitempty"`
	Stations         []StationDef `yaml:"stations"`
	Capacity         float64      `yaml:"capacity"`
	Sessions         []SessionDef `yaml:"sessions"`
	Policy           string       `yaml:"policy"`
	ForceFeasibility bool         `yaml:"force_feasibility"`
	StallLimit       int          `yaml:"stall_limit,omitempty"`
	Expected         Expected     `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Config turns the scenario into a validated configuration with every
// station sharing one aggregate constraint.
func (sc *Scenario) Config() (*config.Config, error) {
	cfg := &config.Config{}
	loads := make(map[string]float64, len(sc.Stations))
	for _, s := range sc.Stations {
		cfg.Network.Stations = append(cfg.Network.Stations, s.ToConfig())
		loads[s.ID] = 1
	}
	if sc.Capacity > 0 {
		cfg.Network.Constraints = []config.ConstraintConfig{{ID: "aggregate", Magnitude: sc.Capacity, Loads: loads}}
	}
	for _, s := range sc.Sessions {
		cfg.Sessions = append(cfg.Sessions, s.ToConfig())
	}
	cfg.Simulation.ForceFeasibility = sc.ForceFeasibility
	cfg.Simulation.StallLimit = sc.StallLimit
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
