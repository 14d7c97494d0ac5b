package config

import (
	"fmt"

	"github.com/caltech-netlab/gym-acnportal/core/model"
	"github.com/caltech-netlab/gym-acnportal/core/network"
)

// StationConfig describes one EVSE.
type StationConfig struct {
	ID string `json:"id"`
	// Type is "evse", "deadband" or "finite".
	Type string `json:"type"`
	// Min is the lowest pilot of an evse and the deadband end of a
	// deadband station.
	Min   float64   `json:"min"`
	Max   float64   `json:"max"`
	Rates []float64 `json:"rates"`
	// Voltage and Phase (degrees) default to the network values.
	Voltage float64 `json:"voltage"`
	Phase   float64 `json:"phase"`
}

// ConstraintConfig describes a current limit over a set of stations.
type ConstraintConfig struct {
	ID        string             `json:"id"`
	Magnitude float64            `json:"magnitude"`
	Loads     map[string]float64 `json:"loads"`
}

// NetworkConfig lists the stations and constraints of the site. Station ids
// must not contain dots since they are used as keys in constraint loads.
type NetworkConfig struct {
	Voltage     float64            `json:"voltage"`
	Stations    []StationConfig    `json:"stations"`
	Constraints []ConstraintConfig `json:"constraints"`
}

// SetDefaults applies sane defaults.
func (c *NetworkConfig) SetDefaults() {
	if c.Voltage == 0 {
		c.Voltage = 208
	}
	for i := range c.Stations {
		s := &c.Stations[i]
		if s.Type == "" {
			s.Type = "evse"
		}
		if s.Voltage == 0 {
			s.Voltage = c.Voltage
		}
		if s.Max == 0 && s.Type != "finite" {
			s.Max = 32
		}
	}
}

// Validate checks that the network can be built.
func (c NetworkConfig) Validate() error {
	if len(c.Stations) == 0 {
		return fmt.Errorf("at least one station is required")
	}
	seen := make(map[string]struct{}, len(c.Stations))
	for _, s := range c.Stations {
		if s.ID == "" {
			return fmt.Errorf("station id is required")
		}
		if _, ok := seen[s.ID]; ok {
			return fmt.Errorf("duplicate station %s", s.ID)
		}
		seen[s.ID] = struct{}{}
		switch s.Type {
		case "evse", "deadband":
			if s.Max < s.Min {
				return fmt.Errorf("station %s: max below min", s.ID)
			}
		case "finite":
			if len(s.Rates) == 0 {
				return fmt.Errorf("station %s: rates are required", s.ID)
			}
		default:
			return fmt.Errorf("station %s: unknown type %s", s.ID, s.Type)
		}
	}
	for _, k := range c.Constraints {
		if k.ID == "" {
			return fmt.Errorf("constraint id is required")
		}
		for id := range k.Loads {
			if _, ok := seen[id]; !ok {
				return fmt.Errorf("constraint %s: unknown station %s", k.ID, id)
			}
		}
	}
	return nil
}

// EVSE builds the device described by s.
func (s StationConfig) EVSE() (model.EVSE, error) {
	switch s.Type {
	case "", "evse":
		return model.NewEVSE(s.ID, s.Min, s.Max), nil
	case "deadband":
		return model.NewDeadbandEVSE(s.ID, s.Min, s.Max), nil
	case "finite":
		return model.NewFiniteRatesEVSE(s.ID, s.Rates), nil
	}
	return nil, fmt.Errorf("unknown station type %s", s.Type)
}

// Build creates a fresh charging network.
func (c NetworkConfig) Build() (*network.ChargingNetwork, error) {
	n := network.New()
	for _, s := range c.Stations {
		evse, err := s.EVSE()
		if err != nil {
			return nil, err
		}
		if err := n.RegisterEVSE(evse, s.Voltage, s.Phase); err != nil {
			return nil, err
		}
	}
	for _, k := range c.Constraints {
		if err := n.AddConstraint(k.ID, k.Loads, k.Magnitude); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// StationIDs returns the configured station ids in order.
func (c NetworkConfig) StationIDs() []string {
	out := make([]string, len(c.Stations))
	for i, s := range c.Stations {
		out[i] = s.ID
	}
	return out
}
