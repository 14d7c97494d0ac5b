package config

import (
	"fmt"

	"github.com/caltech-netlab/gym-acnportal/core/model"
)

// SessionConfig is an explicit EV session.
type SessionConfig struct {
	ID        string  `json:"id"`
	StationID string  `json:"station_id"`
	Arrival   int     `json:"arrival"`
	Departure int     `json:"departure"`
	Energy    float64 `json:"energy"`
	MaxRate   float64 `json:"max_rate"`
}

// Validate checks the session against the network.
func (s SessionConfig) Validate(n NetworkConfig) error {
	found := false
	for _, st := range n.Stations {
		if st.ID == s.StationID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("unknown station %s", s.StationID)
	}
	if s.Arrival < 0 || s.Departure <= s.Arrival {
		return fmt.Errorf("departure must follow arrival")
	}
	if s.Energy < 0 {
		return fmt.Errorf("energy must not be negative")
	}
	return nil
}

// EV converts the session.
func (s SessionConfig) EV() model.EV {
	id := s.ID
	if id == "" {
		id = fmt.Sprintf("%s-%d", s.StationID, s.Arrival)
	}
	return model.EV{
		SessionID:       id,
		StationID:       s.StationID,
		Arrival:         s.Arrival,
		Departure:       s.Departure,
		RequestedEnergy: s.Energy,
		MaxRate:         s.MaxRate,
	}
}
