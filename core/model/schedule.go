package model

import "sort"

// Schedule maps a station id to the pilot signals (amps) it should receive,
// one value per upcoming time step.
type Schedule map[string][]float64

// StationIDs returns the scheduled station ids in sorted order.
func (s Schedule) StationIDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Horizon returns the length of the longest sequence in the schedule.
func (s Schedule) Horizon() int {
	n := 0
	for _, p := range s {
		if len(p) > n {
			n = len(p)
		}
	}
	return n
}

// MinLength returns the length of the shortest sequence. An empty schedule
// has a minimum length of 0.
func (s Schedule) MinLength() int {
	first := true
	n := 0
	for _, p := range s {
		if first || len(p) < n {
			n = len(p)
			first = false
		}
	}
	return n
}

// PilotAt returns the pilot scheduled for station at step t, or 0 when the
// station is absent or its sequence has run out.
func (s Schedule) PilotAt(stationID string, t int) float64 {
	p, ok := s[stationID]
	if !ok || t < 0 || t >= len(p) {
		return 0
	}
	return p[t]
}

// Clone returns a deep copy of the schedule.
func (s Schedule) Clone() Schedule {
	if s == nil {
		return nil
	}
	cp := make(Schedule, len(s))
	for id, p := range s {
		cp[id] = append([]float64(nil), p...)
	}
	return cp
}
