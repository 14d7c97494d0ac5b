package env

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/caltech-netlab/gym-acnportal/core/gym"
	"github.com/caltech-netlab/gym-acnportal/core/model"
)

// Observation maps observer names to their values. Station vectors are
// column vectors in station id order.
type Observation map[string]*mat.Dense

// Observer extracts one entry of an Observation.
type Observer struct {
	Name string
	Fn   func(gym.Trained) *mat.Dense
}

var observers = map[string]func(gym.Trained) *mat.Dense{
	"arrivals":          arrivals,
	"departures":        departures,
	"demands":           demands,
	"constraint_matrix": func(t gym.Trained) *mat.Dense { return t.ConstraintMatrix() },
	"magnitudes":        magnitudes,
	"timestep":          func(t gym.Trained) *mat.Dense { return mat.NewDense(1, 1, []float64{float64(t.CurrentTime())}) },
	"charging_rates":    chargingRates,
}

// DefaultObservations are used when none are configured.
var DefaultObservations = []string{
	"arrivals",
	"departures",
	"demands",
	"constraint_matrix",
	"magnitudes",
	"timestep",
}

// LookupObservers resolves observer names, keeping their order.
func LookupObservers(names []string) ([]Observer, error) {
	out := make([]Observer, 0, len(names))
	for _, name := range names {
		fn, ok := observers[name]
		if !ok {
			return nil, fmt.Errorf("unknown observation %q", name)
		}
		out = append(out, Observer{Name: name, Fn: fn})
	}
	return out, nil
}

// stationVector builds a column vector with f applied to the active EV at
// each station, 0 where no EV is charging.
func stationVector(t gym.Trained, f func(ev model.EV) float64) *mat.Dense {
	ids := t.StationIDs()
	if len(ids) == 0 {
		return &mat.Dense{}
	}
	byStation := make(map[string]model.EV)
	for _, ev := range t.ActiveSessions() {
		byStation[ev.StationID] = ev
	}
	v := mat.NewDense(len(ids), 1, nil)
	for i, id := range ids {
		if ev, ok := byStation[id]; ok {
			v.Set(i, 0, f(ev))
		}
	}
	return v
}

func arrivals(t gym.Trained) *mat.Dense {
	return stationVector(t, func(ev model.EV) float64 { return float64(ev.Arrival) })
}

// departures are the periods left before each EV leaves.
func departures(t gym.Trained) *mat.Dense {
	now := t.CurrentTime()
	return stationVector(t, func(ev model.EV) float64 {
		if left := ev.Departure - now; left > 0 {
			return float64(left)
		}
		return 0
	})
}

// demands are the remaining energy requests in kWh.
func demands(t gym.Trained) *mat.Dense {
	return stationVector(t, model.EV.RemainingDemand)
}

func magnitudes(t gym.Trained) *mat.Dense {
	m := t.Magnitudes()
	if len(m) == 0 {
		return &mat.Dense{}
	}
	return mat.NewDense(len(m), 1, m)
}

// chargingRates is the latest column of the charging rate history.
func chargingRates(t gym.Trained) *mat.Dense {
	rates := t.ChargingRates()
	ids := t.StationIDs()
	if len(ids) == 0 {
		return &mat.Dense{}
	}
	v := mat.NewDense(len(ids), 1, nil)
	if rates.IsEmpty() {
		return v
	}
	r, c := rates.Dims()
	for i := 0; i < r && i < len(ids); i++ {
		v.Set(i, 0, rates.At(i, c-1))
	}
	return v
}
