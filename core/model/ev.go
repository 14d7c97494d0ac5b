package model

import "math"

// energyTolerance is the remaining demand (kWh) below which an EV is
// considered fully charged.
const energyTolerance = 1e-3

// EV is a charging session at a station.
type EV struct {
	SessionID       string
	StationID       string
	Arrival         int     // iteration the EV plugs in
	Departure       int     // iteration the EV leaves
	RequestedEnergy float64 // kWh
	EnergyDelivered float64 // kWh
	MaxRate         float64 // amps, 0 means unlimited

	// CurrentChargingRate is the rate (amps) applied during the last period.
	CurrentChargingRate float64
}

// RemainingDemand returns the energy (kWh) still requested by the EV.
func (e EV) RemainingDemand() float64 {
	r := e.RequestedEnergy - e.EnergyDelivered
	if r < 0 {
		return 0
	}
	return r
}

// FullyCharged reports whether the EV's energy request has been met.
func (e EV) FullyCharged() bool {
	return e.RemainingDemand() < energyTolerance
}

// Charge applies pilot (amps) for one period of periodMinutes at voltage and
// returns the rate actually drawn. The rate never exceeds the EV's maximum
// or what is needed to complete the request.
func (e *EV) Charge(pilot, voltage, periodMinutes float64) float64 {
	rate := math.Max(pilot, 0)
	if e.MaxRate > 0 {
		rate = math.Min(rate, e.MaxRate)
	}
	if voltage > 0 && periodMinutes > 0 {
		needed := e.RemainingDemand() * 1000 * 60 / (voltage * periodMinutes)
		rate = math.Min(rate, needed)
	}
	e.EnergyDelivered += AmpPeriodsToKWh(rate, voltage, periodMinutes)
	e.CurrentChargingRate = rate
	return rate
}

// AmpPeriodsToKWh converts a rate held for one period into energy.
func AmpPeriodsToKWh(rate, voltage, periodMinutes float64) float64 {
	return rate * voltage * periodMinutes / 60 / 1000
}
