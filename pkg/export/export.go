// Package export writes simulation histories for offline analysis.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// History is the per-station charging history of an episode. Rows follow
// StationIDs and columns are iterations.
type History struct {
	StationIDs    []string    `json:"station_ids"`
	ChargingRates [][]float64 `json:"charging_rates"`
	PilotSignals  [][]float64 `json:"pilot_signals"`
}

// NewHistory copies the rate and pilot matrices of an engine. Either matrix
// may be empty.
func NewHistory(stationIDs []string, rates, pilots mat.Matrix) (History, error) {
	h := History{StationIDs: append([]string(nil), stationIDs...)}
	var err error
	if h.ChargingRates, err = rows(stationIDs, rates); err != nil {
		return History{}, fmt.Errorf("charging rates: %w", err)
	}
	if h.PilotSignals, err = rows(stationIDs, pilots); err != nil {
		return History{}, fmt.Errorf("pilot signals: %w", err)
	}
	return h, nil
}

func rows(ids []string, m mat.Matrix) ([][]float64, error) {
	out := make([][]float64, len(ids))
	var r, c int
	if m != nil {
		r, c = m.Dims()
	}
	if r == 0 || c == 0 {
		for i := range out {
			out[i] = []float64{}
		}
		return out, nil
	}
	if r != len(ids) {
		return nil, fmt.Errorf("%d rows for %d stations", r, len(ids))
	}
	for i := range out {
		out[i] = make([]float64, c)
		mat.Row(out[i], i, m)
	}
	return out, nil
}

// Iterations returns the number of recorded periods.
func (h History) Iterations() int {
	if len(h.ChargingRates) == 0 {
		return 0
	}
	return len(h.ChargingRates[0])
}

// WriteJSON writes the history to w in JSON format.
func WriteJSON(w io.Writer, h History) error {
	enc := json.NewEncoder(w)
	return enc.Encode(h)
}

// WriteCSV writes one line per station and iteration.
func WriteCSV(w io.Writer, h History) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"station_id", "iteration", "charging_rate", "pilot_signal"}); err != nil {
		return err
	}
	for i, id := range h.StationIDs {
		for t, rate := range h.ChargingRates[i] {
			pilot := 0.0
			if i < len(h.PilotSignals) && t < len(h.PilotSignals[i]) {
				pilot = h.PilotSignals[i][t]
			}
			rec := []string{
				id,
				strconv.Itoa(t),
				strconv.FormatFloat(rate, 'f', -1, 64),
				strconv.FormatFloat(pilot, 'f', -1, 64),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
