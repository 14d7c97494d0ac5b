package network

import (
	"fmt"

	"github.com/caltech-netlab/gym-acnportal/core/model"
)

// SimpleACN builds a single-phase network of basic 32A EVSEs sharing one
// aggregate current limit.
func SimpleACN(stationIDs []string, aggregateCap, voltage float64) (*ChargingNetwork, error) {
	n := New()
	loads := make(map[string]float64, len(stationIDs))
	for _, id := range stationIDs {
		if err := n.RegisterEVSE(model.NewEVSE(id, 0, 32), voltage, 0); err != nil {
			return nil, err
		}
		loads[id] = 1
	}
	if err := n.AddConstraint("Aggregate Current", loads, aggregateCap); err != nil {
		return nil, fmt.Errorf("simple acn: %w", err)
	}
	return n, nil
}
