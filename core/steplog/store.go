// Package steplog persists environment steps so training runs can be
// inspected after the fact.
package steplog

import (
	"context"
	"time"
)

// Record captures one environment step.
type Record struct {
	Timestamp time.Time            `json:"timestamp"`
	EpisodeID string               `json:"episode_id"`
	Step      int                  `json:"step"`
	Iteration int                  `json:"iteration"`
	Schedule  map[string][]float64 `json:"schedule"`
	Reward    float64              `json:"reward"`
	Rewards   map[string]float64   `json:"rewards,omitempty"`
	Feasible  bool                 `json:"feasible"`
	Done      bool                 `json:"done"`
}

// Query defines filters for retrieving records.
type Query struct {
	EpisodeID      string
	Start          time.Time
	End            time.Time
	InfeasibleOnly bool
}

func (q Query) matches(r Record) bool {
	if q.EpisodeID != "" && r.EpisodeID != q.EpisodeID {
		return false
	}
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.InfeasibleOnly && r.Feasible {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error          { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }
