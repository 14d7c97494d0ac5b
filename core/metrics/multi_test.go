package metrics

import (
	"errors"
	"testing"
)

type recordSink struct {
	steps    int
	episodes int
	closed   bool
	err      error
}

func (r *recordSink) RecordStep(StepEvent) error {
	r.steps++
	return r.err
}

func (r *recordSink) RecordEpisode(EpisodeSummary) error {
	r.episodes++
	return nil
}

func (r *recordSink) Close() error {
	r.closed = true
	return nil
}

type stepOnly struct{ steps int }

func (s *stepOnly) RecordStep(StepEvent) error {
	s.steps++
	return nil
}

// TestMultiSink ensures events are forwarded to all sinks.
func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &stepOnly{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordStep(StepEvent{EpisodeID: "e"}); err != nil {
		t.Fatalf("record step: %v", err)
	}
	if err := m.RecordEpisode(EpisodeSummary{EpisodeID: "e"}); err != nil {
		t.Fatalf("record episode: %v", err)
	}
	if s1.steps != 1 || s2.steps != 1 || s1.episodes != 1 {
		t.Fatalf("events not forwarded")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !s1.closed {
		t.Fatal("closer not called")
	}
}

func TestMultiSinkStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordStep(StepEvent{}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if s2.steps != 0 {
		t.Fatal("second sink should not be called")
	}
}
