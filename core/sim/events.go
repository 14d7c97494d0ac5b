package sim

import (
	"container/heap"

	"github.com/caltech-netlab/gym-acnportal/core/model"
)

// EventType identifies what an Event does when processed.
type EventType int

const (
	EventPlugin EventType = iota
	EventUnplug
	EventRecompute
)

func (t EventType) String() string {
	switch t {
	case EventPlugin:
		return "plugin"
	case EventUnplug:
		return "unplug"
	case EventRecompute:
		return "recompute"
	default:
		return "unknown"
	}
}

// Event is scheduled at an iteration of the simulation.
type Event struct {
	Time int
	Type EventType
	EV   *model.EV // plugin and unplug only

	seq int
}

// PluginEvent returns the event of ev arriving at its station.
func PluginEvent(ev model.EV) Event {
	cp := ev
	return Event{Time: ev.Arrival, Type: EventPlugin, EV: &cp}
}

// RecomputeEvent forces a re-plan at the given iteration.
func RecomputeEvent(t int) Event { return Event{Time: t, Type: EventRecompute} }

type eventHeap []Event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)   { *h = append(*h, x.(Event)) }
func (h *eventHeap) Pop() any {
	old := *h
	e := old[len(old)-1]
	*h = old[:len(old)-1]
	return e
}

// EventQueue orders events by time, then by insertion.
type EventQueue struct {
	h   eventHeap
	seq int
}

// NewEventQueue returns a queue holding events.
func NewEventQueue(events ...Event) *EventQueue {
	q := &EventQueue{}
	for _, e := range events {
		q.Add(e)
	}
	return q
}

// Add schedules e.
func (q *EventQueue) Add(e Event) {
	e.seq = q.seq
	q.seq++
	heap.Push(&q.h, e)
}

// Empty reports whether no events remain.
func (q *EventQueue) Empty() bool { return len(q.h) == 0 }

// Len returns the number of pending events.
func (q *EventQueue) Len() int { return len(q.h) }

// PopDue removes and returns every event scheduled at or before t.
func (q *EventQueue) PopDue(t int) []Event {
	var out []Event
	for len(q.h) > 0 && q.h[0].Time <= t {
		out = append(out, heap.Pop(&q.h).(Event))
	}
	return out
}
