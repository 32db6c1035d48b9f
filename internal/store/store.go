package store

import (
	"sort"

	"github.com/miradorstack/reconcile-timeline/internal/models"
)

// EventStore keeps, per kind, events in insertion order. It is filled once during load and read
// afterwards; it is not safe for concurrent mutation.
type EventStore struct {
	ranks  *RankTable
	events map[models.EventKind][]models.Event
	total  int
}

// New creates an empty store; ranks defaults to DefaultRanks.
func New(ranks *RankTable) *EventStore {
	if ranks == nil {
		ranks = DefaultRanks()
	}
	return &EventStore{ranks: ranks, events: make(map[models.EventKind][]models.Event)}
}

// Insert appends event to its kind's sequence. The kind becomes visible.
func (s *EventStore) Insert(event models.Event) {
	// Fail fast on kinds the rank table does not know.
	s.ranks.MustRank(event.Kind)
	s.events[event.Kind] = append(s.events[event.Kind], event)
	s.total++
}

// EventsOf returns the events of kind in insertion order. The slice must not be modified.
func (s *EventStore) EventsOf(kind models.EventKind) []models.Event {
	return s.events[kind]
}

// AllVisibleKinds returns the kinds holding at least one event, in ascending rank order.
func (s *EventStore) AllVisibleKinds() []models.EventKind {
	kinds := make([]models.EventKind, 0, len(s.events))
	for kind, events := range s.events {
		if len(events) > 0 {
			kinds = append(kinds, kind)
		}
	}
	sort.Slice(kinds, func(i, j int) bool {
		ri, rj := s.ranks.MustRank(kinds[i]), s.ranks.MustRank(kinds[j])
		if ri != rj {
			return ri < rj
		}
		return kinds[i] < kinds[j]
	})
	return kinds
}

// RankPositionOf returns the lane of kind, panicking if the rank table lacks it.
func (s *EventStore) RankPositionOf(kind models.EventKind) float64 {
	return s.ranks.MustRank(kind)
}

// Len is the total number of stored events.
func (s *EventStore) Len() int { return s.total }

// AckFunc reports the acknowledgement state of the i-th event of kind.
type AckFunc func(kind models.EventKind, index int) models.AckState

// Series renders every visible kind for the plotting collaborator.
func (s *EventStore) Series(ack AckFunc) []models.Series {
	kinds := s.AllVisibleKinds()
	out := make([]models.Series, 0, len(kinds))
	for _, kind := range kinds {
		events := s.events[kind]
		series := models.Series{
			Kind:    kind,
			Label:   kind.Label(),
			Process: kind.Process(),
			Rank:    s.ranks.MustRank(kind),
			Points:  make([]models.SeriesPoint, 0, len(events)),
		}
		for i, ev := range events {
			state := models.AckNotTracked
			if ack != nil {
				state = ack(kind, i)
			}
			series.Points = append(series.Points, models.SeriesPoint{
				Time:  ev.Timestamp,
				Rank:  ev.Rank,
				Label: ev.RawMessage,
				Ack:   state,
			})
		}
		out = append(out, series)
	}
	return out
}

// Reset drops all events. Used on session teardown.
func (s *EventStore) Reset() {
	s.events = make(map[models.EventKind][]models.Event)
	s.total = 0
}
