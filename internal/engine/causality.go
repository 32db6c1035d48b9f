package engine

import (
	"log/slog"

	"github.com/RoaringBitmap/roaring"

	"github.com/miradorstack/reconcile-timeline/internal/extractors"
	"github.com/miradorstack/reconcile-timeline/internal/models"
)

// HasCounterpart reports whether any candidate shares event's correlation key.
func HasCounterpart(event models.Event, candidates []models.Event) bool {
	_, ok := FindCounterpart(event, candidates)
	return ok
}

// FindCounterpart returns the first candidate, in candidate order, whose correlation key equals
// origin's. A missing marker on origin never matches.
func FindCounterpart(origin models.Event, candidates []models.Event) (models.Event, bool) {
	key := extractors.ExtractCorrelationKey(origin.RawMessage)
	if !key.Valid() {
		return models.Event{}, false
	}
	for _, candidate := range candidates {
		if key.Matches(extractors.ExtractCorrelationKey(candidate.RawMessage)) {
			return candidate, true
		}
	}
	return models.Event{}, false
}

// KeyIndex maps correlation keys to candidate positions, preserving candidate order per key so
// First agrees with FindCounterpart.
type KeyIndex struct {
	events []models.Event
	byKey  map[uint64][]int
}

// NewKeyIndex indexes candidates once.
func NewKeyIndex(candidates []models.Event) *KeyIndex {
	ix := &KeyIndex{events: candidates, byKey: make(map[uint64][]int)}
	for i, ev := range candidates {
		if v, ok := extractors.ExtractCorrelationKey(ev.RawMessage).Value(); ok {
			ix.byKey[v] = append(ix.byKey[v], i)
		}
	}
	return ix
}

// First returns the earliest candidate carrying key.
func (ix *KeyIndex) First(key models.CorrelationKey) (models.Event, bool) {
	v, ok := key.Value()
	if !ok || ix == nil {
		return models.Event{}, false
	}
	positions := ix.byKey[v]
	if len(positions) == 0 {
		return models.Event{}, false
	}
	return ix.events[positions[0]], true
}

// Has reports whether any candidate carries key.
func (ix *KeyIndex) Has(key models.CorrelationKey) bool {
	_, ok := ix.First(key)
	return ok
}

// CausalLink says which kind holds the counterpart of events of kind From.
type CausalLink struct {
	From models.EventKind
	To   models.EventKind
}

// DefaultCausalLinks pairs each causal kind with the opposing-process kind that carries the same
// input-history marker.
func DefaultCausalLinks() []CausalLink {
	return []CausalLink{
		{From: models.ClientPhysicsTick, To: models.ServerUpdatedPlayerState},
		{From: models.ClientReceivedGameState, To: models.ServerSentGameUpdate},
		{From: models.ServerReceivedInputSnapshot, To: models.ClientPhysicsTick},
	}
}

// EventSource is the read side of the event store.
type EventSource interface {
	EventsOf(kind models.EventKind) []models.Event
}

// CausalityEngine resolves cross-process counterparts for one loaded session. Prepare must be
// called once after the store is filled.
type CausalityEngine struct {
	logger    *slog.Logger
	links     map[models.EventKind]models.EventKind
	ackKind   models.EventKind
	ackTarget models.EventKind

	keys     map[models.EventKind][]models.CorrelationKey
	indexes  map[models.EventKind]*KeyIndex
	acked    *roaring.Bitmap
	ackTotal int
}

// NewCausalityEngine constructs a CausalityEngine; links defaults to DefaultCausalLinks.
func NewCausalityEngine(logger *slog.Logger, links []CausalLink) *CausalityEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if links == nil {
		links = DefaultCausalLinks()
	}
	e := &CausalityEngine{
		logger:    logger,
		links:     make(map[models.EventKind]models.EventKind, len(links)),
		ackKind:   models.ClientPhysicsTick,
		ackTarget: models.ServerUpdatedPlayerState,
		acked:     roaring.New(),
	}
	for _, link := range links {
		e.links[link.From] = link.To
	}
	return e
}

// Prepare extracts keys for every causal kind, indexes every target kind, and classifies each
// client physics tick as acknowledged or not.
func (e *CausalityEngine) Prepare(source EventSource) {
	e.keys = make(map[models.EventKind][]models.CorrelationKey)
	e.indexes = make(map[models.EventKind]*KeyIndex)
	e.acked = roaring.New()

	for from, to := range e.links {
		e.keys[from] = extractKeys(source.EventsOf(from))
		if _, ok := e.indexes[to]; !ok {
			e.indexes[to] = NewKeyIndex(source.EventsOf(to))
		}
	}
	if _, ok := e.keys[e.ackKind]; !ok {
		e.keys[e.ackKind] = extractKeys(source.EventsOf(e.ackKind))
	}
	if _, ok := e.indexes[e.ackTarget]; !ok {
		e.indexes[e.ackTarget] = NewKeyIndex(source.EventsOf(e.ackTarget))
	}

	ticks := e.keys[e.ackKind]
	e.ackTotal = len(ticks)
	target := e.indexes[e.ackTarget]
	for i, key := range ticks {
		if target.Has(key) {
			e.acked.Add(uint32(i))
		}
	}

	e.logger.Debug("causality prepared",
		slog.Int("ticks", e.ackTotal),
		slog.Uint64("acknowledged", e.acked.GetCardinality()),
		slog.Int("causal_kinds", len(e.links)))
}

func extractKeys(events []models.Event) []models.CorrelationKey {
	keys := make([]models.CorrelationKey, len(events))
	for i, ev := range events {
		keys[i] = extractors.ExtractCorrelationKey(ev.RawMessage)
	}
	return keys
}

// IsCausal reports whether kind takes part in directional link resolution.
func (e *CausalityEngine) IsCausal(kind models.EventKind) bool {
	_, ok := e.links[kind]
	return ok
}

// Counterpart returns the first event of the linked kind sharing the key of the index-th event of
// kind. Not found is an ordinary outcome.
func (e *CausalityEngine) Counterpart(kind models.EventKind, index int) (models.Event, bool) {
	to, ok := e.links[kind]
	if !ok {
		return models.Event{}, false
	}
	keys := e.keys[kind]
	if index < 0 || index >= len(keys) {
		return models.Event{}, false
	}
	return e.indexes[to].First(keys[index])
}

// Acknowledged reports whether the index-th client physics tick reached the server.
func (e *CausalityEngine) Acknowledged(index int) bool {
	if index < 0 {
		return false
	}
	return e.acked.Contains(uint32(index))
}

// AckState reports the acknowledgement of the index-th event of kind.
func (e *CausalityEngine) AckState(kind models.EventKind, index int) models.AckState {
	if kind != e.ackKind || index < 0 || index >= e.ackTotal {
		return models.AckNotTracked
	}
	if e.Acknowledged(index) {
		return models.AckConfirmed
	}
	return models.AckMissing
}

// AckCounts returns acknowledged and total client physics ticks.
func (e *CausalityEngine) AckCounts() (acked, total int) {
	return int(e.acked.GetCardinality()), e.ackTotal
}
