package engine

import (
	"github.com/miradorstack/reconcile-timeline/internal/extractors"
	"github.com/miradorstack/reconcile-timeline/internal/models"
	"github.com/miradorstack/reconcile-timeline/internal/store"
)

// posLenRankScale converts the "poslen" payload into a lane offset.
const posLenRankScale = 0.01

// RankOffsetFunc perturbs an event's lane from its message.
type RankOffsetFunc func(message string) float64

// DefaultRankOffsets spreads client physics ticks vertically by position length.
func DefaultRankOffsets() map[models.EventKind]RankOffsetFunc {
	return map[models.EventKind]RankOffsetFunc{
		models.ClientPhysicsTick: posLenOffset,
	}
}

func posLenOffset(message string) float64 {
	v, ok := extractors.ExtractNumericPayload(message)
	if !ok {
		return 0
	}
	return v * posLenRankScale
}

// NewEvent builds the event for a classified record. The body is carried unchanged.
func NewEvent(record models.LogRecord, kind models.EventKind, aligner *ClockAligner, ranks *store.RankTable, offsets map[models.EventKind]RankOffsetFunc) models.Event {
	rank := ranks.MustRank(kind)
	if fn, ok := offsets[kind]; ok && fn != nil {
		rank += fn(record.Body)
	}
	return models.Event{
		Kind:       kind,
		Timestamp:  aligner.Align(record.Timestamp, record.Process),
		Rank:       rank,
		RawMessage: record.Body,
	}
}
