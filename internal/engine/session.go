package engine

import (
	"time"

	"github.com/miradorstack/reconcile-timeline/internal/models"
	"github.com/miradorstack/reconcile-timeline/internal/query"
	"github.com/miradorstack/reconcile-timeline/internal/store"
)

// Session owns everything derived from one load: the store, the rank table, the correlation
// state and the interaction state machine. It replaces process-wide globals; Close tears it down.
type Session struct {
	ID        string
	LoadedAt  time.Time
	Store     *store.EventStore
	Ranks     *store.RankTable
	Causality *CausalityEngine
	Query     *query.Engine
	Stats     models.LoadStats
}

// Series returns the renderable series for every visible kind, with acknowledgement flags.
func (s *Session) Series() []models.Series {
	return s.Store.Series(s.Causality.AckState)
}

// Close clears the session's state. The session must not be used afterwards.
func (s *Session) Close() {
	if s.Query != nil {
		s.Query.Reset()
	}
	if s.Store != nil {
		s.Store.Reset()
	}
}
