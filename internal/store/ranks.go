package store

import (
	"fmt"

	"github.com/miradorstack/reconcile-timeline/internal/models"
	"github.com/miradorstack/reconcile-timeline/internal/utils"
)

const (
	// DefaultBaseRank is the lane of the first kind.
	DefaultBaseRank = 1.0
	// DefaultRankGap separates consecutive lanes.
	DefaultRankGap = 0.25
)

// RankTable assigns every event kind its lane position.
type RankTable struct {
	ranks map[models.EventKind]float64
}

// DefaultRanks lays out all kinds in declaration order starting at DefaultBaseRank.
func DefaultRanks() *RankTable {
	t := &RankTable{ranks: make(map[models.EventKind]float64)}
	for i, kind := range models.AllKinds() {
		t.ranks[kind] = DefaultBaseRank + float64(i)*DefaultRankGap
	}
	return t
}

// NewRankTable builds a table from explicit ranks. Ranks must increase with kind declaration order
// for kinds present in the table.
func NewRankTable(ranks map[models.EventKind]float64) (*RankTable, error) {
	t := &RankTable{ranks: make(map[models.EventKind]float64, len(ranks))}
	for kind, rank := range ranks {
		if !kind.Valid() {
			return nil, fmt.Errorf("rank for invalid kind %d", int(kind))
		}
		t.ranks[kind] = rank
	}
	prev, havePrev := 0.0, false
	for _, kind := range models.AllKinds() {
		rank, ok := t.ranks[kind]
		if !ok {
			continue
		}
		if havePrev && rank <= prev {
			return nil, fmt.Errorf("rank for %s (%v) is not above the previous lane (%v)", kind, rank, prev)
		}
		prev, havePrev = rank, true
	}
	return t, nil
}

// Rank returns the lane for kind.
func (t *RankTable) Rank(kind models.EventKind) (float64, error) {
	rank, ok := t.ranks[kind]
	if !ok {
		return 0, &utils.UnrecognizedEventKindError{Kind: kind.String()}
	}
	return rank, nil
}

// MustRank returns the lane for kind and panics when none is registered. A classified kind without
// a lane means the table is incomplete, which is a programming error.
func (t *RankTable) MustRank(kind models.EventKind) float64 {
	rank, err := t.Rank(kind)
	if err != nil {
		panic(err)
	}
	return rank
}

// Validate checks that every storable kind has a rank.
func (t *RankTable) Validate() error {
	for _, kind := range models.AllKinds() {
		if _, err := t.Rank(kind); err != nil {
			return err
		}
	}
	return nil
}
