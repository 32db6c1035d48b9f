package query

import (
	"math"
	"time"

	"github.com/miradorstack/reconcile-timeline/internal/models"
)

// Position is a pointer location in time × rank space.
type Position struct {
	Time time.Time
	Rank float64
}

// HitTester is the rendering collaborator's nearest-point test. It returns the index of the event
// of kind nearest to pos within its pick radius.
type HitTester interface {
	HitTest(kind models.EventKind, events []models.Event, pos Position) (int, bool)
}

// Scale converts data distances into pick units.
type Scale struct {
	// Time is the span of time that counts as one pick unit.
	Time time.Duration
	// Rank is the lane distance that counts as one pick unit.
	Rank float64
}

// NearestHitTester hit-tests in data space for hosts without a pixel-space picker.
type NearestHitTester struct {
	Radius float64
	Scale  Scale
}

// NewNearestHitTester builds a data-space hit tester; zero scales fall back to 1ms and 0.02.
func NewNearestHitTester(radius float64, scale Scale) NearestHitTester {
	if scale.Time <= 0 {
		scale.Time = time.Millisecond
	}
	if scale.Rank <= 0 {
		scale.Rank = 0.02
	}
	return NearestHitTester{Radius: radius, Scale: scale}
}

// HitTest returns the closest event within Radius. Ties keep the earlier index.
func (h NearestHitTester) HitTest(_ models.EventKind, events []models.Event, pos Position) (int, bool) {
	best, bestDist := -1, math.Inf(1)
	for i, ev := range events {
		dx := float64(ev.Timestamp.Sub(pos.Time)) / float64(h.Scale.Time)
		dy := (ev.Rank - pos.Rank) / h.Scale.Rank
		d := math.Hypot(dx, dy)
		if d <= h.Radius && d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}

// FixedHits replays hits that a remote renderer already computed for the current pointer.
type FixedHits map[models.EventKind]int

// HitTest returns the recorded index for kind, if any.
func (f FixedHits) HitTest(kind models.EventKind, events []models.Event, _ Position) (int, bool) {
	idx, ok := f[kind]
	if !ok || idx < 0 || idx >= len(events) {
		return 0, false
	}
	return idx, true
}
