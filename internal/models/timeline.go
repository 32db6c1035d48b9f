package models

import "time"

// Point is a coordinate in time × rank space, as plotted by the renderer.
type Point struct {
	Time time.Time
	Rank float64
}

// Equal compares points exactly; pinned annotations are keyed on this.
func (p Point) Equal(other Point) bool {
	return p.Time.Equal(other.Time) && p.Rank == other.Rank
}

// PointKey is the comparable form of a Point; time.Time carries a location pointer and
// cannot be used as a map key directly.
type PointKey struct {
	Nanos int64
	Rank  float64
}

// Key returns the map key for the point.
func (p Point) Key() PointKey {
	return PointKey{Nanos: p.Time.UnixNano(), Rank: p.Rank}
}

// AckState describes whether the server acknowledged a client tick.
type AckState int

const (
	// AckNotTracked is used for kinds without acknowledgement semantics.
	AckNotTracked AckState = iota
	AckConfirmed
	AckMissing
)

func (s AckState) String() string {
	switch s {
	case AckConfirmed:
		return "confirmed"
	case AckMissing:
		return "missing"
	default:
		return "not_tracked"
	}
}

// SeriesPoint is a single renderable point in a series.
type SeriesPoint struct {
	Time  time.Time
	Rank  float64
	Label string
	Ack   AckState
}

// Series is the renderable sequence for one visible kind.
type Series struct {
	Kind    EventKind
	Label   string
	Process Process
	Rank    float64
	Points  []SeriesPoint
}

// Annotation is the text shown next to a hit point.
type Annotation struct {
	Kind  EventKind
	Index int
	At    Point
	Text  string
}

// Segment is a drawn causal link between two plotted events.
type Segment struct {
	FromKind EventKind
	From     Point
	ToKind   EventKind
	To       Point
}
