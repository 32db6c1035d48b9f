package query

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/miradorstack/reconcile-timeline/internal/models"
	"github.com/miradorstack/reconcile-timeline/internal/utils"
)

// Dataset is the loaded, read-only event store.
type Dataset interface {
	AllVisibleKinds() []models.EventKind
	EventsOf(kind models.EventKind) []models.Event
}

// Resolver answers causal questions about stored events.
type Resolver interface {
	IsCausal(kind models.EventKind) bool
	Counterpart(kind models.EventKind, index int) (models.Event, bool)
	AckState(kind models.EventKind, index int) models.AckState
}

// Chord is the set of held inputs. The two buttons and the modifier are independent flags.
type Chord struct {
	Primary   bool
	Secondary bool
	Modifier  bool
}

// Frame is everything the renderer needs to draw after an input.
type Frame struct {
	Chord     Chord
	Transient *models.Annotation
	Pinned    []models.Annotation
	Locator   *time.Time
	Links     []models.Segment
}

// Options tune an Engine.
type Options struct {
	Logger *slog.Logger
	// OnCausalLink is called after every directional link attempt.
	OnCausalLink func(origin models.EventKind, found bool)
}

// Engine is the interaction state machine for one session. It is driven from a single dispatch
// goroutine and performs no locking.
type Engine struct {
	data     Dataset
	resolver Resolver
	hits     HitTester
	logger   *slog.Logger
	onLink   func(models.EventKind, bool)

	chord      Chord
	pointer    Position
	hasPointer bool

	pinned    map[models.PointKey]struct{}
	pinOrder  []models.Annotation
	links     []models.Segment
	linkSet   map[segmentKey]struct{}
	transient *models.Annotation
	locator   *time.Time
}

type segmentKey struct {
	from, to models.PointKey
}

// NewEngine creates an idle engine.
func NewEngine(data Dataset, resolver Resolver, hits HitTester, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		data:     data,
		resolver: resolver,
		hits:     hits,
		logger:   logger,
		onLink:   opts.OnCausalLink,
		pinned:   make(map[models.PointKey]struct{}),
		linkSet:  make(map[segmentKey]struct{}),
	}
}

// SetHitTester swaps the hit tester and returns the previous one.
func (e *Engine) SetHitTester(h HitTester) HitTester {
	prev := e.hits
	e.hits = h
	return prev
}

// PointerMoved hit-tests every visible series at pos and updates annotations, the locator and
// causal links according to the held chord.
func (e *Engine) PointerMoved(pos Position) {
	e.pointer = pos
	e.hasPointer = true
	e.evaluate()
}

// PrimaryDown marks the primary button held and re-evaluates the last pointer position, so a
// press without movement still pins.
func (e *Engine) PrimaryDown() {
	e.chord.Primary = true
	if e.hasPointer {
		e.evaluate()
	}
}

// PrimaryUp releases the primary button.
func (e *Engine) PrimaryUp() { e.chord.Primary = false }

// SecondaryDown clears causal links while primary is held, otherwise clears pinned annotations.
func (e *Engine) SecondaryDown() {
	e.chord.Secondary = true
	if e.chord.Primary {
		e.links = nil
		e.linkSet = make(map[segmentKey]struct{})
		return
	}
	e.pinOrder = nil
	e.pinned = make(map[models.PointKey]struct{})
}

// SecondaryUp releases the secondary button.
func (e *Engine) SecondaryUp() { e.chord.Secondary = false }

// ModifierDown sets the modifier flag; it only affects the next evaluation.
func (e *Engine) ModifierDown() { e.chord.Modifier = true }

// ModifierUp clears the modifier flag.
func (e *Engine) ModifierUp() { e.chord.Modifier = false }

// Chord returns the held inputs.
func (e *Engine) Chord() Chord { return e.chord }

// Reset returns the engine to its initial idle state.
func (e *Engine) Reset() {
	e.chord = Chord{}
	e.hasPointer = false
	e.pointer = Position{}
	e.pinned = make(map[models.PointKey]struct{})
	e.pinOrder = nil
	e.links = nil
	e.linkSet = make(map[segmentKey]struct{})
	e.transient = nil
	e.locator = nil
}

// Frame snapshots the drawable state.
func (e *Engine) Frame() Frame {
	f := Frame{
		Chord:  e.chord,
		Pinned: append([]models.Annotation(nil), e.pinOrder...),
		Links:  append([]models.Segment(nil), e.links...),
	}
	if e.transient != nil {
		t := *e.transient
		f.Transient = &t
	}
	if e.locator != nil {
		l := *e.locator
		f.Locator = &l
	}
	return f
}

func (e *Engine) evaluate() {
	if e.hits == nil {
		return
	}
	pin := e.chord.Primary && !e.chord.Modifier
	link := e.chord.Primary && e.chord.Modifier

	var transient *models.Annotation
	for _, kind := range e.data.AllVisibleKinds() {
		events := e.data.EventsOf(kind)
		if len(events) == 0 {
			continue
		}
		idx, ok := e.hits.HitTest(kind, events, e.pointer)
		if !ok || idx < 0 || idx >= len(events) {
			continue
		}

		ev := events[idx]
		ann := models.Annotation{Kind: kind, Index: idx, At: ev.Point(), Text: e.annotationText(kind, idx, ev)}
		if pin {
			e.pinAnnotation(ann)
		} else {
			transient = &ann
		}

		at := ev.Timestamp
		e.locator = &at

		if link && e.resolver != nil && e.resolver.IsCausal(kind) {
			e.linkCounterpart(kind, idx, ev)
		}
	}
	e.transient = transient
}

func (e *Engine) pinAnnotation(ann models.Annotation) {
	key := ann.At.Key()
	if _, ok := e.pinned[key]; ok {
		return
	}
	e.pinned[key] = struct{}{}
	e.pinOrder = append(e.pinOrder, ann)
}

func (e *Engine) linkCounterpart(kind models.EventKind, idx int, origin models.Event) {
	counterpart, found := e.resolver.Counterpart(kind, idx)
	if e.onLink != nil {
		e.onLink(kind, found)
	}
	if !found {
		e.logger.Debug("no causal counterpart", slog.String("kind", kind.String()), slog.Int("index", idx))
		return
	}
	seg := models.Segment{FromKind: kind, From: origin.Point(), ToKind: counterpart.Kind, To: counterpart.Point()}
	key := segmentKey{from: seg.From.Key(), to: seg.To.Key()}
	if _, ok := e.linkSet[key]; ok {
		return
	}
	e.linkSet[key] = struct{}{}
	e.links = append(e.links, seg)
}

func (e *Engine) annotationText(kind models.EventKind, idx int, ev models.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Timestamp: %s\nMessage: %s", utils.FormatLogTimestamp(ev.Timestamp), ev.RawMessage)
	if e.resolver != nil {
		switch e.resolver.AckState(kind, idx) {
		case models.AckConfirmed:
			b.WriteString("\nAcknowledged: yes")
		case models.AckMissing:
			b.WriteString("\nAcknowledged: no")
		}
	}
	return b.String()
}
