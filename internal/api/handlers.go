package api

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/reconcile-timeline/internal/models"
	"github.com/miradorstack/reconcile-timeline/internal/query"
	"github.com/miradorstack/reconcile-timeline/internal/summary"
)

// Input names one renderer event.
type Input string

const (
	InputPointerMoved  Input = "pointer_moved"
	InputPrimaryDown   Input = "primary_down"
	InputPrimaryUp     Input = "primary_up"
	InputSecondaryDown Input = "secondary_down"
	InputSecondaryUp   Input = "secondary_up"
	InputModifierDown  Input = "modifier_down"
	InputModifierUp    Input = "modifier_up"
	InputReset         Input = "reset"
)

// Valid reports whether i is a known input.
func (i Input) Valid() bool {
	switch i {
	case InputPointerMoved, InputPrimaryDown, InputPrimaryUp, InputSecondaryDown,
		InputSecondaryUp, InputModifierDown, InputModifierUp, InputReset:
		return true
	}
	return false
}

// DispatchRequest is a decoded Dispatch call.
type DispatchRequest struct {
	Input       Input
	Position    query.Position
	HasPosition bool
	// Hits, when set, are the renderer's own hit-test results for Position.
	Hits query.FixedHits
}

// FromProtoDispatch decodes {"input", "time", "rank", "hits": [{"kind", "index"}]}.
func FromProtoDispatch(in *structpb.Struct) (DispatchRequest, error) {
	if in == nil {
		return DispatchRequest{}, fmt.Errorf("request is nil")
	}
	fields := in.GetFields()

	req := DispatchRequest{Input: Input(fields["input"].GetStringValue())}
	if !req.Input.Valid() {
		return DispatchRequest{}, fmt.Errorf("unknown input %q", req.Input)
	}

	if v, ok := fields["time"]; ok {
		ts, err := time.Parse(time.RFC3339Nano, v.GetStringValue())
		if err != nil {
			return DispatchRequest{}, fmt.Errorf("time: %w", err)
		}
		req.Position.Time = ts
		req.HasPosition = true
	}
	if v, ok := fields["rank"]; ok {
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return DispatchRequest{}, fmt.Errorf("rank must be a number")
		}
		req.Position.Rank = n.NumberValue
	}
	if req.Input == InputPointerMoved && !req.HasPosition {
		return DispatchRequest{}, fmt.Errorf("%s requires time", InputPointerMoved)
	}

	if v, ok := fields["hits"]; ok {
		list := v.GetListValue()
		if list == nil {
			return DispatchRequest{}, fmt.Errorf("hits must be a list")
		}
		req.Hits = make(query.FixedHits, len(list.GetValues()))
		for i, item := range list.GetValues() {
			hit := item.GetStructValue().GetFields()
			kind, err := models.ParseEventKind(hit["kind"].GetStringValue())
			if err != nil {
				return DispatchRequest{}, fmt.Errorf("hits[%d]: %w", i, err)
			}
			idx := hit["index"].GetNumberValue()
			if idx < 0 || idx != math.Trunc(idx) {
				return DispatchRequest{}, fmt.Errorf("hits[%d]: index must be a non-negative integer", i)
			}
			req.Hits[kind] = int(idx)
		}
	}
	return req, nil
}

// ToProtoDispatch encodes a DispatchRequest; used by clients.
func ToProtoDispatch(req DispatchRequest) (*structpb.Struct, error) {
	m := map[string]any{"input": string(req.Input)}
	if req.HasPosition {
		m["time"] = formatTime(req.Position.Time)
		m["rank"] = req.Position.Rank
	}
	if req.Hits != nil {
		hits := make([]any, 0, len(req.Hits))
		for _, kind := range models.AllKinds() {
			if idx, ok := req.Hits[kind]; ok {
				hits = append(hits, map[string]any{"kind": kind.String(), "index": idx})
			}
		}
		m["hits"] = hits
	}
	return structpb.NewStruct(m)
}

// ToProtoSeries converts renderable series.
func ToProtoSeries(series []models.Series) (*structpb.Struct, error) {
	list := make([]any, 0, len(series))
	for _, s := range series {
		points := make([]any, 0, len(s.Points))
		for _, p := range s.Points {
			points = append(points, map[string]any{
				"time":  formatTime(p.Time),
				"rank":  p.Rank,
				"label": p.Label,
				"ack":   p.Ack.String(),
			})
		}
		list = append(list, map[string]any{
			"kind":    s.Kind.String(),
			"label":   s.Label,
			"process": s.Process.String(),
			"rank":    s.Rank,
			"points":  points,
		})
	}
	return structpb.NewStruct(map[string]any{"series": list})
}

// ToProtoFrame converts a query frame.
func ToProtoFrame(f query.Frame) (*structpb.Struct, error) {
	m := map[string]any{
		"chord": map[string]any{
			"primary":   f.Chord.Primary,
			"secondary": f.Chord.Secondary,
			"modifier":  f.Chord.Modifier,
		},
		"transient": nil,
		"locator":   nil,
	}
	if f.Transient != nil {
		m["transient"] = annotationValue(*f.Transient)
	}
	if f.Locator != nil {
		m["locator"] = formatTime(*f.Locator)
	}
	pinned := make([]any, 0, len(f.Pinned))
	for _, a := range f.Pinned {
		pinned = append(pinned, annotationValue(a))
	}
	m["pinned"] = pinned

	links := make([]any, 0, len(f.Links))
	for _, seg := range f.Links {
		links = append(links, map[string]any{
			"fromKind": seg.FromKind.String(),
			"from":     pointValue(seg.From),
			"toKind":   seg.ToKind.String(),
			"to":       pointValue(seg.To),
		})
	}
	m["links"] = links
	return structpb.NewStruct(m)
}

// ToProtoSummary converts a load summary.
func ToProtoSummary(r summary.Report) (*structpb.Struct, error) {
	kinds := make([]any, 0, len(r.Kinds))
	for _, k := range r.Kinds {
		kinds = append(kinds, map[string]any{
			"kind":         k.Kind,
			"process":      k.Process,
			"count":        k.Count,
			"share":        k.Share,
			"first":        formatTime(k.First),
			"last":         formatTime(k.Last),
			"meanInterval": k.MeanInterval.String(),
		})
	}
	longest := map[string]any{"length": r.LongestUnacked.Length}
	if r.LongestUnacked.Length > 0 {
		longest["start"] = formatTime(r.LongestUnacked.Start)
		longest["end"] = formatTime(r.LongestUnacked.End)
	}
	return structpb.NewStruct(map[string]any{
		"sessionID":             r.SessionID,
		"events":                r.Events,
		"kinds":                 kinds,
		"ticks":                 r.Ticks,
		"acknowledged":          r.Acknowledged,
		"ackRatio":              r.AckRatio,
		"longestUnacknowledged": longest,
		"records":               perProcess(r.Stats.Records),
		"malformed":             perProcess(r.Stats.Malformed),
		"irrelevant":            perProcess(r.Stats.Irrelevant),
	})
}

func perProcess(counts map[models.Process]int) map[string]any {
	out := make(map[string]any, len(counts))
	for p, n := range counts {
		out[p.String()] = n
	}
	return out
}

func annotationValue(a models.Annotation) map[string]any {
	return map[string]any{
		"kind":  a.Kind.String(),
		"index": a.Index,
		"at":    pointValue(a.At),
		"text":  a.Text,
	}
}

func pointValue(p models.Point) map[string]any {
	return map[string]any{"time": formatTime(p.Time), "rank": p.Rank}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
