package api

import (
	"testing"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/reconcile-timeline/internal/models"
	"github.com/miradorstack/reconcile-timeline/internal/query"
)

func TestFromProtoDispatch(t *testing.T) {
	in, err := structpb.NewStruct(map[string]any{
		"input": "pointer_moved",
		"time":  "2024-01-01T00:00:00.016Z",
		"rank":  2.04,
		"hits": []any{
			map[string]any{"kind": "client.physics_tick", "index": 3},
			map[string]any{"kind": "server.updated_player_state", "index": 0},
		},
	})
	if err != nil {
		t.Fatalf("build struct: %v", err)
	}

	req, err := FromProtoDispatch(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Input != InputPointerMoved || !req.HasPosition || req.Position.Rank != 2.04 {
		t.Fatalf("unexpected request %+v", req)
	}
	if !req.Position.Time.Equal(time.Date(2024, 1, 1, 0, 0, 0, 16000000, time.UTC)) {
		t.Fatalf("unexpected time %v", req.Position.Time)
	}
	if req.Hits[models.ClientPhysicsTick] != 3 || req.Hits[models.ServerUpdatedPlayerState] != 0 || len(req.Hits) != 2 {
		t.Fatalf("unexpected hits %v", req.Hits)
	}
}

func TestFromProtoDispatchErrors(t *testing.T) {
	cases := map[string]map[string]any{
		"unknown input":    {"input": "wheel"},
		"missing position": {"input": "pointer_moved"},
		"bad time":         {"input": "pointer_moved", "time": "yesterday"},
		"bad rank":         {"input": "pointer_moved", "time": "2024-01-01T00:00:00Z", "rank": "high"},
		"bad kind":         {"input": "primary_down", "hits": []any{map[string]any{"kind": "client.nope", "index": 0}}},
		"fractional index": {"input": "primary_down", "hits": []any{map[string]any{"kind": "client.physics_tick", "index": 1.5}}},
		"hits not list":    {"input": "primary_down", "hits": "all"},
	}
	for name, fields := range cases {
		in, err := structpb.NewStruct(fields)
		if err != nil {
			t.Fatalf("%s: build struct: %v", name, err)
		}
		if _, err := FromProtoDispatch(in); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := FromProtoDispatch(nil); err == nil {
		t.Fatalf("expected error for nil request")
	}
}

func TestDispatchRoundTrip(t *testing.T) {
	want := DispatchRequest{
		Input:       InputPrimaryDown,
		Position:    query.Position{Time: time.Date(2024, 1, 1, 0, 0, 1, 500, time.UTC), Rank: 3.5},
		HasPosition: true,
		Hits:        query.FixedHits{models.ServerSentGameUpdate: 7},
	}
	in, err := ToProtoDispatch(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := FromProtoDispatch(in)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Input != want.Input || !got.Position.Time.Equal(want.Position.Time) || got.Position.Rank != want.Position.Rank || got.Hits[models.ServerSentGameUpdate] != 7 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestToProtoFrame(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	frame := query.Frame{
		Chord:     query.Chord{Primary: true},
		Transient: &models.Annotation{Kind: models.ClientPhysicsTick, At: models.Point{Time: at, Rank: 2}, Text: "hi"},
		Pinned:    []models.Annotation{{Kind: models.ServerInitialized, At: models.Point{Time: at, Rank: 3.25}}},
		Locator:   &at,
		Links: []models.Segment{{
			FromKind: models.ClientPhysicsTick, From: models.Point{Time: at, Rank: 2},
			ToKind: models.ServerUpdatedPlayerState, To: models.Point{Time: at.Add(time.Millisecond), Rank: 3.75},
		}},
	}
	out, err := ToProtoFrame(frame)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	fields := out.GetFields()
	if !fields["chord"].GetStructValue().GetFields()["primary"].GetBoolValue() {
		t.Fatalf("expected primary chord")
	}
	if fields["locator"].GetStringValue() != "2024-01-01T00:00:00Z" {
		t.Fatalf("unexpected locator %v", fields["locator"])
	}
	if fields["transient"].GetStructValue().GetFields()["text"].GetStringValue() != "hi" {
		t.Fatalf("unexpected transient %v", fields["transient"])
	}
	if n := len(fields["links"].GetListValue().GetValues()); n != 1 {
		t.Fatalf("expected one link, got %d", n)
	}

	empty, err := ToProtoFrame(query.Frame{})
	if err != nil {
		t.Fatalf("encode empty: %v", err)
	}
	if _, ok := empty.GetFields()["transient"].GetKind().(*structpb.Value_NullValue); !ok {
		t.Fatalf("expected null transient")
	}
}
