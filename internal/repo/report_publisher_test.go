package repo

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/miradorstack/reconcile-timeline/internal/models"
	"github.com/miradorstack/reconcile-timeline/internal/summary"
)

func TestStoreSummaryPostsReport(t *testing.T) {
	collector := &fakeCollector{t: t, status: http.StatusAccepted}
	publisher := NewReportPublisher("https://example.com/base/", "/api/v1/timeline/summaries", time.Second)
	publisher.httpClient = collector.client()

	stats := models.NewLoadStats()
	stats.Malformed[models.ProcessServer] = 2
	report := summary.Report{
		SessionID: "s1",
		Ticks:     4,
		Kinds:     []summary.KindSummary{{Kind: "client.physics_tick", Count: 4, MeanInterval: 16 * time.Millisecond}},
		Stats:     stats,
	}
	if err := publisher.StoreSummary(context.Background(), "s1", report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(collector.payloads) != 1 {
		t.Fatalf("expected one request, got %d", len(collector.payloads))
	}
	if collector.paths[0] != "/base/api/v1/timeline/summaries" {
		t.Fatalf("unexpected path: %s", collector.paths[0])
	}
	payload := collector.payloads[0]
	if payload.SessionID != "s1" || payload.Ticks != 4 || payload.Malformed["server"] != 2 {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if len(payload.Kinds) != 1 || payload.Kinds[0].MeanInterval != 16 {
		t.Fatalf("unexpected kinds %+v", payload.Kinds)
	}
}

func TestStoreSummaryCollectorError(t *testing.T) {
	collector := &fakeCollector{t: t, status: http.StatusServiceUnavailable}
	publisher := NewReportPublisher("https://example.com", "/summaries", time.Second)
	publisher.httpClient = collector.client()

	if err := publisher.StoreSummary(context.Background(), "s1", summary.Report{Stats: models.NewLoadStats()}); err == nil {
		t.Fatalf("expected error for 503")
	}
	if len(collector.payloads) != 1 {
		t.Fatalf("expected the report to reach the collector once, got %d", len(collector.payloads))
	}
}

func TestStoreSummaryAsBuilderSink(t *testing.T) {
	collector := &fakeCollector{t: t, status: http.StatusCreated}
	publisher := NewReportPublisher("https://example.com", "summaries", time.Second)
	publisher.httpClient = collector.client()

	sinks := summary.Sinks{publisher}
	if err := sinks.StoreSummary(context.Background(), "s2", summary.Report{Stats: models.NewLoadStats()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(collector.paths) != 1 || collector.paths[0] != "/summaries" {
		t.Fatalf("unexpected paths %v", collector.paths)
	}
}

func TestStoreSummaryIgnoresCollectorResponseBody(t *testing.T) {
	collector := &fakeCollector{t: t, status: http.StatusOK, body: "stored"}
	publisher := NewReportPublisher("https://example.com", "/summaries", time.Second)
	publisher.httpClient = collector.client()

	if err := publisher.StoreSummary(context.Background(), "s3", summary.Report{Stats: models.NewLoadStats()}); err != nil {
		t.Fatalf("non-JSON acknowledgement should not fail the publish: %v", err)
	}
}

func TestStoreSummaryWithoutEndpoint(t *testing.T) {
	publisher := NewReportPublisher("", "/summaries", time.Second)
	if err := publisher.StoreSummary(context.Background(), "s1", summary.Report{}); err == nil {
		t.Fatalf("expected error for empty endpoint")
	}
}
