package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/miradorstack/reconcile-timeline/internal/summary"
)

// ReportPublisher posts load summaries to an HTTP collector, e.g. a CI dashboard.
type ReportPublisher struct {
	baseURL    string
	reportPath string
	httpClient *http.Client
}

var _ summary.Sink = (*ReportPublisher)(nil)

// NewReportPublisher constructs a publisher targeting baseURL + reportPath.
func NewReportPublisher(baseURL, reportPath string, timeout time.Duration) *ReportPublisher {
	return &ReportPublisher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		reportPath: reportPath,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type kindPayload struct {
	Kind         string    `json:"kind"`
	Process      string    `json:"process"`
	Count        int       `json:"count"`
	Share        float64   `json:"share"`
	First        time.Time `json:"first"`
	Last         time.Time `json:"last"`
	MeanInterval float64   `json:"mean_interval_ms"`
}

type reportPayload struct {
	SessionID       string         `json:"session_id"`
	Events          int            `json:"events"`
	Kinds           []kindPayload  `json:"kinds"`
	Ticks           int            `json:"ticks"`
	Acknowledged    int            `json:"acknowledged"`
	AckRatio        float64        `json:"ack_ratio"`
	LongestUnacked  int            `json:"longest_unacknowledged"`
	Malformed       map[string]int `json:"malformed"`
	PublishedAtUnix int64          `json:"published_at"`
}

// StoreSummary implements summary.Sink.
func (p *ReportPublisher) StoreSummary(ctx context.Context, sessionID string, report summary.Report) error {
	if p == nil {
		return fmt.Errorf("report publisher not initialised")
	}
	payload := reportPayload{
		SessionID:       sessionID,
		Events:          report.Events,
		Ticks:           report.Ticks,
		Acknowledged:    report.Acknowledged,
		AckRatio:        report.AckRatio,
		LongestUnacked:  report.LongestUnacked.Length,
		Malformed:       make(map[string]int, len(report.Stats.Malformed)),
		PublishedAtUnix: time.Now().Unix(),
	}
	for _, k := range report.Kinds {
		payload.Kinds = append(payload.Kinds, kindPayload{
			Kind:         k.Kind,
			Process:      k.Process,
			Count:        k.Count,
			Share:        k.Share,
			First:        k.First,
			Last:         k.Last,
			MeanInterval: float64(k.MeanInterval) / float64(time.Millisecond),
		})
	}
	for process, n := range report.Stats.Malformed {
		payload.Malformed[process.String()] = n
	}
	return p.postJSON(ctx, p.resolvePath(p.reportPath), payload)
}

func (p *ReportPublisher) resolvePath(rel string) string {
	if p.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(rel, "/")
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return p.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (p *ReportPublisher) postJSON(ctx context.Context, endpoint string, payload reportPayload) error {
	if endpoint == "" {
		return fmt.Errorf("empty endpoint")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("report collector returned %s", resp.Status)
	}
	return nil
}
