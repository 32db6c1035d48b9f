package repo

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// fakeCollector records every report posted to it and answers with status.
type fakeCollector struct {
	t        *testing.T
	status   int
	body     string
	paths    []string
	payloads []reportPayload
}

func (c *fakeCollector) client() *http.Client {
	return &http.Client{Transport: roundTripFunc(c.roundTrip)}
}

func (c *fakeCollector) roundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodPost {
		c.t.Fatalf("unexpected method %s", req.Method)
	}
	if ct := req.Header.Get("Content-Type"); ct != "application/json" {
		c.t.Fatalf("unexpected content type %q", ct)
	}
	var payload reportPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		c.t.Fatalf("decode payload: %v", err)
	}
	c.paths = append(c.paths, req.URL.Path)
	c.payloads = append(c.payloads, payload)
	return &http.Response{
		StatusCode: c.status,
		Status:     http.StatusText(c.status),
		Body:       io.NopCloser(bytes.NewReader([]byte(c.body))),
		Header:     make(http.Header),
	}, nil
}
