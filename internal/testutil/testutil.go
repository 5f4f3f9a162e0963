// Package testutil provides common test utilities and helpers for
// InterviewPipe tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BTreeMap/InterviewPipe/internal/engine"
	"github.com/BTreeMap/InterviewPipe/internal/renderer"
	"github.com/BTreeMap/InterviewPipe/internal/store"
	"github.com/BTreeMap/InterviewPipe/internal/templates"
)

// Clock is a controllable time source for tests. Advance moves it
// forward so budget and phase timing can be exercised without sleeping.
type Clock struct {
	current time.Time
}

// NewClock creates a clock fixed at the given instant.
func NewClock(at time.Time) *Clock {
	return &Clock{current: at}
}

// Now returns the clock's current instant.
func (c *Clock) Now() time.Time { return c.current }

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) { c.current = c.current.Add(d) }

// NewTestEngine builds an engine over an in-memory store and a
// template-only renderer, driven by a controllable clock. This
// centralizes the engine setup used across test files.
func NewTestEngine(t *testing.T, clock *Clock) *engine.Engine {
	t.Helper()
	cfg, err := templates.Load()
	if err != nil {
		t.Fatalf("failed to load templates: %v", err)
	}
	r := renderer.New("") // no API key: deterministic template rendering
	eng, err := engine.New(cfg, r, store.NewInMemoryStore(), engine.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("failed to assemble engine: %v", err)
	}
	return eng
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes a JSON response and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}
	return response
}

// CreateHTTPRequest creates an HTTP request with an optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, url, reqBody)
	req.Header.Set("Content-Type", "application/json")
	return req
}
