package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/InterviewPipe/internal/engine"
	"github.com/BTreeMap/InterviewPipe/internal/models"
	"github.com/BTreeMap/InterviewPipe/internal/testutil"
)

var apiStart = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *engine.Engine, *testutil.Clock) {
	t.Helper()
	clock := testutil.NewClock(apiStart)
	eng := testutil.NewTestEngine(t, clock)
	return NewServer(eng), eng, clock
}

func startSession(t *testing.T, eng *engine.Engine) *models.Session {
	t.Helper()
	s, err := eng.CreateSession(context.Background(), models.SessionCreateRequest{
		Objectives:    []models.ObjectiveSpec{{Description: "core backend skills"}},
		BudgetMinutes: 60,
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	return s
}

func TestCreateSessionHandler(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body := map[string]interface{}{
		"objectives":     []map[string]interface{}{{"description": "core backend skills"}},
		"budget_minutes": 60,
	}
	req := testutil.CreateHTTPRequest(t, http.MethodPost, "/sessions", body)
	rr := httptest.NewRecorder()
	srv.createSessionHandler(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusCreated, rr.Code, "create session")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	result, ok := resp["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("response missing session payload: %v", resp)
	}
	if result["phase"] != string(models.PhaseIntroduction) {
		t.Errorf("new session phase = %v, want introduction", result["phase"])
	}
	if result["id"] == "" {
		t.Error("new session has no ID")
	}
}

func TestCreateSessionHandlerRejectsBadInput(t *testing.T) {
	srv, _, _ := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"malformed JSON", "{not json", http.StatusBadRequest},
		{"no objectives", `{"budget_minutes": 60}`, http.StatusBadRequest},
		{"budget out of range", `{"objectives":[{"description":"x"}],"budget_minutes":600}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			srv.createSessionHandler(rr, req)
			testutil.AssertHTTPStatus(t, tt.wantStatus, rr.Code, tt.name)
			testutil.AssertJSONResponse(t, rr, "error")
		})
	}
}

func TestTurnHandler(t *testing.T) {
	srv, eng, clock := newTestServer(t)
	s := startSession(t, eng)
	clock.Advance(time.Minute)

	req := testutil.CreateHTTPRequest(t, http.MethodPost, "/sessions/"+s.ID+"/turns",
		map[string]string{"text": "I spent six years building payment services in Go."})
	req.SetPathValue("id", s.ID)
	rr := httptest.NewRecorder()
	srv.turnHandler(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "turn")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	result, ok := resp["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("response missing turn outcome: %v", resp)
	}
	if result["reply"] == "" {
		t.Error("turn outcome missing reply")
	}
}

func TestTurnHandlerErrorMapping(t *testing.T) {
	srv, eng, clock := newTestServer(t)
	s := startSession(t, eng)
	clock.Advance(time.Minute)
	if _, err := eng.EndSession(context.Background(), s.ID); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	tests := []struct {
		name       string
		id         string
		body       map[string]string
		wantStatus int
	}{
		{"unknown session", "nope", map[string]string{"text": "hi"}, http.StatusNotFound},
		{"empty utterance", s.ID, map[string]string{"text": ""}, http.StatusBadRequest},
		{"concluded session", s.ID, map[string]string{"text": "hello again"}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.CreateHTTPRequest(t, http.MethodPost, "/sessions/"+tt.id+"/turns", tt.body)
			req.SetPathValue("id", tt.id)
			rr := httptest.NewRecorder()
			srv.turnHandler(rr, req)
			testutil.AssertHTTPStatus(t, tt.wantStatus, rr.Code, tt.name)
			testutil.AssertJSONResponse(t, rr, "error")
		})
	}
}

func TestGetSessionHandler(t *testing.T) {
	srv, eng, _ := newTestServer(t)
	s := startSession(t, eng)

	req := httptest.NewRequest(http.MethodGet, "/sessions/"+s.ID, nil)
	req.SetPathValue("id", s.ID)
	rr := httptest.NewRecorder()
	srv.getSessionHandler(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "get session")
	testutil.AssertJSONResponse(t, rr, "ok")

	req = httptest.NewRequest(http.MethodGet, "/sessions/missing", nil)
	req.SetPathValue("id", "missing")
	rr = httptest.NewRecorder()
	srv.getSessionHandler(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "get missing session")
}

func TestDecisionsHandler(t *testing.T) {
	srv, eng, clock := newTestServer(t)
	s := startSession(t, eng)
	clock.Advance(time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/sessions/"+s.ID+"/decisions", nil)
	req.SetPathValue("id", s.ID)
	rr := httptest.NewRecorder()
	srv.decisionsHandler(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "decisions")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	result, ok := resp["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("response missing decision trail: %v", resp)
	}
	if _, ok := result["decisions"]; !ok {
		t.Error("decision trail missing decisions field")
	}
	if _, ok := result["transitions"]; !ok {
		t.Error("decision trail missing transitions field")
	}
}

func TestEndSessionHandler(t *testing.T) {
	srv, eng, clock := newTestServer(t)
	s := startSession(t, eng)
	clock.Advance(5 * time.Minute)

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+s.ID+"/end", nil)
	req.SetPathValue("id", s.ID)
	rr := httptest.NewRecorder()
	srv.endSessionHandler(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "end session")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	result, ok := resp["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("response missing interview result: %v", resp)
	}
	if result["session_id"] != s.ID {
		t.Errorf("result session_id = %v, want %s", result["session_id"], s.ID)
	}

	// Ending twice stays 200 and returns the stored result.
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/sessions/"+s.ID+"/end", nil)
	req.SetPathValue("id", s.ID)
	srv.endSessionHandler(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "repeat end session")
}

func TestHealthHandler(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rr := httptest.NewRecorder()
	srv.healthHandler(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "health")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	if resp["message"] != "healthy" {
		t.Errorf("health message = %v", resp["message"])
	}
}

func TestStatusForMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ErrSessionNotFound, http.StatusNotFound},
		{models.ErrResultNotFound, http.StatusNotFound},
		{models.ErrSessionConcluded, http.StatusConflict},
		{models.ErrTurnAlreadyInProgress, http.StatusConflict},
		{models.ErrEmptyUtterance, http.StatusBadRequest},
		{models.ErrInvalidBudget, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
