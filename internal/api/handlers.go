// Package api provides HTTP handlers for InterviewPipe endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/InterviewPipe/internal/models"
)

// decisionTrail is the payload of the decisions endpoint: the full flow
// audit for a session.
type decisionTrail struct {
	Decisions   []models.FlowDecision    `json:"decisions"`
	Transitions []models.PhaseTransition `json:"transitions"`
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.createSessionHandler: processing request")

	var req models.SessionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.createSessionHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	sess, err := s.engine.CreateSession(r.Context(), req)
	if err != nil {
		slog.Warn("Server.createSessionHandler: session creation failed", "error", err)
		writeJSONResponse(w, statusFor(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(sess))
}

func (s *Server) turnHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	id := r.PathValue("id")
	slog.Debug("Server.turnHandler: processing turn", "sessionID", id)

	var req models.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.turnHandler: failed to decode JSON", "error", err, "sessionID", id)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	outcome, err := s.engine.ProcessTurn(r.Context(), id, req)
	if err != nil {
		slog.Warn("Server.turnHandler: turn failed", "error", err, "sessionID", id)
		writeJSONResponse(w, statusFor(err), models.Error(err.Error()))
		return
	}

	if outcome.ErrorContext != nil {
		writeJSONResponse(w, http.StatusOK, models.Recovered("turn completed via recovery path", outcome))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(outcome))
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := s.engine.GetSession(id)
	if err != nil {
		writeJSONResponse(w, statusFor(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(sess))
}

func (s *Server) decisionsHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	decisions, transitions, err := s.engine.Decisions(id)
	if err != nil {
		writeJSONResponse(w, statusFor(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(decisionTrail{
		Decisions:   decisions,
		Transitions: transitions,
	}))
}

func (s *Server) endSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	slog.Debug("Server.endSessionHandler: ending session", "sessionID", id)

	result, err := s.engine.EndSession(r.Context(), id)
	if err != nil {
		slog.Warn("Server.endSessionHandler: end failed", "error", err, "sessionID", id)
		writeJSONResponse(w, statusFor(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("healthy", nil))
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrSessionNotFound), errors.Is(err, models.ErrResultNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrSessionConcluded):
		return http.StatusConflict
	case errors.Is(err, models.ErrTurnAlreadyInProgress):
		return http.StatusConflict
	case errors.Is(err, models.ErrEmptyUtterance),
		errors.Is(err, models.ErrUtteranceTooLong),
		errors.Is(err, models.ErrInvalidBudget),
		errors.Is(err, models.ErrNoObjectives),
		errors.Is(err, models.ErrTooManyObjectives),
		errors.Is(err, models.ErrObjectiveDescTooLong),
		errors.Is(err, models.ErrInvalidObjectivePhase),
		errors.Is(err, models.ErrInvalidObjectivePriority):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
