package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/BTreeMap/InterviewPipe/internal/models"
)

func sampleSession(id string, created time.Time) *models.Session {
	return &models.Session{
		ID:          id,
		Phase:       models.PhaseIntroduction,
		TotalBudget: 60 * time.Minute,
		StartedAt:   created,
		CreatedAt:   created,
		Topics:      map[string]*models.TopicNode{},
		Objectives: []*models.InterviewObjective{
			{ID: "o1", Description: "core skills", Priority: models.PriorityHigh, Phase: models.PhaseTechnical},
		},
		Utterances: []models.Utterance{
			{ID: "u1", Role: models.RoleSystem, Text: "Welcome. Tell me about yourself."},
		},
	}
}

// storeUnderTest runs the shared contract tests against one backend.
func storeUnderTest(t *testing.T, s Store) {
	t.Helper()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	if _, err := s.GetSession("missing"); !errors.Is(err, models.ErrSessionNotFound) {
		t.Errorf("GetSession(missing) = %v, want ErrSessionNotFound", err)
	}

	sess := sampleSession("s1", base)
	if err := s.SaveSession(sess); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := s.GetSession("s1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.ID != "s1" || got.Phase != models.PhaseIntroduction {
		t.Errorf("loaded session mismatch: %+v", got)
	}
	if len(got.Utterances) != 1 || got.Utterances[0].Text != "Welcome. Tell me about yourself." {
		t.Errorf("utterances not round-tripped: %+v", got.Utterances)
	}
	if len(got.Objectives) != 1 || got.Objectives[0].ID != "o1" {
		t.Errorf("objectives not round-tripped: %+v", got.Objectives)
	}

	// Saving again overwrites rather than duplicating.
	sess.Phase = models.PhaseBackground
	if err := s.SaveSession(sess); err != nil {
		t.Fatalf("second SaveSession failed: %v", err)
	}
	got, err = s.GetSession("s1")
	if err != nil {
		t.Fatalf("GetSession after update failed: %v", err)
	}
	if got.Phase != models.PhaseBackground {
		t.Errorf("updated phase = %s, want background", got.Phase)
	}

	if err := s.SaveSession(sampleSession("s2", base.Add(time.Hour))); err != nil {
		t.Fatalf("SaveSession s2 failed: %v", err)
	}
	list, err := s.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("listed %d sessions, want 2", len(list))
	}
	if list[0].ID != "s1" || list[1].ID != "s2" {
		t.Errorf("sessions not ordered by creation time: %s, %s", list[0].ID, list[1].ID)
	}

	if _, err := s.GetResult("s1"); !errors.Is(err, models.ErrResultNotFound) {
		t.Errorf("GetResult before save = %v, want ErrResultNotFound", err)
	}
	result := models.InterviewResult{
		SessionID:   "s1",
		CompletedAt: base.Add(55 * time.Minute),
		Phases: []models.PhaseResult{
			{Phase: models.PhaseIntroduction, QuestionsAndAnswers: []models.QA{
				{Question: "Tell me about yourself.", Answer: "I'm a backend engineer."},
			}},
		},
	}
	if err := s.SaveResult(result); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}
	gotResult, err := s.GetResult("s1")
	if err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}
	if gotResult.SessionID != "s1" || len(gotResult.Phases) != 1 {
		t.Errorf("result not round-tripped: %+v", gotResult)
	}

	if err := s.DeleteSession("s2"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if err := s.DeleteSession("s2"); !errors.Is(err, models.ErrSessionNotFound) {
		t.Errorf("second DeleteSession = %v, want ErrSessionNotFound", err)
	}
}

func TestInMemoryStoreContract(t *testing.T) {
	s := NewInMemoryStore()
	defer s.Close()
	storeUnderTest(t, s)
}

func TestSQLiteStoreContract(t *testing.T) {
	s, err := NewSQLiteStore(WithDSN(filepath.Join(t.TempDir(), "interviewpipe.db")))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()
	storeUnderTest(t, s)
}

func TestSQLiteStoreRequiresDSN(t *testing.T) {
	if _, err := NewSQLiteStore(); err == nil {
		t.Error("NewSQLiteStore without a DSN should fail")
	}
}

func TestInMemoryStoreIsolatesCallers(t *testing.T) {
	s := NewInMemoryStore()
	defer s.Close()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	original := sampleSession("iso", base)
	if err := s.SaveSession(original); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	// Mutating the saved pointer must not leak into the store.
	original.Utterances[0].Text = "mutated after save"
	got, err := s.GetSession("iso")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Utterances[0].Text != "Welcome. Tell me about yourself." {
		t.Error("store shares memory with the caller's session")
	}

	// Mutating a loaded copy must not affect later reads.
	got.Phase = models.PhaseConclusion
	again, err := s.GetSession("iso")
	if err != nil {
		t.Fatalf("second GetSession failed: %v", err)
	}
	if again.Phase != models.PhaseIntroduction {
		t.Error("loaded sessions share memory across calls")
	}
}
