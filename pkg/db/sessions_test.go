package db

import (
	"testing"
	"time"
)

func completeTestSession(t *testing.T, userID int64, startedAt time.Time, overall int, now time.Time) uint {
	t.Helper()
	session := &Session{UserID: userID, Type: SessionTypeMock, StartedAt: startedAt}
	if err := CreateSession(session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	scores := Scores{Fluency: overall, Lexical: overall, Grammar: overall, Pronunciation: overall, Overall: overall}
	if err := CompleteSession(session.ID, scores, "B2", "Good effort.", now); err != nil {
		t.Fatalf("CompleteSession failed: %v", err)
	}
	return session.ID
}

func TestCompleteSessionPersistsScores(t *testing.T) {
	setupTestDB(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	id := completeTestSession(t, 700, now.Add(-20*time.Minute), 53, now)

	session, err := GetSession(id)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if session.Status != SessionStatusCompleted {
		t.Fatalf("expected completed status, got %q", session.Status)
	}
	if session.ScoreOverall == nil || *session.ScoreOverall != 53 {
		t.Fatalf("unexpected overall score: %v", session.ScoreOverall)
	}
	if session.CEFRLevel != "B2" || session.Feedback != "Good effort." {
		t.Fatalf("unexpected session fields: %+v", session)
	}
	if session.CompletedAt == nil {
		t.Fatal("expected completed_at to be set")
	}
}

func TestCompleteSessionAccumulatesDailyStudy(t *testing.T) {
	setupTestDB(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	completeTestSession(t, 700, now.Add(-20*time.Minute), 50, now)
	completeTestSession(t, 700, now.Add(-10*time.Minute), 56, now)

	var row DailyStudy
	if err := DB.Where("user_id = ? AND date = ?", int64(700), "2025-03-10").First(&row).Error; err != nil {
		t.Fatalf("daily study row missing: %v", err)
	}
	if row.Minutes != 30 {
		t.Errorf("expected 30 accumulated minutes, got %d", row.Minutes)
	}
	if row.SessionsCount != 2 {
		t.Errorf("expected 2 sessions counted, got %d", row.SessionsCount)
	}
}

func TestCompleteSessionRecordsAtLeastOneMinute(t *testing.T) {
	setupTestDB(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	completeTestSession(t, 701, now.Add(-10*time.Second), 45, now)

	var row DailyStudy
	if err := DB.Where("user_id = ?", int64(701)).First(&row).Error; err != nil {
		t.Fatalf("daily study row missing: %v", err)
	}
	if row.Minutes != 1 {
		t.Fatalf("expected the 1-minute floor, got %d", row.Minutes)
	}
}

func TestGetSessionUnknownReturnsNil(t *testing.T) {
	setupTestDB(t)

	session, err := GetSession(9999)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if session != nil {
		t.Fatalf("expected nil for unknown session, got %+v", session)
	}
}

func TestAverageOverallScore(t *testing.T) {
	setupTestDB(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	avg, err := AverageOverallScore(700, 10)
	if err != nil {
		t.Fatalf("AverageOverallScore failed: %v", err)
	}
	if avg != nil {
		t.Fatalf("expected nil average with no sessions, got %v", *avg)
	}

	completeTestSession(t, 700, now.Add(-30*time.Minute), 40, now)
	completeTestSession(t, 700, now.Add(-20*time.Minute), 60, now.Add(time.Minute))

	avg, err = AverageOverallScore(700, 10)
	if err != nil {
		t.Fatalf("AverageOverallScore failed: %v", err)
	}
	if avg == nil || *avg != 50 {
		t.Fatalf("expected average 50, got %v", avg)
	}
}

func TestGetRecentSessionsNewestFirst(t *testing.T) {
	setupTestDB(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	first := completeTestSession(t, 700, now.Add(-time.Hour), 40, now.Add(-30*time.Minute))
	second := completeTestSession(t, 700, now.Add(-20*time.Minute), 55, now)

	// an active session must not appear in history
	if err := CreateSession(&Session{UserID: 700, Type: SessionTypeMock, StartedAt: now}); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	sessions, err := GetRecentSessions(700, 10)
	if err != nil {
		t.Fatalf("GetRecentSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 completed sessions, got %d", len(sessions))
	}
	if sessions[0].ID != second || sessions[1].ID != first {
		t.Fatalf("expected newest-first order, got %d then %d", sessions[0].ID, sessions[1].ID)
	}
}

func TestGetSessionDetailIncludesOrderedResponses(t *testing.T) {
	setupTestDB(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	session := &Session{UserID: 700, Type: SessionTypeMock, StartedAt: now}
	if err := CreateSession(session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	for i, part := range []string{"1.1", "1.2"} {
		if err := AddResponse(&Response{
			SessionID:     session.ID,
			Part:          part,
			QuestionText:  "q",
			Transcription: "a",
			Duration:      10 + i,
			TimeLimit:     30,
		}); err != nil {
			t.Fatalf("AddResponse failed: %v", err)
		}
	}

	got, responses, err := GetSessionDetail(session.ID)
	if err != nil {
		t.Fatalf("GetSessionDetail failed: %v", err)
	}
	if got == nil || got.ID != session.ID {
		t.Fatalf("unexpected session: %+v", got)
	}
	if len(responses) != 2 || responses[0].Part != "1.1" || responses[1].Part != "1.2" {
		t.Fatalf("unexpected responses: %+v", responses)
	}
}
