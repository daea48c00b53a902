package db

import (
	"testing"
	"time"
)

func studyDay(t *testing.T, userID int64, date string, minutes int) {
	t.Helper()
	if err := UpsertDailyStudy(userID, date, minutes); err != nil {
		t.Fatalf("UpsertDailyStudy failed: %v", err)
	}
}

func TestWeeklyProgressZeroFillsMissingDays(t *testing.T) {
	setupTestDB(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	studyDay(t, 800, "2025-03-10", 25)
	studyDay(t, 800, "2025-03-08", 40)
	studyDay(t, 801, "2025-03-09", 15) // another user, must not leak

	days, err := WeeklyProgress(800, now)
	if err != nil {
		t.Fatalf("WeeklyProgress failed: %v", err)
	}
	if len(days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(days))
	}
	if days[0].Date != "2025-03-04" || days[6].Date != "2025-03-10" {
		t.Fatalf("expected oldest-first range, got %s .. %s", days[0].Date, days[6].Date)
	}
	if days[6].Minutes != 25 || days[6].Sessions != 1 {
		t.Errorf("unexpected today row: %+v", days[6])
	}
	if days[4].Minutes != 40 {
		t.Errorf("expected 40 minutes on 2025-03-08, got %d", days[4].Minutes)
	}
	for _, i := range []int{0, 1, 2, 3, 5} {
		if days[i].Minutes != 0 || days[i].Sessions != 0 {
			t.Errorf("expected zero-filled day %s, got %+v", days[i].Date, days[i])
		}
	}
}

func TestStudyStreakCountsBackFromToday(t *testing.T) {
	setupTestDB(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	studyDay(t, 800, "2025-03-10", 10)
	studyDay(t, 800, "2025-03-09", 10)
	studyDay(t, 800, "2025-03-08", 10)
	// gap on 03-07 ends the streak
	studyDay(t, 800, "2025-03-06", 10)

	streak, err := StudyStreak(800, now)
	if err != nil {
		t.Fatalf("StudyStreak failed: %v", err)
	}
	if streak != 3 {
		t.Fatalf("expected streak 3, got %d", streak)
	}
}

func TestStudyStreakAnchorsOnYesterday(t *testing.T) {
	setupTestDB(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	studyDay(t, 800, "2025-03-09", 10)
	studyDay(t, 800, "2025-03-08", 10)

	streak, err := StudyStreak(800, now)
	if err != nil {
		t.Fatalf("StudyStreak failed: %v", err)
	}
	if streak != 2 {
		t.Fatalf("expected streak 2 anchored on yesterday, got %d", streak)
	}
}

func TestStudyStreakZeroAfterTwoIdleDays(t *testing.T) {
	setupTestDB(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	studyDay(t, 800, "2025-03-07", 60)

	streak, err := StudyStreak(800, now)
	if err != nil {
		t.Fatalf("StudyStreak failed: %v", err)
	}
	if streak != 0 {
		t.Fatalf("expected streak 0, got %d", streak)
	}
}

func TestTotalPracticeHours(t *testing.T) {
	setupTestDB(t)

	hours, err := TotalPracticeHours(800)
	if err != nil {
		t.Fatalf("TotalPracticeHours failed: %v", err)
	}
	if hours != 0 {
		t.Fatalf("expected 0 hours for fresh user, got %v", hours)
	}

	studyDay(t, 800, "2025-03-09", 45)
	studyDay(t, 800, "2025-03-10", 45)

	hours, err = TotalPracticeHours(800)
	if err != nil {
		t.Fatalf("TotalPracticeHours failed: %v", err)
	}
	if hours != 1.5 {
		t.Fatalf("expected 1.5 hours, got %v", hours)
	}
}
