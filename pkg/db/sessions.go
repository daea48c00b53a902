package db

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Scores is the persisted score set of one completed session.
type Scores struct {
	Fluency       int
	Lexical       int
	Grammar       int
	Pronunciation int
	Overall       int
}

func CreateSession(session *Session) error {
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now().UTC()
	}
	if session.Status == "" {
		session.Status = SessionStatusActive
	}
	return DB.Create(session).Error
}

func GetSession(id uint) (*Session, error) {
	var session Session
	err := DB.First(&session, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func UpdateSessionPart(id uint, part string) error {
	return DB.Model(&Session{}).Where("id = ?", id).Update("part", part).Error
}

func AddResponse(response *Response) error {
	return DB.Create(response).Error
}

func GetSessionResponses(sessionID uint) ([]Response, error) {
	var responses []Response
	err := DB.Where("session_id = ?", sessionID).Order("id").Find(&responses).Error
	return responses, err
}

// CompleteSession finalizes the row and rolls the study time into DailyStudy.
func CompleteSession(id uint, scores Scores, cefrLevel, feedback string, now time.Time) error {
	var session Session
	if err := DB.First(&session, id).Error; err != nil {
		return err
	}

	updates := map[string]interface{}{
		"status":              SessionStatusCompleted,
		"score_fluency":       scores.Fluency,
		"score_lexical":       scores.Lexical,
		"score_grammar":       scores.Grammar,
		"score_pronunciation": scores.Pronunciation,
		"score_overall":       scores.Overall,
		"cefr_level":          cefrLevel,
		"feedback":            feedback,
		"completed_at":        now,
	}
	if err := DB.Model(&Session{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return err
	}

	minutes := int(now.Sub(session.StartedAt).Minutes())
	if minutes < 1 {
		minutes = 1
	}
	return UpsertDailyStudy(session.UserID, now.UTC().Format("2006-01-02"), minutes)
}

// UpsertDailyStudy accumulates minutes and bumps the session counter for the day.
func UpsertDailyStudy(userID int64, date string, minutes int) error {
	return DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"minutes":        gorm.Expr("daily_studies.minutes + ?", minutes),
			"sessions_count": gorm.Expr("daily_studies.sessions_count + 1"),
		}),
	}).Create(&DailyStudy{
		UserID:        userID,
		Date:          date,
		Minutes:       minutes,
		SessionsCount: 1,
	}).Error
}

func GetRecentSessions(userID int64, limit int) ([]Session, error) {
	var sessions []Session
	err := DB.Where("user_id = ? AND status = ?", userID, SessionStatusCompleted).
		Order("completed_at DESC").Limit(limit).Find(&sessions).Error
	return sessions, err
}

// GetSessionDetail returns the session with its ordered responses.
func GetSessionDetail(id uint) (*Session, []Response, error) {
	session, err := GetSession(id)
	if err != nil || session == nil {
		return session, nil, err
	}
	responses, err := GetSessionResponses(id)
	if err != nil {
		return nil, nil, err
	}
	return session, responses, nil
}

func CountCompletedSessions(userID int64) (int64, error) {
	var count int64
	err := DB.Model(&Session{}).
		Where("user_id = ? AND status = ?", userID, SessionStatusCompleted).
		Count(&count).Error
	return count, err
}

// AverageOverallScore averages the most recent completed sessions; nil when
// nothing is scored yet.
func AverageOverallScore(userID int64, limit int) (*float64, error) {
	var scores []int
	err := DB.Model(&Session{}).
		Where("user_id = ? AND status = ? AND score_overall IS NOT NULL", userID, SessionStatusCompleted).
		Order("completed_at DESC").Limit(limit).
		Pluck("score_overall", &scores).Error
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, nil
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	avg := float64(sum) / float64(len(scores))
	return &avg, nil
}
