package db

import (
	"time"

	"gorm.io/datatypes"
)

const (
	TariffFree = "free"
	TariffGold = "gold"

	SessionTypePractice = "practice"
	SessionTypeMock     = "mock"

	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
)

type User struct {
	ID           uint   `gorm:"primaryKey"`
	TelegramID   int64  `gorm:"uniqueIndex;not null"`
	Contact      string `gorm:"not null;default:''"`
	FirstName    string `gorm:"not null;default:''"`
	Username     string `gorm:"index;not null;default:''"`
	PhotoURL     string `gorm:"not null;default:''"`
	Tariff       string `gorm:"not null;default:free"`
	ReferralCode *string `gorm:"uniqueIndex"`
	BonusMocks   int    `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Admin struct {
	ID     uint  `gorm:"primaryKey"`
	UserID int64 `gorm:"uniqueIndex;not null"`
}

// Attempt is only a rate-limiting marker, one row per exam start.
type Attempt struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    int64     `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"index"`
}

type Ad struct {
	ID         uint   `gorm:"primaryKey"`
	AdminID    int64  `gorm:"index;not null"`
	FileID     string `gorm:"not null"`
	Caption    string `gorm:"not null;default:''"`
	ScheduleAt time.Time
	Sent       bool `gorm:"not null;default:false"`
	CreatedAt  time.Time
}

type Session struct {
	ID                 uint   `gorm:"primaryKey"`
	UserID             int64  `gorm:"index;not null"`
	Type               string `gorm:"not null;default:practice"`
	Part               string `gorm:"not null;default:'1.1'"`
	Status             string `gorm:"index;not null;default:active"`
	QuestionIDs        datatypes.JSON
	ScoreFluency       *int
	ScoreLexical       *int
	ScoreGrammar       *int
	ScorePronunciation *int
	ScoreOverall       *int
	CEFRLevel          string `gorm:"not null;default:''"`
	Feedback           string `gorm:"not null;default:''"`
	StartedAt          time.Time
	CompletedAt        *time.Time
}

// Response is append-only within a session.
type Response struct {
	ID            uint   `gorm:"primaryKey"`
	SessionID     uint   `gorm:"index;not null"`
	Part          string `gorm:"not null"`
	QuestionText  string `gorm:"not null"`
	Transcription string `gorm:"not null"`
	Duration      int    `gorm:"not null;default:0"` // seconds spoken
	TimeLimit     int    `gorm:"not null;default:0"` // seconds allowed for the part
	Exceeded      bool   `gorm:"not null;default:false"`
	CreatedAt     time.Time
}

// DailyStudy aggregates per-user per-day study minutes and completed sessions.
type DailyStudy struct {
	ID            uint   `gorm:"primaryKey"`
	UserID        int64  `gorm:"uniqueIndex:idx_daily_study_user_date;not null"`
	Date          string `gorm:"uniqueIndex:idx_daily_study_user_date;not null"` // YYYY-MM-DD
	Minutes       int    `gorm:"not null;default:0"`
	SessionsCount int    `gorm:"not null;default:0"`
}

type UserSetting struct {
	ID            uint    `gorm:"primaryKey"`
	UserID        int64   `gorm:"uniqueIndex;not null"`
	DarkMode      bool    `gorm:"not null;default:false"`
	Notifications bool    `gorm:"not null;default:true"`
	Language      string  `gorm:"not null;default:en"`
	DailyGoal     int     `gorm:"not null;default:30"`
	TargetScore   float64 `gorm:"not null;default:6.5"`
}

type Referral struct {
	ID         uint  `gorm:"primaryKey"`
	ReferrerID int64 `gorm:"index;not null"`
	ReferredID int64 `gorm:"uniqueIndex;not null"` // a user may redeem at most one code
	Rewarded   bool  `gorm:"not null;default:false"`
	CreatedAt  time.Time
}
