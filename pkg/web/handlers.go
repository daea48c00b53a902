package web

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/davronov/tg-speaking-exam/pkg/db"
	"github.com/davronov/tg-speaking-exam/pkg/exam"
	"github.com/davronov/tg-speaking-exam/pkg/logger"
	"github.com/davronov/tg-speaking-exam/pkg/questions"
	"github.com/davronov/tg-speaking-exam/pkg/scoring"
)

type loginRequest struct {
	InitData string `json:"init_data" binding:"required"`
}

type userResponse struct {
	TelegramID int64  `json:"telegram_id"`
	FirstName  string `json:"first_name"`
	Username   string `json:"username"`
	PhotoURL   string `json:"photo_url"`
	Tariff     string `json:"tariff"`
	BonusMocks int    `json:"bonus_mocks"`
	Registered bool   `json:"registered"`
}

func toUserResponse(user *db.User) userResponse {
	return userResponse{
		TelegramID: user.TelegramID,
		FirstName:  user.FirstName,
		Username:   user.Username,
		PhotoURL:   user.PhotoURL,
		Tariff:     user.Tariff,
		BonusMocks: user.BonusMocks,
		Registered: user.Contact != "",
	}
}

type promptResponse struct {
	SessionID      uint              `json:"session_id"`
	Part           string            `json:"part"`
	Question       string            `json:"question,omitempty"`
	QuestionNumber int               `json:"question_number,omitempty"`
	QuestionTotal  int               `json:"question_total,omitempty"`
	TimeLimit      int               `json:"time_limit,omitempty"`
	NewPart        bool              `json:"new_part,omitempty"`
	Images         []string          `json:"images,omitempty"`
	Debate         *questions.Debate `json:"debate,omitempty"`
	Exceeded       bool              `json:"exceeded,omitempty"`
	Done           bool              `json:"done"`
	Feedback       *feedbackResponse `json:"feedback,omitempty"`
}

type feedbackResponse struct {
	SessionID uint           `json:"session_id"`
	TimedOut  bool           `json:"timed_out"`
	Result    scoring.Result `json:"result"`
}

func toPromptResponse(p *exam.Prompt) promptResponse {
	resp := promptResponse{
		SessionID:      p.SessionID,
		Part:           p.Part,
		Question:       p.Question,
		QuestionNumber: p.QuestionNumber,
		QuestionTotal:  p.QuestionTotal,
		TimeLimit:      p.TimeLimit,
		NewPart:        p.NewPart,
		Images:         p.Images,
		Debate:         p.Debate,
		Exceeded:       p.Exceeded,
		Done:           p.Done,
	}
	if p.Feedback != nil {
		resp.Feedback = &feedbackResponse{
			SessionID: p.Feedback.SessionID,
			TimedOut:  p.Feedback.TimedOut,
			Result:    p.Feedback.Result,
		}
	}
	return resp
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "init_data is required"})
		return
	}

	webUser, err := ValidateInitData(req.InitData, s.botToken, initDataMaxAge, s.now())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid init data"})
		return
	}

	user, err := db.GetOrCreateUser(webUser.ID, webUser.FirstName, webUser.Username, webUser.PhotoURL)
	if err != nil {
		logger.Error("failed to upsert web user", "user_id", webUser.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	token, err := issueToken(s.jwtSecret, user.TelegramID, s.now())
	if err != nil {
		logger.Error("failed to issue token", "user_id", user.TelegramID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": toUserResponse(user)})
}

func (s *Server) handleMe(c *gin.Context) {
	userID := currentUserID(c)
	user, err := db.GetUser(userID)
	if err != nil || user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	settings, err := db.GetUserSettings(userID)
	if err != nil {
		logger.Error("failed to load settings", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user": toUserResponse(user),
		"settings": gin.H{
			"dark_mode":     settings.DarkMode,
			"notifications": settings.Notifications,
			"language":      settings.Language,
			"daily_goal":    settings.DailyGoal,
			"target_score":  settings.TargetScore,
		},
	})
}

type settingsRequest struct {
	DarkMode      *bool    `json:"dark_mode"`
	Notifications *bool    `json:"notifications"`
	Language      *string  `json:"language"`
	DailyGoal     *int     `json:"daily_goal"`
	TargetScore   *float64 `json:"target_score"`
}

func (s *Server) handleUpdateSettings(c *gin.Context) {
	userID := currentUserID(c)
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings payload"})
		return
	}

	settings, err := db.GetUserSettings(userID)
	if err != nil {
		logger.Error("failed to load settings", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if req.DarkMode != nil {
		settings.DarkMode = *req.DarkMode
	}
	if req.Notifications != nil {
		settings.Notifications = *req.Notifications
	}
	if req.Language != nil {
		settings.Language = *req.Language
	}
	if req.DailyGoal != nil {
		settings.DailyGoal = *req.DailyGoal
	}
	if req.TargetScore != nil {
		settings.TargetScore = *req.TargetScore
	}
	if err := db.SaveUserSettings(settings); err != nil {
		logger.Error("failed to save settings", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleQuestions(c *gin.Context) {
	c.JSON(http.StatusOK, s.bank.Random())
}

func (s *Server) handleTests(c *gin.Context) {
	type testSummary struct {
		ID        int `json:"id"`
		Questions int `json:"questions"`
	}
	tests := s.bank.Tests()
	summaries := make([]testSummary, 0, len(tests))
	for _, test := range tests {
		total := 0
		for _, part := range questions.PartOrder {
			total += len(test.Questions(part))
		}
		summaries = append(summaries, testSummary{ID: test.ID, Questions: total})
	}
	c.JSON(http.StatusOK, summaries)
}

func (s *Server) handleSessionStart(c *gin.Context) {
	userID := currentUserID(c)
	prompt, err := s.exam.Start(c.Request.Context(), userID, db.SessionTypeMock)
	if err != nil {
		s.examError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPromptResponse(prompt))
}

// ownedSession enforces that the :id session exists and belongs to the caller.
func (s *Server) ownedSession(c *gin.Context) (*db.Session, bool) {
	userID := currentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return nil, false
	}
	session, err := db.GetSession(uint(id))
	if err != nil {
		logger.Error("failed to load session", "session_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return nil, false
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	if session.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return nil, false
	}
	return session, true
}

// activeOwnedSession additionally requires that the :id session is the one
// currently in progress; a stale id must not feed a newer exam.
func (s *Server) activeOwnedSession(c *gin.Context) (*db.Session, bool) {
	session, ok := s.ownedSession(c)
	if !ok {
		return nil, false
	}
	active, ok := s.exam.ActiveSessionID(session.UserID)
	if !ok || active != session.ID {
		c.JSON(http.StatusConflict, gin.H{"error": "no_active_exam"})
		return nil, false
	}
	return session, true
}

func (s *Server) handleSessionRespond(c *gin.Context) {
	userID := currentUserID(c)
	if _, ok := s.activeOwnedSession(c); !ok {
		return
	}

	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio file is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read audio"})
		return
	}
	ext := strings.TrimPrefix(filepath.Ext(header.Filename), ".")
	if ext == "" {
		ext = "ogg"
	}

	prompt, err := s.exam.SubmitAnswer(c.Request.Context(), userID, data, ext)
	if err != nil {
		s.examError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPromptResponse(prompt))
}

func (s *Server) handleSessionComplete(c *gin.Context) {
	userID := currentUserID(c)
	if _, ok := s.activeOwnedSession(c); !ok {
		return
	}

	fb, err := s.exam.Finish(c.Request.Context(), userID)
	if err != nil {
		s.examError(c, err)
		return
	}
	c.JSON(http.StatusOK, feedbackResponse{
		SessionID: fb.SessionID,
		TimedOut:  fb.TimedOut,
		Result:    fb.Result,
	})
}

type sessionSummary struct {
	ID          uint   `json:"id"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	Overall     *int   `json:"overall_score"`
	CEFRLevel   string `json:"cefr_level"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

func toSessionSummary(session db.Session) sessionSummary {
	summary := sessionSummary{
		ID:        session.ID,
		Type:      session.Type,
		Status:    session.Status,
		Overall:   session.ScoreOverall,
		CEFRLevel: session.CEFRLevel,
		StartedAt: session.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if session.CompletedAt != nil {
		summary.CompletedAt = session.CompletedAt.UTC().Format("2006-01-02T15:04:05Z")
	}
	return summary
}

const historyLimit = 20

func (s *Server) handleHistory(c *gin.Context) {
	sessions, err := db.GetRecentSessions(currentUserID(c), historyLimit)
	if err != nil {
		logger.Error("failed to load history", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	summaries := make([]sessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, toSessionSummary(session))
	}
	c.JSON(http.StatusOK, summaries)
}

func (s *Server) handleHistoryDetail(c *gin.Context) {
	session, ok := s.ownedSession(c)
	if !ok {
		return
	}
	responses, err := db.GetSessionResponses(session.ID)
	if err != nil {
		logger.Error("failed to load responses", "session_id", session.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	type responseDTO struct {
		Part          string `json:"part"`
		Question      string `json:"question"`
		Transcription string `json:"transcription"`
		Duration      int    `json:"duration"`
		TimeLimit     int    `json:"time_limit"`
		Exceeded      bool   `json:"exceeded"`
	}
	dtos := make([]responseDTO, 0, len(responses))
	for _, r := range responses {
		dtos = append(dtos, responseDTO{
			Part:          r.Part,
			Question:      r.QuestionText,
			Transcription: r.Transcription,
			Duration:      r.Duration,
			TimeLimit:     r.TimeLimit,
			Exceeded:      r.Exceeded,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"session":   toSessionSummary(*session),
		"feedback":  session.Feedback,
		"responses": dtos,
	})
}

func (s *Server) handleWeeklyProgress(c *gin.Context) {
	days, err := db.WeeklyProgress(currentUserID(c), s.now())
	if err != nil {
		logger.Error("failed to load weekly progress", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, days)
}

func (s *Server) handleStreak(c *gin.Context) {
	userID := currentUserID(c)
	streak, err := db.StudyStreak(userID, s.now())
	if err != nil {
		logger.Error("failed to compute streak", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	hours, err := db.TotalPracticeHours(userID)
	if err != nil {
		logger.Error("failed to total practice hours", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"streak": streak, "total_hours": hours})
}

func (s *Server) handleReferral(c *gin.Context) {
	userID := currentUserID(c)
	if _, err := db.GenerateReferralCode(userID); err != nil {
		logger.Error("failed to generate referral code", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	stats, err := db.GetReferralStats(userID)
	if err != nil {
		logger.Error("failed to load referral stats", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// examError maps service errors onto HTTP statuses and stable error kinds.
func (s *Server) examError(c *gin.Context, err error) {
	var limited *exam.RateLimitedError
	switch {
	case errors.Is(err, exam.ErrNotRegistered):
		c.JSON(http.StatusForbidden, gin.H{"error": "not_registered"})
	case errors.Is(err, exam.ErrNotSubscribed):
		c.JSON(http.StatusForbidden, gin.H{"error": "not_subscribed"})
	case errors.As(err, &limited):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":   "rate_limited",
			"ceiling": limited.Ceiling,
			"tariff":  limited.Tariff,
		})
	case errors.Is(err, exam.ErrTooShort):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "answer_too_short"})
	case errors.Is(err, exam.ErrTooQuiet):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "audio_too_quiet"})
	case errors.Is(err, exam.ErrNoAnswers):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no_answers"})
	case errors.Is(err, exam.ErrNoActiveExam):
		c.JSON(http.StatusConflict, gin.H{"error": "no_active_exam"})
	default:
		logger.Error("exam operation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
