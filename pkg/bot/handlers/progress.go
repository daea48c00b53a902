package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/davronov/tg-speaking-exam/pkg/db"
	"github.com/davronov/tg-speaking-exam/pkg/logger"
)

const recentScoreWindow = 10

func HandleProgress(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.From == nil {
		logger.Error("invalid update in HandleProgress")
		return
	}
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	now := time.Now().UTC()

	completed, err := db.CountCompletedSessions(userID)
	if err != nil {
		logger.Error("failed to count sessions", "user_id", userID, "error", err)
		sendText(ctx, b, chatID, "Failed to load your progress. Please try again later.")
		return
	}
	avg, err := db.AverageOverallScore(userID, recentScoreWindow)
	if err != nil {
		logger.Error("failed to average scores", "user_id", userID, "error", err)
		sendText(ctx, b, chatID, "Failed to load your progress. Please try again later.")
		return
	}
	streak, err := db.StudyStreak(userID, now)
	if err != nil {
		logger.Error("failed to compute streak", "user_id", userID, "error", err)
		sendText(ctx, b, chatID, "Failed to load your progress. Please try again later.")
		return
	}
	hours, err := db.TotalPracticeHours(userID)
	if err != nil {
		logger.Error("failed to total practice hours", "user_id", userID, "error", err)
		sendText(ctx, b, chatID, "Failed to load your progress. Please try again later.")
		return
	}
	week, err := db.WeeklyProgress(userID, now)
	if err != nil {
		logger.Error("failed to load weekly progress", "user_id", userID, "error", err)
		sendText(ctx, b, chatID, "Failed to load your progress. Please try again later.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📊 Your progress\n\n")
	fmt.Fprintf(&sb, "Completed exams: %d\n", completed)
	if avg != nil {
		fmt.Fprintf(&sb, "Average score (last %d): %.1f/75\n", recentScoreWindow, *avg)
	} else {
		sb.WriteString("Average score: no scored exams yet\n")
	}
	fmt.Fprintf(&sb, "Study streak: %d day(s)\n", streak)
	fmt.Fprintf(&sb, "Total practice: %.1f hours\n\n", hours)

	sb.WriteString("Last 7 days:\n")
	for _, day := range week {
		marker := "▫️"
		if day.Minutes > 0 {
			marker = "✅"
		}
		fmt.Fprintf(&sb, "%s %s — %d min\n", marker, day.Date, day.Minutes)
	}

	sendText(ctx, b, chatID, sb.String())
}
