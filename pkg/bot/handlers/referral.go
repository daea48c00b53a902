package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/davronov/tg-speaking-exam/pkg/config"
	"github.com/davronov/tg-speaking-exam/pkg/db"
	"github.com/davronov/tg-speaking-exam/pkg/logger"
)

func HandleReferral(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.From == nil {
		logger.Error("invalid update in HandleReferral")
		return
	}
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	code, err := db.GenerateReferralCode(userID)
	if err != nil {
		logger.Error("failed to generate referral code", "user_id", userID, "error", err)
		sendText(ctx, b, chatID, "Failed to build your referral link. Please try again later.")
		return
	}
	stats, err := db.GetReferralStats(userID)
	if err != nil {
		logger.Error("failed to load referral stats", "user_id", userID, "error", err)
		sendText(ctx, b, chatID, "Failed to build your referral link. Please try again later.")
		return
	}

	link := fmt.Sprintf("https://t.me/%s?start=%s%s",
		config.AppConfig.Telegram.BotUsername, referralPayloadPrefix, code)
	sendText(ctx, b, chatID, fmt.Sprintf(
		"🎁 Invite friends and earn bonus mock exams!\n\n"+
			"Your link: %s\n\n"+
			"Invited so far: %d\n"+
			"Bonus mocks available: %d\n\n"+
			"Every friend who joins gives you both one extra mock exam.",
		link, stats.ReferralCount, stats.BonusMocks))
}
