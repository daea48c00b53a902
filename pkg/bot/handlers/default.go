package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/davronov/tg-speaking-exam/pkg/logger"
)

// DefaultHandler dispatches the update kinds Telegram does not route by text:
// shared contacts, voice answers and admin advert photos.
func DefaultHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.From == nil {
		logger.Error("received invalid update in DefaultHandler")
		return
	}
	msg := update.Message
	if msg.Chat.ID == 0 {
		logger.Error("chat ID is zero in DefaultHandler")
		return
	}

	switch {
	case msg.Contact != nil:
		handleContact(ctx, b, update)
	case msg.Voice != nil || msg.Audio != nil || msg.VideoNote != nil:
		handleVoice(ctx, b, update)
	case len(msg.Photo) > 0:
		handleAdPhoto(ctx, b, update)
	case msg.Text == StartExamButton:
		HandleExamStart(ctx, b, update)
	default:
		sendText(ctx, b, msg.Chat.ID,
			"Commands:\n"+
				"* 🎤 Start Exam: begin a speaking mock exam.\n"+
				"* /progress: your scores, streak and study time.\n"+
				"* /referral: invite friends, earn bonus mocks.\n"+
				"* /start: register or update your profile.\n\n"+
				"During the exam, answer every question with a voice message.")
	}
}
