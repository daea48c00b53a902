package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/davronov/tg-speaking-exam/pkg/db"
	"github.com/davronov/tg-speaking-exam/pkg/logger"
)

const referralPayloadPrefix = "ref_"

func HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.From == nil || update.Message.Chat.ID == 0 {
		logger.Error("invalid update in HandleStart")
		return
	}
	from := update.Message.From
	chatID := update.Message.Chat.ID

	user, err := db.GetOrCreateUser(from.ID, from.FirstName, from.Username, "")
	if err != nil {
		logger.Error("failed to upsert user", "user_id", from.ID, "error", err)
		sendText(ctx, b, chatID, "Failed to start. Please try again later.")
		return
	}

	if code, ok := referralPayload(update.Message.Text); ok {
		handleReferralRedeem(ctx, b, chatID, from.ID, code)
	}

	if user.Contact == "" {
		requestContact(ctx, b, chatID)
		return
	}
	sendWelcome(ctx, b, chatID, user.FirstName)
}

// referralPayload extracts the code from a "/start ref_XXXX" deep link.
func referralPayload(text string) (string, bool) {
	_, payload, found := strings.Cut(strings.TrimSpace(text), " ")
	if !found {
		return "", false
	}
	payload = strings.TrimSpace(payload)
	if !strings.HasPrefix(payload, referralPayloadPrefix) {
		return "", false
	}
	code := strings.TrimPrefix(payload, referralPayloadPrefix)
	return code, code != ""
}

func handleReferralRedeem(ctx context.Context, b *bot.Bot, chatID, userID int64, code string) {
	err := db.ProcessReferral(userID, code)
	switch {
	case err == nil:
		sendText(ctx, b, chatID, "🎁 Referral accepted! You and your friend both got one bonus mock exam.")
	case errors.Is(err, db.ErrAlreadyReferred), errors.Is(err, db.ErrOwnReferralCode):
		// silently ignore repeat or self redemption
	case errors.Is(err, db.ErrInvalidReferralCode):
		sendText(ctx, b, chatID, "This referral link is not valid.")
	default:
		logger.Error("failed to process referral", "user_id", userID, "error", err)
	}
}

func requestContact(ctx context.Context, b *bot.Bot, chatID int64) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "Welcome to the Multilevel Speaking mock exam!\nPlease share your phone number to register.",
		ReplyMarkup: &models.ReplyKeyboardMarkup{
			Keyboard: [][]models.KeyboardButton{
				{{Text: "📱 Share contact", RequestContact: true}},
			},
			ResizeKeyboard:  true,
			OneTimeKeyboard: true,
		},
	}); err != nil {
		logger.Error("failed to request contact", "chat_id", chatID, "error", err)
	}
}

func sendWelcome(ctx context.Context, b *bot.Bot, chatID int64, firstName string) {
	greeting := "Welcome back"
	if firstName != "" {
		greeting += ", " + firstName
	}
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        greeting + "!\nPress 🎤 Start Exam when you are ready.",
		ReplyMarkup: mainKeyboard(),
	}); err != nil {
		logger.Error("failed to send welcome", "chat_id", chatID, "error", err)
	}
}

// handleContact finalizes registration with the shared phone number.
func handleContact(ctx context.Context, b *bot.Bot, update *models.Update) {
	from := update.Message.From
	contact := update.Message.Contact
	chatID := update.Message.Chat.ID

	if contact.UserID != from.ID {
		sendText(ctx, b, chatID, "Please share your own contact, not someone else's.")
		return
	}

	user, err := db.SaveContact(from.ID, contact.PhoneNumber)
	if err != nil {
		logger.Error("failed to save contact", "user_id", from.ID, "error", err)
		sendText(ctx, b, chatID, "Failed to save your contact. Please try again.")
		return
	}

	logger.Info("user registered", "user_id", from.ID)
	sendWelcome(ctx, b, chatID, user.FirstName)
}
