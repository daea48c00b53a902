package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/davronov/tg-speaking-exam/pkg/db"
	"github.com/davronov/tg-speaking-exam/pkg/logger"
)

func requireAdmin(ctx context.Context, b *bot.Bot, update *models.Update) bool {
	userID := update.Message.From.ID
	ok, err := db.IsAdmin(userID)
	if err != nil {
		logger.Error("failed to check admin", "user_id", userID, "error", err)
		return false
	}
	if !ok {
		sendText(ctx, b, update.Message.Chat.ID, "This command is for administrators only.")
	}
	return ok
}

// commandArg returns everything after the command itself.
func commandArg(text string) string {
	_, arg, _ := strings.Cut(strings.TrimSpace(text), " ")
	return strings.TrimSpace(arg)
}

// resolveTarget finds a user by "@username" or numeric Telegram ID.
func resolveTarget(arg string) (*db.User, error) {
	if username, ok := strings.CutPrefix(arg, "@"); ok {
		return db.FindUserByTarget(username, 0)
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("expected @username or numeric ID, got %q", arg)
	}
	return db.FindUserByTarget("", id)
}

func HandleAddAdmin(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.From == nil {
		return
	}
	if !requireAdmin(ctx, b, update) {
		return
	}
	chatID := update.Message.Chat.ID

	arg := commandArg(update.Message.Text)
	if arg == "" {
		sendText(ctx, b, chatID, "Usage: /admin_add @username or /admin_add <telegram_id>")
		return
	}
	target, err := resolveTarget(arg)
	if err != nil || target == nil {
		sendText(ctx, b, chatID, "User not found. They must have started the bot first.")
		return
	}
	if err := db.AddAdmin(target.TelegramID); err != nil {
		logger.Error("failed to add admin", "target", target.TelegramID, "error", err)
		sendText(ctx, b, chatID, "Failed to add administrator.")
		return
	}
	sendText(ctx, b, chatID, fmt.Sprintf("✅ %s is now an administrator.", arg))
}

func HandleUpgradeGold(ctx context.Context, b *bot.Bot, update *models.Update) {
	handleSetTariff(ctx, b, update, db.TariffGold, "upgraded to Gold")
}

func HandleDowngrade(ctx context.Context, b *bot.Bot, update *models.Update) {
	handleSetTariff(ctx, b, update, db.TariffFree, "downgraded to Free")
}

func handleSetTariff(ctx context.Context, b *bot.Bot, update *models.Update, tariff, verb string) {
	if update == nil || update.Message == nil || update.Message.From == nil {
		return
	}
	if !requireAdmin(ctx, b, update) {
		return
	}
	chatID := update.Message.Chat.ID

	arg := commandArg(update.Message.Text)
	if arg == "" {
		sendText(ctx, b, chatID, "Usage: specify @username or a numeric Telegram ID.")
		return
	}
	target, err := resolveTarget(arg)
	if err != nil || target == nil {
		sendText(ctx, b, chatID, "User not found. They must have started the bot first.")
		return
	}
	if err := db.SetTariff(target.TelegramID, tariff); err != nil {
		logger.Error("failed to set tariff", "target", target.TelegramID, "tariff", tariff, "error", err)
		sendText(ctx, b, chatID, "Failed to change the tariff.")
		return
	}
	logger.Info("tariff changed", "target", target.TelegramID, "tariff", tariff, "admin", update.Message.From.ID)
	sendText(ctx, b, chatID, fmt.Sprintf("✅ %s %s.", arg, verb))
}

func HandleStats(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.From == nil {
		return
	}
	if !requireAdmin(ctx, b, update) {
		return
	}
	chatID := update.Message.Chat.ID

	stats, err := db.GetBotStats(time.Now().UTC())
	if err != nil {
		logger.Error("failed to load bot stats", "error", err)
		sendText(ctx, b, chatID, "Failed to load statistics.")
		return
	}
	sendText(ctx, b, chatID, fmt.Sprintf(
		"📈 Bot statistics\n\nTotal users: %d\nNew today: %d\nActive today: %d",
		stats.TotalUsers, stats.NewUsersToday, stats.ActiveToday))
}

// HandleSendAll broadcasts a plain-text announcement to every user.
func HandleSendAll(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.From == nil {
		return
	}
	if !requireAdmin(ctx, b, update) {
		return
	}
	chatID := update.Message.Chat.ID

	text := commandArg(update.Message.Text)
	if text == "" {
		sendText(ctx, b, chatID, "Usage: /send_all <message>")
		return
	}

	ids, err := db.ListUserIDs()
	if err != nil {
		logger.Error("failed to list users for broadcast", "error", err)
		sendText(ctx, b, chatID, "Failed to load the user list.")
		return
	}

	sent := 0
	for _, id := range ids {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: id, Text: text}); err != nil {
			logger.Warn("broadcast delivery failed", "user_id", id, "error", err)
			continue
		}
		sent++
	}
	logger.Info("broadcast finished", "admin", update.Message.From.ID, "sent", sent, "total", len(ids))
	sendText(ctx, b, chatID, fmt.Sprintf("📣 Broadcast delivered to %d of %d users.", sent, len(ids)))
}

// adLeadTime delays a freshly scheduled advert so an admin can still ask for
// its removal before the broadcast.
const adLeadTime = time.Hour

// handleAdPhoto schedules a photo advert sent by an administrator. The caption
// becomes the advert text; broadcasting happens on the ads ticker.
func handleAdPhoto(ctx context.Context, b *bot.Bot, update *models.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	ok, err := db.IsAdmin(userID)
	if err != nil {
		logger.Error("failed to check admin for ad", "user_id", userID, "error", err)
		return
	}
	if !ok {
		return
	}

	photos := update.Message.Photo
	if len(photos) == 0 {
		return
	}
	// the last size is the largest
	fileID := photos[len(photos)-1].FileID

	ad := &db.Ad{
		AdminID:    userID,
		FileID:     fileID,
		Caption:    update.Message.Caption,
		ScheduleAt: time.Now().UTC().Add(adLeadTime),
	}
	if err := db.CreateAd(ad); err != nil {
		logger.Error("failed to schedule ad", "admin", userID, "error", err)
		sendText(ctx, b, chatID, "Failed to schedule the advert.")
		return
	}
	logger.Info("ad scheduled", "ad_id", ad.ID, "admin", userID)
	sendText(ctx, b, chatID, "📣 Advert scheduled. It will be broadcast to all users in about an hour.")
}
