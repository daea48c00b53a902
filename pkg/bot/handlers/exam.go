package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/davronov/tg-speaking-exam/pkg/config"
	"github.com/davronov/tg-speaking-exam/pkg/db"
	"github.com/davronov/tg-speaking-exam/pkg/logger"
)

func HandleExamStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.From == nil {
		logger.Error("invalid update in HandleExamStart")
		return
	}
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	prompt, err := Exam.Start(ctx, userID, db.SessionTypeMock)
	if err != nil {
		logger.Info("exam start rejected", "user_id", userID, "error", err)
		sendText(ctx, b, chatID, examErrorText(err))
		return
	}

	sendText(ctx, b, chatID, "🎙 The exam has started. You have 30 minutes in total.\n"+
		"Answer every question with a voice message.")
	sendPrompt(ctx, b, chatID, prompt)
}

// handleVoice feeds a recorded answer into the active exam.
func handleVoice(ctx context.Context, b *bot.Bot, update *models.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if !Exam.Active(userID) {
		sendText(ctx, b, chatID, "No active exam. Press 🎤 Start Exam to begin.")
		return
	}

	fileID, ext := answerFile(update.Message)
	if fileID == "" {
		sendText(ctx, b, chatID, "Please answer with a voice message.")
		return
	}

	data, err := downloadFile(ctx, b, fileID)
	if err != nil {
		logger.Error("failed to download voice message", "user_id", userID, "error", err)
		sendText(ctx, b, chatID, "Failed to download your answer. Please try again.")
		return
	}

	prompt, err := Exam.SubmitAnswer(ctx, userID, data, ext)
	if err != nil {
		logger.Info("answer rejected", "user_id", userID, "error", err)
		sendText(ctx, b, chatID, examErrorText(err))
		return
	}
	sendPrompt(ctx, b, chatID, prompt)
}

func answerFile(msg *models.Message) (fileID, ext string) {
	switch {
	case msg.Voice != nil:
		return msg.Voice.FileID, "ogg"
	case msg.Audio != nil:
		return msg.Audio.FileID, "mp3"
	case msg.VideoNote != nil:
		return msg.VideoNote.FileID, "mp4"
	}
	return "", ""
}

func downloadFile(ctx context.Context, b *bot.Bot, fileID string) ([]byte, error) {
	file, err := b.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, err
	}

	fileURL := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s",
		config.AppConfig.Telegram.Token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s downloading file", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// SubscriptionChecker builds the channel-membership gate for the exam service.
// An empty channel disables the gate.
func SubscriptionChecker(b *bot.Bot, channel string) func(context.Context, int64) (bool, error) {
	return func(ctx context.Context, userID int64) (bool, error) {
		if channel == "" {
			return true, nil
		}
		member, err := b.GetChatMember(ctx, &bot.GetChatMemberParams{
			ChatID: channel,
			UserID: userID,
		})
		if err != nil {
			return false, err
		}
		switch member.Type {
		case models.ChatMemberTypeOwner, models.ChatMemberTypeAdministrator, models.ChatMemberTypeMember:
			return true, nil
		}
		return false, nil
	}
}
