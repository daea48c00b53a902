// Package handlers wires Telegram updates to the exam service.
package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/davronov/tg-speaking-exam/pkg/exam"
	"github.com/davronov/tg-speaking-exam/pkg/logger"
	"github.com/davronov/tg-speaking-exam/pkg/questions"
	"github.com/davronov/tg-speaking-exam/pkg/speech"
)

const StartExamButton = "🎤 Start Exam"

var (
	Exam *exam.Service
	TTS  speech.Synthesizer
)

// Configure injects the exam service and the optional text-to-speech backend.
func Configure(svc *exam.Service, tts speech.Synthesizer) {
	Exam = svc
	TTS = tts
}

func mainKeyboard() models.ReplyMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: StartExamButton}},
			{{Text: "/progress"}, {Text: "/referral"}},
		},
		ResizeKeyboard: true,
	}
}

func sendText(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}); err != nil {
		logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

// sendPrompt delivers the next exam step: part intros, images, the debate
// sheet, the question itself, or the final feedback.
func sendPrompt(ctx context.Context, b *bot.Bot, chatID int64, prompt *exam.Prompt) {
	if prompt.Done {
		SendFeedback(ctx, b, chatID, prompt.Feedback)
		return
	}

	if prompt.Exceeded {
		sendText(ctx, b, chatID, "⚠️ Your answer ran over the time limit for this part. It was accepted, but this will affect your score.")
	}
	if prompt.NewPart {
		sendText(ctx, b, chatID, partIntro(prompt.Part))
	}
	for _, url := range prompt.Images {
		if _, err := b.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID: chatID,
			Photo:  &models.InputFileString{Data: url},
		}); err != nil {
			logger.Error("failed to send part image", "chat_id", chatID, "error", err)
		}
	}
	if prompt.Debate != nil {
		sendText(ctx, b, chatID, renderDebate(prompt.Debate))
	}

	sendText(ctx, b, chatID, fmt.Sprintf("❓ Question %d/%d (up to %ds):\n%s",
		prompt.QuestionNumber, prompt.QuestionTotal, prompt.TimeLimit, prompt.Question))
}

func partIntro(part string) string {
	switch part {
	case "1.1":
		return "📝 Part 1.1 — Interview. Answer each question with a voice message (up to 30 seconds each)."
	case "1.2":
		return "🖼 Part 1.2 — Picture description. Look at the pictures and answer the question (up to 30 seconds)."
	case "2":
		return "💬 Part 2 — Discussion. Give an extended answer (up to 60 seconds)."
	case "3":
		return "⚖️ Part 3 — Debate. Take a position on the topic and defend it (up to 120 seconds)."
	default:
		return "Next part."
	}
}

func renderDebate(d *questions.Debate) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Topic: %s\n", d.Topic)
	if len(d.ForPoints) > 0 {
		sb.WriteString("\nFor:\n")
		for _, p := range d.ForPoints {
			fmt.Fprintf(&sb, "• %s\n", p)
		}
	}
	if len(d.AgainstPoints) > 0 {
		sb.WriteString("\nAgainst:\n")
		for _, p := range d.AgainstPoints {
			fmt.Fprintf(&sb, "• %s\n", p)
		}
	}
	return sb.String()
}

// NotifyTimeoutBudget bounds the out-of-band delivery of timeout feedback.
const NotifyTimeoutBudget = 30 * time.Second

// SendFeedback delivers the final verdict as text plus an optional voice note.
func SendFeedback(ctx context.Context, b *bot.Bot, chatID int64, fb *exam.Feedback) {
	if fb == nil {
		return
	}
	text := renderFeedback(fb)
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}); err != nil {
		logger.Error("failed to send feedback", "chat_id", chatID, "error", err)
	}

	if TTS == nil {
		return
	}
	audio, err := TTS.Synthesize(ctx, fb.Result.Feedback)
	if err != nil {
		logger.Warn("failed to synthesize feedback audio", "chat_id", chatID, "error", err)
		return
	}
	if _, err := b.SendVoice(ctx, &bot.SendVoiceParams{
		ChatID:  chatID,
		Voice:   &models.InputFileUpload{Filename: "feedback.mp3", Data: bytes.NewReader(audio)},
		Caption: "🎧 Audio feedback",
	}); err != nil {
		logger.Error("failed to send feedback audio", "chat_id", chatID, "error", err)
	}
}

func renderFeedback(fb *exam.Feedback) string {
	var sb strings.Builder
	if fb.TimedOut {
		sb.WriteString("⏰ Exam Feedback (Incomplete due to Timeout):\n")
	} else {
		sb.WriteString("🎓 Exam Feedback:\n")
	}
	r := fb.Result
	fmt.Fprintf(&sb, "Overall Score: %d/75\n", r.Overall)
	fmt.Fprintf(&sb, "CEFR Level: %s\n", r.CEFRLevel)
	fmt.Fprintf(&sb, "Fluency and Coherence: %d/75\n", r.Fluency)
	fmt.Fprintf(&sb, "Lexical Resource: %d/75\n", r.Lexical)
	fmt.Fprintf(&sb, "Grammatical Range and Accuracy: %d/75\n", r.Grammar)
	fmt.Fprintf(&sb, "Pronunciation: %d/75\n", r.Pronunciation)
	sb.WriteString("\n")
	sb.WriteString(r.Feedback)
	return sb.String()
}

// examErrorText maps service errors onto user-facing messages.
func examErrorText(err error) string {
	var limited *exam.RateLimitedError
	switch {
	case errors.Is(err, exam.ErrNotRegistered):
		return "Please share your contact first. Press /start to register."
	case errors.Is(err, exam.ErrNotSubscribed):
		return "Please subscribe to our channel first, then try again."
	case errors.Is(err, exam.ErrNoActiveExam):
		return "No active exam. Press 🎤 Start Exam to begin."
	case errors.Is(err, exam.ErrTooShort):
		return "⚠️ Your answer was too short (under 5 seconds). Please record it again."
	case errors.Is(err, exam.ErrTooQuiet):
		return "⚠️ I could not hear you. Please record your answer again, closer to the microphone."
	case errors.As(err, &limited):
		return fmt.Sprintf("You have used all %d mock exams for the last 24 hours on the %s tariff.\n"+
			"Invite friends with /referral to earn bonus mocks, or upgrade to Gold.", limited.Ceiling, limited.Tariff)
	default:
		return "Something went wrong. Please try again later."
	}
}
