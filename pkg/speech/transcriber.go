// Package speech holds the speech-to-text and text-to-speech adapters.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/davronov/tg-speaking-exam/pkg/config"
	openai "github.com/sashabaranov/go-openai"
)

var ErrTranscriptionFailed = errors.New("transcription failed")

// Transcriber turns a recorded answer into cleaned text.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath, promptHint string) (string, error)
}

// WhisperTranscriber calls a Whisper model through any OpenAI-compatible audio
// endpoint (Groq in production).
type WhisperTranscriber struct {
	client *openai.Client
	model  string
}

func NewWhisperTranscriber(cfg config.SpeechConfig) *WhisperTranscriber {
	clientCfg := openai.DefaultConfig(cfg.TranscribeAPIKey)
	if strings.TrimSpace(cfg.TranscribeBaseURL) != "" {
		clientCfg.BaseURL = cfg.TranscribeBaseURL
	}
	return &WhisperTranscriber{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.TranscribeModel,
	}
}

func (t *WhisperTranscriber) Transcribe(ctx context.Context, wavPath, promptHint string) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: wavPath,
		Language: "en",
		Prompt:   promptHint,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("%w: empty transcription", ErrTranscriptionFailed)
	}
	return CleanupTranscription(text), nil
}

// PromptHint gives the recognizer context about the expected answer.
func PromptHint(part, question string) string {
	switch part {
	case "1.1":
		return fmt.Sprintf("Response to Multilevel Part 1.1 interview question: %s", question)
	case "1.2":
		return fmt.Sprintf("Response to Multilevel Part 1.2 picture description question: %s", question)
	case "2":
		return fmt.Sprintf("Response to Multilevel Part 2 discussion question: %s", question)
	case "3":
		return fmt.Sprintf("Response to Multilevel Part 3 debate: %s", question)
	default:
		return fmt.Sprintf("Response to Multilevel question: %s", question)
	}
}
