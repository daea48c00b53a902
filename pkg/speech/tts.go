package speech

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/davronov/tg-speaking-exam/pkg/config"
	openai "github.com/sashabaranov/go-openai"
)

var ErrSynthesisFailed = errors.New("speech synthesis failed")

// Synthesizer reads a text aloud. Failures are non-fatal for callers: audio is
// always an optional companion to the text message.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type OpenAISynthesizer struct {
	client *openai.Client
	model  openai.SpeechModel
	voice  openai.SpeechVoice
}

func NewOpenAISynthesizer(cfg config.SpeechConfig) *OpenAISynthesizer {
	model := openai.SpeechModel(cfg.TTSModel)
	if model == "" {
		model = openai.TTSModel1
	}
	voice := openai.SpeechVoice(cfg.TTSVoice)
	if voice == "" {
		voice = openai.VoiceAlloy
	}
	return &OpenAISynthesizer{
		client: openai.NewClient(cfg.TTSAPIKey),
		model:  model,
		voice:  voice,
	}
}

func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: s.model,
		Input: text,
		Voice: s.voice,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	return data, nil
}
