package scoring

import (
	"context"
	"fmt"

	"github.com/davronov/tg-speaking-exam/pkg/config"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiScorer is the alternative grading backend.
type GeminiScorer struct {
	model  *genai.GenerativeModel
	client *genai.Client
	adjust AdjustPolicy
}

func NewGeminiScorer(ctx context.Context, cfg config.ScoringConfig, adjust AdjustPolicy) (*GeminiScorer, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := client.GenerativeModel(cfg.GeminiModel)
	model.ResponseMIMEType = "application/json"
	return &GeminiScorer{model: model, client: client, adjust: adjust}, nil
}

func (s *GeminiScorer) Close() error {
	return s.client.Close()
}

func (s *GeminiScorer) Score(ctx context.Context, answers []Answer, timedOut bool) (*Result, error) {
	prompt := BuildPrompt(answers, timedOut)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScoringFailed, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: empty candidates", ErrScoringFailed)
	}

	content := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			content += string(text)
		}
	}
	if content == "" {
		return nil, fmt.Errorf("%w: no text in response", ErrScoringFailed)
	}

	result := s.adjust.Apply(*parseResult(content))
	return &result, nil
}

// NewScorer picks the configured provider.
func NewScorer(ctx context.Context, cfg config.ScoringConfig, adjust AdjustPolicy) (Scorer, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiScorer(ctx, cfg, adjust)
	case "openai", "":
		return NewOpenAIScorer(cfg, adjust), nil
	default:
		return nil, fmt.Errorf("unknown scoring provider %q", cfg.Provider)
	}
}
