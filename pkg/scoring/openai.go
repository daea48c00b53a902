package scoring

import (
	"context"
	"fmt"

	"github.com/davronov/tg-speaking-exam/pkg/config"
	openai "github.com/sashabaranov/go-openai"
)

const examinerSystemPrompt = "You are a certified Multilevel Speaking examiner. Return only valid JSON."

// OpenAIScorer grades through a chat-completion model.
type OpenAIScorer struct {
	client *openai.Client
	model  string
	adjust AdjustPolicy
}

func NewOpenAIScorer(cfg config.ScoringConfig, adjust AdjustPolicy) *OpenAIScorer {
	return &OpenAIScorer{
		client: openai.NewClient(cfg.APIKey),
		model:  cfg.Model,
		adjust: adjust,
	}
}

func (s *OpenAIScorer) Score(ctx context.Context, answers []Answer, timedOut bool) (*Result, error) {
	prompt := BuildPrompt(answers, timedOut)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: examinerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   800,
		Temperature: 0.5,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScoringFailed, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrScoringFailed)
	}

	result := s.adjust.Apply(*parseResult(resp.Choices[0].Message.Content))
	return &result, nil
}
