// Package scoring grades exam transcripts through an LLM examiner.
package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrScoringFailed = errors.New("scoring failed")

// Answer is one transcribed response fed into the rubric prompt.
type Answer struct {
	Part          string
	Question      string
	Transcription string
	Duration      int
	TimeLimit     int
	Exceeded      bool
}

// Result carries the examiner's scores on the 0-75 integer scale.
type Result struct {
	Fluency       int    `json:"fluency"`
	Lexical       int    `json:"lexical"`
	Grammar       int    `json:"grammar"`
	Pronunciation int    `json:"pronunciation"`
	Overall       int    `json:"overall"`
	CEFRLevel     string `json:"cefr_level"`
	Feedback      string `json:"feedback"`
}

// Scorer grades a full set of answers.
type Scorer interface {
	Score(ctx context.Context, answers []Answer, timedOut bool) (*Result, error)
}

const promptHeader = `You are a certified Multilevel Speaking examiner. Analyze the following responses based on:
1. Fluency and Coherence
2. Lexical Resource
3. Grammatical Range and Accuracy
4. Pronunciation
Score each criterion on a 0-75 INTEGER scale.
CEFR mapping: C1(65-75), B2(51-64), B1(38-50), Below B1(0-37)
Return ONLY valid JSON (no markdown, no code fences) in this format:
{"fluency": 55, "lexical": 50, "grammar": 48, "pronunciation": 52, "overall": 51, "cefr_level": "B2", "feedback": "Your detailed feedback here."}
`

const timedOutNote = "Note: the exam timed out (30 minutes), so responses may be incomplete.\n"

// BuildPrompt renders the deterministic rubric prompt.
func BuildPrompt(answers []Answer, timedOut bool) string {
	var sb strings.Builder
	sb.WriteString(promptHeader)
	if timedOut {
		sb.WriteString(timedOutNote)
	}
	sb.WriteString("Responses:\n")
	for _, a := range answers {
		fmt.Fprintf(&sb, "\nPart %s (Duration: %d/%ds):\n", a.Part, a.Duration, a.TimeLimit)
		fmt.Fprintf(&sb, "Question: %s\n", a.Question)
		fmt.Fprintf(&sb, "Transcription: %s\n", a.Transcription)
		if a.Exceeded {
			sb.WriteString("Time limit exceeded\n")
		}
	}
	return sb.String()
}

// ScoreToCEFR maps an overall 0-75 score onto the CEFR scale.
func ScoreToCEFR(score int) string {
	switch {
	case score >= 65:
		return "C1"
	case score >= 51:
		return "B2"
	case score >= 38:
		return "B1"
	default:
		return "Below B1"
	}
}

// parseResult decodes the model output, tolerating markdown code fences. When
// the payload is not JSON at all, the raw text becomes the feedback and the
// examiner falls back to mid-band default scores.
func parseResult(content string) *Result {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		}
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
		content = strings.TrimSpace(content)
	}

	var result Result
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		feedback := content
		if feedback == "" {
			feedback = "Unable to generate detailed feedback."
		}
		return &Result{
			Fluency:       40,
			Lexical:       40,
			Grammar:       38,
			Pronunciation: 40,
			Overall:       40,
			CEFRLevel:     ScoreToCEFR(40),
			Feedback:      feedback,
		}
	}
	if result.CEFRLevel == "" {
		result.CEFRLevel = ScoreToCEFR(result.Overall)
	}
	return &result
}
