package scoring

import (
	"strings"
	"testing"
)

func TestBuildPromptIncludesAnswersAndMarkers(t *testing.T) {
	answers := []Answer{
		{Part: "1.1", Question: "Where do you live?", Transcription: "I live in Samarkand.", Duration: 12, TimeLimit: 30},
		{Part: "2", Question: "City or village?", Transcription: "I prefer the city.", Duration: 70, TimeLimit: 60, Exceeded: true},
	}

	prompt := BuildPrompt(answers, false)
	if !strings.Contains(prompt, "Part 1.1 (Duration: 12/30s)") {
		t.Fatalf("expected the first answer header, got:\n%s", prompt)
	}
	if !strings.Contains(prompt, "I prefer the city.") {
		t.Fatalf("expected the transcription in the prompt")
	}
	if !strings.Contains(prompt, "Time limit exceeded") {
		t.Fatalf("expected the exceeded marker for the second answer")
	}
	if strings.Contains(prompt, "timed out") {
		t.Fatalf("unexpected timeout note on a normal exam")
	}

	timedOut := BuildPrompt(answers, true)
	if !strings.Contains(timedOut, "timed out (30 minutes)") {
		t.Fatalf("expected the timeout note, got:\n%s", timedOut)
	}
}

func TestParseResultDecodesCleanAndFencedJSON(t *testing.T) {
	const payload = `{"fluency": 55, "lexical": 50, "grammar": 48, "pronunciation": 52, "overall": 51, "cefr_level": "B2", "feedback": "Nice work."}`

	for _, content := range []string{payload, "```json\n" + payload + "\n```"} {
		result := parseResult(content)
		if result.Overall != 51 || result.CEFRLevel != "B2" || result.Feedback != "Nice work." {
			t.Fatalf("unexpected result for %q: %+v", content, result)
		}
	}
}

func TestParseResultFallsBackOnProse(t *testing.T) {
	result := parseResult("The candidate spoke fluently but made several grammar mistakes.")
	if result.Fluency != 40 || result.Lexical != 40 || result.Grammar != 38 || result.Pronunciation != 40 {
		t.Fatalf("unexpected fallback scores: %+v", result)
	}
	if result.Overall != 40 || result.CEFRLevel != "B1" {
		t.Fatalf("unexpected fallback overall: %+v", result)
	}
	if !strings.Contains(result.Feedback, "spoke fluently") {
		t.Fatalf("expected raw text preserved as feedback, got %q", result.Feedback)
	}
}

func TestParseResultFillsMissingCEFR(t *testing.T) {
	result := parseResult(`{"fluency": 70, "lexical": 68, "grammar": 66, "pronunciation": 69, "overall": 68, "feedback": "x"}`)
	if result.CEFRLevel != "C1" {
		t.Fatalf("expected derived C1 level, got %q", result.CEFRLevel)
	}
}

func TestScoreToCEFRBoundaries(t *testing.T) {
	tests := []struct {
		score int
		level string
	}{
		{75, "C1"}, {65, "C1"},
		{64, "B2"}, {51, "B2"},
		{50, "B1"}, {38, "B1"},
		{37, "Below B1"}, {0, "Below B1"},
	}
	for _, tt := range tests {
		if got := ScoreToCEFR(tt.score); got != tt.level {
			t.Errorf("ScoreToCEFR(%d) = %q, want %q", tt.score, got, tt.level)
		}
	}
}

func TestAdjustPolicySkewsGrammar(t *testing.T) {
	policy := AdjustPolicy{GrammarBelowLexical: 2}
	result := policy.Apply(Result{Fluency: 60, Lexical: 50, Grammar: 55, Pronunciation: 58, Overall: 56})

	if result.Grammar != 48 {
		t.Fatalf("expected grammar capped at lexical-2, got %d", result.Grammar)
	}
	// rounded mean of 60, 50, 48, 58
	if result.Overall != 54 {
		t.Fatalf("expected recomputed overall 54, got %d", result.Overall)
	}
	if result.CEFRLevel != "B2" {
		t.Fatalf("expected B2 after recompute, got %q", result.CEFRLevel)
	}
}

func TestAdjustPolicyClampsAndDisables(t *testing.T) {
	disabled := AdjustPolicy{}
	in := Result{Fluency: 10, Lexical: 1, Grammar: 9, Pronunciation: 10, Overall: 8, CEFRLevel: "Below B1"}
	if got := disabled.Apply(in); got != in {
		t.Fatalf("zero policy must be a no-op, got %+v", got)
	}

	policy := AdjustPolicy{GrammarBelowLexical: 5}
	result := policy.Apply(in)
	if result.Grammar != 0 {
		t.Fatalf("expected grammar clamped at 0, got %d", result.Grammar)
	}
}
