package exam

import (
	"fmt"

	"github.com/davronov/tg-speaking-exam/pkg/scoring"
)

// RubricPolicy holds the fixed scores handed out when the exam does not
// qualify for a full LLM assessment.
type RubricPolicy struct {
	LowScore   int
	LowGrammar int
}

var DefaultRubric = RubricPolicy{LowScore: 10, LowGrammar: 8}

// Incomplete is the verdict when the candidate never progressed past part 1.1.
func (p RubricPolicy) Incomplete() scoring.Result {
	return scoring.Result{
		Fluency:       p.LowScore,
		Lexical:       p.LowScore,
		Grammar:       p.LowGrammar,
		Pronunciation: p.LowScore,
		Overall:       p.LowScore,
		CEFRLevel:     scoring.ScoreToCEFR(p.LowScore),
		Feedback: "The candidate did not complete the exam, failing to progress beyond Part 1.1, " +
			"which severely limits assessment. Responses provided were insufficient to demonstrate " +
			"adequate language skills. Further practice and full participation are strongly recommended.",
	}
}

// Brief is the verdict when any response fell inside the too-brief band.
func (p RubricPolicy) Brief(lowSeconds, highSeconds int) scoring.Result {
	return scoring.Result{
		Fluency:       p.LowScore,
		Lexical:       p.LowScore,
		Grammar:       p.LowGrammar,
		Pronunciation: p.LowScore,
		Overall:       p.LowScore,
		CEFRLevel:     scoring.ScoreToCEFR(p.LowScore),
		Feedback: fmt.Sprintf("The candidate's responses were extremely brief, lasting only %d-%d seconds, "+
			"which severely limits assessment. This brevity prevented a thorough evaluation of language "+
			"skills. Longer responses are needed to demonstrate proficiency.", lowSeconds, highSeconds),
	}
}
