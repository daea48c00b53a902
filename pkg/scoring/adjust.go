package scoring

// AdjustPolicy skews examiner output deterministically before display. The
// historical observation behind it: the LLM rates grammar more generously than
// human examiners do relative to vocabulary.
type AdjustPolicy struct {
	// GrammarBelowLexical forces grammar at least this many points below the
	// lexical score. Zero disables the pass.
	GrammarBelowLexical int
}

// DefaultAdjustPolicy mirrors the production skew of two points.
var DefaultAdjustPolicy = AdjustPolicy{GrammarBelowLexical: 2}

// Apply returns a copy with the skew applied and the overall recomputed as the
// rounded criterion mean. Scores stay within [0, 75].
func (p AdjustPolicy) Apply(r Result) Result {
	if p.GrammarBelowLexical <= 0 {
		return r
	}
	maxGrammar := r.Lexical - p.GrammarBelowLexical
	if r.Grammar > maxGrammar {
		r.Grammar = maxGrammar
	}
	if r.Grammar < 0 {
		r.Grammar = 0
	}
	r.Overall = clampScore((r.Fluency + r.Lexical + r.Grammar + r.Pronunciation + 2) / 4)
	r.CEFRLevel = ScoreToCEFR(r.Overall)
	return r
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 75 {
		return 75
	}
	return score
}
