package translation

import (
	"fmt"
	"math"

	"codeberg.org/snonux/parlo/internal/language"
)

// BuildPrompt returns the instruction sent to chat-style translation models.
func BuildPrompt(text, source, target string) string {
	return fmt.Sprintf(
		"Translate the following %s text to %s. Respond with only the %s translation, nothing else.\n\n%s",
		language.Name(source), language.Name(target), language.Name(target), text,
	)
}

// ConfidenceFromLogProbs turns per-token log probabilities into a score in
// [0,1] (the geometric mean of the token probabilities). It returns nil when
// there is nothing to score.
func ConfidenceFromLogProbs(logprobs []float64) *float64 {
	if len(logprobs) == 0 {
		return nil
	}
	var sum float64
	for _, lp := range logprobs {
		sum += lp
	}
	score := math.Exp(sum / float64(len(logprobs)))
	if score > 1 {
		score = 1
	}
	return Float(score)
}
