package nlp

import (
	"strings"
	"unicode"
)

// Weights are in integer hundredths. Scores accumulate as integers so a
// message sitting exactly on a rule threshold compares exactly, with no
// float drift.
const (
	positiveTokenCentis = 10
	negativeTokenCentis = 15

	positiveLabelThreshold = 0.2
	negativeLabelThreshold = -0.2
)

// Sentiment is a bounded score with its derived label.
type Sentiment struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

var positiveWords = map[string]struct{}{
	"good": {}, "great": {}, "excellent": {}, "awesome": {}, "amazing": {},
	"love": {}, "perfect": {}, "thanks": {}, "thank": {}, "helpful": {},
	"happy": {}, "wonderful": {}, "fantastic": {}, "nice": {}, "best": {},
	"appreciate": {}, "pleased": {}, "satisfied": {}, "brilliant": {},
}

var negativeWords = map[string]struct{}{
	"bad": {}, "terrible": {}, "awful": {}, "horrible": {}, "worst": {},
	"hate": {}, "angry": {}, "furious": {}, "annoyed": {}, "frustrated": {},
	"useless": {}, "broken": {}, "wrong": {}, "disappointed": {}, "unhappy": {},
	"ridiculous": {}, "unacceptable": {}, "garbage": {}, "scam": {},
	"never": {}, "refund": {}, "cancel": {}, "complaint": {},
}

// AnalyzeSentiment scores the normalized utterance token by token.
// Punctuation stuck to a token ("furious,") is trimmed before lookup.
// Negative tokens weigh more than positive ones so negative signal
// dominates ties, biasing the system toward escalation.
func AnalyzeSentiment(normalized string) Sentiment {
	centis := 0
	for _, token := range strings.Fields(normalized) {
		token = strings.TrimFunc(token, isTokenPunct)
		if _, ok := positiveWords[token]; ok {
			centis += positiveTokenCentis
		}
		if _, ok := negativeWords[token]; ok {
			centis -= negativeTokenCentis
		}
	}

	score := clamp(float64(centis)/100, -1, 1)

	label := "neutral"
	switch {
	case score > positiveLabelThreshold:
		label = "positive"
	case score < negativeLabelThreshold:
		label = "negative"
	}

	return Sentiment{Score: score, Label: label}
}

func isTokenPunct(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsNumber(r)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
