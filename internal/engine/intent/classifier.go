// Package intent scores a normalized utterance against the catalog's
// intent definitions.
package intent

import (
	"strings"

	"supportbot-engine/internal/botconfig"
)

const (
	// UnknownIntent is the sentinel returned when nothing clears the floor.
	UnknownIntent = "unknown"

	// acceptanceFloor is the minimum score an intent must reach to win.
	acceptanceFloor = 0.3

	phraseWeight = 2.0
)

// Match is the classifier output for one utterance.
type Match struct {
	Intent             string                       `json:"intent"`
	Confidence         float64                      `json:"confidence"`
	RequiresEscalation bool                         `json:"requiresEscalation"`
	Priority           int                          `json:"-"`
	RequiredEntities   []string                     `json:"requiredEntities,omitempty"`
	Actions            []botconfig.ActionSpec       `json:"-"`
	Responses          []botconfig.ResponseTemplate `json:"-"`
}

// Classifier holds one immutable snapshot of active intent definitions.
// Reloading configuration swaps in a new Classifier; an instance itself is
// safe for concurrent use.
type Classifier struct {
	intents []botconfig.IntentDefinition
}

func NewClassifier(catalog *botconfig.Catalog) *Classifier {
	if catalog == nil {
		return &Classifier{}
	}
	return &Classifier{intents: catalog.ActiveIntents()}
}

// Classify scores every active intent and returns the best match.
//
// Per-intent scoring: each keyword contained in the utterance adds
// 1/keywordCount, each contained phrase adds 2/phraseCount (a full phrase
// is stronger evidence than a single keyword), and the sum is multiplied
// by the relevance weight (1 + priority/10). Ties at the maximum keep the
// earlier-declared intent; the strict > below is what guarantees that, so
// it must not become >=. With no catalog or nothing at or above the 0.3
// floor the sentinel "unknown" comes back carrying whatever score was
// found, capped to [0,1], with RequiresEscalation set.
func (c *Classifier) Classify(normalized string) Match {
	var (
		best      *botconfig.IntentDefinition
		bestScore float64
	)

	for i := range c.intents {
		def := &c.intents[i]
		score := scoreIntent(def, normalized)
		if score > bestScore {
			bestScore = score
			best = def
		}
	}

	confidence := bestScore
	if confidence > 1 {
		confidence = 1
	}

	if best == nil || bestScore < acceptanceFloor {
		return Match{
			Intent:             UnknownIntent,
			Confidence:         confidence,
			RequiresEscalation: true,
		}
	}

	return Match{
		Intent:           best.Name,
		Confidence:       confidence,
		Priority:         best.Priority,
		RequiredEntities: best.RequiredEntities,
		Actions:          best.Actions,
		Responses:        best.Responses,
	}
}

func scoreIntent(def *botconfig.IntentDefinition, normalized string) float64 {
	raw := 0.0

	if n := len(def.Keywords); n > 0 {
		per := 1.0 / float64(n)
		for _, kw := range def.Keywords {
			if kw != "" && strings.Contains(normalized, kw) {
				raw += per
			}
		}
	}

	if n := len(def.Phrases); n > 0 {
		per := phraseWeight / float64(n)
		for _, ph := range def.Phrases {
			if ph != "" && strings.Contains(normalized, ph) {
				raw += per
			}
		}
	}

	return raw * def.RelevanceWeight()
}
