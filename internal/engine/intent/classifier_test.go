package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"supportbot-engine/internal/botconfig"
)

func testCatalog() *botconfig.Catalog {
	return &botconfig.Catalog{
		Intents: []botconfig.IntentDefinition{
			{
				Name:     "greeting",
				Active:   true,
				Priority: 1,
				Keywords: []string{"hello", "hi"},
				Phrases:  []string{"good morning"},
			},
			{
				Name:             "track_order",
				Active:           true,
				Priority:         8,
				Keywords:         []string{"track", "order", "package"},
				Phrases:          []string{"where is my order"},
				RequiredEntities: []string{"orderId"},
			},
			{
				Name:     "disabled_intent",
				Active:   false,
				Priority: 50,
				Keywords: []string{"track", "order", "package"},
			},
		},
	}
}

func TestClassify(t *testing.T) {
	c := NewClassifier(testCatalog())

	tests := []struct {
		name               string
		utterance          string
		expectedIntent     string
		expectEscalation   bool
		minConfidence      float64
		maxConfidence      float64
	}{
		{
			name:           "keyword match",
			utterance:      "hello there",
			expectedIntent: "greeting",
			minConfidence:  0.5,
			maxConfidence:  0.6,
		},
		{
			name:           "phrase plus keywords",
			utterance:      "where is my order, i want to track the package",
			expectedIntent: "track_order",
			minConfidence:  1,
			maxConfidence:  1,
		},
		{
			name:             "no match falls to unknown",
			utterance:        "the weather is lovely",
			expectedIntent:   UnknownIntent,
			expectEscalation: true,
			maxConfidence:    0,
		},
		{
			name:             "weak signal below the floor",
			utterance:        "hi",
			expectedIntent:   "greeting",
			minConfidence:    0.3,
			maxConfidence:    0.6,
			expectEscalation: false,
		},
		{
			name:             "inactive intents never win",
			utterance:        "track order package",
			expectedIntent:   "track_order",
			minConfidence:    1,
			maxConfidence:    1,
			expectEscalation: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match := c.Classify(tt.utterance)
			assert.Equal(t, tt.expectedIntent, match.Intent)
			assert.Equal(t, tt.expectEscalation, match.RequiresEscalation)
			assert.GreaterOrEqual(t, match.Confidence, tt.minConfidence)
			assert.LessOrEqual(t, match.Confidence, tt.maxConfidence)
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := NewClassifier(testCatalog())

	first := c.Classify("where is my order")
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, c.Classify("where is my order"))
	}
}

func TestClassify_TieBreaksTowardEarlierIntent(t *testing.T) {
	catalog := &botconfig.Catalog{
		Intents: []botconfig.IntentDefinition{
			{Name: "first", Active: true, Keywords: []string{"ping"}},
			{Name: "second", Active: true, Keywords: []string{"ping"}},
		},
	}
	c := NewClassifier(catalog)

	for i := 0; i < 20; i++ {
		match := c.Classify("ping")
		assert.Equal(t, "first", match.Intent)
	}
}

func TestClassify_PriorityBreaksNearTies(t *testing.T) {
	catalog := &botconfig.Catalog{
		Intents: []botconfig.IntentDefinition{
			{Name: "low", Active: true, Priority: 0, Keywords: []string{"ping"}},
			{Name: "high", Active: true, Priority: 10, Keywords: []string{"ping"}},
		},
	}
	c := NewClassifier(catalog)

	match := c.Classify("ping")
	assert.Equal(t, "high", match.Intent)
	assert.Equal(t, 1.0, match.Confidence)
}

func TestClassify_ConfidenceCappedAtOne(t *testing.T) {
	catalog := &botconfig.Catalog{
		Intents: []botconfig.IntentDefinition{
			{
				Name:     "stacked",
				Active:   true,
				Priority: 10,
				Keywords: []string{"ping"},
				Phrases:  []string{"ping pong"},
			},
		},
	}
	c := NewClassifier(catalog)

	match := c.Classify("ping pong")
	assert.Equal(t, 1.0, match.Confidence)
}

func TestClassify_NoCatalog(t *testing.T) {
	c := NewClassifier(nil)

	match := c.Classify("hello")
	assert.Equal(t, UnknownIntent, match.Intent)
	assert.True(t, match.RequiresEscalation)
	assert.Equal(t, 0.0, match.Confidence)
}

func TestClassify_CarriesIntentMetadata(t *testing.T) {
	c := NewClassifier(testCatalog())

	match := c.Classify("where is my order")
	assert.Equal(t, "track_order", match.Intent)
	assert.Equal(t, 8, match.Priority)
	assert.Equal(t, []string{"orderId"}, match.RequiredEntities)
}
