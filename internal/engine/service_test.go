package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportbot-engine/internal/botconfig"
	"supportbot-engine/internal/engine/action"
	"supportbot-engine/internal/engine/escalation"
	"supportbot-engine/internal/engine/nlp"
)

// ==========================
// Test Fixtures
// ==========================

type firstChoiceRand struct{}

func (firstChoiceRand) Intn(int) int { return 0 }

func serviceCatalog() *botconfig.Catalog {
	return &botconfig.Catalog{
		Version: "test-1",
		Intents: []botconfig.IntentDefinition{
			{
				Name:     "greeting",
				Active:   true,
				Priority: 1,
				Keywords: []string{"hello"},
				Responses: []botconfig.ResponseTemplate{
					{Language: "en", Text: "Hello! How can I help?"},
				},
			},
			{
				Name:             "track_order",
				Active:           true,
				Priority:         8,
				Keywords:         []string{"track", "order"},
				Phrases:          []string{"where is my order"},
				RequiredEntities: []string{"orderId"},
				Responses: []botconfig.ResponseTemplate{
					{Language: "en", Text: "Let me look up order {orderId}."},
				},
				Actions: []botconfig.ActionSpec{
					{Kind: action.KindAPICall, Endpoint: "orders/track", Params: map[string]string{"orderCode": "{orderId}"}},
				},
			},
			{
				Name:     "billing_help",
				Active:   true,
				Priority: 7,
				Keywords: []string{"billing"},
				Responses: []botconfig.ResponseTemplate{
					{Language: "en", Text: "I can help with billing."},
				},
			},
		},
		Escalation: botconfig.EscalationRuleSet{
			SentimentThreshold:     -0.6,
			ConfidenceThreshold:    0.7,
			MaxRepeatedIntents:     3,
			MaxConversationSeconds: 600,
			TriggerPhrases:         []string{"human agent"},
			VIPAutoEscalate:        true,
		},
	}
}

func newTestService(opts Options) *Service {
	if opts.Rand == nil {
		opts.Rand = firstChoiceRand{}
	}
	return NewService(serviceCatalog(), nil, opts)
}

// ==========================
// Happy Path Tests
// ==========================

func TestProcessMessage_AnswersGreeting(t *testing.T) {
	svc := newTestService(Options{})

	result := svc.ProcessMessage(context.Background(), "sess-1", "hello there", Hints{})

	assert.Equal(t, "greeting", result.Intent)
	assert.Equal(t, 1.0, result.Confidence)
	assert.Equal(t, "Hello! How can I help?", result.Response)
	assert.Equal(t, "en", result.Language)
	assert.False(t, result.Escalate)
	assert.NotEmpty(t, result.MessageID)
	require.NotNil(t, result.Context)
	assert.Equal(t, 1, result.Context.MessageCount)
	assert.Equal(t, "greeting", result.Context.CurrentIntent)
}

func TestProcessMessage_SubstitutesExtractedEntities(t *testing.T) {
	svc := newTestService(Options{})

	result := svc.ProcessMessage(context.Background(), "sess-1", "please track my order ABCDEFGH1234", Hints{})

	assert.Equal(t, "track_order", result.Intent)
	assert.Equal(t, "Let me look up order ABCDEFGH1234.", result.Response)
	assert.Equal(t, "ABCDEFGH1234", result.Entities["orderId"])
	assert.False(t, result.Escalate)
}

func TestProcessMessage_DispatchesActions(t *testing.T) {
	dispatched := make([]action.Request, 0, 1)
	d := action.NewDispatcher(nil)
	d.Register(action.KindAPICall, action.HandlerFunc(func(_ context.Context, req action.Request) error {
		dispatched = append(dispatched, req)
		return nil
	}))

	svc := newTestService(Options{Dispatcher: d})
	svc.ProcessMessage(context.Background(), "sess-1", "please track my order ABCDEFGH1234", Hints{})

	require.Len(t, dispatched, 1)
	assert.Equal(t, "orders/track", dispatched[0].Endpoint)
	assert.Equal(t, "ABCDEFGH1234", dispatched[0].Params["orderCode"])
	assert.Equal(t, "sess-1", dispatched[0].SessionKey)
}

func TestProcessMessage_EntitiesCarryAcrossTurns(t *testing.T) {
	svc := newTestService(Options{CachePriorityFloor: 100})
	ctx := context.Background()

	svc.ProcessMessage(ctx, "sess-1", "my order is ABCDEFGH1234", Hints{})
	result := svc.ProcessMessage(ctx, "sess-1", "please track my order", Hints{})

	// The order code from the first turn feeds the second turn's template.
	assert.Equal(t, "track_order", result.Intent)
	assert.Equal(t, "Let me look up order ABCDEFGH1234.", result.Response)
}

func TestProcessMessage_PreferredLanguageHint(t *testing.T) {
	svc := newTestService(Options{})

	// Detection finds nothing non-English, so the hint wins.
	result := svc.ProcessMessage(context.Background(), "sess-1", "hello", Hints{PreferredLanguage: "es"})
	assert.Equal(t, "es", result.Language)

	// A detected script beats the hint.
	result = svc.ProcessMessage(context.Background(), "sess-2", "где мой заказ", Hints{PreferredLanguage: "es"})
	assert.Equal(t, "ru", result.Language)
}

// ==========================
// Escalation Tests
// ==========================

func TestProcessMessage_NegativeSentimentEscalates(t *testing.T) {
	svc := newTestService(Options{})

	result := svc.ProcessMessage(context.Background(), "sess-1",
		"billing is terrible awful broken useless garbage", Hints{})

	assert.True(t, result.Escalate)
	assert.Equal(t, string(escalation.ReasonNegativeSentiment), result.EscalationReason)
	assert.Equal(t, escalation.Message(escalation.ReasonNegativeSentiment), result.Response)
	assert.Equal(t, "negative", result.Sentiment.Label)
}

func TestProcessMessage_FuriousCustomerScenario(t *testing.T) {
	dispatched := 0
	d := action.NewDispatcher(nil)
	d.Register(action.KindAPICall, action.HandlerFunc(func(context.Context, action.Request) error {
		dispatched++
		return nil
	}))
	svc := newTestService(Options{Dispatcher: d})

	result := svc.ProcessMessage(context.Background(), "sess-1",
		"I am furious, this is the worst service, cancel my refund now", Hints{})

	assert.Equal(t, "negative", result.Sentiment.Label)
	assert.LessOrEqual(t, result.Sentiment.Score, -0.6)
	assert.True(t, result.Escalate)
	assert.Equal(t, string(escalation.ReasonNegativeSentiment), result.EscalationReason)
	assert.Equal(t, escalation.Message(escalation.ReasonNegativeSentiment), result.Response)
	assert.Zero(t, dispatched, "escalations skip action dispatch")
}

func TestProcessMessage_EscalationSkipsActionDispatch(t *testing.T) {
	dispatched := 0
	d := action.NewDispatcher(nil)
	d.Register(action.KindAPICall, action.HandlerFunc(func(context.Context, action.Request) error {
		dispatched++
		return nil
	}))
	svc := newTestService(Options{Dispatcher: d})

	// track_order carries an api_call action, but the sentiment check
	// fires first and suppresses it.
	result := svc.ProcessMessage(context.Background(), "sess-1",
		"track my order, billing is terrible awful broken useless garbage", Hints{})

	require.True(t, result.Escalate)
	assert.Equal(t, "track_order", result.Intent)
	assert.Zero(t, dispatched)
}

func TestProcessMessage_UnknownIntentEscalatesLowConfidence(t *testing.T) {
	svc := newTestService(Options{})

	result := svc.ProcessMessage(context.Background(), "sess-1", "the weather is lovely today", Hints{})

	assert.Equal(t, "unknown", result.Intent)
	assert.True(t, result.Escalate)
	assert.Equal(t, string(escalation.ReasonLowConfidence), result.EscalationReason)
}

func TestProcessMessage_EmptyMessageEscalatesLowConfidence(t *testing.T) {
	svc := newTestService(Options{})

	result := svc.ProcessMessage(context.Background(), "sess-1", "   ", Hints{})

	assert.Equal(t, "unknown", result.Intent)
	assert.Equal(t, 0.0, result.Confidence)
	assert.True(t, result.Escalate)
}

func TestProcessMessage_RepetitionEscalatesOnThirdTurn(t *testing.T) {
	svc := newTestService(Options{CachePriorityFloor: 100})
	ctx := context.Background()

	first := svc.ProcessMessage(ctx, "sess-1", "billing question", Hints{})
	assert.False(t, first.Escalate)

	second := svc.ProcessMessage(ctx, "sess-1", "about my billing", Hints{})
	assert.False(t, second.Escalate)

	third := svc.ProcessMessage(ctx, "sess-1", "billing again please", Hints{})
	assert.True(t, third.Escalate)
	assert.Equal(t, string(escalation.ReasonRepetition), third.EscalationReason)
}

func TestProcessMessage_UserRequestsHuman(t *testing.T) {
	svc := newTestService(Options{})

	result := svc.ProcessMessage(context.Background(), "sess-1", "hello, get me a human agent", Hints{})

	assert.True(t, result.Escalate)
	assert.Equal(t, string(escalation.ReasonUserRequest), result.EscalationReason)
}

func TestProcessMessage_VIPAutoEscalates(t *testing.T) {
	svc := newTestService(Options{})

	result := svc.ProcessMessage(context.Background(), "sess-1", "hello", Hints{Segment: "vip"})

	assert.True(t, result.Escalate)
	assert.Equal(t, string(escalation.ReasonVIPCustomer), result.EscalationReason)
}

func TestProcessMessage_PanicBecomesTechnicalIssue(t *testing.T) {
	svc := newTestService(Options{})
	svc.extractEntities = func(string) map[string]interface{} { panic("extractor blew up") }

	result := svc.ProcessMessage(context.Background(), "sess-1", "hello", Hints{})

	require.NotNil(t, result)
	assert.True(t, result.Escalate)
	assert.Equal(t, string(escalation.ReasonTechnicalIssue), result.EscalationReason)
	assert.Equal(t, escalation.Message(escalation.ReasonTechnicalIssue), result.Response)
	assert.NotEmpty(t, result.MessageID)
}

// ==========================
// Cache Behavior Tests
// ==========================

func TestProcessMessage_CacheHitSkipsAnalysis(t *testing.T) {
	svc := newTestService(Options{})

	sentimentCalls := 0
	svc.analyzeSentiment = func(normalized string) nlp.Sentiment {
		sentimentCalls++
		return nlp.AnalyzeSentiment(normalized)
	}

	ctx := context.Background()
	first := svc.ProcessMessage(ctx, "sess-1", "please track my order ABCDEFGH1234", Hints{})
	require.False(t, first.Escalate)
	assert.Equal(t, 1, sentimentCalls)

	// track_order priority 8 clears the floor of 5, so the response was
	// cached and the second identical utterance replays it verbatim.
	second := svc.ProcessMessage(ctx, "sess-2", "please track my order ABCDEFGH1234", Hints{})
	assert.Equal(t, 1, sentimentCalls, "pipeline must not run past the cache")
	assert.Equal(t, first.MessageID, second.MessageID, "cached payload replays byte for byte")
	assert.Equal(t, first.Response, second.Response)
}

func TestProcessMessage_LowPriorityIntentIsNotCached(t *testing.T) {
	svc := newTestService(Options{})

	sentimentCalls := 0
	svc.analyzeSentiment = func(normalized string) nlp.Sentiment {
		sentimentCalls++
		return nlp.AnalyzeSentiment(normalized)
	}

	ctx := context.Background()
	svc.ProcessMessage(ctx, "sess-1", "hello", Hints{})
	svc.ProcessMessage(ctx, "sess-2", "hello", Hints{})

	assert.Equal(t, 2, sentimentCalls, "greeting priority 1 stays below the cache floor")
}

func TestProcessMessage_EscalationsAreNeverCached(t *testing.T) {
	svc := newTestService(Options{})

	sentimentCalls := 0
	svc.analyzeSentiment = func(normalized string) nlp.Sentiment {
		sentimentCalls++
		return nlp.AnalyzeSentiment(normalized)
	}

	ctx := context.Background()
	utterance := "track my order, billing is terrible awful broken useless garbage"
	first := svc.ProcessMessage(ctx, "sess-1", utterance, Hints{})
	require.True(t, first.Escalate)

	svc.ProcessMessage(ctx, "sess-2", utterance, Hints{})
	assert.Equal(t, 2, sentimentCalls)
}

// ==========================
// Session Lifecycle Tests
// ==========================

func TestClearContext(t *testing.T) {
	svc := newTestService(Options{CachePriorityFloor: 100})
	ctx := context.Background()

	svc.ProcessMessage(ctx, "sess-1", "billing question", Hints{})
	svc.ProcessMessage(ctx, "sess-1", "about my billing", Hints{})

	assert.True(t, svc.ClearContext("sess-1"))
	assert.False(t, svc.ClearContext("sess-1"))

	// The conversation starts over: no repetition streak survives.
	result := svc.ProcessMessage(ctx, "sess-1", "billing again please", Hints{})
	assert.False(t, result.Escalate)
	assert.Equal(t, 1, result.Context.MessageCount)
}

func TestSessionContext(t *testing.T) {
	svc := newTestService(Options{})

	_, ok := svc.SessionContext("sess-1")
	assert.False(t, ok)

	svc.ProcessMessage(context.Background(), "sess-1", "hello", Hints{})
	snap, ok := svc.SessionContext("sess-1")
	require.True(t, ok)
	assert.Equal(t, "greeting", snap.CurrentIntent)
}

func TestStats(t *testing.T) {
	svc := newTestService(Options{})
	ctx := context.Background()

	svc.ProcessMessage(ctx, "sess-1", "hello", Hints{})
	svc.ProcessMessage(ctx, "sess-2", "please track my order ABCDEFGH1234", Hints{})

	stats := svc.Stats()
	assert.Equal(t, 2, stats.ActiveSessions)
	assert.Equal(t, 1, stats.CachedResponses, "only the high-priority response was cached")
	assert.Equal(t, "test-1", stats.CatalogVersion)
}

// ==========================
// Reload Tests
// ==========================

func TestReload(t *testing.T) {
	svc := newTestService(Options{})
	ctx := context.Background()

	assert.Error(t, svc.Reload(nil))

	replacement := &botconfig.Catalog{
		Version: "test-2",
		Intents: []botconfig.IntentDefinition{
			{
				Name:     "farewell",
				Active:   true,
				Priority: 1,
				Keywords: []string{"goodbye"},
				Responses: []botconfig.ResponseTemplate{
					{Language: "en", Text: "Goodbye!"},
				},
			},
		},
		Escalation: botconfig.DefaultEscalationRules(),
	}
	require.NoError(t, svc.Reload(replacement))

	result := svc.ProcessMessage(ctx, "sess-1", "goodbye", Hints{})
	assert.Equal(t, "farewell", result.Intent)
	assert.Equal(t, "Goodbye!", result.Response)

	// The old catalog's intents are gone.
	result = svc.ProcessMessage(ctx, "sess-2", "hello", Hints{})
	assert.Equal(t, "unknown", result.Intent)
	assert.Equal(t, "test-2", svc.Stats().CatalogVersion)
}
