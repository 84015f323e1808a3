package escalation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"supportbot-engine/internal/botconfig"
	"supportbot-engine/internal/engine/intent"
	"supportbot-engine/internal/engine/nlp"
	"supportbot-engine/internal/engine/session"
)

func calmSentiment() nlp.Sentiment {
	return nlp.Sentiment{Score: 0, Label: "neutral"}
}

func confidentMatch(name string) intent.Match {
	return intent.Match{Intent: name, Confidence: 0.9}
}

// newContext returns a context that looks like an ordinary first message.
func newContext(now time.Time) *session.Context {
	ctx := &session.Context{SessionKey: "sess-1", StartedAt: now}
	ctx.RecordIntent("greeting", 0.9, now)
	return ctx
}

func TestEvaluate_NoEscalation(t *testing.T) {
	now := time.Now()
	rules := botconfig.DefaultEscalationRules()

	decision := Evaluate(calmSentiment(), confidentMatch("greeting"), newContext(now), "hello", rules, now)
	assert.False(t, decision.Escalate)
	assert.Empty(t, decision.Reason)
}

func TestEvaluate_ReasonPrecedence(t *testing.T) {
	rules := botconfig.DefaultEscalationRules()
	rules.TriggerPhrases = []string{"human agent"}
	rules.VIPAutoEscalate = true

	now := time.Now()

	// Build a context that would trip every behavioral check at once:
	// old conversation, three identical intents, VIP profile.
	everything := func() *session.Context {
		ctx := &session.Context{
			SessionKey: "sess-1",
			StartedAt:  now.Add(-20 * time.Minute),
			Profile:    session.UserProfile{Segment: VIPSegment},
		}
		for i := 0; i < 3; i++ {
			ctx.RecordIntent("billing_help", 0.9, now)
		}
		return ctx
	}

	tests := []struct {
		name       string
		sentiment  nlp.Sentiment
		match      intent.Match
		normalized string
		expected   Reason
	}{
		{
			name:       "negative sentiment wins over everything",
			sentiment:  nlp.Sentiment{Score: -0.8, Label: "negative"},
			match:      intent.Match{Intent: "billing_help", Confidence: 0.1},
			normalized: "get me a human agent",
			expected:   ReasonNegativeSentiment,
		},
		{
			name:       "low confidence beats repetition and the rest",
			sentiment:  calmSentiment(),
			match:      intent.Match{Intent: "billing_help", Confidence: 0.1},
			normalized: "get me a human agent",
			expected:   ReasonLowConfidence,
		},
		{
			name:       "repetition beats timeout",
			sentiment:  calmSentiment(),
			match:      confidentMatch("billing_help"),
			normalized: "get me a human agent",
			expected:   ReasonRepetition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Evaluate(tt.sentiment, tt.match, everything(), tt.normalized, rules, now)
			assert.True(t, decision.Escalate)
			assert.Equal(t, tt.expected, decision.Reason)
		})
	}
}

func TestEvaluate_SentimentThresholdIsInclusive(t *testing.T) {
	rules := botconfig.DefaultEscalationRules()
	now := time.Now()

	decision := Evaluate(nlp.Sentiment{Score: -0.6, Label: "negative"},
		confidentMatch("billing_help"), newContext(now), "billing", rules, now)
	assert.True(t, decision.Escalate)
	assert.Equal(t, ReasonNegativeSentiment, decision.Reason)

	decision = Evaluate(nlp.Sentiment{Score: -0.59, Label: "negative"},
		confidentMatch("billing_help"), newContext(now), "billing", rules, now)
	assert.False(t, decision.Escalate)
}

func TestEvaluate_Repetition(t *testing.T) {
	rules := botconfig.DefaultEscalationRules()
	now := time.Now()

	ctx := &session.Context{SessionKey: "sess-1", StartedAt: now}

	// First and second identical intents do not trip the check.
	ctx.RecordIntent("billing_help", 0.9, now)
	decision := Evaluate(calmSentiment(), confidentMatch("billing_help"), ctx, "billing", rules, now)
	assert.False(t, decision.Escalate, "first occurrence")

	ctx.RecordIntent("billing_help", 0.9, now)
	decision = Evaluate(calmSentiment(), confidentMatch("billing_help"), ctx, "billing", rules, now)
	assert.False(t, decision.Escalate, "second occurrence")

	// Third consecutive identical intent escalates.
	ctx.RecordIntent("billing_help", 0.9, now)
	decision = Evaluate(calmSentiment(), confidentMatch("billing_help"), ctx, "billing", rules, now)
	assert.True(t, decision.Escalate)
	assert.Equal(t, ReasonRepetition, decision.Reason)
}

func TestEvaluate_RepetitionResetByOtherIntent(t *testing.T) {
	rules := botconfig.DefaultEscalationRules()
	now := time.Now()

	ctx := &session.Context{SessionKey: "sess-1", StartedAt: now}
	ctx.RecordIntent("billing_help", 0.9, now)
	ctx.RecordIntent("billing_help", 0.9, now)
	ctx.RecordIntent("greeting", 0.9, now)
	ctx.RecordIntent("billing_help", 0.9, now)

	decision := Evaluate(calmSentiment(), confidentMatch("billing_help"), ctx, "billing", rules, now)
	assert.False(t, decision.Escalate, "streak was broken")
}

func TestEvaluate_Timeout(t *testing.T) {
	rules := botconfig.DefaultEscalationRules()
	now := time.Now()

	ctx := newContext(now.Add(-11 * time.Minute))
	decision := Evaluate(calmSentiment(), confidentMatch("greeting"), ctx, "hello", rules, now)
	assert.True(t, decision.Escalate)
	assert.Equal(t, ReasonTimeout, decision.Reason)

	// Exactly at the limit does not escalate; only past it.
	ctx = newContext(now.Add(-10 * time.Minute))
	decision = Evaluate(calmSentiment(), confidentMatch("greeting"), ctx, "hello", rules, now)
	assert.False(t, decision.Escalate)
}

func TestEvaluate_UserRequest(t *testing.T) {
	rules := botconfig.DefaultEscalationRules()
	rules.TriggerPhrases = []string{"human agent", "real person"}
	now := time.Now()

	decision := Evaluate(calmSentiment(), confidentMatch("greeting"), newContext(now),
		"i want to talk to a real person", rules, now)
	assert.True(t, decision.Escalate)
	assert.Equal(t, ReasonUserRequest, decision.Reason)
}

func TestEvaluate_VIPCustomer(t *testing.T) {
	rules := botconfig.DefaultEscalationRules()
	rules.VIPAutoEscalate = true
	now := time.Now()

	ctx := newContext(now)
	ctx.Profile.Segment = VIPSegment

	decision := Evaluate(calmSentiment(), confidentMatch("greeting"), ctx, "hello", rules, now)
	assert.True(t, decision.Escalate)
	assert.Equal(t, ReasonVIPCustomer, decision.Reason)

	// Without the flag, VIPs flow through the bot normally.
	rules.VIPAutoEscalate = false
	decision = Evaluate(calmSentiment(), confidentMatch("greeting"), ctx, "hello", rules, now)
	assert.False(t, decision.Escalate)
}

func TestMessage(t *testing.T) {
	for _, reason := range []Reason{
		ReasonNegativeSentiment, ReasonLowConfidence, ReasonRepetition,
		ReasonTimeout, ReasonUserRequest, ReasonVIPCustomer, ReasonTechnicalIssue,
	} {
		assert.NotEmpty(t, Message(reason), string(reason))
	}

	assert.Equal(t, Message(ReasonTechnicalIssue), Message(Reason("bogus")))
}
