// Package escalation decides when a conversation leaves the bot and goes
// to a human agent.
package escalation

import (
	"strings"
	"time"

	"supportbot-engine/internal/botconfig"
	"supportbot-engine/internal/engine/intent"
	"supportbot-engine/internal/engine/nlp"
	"supportbot-engine/internal/engine/session"
)

// Reason identifies why a conversation escalated.
type Reason string

const (
	ReasonNegativeSentiment Reason = "negative_sentiment"
	ReasonLowConfidence     Reason = "low_confidence"
	ReasonRepetition        Reason = "repetition"
	ReasonTimeout           Reason = "timeout"
	ReasonUserRequest       Reason = "user_request"
	ReasonVIPCustomer       Reason = "vip_customer"
	ReasonTechnicalIssue    Reason = "technical_issue"
)

// VIPSegment is the profile segment that triggers vip_customer escalation.
const VIPSegment = "vip"

// Decision is the evaluator's verdict for one message.
type Decision struct {
	Escalate bool
	Reason   Reason
}

var handoffMessages = map[Reason]string{
	ReasonNegativeSentiment: "I understand this has been frustrating. Let me connect you with one of our support specialists right away.",
	ReasonLowConfidence:     "I want to make sure you get the right help. I'm connecting you with a member of our team.",
	ReasonRepetition:        "It looks like we're going in circles. Let me bring in a human agent who can sort this out.",
	ReasonTimeout:           "We've been at this for a while. I'm handing you over to a support specialist to get this resolved.",
	ReasonUserRequest:       "Of course. I'm connecting you with a human agent now.",
	ReasonVIPCustomer:       "Connecting you with your dedicated support specialist now.",
	ReasonTechnicalIssue:    "Something went wrong on our side. I'm connecting you with a support specialist who can help.",
}

// Message returns the fixed handoff text for a reason.
func Message(reason Reason) string {
	if msg, ok := handoffMessages[reason]; ok {
		return msg
	}
	return handoffMessages[ReasonTechnicalIssue]
}

// Evaluate applies the escalation checks in fixed order, short-circuiting
// on the first that fires. The order is policy: emotional and confidence
// signals are checked before behavioral ones, and must stay that way for
// reproducibility.
func Evaluate(
	sentiment nlp.Sentiment,
	match intent.Match,
	ctx *session.Context,
	normalized string,
	rules botconfig.EscalationRuleSet,
	now time.Time,
) Decision {
	// The threshold itself escalates: a message scoring exactly the
	// configured limit is already at the tolerance boundary.
	if sentiment.Score <= rules.SentimentThreshold {
		return Decision{Escalate: true, Reason: ReasonNegativeSentiment}
	}

	if match.Confidence < rules.ConfidenceThreshold {
		return Decision{Escalate: true, Reason: ReasonLowConfidence}
	}

	if isRepetition(ctx, match.Intent, rules.MaxRepeatedIntents) {
		return Decision{Escalate: true, Reason: ReasonRepetition}
	}

	if rules.MaxConversationSeconds > 0 &&
		now.Sub(ctx.StartedAt) > time.Duration(rules.MaxConversationSeconds)*time.Second {
		return Decision{Escalate: true, Reason: ReasonTimeout}
	}

	for _, phrase := range rules.TriggerPhrases {
		if phrase != "" && strings.Contains(normalized, phrase) {
			return Decision{Escalate: true, Reason: ReasonUserRequest}
		}
	}

	if rules.VIPAutoEscalate && ctx.Profile.Segment == VIPSegment {
		return Decision{Escalate: true, Reason: ReasonVIPCustomer}
	}

	return Decision{}
}

// isRepetition fires when the most recent maxRepeats log entries all match
// the current intent. The current message has already been recorded, so
// the third consecutive identical intent is the one that trips this.
func isRepetition(ctx *session.Context, current string, maxRepeats int) bool {
	if maxRepeats <= 0 {
		return false
	}
	recent := ctx.RecentIntents(maxRepeats)
	if len(recent) < maxRepeats {
		return false
	}
	for _, entry := range recent {
		if entry.Intent != current {
			return false
		}
	}
	return true
}
