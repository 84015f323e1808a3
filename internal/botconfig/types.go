// Package botconfig holds the reloadable chatbot catalog: intent
// definitions, escalation rules, and entity validation metadata. The
// catalog is read-only to the engine; replacing it wholesale via
// Service.Reload is the only supported mutation.
package botconfig

// IntentDefinition describes one named user goal with its trigger
// vocabulary, responses and side effects. Immutable at runtime.
type IntentDefinition struct {
	Name             string             `json:"name"`
	Active           bool               `json:"active"`
	Priority         int                `json:"priority"`
	Keywords         []string           `json:"keywords"`
	Phrases          []string           `json:"phrases"`
	Responses        []ResponseTemplate `json:"responses"`
	RequiredEntities []string           `json:"requiredEntities,omitempty"`
	Actions          []ActionSpec       `json:"actions,omitempty"`
}

// RelevanceWeight is the classifier multiplier derived from priority.
func (d IntentDefinition) RelevanceWeight() float64 {
	return 1 + float64(d.Priority)/10
}

// ResponseTemplate is one localized response. Variants, when present, are
// alternatives to Text chosen uniformly at random.
type ResponseTemplate struct {
	Language string   `json:"language"`
	Text     string   `json:"text"`
	Variants []string `json:"variants,omitempty"`
}

// ActionSpec describes a side-effecting operation attached to an intent.
// Params values may contain {placeholder} tokens resolved from extracted
// entities at dispatch time.
type ActionSpec struct {
	Kind     string            `json:"kind"`
	Endpoint string            `json:"endpoint"`
	Params   map[string]string `json:"params,omitempty"`
}

// EntityRule is advisory validation metadata for an extracted entity kind.
// The extractor does not enforce it; callers building intents may.
type EntityRule struct {
	Name      string `json:"name"`
	Required  bool   `json:"required"`
	MinLength int    `json:"minLength,omitempty"`
	MaxLength int    `json:"maxLength,omitempty"`
}

// EscalationRuleSet carries the escalation policy thresholds.
// BusinessHoursOnly is declared but not evaluated by the engine; callers
// that care about business hours gate escalations themselves.
type EscalationRuleSet struct {
	SentimentThreshold     float64  `json:"sentimentThreshold"`
	ConfidenceThreshold    float64  `json:"confidenceThreshold"`
	MaxRepeatedIntents     int      `json:"maxRepeatedIntents"`
	MaxConversationSeconds int      `json:"maxConversationSeconds"`
	TriggerPhrases         []string `json:"triggerPhrases,omitempty"`
	VIPAutoEscalate        bool     `json:"vipAutoEscalate"`
	BusinessHoursOnly      bool     `json:"businessHoursOnly"`
}

// DefaultEscalationRules returns the documented default thresholds.
func DefaultEscalationRules() EscalationRuleSet {
	return EscalationRuleSet{
		SentimentThreshold:     -0.6,
		ConfidenceThreshold:    0.7,
		MaxRepeatedIntents:     3,
		MaxConversationSeconds: 600,
	}
}

// Catalog is one complete configuration snapshot.
type Catalog struct {
	Version    string             `json:"version"`
	Intents    []IntentDefinition `json:"intents"`
	Entities   []EntityRule       `json:"entities,omitempty"`
	Escalation EscalationRuleSet  `json:"escalation"`
}

// ActiveIntents returns the intents flagged active, in declaration order.
// Declaration order matters: classifier ties break toward earlier intents.
func (c *Catalog) ActiveIntents() []IntentDefinition {
	active := make([]IntentDefinition, 0, len(c.Intents))
	for _, in := range c.Intents {
		if in.Active {
			active = append(active, in)
		}
	}
	return active
}
