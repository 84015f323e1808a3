// Package response renders the bot's reply from the winning intent's
// localized templates.
package response

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"supportbot-engine/internal/botconfig"
)

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z][a-zA-Z0-9_]*)\}`)

// Rand is the injected randomness source for variant selection.
// *math/rand.Rand satisfies it; tests supply a deterministic stub.
type Rand interface {
	Intn(n int) int
}

// Generator renders response text and quick replies. It has no mutable
// state beyond the randomness source.
type Generator struct {
	rng Rand
}

func NewGenerator(rng Rand) *Generator {
	return &Generator{rng: rng}
}

// fallbackText is used when an intent carries no usable template, e.g. an
// unknown intent that slipped past a lowered confidence threshold.
const fallbackText = "I'm not sure I understood that. Could you rephrase, or would you like to talk to a human agent?"

// quickReplies maps intents to suggested reply labels. Fixed lookup,
// intentionally not configuration-driven.
var quickReplies = map[string][]string{
	"greeting":       {"Track my order", "Billing question", "Talk to an agent"},
	"track_order":    {"Where is my package?", "Change delivery address", "Talk to an agent"},
	"billing_help":   {"View my invoice", "Dispute a charge", "Talk to an agent"},
	"cancel_order":   {"Cancel and refund", "Keep my order", "Talk to an agent"},
	"refund_request": {"Refund status", "Return an item", "Talk to an agent"},
	"product_info":   {"Compare products", "Check availability", "Talk to an agent"},
}

// Generate picks the template for the detected language (falling back to
// "en", then to the first declared), selects a variant uniformly at random
// when variants exist, and substitutes {entityName} placeholders from the
// entity mapping. Unmatched placeholders stay verbatim; that is accepted
// behavior, not an error.
func (g *Generator) Generate(
	templates []botconfig.ResponseTemplate,
	intentName string,
	language string,
	entities map[string]interface{},
) (string, []string) {
	tmpl := pickTemplate(templates, language)
	if tmpl == nil {
		return fallbackText, quickReplies[intentName]
	}

	text := tmpl.Text
	if len(tmpl.Variants) > 0 && g.rng != nil {
		// The primary text is choice 0; variants follow.
		if idx := g.rng.Intn(len(tmpl.Variants) + 1); idx > 0 {
			text = tmpl.Variants[idx-1]
		}
	}

	return substitutePlaceholders(text, entities), quickReplies[intentName]
}

func pickTemplate(templates []botconfig.ResponseTemplate, language string) *botconfig.ResponseTemplate {
	for i := range templates {
		if templates[i].Language == language {
			return &templates[i]
		}
	}
	for i := range templates {
		if templates[i].Language == "en" {
			return &templates[i]
		}
	}
	if len(templates) > 0 {
		return &templates[0]
	}
	return nil
}

func substitutePlaceholders(text string, entities map[string]interface{}) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(token string) string {
		name := token[1 : len(token)-1]
		value, ok := entities[name]
		if !ok {
			return token
		}
		return formatEntity(value)
	})
}

func formatEntity(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case []string:
		return strings.Join(v, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}
