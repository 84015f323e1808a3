package nlp

import (
	"regexp"
	"strconv"
	"strings"
)

// Entity extraction runs against the original-case utterance because case
// carries signal: order codes are uppercase and product mentions are
// capitalized. Patterns are independent and non-exclusive; one message can
// yield several entity kinds at once. Only shape is checked here; the
// catalog's entity rules are advisory metadata for callers, not enforced.
var (
	orderCodePattern = regexp.MustCompile(`\b[A-Z0-9]{10,15}\b`)
	emailPattern     = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern     = regexp.MustCompile(`\+?\d{1,3}[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	amountPattern    = regexp.MustCompile(`(?i)(?:\$\s?(\d+(?:\.\d{1,2})?))|(?:(\d+(?:\.\d{1,2})?)\s?(?:dollars|usd|eur|euros))`)
	productPattern   = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+\b`)
	numberPattern    = regexp.MustCompile(`\b\d+\b`)
)

// ExtractEntities runs the fixed ordered pattern battery and returns the
// entity mapping. Numbers and amounts are stored as float64 so values
// survive a JSON round trip unchanged.
func ExtractEntities(utterance string) map[string]interface{} {
	entities := make(map[string]interface{})

	if code := findOrderCode(utterance); code != "" {
		entities["orderId"] = code
	}

	if email := emailPattern.FindString(utterance); email != "" {
		entities["email"] = email
	}

	if phone := phonePattern.FindString(utterance); phone != "" {
		entities["phone"] = phone
	}

	if m := amountPattern.FindStringSubmatch(utterance); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			entities["amount"] = v
		}
	}

	if products := productPattern.FindAllString(utterance, -1); len(products) > 0 {
		if len(products) == 1 {
			entities["product"] = products[0]
		} else {
			entities["product"] = products
		}
	}

	if num := numberPattern.FindString(utterance); num != "" {
		if v, err := strconv.ParseFloat(num, 64); err == nil {
			entities["number"] = v
		}
	}

	return entities
}

// findOrderCode requires at least one letter so a bare digit run (a phone
// fragment, a quantity) is not mistaken for an order code. RE2 has no
// lookahead, so the letter check happens after the match.
func findOrderCode(utterance string) string {
	for _, candidate := range orderCodePattern.FindAllString(utterance, -1) {
		if strings.IndexFunc(candidate, func(r rune) bool { return r >= 'A' && r <= 'Z' }) >= 0 {
			return candidate
		}
	}
	return ""
}
