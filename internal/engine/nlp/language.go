package nlp

import "regexp"

// DefaultLanguage is returned when no marker pattern matches.
const DefaultLanguage = "en"

type languageMarker struct {
	code    string
	pattern *regexp.Regexp
}

// languageMarkers is evaluated in order and the first match wins. Script
// membership is checked before Latin function words so that, e.g., a
// Spanish loanword inside an Arabic sentence cannot shadow the script
// signal. Order is part of the engine contract; do not sort or dedupe.
var languageMarkers = []languageMarker{
	{"zh", regexp.MustCompile(`\p{Han}`)},
	{"ja", regexp.MustCompile(`[\p{Hiragana}\p{Katakana}]`)},
	{"ko", regexp.MustCompile(`\p{Hangul}`)},
	{"ar", regexp.MustCompile(`\p{Arabic}`)},
	{"ru", regexp.MustCompile(`\p{Cyrillic}`)},
	{"es", regexp.MustCompile(`(?i)\b(hola|gracias|ayuda|necesito|pedido|dónde|donde está|por favor|cuánto)\b`)},
	{"fr", regexp.MustCompile(`(?i)\b(bonjour|merci|aide|besoin|commande|où est|s'il vous plaît|combien)\b`)},
	{"de", regexp.MustCompile(`(?i)\b(hallo|danke|hilfe|brauche|bestellung|wo ist|bitte|wieviel)\b`)},
	{"pt", regexp.MustCompile(`(?i)\b(olá|obrigado|obrigada|ajuda|preciso|pedido|onde está)\b`)},
}

// DetectLanguage tests the raw utterance against the fixed ordered marker
// list and returns the first matching language code, defaulting to "en".
// It never fails: every utterance maps to some language.
func DetectLanguage(utterance string) string {
	for _, m := range languageMarkers {
		if m.pattern.MatchString(utterance) {
			return m.code
		}
	}
	return DefaultLanguage
}
