// Package nlp contains the pure lexical analyzers of the pipeline:
// normalization, language detection, sentiment scoring and entity
// extraction. Everything here is deterministic and side-effect free.
package nlp

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Normalize trims the utterance, collapses internal whitespace runs to a
// single space and lower-cases the result.
func Normalize(utterance string) string {
	trimmed := strings.TrimSpace(utterance)
	collapsed := whitespaceRun.ReplaceAllString(trimmed, " ")
	return strings.ToLower(collapsed)
}
