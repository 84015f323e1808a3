package action

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var paramPlaceholder = regexp.MustCompile(`\{([a-zA-Z][a-zA-Z0-9_]*)\}`)

func resolveValue(value string, entities map[string]interface{}) string {
	// A value that is exactly one placeholder resolves to "" when the
	// entity is absent, so handlers can tell "not extracted" apart from
	// a literal param.
	if m := paramPlaceholder.FindStringSubmatch(value); m != nil && m[0] == value {
		if ev, ok := entities[m[1]]; ok {
			return formatParam(ev)
		}
		return ""
	}

	return paramPlaceholder.ReplaceAllStringFunc(value, func(token string) string {
		name := token[1 : len(token)-1]
		if ev, ok := entities[name]; ok {
			return formatParam(ev)
		}
		return token
	})
}

func formatParam(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case []string:
		return strings.Join(v, ",")
	default:
		return fmt.Sprintf("%v", v)
	}
}
