package botconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	commonerrors "supportbot-engine/internal/common/errors"
)

// Load reads and validates a catalog document from disk.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse validates raw JSON against the catalog schema and decodes it.
// Missing escalation thresholds fall back to the documented defaults.
func Parse(data []byte) (*Catalog, error) {
	schemaLoader := gojsonschema.NewStringLoader(catalogSchema)
	docLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, commonerrors.NewCatalogValidationFailedError(err.Error())
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, commonerrors.NewCatalogValidationFailedError(strings.Join(msgs, "; "))
	}

	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	applyRuleDefaults(&cat.Escalation)

	return &cat, nil
}

func applyRuleDefaults(rules *EscalationRuleSet) {
	defaults := DefaultEscalationRules()
	if rules.SentimentThreshold == 0 {
		rules.SentimentThreshold = defaults.SentimentThreshold
	}
	if rules.ConfidenceThreshold == 0 {
		rules.ConfidenceThreshold = defaults.ConfidenceThreshold
	}
	if rules.MaxRepeatedIntents == 0 {
		rules.MaxRepeatedIntents = defaults.MaxRepeatedIntents
	}
	if rules.MaxConversationSeconds == 0 {
		rules.MaxConversationSeconds = defaults.MaxConversationSeconds
	}
}
