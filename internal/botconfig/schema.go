package botconfig

// catalogSchema validates a catalog document before it is activated.
// Escalation thresholds are range-checked here so a bad reload can never
// put the evaluator into a nonsensical state.
const catalogSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["intents"],
  "properties": {
    "version": {"type": "string"},
    "intents": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "active": {"type": "boolean"},
          "priority": {"type": "integer", "minimum": 0, "maximum": 100},
          "keywords": {"type": "array", "items": {"type": "string"}},
          "phrases": {"type": "array", "items": {"type": "string"}},
          "responses": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["language", "text"],
              "properties": {
                "language": {"type": "string", "minLength": 2},
                "text": {"type": "string", "minLength": 1},
                "variants": {"type": "array", "items": {"type": "string"}}
              }
            }
          },
          "requiredEntities": {"type": "array", "items": {"type": "string"}},
          "actions": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["kind", "endpoint"],
              "properties": {
                "kind": {"type": "string"},
                "endpoint": {"type": "string", "minLength": 1},
                "params": {"type": "object", "additionalProperties": {"type": "string"}}
              }
            }
          }
        }
      }
    },
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string"},
          "required": {"type": "boolean"},
          "minLength": {"type": "integer", "minimum": 0},
          "maxLength": {"type": "integer", "minimum": 0}
        }
      }
    },
    "escalation": {
      "type": "object",
      "properties": {
        "sentimentThreshold": {"type": "number", "minimum": -1, "maximum": 0},
        "confidenceThreshold": {"type": "number", "minimum": 0, "maximum": 1},
        "maxRepeatedIntents": {"type": "integer", "minimum": 1},
        "maxConversationSeconds": {"type": "integer", "minimum": 1},
        "triggerPhrases": {"type": "array", "items": {"type": "string"}},
        "vipAutoEscalate": {"type": "boolean"},
        "businessHoursOnly": {"type": "boolean"}
      }
    }
  }
}`
