package analysisjson

import "github.com/santhosh-tekuri/jsonschema/v5"

const analysisSchema = `{
  "type": "object",
  "properties": {
    "summary": {"type": "string"},
    "language": {"type": "string"},
    "entities": {
      "type": "object",
      "properties": {
        "departments": {"$ref": "#/$defs/strings"},
        "dates": {"$ref": "#/$defs/strings"},
        "amounts": {"$ref": "#/$defs/strings"},
        "locations": {"$ref": "#/$defs/strings"},
        "people": {"$ref": "#/$defs/strings"},
        "regulations": {"$ref": "#/$defs/strings"}
      }
    },
    "classification": {
      "type": "object",
      "properties": {
        "category": {
          "enum": ["Safety", "Maintenance", "Operations", "Finance", "HR", "Compliance", "Technical", "Administrative", "General"]
        },
        "department": {"type": "string"},
        "priority": {"enum": ["low", "medium", "high", "critical"]},
        "tags": {"$ref": "#/$defs/strings"}
      }
    },
    "safety": {
      "type": "object",
      "properties": {
        "hasSafetyIssues": {"type": "boolean"},
        "safetyScore": {"type": "number"},
        "issues": {"$ref": "#/$defs/strings"},
        "recommendations": {"$ref": "#/$defs/strings"}
      }
    },
    "confidence": {"type": "number"}
  },
  "$defs": {
    "strings": {"type": "array", "items": {"type": "string"}}
  }
}`

var compiledSchema = jsonschema.MustCompileString("analysis.schema.json", analysisSchema)
