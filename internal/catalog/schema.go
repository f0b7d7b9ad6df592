package catalog

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const courseSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "title", "modules"],
  "properties": {
    "id": {"type": "string", "pattern": "^[a-z0-9][a-z0-9-]*$"},
    "slug": {"type": "string"},
    "title": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "premium": {"type": "boolean"},
    "language": {"type": "string", "enum": ["bn", "en"]},
    "modules": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "title", "chapters"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "title": {"type": "string", "minLength": 1},
          "order": {"type": "integer"},
          "chapters": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "required": ["id", "title"],
              "properties": {
                "id": {"type": "string", "minLength": 1},
                "title": {"type": "string", "minLength": 1},
                "order": {"type": "integer"},
                "learning_points": {
                  "type": "array",
                  "items": {
                    "type": "object",
                    "required": ["id", "title"],
                    "properties": {
                      "id": {"type": "string", "minLength": 1},
                      "title": {"type": "string", "minLength": 1},
                      "body": {"type": "string"}
                    }
                  }
                }
              }
            }
          },
          "practice": {
            "type": "object",
            "properties": {"questions": {"$ref": "#/definitions/questions"}}
          },
          "quiz": {
            "type": "object",
            "required": ["questions"],
            "properties": {
              "pass_percent": {"type": "integer", "minimum": 1, "maximum": 100},
              "max_attempts": {"type": "integer", "minimum": 1},
              "questions": {"$ref": "#/definitions/questions"}
            }
          }
        }
      }
    }
  },
  "definitions": {
    "questions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "prompt", "options", "answer"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "prompt": {"type": "string", "minLength": 1},
          "options": {"type": "array", "minItems": 2, "items": {"type": "string"}},
          "answer": {"type": "integer", "minimum": 0},
          "points": {"type": "integer", "minimum": 1}
        }
      }
    }
  }
}`

var courseSchema = mustCompileSchema(courseSchemaJSON)

func mustCompileSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("catalog: invalid course schema: %v", err))
	}
	return s
}

// ValidateDocument checks a decoded course document against the course JSON Schema.
func ValidateDocument(doc any) error {
	res, err := courseSchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validating course document: %w", err)
	}
	if res.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("course document invalid: %s", strings.Join(msgs, "; "))
}
