package plan

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// planSchema constrains plan documents before they are decoded: every image
// needs a name and exactly one of base / image_ref.
const planSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "images"],
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "images": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "base": {"type": "string", "minLength": 1},
          "image_ref": {"type": "string", "minLength": 1},
          "configuration": {"type": "string"},
          "target_groups": {
            "type": "array",
            "items": {"type": "string", "minLength": 1}
          }
        },
        "oneOf": [
          {"required": ["base"]},
          {"required": ["image_ref"]}
        ]
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(planSchema))
		if err != nil {
			schemaErr = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("plan.schema.json", doc); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile("plan.schema.json")
	})
	return schema, schemaErr
}

func validate(doc any) error {
	sch, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compiling plan schema: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("invalid plan: %w", err)
	}
	return nil
}
