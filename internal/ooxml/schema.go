package ooxml

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// recipeSchema is the JSON Schema for a PatchRecipe document, per spec.md
// §6. Validated with santhosh-tekuri/jsonschema rather than hand-rolled
// field checks, the way cordum's core/infra/schema/validate.go validates
// its own document shapes.
const recipeSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["schema_version", "id", "created", "source_file", "version", "patches"],
  "properties": {
    "schema_version": {"type": "string"},
    "id": {"type": "string"},
    "created": {"type": "string"},
    "source_file": {"type": "string"},
    "version": {"type": "string"},
    "patches": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "part", "operation", "description"],
        "properties": {
          "id": {"type": "string"},
          "part": {"type": "string"},
          "operation": {"enum": ["delete_part", "literal_replace", "append_block", "set_part"]},
          "description": {"type": "string"},
          "match": {"type": "string"},
          "replacement": {"type": "string"},
          "occurrence": {"type": "integer"},
          "anchor": {"type": "string"},
          "block": {"type": "string"},
          "position": {"enum": ["before", "after"]},
          "content": {"type": "string"}
        },
        "allOf": [
          {
            "if": {"properties": {"operation": {"const": "literal_replace"}}, "required": ["operation"]},
            "then": {"required": ["match", "replacement"]}
          },
          {
            "if": {"properties": {"operation": {"const": "append_block"}}, "required": ["operation"]},
            "then": {"required": ["anchor", "block"]}
          },
          {
            "if": {"properties": {"operation": {"const": "set_part"}}, "required": ["operation"]},
            "then": {"required": ["content"]}
          }
        ]
      }
    }
  }
}`

func compiledRecipeSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	const resourceID = "inmemory://patch-recipe.schema.json"
	if err := compiler.AddResource(resourceID, bytes.NewReader([]byte(recipeSchema))); err != nil {
		return nil, fmt.Errorf("add recipe schema resource: %w", err)
	}
	compiled, err := compiler.Compile(resourceID)
	if err != nil {
		return nil, fmt.Errorf("compile recipe schema: %w", err)
	}
	return compiled, nil
}

// ParseRecipe decodes and validates a PatchRecipe document per spec.md §7:
// malformed JSON, schema violations, unknown operations, missing required
// fields, and occurrence=0 are all reported as a RecipeError before any
// byte of the archive is touched.
func ParseRecipe(data []byte) (*PatchRecipe, error) {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, &RecipeError{Kind: RecipeErrMalformedJSON, Msgs: []string{err.Error()}}
	}

	compiled, err := compiledRecipeSchema()
	if err != nil {
		return nil, err
	}
	if err := compiled.Validate(generic); err != nil {
		return nil, &RecipeError{Kind: RecipeErrSchema, Msgs: []string{err.Error()}}
	}

	var recipe PatchRecipe
	if err := json.Unmarshal(data, &recipe); err != nil {
		return nil, &RecipeError{Kind: RecipeErrMalformedJSON, Msgs: []string{err.Error()}}
	}

	var msgs []string
	for i, op := range recipe.Patches {
		switch op.Operation {
		case OpDeletePart, OpLiteralReplace, OpAppendBlock, OpSetPart:
		default:
			msgs = append(msgs, fmt.Sprintf("patches[%d]: unknown operation %q", i, op.Operation))
			continue
		}
		for _, f := range op.RequiredFields() {
			// An empty replacement deletes the match; it is not a missing field.
			if f[1] == "" && f[0] != "replacement" {
				msgs = append(msgs, fmt.Sprintf("patches[%d] (%s): missing required field %q", i, op.Operation, f[0]))
			}
		}
		if op.Operation == OpLiteralReplace && op.Occurrence == 0 {
			msgs = append(msgs, fmt.Sprintf("patches[%d]: occurrence must be >= 1, got 0", i))
		}
	}
	if len(msgs) > 0 {
		kind := RecipeErrMissingField
		for _, m := range msgs {
			if bytes.Contains([]byte(m), []byte("unknown operation")) {
				kind = RecipeErrUnknownOperation
				break
			}
		}
		for _, m := range msgs {
			if bytes.Contains([]byte(m), []byte("occurrence must be")) {
				kind = RecipeErrBadOccurrence
				break
			}
		}
		return nil, &RecipeError{Kind: kind, Msgs: msgs}
	}

	return &recipe, nil
}
