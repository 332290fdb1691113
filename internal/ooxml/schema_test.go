package ooxml

import "testing"

func validRecipeJSON() []byte {
	return []byte(`{
  "schema_version": "1.0",
  "id": "5c7e6f3e-1111-4a2b-9c3d-000000000001",
  "created": "2026-01-01T00:00:00Z",
  "source_file": "candidate.xlsx",
  "version": "1",
  "patches": [
    {"id":"5c7e6f3e-1111-4a2b-9c3d-000000000002","part":"xl/calcChain.xml","operation":"delete_part","description":"drop it"}
  ]
}`)
}

func TestParseRecipeAcceptsValidDocument(t *testing.T) {
	recipe, err := ParseRecipe(validRecipeJSON())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recipe.Patches) != 1 || recipe.Patches[0].Operation != OpDeletePart {
		t.Fatalf("unexpected recipe: %+v", recipe)
	}
}

func TestParseRecipeRejectsMalformedJSON(t *testing.T) {
	_, err := ParseRecipe([]byte(`{not json`))
	if err == nil {
		t.Fatalf("expected error")
	}
	re, ok := err.(*RecipeError)
	if !ok || re.Kind != RecipeErrMalformedJSON {
		t.Fatalf("expected RecipeError(MalformedJSON), got %v", err)
	}
}

func TestParseRecipeRejectsUnknownOperation(t *testing.T) {
	doc := []byte(`{"schema_version":"1.0","id":"i","created":"2026-01-01T00:00:00Z",` +
		`"source_file":"c.xlsx","version":"1","patches":[` +
		`{"id":"p1","part":"x","operation":"teleport_part","description":"d"}]}`)
	_, err := ParseRecipe(doc)
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseRecipeRejectsOccurrenceZero(t *testing.T) {
	doc := []byte(`{"schema_version":"1.0","id":"i","created":"2026-01-01T00:00:00Z",` +
		`"source_file":"c.xlsx","version":"1","patches":[` +
		`{"id":"p1","part":"x","operation":"literal_replace","description":"d","match":"m","replacement":"r","occurrence":0}]}`)
	_, err := ParseRecipe(doc)
	if err == nil {
		t.Fatalf("expected error")
	}
	re, ok := err.(*RecipeError)
	if !ok || re.Kind != RecipeErrBadOccurrence {
		t.Fatalf("expected RecipeError(BadOccurrence), got %v", err)
	}
}

func TestParseRecipeRejectsMissingRequiredField(t *testing.T) {
	doc := []byte(`{"schema_version":"1.0","id":"i","created":"2026-01-01T00:00:00Z",` +
		`"source_file":"c.xlsx","version":"1","patches":[` +
		`{"id":"p1","part":"x","operation":"literal_replace","description":"d","match":"m"}]}`)
	_, err := ParseRecipe(doc)
	if err == nil {
		t.Fatalf("expected error for missing replacement field")
	}
}
