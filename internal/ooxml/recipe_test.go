package ooxml

import (
	"encoding/json"
	"testing"
)

func TestBuildRecipeRule1CalcChainDrop(t *testing.T) {
	parts := baseParts()
	parts["xl/calcChain.xml"] = `<?xml version="1.0"?><calcChain><c r="A1" i="7"/></calcChain>`
	m, _ := Scan(buildXLSX(t, parts))
	gate := RunGateChecks("candidate.xlsx", m)

	recipe := BuildRecipe("candidate.xlsx", &gate, nil, nil, nil)
	if len(recipe.Patches) != 1 {
		t.Fatalf("got %d patches, want 1: %+v", len(recipe.Patches), recipe.Patches)
	}
	op := recipe.Patches[0]
	if op.Operation != OpDeletePart || op.Part != "xl/calcChain.xml" {
		t.Fatalf("unexpected op: %+v", op)
	}
}

func TestBuildRecipeRule2DxfsCountFix(t *testing.T) {
	parts := baseParts()
	parts["xl/styles.xml"] = `<?xml version="1.0"?><styleSheet><dxfs count="3">` +
		`<dxf/><dxf/><dxf/><dxf/></dxfs></styleSheet>`
	m, _ := Scan(buildXLSX(t, parts))
	gate := RunGateChecks("candidate.xlsx", m)

	recipe := BuildRecipe("candidate.xlsx", &gate, nil, nil, nil)
	if len(recipe.Patches) != 1 {
		t.Fatalf("got %d patches, want 1: %+v", len(recipe.Patches), recipe.Patches)
	}
	op := recipe.Patches[0]
	if op.Operation != OpLiteralReplace || op.Match != `count="3"` || op.Replacement != `count="4"` {
		t.Fatalf("unexpected op: %+v", op)
	}
}

func TestBuildRecipeDedupesByPartOperationMatch(t *testing.T) {
	b := &recipeBuilder{}
	b.add(PatchOp{Part: "xl/styles.xml", Operation: OpLiteralReplace, Match: "x"})
	b.add(PatchOp{Part: "xl/styles.xml", Operation: OpLiteralReplace, Match: "x"})
	if len(b.patches) != 1 {
		t.Fatalf("expected de-duplication, got %d patches", len(b.patches))
	}
}

func TestPatchOpJSONRoundTripPreservesUnknownFields(t *testing.T) {
	doc := []byte(`{"id":"a","part":"xl/styles.xml","operation":"literal_replace",` +
		`"description":"d","match":"m","replacement":"r","occurrence":1,"custom_field":"keepme"}`)
	var op PatchOp
	if err := json.Unmarshal(doc, &op); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(op)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var roundTripped map[string]any
	if err := json.Unmarshal(out, &roundTripped); err != nil {
		t.Fatalf("unmarshal roundtrip: %v", err)
	}
	if roundTripped["custom_field"] != "keepme" {
		t.Fatalf("unknown field not preserved: %v", roundTripped)
	}
	if _, present := roundTripped["anchor"]; present {
		t.Fatalf("literal_replace op must not emit append_block-only fields: %v", roundTripped)
	}
}

func TestPatchOpOccurrenceDefaultsToOne(t *testing.T) {
	var op PatchOp
	doc := []byte(`{"id":"a","part":"p","operation":"literal_replace","description":"d","match":"m","replacement":"r"}`)
	if err := json.Unmarshal(doc, &op); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if op.Occurrence != 1 {
		t.Fatalf("expected default occurrence 1, got %d", op.Occurrence)
	}
}
