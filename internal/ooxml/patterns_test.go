package ooxml

import "testing"

func TestClassifyDetectsCalcChainDrop(t *testing.T) {
	candidateParts := baseParts()
	candidateParts["xl/calcChain.xml"] = `<?xml version="1.0"?><calcChain><c r="A1" i="1"/></calcChain>`
	candidate, _ := Scan(buildXLSX(t, candidateParts))
	repaired, _ := Scan(buildXLSX(t, baseParts()))

	patterns := Classify(Diff(candidate, repaired))
	if !hasPattern(patterns, PatternCalcChainDrop) {
		t.Fatalf("expected CALCCHAIN_DROP, got %v", patterns)
	}
}

func TestClassifyDetectsDxfsInsertion(t *testing.T) {
	candidateParts := baseParts()
	candidate, _ := Scan(buildXLSX(t, candidateParts))

	repairedParts := baseParts()
	repairedParts["xl/styles.xml"] = `<?xml version="1.0"?><styleSheet><dxfs count="1"><dxf/></dxfs></styleSheet>`
	repaired, _ := Scan(buildXLSX(t, repairedParts))

	patterns := Classify(Diff(candidate, repaired))
	if !hasPattern(patterns, PatternDxfsInsertion) {
		t.Fatalf("expected DXFS_INSERTION, got %v", patterns)
	}
}

func TestClassifyDetectsRelsCleanupOnNetDecrease(t *testing.T) {
	candidateParts := baseParts()
	candidateParts["xl/_rels/workbook.xml.rels"] = `<?xml version="1.0"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://officedoc/worksheet" Target="worksheets/sheet1.xml"/>` +
		`<Relationship Id="rId2" Type="http://officedoc/theme" Target="theme/theme1.xml"/></Relationships>`
	candidate, _ := Scan(buildXLSX(t, candidateParts))
	repaired, _ := Scan(buildXLSX(t, baseParts()))

	patterns := Classify(Diff(candidate, repaired))
	if !hasPattern(patterns, PatternRelsCleanup) {
		t.Fatalf("expected RELS_CLEANUP, got %v", patterns)
	}
}

func TestClassifyDetectsSharedStringsRebuild(t *testing.T) {
	candidateParts := baseParts()
	candidateParts["xl/sharedStrings.xml"] = `<?xml version="1.0"?><sst count="2" uniqueCount="2">` +
		`<si><t>Hello</t></si><si><t>World</t></si></sst>`
	candidate, _ := Scan(buildXLSX(t, candidateParts))

	repairedParts := baseParts()
	repairedParts["xl/sharedStrings.xml"] = `<?xml version="1.0"?><sst count="1" uniqueCount="1"><si><t>Hello</t></si></sst>`
	repaired, _ := Scan(buildXLSX(t, repairedParts))

	patterns := Classify(Diff(candidate, repaired))
	if !hasPattern(patterns, PatternSharedStringsRebuild) {
		t.Fatalf("expected SHAREDSTRINGS_REBUILD, got %v", patterns)
	}
}

func TestClassifyIgnoresSharedStringsTextOnlyChange(t *testing.T) {
	candidateParts := baseParts()
	candidateParts["xl/sharedStrings.xml"] = `<?xml version="1.0"?><sst count="1" uniqueCount="1"><si><t>Hello</t></si></sst>`
	candidate, _ := Scan(buildXLSX(t, candidateParts))

	repairedParts := baseParts()
	repairedParts["xl/sharedStrings.xml"] = `<?xml version="1.0"?><sst count="1" uniqueCount="1"><si><t>Hello Fixed</t></si></sst>`
	repaired, _ := Scan(buildXLSX(t, repairedParts))

	patterns := Classify(Diff(candidate, repaired))
	if hasPattern(patterns, PatternSharedStringsRebuild) {
		t.Fatalf("did not expect SHAREDSTRINGS_REBUILD when count/uniqueCount are unchanged, got %v", patterns)
	}
}

func TestClassifyDetectsTableStyleNormAtLowConfidence(t *testing.T) {
	candidateParts := baseParts()
	candidateParts["xl/tables/table1.xml"] = `<?xml version="1.0"?><table><tableStyleInfo name="CustomStyle"/>` +
		`<tableColumns><tableColumn id="1" name="Revenue"/></tableColumns></table>`
	candidate, _ := Scan(buildXLSX(t, candidateParts))

	repairedParts := baseParts()
	repairedParts["xl/tables/table1.xml"] = `<?xml version="1.0"?><table><tableStyleInfo name="TableStyleMedium2"/>` +
		`<tableColumns><tableColumn id="1" name="Revenue"/></tableColumns></table>`
	repaired, _ := Scan(buildXLSX(t, repairedParts))

	patterns := Classify(Diff(candidate, repaired))
	var found *Pattern
	for i := range patterns {
		if patterns[i].Name == PatternTableStyleNorm {
			found = &patterns[i]
		}
	}
	if found == nil {
		t.Fatalf("expected TABLE_STYLE_NORM, got %v", patterns)
	}
	if found.Confidence != ConfidenceLow {
		t.Fatalf("expected TABLE_STYLE_NORM at LOW confidence (original_source's table_style_norm check is a cosmetic signal, not a structural one), got %s", found.Confidence)
	}
}

func TestClassifyIgnoresTableStyleNormWhenColumnNameAlsoChanged(t *testing.T) {
	candidateParts := baseParts()
	candidateParts["xl/tables/table1.xml"] = `<?xml version="1.0"?><table><tableStyleInfo name="CustomStyle"/>` +
		`<tableColumns><tableColumn id="1" name="Revenue&#10;2024"/></tableColumns></table>`
	candidate, _ := Scan(buildXLSX(t, candidateParts))

	repairedParts := baseParts()
	repairedParts["xl/tables/table1.xml"] = `<?xml version="1.0"?><table><tableStyleInfo name="TableStyleMedium2"/>` +
		`<tableColumns><tableColumn id="1" name="Revenue2024"/></tableColumns></table>`
	repaired, _ := Scan(buildXLSX(t, repairedParts))

	patterns := Classify(Diff(candidate, repaired))
	if hasPattern(patterns, PatternTableStyleNorm) {
		t.Fatalf("did not expect TABLE_STYLE_NORM when the delta isn't confined to tableStyleInfo, got %v", patterns)
	}
}

func TestClassifyDetectsSharedRefTrim(t *testing.T) {
	candidateParts := baseParts()
	candidateParts["xl/worksheets/sheet1.xml"] = `<?xml version="1.0"?><worksheet><sheetData>` +
		`<row r="1"><c r="A1"><f t="shared" si="0" ref="A1:A5">1+1</f><v>2</v></c></row>` +
		`</sheetData></worksheet>`
	candidate, _ := Scan(buildXLSX(t, candidateParts))

	repairedParts := baseParts()
	repairedParts["xl/worksheets/sheet1.xml"] = `<?xml version="1.0"?><worksheet><sheetData>` +
		`<row r="1"><c r="A1"><f t="shared" si="0" ref="A1:A1">1+1</f><v>2</v></c></row>` +
		`</sheetData></worksheet>`
	repaired, _ := Scan(buildXLSX(t, repairedParts))

	patterns := Classify(Diff(candidate, repaired))
	if !hasPattern(patterns, PatternSharedRefTrim) {
		t.Fatalf("expected SHARED_REF_TRIM, got %v", patterns)
	}
}

func TestClassifyIgnoresGrowingSharedRef(t *testing.T) {
	candidateParts := baseParts()
	candidateParts["xl/worksheets/sheet1.xml"] = `<?xml version="1.0"?><worksheet><sheetData>` +
		`<row r="1"><c r="A1"><f t="shared" si="0" ref="A1:A1">1+1</f><v>2</v></c></row>` +
		`</sheetData></worksheet>`
	candidate, _ := Scan(buildXLSX(t, candidateParts))

	repairedParts := baseParts()
	repairedParts["xl/worksheets/sheet1.xml"] = `<?xml version="1.0"?><worksheet><sheetData>` +
		`<row r="1"><c r="A1"><f t="shared" si="0" ref="A1:A5">1+1</f><v>2</v></c></row>` +
		`</sheetData></worksheet>`
	repaired, _ := Scan(buildXLSX(t, repairedParts))

	patterns := Classify(Diff(candidate, repaired))
	if hasPattern(patterns, PatternSharedRefTrim) {
		t.Fatalf("did not expect SHARED_REF_TRIM when the ref= rectangle grew, got %v", patterns)
	}
}

func TestClassifyDetectsCFDxfIDCloneByIdentity(t *testing.T) {
	cf := func(dxfID string) string {
		return `<?xml version="1.0"?><worksheet><conditionalFormatting sqref="A1:A10">` +
			`<cfRule type="expression" dxfId="` + dxfID + `" priority="1"><formula>A1&gt;0</formula></cfRule>` +
			`</conditionalFormatting></worksheet>`
	}
	candidateParts := baseParts()
	candidateParts["xl/worksheets/sheet1.xml"] = cf("0")
	candidateParts["xl/styles.xml"] = `<?xml version="1.0"?><styleSheet><dxfs count="1"><dxf/></dxfs></styleSheet>`
	candidate, _ := Scan(buildXLSX(t, candidateParts))

	repairedParts := baseParts()
	repairedParts["xl/worksheets/sheet1.xml"] = cf("1")
	repairedParts["xl/styles.xml"] = `<?xml version="1.0"?><styleSheet><dxfs count="2"><dxf/><dxf/></dxfs></styleSheet>`
	repaired, _ := Scan(buildXLSX(t, repairedParts))

	patterns := Classify(Diff(candidate, repaired))
	var found *Pattern
	for i := range patterns {
		if patterns[i].Name == PatternCFDxfIDClone {
			found = &patterns[i]
		}
	}
	if found == nil {
		t.Fatalf("expected CF_DXFID_CLONE, got %v", patterns)
	}
	if found.Confidence != ConfidenceMedium {
		t.Fatalf("expected CF_DXFID_CLONE at MEDIUM confidence (diverges from original_source's HIGH, see DESIGN.md), got %s", found.Confidence)
	}
}

func TestClassifyIgnoresCFDxfIDCloneWhenStylesUnchanged(t *testing.T) {
	cf := func(dxfID string) string {
		return `<?xml version="1.0"?><worksheet><conditionalFormatting sqref="A1:A10">` +
			`<cfRule type="expression" dxfId="` + dxfID + `" priority="1"><formula>A1&gt;0</formula></cfRule>` +
			`</conditionalFormatting></worksheet>`
	}
	candidateParts := baseParts()
	candidateParts["xl/worksheets/sheet1.xml"] = cf("0")
	candidate, _ := Scan(buildXLSX(t, candidateParts))

	repairedParts := baseParts()
	repairedParts["xl/worksheets/sheet1.xml"] = cf("1")
	repaired, _ := Scan(buildXLSX(t, repairedParts))

	patterns := Classify(Diff(candidate, repaired))
	if hasPattern(patterns, PatternCFDxfIDClone) {
		t.Fatalf("did not expect CF_DXFID_CLONE when xl/styles.xml is unchanged, got %v", patterns)
	}
}
