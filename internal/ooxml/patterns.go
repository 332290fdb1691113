package ooxml

import (
	"fmt"
	"regexp"
	"strings"
)

// PatternName identifies one of the seven fixed PatternClassifier rules.
type PatternName string

const (
	PatternCalcChainDrop        PatternName = "CALCCHAIN_DROP"
	PatternDxfsInsertion        PatternName = "DXFS_INSERTION"
	PatternCFDxfIDClone         PatternName = "CF_DXFID_CLONE"
	PatternSharedStringsRebuild PatternName = "SHAREDSTRINGS_REBUILD"
	PatternTableStyleNorm       PatternName = "TABLE_STYLE_NORM"
	PatternSharedRefTrim        PatternName = "SHARED_REF_TRIM"
	PatternRelsCleanup          PatternName = "RELS_CLEANUP"
)

// Confidence is one of HIGH, MEDIUM, LOW.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// Pattern is a named, confidence-tagged classification of a DiffReport.
type Pattern struct {
	Name       PatternName `json:"name"`
	Confidence Confidence  `json:"confidence"`
	Evidence   []string    `json:"evidence"`
	Hint       string      `json:"hint"`
}

// Classify applies the seven fixed rules of spec.md §4.4, in table order,
// each producing at most one Pattern.
func Classify(report DiffReport) []Pattern {
	var out []Pattern
	detectors := []func(DiffReport) (Pattern, bool){
		detectCalcChainDrop,
		detectDxfsInsertion,
		detectCFDxfIDClone,
		detectSharedStringsRebuild,
		detectTableStyleNorm,
		detectSharedRefTrim,
		detectRelsCleanup,
	}
	for _, d := range detectors {
		if p, ok := d(report); ok {
			out = append(out, p)
		}
	}
	return out
}

func detectCalcChainDrop(r DiffReport) (Pattern, bool) {
	for _, p := range r.Removed() {
		if p.Path == "xl/calcChain.xml" {
			return Pattern{
				Name:       PatternCalcChainDrop,
				Confidence: ConfidenceHigh,
				Evidence:   []string{"xl/calcChain.xml present in candidate, absent in repaired"},
				Hint:       "delete_part xl/calcChain.xml",
			}, true
		}
	}
	return Pattern{}, false
}

var reDxfsCountAttr = regexp.MustCompile(`<dxfs\b[^>]*\bcount="(\d+)"`)

func detectDxfsInsertion(r DiffReport) (Pattern, bool) {
	for _, p := range r.Changed() {
		if p.Path != "xl/styles.xml" {
			continue
		}
		before, after := dxfsCountsFromDiff(p.UnifiedDiff)
		if after > before {
			return Pattern{
				Name:       PatternDxfsInsertion,
				Confidence: ConfidenceHigh,
				Evidence:   []string{fmt.Sprintf("dxfs count: %d -> %d", before, after)},
				Hint:       "append_block: insert missing <dxf> entries before </dxfs>, update dxfs/@count",
			}, true
		}
	}
	return Pattern{}, false
}

// dxfsCountsFromDiff extracts the removed and added dxfs/@count values
// from a unified diff's '-' and '+' lines.
func dxfsCountsFromDiff(unified string) (before, after int) {
	for _, line := range strings.Split(unified, "\n") {
		if len(line) == 0 {
			continue
		}
		m := reDxfsCountAttr.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		var n int
		fmt.Sscanf(m[1], "%d", &n)
		switch line[0] {
		case '-':
			before = n
		case '+':
			after = n
		}
	}
	return
}

// cfRuleIdentity canonicalizes a cfRule by (sqref, type, priority) rather
// than its positional index in the XML, per the CF_DXFID_CLONE Open
// Question resolution recorded in DESIGN.md: position in the document
// shifts whenever a sibling rule is added or removed, but sqref+type+
// priority together identify the same logical rule across a repair.
type cfRuleIdentity struct {
	sqref    string
	typ      string
	priority string
}

var (
	reConditionalFormatting = regexp.MustCompile(`<conditionalFormatting\b[^>]*\bsqref="([^"]*)"[^>]*>`)
	reCfRuleOpenTag         = regexp.MustCompile(`<cfRule\b([^>]*)(?:/>|>)`)
	reCfRuleType            = regexp.MustCompile(`\btype="([^"]*)"`)
	reCfRulePriority        = regexp.MustCompile(`\bpriority="([^"]*)"`)
	reCfRuleDxfID           = regexp.MustCompile(`\bdxfId="([^"]*)"`)
)

// cfRuleDxfIDs maps each identified cfRule to its dxfId attribute value,
// scanning an entire sheet XML blob (either side of a diff).
func cfRuleDxfIDs(xml string) map[cfRuleIdentity]string {
	out := map[cfRuleIdentity]string{}
	for _, cf := range reConditionalFormatting.FindAllStringSubmatchIndex(xml, -1) {
		sqref := xml[cf[2]:cf[3]]
		blockStart := cf[1]
		blockEnd := strings.Index(xml[blockStart:], "</conditionalFormatting>")
		if blockEnd < 0 {
			blockEnd = len(xml) - blockStart
		}
		block := xml[blockStart : blockStart+blockEnd]
		for _, rule := range reCfRuleOpenTag.FindAllString(block, -1) {
			typ := ""
			if m := reCfRuleType.FindStringSubmatch(rule); m != nil {
				typ = m[1]
			}
			priority := ""
			if m := reCfRulePriority.FindStringSubmatch(rule); m != nil {
				priority = m[1]
			}
			dxfID := ""
			if m := reCfRuleDxfID.FindStringSubmatch(rule); m != nil {
				dxfID = m[1]
			}
			out[cfRuleIdentity{sqref: sqref, typ: typ, priority: priority}] = dxfID
		}
	}
	return out
}

// detectCFDxfIDClone fires when a cfRule's dxfId changed while its
// (sqref, type, priority) identity stayed put - the signature of a
// cloned conditional-format rule pointing at the wrong dxf entry. Per
// spec.md §4.4 this also requires xl/styles.xml itself to have changed:
// a worksheet-only dxfId edit with the dxfs table untouched isn't this
// pattern.
func detectCFDxfIDClone(r DiffReport) (Pattern, bool) {
	stylesChanged := false
	for _, p := range r.Changed() {
		if p.Path == "xl/styles.xml" {
			stylesChanged = true
			break
		}
	}
	if !stylesChanged {
		return Pattern{}, false
	}
	for _, p := range r.Changed() {
		if !strings.HasPrefix(p.Path, "xl/worksheets/sheet") {
			continue
		}
		before, after := reconstructDiffSides(p.UnifiedDiff)
		beforeIDs := cfRuleDxfIDs(before)
		afterIDs := cfRuleDxfIDs(after)
		var evidence []string
		for id, beforeDxf := range beforeIDs {
			afterDxf, ok := afterIDs[id]
			if !ok || afterDxf == beforeDxf {
				continue
			}
			evidence = append(evidence, fmt.Sprintf(
				"sqref=%q type=%q priority=%q dxfId %s -> %s", id.sqref, id.typ, id.priority, beforeDxf, afterDxf))
		}
		if len(evidence) > 0 {
			return Pattern{
				Name:       PatternCFDxfIDClone,
				Confidence: ConfidenceMedium,
				Evidence:   evidence,
				Hint:       "literal_replace: update dxfId= on the cfRule identified by (sqref, type, priority)",
			}, true
		}
	}
	return Pattern{}, false
}

// reconstructDiffSides pulls the removed-line and added-line text back out
// of a unified diff body so element attributes can be re-parsed on each
// side independently. This is line-granular, matching how OOXML rewriters
// tend to emit one element per line.
func reconstructDiffSides(unified string) (before, after string) {
	var b, a strings.Builder
	inHunk := false
	for _, line := range strings.Split(unified, "\n") {
		if strings.HasPrefix(line, "@@") {
			inHunk = true
			continue
		}
		if !inHunk || len(line) == 0 {
			continue
		}
		switch line[0] {
		case '-':
			b.WriteString(line[1:])
			b.WriteString("\n")
		case '+':
			a.WriteString(line[1:])
			a.WriteString("\n")
		case ' ':
			b.WriteString(line[1:])
			b.WriteString("\n")
			a.WriteString(line[1:])
			a.WriteString("\n")
		}
	}
	return b.String(), a.String()
}

var (
	reSstCount  = regexp.MustCompile(`<sst\b[^>]*\bcount="(\d+)"`)
	reSstUnique = regexp.MustCompile(`<sst\b[^>]*\buniqueCount="(\d+)"`)
)

// sstCountsFromDiff extracts the sst/@count and sst/@uniqueCount values on
// each side of a unified diff, mirroring dxfsCountsFromDiff's approach.
// sawBefore/sawAfter report whether either attribute was actually observed
// on that side, so a part that changed for unrelated reasons (e.g. only
// <t> text) doesn't get counted as having a before/after count.
func sstCountsFromDiff(unified string) (beforeCount, beforeUnique, afterCount, afterUnique int, sawBefore, sawAfter bool) {
	for _, line := range strings.Split(unified, "\n") {
		if len(line) == 0 {
			continue
		}
		cm := reSstCount.FindStringSubmatch(line)
		um := reSstUnique.FindStringSubmatch(line)
		if cm == nil && um == nil {
			continue
		}
		switch line[0] {
		case '-':
			if cm != nil {
				fmt.Sscanf(cm[1], "%d", &beforeCount)
			}
			if um != nil {
				fmt.Sscanf(um[1], "%d", &beforeUnique)
			}
			sawBefore = true
		case '+':
			if cm != nil {
				fmt.Sscanf(cm[1], "%d", &afterCount)
			}
			if um != nil {
				fmt.Sscanf(um[1], "%d", &afterUnique)
			}
			sawAfter = true
		}
	}
	return
}

// detectSharedStringsRebuild fires only when xl/sharedStrings.xml changed
// AND its count/uniqueCount attributes actually moved, per spec.md §4.4 -
// a sharedStrings.xml edit that only touches <t> text (e.g. a control-char
// strip) is not a rebuild.
func detectSharedStringsRebuild(r DiffReport) (Pattern, bool) {
	for _, p := range r.Changed() {
		if p.Path != "xl/sharedStrings.xml" {
			continue
		}
		bc, bu, ac, au, sawBefore, sawAfter := sstCountsFromDiff(p.UnifiedDiff)
		if !sawBefore || !sawAfter || (bc == ac && bu == au) {
			continue
		}
		return Pattern{
			Name:       PatternSharedStringsRebuild,
			Confidence: ConfidenceMedium,
			Evidence:   []string{fmt.Sprintf("sst count %d -> %d, uniqueCount %d -> %d", bc, ac, bu, au)},
			Hint:       "check illegal_control_chars gate, then strip or encode the offending bytes",
		}, true
	}
	return Pattern{}, false
}

var reTableStyleInfoElem = regexp.MustCompile(`<tableStyleInfo\b[^>]*/?>`)

// onlyTableStyleInfoChanged reconstructs both sides of a table*.xml unified
// diff, strips the <tableStyleInfo .../> element from each, and requires the
// remainder to be byte-identical - i.e. "the only attribute-level delta is
// on <tableStyleInfo .../>" per spec.md §4.4. A diff that also moved a
// tableColumn/@name, for instance, leaves a residual difference and fails
// this check.
func onlyTableStyleInfoChanged(unified string) bool {
	before, after := reconstructDiffSides(unified)
	if before == after {
		return false
	}
	strippedBefore := reTableStyleInfoElem.ReplaceAllString(before, "")
	strippedAfter := reTableStyleInfoElem.ReplaceAllString(after, "")
	return strippedBefore == strippedAfter
}

func detectTableStyleNorm(r DiffReport) (Pattern, bool) {
	var hits []PartDiff
	for _, p := range r.Changed() {
		if strings.HasPrefix(p.Path, "xl/tables/table") && strings.HasSuffix(p.Path, ".xml") &&
			onlyTableStyleInfoChanged(p.UnifiedDiff) {
			hits = append(hits, p)
		}
	}
	if len(hits) == 0 {
		return Pattern{}, false
	}
	evidence := make([]string, 0, len(hits))
	for _, h := range hits {
		evidence = append(evidence, h.Path)
	}
	return Pattern{
		Name:       PatternTableStyleNorm,
		Confidence: ConfidenceLow,
		Evidence:   evidence,
		Hint:       "literal_replace: set tableStyleInfo name= to a built-in style",
	}, true
}

// refsFromDiff pulls ref= values off the removed ('-') and added ('+')
// lines of a unified diff, in scan order, for positional before/after
// pairing - the same line-granular assumption reconstructDiffSides makes.
func refsFromDiff(unified string) (before, after []string) {
	for _, line := range strings.Split(unified, "\n") {
		if len(line) == 0 || (line[0] != '-' && line[0] != '+') {
			continue
		}
		m := reRef.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		switch line[0] {
		case '-':
			before = append(before, m[1])
		case '+':
			after = append(after, m[1])
		}
	}
	return
}

func rectArea(r rectRef) int {
	width := colToNum(r.colB) - colToNum(r.colA) + 1
	height := r.rowB - r.rowA + 1
	if width < 0 {
		width = -width
	}
	if height < 0 {
		height = -height
	}
	return width * height
}

// detectSharedRefTrim fires only when a worksheet's shared-formula ref=
// rectangle shrank, per spec.md §4.4 - a growing ref is a different
// (unclassified) hazard, not a trim.
func detectSharedRefTrim(r DiffReport) (Pattern, bool) {
	for _, p := range r.Changed() {
		if !strings.HasPrefix(p.Path, "xl/worksheets/sheet") {
			continue
		}
		before, after := refsFromDiff(p.UnifiedDiff)
		n := len(before)
		if len(after) < n {
			n = len(after)
		}
		for i := 0; i < n; i++ {
			b, ok1 := parseRect(before[i])
			a, ok2 := parseRect(after[i])
			if !ok1 || !ok2 {
				continue
			}
			if rectArea(a) >= rectArea(b) {
				continue
			}
			return Pattern{
				Name:       PatternSharedRefTrim,
				Confidence: ConfidenceMedium,
				Evidence:   []string{fmt.Sprintf("ref= %s -> %s in %s", before[i], after[i], p.Path)},
				Hint:       "literal_replace: update ref= on the shared formula base cell to match the actual bbox",
			}, true
		}
	}
	return Pattern{}, false
}

func detectRelsCleanup(r DiffReport) (Pattern, bool) {
	var hits []PartDiff
	for _, p := range r.Changed() {
		if strings.HasSuffix(p.Path, ".rels") {
			hits = append(hits, p)
		}
	}
	if len(hits) == 0 {
		return Pattern{}, false
	}
	removed, added := 0, 0
	for _, h := range hits {
		for _, line := range strings.Split(h.UnifiedDiff, "\n") {
			if len(line) == 0 {
				continue
			}
			n := len(reRelTag.FindAllString(line, -1))
			switch line[0] {
			case '-':
				removed += n
			case '+':
				added += n
			}
		}
	}
	if removed <= added {
		return Pattern{}, false
	}
	evidence := make([]string, 0, len(hits))
	for _, h := range hits {
		evidence = append(evidence, h.Path)
	}
	return Pattern{
		Name:       PatternRelsCleanup,
		Confidence: ConfidenceHigh,
		Evidence:   evidence,
		Hint:       "set_part: replace the .rels content verbatim with the repaired version",
	}, true
}
