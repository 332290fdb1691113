package ooxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// GateID identifies one of the ten hazard checks, plus the supplemented
// informational ActiveTab diagnostic.
type GateID string

const (
	GateStopshipTokens   GateID = "stopship_tokens"
	GateCFRefHits        GateID = "cf_ref_hits"
	GateTableColumnLF    GateID = "tablecolumn_lf"
	GateCalcChainInvalid GateID = "calcchain_invalid"
	GateSharedRefOOB     GateID = "shared_ref_oob"
	GateSharedRefBBox    GateID = "shared_ref_bbox"
	GateStylesDxf        GateID = "styles_dxf_integrity"
	GateXMLWellformed    GateID = "xml_wellformed"
	GateIllegalControl   GateID = "illegal_control_chars"
	GateRelsMissing      GateID = "rels_missing_targets"
)

// allGateIDs enumerates the ten hazard gates in the order spec.md §4.2
// presents them (G1..G10).
var allGateIDs = []GateID{
	GateStopshipTokens, GateCFRefHits, GateTableColumnLF, GateCalcChainInvalid,
	GateSharedRefOOB, GateSharedRefBBox, GateStylesDxf, GateXMLWellformed,
	GateIllegalControl, GateRelsMissing,
}

// Finding is one offender surfaced by a gate check.
type Finding struct {
	GateID  GateID         `json:"gate_id"`
	Message string         `json:"message"`
	Detail  map[string]any `json:"detail"`
}

// GateError describes a single check that could not run on a part. No gate
// check in this package returns or raises it: a check that hits an
// impediment (a missing or unparsable part) reports it as an ordinary
// Finding, so a broken part doesn't stop the other nine checks.
type GateError struct {
	GateID GateID
	Part   string
	Err    error
}

func (e *GateError) Error() string {
	return fmt.Sprintf("gate %s could not run on %s: %v", e.GateID, e.Part, e.Err)
}

// ActiveTabInfo is the supplemented, non-failing diagnostic carried forward
// from original_source/triage/gate_checks.py's check_workbook_activetab.
// It never appears in FailingGates/PassAll and never feeds RecipeBuilder.
type ActiveTabInfo struct {
	Present         bool   `json:"present"`
	ActiveTab       int    `json:"active_tab"`
	SheetCount      int    `json:"sheet_count"`
	ActiveSheetName string `json:"active_sheet_name"`
	ActiveSheetRID  string `json:"active_sheet_rid"`
}

// GateReport is the aggregate result of running all ten gates (plus
// ActiveTabInfo) over a single PartMap.
type GateReport struct {
	SourceFile string               `json:"source_file"`
	Findings   map[GateID][]Finding `json:"findings"`
	ActiveTab  ActiveTabInfo        `json:"active_tab"`
}

// FailingGates returns the count of findings per gate, omitting gates with
// zero findings.
func (r GateReport) FailingGates() map[GateID]int {
	out := map[GateID]int{}
	for id, fs := range r.Findings {
		if len(fs) > 0 {
			out[id] = len(fs)
		}
	}
	return out
}

// PassAll reports whether every gate's finding list is empty.
func (r GateReport) PassAll() bool {
	return len(r.FailingGates()) == 0
}

// sampleK is the first-K-offenders cap spec.md §3 assigns to Finding
// serialization.
const sampleK = 10

// Sample returns up to the first sampleK findings for a gate, preserving
// scan order. GateReport's JSON encoding does not apply this cap: it
// includes every finding.
func (r GateReport) Sample(id GateID) []Finding {
	fs := r.Findings[id]
	if len(fs) <= sampleK {
		return fs
	}
	return fs[:sampleK]
}

// RunGateChecks runs the full battery of ten independent, deterministic,
// order-independent gate checks plus the ActiveTab diagnostic over m, and
// returns a GateReport. No check raises: a check that cannot run on a
// given part records a finding describing why and continues.
func RunGateChecks(sourceFile string, m PartMap) GateReport {
	r := GateReport{SourceFile: sourceFile, Findings: make(map[GateID][]Finding, len(allGateIDs))}
	r.Findings[GateStopshipTokens] = checkStopshipTokens(m)
	r.Findings[GateCFRefHits] = checkCFRefHits(m)
	r.Findings[GateTableColumnLF] = checkTableColumnLF(m)
	r.Findings[GateCalcChainInvalid] = checkCalcChainInvalid(m)
	oob, bbox := checkSharedRef(m)
	r.Findings[GateSharedRefOOB] = oob
	r.Findings[GateSharedRefBBox] = bbox
	r.Findings[GateStylesDxf] = checkStylesDxf(m)
	r.Findings[GateXMLWellformed] = checkXMLWellformed(m)
	r.Findings[GateIllegalControl] = checkIllegalControlChars(m)
	r.Findings[GateRelsMissing] = checkRelsMissing(m)
	r.ActiveTab = checkWorkbookActiveTab(m)
	return r
}

// ---------------------------------------------------------------------
// helpers shared across gates
// ---------------------------------------------------------------------

func worksheetParts(m PartMap) []string {
	var out []string
	for _, p := range m.Order {
		if strings.HasPrefix(p, "xl/worksheets/sheet") && strings.HasSuffix(p, ".xml") {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

var reRowNum = regexp.MustCompile(`<row[^>]*\br="(\d+)"`)

func maxRow(xml string) int {
	max := 0
	for _, m := range reRowNum.FindAllStringSubmatch(xml, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > max {
			max = n
		}
	}
	return max
}

func colToNum(col string) int {
	n := 0
	for _, ch := range col {
		n = n*26 + int(ch-'A'+1)
	}
	return n
}

func numToCol(n int) string {
	var s []byte
	for n > 0 {
		n--
		s = append([]byte{byte('A' + n%26)}, s...)
		n /= 26
	}
	return string(s)
}

var reCellRef = regexp.MustCompile(`^([A-Z]+)(\d+)$`)

func parseCellRef(ref string) (col string, row int, ok bool) {
	m := reCellRef.FindStringSubmatch(ref)
	if m == nil {
		return "", 0, false
	}
	row, _ = strconv.Atoi(m[2])
	return m[1], row, true
}

type rectRef struct {
	colA string
	rowA int
	colB string
	rowB int
}

var reRect = regexp.MustCompile(`^([A-Z]+)(\d+):([A-Z]+)(\d+)$`)

func parseRect(ref string) (rectRef, bool) {
	m := reRect.FindStringSubmatch(ref)
	if m == nil {
		return rectRef{}, false
	}
	rowA, _ := strconv.Atoi(m[2])
	rowB, _ := strconv.Atoi(m[4])
	return rectRef{colA: m[1], rowA: rowA, colB: m[3], rowB: rowB}, true
}

// ---------------------------------------------------------------------
// G1 — stopship tokens
// ---------------------------------------------------------------------

var (
	stopshipTokens = []string{"_xlfn.", "_xludf.", "_xlpm.", "AGGREGATE("}
	reFormulaTag   = regexp.MustCompile(`(?s)<f\b[^>]*>(.*?)</f>`)
)

func checkStopshipTokens(m PartMap) []Finding {
	var out []Finding
	for _, name := range worksheetParts(m) {
		part, _ := m.Get(name)
		s := string(part.Bytes)
		for _, fm := range reFormulaTag.FindAllStringSubmatch(s, -1) {
			body := fm[1]
			for _, tok := range stopshipTokens {
				if idx := strings.Index(body, tok); idx >= 0 {
					out = append(out, Finding{
						GateID:  GateStopshipTokens,
						Message: fmt.Sprintf("stopship token %q in formula in %s", tok, name),
						Detail: map[string]any{
							"part": name, "token": tok,
							"formula_snippet": truncate(body, 120),
						},
					})
				}
			}
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// ---------------------------------------------------------------------
// G2 — conditional-format broken references
// ---------------------------------------------------------------------

var (
	reCondFmt = regexp.MustCompile(`(?s)<conditionalFormatting\b.*?</conditionalFormatting>`)
	reCfRule  = regexp.MustCompile(`(?s)<cfRule\b[^>]*?(?:/>|>.*?</cfRule>)`)
)

// checkCFRefHits walks each cfRule element individually (not the enclosing
// conditionalFormatting block) so a finding can carry the rule's own index
// and formula text, per spec.md §4.2 G2. rule_index is 0-based within its
// enclosing conditionalFormatting block, matching the deterministic scan
// order spec.md §5 requires of a gate's Finding list.
func checkCFRefHits(m PartMap) []Finding {
	var out []Finding
	for _, name := range worksheetParts(m) {
		part, _ := m.Get(name)
		s := string(part.Bytes)
		for _, block := range reCondFmt.FindAllString(s, -1) {
			for i, rule := range reCfRule.FindAllString(block, -1) {
				if !strings.Contains(rule, "#REF!") {
					continue
				}
				out = append(out, Finding{
					GateID:  GateCFRefHits,
					Message: fmt.Sprintf("#REF! in cfRule %d in %s", i, name),
					Detail: map[string]any{
						"part":       name,
						"rule_index": i,
						"formula":    truncate(rule, 200),
					},
				})
			}
		}
	}
	return out
}

// ---------------------------------------------------------------------
// G3 — table column line feed
// ---------------------------------------------------------------------

var reTableColumnOpen = regexp.MustCompile(`<tableColumn\b[^>]*\bid="([^"]*)"`)

// enclosingTableColumnID finds the id= attribute of the nearest
// <tableColumn ...> start tag at or before pos.
func enclosingTableColumnID(raw []byte, pos int) string {
	head := raw[:pos]
	last := -1
	var lastID string
	for _, m := range reTableColumnOpen.FindAllSubmatchIndex(head, -1) {
		if m[0] > last {
			last = m[0]
			lastID = string(head[m[2]:m[3]])
		}
	}
	return lastID
}

func checkTableColumnLF(m PartMap) []Finding {
	var out []Finding
	for _, name := range m.Order {
		if !strings.HasPrefix(name, "xl/tables/table") || !strings.HasSuffix(name, ".xml") {
			continue
		}
		part, _ := m.Get(name)
		raw := part.Bytes
		idx := 0
		for {
			rel := bytes.Index(raw[idx:], []byte(`name="`))
			if rel < 0 {
				break
			}
			j := idx + rel + len(`name="`)
			relEnd := bytes.IndexByte(raw[j:], '"')
			if relEnd < 0 {
				break
			}
			k := j + relEnd
			val := raw[j:k]
			if bytes.ContainsAny(val, "\n\r") || bytes.Contains(val, []byte("&#10;")) {
				out = append(out, Finding{
					GateID:  GateTableColumnLF,
					Message: fmt.Sprintf("linefeed in tableColumn name in %s", name),
					Detail: map[string]any{
						"part":      name,
						"value":     string(val),
						"column_id": enclosingTableColumnID(raw, j),
					},
				})
			}
			idx = k + 1
		}
	}
	return out
}

// ---------------------------------------------------------------------
// G4 — calculation chain invalid
//
// spec.md §4.2 requires resolving calcChain's `i` attribute via
// xl/_rels/workbook.xml.rels + xl/workbook.xml, not by guessing
// xl/worksheets/sheet{i}.xml directly (the simpler original_source
// behavior). See DESIGN.md's Open Question decision for G4.
// ---------------------------------------------------------------------

var (
	reCalcEntry  = regexp.MustCompile(`<c\b[^>]*\br="([^"]+)"[^>]*\bi="(\d+)"[^>]*/>`)
	reWBSheet    = regexp.MustCompile(`<sheet\b[^>]*\bname="([^"]+)"[^>]*\br:id="([^"]+)"[^>]*/>`)
	reRelEntry   = regexp.MustCompile(`<Relationship\b[^>]*\bId="([^"]+)"[^>]*\bTarget="([^"]+)"[^>]*/>`)
	reCellOpenC4 = regexp.MustCompile(`<c\b[^>]*\br="([A-Z]+\d+)"`)
)

// sheetIndexToPart resolves workbook.xml's sheet order (1-based, matching
// calcChain's `i`) to the worksheet part path via workbook.xml.rels.
func sheetIndexToPart(m PartMap) map[int]string {
	out := map[int]string{}
	wb, ok := m.Get("xl/workbook.xml")
	if !ok {
		return out
	}
	rels, ok := m.Get("xl/_rels/workbook.xml.rels")
	if !ok {
		return out
	}
	ridToTarget := map[string]string{}
	for _, rm := range reRelEntry.FindAllStringSubmatch(string(rels.Bytes), -1) {
		ridToTarget[rm[1]] = rm[2]
	}
	sheets := reWBSheet.FindAllStringSubmatch(string(wb.Bytes), -1)
	for i, sm := range sheets {
		rid := sm[2]
		target, ok := ridToTarget[rid]
		if !ok {
			continue
		}
		resolved := resolveRelTarget("xl/_rels/", target)
		out[i+1] = resolved
	}
	return out
}

// resolveRelTarget resolves a Target attribute relative to the directory
// that owns the .rels part ("xl/_rels/" owns "xl/workbook.xml.rels", whose
// base directory for resolution is "xl/").
func resolveRelTarget(relsDir, target string) string {
	owner := strings.TrimSuffix(relsDir, "_rels/")
	joined := owner + target
	parts := strings.Split(joined, "/")
	var stack []string
	for _, p := range parts {
		switch p {
		case "", ".":
			continue
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, p)
		}
	}
	return strings.Join(stack, "/")
}

func checkCalcChainInvalid(m PartMap) []Finding {
	var out []Finding
	cc, ok := m.Get("xl/calcChain.xml")
	if !ok {
		return out
	}
	idxToPart := sheetIndexToPart(m)
	sheetFormulaCells := map[string]map[string]bool{}

	for _, em := range reCalcEntry.FindAllStringSubmatch(string(cc.Bytes), -1) {
		cell, iStr := em[1], em[2]
		i, _ := strconv.Atoi(iStr)
		sheetPart, resolved := idxToPart[i]
		if !resolved {
			out = append(out, Finding{
				GateID:  GateCalcChainInvalid,
				Message: fmt.Sprintf("calcChain entry i=%s does not resolve to a sheet", iStr),
				Detail:  map[string]any{"cell": cell, "i": iStr, "reason": "unresolved_sheet_index"},
			})
			continue
		}
		cells, cached := sheetFormulaCells[sheetPart]
		if !cached {
			part, exists := m.Get(sheetPart)
			if !exists {
				sheetFormulaCells[sheetPart] = nil
				out = append(out, Finding{
					GateID:  GateCalcChainInvalid,
					Message: fmt.Sprintf("calcChain refers to missing part %s", sheetPart),
					Detail:  map[string]any{"sheet_part": sheetPart, "cell": cell, "reason": "missing_sheet_part"},
				})
				continue
			}
			cells = formulaCellSet(string(part.Bytes))
			sheetFormulaCells[sheetPart] = cells
		}
		if cells == nil {
			out = append(out, Finding{
				GateID:  GateCalcChainInvalid,
				Message: fmt.Sprintf("calcChain refers to missing part %s", sheetPart),
				Detail:  map[string]any{"sheet_part": sheetPart, "cell": cell, "reason": "missing_sheet_part"},
			})
			continue
		}
		if !cells[cell] {
			out = append(out, Finding{
				GateID:  GateCalcChainInvalid,
				Message: fmt.Sprintf("calcChain entry %s in %s has no formula", cell, sheetPart),
				Detail:  map[string]any{"sheet_part": sheetPart, "cell": cell, "reason": "no_formula_at_target"},
			})
		}
	}
	return out
}

// formulaCellSet returns the set of cell refs that carry a <f> element,
// scanning via split on "</c>" to stay O(n) without backtracking regex,
// per spec.md §4.2's performance contract.
func formulaCellSet(xml string) map[string]bool {
	out := map[string]bool{}
	for _, chunk := range strings.Split(xml, "</c>") {
		matches := reCellOpenC4.FindAllStringSubmatchIndex(chunk, -1)
		if len(matches) == 0 {
			continue
		}
		lastMatch := matches[len(matches)-1]
		cell := chunk[lastMatch[2]:lastMatch[3]]
		after := chunk[lastMatch[1]:]
		if strings.Contains(after, "<f") {
			out[cell] = true
		}
	}
	return out
}

// ---------------------------------------------------------------------
// G5 / G6 — shared formula out-of-bounds and bounding-box mismatch
// ---------------------------------------------------------------------

var (
	reFTag  = regexp.MustCompile(`(?s)<f\b([^>]*)>`)
	reSI    = regexp.MustCompile(`\bsi=["']([0-9]+)["']`)
	reRef   = regexp.MustCompile(`\bref=["']([^"']+)["']`)
	reShare = regexp.MustCompile(`t=["']shared["']`)
)

// sharedCell is one cell carrying a shared formula reference.
type sharedCell struct {
	cell string
	fa   string
}

func iterSharedCells(xml string) []sharedCell {
	var out []sharedCell
	for _, chunk := range strings.Split(xml, "</c>") {
		var last string
		matches := reCellOpenC4.FindAllStringSubmatchIndex(chunk, -1)
		if len(matches) == 0 {
			continue
		}
		lastMatch := matches[len(matches)-1]
		last = chunk[lastMatch[2]:lastMatch[3]]
		after := chunk[lastMatch[1]:]
		fm := reFTag.FindStringSubmatch(after)
		if fm == nil {
			continue
		}
		if !reShare.MatchString(fm[1]) {
			continue
		}
		out = append(out, sharedCell{cell: last, fa: fm[1]})
	}
	return out
}

func checkSharedRef(m PartMap) (oob []Finding, bbox []Finding) {
	for _, name := range worksheetParts(m) {
		part, _ := m.Get(name)
		s := string(part.Bytes)
		mrow := maxRow(s)

		siCells := map[string][]string{}
		siDecl := map[string]string{}
		for _, sc := range iterSharedCells(s) {
			sim := reSI.FindStringSubmatch(sc.fa)
			if sim == nil {
				continue
			}
			si := sim[1]
			siCells[si] = append(siCells[si], sc.cell)
			if rm := reRef.FindStringSubmatch(sc.fa); rm != nil {
				siDecl[si] = rm[1]
			}
		}

		for si, ref := range siDecl {
			rect, ok := parseRect(ref)
			if ok && rect.rowB > mrow {
				oob = append(oob, Finding{
					GateID:  GateSharedRefOOB,
					Message: fmt.Sprintf("shared formula si=%s ref=%s exceeds sheet max row %d", si, ref, mrow),
					Detail:  map[string]any{"part": name, "si": si, "ref": ref, "sheet_max_row": mrow},
				})
			}
		}

		for si, cells := range siCells {
			declared, ok := siDecl[si]
			if !ok {
				continue
			}
			rect, ok := parseRect(declared)
			if !ok {
				continue
			}
			var cmin, cmax, rmin, rmax int
			first := true
			for _, c := range cells {
				col, row, ok := parseCellRef(c)
				if !ok {
					continue
				}
				n := colToNum(col)
				if first {
					cmin, cmax, rmin, rmax = n, n, row, row
					first = false
					continue
				}
				if n < cmin {
					cmin = n
				}
				if n > cmax {
					cmax = n
				}
				if row < rmin {
					rmin = row
				}
				if row > rmax {
					rmax = row
				}
			}
			if first {
				continue
			}
			actual := fmt.Sprintf("%s%d:%s%d", numToCol(cmin), rmin, numToCol(cmax), rmax)
			declaredNorm := fmt.Sprintf("%s%d:%s%d", rect.colA, rect.rowA, rect.colB, rect.rowB)
			if actual != declaredNorm {
				bbox = append(bbox, Finding{
					GateID:  GateSharedRefBBox,
					Message: fmt.Sprintf("shared formula si=%s declared ref %s but actual bbox %s", si, declaredNorm, actual),
					Detail:  map[string]any{"part": name, "si": si, "declared_ref": declaredNorm, "actual_ref": actual},
				})
			}
		}
	}
	return oob, bbox
}

// ---------------------------------------------------------------------
// G7 — styles dxf integrity
// ---------------------------------------------------------------------

var (
	reDxfOpen  = regexp.MustCompile(`<dxf\b`)
	reDxfsOpen = regexp.MustCompile(`<dxfs\b[^>]*\bcount="(\d+)"`)
	reCFDxfID  = regexp.MustCompile(`<cfRule\b[^>]*\bdxfId="(\d+)"`)
)

func checkStylesDxf(m PartMap) []Finding {
	var out []Finding
	styles, ok := m.Get("xl/styles.xml")
	if !ok {
		return []Finding{{
			GateID:  GateStylesDxf,
			Message: "xl/styles.xml is missing",
			Detail:  map[string]any{"part": "xl/styles.xml", "issue": "missing_styles"},
		}}
	}
	txt := string(styles.Bytes)
	actual := len(reDxfOpen.FindAllString(txt, -1))
	declared := -1
	if m2 := reDxfsOpen.FindStringSubmatch(txt); m2 != nil {
		declared, _ = strconv.Atoi(m2[1])
	}
	if declared >= 0 && declared != actual {
		out = append(out, Finding{
			GateID:  GateStylesDxf,
			Message: fmt.Sprintf("dxfs/@count declares %d but %d <dxf> children present", declared, actual),
			Detail:  map[string]any{"part": "xl/styles.xml", "issue": "dxfs_count_mismatch", "declared": declared, "actual": actual},
		})
	}
	for _, name := range worksheetParts(m) {
		part, _ := m.Get(name)
		s := string(part.Bytes)
		for _, cm := range reCFDxfID.FindAllStringSubmatch(s, -1) {
			did, _ := strconv.Atoi(cm[1])
			if did < 0 || did >= actual {
				out = append(out, Finding{
					GateID:  GateStylesDxf,
					Message: fmt.Sprintf("cfRule dxfId=%d out of range [0,%d) in %s", did, actual, name),
					Detail:  map[string]any{"part": name, "issue": "cf_dxfId_out_of_range", "dxfId": did, "dxf_count": actual},
				})
			}
		}
	}
	return out
}

// dxfCount returns the actual <dxf> child count of xl/styles.xml, used by
// RecipeBuilder to compute the corrected count attribute.
func dxfCount(m PartMap) int {
	styles, ok := m.Get("xl/styles.xml")
	if !ok {
		return 0
	}
	return len(reDxfOpen.FindAllString(string(styles.Bytes), -1))
}

// ---------------------------------------------------------------------
// G8 — XML well-formedness
// ---------------------------------------------------------------------

func checkXMLWellformed(m PartMap) []Finding {
	var out []Finding
	for _, name := range m.Order {
		if !strings.HasSuffix(strings.ToLower(name), ".xml") {
			continue
		}
		part, _ := m.Get(name)
		dec := xml.NewDecoder(bytes.NewReader(part.Bytes))
		var err error
		for {
			_, err = dec.Token()
			if err != nil {
				break
			}
		}
		if err != io.EOF {
			out = append(out, Finding{
				GateID:  GateXMLWellformed,
				Message: fmt.Sprintf("%s is not well-formed: %v", name, err),
				Detail:  map[string]any{"part": name, "error": err.Error()},
			})
		}
	}
	return out
}

// ---------------------------------------------------------------------
// G9 — illegal control characters
// ---------------------------------------------------------------------

func checkIllegalControlChars(m PartMap) []Finding {
	var out []Finding
	for _, name := range m.Order {
		if !strings.HasSuffix(strings.ToLower(name), ".xml") {
			continue
		}
		part, _ := m.Get(name)
		var examples [][2]int
		for i, b := range part.Bytes {
			if b < 0x20 && b != 0x09 && b != 0x0A && b != 0x0D {
				examples = append(examples, [2]int{i, int(b)})
				if len(examples) == 10 {
					break
				}
			}
		}
		if len(examples) > 0 {
			out = append(out, Finding{
				GateID:  GateIllegalControl,
				Message: fmt.Sprintf("%d illegal control character(s) in %s", len(examples), name),
				Detail:  map[string]any{"part": name, "examples": examples},
			})
		}
	}
	return out
}

// ---------------------------------------------------------------------
// G10 — relationships missing targets
// ---------------------------------------------------------------------

var reRelTag = regexp.MustCompile(`<Relationship\b[^>]*>`)
var reRelTarget = regexp.MustCompile(`\bTarget="([^"]+)"`)

func checkRelsMissing(m PartMap) []Finding {
	var out []Finding
	for _, name := range m.Order {
		if !strings.HasSuffix(name, ".rels") {
			continue
		}
		part, _ := m.Get(name)
		txt := string(part.Bytes)
		for _, tag := range reRelTag.FindAllString(txt, -1) {
			if strings.Contains(tag, "External") {
				continue
			}
			tm := reRelTarget.FindStringSubmatch(tag)
			if tm == nil {
				continue
			}
			target := tm[1]
			base := name
			if i := strings.LastIndex(base, "/"); i >= 0 {
				base = base[:i]
			}
			owner := base
			if i := strings.LastIndex(base, "/"); i >= 0 {
				owner = base[:i]
			} else {
				owner = ""
			}
			resolved := normalizeJoin(owner + "/" + target)
			if !m.Has(resolved) {
				out = append(out, Finding{
					GateID:  GateRelsMissing,
					Message: fmt.Sprintf("%s references missing target %s (resolved %s)", name, target, resolved),
					Detail: map[string]any{
						"rels": name, "target": target, "resolved": resolved, "element": tag,
					},
				})
			}
		}
	}
	return out
}

func normalizeJoin(p string) string {
	parts := strings.Split(p, "/")
	var stack []string
	for _, part := range parts {
		if part == "" || part == "." {
			continue
		}
		stack = append(stack, part)
	}
	return strings.Join(stack, "/")
}

// ---------------------------------------------------------------------
// ActiveTabInfo — supplemented diagnostic (SPEC_FULL.md Supplemented features)
// ---------------------------------------------------------------------

var reActiveTab = regexp.MustCompile(`<workbookView\b[^>]*\bactiveTab="(\d+)"`)

func checkWorkbookActiveTab(m PartMap) ActiveTabInfo {
	wb, ok := m.Get("xl/workbook.xml")
	if !ok {
		return ActiveTabInfo{}
	}
	s := string(wb.Bytes)
	am := reActiveTab.FindStringSubmatch(s)
	if am == nil {
		return ActiveTabInfo{}
	}
	active, _ := strconv.Atoi(am[1])
	sheets := reWBSheet.FindAllStringSubmatch(s, -1)
	info := ActiveTabInfo{Present: true, ActiveTab: active, SheetCount: len(sheets)}
	if active >= 0 && active < len(sheets) {
		info.ActiveSheetName = sheets[active][1]
		info.ActiveSheetRID = sheets[active][2]
	}
	return info
}
