package ooxml

import (
	"triage/internal/diff"
	"triage/internal/sortutil"
	"triage/internal/textutil"
)

// PartDiffStatus is one of the four per-part outcomes a Diff can assign.
type PartDiffStatus string

const (
	StatusAdded     PartDiffStatus = "added"
	StatusRemoved   PartDiffStatus = "removed"
	StatusChanged   PartDiffStatus = "changed"
	StatusUnchanged PartDiffStatus = "unchanged"
)

// PartDiff is the per-path outcome of comparing a candidate and repaired
// PartMap.
type PartDiff struct {
	Path        string         `json:"path"`
	Status      PartDiffStatus `json:"status"`
	SizeBefore  int            `json:"size_before"`
	SizeAfter   int            `json:"size_after"`
	UnifiedDiff string         `json:"unified_diff,omitempty"` // only populated for StatusChanged
}

// DiffReport is the ordered (by path) result of Diff.
type DiffReport struct {
	Parts []PartDiff `json:"parts"`
}

// Summary returns counts per status.
func (r DiffReport) Summary() map[PartDiffStatus]int {
	out := map[PartDiffStatus]int{StatusAdded: 0, StatusRemoved: 0, StatusChanged: 0, StatusUnchanged: 0}
	for _, p := range r.Parts {
		out[p.Status]++
	}
	return out
}

func (r DiffReport) byStatus(s PartDiffStatus) []PartDiff {
	var out []PartDiff
	for _, p := range r.Parts {
		if p.Status == s {
			out = append(out, p)
		}
	}
	return out
}

func (r DiffReport) Added() []PartDiff     { return r.byStatus(StatusAdded) }
func (r DiffReport) Removed() []PartDiff   { return r.byStatus(StatusRemoved) }
func (r DiffReport) Changed() []PartDiff   { return r.byStatus(StatusChanged) }
func (r DiffReport) Unchanged() []PartDiff { return r.byStatus(StatusUnchanged) }

// Diff computes added/removed/changed/unchanged sets between a candidate
// and a repaired PartMap, per spec.md §4.3. Entries are sorted by path,
// stably. Changed XML parts get a unified line diff with context=3,
// decoded as UTF-8 with invalid bytes replaced (never truncated).
func Diff(candidate, repaired PartMap) DiffReport {
	seen := map[string]struct{}{}
	for _, p := range candidate.Order {
		seen[p] = struct{}{}
	}
	for _, p := range repaired.Order {
		seen[p] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for p := range seen {
		names = append(names, p)
	}
	names = sortutil.StablePathSort(names)

	report := DiffReport{Parts: make([]PartDiff, 0, len(names))}
	for _, name := range names {
		cp, inCand := candidate.Get(name)
		rp, inRep := repaired.Get(name)

		switch {
		case inCand && !inRep:
			report.Parts = append(report.Parts, PartDiff{
				Path: name, Status: StatusRemoved, SizeBefore: len(cp.Bytes),
			})
		case inRep && !inCand:
			report.Parts = append(report.Parts, PartDiff{
				Path: name, Status: StatusAdded, SizeAfter: len(rp.Bytes),
			})
		case cp.Digest == rp.Digest:
			report.Parts = append(report.Parts, PartDiff{
				Path: name, Status: StatusUnchanged, SizeBefore: len(cp.Bytes), SizeAfter: len(rp.Bytes),
			})
		default:
			pd := PartDiff{Path: name, Status: StatusChanged, SizeBefore: len(cp.Bytes), SizeAfter: len(rp.Bytes)}
			if cp.IsXML() || rp.IsXML() {
				a := textutil.ToValidUTF8Text(cp.Bytes)
				b := textutil.ToValidUTF8Text(rp.Bytes)
				pd.UnifiedDiff = diff.Unified(name, name, a, b, diff.Options{Context: 3})
			}
			report.Parts = append(report.Parts, pd)
		}
	}
	return report
}
