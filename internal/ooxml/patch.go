package ooxml

import (
	"archive/zip"
	"bytes"
	"fmt"

	"triage/internal/ziputil"
)

// SkipEntry records one PatchOp that was not applied because a required
// field still carried a placeholder string (spec.md §4.6 step 4 /
// §7 PatchError::Placeholder). Skips never fail the batch.
type SkipEntry struct {
	OpID   string
	Part   string
	Field  string
	Reason string
}

// SkipLog is the ordered list of skipped operations returned alongside the
// patched archive.
type SkipLog []SkipEntry

// Apply runs recipe's patches against archive in order, per spec.md §4.6.
// It is all-or-nothing: on the first non-skippable error, no output
// archive is produced at all — this diverges deliberately from
// original_source's Python patcher, which writes whatever partial state
// it reached before failing (see DESIGN.md's Patcher entry).
func Apply(archive []byte, recipe PatchRecipe) ([]byte, SkipLog, error) {
	meta, err := entryMetadataByPath(archive)
	if err != nil {
		return nil, nil, err
	}
	parts, err := Scan(archive)
	if err != nil {
		return nil, nil, err
	}

	current := make(map[string][]byte, parts.Len())
	order := make([]string, 0, parts.Len())
	for _, path := range parts.Order {
		p, _ := parts.Get(path)
		current[path] = p.Bytes
		order = append(order, path)
	}

	var skips SkipLog
	var appended []string

	for _, op := range recipe.Patches {
		if hasPH, field := op.HasPlaceholder(); hasPH {
			skips = append(skips, SkipEntry{
				OpID: op.ID, Part: op.Part, Field: field,
				Reason: "required field carries a placeholder value",
			})
			continue
		}

		switch op.Operation {
		case OpDeletePart:
			if _, ok := current[op.Part]; !ok {
				return nil, nil, &PatchError{Kind: PatchErrPartMissing, OpID: op.ID, Part: op.Part, Cause: "delete_part on absent part"}
			}
			delete(current, op.Part)
			order = removeString(order, op.Part)

		case OpLiteralReplace:
			data, ok := current[op.Part]
			if !ok {
				return nil, nil, &PatchError{Kind: PatchErrPartMissing, OpID: op.ID, Part: op.Part, Cause: "literal_replace on absent part"}
			}
			n := op.Occurrence
			if n <= 0 {
				n = 1
			}
			replaced, ok := replaceNth(data, []byte(op.Match), []byte(op.Replacement), n)
			if !ok {
				return nil, nil, &PatchError{
					Kind: PatchErrMatchNotFound, OpID: op.ID, Part: op.Part,
					Cause: fmt.Sprintf("fewer than %d occurrence(s) of match string", n),
				}
			}
			current[op.Part] = replaced

		case OpAppendBlock:
			data, ok := current[op.Part]
			if !ok {
				return nil, nil, &PatchError{Kind: PatchErrPartMissing, OpID: op.ID, Part: op.Part, Cause: "append_block on absent part"}
			}
			idx := bytes.Index(data, []byte(op.Anchor))
			if idx < 0 {
				return nil, nil, &PatchError{Kind: PatchErrAnchorNotFound, OpID: op.ID, Part: op.Part, Cause: "anchor not found"}
			}
			insertAt := idx
			if op.Position == "after" {
				insertAt = idx + len(op.Anchor)
			}
			out := make([]byte, 0, len(data)+len(op.Block))
			out = append(out, data[:insertAt]...)
			out = append(out, op.Block...)
			out = append(out, data[insertAt:]...)
			current[op.Part] = out

		case OpSetPart:
			if containsString(appended, op.Part) {
				return nil, nil, &PatchError{Kind: PatchErrDuplicatePart, OpID: op.ID, Part: op.Part, Cause: "set_part created this part earlier in the same recipe"}
			}
			if _, existed := current[op.Part]; !existed {
				order = append(order, op.Part)
				appended = append(appended, op.Part)
			}
			current[op.Part] = []byte(op.Content)

		default:
			return nil, nil, &PatchError{Kind: PatchErrUnknownOperation, OpID: op.ID, Part: op.Part, Cause: fmt.Sprintf("unknown operation %q reached the patcher", op.Operation)}
		}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, path := range order {
		data := current[path]
		em, known := meta[path]
		method := uint16(zip.Deflate)
		modified := ziputil.FixedZipTime
		if known {
			method = em.Method
			modified = em.Modified
		}
		if err := ziputil.WritePart(zw, path, data, method, modified); err != nil {
			return nil, nil, fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, nil, fmt.Errorf("close archive: %w", err)
	}

	return buf.Bytes(), skips, nil
}

func containsString(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func removeString(s []string, v string) []string {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// replaceNth locates the N-th (1-based) non-overlapping occurrence of
// match in data and splices in replacement. Reports ok=false if fewer
// than n occurrences exist.
func replaceNth(data, match, replacement []byte, n int) ([]byte, bool) {
	if len(match) == 0 {
		return nil, false
	}
	offset := 0
	for i := 1; i <= n; i++ {
		idx := bytes.Index(data[offset:], match)
		if idx < 0 {
			return nil, false
		}
		if i == n {
			pos := offset + idx
			out := make([]byte, 0, len(data)-len(match)+len(replacement))
			out = append(out, data[:pos]...)
			out = append(out, replacement...)
			out = append(out, data[pos+len(match):]...)
			return out, true
		}
		offset += idx + len(match)
	}
	return nil, false
}
