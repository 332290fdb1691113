// Package ooxml implements the triage engine's core pipeline: Scanner,
// GateChecks, Diff, PatternClassifier, RecipeBuilder, and Patcher. Every
// function here is pure — byte buffers and values in, byte buffers and
// values out. No stage opens a file, keeps a cache, or mutates shared
// state.
package ooxml

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// Part is one entry of an OOXML package: its path, its exact uncompressed
// bytes, and a content digest used for change detection.
type Part struct {
	Path   string
	Bytes  []byte
	Digest [32]byte
}

// DigestHex returns the part digest as a lowercase hex string.
func (p Part) DigestHex() string {
	return fmt.Sprintf("%x", p.Digest)
}

// IsXML reports whether the part's path ends in ".xml" (case-sensitive,
// matching OOXML convention).
func (p Part) IsXML() bool {
	return strings.HasSuffix(p.Path, ".xml")
}

// PartMap is an ordered, duplicate-free collection of Parts: archive order
// is preserved in Order, and Paths are unique (Scanner's own invariant).
type PartMap struct {
	Order []string
	byKey map[string]Part
}

// Get returns the part at path and whether it exists.
func (m PartMap) Get(path string) (Part, bool) {
	p, ok := m.byKey[path]
	return p, ok
}

// Has reports whether path exists in the map.
func (m PartMap) Has(path string) bool {
	_, ok := m.byKey[path]
	return ok
}

// Len returns the number of parts.
func (m PartMap) Len() int { return len(m.Order) }

// SortedPaths returns all paths sorted lexicographically, stably.
func (m PartMap) SortedPaths() []string {
	out := make([]string, len(m.Order))
	copy(out, m.Order)
	sort.Strings(out)
	return out
}

// ArchiveError is fatal: the input buffer could not be read as a valid
// OOXML package.
type ArchiveError struct {
	Reason string
	Err    error
}

func (e *ArchiveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("archive error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("archive error: %s", e.Reason)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

// Scan opens archive as a ZIP container and produces a PartMap: entries are
// enumerated in central-directory order, directory entries (zero-length,
// trailing '/') are filtered, and a SHA-256 digest is computed over each
// entry's uncompressed bytes. It performs no XML parsing.
//
// Fails with ArchiveError when archive is not a valid ZIP, a member cannot
// be read, or two entries share the same name.
func Scan(archive []byte) (PartMap, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return PartMap{}, &ArchiveError{Reason: "not a valid ZIP container", Err: err}
	}

	m := PartMap{byKey: make(map[string]Part, len(zr.File))}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		if _, dup := m.byKey[f.Name]; dup {
			return PartMap{}, &ArchiveError{Reason: fmt.Sprintf("duplicate entry %q", f.Name)}
		}
		rc, err := f.Open()
		if err != nil {
			return PartMap{}, &ArchiveError{Reason: fmt.Sprintf("open entry %q", f.Name), Err: err}
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return PartMap{}, &ArchiveError{Reason: fmt.Sprintf("read entry %q", f.Name), Err: err}
		}
		m.Order = append(m.Order, f.Name)
		m.byKey[f.Name] = Part{
			Path:   f.Name,
			Bytes:  data,
			Digest: sha256.Sum256(data),
		}
	}
	return m, nil
}

// entryMetadata is the ZIP-level bookkeeping a Part itself does not carry
// (spec.md's Part attributes are path/bytes/digest only): the original
// compression method and modification time, re-derived from the source
// archive so the Patcher can preserve them on re-emit.
type entryMetadata struct {
	Method   uint16
	Modified time.Time
}

// entryMetadataByPath reports original compression method and mod time for
// every non-directory entry in archive, used by the Patcher to preserve
// the patch-fidelity invariant for untouched parts.
func entryMetadataByPath(archive []byte) (map[string]entryMetadata, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, &ArchiveError{Reason: "not a valid ZIP container", Err: err}
	}
	out := make(map[string]entryMetadata, len(zr.File))
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		out[f.Name] = entryMetadata{Method: f.Method, Modified: f.Modified}
	}
	return out, nil
}
