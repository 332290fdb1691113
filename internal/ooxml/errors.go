package ooxml

import "fmt"

// PatchErrorKind enumerates the Patcher's fatal failure modes, per
// spec.md §7.
type PatchErrorKind string

const (
	PatchErrMatchNotFound    PatchErrorKind = "MatchNotFound"
	PatchErrAnchorNotFound   PatchErrorKind = "AnchorNotFound"
	PatchErrPartMissing      PatchErrorKind = "PartMissing"
	PatchErrDuplicatePart    PatchErrorKind = "DuplicatePart"
	PatchErrUnknownOperation PatchErrorKind = "UnknownOperation"
)

// PatchError is deterministic, precise, and identifies the offending op by
// id. It is fatal: the Patcher is all-or-nothing, so a PatchError means no
// output archive is produced.
type PatchError struct {
	Kind  PatchErrorKind
	OpID  string
	Part  string
	Cause string
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("patch error %s on op %s (part %s): %s", e.Kind, e.OpID, e.Part, e.Cause)
}

// RecipeErrorKind enumerates why a recipe was rejected before any
// mutation occurred.
type RecipeErrorKind string

const (
	RecipeErrMalformedJSON    RecipeErrorKind = "MalformedJSON"
	RecipeErrUnknownOperation RecipeErrorKind = "UnknownOperation"
	RecipeErrMissingField     RecipeErrorKind = "MissingField"
	RecipeErrBadOccurrence    RecipeErrorKind = "BadOccurrence"
	RecipeErrSchema           RecipeErrorKind = "SchemaViolation"
)

// RecipeError aggregates one or more reasons a PatchRecipe document was
// rejected; multiple issues are joined, matching the errlist idiom in
// the teacher's internal/validate/schema.go.
type RecipeError struct {
	Kind RecipeErrorKind
	Msgs []string
}

func (e *RecipeError) Error() string {
	if len(e.Msgs) == 1 {
		return fmt.Sprintf("recipe error (%s): %s", e.Kind, e.Msgs[0])
	}
	s := fmt.Sprintf("recipe error (%s): %d issues:", e.Kind, len(e.Msgs))
	for _, m := range e.Msgs {
		s += "\n  - " + m
	}
	return s
}
