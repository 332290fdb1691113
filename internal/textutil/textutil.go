package textutil

import "bytes"

// ToValidUTF8Text decodes b as UTF-8, replacing any invalid byte sequence
// with the Unicode replacement character. It performs no other
// normalization (no newline rewriting) so byte-level diffs stay faithful to
// the part's actual content.
func ToValidUTF8Text(b []byte) string {
	return string(bytes.ToValidUTF8(b, []byte("\uFFFD")))
}
