package textutil

import "testing"

func TestToValidUTF8TextReplacesInvalidBytes(t *testing.T) {
	in := []byte{'a', 0xff, 'b'}
	out := ToValidUTF8Text(in)
	if out == "" || out == string(in) {
		t.Fatalf("expected invalid byte replaced, got %q", out)
	}
}

func TestToValidUTF8TextPreservesLineEndings(t *testing.T) {
	in := []byte("a\r\nb\n")
	out := ToValidUTF8Text(in)
	if out != "a\r\nb\n" {
		t.Fatalf("expected line endings preserved verbatim, got %q", out)
	}
}
