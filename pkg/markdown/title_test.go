package markdown

import "testing"

func TestInferTitleH1(t *testing.T) {
	title, ok := InferTitle("# title\naaa\n")
	if !ok || title != "title" {
		t.Fatalf("got (%q, %v), want (\"title\", true)", title, ok)
	}
}

func TestInferTitleNoH1(t *testing.T) {
	_, ok := InferTitle("## h2\naaa\n")
	if ok {
		t.Fatalf("expected no title for a document with only an H2 heading")
	}
}

func TestInferTitleEmptyDocument(t *testing.T) {
	_, ok := InferTitle("")
	if ok {
		t.Fatalf("expected no title for an empty document")
	}
}
