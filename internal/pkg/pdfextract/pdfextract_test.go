package pdfextract

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestExtractTextRejectsEmptyInput(t *testing.T) {
	_, err := ExtractText(bytes.NewReader(nil))
	if !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestExtractTextRejectsNonPDF(t *testing.T) {
	_, err := ExtractText(strings.NewReader("this is plain text, not a pdf"))
	if err == nil {
		t.Fatalf("expected error for non-pdf input")
	}
}

func TestJoinPagesKeepsOrder(t *testing.T) {
	got := JoinPages([]Page{{Number: 1, Text: "alpha "}, {Number: 2, Text: "beta"}})
	if got != "alpha beta" {
		t.Fatalf("unexpected joined text: %q", got)
	}
}

func TestNormalizeTextFoldsLigatures(t *testing.T) {
	got := normalizeText("The ﬁrst ﬂoor, ２ rooms")
	if got != "The first floor, 2 rooms" {
		t.Fatalf("unexpected normalized text: %q", got)
	}
}
