package pdfextract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"
)

var ErrEmptyDocument = errors.New("pdf has no pages")

// Page is the plain text of one PDF page, numbered from 1.
type Page struct {
	Number int
	Text   string
}

// ExtractPages reads the entire content of r and extracts plain text page by page.
// Pages whose text cannot be decoded are skipped rather than failing the document.
func ExtractPages(r io.Reader) ([]Page, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf failed: %w", err)
	}
	if len(b) == 0 {
		return nil, ErrEmptyDocument
	}
	pdfReader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("open pdf failed: %w", err)
	}
	total := pdfReader.NumPage()
	if total == 0 {
		return nil, ErrEmptyDocument
	}

	pages := make([]Page, 0, total)
	for i := 1; i <= total; i++ {
		text, ok := pageText(pdfReader, i)
		if !ok {
			continue
		}
		pages = append(pages, Page{Number: i, Text: normalizeText(text)})
	}
	return pages, nil
}

// pageText recovers from decoder panics, which the pdf package raises on malformed content streams.
func pageText(r *pdf.Reader, n int) (text string, ok bool) {
	defer func() {
		if recover() != nil {
			text, ok = "", false
		}
	}()
	page := r.Page(n)
	if page.V.IsNull() {
		return "", false
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", false
	}
	return text, true
}

// normalizeText folds compatibility characters such as ligatures ("ﬁ") into plain text.
func normalizeText(text string) string {
	return norm.NFKC.String(text)
}

// ExtractText concatenates the text of every page.
// Returns empty string and nil error if the PDF has no extractable text.
func ExtractText(r io.Reader) (string, error) {
	pages, err := ExtractPages(r)
	if err != nil {
		return "", err
	}
	return JoinPages(pages), nil
}

func JoinPages(pages []Page) string {
	var b strings.Builder
	for _, p := range pages {
		b.WriteString(p.Text)
	}
	return b.String()
}
