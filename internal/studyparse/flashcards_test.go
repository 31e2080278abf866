package studyparse

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat/internal/model"
)

func cardsText(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "Front: Concept %d\nBack: Definition %d\n\n", i, i)
	}
	return b.String()
}

func TestParseFlashcardsStrict(t *testing.T) {
	got := ParseFlashcardsStrict(cardsText(6))
	require.Len(t, got, 6)
	assert.Equal(t, model.Flashcard{Front: "Concept 1", Back: "Definition 1"}, got[0])
}

func TestParseFlashcardsStrictCapsAtTen(t *testing.T) {
	got := ParseFlashcardsStrict(cardsText(12))
	require.Len(t, got, MaxFlashcards)
	assert.Equal(t, "Concept 10", got[9].Front)
}

func TestParseFlashcardsStrictLooseLabels(t *testing.T) {
	text := "1. Front side: Goroutine\n   Back side: Lightweight thread\n\nFRONT: Channel\nBACK: Typed pipe\n"
	got := ParseFlashcardsStrict(text)
	require.Len(t, got, 2)
	assert.Equal(t, model.Flashcard{Front: "Goroutine", Back: "Lightweight thread"}, got[0])
	assert.Equal(t, model.Flashcard{Front: "Channel", Back: "Typed pipe"}, got[1])
}

func TestParseFlashcardsStrictFrontLineClosesCompleteCard(t *testing.T) {
	text := "Front: A\nBack: 1\nFront: B\nBack: 2"
	got := ParseFlashcardsStrict(text)
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[1].Front)
}

func TestParseFlashcardsFallbackSingleLine(t *testing.T) {
	text := "Front: Alpha Back: first letter Front: Beta Back: second letter Front: Gamma back: third letter"
	assert.Empty(t, ParseFlashcardsStrict(text))

	got, err := ParseFlashcards(text)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, model.Flashcard{Front: "Alpha", Back: "first letter"}, got[0])
	assert.Equal(t, model.Flashcard{Front: "Gamma", Back: "third letter"}, got[2])
}

func TestParseFlashcardsFallbackSkipsSpanWithoutBack(t *testing.T) {
	got := ParseFlashcardsFallback("Front: orphan\nFront: X\nBack: Y")
	require.Len(t, got, 1)
	assert.Equal(t, model.Flashcard{Front: "X", Back: "Y"}, got[0])
}

func TestParseFlashcardsRunsFallbackBelowFive(t *testing.T) {
	// four strict cards; the fallback finds the same four, so strict wins the tie
	got, err := ParseFlashcards(cardsText(4))
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestParseFlashcardsTooFew(t *testing.T) {
	_, err := ParseFlashcards(cardsText(2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnparsable))
	assert.Contains(t, err.Error(), "got 2 cards")
}

func TestValidFlashcard(t *testing.T) {
	assert.True(t, ValidFlashcard(model.Flashcard{Front: "a", Back: "b"}))
	assert.False(t, ValidFlashcard(model.Flashcard{Front: "a", Back: " "}))
}
