package studyparse

import (
	"fmt"
	"regexp"
	"strings"

	"pdfchat/internal/model"
)

const (
	MaxFlashcards = 10
	MinFlashcards = 3
	// FlashcardFallbackBelow triggers the fallback scan when the strict parser finds fewer cards.
	FlashcardFallbackBelow = 5
)

var (
	frontMarker = regexp.MustCompile(`(?i)front:`)
	backMarker  = regexp.MustCompile(`(?i)back:`)
)

func ValidFlashcard(c model.Flashcard) bool {
	return strings.TrimSpace(c.Front) != "" && strings.TrimSpace(c.Back) != ""
}

func ParseFlashcards(text string) ([]model.Flashcard, error) {
	cards := ParseFlashcardsStrict(text)
	if len(cards) < FlashcardFallbackBelow {
		if fallback := ParseFlashcardsFallback(text); len(fallback) > len(cards) {
			cards = fallback
		}
	}
	if len(cards) < MinFlashcards {
		return nil, fmt.Errorf("%w: got %d cards. Response: %s", ErrUnparsable, len(cards), excerpt(text))
	}
	return cards, nil
}

type cardBlock struct {
	card     model.Flashcard
	hasFront bool
	hasBack  bool
}

// ParseFlashcardsStrict reads "Front:" / "Back:" line pairs. Lines that merely mention
// front or back before a colon (e.g. "**Front** card: ...") are accepted as well.
func ParseFlashcardsStrict(text string) []model.Flashcard {
	var (
		cards   []model.Flashcard
		current cardBlock
	)
	flush := func() {
		if current.hasFront && current.hasBack {
			cards = append(cards, current.card)
			current = cardBlock{}
		}
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			flush()
			continue
		}
		lower := strings.ToLower(line)

		switch {
		case strings.HasPrefix(lower, "front:"):
			flush()
			current.card.Front = strings.TrimSpace(line[len("front:"):])
			current.hasFront = true
		case strings.HasPrefix(lower, "back:"):
			current.card.Back = strings.TrimSpace(line[len("back:"):])
			current.hasBack = true
		case strings.Contains(lower, "front") && strings.Contains(line, ":"):
			current.card.Front = afterColon(line)
			current.hasFront = true
		case strings.Contains(lower, "back") && strings.Contains(line, ":") && !strings.Contains(lower, "front"):
			current.card.Back = afterColon(line)
			current.hasBack = true
		}
	}
	flush()

	var out []model.Flashcard
	for _, c := range cards {
		if !ValidFlashcard(c) {
			continue
		}
		out = append(out, c)
		if len(out) == MaxFlashcards {
			break
		}
	}
	return out
}

// ParseFlashcardsFallback treats every "Front:" marker as the start of a card that runs to the
// next marker; the first "Back:" inside that span separates the two sides.
func ParseFlashcardsFallback(text string) []model.Flashcard {
	starts := frontMarker.FindAllStringIndex(text, -1)
	var out []model.Flashcard
	for i, loc := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		span := text[loc[1]:end]
		back := backMarker.FindStringIndex(span)
		if back == nil {
			continue
		}
		card := model.Flashcard{
			Front: strings.TrimSpace(span[:back[0]]),
			Back:  strings.TrimSpace(span[back[1]:]),
		}
		if !ValidFlashcard(card) {
			continue
		}
		out = append(out, card)
		if len(out) == MaxFlashcards {
			break
		}
	}
	return out
}

func afterColon(line string) string {
	return strings.TrimSpace(strings.SplitN(line, ":", 2)[1])
}
