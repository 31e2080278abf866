// Package studyparse turns free-form model replies into quiz questions and flashcards.
// Each format has a line-oriented strict parser and a regex fallback; both stages share
// one validity predicate so a record that one stage rejects the other cannot sneak in.
package studyparse

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"pdfchat/internal/model"
)

const (
	MaxQuizQuestions = 5
	MinQuizQuestions = 3

	excerptLen = 200
)

var ErrUnparsable = errors.New("unparsable model output")

var quizFallbackPattern = regexp.MustCompile(`(?is)Q\d+:\s*(.+?)\nA\)\s*(.+?)\nB\)\s*(.+?)\nC\)\s*(.+?)\nD\)\s*(.+?)\nCorrect:\s*([A-D])`)

// ValidQuestion requires every field to be non-empty and the answer to be a single label A-D.
func ValidQuestion(q model.QuizQuestion) bool {
	for _, v := range []string{q.Question, q.A, q.B, q.C, q.D} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	switch q.Correct {
	case "A", "B", "C", "D":
		return true
	}
	return false
}

// ParseQuiz runs the strict parser and, when it yields fewer than MinQuizQuestions, the
// fallback; the stage with more valid questions wins. Fewer than MinQuizQuestions is an error.
func ParseQuiz(text string) ([]model.QuizQuestion, error) {
	questions := ParseQuizStrict(text)
	if len(questions) < MinQuizQuestions {
		if fallback := ParseQuizFallback(text); len(fallback) > len(questions) {
			questions = fallback
		}
	}
	if len(questions) < MinQuizQuestions {
		return nil, fmt.Errorf("%w: got %d questions. Response: %s", ErrUnparsable, len(questions), excerpt(text))
	}
	return questions, nil
}

type quizBlock struct {
	q           model.QuizQuestion
	hasQuestion bool
	hasCorrect  bool
}

func (b *quizBlock) complete() bool {
	return b.hasQuestion && b.hasCorrect
}

// ParseQuizStrict reads one block per question: a "Q..." line, option lines "A)".."D)"
// (or "A." etc.), and a "Correct:" line. Blank lines and new question lines close a block.
func ParseQuizStrict(text string) []model.QuizQuestion {
	var (
		blocks  []model.QuizQuestion
		current quizBlock
	)
	flush := func() {
		if current.complete() {
			blocks = append(blocks, current.q)
			current = quizBlock{}
		}
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			flush()
			continue
		}
		upper := strings.ToUpper(line)

		if strings.HasPrefix(upper, "Q") && (strings.Contains(line, ":") || secondIsDigit(line)) {
			flush()
			current = quizBlock{q: model.QuizQuestion{Question: line}, hasQuestion: true}
			continue
		}
		if label, value, ok := optionLine(line, upper); ok {
			switch label {
			case 'A':
				current.q.A = value
			case 'B':
				current.q.B = value
			case 'C':
				current.q.C = value
			case 'D':
				current.q.D = value
			}
			continue
		}
		if strings.Contains(strings.ToLower(line), "correct") && strings.Contains(line, ":") {
			answer := strings.ToUpper(strings.TrimSpace(strings.SplitN(line, ":", 2)[1]))
			if answer != "" {
				r, _ := utf8.DecodeRuneInString(answer)
				current.q.Correct = string(r)
				current.hasCorrect = true
			}
		}
	}
	flush()

	var out []model.QuizQuestion
	for _, q := range blocks {
		q.Question = stripQuestionPrefix(q.Question)
		if !ValidQuestion(q) {
			continue
		}
		out = append(out, q)
		if len(out) == MaxQuizQuestions {
			break
		}
	}
	return out
}

// ParseQuizFallback scans for the exact "Q#: / A) / B) / C) / D) / Correct:" layout anywhere in text.
func ParseQuizFallback(text string) []model.QuizQuestion {
	var out []model.QuizQuestion
	for _, m := range quizFallbackPattern.FindAllStringSubmatch(text, -1) {
		q := model.QuizQuestion{
			Question: strings.TrimSpace(m[1]),
			A:        strings.TrimSpace(m[2]),
			B:        strings.TrimSpace(m[3]),
			C:        strings.TrimSpace(m[4]),
			D:        strings.TrimSpace(m[5]),
			Correct:  strings.ToUpper(strings.TrimSpace(m[6])),
		}
		if !ValidQuestion(q) {
			continue
		}
		out = append(out, q)
		if len(out) == MaxQuizQuestions {
			break
		}
	}
	return out
}

// optionLine matches "A)" in any case, or "A." in upper case followed by text.
func optionLine(line, upper string) (byte, string, bool) {
	for _, label := range []byte{'A', 'B', 'C', 'D'} {
		paren := string(label) + ")"
		dot := string(label) + "."
		if strings.HasPrefix(upper, paren) || (strings.HasPrefix(line, dot) && len(line) > 2) {
			return label, strings.TrimSpace(line[2:]), true
		}
	}
	return 0, "", false
}

func secondIsDigit(line string) bool {
	runes := []rune(line)
	return len(runes) > 1 && unicode.IsDigit(runes[1])
}

func stripQuestionPrefix(q string) string {
	q = strings.TrimSpace(q)
	if strings.HasPrefix(q, "Q") && strings.Contains(q, ":") {
		return strings.TrimSpace(strings.SplitN(q, ":", 2)[1])
	}
	return q
}

func excerpt(text string) string {
	if utf8.RuneCountInString(text) <= excerptLen {
		return text
	}
	return string([]rune(text)[:excerptLen])
}
