package app

import (
	"context"
	"strings"

	"pdfchat/internal/ai"
	"pdfchat/internal/model"
	"pdfchat/internal/repository"
	"pdfchat/internal/studyparse"
)

const (
	quizQuery      = "key concepts main ideas important information"
	flashcardQuery = "key concepts definitions main ideas"
	namingQuery    = "main topic subject title summary overview"

	studyTopK       = 2
	namingTopK      = 3
	studyChunkLimit = 600
	studyBudget     = 1200
	studyMinTail    = 50
	namingBudget    = 1000
	maxNameLength   = 60
)

// StudyService produces quiz questions, flashcards and conversation titles from a session's documents.
type StudyService struct {
	sessions *repository.SessionRepository
	embedder Embedder
	llm      Completer
}

func NewStudyService(sessions *repository.SessionRepository, embedder Embedder, llm Completer) *StudyService {
	return &StudyService{sessions: sessions, embedder: embedder, llm: llm}
}

func (s *StudyService) Quiz(ctx context.Context, sessionID string) ([]model.QuizQuestion, error) {
	const failure = "Failed to generate quiz"
	hits, err := s.retrieve(ctx, sessionID, quizQuery, studyTopK, "No PDF uploaded for this session. Please upload a PDF first.", failure)
	if err != nil {
		return nil, err
	}
	prompt := "Create 5 multiple-choice questions. Format:\n" +
		"Q1: [question]\n" +
		"A) [option]\n" +
		"B) [option]\n" +
		"C) [option]\n" +
		"D) [option]\n" +
		"Correct: [A/B/C/D]\n\n" +
		budgetedContext(hits) + "\n\n" +
		"Output 5 questions in the format above."

	reply, err := s.llm.Complete(ctx, ai.CompletionRequest{
		Messages:    []ai.ChatMessage{{Role: "user", Content: prompt}},
		Temperature: ai.Float(0.5),
		MaxTokens:   1000,
	})
	if err != nil {
		return nil, wrapError(ErrGenerationFailure, err, failure)
	}
	questions, err := studyparse.ParseQuiz(reply)
	if err != nil {
		return nil, wrapError(ErrGenerationFailure, err, "Failed to generate or parse quiz")
	}
	return questions, nil
}

func (s *StudyService) Flashcards(ctx context.Context, sessionID string) ([]model.Flashcard, error) {
	const failure = "Failed to generate flashcards"
	hits, err := s.retrieve(ctx, sessionID, flashcardQuery, studyTopK, "No PDF uploaded for this session. Please upload a PDF first.", failure)
	if err != nil {
		return nil, err
	}
	prompt := "Create 10 flashcards. Format:\n" +
		"Front: [concept]\n" +
		"Back: [definition]\n\n" +
		budgetedContext(hits) + "\n\n" +
		"Output 10 flashcards in the format above."

	reply, err := s.llm.Complete(ctx, ai.CompletionRequest{
		Messages:    []ai.ChatMessage{{Role: "user", Content: prompt}},
		Temperature: ai.Float(0.5),
		MaxTokens:   800,
	})
	if err != nil {
		return nil, wrapError(ErrGenerationFailure, err, failure)
	}
	cards, err := studyparse.ParseFlashcards(reply)
	if err != nil {
		return nil, wrapError(ErrGenerationFailure, err, "Failed to generate or parse flashcards")
	}
	return cards, nil
}

// ConversationName asks for a short title describing the session's documents.
func (s *StudyService) ConversationName(ctx context.Context, sessionID string) (string, error) {
	const failure = "Failed to generate conversation name"
	hits, err := s.retrieve(ctx, sessionID, namingQuery, namingTopK, "No PDF uploaded for this session.", failure)
	if err != nil {
		return "", err
	}
	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Text
	}
	pdfContext := truncateRunes(strings.Join(texts, "\n\n"), namingBudget)

	prompt := "Based on the following PDF content, generate a short and clear conversation title (maximum 5-6 words). \n" +
		"The title should summarize what the PDF is about.\n\n" +
		"PDF Content:\n" + pdfContext + "\n\n" +
		"Generate only the title, nothing else. Make it concise and descriptive."

	reply, err := s.llm.Complete(ctx, ai.CompletionRequest{
		Messages: []ai.ChatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", wrapError(ErrGenerationFailure, err, failure)
	}
	return CleanConversationName(reply), nil
}

// CleanConversationName strips surrounding quotes and whitespace and caps the title at 60 characters.
func CleanConversationName(raw string) string {
	name := strings.TrimSpace(raw)
	name = strings.TrimSpace(strings.Trim(strings.Trim(name, `"`), "'"))
	if len([]rune(name)) > maxNameLength {
		name = string([]rune(name)[:maxNameLength-3]) + "..."
	}
	return name
}

func (s *StudyService) retrieve(ctx context.Context, sessionID, query string, k int, missing, failure string) ([]model.ScoredChunk, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, newError(ErrSessionNotFound, missing)
	}
	if !s.llm.Configured() {
		return nil, newError(ErrConfiguration, "GROQ_API_KEY not configured")
	}
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, wrapError(ErrGenerationFailure, err, failure)
	}
	hits, err := session.Index.Search(ctx, vec, k)
	if err != nil {
		return nil, wrapError(ErrGenerationFailure, err, failure)
	}
	return hits, nil
}

// budgetedContext truncates each chunk to 600 characters and joins them up to 1200. A chunk
// that would overflow contributes its head only when more than 50 characters remain.
func budgetedContext(hits []model.ScoredChunk) string {
	parts := make([]string, 0, len(hits))
	total := 0
	for _, h := range hits {
		content := truncateRunes(h.Text, studyChunkLimit)
		n := len([]rune(content))
		if total+n > studyBudget {
			if remaining := studyBudget - total; remaining > studyMinTail {
				parts = append(parts, truncateRunes(content, remaining))
			}
			break
		}
		parts = append(parts, content)
		total += n
	}
	return strings.Join(parts, "\n\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
