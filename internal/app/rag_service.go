package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"pdfchat/internal/ai"
	"pdfchat/internal/index"
	"pdfchat/internal/model"
	"pdfchat/internal/pkg/logging"
	"pdfchat/internal/pkg/pdfextract"
	"pdfchat/internal/pkg/textsplit"
	"pdfchat/internal/repository"
)

const (
	defaultChatTopK     = 10
	defaultHistoryTurns = 3

	chatInstruction = "You are a helpful chatbot. Answer using the information found in the uploaded PDF documents. " +
		"Search across ALL available documents to provide a comprehensive answer. " +
		"Be clear, friendly, and helpful."
	contextPreamble = "Use the following pieces of context to answer the question at the end. " +
		"If you don't know the answer, just say that you don't know, don't try to make up an answer."
)

// TextExtractor turns an uploaded file into plain text.
type TextExtractor func(r io.Reader) (string, error)

type RAGOptions struct {
	ChatTopK     int
	HistoryTurns int
	Author       string
}

type RAGService struct {
	sessions *repository.SessionRepository
	history  HistoryStore
	embedder Embedder
	llm      Completer
	splitter *textsplit.Splitter
	extract  TextExtractor
	opts     RAGOptions
	now      func() time.Time
}

func NewRAGService(
	sessions *repository.SessionRepository,
	history HistoryStore,
	embedder Embedder,
	llm Completer,
	splitter *textsplit.Splitter,
	opts RAGOptions,
) *RAGService {
	if opts.ChatTopK <= 0 {
		opts.ChatTopK = defaultChatTopK
	}
	if opts.HistoryTurns <= 0 {
		opts.HistoryTurns = defaultHistoryTurns
	}
	if opts.Author == "" {
		opts.Author = "FasarliAI"
	}
	if splitter == nil {
		splitter = textsplit.New(0, 0)
	}
	return &RAGService{
		sessions: sessions,
		history:  history,
		embedder: embedder,
		llm:      llm,
		splitter: splitter,
		extract:  pdfextract.ExtractText,
		opts:     opts,
		now:      time.Now,
	}
}

// WithExtractor replaces the PDF text extractor.
func (s *RAGService) WithExtractor(extract TextExtractor) *RAGService {
	s.extract = extract
	return s
}

type UploadInput struct {
	FileName  string
	File      io.Reader
	SessionID string
}

type UploadResult struct {
	SessionID   string `json:"session_id"`
	Message     string `json:"message"`
	ChunksCount int    `json:"chunks_count"`
	Merged      bool   `json:"-"`
}

// Upload extracts, chunks and embeds one PDF and merges it into the session index.
// An unknown session id starts a new session under that id.
func (s *RAGService) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	if !strings.EqualFold(filepath.Ext(input.FileName), ".pdf") {
		return nil, newError(ErrInvalidInput, "File must be a PDF")
	}
	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	text, err := s.extract(input.File)
	if err != nil {
		return nil, wrapError(ErrInvalidInput, err, "Failed to read PDF")
	}
	if strings.TrimSpace(text) == "" {
		return nil, newError(ErrInvalidInput, "No text could be extracted from the PDF")
	}

	pieces := s.splitter.Split(text)
	vectors, err := s.embedder.EmbedDocuments(ctx, pieces)
	if err != nil {
		return nil, wrapError(ErrGenerationFailure, err, "Failed to process PDF")
	}

	session, created := s.sessions.GetOrCreate(sessionID)
	if created {
		// History may outlive the process when it is kept in Redis.
		if err := s.history.DeleteHistory(ctx, session.ID); err != nil {
			s.sessions.Delete(session)
			return nil, wrapError(ErrGenerationFailure, err, "Failed to process PDF")
		}
	}
	ordinal := session.NextDocumentOrdinal()
	chunks := make([]model.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = model.Chunk{
			Text:     p,
			Source:   filepath.Base(input.FileName),
			Document: ordinal,
			Ordinal:  i,
		}
	}

	fresh, err := index.Build(chunks, vectors)
	if err == nil {
		err = session.Index.Merge(ctx, fresh)
	}
	if err != nil {
		if created {
			s.sessions.Delete(session)
		}
		return nil, wrapError(ErrGenerationFailure, err, "Failed to process PDF")
	}

	result := &UploadResult{
		SessionID:   sessionID,
		Message:     "PDF processed successfully",
		ChunksCount: len(chunks),
		Merged:      !created,
	}
	if result.Merged {
		result.Message = "PDF processed successfully. Combined with existing PDFs."
		logging.FromContext(ctx).Info("pdf merged into session", "session_id", sessionID, "chunks", len(chunks), "document", ordinal)
	} else {
		logging.FromContext(ctx).Info("session created", "session_id", sessionID, "chunks", len(chunks))
	}
	return result, nil
}

type ChatInput struct {
	SessionID      string
	Question       string
	ConversationID string
}

type ChatResult struct {
	ID        string              `json:"id"`
	Author    string              `json:"author"`
	Content   string              `json:"content"`
	Sources   []map[string]string `json:"sources"`
	Timestamp time.Time           `json:"timestamp"`
}

// Chat answers a question from the session's merged index with one model call.
func (s *RAGService) Chat(ctx context.Context, input ChatInput) (*ChatResult, error) {
	session, ok := s.sessions.Get(input.SessionID)
	if !ok {
		return nil, newError(ErrSessionNotFound, "No PDF uploaded for this session. Please upload a PDF first.")
	}
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, newError(ErrInvalidInput, "Question must not be empty")
	}
	if !s.llm.Configured() {
		return nil, newError(ErrConfiguration, "GROQ_API_KEY not configured")
	}

	queryVec, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, wrapError(ErrGenerationFailure, err, "Failed to get answer")
	}
	hits, err := session.Index.Search(ctx, queryVec, s.opts.ChatTopK)
	if err != nil {
		return nil, wrapError(ErrGenerationFailure, err, "Failed to get answer")
	}
	turns, err := s.history.Recent(ctx, session.ID, s.opts.HistoryTurns)
	if err != nil {
		return nil, wrapError(ErrGenerationFailure, err, "Failed to get answer")
	}

	answer, err := s.llm.Complete(ctx, ai.CompletionRequest{Messages: buildChatMessages(hits, turns, question)})
	if err != nil {
		return nil, wrapError(ErrGenerationFailure, err, "Failed to get answer")
	}

	now := s.now()
	if err := s.history.Append(ctx, session.ID, model.Turn{Question: question, Answer: answer, CreatedAt: now}); err != nil {
		logging.FromContext(ctx).Warn("append chat history failed", "session_id", session.ID, "error", err)
	}
	return &ChatResult{
		ID:        uuid.NewString(),
		Author:    s.opts.Author,
		Content:   answer,
		Sources:   []map[string]string{},
		Timestamp: now,
	}, nil
}

func buildChatMessages(hits []model.ScoredChunk, turns []model.Turn, question string) []ai.ChatMessage {
	var user strings.Builder
	user.WriteString(contextPreamble)
	user.WriteString("\n\n")
	for i, h := range hits {
		if i > 0 {
			user.WriteString("\n\n")
		}
		user.WriteString(h.Text)
	}
	user.WriteString("\n\n")
	if len(turns) > 0 {
		user.WriteString("Previous conversation:\n")
		for i, t := range turns {
			if i > 0 {
				user.WriteString("\n")
			}
			fmt.Fprintf(&user, "Q: %s\nA: %s", t.Question, t.Answer)
		}
		user.WriteString("\n\nCurrent question: ")
	} else {
		user.WriteString("Question: ")
	}
	user.WriteString(question)

	return []ai.ChatMessage{
		{Role: "system", Content: chatInstruction},
		{Role: "user", Content: user.String()},
	}
}
