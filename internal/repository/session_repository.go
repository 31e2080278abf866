package repository

import (
	"sync"
	"sync/atomic"
	"time"

	"pdfchat/internal/index"
)

// Session owns the merged embedding index of every document uploaded under its id.
type Session struct {
	ID        string
	Index     index.Index
	CreatedAt time.Time

	documents atomic.Int64
}

// NextDocumentOrdinal numbers uploaded documents 0, 1, 2... within the session.
func (s *Session) NextDocumentOrdinal() int {
	return int(s.documents.Add(1) - 1)
}

func (s *Session) Documents() int {
	return int(s.documents.Load())
}

// SessionRepository keeps sessions for the lifetime of the process.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	newIndex index.Factory
	now      func() time.Time
}

func NewSessionRepository(newIndex index.Factory) *SessionRepository {
	if newIndex == nil {
		newIndex = index.MemoryFactory()
	}
	return &SessionRepository{
		sessions: make(map[string]*Session),
		newIndex: newIndex,
		now:      time.Now,
	}
}

func (r *SessionRepository) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// GetOrCreate returns the session for id, creating it with an empty index when absent.
func (r *SessionRepository) GetOrCreate(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s, false
	}
	s := &Session{
		ID:        id,
		Index:     r.newIndex(id),
		CreatedAt: r.now(),
	}
	r.sessions[id] = s
	return s, true
}

// Delete removes the session only if it is still the same instance, so a rollback
// never drops a session that another request has since replaced.
func (r *SessionRepository) Delete(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[s.ID]; ok && cur == s {
		delete(r.sessions, s.ID)
	}
}

func (r *SessionRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
