package repository

import (
	"context"
	"sync"

	"pdfchat/internal/model"
)

// CodeRepository is the in-process one-time-code store. Records are kept in issue order
// per (purpose, email) and are never pruned.
type CodeRepository struct {
	mu      sync.Mutex
	records map[string][]model.CodeRecord
}

func NewCodeRepository() *CodeRepository {
	return &CodeRepository{records: make(map[string][]model.CodeRecord)}
}

func (r *CodeRepository) Append(_ context.Context, email string, rec model.CodeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := codeKey(rec.Purpose, email)
	r.records[key] = append(r.records[key], rec)
	return nil
}

func (r *CodeRepository) List(_ context.Context, purpose model.CodePurpose, email string) ([]model.CodeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	recs := r.records[codeKey(purpose, email)]
	out := make([]model.CodeRecord, len(recs))
	copy(out, recs)
	return out, nil
}

// MarkUsed flips the used flag and reports whether this call was the one that flipped it.
func (r *CodeRepository) MarkUsed(_ context.Context, purpose model.CodePurpose, email, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	recs := r.records[codeKey(purpose, email)]
	for i := range recs {
		if recs[i].ID != id {
			continue
		}
		if recs[i].Used {
			return false, nil
		}
		recs[i].Used = true
		return true, nil
	}
	return false, nil
}

func codeKey(purpose model.CodePurpose, email string) string {
	return string(purpose) + ":" + email
}
