package data

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/classroom-tools/lesson-tutor/internal/biz/domain"
	"github.com/classroom-tools/lesson-tutor/internal/biz/repo"
)

// sessionRepo implements the Session repository in memory.
// Sessions are lost on restart.
type sessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewSessionRepo creates a new in-memory Session repository
func NewSessionRepo() repo.SessionRepo {
	return &sessionRepo{sessions: make(map[string]*domain.Session)}
}

// Get gets a copy of the session of a recipient
func (r *sessionRepo) Get(ctx context.Context, recipient string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[recipient]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

// Save saves a session
func (r *sessionRepo) Save(ctx context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.Recipient] = session.Clone()
	return nil
}

// Delete deletes a session
func (r *sessionRepo) Delete(ctx context.Context, recipient string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, recipient)
	return nil
}

// AppendTurns appends turns and updates active time; a missing session is a no-op
func (r *sessionRepo) AppendTurns(ctx context.Context, recipient string, turns ...domain.Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[recipient]; ok {
		s.Append(time.Now(), turns...)
	}
	return nil
}

// CleanupStale cleans up stale sessions
func (r *sessionRepo) CleanupStale(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for k, s := range r.sessions {
		if s.UpdatedAt.Before(before) {
			delete(r.sessions, k)
			n++
		}
	}
	return n, nil
}

// ListAll lists all sessions, most recently active first
func (r *sessionRepo) ListAll(ctx context.Context) ([]*domain.Session, error) {
	r.mu.RLock()
	sessions := make([]*domain.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}
