package repo

import (
	"context"
	"time"

	"github.com/classroom-tools/lesson-tutor/internal/biz/domain"
)

// SessionRepo is the session repository interface
// Responsible for in-memory session state, keyed by recipient
type SessionRepo interface {
	// Get gets a copy of the session of a recipient (nil if none)
	Get(ctx context.Context, recipient string) (*domain.Session, error)

	// Save saves a session (create or replace)
	Save(ctx context.Context, session *domain.Session) error

	// Delete deletes a session
	Delete(ctx context.Context, recipient string) error

	// AppendTurns appends turns to the session history and updates active time
	AppendTurns(ctx context.Context, recipient string, turns ...domain.Turn) error

	// CleanupStale removes sessions not updated since before
	CleanupStale(ctx context.Context, before time.Time) (int64, error)

	// ListAll lists all sessions (for debugging)
	ListAll(ctx context.Context) ([]*domain.Session, error)
}
