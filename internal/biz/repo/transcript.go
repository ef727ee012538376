package repo

import (
	"context"

	"github.com/classroom-tools/lesson-tutor/internal/biz/domain"
)

// TranscriptRepo is the audit log interface (SQLite)
// Not session state: sessions are never rebuilt from it
type TranscriptRepo interface {
	// AppendTurn records one conversation turn
	AppendTurn(ctx context.Context, entry *domain.TranscriptEntry) error

	// ListTurns lists turns of a recipient, optionally filtered by lesson date
	ListTurns(ctx context.Context, recipient, lessonDate string, limit int) ([]*domain.TranscriptEntry, error)

	// RecordDelivery records one push attempt
	RecordDelivery(ctx context.Context, d *domain.Delivery) error

	// ListDeliveries lists push attempts, optionally filtered by lesson date
	ListDeliveries(ctx context.Context, lessonDate string, limit int) ([]*domain.Delivery, error)

	// Close closes the underlying database
	Close() error
}
