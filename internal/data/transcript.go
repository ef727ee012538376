package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/classroom-tools/lesson-tutor/internal/biz/domain"
	"github.com/classroom-tools/lesson-tutor/internal/biz/repo"

	_ "modernc.org/sqlite"
)

const defaultListLimit = 100

// transcriptRepo implements the Transcript repository
type transcriptRepo struct {
	db *sql.DB
}

// NewTranscriptRepo creates a new Transcript repository
func NewTranscriptRepo(dbPath string) (repo.TranscriptRepo, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer at a time
	db.SetMaxOpenConns(1)

	// Create tables
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS transcript (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recipient TEXT NOT NULL,
			lesson_date TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create transcript table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS deliveries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			lesson_date TEXT NOT NULL,
			class TEXT NOT NULL DEFAULT '',
			recipient TEXT NOT NULL DEFAULT '',
			student_name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create deliveries table: %w", err)
	}

	// Create indexes
	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_transcript_recipient ON transcript(recipient, lesson_date)`,
		`CREATE INDEX IF NOT EXISTS idx_deliveries_date ON deliveries(lesson_date)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create index: %w", err)
		}
	}

	return &transcriptRepo{db: db}, nil
}

// AppendTurn records one conversation turn
func (r *transcriptRepo) AppendTurn(ctx context.Context, entry *domain.TranscriptEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO transcript (recipient, lesson_date, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		entry.Recipient,
		entry.LessonDate,
		string(entry.Role),
		entry.Content,
		entry.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	entry.ID, _ = result.LastInsertId()
	return nil
}

// ListTurns lists turns of a recipient in chronological order (the most recent limit turns)
func (r *transcriptRepo) ListTurns(ctx context.Context, recipient, lessonDate string, limit int) ([]*domain.TranscriptEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, recipient, lesson_date, role, content, created_at FROM (
			SELECT id, recipient, lesson_date, role, content, created_at
			FROM transcript
			WHERE recipient = ? AND (? = '' OR lesson_date = ?)
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC
	`, recipient, lessonDate, lessonDate, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	defer rows.Close()

	var entries []*domain.TranscriptEntry
	for rows.Next() {
		var e domain.TranscriptEntry
		var role string
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.Recipient, &e.LessonDate, &role, &e.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		e.Role = domain.Role(role)
		e.CreatedAt = time.UnixMilli(createdAt)
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// RecordDelivery records one push attempt
func (r *transcriptRepo) RecordDelivery(ctx context.Context, d *domain.Delivery) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO deliveries (run_id, lesson_date, class, recipient, student_name, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		d.RunID,
		d.LessonDate,
		d.Class,
		d.Recipient,
		d.StudentName,
		string(d.Status),
		d.Error,
		d.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	d.ID, _ = result.LastInsertId()
	return nil
}

// ListDeliveries lists push attempts, newest first
func (r *transcriptRepo) ListDeliveries(ctx context.Context, lessonDate string, limit int) ([]*domain.Delivery, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_id, lesson_date, class, recipient, student_name, status, error, created_at
		FROM deliveries
		WHERE ? = '' OR lesson_date = ?
		ORDER BY id DESC
		LIMIT ?
	`, lessonDate, lessonDate, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []*domain.Delivery
	for rows.Next() {
		var d domain.Delivery
		var status string
		var createdAt int64
		if err := rows.Scan(&d.ID, &d.RunID, &d.LessonDate, &d.Class, &d.Recipient, &d.StudentName, &status, &d.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		d.Status = domain.DeliveryStatus(status)
		d.CreatedAt = time.UnixMilli(createdAt)
		deliveries = append(deliveries, &d)
	}

	return deliveries, rows.Err()
}

// Close closes the database connection
func (r *transcriptRepo) Close() error {
	return r.db.Close()
}
