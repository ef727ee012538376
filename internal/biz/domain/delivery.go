package domain

import "time"

// DeliveryStatus is the outcome of one push attempt
type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
	DeliverySkipped DeliveryStatus = "skipped"
)

// Delivery records a push attempt to one student
type Delivery struct {
	ID          int64          `json:"id,omitempty"`
	RunID       string         `json:"run_id"`
	LessonDate  string         `json:"lesson_date"`
	Class       string         `json:"class"`
	Recipient   string         `json:"recipient"`
	StudentName string         `json:"student_name"`
	Status      DeliveryStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TranscriptEntry is a persisted conversation turn
type TranscriptEntry struct {
	ID         int64     `json:"id,omitempty"`
	Recipient  string    `json:"recipient"`
	LessonDate string    `json:"lesson_date"`
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}
