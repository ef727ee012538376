package domain

import "time"

// Session represents a student's tutoring conversation bound to one lesson
type Session struct {
	ID           string
	Recipient    string
	LessonKey    string
	LessonDate   string
	Topic        string
	SystemPrompt string
	History      []Turn
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SessionConfig represents session configuration (value object)
type SessionConfig struct {
	IdleTimeout time.Duration // Idle timeout (0 to disable)
	ResetHour   int           // Daily reset hour (0-23, -1 to disable)
}

// IsFresh checks if session is still valid at now
func (s *Session) IsFresh(cfg SessionConfig, now time.Time) bool {
	// Check idle timeout
	if cfg.IdleTimeout > 0 {
		if now.Sub(s.UpdatedAt) > cfg.IdleTimeout {
			return false
		}
	}

	// Check daily reset
	if cfg.ResetHour >= 0 && cfg.ResetHour < 24 {
		resetTime := time.Date(now.Year(), now.Month(), now.Day(), cfg.ResetHour, 0, 0, 0, now.Location())

		if now.After(resetTime) && s.UpdatedAt.Before(resetTime) {
			return false
		}

		if now.Before(resetTime) {
			yesterdayReset := resetTime.Add(-24 * time.Hour)
			if s.UpdatedAt.Before(yesterdayReset) {
				return false
			}
		}
	}

	return true
}

// BelongsTo checks if the session was seeded for the given lesson
func (s *Session) BelongsTo(l *Lesson) bool {
	return l != nil && s.LessonKey == l.Key()
}

// Append records turns in order and updates active time
func (s *Session) Append(now time.Time, turns ...Turn) {
	s.History = append(s.History, turns...)
	s.UpdatedAt = now
}

// Window returns the most recent max turns (all of them when max <= 0)
func (s *Session) Window(max int) []Turn {
	if max <= 0 || len(s.History) <= max {
		return s.History
	}
	return s.History[len(s.History)-max:]
}

// Clone returns a copy that shares no history storage with s
func (s *Session) Clone() *Session {
	c := *s
	c.History = make([]Turn, len(s.History))
	copy(c.History, s.History)
	return &c
}
