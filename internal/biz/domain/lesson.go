package domain

import "strings"

// DateLayout is the format of the "Schedule Date" column
const DateLayout = "2006-01-02"

// Lesson represents one scheduled class (read-only snapshot from the course plan)
type Lesson struct {
	Date    string
	Topic   string
	Class   string
	Teacher string
	Subject string
}

// Key identifies the lesson a conversation is bound to
func (l *Lesson) Key() string {
	return strings.Join([]string{l.Date, l.Class, l.Topic}, "|")
}

// MissingFields returns the names of empty fields a tutor prompt needs
func (l *Lesson) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(l.Topic) == "" {
		missing = append(missing, "topic")
	}
	if strings.TrimSpace(l.Subject) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(l.Teacher) == "" {
		missing = append(missing, "teacher")
	}
	if strings.TrimSpace(l.Class) == "" {
		missing = append(missing, "class")
	}
	return missing
}

// IsOn checks if the lesson is scheduled on the given date (exact string match)
func (l *Lesson) IsOn(date string) bool {
	return strings.TrimSpace(l.Date) == date
}
