package repo

import (
	"context"

	"github.com/classroom-tools/lesson-tutor/internal/biz/domain"
)

// ScheduleRepo is the course plan and roster interface
// Fetches from the spreadsheet on every call, nothing is cached
type ScheduleRepo interface {
	// LessonsOn returns every lesson whose date equals date (YYYY-MM-DD)
	LessonsOn(ctx context.Context, date string) ([]domain.Lesson, error)

	// StudentsForClass returns the roster of a class
	StudentsForClass(ctx context.Context, class string) ([]domain.Student, error)

	// AllStudents returns every roster row
	AllStudents(ctx context.Context) ([]domain.Student, error)
}
