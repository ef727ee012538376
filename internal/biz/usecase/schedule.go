package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/classroom-tools/lesson-tutor/internal/biz/domain"
	"github.com/classroom-tools/lesson-tutor/internal/biz/repo"
)

// ScheduleUsecase resolves today's lessons and class rosters
type ScheduleUsecase struct {
	scheduleRepo repo.ScheduleRepo
	countryCode  string
	loc          *time.Location
	now          func() time.Time
}

// NewScheduleUsecase creates a new schedule usecase.
// Today is computed by the wall clock in loc (local time when nil).
func NewScheduleUsecase(scheduleRepo repo.ScheduleRepo, countryCode string, loc *time.Location) *ScheduleUsecase {
	if loc == nil {
		loc = time.Local
	}
	return &ScheduleUsecase{
		scheduleRepo: scheduleRepo,
		countryCode:  countryCode,
		loc:          loc,
		now:          time.Now,
	}
}

// Today returns today's date string (YYYY-MM-DD)
func (uc *ScheduleUsecase) Today() string {
	return uc.now().In(uc.loc).Format(domain.DateLayout)
}

// CountryCode returns the prefix used to derive recipient identifiers
func (uc *ScheduleUsecase) CountryCode() string {
	return uc.countryCode
}

// TodayLessons returns every lesson scheduled today
func (uc *ScheduleUsecase) TodayLessons(ctx context.Context) ([]domain.Lesson, error) {
	lessons, err := uc.scheduleRepo.LessonsOn(ctx, uc.Today())
	if err != nil {
		return nil, fmt.Errorf("get lessons: %w", err)
	}
	return lessons, nil
}

// TodayLesson returns the first lesson scheduled today, nil when there is none
func (uc *ScheduleUsecase) TodayLesson(ctx context.Context) (*domain.Lesson, error) {
	lessons, err := uc.TodayLessons(ctx)
	if err != nil {
		return nil, err
	}
	if len(lessons) == 0 {
		return nil, nil
	}
	return &lessons[0], nil
}

// LessonFor returns today's lesson for a recipient.
// With several lessons today the sender's class decides; otherwise the first lesson is used.
func (uc *ScheduleUsecase) LessonFor(ctx context.Context, recipient string) (*domain.Lesson, error) {
	lessons, err := uc.TodayLessons(ctx)
	if err != nil {
		return nil, err
	}
	switch len(lessons) {
	case 0:
		return nil, nil
	case 1:
		return &lessons[0], nil
	}

	students, err := uc.scheduleRepo.AllStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("get students: %w", err)
	}

	for _, s := range students {
		if s.RecipientID(uc.countryCode) != recipient {
			continue
		}
		for i := range lessons {
			if sameClass(lessons[i].Class, s.Class) {
				return &lessons[i], nil
			}
		}
	}

	return &lessons[0], nil
}

// Roster returns the students of a class
func (uc *ScheduleUsecase) Roster(ctx context.Context, class string) ([]domain.Student, error) {
	students, err := uc.scheduleRepo.StudentsForClass(ctx, class)
	if err != nil {
		return nil, fmt.Errorf("get roster: %w", err)
	}
	return students, nil
}

func sameClass(a, b string) bool {
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}
