package data

import (
	"context"
	"strings"

	"github.com/classroom-tools/lesson-tutor/internal/biz/domain"
	"github.com/classroom-tools/lesson-tutor/internal/biz/repo"
	"github.com/classroom-tools/lesson-tutor/internal/infra/sheets"
)

// Column headers of the course plan and student sheets
const (
	colScheduleDate = "Schedule Date"
	colTopic        = "Topic"
	colClass        = "Class"
	colTeacher      = "Teacher"
	colSubject      = "Subject"
	colStudentName  = "Student Name"
	colWhatsapp     = "Whatsapp Number"
)

// RecordReader reads a worksheet as header-keyed rows
type RecordReader interface {
	Records(ctx context.Context, sheetName string) ([]sheets.Record, error)
}

// SheetNames names the two worksheets
type SheetNames struct {
	CoursePlan string
	Students   string
}

// scheduleRepo implements the schedule repository on top of a spreadsheet
type scheduleRepo struct {
	reader RecordReader
	names  SheetNames
}

// NewScheduleRepo creates a new schedule repository
func NewScheduleRepo(reader RecordReader, names SheetNames) repo.ScheduleRepo {
	return &scheduleRepo{reader: reader, names: names}
}

// LessonsOn returns the lessons scheduled on date, in sheet order
func (r *scheduleRepo) LessonsOn(ctx context.Context, date string) ([]domain.Lesson, error) {
	records, err := r.reader.Records(ctx, r.names.CoursePlan)
	if err != nil {
		return nil, err
	}

	var lessons []domain.Lesson
	for _, rec := range records {
		lesson := domain.Lesson{
			Date:    strings.TrimSpace(rec[colScheduleDate]),
			Topic:   strings.TrimSpace(rec[colTopic]),
			Class:   strings.TrimSpace(rec[colClass]),
			Teacher: strings.TrimSpace(rec[colTeacher]),
			Subject: strings.TrimSpace(rec[colSubject]),
		}
		if lesson.IsOn(date) {
			lessons = append(lessons, lesson)
		}
	}
	return lessons, nil
}

// StudentsForClass returns the roster of a class
func (r *scheduleRepo) StudentsForClass(ctx context.Context, class string) ([]domain.Student, error) {
	all, err := r.AllStudents(ctx)
	if err != nil {
		return nil, err
	}

	class = strings.TrimSpace(class)
	var students []domain.Student
	for _, s := range all {
		if s.Class == class {
			students = append(students, s)
		}
	}
	return students, nil
}

// AllStudents returns every student row, phones normalized to digits
func (r *scheduleRepo) AllStudents(ctx context.Context) ([]domain.Student, error) {
	records, err := r.reader.Records(ctx, r.names.Students)
	if err != nil {
		return nil, err
	}

	students := make([]domain.Student, 0, len(records))
	for _, rec := range records {
		students = append(students, domain.Student{
			Name:  strings.TrimSpace(rec[colStudentName]),
			Phone: domain.NormalizePhone(rec[colWhatsapp]),
			Class: strings.TrimSpace(rec[colClass]),
		})
	}
	return students, nil
}
