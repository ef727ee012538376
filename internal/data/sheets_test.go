package data

import (
	"context"
	"errors"
	"testing"

	"github.com/classroom-tools/lesson-tutor/internal/infra/sheets"
)

type mockRecordReader struct {
	sheets map[string][]sheets.Record
	err    error
	reads  []string
}

func (m *mockRecordReader) Records(ctx context.Context, sheetName string) ([]sheets.Record, error) {
	m.reads = append(m.reads, sheetName)
	if m.err != nil {
		return nil, m.err
	}
	return m.sheets[sheetName], nil
}

var testSheetNames = SheetNames{CoursePlan: "Course Plan", Students: "Student"}

func newTestReader() *mockRecordReader {
	return &mockRecordReader{sheets: map[string][]sheets.Record{
		"Course Plan": {
			{"Schedule Date": "2026-03-09", "Topic": "Cells", "Class": "7A", "Teacher": "Ms. Rao", "Subject": "Science"},
			{"Schedule Date": " 2026-03-10 ", "Topic": "Photosynthesis", "Class": "7A ", "Teacher": "Ms. Rao", "Subject": "Science"},
			{"Schedule Date": "2026-03-10", "Topic": "Fractions", "Class": "8B", "Teacher": "Mr. Iyer", "Subject": "Maths"},
		},
		"Student": {
			{"Student Name": "Asha", "Whatsapp Number": "+91 98765 43210", "Class": "7A"},
			{"Student Name": "Bala", "Whatsapp Number": "9876543211", "Class": " 7A"},
			{"Student Name": "Ravi", "Whatsapp Number": "9123456780", "Class": "8B"},
		},
	}}
}

func TestLessonsOn(t *testing.T) {
	r := NewScheduleRepo(newTestReader(), testSheetNames)

	lessons, err := r.LessonsOn(context.Background(), "2026-03-10")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(lessons) != 2 {
		t.Fatalf("Expected 2 lessons, got %d", len(lessons))
	}
	if lessons[0].Topic != "Photosynthesis" || lessons[0].Class != "7A" || lessons[0].Date != "2026-03-10" {
		t.Errorf("Unexpected first lesson: %+v", lessons[0])
	}

	none, err := r.LessonsOn(context.Background(), "2026-03-12")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected no lessons, got %d", len(none))
	}
}

func TestStudentsForClass(t *testing.T) {
	reader := newTestReader()
	r := NewScheduleRepo(reader, testSheetNames)

	students, err := r.StudentsForClass(context.Background(), "7A")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(students) != 2 {
		t.Fatalf("Expected 2 students, got %d", len(students))
	}
	if students[0].Phone != "919876543210" {
		t.Errorf("Expected normalized phone '919876543210', got '%s'", students[0].Phone)
	}
	if reader.reads[0] != "Student" {
		t.Errorf("Expected student sheet to be read, got %v", reader.reads)
	}
}

func TestScheduleRepo_PropagatesErrors(t *testing.T) {
	reader := &mockRecordReader{err: errors.New("permission denied")}
	r := NewScheduleRepo(reader, testSheetNames)

	if _, err := r.LessonsOn(context.Background(), "2026-03-10"); err == nil {
		t.Error("Expected error from LessonsOn")
	}
	if _, err := r.StudentsForClass(context.Background(), "7A"); err == nil {
		t.Error("Expected error from StudentsForClass")
	}
}
