package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/classroom-tools/lesson-tutor/internal/biz/domain"
	"github.com/classroom-tools/lesson-tutor/internal/biz/repo"
)

// PushReport summarizes one push run
type PushReport struct {
	RunID      string            `json:"run_id"`
	Date       string            `json:"date"`
	Lessons    int               `json:"lessons"`
	Sent       int               `json:"sent"`
	Failed     int               `json:"failed"`
	Skipped    int               `json:"skipped"`
	Errors     []string          `json:"errors,omitempty"`
	Deliveries []domain.Delivery `json:"deliveries,omitempty"`
}

// Attempted returns the number of sends attempted
func (r *PushReport) Attempted() int {
	return r.Sent + r.Failed
}

// PushUsecase sends the daily lesson message to every enrolled student
type PushUsecase struct {
	scheduleUC     *ScheduleUsecase
	sessionUC      *SessionUsecase
	composer       *PromptComposer
	messenger      repo.MessengerRepo
	transcriptRepo repo.TranscriptRepo

	mu sync.Mutex // one run at a time
}

// NewPushUsecase creates a new push usecase (transcriptRepo may be nil)
func NewPushUsecase(
	scheduleUC *ScheduleUsecase,
	sessionUC *SessionUsecase,
	composer *PromptComposer,
	messenger repo.MessengerRepo,
	transcriptRepo repo.TranscriptRepo,
) *PushUsecase {
	return &PushUsecase{
		scheduleUC:     scheduleUC,
		sessionUC:      sessionUC,
		composer:       composer,
		messenger:      messenger,
		transcriptRepo: transcriptRepo,
	}
}

// Run performs one push run.
// Failures of a single student or lesson are recorded and skipped; only a failed lesson lookup aborts.
func (uc *PushUsecase) Run(ctx context.Context) (*PushReport, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	report := &PushReport{
		RunID: uuid.NewString(),
		Date:  uc.scheduleUC.Today(),
	}

	lessons, err := uc.scheduleUC.TodayLessons(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch lessons: %w", err)
	}
	report.Lessons = len(lessons)

	if len(lessons) == 0 {
		fmt.Printf("[Push] No class scheduled today (%s), skipping push\n", report.Date)
		return report, nil
	}

	fmt.Printf("[Push] Run %s: %d lesson(s) on %s\n", report.RunID, len(lessons), report.Date)

	seen := make(map[string]bool)
	for i := range lessons {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := uc.pushLesson(ctx, report, &lessons[i], seen); err != nil {
			fmt.Printf("[Push] Lesson %q skipped: %v\n", lessons[i].Class, err)
			report.Errors = append(report.Errors, fmt.Sprintf("class %s: %v", lessons[i].Class, err))
		}
	}

	fmt.Printf("[Push] Run %s done: sent=%d failed=%d skipped=%d\n", report.RunID, report.Sent, report.Failed, report.Skipped)
	return report, nil
}

func (uc *PushUsecase) pushLesson(ctx context.Context, report *PushReport, lesson *domain.Lesson, seen map[string]bool) error {
	// Fail fast on a malformed lesson row
	if _, err := uc.composer.SystemPrompt(lesson); err != nil {
		return err
	}

	students, err := uc.scheduleUC.Roster(ctx, lesson.Class)
	if err != nil {
		return err
	}
	if len(students) == 0 {
		fmt.Printf("[Push] No students in class %s\n", lesson.Class)
		return nil
	}

	cc := uc.scheduleUC.CountryCode()
	for i := range students {
		student := &students[i]
		recipient := student.RecipientID(cc)

		d := domain.Delivery{
			RunID:       report.RunID,
			LessonDate:  lesson.Date,
			Class:       lesson.Class,
			Recipient:   recipient,
			StudentName: student.Name,
		}

		switch {
		case recipient == "":
			d.Status = domain.DeliverySkipped
			d.Error = "no phone number"
		case seen[recipient]:
			d.Status = domain.DeliverySkipped
			d.Error = "duplicate recipient"
		default:
			seen[recipient] = true
			uc.send(ctx, student, lesson, &d)
		}

		uc.record(ctx, report, d)
	}

	return nil
}

func (uc *PushUsecase) send(ctx context.Context, student *domain.Student, lesson *domain.Lesson, d *domain.Delivery) {
	if _, _, err := uc.sessionUC.Resolve(ctx, d.Recipient, lesson); err != nil {
		fmt.Printf("[Push] Warning: failed to seed session for %s: %v\n", d.Recipient, err)
	}

	body := uc.composer.PushMessage(student, lesson)
	if _, err := uc.messenger.SendText(ctx, d.Recipient, body); err != nil {
		fmt.Printf("[Push-ERR] %s (%s): %v\n", student.Name, d.Recipient, err)
		d.Status = domain.DeliveryFailed
		d.Error = err.Error()
		return
	}

	fmt.Printf("[Push] %s (%s)\n", student.Name, d.Recipient)
	d.Status = domain.DeliverySent
}

func (uc *PushUsecase) record(ctx context.Context, report *PushReport, d domain.Delivery) {
	switch d.Status {
	case domain.DeliverySent:
		report.Sent++
	case domain.DeliveryFailed:
		report.Failed++
	case domain.DeliverySkipped:
		report.Skipped++
	}

	d.CreatedAt = time.Now()
	report.Deliveries = append(report.Deliveries, d)

	if uc.transcriptRepo == nil {
		return
	}
	if err := uc.transcriptRepo.RecordDelivery(ctx, &d); err != nil {
		fmt.Printf("[Push] Warning: failed to record delivery: %v\n", err)
	}
}
