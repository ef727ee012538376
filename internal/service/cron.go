package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/classroom-tools/lesson-tutor/internal/biz/usecase"
)

const defaultCleanupInterval = 6 * time.Hour

// PushRunner runs one push
type PushRunner interface {
	Run(ctx context.Context) (*usecase.PushReport, error)
}

// SessionCleaner evicts stale sessions
type SessionCleaner interface {
	CleanupStale(ctx context.Context) (int64, error)
}

// PushSchedule contains the daily push time
type PushSchedule struct {
	Hour       int
	Minute     int
	Location   *time.Location
	RunOnStart bool
}

// PushScheduler runs the daily push and the session cleanup
type PushScheduler struct {
	pushUC   PushRunner
	cleaner  SessionCleaner
	schedule PushSchedule

	cleanupInterval time.Duration
	now             func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPushScheduler creates a new push scheduler (cleaner may be nil)
func NewPushScheduler(pushUC PushRunner, cleaner SessionCleaner, schedule PushSchedule) *PushScheduler {
	if schedule.Location == nil {
		schedule.Location = time.Local
	}
	return &PushScheduler{
		pushUC:          pushUC,
		cleaner:         cleaner,
		schedule:        schedule,
		cleanupInterval: defaultCleanupInterval,
		now:             time.Now,
	}
}

// NextRun returns the first hour:minute in loc strictly after now
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

// Start starts the scheduler
func (s *PushScheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.pushLoop()

	if s.cleaner != nil {
		s.wg.Add(1)
		go s.cleanupLoop()
	}

	fmt.Printf("[Scheduler] Started, daily push at %02d:%02d %s\n", s.schedule.Hour, s.schedule.Minute, s.schedule.Location)
}

// Stop stops the scheduler
func (s *PushScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	fmt.Println("[Scheduler] Stopped")
}

// pushLoop sleeps until the next push time, forever
func (s *PushScheduler) pushLoop() {
	defer s.wg.Done()

	// Initial run
	if s.schedule.RunOnStart {
		s.runPush()
	}

	for {
		now := s.now()
		next := NextRun(now, s.schedule.Hour, s.schedule.Minute, s.schedule.Location)
		fmt.Printf("[Scheduler] Next push at %s\n", next.Format(time.RFC3339))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.runPush()
		}
	}
}

// cleanupLoop is the cleanup loop (runs every 6 hours)
func (s *PushScheduler) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *PushScheduler) runPush() {
	report, err := s.pushUC.Run(s.ctx)
	if err != nil {
		fmt.Printf("[Scheduler] Push failed: %v\n", err)
		return
	}
	fmt.Printf("[Scheduler] Push %s: sent=%d failed=%d skipped=%d\n", report.RunID, report.Sent, report.Failed, report.Skipped)
}

func (s *PushScheduler) cleanup() {
	n, err := s.cleaner.CleanupStale(s.ctx)
	if err != nil {
		fmt.Printf("[Scheduler] Session cleanup failed: %v\n", err)
		return
	}
	if n > 0 {
		fmt.Printf("[Scheduler] Evicted %d stale sessions\n", n)
	}
}
