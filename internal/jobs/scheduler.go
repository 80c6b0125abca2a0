package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scanner runs one reminder scan
type Scanner interface {
	RunScan(ctx context.Context, now time.Time) (*ScanReport, error)
}

// ReminderScheduler triggers the reminder scan on a fixed interval
type ReminderScheduler struct {
	cron     *cron.Cron
	scanner  Scanner
	interval time.Duration
	now      func() time.Time
}

// NewReminderScheduler creates a scheduler that scans every interval.
// A scan still running when the next one is due makes that one skip.
func NewReminderScheduler(scanner Scanner, interval time.Duration) *ReminderScheduler {
	return &ReminderScheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		scanner:  scanner,
		interval: interval,
		now:      time.Now,
	}
}

// Start schedules the scan and starts the cron runner
func (s *ReminderScheduler) Start() error {
	if s.interval <= 0 {
		return fmt.Errorf("invalid scheduler interval %s", s.interval)
	}
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), s.run); err != nil {
		return fmt.Errorf("failed to schedule reminder scan: %w", err)
	}
	s.cron.Start()
	log.Printf("⏰ Reminder scheduler started (every %s)", s.interval)
	return nil
}

// Stop halts the scheduler and waits for a running scan to finish
func (s *ReminderScheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("Reminder scheduler stopped")
}

func (s *ReminderScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	if _, err := s.scanner.RunScan(ctx, s.now()); err != nil {
		log.Printf("❌ Reminder scan failed: %v", err)
	}
}
