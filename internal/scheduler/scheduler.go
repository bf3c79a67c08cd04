// Package scheduler pushes the daily market report and the weekly task
// suggestions to the admin chat.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alexrabarts/ceo-agent/internal/config"
)

// Job names
const (
	JobDailyReport = "daily_report"
	JobWeeklyPlan  = "weekly_suggestions"
)

// Reports generates the scheduled texts
type Reports interface {
	GenerateDailyReport(ctx context.Context) (string, error)
	GenerateWeeklySuggestions(ctx context.Context) (string, error)
}

// Sender delivers a report to a chat
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) (int, error)
}

// Scheduler manages all scheduled jobs
type Scheduler struct {
	cron     *cron.Cron
	reports  Reports
	sender   Sender
	adminID  int64
	schedule config.Schedule
	jobs     map[string]cron.EntryID
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a new scheduler in the configured timezone
func New(reports Reports, sender Sender, adminID int64, schedule config.Schedule) *Scheduler {
	location, err := time.LoadLocation(schedule.Timezone)
	if err != nil {
		log.Printf("Invalid timezone %s, using local: %v", schedule.Timezone, err)
		location = time.Local
	}

	// A run that overruns its period makes the next tick skip, never overlap
	c := cron.New(
		cron.WithLocation(location),
		cron.WithSeconds(),
		cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		),
	)

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:     c,
		reports:  reports,
		sender:   sender,
		adminID:  adminID,
		schedule: schedule,
		jobs:     make(map[string]cron.EntryID),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start registers both jobs and starts the cron loop
func (s *Scheduler) Start() error {
	log.Println("Starting scheduler...")

	dailySpec, err := DailySpec(s.schedule.DailyReportTime)
	if err != nil {
		return fmt.Errorf("failed to build daily report schedule: %w", err)
	}
	dailyID, err := s.cron.AddFunc(dailySpec, s.sendDailyReport)
	if err != nil {
		return fmt.Errorf("failed to schedule daily report: %w", err)
	}
	s.jobs[JobDailyReport] = dailyID
	log.Printf("Scheduled daily report at %s", s.schedule.DailyReportTime)

	weeklySpec, err := WeeklySpec(s.schedule.WeeklyDay, s.schedule.WeeklyTime)
	if err != nil {
		return fmt.Errorf("failed to build weekly schedule: %w", err)
	}
	weeklyID, err := s.cron.AddFunc(weeklySpec, s.sendWeeklySuggestions)
	if err != nil {
		return fmt.Errorf("failed to schedule weekly suggestions: %w", err)
	}
	s.jobs[JobWeeklyPlan] = weeklyID
	log.Printf("Scheduled weekly suggestions on %s at %s", s.schedule.WeeklyDay, s.schedule.WeeklyTime)

	s.cron.Start()
	log.Println("Scheduler started successfully")

	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	log.Println("Stopping scheduler...")

	// Stop accepting new jobs
	ctx := s.cron.Stop()

	// Cancel context
	s.cancel()

	// Wait for running jobs to complete
	<-ctx.Done()

	log.Println("Scheduler stopped")
}

// NextRuns returns the next fire time of every registered job
func (s *Scheduler) NextRuns() map[string]time.Time {
	next := make(map[string]time.Time, len(s.jobs))
	for name, id := range s.jobs {
		next[name] = s.cron.Entry(id).Next
	}
	return next
}

// RunNow runs one job synchronously and returns its error instead of only
// logging it
func (s *Scheduler) RunNow(ctx context.Context, job string) error {
	switch job {
	case JobDailyReport, "daily":
		return s.deliver(ctx, "daily report", s.reports.GenerateDailyReport)
	case JobWeeklyPlan, "weekly":
		return s.deliver(ctx, "weekly suggestions", s.reports.GenerateWeeklySuggestions)
	}
	return fmt.Errorf("unknown job %q", job)
}

func (s *Scheduler) sendDailyReport() {
	if err := s.deliver(s.ctx, "daily report", s.reports.GenerateDailyReport); err != nil {
		log.Printf("Daily report failed: %v", err)
	}
}

func (s *Scheduler) sendWeeklySuggestions() {
	if err := s.deliver(s.ctx, "weekly suggestions", s.reports.GenerateWeeklySuggestions); err != nil {
		log.Printf("Weekly suggestions failed: %v", err)
	}
}

func (s *Scheduler) deliver(ctx context.Context, name string, generate func(context.Context) (string, error)) error {
	log.Printf("Generating %s...", name)
	start := time.Now()

	text, err := generate(ctx)
	if err != nil {
		return fmt.Errorf("failed to generate %s: %w", name, err)
	}

	if _, err := s.sender.Send(ctx, s.adminID, text); err != nil {
		return fmt.Errorf("failed to send %s: %w", name, err)
	}

	log.Printf("Sent %s to %d in %s", name, s.adminID, time.Since(start).Round(time.Millisecond))
	return nil
}

// DailySpec builds the six-field cron spec for "HH:MM" every day
func DailySpec(clock string) (string, error) {
	hour, minute, err := config.ParseClock(clock)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}

// WeeklySpec builds the six-field cron spec for a weekday at "HH:MM"
func WeeklySpec(weekday, clock string) (string, error) {
	hour, minute, err := config.ParseClock(clock)
	if err != nil {
		return "", err
	}
	day, err := config.ParseWeekday(weekday)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("0 %d %d * * %d", minute, hour, day), nil
}
