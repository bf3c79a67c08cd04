package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alexrabarts/ceo-agent/internal/config"
)

type fakeReports struct {
	daily, weekly string
	err           error
}

func (f *fakeReports) GenerateDailyReport(ctx context.Context) (string, error) {
	return f.daily, f.err
}

func (f *fakeReports) GenerateWeeklySuggestions(ctx context.Context) (string, error) {
	return f.weekly, f.err
}

type sentReport struct {
	chatID int64
	text   string
}

type fakeSender struct {
	sent []sentReport
	err  error
}

func (f *fakeSender) Send(ctx context.Context, chatID int64, text string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.sent = append(f.sent, sentReport{chatID, text})
	return len(f.sent), nil
}

var schedule = config.Schedule{
	DailyReportTime: "09:00",
	WeeklyDay:       "monday",
	WeeklyTime:      "10:30",
	Timezone:        "Europe/Moscow",
}

func TestSpecs(t *testing.T) {
	daily, err := DailySpec("09:05")
	if err != nil || daily != "0 5 9 * * *" {
		t.Errorf("DailySpec() = %q, %v", daily, err)
	}

	weekly, err := WeeklySpec("Friday", "18:00")
	if err != nil || weekly != "0 0 18 * * 5" {
		t.Errorf("WeeklySpec() = %q, %v", weekly, err)
	}

	if _, err := DailySpec("9am"); err == nil {
		t.Error("DailySpec accepted a malformed time")
	}
	if _, err := WeeklySpec("someday", "10:00"); err == nil {
		t.Error("WeeklySpec accepted a malformed weekday")
	}
}

func TestSpecsFireAtConfiguredTime(t *testing.T) {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	moscow, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}

	weekly, _ := WeeklySpec(schedule.WeeklyDay, schedule.WeeklyTime)
	sched, err := parser.Parse(weekly)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", weekly, err)
	}

	// Wednesday 2024-03-20 -> Monday 2024-03-25 10:30 Moscow time
	next := sched.Next(time.Date(2024, 3, 20, 12, 0, 0, 0, moscow))
	want := time.Date(2024, 3, 25, 10, 30, 0, 0, moscow)
	if !next.Equal(want) {
		t.Errorf("next weekly run = %v, want %v", next, want)
	}
}

func TestStartRegistersJobs(t *testing.T) {
	s := New(&fakeReports{}, &fakeSender{}, 1, schedule)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	next := s.NextRuns()
	if len(next) != 2 || next[JobDailyReport].IsZero() || next[JobWeeklyPlan].IsZero() {
		t.Errorf("NextRuns() = %v", next)
	}
}

func TestRunNow(t *testing.T) {
	reports := &fakeReports{daily: "рынок", weekly: "план"}
	sender := &fakeSender{}
	s := New(reports, sender, 777, schedule)

	for _, job := range []string{"daily", JobWeeklyPlan} {
		if err := s.RunNow(context.Background(), job); err != nil {
			t.Fatalf("RunNow(%s) error = %v", job, err)
		}
	}
	if len(sender.sent) != 2 || sender.sent[0] != (sentReport{777, "рынок"}) || sender.sent[1].text != "план" {
		t.Errorf("sent = %+v", sender.sent)
	}

	if err := s.RunNow(context.Background(), "monthly"); err == nil {
		t.Error("RunNow accepted an unknown job")
	}
}

func TestJobFailureDoesNotSend(t *testing.T) {
	reports := &fakeReports{err: errors.New("upstream")}
	sender := &fakeSender{}
	s := New(reports, sender, 1, schedule)

	if err := s.RunNow(context.Background(), "daily"); err == nil {
		t.Fatal("expected error")
	}
	// The cron entry point logs instead of failing
	s.sendDailyReport()
	s.sendWeeklySuggestions()

	if len(sender.sent) != 0 {
		t.Errorf("sent %d reports after failures", len(sender.sent))
	}

	reports.err = nil
	sender.err = errors.New("blocked by user")
	if err := s.RunNow(context.Background(), "weekly"); err == nil {
		t.Error("send failure not reported")
	}
}
