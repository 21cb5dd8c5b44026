// Package schedule triggers the full refresh on cron schedules.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Runner performs one full refresh.
type Runner interface {
	RunFullRefresh(ctx context.Context) bool
}

// Config selects which registrations are made.
type Config struct {
	HourlyDuringCampaigns bool
	DailySummary          string // HH:MM
	WeeklyReport          string // "<Weekday> HH:MM"
}

// Job is one registration.
type Job struct {
	Name string
	Spec string
}

// HourlySpec fires on the hour from 09:00 to 17:00.
const HourlySpec = "0 9-17 * * *"

const defaultWeekly = "Monday 09:00"

// Scheduler runs the refresh on its registered jobs. At most one refresh is
// in flight; a job that comes due meanwhile waits for the lock.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	jobs   []Job
	logger *slog.Logger

	mu      sync.Mutex // serializes refreshes
	baseCtx context.Context
	ctxMu   sync.RWMutex
}

// New parses cfg and registers the jobs it describes.
func New(cfg Config, runner Runner, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		runner:  runner,
		logger:  logger,
		baseCtx: context.Background(),
	}
	s.cron = cron.New(cron.WithLogger(cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	jobs, err := Jobs(cfg)
	if err != nil {
		return nil, err
	}
	for _, j := range jobs {
		name := j.Name
		if _, err := s.cron.AddFunc(j.Spec, func() { s.trigger(name) }); err != nil {
			return nil, fmt.Errorf("register %s job %q: %w", j.Name, j.Spec, err)
		}
	}
	s.jobs = jobs
	return s, nil
}

// Jobs converts cfg into cron registrations.
func Jobs(cfg Config) ([]Job, error) {
	var jobs []Job
	if cfg.HourlyDuringCampaigns {
		jobs = append(jobs, Job{Name: "hourly", Spec: HourlySpec})
	}

	if cfg.DailySummary != "" {
		spec, err := DailySpec(cfg.DailySummary)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, Job{Name: "daily", Spec: spec})
	}

	weekly := cfg.WeeklyReport
	if weekly == "" {
		weekly = defaultWeekly
	}
	spec, err := WeeklySpec(weekly)
	if err != nil {
		return nil, err
	}
	jobs = append(jobs, Job{Name: "weekly", Spec: spec})

	return jobs, nil
}

// DailySpec converts "HH:MM" into a cron spec.
func DailySpec(hhmm string) (string, error) {
	h, m, err := parseClock(hhmm)
	if err != nil {
		return "", fmt.Errorf("daily schedule: %w", err)
	}
	return fmt.Sprintf("%d %d * * *", m, h), nil
}

// WeeklySpec converts "<Weekday> HH:MM" into a cron spec.
func WeeklySpec(s string) (string, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return "", fmt.Errorf("weekly schedule %q: want \"<Weekday> HH:MM\"", s)
	}
	day, err := parseWeekday(fields[0])
	if err != nil {
		return "", fmt.Errorf("weekly schedule: %w", err)
	}
	h, m, err := parseClock(fields[1])
	if err != nil {
		return "", fmt.Errorf("weekly schedule: %w", err)
	}
	return fmt.Sprintf("%d %d * * %d", m, h, int(day)), nil
}

func parseClock(s string) (hour, minute int, err error) {
	hs, ms, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("time %q: want HH:MM", s)
	}
	hour, err = strconv.Atoi(hs)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("time %q: bad hour", s)
	}
	minute, err = strconv.Atoi(ms)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("time %q: bad minute", s)
	}
	return hour, minute, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := d.String()
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// Jobs returns the registered jobs.
func (s *Scheduler) Jobs() []Job {
	out := make([]Job, len(s.jobs))
	copy(out, s.jobs)
	return out
}

// Next returns the next time any job fires.
func (s *Scheduler) Next(after time.Time) time.Time {
	var next time.Time
	for _, j := range s.jobs {
		sched, err := cron.ParseStandard(j.Spec)
		if err != nil {
			continue
		}
		t := sched.Next(after)
		if next.IsZero() || t.Before(next) {
			next = t
		}
	}
	return next
}

// Run starts the scheduler and blocks until ctx is cancelled, then waits for
// an in-flight refresh to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctxMu.Lock()
	s.baseCtx = ctx
	s.ctxMu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.jobs), "next", s.Next(time.Now()))

	<-ctx.Done()
	s.logger.Info("scheduler stopping")
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

// RunOnce performs a refresh under the scheduler lock.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner.RunFullRefresh(ctx)
}

func (s *Scheduler) trigger(job string) {
	s.ctxMu.RLock()
	ctx := s.baseCtx
	s.ctxMu.RUnlock()

	s.logger.Info("scheduled refresh triggered", "job", job)
	if ok := s.RunOnce(ctx); !ok {
		s.logger.Warn("scheduled refresh completed with errors", "job", job)
	}
}
