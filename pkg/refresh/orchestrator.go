// Package refresh runs the four-stage campaign data refresh.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ogulcanaydogan/campaign-refresh/pkg/alerts"
	"github.com/ogulcanaydogan/campaign-refresh/pkg/kpi"
	"github.com/ogulcanaydogan/campaign-refresh/pkg/model"
)

// Source is a live connection to the campaign database.
type Source interface {
	FetchCampaigns(ctx context.Context, lookbackMonths int) ([]model.CampaignRecord, error)
	FetchBudgets(ctx context.Context, lookbackYears int) ([]model.BudgetRecord, error)
	Close() error
}

// Connector opens a Source for one run.
type Connector func(ctx context.Context) (Source, error)

// Snapshots persists the artifacts handed between stages.
type Snapshots interface {
	WriteCampaigns([]model.CampaignRecord) error
	ReadCampaigns() ([]model.CampaignRecord, error)
	WriteBudgets([]model.BudgetRecord) error
	WriteKPIs([]model.KpiRecord) error
	ReadKPIs() ([]model.KpiRecord, error)
	WriteAlerts([]model.AlertRecord) error
	RemoveAlerts() error
	WriteStatus(at time.Time, status model.RefreshStatus) (string, error)
}

// Notifier delivers a cycle's alerts and reports whether every channel
// accepted them.
type Notifier interface {
	Notify(ctx context.Context, alerts []model.AlertRecord) bool
}

// History records finished runs.
type History interface {
	SaveRun(ctx context.Context, run *model.RefreshRun) error
}

// Orchestrator runs campaign_data, budget_data, kpi_calculation and alerts
// in order. Every stage is attempted regardless of earlier failures.
type Orchestrator struct {
	connect        Connector
	snapshots      Snapshots
	notifier       Notifier
	history        History
	rules          alerts.Rules
	metrics        *Metrics
	lookbackMonths int
	lookbackYears  int
	now            func() time.Time
	logger         *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNotifier sets where alerts are sent.
func WithNotifier(n Notifier) Option { return func(o *Orchestrator) { o.notifier = n } }

// WithHistory records every run in h.
func WithHistory(h History) Option { return func(o *Orchestrator) { o.history = h } }

// WithRules replaces the default alert rules.
func WithRules(r alerts.Rules) Option { return func(o *Orchestrator) { o.rules = r } }

// WithMetrics updates m after every run.
func WithMetrics(m *Metrics) Option { return func(o *Orchestrator) { o.metrics = m } }

// WithLookback sets the extraction windows.
func WithLookback(months, years int) Option {
	return func(o *Orchestrator) {
		o.lookbackMonths = months
		o.lookbackYears = years
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// New creates an orchestrator.
func New(connect Connector, snapshots Snapshots, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		connect:        connect,
		snapshots:      snapshots,
		rules:          alerts.DefaultRules(),
		lookbackMonths: 6,
		lookbackYears:  1,
		now:            time.Now,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunFullRefresh executes one cycle and reports whether all four stages
// succeeded.
func (o *Orchestrator) RunFullRefresh(ctx context.Context) bool {
	return o.Execute(ctx).Succeeded()
}

// Execute runs one full cycle and returns its record. It never returns nil
// and never panics; stage failures are captured in the status map.
func (o *Orchestrator) Execute(ctx context.Context) *model.RefreshRun {
	run := &model.RefreshRun{
		ID:        uuid.New().String(),
		StartedAt: o.now(),
		Status:    make(model.RefreshStatus, len(model.Stages)),
	}
	log := o.logger.With("run_id", run.ID)
	log.Info("starting full data refresh")

	conn := &runConnection{connect: o.connect}
	defer conn.close(log)

	steps := map[model.Stage]func(context.Context) (int, error){
		model.StageCampaigns: func(ctx context.Context) (int, error) {
			src, err := conn.get(ctx)
			if err != nil {
				return 0, err
			}
			campaigns, err := src.FetchCampaigns(ctx, o.lookbackMonths)
			if err != nil {
				return 0, err
			}
			if err := o.snapshots.WriteCampaigns(campaigns); err != nil {
				return 0, err
			}
			return len(campaigns), nil
		},

		model.StageBudgets: func(ctx context.Context) (int, error) {
			src, err := conn.get(ctx)
			if err != nil {
				return 0, err
			}
			budgets, err := src.FetchBudgets(ctx, o.lookbackYears)
			if err != nil {
				return 0, err
			}
			if err := o.snapshots.WriteBudgets(budgets); err != nil {
				return 0, err
			}
			return len(budgets), nil
		},

		model.StageKPI: func(context.Context) (int, error) {
			campaigns, err := o.snapshots.ReadCampaigns()
			if err != nil {
				return 0, err
			}
			kpis := kpi.Compute(campaigns, o.now())
			if err := o.snapshots.WriteKPIs(kpis); err != nil {
				return 0, err
			}
			return len(kpis), nil
		},

		model.StageAlerts: func(ctx context.Context) (int, error) {
			kpis, err := o.snapshots.ReadKPIs()
			if err != nil {
				return 0, err
			}
			found := o.rules.Evaluate(kpis)
			if len(found) == 0 {
				log.Info("no performance alerts")
				return 0, o.snapshots.RemoveAlerts()
			}

			if err := o.snapshots.WriteAlerts(found); err != nil {
				return 0, err
			}
			run.Alerts = found
			run.AlertCount = len(found)
			log.Warn("performance alerts generated", "alerts", len(found))

			if o.notifier != nil && !o.notifier.Notify(ctx, found) {
				log.Warn("alert notification failed; alerts are still recorded")
			}
			return len(found), nil
		},
	}
	for _, s := range model.Stages {
		o.stage(ctx, log, run, s, steps[s])
	}

	run.FinishedAt = o.now()
	o.persist(ctx, log, run)
	o.metrics.observe(run)

	if run.Succeeded() {
		log.Info("full data refresh completed successfully",
			"duration", run.FinishedAt.Sub(run.StartedAt))
	} else {
		log.Warn("full data refresh completed with errors",
			"succeeded", run.Status.Succeeded(),
			"stages", len(model.Stages),
			"duration", run.FinishedAt.Sub(run.StartedAt))
	}
	return run
}

// stage runs fn and records its outcome. A panic inside fn is recorded as a
// transform error.
func (o *Orchestrator) stage(ctx context.Context, log *slog.Logger, run *model.RefreshRun, s model.Stage, fn func(context.Context) (int, error)) {
	n, err := safeRun(ctx, s, fn)
	at := o.now()
	if err != nil {
		log.Error("stage failed", "stage", s, "error", err)
		run.Status[s] = model.Failed(err, at)
		return
	}
	log.Info("stage completed", "stage", s, "records", n)
	run.Status[s] = model.Succeeded(n, at)
}

func safeRun(ctx context.Context, s model.Stage, fn func(context.Context) (int, error)) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = model.NewError(model.KindTransform, string(s), fmt.Errorf("panic: %v", r))
		}
	}()
	return fn(ctx)
}

func (o *Orchestrator) persist(ctx context.Context, log *slog.Logger, run *model.RefreshRun) {
	path, err := o.snapshots.WriteStatus(run.StartedAt, run.Status)
	if err != nil {
		log.Error("write status report", "error", err)
	} else {
		run.StatusFile = path
		log.Info("status report written", "path", path)
	}

	if o.history == nil {
		return
	}
	if err := o.history.SaveRun(ctx, run); err != nil {
		log.Error("record run history", "error", err)
	}
}

// runConnection opens the source on first use and closes it at the end of
// the run. A failed connect is retried by the next stage that needs it.
type runConnection struct {
	connect Connector
	src     Source
}

func (c *runConnection) get(ctx context.Context) (Source, error) {
	if c.src != nil {
		return c.src, nil
	}
	if c.connect == nil {
		return nil, model.NewError(model.KindConfig, "connect", errors.New("no data source configured"))
	}
	src, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	c.src = src
	return src, nil
}

func (c *runConnection) close(log *slog.Logger) {
	if c.src == nil {
		return
	}
	if err := c.src.Close(); err != nil {
		log.Warn("close data source", "error", err)
	}
	c.src = nil
}
