package model

import "time"

// Stage names a pipeline step. The string value is the key used in the
// persisted status report.
type Stage string

const (
	StageCampaigns Stage = "campaign_data"
	StageBudgets   Stage = "budget_data"
	StageKPI       Stage = "kpi_calculation"
	StageAlerts    Stage = "alerts"
)

// Stages lists the pipeline steps in execution order.
var Stages = []Stage{StageCampaigns, StageBudgets, StageKPI, StageAlerts}

// StageState is the outcome of one stage.
type StageState string

const (
	StateSuccess StageState = "success"
	StateError   StageState = "error"
)

// StageResult is either a success carrying a record count or a failure
// carrying the error detail. Build it with Succeeded or Failed.
type StageResult struct {
	Status    StageState `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
	Records   *int       `json:"records,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Succeeded records a successful stage that handled n records.
func Succeeded(n int, at time.Time) StageResult {
	return StageResult{Status: StateSuccess, Timestamp: at, Records: &n}
}

// Failed records a failed stage.
func Failed(err error, at time.Time) StageResult {
	detail := "unknown error"
	if err != nil {
		detail = err.Error()
	}
	return StageResult{Status: StateError, Timestamp: at, Error: detail}
}

// OK reports whether the stage succeeded.
func (r StageResult) OK() bool { return r.Status == StateSuccess }

// Count returns the record count of a successful stage, or zero.
func (r StageResult) Count() int {
	if r.Records == nil {
		return 0
	}
	return *r.Records
}

// RefreshStatus maps each attempted stage to its result.
type RefreshStatus map[Stage]StageResult

// Succeeded counts the successful stages.
func (s RefreshStatus) Succeeded() int {
	n := 0
	for _, r := range s {
		if r.OK() {
			n++
		}
	}
	return n
}

// AllSucceeded reports whether every pipeline stage is present and successful.
func (s RefreshStatus) AllSucceeded() bool {
	for _, st := range Stages {
		if r, ok := s[st]; !ok || !r.OK() {
			return false
		}
	}
	return true
}

// RefreshRun describes one execution of the full pipeline.
type RefreshRun struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Status     RefreshStatus `json:"status"`
	StatusFile string        `json:"status_file,omitempty"`
	AlertCount int           `json:"alert_count"`
	Alerts     []AlertRecord `json:"alerts,omitempty"`
}

// Succeeded reports whether all four stages succeeded.
func (r *RefreshRun) Succeeded() bool {
	return r != nil && r.Status.AllSucceeded()
}

// StatusFileName returns the daily status report name for t.
func StatusFileName(t time.Time) string {
	return "refresh_status_" + t.Format("20060102") + ".json"
}
