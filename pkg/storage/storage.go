package storage

import (
	"context"

	"github.com/ogulcanaydogan/campaign-refresh/pkg/model"
)

// History persists refresh runs for auditing and the status API.
type History interface {
	// SaveRun stores a finished run with its stage results and alerts.
	SaveRun(ctx context.Context, run *model.RefreshRun) error

	// LatestRun returns the most recently started run, or nil when none exist.
	LatestRun(ctx context.Context) (*model.RefreshRun, error)

	// ListRuns returns up to limit runs, newest first. Alerts are not loaded.
	ListRuns(ctx context.Context, limit int) ([]model.RefreshRun, error)

	// AlertsForRun returns the alerts recorded for a run in generation order.
	AlertsForRun(ctx context.Context, runID string) ([]model.AlertRecord, error)

	// Close releases resources.
	Close() error
}
