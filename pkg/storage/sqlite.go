package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ogulcanaydogan/campaign-refresh/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLite implements History on a local SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) SaveRun(ctx context.Context, run *model.RefreshRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = run.StartedAt
	}
	if run.AlertCount < len(run.Alerts) {
		run.AlertCount = len(run.Alerts)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save run: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO refresh_runs (id, started_at, finished_at, succeeded, status_file, alert_count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Succeeded(), run.StatusFile, run.AlertCount,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, stage := range model.Stages {
		res, ok := run.Status[stage]
		if !ok {
			continue
		}
		var records sql.NullInt64
		if res.Records != nil {
			records = sql.NullInt64{Int64: int64(*res.Records), Valid: true}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO stage_results (run_id, stage, status, records, error, timestamp)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, string(stage), string(res.Status), records, res.Error, res.Timestamp.UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert stage %s: %w", stage, err)
		}
	}

	for i, a := range run.Alerts {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO alert_history (run_id, seq, type, campaign_id, campaign_name, channel, issue, current_value, recommended_action, priority)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, string(a.Type), a.CampaignID, a.CampaignName, a.Channel,
			a.Issue, a.CurrentValue, a.RecommendedAction, string(a.Priority),
		)
		if err != nil {
			return fmt.Errorf("insert alert %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

func (s *SQLite) LatestRun(ctx context.Context) (*model.RefreshRun, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}

	run := runs[0]
	run.Alerts, err = s.AlertsForRun(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *SQLite) ListRuns(ctx context.Context, limit int) ([]model.RefreshRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, status_file, alert_count
		 FROM refresh_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	var runs []model.RefreshRun
	for rows.Next() {
		var r model.RefreshRun
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.StatusFile, &r.AlertCount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range runs {
		runs[i].Status, err = s.stageResults(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (s *SQLite) stageResults(ctx context.Context, runID string) (model.RefreshStatus, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, status, records, error, timestamp FROM stage_results WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("query stage results: %w", err)
	}
	defer rows.Close()

	status := make(model.RefreshStatus)
	for rows.Next() {
		var (
			stage, state string
			records      sql.NullInt64
			res          model.StageResult
		)
		if err := rows.Scan(&stage, &state, &records, &res.Error, &res.Timestamp); err != nil {
			return nil, fmt.Errorf("scan stage row: %w", err)
		}
		res.Status = model.StageState(state)
		if records.Valid {
			n := int(records.Int64)
			res.Records = &n
		}
		status[model.Stage(stage)] = res
	}
	return status, rows.Err()
}

func (s *SQLite) AlertsForRun(ctx context.Context, runID string) ([]model.AlertRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT type, campaign_id, campaign_name, channel, issue, current_value, recommended_action, priority
		 FROM alert_history WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]model.AlertRecord, 0)
	for rows.Next() {
		var (
			a              model.AlertRecord
			kind, priority string
		)
		if err := rows.Scan(&kind, &a.CampaignID, &a.CampaignName, &a.Channel,
			&a.Issue, &a.CurrentValue, &a.RecommendedAction, &priority); err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		a.Type = model.AlertType(kind)
		a.Priority = model.Priority(priority)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// PruneBefore deletes runs started before cutoff and returns how many were removed.
func (s *SQLite) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM refresh_runs WHERE started_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}
	return n, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// ErrNoRuns is returned by callers that require at least one recorded run.
var ErrNoRuns = errors.New("no refresh runs recorded")
