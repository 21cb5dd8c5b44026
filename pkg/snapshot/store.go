// Package snapshot reads and writes the CSV artifacts handed between
// pipeline stages, plus the daily JSON status report.
package snapshot

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/ogulcanaydogan/campaign-refresh/pkg/model"
)

// Artifact file names inside the data directory.
const (
	CampaignFile = "campaign_data_latest.csv"
	BudgetFile   = "budget_data_latest.csv"
	KPIFile      = "kpi_metrics_latest.csv"
	AlertsFile   = "performance_alerts.csv"
)

// ErrNotFound is returned when a snapshot has not been written yet.
var ErrNotFound = errors.New("snapshot not found")

// Store keeps the latest artifacts of each stage in one directory. The daily
// status report goes to a separate directory when one is set.
type Store struct {
	dir       string
	statusDir string
}

// Option configures a Store.
type Option func(*Store)

// WithStatusDir writes status reports to dir instead of the data directory.
func WithStatusDir(dir string) Option {
	return func(s *Store) {
		if dir != "" {
			s.statusDir = dir
		}
	}
}

// NewStore returns a store rooted at dir. Directories are created on first write.
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{dir: dir, statusDir: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the full path of an artifact.
func (s *Store) Path(name string) string { return filepath.Join(s.dir, name) }

func (s *Store) WriteCampaigns(records []model.CampaignRecord) error {
	rows := make([]campaignRow, 0, len(records))
	for _, c := range records {
		rows = append(rows, toCampaignRow(c))
	}
	return s.writeCSV(CampaignFile, &rows)
}

func (s *Store) ReadCampaigns() ([]model.CampaignRecord, error) {
	var rows []campaignRow
	if err := s.readCSV(CampaignFile, campaignRequired, &rows); err != nil {
		return nil, err
	}

	out := make([]model.CampaignRecord, 0, len(rows))
	for _, r := range rows {
		c, err := r.record()
		if err != nil {
			return nil, model.NewError(model.KindTransform, "read "+CampaignFile, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) WriteBudgets(records []model.BudgetRecord) error {
	rows := make([]budgetRow, 0, len(records))
	for _, b := range records {
		rows = append(rows, toBudgetRow(b))
	}
	return s.writeCSV(BudgetFile, &rows)
}

func (s *Store) ReadBudgets() ([]model.BudgetRecord, error) {
	var rows []budgetRow
	if err := s.readCSV(BudgetFile, budgetRequired, &rows); err != nil {
		return nil, err
	}

	out := make([]model.BudgetRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.BudgetRecord(r))
	}
	return out, nil
}

func (s *Store) WriteKPIs(records []model.KpiRecord) error {
	rows := make([]kpiRow, 0, len(records))
	for _, k := range records {
		rows = append(rows, toKPIRow(k))
	}
	return s.writeCSV(KPIFile, &rows)
}

func (s *Store) ReadKPIs() ([]model.KpiRecord, error) {
	var rows []kpiRow
	if err := s.readCSV(KPIFile, kpiRequired, &rows); err != nil {
		return nil, err
	}

	out := make([]model.KpiRecord, 0, len(rows))
	for _, r := range rows {
		k, err := r.record()
		if err != nil {
			return nil, model.NewError(model.KindTransform, "read "+KPIFile, err)
		}
		out = append(out, k)
	}
	return out, nil
}

func (s *Store) WriteAlerts(records []model.AlertRecord) error {
	rows := make([]alertRow, 0, len(records))
	for _, a := range records {
		rows = append(rows, toAlertRow(a))
	}
	return s.writeCSV(AlertsFile, &rows)
}

func (s *Store) ReadAlerts() ([]model.AlertRecord, error) {
	var rows []alertRow
	if err := s.readCSV(AlertsFile, alertRequired, &rows); err != nil {
		return nil, err
	}

	out := make([]model.AlertRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

// RemoveAlerts deletes the alerts artifact. A missing file is not an error.
func (s *Store) RemoveAlerts() error {
	err := os.Remove(s.Path(AlertsFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", AlertsFile, err)
	}
	return nil
}

// WriteStatus writes the status report for the day of at, replacing any
// report already written that day. It returns the report path.
func (s *Store) WriteStatus(at time.Time, status model.RefreshStatus) (string, error) {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal status: %w", err)
	}
	name := model.StatusFileName(at)
	if err := writeFile(s.statusDir, name, data); err != nil {
		return "", err
	}
	return filepath.Join(s.statusDir, name), nil
}

// ReadStatus loads the status report for the day of at.
func (s *Store) ReadStatus(at time.Time) (model.RefreshStatus, error) {
	data, err := os.ReadFile(filepath.Join(s.statusDir, model.StatusFileName(at)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", model.StatusFileName(at), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}

	var status model.RefreshStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("parse status: %w", err)
	}
	return status, nil
}

func (s *Store) writeCSV(name string, rows any) error {
	data, err := gocsv.MarshalBytes(rows)
	if err != nil {
		return model.NewError(model.KindTransform, "encode "+name, err)
	}
	return writeFile(s.dir, name, data)
}

// writeFile replaces dir/name atomically so readers never see a partial file.
func writeFile(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func (s *Store) readCSV(name string, required []string, out any) error {
	data, err := os.ReadFile(s.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return model.NewError(model.KindTransform, "read "+name, ErrNotFound)
	}
	if err != nil {
		return model.NewError(model.KindTransform, "read "+name, err)
	}

	if err := checkHeader(data, required); err != nil {
		return model.NewError(model.KindTransform, "read "+name, err)
	}
	if err := gocsv.UnmarshalBytes(data, out); err != nil {
		return model.NewError(model.KindTransform, "decode "+name, err)
	}
	return nil
}

// checkHeader verifies that the first CSV record names every required column.
func checkHeader(data []byte, required []string) error {
	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if errors.Is(err, io.EOF) {
		return errors.New("empty file")
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	for _, col := range required {
		if !present[col] {
			return fmt.Errorf("missing column %q", col)
		}
	}
	return nil
}
