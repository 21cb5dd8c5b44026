// Package report builds the campaign summary report from the latest
// campaign and KPI snapshots.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/ogulcanaydogan/campaign-refresh/pkg/model"
)

// Snapshots provides the inputs of the summary report.
type Snapshots interface {
	ReadCampaigns() ([]model.CampaignRecord, error)
	ReadKPIs() ([]model.KpiRecord, error)
}

// Row is one line of the summary report.
type Row struct {
	CampaignID         string  `csv:"campaign_id"`
	CampaignName       string  `csv:"campaign_name"`
	StartDate          string  `csv:"start_date"`
	EndDate            string  `csv:"end_date"`
	Channel            string  `csv:"channel"`
	Status             string  `csv:"status"`
	ROIPercentage      float64 `csv:"roi_percentage"`
	CostPerLead        float64 `csv:"cost_per_lead"`
	CostPerAcquisition float64 `csv:"cost_per_acquisition"`
	ConversionRate     float64 `csv:"conversion_rate"`
	ClickThroughRate   float64 `csv:"click_through_rate"`
}

// Columns lists the report header in output order.
var Columns = []string{
	"campaign_id", "campaign_name", "start_date", "end_date", "channel", "status",
	"roi_percentage", "cost_per_lead", "cost_per_acquisition", "conversion_rate", "click_through_rate",
}

const sheetName = "Report"

// Exporter writes summary reports into an output directory.
type Exporter struct {
	snapshots Snapshots
	outDir    string
	logger    *slog.Logger
}

// NewExporter creates an exporter.
func NewExporter(snapshots Snapshots, outDir string, logger *slog.Logger) *Exporter {
	return &Exporter{snapshots: snapshots, outDir: outDir, logger: logger}
}

// Build joins campaigns and KPIs on campaign_id, keeping only campaigns that
// have a KPI record, in campaign order.
func Build(campaigns []model.CampaignRecord, kpis []model.KpiRecord) []Row {
	byID := make(map[string]model.KpiRecord, len(kpis))
	for _, k := range kpis {
		byID[k.CampaignID] = k
	}

	rows := make([]Row, 0, len(campaigns))
	for _, c := range campaigns {
		k, ok := byID[c.CampaignID]
		if !ok {
			continue
		}
		rows = append(rows, Row{
			CampaignID:         c.CampaignID,
			CampaignName:       c.CampaignName,
			StartDate:          formatDate(c.StartDate),
			EndDate:            formatDate(c.EndDate),
			Channel:            c.Channel,
			Status:             c.Status,
			ROIPercentage:      k.ROIPercentage,
			CostPerLead:        k.CostPerLead,
			CostPerAcquisition: k.CostPerAcquisition,
			ConversionRate:     k.ConversionRate,
			ClickThroughRate:   k.ClickThroughRate,
		})
	}
	return rows
}

// ExportSummary writes report_<timestamp>.csv and report_<timestamp>.xlsx
// and returns both paths.
func (e *Exporter) ExportSummary(at time.Time) (csvPath, xlsxPath string, err error) {
	campaigns, err := e.snapshots.ReadCampaigns()
	if err != nil {
		return "", "", fmt.Errorf("load campaign snapshot: %w", err)
	}
	kpis, err := e.snapshots.ReadKPIs()
	if err != nil {
		return "", "", fmt.Errorf("load kpi snapshot: %w", err)
	}
	rows := Build(campaigns, kpis)

	if err := os.MkdirAll(e.outDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create report directory: %w", err)
	}

	stamp := at.Format("20060102_150405")
	csvPath = filepath.Join(e.outDir, "report_"+stamp+".csv")
	xlsxPath = filepath.Join(e.outDir, "report_"+stamp+".xlsx")

	if err := writeCSV(csvPath, rows); err != nil {
		return "", "", err
	}
	if err := writeXLSX(xlsxPath, rows); err != nil {
		return "", "", err
	}

	e.logger.Info("report exported", "rows", len(rows), "csv", csvPath, "xlsx", xlsxPath)
	return csvPath, xlsxPath, nil
}

func writeCSV(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func writeXLSX(path string, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			r.CampaignID, r.CampaignName, r.StartDate, r.EndDate, r.Channel, r.Status,
			r.ROIPercentage, r.CostPerLead, r.CostPerAcquisition, r.ConversionRate, r.ClickThroughRate,
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
