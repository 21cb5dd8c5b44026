package report_test

import (
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"github.com/ogulcanaydogan/campaign-refresh/pkg/kpi"
	"github.com/ogulcanaydogan/campaign-refresh/pkg/model"
	"github.com/ogulcanaydogan/campaign-refresh/pkg/report"
	"github.com/ogulcanaydogan/campaign-refresh/pkg/snapshot"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func campaigns() []model.CampaignRecord {
	return []model.CampaignRecord{
		{CampaignID: "A", CampaignName: "Alpha", Channel: "Email", Status: "Active",
			StartDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.Local), EndDate: time.Date(2026, 12, 1, 0, 0, 0, 0, time.Local),
			TotalSpend: 1000, RevenueGenerated: 500, Impressions: 10000, Clicks: 300, LeadsGenerated: 20, Conversions: 2},
		{CampaignID: "B", CampaignName: "Beta", Channel: "Search", Status: "Paused",
			StartDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.Local)},
	}
}

func TestBuild_InnerJoin(t *testing.T) {
	cs := campaigns()
	kpis := kpi.Compute(cs[:1], time.Now())
	kpis = append(kpis, model.KpiRecord{CampaignID: "ORPHAN"})

	rows := report.Build(cs, kpis)
	require.Len(t, rows, 1)
	assert.Equal(t, report.Row{
		CampaignID: "A", CampaignName: "Alpha", StartDate: "2026-09-01", EndDate: "2026-12-01",
		Channel: "Email", Status: "Active", ROIPercentage: -50, CostPerLead: 50,
		CostPerAcquisition: 500, ConversionRate: 10, ClickThroughRate: 3,
	}, rows[0])
}

func TestExportSummary(t *testing.T) {
	store := snapshot.NewStore(t.TempDir())
	cs := campaigns()
	require.NoError(t, store.WriteCampaigns(cs))
	require.NoError(t, store.WriteKPIs(kpi.Compute(cs, time.Now())))

	outDir := filepath.Join(t.TempDir(), "reports")
	exp := report.NewExporter(store, outDir, testLogger())

	at := time.Date(2026, 10, 15, 9, 5, 7, 0, time.Local)
	csvPath, xlsxPath, err := exp.ExportSummary(at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "report_20261015_090507.csv"), csvPath)
	assert.Equal(t, filepath.Join(outDir, "report_20261015_090507.xlsx"), xlsxPath)

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, report.Columns, records[0])
	assert.Equal(t, "A", records[1][0])
	assert.Equal(t, "B", records[2][0])

	book, err := excelize.OpenFile(xlsxPath)
	require.NoError(t, err)
	defer book.Close()
	sheetRows, err := book.GetRows("Report")
	require.NoError(t, err)
	require.Len(t, sheetRows, 3)
	assert.Equal(t, report.Columns, sheetRows[0])
	assert.Equal(t, "Alpha", sheetRows[1][1])
	assert.Equal(t, "-50", sheetRows[1][6])
}

func TestExportSummary_MissingSnapshot(t *testing.T) {
	exp := report.NewExporter(snapshot.NewStore(t.TempDir()), t.TempDir(), testLogger())
	_, _, err := exp.ExportSummary(time.Now())
	assert.Error(t, err)
}
