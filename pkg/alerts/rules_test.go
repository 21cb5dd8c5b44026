package alerts_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ogulcanaydogan/campaign-refresh/pkg/alerts"
	"github.com/ogulcanaydogan/campaign-refresh/pkg/model"
)

func healthyKPI(id string) model.KpiRecord {
	return model.KpiRecord{
		CampaignID:     id,
		CampaignName:   "Campaign " + id,
		Channel:        "Email",
		ROIPercentage:  45,
		CostPerLead:    20,
		ConversionRate: 12,
	}
}

func TestEvaluate_HealthyCampaignsProduceNothing(t *testing.T) {
	out := alerts.Evaluate([]model.KpiRecord{healthyKPI("A"), healthyKPI("B")})
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestEvaluate_Empty(t *testing.T) {
	out := alerts.Evaluate(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestEvaluate_OneAlertPerTriggeredRule(t *testing.T) {
	k := model.KpiRecord{
		CampaignID:     "CMP-9",
		CampaignName:   "Bad Display",
		Channel:        "Display",
		ROIPercentage:  -10,
		CostPerLead:    150,
		ConversionRate: 3,
	}

	out := alerts.Evaluate([]model.KpiRecord{k})
	require.Len(t, out, 3)

	assert.Equal(t, alerts.IssueNegativeROI, out[0].Issue)
	assert.Equal(t, model.AlertCritical, out[0].Type)
	assert.Equal(t, model.PriorityHigh, out[0].Priority)
	assert.Equal(t, "-10.00%", out[0].CurrentValue)
	assert.Equal(t, alerts.ActionNegativeROI, out[0].RecommendedAction)

	assert.Equal(t, alerts.IssueHighCostPerLead, out[1].Issue)
	assert.Equal(t, model.AlertWarning, out[1].Type)
	assert.Equal(t, model.PriorityMedium, out[1].Priority)
	assert.Equal(t, "$150.00", out[1].CurrentValue)
	assert.Equal(t, alerts.ActionHighCostPerLead, out[1].RecommendedAction)

	assert.Equal(t, alerts.IssueLowConversionRate, out[2].Issue)
	assert.Equal(t, model.AlertWarning, out[2].Type)
	assert.Equal(t, model.PriorityMedium, out[2].Priority)
	assert.Equal(t, "3.00%", out[2].CurrentValue)
	assert.Equal(t, alerts.ActionLowConversionRate, out[2].RecommendedAction)

	for _, a := range out {
		assert.Equal(t, "CMP-9", a.CampaignID)
		assert.Equal(t, "Bad Display", a.CampaignName)
		assert.Equal(t, "Display", a.Channel)
	}
}

func TestEvaluate_GroupedByRuleThenInputOrder(t *testing.T) {
	a := healthyKPI("A")
	a.ConversionRate = 1 // low conversion

	b := healthyKPI("B")
	b.ROIPercentage = -5 // negative roi
	b.CostPerLead = 120  // high cpl

	c := healthyKPI("C")
	c.ROIPercentage = -1 // negative roi

	out := alerts.Evaluate([]model.KpiRecord{a, b, c})
	require.Len(t, out, 4)

	got := make([][2]string, 0, len(out))
	for _, al := range out {
		got = append(got, [2]string{al.Issue, al.CampaignID})
	}
	assert.Equal(t, [][2]string{
		{alerts.IssueNegativeROI, "B"},
		{alerts.IssueNegativeROI, "C"},
		{alerts.IssueHighCostPerLead, "B"},
		{alerts.IssueLowConversionRate, "A"},
	}, got)
}

func TestEvaluate_Boundaries(t *testing.T) {
	k := model.KpiRecord{CampaignID: "EDGE", ROIPercentage: 0, CostPerLead: 100, ConversionRate: 5}
	assert.Empty(t, alerts.Evaluate([]model.KpiRecord{k}))
}

func TestEvaluate_ZeroMetricsOnlyFlagConversion(t *testing.T) {
	// A campaign with no spend and no leads has conversion rate 0, which is
	// below the minimum.
	out := alerts.Evaluate([]model.KpiRecord{{CampaignID: "Z"}})
	require.Len(t, out, 1)
	assert.Equal(t, alerts.IssueLowConversionRate, out[0].Issue)
}

func TestEvaluate_Idempotent(t *testing.T) {
	kpis := []model.KpiRecord{
		{CampaignID: "1", ROIPercentage: -20, CostPerLead: 300, ConversionRate: 2},
		healthyKPI("2"),
		{CampaignID: "3", ROIPercentage: 10, CostPerLead: 101, ConversionRate: 8},
	}
	first := alerts.Evaluate(kpis)
	second := alerts.Evaluate(kpis)
	assert.Equal(t, first, second)
}

func TestLoadThresholds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_cost_per_lead: 250\n"), 0o644))

	th, err := alerts.LoadThresholds(path)
	require.NoError(t, err)
	assert.Equal(t, 250.0, th.MaxCostPerLead)
	assert.Equal(t, 0.0, th.MinROIPercentage)
	assert.Equal(t, 5.0, th.MinConversionRate)

	rules := alerts.NewRules(th)
	out := rules.Evaluate([]model.KpiRecord{{CampaignID: "X", ROIPercentage: 5, CostPerLead: 200, ConversionRate: 10}})
	assert.Empty(t, out)
}

func TestLoadThresholds_Invalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("max_cost_per_lead: [oops"), 0o644))
	th, err := alerts.LoadThresholds(bad)
	assert.Error(t, err)
	assert.Equal(t, alerts.DefaultThresholds(), th)

	negative := filepath.Join(dir, "neg.yaml")
	require.NoError(t, os.WriteFile(negative, []byte("max_cost_per_lead: -1\n"), 0o644))
	_, err = alerts.LoadRules(negative)
	assert.Error(t, err)

	_, err = alerts.LoadRules(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
