package kpi_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ogulcanaydogan/campaign-refresh/pkg/kpi"
	"github.com/ogulcanaydogan/campaign-refresh/pkg/model"
)

var computedAt = time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)

func TestDerive_LossMakingCampaign(t *testing.T) {
	c := model.CampaignRecord{
		CampaignID:       "CMP-001",
		CampaignName:     "Autumn Search",
		Channel:          "Google Ads",
		TotalSpend:       1000,
		RevenueGenerated: 500,
		LeadsGenerated:   20,
		Conversions:      2,
		Clicks:           300,
		Impressions:      10000,
	}

	k := kpi.Derive(c, computedAt)

	assert.Equal(t, "CMP-001", k.CampaignID)
	assert.Equal(t, "Autumn Search", k.CampaignName)
	assert.Equal(t, "Google Ads", k.Channel)
	assert.InDelta(t, -50.0, k.ROIPercentage, 1e-9)
	assert.InDelta(t, 50.0, k.CostPerLead, 1e-9)
	assert.InDelta(t, 500.0, k.CostPerAcquisition, 1e-9)
	assert.InDelta(t, 10.0, k.ConversionRate, 1e-9)
	assert.InDelta(t, 3.0, k.ClickThroughRate, 1e-9)
	assert.InDelta(t, 1000.0, k.TotalInvestment, 1e-9)
	assert.InDelta(t, 500.0, k.TotalRevenue, 1e-9)
	assert.InDelta(t, -500.0, k.NetProfit, 1e-9)
	assert.Equal(t, 0.0, k.ProfitabilityScore)
	assert.Equal(t, computedAt, k.LastUpdated)
}

func TestDerive_AllZero(t *testing.T) {
	k := kpi.Derive(model.CampaignRecord{CampaignID: "CMP-ZERO"}, computedAt)

	assert.Equal(t, 0.0, k.ROIPercentage)
	assert.Equal(t, 0.0, k.CostPerLead)
	assert.Equal(t, 0.0, k.CostPerAcquisition)
	assert.Equal(t, 0.0, k.ConversionRate)
	assert.Equal(t, 0.0, k.ClickThroughRate)
	assert.Equal(t, 0.0, k.NetProfit)
	assert.Equal(t, 0.0, k.ProfitabilityScore)
}

func TestDerive_ZeroSpendWithRevenue(t *testing.T) {
	k := kpi.Derive(model.CampaignRecord{
		RevenueGenerated: 2500,
		LeadsGenerated:   0,
		Conversions:      0,
	}, computedAt)

	assert.Equal(t, 0.0, k.ROIPercentage)
	assert.Equal(t, 0.0, k.CostPerLead)
	assert.Equal(t, 0.0, k.CostPerAcquisition)
	assert.InDelta(t, 2500.0, k.NetProfit, 1e-9)
	assert.Equal(t, 0.0, k.ProfitabilityScore)
}

func TestDerive_Rounding(t *testing.T) {
	k := kpi.Derive(model.CampaignRecord{
		TotalSpend:       300,
		RevenueGenerated: 1000,
		LeadsGenerated:   7,
		Conversions:      3,
		Clicks:           7,
		Impressions:      3000,
	}, computedAt)

	// 700/300*100 = 233.333...
	assert.InDelta(t, 233.33, k.ROIPercentage, 1e-9)
	// 300/7 = 42.857...
	assert.InDelta(t, 42.86, k.CostPerLead, 1e-9)
	assert.InDelta(t, 100.0, k.CostPerAcquisition, 1e-9)
	// 3/7*100 = 42.857...
	assert.InDelta(t, 42.86, k.ConversionRate, 1e-9)
	// 7/3000*100 = 0.23333...
	assert.InDelta(t, 0.2333, k.ClickThroughRate, 1e-9)
	assert.InDelta(t, 233.3333/30, k.ProfitabilityScore, 1e-3)
}

func TestDerive_RoundsDecimalHalfUp(t *testing.T) {
	// 10.7/4 = 2.675 in decimal; the float64 quotient sits just below it.
	k := kpi.Derive(model.CampaignRecord{TotalSpend: 10.7, LeadsGenerated: 4}, computedAt)
	assert.Equal(t, 2.68, k.CostPerLead)

	k = kpi.Derive(model.CampaignRecord{TotalSpend: 10.7, LeadsGenerated: 4, Conversions: 4}, computedAt)
	assert.Equal(t, 2.68, k.CostPerAcquisition)
}

func TestDerive_ScoreClamped(t *testing.T) {
	tests := []struct {
		name     string
		spend    float64
		revenue  float64
		expected float64
	}{
		{name: "negative roi", spend: 100, revenue: 10, expected: 0},
		{name: "mid range", spend: 100, revenue: 250, expected: 5},
		{name: "very profitable", spend: 100, revenue: 100000, expected: 10},
		{name: "exactly 300 percent", spend: 100, revenue: 400, expected: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := kpi.Derive(model.CampaignRecord{TotalSpend: tt.spend, RevenueGenerated: tt.revenue}, computedAt)
			assert.InDelta(t, tt.expected, k.ProfitabilityScore, 1e-9)
		})
	}
}

func TestCompute_PreservesOrderAndCount(t *testing.T) {
	campaigns := make([]model.CampaignRecord, 0, 25)
	for i := 0; i < 25; i++ {
		campaigns = append(campaigns, model.CampaignRecord{
			CampaignID: fmt.Sprintf("CMP-%03d", i),
			TotalSpend: float64(i * 10),
		})
	}

	kpis := kpi.Compute(campaigns, computedAt)

	require.Len(t, kpis, len(campaigns))
	for i := range campaigns {
		assert.Equal(t, campaigns[i].CampaignID, kpis[i].CampaignID)
	}
}

func TestCompute_Empty(t *testing.T) {
	kpis := kpi.Compute(nil, computedAt)
	assert.NotNil(t, kpis)
	assert.Empty(t, kpis)
}

func BenchmarkCompute(b *testing.B) {
	campaigns := make([]model.CampaignRecord, 1000)
	for i := range campaigns {
		campaigns[i] = model.CampaignRecord{
			TotalSpend: 1000, RevenueGenerated: 1500,
			LeadsGenerated: 40, Conversions: 5, Clicks: 800, Impressions: 20000,
		}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = kpi.Compute(campaigns, computedAt)
	}
}
