// Package kpi derives per-campaign profitability metrics from raw campaign
// rows. Everything here is pure: no I/O, no clock reads.
package kpi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ogulcanaydogan/campaign-refresh/pkg/model"
)

const (
	// scoreDivisor maps ROI percentage onto the 0-10 profitability scale.
	scoreDivisor = 30.0
	maxScore     = 10.0
)

// Compute derives one KpiRecord per campaign, in input order, stamped with at.
func Compute(campaigns []model.CampaignRecord, at time.Time) []model.KpiRecord {
	out := make([]model.KpiRecord, 0, len(campaigns))
	for _, c := range campaigns {
		out = append(out, Derive(c, at))
	}
	return out
}

// Derive computes the metrics for a single campaign. Ratios whose
// denominator is zero or negative resolve to 0.
func Derive(c model.CampaignRecord, at time.Time) model.KpiRecord {
	spend := c.TotalSpend
	revenue := c.RevenueGenerated

	var roi float64
	if spend > 0 {
		roi = (revenue - spend) / spend * 100
	}

	return model.KpiRecord{
		CampaignID:         c.CampaignID,
		CampaignName:       c.CampaignName,
		Channel:            c.Channel,
		ROIPercentage:      round(roi, 2),
		CostPerLead:        round(ratio(spend, c.LeadsGenerated), 2),
		CostPerAcquisition: round(ratio(spend, c.Conversions), 2),
		ConversionRate:     round(ratio(float64(c.Conversions), c.LeadsGenerated)*100, 2),
		ClickThroughRate:   round(ratio(float64(c.Clicks), c.Impressions)*100, 4),
		TotalInvestment:    spend,
		TotalRevenue:       revenue,
		NetProfit:          revenue - spend,
		ProfitabilityScore: clamp(roi/scoreDivisor, 0, maxScore),
		LastUpdated:        at,
	}
}

func ratio(num float64, den int64) float64 {
	if den <= 0 {
		return 0
	}
	return num / float64(den)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// round rounds half away from zero, avoiding binary float drift.
func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
