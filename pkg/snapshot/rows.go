package snapshot

import (
	"fmt"
	"time"

	"github.com/ogulcanaydogan/campaign-refresh/pkg/model"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
)

type campaignRow struct {
	CampaignID       string  `csv:"campaign_id"`
	CampaignName     string  `csv:"campaign_name"`
	CampaignType     string  `csv:"campaign_type"`
	Channel          string  `csv:"channel"`
	StartDate        string  `csv:"start_date"`
	EndDate          string  `csv:"end_date"`
	BudgetAllocated  float64 `csv:"budget_allocated"`
	TotalSpend       float64 `csv:"total_spend"`
	Impressions      int64   `csv:"impressions"`
	Clicks           int64   `csv:"clicks"`
	LeadsGenerated   int64   `csv:"leads_generated"`
	Conversions      int64   `csv:"conversions"`
	RevenueGenerated float64 `csv:"revenue_generated"`
	Status           string  `csv:"status"`
}

// Columns the KPI stage reads from the campaign snapshot.
var campaignRequired = []string{
	"campaign_id", "campaign_name", "channel", "total_spend", "revenue_generated",
	"impressions", "clicks", "leads_generated", "conversions",
}

func toCampaignRow(c model.CampaignRecord) campaignRow {
	return campaignRow{
		CampaignID:       c.CampaignID,
		CampaignName:     c.CampaignName,
		CampaignType:     c.CampaignType,
		Channel:          c.Channel,
		StartDate:        formatDate(c.StartDate),
		EndDate:          formatDate(c.EndDate),
		BudgetAllocated:  c.BudgetAllocated,
		TotalSpend:       c.TotalSpend,
		Impressions:      c.Impressions,
		Clicks:           c.Clicks,
		LeadsGenerated:   c.LeadsGenerated,
		Conversions:      c.Conversions,
		RevenueGenerated: c.RevenueGenerated,
		Status:           c.Status,
	}
}

func (r campaignRow) record() (model.CampaignRecord, error) {
	start, err := parseDate(r.StartDate)
	if err != nil {
		return model.CampaignRecord{}, fmt.Errorf("campaign %s start_date: %w", r.CampaignID, err)
	}
	end, err := parseDate(r.EndDate)
	if err != nil {
		return model.CampaignRecord{}, fmt.Errorf("campaign %s end_date: %w", r.CampaignID, err)
	}
	return model.CampaignRecord{
		CampaignID:       r.CampaignID,
		CampaignName:     r.CampaignName,
		CampaignType:     r.CampaignType,
		Channel:          r.Channel,
		StartDate:        start,
		EndDate:          end,
		BudgetAllocated:  r.BudgetAllocated,
		TotalSpend:       r.TotalSpend,
		Impressions:      r.Impressions,
		Clicks:           r.Clicks,
		LeadsGenerated:   r.LeadsGenerated,
		Conversions:      r.Conversions,
		RevenueGenerated: r.RevenueGenerated,
		Status:           r.Status,
	}, nil
}

type budgetRow struct {
	BudgetID        string  `csv:"budget_id"`
	CampaignID      string  `csv:"campaign_id"`
	Channel         string  `csv:"channel"`
	BudgetCategory  string  `csv:"budget_category"`
	AllocatedAmount float64 `csv:"allocated_amount"`
	SpentAmount     float64 `csv:"spent_amount"`
	RemainingAmount float64 `csv:"remaining_amount"`
	Quarter         string  `csv:"quarter"`
	Month           int     `csv:"month"`
	Year            int     `csv:"year"`
	CostCenter      string  `csv:"cost_center"`
}

var budgetRequired = []string{"budget_id", "campaign_id", "allocated_amount", "spent_amount", "year"}

func toBudgetRow(b model.BudgetRecord) budgetRow {
	return budgetRow(b)
}

type kpiRow struct {
	CampaignID         string  `csv:"campaign_id"`
	CampaignName       string  `csv:"campaign_name"`
	Channel            string  `csv:"channel"`
	ROIPercentage      float64 `csv:"roi_percentage"`
	CostPerLead        float64 `csv:"cost_per_lead"`
	CostPerAcquisition float64 `csv:"cost_per_acquisition"`
	ConversionRate     float64 `csv:"conversion_rate"`
	ClickThroughRate   float64 `csv:"click_through_rate"`
	TotalInvestment    float64 `csv:"total_investment"`
	TotalRevenue       float64 `csv:"total_revenue"`
	NetProfit          float64 `csv:"net_profit"`
	ProfitabilityScore float64 `csv:"profitability_score"`
	LastUpdated        string  `csv:"last_updated"`
}

// Columns the alerts stage reads from the KPI snapshot.
var kpiRequired = []string{
	"campaign_id", "campaign_name", "channel", "roi_percentage", "cost_per_lead", "conversion_rate",
}

func toKPIRow(k model.KpiRecord) kpiRow {
	return kpiRow{
		CampaignID:         k.CampaignID,
		CampaignName:       k.CampaignName,
		Channel:            k.Channel,
		ROIPercentage:      k.ROIPercentage,
		CostPerLead:        k.CostPerLead,
		CostPerAcquisition: k.CostPerAcquisition,
		ConversionRate:     k.ConversionRate,
		ClickThroughRate:   k.ClickThroughRate,
		TotalInvestment:    k.TotalInvestment,
		TotalRevenue:       k.TotalRevenue,
		NetProfit:          k.NetProfit,
		ProfitabilityScore: k.ProfitabilityScore,
		LastUpdated:        k.LastUpdated.Format(timestampLayout),
	}
}

func (r kpiRow) record() (model.KpiRecord, error) {
	var updated time.Time
	if r.LastUpdated != "" {
		var err error
		updated, err = time.ParseInLocation(timestampLayout, r.LastUpdated, time.Local)
		if err != nil {
			return model.KpiRecord{}, fmt.Errorf("kpi %s last_updated: %w", r.CampaignID, err)
		}
	}
	return model.KpiRecord{
		CampaignID:         r.CampaignID,
		CampaignName:       r.CampaignName,
		Channel:            r.Channel,
		ROIPercentage:      r.ROIPercentage,
		CostPerLead:        r.CostPerLead,
		CostPerAcquisition: r.CostPerAcquisition,
		ConversionRate:     r.ConversionRate,
		ClickThroughRate:   r.ClickThroughRate,
		TotalInvestment:    r.TotalInvestment,
		TotalRevenue:       r.TotalRevenue,
		NetProfit:          r.NetProfit,
		ProfitabilityScore: r.ProfitabilityScore,
		LastUpdated:        updated,
	}, nil
}

type alertRow struct {
	AlertType         string `csv:"alert_type"`
	CampaignID        string `csv:"campaign_id"`
	CampaignName      string `csv:"campaign_name"`
	Channel           string `csv:"channel"`
	Issue             string `csv:"issue"`
	CurrentValue      string `csv:"current_value"`
	RecommendedAction string `csv:"recommended_action"`
	Priority          string `csv:"priority"`
}

var alertRequired = []string{"alert_type", "campaign_id", "issue", "priority"}

func toAlertRow(a model.AlertRecord) alertRow {
	return alertRow{
		AlertType:         string(a.Type),
		CampaignID:        a.CampaignID,
		CampaignName:      a.CampaignName,
		Channel:           a.Channel,
		Issue:             a.Issue,
		CurrentValue:      a.CurrentValue,
		RecommendedAction: a.RecommendedAction,
		Priority:          string(a.Priority),
	}
}

func (r alertRow) record() model.AlertRecord {
	return model.AlertRecord{
		Type:              model.AlertType(r.AlertType),
		CampaignID:        r.CampaignID,
		CampaignName:      r.CampaignName,
		Channel:           r.Channel,
		Issue:             r.Issue,
		CurrentValue:      r.CurrentValue,
		RecommendedAction: r.RecommendedAction,
		Priority:          model.Priority(r.Priority),
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// parseDate accepts a bare date or a date with a time part.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{dateLayout, timestampLayout, time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
