package model

import "time"

// CampaignRecord is one row of the marketing_campaigns table.
type CampaignRecord struct {
	CampaignID       string    `json:"campaign_id" db:"campaign_id"`
	CampaignName     string    `json:"campaign_name" db:"campaign_name"`
	CampaignType     string    `json:"campaign_type" db:"campaign_type"`
	Channel          string    `json:"channel" db:"channel"`
	StartDate        time.Time `json:"start_date" db:"start_date"`
	EndDate          time.Time `json:"end_date" db:"end_date"`
	BudgetAllocated  float64   `json:"budget_allocated" db:"budget_allocated"`
	TotalSpend       float64   `json:"total_spend" db:"total_spend"`
	Impressions      int64     `json:"impressions" db:"impressions"`
	Clicks           int64     `json:"clicks" db:"clicks"`
	LeadsGenerated   int64     `json:"leads_generated" db:"leads_generated"`
	Conversions      int64     `json:"conversions" db:"conversions"`
	RevenueGenerated float64   `json:"revenue_generated" db:"revenue_generated"`
	Status           string    `json:"status" db:"status"`
}

// BudgetRecord is one row of the budget_allocation table.
// RemainingAmount is taken as delivered upstream and is not recomputed.
type BudgetRecord struct {
	BudgetID        string  `json:"budget_id" db:"budget_id"`
	CampaignID      string  `json:"campaign_id" db:"campaign_id"`
	Channel         string  `json:"channel" db:"channel"`
	BudgetCategory  string  `json:"budget_category" db:"budget_category"`
	AllocatedAmount float64 `json:"allocated_amount" db:"allocated_amount"`
	SpentAmount     float64 `json:"spent_amount" db:"spent_amount"`
	RemainingAmount float64 `json:"remaining_amount" db:"remaining_amount"`
	Quarter         string  `json:"quarter" db:"quarter"`
	Month           int     `json:"month" db:"month"`
	Year            int     `json:"year" db:"year"`
	CostCenter      string  `json:"cost_center" db:"cost_center"`
}

// KpiRecord holds the metrics derived from exactly one CampaignRecord.
type KpiRecord struct {
	CampaignID         string    `json:"campaign_id"`
	CampaignName       string    `json:"campaign_name"`
	Channel            string    `json:"channel"`
	ROIPercentage      float64   `json:"roi_percentage"`
	CostPerLead        float64   `json:"cost_per_lead"`
	CostPerAcquisition float64   `json:"cost_per_acquisition"`
	ConversionRate     float64   `json:"conversion_rate"`
	ClickThroughRate   float64   `json:"click_through_rate"`
	TotalInvestment    float64   `json:"total_investment"`
	TotalRevenue       float64   `json:"total_revenue"`
	NetProfit          float64   `json:"net_profit"`
	ProfitabilityScore float64   `json:"profitability_score"`
	LastUpdated        time.Time `json:"last_updated"`
}

// AlertType classifies how urgent a campaign alert is.
type AlertType string

const (
	AlertCritical AlertType = "Critical"
	AlertWarning  AlertType = "Warning"
)

// Priority orders alerts for the people acting on them.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
)

// AlertRecord is a single threshold breach for one campaign.
type AlertRecord struct {
	Type              AlertType `json:"type" db:"type"`
	CampaignID        string    `json:"campaign_id" db:"campaign_id"`
	CampaignName      string    `json:"campaign_name" db:"campaign_name"`
	Channel           string    `json:"channel" db:"channel"`
	Issue             string    `json:"issue" db:"issue"`
	CurrentValue      string    `json:"current_value" db:"current_value"`
	RecommendedAction string    `json:"recommended_action" db:"recommended_action"`
	Priority          Priority  `json:"priority" db:"priority"`
}

// LookbackStart returns midnight of the day that lies the given number of
// months before now, in now's location. A day that does not exist in the
// target month is clamped to its last day, so Aug 31 minus 6 months is Feb 28.
func LookbackStart(now time.Time, months int) time.Time {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -months, 0)
	day := min(now.Day(), daysIn(first))
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, now.Location())
}

// daysIn returns the number of days in t's month.
func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// BudgetYearFloor returns the earliest budget year inside the lookback range.
func BudgetYearFloor(now time.Time, years int) int {
	return now.AddDate(-years, 0, 0).Year()
}
