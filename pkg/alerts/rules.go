package alerts

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ogulcanaydogan/campaign-refresh/pkg/model"
)

// Issue labels and recommended actions attached to each rule.
const (
	IssueNegativeROI       = "Negative ROI"
	IssueHighCostPerLead   = "High Cost Per Lead"
	IssueLowConversionRate = "Low Conversion Rate"

	ActionNegativeROI       = "Pause campaign and review targeting"
	ActionHighCostPerLead   = "Optimize targeting or reduce bid"
	ActionLowConversionRate = "Review landing page and offer"
)

// Thresholds are the limits each rule compares against.
type Thresholds struct {
	MinROIPercentage  float64 `yaml:"min_roi_percentage"`
	MaxCostPerLead    float64 `yaml:"max_cost_per_lead"`
	MinConversionRate float64 `yaml:"min_conversion_rate"`
}

// DefaultThresholds returns the standard rule limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinROIPercentage:  0,
		MaxCostPerLead:    100,
		MinConversionRate: 5,
	}
}

// Rule flags a KPI record that crosses one threshold.
type Rule struct {
	Issue    string
	Type     model.AlertType
	Priority model.Priority
	Action   string
	Match    func(model.KpiRecord) bool
	Value    func(model.KpiRecord) string
}

// Rules is an ordered rule set. Alerts come out grouped by rule in this order.
type Rules []Rule

// NewRules builds the three campaign rules for the given thresholds.
func NewRules(t Thresholds) Rules {
	return Rules{
		{
			Issue:    IssueNegativeROI,
			Type:     model.AlertCritical,
			Priority: model.PriorityHigh,
			Action:   ActionNegativeROI,
			Match:    func(k model.KpiRecord) bool { return k.ROIPercentage < t.MinROIPercentage },
			Value:    func(k model.KpiRecord) string { return fmt.Sprintf("%.2f%%", k.ROIPercentage) },
		},
		{
			Issue:    IssueHighCostPerLead,
			Type:     model.AlertWarning,
			Priority: model.PriorityMedium,
			Action:   ActionHighCostPerLead,
			Match:    func(k model.KpiRecord) bool { return k.CostPerLead > t.MaxCostPerLead },
			Value:    func(k model.KpiRecord) string { return fmt.Sprintf("$%.2f", k.CostPerLead) },
		},
		{
			Issue:    IssueLowConversionRate,
			Type:     model.AlertWarning,
			Priority: model.PriorityMedium,
			Action:   ActionLowConversionRate,
			Match:    func(k model.KpiRecord) bool { return k.ConversionRate < t.MinConversionRate },
			Value:    func(k model.KpiRecord) string { return fmt.Sprintf("%.2f%%", k.ConversionRate) },
		},
	}
}

// DefaultRules returns the rule set built from DefaultThresholds.
func DefaultRules() Rules { return NewRules(DefaultThresholds()) }

// Evaluate runs the default rules over kpis.
func Evaluate(kpis []model.KpiRecord) []model.AlertRecord {
	return DefaultRules().Evaluate(kpis)
}

// Evaluate scans the full KPI set once per rule. A campaign can match
// several rules and yields one alert per match. The result is never nil.
func (rs Rules) Evaluate(kpis []model.KpiRecord) []model.AlertRecord {
	out := make([]model.AlertRecord, 0)
	for _, r := range rs {
		for _, k := range kpis {
			if !r.Match(k) {
				continue
			}
			out = append(out, model.AlertRecord{
				Type:              r.Type,
				CampaignID:        k.CampaignID,
				CampaignName:      k.CampaignName,
				Channel:           k.Channel,
				Issue:             r.Issue,
				CurrentValue:      r.Value(k),
				RecommendedAction: r.Action,
				Priority:          r.Priority,
			})
		}
	}
	return out
}

// LoadThresholds reads threshold overrides from a YAML file. Keys absent
// from the file keep their default value.
func LoadThresholds(path string) (Thresholds, error) {
	t := DefaultThresholds()

	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read rules file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return DefaultThresholds(), fmt.Errorf("parse rules file %s: %w", path, err)
	}
	if t.MaxCostPerLead < 0 || t.MinConversionRate < 0 {
		return DefaultThresholds(), fmt.Errorf("rules file %s: thresholds must not be negative", path)
	}

	return t, nil
}

// LoadRules is LoadThresholds followed by NewRules.
func LoadRules(path string) (Rules, error) {
	t, err := LoadThresholds(path)
	if err != nil {
		return nil, err
	}
	return NewRules(t), nil
}
