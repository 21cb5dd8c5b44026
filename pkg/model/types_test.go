package model_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ogulcanaydogan/campaign-refresh/pkg/model"
)

func TestLookbackStart(t *testing.T) {
	now := time.Date(2026, 10, 15, 14, 30, 0, 0, time.UTC)
	start := model.LookbackStart(now, 6)
	assert.Equal(t, time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC), start)
}

func TestLookbackStart_CrossesYear(t *testing.T) {
	now := time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)
	start := model.LookbackStart(now, 6)
	assert.Equal(t, time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC), start)
}

func TestLookbackStart_ClampsToMonthEnd(t *testing.T) {
	tests := []struct {
		name   string
		now    time.Time
		months int
		want   time.Time
	}{
		{"aug 31 to feb 28", time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC), 6, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)},
		{"dec 31 to jun 30", time.Date(2026, 12, 31, 10, 0, 0, 0, time.UTC), 6, time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)},
		{"mar 31 in leap year to sep 30", time.Date(2028, 3, 31, 10, 0, 0, 0, time.UTC), 6, time.Date(2027, 9, 30, 0, 0, 0, 0, time.UTC)},
		{"aug 31 to leap feb 29", time.Date(2028, 8, 31, 0, 0, 0, 0, time.UTC), 6, time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC)},
		{"zero months keeps the day", time.Date(2026, 5, 31, 23, 59, 0, 0, time.UTC), 0, time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, model.LookbackStart(tt.now, tt.months))
		})
	}
}

func TestBudgetYearFloor(t *testing.T) {
	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 2025, model.BudgetYearFloor(now, 1))
	assert.Equal(t, 2026, model.BudgetYearFloor(now, 0))
}

func TestStageResult(t *testing.T) {
	at := time.Now()

	ok := model.Succeeded(12, at)
	assert.True(t, ok.OK())
	assert.Equal(t, 12, ok.Count())
	assert.Empty(t, ok.Error)

	failed := model.Failed(errors.New("boom"), at)
	assert.False(t, failed.OK())
	assert.Equal(t, 0, failed.Count())
	assert.Equal(t, "boom", failed.Error)
	assert.Nil(t, failed.Records)
}

func TestRefreshStatus_AllSucceeded(t *testing.T) {
	at := time.Now()
	status := model.RefreshStatus{
		model.StageCampaigns: model.Succeeded(3, at),
		model.StageBudgets:   model.Succeeded(2, at),
		model.StageKPI:       model.Succeeded(3, at),
	}
	assert.False(t, status.AllSucceeded(), "missing stage must not count as success")

	status[model.StageAlerts] = model.Succeeded(0, at)
	assert.True(t, status.AllSucceeded())
	assert.Equal(t, 4, status.Succeeded())

	status[model.StageBudgets] = model.Failed(errors.New("down"), at)
	assert.False(t, status.AllSucceeded())
	assert.Equal(t, 3, status.Succeeded())
}

func TestStatusFileName(t *testing.T) {
	at := time.Date(2026, 1, 7, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "refresh_status_20260107.json", model.StatusFileName(at))
}

func TestIsKind(t *testing.T) {
	base := model.NewError(model.KindQuery, "fetch campaigns", errors.New("syntax"))
	wrapped := fmt.Errorf("campaign stage: %w", base)

	assert.True(t, model.IsKind(wrapped, model.KindQuery))
	assert.False(t, model.IsKind(wrapped, model.KindConnection))
	assert.False(t, model.IsKind(errors.New("plain"), model.KindQuery))
	assert.Contains(t, base.Error(), "query error: fetch campaigns: syntax")
}
