package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSeries(t *testing.T) {
	t.Run("accepts ascending non-negative series", func(t *testing.T) {
		err := ValidateSeries([]DailyValue{
			{Date: "2024-01-02", Value: 100},
			{Date: "2024-01-03", Value: 101},
		})
		assert.NoError(t, err)
	})

	t.Run("rejects negative values", func(t *testing.T) {
		err := ValidateSeries([]DailyValue{{Date: "2024-01-02", Value: -5}})
		assert.Error(t, err)
	})

	t.Run("rejects out-of-order dates", func(t *testing.T) {
		err := ValidateSeries([]DailyValue{
			{Date: "2024-01-03", Value: 100},
			{Date: "2024-01-02", Value: 101},
		})
		assert.Error(t, err)
	})
}

func TestToRecord(t *testing.T) {
	beta := 1.1
	metrics := &PortfolioMetrics{
		Name:        "Growth",
		Beta:        &beta,
		StdDev:      0.15,
		IsBenchmark: false,
	}

	record := metrics.ToRecord("2024-01-05", "ops@clockwise.io")
	assert.Equal(t, "Growth", record.Name)
	assert.Equal(t, "2024-01-05", record.AsOfDate)
	assert.Equal(t, "ops@clockwise.io", record.UpdatedBy)
	require.NotNil(t, record.Beta)
	assert.Equal(t, 1.1, *record.Beta)
	assert.False(t, record.UpdatedAt.IsZero())
}

func TestGoalInputScenarioFlags(t *testing.T) {
	r := func(v float64) *float64 { return &v }

	t.Run("empty holdings have no scenario data", func(t *testing.T) {
		input := GoalInput{}
		assert.False(t, input.HasScenarioData())
		assert.False(t, input.HasYearOneData())
	})

	t.Run("all legs present", func(t *testing.T) {
		input := GoalInput{Holdings: []GoalHolding{
			{Weight: 1, YearOneReturn: r(0.05), BullReturn: r(0.1), BaseReturn: r(0.05), BearReturn: r(-0.1)},
		}}
		assert.True(t, input.HasScenarioData())
		assert.True(t, input.HasYearOneData())
	})

	t.Run("one missing leg disables the scenario path", func(t *testing.T) {
		input := GoalInput{Holdings: []GoalHolding{
			{Weight: 1, BullReturn: r(0.1), BaseReturn: r(0.05)},
		}}
		assert.False(t, input.HasScenarioData())
	})
}
