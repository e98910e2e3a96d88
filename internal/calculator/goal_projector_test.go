package calculator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clockwise-api/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func TestExpectedReturn(t *testing.T) {
	gp := NewGoalProjector(GoalProjectorConfig{Simulations: 100})

	t.Run("year one returns win when every holding has one", func(t *testing.T) {
		input := models.GoalInput{
			Holdings: []models.GoalHolding{
				{Symbol: "AAA", Weight: 0.6, YearOneReturn: floatPtr(0.10)},
				{Symbol: "BBB", Weight: 0.4, YearOneReturn: floatPtr(0.05)},
			},
		}
		rate, basis := gp.ExpectedReturn(input)
		assert.InDelta(t, 0.08, rate, 1e-12)
		assert.Equal(t, models.AssumptionYearOne, basis)
	})

	t.Run("falls back to long-run averages when a holding lacks year one data", func(t *testing.T) {
		input := models.GoalInput{
			Holdings: []models.GoalHolding{
				{Symbol: "AAA", Weight: 0.6, YearOneReturn: floatPtr(0.10)},
				{Symbol: "BBB", Weight: 0.4},
			},
			Allocation: map[string]float64{"us_equity": 0.5, "bonds": 0.5},
		}
		rate, basis := gp.ExpectedReturn(input)
		assert.InDelta(t, 0.055, rate, 1e-12)
		assert.Equal(t, models.AssumptionLongTerm, basis)
	})

	t.Run("unknown asset classes use the default", func(t *testing.T) {
		input := models.GoalInput{
			Allocation: map[string]float64{"crypto": 1.0},
		}
		rate, basis := gp.ExpectedReturn(input)
		assert.InDelta(t, defaultLongRunReturn, rate, 1e-12)
		assert.Equal(t, models.AssumptionLongTerm, basis)
	})

	t.Run("no allocation at all uses the default", func(t *testing.T) {
		rate, basis := gp.ExpectedReturn(models.GoalInput{})
		assert.InDelta(t, defaultLongRunReturn, rate, 1e-12)
		assert.Equal(t, models.AssumptionLongTerm, basis)
	})
}

func TestPointProjection(t *testing.T) {
	gp := NewGoalProjector(GoalProjectorConfig{Simulations: 100})

	t.Run("compounds value and contributions", func(t *testing.T) {
		got := gp.PointProjection(100000, 1000, 0.05, 10)

		growth := math.Pow(1.05, 10)
		want := 100000*growth + 12000*(growth-1)/0.05
		assert.InDelta(t, want, got, 1e-6)
	})

	t.Run("zero rate degenerates to straight accumulation", func(t *testing.T) {
		got := gp.PointProjection(50000, 500, 0, 5)
		assert.InDelta(t, 50000+500*12*5, got, 1e-9)
	})

	t.Run("deterministic for equal inputs", func(t *testing.T) {
		a := gp.PointProjection(75000, 250, 0.06, 20)
		b := gp.PointProjection(75000, 250, 0.06, 20)
		assert.Equal(t, a, b)
	})
}

func TestAnalyzeBanded(t *testing.T) {
	gp := NewGoalProjector(GoalProjectorConfig{Simulations: 100})

	t.Run("no scenario data takes the banded path", func(t *testing.T) {
		input := models.GoalInput{
			CurrentValue:        100000,
			GoalAmount:          200000,
			HorizonYears:        10,
			MonthlyContribution: 500,
		}
		analysis := gp.Analyze(input)

		assert.False(t, analysis.Simulated)
		point := gp.PointProjection(100000, 500, analysis.ExpectedReturn, 10)
		assert.InDelta(t, point, analysis.ProjectedValues.Median, 1e-6)
		assert.InDelta(t, point*0.6, analysis.ProjectedValues.Downside, 1e-6)
		assert.InDelta(t, point*1.4, analysis.ProjectedValues.Upside, 1e-6)
	})

	t.Run("probabilities are clamped to the unit interval", func(t *testing.T) {
		input := models.GoalInput{
			CurrentValue: 1000000,
			GoalAmount:   1000, // trivially exceeded
			HorizonYears: 5,
		}
		analysis := gp.Analyze(input)
		assert.Equal(t, 1.0, analysis.ProbabilityOfSuccess.Median)
		assert.Equal(t, 1.0, analysis.ProbabilityOfSuccess.Upside)
		assert.Equal(t, 1.0, analysis.ProbabilityOfSuccess.Downside)
	})

	t.Run("shortfall is never negative", func(t *testing.T) {
		input := models.GoalInput{
			CurrentValue: 1000000,
			GoalAmount:   1000,
			HorizonYears: 5,
		}
		analysis := gp.Analyze(input)
		assert.Zero(t, analysis.Shortfall.Downside)
		assert.Zero(t, analysis.Shortfall.Median)
		assert.Zero(t, analysis.Shortfall.Upside)
	})

	t.Run("shortfall measures the gap to the goal", func(t *testing.T) {
		input := models.GoalInput{
			CurrentValue: 1000,
			GoalAmount:   10000000,
			HorizonYears: 2,
		}
		analysis := gp.Analyze(input)
		assert.InDelta(t, 10000000-analysis.ProjectedValues.Median, analysis.Shortfall.Median, 1e-6)
		assert.Greater(t, analysis.Shortfall.Downside, analysis.Shortfall.Upside)
	})
}

func TestAnalyzeSimulated(t *testing.T) {
	gp := NewGoalProjector(GoalProjectorConfig{Simulations: 4000})

	scenarioInput := func(goal float64) models.GoalInput {
		return models.GoalInput{
			CurrentValue:        100000,
			GoalAmount:          goal,
			HorizonYears:        10,
			MonthlyContribution: 500,
			Holdings: []models.GoalHolding{
				{
					Symbol:     "AAA",
					Weight:     0.7,
					BullReturn: floatPtr(0.15),
					BaseReturn: floatPtr(0.07),
					BearReturn: floatPtr(-0.10),
				},
				{
					Symbol:     "BBB",
					Weight:     0.3,
					BullReturn: floatPtr(0.08),
					BaseReturn: floatPtr(0.04),
					BearReturn: floatPtr(-0.02),
				},
			},
		}
	}

	t.Run("full scenario data takes the stochastic path", func(t *testing.T) {
		analysis := gp.Analyze(scenarioInput(250000))
		assert.True(t, analysis.Simulated)
	})

	t.Run("distribution is ordered", func(t *testing.T) {
		analysis := gp.Analyze(scenarioInput(250000))
		assert.LessOrEqual(t, analysis.ProjectedValues.Downside, analysis.ProjectedValues.Median)
		assert.LessOrEqual(t, analysis.ProjectedValues.Median, analysis.ProjectedValues.Upside)
		assert.GreaterOrEqual(t, analysis.ProjectedValues.Downside, 0.0)
	})

	t.Run("trivial goal is almost surely reached", func(t *testing.T) {
		analysis := gp.Analyze(scenarioInput(1000))
		assert.Greater(t, analysis.ProbabilityOfSuccess.Median, 0.99)
	})

	t.Run("unreachable goal is almost surely missed", func(t *testing.T) {
		analysis := gp.Analyze(scenarioInput(1e12))
		assert.Less(t, analysis.ProbabilityOfSuccess.Median, 0.01)
		assert.InDelta(t, 1e12, analysis.Shortfall.Median, 1e12*0.001)
	})

	t.Run("probabilities stay in the unit interval", func(t *testing.T) {
		analysis := gp.Analyze(scenarioInput(250000))
		for _, p := range []float64{
			analysis.ProbabilityOfSuccess.Downside,
			analysis.ProbabilityOfSuccess.Median,
			analysis.ProbabilityOfSuccess.Upside,
		} {
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 1.0)
		}
	})

	t.Run("missing scenario leg falls back to the banded path", func(t *testing.T) {
		input := scenarioInput(250000)
		input.Holdings[1].BearReturn = nil
		analysis := gp.Analyze(input)
		assert.False(t, analysis.Simulated)
	})
}

func TestBlendedScenarios(t *testing.T) {
	gp := NewGoalProjector(GoalProjectorConfig{})

	holdings := []models.GoalHolding{
		{Weight: 1, BullReturn: floatPtr(0.20), BaseReturn: floatPtr(0.08), BearReturn: floatPtr(-0.12)},
		{Weight: 3, BullReturn: floatPtr(0.04), BaseReturn: floatPtr(0.04), BearReturn: floatPtr(0.00)},
	}
	bull, base, bear := gp.blendedScenarios(holdings)
	assert.InDelta(t, 0.08, bull, 1e-12)
	assert.InDelta(t, 0.05, base, 1e-12)
	assert.InDelta(t, -0.03, bear, 1e-12)
}

func TestClampAndRatio(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-0.5))
	assert.Equal(t, 1.0, clamp01(1.5))
	assert.Equal(t, 0.42, clamp01(0.42))

	assert.Equal(t, 0.0, safeRatio(10, 0))
	assert.Equal(t, 2.0, safeRatio(10, 5))
}

func TestGoalProjectorDefaults(t *testing.T) {
	gp := NewGoalProjector(GoalProjectorConfig{})
	require.NotNil(t, gp)
	assert.Equal(t, 5000, gp.simulations)
}
