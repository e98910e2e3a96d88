package calculator

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"clockwise-api/internal/models"
)

// Long-run annual return assumptions per asset class, used when the
// intake does not carry measured holding-level returns.
var longRunReturns = map[string]float64{
	"us_equity":    0.07,
	"intl_equity":  0.065,
	"bonds":        0.04,
	"cash":         0.02,
	"alternatives": 0.05,
}

const defaultLongRunReturn = 0.05

// Scenario mixture for the stochastic path: bull/base/bear.
var scenarioWeights = [3]float64{0.25, 0.50, 0.25}

// Fixed multiplicative bands for the deterministic three-point
// distribution when no simulation path is available.
const (
	downsideBand = 0.6
	upsideBand   = 1.4
)

// GoalProjector projects a portfolio's value forward under
// expected-return assumptions and computes a probability-of-success
// distribution against a target goal.
type GoalProjector struct {
	simulations int
	logger      *logrus.Entry
}

type GoalProjectorConfig struct {
	Simulations int `json:"simulations"`
}

func NewGoalProjector(config GoalProjectorConfig) *GoalProjector {
	simulations := config.Simulations
	if simulations <= 0 {
		simulations = 5000
	}
	return &GoalProjector{
		simulations: simulations,
		logger:      logrus.WithField("component", "goal_projector"),
	}
}

// Analyze produces the goal analysis for the given intake. The point
// estimate is deterministic for deterministic inputs; the stochastic
// path is taken only when every holding carries scenario returns.
func (gp *GoalProjector) Analyze(input models.GoalInput) *models.GoalAnalysis {
	expectedReturn, basis := gp.ExpectedReturn(input)
	gp.logger.WithFields(logrus.Fields{
		"expected_return":  expectedReturn,
		"assumption_basis": basis,
	}).Info("Projecting goal")

	point := gp.PointProjection(input.CurrentValue, input.MonthlyContribution, expectedReturn, input.HorizonYears)

	analysis := &models.GoalAnalysis{
		ExpectedReturn:  expectedReturn,
		AssumptionBasis: basis,
	}

	if input.HasScenarioData() {
		analysis.Simulated = true
		projected, probability := gp.simulate(input)
		analysis.ProjectedValues = projected
		analysis.ProbabilityOfSuccess = models.GoalDistribution{
			Downside: clamp01(safeRatio(projected.Downside, input.GoalAmount)),
			Median:   clamp01(probability),
			Upside:   clamp01(safeRatio(projected.Upside, input.GoalAmount)),
		}
	} else {
		analysis.ProjectedValues = models.GoalDistribution{
			Downside: point * downsideBand,
			Median:   point,
			Upside:   point * upsideBand,
		}
		analysis.ProbabilityOfSuccess = models.GoalDistribution{
			Downside: clamp01(safeRatio(point*downsideBand, input.GoalAmount)),
			Median:   clamp01(safeRatio(point, input.GoalAmount)),
			Upside:   clamp01(safeRatio(point*upsideBand, input.GoalAmount)),
		}
	}

	analysis.Shortfall = models.GoalDistribution{
		Downside: math.Max(0, input.GoalAmount-analysis.ProjectedValues.Downside),
		Median:   math.Max(0, input.GoalAmount-analysis.ProjectedValues.Median),
		Upside:   math.Max(0, input.GoalAmount-analysis.ProjectedValues.Upside),
	}

	return analysis
}

// ExpectedReturn derives the annual expected return and reports which
// assumption set produced it: the measured blended Year-1 return when
// concrete holdings carry one, otherwise the weighted long-run
// asset-class averages.
func (gp *GoalProjector) ExpectedReturn(input models.GoalInput) (float64, string) {
	if input.HasYearOneData() {
		weightSum := 0.0
		weighted := 0.0
		for _, h := range input.Holdings {
			weightSum += h.Weight
			weighted += h.Weight * *h.YearOneReturn
		}
		if weightSum > 0 {
			return weighted / weightSum, models.AssumptionYearOne
		}
	}

	if len(input.Allocation) == 0 {
		return defaultLongRunReturn, models.AssumptionLongTerm
	}

	weightSum := 0.0
	weighted := 0.0
	for class, weight := range input.Allocation {
		classReturn, ok := longRunReturns[class]
		if !ok {
			classReturn = defaultLongRunReturn
		}
		weightSum += weight
		weighted += weight * classReturn
	}
	if weightSum == 0 {
		return defaultLongRunReturn, models.AssumptionLongTerm
	}
	return weighted / weightSum, models.AssumptionLongTerm
}

// PointProjection grows the current value at the expected rate and adds
// the future value of the periodic contributions.
func (gp *GoalProjector) PointProjection(currentValue, monthlyContribution, rate float64, years int) float64 {
	growth := math.Pow(1+rate, float64(years))
	projected := currentValue * growth

	annualContribution := monthlyContribution * 12
	if rate == 0 {
		projected += annualContribution * float64(years)
	} else {
		projected += annualContribution * (growth - 1) / rate
	}
	return projected
}

// simulate runs the Monte Carlo path: each year of each path draws one of
// the bull/base/bear market states, blends the holdings' scenario returns
// by weight, and perturbs the result with normal noise sized from the
// bull-bear spread.
func (gp *GoalProjector) simulate(input models.GoalInput) (models.GoalDistribution, float64) {
	bull, base, bear := gp.blendedScenarios(input.Holdings)
	sigma := (bull - bear) / 4
	if sigma <= 0 {
		sigma = 0.01
	}
	noise := distuv.Normal{Mu: 0, Sigma: sigma}

	finals := make([]float64, gp.simulations)
	annualContribution := input.MonthlyContribution * 12
	successes := 0

	for i := 0; i < gp.simulations; i++ {
		value := input.CurrentValue
		for year := 0; year < input.HorizonYears; year++ {
			var annualReturn float64
			switch drawScenario() {
			case 0:
				annualReturn = bull
			case 1:
				annualReturn = base
			default:
				annualReturn = bear
			}
			annualReturn += noise.Rand()

			value = value*(1+annualReturn) + annualContribution
			if value < 0 {
				value = 0
			}
		}
		finals[i] = value
		if value >= input.GoalAmount {
			successes++
		}
	}

	sort.Float64s(finals)
	projected := models.GoalDistribution{
		Downside: stat.Quantile(0.10, stat.Empirical, finals, nil),
		Median:   stat.Quantile(0.50, stat.Empirical, finals, nil),
		Upside:   stat.Quantile(0.90, stat.Empirical, finals, nil),
	}

	return projected, float64(successes) / float64(gp.simulations)
}

// blendedScenarios reduces holding-level scenario returns to
// portfolio-level bull/base/bear returns by weight.
func (gp *GoalProjector) blendedScenarios(holdings []models.GoalHolding) (bull, base, bear float64) {
	weightSum := 0.0
	for _, h := range holdings {
		weightSum += h.Weight
		bull += h.Weight * *h.BullReturn
		base += h.Weight * *h.BaseReturn
		bear += h.Weight * *h.BearReturn
	}
	if weightSum > 0 {
		bull /= weightSum
		base /= weightSum
		bear /= weightSum
	}
	return bull, base, bear
}

// drawScenario samples the market state index 0=bull 1=base 2=bear.
func drawScenario() int {
	u := distuv.Uniform{Min: 0, Max: 1}.Rand()
	switch {
	case u < scenarioWeights[0]:
		return 0
	case u < scenarioWeights[0]+scenarioWeights[1]:
		return 1
	default:
		return 2
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func safeRatio(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}
