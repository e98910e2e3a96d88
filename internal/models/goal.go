package models

// GoalInput is the intake payload for a goal-probability analysis. Only
// the fields the projector arithmetic needs are typed; the surrounding
// intake form is passed through opaquely by the API layer.
type GoalInput struct {
	CurrentValue        float64            `json:"current_value" binding:"min=0"`
	GoalAmount          float64            `json:"goal_amount" binding:"required,gt=0"`
	HorizonYears        int                `json:"horizon_years" binding:"required,gt=0"`
	MonthlyContribution float64            `json:"monthly_contribution" binding:"min=0"`
	Allocation          map[string]float64 `json:"allocation,omitempty"` // asset class -> weight
	Holdings            []GoalHolding      `json:"holdings,omitempty"`
}

// GoalHolding is a concrete position supplied with the intake. YearOneReturn
// is the measured blended forward return when the caller has one; the
// scenario returns enable the stochastic projection path.
type GoalHolding struct {
	Symbol        string   `json:"symbol"`
	Weight        float64  `json:"weight"`
	YearOneReturn *float64 `json:"year_one_return,omitempty"`
	BullReturn    *float64 `json:"bull_return,omitempty"`
	BaseReturn    *float64 `json:"base_return,omitempty"`
	BearReturn    *float64 `json:"bear_return,omitempty"`
}

// HasScenarioData reports whether every holding carries the bull/base/bear
// returns the Monte Carlo path needs.
func (gi *GoalInput) HasScenarioData() bool {
	if len(gi.Holdings) == 0 {
		return false
	}
	for _, h := range gi.Holdings {
		if h.BullReturn == nil || h.BaseReturn == nil || h.BearReturn == nil {
			return false
		}
	}
	return true
}

// HasYearOneData reports whether every holding carries a measured Year-1
// return, allowing the blended expected return to come from holdings
// instead of long-run asset-class averages.
func (gi *GoalInput) HasYearOneData() bool {
	if len(gi.Holdings) == 0 {
		return false
	}
	for _, h := range gi.Holdings {
		if h.YearOneReturn == nil {
			return false
		}
	}
	return true
}

// AssumptionBasis values surfaced to callers so UI copy can say whether
// the projection used long-term averages or measured Year-1 returns.
const (
	AssumptionLongTerm = "long_term"
	AssumptionYearOne  = "year_one"
)

// GoalDistribution is a downside/median/upside triple.
type GoalDistribution struct {
	Downside float64 `json:"downside"`
	Median   float64 `json:"median"`
	Upside   float64 `json:"upside"`
}

// GoalAnalysis is the projector output.
type GoalAnalysis struct {
	ProbabilityOfSuccess GoalDistribution `json:"probability_of_success"`
	ProjectedValues      GoalDistribution `json:"projected_values"`
	Shortfall            GoalDistribution `json:"shortfall"`
	ExpectedReturn       float64          `json:"expected_return"`
	AssumptionBasis      string           `json:"assumption_basis"`
	Simulated            bool             `json:"simulated"`
}
