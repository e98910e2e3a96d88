package calculator

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"clockwise-api/internal/models"
)

const tradingDaysPerYear = 252

// ReturnsCalculator derives return and risk statistics from a single
// ascending series of daily portfolio values.
type ReturnsCalculator struct {
	riskFreeRate float64
}

type ReturnsCalculatorConfig struct {
	RiskFreeRate float64 `json:"risk_free_rate"`
}

func NewReturnsCalculator(config ReturnsCalculatorConfig) *ReturnsCalculator {
	rate := config.RiskFreeRate
	if rate == 0 {
		rate = 0.04
	}
	return &ReturnsCalculator{riskFreeRate: rate}
}

// DailyReturns computes simple returns between consecutive observations,
// skipping any step whose starting value is non-positive.
func (rc *ReturnsCalculator) DailyReturns(values []models.DailyValue) []float64 {
	if len(values) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev := values[i-1].Value
		if prev <= 0 {
			continue
		}
		returns = append(returns, (values[i].Value-prev)/prev)
	}
	return returns
}

// AnnualizedStdDev is the population standard deviation of daily returns
// scaled by sqrt(252). Returns 0 for an empty slice.
func (rc *ReturnsCalculator) AnnualizedStdDev(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	mean := stat.Mean(returns, nil)
	sumSquares := 0.0
	for _, r := range returns {
		diff := r - mean
		sumSquares += diff * diff
	}
	variance := sumSquares / float64(len(returns))

	return math.Sqrt(variance) * math.Sqrt(tradingDaysPerYear)
}

// SharpeRatio is the annualized mean daily return minus the risk-free
// rate, divided by the annualized standard deviation. Returns 0 when
// there are no returns or the deviation is 0.
func (rc *ReturnsCalculator) SharpeRatio(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	stdDev := rc.AnnualizedStdDev(returns)
	if stdDev == 0 {
		return 0
	}

	annualizedReturn := stat.Mean(returns, nil) * tradingDaysPerYear
	return (annualizedReturn - rc.riskFreeRate) / stdDev
}

// MaxDrawdown tracks a running peak over the series and reports the
// largest peak-to-trough decline as a negative fraction. A strictly
// increasing series yields 0.
func (rc *ReturnsCalculator) MaxDrawdown(values []models.DailyValue) float64 {
	if len(values) == 0 {
		return 0
	}

	maxDrawdown := 0.0
	peak := values[0].Value
	for _, dv := range values {
		if dv.Value > peak {
			peak = dv.Value
		}
		if peak > 0 {
			drawdown := (peak - dv.Value) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return -maxDrawdown
}

// TrailingReturn restricts the series to the last N years (cutoff is the
// last date minus N years, inclusive) and computes the simple total
// return over that window. Returns nil when fewer than 2 points fall in
// the window or the window's start value is non-positive, so callers can
// distinguish "zero return" from "unknown".
func (rc *ReturnsCalculator) TrailingReturn(values []models.DailyValue, years int) *float64 {
	if len(values) < 2 {
		return nil
	}

	last := values[len(values)-1].Time()
	if last.IsZero() {
		return nil
	}
	cutoff := last.AddDate(-years, 0, 0).Format("2006-01-02")

	window := make([]models.DailyValue, 0, len(values))
	for _, dv := range values {
		if dv.Date >= cutoff {
			window = append(window, dv)
		}
	}
	if len(window) < 2 {
		return nil
	}

	start := window[0].Value
	end := window[len(window)-1].Value
	if start <= 0 {
		return nil
	}

	result := (end - start) / start
	return &result
}
