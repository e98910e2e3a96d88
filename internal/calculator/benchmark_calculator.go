package calculator

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"clockwise-api/internal/models"
)

// minSharedMonths is the minimum number of months both series must share
// before beta, alpha and the capture ratios are reported at all.
const minSharedMonths = 12

// BenchmarkCalculator regresses a portfolio's monthly excess returns
// against a benchmark's, following the Morningstar-style monthly
// aggregation: one value per calendar month, last observation wins.
type BenchmarkCalculator struct {
	riskFreeRate float64
}

func NewBenchmarkCalculator(riskFreeRate float64) *BenchmarkCalculator {
	if riskFreeRate == 0 {
		riskFreeRate = 0.04
	}
	return &BenchmarkCalculator{riskFreeRate: riskFreeRate}
}

// BenchmarkComparison carries the regression results. All pointers are
// nil when the series share fewer than minSharedMonths months.
type BenchmarkComparison struct {
	Alpha       *float64             `json:"alpha"`
	Beta        *float64             `json:"beta"`
	UpCapture   *float64             `json:"up_capture"`
	DownCapture *float64             `json:"down_capture"`
	Months      []models.MonthlyData `json:"months,omitempty"`
}

// Compare computes beta, alpha and up/down capture for the portfolio
// against the benchmark, using tbillRates (date -> annual rate) for the
// monthly risk-free leg. Both series are restricted to the trailing 3
// years before monthly aggregation.
func (bc *BenchmarkCalculator) Compare(portfolio, benchmark []models.DailyValue, tbillRates map[string]float64) *BenchmarkComparison {
	comparison := &BenchmarkComparison{}
	if len(portfolio) == 0 || len(benchmark) == 0 {
		return comparison
	}

	anchor := portfolio[len(portfolio)-1].Date
	if b := benchmark[len(benchmark)-1].Date; b > anchor {
		anchor = b
	}
	cutoff := trailingCutoff(anchor, 3)

	portfolioMonthly := monthEndValues(portfolio, cutoff)
	benchmarkMonthly := monthEndValues(benchmark, cutoff)

	shared := make([]string, 0, len(portfolioMonthly))
	for month := range portfolioMonthly {
		if _, ok := benchmarkMonthly[month]; ok {
			shared = append(shared, month)
		}
	}
	if len(shared) < minSharedMonths {
		return comparison
	}
	sort.Strings(shared)

	months := bc.monthlyData(shared, portfolioMonthly, benchmarkMonthly, tbillRates)
	if len(months) < minSharedMonths-1 {
		return comparison
	}
	comparison.Months = months

	portfolioExcess := make([]float64, len(months))
	benchmarkExcess := make([]float64, len(months))
	for i, m := range months {
		portfolioExcess[i] = m.PortfolioExcess
		benchmarkExcess[i] = m.BenchmarkExcess
	}

	beta := bc.beta(portfolioExcess, benchmarkExcess)
	alpha := (stat.Mean(portfolioExcess, nil) - beta*stat.Mean(benchmarkExcess, nil)) * 12
	upCapture := bc.capture(months, true)
	downCapture := bc.capture(months, false)

	comparison.Beta = &beta
	comparison.Alpha = &alpha
	comparison.UpCapture = &upCapture
	comparison.DownCapture = &downCapture
	return comparison
}

// monthlyData builds the per-month intermediate rows from consecutive
// shared months.
func (bc *BenchmarkCalculator) monthlyData(shared []string, portfolioMonthly, benchmarkMonthly map[string]float64, tbillRates map[string]float64) []models.MonthlyData {
	months := make([]models.MonthlyData, 0, len(shared)-1)
	for i := 1; i < len(shared); i++ {
		prevMonth, month := shared[i-1], shared[i]

		prevPortfolio := portfolioMonthly[prevMonth]
		prevBenchmark := benchmarkMonthly[prevMonth]
		if prevPortfolio <= 0 || prevBenchmark <= 0 {
			continue
		}

		portfolioReturn := (portfolioMonthly[month] - prevPortfolio) / prevPortfolio
		benchmarkReturn := (benchmarkMonthly[month] - prevBenchmark) / prevBenchmark
		riskFree := bc.monthlyRiskFreeRate(month, tbillRates)

		months = append(months, models.MonthlyData{
			Month:           month,
			PortfolioReturn: portfolioReturn,
			BenchmarkReturn: benchmarkReturn,
			RiskFreeRate:    riskFree,
			PortfolioExcess: portfolioReturn - riskFree,
			BenchmarkExcess: benchmarkReturn - riskFree,
		})
	}
	return months
}

// monthlyRiskFreeRate averages the annual T-bill observations falling in
// the month and divides by 12. Months without observations default to
// the configured annual rate / 12.
func (bc *BenchmarkCalculator) monthlyRiskFreeRate(month string, tbillRates map[string]float64) float64 {
	sum := 0.0
	count := 0
	for date, rate := range tbillRates {
		if len(date) >= 7 && date[:7] == month {
			sum += rate
			count++
		}
	}
	if count == 0 {
		return bc.riskFreeRate / 12
	}
	return sum / float64(count) / 12
}

// beta is sample covariance over sample variance of the excess returns.
// Defaults to 1 with fewer than 3 paired months or a flat benchmark.
func (bc *BenchmarkCalculator) beta(portfolioExcess, benchmarkExcess []float64) float64 {
	if len(portfolioExcess) < 3 {
		return 1
	}
	variance := stat.Variance(benchmarkExcess, nil)
	if variance == 0 {
		return 1
	}
	return stat.Covariance(portfolioExcess, benchmarkExcess, nil) / variance
}

// capture compounds raw monthly returns within the benchmark-up (or
// benchmark-down) partition and reports the ratio of compounded
// portfolio return to compounded benchmark return. Months where the
// benchmark return is exactly zero belong to neither partition. An empty
// partition or a zero compounded benchmark return yields 1.
func (bc *BenchmarkCalculator) capture(months []models.MonthlyData, up bool) float64 {
	portfolioGrowth := 1.0
	benchmarkGrowth := 1.0
	count := 0

	for _, m := range months {
		if (up && m.BenchmarkReturn > 0) || (!up && m.BenchmarkReturn < 0) {
			portfolioGrowth *= 1 + m.PortfolioReturn
			benchmarkGrowth *= 1 + m.BenchmarkReturn
			count++
		}
	}

	if count == 0 {
		return 1
	}
	benchmarkCompounded := benchmarkGrowth - 1
	if benchmarkCompounded == 0 {
		return 1
	}
	return (portfolioGrowth - 1) / benchmarkCompounded
}

// monthEndValues reduces a daily series to one value per calendar month,
// last observation of the month winning, dropping dates before cutoff.
func monthEndValues(values []models.DailyValue, cutoff string) map[string]float64 {
	monthly := make(map[string]float64)
	for _, dv := range values {
		if dv.Date < cutoff || len(dv.Date) < 7 {
			continue
		}
		// Series are ascending, so later observations overwrite earlier ones.
		monthly[dv.Date[:7]] = dv.Value
	}
	return monthly
}

// trailingCutoff returns the ISO date `years` before the anchor date.
func trailingCutoff(anchor string, years int) string {
	t, err := time.Parse("2006-01-02", anchor)
	if err != nil {
		return ""
	}
	return t.AddDate(-years, 0, 0).Format("2006-01-02")
}
