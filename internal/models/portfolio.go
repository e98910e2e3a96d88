package models

import (
	"fmt"
	"time"
)

// DailyValue is one portfolio's marked value on one day. Date is the
// normalized ISO form (YYYY-MM-DD), which makes lexicographic order equal
// to chronological order.
type DailyValue struct {
	Date  string  `json:"date" db:"date"`
	Value float64 `json:"value" db:"value"`
}

// Time parses the ISO date. Returns the zero time on malformed input.
func (dv DailyValue) Time() time.Time {
	t, _ := time.Parse("2006-01-02", dv.Date)
	return t
}

// PortfolioMetrics is the derived, read-only aggregate computed on each
// upload. Pointer fields are null when the underlying series was too short
// to support the calculation, which lets callers distinguish "no data"
// from "zero".
type PortfolioMetrics struct {
	Name        string       `json:"name"`
	Return3Y    *float64     `json:"return_3y"`
	StdDev      float64      `json:"std_dev"`
	Alpha       *float64     `json:"alpha"`
	Beta        *float64     `json:"beta"`
	SharpeRatio float64      `json:"sharpe_ratio"`
	MaxDrawdown float64      `json:"max_drawdown"`
	UpCapture   *float64     `json:"up_capture"`
	DownCapture *float64     `json:"down_capture"`
	IsBenchmark bool         `json:"is_benchmark"`
	DailyValues []DailyValue `json:"daily_values,omitempty"`
}

// MetricsRecord is the persisted form of PortfolioMetrics, one row per
// portfolio keyed by name.
type MetricsRecord struct {
	Name        string    `json:"name" db:"name"`
	Return3Y    *float64  `json:"return_3y" db:"return_3y"`
	StdDev      float64   `json:"std_dev" db:"std_dev"`
	Alpha       *float64  `json:"alpha" db:"alpha"`
	Beta        *float64  `json:"beta" db:"beta"`
	SharpeRatio float64   `json:"sharpe_ratio" db:"sharpe_ratio"`
	MaxDrawdown float64   `json:"max_drawdown" db:"max_drawdown"`
	UpCapture   *float64  `json:"up_capture" db:"up_capture"`
	DownCapture *float64  `json:"down_capture" db:"down_capture"`
	IsBenchmark bool      `json:"is_benchmark" db:"is_benchmark"`
	AsOfDate    string    `json:"as_of_date" db:"as_of_date"`
	UpdatedBy   string    `json:"updated_by" db:"updated_by"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ToRecord converts computed metrics into their persisted form.
func (pm *PortfolioMetrics) ToRecord(asOfDate, updatedBy string) *MetricsRecord {
	return &MetricsRecord{
		Name:        pm.Name,
		Return3Y:    pm.Return3Y,
		StdDev:      pm.StdDev,
		Alpha:       pm.Alpha,
		Beta:        pm.Beta,
		SharpeRatio: pm.SharpeRatio,
		MaxDrawdown: pm.MaxDrawdown,
		UpCapture:   pm.UpCapture,
		DownCapture: pm.DownCapture,
		IsBenchmark: pm.IsBenchmark,
		AsOfDate:    asOfDate,
		UpdatedBy:   updatedBy,
		UpdatedAt:   time.Now().UTC(),
	}
}

// MonthlyData is the per-month intermediate used for the beta/alpha and
// capture-ratio computation. It is derived from two daily series plus a
// risk-free-rate lookup and discarded after use.
type MonthlyData struct {
	Month           string  `json:"month"` // YYYY-MM
	PortfolioReturn float64 `json:"portfolio_return"`
	BenchmarkReturn float64 `json:"benchmark_return"`
	RiskFreeRate    float64 `json:"risk_free_rate"`
	PortfolioExcess float64 `json:"portfolio_excess"`
	BenchmarkExcess float64 `json:"benchmark_excess"`
}

// Validate checks the invariants every value sequence must satisfy before
// being handed to the return/risk functions: non-negative values, sorted
// ascending by date.
func ValidateSeries(values []DailyValue) error {
	for i, dv := range values {
		if dv.Value < 0 {
			return fmt.Errorf("negative value %.2f at %s", dv.Value, dv.Date)
		}
		if i > 0 && values[i-1].Date > dv.Date {
			return fmt.Errorf("series not sorted: %s follows %s", dv.Date, values[i-1].Date)
		}
	}
	return nil
}
