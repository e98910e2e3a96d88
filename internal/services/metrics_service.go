package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"clockwise-api/internal/calculator"
	"clockwise-api/internal/config"
	"clockwise-api/internal/models"
	"clockwise-api/internal/parser"
	"clockwise-api/internal/repositories"
)

// MarketDataProvider is the slice of the market-data client the metrics
// pipeline needs.
type MarketDataProvider interface {
	GetBenchmarkSeries(ctx context.Context, from, to time.Time) ([]models.DailyValue, error)
	GetTBillRates(ctx context.Context, from, to time.Time) (map[string]float64, error)
}

// MetricsCache is the slice of the Redis wrapper the metrics pipeline
// needs. All cache errors are soft.
type MetricsCache interface {
	GetMetrics(ctx context.Context, dest interface{}) error
	SetMetrics(ctx context.Context, metrics interface{}) error
	InvalidateMetrics(ctx context.Context) error
}

// UploadResult summarizes one processed upload.
type UploadResult struct {
	AsOfDate        string                     `json:"as_of_date"`
	Portfolios      []*models.PortfolioMetrics `json:"portfolios"`
	BenchmarkStatus string                     `json:"benchmark_status"`
}

// MetricsService runs the upload pipeline: parse the pasted CSV, compute
// per-portfolio return and risk statistics, regress each portfolio
// against the benchmark, and persist one row per portfolio.
type MetricsService struct {
	repo          repositories.MetricsRepository
	marketData    MarketDataProvider
	cache         MetricsCache
	returns       *calculator.ReturnsCalculator
	benchmark     *calculator.BenchmarkCalculator
	benchmarkName string
	logger        *logrus.Entry
}

func NewMetricsService(
	repo repositories.MetricsRepository,
	marketData MarketDataProvider,
	cache MetricsCache,
	cfg config.AnalyticsConfig,
) *MetricsService {
	return &MetricsService{
		repo:          repo,
		marketData:    marketData,
		cache:         cache,
		returns:       calculator.NewReturnsCalculator(calculator.ReturnsCalculatorConfig{RiskFreeRate: cfg.RiskFreeRate}),
		benchmark:     calculator.NewBenchmarkCalculator(cfg.RiskFreeRate),
		benchmarkName: cfg.BenchmarkName,
		logger:        logrus.WithField("service", "metrics"),
	}
}

// ProcessUpload parses raw CSV text, computes metrics for every portfolio
// column, and upserts the results keyed by portfolio name. Market-data
// failures degrade the benchmark-relative fields to null; they never fail
// the upload.
func (s *MetricsService) ProcessUpload(ctx context.Context, raw, updatedBy string) (*UploadResult, error) {
	parsed, err := parser.ParseTimeSeries(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse upload: %w", err)
	}
	if len(parsed.Series) == 0 {
		return nil, fmt.Errorf("upload contains no portfolio columns")
	}
	for name, values := range parsed.Series {
		if err := models.ValidateSeries(values); err != nil {
			return nil, fmt.Errorf("invalid series for %q: %w", name, err)
		}
	}

	benchmarkSeries, tbillRates, benchmarkStatus := s.fetchMarketData(ctx, parsed)

	result := &UploadResult{
		AsOfDate:        parsed.AsOfDate,
		BenchmarkStatus: benchmarkStatus,
	}

	names := make([]string, 0, len(parsed.Series))
	for name := range parsed.Series {
		names = append(names, name)
	}
	sort.Strings(names)

	records := make([]*models.MetricsRecord, 0, len(names)+1)
	for _, name := range names {
		metrics := s.computeMetrics(name, parsed.Series[name], benchmarkSeries, tbillRates)
		result.Portfolios = append(result.Portfolios, metrics)
		records = append(records, metrics.ToRecord(parsed.AsOfDate, updatedBy))
	}

	if len(benchmarkSeries) > 0 {
		benchmarkMetrics := s.computeBenchmarkRow(benchmarkSeries)
		result.Portfolios = append(result.Portfolios, benchmarkMetrics)
		records = append(records, benchmarkMetrics.ToRecord(parsed.AsOfDate, updatedBy))
	}

	if err := s.repo.UpsertBatch(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to persist metrics: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.InvalidateMetrics(ctx); err != nil {
			s.logger.WithError(err).Warn("Failed to invalidate metrics cache")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"portfolios": len(parsed.Series),
		"as_of_date": parsed.AsOfDate,
		"benchmark":  benchmarkStatus,
	}).Info("Upload processed")

	return result, nil
}

// fetchMarketData pulls the benchmark close series and T-bill rates for
// the span of the upload. Both legs degrade independently.
func (s *MetricsService) fetchMarketData(ctx context.Context, parsed *parser.ParseResult) ([]models.DailyValue, map[string]float64, string) {
	if s.marketData == nil {
		return nil, nil, "unavailable"
	}

	from, to := uploadSpan(parsed)
	if from.IsZero() {
		return nil, nil, "unavailable"
	}
	// Cover the full trailing-3-year regression window even when the
	// uploaded series is shorter.
	if threeYears := to.AddDate(-3, 0, -7); threeYears.Before(from) {
		from = threeYears
	}

	benchmarkSeries, err := s.marketData.GetBenchmarkSeries(ctx, from, to.AddDate(0, 0, 1))
	if err != nil {
		s.logger.WithError(err).Warn("Benchmark series unavailable, degrading to null comparisons")
		return nil, nil, "unavailable"
	}

	tbillRates, err := s.marketData.GetTBillRates(ctx, from, to.AddDate(0, 0, 1))
	if err != nil {
		s.logger.WithError(err).Warn("T-bill rates unavailable, using default risk-free rate")
		tbillRates = nil
	}

	return benchmarkSeries, tbillRates, "ok"
}

func (s *MetricsService) computeMetrics(name string, values []models.DailyValue, benchmarkSeries []models.DailyValue, tbillRates map[string]float64) *models.PortfolioMetrics {
	dailyReturns := s.returns.DailyReturns(values)

	metrics := &models.PortfolioMetrics{
		Name:        name,
		Return3Y:    s.returns.TrailingReturn(values, 3),
		StdDev:      s.returns.AnnualizedStdDev(dailyReturns),
		SharpeRatio: s.returns.SharpeRatio(dailyReturns),
		MaxDrawdown: s.returns.MaxDrawdown(values),
		DailyValues: values,
	}

	if len(benchmarkSeries) > 0 {
		comparison := s.benchmark.Compare(values, benchmarkSeries, tbillRates)
		metrics.Alpha = comparison.Alpha
		metrics.Beta = comparison.Beta
		metrics.UpCapture = comparison.UpCapture
		metrics.DownCapture = comparison.DownCapture
	}

	return metrics
}

// computeBenchmarkRow builds the benchmark's own row. Relative statistics
// against itself are identities, not regression outputs.
func (s *MetricsService) computeBenchmarkRow(benchmarkSeries []models.DailyValue) *models.PortfolioMetrics {
	dailyReturns := s.returns.DailyReturns(benchmarkSeries)

	zero, one := 0.0, 1.0
	return &models.PortfolioMetrics{
		Name:        s.benchmarkName,
		Return3Y:    s.returns.TrailingReturn(benchmarkSeries, 3),
		StdDev:      s.returns.AnnualizedStdDev(dailyReturns),
		Alpha:       &zero,
		Beta:        &one,
		SharpeRatio: s.returns.SharpeRatio(dailyReturns),
		MaxDrawdown: s.returns.MaxDrawdown(benchmarkSeries),
		UpCapture:   &one,
		DownCapture: &one,
		IsBenchmark: true,
	}
}

// ListMetrics returns all stored metric rows, reading through the cache.
func (s *MetricsService) ListMetrics(ctx context.Context) ([]*models.MetricsRecord, error) {
	if s.cache != nil {
		var cached []*models.MetricsRecord
		if err := s.cache.GetMetrics(ctx, &cached); err == nil {
			return cached, nil
		}
	}

	records, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetMetrics(ctx, records); err != nil {
			s.logger.WithError(err).Warn("Failed to cache metrics listing")
		}
	}

	return records, nil
}

// GetMetrics returns the stored row for one portfolio.
func (s *MetricsService) GetMetrics(ctx context.Context, name string) (*models.MetricsRecord, error) {
	return s.repo.GetByName(ctx, name)
}

// DeleteMetrics removes the stored row for one portfolio and invalidates
// the listing cache.
func (s *MetricsService) DeleteMetrics(ctx context.Context, name string) error {
	if err := s.repo.DeleteByName(ctx, name); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateMetrics(ctx); err != nil {
			s.logger.WithError(err).Warn("Failed to invalidate metrics cache")
		}
	}
	return nil
}

// ExportCSV renders all stored metric rows as CSV.
func (s *MetricsService) ExportCSV(ctx context.Context) (string, error) {
	records, err := s.ListMetrics(ctx)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	w := csv.NewWriter(&buf)

	header := []string{"name", "return_3y", "std_dev", "alpha", "beta", "sharpe_ratio", "max_drawdown", "up_capture", "down_capture", "is_benchmark", "as_of_date"}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("failed to write export header: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.Name,
			formatNullable(r.Return3Y),
			formatFloat(r.StdDev),
			formatNullable(r.Alpha),
			formatNullable(r.Beta),
			formatFloat(r.SharpeRatio),
			formatFloat(r.MaxDrawdown),
			formatNullable(r.UpCapture),
			formatNullable(r.DownCapture),
			strconv.FormatBool(r.IsBenchmark),
			r.AsOfDate,
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("failed to write export row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush export: %w", err)
	}
	return buf.String(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func formatNullable(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

// uploadSpan returns the earliest and latest dates across every parsed
// series.
func uploadSpan(parsed *parser.ParseResult) (time.Time, time.Time) {
	var from, to time.Time
	for _, values := range parsed.Series {
		if len(values) == 0 {
			continue
		}
		first := values[0].Time()
		last := values[len(values)-1].Time()
		if from.IsZero() || first.Before(from) {
			from = first
		}
		if last.After(to) {
			to = last
		}
	}
	return from, to
}
