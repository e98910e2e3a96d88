package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"clockwise-api/internal/config"
	"clockwise-api/internal/models"
)

// Mock implementations

type MockMetricsRepository struct {
	mock.Mock
}

func (m *MockMetricsRepository) Upsert(ctx context.Context, record *models.MetricsRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockMetricsRepository) UpsertBatch(ctx context.Context, records []*models.MetricsRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockMetricsRepository) GetAll(ctx context.Context) ([]*models.MetricsRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MetricsRecord), args.Error(1)
}

func (m *MockMetricsRepository) GetByName(ctx context.Context, name string) (*models.MetricsRecord, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MetricsRecord), args.Error(1)
}

func (m *MockMetricsRepository) DeleteByName(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockMetricsRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockMarketDataProvider struct {
	mock.Mock
}

func (m *MockMarketDataProvider) GetBenchmarkSeries(ctx context.Context, from, to time.Time) ([]models.DailyValue, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DailyValue), args.Error(1)
}

func (m *MockMarketDataProvider) GetTBillRates(ctx context.Context, from, to time.Time) (map[string]float64, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]float64), args.Error(1)
}

type MockMetricsCache struct {
	mock.Mock
}

func (m *MockMetricsCache) GetMetrics(ctx context.Context, dest interface{}) error {
	args := m.Called(ctx, dest)
	return args.Error(0)
}

func (m *MockMetricsCache) SetMetrics(ctx context.Context, metrics interface{}) error {
	args := m.Called(ctx, metrics)
	return args.Error(0)
}

func (m *MockMetricsCache) InvalidateMetrics(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func newTestService(repo *MockMetricsRepository, marketData *MockMarketDataProvider, cache *MockMetricsCache) *MetricsService {
	var md MarketDataProvider
	if marketData != nil {
		md = marketData
	}
	var mc MetricsCache
	if cache != nil {
		mc = cache
	}
	return NewMetricsService(repo, md, mc, config.AnalyticsConfig{
		RiskFreeRate:  0.04,
		BenchmarkName: "S&P 500 TR",
	})
}

const uploadCSV = "Date,Growth,Income\n" +
	"01/02/24,100,\"1,000\"\n" +
	"01/03/24,101,995\n" +
	"01/04/24,99,-\n" +
	"01/05/24,102,1010\n"

func TestProcessUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("computes and persists one row per portfolio plus the benchmark", func(t *testing.T) {
		repo := new(MockMetricsRepository)
		marketData := new(MockMarketDataProvider)
		cache := new(MockMetricsCache)
		service := newTestService(repo, marketData, cache)

		benchmark := []models.DailyValue{
			{Date: "2024-01-02", Value: 4000},
			{Date: "2024-01-03", Value: 4040},
			{Date: "2024-01-04", Value: 4010},
			{Date: "2024-01-05", Value: 4050},
		}
		marketData.On("GetBenchmarkSeries", ctx, mock.Anything, mock.Anything).Return(benchmark, nil)
		marketData.On("GetTBillRates", ctx, mock.Anything, mock.Anything).Return(map[string]float64{"2024-01-02": 0.05}, nil)

		var persisted []*models.MetricsRecord
		repo.On("UpsertBatch", ctx, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			persisted = args.Get(1).([]*models.MetricsRecord)
		})
		cache.On("InvalidateMetrics", ctx).Return(nil)

		result, err := service.ProcessUpload(ctx, uploadCSV, "ops@clockwise.io")
		require.NoError(t, err)

		assert.Equal(t, "2024-01-05", result.AsOfDate)
		assert.Equal(t, "ok", result.BenchmarkStatus)
		require.Len(t, persisted, 3) // Growth, Income, benchmark

		byName := map[string]*models.MetricsRecord{}
		for _, r := range persisted {
			byName[r.Name] = r
		}
		require.Contains(t, byName, "Growth")
		require.Contains(t, byName, "Income")
		require.Contains(t, byName, "S&P 500 TR")

		assert.Equal(t, "ops@clockwise.io", byName["Growth"].UpdatedBy)
		assert.Equal(t, "2024-01-05", byName["Growth"].AsOfDate)
		assert.Positive(t, byName["Growth"].StdDev)

		// Benchmark self-row carries identities, not regression output.
		bench := byName["S&P 500 TR"]
		assert.True(t, bench.IsBenchmark)
		require.NotNil(t, bench.Alpha)
		require.NotNil(t, bench.Beta)
		assert.Zero(t, *bench.Alpha)
		assert.Equal(t, 1.0, *bench.Beta)
		assert.Equal(t, 1.0, *bench.UpCapture)
		assert.Equal(t, 1.0, *bench.DownCapture)

		// Too few shared months for a regression, so relative fields are null.
		assert.Nil(t, byName["Growth"].Beta)

		cache.AssertCalled(t, "InvalidateMetrics", ctx)
	})

	t.Run("market data failure degrades instead of failing the upload", func(t *testing.T) {
		repo := new(MockMetricsRepository)
		marketData := new(MockMarketDataProvider)
		service := newTestService(repo, marketData, nil)

		marketData.On("GetBenchmarkSeries", ctx, mock.Anything, mock.Anything).Return(nil, errors.New("provider down"))

		var persisted []*models.MetricsRecord
		repo.On("UpsertBatch", ctx, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			persisted = args.Get(1).([]*models.MetricsRecord)
		})

		result, err := service.ProcessUpload(ctx, uploadCSV, "admin")
		require.NoError(t, err)

		assert.Equal(t, "unavailable", result.BenchmarkStatus)
		require.Len(t, persisted, 2) // no benchmark row
		for _, r := range persisted {
			assert.Nil(t, r.Alpha)
			assert.Nil(t, r.Beta)
			assert.Nil(t, r.UpCapture)
			assert.Nil(t, r.DownCapture)
			assert.Positive(t, r.StdDev)
		}
	})

	t.Run("negative values are rejected", func(t *testing.T) {
		repo := new(MockMetricsRepository)
		service := newTestService(repo, nil, nil)

		_, err := service.ProcessUpload(ctx, "Date,A\n01/02/24,100\n01/03/24,-50\n", "admin")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid series")
		repo.AssertNotCalled(t, "UpsertBatch", mock.Anything, mock.Anything)
	})

	t.Run("unparseable upload fails without touching the repository", func(t *testing.T) {
		repo := new(MockMetricsRepository)
		service := newTestService(repo, nil, nil)

		_, err := service.ProcessUpload(ctx, "not a csv", "admin")
		assert.Error(t, err)
		repo.AssertNotCalled(t, "UpsertBatch", mock.Anything, mock.Anything)
	})

	t.Run("repository failure surfaces", func(t *testing.T) {
		repo := new(MockMetricsRepository)
		service := newTestService(repo, nil, nil)

		repo.On("UpsertBatch", ctx, mock.Anything).Return(errors.New("db down"))

		_, err := service.ProcessUpload(ctx, uploadCSV, "admin")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db down")
	})
}

func TestListMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("serves from cache when populated", func(t *testing.T) {
		repo := new(MockMetricsRepository)
		cache := new(MockMetricsCache)
		service := newTestService(repo, nil, cache)

		cache.On("GetMetrics", ctx, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			dest := args.Get(1).(*[]*models.MetricsRecord)
			*dest = []*models.MetricsRecord{{Name: "Cached"}}
		})

		records, err := service.ListMetrics(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "Cached", records[0].Name)
		repo.AssertNotCalled(t, "GetAll", mock.Anything)
	})

	t.Run("falls through to the repository and repopulates the cache", func(t *testing.T) {
		repo := new(MockMetricsRepository)
		cache := new(MockMetricsCache)
		service := newTestService(repo, nil, cache)

		stored := []*models.MetricsRecord{{Name: "Growth"}, {Name: "Income"}}
		cache.On("GetMetrics", ctx, mock.Anything).Return(errors.New("miss"))
		repo.On("GetAll", ctx).Return(stored, nil)
		cache.On("SetMetrics", ctx, mock.Anything).Return(nil)

		records, err := service.ListMetrics(ctx)
		require.NoError(t, err)
		assert.Equal(t, stored, records)
		cache.AssertCalled(t, "SetMetrics", ctx, mock.Anything)
	})

	t.Run("cache write failure is soft", func(t *testing.T) {
		repo := new(MockMetricsRepository)
		cache := new(MockMetricsCache)
		service := newTestService(repo, nil, cache)

		cache.On("GetMetrics", ctx, mock.Anything).Return(errors.New("miss"))
		repo.On("GetAll", ctx).Return([]*models.MetricsRecord{{Name: "Growth"}}, nil)
		cache.On("SetMetrics", ctx, mock.Anything).Return(errors.New("redis down"))

		records, err := service.ListMetrics(ctx)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})
}

func TestExportCSV(t *testing.T) {
	ctx := context.Background()

	t.Run("null fields export as empty cells", func(t *testing.T) {
		repo := new(MockMetricsRepository)
		service := newTestService(repo, nil, nil)

		beta := 1.2
		repo.On("GetAll", ctx).Return([]*models.MetricsRecord{
			{Name: "Growth", StdDev: 0.15, Beta: &beta, AsOfDate: "2024-01-05"},
			{Name: "Sparse", StdDev: 0.10, AsOfDate: "2024-01-05"},
		}, nil)

		payload, err := service.ExportCSV(ctx)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(payload), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, "name,return_3y,std_dev,alpha,beta,sharpe_ratio,max_drawdown,up_capture,down_capture,is_benchmark,as_of_date", lines[0])
		assert.Contains(t, lines[1], "Growth,,0.150000,,1.200000")
		assert.Contains(t, lines[2], "Sparse,,0.100000,,,")
	})

	t.Run("propagates listing errors", func(t *testing.T) {
		repo := new(MockMetricsRepository)
		service := newTestService(repo, nil, nil)
		repo.On("GetAll", ctx).Return(nil, errors.New("db down"))

		_, err := service.ExportCSV(ctx)
		assert.Error(t, err)
	})
}

func TestDeleteMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("invalidates the cache after deletion", func(t *testing.T) {
		repo := new(MockMetricsRepository)
		cache := new(MockMetricsCache)
		service := newTestService(repo, nil, cache)

		repo.On("DeleteByName", ctx, "Growth").Return(nil)
		cache.On("InvalidateMetrics", ctx).Return(nil)

		require.NoError(t, service.DeleteMetrics(ctx, "Growth"))
		cache.AssertCalled(t, "InvalidateMetrics", ctx)
	})

	t.Run("repository error skips invalidation", func(t *testing.T) {
		repo := new(MockMetricsRepository)
		cache := new(MockMetricsCache)
		service := newTestService(repo, nil, cache)

		repo.On("DeleteByName", ctx, "Gone").Return(errors.New("not found"))

		assert.Error(t, service.DeleteMetrics(ctx, "Gone"))
		cache.AssertNotCalled(t, "InvalidateMetrics", mock.Anything)
	})
}
