package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"clockwise-api/internal/config"
	"clockwise-api/internal/models"
	"clockwise-api/pkg/cache"
)

// MarketDataClient fetches daily close series from the market-data HTTP
// API, keyed by ticker symbol and Unix timestamp range. Fetched series
// are memoized in Redis with a 24-hour TTL; cache failures fall through
// to a direct fetch.
type MarketDataClient struct {
	baseURL         string
	httpClient      *http.Client
	retries         int
	benchmarkSymbol string
	tbillSymbol     string
	cache           *cache.RedisClient
	logger          *logrus.Entry
}

func NewMarketDataClient(cfg config.MarketDataConfig, cacheClient *cache.RedisClient) *MarketDataClient {
	return &MarketDataClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		retries:         cfg.MaxRetries,
		benchmarkSymbol: cfg.BenchmarkSymbol,
		tbillSymbol:     cfg.TBillSymbol,
		cache:           cacheClient,
		logger:          logrus.WithField("client", "market_data"),
	}
}

// chartResponse mirrors the provider's chart payload.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*decimal.Decimal `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetDailySeries retrieves the daily closing series for a symbol over a
// date range, as ascending DailyValues.
func (mdc *MarketDataClient) GetDailySeries(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyValue, error) {
	period1 := from.Unix()
	period2 := to.Unix()

	if mdc.cache != nil {
		var cached []models.DailyValue
		if err := mdc.cache.GetSeries(ctx, symbol, period1, period2, &cached); err == nil {
			return cached, nil
		}
	}

	endpoint := fmt.Sprintf("%s/v8/chart/%s?period1=%d&period2=%d&interval=1d",
		mdc.baseURL, url.PathEscape(symbol), period1, period2)

	var response chartResponse
	if err := mdc.makeRequest(ctx, endpoint, &response); err != nil {
		return nil, fmt.Errorf("failed to get series for %s: %w", symbol, err)
	}

	if response.Chart.Error != nil {
		return nil, fmt.Errorf("market data error for %s: %s", symbol, response.Chart.Error.Description)
	}
	if len(response.Chart.Result) == 0 || len(response.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("empty series for %s", symbol)
	}

	result := response.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close

	series := make([]models.DailyValue, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		series = append(series, models.DailyValue{
			Date:  time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Value: closes[i].InexactFloat64(),
		})
	}

	if mdc.cache != nil {
		if err := mdc.cache.SetSeries(ctx, symbol, period1, period2, series); err != nil {
			mdc.logger.WithError(err).Warn("Failed to cache market data series")
		}
	}

	return series, nil
}

// GetBenchmarkSeries retrieves the S&P 500 Total Return series.
func (mdc *MarketDataClient) GetBenchmarkSeries(ctx context.Context, from, to time.Time) ([]models.DailyValue, error) {
	return mdc.GetDailySeries(ctx, mdc.benchmarkSymbol, from, to)
}

// GetTBillRates retrieves the 3-month T-bill yield series as a
// date -> annual rate map. The provider quotes the yield in percent.
func (mdc *MarketDataClient) GetTBillRates(ctx context.Context, from, to time.Time) (map[string]float64, error) {
	series, err := mdc.GetDailySeries(ctx, mdc.tbillSymbol, from, to)
	if err != nil {
		return nil, err
	}

	rates := make(map[string]float64, len(series))
	for _, dv := range series {
		rates[dv.Date] = dv.Value / 100
	}
	return rates, nil
}

// makeRequest performs HTTP request with retry logic
func (mdc *MarketDataClient) makeRequest(ctx context.Context, endpoint string, response interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= mdc.retries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			backoff := time.Duration(attempt*attempt) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			lastErr = fmt.Errorf("failed to create request: %w", err)
			continue
		}

		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "Clockwise-API/1.0")

		resp, err := mdc.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			lastErr = fmt.Errorf("rate limited")
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d: request failed", resp.StatusCode)
			continue
		}

		err = json.NewDecoder(resp.Body).Decode(response)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to decode response: %w", err)
			continue
		}

		return nil
	}

	return fmt.Errorf("request failed after %d attempts: %w", mdc.retries+1, lastErr)
}

// IsHealthy checks if the market data provider is reachable
func (mdc *MarketDataClient) IsHealthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mdc.baseURL, nil)
	if err != nil {
		return false
	}

	resp, err := mdc.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < 500
}
