package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"clockwise-api/internal/clients"
	"clockwise-api/internal/repositories"
	"clockwise-api/pkg/cache"
)

type HealthController struct {
	repo       repositories.MetricsRepository
	cache      *cache.RedisClient
	marketData *clients.MarketDataClient
}

func NewHealthController(repo repositories.MetricsRepository, cacheClient *cache.RedisClient, marketData *clients.MarketDataClient) *HealthController {
	return &HealthController{
		repo:       repo,
		cache:      cacheClient,
		marketData: marketData,
	}
}

func (c *HealthController) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/health", c.Health)
}

// Health reports component status. The service is "degraded" rather than
// down when only the cache or the market-data provider is unreachable.
func (c *HealthController) Health(ctx *gin.Context) {
	checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	components := gin.H{}
	status := "ok"
	code := http.StatusOK

	if err := c.repo.Ping(checkCtx); err != nil {
		components["database"] = "down"
		status = "down"
		code = http.StatusServiceUnavailable
	} else {
		components["database"] = "ok"
	}

	if c.cache != nil {
		if err := c.cache.Ping(checkCtx); err != nil {
			components["cache"] = "down"
			if status == "ok" {
				status = "degraded"
			}
		} else {
			components["cache"] = "ok"
		}
	}

	if c.marketData != nil {
		if c.marketData.IsHealthy(checkCtx) {
			components["market_data"] = "ok"
		} else {
			components["market_data"] = "down"
			if status == "ok" {
				status = "degraded"
			}
		}
	}

	ctx.JSON(code, gin.H{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}
