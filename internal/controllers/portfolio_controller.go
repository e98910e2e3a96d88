package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"clockwise-api/internal/repositories/postgres"
	"clockwise-api/internal/services"
)

// UploadRequest carries the pasted CSV text. The admin console submits
// the sheet contents verbatim.
type UploadRequest struct {
	CSV string `json:"csv" binding:"required"`
}

type PortfolioController struct {
	logger  *logrus.Logger
	metrics *services.MetricsService
}

func NewPortfolioController(logger *logrus.Logger, metrics *services.MetricsService) *PortfolioController {
	return &PortfolioController{
		logger:  logger,
		metrics: metrics,
	}
}

func (c *PortfolioController) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/portfolios/upload", c.Upload)
	r.GET("/portfolios", c.List)
	r.GET("/portfolios/export", c.Export)
	r.DELETE("/portfolios/:name", c.Delete)
}

// Upload ingests a pasted CSV of daily portfolio values, computes the
// metrics for every column, and persists the results.
func (c *PortfolioController) Upload(ctx *gin.Context) {
	var req UploadRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updatedBy := ctx.GetString("user_email")
	if updatedBy == "" {
		updatedBy = "admin"
	}

	started := time.Now()
	result, err := c.metrics.ProcessUpload(ctx.Request.Context(), req.CSV, updatedBy)
	if err != nil {
		c.logger.Errorf("Upload failed: %v", err)
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.logger.Infof("✅ Upload processed: %d portfolios as of %s in %s",
		len(result.Portfolios), result.AsOfDate, time.Since(started).Round(time.Millisecond))
	ctx.JSON(http.StatusOK, result)
}

// List returns all stored metric rows.
func (c *PortfolioController) List(ctx *gin.Context) {
	records, err := c.metrics.ListMetrics(ctx.Request.Context())
	if err != nil {
		c.logger.Errorf("Failed to list metrics: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list metrics"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"count":      len(records),
		"portfolios": records,
	})
}

// Export streams the stored metrics as a CSV download.
func (c *PortfolioController) Export(ctx *gin.Context) {
	payload, err := c.metrics.ExportCSV(ctx.Request.Context())
	if err != nil {
		c.logger.Errorf("Failed to export metrics: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export metrics"})
		return
	}

	filename := "portfolio-metrics-" + time.Now().UTC().Format("2006-01-02") + ".csv"
	ctx.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	ctx.Data(http.StatusOK, "text/csv", []byte(payload))
}

// Delete removes one portfolio's metric row.
func (c *PortfolioController) Delete(ctx *gin.Context) {
	name := ctx.Param("name")
	if err := c.metrics.DeleteMetrics(ctx.Request.Context(), name); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "portfolio not found"})
			return
		}
		c.logger.Errorf("Failed to delete metrics for %s: %v", name, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete metrics"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "deleted", "name": name})
}
