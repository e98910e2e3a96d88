package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"clockwise-api/internal/models"
	"clockwise-api/internal/services"
)

type GoalController struct {
	logger *logrus.Logger
	goals  *services.GoalService
}

func NewGoalController(logger *logrus.Logger, goals *services.GoalService) *GoalController {
	return &GoalController{
		logger: logger,
		goals:  goals,
	}
}

func (c *GoalController) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/goal-probability", c.Analyze)
}

// GoalRequest wraps the intake form the way the advisory console sends it.
type GoalRequest struct {
	IntakeData models.GoalInput `json:"intake_data" binding:"required"`
}

// Analyze runs the goal-probability projection for an intake payload.
func (c *GoalController) Analyze(ctx *gin.Context) {
	var req GoalRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := c.goals.Analyze(ctx.Request.Context(), req.IntakeData)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"goal_analysis":  result.Analysis,
		"recommendation": result.Commentary,
	})
}
