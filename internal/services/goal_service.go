package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"clockwise-api/internal/calculator"
	"clockwise-api/internal/config"
	"clockwise-api/internal/models"
)

// AdvisorProvider is the slice of the LLM client the goal service needs.
type AdvisorProvider interface {
	Enabled() bool
	Commentary(ctx context.Context, input *models.GoalInput, analysis *models.GoalAnalysis) (string, error)
}

// GoalResult pairs the numeric analysis with advisory copy.
type GoalResult struct {
	Analysis   *models.GoalAnalysis `json:"analysis"`
	Commentary string               `json:"commentary"`
}

// GoalService runs the goal-probability projection and attaches a short
// narrative, either from the advisor client or from canned copy when the
// advisor is disabled or failing.
type GoalService struct {
	projector *calculator.GoalProjector
	advisor   AdvisorProvider
	logger    *logrus.Entry
}

func NewGoalService(advisor AdvisorProvider, cfg config.AnalyticsConfig) *GoalService {
	return &GoalService{
		projector: calculator.NewGoalProjector(calculator.GoalProjectorConfig{Simulations: cfg.Simulations}),
		advisor:   advisor,
		logger:    logrus.WithField("service", "goal"),
	}
}

// Analyze validates the intake, projects the goal, and builds commentary.
// Advisor failures degrade to fallback copy and never fail the request.
func (s *GoalService) Analyze(ctx context.Context, input models.GoalInput) (*GoalResult, error) {
	if err := validateGoalInput(&input); err != nil {
		return nil, err
	}

	analysis := s.projector.Analyze(input)

	commentary := fallbackCommentary(analysis)
	if s.advisor != nil && s.advisor.Enabled() {
		text, err := s.advisor.Commentary(ctx, &input, analysis)
		if err != nil {
			s.logger.WithError(err).Warn("Advisor commentary unavailable, using fallback copy")
		} else {
			commentary = text
		}
	}

	return &GoalResult{Analysis: analysis, Commentary: commentary}, nil
}

func validateGoalInput(input *models.GoalInput) error {
	if input.GoalAmount <= 0 {
		return fmt.Errorf("goal_amount must be positive")
	}
	if input.HorizonYears <= 0 {
		return fmt.Errorf("horizon_years must be positive")
	}
	if input.CurrentValue < 0 {
		return fmt.Errorf("current_value cannot be negative")
	}
	if input.MonthlyContribution < 0 {
		return fmt.Errorf("monthly_contribution cannot be negative")
	}
	for _, h := range input.Holdings {
		if h.Weight < 0 {
			return fmt.Errorf("holding %s has negative weight", h.Symbol)
		}
	}
	return nil
}

func fallbackCommentary(analysis *models.GoalAnalysis) string {
	p := analysis.ProbabilityOfSuccess.Median
	switch {
	case p >= 0.85:
		return "The plan is well on track. Staying the course with current contributions keeps the goal comfortably within reach in the median case."
	case p >= 0.5:
		return "The goal is within reach in the median case, but the downside path falls short. Raising contributions or extending the horizon would improve the odds."
	default:
		return "The current plan is unlikely to reach the goal. Consider a higher contribution rate, a longer horizon, or revisiting the target amount."
	}
}
