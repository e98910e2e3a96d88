package clients

import (
	"context"
	"fmt"
	"strings"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"

	"clockwise-api/internal/config"
	"clockwise-api/internal/models"
)

const advisorSystemPrompt = `You are a financial planning assistant for a wealth advisory firm. You will receive the results of a goal-probability analysis for a client's portfolio and must write a short, plain-language commentary.

Guidelines:
- 2 to 4 sentences, no headings or bullet points
- Reference the probability of reaching the goal and the projected value range
- If there is a shortfall in the downside case, mention one concrete lever (higher contributions, longer horizon, or different allocation)
- Never promise returns or give specific security recommendations
- Do not mention that you are an AI`

// AdvisorClient generates plain-language commentary for a goal analysis
// via the OpenAI chat completions API. It is optional: when disabled or
// on any API failure the caller falls back to canned copy.
type AdvisorClient struct {
	cli     oa.Client
	model   string
	enabled bool
	logger  *logrus.Entry
}

func NewAdvisorClient(cfg config.AdvisorConfig) *AdvisorClient {
	return &AdvisorClient{
		cli:     oa.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:   cfg.Model,
		enabled: cfg.Enabled && cfg.APIKey != "",
		logger:  logrus.WithField("client", "advisor"),
	}
}

func (ac *AdvisorClient) Enabled() bool {
	return ac.enabled
}

// Commentary asks the model for a short narrative about the analysis.
func (ac *AdvisorClient) Commentary(ctx context.Context, input *models.GoalInput, analysis *models.GoalAnalysis) (string, error) {
	if !ac.enabled {
		return "", fmt.Errorf("advisor client disabled")
	}

	userPrompt := fmt.Sprintf(
		"Goal amount: $%.0f in %d years. Current portfolio: $%.0f with $%.0f monthly contributions.\n"+
			"Probability of success: %.0f%%. Projected value range: $%.0f (downside) / $%.0f (median) / $%.0f (upside).\n"+
			"Downside shortfall: $%.0f. Expected annual return used: %.1f%% (%s assumptions).\n\n"+
			"Write the commentary.",
		input.GoalAmount, input.HorizonYears, input.CurrentValue, input.MonthlyContribution,
		analysis.ProbabilityOfSuccess.Median*100,
		analysis.ProjectedValues.Downside, analysis.ProjectedValues.Median, analysis.ProjectedValues.Upside,
		analysis.Shortfall.Downside,
		analysis.ExpectedReturn*100, analysis.AssumptionBasis,
	)

	resp, err := ac.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: ac.model,
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(advisorSystemPrompt),
			oa.UserMessage(userPrompt),
		},
		MaxTokens: oa.Int(300),
	})
	if err != nil {
		return "", fmt.Errorf("advisor API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty advisor response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
