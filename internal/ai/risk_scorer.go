package ai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// VendorProfile carries the vendor fields the risk assessment looks at
type VendorProfile struct {
	Name         string
	Category     string
	ContactEmail string
	Address      string
	TaxID        string
}

// VendorRiskResult is the outcome of a vendor risk assessment. Scores
// run 0-100 where higher means lower risk.
type VendorRiskResult struct {
	RiskScore   float64  `json:"risk_score"`
	RiskFactors []string `json:"risk_factors"`
	Reasoning   string   `json:"reasoning"`
	Confidence  float64  `json:"confidence"`
}

// RiskScorer assesses vendors before they may enter the approval
// workflow.
type RiskScorer struct {
	client *openai.Client
	model  string
	temp   float32
	logger *zap.Logger
}

// NewRiskScorer creates a new vendor risk scorer
func NewRiskScorer(apiKey, model string, temperature float32, logger *zap.Logger) *RiskScorer {
	return &RiskScorer{
		client: openai.NewClient(apiKey),
		model:  model,
		temp:   temperature,
		logger: logger,
	}
}

// ScoreVendor asks the model for a risk assessment of the vendor
func (rs *RiskScorer) ScoreVendor(ctx context.Context, vendor VendorProfile) (*VendorRiskResult, error) {
	prompt := rs.buildScoringPrompt(vendor)

	rs.logger.Debug("Sending risk assessment request to OpenAI",
		zap.String("vendor", vendor.Name))

	// JSON response format is not requested; some models reject it.
	// The prompt pins the output shape instead.
	resp, err := rs.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       rs.model,
		Temperature: rs.temp,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a procurement risk analyst. Assess supplier risk from registration and contact data. Always respond with valid JSON wrapped in ```json and ``` markers.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		rs.logger.Error("OpenAI API call failed", zap.Error(err))
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content
	var result VendorRiskResult
	if err := decodeJSONResponse(content, &result); err != nil {
		rs.logger.Error("Failed to parse risk assessment response",
			zap.Error(err),
			zap.String("content", content))
		return nil, err
	}
	clampRiskResult(&result)

	rs.logger.Info("Vendor risk assessment completed",
		zap.String("vendor", vendor.Name),
		zap.Float64("risk_score", result.RiskScore),
		zap.Float64("confidence", result.Confidence))
	return &result, nil
}

func (rs *RiskScorer) buildScoringPrompt(vendor VendorProfile) string {
	return fmt.Sprintf(`Assess the procurement risk of this supplier:

**Supplier:**
- Name: %s
- Category: %s
- Contact email: %s
- Address: %s
- Tax ID: %s

Score the supplier from 0 to 100 where 100 means fully trustworthy and
0 means do not engage. Consider completeness of registration data,
plausibility of contact details, and category-typical risks.

Please respond with ONLY a valid JSON object (no markdown, no explanation). The JSON must have this exact structure:
{
  "risk_score": number between 0 and 100,
  "risk_factors": [string array of identified risk factors],
  "confidence": number between 0.0 and 1.0,
  "reasoning": string explaining your assessment
}`,
		vendor.Name,
		vendor.Category,
		vendor.ContactEmail,
		vendor.Address,
		vendor.TaxID,
	)
}

// clampRiskResult forces model output back into documented ranges
func clampRiskResult(r *VendorRiskResult) {
	if r.RiskScore < 0 {
		r.RiskScore = 0
	}
	if r.RiskScore > 100 {
		r.RiskScore = 100
	}
	if r.Confidence < 0 {
		r.Confidence = 0
	}
	if r.Confidence > 1 {
		r.Confidence = 1
	}
}
