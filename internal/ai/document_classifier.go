package ai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Document categories the classifier may assign
var documentCategories = []string{
	"contract",
	"invoice",
	"purchase_order",
	"tender_response",
	"specification",
	"certificate",
	"report",
	"other",
}

// maxClassifyChars caps how much extracted text goes into the prompt
const maxClassifyChars = 6000

// DocumentClassification is the stored analysis of an uploaded document
type DocumentClassification struct {
	Category   string   `json:"category"`
	Summary    string   `json:"summary"`
	KeyTerms   []string `json:"key_terms"`
	Confidence float64  `json:"confidence"`
}

// DocumentClassifier categorizes and summarizes uploaded documents
type DocumentClassifier struct {
	client *openai.Client
	model  string
	temp   float32
	logger *zap.Logger
}

// NewDocumentClassifier creates a new document classifier
func NewDocumentClassifier(apiKey, model string, temperature float32, logger *zap.Logger) *DocumentClassifier {
	return &DocumentClassifier{
		client: openai.NewClient(apiKey),
		model:  model,
		temp:   temperature,
		logger: logger,
	}
}

// Classify categorizes the extracted document text
func (dc *DocumentClassifier) Classify(ctx context.Context, text string) (*DocumentClassification, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text to classify")
	}
	if len(text) > maxClassifyChars {
		text = text[:maxClassifyChars]
	}

	resp, err := dc.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       dc.model,
		Temperature: dc.temp,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a procurement document analyst. Classify and summarize documents attached to procurement records. Always respond with valid JSON wrapped in ```json and ``` markers.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: dc.buildClassifyPrompt(text),
			},
		},
	})
	if err != nil {
		dc.logger.Error("OpenAI API call failed", zap.Error(err))
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content
	var result DocumentClassification
	if err := decodeJSONResponse(content, &result); err != nil {
		dc.logger.Error("Failed to parse classification response",
			zap.Error(err),
			zap.String("content", content))
		return nil, err
	}
	normalizeClassification(&result)

	dc.logger.Info("Document classified",
		zap.String("category", result.Category),
		zap.Float64("confidence", result.Confidence))
	return &result, nil
}

func (dc *DocumentClassifier) buildClassifyPrompt(text string) string {
	return fmt.Sprintf(`Classify this document extracted from a procurement system attachment:

**Document text:**
%s

**Allowed categories:** %s

Please respond with ONLY a valid JSON object (no markdown, no explanation). The JSON must have this exact structure:
{
  "category": one of the allowed categories,
  "summary": string of at most three sentences,
  "key_terms": [string array of up to 8 key terms],
  "confidence": number between 0.0 and 1.0
}`,
		text,
		strings.Join(documentCategories, ", "),
	)
}

// normalizeClassification forces unknown categories to "other" and
// clamps confidence.
func normalizeClassification(r *DocumentClassification) {
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
	known := false
	for _, c := range documentCategories {
		if r.Category == c {
			known = true
			break
		}
	}
	if !known {
		r.Category = "other"
	}
	if r.Confidence < 0 {
		r.Confidence = 0
	}
	if r.Confidence > 1 {
		r.Confidence = 1
	}
	if len(r.KeyTerms) > 8 {
		r.KeyTerms = r.KeyTerms[:8]
	}
}
