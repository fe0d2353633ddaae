package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/visapath/i20-processor/internal/model"
	"github.com/visapath/i20-processor/internal/resilience"
	"github.com/visapath/i20-processor/pkg/anthropic"
)

// maxTextLengthForAI caps how much extracted text is placed into the prompt.
// I-20 forms front-load the identifying fields, so the tail is expendable.
const maxTextLengthForAI = 8000

const structuringMaxTokens = 1024

// Structurer turns raw extracted text into a structured FieldMap using the
// Anthropic API. Calls are rate limited and retried on transient failures.
type Structurer struct {
	client  anthropic.Client
	model   string
	limiter *rate.Limiter
	policy  resilience.Policy
}

// NewStructurer creates a Structurer. A nil limiter disables rate limiting.
func NewStructurer(client anthropic.Client, modelID string, limiter *rate.Limiter, policy resilience.Policy) *Structurer {
	return &Structurer{
		client:  client,
		model:   modelID,
		limiter: limiter,
		policy:  policy,
	}
}

// Structure extracts the I-20 fields from raw text. On failure the returned
// outcome distinguishes a service failure (the call itself never succeeded)
// from a bad response (the model answered with something unparseable).
func (s *Structurer) Structure(ctx context.Context, rawText string) (*model.FieldMap, *model.StructuringFailed) {
	text := rawText
	if len(text) > maxTextLengthForAI {
		text = truncateToRuneBoundary(text, maxTextLengthForAI)
		zap.L().Info("truncating text for AI processing",
			zap.Int("original_length", len(rawText)),
			zap.Int("truncated_length", len(text)),
		)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			zap.L().Error("rate limiter wait aborted", zap.Error(err))
			return nil, &model.StructuringFailed{
				Reason: model.ReasonServiceError,
				Msg:    "AI processing failed. Please try again or contact support.",
			}
		}
	}

	policy := s.policy
	policy.OnRetry = resilience.RetryLogger("anthropic", "structure_i20")

	resp, err := resilience.Retry(ctx, policy, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return s.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     s.model,
			MaxTokens: structuringMaxTokens,
			Messages: []anthropic.Message{
				{Role: "user", Content: buildExtractionPrompt(text)},
			},
		})
	})
	if err != nil {
		zap.L().Error("AI structuring failed", zap.Error(err))
		return nil, &model.StructuringFailed{
			Reason: model.ReasonServiceError,
			Msg:    "AI processing failed. Please try again or contact support.",
		}
	}

	resp.Usage.LogCost(s.model, "structure_i20")

	cleaned := stripCodeFences(resp.Text())

	var fields model.FieldMap
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		preview := cleaned
		if len(preview) > 200 {
			preview = preview[:200]
		}
		zap.L().Error("failed to parse AI response as JSON",
			zap.String("response_preview", preview),
			zap.Error(err),
		)
		return nil, &model.StructuringFailed{
			Reason: model.ReasonBadResponse,
			Msg:    "AI response could not be parsed. Please try again.",
		}
	}

	zap.L().Info("AI structuring completed")
	return &fields, nil
}

func buildExtractionPrompt(text string) string {
	return fmt.Sprintf(`Extract the following fields from this I-20 form text.
Return ONLY valid JSON with confidence scores (0.0 to 1.0) for each field.

Required fields:
- full_name: Student's full legal name
- sevis_id: SEVIS ID number (format: N followed by 10 digits)
- date_of_birth: Date of birth (YYYY-MM-DD format)
- program_end_date: Program end date (YYYY-MM-DD format)
- school_name: School/university name
- degree_program: Degree and major (e.g., "Master of Science in Computer Science")
- school_address: School's full address

Return format:
{
  "full_name": {"value": "John Doe", "confidence": 0.95},
  "sevis_id": {"value": "N0012345678", "confidence": 0.98},
  "date_of_birth": {"value": "1995-06-15", "confidence": 0.90},
  "program_end_date": {"value": "2025-12-15", "confidence": 0.92},
  "school_name": {"value": "Northeastern University", "confidence": 0.99},
  "degree_program": {"value": "Master of Science in Computer Science", "confidence": 0.93},
  "school_address": {"value": "360 Huntington Ave, Boston, MA 02115", "confidence": 0.88}
}

I-20 Text:
%s

Return ONLY the JSON object, nothing else.`, text)
}

// truncateToRuneBoundary cuts s to at most max bytes without splitting a
// UTF-8 sequence, so the prompt never carries a partial rune.
func truncateToRuneBoundary(s string, max int) string {
	if len(s) <= max {
		return s
	}
	s = s[:max]
	for len(s) > 0 {
		r, size := utf8.DecodeLastRuneInString(s)
		if r == utf8.RuneError && size <= 1 {
			s = s[:len(s)-1]
			continue
		}
		break
	}
	return s
}

// stripCodeFences removes a leading ```json or ``` fence and a trailing ```
// fence, which models add despite being told not to.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	if strings.HasSuffix(s, "```") {
		s = s[:len(s)-len("```")]
	}
	return strings.TrimSpace(s)
}
