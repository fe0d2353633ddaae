package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/visapath/i20-processor/internal/model"
	"github.com/visapath/i20-processor/internal/ocr"
)

// minTextLength is the fewest characters of extracted text worth sending to
// the structurer. Below this the scan is unusable regardless of what the
// model would make of it.
const minTextLength = 100

// extractText runs the OCR stage and enforces the minimum-text rule. On
// failure it returns a terminal ExtractionFailed outcome with a message safe
// to show to the student; the raw provider error stays in the logs.
func (p *Processor) extractText(ctx context.Context, loc model.DocumentLocation) (string, *model.ExtractionFailed) {
	text, err := p.extractor.ExtractText(ctx, loc.Bucket, loc.Key)
	if err != nil {
		zap.L().Error("text extraction failed",
			zap.String("bucket", loc.Bucket),
			zap.String("key", loc.Key),
			zap.Error(err),
		)
		return "", extractionOutcome(err)
	}

	if len(text) < minTextLength {
		zap.L().Warn("extracted text too short",
			zap.String("key", loc.Key),
			zap.Int("text_length", len(text)),
			zap.Int("minimum_required", minTextLength),
		)
		return "", &model.ExtractionFailed{
			Reason: model.ReasonTextTooShort,
			Msg:    fmt.Sprintf("Could not extract enough text (%d chars). Please upload a clear, readable PDF.", len(text)),
		}
	}

	return text, nil
}

func extractionOutcome(err error) *model.ExtractionFailed {
	var oe *ocr.Error
	if errors.As(err, &oe) {
		switch oe.Kind {
		case ocr.KindObjectNotFound:
			return &model.ExtractionFailed{
				Reason: model.ReasonObjectNotFound,
				Msg:    "Document not found or cannot be accessed. Please try uploading again.",
			}
		case ocr.KindUnsupportedFormat:
			return &model.ExtractionFailed{
				Reason: model.ReasonUnsupportedFormat,
				Msg:    "Document type not supported. Please upload a PDF file.",
			}
		}
	}
	return &model.ExtractionFailed{
		Reason: model.ReasonServiceError,
		Msg:    "Text extraction failed. Please try a different file or contact support.",
	}
}
