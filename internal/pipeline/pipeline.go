// Package pipeline orchestrates I-20 processing: OCR text extraction, AI
// field structuring, rule validation, and best-effort timeline calculation.
// Every invocation terminates in exactly one Outcome.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/visapath/i20-processor/internal/model"
	"github.com/visapath/i20-processor/internal/ocr"
	"github.com/visapath/i20-processor/internal/timeline"
)

// StatusSink receives status reports as a document moves through the
// pipeline. Reports are fire-and-forget: a sink failure is logged but never
// changes the processing outcome.
type StatusSink interface {
	UpdateStatus(ctx context.Context, userID, documentID string, update model.StatusUpdate) error
}

// Processor runs the full I-20 pipeline for one document at a time.
type Processor struct {
	extractor  ocr.Extractor
	structurer *Structurer
	sink       StatusSink
	now        func() time.Time
}

// NewProcessor creates a Processor. A nil now defaults to time.Now.
func NewProcessor(extractor ocr.Extractor, structurer *Structurer, sink StatusSink, now func() time.Time) *Processor {
	if now == nil {
		now = time.Now
	}
	return &Processor{
		extractor:  extractor,
		structurer: structurer,
		sink:       sink,
		now:        now,
	}
}

// Process runs the pipeline for one uploaded document and returns its
// terminal outcome. The sink receives exactly two reports: a processing
// report before the adapters run and the terminal report after.
func (p *Processor) Process(ctx context.Context, userID, documentID string, loc model.DocumentLocation) model.Outcome {
	requestID := uuid.NewString()
	zap.L().Info("document processing started",
		zap.String("request_id", requestID),
		zap.String("user_id", userID),
		zap.String("document_id", documentID),
		zap.String("bucket", loc.Bucket),
		zap.String("key", loc.Key),
	)

	p.report(ctx, userID, documentID, model.StatusUpdate{
		Status: model.StatusProcessing,
		Stage:  model.StageTextExtraction,
	})

	outcome := p.run(ctx, loc)

	p.report(ctx, userID, documentID, terminalUpdate(outcome))

	zap.L().Info("document processing completed",
		zap.String("request_id", requestID),
		zap.String("document_id", documentID),
		zap.String("status", string(outcome.Status())),
		zap.String("stage", string(outcome.Stage())),
	)

	return outcome
}

func (p *Processor) run(ctx context.Context, loc model.DocumentLocation) model.Outcome {
	text, extractFail := p.extractText(ctx, loc)
	if extractFail != nil {
		return extractFail
	}

	fields, structFail := p.structurer.Structure(ctx, text)
	if structFail != nil {
		return structFail
	}

	issues := Validate(*fields, p.now())
	critical, warnings := model.PartitionIssues(issues)

	if len(critical) > 0 {
		return model.ValidationFailed{Fields: *fields, Issues: issues}
	}
	if len(warnings) > 0 {
		return model.NeedsVerification{Fields: *fields, Issues: issues}
	}

	return model.Success{
		Fields:   *fields,
		Timeline: p.calculateTimeline(fields),
	}
}

// calculateTimeline computes the OPT timeline for a clean extraction. The
// timeline is nice-to-have: a failure here is logged and the document still
// succeeds without one.
func (p *Processor) calculateTimeline(fields *model.FieldMap) *model.Timeline {
	end := fields.ProgramEndDate
	if end == nil {
		return nil
	}

	tl, err := timeline.Calculate(end.Value, p.now())
	if err != nil {
		zap.L().Error("timeline calculation failed",
			zap.String("program_end_date", end.Value),
			zap.Error(err),
		)
		return nil
	}

	zap.L().Info("timeline calculated", zap.String("status", string(tl.Status)))
	return tl
}

func terminalUpdate(outcome model.Outcome) model.StatusUpdate {
	update := model.StatusUpdate{
		Status: outcome.Status(),
		Stage:  outcome.Stage(),
	}

	switch o := outcome.(type) {
	case *model.ExtractionFailed:
		update.Error = o.Msg
	case *model.StructuringFailed:
		update.Error = o.Msg
	case model.ValidationFailed:
		update.Data = &o.Fields
		update.Issues = o.Issues
		update.Error = o.Message()
	case model.NeedsVerification:
		update.Data = &o.Fields
		update.Issues = o.Issues
	case model.Success:
		update.Data = &o.Fields
		update.Timeline = o.Timeline
	}

	return update
}

func (p *Processor) report(ctx context.Context, userID, documentID string, update model.StatusUpdate) {
	if p.sink == nil {
		return
	}
	if err := p.sink.UpdateStatus(ctx, userID, documentID, update); err != nil {
		zap.L().Error("status update failed",
			zap.String("user_id", userID),
			zap.String("document_id", documentID),
			zap.String("status", string(update.Status)),
			zap.Error(err),
		)
	}
}
