package model

import (
	"fmt"
	"strings"
)

// FailureReason identifies why an adapter stage failed.
type FailureReason string

const (
	// Text extraction.
	ReasonObjectNotFound    FailureReason = "object_not_found"
	ReasonUnsupportedFormat FailureReason = "unsupported_format"
	ReasonTextTooShort      FailureReason = "text_too_short"
	// Either adapter.
	ReasonServiceError FailureReason = "service_error"
	// Structuring.
	ReasonBadResponse FailureReason = "bad_response"
)

// Outcome is the terminal result of processing one document. Exactly one
// outcome is produced per invocation; the implementing set is closed so a
// type switch over it is exhaustive.
type Outcome interface {
	// Status maps the outcome to the externally visible document status.
	Status() DocumentStatus
	// Stage names the stage the pipeline terminated in.
	Stage() Stage
	// Message returns a user-safe description of the outcome.
	Message() string

	sealedOutcome()
}

// ExtractionFailed terminates the pipeline during OCR text extraction.
type ExtractionFailed struct {
	Reason FailureReason
	Msg    string
}

func (o ExtractionFailed) Status() DocumentStatus { return StatusFailed }
func (o ExtractionFailed) Stage() Stage           { return StageTextExtraction }
func (o ExtractionFailed) Message() string        { return o.Msg }
func (ExtractionFailed) sealedOutcome()           {}

// StructuringFailed terminates the pipeline during AI field structuring.
type StructuringFailed struct {
	Reason FailureReason
	Msg    string
}

func (o StructuringFailed) Status() DocumentStatus { return StatusFailed }
func (o StructuringFailed) Stage() Stage           { return StageStructuring }
func (o StructuringFailed) Message() string        { return o.Msg }
func (StructuringFailed) sealedOutcome()           {}

// ValidationFailed carries extracted data that violated at least one
// critical rule, along with every issue found.
type ValidationFailed struct {
	Fields FieldMap
	Issues []ValidationIssue
}

func (o ValidationFailed) Status() DocumentStatus { return StatusFailed }
func (o ValidationFailed) Stage() Stage           { return StageValidation }

// Message names the fields that failed critical checks.
func (o ValidationFailed) Message() string {
	critical, _ := PartitionIssues(o.Issues)
	names := make([]string, 0, len(critical))
	seen := make(map[string]bool, len(critical))
	for _, is := range critical {
		if !seen[is.Field] {
			seen[is.Field] = true
			names = append(names, is.Field)
		}
	}
	return fmt.Sprintf("Critical fields missing or invalid: %s", strings.Join(names, ", "))
}
func (ValidationFailed) sealedOutcome() {}

// NeedsVerification carries extracted data that passed all critical rules
// but raised at least one warning, so a human should confirm it.
type NeedsVerification struct {
	Fields FieldMap
	Issues []ValidationIssue
}

func (o NeedsVerification) Status() DocumentStatus { return StatusNeedsVerification }
func (o NeedsVerification) Stage() Stage           { return StageValidation }
func (o NeedsVerification) Message() string        { return "Data extracted but needs verification" }
func (NeedsVerification) sealedOutcome()           {}

// Success carries clean extracted data. Timeline is attached best-effort and
// may be nil when timeline calculation failed.
type Success struct {
	Fields   FieldMap
	Timeline *Timeline
}

func (o Success) Status() DocumentStatus { return StatusSuccess }
func (o Success) Stage() Stage           { return StageComplete }
func (o Success) Message() string        { return "Processing completed" }
func (Success) sealedOutcome()           {}
