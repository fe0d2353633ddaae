package pipeline

import (
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/visapath/i20-processor/internal/model"
	"github.com/visapath/i20-processor/internal/timeline"
)

const (
	minConfidence   = 0.75
	minNameLength   = 3
	maxDaysInPast   = 730  // ~2 years
	maxDaysInFuture = 2190 // ~6 years
)

var sevisIDPattern = regexp.MustCompile(`^N\d{10}$`)

// Validate checks extracted I-20 data against every business rule and
// returns all issues found, in rule-evaluation order. It never stops at the
// first violation: the caller decides the outcome from the full set.
func Validate(fields model.FieldMap, now time.Time) []model.ValidationIssue {
	var issues []model.ValidationIssue

	for _, rf := range model.RequiredFields {
		f := fields.Field(rf.Name)
		if f == nil {
			issues = append(issues, model.ValidationIssue{
				Field:      rf.Name,
				Severity:   model.SeverityCritical,
				Message:    fmt.Sprintf("%s is missing and is required", rf.Display),
				Suggestion: "Please upload a clearer I-20 or enter manually",
			})
			continue
		}

		if f.Confidence < minConfidence {
			issues = append(issues, model.ValidationIssue{
				Field:      rf.Name,
				Severity:   model.SeverityWarning,
				Message:    fmt.Sprintf("Low confidence (%.0f%%) for %s", f.Confidence*100, rf.Display),
				Suggestion: "Please verify this value is correct",
				Value:      f.Value,
			})
		}
	}

	if f := fields.SevisID; f != nil && !sevisIDPattern.MatchString(f.Value) {
		issues = append(issues, model.ValidationIssue{
			Field:      model.FieldSevisID,
			Severity:   model.SeverityCritical,
			Message:    fmt.Sprintf("Invalid SEVIS ID format: %q", f.Value),
			Suggestion: `SEVIS ID should be "N" followed by 10 digits (e.g., N0012345678)`,
			Value:      f.Value,
		})
	}

	if f := fields.ProgramEndDate; f != nil {
		issues = append(issues, validateProgramEndDate(f.Value, now)...)
	}

	if f := fields.FullName; f != nil && utf8.RuneCountInString(f.Value) < minNameLength {
		issues = append(issues, model.ValidationIssue{
			Field:    model.FieldFullName,
			Severity: model.SeverityCritical,
			Message:  "Name is too short or missing",
			Value:    f.Value,
		})
	}

	if f := fields.SchoolName; f != nil && utf8.RuneCountInString(f.Value) < minNameLength {
		issues = append(issues, model.ValidationIssue{
			Field:    model.FieldSchoolName,
			Severity: model.SeverityCritical,
			Message:  "School name is too short or missing",
			Value:    f.Value,
		})
	}

	critical, warnings := model.PartitionIssues(issues)
	zap.L().Info("validation completed",
		zap.Int("total_issues", len(issues)),
		zap.Int("critical", len(critical)),
		zap.Int("warnings", len(warnings)),
	)

	return issues
}

// validateProgramEndDate checks the date parses and sits in a plausible
// range. The range checks are independent warnings; only an unparseable
// date is critical.
func validateProgramEndDate(value string, now time.Time) []model.ValidationIssue {
	end, err := time.Parse(timeline.DateLayout, value)
	if err != nil {
		return []model.ValidationIssue{{
			Field:      model.FieldProgramEndDate,
			Severity:   model.SeverityCritical,
			Message:    "Invalid date format for program end date",
			Suggestion: "Date should be in YYYY-MM-DD format",
			Value:      value,
		}}
	}

	var issues []model.ValidationIssue

	if end.Before(now.AddDate(0, 0, -maxDaysInPast)) {
		issues = append(issues, model.ValidationIssue{
			Field:      model.FieldProgramEndDate,
			Severity:   model.SeverityWarning,
			Message:    fmt.Sprintf("Program end date (%s) is over 2 years ago", value),
			Suggestion: "This may be an old I-20. Please verify this is your current I-20.",
			Value:      value,
		})
	}

	if end.After(now.AddDate(0, 0, maxDaysInFuture)) {
		issues = append(issues, model.ValidationIssue{
			Field:      model.FieldProgramEndDate,
			Severity:   model.SeverityWarning,
			Message:    fmt.Sprintf("Program end date (%s) is over 6 years away", value),
			Suggestion: "Please verify this date is correct.",
			Value:      value,
		})
	}

	return issues
}
