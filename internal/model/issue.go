package model

// Severity classifies a validation issue. Critical issues block acceptance;
// warnings only require human verification.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// ValidationIssue is a single rule violation found in extracted data.
// Issues are data, not errors: the validator returns every applicable issue
// in rule-evaluation order and never mutates one after creation.
type ValidationIssue struct {
	Field      string   `json:"field"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
	Value      string   `json:"value,omitempty"`
}

// PartitionIssues splits issues into critical and warning groups, preserving
// order within each group.
func PartitionIssues(issues []ValidationIssue) (critical, warnings []ValidationIssue) {
	for _, is := range issues {
		if is.Severity == SeverityCritical {
			critical = append(critical, is)
		} else {
			warnings = append(warnings, is)
		}
	}
	return critical, warnings
}
