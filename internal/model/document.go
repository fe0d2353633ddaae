package model

// Canonical field names extracted from an I-20 form.
const (
	FieldFullName       = "full_name"
	FieldSevisID        = "sevis_id"
	FieldDateOfBirth    = "date_of_birth"
	FieldProgramEndDate = "program_end_date"
	FieldSchoolName     = "school_name"
	FieldDegreeProgram  = "degree_program"
	FieldSchoolAddress  = "school_address"
)

// ExtractedField is one value read off the form together with the model's
// confidence in it, in [0, 1]. Immutable once produced by the structurer.
type ExtractedField struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// FieldMap holds the structured fields extracted from one I-20. A nil entry
// means the field was absent from the model output — distinct from a field
// present with an empty value.
type FieldMap struct {
	FullName       *ExtractedField `json:"full_name,omitempty"`
	SevisID        *ExtractedField `json:"sevis_id,omitempty"`
	DateOfBirth    *ExtractedField `json:"date_of_birth,omitempty"`
	ProgramEndDate *ExtractedField `json:"program_end_date,omitempty"`
	SchoolName     *ExtractedField `json:"school_name,omitempty"`
	DegreeProgram  *ExtractedField `json:"degree_program,omitempty"`
	SchoolAddress  *ExtractedField `json:"school_address,omitempty"`
}

// Field returns the extracted field for a canonical name, or nil when the
// field is absent or the name is unknown.
func (m *FieldMap) Field(name string) *ExtractedField {
	switch name {
	case FieldFullName:
		return m.FullName
	case FieldSevisID:
		return m.SevisID
	case FieldDateOfBirth:
		return m.DateOfBirth
	case FieldProgramEndDate:
		return m.ProgramEndDate
	case FieldSchoolName:
		return m.SchoolName
	case FieldDegreeProgram:
		return m.DegreeProgram
	case FieldSchoolAddress:
		return m.SchoolAddress
	default:
		return nil
	}
}

// RequiredField pairs a canonical field name with the display name used in
// validation messages.
type RequiredField struct {
	Name    string
	Display string
}

// RequiredFields are the fields that must be present for an I-20 to be
// usable, in rule-evaluation order.
var RequiredFields = []RequiredField{
	{Name: FieldFullName, Display: "Student name"},
	{Name: FieldSevisID, Display: "SEVIS ID"},
	{Name: FieldProgramEndDate, Display: "Program end date"},
	{Name: FieldSchoolName, Display: "School name"},
}

// DocumentLocation identifies an uploaded document in object storage.
type DocumentLocation struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// DocumentStatus is the externally visible processing state of a document.
type DocumentStatus string

const (
	StatusProcessing        DocumentStatus = "processing"
	StatusSuccess           DocumentStatus = "success"
	StatusNeedsVerification DocumentStatus = "needs_verification"
	StatusFailed            DocumentStatus = "failed"
)

// Stage names the pipeline stage a status report refers to.
type Stage string

const (
	StageTextExtraction Stage = "text_extraction"
	StageStructuring    Stage = "ai_structuring"
	StageValidation     Stage = "validation"
	StageComplete       Stage = "complete"
	StageError          Stage = "error"
)

// StatusUpdate is the payload handed to the status sink on each report.
// All pointer/slice fields are optional.
type StatusUpdate struct {
	Status   DocumentStatus    `json:"status"`
	Stage    Stage             `json:"stage,omitempty"`
	Data     *FieldMap         `json:"data,omitempty"`
	Error    string            `json:"error,omitempty"`
	Issues   []ValidationIssue `json:"validation_issues,omitempty"`
	Timeline *Timeline         `json:"timeline,omitempty"`
}
