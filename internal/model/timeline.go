package model

// TimelineStatus describes where "now" falls relative to the OPT window.
type TimelineStatus string

const (
	TimelineFarBeforeWindow  TimelineStatus = "far_before_window"
	TimelineBeforeWindow     TimelineStatus = "before_window"
	TimelineInWindow         TimelineStatus = "in_window"
	TimelineInWindowUrgent   TimelineStatus = "in_window_urgent"
	TimelineInWindowCritical TimelineStatus = "in_window_critical"
	TimelineGracePeriod      TimelineStatus = "grace_period"
	TimelineExpired          TimelineStatus = "expired"
)

// Urgency ranks how pressing the current timeline status is.
type Urgency string

const (
	UrgencyNone     Urgency = "none"
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// TimelineWarning is an attention item attached to a timeline.
type TimelineWarning struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Action   string `json:"action,omitempty"`
}

// Timeline is a read-only snapshot of OPT deadlines derived from one program
// end date and an injected "now". It has no lifecycle of its own: every call
// to the calculator produces a fresh projection. Day counts are signed and
// may be negative once a date has passed.
type Timeline struct {
	ProgramEndDate     string            `json:"program_end_date"`
	OPTWindowOpens     string            `json:"opt_window_opens"`
	RecommendedApplyBy string            `json:"recommended_apply_by"`
	LastDayToApply     string            `json:"last_day_to_apply"`
	GracePeriodEnds    string            `json:"grace_period_ends"`
	DaysUntilWindow    int               `json:"days_until_window"`
	DaysUntilDeadline  int               `json:"days_until_deadline"`
	DaysUntilGraceEnd  int               `json:"days_until_grace_end"`
	Status             TimelineStatus    `json:"status"`
	Urgency            Urgency           `json:"urgency"`
	StatusMessage      string            `json:"status_message"`
	ActionItems        []string          `json:"action_items"`
	Warnings           []TimelineWarning `json:"warnings"`
}
