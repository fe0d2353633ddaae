// Package timeline derives OPT application deadlines from a program end
// date. The calculator is a pure function of the end date and an injected
// "now": identical inputs always produce identical output.
package timeline

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/visapath/i20-processor/internal/model"
)

// DateLayout is the wire format for all timeline dates.
const DateLayout = "2006-01-02"

const (
	// OPTWindowDays is how many days before the program end date the OPT
	// application window opens.
	OPTWindowDays = 90
	// GracePeriodDays is the post-graduation grace period length.
	GracePeriodDays = 60
	// RecommendedBufferDays is the safety buffer before the deadline.
	RecommendedBufferDays = 30
	// PreparationDays is the messaging-only horizon before the window opens;
	// it never feeds date arithmetic.
	PreparationDays = 120
)

// Calculate builds the OPT timeline for a program end date. It fails only
// when the date cannot be parsed as YYYY-MM-DD.
func Calculate(programEndDate string, now time.Time) (*model.Timeline, error) {
	endDate, err := time.Parse(DateLayout, programEndDate)
	if err != nil {
		return nil, eris.Wrapf(err, "timeline: parse program end date %q", programEndDate)
	}

	today := truncateToDay(now)
	endDate = truncateToDay(endDate)

	windowOpens := endDate.AddDate(0, 0, -OPTWindowDays)
	recommendedBy := endDate.AddDate(0, 0, -RecommendedBufferDays)
	graceEnds := endDate.AddDate(0, 0, GracePeriodDays)

	tl := &model.Timeline{
		ProgramEndDate:     endDate.Format(DateLayout),
		OPTWindowOpens:     windowOpens.Format(DateLayout),
		RecommendedApplyBy: recommendedBy.Format(DateLayout),
		LastDayToApply:     endDate.Format(DateLayout),
		GracePeriodEnds:    graceEnds.Format(DateLayout),
		DaysUntilWindow:    daysBetween(today, windowOpens),
		DaysUntilDeadline:  daysBetween(today, endDate),
		DaysUntilGraceEnd:  daysBetween(today, graceEnds),
	}

	tl.Status, tl.Urgency, tl.StatusMessage = determineStatus(today, windowOpens, endDate, graceEnds)
	tl.ActionItems = actionItems(tl)
	tl.Warnings = warnings(tl)

	return tl, nil
}

// determineStatus walks the status ladder in order; the first match wins.
func determineStatus(today, windowOpens, endDate, graceEnds time.Time) (model.TimelineStatus, model.Urgency, string) {
	switch {
	case today.Before(windowOpens):
		daysUntil := daysBetween(today, windowOpens)
		if daysUntil > PreparationDays {
			return model.TimelineFarBeforeWindow, model.UrgencyNone,
				"Your OPT window is not open yet. Start preparing soon."
		}
		return model.TimelineBeforeWindow, model.UrgencyLow,
			fmt.Sprintf("Your OPT window opens in %d days. Time to prepare!", daysUntil)

	case !today.After(endDate): // windowOpens <= today <= endDate
		remaining := daysBetween(today, endDate)
		switch {
		case remaining <= 7:
			return model.TimelineInWindowCritical, model.UrgencyCritical,
				fmt.Sprintf("URGENT: Only %d days left to apply!", remaining)
		case remaining <= 30:
			return model.TimelineInWindowUrgent, model.UrgencyHigh,
				fmt.Sprintf("Application deadline approaching: %d days remaining", remaining)
		default:
			return model.TimelineInWindow, model.UrgencyMedium,
				fmt.Sprintf("Your OPT window is open. %d days to apply.", remaining)
		}

	case !today.After(graceEnds): // endDate < today <= graceEnds
		remaining := daysBetween(today, graceEnds)
		return model.TimelineGracePeriod, model.UrgencyHigh,
			fmt.Sprintf("You are in the 60-day grace period. %d days remaining.", remaining)

	default:
		return model.TimelineExpired, model.UrgencyCritical,
			"Grace period has ended. Immediate action required."
	}
}

// actionItems returns the fixed step list for the timeline's status. Every
// status maps to a non-empty list.
func actionItems(tl *model.Timeline) []string {
	switch tl.Status {
	case model.TimelineFarBeforeWindow:
		return []string{
			"Review OPT eligibility requirements",
			"Start saving for the $410 USCIS filing fee",
			"Familiarize yourself with the I-765 form",
			"Keep your passport valid (6+ months)",
			fmt.Sprintf("OPT window opens in %d days", tl.DaysUntilWindow),
		}
	case model.TimelineBeforeWindow:
		return []string{
			"Gather required documents (passport, I-20, transcripts)",
			"Get passport photos taken (2\" x 2\", recent)",
			"Download and review the I-765 form",
			"Prepare the filing fee ($410 check or money order)",
			"Schedule a meeting with your DSO for a signature",
			fmt.Sprintf("Window opens on %s", tl.OPTWindowOpens),
		}
	case model.TimelineInWindow:
		return []string{
			"Complete the I-765 application form",
			"Get your DSO signature on the I-20 (page 3)",
			"Make copies of all documents (2 sets)",
			"Get a check or money order for $410",
			"Review the USCIS mailing address",
			fmt.Sprintf("Recommended to apply by %s", tl.RecommendedApplyBy),
			fmt.Sprintf("%d days remaining", tl.DaysUntilDeadline),
		}
	case model.TimelineInWindowUrgent:
		return []string{
			"URGENT: Apply as soon as possible",
			"Complete the I-765 form today",
			"Get your DSO signature immediately",
			"Prepare all documents and copies",
			"Use certified mail with tracking",
			fmt.Sprintf("Deadline: %s (%d days)", tl.LastDayToApply, tl.DaysUntilDeadline),
		}
	case model.TimelineInWindowCritical:
		return []string{
			"CRITICAL: Apply immediately; express processing recommended",
			"Complete the I-765 right now",
			"Visit your DSO today for a signature",
			"Use overnight/express mail",
			"Document everything with photos and receipts",
			fmt.Sprintf("Final deadline: %s", tl.LastDayToApply),
		}
	case model.TimelineGracePeriod:
		return []string{
			"You are in the 60-day grace period after graduation",
			"If you applied for OPT: track your application status online",
			"If you did not apply: consider other visa options (H-1B, transfer)",
			"Do not work until your EAD card is received",
			"Consult with your DSO about your options",
			fmt.Sprintf("Grace period ends: %s", tl.GracePeriodEnds),
		}
	case model.TimelineExpired:
		return []string{
			"Grace period has ended",
			"You may be out of status",
			"Contact an immigration attorney immediately",
			"Do not work without proper authorization",
			"Discuss options with your DSO and a lawyer",
		}
	default:
		return []string{"Contact your DSO for guidance"}
	}
}

// warnings returns attention items for the timeline. In-window statuses
// always carry an informational note about typical processing time.
func warnings(tl *model.Timeline) []model.TimelineWarning {
	var out []model.TimelineWarning

	switch tl.Status {
	case model.TimelineInWindowCritical:
		out = append(out, model.TimelineWarning{
			Severity: "critical",
			Message:  "Less than 7 days to apply for OPT. Apply immediately to avoid missing the deadline.",
			Action:   "Visit your DSO today",
		})
	case model.TimelineExpired:
		out = append(out, model.TimelineWarning{
			Severity: "critical",
			Message:  "Grace period has ended. You may be out of status and need immediate legal advice.",
			Action:   "Contact an immigration attorney ASAP",
		})
	case model.TimelineInWindowUrgent:
		out = append(out, model.TimelineWarning{
			Severity: "high",
			Message:  "Less than 30 days to apply. Start your application now to avoid issues.",
			Action:   "Begin the I-765 application immediately",
		})
	case model.TimelineGracePeriod:
		out = append(out, model.TimelineWarning{
			Severity: "high",
			Message:  "You are in your 60-day grace period. You cannot work without an EAD card.",
			Action:   "Track your OPT application status",
		})
	}

	switch tl.Status {
	case model.TimelineInWindow, model.TimelineInWindowUrgent, model.TimelineInWindowCritical:
		out = append(out, model.TimelineWarning{
			Severity: "info",
			Message:  "USCIS processing typically takes 90-120 days. Apply early for peace of mind.",
		})
	}

	return out
}

// truncateToDay normalizes a time to midnight UTC so day counts are stable
// regardless of the time of day the pipeline runs.
func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the signed number of calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}
