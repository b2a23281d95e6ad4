package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/hourglass/internal/domain"
	"github.com/alexanderramin/hourglass/internal/i18n"
)

// FormatTrackerList renders running trackers as a table.
func FormatTrackerList(trackers []*domain.TimeTracker, labels i18n.Labels, now time.Time) string {
	if len(trackers) == 0 {
		return Dim("No running time trackers.") + "\n"
	}
	headers := []string{
		"ID",
		"USER",
		strings.ToUpper(labels.Label("label_project")),
		strings.ToUpper(labels.Label("label_issue")),
		strings.ToUpper(labels.Label("label_started")),
		strings.ToUpper(labels.Label("label_elapsed")),
		strings.ToUpper(labels.Label("label_comments")),
	}
	rows := make([][]string, 0, len(trackers))
	for _, t := range trackers {
		elapsed := t.Elapsed(now)
		rows = append(rows, []string{
			TruncID(t.ID),
			fmt.Sprintf("%d", t.UserID),
			OptionalID(t.ProjectID),
			OptionalID(t.IssueID),
			Clock(t.Start, now),
			ElapsedStyle(elapsed.Hours()).Render(FormatDuration(elapsed)),
			Truncate(t.Comments, 40),
		})
	}
	return RenderTable(headers, rows)
}

// FormatTracker renders one tracker in a titled box.
func FormatTracker(t *domain.TimeTracker, labels i18n.Labels, now time.Time) string {
	elapsed := t.Elapsed(now)
	lines := []string{
		field("ID", t.ID),
		field(labels.Label("label_project"), OptionalID(t.ProjectID)),
		field(labels.Label("label_issue"), OptionalID(t.IssueID)),
		field(labels.Label("label_started"), Clock(t.Start, now)),
		field(labels.Label("label_elapsed"), ElapsedStyle(elapsed.Hours()).Render(FormatDuration(elapsed))),
	}
	if t.Comments != "" {
		lines = append(lines, field(labels.Label("label_comments"), t.Comments))
	}
	return RenderBox(labels.Label("label_time_tracker"), strings.Join(lines, "\n")) + "\n"
}

// FormatStopResult summarizes what a stopped tracker turned into.
func FormatStopResult(log *domain.TimeLog, booking *domain.TimeBooking) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Logged %.2fh (%s) as %s\n",
		StyleGreen.Render("✔"), log.Hours(), FormatDuration(log.Duration()), TruncID(log.ID))
	if booking != nil {
		fmt.Fprintf(&b, "%s Booked %.2fh on project #%d\n",
			StyleGreen.Render("✔"), booking.Hours(), booking.ProjectID)
	}
	return b.String()
}

func field(label, value string) string {
	return fmt.Sprintf("%s  %s", StyleDim.Render(fmt.Sprintf("%-10s", label)), value)
}
