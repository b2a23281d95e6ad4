package formatter

import (
	"testing"
	"time"

	"github.com/alexanderramin/hourglass/internal/domain"
	"github.com/alexanderramin/hourglass/internal/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labels(t *testing.T, locale string) i18n.Labels {
	t.Helper()
	bundle, err := i18n.LoadEmbedded()
	require.NoError(t, err)
	return bundle.Localizer(locale)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0m"},
		{30 * time.Second, "0m"},
		{45 * time.Minute, "45m"},
		{65 * time.Minute, "1h 05m"},
		{10 * time.Hour, "10h 00m"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.in))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "日本語の...", Truncate("日本語のコメントです", 7))
}

func TestClock(t *testing.T) {
	now := time.Date(2024, 3, 1, 15, 0, 0, 0, time.Local)
	assert.Equal(t, "09:30", Clock(time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local), now))
	assert.Equal(t, "Feb 29 09:30", Clock(time.Date(2024, 2, 29, 9, 30, 0, 0, time.Local), now))
}

func TestFormatTrackerList(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	project, issue := int64(3), int64(42)
	trackers := []*domain.TimeTracker{
		{ID: "0123456789abcdef", UserID: 7, ProjectID: &project, IssueID: &issue, Start: now.Add(-90 * time.Minute), Comments: "pairing"},
		{ID: "fedcba9876543210", UserID: 8, Start: now.Add(-10 * time.Minute)},
	}

	out := FormatTrackerList(trackers, labels(t, "en"), now)

	assert.Contains(t, out, "PROJECT")
	assert.Contains(t, out, "ELAPSED")
	assert.Contains(t, out, "01234567")
	assert.NotContains(t, out, "0123456789")
	assert.Contains(t, out, "#3")
	assert.Contains(t, out, "#42")
	assert.Contains(t, out, "1h 30m")
	assert.Contains(t, out, "10m")
	assert.Contains(t, out, "pairing")
}

func TestFormatTrackerList_Empty(t *testing.T) {
	out := FormatTrackerList(nil, labels(t, "en"), time.Now())
	assert.Contains(t, out, "No running time trackers.")
}

func TestFormatTracker_UsesLocaleLabels(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker := &domain.TimeTracker{ID: "abc", UserID: 1, Start: now.Add(-5 * time.Minute), Comments: "review"}

	en := FormatTracker(tracker, labels(t, "en"), now)
	assert.Contains(t, en, "TIME TRACKER")
	assert.Contains(t, en, "review")
	assert.Contains(t, en, "5m")

	ja := FormatTracker(tracker, labels(t, "ja"), now)
	assert.NotContains(t, ja, "TIME TRACKER")
}

func TestFormatStopResult(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	log := &domain.TimeLog{ID: "log-123456789", Start: start, Stop: start.Add(75 * time.Minute)}

	out := FormatStopResult(log, nil)
	assert.Contains(t, out, "Logged 1.25h (1h 15m)")
	assert.NotContains(t, out, "Booked")

	booking := &domain.TimeBooking{ProjectID: 4, Start: start, Stop: start.Add(90 * time.Minute)}
	out = FormatStopResult(log, booking)
	assert.Contains(t, out, "Booked 1.50h on project #4")
}
