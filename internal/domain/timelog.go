package domain

import (
	"math"
	"time"
)

// TimeLog is the immutable record produced when a tracker stops.
type TimeLog struct {
	ID        string
	UserID    int64
	Start     time.Time
	Stop      time.Time
	Comments  string
	Round     bool
	CreatedAt time.Time
}

// Duration returns the logged span.
func (l *TimeLog) Duration() time.Duration {
	return l.Stop.Sub(l.Start)
}

// Hours returns the logged span in hours, rounded to two decimals.
func (l *TimeLog) Hours() float64 {
	return math.Round(l.Duration().Hours()*100) / 100
}

// Validate returns field-level messages; an empty slice means valid.
func (l *TimeLog) Validate() []string {
	var msgs []string
	if !l.Stop.After(l.Start) {
		msgs = append(msgs, "Stop must be after start")
	}
	if len([]rune(l.Comments)) > MaxCommentsLength {
		msgs = append(msgs, "Comments is too long (maximum is 255 characters)")
	}
	return msgs
}

// TimeBooking allocates a time log against a project and activity.
type TimeBooking struct {
	ID                string
	TimeLogID         string
	UserID            int64
	ProjectID         int64
	IssueID           *int64
	ActivityID        *int64
	Start             time.Time
	Stop              time.Time
	Comments          string
	CustomFieldValues map[string]string
	CreatedAt         time.Time
}

// Hours returns the booked span in hours, rounded to two decimals.
func (b *TimeBooking) Hours() float64 {
	return math.Round(b.Stop.Sub(b.Start).Hours()*100) / 100
}

// Validate returns field-level messages; an empty slice means valid.
func (b *TimeBooking) Validate() []string {
	var msgs []string
	if b.ActivityID == nil {
		msgs = append(msgs, "Activity cannot be blank")
	}
	if b.Stop.Before(b.Start) {
		msgs = append(msgs, "Stop must not be before start")
	}
	return msgs
}

// Book builds the booking for a log taken from the given tracker. The stop
// time is rounded when the log asks for it.
func (l *TimeLog) Book(t *TimeTracker, projectID int64, rounding Rounding) *TimeBooking {
	stop := l.Stop
	if l.Round {
		stop = rounding.Apply(l.Start, l.Stop)
	}
	b := &TimeBooking{
		TimeLogID:  l.ID,
		UserID:     l.UserID,
		ProjectID:  projectID,
		IssueID:    cloneInt64(t.IssueID),
		ActivityID: cloneInt64(t.ActivityID),
		Start:      l.Start,
		Stop:       stop,
		Comments:   l.Comments,
	}
	if t.CustomFieldValues != nil {
		b.CustomFieldValues = t.Clone().CustomFieldValues
	}
	return b
}
