package domain

import "time"

// MaxCommentsLength is the longest comment accepted on trackers, logs and bookings.
const MaxCommentsLength = 255

// TimeTracker is a running, not yet converted time tracking session.
// Each user owns at most one tracker at a time.
type TimeTracker struct {
	ID                string
	UserID            int64
	ProjectID         *int64
	IssueID           *int64
	ActivityID        *int64
	Start             time.Time
	Comments          string
	Round             bool
	CustomFieldValues map[string]string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OwnedBy reports whether the tracker belongs to the given user.
func (t *TimeTracker) OwnedBy(userID int64) bool {
	return t.UserID == userID
}

// HasProject reports whether the tracker is attached to a project.
func (t *TimeTracker) HasProject() bool {
	return t.ProjectID != nil
}

// Elapsed returns the time tracked so far relative to now.
func (t *TimeTracker) Elapsed(now time.Time) time.Duration {
	if now.Before(t.Start) {
		return 0
	}
	return now.Sub(t.Start)
}

// ToTimeLog builds the log that records this tracker's elapsed time up to stop.
// The caller assigns the ID.
func (t *TimeTracker) ToTimeLog(stop time.Time) *TimeLog {
	return &TimeLog{
		UserID:   t.UserID,
		Start:    t.Start,
		Stop:     stop,
		Comments: t.Comments,
		Round:    t.Round,
	}
}

// Clone returns a deep copy, used to apply updates without touching the stored value.
func (t *TimeTracker) Clone() *TimeTracker {
	c := *t
	c.ProjectID = cloneInt64(t.ProjectID)
	c.IssueID = cloneInt64(t.IssueID)
	c.ActivityID = cloneInt64(t.ActivityID)
	if t.CustomFieldValues != nil {
		c.CustomFieldValues = make(map[string]string, len(t.CustomFieldValues))
		for k, v := range t.CustomFieldValues {
			c.CustomFieldValues[k] = v
		}
	}
	return &c
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
