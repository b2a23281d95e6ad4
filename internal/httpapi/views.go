package httpapi

import (
	"time"

	"github.com/alexanderramin/hourglass/internal/domain"
	"github.com/alexanderramin/hourglass/internal/service"
)

type trackerView struct {
	ID                string            `json:"id"`
	UserID            int64             `json:"user_id"`
	ProjectID         *int64            `json:"project_id"`
	IssueID           *int64            `json:"issue_id"`
	ActivityID        *int64            `json:"activity_id"`
	Start             time.Time         `json:"start"`
	Comments          string            `json:"comments"`
	Round             bool              `json:"round"`
	CustomFieldValues map[string]string `json:"custom_field_values,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func newTrackerView(t *domain.TimeTracker) trackerView {
	return trackerView{
		ID:                t.ID,
		UserID:            t.UserID,
		ProjectID:         t.ProjectID,
		IssueID:           t.IssueID,
		ActivityID:        t.ActivityID,
		Start:             t.Start,
		Comments:          t.Comments,
		Round:             t.Round,
		CustomFieldValues: t.CustomFieldValues,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

type timeLogView struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Start     time.Time `json:"start"`
	Stop      time.Time `json:"stop"`
	Hours     float64   `json:"hours"`
	Comments  string    `json:"comments"`
	Round     bool      `json:"round"`
	CreatedAt time.Time `json:"created_at"`
}

type timeBookingView struct {
	ID                string            `json:"id"`
	TimeLogID         string            `json:"time_log_id"`
	UserID            int64             `json:"user_id"`
	ProjectID         int64             `json:"project_id"`
	IssueID           *int64            `json:"issue_id"`
	ActivityID        *int64            `json:"activity_id"`
	Start             time.Time         `json:"start"`
	Stop              time.Time         `json:"stop"`
	Hours             float64           `json:"hours"`
	Comments          string            `json:"comments"`
	CustomFieldValues map[string]string `json:"custom_field_values,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

type stopView struct {
	TimeLog     timeLogView      `json:"time_log"`
	TimeBooking *timeBookingView `json:"time_booking,omitempty"`
}

func newStopView(r *service.StopResult) stopView {
	l := r.TimeLog
	v := stopView{TimeLog: timeLogView{
		ID:        l.ID,
		UserID:    l.UserID,
		Start:     l.Start,
		Stop:      l.Stop,
		Hours:     l.Hours(),
		Comments:  l.Comments,
		Round:     l.Round,
		CreatedAt: l.CreatedAt,
	}}
	if b := r.TimeBooking; b != nil {
		v.TimeBooking = &timeBookingView{
			ID:                b.ID,
			TimeLogID:         b.TimeLogID,
			UserID:            b.UserID,
			ProjectID:         b.ProjectID,
			IssueID:           b.IssueID,
			ActivityID:        b.ActivityID,
			Start:             b.Start,
			Stop:              b.Stop,
			Hours:             b.Hours(),
			Comments:          b.Comments,
			CustomFieldValues: b.CustomFieldValues,
			CreatedAt:         b.CreatedAt,
		}
	}
	return v
}

// bulkView frames a bulk result: successful entities in input order, and
// the messages of each failed id.
type bulkView struct {
	Success []trackerView       `json:"success"`
	Errors  map[string][]string `json:"errors"`
}

func newBulkView(r *service.BulkResult[*domain.TimeTracker]) bulkView {
	v := bulkView{Success: []trackerView{}, Errors: map[string][]string{}}
	for _, o := range r.Outcomes {
		if !o.OK() {
			v.Errors[o.ID] = append(v.Errors[o.ID], o.Errors...)
			continue
		}
		v.Success = append(v.Success, newTrackerView(o.Entity))
	}
	return v
}
