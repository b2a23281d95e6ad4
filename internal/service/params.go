package service

import (
	"time"

	"github.com/alexanderramin/hourglass/internal/domain"
)

// TrackerParams is the permitted field set for start and update. Nil pointers
// leave a field untouched; a zero id clears the association.
type TrackerParams struct {
	// Start is accepted so that clients may send it, but it is never applied:
	// the start time is always assigned by the server.
	Start *time.Time `json:"start,omitempty"`

	UserID            *int64            `json:"user_id,omitempty"`
	ProjectID         *int64            `json:"project_id,omitempty"`
	IssueID           *int64            `json:"issue_id,omitempty"`
	ActivityID        *int64            `json:"activity_id,omitempty"`
	Comments          *string           `json:"comments,omitempty"`
	Round             *bool             `json:"round,omitempty"`
	CustomFieldValues map[string]string `json:"custom_field_values,omitempty"`
}

// applyTo copies the supplied fields onto t.
func (p *TrackerParams) applyTo(t *domain.TimeTracker) {
	if p == nil {
		return
	}
	t.UserID = domain.Int64FromPtrWithDefault(t.UserID, p.UserID)
	t.ProjectID = optionalID(t.ProjectID, p.ProjectID)
	t.IssueID = optionalID(t.IssueID, p.IssueID)
	t.ActivityID = optionalID(t.ActivityID, p.ActivityID)
	if p.Comments != nil {
		t.Comments = *p.Comments
	}
	t.Round = domain.BoolFromPtrWithDefault(t.Round, p.Round)
	if p.CustomFieldValues != nil {
		if t.CustomFieldValues == nil {
			t.CustomFieldValues = make(map[string]string, len(p.CustomFieldValues))
		}
		for k, v := range p.CustomFieldValues {
			t.CustomFieldValues[k] = v
		}
	}
}

func optionalID(current, supplied *int64) *int64 {
	switch {
	case supplied == nil:
		return current
	case *supplied == 0:
		return nil
	}
	v := *supplied
	return &v
}
