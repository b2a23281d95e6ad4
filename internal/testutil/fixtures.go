package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alexanderramin/hourglass/internal/domain"
	"github.com/google/uuid"
)

var testIdentifierCounter atomic.Int64

// User options
type UserOption func(*domain.User)

func WithAdmin() UserOption {
	return func(u *domain.User) {
		u.Admin = true
	}
}

func WithName(first, last string) UserOption {
	return func(u *domain.User) {
		u.Firstname = first
		u.Lastname = last
	}
}

func NewTestUser(login string, opts ...UserOption) *domain.User {
	u := &domain.User{Login: login}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func NewTestProject(name string) *domain.Project {
	n := testIdentifierCounter.Add(1)
	return &domain.Project{
		Identifier: fmt.Sprintf("project-%02d", n),
		Name:       name,
	}
}

func NewTestActivity(name string) *domain.Activity {
	return &domain.Activity{Name: name, Active: true}
}

// Issue options
type IssueOption func(*domain.Issue)

func WithDescription(d string) IssueOption {
	return func(i *domain.Issue) {
		i.Description = &d
	}
}

func WithStatus(id domain.StatusID) IssueOption {
	return func(i *domain.Issue) {
		i.Status = &domain.IssueStatus{ID: id}
	}
}

func WithPriority(id int64) IssueOption {
	return func(i *domain.Issue) {
		i.Priority = &domain.IssuePriority{ID: id}
	}
}

func WithAssignee(u *domain.User) IssueOption {
	return func(i *domain.Issue) {
		i.AssignedTo = u
	}
}

func WithWatchers(users ...*domain.User) IssueOption {
	return func(i *domain.Issue) {
		i.Watchers = append(i.Watchers, users...)
	}
}

func WithDoneRatio(r int) IssueOption {
	return func(i *domain.Issue) {
		i.DoneRatio = r
	}
}

func NewTestIssue(project *domain.Project, author *domain.User, subject string, opts ...IssueOption) *domain.Issue {
	i := &domain.Issue{
		Project:   project,
		Author:    author,
		Tracker:   "Task",
		Subject:   subject,
		Status:    &domain.IssueStatus{ID: 1},
		UpdatedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Tracker options
type TrackerOption func(*domain.TimeTracker)

func WithProject(id int64) TrackerOption {
	return func(t *domain.TimeTracker) {
		t.ProjectID = &id
	}
}

func WithIssue(id int64) TrackerOption {
	return func(t *domain.TimeTracker) {
		t.IssueID = &id
	}
}

func WithActivity(id int64) TrackerOption {
	return func(t *domain.TimeTracker) {
		t.ActivityID = &id
	}
}

func WithStart(s time.Time) TrackerOption {
	return func(t *domain.TimeTracker) {
		t.Start = s
	}
}

func WithComments(c string) TrackerOption {
	return func(t *domain.TimeTracker) {
		t.Comments = c
	}
}

func WithRound() TrackerOption {
	return func(t *domain.TimeTracker) {
		t.Round = true
	}
}

func WithCustomField(key, value string) TrackerOption {
	return func(t *domain.TimeTracker) {
		if t.CustomFieldValues == nil {
			t.CustomFieldValues = map[string]string{}
		}
		t.CustomFieldValues[key] = value
	}
}

func NewTestTracker(userID int64, opts ...TrackerOption) *domain.TimeTracker {
	now := time.Now().UTC()
	t := &domain.TimeTracker{
		ID:        uuid.New().String(),
		UserID:    userID,
		Start:     now.Add(-time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}
