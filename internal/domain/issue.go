package domain

import (
	"fmt"
	"strings"
	"time"
)

// StatusID identifies an issue status.
type StatusID int64

type User struct {
	ID        int64
	Login     string
	Firstname string
	Lastname  string
	Admin     bool
}

// String returns the display name, falling back to the login.
func (u *User) String() string {
	if u == nil {
		return ""
	}
	return CoalesceStr(strings.TrimSpace(u.Firstname+" "+u.Lastname), u.Login)
}

type Project struct {
	ID         int64
	Identifier string
	Name       string
}

func (p *Project) String() string {
	if p == nil {
		return ""
	}
	return p.Name
}

type Activity struct {
	ID     int64
	Name   string
	Active bool
}

type IssueStatus struct {
	ID       StatusID
	Name     string
	IsClosed bool
}

func (s *IssueStatus) String() string {
	if s == nil {
		return ""
	}
	return s.Name
}

type IssuePriority struct {
	ID   int64
	Name string
}

func (p *IssuePriority) String() string {
	if p == nil {
		return ""
	}
	return p.Name
}

// Issue is a work item of the project tracker, loaded with the associations
// the start notification needs.
type Issue struct {
	ID          int64
	Project     *Project
	Tracker     string
	Subject     string
	Description *string
	Status      *IssueStatus
	Priority    *IssuePriority
	DoneRatio   int
	Author      *User
	AssignedTo  *User
	Watchers    []*User
	UpdatedAt   time.Time
}

// String renders the issue the way the tracker's UI does: "Bug #12: Subject".
func (i *Issue) String() string {
	return fmt.Sprintf("%s #%d: %s", i.Tracker, i.ID, i.Subject)
}

// StatusID returns the current status id, or zero when the status is not loaded.
func (i *Issue) StatusID() StatusID {
	if i.Status == nil {
		return 0
	}
	return i.Status.ID
}

// WatcherNames returns the watchers' display names in load order.
func (i *Issue) WatcherNames() []string {
	names := make([]string, 0, len(i.Watchers))
	for _, w := range i.Watchers {
		names = append(names, w.String())
	}
	return names
}

// Journal is a change-journal entry on an issue.
type Journal struct {
	ID        string
	IssueID   int64
	UserID    int64
	Notes     string
	Details   []JournalDetail
	CreatedAt time.Time
}

// JournalDetail records a single attribute change.
type JournalDetail struct {
	Property string
	PropKey  string
	OldValue string
	Value    string
}
