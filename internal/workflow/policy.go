// Package workflow advances an issue's status when work on it starts.
package workflow

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/alexanderramin/hourglass/internal/authz"
	"github.com/alexanderramin/hourglass/internal/db"
	"github.com/alexanderramin/hourglass/internal/domain"
	"github.com/alexanderramin/hourglass/internal/i18n"
	"github.com/alexanderramin/hourglass/internal/repository"
	"github.com/google/uuid"
)

// DefaultTable moves new issues to in progress and resolved issues to testing.
var DefaultTable = map[domain.StatusID]domain.StatusID{
	1: 2,
	3: 7,
}

// NoteLabel is the label key of the journal note written on each advance.
const NoteLabel = "notice_status_advanced"

// Policy applies a status table to issues, subject to the actor's workflow.
type Policy struct {
	uow    db.UnitOfWork
	labels i18n.Labels
	table  map[domain.StatusID]domain.StatusID
	now    func() time.Time
}

// NewPolicy uses DefaultTable. Pass a different table with WithTable.
func NewPolicy(uow db.UnitOfWork, labels i18n.Labels, opts ...Option) *Policy {
	p := &Policy{
		uow:    uow,
		labels: labels,
		table:  DefaultTable,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type Option func(*Policy)

func WithTable(table map[domain.StatusID]domain.StatusID) Option {
	return func(p *Policy) { p.table = table }
}

func WithClock(now func() time.Time) Option {
	return func(p *Policy) { p.now = now }
}

// Candidate returns the status the table maps current to.
func (p *Policy) Candidate(current domain.StatusID) (domain.StatusID, bool) {
	next, ok := p.table[current]
	return next, ok
}

// Advance moves the issue to its candidate status when the actor may make
// that transition, writing a journal entry in the same unit of work. It
// reports whether the issue changed; a missing candidate or a disallowed
// transition is not an error.
func (p *Policy) Advance(ctx context.Context, actor *domain.User, issueID int64) (bool, error) {
	if actor == nil {
		return false, nil
	}
	var advanced bool
	err := p.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		issues := repository.NewSQLiteIssueRepo(tx)
		issue, err := issues.GetByID(ctx, issueID)
		if err != nil {
			return err
		}

		current := issue.StatusID()
		next, ok := p.Candidate(current)
		if !ok {
			return nil
		}
		allowed, err := AllowedStatuses(ctx, tx, actor, issue)
		if err != nil {
			return err
		}
		if !slices.Contains(allowed, next) {
			return nil
		}

		now := p.now()
		journal := &domain.Journal{
			ID:      uuid.New().String(),
			IssueID: issue.ID,
			UserID:  actor.ID,
			Notes:   p.labels.Label(NoteLabel),
			Details: []domain.JournalDetail{{
				Property: "attr",
				PropKey:  "status_id",
				OldValue: strconv.FormatInt(int64(current), 10),
				Value:    strconv.FormatInt(int64(next), 10),
			}},
			CreatedAt: now,
		}
		if err := repository.NewSQLiteJournalRepo(tx).Create(ctx, journal); err != nil {
			return err
		}
		if err := issues.UpdateStatus(ctx, issue.ID, next, now); err != nil {
			return err
		}
		advanced = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("advancing issue %d: %w", issueID, err)
	}
	return advanced, nil
}

// AllowedStatuses lists the statuses the actor may move the issue to.
// Admins may pick any other status; everyone else follows the workflow
// transitions if they hold edit_issues on the issue's project.
func AllowedStatuses(ctx context.Context, conn db.DBTX, actor *domain.User, issue *domain.Issue) ([]domain.StatusID, error) {
	issues := repository.NewSQLiteIssueRepo(conn)
	current := issue.StatusID()

	if actor.Admin {
		statuses, err := issues.ListStatuses(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]domain.StatusID, 0, len(statuses))
		for _, s := range statuses {
			if s.ID != current {
				out = append(out, s.ID)
			}
		}
		return out, nil
	}

	if issue.Project == nil {
		return nil, nil
	}
	ok, err := repository.NewSQLiteGrantRepo(conn).HasInProject(ctx, actor.ID, issue.Project.ID, authz.PermEditIssues)
	if err != nil || !ok {
		return nil, err
	}
	return issues.TransitionsFrom(ctx, current)
}
