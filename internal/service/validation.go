package service

import (
	"context"
	"errors"

	"github.com/alexanderramin/hourglass/internal/db"
	"github.com/alexanderramin/hourglass/internal/domain"
	"github.com/alexanderramin/hourglass/internal/repository"
)

// inheritIssueProject fills in the issue's project when only an issue is
// given. An unknown issue is left for validateTracker to report.
func inheritIssueProject(ctx context.Context, conn db.DBTX, t *domain.TimeTracker) error {
	if t.IssueID == nil || t.ProjectID != nil {
		return nil
	}
	projectID, err := repository.NewSQLiteIssueRepo(conn).ProjectID(ctx, *t.IssueID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	t.ProjectID = &projectID
	return nil
}

// validateTracker checks references and field limits, returning a
// *ValidationError listing every problem found.
func validateTracker(ctx context.Context, conn db.DBTX, t *domain.TimeTracker) error {
	var msgs []string
	check := func(err error, msg string) error {
		if errors.Is(err, repository.ErrNotFound) {
			msgs = append(msgs, msg)
			return nil
		}
		return err
	}

	_, err := repository.NewSQLiteUserRepo(conn).GetByID(ctx, t.UserID)
	if err := check(err, msgUserInvalid); err != nil {
		return err
	}

	projectValid := false
	if t.ProjectID != nil {
		_, err := repository.NewSQLiteProjectRepo(conn).GetByID(ctx, *t.ProjectID)
		if err := check(err, msgProjectInvalid); err != nil {
			return err
		}
		projectValid = err == nil
	}

	if t.IssueID != nil {
		issueProject, err := repository.NewSQLiteIssueRepo(conn).ProjectID(ctx, *t.IssueID)
		if err := check(err, msgIssueInvalid); err != nil {
			return err
		}
		if err == nil && projectValid && issueProject != *t.ProjectID {
			msgs = append(msgs, msgIssueNotInProj)
		}
	}

	if t.ActivityID != nil {
		_, err := repository.NewSQLiteActivityRepo(conn).GetByID(ctx, *t.ActivityID)
		if err := check(err, msgActivityInvalid); err != nil {
			return err
		}
	}

	if len([]rune(t.Comments)) > domain.MaxCommentsLength {
		msgs = append(msgs, msgCommentsTooLong)
	}

	if len(msgs) > 0 {
		return &ValidationError{Messages: msgs}
	}
	return nil
}
