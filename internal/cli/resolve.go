package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexanderramin/hourglass/internal/authz"
	"github.com/alexanderramin/hourglass/internal/domain"
	"github.com/alexanderramin/hourglass/internal/repository"
	"github.com/alexanderramin/hourglass/internal/service"
)

// resolveActor loads the user named by --user.
func resolveActor(ctx context.Context, app *App, login string) (*domain.User, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return nil, fmt.Errorf("--user is required")
	}
	if app.Users == nil {
		return nil, fmt.Errorf("user lookup is not configured")
	}
	u, err := app.Users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("user %q not found", login)
		}
		return nil, fmt.Errorf("loading user %q: %w", login, err)
	}
	return u, nil
}

// refArg reads an optional tracker argument; no argument means "current".
func refArg(args []string) service.TrackerRef {
	if len(args) == 0 {
		return service.Current()
	}
	return service.ParseTrackerRef(args[0])
}

// describeError renders caller-facing service errors as the API's message
// sentence and leaves faults untouched.
func describeError(err error) error {
	var verr *service.ValidationError
	if errors.As(err, &verr) || errors.Is(err, service.ErrNotFound) || errors.Is(err, authz.ErrForbidden) {
		return errors.New(service.ToSentence(service.ErrorMessages(err)))
	}
	return err
}
