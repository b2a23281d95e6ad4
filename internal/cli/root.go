package cli

import (
	"context"
	"net/http"
	"time"

	"github.com/alexanderramin/hourglass/internal/domain"
	"github.com/alexanderramin/hourglass/internal/i18n"
	"github.com/alexanderramin/hourglass/internal/service"
	"github.com/spf13/cobra"
)

// UserLookup finds the user a command acts as.
type UserLookup interface {
	GetByLogin(ctx context.Context, login string) (*domain.User, error)
}

// App holds what the commands need. Nil fields disable the commands that
// depend on them.
type App struct {
	Trackers service.TrackerService
	Users    UserLookup
	Labels   i18n.Labels
	Now      func() time.Time

	// Handler and ListenAddr drive "serve".
	Handler    http.Handler
	ListenAddr string
	// OnShutdown runs after the server stopped accepting requests.
	OnShutdown func()

	// TokenSecret signs tokens issued by "token".
	TokenSecret string

	IsInteractive func() bool
	// PromptStart fills start parameters interactively. Defaults to a huh form.
	PromptStart func(in *startInput) error
}

func (a *App) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

// NewRootCmd creates the top-level "hourglass" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "hourglass",
		Short:         "Time tracking with chat notifications",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(app),
		newTrackerCmd(app),
		newTokenCmd(app),
	)

	return root
}
