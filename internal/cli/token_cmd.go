package cli

import (
	"fmt"
	"time"

	"github.com/alexanderramin/hourglass/internal/auth"
	"github.com/spf13/cobra"
)

func newTokenCmd(app *App) *cobra.Command {
	var login string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := resolveActor(cmd.Context(), app, login)
			if err != nil {
				return err
			}
			token, err := auth.Issue(app.TokenSecret, u.Login, ttl, app.now())
			if err != nil {
				return fmt.Errorf("issuing token: %w (set HOURGLASS_JWT_SECRET)", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&login, "user", "", "Login of the token's user")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
