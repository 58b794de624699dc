package commands

import (
	"context"
	"time"

	"github.com/healthlens-dev/healthlens/internal/cli/output"
	"github.com/healthlens-dev/healthlens/internal/cli/session"
	"github.com/spf13/cobra"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(cmd.Context(), flags)
		},
	}
}

func runWhoami(ctx context.Context, flags *GlobalFlags, opts ...Option) error {
	return withSession(ctx, flags, opts, func(app *App) error {
		user := app.Session.CurrentUser()
		return app.Out.Render(user, output.KV("",
			"Name", user.DisplayName(),
			"Email", user.Email,
			"Provider", output.Orf(user.AuthProvider),
			"Member since", user.CreatedAt.String(),
		))
	})
}

// statusView is the machine-readable form of "healthlens status"
type statusView struct {
	Server    string     `json:"server"`
	Alias     string     `json:"alias"`
	Status    string     `json:"status"`
	Email     string     `json:"email,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// NewStatusCmd creates the status command
func NewStatusCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the selected server and session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), flags)
		},
	}
}

func runStatus(ctx context.Context, flags *GlobalFlags, opts ...Option) error {
	app, err := newApp(ctx, flags, opts...)
	if err != nil {
		return err
	}

	state := app.Session.State()
	view := statusView{
		Server: app.Server.URL,
		Alias:  app.Server.Alias,
		Status: state.Status.String(),
	}

	if state.Unverified != nil {
		// Stored token kept, the API could not be reached to check it
		view.Status = "unverified"
	}

	expires := "-"
	if state.Status == session.StatusAuthenticated {
		view.Email = state.User.Email
		if exp, ok := app.Session.TokenExpiry(); ok {
			view.ExpiresAt = &exp
			expires = exp.Local().Format("2006-01-02 15:04")
		}
	}

	return app.Out.Render(view, output.KV("",
		"Server", app.Server.Label(),
		"Session", view.Status,
		"User", output.Orf(view.Email),
		"Token expires", expires,
	))
}
