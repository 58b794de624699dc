package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/healthlens-dev/healthlens/internal/cli/output"
	"github.com/spf13/cobra"
)

type credentials struct {
	email    string
	password string
	name     string
}

// resolveCredentials fills missing values from the environment and, for the
// password, an interactive prompt.
func resolveCredentials(app *App, c credentials) (credentials, error) {
	// Check for environment variables (useful for CI/CD)
	c.email = firstNonEmpty(c.email, os.Getenv("HEALTHLENS_EMAIL"))
	c.password = firstNonEmpty(c.password, os.Getenv("HEALTHLENS_PASSWORD"))

	if c.email == "" {
		return c, fmt.Errorf("email is required (use --email flag or HEALTHLENS_EMAIL env var)")
	}

	// Prompt for password if not provided via flag or env var
	if c.password == "" {
		password, interactive, err := readSecret(app.stdin, "Password: ")
		if err != nil {
			return c, err
		}
		if !interactive {
			return c, fmt.Errorf("password is required in non-interactive mode (use --password flag or HEALTHLENS_PASSWORD env var)")
		}
		c.password = password
	}
	return c, nil
}

// NewLoginCmd creates the login command
func NewLoginCmd(flags *GlobalFlags) *cobra.Command {
	var c credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to a HealthLens server with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), flags, c)
		},
	}

	cmd.Flags().StringVar(&c.email, "email", "", "Email address (or set HEALTHLENS_EMAIL)")
	cmd.Flags().StringVar(&c.password, "password", "", "Password (or set HEALTHLENS_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(ctx context.Context, flags *GlobalFlags, c credentials, opts ...Option) error {
	app, err := newApp(ctx, flags, opts...)
	if err != nil {
		return err
	}

	c, err = resolveCredentials(app, c)
	if err != nil {
		return err
	}

	app.Out.Message("Logging in to %s (%s)...", app.Server.Alias, app.Server.URL)

	if err := app.Session.Login(ctx, c.email, c.password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	return printSignedIn(app, "✓ Login successful!")
}

// NewRegisterCmd creates the register command
func NewRegisterCmd(flags *GlobalFlags) *cobra.Command {
	var c credentials

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a HealthLens account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd.Context(), flags, c)
		},
	}

	cmd.Flags().StringVar(&c.email, "email", "", "Email address (or set HEALTHLENS_EMAIL)")
	cmd.Flags().StringVar(&c.password, "password", "", "Password (or set HEALTHLENS_PASSWORD, will prompt if not provided)")
	cmd.Flags().StringVar(&c.name, "name", "", "Full name")

	return cmd
}

func runRegister(ctx context.Context, flags *GlobalFlags, c credentials, opts ...Option) error {
	app, err := newApp(ctx, flags, opts...)
	if err != nil {
		return err
	}

	c, err = resolveCredentials(app, c)
	if err != nil {
		return err
	}

	if err := app.Session.Register(ctx, c.email, c.password, c.name); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	return printSignedIn(app, "✓ Account created!")
}

// NewGoogleLoginCmd creates the google-login command
func NewGoogleLoginCmd(flags *GlobalFlags) *cobra.Command {
	var idToken string

	cmd := &cobra.Command{
		Use:   "google-login",
		Short: "Log in with a Google ID token",
		Long: `Log in with a Google ID token.

The token is exchanged with the HealthLens server for a session. Obtain one
from Google Identity Services and pass it with --id-token or the
HEALTHLENS_GOOGLE_ID_TOKEN environment variable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGoogleLogin(cmd.Context(), flags, idToken)
		},
	}

	cmd.Flags().StringVar(&idToken, "id-token", "", "Google ID token (or set HEALTHLENS_GOOGLE_ID_TOKEN)")

	return cmd
}

func runGoogleLogin(ctx context.Context, flags *GlobalFlags, idToken string, opts ...Option) error {
	app, err := newApp(ctx, flags, opts...)
	if err != nil {
		return err
	}

	idToken = firstNonEmpty(idToken, os.Getenv("HEALTHLENS_GOOGLE_ID_TOKEN"))
	if idToken == "" {
		token, interactive, err := readSecret(app.stdin, "Google ID token: ")
		if err != nil {
			return err
		}
		if !interactive {
			return fmt.Errorf("an ID token is required (use --id-token flag or HEALTHLENS_GOOGLE_ID_TOKEN env var)")
		}
		idToken = token
	}

	if err := app.Session.ExchangeExternalCredential(ctx, idToken); err != nil {
		return fmt.Errorf("google login failed: %w", err)
	}

	return printSignedIn(app, "✓ Login successful!")
}

func printSignedIn(app *App, headline string) error {
	user := app.Session.CurrentUser()
	if app.Out.Format() != output.FormatTable {
		return app.Out.Render(user, nil)
	}
	app.Out.Message(headline)
	app.Out.Message("  User: %s (%s)", user.DisplayName(), user.Email)
	return nil
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session for the current server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.Context(), flags)
		},
	}
}

func runLogout(ctx context.Context, flags *GlobalFlags, opts ...Option) error {
	app, err := newApp(ctx, flags, opts...)
	if err != nil {
		return err
	}

	if err := app.Session.Logout(); err != nil {
		return fmt.Errorf("failed to remove stored token: %w", err)
	}

	app.Out.Message("Logged out of %s (%s)", app.Server.Alias, app.Server.URL)
	return nil
}
