package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/healthlens-dev/healthlens/internal/cli/auth"
	"github.com/healthlens-dev/healthlens/internal/cli/client"
	"github.com/healthlens-dev/healthlens/internal/cli/config"
	"github.com/healthlens-dev/healthlens/internal/cli/output"
	"github.com/healthlens-dev/healthlens/internal/cli/serverselect"
	"github.com/healthlens-dev/healthlens/internal/cli/session"
	appconfig "github.com/healthlens-dev/healthlens/internal/config"
	"github.com/healthlens-dev/healthlens/internal/logger"
)

// ErrNotLoggedIn is returned by commands that need a session when there is none.
var ErrNotLoggedIn = errors.New("not logged in. Run 'healthlens login' first")

// GlobalFlags are the persistent flags of the root command
type GlobalFlags struct {
	Server string
	Output string
}

// App is everything a command needs for one invocation: the resolved
// server, one Request Client and the Session Store wired into it.
type App struct {
	Server  *config.Server
	Client  *client.Client
	Session *session.Store
	Out     *output.Renderer
	Env     *appconfig.Config

	stdout io.Writer
	stdin  io.Reader
}

// Option configures how an App is built. Tests use these to inject a fake
// server and an in-memory token store.
type Option func(*appOptions)

type appOptions struct {
	server     *config.Server
	tokenStore auth.TokenStore
	stdout     io.Writer
	stdin      io.Reader
	httpClient *http.Client
	env        *appconfig.Config
}

// WithServer skips server resolution
func WithServer(server *config.Server) Option {
	return func(o *appOptions) {
		o.server = server
	}
}

// WithTokenStore sets a custom token store
func WithTokenStore(store auth.TokenStore) Option {
	return func(o *appOptions) {
		o.tokenStore = store
	}
}

// WithOutput sets the writer for command output
func WithOutput(w io.Writer) Option {
	return func(o *appOptions) {
		o.stdout = w
	}
}

// WithInput sets the reader used for prompts
func WithInput(r io.Reader) Option {
	return func(o *appOptions) {
		o.stdin = r
	}
}

// WithHTTPClient sets the HTTP client used for API calls
func WithHTTPClient(hc *http.Client) Option {
	return func(o *appOptions) {
		o.httpClient = hc
	}
}

// WithEnvConfig skips loading configuration from the environment
func WithEnvConfig(cfg *appconfig.Config) Option {
	return func(o *appOptions) {
		o.env = cfg
	}
}

// newApp resolves the server, restores the session and returns the wired App.
func newApp(ctx context.Context, flags *GlobalFlags, opts ...Option) (*App, error) {
	o := &appOptions{
		stdout: os.Stdout,
		stdin:  os.Stdin,
	}
	for _, opt := range opts {
		opt(o)
	}

	if flags == nil {
		flags = &GlobalFlags{}
	}

	format, err := output.ParseFormat(flags.Output)
	if err != nil {
		return nil, err
	}

	env := o.env
	if env == nil {
		env, err = appconfig.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
	}

	server := o.server
	if server == nil {
		server, err = resolveServer(flags.Server, env.APIURL)
		if err != nil {
			return nil, err
		}
	}

	tokens := o.tokenStore
	if tokens == nil {
		tokens, err = auth.New(env.TokenStore)
		if err != nil {
			return nil, err
		}
	}

	log := logger.GetLogger()

	clientOpts := []client.Option{
		client.WithLogger(log),
		client.WithEnvironment(env.Environment),
		client.WithTimeout(env.Timeout),
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, client.WithHTTPClient(o.httpClient))
	}

	apiClient := client.New(server.URL, clientOpts...)
	store := session.New(apiClient, tokens, server.URL, log)
	apiClient.SetCredentials(store)

	store.Subscribe(func(s session.State) {
		if s.Expired {
			log.Warn().Str("server", server.URL).Msg("Session expired, stored token removed")
		}
	})
	store.Init(ctx)

	return &App{
		Server:  server,
		Client:  apiClient,
		Session: store,
		Out:     output.New(o.stdout, format),
		Env:     env,
		stdout:  o.stdout,
		stdin:   o.stdin,
	}, nil
}

// resolveServer loads healthlens.json if there is one and picks the server.
func resolveServer(serverFlag, apiURLOverride string) (*config.Server, error) {
	projectConfig, err := config.LoadFromCurrentDir()
	if err != nil {
		if !errors.Is(err, config.ErrNotFound) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		projectConfig = nil
	}

	return serverselect.ResolveServer(projectConfig, serverFlag, apiURLOverride)
}

// requireLogin fails fast when the startup check found no usable session.
// An unreachable API is reported as such, not as a missing login.
func (a *App) requireLogin() error {
	state := a.Session.State()
	if state.Status == session.StatusAuthenticated {
		return nil
	}
	if state.Unverified != nil {
		return fmt.Errorf("failed to verify stored session: %w", state.Unverified)
	}
	return ErrNotLoggedIn
}

// withSession builds an App, requires a session and runs fn.
func withSession(ctx context.Context, flags *GlobalFlags, opts []Option, fn func(*App) error) error {
	app, err := newApp(ctx, flags, opts...)
	if err != nil {
		return err
	}
	if err := app.requireLogin(); err != nil {
		return err
	}
	return fn(app)
}
