package serverselect

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/healthlens-dev/healthlens/internal/cli/config"
	"github.com/healthlens-dev/healthlens/internal/cli/userconfig"
	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// ErrNoProject is returned when there is neither a healthlens.json nor an
// explicit API URL to talk to.
var ErrNoProject = errors.New("no healthlens.json found and HEALTHLENS_API_URL is not set; run 'healthlens init <api-url>' first")

// promptSelect is replaced in tests
var promptSelect = PromptServerSelection

// ResolveServer determines which server to use based on the following priority:
// 1. If the --server flag is provided, use that server (alias or URL)
// 2. If HEALTHLENS_API_URL is set, use it as-is
// 3. If user has a selected server in their local config, use that
// 4. If only one server in project config, use that
// 5. Otherwise, prompt user to select a server interactively
//
// projectConfig may be nil when no healthlens.json was found.
func ResolveServer(projectConfig *config.Config, serverFlag, apiURLOverride string) (*config.Server, error) {
	// Priority 1: Use server flag if provided
	if serverFlag != "" {
		if projectConfig != nil {
			if server, err := projectConfig.GetServerByURLOrAlias(serverFlag); err == nil {
				return server, nil
			}
		}
		if strings.Contains(serverFlag, "://") {
			return &config.Server{URL: config.NormalizeURL(serverFlag), Alias: "--server"}, nil
		}
		return nil, fmt.Errorf("server with alias '%s' not found", serverFlag)
	}

	// Priority 2: Environment override
	if apiURLOverride != "" {
		return &config.Server{URL: config.NormalizeURL(apiURLOverride), Alias: "HEALTHLENS_API_URL"}, nil
	}

	if projectConfig == nil || len(projectConfig.Servers) == 0 {
		return nil, ErrNoProject
	}

	// Priority 3: Use selected server from user config
	selectedURL, err := userconfig.GetSelectedServer()
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	if selectedURL != "" {
		server, err := projectConfig.GetServerByURL(selectedURL)
		if err != nil {
			// Selected server no longer exists in project config, clear it and continue
			_ = userconfig.ClearSelectedServer()
		} else {
			return server, nil
		}
	}

	// Priority 4: If only one server, use it automatically
	if len(projectConfig.Servers) == 1 {
		server := &projectConfig.Servers[0]
		// Save it as the selected server
		if err := userconfig.SetSelectedServer(server.URL); err != nil {
			// Don't fail if we can't save, just continue
			fmt.Fprintf(os.Stderr, "Warning: failed to save selected server: %v\n", err)
		}
		return server, nil
	}

	// Priority 5: Prompt user to select a server
	server, err := promptSelect(projectConfig)
	if err != nil {
		return nil, err
	}

	// Save the selected server
	if err := userconfig.SetSelectedServer(server.URL); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to save selected server: %v\n", err)
	}

	return server, nil
}

// PromptServerSelection shows an interactive prompt for the user to select a server
func PromptServerSelection(projectConfig *config.Config) (*config.Server, error) {
	if len(projectConfig.Servers) == 0 {
		return nil, fmt.Errorf("no servers configured in %s", config.ConfigFileName)
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		aliases := make([]string, len(projectConfig.Servers))
		for i, s := range projectConfig.Servers {
			aliases[i] = s.Alias
		}
		return nil, fmt.Errorf("multiple servers configured (%s); pass --server or run 'healthlens select-server'", strings.Join(aliases, ", "))
	}

	// Create display labels for each server
	type serverOption struct {
		Label  string
		Server *config.Server
	}

	options := make([]serverOption, len(projectConfig.Servers))
	for i := range projectConfig.Servers {
		server := &projectConfig.Servers[i]
		options[i] = serverOption{
			Label:  server.Label(),
			Server: server,
		}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	prompt := promptui.Select{
		Label:     "Select a server",
		Items:     options,
		Templates: templates,
		Size:      10,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return nil, fmt.Errorf("server selection cancelled: %w", err)
	}

	return options[index].Server, nil
}
