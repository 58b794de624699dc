package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/healthlens-dev/healthlens/internal/cli/config"
	"github.com/healthlens-dev/healthlens/internal/cli/output"
	"github.com/healthlens-dev/healthlens/internal/cli/serverselect"
	"github.com/healthlens-dev/healthlens/internal/cli/userconfig"
	"github.com/spf13/cobra"
)

type selectServerOptions struct {
	list  bool
	clear bool
}

// serverView is one configured server as listed by select-server --list
type serverView struct {
	Alias    string `json:"alias"`
	URL      string `json:"url"`
	Selected bool   `json:"selected"`
}

// NewSelectServerCmd creates the select-server command
func NewSelectServerCmd(flags *GlobalFlags) *cobra.Command {
	var opts selectServerOptions

	cmd := &cobra.Command{
		Use:   "select-server [url-or-alias]",
		Short: "Choose the API server later commands talk to",
		Long: `Remember one server from healthlens.json as the default for this user.

Without an argument an interactive prompt lists the configured servers.
--server on any command still takes precedence over the remembered choice.

Examples:
  $ healthlens select-server                        # Interactive selection
  $ healthlens select-server prod                   # Select by alias
  $ healthlens select-server http://localhost:8000  # Select by URL
  $ healthlens select-server --list                 # Show servers and the current choice
  $ healthlens select-server --clear                # Forget the choice`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var urlOrAlias string
			if len(args) > 0 {
				urlOrAlias = args[0]
			}
			if (opts.list || opts.clear) && urlOrAlias != "" {
				return errors.New("--list and --clear take no server argument")
			}
			return runSelectServer(cmd.OutOrStdout(), flags, urlOrAlias, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.list, "list", "l", false, "List configured servers and mark the selected one")
	cmd.Flags().BoolVar(&opts.clear, "clear", false, "Forget the selected server")
	cmd.MarkFlagsMutuallyExclusive("list", "clear")

	return cmd
}

func runSelectServer(out io.Writer, flags *GlobalFlags, urlOrAlias string, opts selectServerOptions) error {
	if flags == nil {
		flags = &GlobalFlags{}
	}
	format, err := output.ParseFormat(flags.Output)
	if err != nil {
		return err
	}
	r := output.New(out, format)

	if opts.clear {
		if err := userconfig.ClearSelectedServer(); err != nil {
			return fmt.Errorf("failed to clear selected server: %w", err)
		}
		r.Message("Cleared selected server")
		return nil
	}

	cfg, err := config.LoadFromCurrentDir()
	if errors.Is(err, config.ErrNotFound) {
		return fmt.Errorf("%w\nRun 'healthlens init <api-url>' to create a configuration file", err)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	selected, err := userconfig.GetSelectedServer()
	if err != nil {
		return err
	}

	if opts.list {
		return listServers(r, cfg, selected)
	}

	var server *config.Server
	if urlOrAlias != "" {
		server, err = cfg.GetServerByURLOrAlias(urlOrAlias)
	} else {
		server, err = serverselect.PromptServerSelection(cfg)
	}
	if err != nil {
		return err
	}

	if server.URL != selected {
		if err := userconfig.SetSelectedServer(server.URL); err != nil {
			return fmt.Errorf("failed to save selected server: %w", err)
		}
	}

	if format != output.FormatTable {
		return r.Render(serverView{Alias: server.Alias, URL: server.URL, Selected: true}, nil)
	}
	r.Message("Selected server: %s", server.Label())
	return nil
}

// listServers prints the project servers. A remembered URL that is no
// longer in healthlens.json marks nothing.
func listServers(r *output.Renderer, cfg *config.Config, selected string) error {
	views := make([]serverView, 0, len(cfg.Servers))
	table := &output.Table{
		Headers: []string{"", "ALIAS", "URL"},
		Empty:   "No servers configured",
	}
	for _, s := range cfg.Servers {
		v := serverView{Alias: s.Alias, URL: s.URL, Selected: s.URL == selected}
		views = append(views, v)
		mark := ""
		if v.Selected {
			mark = "*"
		}
		table.Rows = append(table.Rows, []string{mark, s.Alias, s.URL})
	}
	return r.Render(views, table)
}
