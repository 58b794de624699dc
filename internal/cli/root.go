package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/healthlens-dev/healthlens/internal/cli/client"
	"github.com/healthlens-dev/healthlens/internal/cli/commands"
	appconfig "github.com/healthlens-dev/healthlens/internal/config"
	"github.com/healthlens-dev/healthlens/internal/logger"
	"github.com/spf13/cobra"
)

var version = "dev" // Will be set during build

var flags = &commands.GlobalFlags{}

var rootCmd = &cobra.Command{
	Use:   "healthlens",
	Short: "HealthLens - Personal health tracking from the terminal",
	Long: `HealthLens CLI - Track vitals, medications and reports, run risk
assessments and talk to the health assistant of a HealthLens server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := appconfig.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger.Init(cfg.Logging.Level, cfg.Logging.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flags.Server, "server", "s", "", "Server URL or alias from healthlens.json")
	rootCmd.PersistentFlags().StringVarP(&flags.Output, "output", "o", "table", "Output format: table, json or yaml")

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "healthlens version %s\n", version)
		},
	})

	// Add all subcommands
	rootCmd.AddCommand(commands.NewInitCmd())
	rootCmd.AddCommand(commands.NewSelectServerCmd(flags))
	rootCmd.AddCommand(commands.NewLoginCmd(flags))
	rootCmd.AddCommand(commands.NewRegisterCmd(flags))
	rootCmd.AddCommand(commands.NewGoogleLoginCmd(flags))
	rootCmd.AddCommand(commands.NewLogoutCmd(flags))
	rootCmd.AddCommand(commands.NewWhoamiCmd(flags))
	rootCmd.AddCommand(commands.NewStatusCmd(flags))
	rootCmd.AddCommand(commands.NewDashboardCmd(flags))
	rootCmd.AddCommand(commands.NewProfileCmd(flags))
	rootCmd.AddCommand(commands.NewVitalsCmd(flags))
	rootCmd.AddCommand(commands.NewMedsCmd(flags))
	rootCmd.AddCommand(commands.NewRiskCmd(flags))
	rootCmd.AddCommand(commands.NewSymptomsCmd(flags))
	rootCmd.AddCommand(commands.NewNutritionCmd(flags))
	rootCmd.AddCommand(commands.NewReportsCmd(flags))
	rootCmd.AddCommand(commands.NewChatCmd(flags))
}

// describeError turns the client's error kinds into what a user should read.
func describeError(err error) string {
	var netErr *client.NetworkError
	switch {
	case errors.Is(err, client.ErrSessionExpired):
		return client.SessionExpiredMessage + "\nRun 'healthlens login' to sign in again."
	case errors.As(err, &netErr):
		return fmt.Sprintf("cannot reach the HealthLens API at %s. Check your connection and the server URL.\n(%v)", netErr.URL, netErr.Cause)
	default:
		return err.Error()
	}
}

// Execute runs the root command
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describeError(err))
		return err
	}
	return nil
}
