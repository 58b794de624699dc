package commands

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/healthlens-dev/healthlens/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewDashboardCmd creates the dashboard command
func NewDashboardCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"dash"},
		Short:   "Show the health summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd.Context(), flags)
		},
	}
}

func runDashboard(ctx context.Context, flags *GlobalFlags, opts ...Option) error {
	return withSession(ctx, flags, opts, func(app *App) error {
		summary, err := app.Client.DashboardSummary(ctx)
		if err != nil {
			return fmt.Errorf("failed to load dashboard: %w", err)
		}

		t := &output.Table{
			Title:   fmt.Sprintf("%s · health score %d/100", summary.UserName, summary.HealthScore),
			Headers: []string{"METRIC", "VALUE"},
			Rows: [][]string{
				{"Risk assessments", strconv.Itoa(summary.TotalAssessments)},
				{"Symptom checks", strconv.Itoa(summary.TotalSymptomChecks)},
				{"Reports", strconv.Itoa(summary.TotalReports)},
			},
		}

		diseases := make([]string, 0, len(summary.LatestRisks))
		for disease := range summary.LatestRisks {
			diseases = append(diseases, disease)
		}
		sort.Strings(diseases)
		for _, disease := range diseases {
			risk := summary.LatestRisks[disease]
			t.Rows = append(t.Rows, []string{
				"Risk: " + disease,
				fmt.Sprintf("%s (%s)", output.Percent(risk.RiskScore), risk.RiskCategory),
			})
		}

		for _, a := range summary.RecentActivity {
			t.Rows = append(t.Rows, []string{"Recent: " + a.Title, fmt.Sprintf("%s · %s", a.Desc, a.Time.String())})
		}

		return app.Out.Render(summary, t)
	})
}
