package commands

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/healthlens-dev/healthlens/internal/cli/client"
	"github.com/healthlens-dev/healthlens/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewSymptomsCmd creates the symptoms command group
func NewSymptomsCmd(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "symptoms",
		Short: "Analyze symptoms",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "analyze <description>",
		Short: "Analyze a free-text symptom description (\"-\" reads stdin)",
		Example: `  $ healthlens symptoms analyze "headache and mild fever since yesterday"
  $ echo "sore throat" | healthlens symptoms analyze -`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSymptomsAnalyze(cmd.Context(), flags, strings.Join(args, " "))
		},
	})

	return cmd
}

func runSymptomsAnalyze(ctx context.Context, flags *GlobalFlags, description string, opts ...Option) error {
	return withSession(ctx, flags, opts, func(app *App) error {
		if description == "-" {
			line, err := readLine(app.stdin)
			if err != nil {
				return err
			}
			description = line
		}

		result, err := app.Client.AnalyzeSymptoms(ctx, description)
		if err != nil {
			return fmt.Errorf("failed to analyze symptoms: %w", err)
		}

		t := &output.Table{
			Title:   fmt.Sprintf("Urgency: %s · symptoms: %s", result.UrgencyLevel, joinOrDash(result.ClassifiedSymptoms)),
			Headers: []string{"CONDITION", "PROBABILITY"},
		}
		for _, c := range result.PossibleConditions {
			t.Rows = append(t.Rows, []string{c.Name, output.Percent(c.Probability)})
		}
		for _, r := range result.Recommendations {
			t.Rows = append(t.Rows, []string{"→ " + r, ""})
		}
		return app.Out.Render(result, t)
	})
}

// NewNutritionCmd creates the nutrition command group
func NewNutritionCmd(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nutrition",
		Short: "Generate nutrition plans",
	}

	var risks []string
	plan := &cobra.Command{
		Use:   "plan",
		Short: "Generate a diet and lifestyle plan",
		Long: `Generate a diet and lifestyle plan.

Without --risk flags the latest risk scores from the dashboard are used.`,
		Example: `  $ healthlens nutrition plan
  $ healthlens nutrition plan --risk diabetes=0.65 --risk heart_disease=0.2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			contexts, err := parseRiskContexts(risks)
			if err != nil {
				return err
			}
			return runNutritionPlan(cmd.Context(), flags, contexts)
		},
	}
	plan.Flags().StringArrayVar(&risks, "risk", nil, "Risk as disease=score (0..1), repeatable")
	cmd.AddCommand(plan)

	return cmd
}

// parseRiskContexts parses "disease=score" pairs.
func parseRiskContexts(values []string) ([]client.RiskContext, error) {
	contexts := make([]client.RiskContext, 0, len(values))
	for _, v := range values {
		disease, rawScore, ok := strings.Cut(v, "=")
		if !ok || disease == "" {
			return nil, fmt.Errorf("invalid --risk %q (expected disease=score)", v)
		}
		score, err := strconv.ParseFloat(rawScore, 64)
		if err != nil || score < 0 || score > 1 {
			return nil, fmt.Errorf("invalid --risk %q: score must be between 0 and 1", v)
		}
		contexts = append(contexts, client.RiskContext{
			DiseaseType:  disease,
			RiskScore:    score,
			RiskCategory: riskCategory(score),
		})
	}
	return contexts, nil
}

func riskCategory(score float64) string {
	switch {
	case score >= 0.7:
		return "high"
	case score >= 0.4:
		return "moderate"
	default:
		return "low"
	}
}

func runNutritionPlan(ctx context.Context, flags *GlobalFlags, risks []client.RiskContext, opts ...Option) error {
	return withSession(ctx, flags, opts, func(app *App) error {
		if len(risks) == 0 {
			summary, err := app.Client.DashboardSummary(ctx)
			if err != nil {
				return fmt.Errorf("failed to load latest risks: %w", err)
			}
			for _, r := range summary.LatestRisks {
				risks = append(risks, client.RiskContext{
					DiseaseType:  r.DiseaseType,
					RiskScore:    r.RiskScore,
					RiskCategory: r.RiskCategory,
				})
			}
			sort.Slice(risks, func(i, j int) bool { return risks[i].DiseaseType < risks[j].DiseaseType })
		}

		plan, err := app.Client.GenerateNutritionPlan(ctx, risks)
		if err != nil {
			return fmt.Errorf("failed to generate nutrition plan: %w", err)
		}

		t := &output.Table{Headers: []string{"SECTION", "RECOMMENDATION"}}
		t.Rows = append(t.Rows, sectionRows("Diet", plan.DietRecommendations)...)
		t.Rows = append(t.Rows, sectionRows("Lifestyle", plan.LifestyleRecommendations)...)
		return app.Out.Render(plan, t)
	})
}

// sectionRows flattens a free-form recommendation object into table rows.
func sectionRows(section string, m map[string]any) [][]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{section + " / " + k, formatValue(m[k])})
	}
	return rows
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = formatValue(item)
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + formatValue(val[k])
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprint(val)
	}
}
