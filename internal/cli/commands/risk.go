package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/healthlens-dev/healthlens/internal/cli/client"
	"github.com/healthlens-dev/healthlens/internal/cli/output"
	"github.com/spf13/cobra"
)

type riskFlags struct {
	input                                        client.RiskInput
	glucose, cholesterol, insulin, skinThickness float64
	pregnancies                                  int
}

func (rf *riskFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&rf.input.Age, "age", 0, "Age in years (required)")
	f.Float64Var(&rf.input.BMI, "bmi", 0, "Body mass index (required)")
	f.Float64Var(&rf.input.BloodPressureSystolic, "systolic", 120, "Systolic blood pressure")
	f.Float64Var(&rf.input.BloodPressureDiastolic, "diastolic", 80, "Diastolic blood pressure")
	f.Float64Var(&rf.glucose, "glucose", 0, "Fasting glucose (mg/dL)")
	f.Float64Var(&rf.cholesterol, "cholesterol", 0, "Total cholesterol (mg/dL)")
	f.Float64Var(&rf.insulin, "insulin", 0, "Insulin level")
	f.Float64Var(&rf.skinThickness, "skin-thickness", 0, "Skin fold thickness (mm)")
	f.IntVar(&rf.pregnancies, "pregnancies", 0, "Number of pregnancies")
	f.BoolVar(&rf.input.Smoking, "smoking", false, "Smoker")
	f.BoolVar(&rf.input.Alcohol, "alcohol", false, "Regular alcohol use")
}

// build copies the optional flags that were actually given.
func (rf *riskFlags) build(cmd *cobra.Command) client.RiskInput {
	input := rf.input
	f := cmd.Flags()
	if f.Changed("glucose") {
		input.Glucose = &rf.glucose
	}
	if f.Changed("cholesterol") {
		input.Cholesterol = &rf.cholesterol
	}
	if f.Changed("insulin") {
		input.Insulin = &rf.insulin
	}
	if f.Changed("skin-thickness") {
		input.SkinThickness = &rf.skinThickness
	}
	if f.Changed("pregnancies") {
		input.Pregnancies = &rf.pregnancies
	}
	return input
}

// NewRiskCmd creates the risk command group
func NewRiskCmd(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Score disease risk from health metrics",
	}

	var diabetes riskFlags
	diabetesCmd := &cobra.Command{
		Use:     "diabetes",
		Short:   "Predict diabetes risk",
		Example: `  $ healthlens risk diabetes --age 45 --bmi 31 --glucose 140`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRisk(cmd.Context(), flags, "diabetes", diabetes.build(cmd))
		},
	}
	diabetes.register(diabetesCmd)
	cmd.AddCommand(diabetesCmd)

	var heart riskFlags
	heartCmd := &cobra.Command{
		Use:     "heart",
		Aliases: []string{"heart-disease"},
		Short:   "Predict heart disease risk",
		Example: `  $ healthlens risk heart --age 60 --bmi 27 --cholesterol 240 --smoking`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRisk(cmd.Context(), flags, "heart", heart.build(cmd))
		},
	}
	heart.register(heartCmd)
	cmd.AddCommand(heartCmd)

	return cmd
}

func runRisk(ctx context.Context, flags *GlobalFlags, disease string, input client.RiskInput, opts ...Option) error {
	return withSession(ctx, flags, opts, func(app *App) error {
		predict := app.Client.PredictDiabetes
		if disease == "heart" {
			predict = app.Client.PredictHeartDisease
		}

		result, err := predict(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to predict risk: %w", err)
		}

		t := output.KV(fmt.Sprintf("%s risk: %s (%s)", result.DiseaseType, output.Percent(result.RiskScore), result.RiskCategory))
		features := make([]string, 0, len(result.FeatureImportance))
		for name := range result.FeatureImportance {
			features = append(features, name)
		}
		// Most influential first
		sort.Slice(features, func(i, j int) bool {
			return result.FeatureImportance[features[i]] > result.FeatureImportance[features[j]]
		})
		for _, name := range features {
			t.Rows = append(t.Rows, []string{name + ":", fmt.Sprintf("%.2f", result.FeatureImportance[name])})
		}
		if result.Explanation != "" {
			t.Rows = append(t.Rows, []string{"Explanation:", result.Explanation})
		}

		return app.Out.Render(result, t)
	})
}
