package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/healthlens-dev/healthlens/internal/cli/client"
	"github.com/healthlens-dev/healthlens/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewVitalsCmd creates the vitals command group
func NewVitalsCmd(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vitals",
		Short: "Record and list vitals readings",
	}

	cmd.AddCommand(newVitalsRecordCmd(flags))

	var limit int
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recent readings, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVitalsList(cmd.Context(), flags, limit)
		},
	}
	list.Flags().IntVar(&limit, "limit", 30, "Maximum number of readings")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "latest",
		Short: "Show the most recent reading",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVitalsLatest(cmd.Context(), flags)
		},
	})

	return cmd
}

// parseBloodPressure splits "120/80" into systolic and diastolic values.
func parseBloodPressure(s string) (float64, float64, error) {
	sys, dia, ok := strings.Cut(s, "/")
	if !ok {
		return 0, 0, fmt.Errorf("invalid blood pressure %q (expected systolic/diastolic, e.g. 120/80)", s)
	}
	systolic, err := strconv.ParseFloat(strings.TrimSpace(sys), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid systolic value %q", sys)
	}
	diastolic, err := strconv.ParseFloat(strings.TrimSpace(dia), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid diastolic value %q", dia)
	}
	return systolic, diastolic, nil
}

func newVitalsRecordCmd(flags *GlobalFlags) *cobra.Command {
	var (
		heartRate, sleepHours, glucose, weight, temperature, oxygen float64
		steps                                                       int
		bloodPressure                                               string
	)

	cmd := &cobra.Command{
		Use:     "record",
		Short:   "Record a vitals reading",
		Example: `  $ healthlens vitals record --heart-rate 72 --bp 120/80 --steps 8000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := client.VitalInput{Source: "manual"}
			f := cmd.Flags()
			if f.Changed("heart-rate") {
				input.HeartRate = &heartRate
			}
			if f.Changed("steps") {
				input.Steps = &steps
			}
			if f.Changed("sleep") {
				input.SleepHours = &sleepHours
			}
			if f.Changed("glucose") {
				input.BloodGlucose = &glucose
			}
			if f.Changed("weight") {
				input.WeightKg = &weight
			}
			if f.Changed("temperature") {
				input.Temperature = &temperature
			}
			if f.Changed("oxygen") {
				input.OxygenSaturation = &oxygen
			}
			if f.Changed("bp") {
				sys, dia, err := parseBloodPressure(bloodPressure)
				if err != nil {
					return err
				}
				input.BloodPressureSystolic = &sys
				input.BloodPressureDiastolic = &dia
			}
			return runVitalsRecord(cmd.Context(), flags, input)
		},
	}

	cmd.Flags().Float64Var(&heartRate, "heart-rate", 0, "Heart rate (bpm)")
	cmd.Flags().IntVar(&steps, "steps", 0, "Step count")
	cmd.Flags().Float64Var(&sleepHours, "sleep", 0, "Hours slept")
	cmd.Flags().StringVar(&bloodPressure, "bp", "", "Blood pressure as systolic/diastolic, e.g. 120/80")
	cmd.Flags().Float64Var(&glucose, "glucose", 0, "Blood glucose (mg/dL)")
	cmd.Flags().Float64Var(&weight, "weight", 0, "Weight (kg)")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "Body temperature (°C)")
	cmd.Flags().Float64Var(&oxygen, "oxygen", 0, "Oxygen saturation (%)")

	return cmd
}

func runVitalsRecord(ctx context.Context, flags *GlobalFlags, input client.VitalInput, opts ...Option) error {
	if input == (client.VitalInput{Source: input.Source}) {
		return fmt.Errorf("nothing to record: pass at least one measurement flag")
	}

	return withSession(ctx, flags, opts, func(app *App) error {
		vital, err := app.Client.RecordVital(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to record vitals: %w", err)
		}
		if app.Out.Format() != output.FormatTable {
			return app.Out.Render(vital, nil)
		}
		app.Out.Message("✓ Vitals recorded at %s", vital.RecordedAt.String())
		return nil
	})
}

func bloodPressure(sys, dia *float64) string {
	if sys == nil && dia == nil {
		return "-"
	}
	return output.Ptr(sys) + "/" + output.Ptr(dia)
}

func runVitalsList(ctx context.Context, flags *GlobalFlags, limit int, opts ...Option) error {
	return withSession(ctx, flags, opts, func(app *App) error {
		vitals, err := app.Client.ListVitals(ctx, limit)
		if err != nil {
			return fmt.Errorf("failed to list vitals: %w", err)
		}

		t := &output.Table{
			Headers: []string{"RECORDED", "HEART RATE", "BP", "STEPS", "SLEEP", "GLUCOSE", "WEIGHT", "SOURCE"},
			Empty:   "No vitals recorded yet.\n\nRecord one with: healthlens vitals record --heart-rate 72",
		}
		for _, v := range vitals {
			t.Rows = append(t.Rows, []string{
				v.RecordedAt.String(),
				output.Ptr(v.HeartRate),
				bloodPressure(v.BloodPressureSystolic, v.BloodPressureDiastolic),
				output.Ptr(v.Steps),
				output.Ptr(v.SleepHours),
				output.Ptr(v.BloodGlucose),
				output.Ptr(v.WeightKg),
				v.Source,
			})
		}
		return app.Out.Render(vitals, t)
	})
}

func runVitalsLatest(ctx context.Context, flags *GlobalFlags, opts ...Option) error {
	return withSession(ctx, flags, opts, func(app *App) error {
		latest, err := app.Client.LatestVitals(ctx)
		if errors.Is(err, client.ErrNoVitals) {
			if app.Out.Format() != output.FormatTable {
				return app.Out.Render(nil, nil)
			}
			app.Out.Message("No vitals recorded yet.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load latest vitals: %w", err)
		}

		return app.Out.Render(latest, output.KV("",
			"Recorded", latest.RecordedAt.String(),
			"Heart rate", output.Ptr(latest.HeartRate),
			"Blood pressure", output.Ptr(latest.BloodPressure),
			"Steps", output.Ptr(latest.Steps),
			"Sleep (h)", output.Ptr(latest.SleepHours),
			"Glucose", output.Ptr(latest.BloodGlucose),
			"Weight (kg)", output.Ptr(latest.WeightKg),
			"SpO2 (%)", output.Ptr(latest.OxygenSaturation),
			"Source", output.Orf(latest.Source),
		))
	})
}
