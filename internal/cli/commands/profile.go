package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/healthlens-dev/healthlens/internal/cli/client"
	"github.com/healthlens-dev/healthlens/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewProfileCmd creates the profile command group
func NewProfileCmd(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "View and edit the health profile",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the health profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfileShow(cmd.Context(), flags)
		},
	})

	cmd.AddCommand(newProfileUpdateCmd(flags))

	cmd.AddCommand(&cobra.Command{
		Use:   "set-name <name>",
		Short: "Change the display name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfileSetName(cmd.Context(), flags, strings.Join(args, " "))
		},
	})

	return cmd
}

func profileTable(p *client.Profile) *output.Table {
	return output.KV("",
		"Date of birth", output.Ptr(p.DateOfBirth),
		"Gender", output.Ptr(p.Gender),
		"Height (cm)", output.Ptr(p.HeightCm),
		"Weight (kg)", output.Ptr(p.WeightKg),
		"Blood type", output.Ptr(p.BloodType),
		"Conditions", joinOrDash(p.MedicalConditions),
		"Medications", joinOrDash(p.Medications),
		"Allergies", joinOrDash(p.Allergies),
		"Family history", joinOrDash(p.FamilyHistory),
	)
}

func joinOrDash(items []string) string {
	return output.Orf(strings.Join(items, ", "))
}

func runProfileShow(ctx context.Context, flags *GlobalFlags, opts ...Option) error {
	return withSession(ctx, flags, opts, func(app *App) error {
		profile, err := app.Client.GetProfile(ctx)
		if err != nil {
			return fmt.Errorf("failed to load profile: %w", err)
		}
		return app.Out.Render(profile, profileTable(profile))
	})
}

type profileFlags struct {
	dateOfBirth   string
	gender        string
	heightCm      float64
	weightKg      float64
	bloodType     string
	conditions    []string
	medications   []string
	allergies     []string
	familyHistory []string
}

func newProfileUpdateCmd(flags *GlobalFlags) *cobra.Command {
	var pf profileFlags

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update profile fields (only the flags given are changed)",
		Example: `  $ healthlens profile update --height 172 --weight 70 --blood-type O+
  $ healthlens profile update --allergies penicillin,peanuts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			update := client.ProfileUpdate{}
			f := cmd.Flags()
			if f.Changed("dob") {
				update.DateOfBirth = &pf.dateOfBirth
			}
			if f.Changed("gender") {
				update.Gender = &pf.gender
			}
			if f.Changed("height") {
				update.HeightCm = &pf.heightCm
			}
			if f.Changed("weight") {
				update.WeightKg = &pf.weightKg
			}
			if f.Changed("blood-type") {
				update.BloodType = &pf.bloodType
			}
			if f.Changed("conditions") {
				update.MedicalConditions = pf.conditions
			}
			if f.Changed("medications") {
				update.Medications = pf.medications
			}
			if f.Changed("allergies") {
				update.Allergies = pf.allergies
			}
			if f.Changed("family-history") {
				update.FamilyHistory = pf.familyHistory
			}
			return runProfileUpdate(cmd.Context(), flags, update)
		},
	}

	cmd.Flags().StringVar(&pf.dateOfBirth, "dob", "", "Date of birth (YYYY-MM-DD)")
	cmd.Flags().StringVar(&pf.gender, "gender", "", "Gender")
	cmd.Flags().Float64Var(&pf.heightCm, "height", 0, "Height in cm")
	cmd.Flags().Float64Var(&pf.weightKg, "weight", 0, "Weight in kg")
	cmd.Flags().StringVar(&pf.bloodType, "blood-type", "", "Blood type, e.g. O+")
	cmd.Flags().StringSliceVar(&pf.conditions, "conditions", nil, "Medical conditions (comma separated)")
	cmd.Flags().StringSliceVar(&pf.medications, "medications", nil, "Current medications (comma separated)")
	cmd.Flags().StringSliceVar(&pf.allergies, "allergies", nil, "Allergies (comma separated)")
	cmd.Flags().StringSliceVar(&pf.familyHistory, "family-history", nil, "Family history (comma separated)")

	return cmd
}

func runProfileUpdate(ctx context.Context, flags *GlobalFlags, update client.ProfileUpdate, opts ...Option) error {
	return withSession(ctx, flags, opts, func(app *App) error {
		profile, err := app.Client.UpdateProfile(ctx, update)
		if err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}
		app.Out.Message("✓ Profile updated\n")
		return app.Out.Render(profile, profileTable(profile))
	})
}

func runProfileSetName(ctx context.Context, flags *GlobalFlags, name string, opts ...Option) error {
	return withSession(ctx, flags, opts, func(app *App) error {
		resp, err := app.Client.UpdateName(ctx, strings.TrimSpace(name))
		if err != nil {
			return fmt.Errorf("failed to update name: %w", err)
		}
		if app.Out.Format() != output.FormatTable {
			return app.Out.Render(resp, nil)
		}
		app.Out.Message("✓ Name changed to %s", resp.FullName)
		return nil
	})
}
