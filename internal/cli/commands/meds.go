package commands

import (
	"context"
	"fmt"

	"github.com/healthlens-dev/healthlens/internal/cli/client"
	"github.com/healthlens-dev/healthlens/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewMedsCmd creates the meds command group
func NewMedsCmd(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "meds",
		Aliases: []string{"medications"},
		Short:   "Track medications and doses",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List medications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMedsList(cmd.Context(), flags)
		},
	})

	var create client.MedicationCreate
	var notes string
	add := &cobra.Command{
		Use:     "add <name>",
		Short:   "Start tracking a medication",
		Example: `  $ healthlens meds add Metformin --dosage 500mg --frequency "twice daily"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			create.Name = args[0]
			if cmd.Flags().Changed("notes") {
				create.Notes = &notes
			}
			return runMedsAdd(cmd.Context(), flags, create)
		},
	}
	add.Flags().StringVar(&create.Dosage, "dosage", "", "Dosage, e.g. 500mg")
	add.Flags().StringVar(&create.Frequency, "frequency", "", "Frequency, e.g. \"twice daily\"")
	add.Flags().StringVar(&notes, "notes", "", "Notes")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Stop tracking a medication",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMedsRemove(cmd.Context(), flags, args[0])
		},
	})

	var missed bool
	var logNotes string
	logCmd := &cobra.Command{
		Use:   "log <id>",
		Short: "Log a dose as taken (or --missed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry := client.MedicationLogEntry{MedicationID: args[0], Taken: !missed}
			if cmd.Flags().Changed("notes") {
				entry.Notes = &logNotes
			}
			return runMedsLog(cmd.Context(), flags, entry)
		},
	}
	logCmd.Flags().BoolVar(&missed, "missed", false, "Record the dose as missed")
	logCmd.Flags().StringVar(&logNotes, "notes", "", "Notes")
	cmd.AddCommand(logCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "history",
		Short: "Show the adherence log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMedsHistory(cmd.Context(), flags)
		},
	})

	return cmd
}

func runMedsList(ctx context.Context, flags *GlobalFlags, opts ...Option) error {
	return withSession(ctx, flags, opts, func(app *App) error {
		meds, err := app.Client.ListMedications(ctx)
		if err != nil {
			return fmt.Errorf("failed to list medications: %w", err)
		}

		t := &output.Table{
			Headers: []string{"ID", "NAME", "DOSAGE", "FREQUENCY", "ACTIVE"},
			Empty:   "No medications found.\n\nAdd one with: healthlens meds add <name> --dosage <dose> --frequency <how often>",
		}
		for _, m := range meds {
			t.Rows = append(t.Rows, []string{m.ID, m.Name, output.Orf(m.Dosage), output.Orf(m.Frequency), output.Ptr(m.IsActive)})
		}
		return app.Out.Render(meds, t)
	})
}

func runMedsAdd(ctx context.Context, flags *GlobalFlags, create client.MedicationCreate, opts ...Option) error {
	return withSession(ctx, flags, opts, func(app *App) error {
		med, err := app.Client.AddMedication(ctx, create)
		if err != nil {
			return fmt.Errorf("failed to add medication: %w", err)
		}
		if app.Out.Format() != output.FormatTable {
			return app.Out.Render(med, nil)
		}
		app.Out.Message("✓ Added %s (%s)", med.Name, med.ID)
		return nil
	})
}

func runMedsRemove(ctx context.Context, flags *GlobalFlags, id string, opts ...Option) error {
	return withSession(ctx, flags, opts, func(app *App) error {
		resp, err := app.Client.RemoveMedication(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to remove medication: %w", err)
		}
		if app.Out.Format() != output.FormatTable {
			return app.Out.Render(resp, nil)
		}
		app.Out.Message("✓ %s", resp.Message)
		return nil
	})
}

func runMedsLog(ctx context.Context, flags *GlobalFlags, entry client.MedicationLogEntry, opts ...Option) error {
	return withSession(ctx, flags, opts, func(app *App) error {
		resp, err := app.Client.LogMedication(ctx, entry)
		if err != nil {
			return fmt.Errorf("failed to log dose: %w", err)
		}
		if app.Out.Format() != output.FormatTable {
			return app.Out.Render(resp, nil)
		}
		status := "taken"
		if !resp.Taken {
			status = "missed"
		}
		app.Out.Message("✓ %s (%s)", resp.Message, status)
		return nil
	})
}

func runMedsHistory(ctx context.Context, flags *GlobalFlags, opts ...Option) error {
	return withSession(ctx, flags, opts, func(app *App) error {
		logs, err := app.Client.MedicationHistory(ctx)
		if err != nil {
			return fmt.Errorf("failed to load medication history: %w", err)
		}

		t := &output.Table{
			Headers: []string{"LOGGED", "MEDICATION", "TAKEN", "NOTES"},
			Empty:   "No doses logged yet.",
		}
		for _, l := range logs {
			t.Rows = append(t.Rows, []string{l.LoggedAt.String(), l.MedicationID, strconvBool(l.Taken), output.Ptr(l.Notes)})
		}
		return app.Out.Render(logs, t)
	})
}

func strconvBool(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
