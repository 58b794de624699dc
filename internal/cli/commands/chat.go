package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/healthlens-dev/healthlens/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewChatCmd creates the chat command group
func NewChatCmd(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the health assistant",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "send <message>",
		Short: "Send a message (\"-\" reads stdin)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChatSend(cmd.Context(), flags, strings.Join(args, " "))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Clear the conversation history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChatClear(cmd.Context(), flags)
		},
	})

	return cmd
}

func runChatSend(ctx context.Context, flags *GlobalFlags, message string, opts ...Option) error {
	return withSession(ctx, flags, opts, func(app *App) error {
		if message == "-" {
			line, err := readLine(app.stdin)
			if err != nil {
				return err
			}
			message = line
		}

		reply, err := app.Client.SendChatMessage(ctx, message)
		if err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
		if app.Out.Format() != output.FormatTable {
			return app.Out.Render(reply, nil)
		}
		fmt.Fprintln(app.stdout, reply.Content)
		return nil
	})
}

func runChatClear(ctx context.Context, flags *GlobalFlags, opts ...Option) error {
	return withSession(ctx, flags, opts, func(app *App) error {
		resp, err := app.Client.ClearChatHistory(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear chat history: %w", err)
		}
		if app.Out.Format() != output.FormatTable {
			return app.Out.Render(resp, nil)
		}
		app.Out.Message("✓ %s", resp.Message)
		return nil
	})
}
