package commands

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/healthlens-dev/healthlens/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewReportsCmd creates the reports command group
func NewReportsCmd(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Upload and review medical reports",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a PDF, PNG or JPG report for analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReportsUpload(cmd.Context(), flags, args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List uploaded reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReportsList(cmd.Context(), flags)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show a report with its extracted values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReportsShow(cmd.Context(), flags, args[0])
		},
	})

	return cmd
}

// detectContentType uses the file extension, falling back to sniffing the
// first bytes.
func detectContentType(path string, f io.ReadSeeker) (string, error) {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err == nil {
			return mediaType, nil
		}
	}

	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	mediaType, _, _ := mime.ParseMediaType(http.DetectContentType(head[:n]))
	return mediaType, nil
}

func runReportsUpload(ctx context.Context, flags *GlobalFlags, path string, opts ...Option) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open report: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat report: %w", err)
	}

	contentType, err := detectContentType(path, f)
	if err != nil {
		return err
	}

	return withSession(ctx, flags, opts, func(app *App) error {
		app.Out.Message("Uploading %s (%d bytes)...", filepath.Base(path), info.Size())

		report, err := app.Client.UploadReport(ctx, filepath.Base(path), contentType, info.Size(), f)
		if err != nil {
			return fmt.Errorf("failed to upload report: %w", err)
		}
		return app.Out.Render(report, reportTable(report.ID, report.AISummary, report.AbnormalFlags, report.ExtractedValues))
	})
}

func reportTable(id, summary string, flags []string, values map[string]any) *output.Table {
	t := output.KV("",
		"ID", id,
		"Summary", output.Orf(summary),
		"Abnormal", joinOrDash(flags),
	)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.Rows = append(t.Rows, []string{k + ":", formatValue(values[k])})
	}
	return t
}

func runReportsList(ctx context.Context, flags *GlobalFlags, opts ...Option) error {
	return withSession(ctx, flags, opts, func(app *App) error {
		reports, err := app.Client.ListReports(ctx)
		if err != nil {
			return fmt.Errorf("failed to list reports: %w", err)
		}

		t := &output.Table{
			Headers: []string{"ID", "FILE", "TYPE", "ABNORMAL", "UPLOADED"},
			Empty:   "No reports uploaded yet.\n\nUpload one with: healthlens reports upload <file>",
		}
		for _, r := range reports {
			t.Rows = append(t.Rows, []string{r.ID, r.FileName, r.FileType, joinOrDash(r.AbnormalFlags), r.CreatedAt.String()})
		}
		return app.Out.Render(reports, t)
	})
}

func runReportsShow(ctx context.Context, flags *GlobalFlags, id string, opts ...Option) error {
	return withSession(ctx, flags, opts, func(app *App) error {
		report, err := app.Client.GetReport(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load report: %w", err)
		}
		return app.Out.Render(report, reportTable(report.ID, report.AISummary, report.AbnormalFlags, report.ExtractedValues))
	})
}
