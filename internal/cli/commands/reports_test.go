package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/healthlens-dev/healthlens/internal/cli/client"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"report.pdf", []byte("%PDF-1.4 test"), "application/pdf"},
		{"scan.PNG", []byte("\x89PNG\r\n\x1a\n"), "image/png"},
		{"photo.jpg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/jpeg"},
		// No extension: sniffed from the content
		{"upload", []byte("%PDF-1.7 sniffed"), "application/pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.name, tt.data)
			f, err := os.Open(path)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()

			got, err := detectContentType(path, f)
			if err != nil {
				t.Fatalf("detectContentType failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("detectContentType(%s) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestReportsUpload(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	path := writeFile(t, "blood-test.pdf", []byte("%PDF-1.4 hemoglobin 13.5"))
	if err := runReportsUpload(context.Background(), e.flags, path, e.opts()...); err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	uploads := e.api.Uploads()
	if len(uploads) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(uploads))
	}
	if uploads[0].FileName != "blood-test.pdf" || uploads[0].ContentType != "application/pdf" {
		t.Errorf("unexpected upload %+v", uploads[0])
	}
	if uploads[0].Size != int64(len("%PDF-1.4 hemoglobin 13.5")) {
		t.Errorf("unexpected upload size %d", uploads[0].Size)
	}

	out := e.out.String()
	if !strings.Contains(out, "All values within range.") || !strings.Contains(out, "hemoglobin:") {
		t.Errorf("unexpected upload output %q", out)
	}
}

func TestReportsUpload_RejectsType(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	path := writeFile(t, "notes.txt", []byte("just text"))
	err := runReportsUpload(context.Background(), e.flags, path, e.opts()...)
	if !errors.Is(err, client.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(e.api.Uploads()) != 0 {
		t.Error("expected nothing to be uploaded")
	}
}

func TestReportsUpload_MissingFile(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	err := runReportsUpload(context.Background(), e.flags, filepath.Join(t.TempDir(), "missing.pdf"), e.opts()...)
	if err == nil || !strings.Contains(err.Error(), "failed to open report") {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestReportsListAndShow(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	if err := runReportsList(context.Background(), e.flags, e.opts()...); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(e.out.String(), "No reports uploaded yet.") {
		t.Errorf("expected empty message, got %q", e.out.String())
	}

	err := runReportsShow(context.Background(), e.flags, "unknown", e.opts()...)
	if client.StatusCode(err) != 404 || !strings.Contains(err.Error(), "Report not found.") {
		t.Fatalf("expected 404 with backend message, got %v", err)
	}
}
