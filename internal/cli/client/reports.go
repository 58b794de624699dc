package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// MaxReportSize is the largest report the API accepts.
const MaxReportSize = 10 * 1024 * 1024

var allowedReportTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/jpg":       true,
}

// ReportSummary is a report as listed
type ReportSummary struct {
	ID            string     `json:"id" validate:"required"`
	FileName      string     `json:"file_name"`
	FileType      string     `json:"file_type"`
	AbnormalFlags []string   `json:"abnormal_flags"`
	CreatedAt     *Timestamp `json:"created_at"`
}

// Report is an analyzed medical report
type Report struct {
	ID              string         `json:"id" validate:"required"`
	FileName        string         `json:"file_name"`
	FileType        string         `json:"file_type"`
	ExtractedValues map[string]any `json:"extracted_values"`
	AISummary       string         `json:"ai_summary"`
	AbnormalFlags   []string       `json:"abnormal_flags"`
	CreatedAt       *Timestamp     `json:"created_at"`
}

// UploadReport uploads a PDF or image report for analysis. size is the
// length of r in bytes and is checked before anything is sent.
func (c *Client) UploadReport(ctx context.Context, fileName, contentType string, size int64, r io.Reader) (*Report, error) {
	if !allowedReportTypes[contentType] {
		return nil, &ValidationError{Field: "file", Message: "Only PDF, PNG, and JPG files are allowed."}
	}
	if size > MaxReportSize {
		return nil, errReportTooLarge
	}

	var report Report
	err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/v1/reports/upload",
		Form: &Form{
			Files: []File{{
				Field:       "file",
				Name:        fileName,
				ContentType: contentType,
				Reader:      &sizeCheckedReader{r: r},
			}},
		},
	}, &report)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// ListReports returns all uploaded reports, newest first
var errReportTooLarge = &ValidationError{Field: "file", Message: "File size cannot exceed 10MB."}

// sizeCheckedReader fails the upload once more than MaxReportSize bytes are
// read, whatever size the caller declared.
type sizeCheckedReader struct {
	r    io.Reader
	read int64
}

func (s *sizeCheckedReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	s.read += int64(n)
	if s.read > MaxReportSize {
		return 0, errReportTooLarge
	}
	return n, err
}

func (c *Client) ListReports(ctx context.Context) ([]ReportSummary, error) {
	var reports []ReportSummary
	if err := c.Do(ctx, Request{Path: "/api/v1/reports/"}, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// GetReport returns one report with its extracted values
func (c *Client) GetReport(ctx context.Context, id string) (*Report, error) {
	if id == "" {
		return nil, &ValidationError{Field: "id", Message: "is required"}
	}

	var report Report
	err := c.Do(ctx, Request{Path: fmt.Sprintf("/api/v1/reports/%s", url.PathEscape(id))}, &report)
	if err != nil {
		return nil, err
	}
	return &report, nil
}
