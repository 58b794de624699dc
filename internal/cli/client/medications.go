package client

import (
	"context"
	"net/http"
	"net/url"
)

// Medication represents a tracked medication
type Medication struct {
	ID        string  `json:"id" validate:"required"`
	Name      string  `json:"name" validate:"required"`
	Dosage    string  `json:"dosage"`
	Frequency string  `json:"frequency"`
	Notes     *string `json:"notes"`
	IsActive  *bool   `json:"is_active,omitempty"`
}

// MedicationCreate represents the add-medication request
type MedicationCreate struct {
	Name      string  `json:"name" validate:"required"`
	Dosage    string  `json:"dosage" validate:"required"`
	Frequency string  `json:"frequency" validate:"required"`
	Notes     *string `json:"notes,omitempty"`
}

// MedicationLogEntry records a dose as taken or missed
type MedicationLogEntry struct {
	MedicationID string  `json:"medication_id" validate:"required"`
	Taken        bool    `json:"taken"`
	Notes        *string `json:"notes,omitempty"`
}

// MedicationLog is one entry of the adherence history
type MedicationLog struct {
	MedicationID string     `json:"medication_id" validate:"required"`
	Taken        bool       `json:"taken"`
	Notes        *string    `json:"notes"`
	LoggedAt     *Timestamp `json:"logged_at"`
}

// MessageResponse is the generic {"message": ...} acknowledgement
type MessageResponse struct {
	Message string `json:"message" validate:"required"`
}

// LogMedicationResponse acknowledges a logged dose
type LogMedicationResponse struct {
	Message string `json:"message" validate:"required"`
	Taken   bool   `json:"taken"`
}

// ListMedications returns all medications, active or not
func (c *Client) ListMedications(ctx context.Context) ([]Medication, error) {
	var meds []Medication
	if err := c.Do(ctx, Request{Path: "/api/v1/medications/"}, &meds); err != nil {
		return nil, err
	}
	return meds, nil
}

// AddMedication starts tracking a medication
func (c *Client) AddMedication(ctx context.Context, med MedicationCreate) (*Medication, error) {
	if err := c.checkInput(med); err != nil {
		return nil, err
	}

	var created Medication
	err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/v1/medications/",
		Body:   med,
	}, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// RemoveMedication deactivates a medication by ID
func (c *Client) RemoveMedication(ctx context.Context, id string) (*MessageResponse, error) {
	if id == "" {
		return nil, &ValidationError{Field: "id", Message: "is required"}
	}

	var resp MessageResponse
	err := c.Do(ctx, Request{
		Method: http.MethodDelete,
		Path:   "/api/v1/medications/" + url.PathEscape(id),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogMedication records that a dose was taken or missed
func (c *Client) LogMedication(ctx context.Context, entry MedicationLogEntry) (*LogMedicationResponse, error) {
	if err := c.checkInput(entry); err != nil {
		return nil, err
	}

	var resp LogMedicationResponse
	err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/v1/medications/log",
		Body:   entry,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// MedicationHistory returns the most recent adherence log entries
func (c *Client) MedicationHistory(ctx context.Context) ([]MedicationLog, error) {
	var logs []MedicationLog
	if err := c.Do(ctx, Request{Path: "/api/v1/medications/history"}, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
