package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
)

// VitalInput is one manual (or synced) vitals reading
type VitalInput struct {
	Source                 string   `json:"source" validate:"omitempty,oneof=manual googlefit"`
	HeartRate              *float64 `json:"heart_rate,omitempty" validate:"omitempty,gt=0,lt=300"`
	Steps                  *int     `json:"steps,omitempty" validate:"omitempty,gte=0"`
	SleepHours             *float64 `json:"sleep_hours,omitempty" validate:"omitempty,gte=0,lte=24"`
	BloodPressureSystolic  *float64 `json:"blood_pressure_systolic,omitempty" validate:"omitempty,gt=0,lt=300"`
	BloodPressureDiastolic *float64 `json:"blood_pressure_diastolic,omitempty" validate:"omitempty,gt=0,lt=200"`
	BloodGlucose           *float64 `json:"blood_glucose,omitempty" validate:"omitempty,gt=0"`
	WeightKg               *float64 `json:"weight_kg,omitempty" validate:"omitempty,gt=0,lt=700"`
	Temperature            *float64 `json:"temperature,omitempty" validate:"omitempty,gt=0"`
	OxygenSaturation       *float64 `json:"oxygen_saturation,omitempty" validate:"omitempty,gt=0,lte=100"`
}

// Vital is a recorded vitals reading
type Vital struct {
	ID                     string     `json:"id" validate:"required"`
	Source                 string     `json:"source"`
	HeartRate              *float64   `json:"heart_rate"`
	Steps                  *int       `json:"steps"`
	SleepHours             *float64   `json:"sleep_hours"`
	BloodPressureSystolic  *float64   `json:"blood_pressure_systolic"`
	BloodPressureDiastolic *float64   `json:"blood_pressure_diastolic"`
	BloodGlucose           *float64   `json:"blood_glucose"`
	WeightKg               *float64   `json:"weight_kg"`
	Temperature            *float64   `json:"temperature"`
	OxygenSaturation       *float64   `json:"oxygen_saturation"`
	RecordedAt             *Timestamp `json:"recorded_at"`
}

// LatestVital is the flattened latest reading. Blood pressure arrives
// pre-formatted as "systolic/diastolic".
type LatestVital struct {
	HeartRate        *float64   `json:"heart_rate"`
	Steps            *int       `json:"steps"`
	SleepHours       *float64   `json:"sleep_hours"`
	BloodPressure    *string    `json:"blood_pressure"`
	BloodGlucose     *float64   `json:"blood_glucose"`
	WeightKg         *float64   `json:"weight_kg"`
	OxygenSaturation *float64   `json:"oxygen_saturation"`
	Source           string     `json:"source"`
	RecordedAt       *Timestamp `json:"recorded_at"`
}

// ErrNoVitals is returned by LatestVitals when nothing has been recorded.
var ErrNoVitals = errors.New("no vitals recorded yet")

// RecordVital stores a new reading
func (c *Client) RecordVital(ctx context.Context, input VitalInput) (*Vital, error) {
	if input.Source == "" {
		input.Source = "manual"
	}
	if err := c.checkInput(input); err != nil {
		return nil, err
	}

	var vital Vital
	err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/v1/vitals/",
		Body:   input,
	}, &vital)
	if err != nil {
		return nil, err
	}
	return &vital, nil
}

// ListVitals returns the newest readings first. limit <= 0 uses the API default.
func (c *Client) ListVitals(ctx context.Context, limit int) ([]Vital, error) {
	req := Request{Path: "/api/v1/vitals/"}
	if limit > 0 {
		req.Query = url.Values{"limit": {strconv.Itoa(limit)}}
	}

	var vitals []Vital
	if err := c.Do(ctx, req, &vitals); err != nil {
		return nil, err
	}
	return vitals, nil
}

// LatestVitals returns the most recent reading, or ErrNoVitals.
func (c *Client) LatestVitals(ctx context.Context) (*LatestVital, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, Request{Path: "/api/v1/vitals/latest"}, &raw); err != nil {
		return nil, err
	}

	// The empty case is signalled with a {"message": ...} body instead of a 404.
	var shape struct {
		Message *string `json:"message"`
		Source  *string `json:"source"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, &SchemaError{Path: "/api/v1/vitals/latest", Err: err}
	}
	if shape.Message != nil && shape.Source == nil {
		return nil, ErrNoVitals
	}

	var latest LatestVital
	if err := json.Unmarshal(raw, &latest); err != nil {
		return nil, &SchemaError{Path: "/api/v1/vitals/latest", Err: err}
	}
	return &latest, nil
}
