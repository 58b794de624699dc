package client

import (
	"context"
	"net/http"
	"net/url"
)

// Profile represents the user's health profile
type Profile struct {
	ID                string            `json:"id" validate:"required"`
	UserID            string            `json:"user_id" validate:"required"`
	DateOfBirth       *string           `json:"date_of_birth"`
	Gender            *string           `json:"gender"`
	HeightCm          *float64          `json:"height_cm"`
	WeightKg          *float64          `json:"weight_kg"`
	BloodType         *string           `json:"blood_type"`
	MedicalConditions []string          `json:"medical_conditions"`
	Medications       []string          `json:"medications"`
	Allergies         []string          `json:"allergies"`
	FamilyHistory     []string          `json:"family_history"`
	Lifestyle         map[string]any    `json:"lifestyle"`
	EmergencyContact  map[string]string `json:"emergency_contact"`
}

// ProfileUpdate holds the fields to change; nil fields are left untouched.
type ProfileUpdate struct {
	DateOfBirth       *string           `json:"date_of_birth,omitempty"`
	Gender            *string           `json:"gender,omitempty"`
	HeightCm          *float64          `json:"height_cm,omitempty" validate:"omitempty,gt=0,lt=300"`
	WeightKg          *float64          `json:"weight_kg,omitempty" validate:"omitempty,gt=0,lt=700"`
	BloodType         *string           `json:"blood_type,omitempty"`
	MedicalConditions []string          `json:"medical_conditions,omitempty"`
	Medications       []string          `json:"medications,omitempty"`
	Allergies         []string          `json:"allergies,omitempty"`
	FamilyHistory     []string          `json:"family_history,omitempty"`
	Lifestyle         map[string]any    `json:"lifestyle,omitempty"`
	EmergencyContact  map[string]string `json:"emergency_contact,omitempty"`
}

// NameUpdateResponse is returned after changing the display name
type NameUpdateResponse struct {
	Message  string `json:"message"`
	FullName string `json:"full_name" validate:"required"`
}

// GetProfile returns the current user's profile, creating an empty one
// server-side if none exists yet.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	var profile Profile
	if err := c.Do(ctx, Request{Path: "/api/v1/profile/"}, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile applies a partial profile update
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*Profile, error) {
	if err := c.checkInput(update); err != nil {
		return nil, err
	}

	var profile Profile
	err := c.Do(ctx, Request{
		Method: http.MethodPut,
		Path:   "/api/v1/profile/",
		Body:   update,
	}, &profile)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateName changes the display name. The API takes it as a query parameter.
func (c *Client) UpdateName(ctx context.Context, name string) (*NameUpdateResponse, error) {
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "name is required"}
	}

	var resp NameUpdateResponse
	err := c.Do(ctx, Request{
		Method: http.MethodPut,
		Path:   "/api/v1/profile/name",
		Query:  url.Values{"name": {name}},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
