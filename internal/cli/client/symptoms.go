package client

import (
	"context"
	"net/http"
	"strings"
)

// ConditionMatch is one candidate condition for a symptom description
type ConditionMatch struct {
	Name        string  `json:"name" validate:"required"`
	Probability float64 `json:"probability"`
	Description *string `json:"description"`
}

// SymptomResult is the analysis of a free-text symptom description
type SymptomResult struct {
	ID                 string           `json:"id" validate:"required"`
	RawInput           string           `json:"raw_input"`
	ClassifiedSymptoms []string         `json:"classified_symptoms"`
	PossibleConditions []ConditionMatch `json:"possible_conditions" validate:"dive"`
	UrgencyLevel       string           `json:"urgency_level" validate:"required"`
	Recommendations    []string         `json:"recommendations"`
	CreatedAt          *Timestamp       `json:"created_at"`
}

type symptomInput struct {
	Description string `json:"description"`
}

// AnalyzeSymptoms sends a free-text description for analysis
func (c *Client) AnalyzeSymptoms(ctx context.Context, description string) (*SymptomResult, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, &ValidationError{Field: "description", Message: "is required"}
	}

	var result SymptomResult
	err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/v1/symptoms/analyze",
		Body:   symptomInput{Description: description},
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}
