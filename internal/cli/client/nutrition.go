package client

import (
	"context"
	"net/http"
)

// RiskContext is one risk prediction fed into plan generation
type RiskContext struct {
	DiseaseType  string  `json:"disease_type"`
	RiskScore    float64 `json:"risk_score"`
	RiskCategory string  `json:"risk_category"`
}

// NutritionPlan is a generated diet and lifestyle plan. The recommendation
// sections are free-form and rendered as-is.
type NutritionPlan struct {
	ID                       string         `json:"id" validate:"required"`
	RiskContext              map[string]any `json:"risk_context"`
	DietRecommendations      map[string]any `json:"diet_recommendations" validate:"required"`
	LifestyleRecommendations map[string]any `json:"lifestyle_recommendations" validate:"required"`
	CreatedAt                *Timestamp     `json:"created_at"`
}

// GenerateNutritionPlan builds a plan from the given risk predictions. An
// empty list is allowed and yields a general plan.
func (c *Client) GenerateNutritionPlan(ctx context.Context, risks []RiskContext) (*NutritionPlan, error) {
	if risks == nil {
		risks = []RiskContext{}
	}

	var plan NutritionPlan
	err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/v1/nutrition/plan",
		Body:   risks,
	}, &plan)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}
