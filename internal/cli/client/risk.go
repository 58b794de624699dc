package client

import (
	"context"
	"net/http"
)

// RiskInput holds the health metrics the risk models score
type RiskInput struct {
	Age                    int      `json:"age" validate:"gt=0,lt=130"`
	BMI                    float64  `json:"bmi" validate:"gt=0,lt=100"`
	Glucose                *float64 `json:"glucose,omitempty" validate:"omitempty,gt=0"`
	Cholesterol            *float64 `json:"cholesterol,omitempty" validate:"omitempty,gt=0"`
	BloodPressureSystolic  float64  `json:"blood_pressure_systolic" validate:"gt=0,lt=300"`
	BloodPressureDiastolic float64  `json:"blood_pressure_diastolic" validate:"gt=0,lt=200"`
	Insulin                *float64 `json:"insulin,omitempty" validate:"omitempty,gte=0"`
	SkinThickness          *float64 `json:"skin_thickness,omitempty" validate:"omitempty,gte=0"`
	Pregnancies            *int     `json:"pregnancies,omitempty" validate:"omitempty,gte=0"`
	Smoking                bool     `json:"smoking"`
	Alcohol                bool     `json:"alcohol"`
}

// RiskResult is a scored risk prediction
type RiskResult struct {
	ID                string             `json:"id" validate:"required"`
	DiseaseType       string             `json:"disease_type" validate:"required"`
	RiskScore         float64            `json:"risk_score" validate:"gte=0,lte=1"`
	RiskCategory      string             `json:"risk_category" validate:"required"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
	Explanation       string             `json:"explanation"`
	CreatedAt         *Timestamp         `json:"created_at"`
}

// PredictDiabetes scores diabetes risk
func (c *Client) PredictDiabetes(ctx context.Context, input RiskInput) (*RiskResult, error) {
	return c.predictRisk(ctx, "/api/v1/risk/diabetes", input)
}

// PredictHeartDisease scores heart disease risk
func (c *Client) PredictHeartDisease(ctx context.Context, input RiskInput) (*RiskResult, error) {
	return c.predictRisk(ctx, "/api/v1/risk/heart-disease", input)
}

func (c *Client) predictRisk(ctx context.Context, path string, input RiskInput) (*RiskResult, error) {
	if err := c.checkInput(input); err != nil {
		return nil, err
	}

	var result RiskResult
	err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   input,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}
