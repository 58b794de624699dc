package client

import "context"

// RiskSnapshot is the latest score for one disease type
type RiskSnapshot struct {
	DiseaseType  string     `json:"disease_type" validate:"required"`
	RiskScore    float64    `json:"risk_score"`
	RiskCategory string     `json:"risk_category"`
	CreatedAt    *Timestamp `json:"created_at"`
}

// RiskTrendPoint is one historical score
type RiskTrendPoint struct {
	DiseaseType string     `json:"disease_type" validate:"required"`
	RiskScore   float64    `json:"risk_score"`
	CreatedAt   *Timestamp `json:"created_at"`
}

// Activity is an entry of the recent activity feed
type Activity struct {
	Type  string     `json:"type" validate:"required"`
	Icon  string     `json:"icon"`
	Title string     `json:"title"`
	Desc  string     `json:"desc"`
	Time  *Timestamp `json:"time"`
}

// DashboardSummary aggregates the user's health data
type DashboardSummary struct {
	UserName           string                  `json:"user_name" validate:"required"`
	HealthScore        int                     `json:"health_score" validate:"gte=0,lte=100"`
	LatestRisks        map[string]RiskSnapshot `json:"latest_risks" validate:"dive"`
	RiskTrend          []RiskTrendPoint        `json:"risk_trend" validate:"dive"`
	TotalAssessments   int                     `json:"total_assessments"`
	TotalSymptomChecks int                     `json:"total_symptom_checks"`
	TotalReports       int                     `json:"total_reports"`
	RecentActivity     []Activity              `json:"recent_activity" validate:"dive"`
}

// DashboardSummary returns the aggregated dashboard data
func (c *Client) DashboardSummary(ctx context.Context) (*DashboardSummary, error) {
	var summary DashboardSummary
	if err := c.Do(ctx, Request{Path: "/api/v1/dashboard/summary"}, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
