package client_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthlens-dev/healthlens/internal/cli/apitest"
	"github.com/healthlens-dev/healthlens/internal/cli/client"
)

type staticToken string

func (s staticToken) Token() string     { return string(s) }
func (s staticToken) Invalidate(string) {}

func newAuthedClient(t *testing.T) (*client.Client, *apitest.Server) {
	t.Helper()
	srv := apitest.New(t)
	user := srv.AddUser("a@b.com", "Secret123!", "Ada Lovelace")
	return client.New(srv.URL, client.WithCredentials(staticToken(srv.IssueToken(user)))), srv
}

func floatPtr(f float64) *float64 { return &f }

func TestLogin(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("a@b.com", "Secret123!", "")
	c := client.New(srv.URL)
	ctx := context.Background()

	tok, err := c.Login(ctx, "a@b.com", "Secret123!")
	require.NoError(t, err)
	assert.NotEmpty(t, tok.AccessToken)
	assert.Equal(t, "bearer", tok.TokenType)

	_, err = c.Login(ctx, "a@b.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials.", err.Error())
	assert.Equal(t, http.StatusUnauthorized, client.StatusCode(err))

	req, ok := srv.LastRequest("/api/v1/auth/login")
	require.True(t, ok)
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestMe(t *testing.T) {
	c, _ := newAuthedClient(t)

	user, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", user.Email)
	assert.Equal(t, "Ada Lovelace", user.DisplayName())
	require.NotNil(t, user.CreatedAt)
	assert.Equal(t, 2025, user.CreatedAt.Year())
}

func TestProfile(t *testing.T) {
	c, _ := newAuthedClient(t)
	ctx := context.Background()

	profile, err := c.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"asthma"}, profile.MedicalConditions)

	updated, err := c.UpdateProfile(ctx, client.ProfileUpdate{HeightCm: floatPtr(180)})
	require.NoError(t, err)
	require.NotNil(t, updated.HeightCm)
	assert.Equal(t, 180.0, *updated.HeightCm)

	_, err = c.UpdateProfile(ctx, client.ProfileUpdate{HeightCm: floatPtr(-1)})
	require.Error(t, err)
	var vErr *client.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "height_cm", vErr.Field)

	name, err := c.UpdateName(ctx, "Grace Hopper")
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", name.FullName)

	_, err = c.UpdateName(ctx, "")
	assert.True(t, errors.Is(err, client.ErrValidation))
}

func TestVitals(t *testing.T) {
	c, _ := newAuthedClient(t)
	ctx := context.Background()

	_, err := c.LatestVitals(ctx)
	assert.ErrorIs(t, err, client.ErrNoVitals)

	vital, err := c.RecordVital(ctx, client.VitalInput{
		HeartRate:              floatPtr(72),
		BloodPressureSystolic:  floatPtr(120),
		BloodPressureDiastolic: floatPtr(80),
	})
	require.NoError(t, err)
	assert.Equal(t, "manual", vital.Source)
	require.NotNil(t, vital.RecordedAt)

	vitals, err := c.ListVitals(ctx, 10)
	require.NoError(t, err)
	require.Len(t, vitals, 1)

	latest, err := c.LatestVitals(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest.BloodPressure)
	assert.Equal(t, "120.0/80.0", *latest.BloodPressure)

	_, err = c.RecordVital(ctx, client.VitalInput{Source: "fitbit"})
	var vErr *client.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "source", vErr.Field)
}

func TestMedications(t *testing.T) {
	c, _ := newAuthedClient(t)
	ctx := context.Background()

	med, err := c.AddMedication(ctx, client.MedicationCreate{Name: "Metformin", Dosage: "500mg", Frequency: "twice daily"})
	require.NoError(t, err)
	require.NotEmpty(t, med.ID)

	meds, err := c.ListMedications(ctx)
	require.NoError(t, err)
	require.Len(t, meds, 1)
	assert.Equal(t, "Metformin", meds[0].Name)

	logged, err := c.LogMedication(ctx, client.MedicationLogEntry{MedicationID: med.ID, Taken: true})
	require.NoError(t, err)
	assert.True(t, logged.Taken)

	removed, err := c.RemoveMedication(ctx, med.ID)
	require.NoError(t, err)
	assert.Equal(t, "Medication deactivated.", removed.Message)

	_, err = c.RemoveMedication(ctx, "missing")
	require.Error(t, err)
	assert.Equal(t, "Medication not found.", err.Error())
	assert.Equal(t, http.StatusNotFound, client.StatusCode(err))

	history, err := c.MedicationHistory(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = c.AddMedication(ctx, client.MedicationCreate{Name: "Aspirin"})
	assert.True(t, errors.Is(err, client.ErrValidation))
}

func TestRiskPredictions(t *testing.T) {
	c, _ := newAuthedClient(t)
	ctx := context.Background()
	input := client.RiskInput{Age: 50, BMI: 31, BloodPressureSystolic: 130, BloodPressureDiastolic: 85}

	diabetes, err := c.PredictDiabetes(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "diabetes", diabetes.DiseaseType)
	assert.Equal(t, "high", diabetes.RiskCategory)

	heart, err := c.PredictHeartDisease(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "heart_disease", heart.DiseaseType)

	_, err = c.PredictDiabetes(ctx, client.RiskInput{BMI: 20, BloodPressureSystolic: 120, BloodPressureDiastolic: 80})
	var vErr *client.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "age", vErr.Field)
}

func TestSymptomsNutritionChat(t *testing.T) {
	c, _ := newAuthedClient(t)
	ctx := context.Background()

	result, err := c.AnalyzeSymptoms(ctx, "  headache since morning ")
	require.NoError(t, err)
	assert.Equal(t, "headache since morning", result.RawInput)
	require.Len(t, result.PossibleConditions, 1)

	_, err = c.AnalyzeSymptoms(ctx, "   ")
	assert.True(t, errors.Is(err, client.ErrValidation))

	plan, err := c.GenerateNutritionPlan(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0, plan.RiskContext["count"])

	reply, err := c.SendChatMessage(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "assistant", reply.Role)
	assert.Equal(t, "You said: hello", reply.Content)

	cleared, err := c.ClearChatHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Chat history cleared.", cleared.Message)
}

func TestDashboardSummary(t *testing.T) {
	c, _ := newAuthedClient(t)

	summary, err := c.DashboardSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", summary.UserName)
	assert.Equal(t, 85, summary.HealthScore)
	assert.Contains(t, summary.LatestRisks, "diabetes")
	require.Len(t, summary.RecentActivity, 1)
}

func TestUploadReport(t *testing.T) {
	c, srv := newAuthedClient(t)
	ctx := context.Background()
	content := "%PDF-1.4 fake report"

	report, err := c.UploadReport(ctx, "labs.pdf", "application/pdf", int64(len(content)), strings.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, "labs.pdf", report.FileName)

	uploads := srv.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "application/pdf", uploads[0].ContentType)
	assert.Equal(t, int64(len(content)), uploads[0].Size)

	req, ok := srv.LastRequest("/api/v1/reports/upload")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data"))

	_, err = c.UploadReport(ctx, "notes.txt", "text/plain", 10, strings.NewReader("0123456789"))
	require.Error(t, err)
	assert.Equal(t, "file: Only PDF, PNG, and JPG files are allowed.", err.Error())

	_, err = c.UploadReport(ctx, "big.pdf", "application/pdf", client.MaxReportSize+1, strings.NewReader(""))
	require.Error(t, err)
	assert.Equal(t, "file: File size cannot exceed 10MB.", err.Error())
	assert.Len(t, srv.Uploads(), 1)

	_, err = c.GetReport(ctx, "nope")
	require.Error(t, err)
	assert.Equal(t, "Report not found.", err.Error())
}

// repeatReader yields an endless stream of one byte.
type repeatReader byte

func (r repeatReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r)
	}
	return len(p), nil
}

func TestUploadReport_ReaderLongerThanDeclared(t *testing.T) {
	c, srv := newAuthedClient(t)

	// Declared small, but the reader runs past the size cap
	body := io.LimitReader(repeatReader('a'), client.MaxReportSize+1)
	_, err := c.UploadReport(context.Background(), "big.pdf", "application/pdf", 1024, body)
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrValidation)
	assert.Contains(t, err.Error(), "File size cannot exceed 10MB.")
	assert.Empty(t, srv.Uploads(), "a cut-off file must never be sent")
	_, sent := srv.LastRequest("/api/v1/reports/upload")
	assert.False(t, sent)
}

func TestRevokedTokenExpiresSession(t *testing.T) {
	c, srv := newAuthedClient(t)
	srv.RevokeTokens()

	_, err := c.GetProfile(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, client.ErrSessionExpired))
	assert.Equal(t, client.SessionExpiredMessage, err.Error())
}

func TestNonJSONGatewayError(t *testing.T) {
	srv := apitest.New(t)
	c := client.New(srv.URL)

	err := c.Do(context.Background(), client.Request{Path: "/broken/html"}, nil)
	require.Error(t, err)
	assert.Equal(t, "Server Error 502", err.Error())
}
