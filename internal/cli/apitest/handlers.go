package apitest

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000")
}

func (s *Server) getProfile(c *gin.Context) {
	u := currentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"id":                 "profile-" + u.ID,
		"user_id":            u.ID,
		"height_cm":          172.5,
		"weight_kg":          70.0,
		"blood_type":         "O+",
		"medical_conditions": []string{"asthma"},
		"allergies":          []string{},
	})
}

func (s *Server) updateProfile(c *gin.Context) {
	u := currentUser(c)
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		detail(c, http.StatusUnprocessableEntity, "Invalid request body.")
		return
	}
	body["id"] = "profile-" + u.ID
	body["user_id"] = u.ID
	c.JSON(http.StatusOK, body)
}

func (s *Server) updateName(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{"loc": []string{"query", "name"}, "msg": "Field required", "type": "missing"}}})
		return
	}
	s.mu.Lock()
	currentUser(c).FullName = name
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"message": "Name updated.", "full_name": name})
}

func (s *Server) recordVital(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		detail(c, http.StatusUnprocessableEntity, "Invalid request body.")
		return
	}
	body["id"] = uuid.NewString()
	body["recorded_at"] = now()

	s.mu.Lock()
	s.vitals = append([]map[string]any{body}, s.vitals...)
	s.mu.Unlock()
	c.JSON(http.StatusOK, body)
}

func (s *Server) listVitals(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "30"))
	if err != nil {
		detail(c, http.StatusUnprocessableEntity, "limit must be an integer")
		return
	}

	s.mu.Lock()
	vitals := append([]map[string]any{}, s.vitals...)
	s.mu.Unlock()
	if len(vitals) > limit {
		vitals = vitals[:limit]
	}
	c.JSON(http.StatusOK, vitals)
}

func (s *Server) latestVitals(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.vitals) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "No vitals recorded yet."})
		return
	}
	v := s.vitals[0]
	latest := gin.H{
		"heart_rate":  v["heart_rate"],
		"steps":       v["steps"],
		"source":      v["source"],
		"recorded_at": v["recorded_at"],
	}
	if sys, ok := v["blood_pressure_systolic"]; ok {
		latest["blood_pressure"] = formatBP(sys, v["blood_pressure_diastolic"])
	}
	c.JSON(http.StatusOK, latest)
}

func formatBP(sys, dia any) string {
	f := func(v any) string {
		if n, ok := v.(float64); ok {
			return strconv.FormatFloat(n, 'f', 1, 64)
		}
		return "None"
	}
	return f(sys) + "/" + f(dia)
}

func (s *Server) listMedications(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, append([]map[string]any{}, s.medications...))
}

func (s *Server) addMedication(c *gin.Context) {
	var body struct {
		Name      string  `json:"name" binding:"required"`
		Dosage    string  `json:"dosage" binding:"required"`
		Frequency string  `json:"frequency" binding:"required"`
		Notes     *string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		detail(c, http.StatusUnprocessableEntity, "Invalid request body.")
		return
	}
	med := map[string]any{
		"id": uuid.NewString(), "name": body.Name, "dosage": body.Dosage,
		"frequency": body.Frequency, "notes": body.Notes, "is_active": true,
	}
	s.mu.Lock()
	s.medications = append(s.medications, med)
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"id": med["id"], "name": body.Name, "dosage": body.Dosage, "frequency": body.Frequency})
}

func (s *Server) findMedication(id string) map[string]any {
	for _, m := range s.medications {
		if m["id"] == id {
			return m
		}
	}
	return nil
}

func (s *Server) removeMedication(c *gin.Context) {
	s.mu.Lock()
	med := s.findMedication(c.Param("id"))
	if med != nil {
		med["is_active"] = false
	}
	s.mu.Unlock()
	if med == nil {
		detail(c, http.StatusNotFound, "Medication not found.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Medication deactivated."})
}

func (s *Server) logMedication(c *gin.Context) {
	var body struct {
		MedicationID string `json:"medication_id"`
		Taken        bool   `json:"taken"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		detail(c, http.StatusUnprocessableEntity, "Invalid request body.")
		return
	}
	s.mu.Lock()
	med := s.findMedication(body.MedicationID)
	s.mu.Unlock()
	if med == nil {
		detail(c, http.StatusNotFound, "Medication not found.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Medication logged.", "taken": body.Taken})
}

func (s *Server) medicationHistory(c *gin.Context) {
	c.JSON(http.StatusOK, []gin.H{})
}

func (s *Server) predictRisk(disease string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Age int     `json:"age" binding:"required"`
			BMI float64 `json:"bmi" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			detail(c, http.StatusUnprocessableEntity, "Invalid request body.")
			return
		}
		score := 0.2
		if body.BMI >= 30 {
			score = 0.65
		}
		category := "low"
		if score >= 0.5 {
			category = "high"
		}
		c.JSON(http.StatusOK, gin.H{
			"id": uuid.NewString(), "disease_type": disease, "risk_score": score,
			"risk_category": category, "feature_importance": gin.H{"bmi": 0.4, "age": 0.2},
			"explanation": "Computed by the test server.", "created_at": now(),
		})
	}
}

func (s *Server) analyzeSymptoms(c *gin.Context) {
	var body struct {
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		detail(c, http.StatusUnprocessableEntity, "Invalid request body.")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id": uuid.NewString(), "raw_input": body.Description,
		"classified_symptoms": []string{"headache"},
		"possible_conditions": []gin.H{{"name": "Tension headache", "probability": 0.7}},
		"urgency_level":       "low",
		"recommendations":     []string{"Stay hydrated."},
		"created_at":          now(),
	})
}

func (s *Server) nutritionPlan(c *gin.Context) {
	var risks []map[string]any
	if err := c.ShouldBindJSON(&risks); err != nil {
		detail(c, http.StatusUnprocessableEntity, "Invalid request body.")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":                        uuid.NewString(),
		"risk_context":              gin.H{"count": len(risks)},
		"diet_recommendations":      gin.H{"focus": []string{"vegetables", "whole grains"}},
		"lifestyle_recommendations": gin.H{"exercise": "30 minutes daily"},
		"created_at":                now(),
	})
}

func (s *Server) uploadReport(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{"loc": []string{"body", "file"}, "msg": "Field required", "type": "missing"}}})
		return
	}
	f, err := fh.Open()
	if err != nil {
		detail(c, http.StatusBadRequest, "Unreadable file.")
		return
	}
	defer f.Close()
	n, _ := io.Copy(io.Discard, f)

	ct := fh.Header.Get("Content-Type")
	s.mu.Lock()
	s.uploads = append(s.uploads, Upload{FileName: fh.Filename, ContentType: ct, Size: n})
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"id": uuid.NewString(), "file_name": fh.Filename, "file_type": "pdf",
		"extracted_values": gin.H{"hemoglobin": 13.5}, "ai_summary": "All values within range.",
		"abnormal_flags": []string{}, "created_at": now(),
	})
}

func (s *Server) listReports(c *gin.Context) {
	c.JSON(http.StatusOK, []gin.H{})
}

func (s *Server) getReport(c *gin.Context) {
	detail(c, http.StatusNotFound, "Report not found.")
}

func (s *Server) chatMessage(c *gin.Context) {
	var body struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		detail(c, http.StatusUnprocessableEntity, "Invalid request body.")
		return
	}
	s.mu.Lock()
	s.chat = append(s.chat, body.Message)
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"role": "assistant", "content": "You said: " + body.Message})
}

func (s *Server) clearChat(c *gin.Context) {
	s.mu.Lock()
	s.chat = nil
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"message": "Chat history cleared."})
}

func (s *Server) dashboard(c *gin.Context) {
	u := currentUser(c)
	name := u.FullName
	if name == "" {
		name = u.Email
	}
	c.JSON(http.StatusOK, gin.H{
		"user_name":    name,
		"health_score": 85,
		"latest_risks": gin.H{
			"diabetes": gin.H{"disease_type": "diabetes", "risk_score": 0.2, "risk_category": "low", "created_at": now()},
		},
		"risk_trend":           []gin.H{{"disease_type": "diabetes", "risk_score": 0.2, "created_at": now()}},
		"total_assessments":    1,
		"total_symptom_checks": 0,
		"total_reports":        0,
		"recent_activity":      []gin.H{{"type": "risk", "icon": "🫀", "title": "Diabetes Risk", "desc": "Risk: 20% (low)", "time": now()}},
	})
}
