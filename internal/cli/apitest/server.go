// Package apitest runs an in-process fake of the HealthLens API for tests.
// It issues HS256 JWTs, enforces bearer auth on protected routes and answers
// errors with FastAPI's {"detail": ...} body.
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// GoogleIDToken is the only provider token the fake accepts.
	GoogleIDToken = "valid-google-id-token"

	secret = "apitest-secret"
)

// User is an account known to the fake.
type User struct {
	ID           string
	Email        string
	Password     string
	FullName     string
	AuthProvider string
}

// RecordedRequest is what the fake saw of one call.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
}

// Server is a running fake API.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	users       map[string]*User // by email
	generation  int
	requests    []RecordedRequest
	medications []map[string]any
	vitals      []map[string]any
	chat        []string
	uploads     []Upload
	meFailures  int
}

// Upload is a report received by the fake.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
}

type claims struct {
	UserID     string `json:"sub"`
	Generation int    `json:"gen"`
	jwt.RegisteredClaims
}

var passwordRules = []struct {
	re  *regexp.Regexp
	msg string
}{
	{regexp.MustCompile(`[A-Z]`), "Password must contain at least one uppercase letter."},
	{regexp.MustCompile(`[a-z]`), "Password must contain at least one lowercase letter."},
	{regexp.MustCompile(`[0-9]`), "Password must contain at least one digit."},
	{regexp.MustCompile(`[^A-Za-z0-9]`), "Password must contain at least one special character."},
}

// New starts a fake API and stops it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{users: make(map[string]*User)}
	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

// AddUser registers an email/password account and returns it.
func (s *Server) AddUser(email, password, fullName string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &User{ID: uuid.NewString(), Email: email, Password: password, FullName: fullName, AuthProvider: "email"}
	s.users[email] = u
	return u
}

// IssueToken returns a valid access token for u.
func (s *Server) IssueToken(u *User) string {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID:     u.ID,
		Generation: gen,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(7 * 24 * time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	return signed
}

// RevokeTokens makes every token issued so far answer 401.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

// FailNextMe makes the next n calls to /auth/me answer 500.
func (s *Server) FailNextMe(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meFailures = n
}

// Requests returns every request received so far.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// LastRequest returns the most recent request to path.
func (s *Server) LastRequest(path string) (RecordedRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].Path == path {
			return s.requests[i], true
		}
	}
	return RecordedRequest{}, false
}

// Uploads returns the reports received so far.
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(s.record)

	v1 := r.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/login", s.login)
	authGroup.POST("/register", s.register)
	authGroup.POST("/google", s.googleLogin)

	protected := v1.Group("")
	protected.Use(s.requireAuth)
	protected.GET("/auth/me", s.me)

	protected.GET("/profile/", s.getProfile)
	protected.PUT("/profile/", s.updateProfile)
	protected.PUT("/profile/name", s.updateName)

	protected.POST("/vitals/", s.recordVital)
	protected.GET("/vitals/", s.listVitals)
	protected.GET("/vitals/latest", s.latestVitals)

	protected.GET("/medications/", s.listMedications)
	protected.POST("/medications/", s.addMedication)
	protected.DELETE("/medications/:id", s.removeMedication)
	protected.POST("/medications/log", s.logMedication)
	protected.GET("/medications/history", s.medicationHistory)

	protected.POST("/risk/diabetes", s.predictRisk("diabetes"))
	protected.POST("/risk/heart-disease", s.predictRisk("heart_disease"))
	protected.POST("/symptoms/analyze", s.analyzeSymptoms)
	protected.POST("/nutrition/plan", s.nutritionPlan)

	protected.POST("/reports/upload", s.uploadReport)
	protected.GET("/reports/", s.listReports)
	protected.GET("/reports/:id", s.getReport)

	protected.POST("/chat/message", s.chatMessage)
	protected.DELETE("/chat/history", s.clearChat)

	protected.GET("/dashboard/summary", s.dashboard)

	r.GET("/broken/html", func(c *gin.Context) {
		c.Data(http.StatusBadGateway, "text/html", []byte("<html>bad gateway</html>"))
	})

	return r
}

func (s *Server) record(c *gin.Context) {
	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Method: c.Request.Method,
		Path:   c.Request.URL.Path,
		Header: c.Request.Header.Clone(),
	})
	s.mu.Unlock()
	c.Next()
}

func detail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

func (s *Server) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		detail(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	parsed := &claims{}
	_, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), parsed, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})

	s.mu.Lock()
	gen := s.generation
	var user *User
	for _, u := range s.users {
		if u.ID == parsed.UserID {
			user = u
		}
	}
	s.mu.Unlock()

	if err != nil || parsed.Generation != gen || user == nil {
		detail(c, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	c.Set("user", user)
	c.Next()
}

func currentUser(c *gin.Context) *User {
	return c.MustGet("user").(*User)
}

func (s *Server) tokenResponse(c *gin.Context, status int, u *User) {
	c.JSON(status, gin.H{"access_token": s.IssueToken(u), "token_type": "bearer"})
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{"loc": []string{"body"}, "msg": "Field required", "type": "missing"}}})
		return
	}

	s.mu.Lock()
	u, ok := s.users[req.Email]
	s.mu.Unlock()
	if !ok || u.Password != req.Password {
		detail(c, http.StatusUnauthorized, "Invalid credentials.")
		return
	}
	s.tokenResponse(c, http.StatusOK, u)
}

func (s *Server) register(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusUnprocessableEntity, "Invalid request body.")
		return
	}

	if len(req.Password) < 8 {
		detail(c, http.StatusUnprocessableEntity, "Password must be at least 8 characters long.")
		return
	}
	for _, rule := range passwordRules {
		if !rule.re.MatchString(req.Password) {
			detail(c, http.StatusUnprocessableEntity, rule.msg)
			return
		}
	}

	s.mu.Lock()
	_, exists := s.users[req.Email]
	s.mu.Unlock()
	if exists {
		detail(c, http.StatusBadRequest, "Email already registered.")
		return
	}

	u := s.AddUser(req.Email, req.Password, req.FullName)
	s.tokenResponse(c, http.StatusCreated, u)
}

func (s *Server) googleLogin(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Token != GoogleIDToken {
		detail(c, http.StatusUnauthorized, "Invalid Google token.")
		return
	}

	const email = "google.user@example.com"
	s.mu.Lock()
	u, ok := s.users[email]
	if !ok {
		u = &User{ID: uuid.NewString(), Email: email, FullName: "Google User", AuthProvider: "google"}
		s.users[email] = u
	}
	s.mu.Unlock()
	s.tokenResponse(c, http.StatusOK, u)
}

func (s *Server) me(c *gin.Context) {
	s.mu.Lock()
	fail := s.meFailures > 0
	if fail {
		s.meFailures--
	}
	s.mu.Unlock()
	if fail {
		detail(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	u := currentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"id":            u.ID,
		"email":         u.Email,
		"full_name":     u.FullName,
		"avatar_url":    nil,
		"auth_provider": u.AuthProvider,
		"is_verified":   false,
		"created_at":    "2025-01-15T09:30:00.123456",
	})
}
