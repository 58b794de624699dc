package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// fakeCredentials is an in-memory token holder for testing
type fakeCredentials struct {
	mu          sync.Mutex
	token           string
	invalidated     int
	invalidatedWith []string
}

func (f *fakeCredentials) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeCredentials) Invalidate(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidatedWith = append(f.invalidatedWith, token)
	if token == f.token {
		f.token = ""
	}
	f.invalidated++
}

// captureServer answers every request with status/contentType/body and
// remembers the last request it saw.
type captureServer struct {
	*httptest.Server
	mu   sync.Mutex
	last *http.Request
	body []byte
}

func newCaptureServer(t *testing.T, status int, contentType, body string) *captureServer {
	t.Helper()
	cs := &captureServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		cs.mu.Lock()
		cs.last = r.Clone(context.Background())
		cs.body = data
		cs.mu.Unlock()

		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *captureServer) lastRequest() (*http.Request, []byte) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.last, cs.body
}

func TestDo_AttachesBearerWhenTokenPresent(t *testing.T) {
	srv := newCaptureServer(t, http.StatusOK, "application/json", `{}`)
	creds := &fakeCredentials{token: "tok-123"}
	c := New(srv.URL, WithCredentials(creds))

	require.NoError(t, c.Do(context.Background(), Request{Path: "/api/v1/anything"}, nil))

	req, _ := srv.lastRequest()
	assert.Equal(t, "Bearer tok-123", req.Header.Get("Authorization"))
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.NotEmpty(t, req.Header.Get("X-Request-ID"))
}

func TestDo_OmitsBearerWithoutToken(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
	}{
		{name: "no credentials", creds: nil},
		{name: "empty token", creds: &fakeCredentials{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newCaptureServer(t, http.StatusOK, "application/json", `{}`)
			c := New(srv.URL, WithCredentials(tt.creds))

			err := c.Do(context.Background(), Request{
				Path:   "/api/v1/anything",
				Header: http.Header{"Authorization": {"Bearer smuggled"}},
			}, nil)
			require.NoError(t, err)

			req, _ := srv.lastRequest()
			assert.Empty(t, req.Header.Get("Authorization"))
		})
	}
}

func TestDo_PublicRequestNeverCarriesToken(t *testing.T) {
	srv := newCaptureServer(t, http.StatusOK, "application/json", `{}`)
	c := New(srv.URL, WithCredentials(&fakeCredentials{token: "tok-123"}))

	require.NoError(t, c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/api/v1/auth/login", Public: true}, nil))

	req, _ := srv.lastRequest()
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestDo_JSONBody(t *testing.T) {
	srv := newCaptureServer(t, http.StatusOK, "application/json", `{"ok":true}`)
	c := New(srv.URL)

	var out struct {
		OK bool `json:"ok"`
	}
	err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/api/v1/things",
		Body:   map[string]string{"name": "x"},
	}, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)

	req, body := srv.lastRequest()
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"name":"x"}`, string(body))
}

func TestDo_MultipartNeverSendsJSONContentType(t *testing.T) {
	srv := newCaptureServer(t, http.StatusOK, "application/json", `{}`)
	c := New(srv.URL)

	err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/api/v1/reports/upload",
		Header: http.Header{"Content-Type": {"application/json"}},
		Form: &Form{
			Fields: map[string]string{"note": "fasting"},
			Files: []File{{
				Field:       "file",
				Name:        "labs.pdf",
				ContentType: "application/pdf",
				Reader:      strings.NewReader("%PDF-1.4"),
			}},
		},
	}, nil)
	require.NoError(t, err)

	req, body := srv.lastRequest()
	ct := req.Header.Get("Content-Type")
	assert.True(t, strings.HasPrefix(ct, "multipart/form-data; boundary="), "got %q", ct)
	assert.NotContains(t, ct, "application/json")
	assert.Contains(t, string(body), `filename="labs.pdf"`)
	assert.Contains(t, string(body), "Content-Type: application/pdf")
	assert.Contains(t, string(body), "fasting")
}

func TestDo_UnauthorizedExpiresSession(t *testing.T) {
	srv := newCaptureServer(t, http.StatusUnauthorized, "application/json", `{"detail":"Could not validate credentials"}`)
	creds := &fakeCredentials{token: "stale"}
	c := New(srv.URL, WithCredentials(creds))

	for _, path := range []string{"/api/v1/auth/me", "/api/v1/vitals/", "/api/v1/whatever"} {
		err := c.Do(context.Background(), Request{Path: path}, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrSessionExpired))
		assert.Equal(t, "Session expired. Please log in again.", err.Error())

		var expired *SessionExpiredError
		require.True(t, errors.As(err, &expired))
		assert.Equal(t, path, expired.Path)
	}

	assert.Empty(t, creds.Token())
	assert.Equal(t, 3, creds.invalidated)
	// Only the first call carried the bearer; the rest went out without one.
	assert.Equal(t, []string{"stale", "", ""}, creds.invalidatedWith)
}

func TestDo_UnauthorizedReportsTheTokenItSent(t *testing.T) {
	received := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(received)
		<-release
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	}))
	defer srv.Close()

	creds := &fakeCredentials{token: "OLD"}
	c := New(srv.URL, WithCredentials(creds))

	done := make(chan error, 1)
	go func() {
		done <- c.Do(context.Background(), Request{Path: "/api/v1/slow"}, nil)
	}()

	<-received
	// A new login lands while the old request is in flight
	creds.mu.Lock()
	creds.token = "NEW"
	creds.mu.Unlock()
	close(release)

	err := <-done
	assert.True(t, errors.Is(err, ErrSessionExpired))
	assert.Equal(t, []string{"OLD"}, creds.invalidatedWith)
	assert.Equal(t, "NEW", creds.Token())
}

func TestDo_UnauthorizedOnPublicIsRejection(t *testing.T) {
	srv := newCaptureServer(t, http.StatusUnauthorized, "application/json", `{"detail":"Invalid credentials."}`)
	creds := &fakeCredentials{token: "keep-me"}
	c := New(srv.URL, WithCredentials(creds))

	err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/api/v1/auth/login", Public: true}, nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSessionExpired))
	assert.True(t, errors.Is(err, ErrRequestRejected))
	assert.Equal(t, "Invalid credentials.", err.Error())
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.Equal(t, "keep-me", creds.Token())
}

func TestDo_ErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		want        string
	}{
		{
			name:        "detail string",
			status:      http.StatusBadRequest,
			contentType: "application/json",
			body:        `{"detail":"X"}`,
			want:        "X",
		},
		{
			name:        "no detail field",
			status:      http.StatusNotFound,
			contentType: "application/json",
			body:        `{"error":"nope"}`,
			want:        "Error 404",
		},
		{
			name:        "empty detail",
			status:      http.StatusConflict,
			contentType: "application/json; charset=utf-8",
			body:        `{"detail":""}`,
			want:        "Error 409",
		},
		{
			name:        "validation array",
			status:      http.StatusUnprocessableEntity,
			contentType: "application/json",
			body:        `{"detail":[{"loc":["body","age"],"msg":"Field required","type":"missing"},{"loc":["body","bmi"],"msg":"Input should be a valid number","type":"float_parsing"}]}`,
			want:        "Field required; Input should be a valid number",
		},
		{
			name:        "unparseable json",
			status:      http.StatusInternalServerError,
			contentType: "application/json",
			body:        `{not json`,
			want:        "Request failed",
		},
		{
			name:        "html body",
			status:      http.StatusBadGateway,
			contentType: "text/html",
			body:        `<html>bad gateway</html>`,
			want:        "Server Error 502",
		},
		{
			name:   "no content type",
			status: http.StatusInternalServerError,
			body:   `Internal Server Error`,
			want:   "Server Error 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newCaptureServer(t, tt.status, tt.contentType, tt.body)
			c := New(srv.URL, WithEnvironment("development"))

			err := c.Do(context.Background(), Request{Path: "/api/v1/x"}, nil)
			require.Error(t, err)

			var reqErr *RequestError
			require.True(t, errors.As(err, &reqErr))
			assert.Equal(t, tt.want, reqErr.Message)
			assert.Equal(t, tt.status, reqErr.StatusCode)
			assert.False(t, errors.Is(err, ErrNetwork))
		})
	}
}

func TestDo_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url)
	err := c.Do(context.Background(), Request{Path: "/api/v1/auth/me"}, nil)
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrNetwork))
	assert.False(t, errors.Is(err, ErrRequestRejected))
	assert.Contains(t, strings.ToLower(err.Error()), "network")

	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, http.MethodGet, netErr.Method)
}

func TestDo_ContextCanceled(t *testing.T) {
	srv := newCaptureServer(t, http.StatusOK, "application/json", `{}`)
	c := New(srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Do(ctx, Request{Path: "/api/v1/auth/me"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, errors.Is(err, ErrNetwork))
}

func TestDo_SchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing required field", body: `{"email":"a@b.com"}`},
		{name: "wrong type", body: `{"id":42,"email":"a@b.com"}`},
		{name: "not json", body: `hello`},
		{name: "empty body", body: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newCaptureServer(t, http.StatusOK, "application/json", tt.body)
			c := New(srv.URL)

			var user User
			err := c.Do(context.Background(), Request{Path: "/api/v1/auth/me"}, &user)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSchema))

			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr))
			assert.Equal(t, "/api/v1/auth/me", schemaErr.Path)
		})
	}
}

func TestDo_SchemaChecksSliceItems(t *testing.T) {
	srv := newCaptureServer(t, http.StatusOK, "application/json", `[{"id":"m1","name":"Metformin"},{"id":"","name":"Aspirin"}]`)
	c := New(srv.URL)

	_, err := c.ListMedications(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchema))
	assert.Contains(t, err.Error(), "item 1")
}

func TestDo_NoContent(t *testing.T) {
	srv := newCaptureServer(t, http.StatusNoContent, "", "")
	c := New(srv.URL)

	var out map[string]any
	require.NoError(t, c.Do(context.Background(), Request{Method: http.MethodDelete, Path: "/api/v1/x"}, &out))
}

func TestDo_QueryAndBaseURLJoin(t *testing.T) {
	srv := newCaptureServer(t, http.StatusOK, "application/json", `[]`)
	c := New(srv.URL + "/")

	_, err := c.ListVitals(context.Background(), 5)
	require.NoError(t, err)

	req, _ := srv.lastRequest()
	assert.Equal(t, "/api/v1/vitals/", req.URL.Path)
	assert.Equal(t, "5", req.URL.Query().Get("limit"))
}

func TestDecode_NaiveTimestamps(t *testing.T) {
	var u User
	err := json.Unmarshal([]byte(`{"id":"u1","email":"a@b.com","created_at":"2025-01-15T09:30:00.123456"}`), &u)
	require.NoError(t, err)
	require.NotNil(t, u.CreatedAt)
	assert.Equal(t, 2025, u.CreatedAt.Year())
	assert.Equal(t, 9, u.CreatedAt.UTC().Hour())

	err = json.Unmarshal([]byte(`{"id":"u1","email":"a@b.com","created_at":"2025-01-15T09:30:00+02:00"}`), &u)
	require.NoError(t, err)
	assert.Equal(t, 7, u.CreatedAt.UTC().Hour())

	err = json.Unmarshal([]byte(`{"id":"u1","email":"a@b.com","created_at":"yesterday"}`), &u)
	assert.Error(t, err)
}

func TestNetworkFailure_NoLeakedGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)

	transport := &http.Transport{}
	defer transport.CloseIdleConnections()

	c := New("http://127.0.0.1:1", WithHTTPClient(&http.Client{Transport: transport}))
	err := c.Do(context.Background(), Request{Path: "/api/v1/auth/me"}, nil)
	assert.True(t, errors.Is(err, ErrNetwork))
}
