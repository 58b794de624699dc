package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "healthlens-cli"

	// maxLoggedBody caps how much of a non-JSON error body is written to the debug log.
	maxLoggedBody = 2048
)

// Credentials is the token holder consulted on every call. The session store
// implements it; the client never keeps a token of its own.
type Credentials interface {
	// Token returns the current bearer token, or "" when there is none.
	Token() string
	// Invalidate discards token after the API rejected it. token is the
	// bearer the rejected request carried ("" when it had none); implementations
	// ignore it when it is no longer the current token. It must be safe to call
	// more than once.
	Invalidate(token string)
}

// Client is the single HTTP boundary to the HealthLens API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	credentials Credentials
	logger      zerolog.Logger
	environment string
	userAgent   string
	timeout     time.Duration
	validate    *validator.Validate
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client, e.g. for tests or proxies.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithCredentials sets the token holder used for bearer injection.
func WithCredentials(creds Credentials) Option {
	return func(c *Client) {
		c.credentials = creds
	}
}

// WithLogger sets the logger. Defaults to a disabled logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithEnvironment sets the runtime environment. Outside "production" the
// bodies of non-JSON error responses are written to the debug log.
func WithEnvironment(env string) Option {
	return func(c *Client) {
		c.environment = env
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithTimeout sets the timeout of the default HTTP client. It has no effect
// when WithHTTPClient is also given.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// New creates a new API client for the server at baseURL
// (e.g. "http://localhost:8000").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		logger:      zerolog.Nop(),
		environment: "production",
		userAgent:   defaultUserAgent,
		timeout:     defaultTimeout,
		validate:    NewValidator(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
		}
	}

	return c
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// SetCredentials attaches the token holder after construction. The session
// store needs a client to log in, and the client needs the store for tokens.
func (c *Client) SetCredentials(creds Credentials) {
	c.credentials = creds
}

// BaseURL returns the API base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// File is one file part of a multipart form.
type File struct {
	Field       string
	Name        string
	ContentType string
	Reader      io.Reader
}

// Form is a multipart/form-data body.
type Form struct {
	Fields map[string]string
	Files  []File
}

// Request describes one API call.
type Request struct {
	// Method defaults to GET.
	Method string
	// Path is relative to the base URL, e.g. "/api/v1/auth/me".
	Path  string
	Query url.Values
	// Body is marshalled as JSON. Ignored when Form is set.
	Body any
	// Form is sent as multipart/form-data.
	Form *Form
	// Header overrides default headers. Authorization and, for multipart
	// bodies, Content-Type are always decided by the client.
	Header http.Header
	// Public marks credential-exchange calls. They never carry a bearer token
	// and a 401 on them is an ordinary rejection.
	Public bool
}

// Do performs the request and decodes a successful JSON body into out. out
// may be nil when the body is not needed.
func (c *Client) Do(ctx context.Context, r Request, out any) error {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	reqURL := c.baseURL + r.Path
	if len(r.Query) > 0 {
		reqURL += "?" + r.Query.Encode()
	}

	body, contentType, err := encodeBody(r)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range r.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	requestID := ulid.Make().String()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	// A caller override must never smuggle a credential in.
	httpReq.Header.Del("Authorization")
	token := c.token(r)
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	log := c.logger.With().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", r.Path).
		Logger()

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Debug().Err(err).Msg("API call failed before a response was received")
		return &NetworkError{Method: method, URL: reqURL, Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Method: method, URL: reqURL, Cause: fmt.Errorf("failed to read response body: %w", err)}
	}

	log.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("API call completed")

	if resp.StatusCode == http.StatusUnauthorized && !r.Public {
		if c.credentials != nil {
			c.credentials.Invalidate(token)
		}
		log.Info().Msg("API rejected the session token")
		return &SessionExpiredError{Path: r.Path}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.rejection(log, resp, respBody)
	}

	if out == nil {
		return nil
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		if resp.StatusCode == http.StatusNoContent {
			return nil
		}
		return &SchemaError{Path: r.Path, Err: errors.New("empty response body")}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &SchemaError{Path: r.Path, Err: err}
	}

	if err := c.checkSchema(out); err != nil {
		return &SchemaError{Path: r.Path, Err: err}
	}

	return nil
}

func (c *Client) token(r Request) string {
	if r.Public || c.credentials == nil {
		return ""
	}
	return c.credentials.Token()
}

// rejection converts a non-2xx, non-401 response into a RequestError.
func (c *Client) rejection(log zerolog.Logger, resp *http.Response, body []byte) error {
	status := resp.StatusCode

	if !isJSON(resp.Header.Get("Content-Type")) {
		if c.environment != "production" {
			text := string(body)
			if len(text) > maxLoggedBody {
				text = text[:maxLoggedBody]
			}
			log.Debug().Int("status", status).Str("body", text).Msg("API returned a non-JSON error")
		}
		return &RequestError{StatusCode: status, Message: fmt.Sprintf("Server Error %d", status)}
	}

	var errBody struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &errBody); err != nil {
		return &RequestError{StatusCode: status, Message: "Request failed"}
	}

	if msg := detailMessage(errBody.Detail); msg != "" {
		return &RequestError{StatusCode: status, Message: msg}
	}
	return &RequestError{StatusCode: status, Message: fmt.Sprintf("Error %d", status)}
}

// detailMessage extracts a message from the "detail" field. FastAPI sends a
// string for HTTPException and a list of {loc, msg, type} for body validation.
func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return ""
}

func isJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/json")
}

func encodeBody(r Request) (io.Reader, string, error) {
	if r.Form != nil {
		return encodeForm(r.Form)
	}
	if r.Body == nil {
		return nil, "", nil
	}

	jsonData, err := json.Marshal(r.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request: %w", err)
	}
	return bytes.NewReader(jsonData), "application/json", nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeForm(form *Form) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for name, value := range form.Fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", name, err)
		}
	}

	for _, f := range form.Files {
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(f.Field), quoteEscaper.Replace(f.Name)))
		h.Set("Content-Type", ct)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create form file %s: %w", f.Name, err)
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}

// checkSchema runs struct validation on a decoded result. Slices are checked
// element by element, anything else that is not a struct passes.
func (c *Client) checkSchema(out any) error {
	v := reflect.ValueOf(out)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		return c.validate.Struct(v.Addr().Interface())
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			elem := v.Index(i)
			for elem.Kind() == reflect.Pointer {
				if elem.IsNil() {
					return fmt.Errorf("item %d is null", i)
				}
				elem = elem.Elem()
			}
			if elem.Kind() != reflect.Struct {
				continue
			}
			if err := c.validate.Struct(elem.Addr().Interface()); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
	}
	return nil
}
