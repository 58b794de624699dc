package client

import (
	"context"
	"net/http"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	FullName string `json:"full_name,omitempty"`
}

// GoogleLoginRequest carries a Google ID token to exchange for a session token.
type GoogleLoginRequest struct {
	Token string `json:"token" validate:"required"`
}

// TokenResponse is returned by every credential exchange endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token" validate:"required"`
	TokenType   string `json:"token_type"`
}

// User is the authenticated account as reported by /auth/me.
type User struct {
	ID           string     `json:"id" validate:"required"`
	Email        string     `json:"email" validate:"required"`
	FullName     string     `json:"full_name,omitempty"`
	AvatarURL    string     `json:"avatar_url,omitempty"`
	AuthProvider string     `json:"auth_provider"`
	IsVerified   bool       `json:"is_verified"`
	CreatedAt    *Timestamp `json:"created_at,omitempty"`
}

// DisplayName returns the full name, or the email when no name is set.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

// Login exchanges email and password for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	var resp TokenResponse
	err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/v1/auth/login",
		Body:   LoginRequest{Email: email, Password: password},
		Public: true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account and returns its first access token.
func (c *Client) Register(ctx context.Context, email, password, fullName string) (*TokenResponse, error) {
	var resp TokenResponse
	err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/v1/auth/register",
		Body:   RegisterRequest{Email: email, Password: password, FullName: fullName},
		Public: true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GoogleLogin trades a Google ID token for an access token.
func (c *Client) GoogleLogin(ctx context.Context, idToken string) (*TokenResponse, error) {
	var resp TokenResponse
	err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/v1/auth/google",
		Body:   GoogleLoginRequest{Token: idToken},
		Public: true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the user the current token belongs to.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.Do(ctx, Request{Path: "/api/v1/auth/me"}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
