// Package models defines the wire types exchanged with the FinTrack REST API.
package models

import "strconv"

// AuthResponse is returned by every endpoint that issues a credential.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// RegisterRequest is the body of POST /auth/register. At least one of
// Email and Phone must be set; callers enforce that.
type RegisterRequest struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /auth/login. Login is an email or a phone.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// MagicLinkRequest is the body of POST /auth/login-by-telegram-username.
type MagicLinkRequest struct {
	TelegramUsername string `json:"telegram_username"`
}

// MagicLinkResponse acknowledges that a one-time code was sent out of band.
type MagicLinkResponse struct {
	Message   string `json:"message"`
	ExpiresIn int    `json:"expires_in"`
}

// VerifyMagicLinkRequest exchanges a one-time code (or link token).
type VerifyMagicLinkRequest struct {
	Token string `json:"token"`
}

// WidgetPayload is the identity assertion produced by the messenger login
// widget. The signature (Hash) is checked by the server only.
type WidgetPayload struct {
	ID        int64  `json:"id"`
	Hash      string `json:"hash"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty"`
	AuthDate  int64  `json:"auth_date"`
}

// SetPasswordRequest attaches password login to an account that has none.
type SetPasswordRequest struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
