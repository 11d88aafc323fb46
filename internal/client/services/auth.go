package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/client/tokenstore"
)

var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrExpiredOrInvalidCode = errors.New("login code is invalid or expired")
)

// AuthService defines authentication operations against the API.
//
// Contract:
//   - Register, Login, VerifyMagicLink and LoginWithWidget store the issued
//     credential before returning; a store failure fails the call.
//   - RequestMagicLink, GetCurrentUser, SetPassword and
//     ConnectWidgetIdentity never touch the store.
//   - Errors wrap the underlying *client.APIError, so Message can show the
//     server's detail.
type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, identifier, password string) (*models.AuthResponse, error)
	RequestMagicLink(ctx context.Context, username string) (*models.MagicLinkResponse, error)
	VerifyMagicLink(ctx context.Context, code string) (*models.AuthResponse, error)
	LoginWithWidget(ctx context.Context, payload models.WidgetPayload) (*models.AuthResponse, error)
	GetCurrentUser(ctx context.Context) (*models.User, error)
	SetPassword(ctx context.Context, req models.SetPasswordRequest) (*models.User, error)
	ConnectWidgetIdentity(ctx context.Context, payload models.WidgetPayload) (*models.User, error)
}

type authService struct {
	api   API
	store tokenstore.Store
}

// NewAuthService binds the service to an API client and the token store the
// client reads its credential from.
func NewAuthService(api API, store tokenstore.Store) AuthService {
	return &authService{api: api, store: store}
}

func (a *authService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {

	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)

	var resp models.AuthResponse
	err := a.api.Post(client.WithCredentialExchange(ctx), "/auth/register", req, &resp)
	if err != nil {
		if isClientError(err) {
			return nil, fmt.Errorf("register: %w: %w", client.ErrValidation, err)
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	return a.adopt(ctx, &resp)
}

func (a *authService) Login(ctx context.Context, identifier, password string) (*models.AuthResponse, error) {

	req := models.LoginRequest{Login: strings.TrimSpace(identifier), Password: password}

	var resp models.AuthResponse
	err := a.api.Post(client.WithCredentialExchange(ctx), "/auth/login", req, &resp)
	if err != nil {
		if statusIn(err, http.StatusBadRequest, http.StatusUnauthorized) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	return a.adopt(ctx, &resp)
}

func (a *authService) RequestMagicLink(ctx context.Context, username string) (*models.MagicLinkResponse, error) {

	username = NormalizeUsername(username)
	if username == "" {
		return nil, fmt.Errorf("request login code: %w: username is required", client.ErrValidation)
	}

	var resp models.MagicLinkResponse
	err := a.api.Post(client.WithCredentialExchange(ctx), "/auth/login-by-telegram-username",
		models.MagicLinkRequest{TelegramUsername: username}, &resp)
	if err != nil {
		if isClientError(err) {
			return nil, fmt.Errorf("request login code: %w: %w", client.ErrValidation, err)
		}
		return nil, fmt.Errorf("request login code: %w", err)
	}

	return &resp, nil
}

func (a *authService) VerifyMagicLink(ctx context.Context, code string) (*models.AuthResponse, error) {

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrExpiredOrInvalidCode
	}

	var resp models.AuthResponse
	err := a.api.Post(client.WithCredentialExchange(ctx), "/auth/verify-telegram-login",
		models.VerifyMagicLinkRequest{Token: code}, &resp)
	if err != nil {
		if statusIn(err, http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusGone) {
			return nil, fmt.Errorf("%w: %w", ErrExpiredOrInvalidCode, err)
		}
		return nil, fmt.Errorf("verify login code: %w", err)
	}

	return a.adopt(ctx, &resp)
}

func (a *authService) LoginWithWidget(ctx context.Context, payload models.WidgetPayload) (*models.AuthResponse, error) {

	var resp models.AuthResponse
	err := a.api.Post(client.WithCredentialExchange(ctx), "/auth/telegram", payload, &resp)
	if err != nil {
		if statusIn(err, http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("widget login: %w", err)
	}

	return a.adopt(ctx, &resp)
}

func (a *authService) GetCurrentUser(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := a.api.Get(ctx, "/auth/me", nil, &u); err != nil {
		return nil, fmt.Errorf("get current user: %w", err)
	}
	return &u, nil
}

func (a *authService) SetPassword(ctx context.Context, req models.SetPasswordRequest) (*models.User, error) {

	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)

	var u models.User
	if err := a.api.Post(ctx, "/users/me/set-password", req, &u); err != nil {
		return nil, fmt.Errorf("set password: %w", err)
	}
	return &u, nil
}

func (a *authService) ConnectWidgetIdentity(ctx context.Context, payload models.WidgetPayload) (*models.User, error) {
	var u models.User
	if err := a.api.Post(ctx, "/users/me/connect-telegram", payload, &u); err != nil {
		return nil, fmt.Errorf("connect messenger account: %w", err)
	}
	return &u, nil
}

// adopt persists the issued credential.
func (a *authService) adopt(ctx context.Context, resp *models.AuthResponse) (*models.AuthResponse, error) {
	if resp.AccessToken == "" {
		return nil, errors.New("server issued no credential")
	}
	if err := a.store.Set(ctx, resp.AccessToken); err != nil {
		return nil, fmt.Errorf("store credential: %w", err)
	}
	return resp, nil
}

// NormalizeUsername trims whitespace and one leading "@".
func NormalizeUsername(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "@")
}

func statusIn(err error, codes ...int) bool {
	status := client.StatusCode(err)
	for _, c := range codes {
		if status == c {
			return true
		}
	}
	return false
}

func isClientError(err error) bool {
	status := client.StatusCode(err)
	return status >= 400 && status < 500
}
