package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/apitest"
	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/client/tokenstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	srv   *apitest.Server
	api   *client.Client
	store *tokenstore.MemoryStore
	auth  AuthService
}

func setup(t *testing.T, credential string) *env {
	t.Helper()

	srv := apitest.New(t)
	store := tokenstore.NewMemoryStore(credential)
	api, err := client.New(srv.URL(), store)
	require.NoError(t, err)

	return &env{srv: srv, api: api, store: store, auth: NewAuthService(api, api.Store())}
}

func (e *env) stored(t *testing.T) string {
	t.Helper()
	v, err := e.store.Get(context.Background())
	require.NoError(t, err)
	return v
}

func TestRegister_ThenCurrentUser(t *testing.T) {
	e := setup(t, "")
	ctx := context.Background()

	resp, err := e.auth.Register(ctx, models.RegisterRequest{Email: " new@example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, resp.AccessToken, e.stored(t))
	require.NotNil(t, resp.User.Email)
	assert.Equal(t, "new@example.com", *resp.User.Email)

	u, err := e.auth.GetCurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, u.ID)
	assert.True(t, u.HasPassword)
}

func TestRegister_Rejected(t *testing.T) {
	e := setup(t, "")
	e.srv.AddUser("taken@example.com", "", "secret1")
	ctx := context.Background()

	_, err := e.auth.Register(ctx, models.RegisterRequest{Email: "taken@example.com", Password: "secret1"})
	require.ErrorIs(t, err, client.ErrValidation)
	assert.Equal(t, "Email already registered", Message(err, "Registration failed"))

	_, err = e.auth.Register(ctx, models.RegisterRequest{Phone: "+15550002", Password: "123"})
	require.ErrorIs(t, err, client.ErrValidation)
	assert.Equal(t, "String should have at least 6 characters", Message(err, "Registration failed"))

	assert.Empty(t, e.stored(t))
}

func TestLogin(t *testing.T) {
	e := setup(t, "")
	e.srv.AddUser("a@example.com", "+15550001", "secret1")
	ctx := context.Background()

	resp, err := e.auth.Login(ctx, "+15550001", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, resp.AccessToken, e.stored(t))
	assert.Equal(t, "a@example.com", resp.User.DisplayName())
}

func TestLogin_WrongPasswordKeepsStoredCredential(t *testing.T) {
	e := setup(t, "")
	u := e.srv.AddUser("a@example.com", "", "secret1")
	prior := e.srv.Token(u.ID)
	require.NoError(t, e.store.Set(context.Background(), prior))

	_, err := e.auth.Login(context.Background(), "a@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, "Incorrect login or password", Message(err, "Login failed"))
	assert.Equal(t, prior, e.stored(t))
}

func TestRequestMagicLink_NormalizesUsername(t *testing.T) {
	e := setup(t, "")
	e.srv.AddMessengerUser(1001, "alice")
	ctx := context.Background()

	for _, input := range []string{"@alice", "alice", "  @alice "} {
		resp, err := e.auth.RequestMagicLink(ctx, input)
		require.NoError(t, err, input)
		assert.Equal(t, int(apitest.CodeTTL.Seconds()), resp.ExpiresIn)
	}

	assert.Equal(t, 3, e.srv.Hits("POST /api/auth/login-by-telegram-username"))
	assert.NotEmpty(t, e.srv.LastCode("alice"))
	assert.Empty(t, e.stored(t))
}

func TestRequestMagicLink_Invalid(t *testing.T) {
	e := setup(t, "")
	ctx := context.Background()

	_, err := e.auth.RequestMagicLink(ctx, " @ ")
	require.ErrorIs(t, err, client.ErrValidation)
	assert.Zero(t, e.srv.Hits("POST /api/auth/login-by-telegram-username"))

	_, err = e.auth.RequestMagicLink(ctx, "nobody")
	require.ErrorIs(t, err, client.ErrValidation)
	assert.Equal(t, 404, client.StatusCode(err))
}

func TestVerifyMagicLink(t *testing.T) {
	e := setup(t, "")
	u := e.srv.AddMessengerUser(1001, "alice")
	ctx := context.Background()

	_, err := e.auth.RequestMagicLink(ctx, "alice")
	require.NoError(t, err)
	code := e.srv.LastCode("alice")

	resp, err := e.auth.VerifyMagicLink(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, u.ID, resp.User.ID)
	assert.Equal(t, resp.AccessToken, e.stored(t))

	// codes are single use
	_, err = e.auth.VerifyMagicLink(ctx, code)
	assert.ErrorIs(t, err, ErrExpiredOrInvalidCode)

	_, err = e.auth.VerifyMagicLink(ctx, "  ")
	assert.ErrorIs(t, err, ErrExpiredOrInvalidCode)
}

func TestVerifyMagicLink_Expired(t *testing.T) {
	e := setup(t, "")
	e.srv.AddMessengerUser(1001, "alice")
	ctx := context.Background()

	_, err := e.auth.RequestMagicLink(ctx, "alice")
	require.NoError(t, err)

	e.srv.Advance(apitest.CodeTTL + time.Minute)

	_, err = e.auth.VerifyMagicLink(ctx, e.srv.LastCode("alice"))
	require.ErrorIs(t, err, ErrExpiredOrInvalidCode)
	assert.Equal(t, 410, client.StatusCode(err))
	assert.Empty(t, e.stored(t))
}

func TestLoginWithWidget(t *testing.T) {
	e := setup(t, "")
	ctx := context.Background()

	p := e.srv.SignWidget(models.WidgetPayload{ID: 77, FirstName: "Bob", Username: "bob"})
	resp, err := e.auth.LoginWithWidget(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "@bob", resp.User.DisplayName())
	assert.Equal(t, resp.AccessToken, e.stored(t))

	require.NoError(t, e.store.Set(ctx, ""))
	p.Username = "mallory"
	_, err = e.auth.LoginWithWidget(ctx, p)
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Empty(t, e.stored(t))
}

func TestSetPasswordAndConnect(t *testing.T) {
	e := setup(t, "")
	ctx := context.Background()

	p := e.srv.SignWidget(models.WidgetPayload{ID: 77, Username: "bob"})
	_, err := e.auth.LoginWithWidget(ctx, p)
	require.NoError(t, err)

	_, err = e.auth.SetPassword(ctx, models.SetPasswordRequest{Password: "secret1"})
	require.ErrorIs(t, err, client.ErrValidation)
	assert.Equal(t, "Email or phone is required", Message(err, ""))

	u, err := e.auth.SetPassword(ctx, models.SetPasswordRequest{Email: "bob@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.True(t, u.HasPassword)

	_, err = e.auth.SetPassword(ctx, models.SetPasswordRequest{Email: "bob@example.com", Password: "secret2"})
	require.ErrorIs(t, err, client.ErrValidation)
	assert.Equal(t, "Password already set", Message(err, ""))

	_, err = e.auth.Login(ctx, "bob@example.com", "secret1")
	require.NoError(t, err)

	other := e.srv.SignWidget(models.WidgetPayload{ID: 88, Username: "bobby"})
	u, err = e.auth.ConnectWidgetIdentity(ctx, other)
	require.NoError(t, err)
	require.NotNil(t, u.TelegramUsername)
	assert.Equal(t, "bobby", *u.TelegramUsername)
}

func TestGetCurrentUser_Rejected(t *testing.T) {
	e := setup(t, "garbage")

	_, err := e.auth.GetCurrentUser(context.Background())
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Empty(t, e.stored(t))
}

func TestUnavailable(t *testing.T) {
	e := setup(t, "")
	e.srv.Close()

	_, err := e.auth.Login(context.Background(), "a@example.com", "secret1")
	require.ErrorIs(t, err, client.ErrUnavailable)
	assert.False(t, errors.Is(err, ErrInvalidCredentials))
	assert.Equal(t, "Login failed", Message(err, "Login failed"))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "fallback", Message(errors.New("boom"), "fallback"))
	assert.Equal(t, "fallback", Message(nil, "fallback"))
	assert.Equal(t, "bad", Message(&client.APIError{Status: 400, Detail: "bad"}, "fallback"))
	assert.Equal(t, "a; b", Message(&client.APIError{Status: 422, Detail: `[{"msg":"a"},{"msg":"b"}]`}, "fallback"))
	assert.Equal(t, "fallback", Message(&client.APIError{Status: 422, Detail: `[{"loc":"x"}]`}, "fallback"))
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "alice", NormalizeUsername("@alice"))
	assert.Equal(t, "alice", NormalizeUsername(" alice\t"))
	assert.Equal(t, "@alice", NormalizeUsername("@@alice"))
	assert.Equal(t, "", NormalizeUsername("@"))
}
