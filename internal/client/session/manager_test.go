package session

import (
	"context"
	"sync"
	"testing"

	"github.com/dmitrijs2005/fintrack/internal/apitest"
	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/client/services"
	"github.com/dmitrijs2005/fintrack/internal/client/tokenstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	srv   *apitest.Server
	api   *client.Client
	store *tokenstore.MemoryStore
	auth  services.AuthService
	m     *Manager
}

func setup(t *testing.T, credential string) *env {
	t.Helper()

	srv := apitest.New(t)
	store := tokenstore.NewMemoryStore(credential)
	api, err := client.New(srv.URL(), store)
	require.NoError(t, err)

	auth := services.NewAuthService(api, api.Store())
	m := New(auth, api.Store(), nil)
	api.OnUnauthorized(m.Expire)

	return &env{srv: srv, api: api, store: store, auth: auth, m: m}
}

func (e *env) stored(t *testing.T) string {
	t.Helper()
	v, err := e.store.Get(context.Background())
	require.NoError(t, err)
	return v
}

type recorder struct {
	mu       sync.Mutex
	statuses []Status
}

func (r *recorder) observe(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s.Status)
}

func (r *recorder) seen() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Status(nil), r.statuses...)
}

func TestInit_EmptyStore(t *testing.T) {
	e := setup(t, "")
	rec := &recorder{}
	e.m.Subscribe(rec.observe)

	assert.Equal(t, Uninitialized, e.m.State().Status)
	require.NoError(t, e.m.Init(context.Background()))

	assert.Equal(t, Anonymous, e.m.State().Status)
	assert.Nil(t, e.m.State().User)
	assert.Equal(t, []Status{Anonymous}, rec.seen())
	assert.Zero(t, e.srv.Hits("GET /api/auth/me"))
}

func TestInit_ValidCredential(t *testing.T) {
	e := setup(t, "")
	u := e.srv.AddUser("a@example.com", "", "secret1")
	token := e.srv.Token(u.ID)
	require.NoError(t, e.store.Set(context.Background(), token))

	rec := &recorder{}
	e.m.Subscribe(rec.observe)

	require.NoError(t, e.m.Init(context.Background()))

	s := e.m.State()
	assert.Equal(t, Authenticated, s.Status)
	require.NotNil(t, s.User)
	assert.Equal(t, u.ID, s.User.ID)
	assert.Equal(t, token, s.Credential)
	assert.Equal(t, []Status{Initializing, Authenticated}, rec.seen())

	// a second Init does nothing
	require.NoError(t, e.m.Init(context.Background()))
	assert.Equal(t, 1, e.srv.Hits("GET /api/auth/me"))
}

func TestInit_RejectedCredential(t *testing.T) {
	e := setup(t, "")
	u := e.srv.AddUser("a@example.com", "", "secret1")
	require.NoError(t, e.store.Set(context.Background(), e.srv.ExpiredToken(u.ID)))

	rec := &recorder{}
	e.m.Subscribe(rec.observe)

	require.NoError(t, e.m.Init(context.Background()))

	assert.Equal(t, Anonymous, e.m.State().Status)
	assert.Nil(t, e.m.State().User)
	assert.Empty(t, e.m.State().Credential)
	assert.Empty(t, e.stored(t))
	assert.Equal(t, []Status{Initializing, Anonymous}, rec.seen())
}

func TestInit_ServerDown(t *testing.T) {
	e := setup(t, "some-token")
	e.srv.Close()

	require.NoError(t, e.m.Init(context.Background()))
	assert.Equal(t, Anonymous, e.m.State().Status)
	assert.Empty(t, e.stored(t))
}

type gatedAuth struct {
	services.AuthService
	entered chan struct{}
	release chan struct{}
	fail    error
}

func newGatedAuth(auth services.AuthService) *gatedAuth {
	return &gatedAuth{AuthService: auth, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedAuth) GetCurrentUser(ctx context.Context) (*models.User, error) {
	close(g.entered)
	<-g.release
	if g.fail != nil {
		return nil, g.fail
	}
	return g.AuthService.GetCurrentUser(ctx)
}

func TestInit_InitializingUntilResolved(t *testing.T) {
	e := setup(t, "")
	u := e.srv.AddUser("a@example.com", "", "secret1")
	require.NoError(t, e.store.Set(context.Background(), e.srv.Token(u.ID)))

	gate := newGatedAuth(e.auth)
	m := New(gate, e.api.Store(), nil)

	done := make(chan error, 1)
	go func() { done <- m.Init(context.Background()) }()

	<-gate.entered
	s := m.State()
	assert.Equal(t, Initializing, s.Status)
	assert.True(t, s.IsLoading())
	assert.Nil(t, s.User)

	close(gate.release)
	require.NoError(t, <-done)
	assert.Equal(t, Authenticated, m.State().Status)
}

func TestLoginThenLogout(t *testing.T) {
	e := setup(t, "")
	e.srv.AddUser("a@example.com", "", "secret1")
	ctx := context.Background()
	require.NoError(t, e.m.Init(ctx))

	require.NoError(t, e.m.Login(ctx, "a@example.com", "secret1"))
	s := e.m.State()
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, e.stored(t), s.Credential)
	assert.Equal(t, "a@example.com", s.User.DisplayName())

	require.NoError(t, e.m.Logout(ctx))
	assert.Equal(t, Anonymous, e.m.State().Status)
	assert.Nil(t, e.m.State().User)
	assert.Empty(t, e.stored(t))
}

func TestLogin_WrongPasswordLeavesStateUnchanged(t *testing.T) {
	e := setup(t, "")
	e.srv.AddUser("a@example.com", "", "secret1")
	ctx := context.Background()
	require.NoError(t, e.m.Init(ctx))
	require.NoError(t, e.m.Login(ctx, "a@example.com", "secret1"))
	before := e.m.State()

	rec := &recorder{}
	e.m.Subscribe(rec.observe)

	err := e.m.Login(ctx, "a@example.com", "nope")
	require.ErrorIs(t, err, services.ErrInvalidCredentials)

	assert.Equal(t, before, e.m.State())
	assert.Equal(t, before.Credential, e.stored(t))
	assert.Empty(t, rec.seen())
}

func TestLogin_WrongPasswordWhileAnonymous(t *testing.T) {
	e := setup(t, "")
	e.srv.AddUser("a@example.com", "", "secret1")
	ctx := context.Background()
	require.NoError(t, e.m.Init(ctx))

	err := e.m.Login(ctx, "a@example.com", "nope")
	require.ErrorIs(t, err, services.ErrInvalidCredentials)
	assert.Equal(t, Anonymous, e.m.State().Status)
}

func TestRegisterAndMagicLink(t *testing.T) {
	e := setup(t, "")
	e.srv.AddMessengerUser(5, "alice")
	ctx := context.Background()
	require.NoError(t, e.m.Init(ctx))

	_, err := e.m.RequestMagicLink(ctx, "@alice")
	require.NoError(t, err)
	assert.Equal(t, Anonymous, e.m.State().Status)

	require.NoError(t, e.m.VerifyMagicLink(ctx, e.srv.LastCode("alice")))
	assert.Equal(t, "@alice", e.m.State().User.DisplayName())

	require.NoError(t, e.m.Logout(ctx))
	require.NoError(t, e.m.Register(ctx, models.RegisterRequest{Phone: "+15550003", Password: "secret1"}))
	assert.Equal(t, "+15550003", e.m.State().User.DisplayName())
}

func TestWidgetLoginAndSettings(t *testing.T) {
	e := setup(t, "")
	ctx := context.Background()
	require.NoError(t, e.m.Init(ctx))

	require.NoError(t, e.m.LoginWithWidget(ctx, e.srv.SignWidget(models.WidgetPayload{ID: 9, Username: "carol"})))
	assert.False(t, e.m.State().User.HasPassword)
	credential := e.m.State().Credential

	require.NoError(t, e.m.SetPassword(ctx, models.SetPasswordRequest{Email: "carol@example.com", Password: "secret1"}))
	s := e.m.State()
	assert.True(t, s.User.HasPassword)
	assert.Equal(t, credential, s.Credential)

	err := e.m.ConnectWidgetIdentity(ctx, models.WidgetPayload{ID: 10, Hash: "bad", AuthDate: 1})
	require.ErrorIs(t, err, client.ErrValidation)
	assert.True(t, e.m.State().User.HasPassword)
}

func TestRefreshUser(t *testing.T) {
	e := setup(t, "")
	e.srv.AddUser("a@example.com", "", "secret1")
	ctx := context.Background()
	require.NoError(t, e.m.Init(ctx))
	require.NoError(t, e.m.Login(ctx, "a@example.com", "secret1"))

	require.NoError(t, e.m.RefreshUser(ctx))
	assert.True(t, e.m.State().IsAuthenticated())

	e.srv.Revoke(e.stored(t))
	require.NoError(t, e.m.RefreshUser(ctx))
	assert.Equal(t, Anonymous, e.m.State().Status)
	assert.Empty(t, e.stored(t))

	require.NoError(t, e.m.RefreshUser(ctx))
	assert.Equal(t, Anonymous, e.m.State().Status)
}

func TestRefreshUser_LogoutWhileInFlight(t *testing.T) {
	e := setup(t, "")
	e.srv.AddUser("a@example.com", "", "secret1")
	ctx := context.Background()

	gate := newGatedAuth(e.auth)
	m := New(gate, e.api.Store(), nil)
	require.NoError(t, m.Init(ctx))
	require.NoError(t, m.Login(ctx, "a@example.com", "secret1"))

	done := make(chan error, 1)
	go func() { done <- m.RefreshUser(ctx) }()

	<-gate.entered
	require.NoError(t, m.Logout(ctx))
	close(gate.release)
	require.NoError(t, <-done)

	assert.Equal(t, Anonymous, m.State().Status)
	assert.Nil(t, m.State().User)
	assert.Empty(t, e.stored(t))
}

func TestRefreshUser_FailureKeepsNewerSignIn(t *testing.T) {
	e := setup(t, "")
	e.srv.AddUser("a@example.com", "", "secret1")
	e.srv.AddUser("b@example.com", "", "secret2")
	ctx := context.Background()

	gate := newGatedAuth(e.auth)
	gate.fail = client.ErrUnavailable
	m := New(gate, e.api.Store(), nil)
	require.NoError(t, m.Init(ctx))
	require.NoError(t, m.Login(ctx, "a@example.com", "secret1"))

	done := make(chan error, 1)
	go func() { done <- m.RefreshUser(ctx) }()

	<-gate.entered
	require.NoError(t, m.Login(ctx, "b@example.com", "secret2"))
	newer := e.stored(t)
	close(gate.release)
	require.NoError(t, <-done)

	s := m.State()
	require.True(t, s.IsAuthenticated())
	assert.Equal(t, "b@example.com", s.User.DisplayName())
	assert.Equal(t, newer, s.Credential)
	assert.Equal(t, newer, e.stored(t))
}

func TestExpire_IgnoresReplacedCredential(t *testing.T) {
	e := setup(t, "")
	e.srv.AddUser("a@example.com", "", "secret1")
	ctx := context.Background()
	require.NoError(t, e.m.Init(ctx))
	require.NoError(t, e.m.Login(ctx, "a@example.com", "secret1"))

	e.m.Expire(ctx, "some-older-credential")
	assert.True(t, e.m.State().IsAuthenticated())

	e.m.Expire(ctx, e.m.State().Credential)
	assert.Equal(t, Anonymous, e.m.State().Status)
}

func TestExpireOnUnauthorizedResponse(t *testing.T) {
	e := setup(t, "")
	e.srv.AddUser("a@example.com", "", "secret1")
	ctx := context.Background()
	require.NoError(t, e.m.Init(ctx))
	require.NoError(t, e.m.Login(ctx, "a@example.com", "secret1"))

	e.srv.Revoke(e.stored(t))

	_, err := services.NewAccountService(e.api).List(ctx)
	require.ErrorIs(t, err, client.ErrUnauthorized)

	assert.Equal(t, Anonymous, e.m.State().Status)
	assert.Nil(t, e.m.State().User)
	assert.Empty(t, e.stored(t))
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	e := setup(t, "")
	e.srv.AddUser("a@example.com", "", "secret1")
	ctx := context.Background()

	first, second := &recorder{}, &recorder{}
	stop := e.m.Subscribe(first.observe)
	e.m.Subscribe(second.observe)

	require.NoError(t, e.m.Init(ctx))
	stop()
	require.NoError(t, e.m.Login(ctx, "a@example.com", "secret1"))

	assert.Equal(t, []Status{Anonymous}, first.seen())
	assert.Equal(t, []Status{Anonymous, Authenticated}, second.seen())

	// observers may read the manager
	var inside State
	e.m.Subscribe(func(State) { inside = e.m.State() })
	require.NoError(t, e.m.Logout(ctx))
	assert.Equal(t, Anonymous, inside.Status)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "initializing", Initializing.String())
	assert.Equal(t, "anonymous", Anonymous.String())
	assert.Equal(t, "unknown", Status(42).String())
}
