// Package session holds the process-wide authentication state of the
// client: who is signed in, with which credential, and whether the stored
// credential is still being validated.
//
// Manager is the only writer of that state. Views read snapshots through
// State and react to transitions through Subscribe; observers run after
// every transition, outside the manager's lock.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/client/services"
	"github.com/dmitrijs2005/fintrack/internal/client/tokenstore"
	"github.com/dmitrijs2005/fintrack/internal/logging"
)

type observer struct {
	id int
	fn func(State)
}

type Manager struct {
	auth  services.AuthService
	store tokenstore.Store
	log   logging.Logger

	mu        sync.Mutex
	state     State
	observers []observer
	nextID    int

	initOnce sync.Once
	initErr  error
}

// New returns a manager in the Uninitialized state. store must be the same
// store the auth service writes to.
func New(auth services.AuthService, store tokenstore.Store, log logging.Logger) *Manager {
	if log == nil {
		log = logging.Nop()
	}
	return &Manager{auth: auth, store: store, log: log}
}

// State returns the current snapshot.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers fn for every later transition and returns a function
// that removes it.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	m.observers = append(m.observers, observer{id: id, fn: fn})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, o := range m.observers {
			if o.id == id {
				m.observers = append(m.observers[:i:i], m.observers[i+1:]...)
				return
			}
		}
	}
}

// Init resolves the stored credential once. Later calls return the first
// result without doing anything.
func (m *Manager) Init(ctx context.Context) error {
	m.initOnce.Do(func() {
		m.initErr = m.init(ctx)
	})
	return m.initErr
}

func (m *Manager) init(ctx context.Context) error {

	credential, err := m.store.Get(ctx)
	if err != nil {
		m.set(State{Status: Anonymous})
		return fmt.Errorf("read stored credential: %w", err)
	}

	if credential == "" {
		m.set(State{Status: Anonymous})
		return nil
	}

	m.set(State{Status: Initializing, Credential: credential})

	user, err := m.auth.GetCurrentUser(ctx)
	if err != nil {
		m.log.Warn(ctx, "stored credential rejected, starting signed out", "error", err)
		m.drop(ctx, credential)
		return nil
	}

	m.update(func(s State) State {
		if s.Status != Initializing || s.Credential != credential {
			return s
		}
		return State{Status: Authenticated, User: user, Credential: credential}
	})
	m.log.Info(ctx, "session restored", "user_id", user.ID)

	return nil
}

func (m *Manager) Login(ctx context.Context, identifier, password string) error {
	resp, err := m.auth.Login(ctx, identifier, password)
	if err != nil {
		return err
	}
	m.adopt(ctx, resp)
	return nil
}

func (m *Manager) Register(ctx context.Context, req models.RegisterRequest) error {
	resp, err := m.auth.Register(ctx, req)
	if err != nil {
		return err
	}
	m.adopt(ctx, resp)
	return nil
}

func (m *Manager) VerifyMagicLink(ctx context.Context, code string) error {
	resp, err := m.auth.VerifyMagicLink(ctx, code)
	if err != nil {
		return err
	}
	m.adopt(ctx, resp)
	return nil
}

func (m *Manager) LoginWithWidget(ctx context.Context, payload models.WidgetPayload) error {
	resp, err := m.auth.LoginWithWidget(ctx, payload)
	if err != nil {
		return err
	}
	m.adopt(ctx, resp)
	return nil
}

// RequestMagicLink asks the server to send a one-time code. It does not
// change the session.
func (m *Manager) RequestMagicLink(ctx context.Context, username string) (*models.MagicLinkResponse, error) {
	return m.auth.RequestMagicLink(ctx, username)
}

// Logout forgets the credential locally. The server is not contacted.
func (m *Manager) Logout(ctx context.Context) error {
	err := m.store.Set(ctx, "")
	m.set(State{Status: Anonymous})
	if err != nil {
		return fmt.Errorf("clear stored credential: %w", err)
	}
	m.log.Info(ctx, "signed out")
	return nil
}

// RefreshUser re-fetches the current user. Any failure signs the session
// out, unless the credential it checked was replaced in the meantime.
func (m *Manager) RefreshUser(ctx context.Context) error {

	credential, err := m.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("read stored credential: %w", err)
	}
	if credential == "" {
		m.set(State{Status: Anonymous})
		return nil
	}

	user, err := m.auth.GetCurrentUser(ctx)
	if err != nil {
		m.log.Warn(ctx, "refresh failed, signing out", "error", err)
		m.drop(ctx, credential)
		return nil
	}

	m.update(func(s State) State {
		if s.Status != Authenticated || s.Credential != credential {
			return s
		}
		s.User = user
		return s
	})
	return nil
}

func (m *Manager) SetPassword(ctx context.Context, req models.SetPasswordRequest) error {
	user, err := m.auth.SetPassword(ctx, req)
	if err != nil {
		return err
	}
	m.replaceUser(user)
	return nil
}

func (m *Manager) ConnectWidgetIdentity(ctx context.Context, payload models.WidgetPayload) error {
	user, err := m.auth.ConnectWidgetIdentity(ctx, payload)
	if err != nil {
		return err
	}
	m.replaceUser(user)
	return nil
}

// Expire drops the session after the server rejected credential. The store
// has already been cleared by the caller. A session that moved on to another
// credential is left alone.
func (m *Manager) Expire(ctx context.Context, credential string) {
	expired := false
	m.update(func(s State) State {
		if s.Credential != credential {
			return s
		}
		expired = true
		return State{Status: Anonymous}
	})
	if expired {
		m.log.Info(ctx, "session expired")
	}
}

func (m *Manager) adopt(ctx context.Context, resp *models.AuthResponse) {
	user := resp.User
	m.set(State{Status: Authenticated, User: &user, Credential: resp.AccessToken})
	m.log.Info(ctx, "signed in", "user_id", user.ID)
}

func (m *Manager) replaceUser(user *models.User) {
	m.update(func(s State) State {
		if s.Status != Authenticated {
			return s
		}
		s.User = user
		return s
	})
}

// drop clears the store and the session, but only while they still refer to
// credential. A sign-in that completed in the meantime wins.
func (m *Manager) drop(ctx context.Context, credential string) {
	if _, err := tokenstore.ClearIf(ctx, m.store, credential); err != nil {
		m.log.Error(ctx, "clear stored credential", "error", err)
	}
	m.update(func(s State) State {
		if s.Credential != "" && s.Credential != credential {
			return s
		}
		return State{Status: Anonymous}
	})
}

func (m *Manager) set(next State) {
	m.update(func(State) State { return next })
}

// update applies fn under the lock and notifies observers when the state
// changed.
func (m *Manager) update(fn func(State) State) {
	m.mu.Lock()
	prev := m.state
	next := fn(prev)
	if next.equal(prev) {
		m.mu.Unlock()
		return
	}
	m.state = next
	observers := append([]observer(nil), m.observers...)
	m.mu.Unlock()

	for _, o := range observers {
		o.fn(next)
	}
}
