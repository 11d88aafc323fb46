package apitest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"golang.org/x/crypto/bcrypt"
)

func contextWithUser(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

func userFrom(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey{}).(int64)
	return id
}

// AddUser registers a password account directly. Email or phone may be "".
func (s *Server) AddUser(email, phone, password string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.createUserLocked(email, phone, password)
	if err != nil {
		panic(err)
	}
	return u.User
}

// AddMessengerUser registers an account known only by its messenger
// identity, as the widget login does on first use.
func (s *Server) AddMessengerUser(messengerID int64, username string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.newAccountLocked()
	u.TelegramID = strPtr(strconv.FormatInt(messengerID, 10))
	if username != "" {
		u.TelegramUsername = strPtr(username)
	}
	return u.User
}

// SetContact attaches an email and phone (either may be "") to the account
// with id without enabling password login.
func (s *Server) SetContact(id int64, email, phone string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.users[id]
	if email != "" {
		u.Email = strPtr(email)
	}
	if phone != "" {
		u.Phone = strPtr(phone)
	}
}

// LastCode returns the most recent one-time code sent to username.
func (s *Server) LastCode(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCode[username]
}

// User returns the stored user with id.
func (s *Server) User(id int64) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, false
	}
	return u.User, true
}

func (s *Server) newAccountLocked() *account {
	u := &account{User: models.User{
		ID:        s.nextSeqLocked(),
		IsActive:  true,
		CreatedAt: s.now(),
	}}
	s.users[u.ID] = u
	return u
}

func (s *Server) createUserLocked(email, phone, password string) (*account, error) {

	if email == "" && phone == "" {
		return nil, errors.New("Email or phone is required")
	}
	if existing := s.findByLoginLocked(email); email != "" && existing != nil {
		return nil, errors.New("Email already registered")
	}
	if existing := s.findByLoginLocked(phone); phone != "" && existing != nil {
		return nil, errors.New("Phone already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	u := s.newAccountLocked()
	if email != "" {
		u.Email = strPtr(email)
	}
	if phone != "" {
		u.Phone = strPtr(phone)
	}
	u.passwordHash = hash
	u.HasPassword = true

	return u, nil
}

func (s *Server) findByLoginLocked(login string) *account {
	if login == "" {
		return nil
	}
	for _, u := range s.users {
		if (u.Email != nil && strings.EqualFold(*u.Email, login)) || (u.Phone != nil && *u.Phone == login) {
			return u
		}
	}
	return nil
}

func (s *Server) findByMessengerLocked(id string) *account {
	for _, u := range s.users {
		if u.TelegramID != nil && *u.TelegramID == id {
			return u
		}
	}
	return nil
}

func (s *Server) findByUsernameLocked(username string) *account {
	for _, u := range s.users {
		if u.TelegramUsername != nil && strings.EqualFold(*u.TelegramUsername, username) {
			return u
		}
	}
	return nil
}

func (s *Server) authResponseLocked(u *account) models.AuthResponse {
	return models.AuthResponse{
		AccessToken: s.issueLocked(u.ID),
		TokenType:   "bearer",
		User:        u.User,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {

	var req models.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Password) < 6 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{"loc": []string{"body", "password"}, "msg": "String should have at least 6 characters"}},
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.createUserLocked(strings.TrimSpace(req.Email), strings.TrimSpace(req.Phone), req.Password)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.authResponseLocked(u))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {

	var req models.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.findByLoginLocked(strings.TrimSpace(req.Login))
	if u == nil || !u.HasPassword || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(req.Password)) != nil {
		writeDetail(w, http.StatusUnauthorized, "Incorrect login or password")
		return
	}
	if !u.IsActive {
		writeDetail(w, http.StatusBadRequest, "Inactive user")
		return
	}

	writeJSON(w, http.StatusOK, s.authResponseLocked(u))
}

func (s *Server) handleMagicLink(w http.ResponseWriter, r *http.Request) {

	var req models.MagicLinkRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.findByUsernameLocked(req.TelegramUsername)
	if u == nil {
		writeDetail(w, http.StatusNotFound, "User with this Telegram username not found")
		return
	}

	s.codeSeq++
	code := fmt.Sprintf("%06d", 100000+s.codeSeq)
	s.codes[code] = loginCode{userID: u.ID, expires: s.now().Add(CodeTTL)}
	s.lastCode[req.TelegramUsername] = code

	writeJSON(w, http.StatusOK, models.MagicLinkResponse{
		Message:   "Login code sent to Telegram",
		ExpiresIn: int(CodeTTL.Seconds()),
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {

	var req models.VerifyMagicLinkRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(req.Token)
	code, ok := s.codes[key]
	if !ok {
		writeDetail(w, http.StatusBadRequest, "Invalid or expired login code")
		return
	}
	delete(s.codes, key)
	if s.now().After(code.expires) {
		writeDetail(w, http.StatusGone, "Login code expired")
		return
	}

	u, ok := s.users[code.userID]
	if !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, s.authResponseLocked(u))
}

func (s *Server) handleWidgetLogin(w http.ResponseWriter, r *http.Request) {

	var p models.WidgetPayload
	if !decode(w, r, &p) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.verifyWidgetLocked(p) {
		writeDetail(w, http.StatusUnauthorized, "Invalid Telegram authentication")
		return
	}

	id := strconv.FormatInt(p.ID, 10)
	u := s.findByMessengerLocked(id)
	if u == nil {
		u = s.newAccountLocked()
		u.TelegramID = strPtr(id)
	}
	if p.Username != "" {
		u.TelegramUsername = strPtr(p.Username)
	}

	writeJSON(w, http.StatusOK, s.authResponseLocked(u))
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.users[userFrom(r)].User)
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {

	var req models.UserUpdate
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.users[userFrom(r)]
	if req.Email != nil {
		if other := s.findByLoginLocked(*req.Email); other != nil && other.ID != u.ID {
			writeDetail(w, http.StatusBadRequest, "Email already registered")
			return
		}
		u.Email = strPtr(*req.Email)
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	if req.ExpenseSubCategoryEnabled != nil {
		u.ExpenseSubCategoryEnabled = *req.ExpenseSubCategoryEnabled
	}

	writeJSON(w, http.StatusOK, u.User)
}

func (s *Server) handleSetPassword(w http.ResponseWriter, r *http.Request) {

	var req models.SetPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.users[userFrom(r)]
	switch {
	case u.HasPassword:
		writeDetail(w, http.StatusBadRequest, "Password already set")
		return
	case req.Email == "" && req.Phone == "":
		writeDetail(w, http.StatusBadRequest, "Email or phone is required")
		return
	case len(req.Password) < 6:
		writeDetail(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}
	if other := s.findByLoginLocked(req.Email); other != nil && other.ID != u.ID {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	if other := s.findByLoginLocked(req.Phone); other != nil && other.ID != u.ID {
		writeDetail(w, http.StatusBadRequest, "Phone already registered")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	if req.Email != "" {
		u.Email = strPtr(req.Email)
	}
	if req.Phone != "" {
		u.Phone = strPtr(req.Phone)
	}
	u.passwordHash = hash
	u.HasPassword = true

	writeJSON(w, http.StatusOK, u.User)
}

func (s *Server) handleConnectWidget(w http.ResponseWriter, r *http.Request) {

	var p models.WidgetPayload
	if !decode(w, r, &p) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.verifyWidgetLocked(p) {
		writeDetail(w, http.StatusBadRequest, "Invalid Telegram authentication")
		return
	}

	u := s.users[userFrom(r)]
	id := strconv.FormatInt(p.ID, 10)
	if other := s.findByMessengerLocked(id); other != nil && other.ID != u.ID {
		writeDetail(w, http.StatusBadRequest, "Telegram account already linked to another user")
		return
	}

	u.TelegramID = strPtr(id)
	if p.Username != "" {
		u.TelegramUsername = strPtr(p.Username)
	}

	writeJSON(w, http.StatusOK, u.User)
}

func strPtr(v string) *string {
	return &v
}
