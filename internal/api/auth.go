package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/p-n-ai/pathshala/internal/account"
)

type ctxKey int

const (
	userKey ctxKey = iota
	tokenKey
)

func userFrom(ctx context.Context) (account.User, bool) {
	u, ok := ctx.Value(userKey).(account.User)
	return u, ok
}

// currentUser returns the authenticated user. Only call it behind requireUser.
func currentUser(r *http.Request) account.User {
	u, _ := userFrom(r.Context())
	return u
}

// bearerToken reads the session token from the Authorization header, or from
// the token query parameter for websocket clients that cannot set headers.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if r.Method == http.MethodGet && r.URL.Path == "/v1/ws" {
		return r.URL.Query().Get("token")
	}
	return ""
}

// authenticate resolves the request's session to a user.
func (s *Server) authenticate(r *http.Request) (account.User, string, error) {
	token := bearerToken(r)
	if token == "" {
		return account.User{}, "", errUnauthorized
	}
	sess, err := s.sessions.Lookup(r.Context(), token)
	if err != nil {
		return account.User{}, "", err
	}
	u, err := s.accounts.Get(r.Context(), sess.UserID)
	if errors.Is(err, account.ErrNotFound) {
		return account.User{}, "", errUnauthorized
	}
	if err != nil {
		return account.User{}, "", err
	}
	return u, token, nil
}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, token, err := s.authenticate(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="pathshala"`)
			writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, u)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !currentUser(r).Admin {
			writeError(w, r, errForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	User      account.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in account.RegisterInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.accounts.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.startSession(w, r, u, http.StatusCreated)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.accounts.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.startSession(w, r, u, http.StatusOK)
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request, u account.User, status int) {
	sess, err := s.sessions.Create(r.Context(), u.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, SessionResponse{User: u, Token: sess.Token, ExpiresAt: sess.ExpiresAt})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := r.Context().Value(tokenKey).(string)
	if err := s.sessions.Revoke(r.Context(), token); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var upd account.ProfileUpdate
	if err := decode(r, &upd); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.accounts.UpdateProfile(r.Context(), currentUser(r).ID, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var in passwordRequest
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.accounts.ChangePassword(r.Context(), currentUser(r).ID, in.CurrentPassword, in.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, r, errNotFound)
		return
	}
	limit, err := queryInt(r, "limit", defaultActivityLimit)
	if err != nil || limit < 1 || limit > maxActivityLimit {
		writeError(w, r, errBadRequest)
		return
	}
	list, err := s.history.Recent(r.Context(), currentUser(r).ID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
